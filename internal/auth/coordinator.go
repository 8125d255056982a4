// Package auth binds browser sessions to provider credentials.
//
// The [Coordinator] is the single authority over the token lifecycle: every
// read of a session's tokens goes through Load, every write through Save, and
// logout through Remove. Refresh tokens never leave the process unencrypted
// and are only ever persisted as vault ciphertext.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/adhamahmad/music-genie/internal/providers"
	"github.com/adhamahmad/music-genie/internal/repositories"
	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/adhamahmad/music-genie/internal/vault"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// Coordinator mediates between the session store, the credential store and
// the vault.
type Coordinator struct {
	sessions    *repositories.SessionRepository
	credentials *repositories.CredentialRepository
	users       *repositories.UserRepository
	providers   *repositories.ProviderRepository
	vault       *vault.Vault
	logger      *log.Logger
}

// NewCoordinator creates a Coordinator over the given stores.
func NewCoordinator(
	sessions *repositories.SessionRepository,
	credentials *repositories.CredentialRepository,
	users *repositories.UserRepository,
	providerRepo *repositories.ProviderRepository,
	v *vault.Vault,
	logger *log.Logger,
) *Coordinator {
	return &Coordinator{
		sessions:    sessions,
		credentials: credentials,
		users:       users,
		providers:   providerRepo,
		vault:       v,
		logger:      logger,
	}
}

// Load reassembles the token pair bound to a session for a provider.
//
// The access token comes from the session record, the refresh token from the
// credential record after decryption. A missing or lapsed session fails with
// [shared.ErrAbsentSession]; a session whose user has no credential for the
// provider fails with [shared.ErrAbsentCredential]. Both are recoverable by
// logging in again. An undecryptable refresh token fails with
// [shared.ErrCrypto], which no retry can fix.
func (c *Coordinator) Load(ctx context.Context, sessionID, providerName string) (*oauth2.Token, error) {
	session, found, err := c.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: no session for id", shared.ErrAbsentSession)
	}

	providerID, err := c.providers.IDByName(providerName)
	if err != nil {
		return nil, err
	}

	ciphertext, found, err := c.credentials.RefreshTokenCiphertext(session.UserID, providerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: user %s has no %s credential", shared.ErrAbsentCredential, session.UserID, providerName)
	}

	refreshToken, err := c.vault.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if session.AccessTokenExpiry != nil {
		token.Expiry = *session.AccessTokenExpiry
	}
	return token, nil
}

// Save persists a token pair under a session.
//
// When the session already exists the access token is rotated in place. When
// it does not, this is a first login: the user is resolved or created from
// the provider identity, the credential link is established, and the session
// is created. A first login with no resolvable identity is logged and
// dropped rather than failed, so a provider hiccup on the profile endpoint
// cannot wedge the callback.
//
// A non-empty refresh token on the pair is always encrypted and persisted,
// replacing whatever ciphertext the credential held. An empty one leaves the
// stored ciphertext untouched.
func (c *Coordinator) Save(ctx context.Context, sessionID, providerName string, token *oauth2.Token, identity *providers.Identity) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: token pair has no access token", shared.ErrInvalidInput)
	}

	providerID, err := c.providers.IDByName(providerName)
	if err != nil {
		return err
	}

	session, found, err := c.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	var userID string
	switch {
	case found:
		userID = session.UserID
		if err := c.sessions.UpdateAccessToken(sessionID, token.AccessToken, tokenExpiry(token)); err != nil {
			return err
		}
	default:
		if identity == nil || identity.Email == "" {
			c.logger.Warn("dropping token save: no session and no identity to bind it to", "session", sessionID, "provider", providerName)
			return nil
		}
		user, err := c.users.FindOrCreate(identity.Email, identity.DisplayName)
		if err != nil {
			return err
		}
		userID = user.ID()
		if err := c.credentials.Upsert(userID, providerID, identity.ProviderUserID); err != nil {
			return err
		}
		if err := c.sessions.Create(sessionID, userID, token.AccessToken, tokenExpiry(token)); err != nil {
			return err
		}
	}

	if token.RefreshToken == "" {
		return nil
	}

	// The session is written at this point. A failure to persist the refresh
	// token costs a later renewal, not the login itself.
	ciphertext, err := c.vault.Encrypt(token.RefreshToken)
	if err != nil {
		c.logger.Error("failed to encrypt refresh token", "session", sessionID, "provider", providerName, "error", err)
		return nil
	}
	if err := c.credentials.SetRefreshToken(userID, providerID, ciphertext); err != nil {
		c.logger.Error("failed to persist refresh token", "session", sessionID, "provider", providerName, "error", err)
		return nil
	}

	c.logger.Debug("saved token pair", "session", sessionID, "provider", providerName)
	return nil
}

// Remove unbinds a session from its provider credential.
//
// The stored refresh token ciphertext is cleared and the session is
// invalidated. Removing an already absent session is a no-op.
func (c *Coordinator) Remove(ctx context.Context, sessionID, providerName string) error {
	session, found, err := c.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	providerID, err := c.providers.IDByName(providerName)
	if err != nil {
		return err
	}

	if err := c.credentials.ClearRefreshToken(session.UserID, providerID); err != nil {
		return err
	}
	if err := c.sessions.Invalidate(sessionID); err != nil {
		return err
	}

	c.logger.Debug("removed credential binding", "session", sessionID, "provider", providerName)
	return nil
}

// UserID resolves the user bound to a session.
func (c *Coordinator) UserID(sessionID string) (string, error) {
	userID, found, err := c.sessions.UserID(sessionID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: no session for id", shared.ErrAbsentSession)
	}
	return userID, nil
}

// TokenRefresher is the slice of a provider client that [Coordinator.Bearer]
// needs to renew an expired access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// Bearer resolves the live access token bound to a session.
//
// A stored token that has not expired is returned as is; a session with no
// recorded expiry is trusted until the provider rejects it. An expired token
// is renewed through the refresher using the stored refresh token, the
// rotated pair is persisted via [Coordinator.Save], and the new access token
// is returned. A session whose access token has lapsed and whose user has no
// stored refresh token fails with [shared.ErrAbsentCredential], which only a
// new login can recover.
func (c *Coordinator) Bearer(ctx context.Context, sessionID, providerName string, refresher TokenRefresher) (string, error) {
	session, found, err := c.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: no session for id", shared.ErrAbsentSession)
	}
	if session.AccessTokenExpiry == nil || time.Now().Before(*session.AccessTokenExpiry) {
		return session.AccessToken, nil
	}

	stale, err := c.Load(ctx, sessionID, providerName)
	if err != nil {
		return "", err
	}
	refreshed, err := refresher.Refresh(ctx, stale)
	if err != nil {
		return "", err
	}
	if refreshed == nil || refreshed.AccessToken == "" {
		return "", fmt.Errorf("%w: provider returned no access token on refresh", shared.ErrAuthFailed)
	}
	if err := c.Save(ctx, sessionID, providerName, refreshed, nil); err != nil {
		return "", err
	}

	c.logger.Debug("access token renewed", "session", sessionID, "provider", providerName)
	return refreshed.AccessToken, nil
}

func tokenExpiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	expiry := token.Expiry
	return &expiry
}
