// Package providers defines the [Client] interface for music providers and implements it for Spotify.
//
// # Client Interface
//
// All music providers implement a common abstraction, enabling playlist and
// song operations to work uniformly across providers. The caller supplies a
// valid bearer token on every call; token lifecycle lives in internal/auth,
// not here.
//
// # Registry
//
// Clients are registered once at startup in a static [Registry]. Resolving an
// unregistered name fails with [shared.ErrUnknownProvider].
package providers

import (
	"context"
	"fmt"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
	"golang.org/x/oauth2"
)

// Client defines the interface for music provider API access.
type Client interface {
	// Name returns the registered provider name (e.g. "spotify")
	Name() string

	// FetchPlaylists retrieves all playlists of the token's user.
	FetchPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error)

	// FetchPlaylist retrieves a single playlist summary by ID.
	FetchPlaylist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error)

	// FetchPlaylistSongs retrieves the full, ordered song list of a playlist.
	// Pagination is handled internally.
	FetchPlaylistSongs(ctx context.Context, accessToken, playlistID string) ([]models.Song, error)

	// CreatePlaylist creates a new, empty playlist for the token's user.
	CreatePlaylist(ctx context.Context, accessToken, name string) (*models.Playlist, error)

	// AddSongs appends songs to an existing playlist.
	AddSongs(ctx context.Context, accessToken, playlistID string, songs []models.Song) error
}

// Identity is what a successful login reveals about the provider-side user.
type Identity struct {
	ProviderUserID string
	Email          string
	DisplayName    string
}

// AuthClient extends [Client] for providers with an OAuth authorization-code
// login flow.
type AuthClient interface {
	Client

	// AuthCodeURL returns the provider authorization URL for the given CSRF state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token pair.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh renews an expired token pair using its refresh token.
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)

	// Profile fetches the authenticated user's identity.
	Profile(ctx context.Context, accessToken string) (*Identity, error)
}

// Registry is a static provider-name → client mapping built at startup.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: map[string]Client{}}
}

// Register adds a client under its own name, replacing any previous entry.
func (r *Registry) Register(client Client) {
	r.clients[client.Name()] = client
}

// Lookup resolves a provider name to its client.
func (r *Registry) Lookup(name string) (Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, name)
	}
	return client, nil
}

// Auth resolves a provider name to a client supporting the OAuth login flow.
func (r *Registry) Auth(name string) (AuthClient, error) {
	client, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	auth, ok := client.(AuthClient)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no login flow", shared.ErrUnknownProvider, name)
	}
	return auth, nil
}
