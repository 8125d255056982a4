package models

import "time"

// Session is an ephemeral server-side record binding a browser visit to a
// user and a live provider access token. The store owns its lifetime: a
// session past the inactivity ceiling reads as absent.
type Session struct {
	ID                string
	UserID            string
	AccessToken       string
	AccessTokenExpiry *time.Time // nil when the provider did not report one
	CreatedAt         time.Time
	LastSeenAt        time.Time
}

// Expired reports whether the access token expiry is set and strictly past.
func (s *Session) Expired(now time.Time) bool {
	return s.AccessTokenExpiry != nil && now.After(*s.AccessTokenExpiry)
}

// Credential is the durable per-(user, provider) record holding the
// provider-side user id and the encrypted refresh token.
type Credential struct {
	UserID         string
	ProviderID     string
	ProviderUserID string
	// RefreshToken is ciphertext produced by the vault, empty until the
	// provider issues a refresh token.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
