package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Credential lifecycle errors.
	//
	// ErrAbsentSession and ErrAbsentCredential are expected outcomes, not
	// faults: the HTTP boundary maps them to 401. ErrCrypto means stored
	// ciphertext is malformed or was sealed under a different key/salt.
	ErrAbsentSession    = fmt.Errorf("no active session")
	ErrAbsentCredential = fmt.Errorf("no linked provider credential")
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrCrypto           = fmt.Errorf("token encryption failure")

	// Cache errors. Corruption stays distinct from a miss so integrity bugs
	// are never masked as ordinary TTL expiry.
	ErrCacheCorruption = fmt.Errorf("undeserializable cache entry")
	ErrNoFilterResult  = fmt.Errorf("no filtered songs for filter id")

	// API and service errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrUnknownProvider  = fmt.Errorf("unknown provider")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrUserNotFound     = fmt.Errorf("user not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
