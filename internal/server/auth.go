package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/adhamahmad/music-genie/internal/auth"
	"github.com/adhamahmad/music-genie/internal/providers"
	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/charmbracelet/log"
)

const (
	// SessionCookie carries the opaque session id.
	SessionCookie = "genie_session"
	// stateCookie holds the CSRF state between redirect and callback.
	stateCookie = "genie_oauth_state"
)

// AuthHandler implements the OAuth2 authorization code login flow against a
// provider and binds the resulting tokens to a browser session.
type AuthHandler struct {
	registry    *providers.Registry
	coordinator *auth.Coordinator
	logger      *log.Logger
}

func NewAuthHandler(registry *providers.Registry, coordinator *auth.Coordinator, logger *log.Logger) *AuthHandler {
	return &AuthHandler{registry: registry, coordinator: coordinator, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{
		"GET /auth/login",
		"GET /auth/callback",
		"POST /auth/logout",
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	case "/auth/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login redirects the browser to the provider's authorization page with a
// fresh CSRF state.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Auth(providerParam(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, client.AuthCodeURL(state), http.StatusFound)
}

// callback completes the authorization code flow: state check, code
// exchange, identity lookup, then session binding through the coordinator.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Auth(providerParam(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := r.Cookie(stateCookie)
	if err != nil || stored.Value == "" || stored.Value != r.URL.Query().Get("state") {
		writeError(w, h.logger, fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed))
		return
	}
	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, fmt.Errorf("%w: provider returned no code: %s", shared.ErrAuthFailed, r.URL.Query().Get("error")))
		return
	}

	token, err := client.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	identity, err := client.Profile(r.Context(), token.AccessToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sessionID := shared.GenerateID()
	if err := h.coordinator.Save(r.Context(), sessionID, client.Name(), token, identity); err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login complete", "provider", client.Name())
	http.Redirect(w, r, "/playlists", http.StatusFound)
}

// logout clears the stored refresh token and invalidates the session.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if ok {
		if err := h.coordinator.Remove(r.Context(), sessionID, providerParam(r)); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// sessionFrom extracts the session id cookie.
func sessionFrom(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// requireSession extracts the session id or fails the request with 401.
func requireSession(w http.ResponseWriter, r *http.Request, logger *log.Logger) (string, bool) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		writeError(w, logger, fmt.Errorf("%w: no session cookie", shared.ErrAbsentSession))
		return "", false
	}
	return sessionID, true
}

// providerParam reads the provider query parameter, defaulting to spotify.
func providerParam(r *http.Request) string {
	if provider := r.URL.Query().Get("provider"); provider != "" {
		return provider
	}
	return "spotify"
}
