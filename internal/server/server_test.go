package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adhamahmad/music-genie/internal/auth"
	"github.com/adhamahmad/music-genie/internal/cache"
	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/providers"
	"github.com/adhamahmad/music-genie/internal/repositories"
	"github.com/adhamahmad/music-genie/internal/services"
	"github.com/adhamahmad/music-genie/internal/shared"
	tu "github.com/adhamahmad/music-genie/internal/testing"
	"github.com/adhamahmad/music-genie/internal/vault"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const testSession = "sess-1"

type testApp struct {
	router      *BasicRouter
	client      *tu.MockClient
	coordinator *auth.Coordinator
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	v, err := vault.New("test-password", "test-salt")
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}

	logger := log.New(io.Discard)
	coordinator := auth.NewCoordinator(
		repositories.NewSessionRepository(db),
		repositories.NewCredentialRepository(db),
		repositories.NewUserRepository(db),
		repositories.NewProviderRepository(db),
		v,
		logger,
	)

	client := tu.NewMockClient()
	registry := providers.NewRegistry()
	registry.Register(client)

	playlistCache := cache.NewPlaylistCache(cache.New(db))
	songs := services.NewSongService(registry, playlistCache, coordinator, logger)
	playlists := services.NewPlaylistService(registry, playlistCache, coordinator, logger)
	filters := services.NewFilterService(songs, playlistCache, logger)

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(NewAuthHandler(registry, coordinator, logger))
	router.Handler(NewPlaylistHandler(playlists, songs, filters, logger))

	return &testApp{router: router, client: client, coordinator: coordinator}
}

// loginSession establishes a session the way a completed callback would.
func (a *testApp) loginSession(t *testing.T) {
	t.Helper()

	token := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}
	identity := &providers.Identity{ProviderUserID: "spotify-user-1", Email: "listener@example.com", DisplayName: "Listener"}
	if err := a.coordinator.Save(context.Background(), testSession, "spotify", token, identity); err != nil {
		t.Fatalf("failed to establish session: %v", err)
	}
}

func (a *testApp) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	a.router.ServeHTTP(recorder, req)
	return recorder
}

func sessionCookie() *http.Cookie {
	return &http.Cookie{Name: SessionCookie, Value: testSession}
}

func TestPlaylistEndpoints(t *testing.T) {
	t.Run("RequiresSessionCookie", func(t *testing.T) {
		app := setupApp(t)
		resp := app.do(http.MethodGet, "/playlists", "")
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 without cookie, got %d", resp.Code)
		}
	})

	t.Run("UnknownSessionIs401", func(t *testing.T) {
		app := setupApp(t)
		resp := app.do(http.MethodGet, "/playlists", "", &http.Cookie{Name: SessionCookie, Value: "forged"})
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for unknown session, got %d", resp.Code)
		}
	})

	t.Run("ListsPlaylists", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)
		app.client.Playlists = []models.Playlist{{ID: "pl1", Name: "First"}}

		resp := app.do(http.MethodGet, "/playlists", "", sessionCookie())
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
		}

		var playlists []models.Playlist
		if err := json.Unmarshal(resp.Body.Bytes(), &playlists); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(playlists) != 1 || playlists[0].ID != "pl1" {
			t.Errorf("Unexpected playlists: %+v", playlists)
		}
	})

	t.Run("GetsSinglePlaylistByPath", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)
		app.client.Playlists = []models.Playlist{{ID: "pl1", Name: "First"}}

		resp := app.do(http.MethodGet, "/playlists/pl1", "", sessionCookie())
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
		}

		var playlist models.Playlist
		if err := json.Unmarshal(resp.Body.Bytes(), &playlist); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if playlist.Name != "First" {
			t.Errorf("Unexpected playlist: %+v", playlist)
		}
	})

	t.Run("ListsPlaylistSongs", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)
		app.client.Songs["pl1"] = []models.Song{{ID: "t1", Title: "One"}}

		resp := app.do(http.MethodGet, "/playlists/pl1/songs", "", sessionCookie())
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
		}

		var songs []models.Song
		if err := json.Unmarshal(resp.Body.Bytes(), &songs); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(songs) != 1 || songs[0].Title != "One" {
			t.Errorf("Unexpected songs: %+v", songs)
		}
	})
}

func TestFilterEndpoints(t *testing.T) {
	t.Run("MalformedBodyIs400", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)

		resp := app.do(http.MethodPost, "/filters", "{not json", sessionCookie())
		if resp.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.Code)
		}
	})

	t.Run("ZeroPredicatesIs400", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)

		body := `{"playlist_ids": ["pl1"], "provider": "spotify"}`
		resp := app.do(http.MethodPost, "/filters", body, sessionCookie())
		if resp.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("FilterThenCreatePlaylist", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)
		app.client.Songs["pl1"] = []models.Song{
			{ID: "t1", Artists: []string{"A"}},
			{ID: "t2", Artists: []string{"B"}},
		}

		body := `{"playlist_ids": ["pl1"], "provider": "spotify", "artists": ["A"]}`
		resp := app.do(http.MethodPost, "/filters", body, sessionCookie())
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
		}

		var filterResp models.FilterResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &filterResp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if filterResp.FilterID == "" || len(filterResp.Songs) != 1 {
			t.Fatalf("Unexpected filter response: %+v", filterResp)
		}

		createBody := `{"name": "Best of A", "filter_id": "` + filterResp.FilterID + `", "provider": "spotify"}`
		createResp := app.do(http.MethodPost, "/playlists", createBody, sessionCookie())
		if createResp.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", createResp.Code, createResp.Body.String())
		}
		if len(app.client.Created) != 1 {
			t.Errorf("Expected one created playlist, got %+v", app.client.Created)
		}
	})

	t.Run("UnknownFilterIDIs404", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)

		body := `{"name": "Doomed", "filter_id": "nope", "provider": "spotify"}`
		resp := app.do(http.MethodPost, "/playlists", body, sessionCookie())
		if resp.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", resp.Code, resp.Body.String())
		}
	})
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("LoginRedirectsWithState", func(t *testing.T) {
		app := setupApp(t)

		resp := app.do(http.MethodGet, "/auth/login", "")
		if resp.Code != http.StatusFound {
			t.Fatalf("Expected 302, got %d", resp.Code)
		}

		location := resp.Header().Get("Location")
		if !strings.Contains(location, "state=") {
			t.Errorf("Redirect missing state: %s", location)
		}

		var state string
		for _, cookie := range resp.Result().Cookies() {
			if cookie.Name == stateCookie {
				state = cookie.Value
			}
		}
		if state == "" {
			t.Fatal("Expected a state cookie")
		}
		if !strings.Contains(location, "state="+state) {
			t.Errorf("Redirect state does not match cookie: %s", location)
		}
	})

	t.Run("CallbackRejectsStateMismatch", func(t *testing.T) {
		app := setupApp(t)

		resp := app.do(http.MethodGet, "/auth/callback?state=evil&code=x", "",
			&http.Cookie{Name: stateCookie, Value: "good"})
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 on state mismatch, got %d", resp.Code)
		}
	})

	t.Run("CallbackCompletesLogin", func(t *testing.T) {
		app := setupApp(t)
		app.client.Token = &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}
		app.client.Identity = providers.Identity{ProviderUserID: "spotify-user-1", Email: "listener@example.com", DisplayName: "Listener"}
		app.client.Playlists = []models.Playlist{{ID: "pl1", Name: "First"}}

		resp := app.do(http.MethodGet, "/auth/callback?state=good&code=x", "",
			&http.Cookie{Name: stateCookie, Value: "good"})
		if resp.Code != http.StatusFound {
			t.Fatalf("Expected 302, got %d: %s", resp.Code, resp.Body.String())
		}

		var session *http.Cookie
		for _, cookie := range resp.Result().Cookies() {
			if cookie.Name == SessionCookie {
				session = cookie
			}
		}
		if session == nil || session.Value == "" {
			t.Fatal("Expected a session cookie after callback")
		}
		if !session.HttpOnly {
			t.Error("Session cookie must be http-only")
		}

		listing := app.do(http.MethodGet, "/playlists", "", session)
		if listing.Code != http.StatusOK {
			t.Errorf("Expected the new session to work, got %d: %s", listing.Code, listing.Body.String())
		}
	})

	t.Run("LogoutInvalidatesSession", func(t *testing.T) {
		app := setupApp(t)
		app.loginSession(t)

		resp := app.do(http.MethodPost, "/auth/logout", "", sessionCookie())
		if resp.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", resp.Code, resp.Body.String())
		}

		after := app.do(http.MethodGet, "/playlists", "", sessionCookie())
		if after.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 after logout, got %d", after.Code)
		}
	})

	t.Run("LogoutWithoutSessionIsANoOp", func(t *testing.T) {
		app := setupApp(t)
		resp := app.do(http.MethodPost, "/auth/logout", "")
		if resp.Code != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", resp.Code)
		}
	})
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"AbsentSession", shared.ErrAbsentSession, http.StatusUnauthorized},
		{"AbsentCredential", shared.ErrAbsentCredential, http.StatusUnauthorized},
		{"TokenExpired", shared.ErrTokenExpired, http.StatusUnauthorized},
		{"InvalidInput", shared.ErrInvalidInput, http.StatusBadRequest},
		{"NoFilterResult", shared.ErrNoFilterResult, http.StatusNotFound},
		{"PlaylistNotFound", shared.ErrPlaylistNotFound, http.StatusNotFound},
		{"APIRequest", shared.ErrAPIRequest, http.StatusBadGateway},
		{"Crypto", shared.ErrCrypto, http.StatusInternalServerError},
		{"CacheCorruption", shared.ErrCacheCorruption, http.StatusInternalServerError},
		{"UnknownProvider", shared.ErrUnknownProvider, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, got)
			}
		})
	}
}
