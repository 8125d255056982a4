// Spotify API implementation of [Client]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// songPageLimit is the Spotify maximum for /playlists/{id}/tracks.
	songPageLimit = 100

	// addSongsChunk is the Spotify maximum track URIs per add request.
	addSongsChunk = 100
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyOwner represents a playlist owner.
type SpotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksField struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist object.
type SpotifyPlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  SpotifyOwner        `json:"owner"`
	Tracks playlistTracksField `json:"tracks"`
	Images []SpotifyImage      `json:"images"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of playlist tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// SpotifyClient implements [Client] and [AuthClient] for Spotify API interactions.
//
// The bearer token is supplied per call; the client holds only the OAuth2
// app configuration and a politeness rate limiter.
type SpotifyClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyClient creates a new Spotify client with the given OAuth2 credentials.
func NewSpotifyClient(clientID, clientSecret, redirectURI string) (*SpotifyClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client id and secret are required", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/auth/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyClient{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
	}, nil
}

func (s *SpotifyClient) Name() string {
	return "spotify"
}

// AuthCodeURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyClient) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair.
func (s *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient), code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh renews an expired token pair through the refresh-token grant.
// The returned pair carries the old refresh token when Spotify does not
// rotate it.
func (s *SpotifyClient) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token to renew with", shared.ErrAbsentCredential)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	refreshed, err := s.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh rejected: %v", shared.ErrAuthFailed, err)
	}
	return refreshed, nil
}

// Profile fetches the authenticated user's identity from /me.
func (s *SpotifyClient) Profile(ctx context.Context, accessToken string) (*Identity, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, accessToken, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &Identity{
		ProviderUserID: user.ID,
		Email:          user.Email,
		DisplayName:    user.DisplayName,
	}, nil
}

// doRequest performs an authenticated, rate-limited HTTP request to the Spotify API.
func (s *SpotifyClient) doRequest(ctx context.Context, accessToken, method, endpoint string, body any, result any) error {
	if accessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrAuthFailed)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, spotifyBaseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify rejected the token", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchPlaylists retrieves all playlists of the token's user, following pagination.
func (s *SpotifyClient) FetchPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var response SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			playlists = append(playlists, item.toPlaylist())
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return playlists, nil
}

// FetchPlaylist retrieves a single playlist summary by ID.
func (s *SpotifyClient) FetchPlaylist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
	var item SpotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	if err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &item); err != nil {
		return nil, err
	}

	playlist := item.toPlaylist()
	return &playlist, nil
}

// FetchPlaylistSongs retrieves the full song list of a playlist, page by page.
func (s *SpotifyClient) FetchPlaylistSongs(ctx context.Context, accessToken, playlistID string) ([]models.Song, error) {
	songs := []models.Song{}
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, songPageLimit, offset)

		var response SpotifyPaginatedTracks
		if err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		if len(response.Items) == 0 {
			break
		}

		for _, item := range response.Items {
			songs = append(songs, item.toSong())
		}

		if len(response.Items) < songPageLimit {
			break
		}
		offset += songPageLimit
	}

	return songs, nil
}

// CreatePlaylist creates a new public playlist for the token's user.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, accessToken, name string) (*models.Playlist, error) {
	body := map[string]any{
		"name":   name,
		"public": true,
	}

	var item SpotifyPlaylist
	if err := s.doRequest(ctx, accessToken, http.MethodPost, "/me/playlists", body, &item); err != nil {
		return nil, err
	}

	playlist := item.toPlaylist()
	return &playlist, nil
}

// AddSongs appends songs to an existing playlist in URI chunks.
func (s *SpotifyClient) AddSongs(ctx context.Context, accessToken, playlistID string, songs []models.Song) error {
	if len(songs) == 0 {
		return nil
	}

	uris := make([]string, 0, len(songs))
	for _, song := range songs {
		uris = append(uris, "spotify:track:"+song.ID)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	for start := 0; start < len(uris); start += addSongsChunk {
		end := start + addSongsChunk
		if end > len(uris) {
			end = len(uris)
		}

		body := map[string]any{"uris": uris[start:end]}
		if err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

func (p SpotifyPlaylist) toPlaylist() models.Playlist {
	playlist := models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Owner:       p.Owner.DisplayName,
		TracksCount: p.Tracks.Total,
	}
	if len(p.Images) > 0 {
		playlist.ImageURL = p.Images[0].URL
	}
	return playlist
}

func (t SpotifyPlaylistTrack) toSong() models.Song {
	song := models.Song{
		ID:         t.Track.ID,
		Title:      t.Track.Name,
		Album:      t.Track.Album.Name,
		Popularity: t.Track.Popularity,
		Explicit:   t.Track.Explicit,
	}

	for _, artist := range t.Track.Artists {
		song.Artists = append(song.Artists, artist.Name)
	}

	// release_date is "2006", "2006-01" or "2006-01-02" depending on precision
	if len(t.Track.Album.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(t.Track.Album.ReleaseDate[:4]); err == nil {
			song.ReleaseYear = year
		}
	}

	if t.AddedAt != "" {
		if added, err := time.Parse(time.RFC3339, t.AddedAt); err == nil {
			song.AddedAt = &models.YearMonth{Year: added.Year(), Month: added.Month()}
		}
	}

	return song
}
