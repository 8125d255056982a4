// package testing contains shared testing utilities
package testing

import (
	"context"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/providers"
	"golang.org/x/oauth2"
)

// MockClient is a test double for [providers.Client] and [providers.AuthClient]
type MockClient struct {
	Playlists []models.Playlist
	Songs     map[string][]models.Song
	Identity  providers.Identity
	Token     *oauth2.Token
	Err       error

	// Refreshed is returned by Refresh when set; otherwise the stale pair
	// comes back unchanged.
	Refreshed *oauth2.Token
	// RefreshCalls counts refresh grants driven through the double.
	RefreshCalls int

	// Created records playlists created through the double.
	Created []models.Playlist
	// Added records songs appended per playlist ID.
	Added map[string][]models.Song
	// FetchCalls counts song fetches per playlist ID.
	FetchCalls map[string]int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Songs:      map[string][]models.Song{},
		Added:      map[string][]models.Song{},
		FetchCalls: map[string]int{},
	}
}

func (m *MockClient) Name() string { return "spotify" }

func (m *MockClient) FetchPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Playlists, nil
}

func (m *MockClient) FetchPlaylist(ctx context.Context, accessToken, playlistID string) (*models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Playlists {
		if p.ID == playlistID {
			return &p, nil
		}
	}
	return &models.Playlist{ID: playlistID, Name: "playlist " + playlistID}, nil
}

func (m *MockClient) FetchPlaylistSongs(ctx context.Context, accessToken, playlistID string) ([]models.Song, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.FetchCalls[playlistID]++
	return m.Songs[playlistID], nil
}

func (m *MockClient) CreatePlaylist(ctx context.Context, accessToken, name string) (*models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	playlist := models.Playlist{ID: "created-" + name, Name: name}
	m.Created = append(m.Created, playlist)
	return &playlist, nil
}

func (m *MockClient) AddSongs(ctx context.Context, accessToken, playlistID string, songs []models.Song) error {
	if m.Err != nil {
		return m.Err
	}
	m.Added[playlistID] = append(m.Added[playlistID], songs...)
	return nil
}

func (m *MockClient) AuthCodeURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Token, nil
}

func (m *MockClient) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	m.RefreshCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Refreshed != nil {
		return m.Refreshed, nil
	}
	return token, nil
}

func (m *MockClient) Profile(ctx context.Context, accessToken string) (*providers.Identity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	identity := m.Identity
	return &identity, nil
}
