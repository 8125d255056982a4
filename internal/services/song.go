package services

import (
	"context"

	"github.com/adhamahmad/music-genie/internal/auth"
	"github.com/adhamahmad/music-genie/internal/cache"
	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/providers"
	"github.com/charmbracelet/log"
)

// SongService serves playlist song lists through the cache.
type SongService struct {
	registry    *providers.Registry
	cache       *cache.PlaylistCache
	coordinator *auth.Coordinator
	logger      *log.Logger
}

func NewSongService(registry *providers.Registry, playlistCache *cache.PlaylistCache, coordinator *auth.Coordinator, logger *log.Logger) *SongService {
	return &SongService{
		registry:    registry,
		cache:       playlistCache,
		coordinator: coordinator,
		logger:      logger,
	}
}

// GetPlaylistSongs returns a playlist's full song list, cache first.
// A cached empty list is a valid hit and does not trigger a refetch.
func (s *SongService) GetPlaylistSongs(ctx context.Context, sessionID, providerName, playlistID string) ([]models.Song, error) {
	userID, err := s.coordinator.UserID(sessionID)
	if err != nil {
		return nil, err
	}

	cached, found, err := s.cache.CachedSongs(userID, playlistID)
	if err != nil {
		return nil, err
	}
	if found {
		s.logger.Debug("song cache hit", "user", userID, "playlist", playlistID, "count", len(cached))
		return cached, nil
	}

	client, err := s.registry.Auth(providerName)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.coordinator.Bearer(ctx, sessionID, providerName, client)
	if err != nil {
		return nil, err
	}

	songs, err := client.FetchPlaylistSongs(ctx, accessToken, playlistID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.CacheSongs(userID, playlistID, songs); err != nil {
		return nil, err
	}

	s.logger.Debug("songs fetched from provider", "user", userID, "playlist", playlistID, "count", len(songs))
	return songs, nil
}
