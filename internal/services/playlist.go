// Package services implements the application operations over sessions,
// providers and the cache: playlist listing, song retrieval, filtering and
// playlist creation from filter results.
//
// Every operation takes a session id and a provider name. The session id is
// resolved through the auth coordinator to a user and a bearer token; cache
// keys are scoped to the resolved user, never to the session.
package services

import (
	"context"

	"github.com/adhamahmad/music-genie/internal/auth"
	"github.com/adhamahmad/music-genie/internal/cache"
	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/providers"
	"github.com/charmbracelet/log"
)

// PlaylistService serves playlist reads through the cache and creates
// provider playlists from filter results.
type PlaylistService struct {
	registry    *providers.Registry
	cache       *cache.PlaylistCache
	coordinator *auth.Coordinator
	logger      *log.Logger
}

func NewPlaylistService(registry *providers.Registry, playlistCache *cache.PlaylistCache, coordinator *auth.Coordinator, logger *log.Logger) *PlaylistService {
	return &PlaylistService{
		registry:    registry,
		cache:       playlistCache,
		coordinator: coordinator,
		logger:      logger,
	}
}

// GetUserPlaylists lists the session's playlists on a provider.
//
// With forceRefresh the cache read is skipped and the provider answer
// replaces whatever was cached; without it a cached list short-circuits the
// provider call. A user with zero cached metadata keys always refetches.
func (s *PlaylistService) GetUserPlaylists(ctx context.Context, sessionID, providerName string, forceRefresh bool) ([]models.Playlist, error) {
	userID, err := s.coordinator.UserID(sessionID)
	if err != nil {
		return nil, err
	}

	if !forceRefresh {
		cached, err := s.cache.CachedPlaylists(userID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			s.logger.Debug("playlist cache hit", "user", userID, "count", len(cached))
			return cached, nil
		}
	}

	client, err := s.registry.Auth(providerName)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.coordinator.Bearer(ctx, sessionID, providerName, client)
	if err != nil {
		return nil, err
	}

	playlists, err := client.FetchPlaylists(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := s.cache.CachePlaylists(userID, playlists); err != nil {
		return nil, err
	}

	s.logger.Debug("playlists fetched from provider", "user", userID, "provider", providerName, "count", len(playlists))
	return playlists, nil
}

// GetPlaylist returns a single playlist summary, cache first.
func (s *PlaylistService) GetPlaylist(ctx context.Context, sessionID, providerName, playlistID string) (*models.Playlist, error) {
	userID, err := s.coordinator.UserID(sessionID)
	if err != nil {
		return nil, err
	}

	cached, found, err := s.cache.CachedPlaylist(userID, playlistID)
	if err != nil {
		return nil, err
	}
	if found {
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

	playlist, err := client.FetchPlaylist(ctx, accessToken, playlistID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.CachePlaylist(userID, *playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// CreateFromFilter creates a provider playlist out of a cached filter result.
//
// An absent, expired or empty filter result fails with
// [shared.ErrNoFilterResult] before any provider call is made. On success the
// filter entry is evicted,
// the created playlist is refetched for its final state, and that state is
// cached and returned.
func (s *PlaylistService) CreateFromFilter(ctx context.Context, sessionID string, req models.CreatePlaylistRequest) (*models.Playlist, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	userID, err := s.coordinator.UserID(sessionID)
	if err != nil {
		return nil, err
	}

	songs, found, err := s.cache.CachedFilteredSongs(userID, req.FilterID)
	if err != nil {
		return nil, err
	}
	if !found || len(songs) == 0 {
		return nil, noFilterResult(req.FilterID)
	}

	client, err := s.registry.Auth(req.Provider)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.coordinator.Bearer(ctx, sessionID, req.Provider, client)
	if err != nil {
		return nil, err
	}

	created, err := client.CreatePlaylist(ctx, accessToken, req.Name)
	if err != nil {
		return nil, err
	}
	if err := client.AddSongs(ctx, accessToken, created.ID, songs); err != nil {
		return nil, err
	}

	if err := s.cache.EvictFilteredSongs(userID, req.FilterID); err != nil {
		return nil, err
	}

	// The create response predates the song additions; refetch for the
	// final track count.
	playlist, err := client.FetchPlaylist(ctx, accessToken, created.ID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.CachePlaylist(userID, *playlist); err != nil {
		return nil, err
	}

	s.logger.Info("playlist created from filter", "user", userID, "playlist", playlist.ID, "songs", len(songs))
	return playlist, nil
}
