package services

import (
	"context"
	"fmt"

	"github.com/adhamahmad/music-genie/internal/cache"
	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/charmbracelet/log"
)

// FilterService pools songs from playlists and narrows the pool through the
// requested predicates. Results are cached under a fresh filter id so a
// later playlist creation can address them.
type FilterService struct {
	songs  *SongService
	cache  *cache.PlaylistCache
	logger *log.Logger
}

func NewFilterService(songs *SongService, playlistCache *cache.PlaylistCache, logger *log.Logger) *FilterService {
	return &FilterService{songs: songs, cache: playlistCache, logger: logger}
}

// FilterSongs runs a filter request and caches the result.
//
// The pool is the union of the requested playlists' songs, deduplicated by
// song id with the first occurrence winning. Predicates are conjunctive: a
// song survives only when it passes every one the request sets. The result
// may legitimately be empty; it is cached and addressable either way.
func (f *FilterService) FilterSongs(ctx context.Context, sessionID string, req models.FilterRequest) (*models.FilterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	pool, err := f.buildSongPool(ctx, sessionID, req.Provider, req.PlaylistIDs)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Song, 0, len(pool))
	for _, song := range pool {
		if matches(song, req) {
			matched = append(matched, song)
		}
	}

	userID, err := f.songs.coordinator.UserID(sessionID)
	if err != nil {
		return nil, err
	}
	filterID, err := f.cache.CacheFilteredSongs(userID, matched)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("filter run complete", "user", userID, "pool", len(pool), "matched", len(matched), "filter", filterID)
	return &models.FilterResponse{FilterID: filterID, Songs: matched}, nil
}

// GetFilteredSongs returns a previously cached filter result.
func (f *FilterService) GetFilteredSongs(ctx context.Context, sessionID, filterID string) ([]models.Song, error) {
	userID, err := f.songs.coordinator.UserID(sessionID)
	if err != nil {
		return nil, err
	}
	songs, found, err := f.cache.CachedFilteredSongs(userID, filterID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, noFilterResult(filterID)
	}
	return songs, nil
}

// buildSongPool unions the playlists' songs, deduplicating by song id.
// Order follows the playlist id order, first occurrence wins.
func (f *FilterService) buildSongPool(ctx context.Context, sessionID, providerName string, playlistIDs []string) ([]models.Song, error) {
	seen := map[string]struct{}{}
	pool := []models.Song{}

	for _, playlistID := range playlistIDs {
		songs, err := f.songs.GetPlaylistSongs(ctx, sessionID, providerName, playlistID)
		if err != nil {
			return nil, err
		}
		for _, song := range songs {
			if _, ok := seen[song.ID]; ok {
				continue
			}
			seen[song.ID] = struct{}{}
			pool = append(pool, song)
		}
	}

	return pool, nil
}

// matches applies every set predicate conjunctively.
func matches(song models.Song, req models.FilterRequest) bool {
	if len(req.Artists) > 0 && !anyArtistIn(song.Artists, req.Artists) {
		return false
	}
	if len(req.Albums) > 0 && !contains(req.Albums, song.Album) {
		return false
	}
	if req.Popularity != nil && song.Popularity > *req.Popularity {
		return false
	}
	if req.Explicit != nil && song.Explicit != *req.Explicit {
		return false
	}
	if req.ReleaseYear != nil && song.ReleaseYear != *req.ReleaseYear {
		return false
	}
	if req.AddedAt != nil && req.Provider == "spotify" {
		if song.AddedAt == nil {
			return false
		}
		if !song.AddedAt.Before(*req.AddedAt) && !song.AddedAt.Equal(*req.AddedAt) {
			return false
		}
	}
	return true
}

func anyArtistIn(songArtists, wanted []string) bool {
	for _, artist := range songArtists {
		if contains(wanted, artist) {
			return true
		}
	}
	return false
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func validateCreateRequest(req models.CreatePlaylistRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if req.FilterID == "" {
		return fmt.Errorf("%w: filter id is required", shared.ErrInvalidInput)
	}
	if req.Provider == "" {
		return fmt.Errorf("%w: provider is required", shared.ErrInvalidInput)
	}
	return nil
}

func noFilterResult(filterID string) error {
	return fmt.Errorf("%w: filter %s has no cached result", shared.ErrNoFilterResult, filterID)
}
