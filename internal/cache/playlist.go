package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
)

// Key prefixes for the three cache namespaces. The full formats are part of
// the external interface and must not drift:
//
//	user:playlists:{userId}:{playlistId}:metadata
//	user:songs:{userId}:{playlistId}:songs
//	user:filtered:{userId}:{filterId}:songs
const (
	playlistKeyPrefix = "user:playlists:"
	songsKeyPrefix    = "user:songs:"
	filteredKeyPrefix = "user:filtered:"
)

// DefaultTTL applies to all three namespaces.
const DefaultTTL = 30 * time.Minute

// PlaylistCache namespaces the generic [Cache] for the playlist domain.
type PlaylistCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewPlaylistCache creates a PlaylistCache over the given Cache using DefaultTTL.
func NewPlaylistCache(c *Cache) *PlaylistCache {
	return &PlaylistCache{cache: c, ttl: DefaultTTL}
}

func metadataKey(userID, playlistID string) string {
	return fmt.Sprintf("%s%s:%s:metadata", playlistKeyPrefix, userID, playlistID)
}

func songsKey(userID, playlistID string) string {
	return fmt.Sprintf("%s%s:%s:songs", songsKeyPrefix, userID, playlistID)
}

func filteredKey(userID, filterID string) string {
	return fmt.Sprintf("%s%s:%s:songs", filteredKeyPrefix, userID, filterID)
}

// CachePlaylist stores one playlist summary.
func (p *PlaylistCache) CachePlaylist(userID string, playlist models.Playlist) error {
	return p.cache.Set(metadataKey(userID, playlist.ID), playlist, p.ttl)
}

// CachePlaylists stores each playlist summary under its own metadata key.
func (p *PlaylistCache) CachePlaylists(userID string, playlists []models.Playlist) error {
	for _, playlist := range playlists {
		if err := p.CachePlaylist(userID, playlist); err != nil {
			return err
		}
	}
	return nil
}

// CachedPlaylist returns the cached summary for one playlist, or found=false.
func (p *PlaylistCache) CachedPlaylist(userID, playlistID string) (*models.Playlist, bool, error) {
	var playlist models.Playlist
	found, err := p.cache.Get(metadataKey(userID, playlistID), &playlist)
	if err != nil || !found {
		return nil, false, err
	}
	return &playlist, true, nil
}

// CachedPlaylists enumerates all cached playlist summaries for the user.
//
// A nil slice means no metadata is cached at all and the caller must refetch;
// this is distinct from a legitimately empty playlist collection.
func (p *PlaylistCache) CachedPlaylists(userID string) ([]models.Playlist, error) {
	raw, err := p.cache.ScanPrefix(playlistKeyPrefix + userID + ":")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	playlists := make([]models.Playlist, 0, len(raw))
	for _, entry := range raw {
		var playlist models.Playlist
		if err := json.Unmarshal(entry, &playlist); err != nil {
			return nil, fmt.Errorf("%w: playlist metadata for user %s: %v", shared.ErrCacheCorruption, userID, err)
		}
		playlists = append(playlists, playlist)
	}

	return playlists, nil
}

// EvictPlaylist removes one playlist's cached metadata.
func (p *PlaylistCache) EvictPlaylist(userID, playlistID string) error {
	return p.cache.Delete(metadataKey(userID, playlistID))
}

// CacheSongs stores the ordered song list of one playlist.
func (p *PlaylistCache) CacheSongs(userID, playlistID string, songs []models.Song) error {
	return p.cache.Set(songsKey(userID, playlistID), songs, p.ttl)
}

// CachedSongs returns the cached song list of one playlist, or found=false.
func (p *PlaylistCache) CachedSongs(userID, playlistID string) ([]models.Song, bool, error) {
	var songs []models.Song
	found, err := p.cache.Get(songsKey(userID, playlistID), &songs)
	if err != nil || !found {
		return nil, false, err
	}
	return songs, true, nil
}

// EvictSongs removes one playlist's cached song list.
func (p *PlaylistCache) EvictSongs(userID, playlistID string) error {
	return p.cache.Delete(songsKey(userID, playlistID))
}

// CacheFilteredSongs stores a filter result under a freshly generated opaque
// filter id and returns that id.
func (p *PlaylistCache) CacheFilteredSongs(userID string, songs []models.Song) (string, error) {
	filterID := shared.GenerateID()
	if err := p.cache.Set(filteredKey(userID, filterID), songs, p.ttl); err != nil {
		return "", err
	}
	return filterID, nil
}

// CachedFilteredSongs returns the filter result addressed by filterID, or
// found=false when it expired or never existed.
func (p *PlaylistCache) CachedFilteredSongs(userID, filterID string) ([]models.Song, bool, error) {
	var songs []models.Song
	found, err := p.cache.Get(filteredKey(userID, filterID), &songs)
	if err != nil || !found {
		return nil, false, err
	}
	return songs, true, nil
}

// EvictFilteredSongs removes a consumed or abandoned filter result.
func (p *PlaylistCache) EvictFilteredSongs(userID, filterID string) error {
	return p.cache.Delete(filteredKey(userID, filterID))
}
