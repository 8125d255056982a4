package cache

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestCache(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		want := map[string]string{"hello": "world"}

		if err := c.Set("test:key", want, time.Minute); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		var got map[string]string
		found, err := c.Get("test:key", &got)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if !found {
			t.Fatal("expected entry to be found")
		}
		if got["hello"] != "world" {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("AbsentAfterDelete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		if err := c.Set("test:key", "value", time.Minute); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := c.Delete("test:key"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}

		var got string
		found, err := c.Get("test:key", &got)
		if err != nil {
			t.Fatalf("get after delete errored: %v", err)
		}
		if found {
			t.Error("expected entry to be absent after delete")
		}
	})

	t.Run("DeleteMissingKeyIsNotAnError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := New(db).Delete("never:existed"); err != nil {
			t.Errorf("deleting a missing key should not error: %v", err)
		}
	})

	t.Run("ExpiredReadsAsAbsent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		if err := c.Set("test:key", "value", -time.Second); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		var got string
		found, err := c.Get("test:key", &got)
		if err != nil {
			t.Fatalf("get errored: %v", err)
		}
		if found {
			t.Error("expired entry should read as absent")
		}

		// the lazy delete should have reclaimed the row
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM cache_entries WHERE key = ?", "test:key").Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 0 {
			t.Error("expired row should be deleted on read")
		}
	})

	t.Run("OverwriteLastWriteWins", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		if err := c.Set("test:key", "first", time.Minute); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := c.Set("test:key", "second", time.Minute); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		var got string
		if _, err := c.Get("test:key", &got); err != nil {
			t.Fatalf("get errored: %v", err)
		}
		if got != "second" {
			t.Errorf("expected overwritten value, got %q", got)
		}
	})

	t.Run("CorruptEntryIsNotAMiss", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		_, err := db.Exec(
			"INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)",
			"test:key", "{not json", time.Now().Add(time.Minute),
		)
		if err != nil {
			t.Fatalf("failed to insert corrupt row: %v", err)
		}

		var got map[string]string
		if _, err := c.Get("test:key", &got); !errors.Is(err, shared.ErrCacheCorruption) {
			t.Errorf("expected ErrCacheCorruption, got %v", err)
		}
	})

	t.Run("ScanPrefix", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		for _, key := range []string{"scope:a:1", "scope:a:2", "scope:b:1"} {
			if err := c.Set(key, key, time.Minute); err != nil {
				t.Fatalf("failed to set %s: %v", key, err)
			}
		}

		results, err := c.ScanPrefix("scope:a:")
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("expected 2 matches, got %d", len(results))
		}
	})

	t.Run("ScanPrefixZeroMatchesIsNil", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		if err := c.Set("other:key", "value", time.Minute); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		results, err := c.ScanPrefix("scope:a:")
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if results != nil {
			t.Errorf("expected nil for zero matches, got %v", results)
		}
	})

	t.Run("ScanPrefixSkipsExpired", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		if err := c.Set("scope:a:live", "live", time.Minute); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := c.Set("scope:a:dead", "dead", -time.Second); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		results, err := c.ScanPrefix("scope:a:")
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("expected 1 live match, got %d", len(results))
		}
	})

	t.Run("ScanPrefixPaginates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		total := scanBatchSize + 25
		for i := 0; i < total; i++ {
			key := "scope:a:" + string(rune('a'+i/26)) + string(rune('a'+i%26))
			if err := c.Set(key, i, time.Minute); err != nil {
				t.Fatalf("failed to set %s: %v", key, err)
			}
		}

		results, err := c.ScanPrefix("scope:a:")
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(results) != total {
			t.Errorf("expected %d matches across batches, got %d", total, len(results))
		}
	})

	t.Run("PurgeExpired", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		c := New(db)
		if err := c.Set("live", "v", time.Minute); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := c.Set("dead", "v", -time.Second); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		purged, err := c.PurgeExpired()
		if err != nil {
			t.Fatalf("purge failed: %v", err)
		}
		if purged != 1 {
			t.Errorf("expected 1 purged row, got %d", purged)
		}
	})
}

func TestPlaylistCache(t *testing.T) {
	playlist := models.Playlist{ID: "pl1", Name: "Road Trip", Owner: "ahmad", TracksCount: 42, ImageURL: "https://img/pl1"}
	songs := []models.Song{
		{ID: "s1", Title: "First", Artists: []string{"A"}, Album: "Alpha", Popularity: 50},
		{ID: "s2", Title: "Second", Artists: []string{"B"}, Album: "Beta", Popularity: 80, Explicit: true},
	}

	t.Run("MetadataKeyFormat", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))
		if err := pc.CachePlaylist("u1", playlist); err != nil {
			t.Fatalf("failed to cache playlist: %v", err)
		}

		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM cache_entries WHERE key = ?", "user:playlists:u1:pl1:metadata").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query: %v", err)
		}
		if count != 1 {
			t.Error("metadata key format does not match the declared scheme")
		}
	})

	t.Run("SongsAndFilteredKeyFormats", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))
		if err := pc.CacheSongs("u1", "pl1", songs); err != nil {
			t.Fatalf("failed to cache songs: %v", err)
		}
		filterID, err := pc.CacheFilteredSongs("u1", songs)
		if err != nil {
			t.Fatalf("failed to cache filtered songs: %v", err)
		}

		for _, key := range []string{
			"user:songs:u1:pl1:songs",
			"user:filtered:u1:" + filterID + ":songs",
		} {
			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM cache_entries WHERE key = ?", key).Scan(&count); err != nil {
				t.Fatalf("failed to query: %v", err)
			}
			if count != 1 {
				t.Errorf("expected key %s to exist", key)
			}
		}
	})

	t.Run("CachedPlaylistsAbsentVsEmpty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))

		cached, err := pc.CachedPlaylists("u1")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if cached != nil {
			t.Error("expected nil when nothing is cached")
		}

		if err := pc.CachePlaylists("u1", []models.Playlist{playlist}); err != nil {
			t.Fatalf("failed to cache: %v", err)
		}

		cached, err = pc.CachedPlaylists("u1")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if len(cached) != 1 || cached[0].ID != "pl1" {
			t.Errorf("expected cached playlist back, got %v", cached)
		}
	})

	t.Run("CachedPlaylistsScopedToUser", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))
		if err := pc.CachePlaylist("u1", playlist); err != nil {
			t.Fatalf("failed to cache: %v", err)
		}

		cached, err := pc.CachedPlaylists("u2")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if cached != nil {
			t.Error("user u2 should not see u1's cached playlists")
		}
	})

	t.Run("SongsRoundTrip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))
		if err := pc.CacheSongs("u1", "pl1", songs); err != nil {
			t.Fatalf("failed to cache songs: %v", err)
		}

		got, found, err := pc.CachedSongs("u1", "pl1")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if !found {
			t.Fatal("expected songs to be cached")
		}
		if len(got) != 2 || got[0].ID != "s1" || got[1].ID != "s2" {
			t.Errorf("song list order or content lost: %v", got)
		}
	})

	t.Run("FilteredIdsAreFresh", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))
		first, err := pc.CacheFilteredSongs("u1", songs)
		if err != nil {
			t.Fatalf("failed to cache: %v", err)
		}
		second, err := pc.CacheFilteredSongs("u1", songs)
		if err != nil {
			t.Fatalf("failed to cache: %v", err)
		}
		if first == second {
			t.Error("identical content must still get distinct filter ids")
		}

		got, found, err := pc.CachedFilteredSongs("u1", first)
		if err != nil || !found {
			t.Fatalf("expected first filter result, found=%v err=%v", found, err)
		}
		if len(got) != len(songs) {
			t.Errorf("expected %d songs, got %d", len(songs), len(got))
		}
	})

	t.Run("EvictFilteredSongs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		pc := NewPlaylistCache(New(db))
		filterID, err := pc.CacheFilteredSongs("u1", songs)
		if err != nil {
			t.Fatalf("failed to cache: %v", err)
		}

		if err := pc.EvictFilteredSongs("u1", filterID); err != nil {
			t.Fatalf("failed to evict: %v", err)
		}

		_, found, err := pc.CachedFilteredSongs("u1", filterID)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if found {
			t.Error("evicted filter result should be absent")
		}
	})
}
