package models

import (
	"fmt"
)

// FilterRequest describes which playlists feed the song pool and which
// predicates apply. Omitted fields mean "no filtering on that dimension";
// a request with zero predicate fields set is invalid.
type FilterRequest struct {
	PlaylistIDs []string   `json:"playlist_ids"`
	Provider    string     `json:"provider"`
	Artists     []string   `json:"artists,omitempty"`
	Albums      []string   `json:"albums,omitempty"`
	Popularity  *int       `json:"popularity,omitempty"`
	ReleaseYear *int       `json:"release_year,omitempty"`
	Explicit    *bool      `json:"explicit,omitempty"`
	AddedAt     *YearMonth `json:"added_at,omitempty"` // only honored for spotify
}

// HasFilters reports whether at least one predicate field is set.
//
// AddedAt only counts for spotify, matching provider capabilities.
func (r *FilterRequest) HasFilters() bool {
	return len(r.Artists) > 0 ||
		len(r.Albums) > 0 ||
		r.Popularity != nil ||
		r.ReleaseYear != nil ||
		r.Explicit != nil ||
		(r.AddedAt != nil && r.Provider == "spotify")
}

// Validate rejects requests that would reach the filter pipeline with nothing
// to do or nothing to pool from.
func (r *FilterRequest) Validate() error {
	if len(r.PlaylistIDs) == 0 {
		return fmt.Errorf("at least one playlist id is required")
	}
	if r.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !r.HasFilters() {
		return fmt.Errorf("at least one filter must be provided")
	}
	return nil
}

// FilterResponse is the result of a filter run: the cached song list plus the
// opaque id addressing it for later playlist creation.
type FilterResponse struct {
	FilterID string `json:"filter_id"`
	Songs    []Song `json:"songs"`
}

// CreatePlaylistRequest asks for a new provider playlist populated from a
// previously cached filter result.
type CreatePlaylistRequest struct {
	Name     string `json:"name"`
	FilterID string `json:"filter_id"`
	Provider string `json:"provider"`
}
