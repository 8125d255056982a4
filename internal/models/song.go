package models

import (
	"fmt"
	"time"
)

// Song represents a song from any provider.
//
// Identity is the provider-assigned ID alone: two songs with the same ID are
// the same song even if other fields differ, which is what makes set-based
// deduplication in the filter pipeline correct.
type Song struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Artists     []string   `json:"artists"`
	Album       string     `json:"album"`
	Popularity  int        `json:"popularity"`
	ReleaseYear int        `json:"release_year,omitempty"`
	Explicit    bool       `json:"explicit"`
	AddedAt     *YearMonth `json:"added_at,omitempty"` // nil for providers without added-at data
}

// Playlist represents a playlist summary from any provider.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	TracksCount int    `json:"tracks_count"`
	ImageURL    string `json:"image_url"`
}

// YearMonth is a calendar month, serialized as "2006-01".
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a "2006-01" formatted string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Equal reports whether ym and other are the same calendar month.
func (ym YearMonth) Equal(other YearMonth) bool {
	return ym.Year == other.Year && ym.Month == other.Month
}

func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", ym.String())), nil
}

func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid year-month literal: %s", data)
	}
	parsed, err := ParseYearMonth(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
