package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/adhamahmad/music-genie/internal/models"
	"github.com/adhamahmad/music-genie/internal/services"
	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/charmbracelet/log"
)

// PlaylistHandler serves the playlist, song and filter endpoints.
type PlaylistHandler struct {
	playlists *services.PlaylistService
	songs     *services.SongService
	filters   *services.FilterService
	logger    *log.Logger
}

func NewPlaylistHandler(playlists *services.PlaylistService, songs *services.SongService, filters *services.FilterService, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, songs: songs, filters: filters, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{
		"GET /playlists",
		"POST /playlists",
		"GET /playlists/{id}",
		"GET /playlists/{id}/songs",
		"POST /filters",
		"GET /filters/{id}/songs",
	}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	switch r.Pattern {
	case "GET /playlists":
		h.listPlaylists(w, r, sessionID)
	case "POST /playlists":
		h.createPlaylist(w, r, sessionID)
	case "GET /playlists/{id}":
		h.getPlaylist(w, r, sessionID)
	case "GET /playlists/{id}/songs":
		h.getPlaylistSongs(w, r, sessionID)
	case "POST /filters":
		h.runFilter(w, r, sessionID)
	case "GET /filters/{id}/songs":
		h.getFilteredSongs(w, r, sessionID)
	default:
		http.NotFound(w, r)
	}
}

func (h *PlaylistHandler) listPlaylists(w http.ResponseWriter, r *http.Request, sessionID string) {
	forceRefresh := r.URL.Query().Get("forceRefresh") == "true"

	playlists, err := h.playlists.GetUserPlaylists(r.Context(), sessionID, providerParam(r), forceRefresh)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *PlaylistHandler) getPlaylist(w http.ResponseWriter, r *http.Request, sessionID string) {
	playlist, err := h.playlists.GetPlaylist(r.Context(), sessionID, providerParam(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *PlaylistHandler) getPlaylistSongs(w http.ResponseWriter, r *http.Request, sessionID string) {
	songs, err := h.songs.GetPlaylistSongs(r.Context(), sessionID, providerParam(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *PlaylistHandler) runFilter(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req models.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	resp, err := h.filters.FilterSongs(r.Context(), sessionID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PlaylistHandler) getFilteredSongs(w http.ResponseWriter, r *http.Request, sessionID string) {
	songs, err := h.filters.GetFilteredSongs(r.Context(), sessionID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *PlaylistHandler) createPlaylist(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req models.CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	playlist, err := h.playlists.CreateFromFilter(r.Context(), sessionID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}
