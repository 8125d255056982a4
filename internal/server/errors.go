package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/charmbracelet/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the error taxonomy to HTTP statuses. Recoverable
// authentication failures get 401 so clients know to log in again;
// crypto, cache corruption and misconfigured providers stay 500 since
// no client action can fix them.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrAbsentSession),
		errors.Is(err, shared.ErrAbsentCredential),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNoFilterResult),
		errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "status", status, "error", err)
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		// Internal detail stays in the log.
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
