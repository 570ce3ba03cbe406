package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/chirpradio/playlist-api/internal/digest"
	"github.com/chirpradio/playlist-api/internal/shared"
)

// statusFor maps the service error taxonomy onto caller-facing HTTP statuses.
//
// Anything unclassified is reported as 503, matching the catch-all of the
// legacy PHP front end this service replaces.
func statusFor(err error) int {
	var challenge *digest.ChallengeError

	switch {
	case errors.As(err, &challenge):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrMethodNotAllowed),
		errors.Is(err, shared.ErrMissingParameter),
		errors.Is(err, shared.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrMalformedCredentials),
		errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrStorageUnavailable),
		errors.Is(err, shared.ErrStorageRead),
		errors.Is(err, shared.ErrStorageWrite):
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

// writeError writes the status and body for a failed request.
//
// A [digest.ChallengeError] additionally carries the WWW-Authenticate
// challenge header. NotFound responses have an empty body; legacy callers
// branch on the bare 404.
func writeError(w http.ResponseWriter, err error) {
	var challenge *digest.ChallengeError
	if errors.As(err, &challenge) {
		w.Header().Set("WWW-Authenticate", challenge.Challenge.Header())
	}

	status := statusFor(err)
	if status == http.StatusNotFound {
		w.WriteHeader(status)
		return
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON writes payload as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Default().Error("failed to encode response", "error", err)
	}
}
