package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chirpradio/playlist-api/internal/digest"
	"github.com/chirpradio/playlist-api/internal/models"
	"github.com/chirpradio/playlist-api/internal/repositories"
	"github.com/chirpradio/playlist-api/internal/shared"
)

// PlaylistHandler resolves playlist API requests to the current/create/delete
// operations and applies digest authentication to the mutating ones.
//
// The route is an opaque path-like token: the `q` query parameter when
// present (the original deployment populated it via mod_rewrite), otherwise
// the URL path. A leading "playlist/" prefix is accepted and stripped.
type PlaylistHandler struct {
	repo   *repositories.ArticleRepository
	auth   *digest.Authenticator
	logger *log.Logger
}

// NewPlaylistHandler creates a PlaylistHandler with its collaborators injected.
func NewPlaylistHandler(repo *repositories.ArticleRepository, auth *digest.Authenticator, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{repo: repo, auth: auth, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{"/", "/api/playlist/"}
}

// ServeHTTP routes the request and writes the operation result or failure.
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := h.route(r)
	if err != nil {
		h.logger.Warn("request failed", "method", r.Method, "token", pathToken(r), "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// route resolves the path token to an operation and executes it.
//
// Mutating operations authenticate before the method check, matching the
// behavior DJ clients were built against: a wrong-method probe without
// credentials still gets the digest challenge.
func (h *PlaylistHandler) route(r *http.Request) (any, error) {
	token := pathToken(r)

	switch {
	case token == "current":
		if r.Method != http.MethodGet {
			return nil, requiresMethod(token, http.MethodGet)
		}
		return h.current()

	case token == "create":
		if err := h.authenticate(r); err != nil {
			return nil, err
		}
		if r.Method != http.MethodPost {
			return nil, requiresMethod(token, http.MethodPost)
		}
		return h.create(r)

	case strings.HasPrefix(token, "delete/"):
		if err := h.authenticate(r); err != nil {
			return nil, err
		}
		if r.Method != http.MethodDelete {
			return nil, requiresMethod(token, http.MethodDelete)
		}
		trackID := token[strings.LastIndex(token, "/")+1:]
		return h.repo.Delete(trackID)

	default:
		return nil, shared.ErrNotFound
	}
}

// current looks up the currently playing track.
func (h *PlaylistHandler) current() (*models.CurrentTrack, error) {
	entry, err := h.repo.Current()
	if err != nil {
		return nil, err
	}
	return entry.Current(), nil
}

// create validates the create parameters and inserts the playlist entry.
func (h *PlaylistHandler) create(r *http.Request) (*models.CreateReceipt, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: unparsable request body", shared.ErrInvalidParameter)
	}

	params := createParams(r.Form)
	entry, err := params.Entry()
	if err != nil {
		return nil, err
	}

	return h.repo.Create(entry)
}

// authenticate applies digest authentication to the request.
func (h *PlaylistHandler) authenticate(r *http.Request) error {
	return h.auth.Authenticate(r.Header.Get("Authorization"), r.Method)
}

// createParams builds the typed parameter set from submitted form/query
// values. A field counts as present only when non-empty; blank required
// values are request-validation failures, not storage failures.
func createParams(form url.Values) *models.CreateParams {
	return &models.CreateParams{
		TrackName:   param(form, "track_name"),
		TrackAlbum:  param(form, "track_album"),
		TrackArtist: param(form, "track_artist"),
		TrackLabel:  param(form, "track_label"),
		DJName:      param(form, "dj_name"),
		TimePlayed:  param(form, "time_played"),
		TrackID:     param(form, "track_id"),
		TrackNotes:  param(form, "track_notes"),
	}
}

func param(form url.Values, name string) models.Param {
	if !form.Has(name) || form.Get(name) == "" {
		return models.Param{}
	}
	return models.NewParam(form.Get(name))
}

// pathToken resolves the opaque route token for a request.
func pathToken(r *http.Request) string {
	token := r.URL.Query().Get("q")
	if token == "" {
		token = strings.TrimPrefix(strings.Trim(r.URL.Path, "/"), "api/")
	}
	return strings.TrimPrefix(strings.Trim(token, "/"), "playlist/")
}

// requiresMethod reports a recognized route hit with the wrong HTTP method,
// naming the method the route requires.
func requiresMethod(token, method string) error {
	return fmt.Errorf("%w: %s requires a HTTP %s", shared.ErrMethodNotAllowed, token, method)
}
