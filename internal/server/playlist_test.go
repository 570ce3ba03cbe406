package server

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/chirpradio/playlist-api/internal/digest"
	"github.com/chirpradio/playlist-api/internal/models"
	"github.com/chirpradio/playlist-api/internal/repositories"
	"github.com/chirpradio/playlist-api/internal/shared"
)

const (
	testRealm  = "Playlist API"
	testUser   = "studio"
	testSecret = "s3cret"
)

// newTestServer wires an in-memory store behind the playlist handler and the
// router middleware stack, the same shape the serve command builds.
func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	repo := repositories.NewArticleRepository(db, "lovehasnologic")
	auth := digest.NewAuthenticator(testRealm, map[string]string{testUser: testSecret})

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handle(http.MethodGet, "/health", Health(db))
	router.Handler(NewPlaylistHandler(repo, auth, logger))

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return ts, db
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// authHeader computes a valid digest Authorization header for the request.
func authHeader(method, uri string) string {
	nonce, nc, cnonce := "testnonce", "00000001", "testcnonce"
	a1 := md5hex(testUser + ":" + testRealm + ":" + testSecret)
	a2 := md5hex(method + ":" + uri)
	response := md5hex(strings.Join([]string{a1, nonce, nc, cnonce, "auth", a2}, ":"))

	return fmt.Sprintf(
		`Digest username="%s", realm="%s", nonce="%s", nc=%s, cnonce="%s", qop=auth, uri="%s", response="%s"`,
		testUser, testRealm, nonce, nc, cnonce, uri, response,
	)
}

func createForm() url.Values {
	return url.Values{
		"track_id":     {"42"},
		"track_name":   {"Song"},
		"track_album":  {"Album"},
		"track_artist": {"Artist Name"},
		"track_label":  {"Label"},
		"dj_name":      {"DJ"},
		"time_played":  {"2024-01-01T10:00:00Z"},
	}
}

// doCreate posts a create request with valid credentials.
func doCreate(t *testing.T, ts *httptest.Server, form url.Values) *http.Response {
	t.Helper()

	uri := "/?q=playlist/create"
	req, err := http.NewRequest(http.MethodPost, ts.URL+uri, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", authHeader(http.MethodPost, uri))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var payload T
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestPlaylistCreate(t *testing.T) {
	t.Run("ValidAuthAndParams", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := doCreate(t, ts, createForm())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		receipt := decode[models.CreateReceipt](t, resp)
		if receipt.TrackID != "42" {
			t.Errorf("expected track_id 42, got %s", receipt.TrackID)
		}
		if receipt.ArticleID == 0 {
			t.Error("article_id should be assigned")
		}
		if receipt.URLTitle != "artist-name-album" {
			t.Errorf("expected url_title artist-name-album, got %s", receipt.URLTitle)
		}
	})

	t.Run("NoCredentialsGetsChallenge", func(t *testing.T) {
		ts, _ := newTestServer(t)

		challenge := func() string {
			resp, err := http.Post(ts.URL+"/?q=playlist/create", "application/x-www-form-urlencoded", nil)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}

			header := resp.Header.Get("WWW-Authenticate")
			if !strings.Contains(header, `realm="`+testRealm+`"`) || !strings.Contains(header, `qop="auth"`) {
				t.Fatalf("challenge header missing fields: %s", header)
			}
			if !strings.Contains(header, `opaque="`+md5hex(testRealm)+`"`) {
				t.Fatalf("challenge opaque should fingerprint the realm: %s", header)
			}
			return header
		}

		// Two consecutive challenges must not reuse a nonce.
		if first, second := challenge(), challenge(); first == second {
			t.Errorf("consecutive challenges reused nonce: %s", first)
		}
	})

	t.Run("BadCredentialsRejected", func(t *testing.T) {
		ts, _ := newTestServer(t)

		uri := "/?q=playlist/create"
		req, _ := http.NewRequest(http.MethodPost, ts.URL+uri, strings.NewReader(createForm().Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		header := authHeader(http.MethodPost, uri)
		req.Header.Set("Authorization", strings.Replace(header, `response="`, `response="0`, 1))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("MissingParameterNamesFirstAbsentField", func(t *testing.T) {
		ts, db := newTestServer(t)

		form := createForm()
		form.Del("track_label")

		resp := doCreate(t, ts, form)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}

		payload := decode[map[string]string](t, resp)
		if !strings.Contains(payload["error"], "track_label") {
			t.Errorf("error should name track_label: %s", payload["error"])
		}

		// Validation failures must not write to the store.
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM textpattern").Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no rows written, found %d", count)
		}
	})

	t.Run("EmptyValueCountsAsMissing", func(t *testing.T) {
		ts, _ := newTestServer(t)

		form := createForm()
		form.Set("dj_name", "")

		resp := doCreate(t, ts, form)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}

		payload := decode[map[string]string](t, resp)
		if !strings.Contains(payload["error"], "dj_name") {
			t.Errorf("error should name dj_name: %s", payload["error"])
		}
	})

	t.Run("WrongMethodNamesRequiredMethod", func(t *testing.T) {
		ts, _ := newTestServer(t)

		uri := "/?q=playlist/create"
		req, _ := http.NewRequest(http.MethodGet, ts.URL+uri, nil)
		req.Header.Set("Authorization", authHeader(http.MethodGet, uri))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}

		payload := decode[map[string]string](t, resp)
		if !strings.Contains(payload["error"], "requires a HTTP POST") {
			t.Errorf("error should name the required method: %s", payload["error"])
		}
	})
}

func TestPlaylistCurrent(t *testing.T) {
	t.Run("EmptyPartition", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp, err := http.Get(ts.URL + "/?q=playlist/current")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}

		// NotFound keeps the legacy empty body.
		body, _ := io.ReadAll(resp.Body)
		if len(body) != 0 {
			t.Errorf("expected empty body, got %q", body)
		}
	})

	t.Run("ReflectsLatestCreate", func(t *testing.T) {
		ts, _ := newTestServer(t)

		doCreate(t, ts, createForm())

		form := createForm()
		form.Set("track_id", "43")
		form.Set("track_name", "Later Song")
		form.Set("time_played", "2024-01-01T11:00:00Z")
		doCreate(t, ts, form)

		resp, err := http.Get(ts.URL + "/?q=playlist/current")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		current := decode[models.CurrentTrack](t, resp)
		if current.TrackID != "43" || current.TrackTitle != "Later Song" {
			t.Errorf("expected the later play to be current, got %+v", current)
		}
		if current.TrackArtist != "Artist Name" || current.DJName != "DJ" {
			t.Errorf("payload lost fields: %+v", current)
		}
	})

	t.Run("PathStyleRouting", func(t *testing.T) {
		ts, _ := newTestServer(t)
		doCreate(t, ts, createForm())

		for _, path := range []string{"/current", "/playlist/current", "/api/playlist/current"} {
			resp, err := http.Get(ts.URL + path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
			}
		}
	})
}

func TestPlaylistDelete(t *testing.T) {
	deleteTrack := func(t *testing.T, ts *httptest.Server, trackID string) *http.Response {
		t.Helper()

		uri := "/?q=playlist/delete/" + trackID
		req, err := http.NewRequest(http.MethodDelete, ts.URL+uri, nil)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		req.Header.Set("Authorization", authHeader(http.MethodDelete, uri))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("RemovesTrack", func(t *testing.T) {
		ts, _ := newTestServer(t)
		doCreate(t, ts, createForm())

		resp := deleteTrack(t, ts, "42")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		receipt := decode[models.DeleteReceipt](t, resp)
		if receipt.TrackID != "42" || receipt.ArticleID == 0 {
			t.Errorf("unexpected receipt: %+v", receipt)
		}

		// The formerly current track is gone.
		current, err := http.Get(ts.URL + "/?q=playlist/current")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		current.Body.Close()
		if current.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", current.StatusCode)
		}

		// Deleting again reports NotFound.
		if resp := deleteTrack(t, ts, "42"); resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", resp.StatusCode)
		}
	})

	t.Run("UnknownTrack", func(t *testing.T) {
		ts, _ := newTestServer(t)

		if resp := deleteTrack(t, ts, "nope"); resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("RequiresAuth", func(t *testing.T) {
		ts, _ := newTestServer(t)
		doCreate(t, ts, createForm())

		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/?q=playlist/delete/42", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if resp.Header.Get("WWW-Authenticate") == "" {
			t.Error("expected a digest challenge header")
		}
	})
}

func TestRouting(t *testing.T) {
	t.Run("UnknownTokenIsNotFound", func(t *testing.T) {
		ts, _ := newTestServer(t)

		for _, target := range []string{"/?q=playlist/history", "/nonsense", "/"} {
			resp, err := http.Get(ts.URL + target)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", target, resp.StatusCode)
			}
		}
	})

	t.Run("Health", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		payload := decode[map[string]string](t, resp)
		if payload["status"] != "ok" {
			t.Errorf("expected status ok, got %s", payload["status"])
		}
	})

	t.Run("HealthRejectsWrongMethod", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp, err := http.Post(ts.URL+"/health", "", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}
