// package repositories provides the persistence layer mapping playlist
// entries onto the Textpattern article table.
//
// The table predates this service and its columns were designed for CMS
// articles, so the mapping is denormalized: Title carries the track name,
// Body the album, Keywords the artist, Excerpt the notes, and the three
// generic custom columns carry label, DJ, and track id. Records in the
// playlist partition are distinguished by Section = 'playlists'.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chirpradio/playlist-api/internal/models"
	"github.com/chirpradio/playlist-api/internal/shared"
)

const (
	// playlistSection marks a textpattern row as belonging to the playlist
	// partition rather than site content.
	playlistSection = "playlists"

	// articleStatus is Textpattern's "live" article status.
	articleStatus = 4

	// expirationWindow is how long a playlist article stays live after the
	// track aired.
	expirationWindow = 7 * 24 * time.Hour
)

// ArticleRepository maps playlist entries to and from textpattern rows.
//
// All statements are parameterized; track metadata is free text supplied by
// DJ clients and is never interpolated into query strings.
type ArticleRepository struct {
	db       *sql.DB
	authorID string
}

// NewArticleRepository creates an ArticleRepository writing articles as the
// given author.
func NewArticleRepository(db *sql.DB, authorID string) *ArticleRepository {
	return &ArticleRepository{db: db, authorID: authorID}
}

// Create inserts a playlist entry as a textpattern article and returns the
// create receipt with the store-assigned article id and derived url_title.
//
// Posted and LastMod are both set to the caller-supplied play time; Expires
// is one week later.
func (r *ArticleRepository) Create(entry *models.PlaylistEntry) (*models.CreateReceipt, error) {
	entry.URLTitle = models.URLTitle(entry.TrackArtist, entry.TrackAlbum, models.URLTitleMaxLen)
	expires := entry.TimePlayed.Add(expirationWindow)

	query := `
		INSERT INTO textpattern (
			Posted, Expires, AuthorID, LastMod, Title, url_title,
			Body, Body_html, Excerpt, Excerpt_html,
			Annotate, AnnotateInvite, Status, textile_body, textile_excerpt,
			Section, Keywords, custom_1, custom_2, custom_3
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		entry.TimePlayed,
		expires,
		r.authorID,
		entry.TimePlayed,
		entry.TrackName,
		entry.URLTitle,
		entry.TrackAlbum,
		renderHTML(entry.TrackAlbum),
		entry.TrackNotes,
		renderHTML(entry.TrackNotes),
		1,
		"Comment",
		articleStatus,
		1,
		1,
		playlistSection,
		entry.TrackArtist,
		entry.TrackLabel,
		entry.DJName,
		entry.TrackID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert article: %v", shared.ErrStorageWrite, err)
	}

	articleID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read article id: %v", shared.ErrStorageWrite, err)
	}
	entry.ArticleID = articleID

	return &models.CreateReceipt{
		TrackID:   entry.TrackID,
		ArticleID: articleID,
		URLTitle:  entry.URLTitle,
	}, nil
}

// Current returns the currently playing entry: the playlist-partition row
// with the most recent LastMod, ties broken by highest article id so the
// most recently inserted play wins.
//
// An empty partition yields [shared.ErrNotFound].
func (r *ArticleRepository) Current() (*models.PlaylistEntry, error) {
	query := `
		SELECT ID, Title, Body, Keywords, custom_1, custom_2, custom_3, LastMod, Excerpt
		FROM textpattern
		WHERE Section = ?
		ORDER BY LastMod DESC, ID DESC
		LIMIT 1
	`

	var entry models.PlaylistEntry
	err := r.db.QueryRow(query, playlistSection).Scan(
		&entry.ArticleID,
		&entry.TrackName,
		&entry.TrackAlbum,
		&entry.TrackArtist,
		&entry.TrackLabel,
		&entry.DJName,
		&entry.TrackID,
		&entry.TimePlayed,
		&entry.TrackNotes,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no current track", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query current track: %v", shared.ErrStorageRead, err)
	}

	return &entry, nil
}

// Delete removes the playlist entry with the given track id and returns a
// pre-delete snapshot of it.
//
// Lookup and delete run in one transaction, and the delete is keyed on the
// matched row id as well as the track id, so a concurrent create reusing the
// id cannot cause a different row to be removed. A track id with no matching
// row yields [shared.ErrNotFound].
func (r *ArticleRepository) Delete(trackID string) (*models.DeleteReceipt, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStorageWrite, err)
	}
	defer tx.Rollback()

	var receipt models.DeleteReceipt
	lookup := `SELECT ID, custom_3 FROM textpattern WHERE Section = ? AND custom_3 = ?`
	err = tx.QueryRow(lookup, playlistSection, trackID).Scan(&receipt.ArticleID, &receipt.TrackID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: track with id %s not found", shared.ErrNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to look up track: %v", shared.ErrStorageRead, err)
	}

	result, err := tx.Exec(`DELETE FROM textpattern WHERE ID = ? AND custom_3 = ?`, receipt.ArticleID, trackID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to delete track: %v", shared.ErrStorageWrite, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorageWrite, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: track with id %s not found", shared.ErrNotFound, trackID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit delete: %v", shared.ErrStorageWrite, err)
	}

	return &receipt, nil
}

// renderHTML wraps free text the way Textpattern stores rendered article
// bodies. Empty text stays empty rather than becoming an empty paragraph.
func renderHTML(text string) string {
	if text == "" {
		return ""
	}
	return fmt.Sprintf("<p>%s</p>", text)
}
