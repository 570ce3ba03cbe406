// package models defines the data model for the playlist web service
package models

import (
	"fmt"
	"time"

	"github.com/chirpradio/playlist-api/internal/shared"
)

// timeFormats lists the accepted time_played layouts. Clients historically
// posted MySQL-style datetimes; newer ones send RFC 3339.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// PlaylistEntry is the semantic playlist record: one played track.
//
// ArticleID and URLTitle are storage-assigned and derived respectively;
// both are empty on input and populated by the record mapper.
type PlaylistEntry struct {
	ArticleID   int64
	TrackID     string
	TrackName   string
	TrackAlbum  string
	TrackArtist string
	TrackLabel  string
	DJName      string
	TimePlayed  time.Time
	TrackNotes  string
	URLTitle    string
}

// Current returns the read-current response payload for this entry.
func (e *PlaylistEntry) Current() *CurrentTrack {
	return &CurrentTrack{
		ArticleID:   e.ArticleID,
		TrackTitle:  e.TrackName,
		TrackAlbum:  e.TrackAlbum,
		TrackArtist: e.TrackArtist,
		TrackLabel:  e.TrackLabel,
		DJName:      e.DJName,
		TrackID:     e.TrackID,
		TimePlayed:  e.TimePlayed,
		TrackNotes:  e.TrackNotes,
	}
}

// CurrentTrack is the JSON payload returned by the current-track lookup.
type CurrentTrack struct {
	ArticleID   int64     `json:"article_id"`
	TrackTitle  string    `json:"track_title"`
	TrackAlbum  string    `json:"track_album"`
	TrackArtist string    `json:"track_artist"`
	TrackLabel  string    `json:"track_label"`
	DJName      string    `json:"dj_name"`
	TrackID     string    `json:"track_id"`
	TimePlayed  time.Time `json:"time_played"`
	TrackNotes  string    `json:"track_notes"`
}

// CreateReceipt is the JSON payload returned after a successful create.
type CreateReceipt struct {
	TrackID   string `json:"track_id"`
	ArticleID int64  `json:"article_id"`
	URLTitle  string `json:"url_title"`
}

// DeleteReceipt is the JSON payload returned after a successful delete,
// snapshotting the record before removal.
type DeleteReceipt struct {
	ArticleID int64  `json:"article_id"`
	TrackID   string `json:"track_id"`
}

// Param is a request parameter that is either present with a value or absent.
//
// Required-field checks branch on presence explicitly instead of testing a
// map lookup, so a missing parameter is a typed state, not a zero value.
type Param struct {
	value   string
	present bool
}

// NewParam returns a present Param carrying value.
func NewParam(value string) Param {
	return Param{value: value, present: true}
}

// Get returns the parameter value and whether it was present in the request.
func (p Param) Get() (string, bool) {
	return p.value, p.present
}

// CreateParams holds the create-operation parameters as typed optional fields.
// A field is present only when the request supplied a non-empty value.
type CreateParams struct {
	TrackName   Param
	TrackAlbum  Param
	TrackArtist Param
	TrackLabel  Param
	DJName      Param
	TimePlayed  Param
	TrackID     Param
	TrackNotes  Param
}

// requiredCreateParams pairs each required field with its wire name, in the
// order missing-parameter failures are reported.
func (p *CreateParams) required() []struct {
	name  string
	param Param
} {
	return []struct {
		name  string
		param Param
	}{
		{"track_name", p.TrackName},
		{"track_album", p.TrackAlbum},
		{"track_artist", p.TrackArtist},
		{"track_label", p.TrackLabel},
		{"dj_name", p.DJName},
		{"time_played", p.TimePlayed},
		{"track_id", p.TrackID},
	}
}

// FirstMissing returns the wire name of the first absent required parameter.
func (p *CreateParams) FirstMissing() (string, bool) {
	for _, field := range p.required() {
		if _, ok := field.param.Get(); !ok {
			return field.name, true
		}
	}
	return "", false
}

// Entry validates the parameter set and converts it into a PlaylistEntry.
//
// Returns [shared.ErrMissingParameter] naming the first absent required
// field, or [shared.ErrInvalidParameter] when time_played cannot be parsed.
func (p *CreateParams) Entry() (*PlaylistEntry, error) {
	if name, missing := p.FirstMissing(); missing {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingParameter, name)
	}

	raw, _ := p.TimePlayed.Get()
	timePlayed, err := ParseTimePlayed(raw)
	if err != nil {
		return nil, err
	}

	notes, _ := p.TrackNotes.Get()

	entry := &PlaylistEntry{
		TimePlayed: timePlayed,
		TrackNotes: notes,
	}
	entry.TrackName, _ = p.TrackName.Get()
	entry.TrackAlbum, _ = p.TrackAlbum.Get()
	entry.TrackArtist, _ = p.TrackArtist.Get()
	entry.TrackLabel, _ = p.TrackLabel.Get()
	entry.DJName, _ = p.DJName.Get()
	entry.TrackID, _ = p.TrackID.Get()

	return entry, nil
}

// ParseTimePlayed parses a caller-supplied time_played value.
func ParseTimePlayed(raw string) (time.Time, error) {
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time_played", shared.ErrInvalidParameter)
}
