package models

import (
	"regexp"
	"strings"
)

// URLTitleMaxLen caps the derived url_title so the full playlist URL fits the
// site's 200-character budget: 43 characters are reserved for the
// https://chirpradio.org/playlists/##########/ prefix.
const URLTitleMaxLen = 157

var whitespaceRun = regexp.MustCompile(`\s+`)

// URLTitle derives the URL-safe slug for a playlist article, e.g.
// "they-might-be-giants-flood" from ("They Might Be Giants", "Flood").
//
// Both inputs are lowercased, each run of whitespace collapses to a single
// hyphen, and the joined "{primary}-{secondary}" string is hard-truncated at
// maxLen with no word-boundary awareness. Collisions are not detected;
// uniqueness is not guaranteed.
func URLTitle(primary, secondary string, maxLen int) string {
	slug := hyphenate(primary) + "-" + hyphenate(secondary)
	if len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}

func hyphenate(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}
