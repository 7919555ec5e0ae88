package document

import (
	"regexp"
	"strings"

	"moviesearch/internal/domain"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, strips everything that is not a word character
// or whitespace, and collapses whitespace runs to a single space. It is
// idempotent and returns "" for empty input.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = nonWordRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Compose builds the single normalized text blob embedded for a movie.
// Segments appear in fixed order (title, tagline, overview, genres,
// keywords), absent fields are skipped, and segments are joined with ". ".
// The same function serves bulk loads and single-record adds.
func Compose(m domain.Movie) string {
	parts := make([]string, 0, 5)
	if m.Title != "" {
		parts = append(parts, Normalize(m.Title))
	}
	if m.Tagline != "" {
		parts = append(parts, Normalize(m.Tagline))
	}
	if m.Overview != "" {
		parts = append(parts, Normalize(m.Overview))
	}
	if len(m.Genres) > 0 {
		parts = append(parts, "genres: "+Normalize(strings.Join(m.Genres, ", ")))
	}
	if len(m.Keywords) > 0 {
		parts = append(parts, "keywords: "+Normalize(strings.Join(m.Keywords, ", ")))
	}
	return strings.Join(parts, ". ")
}
