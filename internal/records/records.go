// Package records defines the harvested record shapes and the
// normalization/dedupe-key rules shared by every storage backend.
package records

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Source types for harvested records.
const (
	SourceJobs = "jobs"
	SourceFeed = "feed"
)

// Raw is one harvested item exactly as the scraper captured it.
// Fields other than SourceType and SourceID may be empty when extraction
// failed for that field.
type Raw struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	Author     string `json:"author"`
	Summary    string `json:"summary"`
	Content    string `json:"content"`
	Seniority  string `json:"seniority"`
	ApplyType  string `json:"apply_type"`
	URL        string `json:"url"`
	ScrapedAt  string `json:"scraped_at"`
}

// Normalized is a Raw record after cleaning, with blank text fields
// converted to absent (nil) for storage, plus the search metadata and
// the dedupe key that identifies the row in both backends.
type Normalized struct {
	SourceType string  `json:"source_type"`
	SourceID   *string `json:"source_id"`
	Title      *string `json:"title"`
	Company    *string `json:"company"`
	Author     *string `json:"author"`
	Summary    *string `json:"summary"`
	Content    *string `json:"content"`
	Seniority  *string `json:"seniority"`
	ApplyType  *string `json:"apply_type"`
	URL        *string `json:"url"`
	Keyword    string  `json:"keyword"`
	SearchMode string  `json:"search_mode"`
	ScrapedAt  string  `json:"scraped_at"`
	DedupeKey  string  `json:"dedupe_key"`
}

// contentKeyLen caps how much of the content participates in the dedupe
// key, so trailing noise in long posts does not split identities.
const contentKeyLen = 180

// Clean trims surrounding whitespace. All dedupe-key inputs go through it.
func Clean(s string) string {
	return strings.TrimSpace(s)
}

// NowISO returns the current UTC time in RFC 3339 form, the format every
// scraped_at value is stored in. Lexical order matches chronological
// order, which the recency-descending indexes rely on.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// DedupeKey fingerprints the identity tuple of a record: source type,
// source id, url, title, company, author and the first 180 characters of
// content, cleaned and joined with "|". Records that agree on the tuple
// collide; any difference in it produces a different key.
func DedupeKey(sourceType, sourceID, url, title, company, author, content string) string {
	trimmed := Clean(content)
	// Truncate on characters, not bytes: multibyte content must not be
	// cut mid-rune or keys drift from previously persisted ones.
	if runes := []rune(trimmed); len(runes) > contentKeyLen {
		trimmed = string(runes[:contentKeyLen])
	}
	base := strings.Join([]string{
		Clean(sourceType),
		Clean(sourceID),
		Clean(url),
		Clean(title),
		Clean(company),
		Clean(author),
		trimmed,
	}, "|")
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// Normalize cleans a raw record and derives its dedupe key. It is
// deterministic for a given input except that a missing scraped_at
// defaults to the current time (scraped_at is not part of the key).
func Normalize(raw Raw, keyword, searchMode string) Normalized {
	scrapedAt := Clean(raw.ScrapedAt)
	if scrapedAt == "" {
		scrapedAt = NowISO()
	}

	n := Normalized{
		SourceType: Clean(raw.SourceType),
		SourceID:   optional(raw.SourceID),
		Title:      optional(raw.Title),
		Company:    optional(raw.Company),
		Author:     optional(raw.Author),
		Summary:    optional(raw.Summary),
		Content:    optional(raw.Content),
		Seniority:  optional(raw.Seniority),
		ApplyType:  optional(raw.ApplyType),
		URL:        optional(raw.URL),
		Keyword:    Clean(keyword),
		SearchMode: Clean(searchMode),
		ScrapedAt:  scrapedAt,
	}
	n.DedupeKey = DedupeKey(
		raw.SourceType, raw.SourceID, raw.URL,
		raw.Title, raw.Company, raw.Author, raw.Content,
	)
	return n
}

// optional converts a cleaned string to nil when blank.
func optional(s string) *string {
	trimmed := Clean(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Deref returns the value of an optional field, or "" when absent.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
