// Package export writes harvested batches to local CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/efterranova/jobson/internal/records"
)

var unsafeKeywordChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

var csvHeader = []string{
	"source_type", "source_id", "title", "company", "author",
	"summary", "content", "seniority", "apply_type", "url", "scraped_at",
}

// WriteBatch writes one CSV per harvest under dir and returns its path.
// Empty batches produce no file and return "".
func WriteBatch(dir, mode, keywords string, batch []records.Raw) (string, error) {
	if len(batch) == 0 {
		return "", nil
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("%s_linkedin_%s_%s.csv", mode, safeKeyword(keywords), stamp)
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range batch {
		row := []string{
			rec.SourceType, rec.SourceID, rec.Title, rec.Company, rec.Author,
			rec.Summary, rec.Content, rec.Seniority, rec.ApplyType, rec.URL, rec.ScrapedAt,
		}
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return path, nil
}

// safeKeyword reduces a search query to a filename-safe slug.
func safeKeyword(keywords string) string {
	slug := unsafeKeywordChars.ReplaceAllString(keywords, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		return "busqueda"
	}
	return slug
}
