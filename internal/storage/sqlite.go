package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/efterranova/jobson/internal/records"
)

// SQLiteRepository persists records in a local sqlite file. The schema
// enforces dedupe_key uniqueness, so each row's upsert is atomic on its
// own and no cross-record transaction is needed.
type SQLiteRepository struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS linkedin_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type TEXT NOT NULL,
	source_id TEXT,
	title TEXT,
	company TEXT,
	author TEXT,
	summary TEXT,
	content TEXT,
	seniority TEXT,
	apply_type TEXT,
	url TEXT,
	keyword TEXT NOT NULL,
	search_mode TEXT NOT NULL,
	scraped_at TEXT NOT NULL,
	dedupe_key TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_linkedin_results_scraped_at ON linkedin_results(scraped_at DESC);
CREATE INDEX IF NOT EXISTS idx_linkedin_results_source_type ON linkedin_results(source_type);
`

// NewSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func NewSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, ":") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory:
	// databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// BackendName implements Repository.
func (r *SQLiteRepository) BackendName() string {
	return "sqlite"
}

const upsertSQL = `
INSERT INTO linkedin_results (
	source_type, source_id, title, company, author, summary, content,
	seniority, apply_type, url, keyword, search_mode, scraped_at, dedupe_key
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(dedupe_key) DO UPDATE SET
	source_type=excluded.source_type,
	source_id=excluded.source_id,
	title=excluded.title,
	company=excluded.company,
	author=excluded.author,
	summary=excluded.summary,
	content=excluded.content,
	seniority=excluded.seniority,
	apply_type=excluded.apply_type,
	url=excluded.url,
	keyword=excluded.keyword,
	search_mode=excluded.search_mode,
	scraped_at=excluded.scraped_at
`

// Upsert implements Repository.
func (r *SQLiteRepository) Upsert(ctx context.Context, batch []records.Raw, keyword, searchMode string) (UpsertResult, error) {
	unique, keys := collapse(batch, keyword, searchMode)
	if len(unique) == 0 {
		return UpsertResult{}, nil
	}

	existing, err := r.existingKeys(ctx, keys)
	if err != nil {
		return UpsertResult{}, err
	}

	for _, n := range unique {
		_, err := r.db.ExecContext(ctx, upsertSQL,
			n.SourceType, n.SourceID, n.Title, n.Company, n.Author,
			n.Summary, n.Content, n.Seniority, n.ApplyType, n.URL,
			n.Keyword, n.SearchMode, n.ScrapedAt, n.DedupeKey,
		)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to upsert record %s: %w", n.DedupeKey, err)
		}
	}

	inserted := len(unique) - len(existing)
	return UpsertResult{
		Received: len(batch),
		Inserted: inserted,
		Updated:  len(unique) - inserted,
	}, nil
}

// existingKeys answers which of the batch's keys are already persisted,
// in one IN-set query.
func (r *SQLiteRepository) existingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT dedupe_key FROM linkedin_results WHERE dedupe_key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing keys: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan dedupe key: %w", err)
		}
		existing[key] = true
	}
	return existing, rows.Err()
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context, filter ListFilter) ([]records.Normalized, error) {
	var clauses []string
	var args []any

	if filter.SourceType != "" {
		clauses = append(clauses, "source_type = ?")
		args = append(args, filter.SourceType)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		needle := "%" + search + "%"
		fields := []string{"title", "company", "author", "summary", "content"}
		ors := make([]string, len(fields))
		for i, f := range fields {
			ors[i] = "COALESCE(" + f + ", '') LIKE ?"
			args = append(args, needle)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	query := "SELECT source_type, source_id, title, company, author, summary, content, " +
		"seniority, apply_type, url, keyword, search_mode, scraped_at, dedupe_key " +
		"FROM linkedin_results"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY scraped_at DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []records.Normalized
	for rows.Next() {
		var n records.Normalized
		var sourceID, title, company, author, summary, content, seniority, applyType, url sql.NullString
		err := rows.Scan(
			&n.SourceType, &sourceID, &title, &company, &author, &summary,
			&content, &seniority, &applyType, &url,
			&n.Keyword, &n.SearchMode, &n.ScrapedAt, &n.DedupeKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		n.SourceID = nullable(sourceID)
		n.Title = nullable(title)
		n.Company = nullable(company)
		n.Author = nullable(author)
		n.Summary = nullable(summary)
		n.Content = nullable(content)
		n.Seniority = nullable(seniority)
		n.ApplyType = nullable(applyType)
		n.URL = nullable(url)
		out = append(out, n)
	}
	return out, rows.Err()
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
