// Package storage persists normalized records behind one Repository
// contract with two interchangeable backends: a local sqlite file and a
// Supabase PostgREST table. Both upsert by dedupe key and must report
// identical UpsertResult semantics for identical input.
package storage

import (
	"context"
	"fmt"

	"github.com/efterranova/jobson/internal/config"
	"github.com/efterranova/jobson/internal/records"
)

// List limits: requested limits clamp into [1, maxListLimit].
const (
	DefaultListLimit = 200
	maxListLimit     = 1000
)

// UpsertResult reports what an upsert batch did. received counts the raw
// input; inserted + updated equals the number of unique dedupe keys.
type UpsertResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// ListFilter narrows a read query. SourceType, when non-empty, must match
// exactly; Search, when non-empty, is a case-insensitive substring match
// across title, company, author, summary and content.
type ListFilter struct {
	Limit      int
	SourceType string
	Search     string
}

// Repository is the persistence contract shared by both backends.
type Repository interface {
	// Upsert normalizes the batch, collapses it by dedupe key (last
	// occurrence wins) and writes every unique record with
	// insert-or-overwrite-on-conflict semantics. Safe to re-run with the
	// same input indefinitely.
	Upsert(ctx context.Context, batch []records.Raw, keyword, searchMode string) (UpsertResult, error)

	// List returns persisted records, newest first.
	List(ctx context.Context, filter ListFilter) ([]records.Normalized, error)

	// BackendName identifies the backend in summaries ("sqlite" or
	// "supabase").
	BackendName() string
}

// New selects the backend from settings: Supabase when credentials are
// configured, the local sqlite file otherwise.
func New(ctx context.Context, settings *config.Settings) (Repository, error) {
	if settings.UseSupabase() {
		return NewSupabase(settings.SupabaseURL, settings.SupabaseKey, settings.SupabaseTable), nil
	}

	repo, err := NewSQLite(ctx, settings.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite backend: %w", err)
	}
	return repo, nil
}

// collapse normalizes a batch and reduces it to one record per dedupe
// key, preserving first-seen key order with the last occurrence's values.
func collapse(batch []records.Raw, keyword, searchMode string) ([]records.Normalized, []string) {
	byKey := make(map[string]int)
	unique := make([]records.Normalized, 0, len(batch))

	for _, raw := range batch {
		n := records.Normalize(raw, keyword, searchMode)
		if idx, ok := byKey[n.DedupeKey]; ok {
			unique[idx] = n
			continue
		}
		byKey[n.DedupeKey] = len(unique)
		unique = append(unique, n)
	}

	keys := make([]string, len(unique))
	for i, n := range unique {
		keys[i] = n.DedupeKey
	}
	return unique, keys
}

// clampLimit bounds a requested list limit into [1, maxListLimit].
func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
