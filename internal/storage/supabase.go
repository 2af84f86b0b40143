package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/efterranova/jobson/internal/records"
)

// keyProbeChunk bounds how many dedupe keys one existence query carries,
// keeping the in.() filter under PostgREST's URL length limits.
const keyProbeChunk = 120

// SupabaseRepository persists records in a Supabase table through the
// PostgREST API. Writes go through a single bulk upsert with the
// merge-duplicates directive keyed on dedupe_key.
type SupabaseRepository struct {
	client *resty.Client
	table  string
}

// NewSupabase builds the repository for the project at baseURL using the
// service key for both the apikey header and bearer auth.
func NewSupabase(baseURL, key, table string) *SupabaseRepository {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/") + "/rest/v1")
	client.SetTimeout(30 * time.Second)
	client.SetHeader("apikey", key)
	client.SetHeader("Authorization", "Bearer "+key)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")

	return &SupabaseRepository{client: client, table: table}
}

// BackendName implements Repository.
func (r *SupabaseRepository) BackendName() string {
	return "supabase"
}

// Upsert implements Repository.
func (r *SupabaseRepository) Upsert(ctx context.Context, batch []records.Raw, keyword, searchMode string) (UpsertResult, error) {
	unique, keys := collapse(batch, keyword, searchMode)
	if len(unique) == 0 {
		return UpsertResult{}, nil
	}

	existing, err := r.existingKeys(ctx, keys)
	if err != nil {
		return UpsertResult{}, err
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "dedupe_key").
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetBody(unique).
		Post("/" + r.table)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("supabase upsert request failed: %w", err)
	}
	if resp.IsError() {
		return UpsertResult{}, fmt.Errorf("supabase upsert failed: %s: %s", resp.Status(), resp.String())
	}

	inserted := len(unique) - len(existing)
	return UpsertResult{
		Received: len(batch),
		Inserted: inserted,
		Updated:  len(unique) - inserted,
	}, nil
}

// existingKeys probes which dedupe keys are already persisted, chunking
// the in.() filter to respect URL length limits.
func (r *SupabaseRepository) existingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)

	for start := 0; start < len(keys); start += keyProbeChunk {
		end := min(start+keyProbeChunk, len(keys))
		chunk := keys[start:end]

		var rows []struct {
			DedupeKey string `json:"dedupe_key"`
		}
		resp, err := r.client.R().
			SetContext(ctx).
			SetQueryParam("select", "dedupe_key").
			SetQueryParam("dedupe_key", "in.("+strings.Join(chunk, ",")+")").
			SetResult(&rows).
			Get("/" + r.table)
		if err != nil {
			return nil, fmt.Errorf("supabase key probe failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("supabase key probe failed: %s: %s", resp.Status(), resp.String())
		}

		for _, row := range rows {
			if row.DedupeKey != "" {
				existing[row.DedupeKey] = true
			}
		}
	}
	return existing, nil
}

// List implements Repository.
func (r *SupabaseRepository) List(ctx context.Context, filter ListFilter) ([]records.Normalized, error) {
	req := r.client.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "scraped_at.desc").
		SetQueryParam("limit", fmt.Sprintf("%d", clampLimit(filter.Limit)))

	if filter.SourceType != "" {
		req.SetQueryParam("source_type", "eq."+filter.SourceType)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		// PostgREST treats % as a wildcard; strip it so the needle stays
		// a literal substring.
		needle := strings.ReplaceAll(search, "%", "")
		fields := []string{"title", "company", "author", "summary", "content"}
		ors := make([]string, len(fields))
		for i, f := range fields {
			ors[i] = f + ".ilike.*" + needle + "*"
		}
		req.SetQueryParam("or", "("+strings.Join(ors, ",")+")")
	}

	var rows []records.Normalized
	resp, err := req.SetResult(&rows).Get("/" + r.table)
	if err != nil {
		return nil, fmt.Errorf("supabase list request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("supabase list failed: %s: %s", resp.Status(), resp.String())
	}
	return rows, nil
}
