package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efterranova/jobson/internal/records"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func jobRaw(id, title string) records.Raw {
	return records.Raw{
		SourceType: records.SourceJobs,
		SourceID:   id,
		Title:      title,
		Company:    "Acme",
		Summary:    "short",
		Content:    "full description for " + id,
		Seniority:  "Mid",
		ApplyType:  "Easy Apply",
		URL:        "https://www.linkedin.com/jobs/view/" + id + "/",
		ScrapedAt:  fmt.Sprintf("2024-05-01T10:00:%02dZ", len(id)%60),
	}
}

func feedRaw(id, content string) records.Raw {
	return records.Raw{
		SourceType: records.SourceFeed,
		SourceID:   id,
		Author:     "Poster",
		Summary:    content,
		Content:    content,
		Seniority:  "Mid",
		ApplyType:  "N/A",
		URL:        "https://www.linkedin.com/feed/update/" + id + "/",
		ScrapedAt:  "2024-05-02T09:00:00Z",
	}
}

func TestSQLiteUpsert_EmptyBatch(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.Upsert(context.Background(), nil, "q", "jobs")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{}, res)
}

func TestSQLiteUpsert_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	batch := []records.Raw{jobRaw("1", "A"), jobRaw("2", "B"), jobRaw("3", "C")}

	first, err := repo.Upsert(context.Background(), batch, "q", "jobs")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Received: 3, Inserted: 3, Updated: 0}, first)

	second, err := repo.Upsert(context.Background(), batch, "q", "jobs")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Received: 3, Inserted: 0, Updated: 3}, second)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSQLiteUpsert_BatchSelfDedup(t *testing.T) {
	repo := newTestRepo(t)
	a := jobRaw("1", "A")
	duplicate := a
	duplicate.Seniority = "Senior" // outside the key tuple: same row, last wins

	res, err := repo.Upsert(context.Background(), []records.Raw{a, duplicate}, "q", "jobs")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Received: 2, Inserted: 1, Updated: 0}, res)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Senior", records.Deref(rows[0].Seniority))
}

func TestSQLiteUpsert_KeySensitivity(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.Upsert(context.Background(), []records.Raw{jobRaw("1", "A")}, "q", "jobs")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Received: 1, Inserted: 1, Updated: 0}, first)

	// Title participates in the dedupe key, so changing it creates a new
	// row instead of updating the old one.
	second, err := repo.Upsert(context.Background(), []records.Raw{jobRaw("1", "B")}, "q", "jobs")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Received: 1, Inserted: 1, Updated: 0}, second)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSQLiteUpsert_ConflictOverwritesAllFields(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upsert(context.Background(), []records.Raw{jobRaw("1", "A")}, "first", "jobs")
	require.NoError(t, err)

	changed := jobRaw("1", "A")
	changed.Seniority = "Senior"
	changed.ApplyType = "External Apply"
	changed.ScrapedAt = "2024-06-01T00:00:00Z"
	_, err = repo.Upsert(context.Background(), []records.Raw{changed}, "second", "mixed")
	require.NoError(t, err)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Senior", records.Deref(rows[0].Seniority))
	assert.Equal(t, "External Apply", records.Deref(rows[0].ApplyType))
	assert.Equal(t, "second", rows[0].Keyword)
	assert.Equal(t, "mixed", rows[0].SearchMode)
	assert.Equal(t, "2024-06-01T00:00:00Z", rows[0].ScrapedAt)
}

func TestSQLiteList_OrderAndClamp(t *testing.T) {
	repo := newTestRepo(t)

	batch := make([]records.Raw, 0, 5)
	for i := range 5 {
		raw := jobRaw(fmt.Sprintf("%d", i), fmt.Sprintf("Job %d", i))
		raw.ScrapedAt = fmt.Sprintf("2024-05-0%dT00:00:00Z", i+1)
		batch = append(batch, raw)
	}
	_, err := repo.Upsert(context.Background(), batch, "q", "jobs")
	require.NoError(t, err)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Newest first.
	assert.Equal(t, "2024-05-05T00:00:00Z", rows[0].ScrapedAt)
	assert.Equal(t, "2024-05-03T00:00:00Z", rows[2].ScrapedAt)

	// limit 0 clamps to 1, oversized limits clamp to the cap.
	rows, err = repo.List(context.Background(), ListFilter{Limit: 0})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = repo.List(context.Background(), ListFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestSQLiteList_SourceTypeFilter(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upsert(context.Background(),
		[]records.Raw{jobRaw("1", "A"), feedRaw("urn:li:activity:1", "a post")}, "q", "mixed")
	require.NoError(t, err)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 10, SourceType: records.SourceFeed})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, records.SourceFeed, rows[0].SourceType)
}

func TestSQLiteList_TextSearchAcrossFields(t *testing.T) {
	repo := newTestRepo(t)

	byTitle := jobRaw("1", "Platform Wizard")
	byCompany := jobRaw("2", "B")
	byCompany.Company = "Wizardry Inc"
	byContent := feedRaw("urn:li:activity:1", "we are hiring a wizard of data")
	unrelated := jobRaw("3", "C")

	_, err := repo.Upsert(context.Background(),
		[]records.Raw{byTitle, byCompany, byContent, unrelated}, "q", "mixed")
	require.NoError(t, err)

	rows, err := repo.List(context.Background(), ListFilter{Limit: 10, Search: "WIZARD"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = repo.List(context.Background(), ListFilter{Limit: 10, Search: "no such text"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
