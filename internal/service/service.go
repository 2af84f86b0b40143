// Package service orchestrates a harvest request end to end: it fans the
// request out to the scraper, persists the merged batch, exports the CSV
// and assembles the run summary.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/efterranova/jobson/internal/export"
	"github.com/efterranova/jobson/internal/records"
	"github.com/efterranova/jobson/internal/storage"
)

// Search modes.
const (
	ModeJobs  = "jobs"
	ModeFeed  = "feed"
	ModeMixed = "mixed"
)

// Scraper is the harvesting collaborator. ScrapeMixed runs jobs then
// feed sequentially; implementations must never run the two concurrently.
type Scraper interface {
	ScrapeJobs(ctx context.Context, keywords string, limit, days int) ([]records.Raw, error)
	ScrapePosts(ctx context.Context, keywords string, limit, days int) ([]records.Raw, error)
	ScrapeMixed(ctx context.Context, keywords string, limit, days int) ([]records.Raw, error)
}

// Request is a validated harvest request. Days nil or <= 0 means no
// recency filter.
type Request struct {
	Mode     string
	Keywords string
	Limit    int
	Days     *int
}

// Summary is the harvest run report returned to callers.
type Summary struct {
	Mode           string               `json:"mode"`
	Keywords       string               `json:"keywords"`
	Limit          int                  `json:"limit"`
	Days           *int                 `json:"days"`
	ScrapedTotal   int                  `json:"scraped_total"`
	ScrapedJobs    int                  `json:"scraped_jobs"`
	ScrapedFeed    int                  `json:"scraped_feed"`
	Persisted      storage.UpsertResult `json:"persisted"`
	CSVPath        *string              `json:"csv_path"`
	StorageBackend string               `json:"storage_backend"`
}

// Service wires the scraper, the repository and the export directory.
type Service struct {
	scraper Scraper
	repo    storage.Repository
	dataDir string
}

// New builds the orchestrator.
func New(scraper Scraper, repo storage.Repository, dataDir string) *Service {
	return &Service{scraper: scraper, repo: repo, dataDir: dataDir}
}

// Validate rejects malformed requests before any browsing or backend I/O.
func (r *Request) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(r.Mode))
	if mode != ModeJobs && mode != ModeFeed && mode != ModeMixed {
		return fmt.Errorf("invalid mode %q: use jobs, feed or mixed", r.Mode)
	}
	if strings.TrimSpace(r.Keywords) == "" {
		return fmt.Errorf("keywords must not be empty")
	}
	if r.Limit < 1 {
		return fmt.Errorf("limit must be a positive integer, got %d", r.Limit)
	}
	return nil
}

// RunSearch executes one harvest request: scrape, persist, export,
// summarize. The caller serializes concurrent runs.
func (s *Service) RunSearch(ctx context.Context, req Request) (*Summary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))

	days := 0
	if req.Days != nil && *req.Days > 0 {
		days = *req.Days
	}

	runID := uuid.NewString()[:8]
	log.Printf("[SEARCH %s] mode=%s keywords=%q limit=%d days=%d", runID, mode, req.Keywords, req.Limit, days)

	var batch []records.Raw
	var err error
	switch mode {
	case ModeJobs:
		batch, err = s.scraper.ScrapeJobs(ctx, req.Keywords, req.Limit, days)
	case ModeFeed:
		batch, err = s.scraper.ScrapePosts(ctx, req.Keywords, req.Limit, days)
	default:
		batch, err = s.scraper.ScrapeMixed(ctx, req.Keywords, req.Limit, days)
	}
	if err != nil {
		return nil, err
	}

	persisted, err := s.repo.Upsert(ctx, batch, req.Keywords, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to persist harvest: %w", err)
	}

	csvPath, err := export.WriteBatch(s.dataDir, mode, req.Keywords, batch)
	if err != nil {
		// The batch is already persisted; a failed export degrades to a
		// missing csv_path rather than failing the run.
		log.Printf("[SEARCH %s] csv export failed: %v", runID, err)
		csvPath = ""
	}

	summary := &Summary{
		Mode:           mode,
		Keywords:       req.Keywords,
		Limit:          req.Limit,
		Days:           req.Days,
		ScrapedTotal:   len(batch),
		Persisted:      persisted,
		StorageBackend: s.repo.BackendName(),
	}
	if csvPath != "" {
		summary.CSVPath = &csvPath
	}
	for _, rec := range batch {
		switch rec.SourceType {
		case records.SourceJobs:
			summary.ScrapedJobs++
		case records.SourceFeed:
			summary.ScrapedFeed++
		}
	}

	log.Printf("[SEARCH %s] done: total=%d jobs=%d feed=%d inserted=%d updated=%d backend=%s",
		runID, summary.ScrapedTotal, summary.ScrapedJobs, summary.ScrapedFeed,
		persisted.Inserted, persisted.Updated, summary.StorageBackend)
	return summary, nil
}
