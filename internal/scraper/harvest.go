package scraper

import (
	"context"
	"time"

	"github.com/efterranova/jobson/internal/records"
)

// stallLimit is how many consecutive no-progress rounds the harvest loop
// tolerates before giving up on the list. Infinite-scroll surfaces have
// no natural end, so boundedness wins over completeness.
const stallLimit = 8

// listSurface abstracts the scrolling search-results list the harvest
// loop walks over: one implementation drives the live page through the
// browser, tests substitute fixtures.
type listSurface interface {
	// cards returns the outer HTML of every currently visible list item
	// along with the selector that matched them. An empty slice means the
	// list has not rendered yet (or stopped rendering).
	cards(ctx context.Context) (selector string, items []string, err error)

	// openDetail clicks the index-th item matched by selector and reads
	// the detail pane's text and HTML once it settles.
	openDetail(ctx context.Context, selector string, index int) (text, html string, err error)

	// scroll advances the list container (or the page) by a fixed delta
	// so lazily rendered items load.
	scroll(ctx context.Context) error
}

// cardHarvester supplies the per-card behavior the loop is generic over.
// identify derives the item's identity from its HTML ("" = skip); build
// extracts the full record and may drive the surface (detail clicks).
type cardHarvester struct {
	identify func(html string) string
	build    func(ctx context.Context, surface listSurface, selector string, index int, html, id string) (records.Raw, error)
}

// harvest pages through the surface until target records are collected or
// the list stalls. Items are processed in presentation order, rounds are
// strictly sequential, and a failing item is skipped without aborting the
// round. The result length is at most target; it may be shorter when the
// list runs dry.
func harvest(ctx context.Context, surface listSurface, h cardHarvester, target int, roundDelay time.Duration) []records.Raw {
	results := make([]records.Raw, 0, target)
	seen := make(map[string]bool)

	stallRounds := 0
	for len(results) < target && stallRounds <= stallLimit {
		if ctx.Err() != nil {
			break
		}

		selector, items, err := surface.cards(ctx)
		if err != nil || len(items) == 0 {
			stallRounds++
			_ = surface.scroll(ctx)
			pause(ctx, roundDelay)
			continue
		}

		before := len(results)
		for i, html := range items {
			if len(results) >= target {
				break
			}

			id := h.identify(html)
			if id == "" || seen[id] {
				continue
			}
			// Mark before building: a card that fails extraction is not
			// retried on later rounds.
			seen[id] = true

			rec, err := h.build(ctx, surface, selector, i, html, id)
			if err != nil {
				continue
			}
			results = append(results, rec)
		}

		if len(results) == before {
			stallRounds++
		} else {
			stallRounds = 0
		}

		_ = surface.scroll(ctx)
		pause(ctx, roundDelay)
	}

	return results
}

// pause sleeps for the inter-round delay, returning early on context
// cancellation.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
