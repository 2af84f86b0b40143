// Package scraper harvests job postings and feed posts from LinkedIn's
// authenticated UI: it manages the browsing session, pages through the
// dynamic result lists with a stall-aware loop and extracts one raw
// record per unique list item.
package scraper

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/efterranova/jobson/internal/records"
)

const defaultBaseURL = "https://www.linkedin.com"

// Delays tuned against LinkedIn's render lag. The round delay also
// throttles how fast the loop hammers the page.
const (
	searchSettleDelay = 4 * time.Second
	roundDelay        = 2 * time.Second
)

// Scraper is the harvesting facade. A single Scraper drives at most one
// browsing session at a time; callers serialize harvests.
type Scraper struct {
	sessions *sessionManager
	baseURL  string
}

// New builds a Scraper persisting its session snapshot at sessionPath.
func New(sessionPath string) *Scraper {
	return &Scraper{
		sessions: &sessionManager{path: sessionPath, baseURL: defaultBaseURL},
		baseURL:  defaultBaseURL,
	}
}

// jobsRecencyParam maps a max-age in days onto LinkedIn's three discrete
// time buckets; 0 means no filter.
func jobsRecencyParam(days int) string {
	switch {
	case days <= 0:
		return ""
	case days <= 1:
		return "&f_TPR=r86400"
	case days <= 7:
		return "&f_TPR=r604800"
	default:
		return "&f_TPR=r2592000"
	}
}

// feedRecencyParam maps a max-age in days onto the content search's date
// filter. The content surface has no month bucket.
func feedRecencyParam(days int) string {
	switch {
	case days <= 0:
		return ""
	case days <= 1:
		return `&datePublished=%22past-24h%22`
	case days <= 7:
		return `&datePublished=%22past-week%22`
	default:
		return ""
	}
}

// ScrapeJobs harvests up to limit job postings matching keywords, at most
// days old when days > 0.
func (s *Scraper) ScrapeJobs(ctx context.Context, keywords string, limit, days int) ([]records.Raw, error) {
	sess, err := s.sessions.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	searchURL := s.baseURL + "/jobs/search/?keywords=" + url.QueryEscape(keywords) + jobsRecencyParam(days)
	log.Printf("[HARVEST] searching jobs: %s", searchURL)
	if err := s.sessions.navigate(sess.ctx, searchURL); err != nil {
		return nil, err
	}
	pause(sess.ctx, searchSettleDelay)

	surface := newJobsSurface(sess.ctx)
	harvester := cardHarvester{
		identify: jobCardIdentity(s.baseURL),
		build:    s.buildJob,
	}
	return harvest(ctx, surface, harvester, limit, roundDelay), nil
}

// ScrapePosts harvests up to limit feed posts matching keywords, newest
// first.
func (s *Scraper) ScrapePosts(ctx context.Context, keywords string, limit, days int) ([]records.Raw, error) {
	sess, err := s.sessions.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	searchURL := s.baseURL + "/search/results/content/?keywords=" + url.QueryEscape(keywords) +
		feedRecencyParam(days) + `&sortBy=%22date_posted%22`
	log.Printf("[HARVEST] searching feed posts: %s", searchURL)
	if err := s.sessions.navigate(sess.ctx, searchURL); err != nil {
		return nil, err
	}
	pause(sess.ctx, searchSettleDelay)

	surface := newFeedSurface(sess.ctx)
	harvester := cardHarvester{
		identify: feedCardIdentity,
		build:    s.buildPost(sess.ctx),
	}
	return harvest(ctx, surface, harvester, limit, roundDelay), nil
}

// ScrapeMixed runs a jobs harvest then a feed harvest, splitting the
// limit in half; an odd limit gives the extra unit to the feed side.
func (s *Scraper) ScrapeMixed(ctx context.Context, keywords string, limit, days int) ([]records.Raw, error) {
	jobsLimit := max(1, limit/2)
	feedLimit := max(1, limit-jobsLimit)

	jobs, err := s.ScrapeJobs(ctx, keywords, jobsLimit, days)
	if err != nil {
		return nil, err
	}
	feed, err := s.ScrapePosts(ctx, keywords, feedLimit, days)
	if err != nil {
		return nil, err
	}
	return append(jobs, feed...), nil
}

// jobCardIdentity derives the per-item identity used for round dedup.
func jobCardIdentity(baseURL string) func(html string) string {
	return func(html string) string {
		card, err := parseCard(html)
		if err != nil {
			return ""
		}
		return jobIdentity(card, jobLink(card, baseURL))
	}
}

func feedCardIdentity(html string) string {
	card, err := parseCard(html)
	if err != nil {
		return ""
	}
	return feedIdentity(card)
}

// buildJob extracts a job record, clicking the card to read its detail
// pane. A click or read failure degrades to empty detail fields rather
// than failing the card.
func (s *Scraper) buildJob(ctx context.Context, surface listSurface, selector string, index int, html, id string) (records.Raw, error) {
	card, err := parseCard(html)
	if err != nil {
		return records.Raw{}, err
	}

	detailText, detailHTML, err := surface.openDetail(ctx, selector, index)
	if err != nil {
		detailText, detailHTML = "", ""
	}

	return buildJobRecord(card, id, jobLink(card, s.baseURL), s.baseURL, detailText, detailHTML), nil
}

// buildPost extracts a feed record; the page URL backs the permalink when
// the card offers none.
func (s *Scraper) buildPost(pageCtx context.Context) func(ctx context.Context, surface listSurface, selector string, index int, html, id string) (records.Raw, error) {
	return func(ctx context.Context, surface listSurface, selector string, index int, html, id string) (records.Raw, error) {
		card, err := parseCard(html)
		if err != nil {
			return records.Raw{}, err
		}
		return buildFeedRecord(card, id, s.baseURL, s.currentURL(pageCtx)), nil
	}
}

// currentURL reads the page's location, best effort.
func (s *Scraper) currentURL(ctx context.Context) string {
	var current string
	if err := chromedp.Run(ctx, chromedp.Location(&current)); err != nil {
		return ""
	}
	return current
}
