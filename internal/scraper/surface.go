package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Settle delays for the detail pane that opens on a card click.
const (
	detailSettle  = 1400 * time.Millisecond
	detailTimeout = 4 * time.Second
)

// jobsListScrollJS scrolls the results list container, falling back to
// the page when the container is not present.
const jobsListScrollJS = `(() => {
	const list = document.querySelector('.jobs-search-results-list') ||
	             document.querySelector('.jobs-search-results-list__list');
	if (list) {
		list.scrollBy(0, 1200);
	} else {
		window.scrollBy(0, 1200);
	}
})()`

// pageSurface drives the live search-results page through the browser.
// cardSelectors is the ordered fallback list of selector sets; the first
// set matching any element wins for the round. p.ctx is the tab context
// the browser actions run against; the ctx argument carries the caller's
// cancellation.
type pageSurface struct {
	ctx           context.Context
	cardSelectors []string
	scrollJS      string
	detailPane    string
}

func (p *pageSurface) cards(ctx context.Context) (string, []string, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	for _, selector := range p.cardSelectors {
		js := fmt.Sprintf(
			`Array.from(document.querySelectorAll(%q)).map(el => el.outerHTML)`,
			selector,
		)
		var items []string
		if err := chromedp.Run(p.ctx, chromedp.Evaluate(js, &items)); err != nil {
			return "", nil, err
		}
		if len(items) > 0 {
			return selector, items, nil
		}
	}
	return "", nil, nil
}

func (p *pageSurface) openDetail(ctx context.Context, selector string, index int) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if p.detailPane == "" {
		return "", "", nil
	}

	clickJS := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) { return false; }
		el.click();
		return true;
	})()`, selector, index)

	runCtx, cancel := context.WithTimeout(p.ctx, detailTimeout)
	defer cancel()

	var clicked bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(clickJS, &clicked)); err != nil {
		return "", "", err
	}
	if !clicked {
		return "", "", fmt.Errorf("card %d no longer present", index)
	}
	pause(runCtx, detailSettle)

	readJS := fmt.Sprintf(`(() => {
		const pane = document.querySelector(%q);
		if (!pane) { return ["", ""]; }
		return [pane.innerText, pane.innerHTML];
	})()`, p.detailPane)

	var parts []string
	readCtx, cancelRead := context.WithTimeout(p.ctx, detailTimeout)
	defer cancelRead()
	if err := chromedp.Run(readCtx, chromedp.Evaluate(readJS, &parts)); err != nil {
		return "", "", err
	}
	if len(parts) != 2 {
		return "", "", nil
	}
	return parts[0], parts[1], nil
}

func (p *pageSurface) scroll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.ctx, chromedp.Evaluate(p.scrollJS, nil))
}

func newJobsSurface(ctx context.Context) *pageSurface {
	return &pageSurface{
		ctx:           ctx,
		cardSelectors: jobCardSelectors,
		scrollJS:      jobsListScrollJS,
		detailPane:    detailPaneSelector,
	}
}

func newFeedSurface(ctx context.Context) *pageSurface {
	return &pageSurface{
		ctx:           ctx,
		cardSelectors: feedCardSelectors,
		scrollJS:      "window.scrollBy(0, 1100)",
	}
}
