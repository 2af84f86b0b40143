package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// ErrAuthTimeout means no authenticated session could be established: the
// saved snapshot was invalid and manual login was not completed within the
// wait budget. It is fatal to the harvest attempt and never retried
// automatically.
var ErrAuthTimeout = errors.New("manual login was not completed in time")

const (
	navigationTimeout = 60 * time.Second
	loginPollInterval = 2 * time.Second
	loginPollRounds   = 300
)

// Manual-login wait states.
type loginState int

const (
	stateNoSession loginState = iota
	statePendingManualLogin
	stateAuthenticated
	stateAuthTimeout
)

// sessionSnapshot is the persisted authentication artifact: the cookie
// set captured right after a successful manual login.
type sessionSnapshot struct {
	SavedAt string            `json:"saved_at"`
	Cookies []*network.Cookie `json:"cookies"`
}

// sessionManager acquires an authenticated browsing context, reusing the
// snapshot at path when it still passes the login check and falling back
// to an interactive manual login otherwise.
type sessionManager struct {
	path    string
	baseURL string
}

// browserSession is a live browsing context plus the cancel chain that
// tears down the tab, the browser and the allocator.
type browserSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// Close releases the browser on every exit path; safe to call once.
func (b *browserSession) Close() {
	for i := len(b.cancels) - 1; i >= 0; i-- {
		b.cancels[i]()
	}
}

// authenticatedURL judges authenticity by URL shape: no login or
// checkpoint marker, and a known post-login surface.
func authenticatedURL(url string) bool {
	u := strings.ToLower(url)
	if strings.Contains(u, "login") || strings.Contains(u, "checkpoint") {
		return false
	}
	return strings.Contains(u, "/feed") || strings.Contains(u, "/jobs") || strings.Contains(u, "/in/")
}

// waitLogin drives the manual-login state machine: poll the current URL
// every interval for up to rounds polls, transitioning to Authenticated
// as soon as the URL shows a post-login surface. Exhausting the budget
// yields ErrAuthTimeout.
func waitLogin(ctx context.Context, poll func(context.Context) (string, error), interval time.Duration, rounds int) error {
	state := statePendingManualLogin
	for round := 0; round < rounds && state == statePendingManualLogin; round++ {
		pause(ctx, interval)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		url, err := poll(ctx)
		if err != nil {
			// Transient CDP hiccup; the next poll retries.
			continue
		}
		if authenticatedURL(url) {
			state = stateAuthenticated
		}
	}

	if state != stateAuthenticated {
		return ErrAuthTimeout
	}
	return nil
}

// acquire returns an authenticated browsing context. The snapshot path is
// only written after a successful manual login, overwriting any prior
// snapshot.
func (m *sessionManager) acquire(ctx context.Context) (*browserSession, error) {
	if snapshot, err := m.loadSnapshot(); err == nil && snapshot != nil {
		log.Printf("[SESSION] restoring saved session (headless)")
		sess, err := m.open(ctx, true, snapshot)
		if err == nil {
			ok, checkErr := m.loggedIn(sess.ctx)
			if checkErr == nil && ok {
				return sess, nil
			}
			sess.Close()
			log.Printf("[SESSION] saved session invalid, reopening for manual login")
		}
	}

	sess, err := m.open(ctx, false, nil)
	if err != nil {
		return nil, err
	}

	if err := m.navigate(sess.ctx, m.baseURL+"/login"); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	log.Printf("[LOGIN] no valid session found")
	log.Printf("[LOGIN] complete the login manually in the browser window")
	log.Printf("[LOGIN] the harvest continues on its own once you reach the feed or jobs page")

	poll := func(pctx context.Context) (string, error) {
		var url string
		err := chromedp.Run(sess.ctx, chromedp.Location(&url))
		return url, err
	}
	if err := waitLogin(ctx, poll, loginPollInterval, loginPollRounds); err != nil {
		sess.Close()
		return nil, err
	}

	if err := m.saveSnapshot(sess.ctx); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to persist session snapshot: %w", err)
	}
	log.Printf("[SESSION] session saved to %s", m.path)
	return sess, nil
}

// open launches a browser and creates a tab context, optionally restoring
// a cookie snapshot before any navigation.
func (m *sessionManager) open(ctx context.Context, headless bool, snapshot *sessionSnapshot) (*browserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	sess := &browserSession{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{allocCancel, browserCancel},
	}

	if snapshot != nil && len(snapshot.Cookies) > 0 {
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(actx context.Context) error {
			return storage.SetCookies(cookieParams(snapshot.Cookies)).Do(actx)
		}))
		if err != nil {
			sess.Close()
			return nil, fmt.Errorf("failed to restore session cookies: %w", err)
		}
	}

	return sess, nil
}

// navigate loads a URL with the bounded navigation timeout.
func (m *sessionManager) navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()
	return chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// signInProbeJS counts visible "sign in" affordances; any hit means the
// restored session is not authenticated.
const signInProbeJS = `Array.from(document.querySelectorAll('button, a')).filter(el => {
	const t = (el.textContent || '').trim();
	return t.includes('Sign in') || t.includes('Iniciar sesión');
}).length`

// loggedIn navigates to the jobs landing page and checks both the URL
// shape and the absence of a sign-in affordance.
func (m *sessionManager) loggedIn(ctx context.Context) (bool, error) {
	if err := m.navigate(ctx, m.baseURL+"/jobs/"); err != nil {
		return false, err
	}

	var current string
	var signInCount int
	err := chromedp.Run(ctx,
		chromedp.Location(&current),
		chromedp.Evaluate(signInProbeJS, &signInCount),
	)
	if err != nil {
		return false, err
	}

	lower := strings.ToLower(current)
	if strings.Contains(lower, "login") || strings.Contains(lower, "checkpoint") {
		return false, nil
	}
	return signInCount == 0, nil
}

// loadSnapshot reads the persisted snapshot; (nil, nil) when absent.
func (m *sessionManager) loadSnapshot() (*sessionSnapshot, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	var snapshot sessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse session snapshot: %w", err)
	}
	return &snapshot, nil
}

// saveSnapshot captures the browser's cookie set and overwrites the
// snapshot file.
func (m *sessionManager) saveSnapshot(ctx context.Context) error {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(actx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(actx)
		return err
	}))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sessionSnapshot{
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Cookies: cookies,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o600)
}

// cookieParams converts captured cookies back into settable params.
func cookieParams(cookies []*network.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if c.Expires > 0 {
			expiry := cdp.TimeSinceEpoch(time.Unix(0, int64(c.Expires*float64(time.Second))))
			p.Expires = &expiry
		}
		params = append(params, p)
	}
	return params
}
