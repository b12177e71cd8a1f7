package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

const (
	blockedHTML    = "<html><body><h1>Checking your browser before accessing</h1></body></html>"
	escalationLine = "blocked in headless mode, escalating to non-headless"
)

var readyHTML = "<html><body><div>" + strings.Repeat("a", 20001) + "</div></body></html>"

type fakeSession struct {
	pages   []string
	idx     int
	navErr  error
	htmlErr error
	counts  map[string]int
	closed  int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error { return s.navErr }

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	if s.htmlErr != nil {
		return "", s.htmlErr
	}
	i := s.idx
	if i >= len(s.pages) {
		i = len(s.pages) - 1
	}
	s.idx++
	return s.pages[i], nil
}

func (s *fakeSession) Count(ctx context.Context, selector string) (int, error) {
	return s.counts[selector], nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return errors.New("chrome already gone")
}

type fakeLauncher struct {
	mu         sync.Mutex
	sessions   []*fakeSession
	launchErrs []error
	modes      []bool
}

func (l *fakeLauncher) Launch(ctx context.Context, headless bool) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.modes)
	l.modes = append(l.modes, headless)
	if n < len(l.launchErrs) && l.launchErrs[n] != nil {
		return nil, l.launchErrs[n]
	}
	if n >= len(l.sessions) {
		return nil, errors.New("no more scripted sessions")
	}
	return l.sessions[n], nil
}

func page(html ...string) *fakeSession { return &fakeSession{pages: html} }

// fakeClock advances virtual time on every sleep.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestFetcher(l Launcher, cfg RetryConfig) (*RetryFetcher, *fakeClock, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := NewRetryFetcher(l, cfg, logger)
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.now = clock.now
	f.sleep = clock.sleep
	return f, clock, &buf
}

func TestRetryEscalatesAfterHeadlessBlock(t *testing.T) {
	l := &fakeLauncher{sessions: []*fakeSession{page(blockedHTML), page(readyHTML)}}
	f, _, logs := newTestFetcher(l, DefaultRetryConfig())

	html, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, readyHTML, html)
	assert.Equal(t, []bool{true, false}, l.modes)
	assert.Equal(t, 1, strings.Count(logs.String(), escalationLine))
}

func TestRetryEscalatesForEveryHeadlessBlock(t *testing.T) {
	for attempts := 1; attempts <= 4; attempts++ {
		var sessions []*fakeSession
		for i := 0; i < attempts; i++ {
			sessions = append(sessions, page(blockedHTML), page(blockedHTML))
		}
		l := &fakeLauncher{sessions: sessions}
		cfg := DefaultRetryConfig()
		cfg.MaxRetries = attempts
		f, _, logs := newTestFetcher(l, cfg)

		_, err := f.Fetch(context.Background(), "https://example.com")
		require.Error(t, err)
		require.Len(t, l.modes, 2*attempts)
		for i, headless := range l.modes {
			assert.Equal(t, i%2 == 0, headless, "step %d", i)
		}
		assert.Equal(t, attempts, strings.Count(logs.String(), escalationLine))
	}
}

func TestRetryAccessDeniedWhenNonHeadlessBlocked(t *testing.T) {
	l := &fakeLauncher{sessions: []*fakeSession{page(blockedHTML), page(blockedHTML), page(readyHTML)}}
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = 1
	f, _, _ := newTestFetcher(l, cfg)

	_, err := f.Fetch(context.Background(), "https://example.com/news")
	require.Error(t, err)

	var denied *types.AccessDeniedError
	require.True(t, errors.As(err, &denied))
	assert.False(t, denied.Headless)
	assert.Equal(t, "checking your browser", denied.Indicator)
	assert.True(t, errors.Is(err, types.ErrAccessDenied))
	assert.True(t, errors.Is(err, types.ErrFetchExhausted))

	// no launch beyond the blocked non-headless step
	assert.Len(t, l.modes, 2)
	assert.Equal(t, 0, l.sessions[2].closed)
}

func TestRetryTimeoutReturnsBestEffort(t *testing.T) {
	small := "<html><body><p>still loading</p></body></html>"
	sess := page(small)
	l := &fakeLauncher{sessions: []*fakeSession{sess}}
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = 1
	f, clock, logs := newTestFetcher(l, cfg)

	html, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, small, html)
	assert.Equal(t, 1, sess.closed)
	assert.Contains(t, logs.String(), "content not ready before timeout")

	var polled time.Duration
	for _, d := range clock.sleeps {
		if d == cfg.PollInterval {
			polled += d
		}
	}
	assert.Equal(t, cfg.ReadyTimeout, polled)
}

func TestRetryConcreteScenario(t *testing.T) {
	ready := "<html><body><div>" + strings.Repeat("x", 20001) + "</div></body></html>"
	l := &fakeLauncher{sessions: []*fakeSession{page(blockedHTML), page(blockedHTML), page(ready)}}
	f, clock, logs := newTestFetcher(l, DefaultRetryConfig())

	html, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, ready, html)

	teardowns := 0
	for _, s := range l.sessions {
		teardowns += s.closed
	}
	assert.Equal(t, 3, teardowns)
	assert.Equal(t, []bool{true, false, true}, l.modes)
	assert.Equal(t, 1, strings.Count(logs.String(), escalationLine))

	// 1s before the non-headless step, 2s before attempt 2, then settle
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, clock.sleeps)
}

func TestRetryBackoffIsExponential(t *testing.T) {
	navErr := errors.New("net::ERR_CONNECTION_RESET")
	var sessions []*fakeSession
	for i := 0; i < 3; i++ {
		sessions = append(sessions, &fakeSession{pages: []string{""}, navErr: navErr})
	}
	l := &fakeLauncher{sessions: sessions}
	cfg := DefaultRetryConfig()
	cfg.InitialHeadless = false
	f, clock, _ := newTestFetcher(l, cfg)

	_, err := f.Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Equal(t, []bool{false, false, false}, l.modes)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.sleeps)

	var exhausted *types.FetchExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, navErr)
	assert.False(t, errors.Is(err, types.ErrAccessDenied))
}

func TestRetryTeardownOncePerStep(t *testing.T) {
	readErr := errors.New("target closed")
	sessions := []*fakeSession{
		{pages: []string{""}, navErr: errors.New("timeout")},
		{pages: []string{""}, htmlErr: readErr},
		page(blockedHTML),
		page(blockedHTML),
		page(readyHTML),
	}
	l := &fakeLauncher{sessions: sessions}
	f, _, _ := newTestFetcher(l, DefaultRetryConfig())

	html, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, readyHTML, html)
	for i, s := range sessions {
		assert.Equal(t, 1, s.closed, "session %d", i)
	}
}

func TestRetryLaunchErrorMovesOn(t *testing.T) {
	l := &fakeLauncher{
		sessions:   []*fakeSession{nil, page(readyHTML)},
		launchErrs: []error{errors.New("chrome not found")},
	}
	f, _, _ := newTestFetcher(l, DefaultRetryConfig())

	html, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, readyHTML, html)
	assert.Equal(t, []bool{true, false}, l.modes)
}

func TestRetryRechecksAfterSettle(t *testing.T) {
	late := readyHTML + `<div class="cf-turnstile" data-sitekey="0x4AAA">Please verify you are human</div>`
	first := page(readyHTML, late)
	l := &fakeLauncher{sessions: []*fakeSession{first, page(readyHTML)}}
	f, _, logs := newTestFetcher(l, DefaultRetryConfig())

	html, err := f.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, readyHTML, html)
	assert.Equal(t, []bool{true, false}, l.modes)
	assert.Contains(t, logs.String(), "turnstile")
}

func TestRetryCustomReadyPredicate(t *testing.T) {
	sess := &fakeSession{
		pages:  []string{"<html><ul class=\"wd_item_list\"><li>one</li></ul></html>"},
		counts: map[string]int{"li.wd_item": 12},
	}
	l := &fakeLauncher{sessions: []*fakeSession{sess}}
	cfg := DefaultRetryConfig()
	cfg.Ready = SelectorReady(1, "ul.missing", "li.wd_item")
	f, clock, _ := newTestFetcher(l, cfg)

	_, err := f.Fetch(context.Background(), "https://newsroom.ibm.com/campaign")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{cfg.SettleDelay}, clock.sleeps)
}

func TestRetryContextCanceled(t *testing.T) {
	l := &fakeLauncher{sessions: []*fakeSession{page(blockedHTML), page(readyHTML)}}
	f, _, _ := newTestFetcher(l, DefaultRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "https://example.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, l.modes, 1)
}

func TestDetectBlockedVocabulary(t *testing.T) {
	cases := []struct {
		html    string
		blocked bool
	}{
		{"<p>CHECKING YOUR BROWSER</p>", true},
		{"<title>403 Forbidden</title>", true},
		{"Reference #18.a1b2c3", true},
		{"<a href=\"https://errors.edgesuite.net/\">details</a>", true},
		{"Please Verify You Are Human", true},
		{readyHTML, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.blocked, IsBlocked(tc.html), tc.html[:min(len(tc.html), 40)])
	}

	ready, err := SizeReady(DefaultReadyThreshold)(context.Background(), nil, readyHTML)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestDetectCAPTCHA(t *testing.T) {
	kind, key := DetectCAPTCHA(`<div class="g-recaptcha" data-sitekey="abc123"></div>`)
	assert.Equal(t, CAPTCHAReCaptchaV2, kind)
	assert.Equal(t, "abc123", key)

	kind, _ = DetectCAPTCHA(`<div class="h-captcha" data-sitekey="k"></div>`)
	assert.Equal(t, CAPTCHAHCaptcha, kind)

	kind, _ = DetectCAPTCHA("<p>nothing here</p>")
	assert.Empty(t, kind)
}

func TestBlockIndicatorsIsCopy(t *testing.T) {
	ind := BlockIndicators()
	ind[0] = "mutated"
	assert.Equal(t, "access denied", BlockIndicators()[0])
}
