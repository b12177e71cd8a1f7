package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Session is one live browser tab driven by the retry loop.
type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	// Count returns how many elements match a CSS selector.
	Count(ctx context.Context, selector string) (int, error)
	Close() error
}

// Launcher starts browser sessions in the requested mode.
type Launcher interface {
	Launch(ctx context.Context, headless bool) (Session, error)
}

// ReadyFunc reports whether a page's dynamic content has finished loading.
type ReadyFunc func(ctx context.Context, s Session, html string) (bool, error)

// Mode is the browser visibility mode of a step.
type Mode int

const (
	Headless Mode = iota
	NonHeadless
)

func (m Mode) String() string {
	if m == Headless {
		return "headless"
	}
	return "non-headless"
}

// Phase is where a step currently stands.
type Phase int

const (
	Attempting Phase = iota
	Blocked
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Attempting:
		return "attempting"
	case Blocked:
		return "blocked"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// State is one node of the retry state machine.
type State struct {
	Attempt int
	Mode    Mode
	Phase   Phase
}

// RetryConfig controls RetryFetcher.
type RetryConfig struct {
	MaxRetries      int
	InitialHeadless bool
	// ReadyTimeout bounds readiness polling. When it expires the page is
	// captured anyway and returned if it is not a blocking page, so callers
	// may receive partially rendered content.
	ReadyTimeout time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration
	BackoffBase  time.Duration
	Ready        ReadyFunc
}

// DefaultRetryConfig returns the stock timings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialHeadless: true,
		ReadyTimeout:    30 * time.Second,
		PollInterval:    2 * time.Second,
		SettleDelay:     3 * time.Second,
		BackoffBase:     time.Second,
		Ready:           SizeReady(DefaultReadyThreshold),
	}
}

// DefaultReadyThreshold is the document size that counts as loaded.
const DefaultReadyThreshold = 20000

// RetryFetcher fetches pages through browser sessions, escalating from
// headless to non-headless when blocked and backing off between steps.
type RetryFetcher struct {
	launcher Launcher
	cfg      RetryConfig
	logger   *slog.Logger
	metrics  *observability.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// RetryOption configures the RetryFetcher.
type RetryOption func(*RetryFetcher)

// WithMetrics records step outcomes and escalations.
func WithMetrics(m *observability.Metrics) RetryOption {
	return func(f *RetryFetcher) { f.metrics = m }
}

// WithReady overrides the readiness predicate.
func WithReady(ready ReadyFunc) RetryOption {
	return func(f *RetryFetcher) { f.cfg.Ready = ready }
}

// NewRetryFetcher creates a fetcher over the given launcher.
func NewRetryFetcher(l Launcher, cfg RetryConfig, logger *slog.Logger, opts ...RetryOption) *RetryFetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	def := DefaultRetryConfig()
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}
	if cfg.Ready == nil {
		cfg.Ready = def.Ready
	}

	f := &RetryFetcher{
		launcher: l,
		cfg:      cfg,
		logger:   logger.With("component", "retry_fetcher"),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch walks the (attempt, mode) state machine until a ready,
// non-blocked snapshot is captured or every step is used up.
func (f *RetryFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var (
		last  error
		steps int
	)

	for st, ok := f.first(), true; ok; {
		if steps > 0 {
			if err := f.sleep(ctx, f.backoff(st.Attempt)); err != nil {
				return "", err
			}
		}
		steps++

		f.logger.Debug("fetch step", "url", url, "attempt", st.Attempt+1, "mode", st.Mode)
		res := f.runStep(ctx, url, st.Mode)
		st.Phase = res.phase
		f.metrics.FetchStep(st.Mode.String(), res.phase.String())

		switch res.phase {
		case Ready:
			f.logger.Info("page fetched",
				"url", url,
				"attempt", st.Attempt+1,
				"mode", st.Mode,
				"size", len(res.html),
				"timed_out", res.timedOut,
			)
			return res.html, nil

		case Blocked:
			f.metrics.Blocked(res.indicator)
			if st.Mode == Headless {
				f.metrics.Escalated()
				f.logger.Warn("blocked in headless mode, escalating to non-headless",
					"url", url, "attempt", st.Attempt+1, "indicator", res.indicator)
			} else {
				last = &types.AccessDeniedError{URL: url, Headless: false, Indicator: res.indicator}
				f.logger.Warn("blocked in non-headless mode", "url", url, "attempt", st.Attempt+1, "indicator", res.indicator)
			}

		case Failed:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			last = res.err
			f.logger.Warn("fetch step failed", "url", url, "attempt", st.Attempt+1, "mode", st.Mode, "error", res.err)
		}

		st, ok = f.next(st)
	}

	if last == nil {
		last = types.ErrEmptyResponse
	}
	return "", &types.FetchExhaustedError{URL: url, Attempts: f.cfg.MaxRetries, Last: last}
}

// first is the state the machine starts in.
func (f *RetryFetcher) first() State {
	if f.cfg.InitialHeadless {
		return State{Attempt: 0, Mode: Headless, Phase: Attempting}
	}
	return State{Attempt: 0, Mode: NonHeadless, Phase: Attempting}
}

// next is the transition function. A headless step that ended blocked or
// failed moves to non-headless within the same attempt. A non-headless
// step ends the attempt whatever its outcome.
func (f *RetryFetcher) next(st State) (State, bool) {
	if st.Phase == Ready {
		return st, false
	}
	if st.Mode == Headless {
		return State{Attempt: st.Attempt, Mode: NonHeadless, Phase: Attempting}, true
	}
	if st.Attempt+1 >= f.cfg.MaxRetries {
		return st, false
	}
	n := f.first()
	n.Attempt = st.Attempt + 1
	return n, true
}

// backoff is BackoffBase * 2^attempt.
func (f *RetryFetcher) backoff(attempt int) time.Duration {
	return f.cfg.BackoffBase * time.Duration(1<<attempt)
}

type stepResult struct {
	phase     Phase
	html      string
	indicator string
	timedOut  bool
	err       error
}

// runStep performs one (attempt, mode) step. The session is closed exactly
// once before returning, whatever happens.
func (f *RetryFetcher) runStep(ctx context.Context, url string, mode Mode) stepResult {
	sess, err := f.launcher.Launch(ctx, mode == Headless)
	if err != nil {
		return stepResult{phase: Failed, err: fmt.Errorf("launch %s browser: %w", mode, err)}
	}
	defer f.teardown(sess)

	if err := sess.Navigate(ctx, url); err != nil {
		return stepResult{phase: Failed, err: fmt.Errorf("navigate: %w", err)}
	}

	res := f.poll(ctx, sess, url)
	if res.phase != Ready {
		return res
	}

	if f.cfg.SettleDelay > 0 {
		if err := f.sleep(ctx, f.cfg.SettleDelay); err != nil {
			return stepResult{phase: Failed, err: err}
		}
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return stepResult{phase: Failed, err: fmt.Errorf("capture html: %w", err)}
	}
	if ind := DetectBlocked(html); ind != "" {
		f.logCaptcha(url, html)
		return stepResult{phase: Blocked, indicator: ind}
	}
	return stepResult{phase: Ready, html: html, timedOut: res.timedOut}
}

// poll checks for blocking and readiness every PollInterval until
// ReadyTimeout. Expiry yields Ready with timedOut set.
func (f *RetryFetcher) poll(ctx context.Context, sess Session, url string) stepResult {
	deadline := f.now().Add(f.cfg.ReadyTimeout)
	for {
		html, err := sess.HTML(ctx)
		if err != nil {
			return stepResult{phase: Failed, err: fmt.Errorf("read document: %w", err)}
		}
		if ind := DetectBlocked(html); ind != "" {
			f.logCaptcha(url, html)
			return stepResult{phase: Blocked, indicator: ind}
		}

		ready, err := f.cfg.Ready(ctx, sess, html)
		if err != nil {
			f.logger.Debug("readiness check error", "url", url, "error", err)
		}
		if ready {
			return stepResult{phase: Ready}
		}

		if !f.now().Before(deadline) {
			f.logger.Warn("content not ready before timeout, proceeding", "url", url, "timeout", f.cfg.ReadyTimeout, "size", len(html))
			return stepResult{phase: Ready, timedOut: true}
		}
		if err := f.sleep(ctx, f.cfg.PollInterval); err != nil {
			return stepResult{phase: Failed, err: err}
		}
	}
}

func (f *RetryFetcher) teardown(sess Session) {
	if err := sess.Close(); err != nil {
		f.logger.Debug("session teardown error ignored", "error", err)
	}
}

func (f *RetryFetcher) logCaptcha(url, html string) {
	if kind, key := DetectCAPTCHA(html); kind != "" {
		f.logger.Debug("captcha challenge detected", "url", url, "type", kind, "site_key", key)
	}
}

// Close is a no-op; sessions never outlive a step.
func (f *RetryFetcher) Close() error { return nil }

// Type returns the fetcher type identifier.
func (f *RetryFetcher) Type() string { return "browser" }

// SizeReady treats a document larger than n bytes as loaded.
func SizeReady(n int) ReadyFunc {
	return func(_ context.Context, _ Session, html string) (bool, error) {
		return len(html) > n, nil
	}
}

// SelectorReady is satisfied once at least min elements match any selector.
func SelectorReady(min int, selectors ...string) ReadyFunc {
	return func(ctx context.Context, s Session, _ string) (bool, error) {
		var errs []error
		for _, sel := range selectors {
			n, err := s.Count(ctx, sel)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if n >= min {
				return true, nil
			}
		}
		return false, errors.Join(errs...)
	}
}

// AnyReady is satisfied when any of the predicates is.
func AnyReady(preds ...ReadyFunc) ReadyFunc {
	return func(ctx context.Context, s Session, html string) (bool, error) {
		var errs []error
		for _, p := range preds {
			ok, err := p(ctx, s, html)
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				return true, nil
			}
		}
		return false, errors.Join(errs...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
