package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/NewsHarvest/internal/config"
)

// RodLauncher starts a fresh Chromium process per session via Rod.
type RodLauncher struct {
	chromePath string
	userAgent  string
	windowSize string
	navTimeout time.Duration
	stealthCfg *StealthConfig
	proxyMgr   *ProxyManager
	logger     *slog.Logger
}

// LauncherOption configures the RodLauncher.
type LauncherOption func(*RodLauncher)

// WithStealth injects fingerprint overrides into every page.
func WithStealth(cfg *StealthConfig) LauncherOption {
	return func(rl *RodLauncher) { rl.stealthCfg = cfg }
}

// WithBrowserProxy routes each session through the next proxy.
func WithBrowserProxy(pm *ProxyManager) LauncherOption {
	return func(rl *RodLauncher) { rl.proxyMgr = pm }
}

// NewRodLauncher creates a launcher from the fetch configuration.
func NewRodLauncher(cfg *config.FetchConfig, logger *slog.Logger, opts ...LauncherOption) *RodLauncher {
	rl := &RodLauncher{
		chromePath: cfg.ChromePath,
		userAgent:  cfg.UserAgent,
		windowSize: cfg.WindowSize,
		navTimeout: cfg.NavTimeout,
		logger:     logger.With("component", "rod_launcher"),
	}
	if rl.userAgent == "" {
		rl.userAgent = config.DefaultUserAgent
	}
	if rl.navTimeout <= 0 {
		rl.navTimeout = time.Minute
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// launcherFor assembles the Chromium command line for one mode.
func (rl *RodLauncher) launcherFor(headless bool) *launcher.Launcher {
	l := launcher.New().
		Headless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-http2").
		Set("disable-quic").
		Set("disable-web-security").
		Set("ignore-certificate-errors").
		Set("ignore-ssl-errors").
		Set("allow-running-insecure-content").
		Set("user-agent", rl.userAgent)

	if headless {
		l = l.Set(flags.Headless, "new")
	} else {
		l = l.Set("start-maximized")
		if rl.windowSize != "" {
			l = l.Set("window-size", rl.windowSize)
		}
	}
	if rl.chromePath != "" {
		l = l.Bin(rl.chromePath)
	}
	if rl.proxyMgr != nil {
		if proxyURL := rl.proxyMgr.Next(); proxyURL != nil {
			l = l.Proxy(proxyURL.String())
		}
	}
	return l
}

// Launch starts Chromium, connects, and opens one page.
func (rl *RodLauncher) Launch(ctx context.Context, headless bool) (Session, error) {
	l := rl.launcherFor(headless).Context(ctx)

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	s := &rodSession{browser: browser, launcher: l, navTimeout: rl.navTimeout}

	var page *rod.Page
	if rl.stealthCfg != nil {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rl.userAgent}); err != nil {
		rl.logger.Warn("failed to set user agent", "error", err)
	}
	if rl.stealthCfg != nil {
		if _, err := page.EvalOnNewDocument(rl.stealthCfg.StealthJS()); err != nil {
			rl.logger.Warn("failed to inject stealth script", "error", err)
		}
	}

	rl.logger.Debug("browser session ready", "headless", headless)
	return s, nil
}

// rodSession owns one Chromium process and its single page.
type rodSession struct {
	browser    *rod.Browser
	page       *rod.Page
	launcher   *launcher.Launcher
	navTimeout time.Duration
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.navTimeout)
	defer p.CancelTimeout()
	return p.Navigate(url)
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *rodSession) Count(ctx context.Context, selector string) (int, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// Close tears down the page, the browser connection and the process.
func (s *rodSession) Close() error {
	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}
