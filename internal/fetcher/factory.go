package fetcher

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
)

// Fetch modes a site may request.
const (
	ModeBrowser         = "browser"
	ModeHTTP            = "http"
	ModeBrowserThenHTTP = "browser+http"
)

// Factory builds per-site fetchers sharing one launcher and HTTP client.
type Factory struct {
	cfg      *config.Config
	launcher Launcher
	http     *HTTPFetcher
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewFactory wires the browser launcher, proxy rotation and HTTP client from config.
func NewFactory(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Factory, error) {
	var pm *ProxyManager
	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		pm = NewProxyManager(cfg.Proxy.URLs, cfg.Proxy.Rotation, logger)
	}

	lopts := []LauncherOption{}
	if cfg.Fetch.Stealth {
		lopts = append(lopts, WithStealth(DefaultStealthConfig()))
	}
	hopts := []HTTPOption{WithHTTPRetries(2, cfg.Fetch.BackoffBase)}
	if pm != nil {
		lopts = append(lopts, WithBrowserProxy(pm))
		hopts = append(hopts, WithProxyManager(pm))
	}

	hf, err := NewHTTPFetcher(cfg, logger, hopts...)
	if err != nil {
		return nil, err
	}

	return &Factory{
		cfg:      cfg,
		launcher: NewRodLauncher(&cfg.Fetch, logger, lopts...),
		http:     hf,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// NewFactoryWith is used when the launcher or HTTP fetcher is substituted.
func NewFactoryWith(cfg *config.Config, l Launcher, hf *HTTPFetcher, logger *slog.Logger, metrics *observability.Metrics) *Factory {
	return &Factory{cfg: cfg, launcher: l, http: hf, metrics: metrics, logger: logger}
}

// RetryConfig derives the retry settings from config with the given readiness check.
func (fa *Factory) RetryConfig(ready ReadyFunc) RetryConfig {
	c := fa.cfg.Fetch
	if ready == nil {
		ready = SizeReady(c.ReadyThreshold)
	}
	return RetryConfig{
		MaxRetries:      c.MaxRetries,
		InitialHeadless: c.InitialHeadless,
		ReadyTimeout:    c.ReadyTimeout,
		PollInterval:    c.PollInterval,
		SettleDelay:     c.SettleDelay,
		BackoffBase:     c.BackoffBase,
		Ready:           ready,
	}
}

// For returns a fetcher for a site. A non-auto configured mode overrides the site's preference.
func (fa *Factory) For(siteMode string, ready ReadyFunc) (Fetcher, error) {
	mode := siteMode
	if fa.cfg.Fetch.Mode != "" && fa.cfg.Fetch.Mode != "auto" {
		mode = fa.cfg.Fetch.Mode
	}

	switch mode {
	case ModeHTTP:
		if fa.http == nil {
			return nil, fmt.Errorf("http fetcher not configured")
		}
		return fa.http, nil
	case ModeBrowser, "":
		return NewRetryFetcher(fa.launcher, fa.RetryConfig(ready), fa.logger, WithMetrics(fa.metrics)), nil
	case ModeBrowserThenHTTP:
		browser := NewRetryFetcher(fa.launcher, fa.RetryConfig(ready), fa.logger, WithMetrics(fa.metrics))
		if fa.http == nil {
			return browser, nil
		}
		return NewFallbackFetcher(browser, fa.http, fa.logger), nil
	}
	return nil, fmt.Errorf("unknown fetch mode %q", mode)
}

// Close releases the shared HTTP client.
func (fa *Factory) Close() error {
	if fa.http != nil {
		return fa.http.Close()
	}
	return nil
}
