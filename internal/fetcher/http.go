package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// HTTPFetcher fetches pages with a plain HTTP client and browser-like headers.
type HTTPFetcher struct {
	client      *http.Client
	maxBodySize int64
	userAgent   string
	retries     int
	backoff     time.Duration
	proxyMgr    *ProxyManager
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// HTTPOption configures the HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPRetries retries retryable failures n extra times.
func WithHTTPRetries(n int, backoff time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.retries = n
		f.backoff = backoff
	}
}

// WithProxyManager routes requests through rotating proxies.
func WithProxyManager(pm *ProxyManager) HTTPOption {
	return func(f *HTTPFetcher) { f.proxyMgr = pm }
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger, opts ...HTTPOption) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	f := &HTTPFetcher{
		maxBodySize: cfg.HTTP.MaxBodySize,
		userAgent:   cfg.Fetch.UserAgent,
		logger:      logger.With("component", "http_fetcher"),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}

	transport := NewTLSTransport(cfg.HTTP.Headers, cfg.HTTP.TLSInsecure, cfg.HTTP.MaxIdleConns, cfg.HTTP.IdleConnTimeout)
	if f.proxyMgr != nil {
		transport.inner.Proxy = f.proxyMgr.ProxyFunc()
	}

	f.client = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.HTTP.Timeout,
	}
	if f.userAgent == "" {
		f.userAgent = config.DefaultUserAgent
	}
	return f, nil
}

// Fetch GETs the URL and returns the decoded body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.Retryable || attempt == f.retries {
			break
		}
		wait := RandomDelay(f.backoff * time.Duration(1<<attempt))
		if fe.RetryAfter > 0 {
			wait = fe.RetryAfter
		}
		f.logger.Warn("retrying http fetch", "url", url, "attempt", attempt+1, "wait", wait, "error", err)
		if err := f.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &types.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &types.FetchError{URL: url, Err: err, Retryable: isRetryableError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return "", &types.AccessDeniedError{URL: url, Indicator: "403 forbidden"}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &types.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("rate limited (retry after %s)", retryAfter),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	case resp.StatusCode >= 500:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &types.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			Retryable:  true,
		}
	case resp.StatusCode >= 400:
		return "", &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	reader, err := decompressReader(resp, resp.Body)
	if err != nil {
		return "", &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	reader, err = charset.NewReader(reader, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode charset: %w", err)}
	}
	// The cap applies to the decoded document.
	if f.maxBodySize > 0 {
		reader = io.LimitReader(reader, f.maxBodySize)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: err, Retryable: true}
	}
	if len(body) == 0 {
		return "", &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: types.ErrEmptyResponse}
	}

	f.logger.Debug("fetch complete",
		"url", url,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return string(body), nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// decompressReader wraps a reader with the decoder for Content-Encoding.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) || errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses integer seconds or an HTTP date, capped at 2 minutes.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}

// RandomDelay returns a random delay around the base duration (±25%).
func RandomDelay(base time.Duration) time.Duration {
	jitter := float64(base) * 0.25
	return base + time.Duration(rand.Float64()*2*jitter-jitter)
}
