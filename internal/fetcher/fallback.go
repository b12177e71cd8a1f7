package fetcher

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackFetcher tries Primary and, if it fails, Secondary.
type FallbackFetcher struct {
	Primary   Fetcher
	Secondary Fetcher
	logger    *slog.Logger
}

// NewFallbackFetcher creates a fallback chain of two fetchers.
func NewFallbackFetcher(primary, secondary Fetcher, logger *slog.Logger) *FallbackFetcher {
	return &FallbackFetcher{
		Primary:   primary,
		Secondary: secondary,
		logger:    logger.With("component", "fallback_fetcher"),
	}
}

// Fetch returns the primary result or, on a non-cancellation error, the secondary one.
func (f *FallbackFetcher) Fetch(ctx context.Context, url string) (string, error) {
	html, err := f.Primary.Fetch(ctx, url)
	if err == nil {
		return html, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	f.logger.Warn("primary fetcher failed, falling back",
		"url", url,
		"primary", f.Primary.Type(),
		"secondary", f.Secondary.Type(),
		"error", err,
	)
	html, err2 := f.Secondary.Fetch(ctx, url)
	if err2 != nil {
		return "", errors.Join(err, err2)
	}
	return html, nil
}

// Close closes both fetchers.
func (f *FallbackFetcher) Close() error {
	return errors.Join(f.Primary.Close(), f.Secondary.Close())
}

// Type returns the fetcher type identifier.
func (f *FallbackFetcher) Type() string {
	return f.Primary.Type() + "+" + f.Secondary.Type()
}
