package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/pipeline"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// FetcherSource hands out a fetcher for a site's mode and readiness check.
type FetcherSource interface {
	For(mode string, ready fetcher.ReadyFunc) (fetcher.Fetcher, error)
}

// Options controls one scrape.
type Options struct {
	MaxPages  int
	PageDelay time.Duration
	Debug     bool
	DebugDir  string
}

// Result is the outcome of one site scrape.
type Result struct {
	Site     string
	Pages    int
	Articles []types.Article
	Skipped  int
	Dropped  int
	Duration time.Duration
}

// Runner scrapes sites one at a time.
type Runner struct {
	fetchers FetcherSource
	store    storage.Storage
	metrics  *observability.Metrics
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner. store and metrics may be nil.
func NewRunner(fs FetcherSource, store storage.Storage, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		fetchers: fs,
		store:    store,
		metrics:  metrics,
		logger:   logger.With("component", "scraper"),
		sleep:    sleepCtx,
	}
}

type extracted struct {
	article types.Article
	err     error
}

// Scrape fetches the site's listing page(s), extracts and cleans records,
// and stores them. A failure on the first page is returned; a failure on
// a later page ends pagination and keeps what was collected.
func (r *Runner) Scrape(ctx context.Context, site *Site, opts Options) (*Result, error) {
	start := time.Now()
	logger := r.logger.With("site", site.Name)

	f, err := r.fetchers.For(site.Fetch, site.Ready())
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	maxPages := 1
	if site.PageURL != nil {
		maxPages = opts.MaxPages
		if maxPages <= 0 {
			maxPages = 1
		}
	}
	delay := site.PageDelay
	if delay <= 0 {
		delay = opts.PageDelay
	}

	pl := pipeline.Default(logger, pipeline.Options{
		MinTitleLen:    site.MinTitleLen,
		NormalizeDates: site.NormalizeDates,
	})
	res := &Result{Site: site.Name, Articles: []types.Article{}}

	for page := 1; page <= maxPages; page++ {
		if page > 1 && delay > 0 {
			if err := r.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		pageURL := site.pageURL(page)
		body, err := r.fetch(ctx, f, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("site %s: %w", site.Name, err)
			}
			logger.Warn("page fetch failed, stopping pagination", "page", page, "url", pageURL, "error", err)
			break
		}
		res.Pages++

		if opts.Debug {
			if path, err := storage.DumpHTML(opts.DebugDir, site.Name, page, body); err != nil {
				logger.Warn("debug dump failed", "page", page, "error", err)
			} else {
				logger.Debug("debug html saved", "page", page, "path", path)
			}
		}

		base, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", types.ErrInvalidURL, pageURL)
		}

		items, err := r.extract(site, body, base)
		if err != nil {
			return nil, &types.ParseError{Site: site.Name, Selector: site.Items + site.ItemsXPath, Err: err}
		}

		fresh := 0
		for _, it := range items {
			if it.err != nil {
				res.Skipped++
				r.metrics.Skipped(site.Name, "extract_error")
				logger.Warn("item extraction failed", "page", page, "error", it.err)
				continue
			}
			a := it.article
			out, err := pl.Process(&a)
			if err != nil {
				res.Skipped++
				r.metrics.Skipped(site.Name, "pipeline_error")
				logger.Warn("item rejected", "page", page, "error", err)
				continue
			}
			if out == nil {
				res.Dropped++
				r.metrics.Skipped(site.Name, "filtered")
				continue
			}
			res.Articles = append(res.Articles, *out)
			fresh++
		}

		logger.Info("page scraped", "page", page, "items", len(items), "new", fresh, "total", len(res.Articles))

		if len(items) == 0 {
			logger.Info("empty page, stopping", "page", page)
			break
		}
		if site.MinPerPage > 0 && fresh < site.MinPerPage {
			logger.Info("too few new articles, stopping", "page", page, "new", fresh, "min", site.MinPerPage)
			break
		}
	}

	r.metrics.Scraped(site.Name, len(res.Articles))

	if r.store != nil {
		err := r.store.Store(ctx, storage.Batch{
			Site:      site.Name,
			Kind:      site.Kind,
			Filename:  site.Filename,
			ScrapedAt: start,
			Articles:  res.Articles,
		})
		if err != nil {
			return res, fmt.Errorf("store %s: %w", site.Name, err)
		}
	}

	res.Duration = time.Since(start)
	logger.Info("site scraped",
		"articles", len(res.Articles),
		"pages", res.Pages,
		"skipped", res.Skipped,
		"dropped", res.Dropped,
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Runner) fetch(ctx context.Context, f fetcher.Fetcher, u string) (string, error) {
	start := time.Now()
	body, err := f.Fetch(ctx, u)
	r.metrics.ObserveFetch(f.Type(), time.Since(start).Seconds())
	return body, err
}

// extract runs the site's extractor over every listing item.
func (r *Runner) extract(site *Site, body string, base *url.URL) ([]extracted, error) {
	if site.ExtractNode != nil {
		root, err := parser.XPathDocument(body)
		if err != nil {
			return nil, err
		}
		nodes := parser.XPathAll(root, site.ItemsXPath)
		out := make([]extracted, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, safeExtract(func() (types.Article, error) { return site.ExtractNode(n, base) }))
		}
		return out, nil
	}

	doc, err := parser.Document(body)
	if err != nil {
		return nil, err
	}
	var out []extracted
	doc.Find(site.Items).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, safeExtract(func() (types.Article, error) { return site.Extract(sel, base) }))
	})
	return out, nil
}

// safeExtract turns a panicking extractor into an item error.
func safeExtract(fn func() (types.Article, error)) (res extracted) {
	defer func() {
		if p := recover(); p != nil {
			res = extracted{err: fmt.Errorf("extractor panic: %v", p)}
		}
	}()
	a, err := fn()
	return extracted{article: a, err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
