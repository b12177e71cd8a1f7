// Package enrich fills in article body text, main ideas and tags for stored rows.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/NewsHarvest/internal/ai"
	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

// Store is the slice of the article store the enricher needs.
type Store interface {
	ListForEnrichment(ctx context.Context, limit int, withIdeas bool) ([]storage.ArticleRow, error)
	SetEnhancement(ctx context.Context, id int64, ideas, tags []string, text string) error
}

// Stats summarises one Fill pass.
type Stats struct {
	Candidates int
	Filled     int
	Enhanced   int
	Failed     int
	Skipped    int
}

// DefaultMaxTextChars caps stored body text.
const DefaultMaxTextChars = 50000

// Enricher downloads article pages, keeps their readable text and, with an
// LLM, extracts main ideas and tags.
type Enricher struct {
	fetcher        fetcher.Fetcher
	browser        fetcher.Fetcher
	browserDomains []string
	llm            ai.Generator
	maxTextChars   int
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// Option configures the Enricher.
type Option func(*Enricher)

// WithInsights enables main-ideas and tags extraction.
func WithInsights(g ai.Generator) Option {
	return func(e *Enricher) { e.llm = g }
}

// WithBrowser routes links whose host contains one of domains through f.
func WithBrowser(f fetcher.Fetcher, domains []string) Option {
	return func(e *Enricher) {
		e.browser = f
		e.browserDomains = domains
	}
}

// WithMaxTextChars caps stored body text; zero keeps it whole.
func WithMaxTextChars(n int) Option {
	return func(e *Enricher) { e.maxTextChars = n }
}

// New creates an enricher. delay spaces out rows; zero disables it.
func New(f fetcher.Fetcher, delay time.Duration, logger *slog.Logger, opts ...Option) *Enricher {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	e := &Enricher{
		fetcher:      f,
		maxTextChars: DefaultMaxTextChars,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       logger.With("component", "enricher"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fill works through up to limit rows lacking original_text, or lacking
// main ideas when insights are enabled. Stored text is reused; missing
// text is downloaded. Per-row failures are logged and counted.
func (e *Enricher) Fill(ctx context.Context, store Store, limit int) (*Stats, error) {
	rows, err := store.ListForEnrichment(ctx, limit, e.llm != nil)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Candidates: len(rows)}

	for _, row := range rows {
		if err := e.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		text := row.OriginalText
		fetched := false
		if text == "" {
			if skipLink(row.Link) {
				stats.Skipped++
				e.logger.Info("skipping non-article link", "id", row.ID, "link", row.Link)
				continue
			}
			text, err = e.Text(ctx, row.Link)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				stats.Failed++
				e.logger.Warn("enrichment failed", "id", row.ID, "link", row.Link, "error", err)
				continue
			}
			if text == "" {
				stats.Failed++
				e.logger.Warn("no readable text", "id", row.ID, "link", row.Link)
				continue
			}
			fetched = true
		}

		ideas, tags := row.MainIdeas, row.Tags
		if e.llm != nil {
			in, err := e.Insights(ctx, row.Title, row.Description, text)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				e.logger.Warn("insight extraction failed", "id", row.ID, "error", err)
			}
			if len(in.MainIdeas) > 0 {
				ideas = in.MainIdeas
				stats.Enhanced++
			}
			if len(in.Tags) > 0 {
				tags = in.Tags
			}
		}

		if err := store.SetEnhancement(ctx, row.ID, ideas, tags, text); err != nil {
			return stats, err
		}
		if fetched {
			stats.Filled++
		}
		e.logger.Debug("article enriched", "id", row.ID, "chars", len(text), "ideas", len(ideas), "tags", len(tags))
	}

	e.logger.Info("enrichment finished",
		"candidates", stats.Candidates,
		"filled", stats.Filled,
		"enhanced", stats.Enhanced,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// Text downloads link and returns its readable body text.
func (e *Enricher) Text(ctx context.Context, link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	body, err := e.fetcherFor(u).Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(strings.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("readability %s: %w", link, err)
	}
	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return "", fmt.Errorf("render text %s: %w", link, err)
	}
	out := parser.CleanText(text.String())
	if r := []rune(out); e.maxTextChars > 0 && len(r) > e.maxTextChars {
		out = string(r[:e.maxTextChars])
	}
	return out, nil
}

// fetcherFor picks the browser for configured domains.
func (e *Enricher) fetcherFor(u *url.URL) fetcher.Fetcher {
	if e.browser == nil {
		return e.fetcher
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range e.browserDomains {
		if d != "" && strings.Contains(host, strings.ToLower(d)) {
			return e.browser
		}
	}
	return e.fetcher
}

var skipSuffixes = []string{".mp3", ".mp4", ".pdf", ".zip"}

func skipLink(link string) bool {
	l := strings.ToLower(link)
	if !strings.HasPrefix(l, "http://") && !strings.HasPrefix(l, "https://") {
		return true
	}
	for _, s := range skipSuffixes {
		if strings.HasSuffix(l, s) {
			return true
		}
	}
	return false
}
