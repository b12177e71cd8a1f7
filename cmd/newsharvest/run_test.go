package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type scrapeScript struct {
	errs  []error
	calls int
	waits []time.Duration
}

func (s *scrapeScript) scraper(retries int) *siteScraper {
	return &siteScraper{
		scrape: func(context.Context, *scraper.Site, scraper.Options) (*scraper.Result, error) {
			i := s.calls
			s.calls++
			if i < len(s.errs) && s.errs[i] != nil {
				return nil, s.errs[i]
			}
			return &scraper.Result{Articles: []types.Article{{Title: "One"}}, Pages: 1}, nil
		},
		retries: retries,
		sleep: func(_ context.Context, d time.Duration) error {
			s.waits = append(s.waits, d)
			return nil
		},
		logger: discardLogger,
	}
}

func TestSiteScraperRetries(t *testing.T) {
	site := &scraper.Site{Name: "ibm", Filename: "ibm_news.json"}

	s := &scrapeScript{errs: []error{errors.New("timeout")}}
	res, err := s.scraper(3).scrapeSite(context.Background(), site)
	require.NoError(t, err)
	assert.Len(t, res.Articles, 1)
	assert.Equal(t, 2, s.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, s.waits)

	boom := errors.New("blocked")
	s = &scrapeScript{errs: []error{boom, boom, boom}}
	_, err = s.scraper(3).scrapeSite(context.Background(), site)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, s.waits)

	// Zero retries still makes one attempt.
	s = &scrapeScript{errs: []error{boom}}
	_, err = s.scraper(0).scrapeSite(context.Background(), site)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.calls)
	assert.Empty(t, s.waits)
}

func TestScrapeAllReportsFailures(t *testing.T) {
	color.NoColor = true
	boom := errors.New("blocked")
	s := &scrapeScript{errs: []error{nil, boom}}
	list := []*scraper.Site{
		{Name: "ibm", Filename: "ibm_news.json"},
		{Name: "nokia", Filename: "nokia_news.json"},
	}

	var buf bytes.Buffer
	failed := s.scraper(1).scrapeAll(context.Background(), list, &buf)
	assert.Equal(t, []string{"nokia"}, failed)
	assert.Contains(t, buf.String(), "ibm_news.json")
	assert.Contains(t, buf.String(), "✗ nokia")
}

func executeRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		runSkipScraping, runSkipCombining, runSkipEnrichment = false, false, false
		runSiteRetries, runLimit, runNoInsights = 3, 0, false
		dbPath = ""
	})
	color.NoColor = true
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"run"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestRunAllSkipped(t *testing.T) {
	out, err := executeRun(t, "--skip-scraping", "--skip-combining", "--skip-enrichment")
	require.NoError(t, err)
	assert.Contains(t, out, "All steps skipped. Nothing to do.")
}

func TestRunStopsWhenCombineFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEWSHARVEST_OUTPUT_DATA_DIR", dir)
	t.Setenv("NEWSHARVEST_STORAGE_DB_PATH", filepath.Join(dir, "news.db"))

	out, err := executeRun(t, "--skip-scraping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scrape output files")
	assert.Contains(t, out, "Pipeline stopped")
	assert.NotContains(t, out, "Step 3")
	assert.Contains(t, out, "Enrichment:  skipped")
}

func TestRunCombinesAndEnriches(t *testing.T) {
	body := strings.Repeat("<p>Operators are moving their packet core to cloud native platforms, "+
		"citing lower energy use and faster feature rollout for standalone 5G networks.</p>", 6)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><head><title>Core</title></head><body><article><h1>Core</h1>"+body+"</article></body></html>")
	}))
	defer srv.Close()

	dir := t.TempDir()
	db := filepath.Join(dir, "news.db")
	t.Setenv("NEWSHARVEST_OUTPUT_DATA_DIR", dir)
	t.Setenv("NEWSHARVEST_STORAGE_DB_PATH", db)
	t.Setenv("NEWSHARVEST_ENRICH_DELAY", "0s")
	_, err := storage.WriteArticles(dir, "nokia_news.json", []types.Article{
		{Title: "Core", Date: "2025-01-01", Link: srv.URL + "/core"},
	})
	require.NoError(t, err)

	out, err := executeRun(t, "--skip-scraping", "--no-insights")
	require.NoError(t, err)
	assert.Contains(t, out, "Combining:   ✓  1 inserted")
	assert.Contains(t, out, "Enrichment:  ✓  1 filled")

	store, err := storage.OpenSQLite(db, discardLogger)
	require.NoError(t, err)
	defer store.Close()
	row, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, row.OriginalText, "packet core")
}
