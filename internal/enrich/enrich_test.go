package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const paragraph = "Operators across the region are moving their packet core to cloud native platforms, " +
	"citing lower energy use, faster feature rollout, and simpler operations for standalone 5G networks."

func articlePage() string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Core migration</title></head><body>`)
	b.WriteString(`<nav><a href="/">Home</a> <a href="/news">News</a></nav><article><h1>Core migration</h1>`)
	for i := 0; i < 6; i++ {
		b.WriteString("<p>" + paragraph + "</p>")
	}
	b.WriteString(`</article><footer>Copyright</footer></body></html>`)
	return b.String()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, articlePage())
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newEnricher(t *testing.T) *Enricher {
	t.Helper()
	hf, err := fetcher.NewHTTPFetcher(config.DefaultConfig(), testLogger)
	require.NoError(t, err)
	return New(hf, 0, testLogger)
}

func TestText(t *testing.T) {
	srv := newServer(t)
	text, err := newEnricher(t).Text(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Contains(t, text, "cloud native platforms")
	assert.NotContains(t, text, "<p>")
}

func TestFill(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "e.db"), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, row := range []storage.ArticleRow{
		{Title: "ok", Link: srv.URL + "/ok"},
		{Title: "gone", Link: srv.URL + "/gone"},
		{Title: "podcast", Link: srv.URL + "/episode.mp3"},
		{Title: "done", Link: srv.URL + "/done", OriginalText: "already here"},
	} {
		_, err := store.InsertArticle(ctx, row)
		require.NoError(t, err)
	}

	stats, err := newEnricher(t).Fill(ctx, store, 0)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Candidates: 3, Filled: 1, Failed: 1, Skipped: 1}, stats)

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, got.OriginalText, "standalone 5G networks")

	done, err := store.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "already here", done.OriginalText)

	missing, err := store.ListForEnrichment(ctx, 0, false)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestFillHonoursLimitAndCancel(t *testing.T) {
	srv := newServer(t)
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "e.db"), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, l := range []string{"/ok", "/ok?x=2"} {
		_, err := store.InsertArticle(ctx, storage.ArticleRow{Title: l, Link: srv.URL + l})
		require.NoError(t, err)
	}

	stats, err := newEnricher(t).Fill(ctx, store, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.Filled)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = newEnricher(t).Fill(cancelled, store, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSkipLink(t *testing.T) {
	assert.True(t, skipLink("https://example.com/a.PDF"))
	assert.True(t, skipLink("N/A"))
	assert.False(t, skipLink("https://example.com/post"))
}

// scriptedLLM replays canned replies in order and records prompts.
type scriptedLLM struct {
	replies []string
	errs    []error
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], err
	}
	return `{"main_ideas": [], "tags": []}`, err
}

// countingFetcher serves a fixed page and counts calls.
type countingFetcher struct {
	name  string
	body  string
	calls []string
}

func (c *countingFetcher) Fetch(_ context.Context, u string) (string, error) {
	c.calls = append(c.calls, u)
	return c.body, nil
}
func (c *countingFetcher) Close() error { return nil }
func (c *countingFetcher) Type() string { return c.name }

func TestFillWithInsights(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "e.db"), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, row := range []storage.ArticleRow{
		{Title: "Core migration", Description: "Operators move to cloud", Link: srv.URL + "/ok"},
		{Title: "Has text", Link: srv.URL + "/stored", OriginalText: "Stored   body\n text about 5G", Tags: []string{"old"}},
		{Title: "Bad reply", Link: srv.URL + "/ok?x=bad", Tags: []string{"kept"}},
		{Title: "Done", Link: srv.URL + "/done", OriginalText: "body", MainIdeas: []string{"already"}},
	} {
		_, err := store.InsertArticle(ctx, row)
		require.NoError(t, err)
	}

	llm := &scriptedLLM{replies: []string{
		"```json\n{\"main_ideas\": [\"Operators move packet core to cloud native platforms\", \" \"], \"tags\": [\"Cloud Native\", \"5G\", \"cloud native\"]}\n```",
		`{"main_ideas": ["Stored article idea"], "tags": ["telecom"]}`,
		"Sorry, I cannot help with that.",
	}}

	hf, err := fetcher.NewHTTPFetcher(config.DefaultConfig(), testLogger)
	require.NoError(t, err)
	e := New(hf, 0, testLogger, WithInsights(llm))

	stats, err := e.Fill(ctx, store, 0)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Candidates: 3, Filled: 2, Enhanced: 2}, stats)
	require.Len(t, llm.prompts, 3)
	assert.Contains(t, llm.prompts[0], "Article Title: Core migration")
	assert.Contains(t, llm.prompts[0], "Article Description: Operators move to cloud")
	assert.Contains(t, llm.prompts[0], "standalone 5G networks")
	assert.Contains(t, llm.prompts[1], "Article Description: N/A")
	assert.Contains(t, llm.prompts[1], "Stored body text about 5G")

	first, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Operators move packet core to cloud native platforms"}, first.MainIdeas)
	assert.Equal(t, []string{"cloud-native", "5g"}, first.Tags)
	assert.Contains(t, first.OriginalText, "standalone 5G networks")

	second, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Stored   body\n text about 5G", second.OriginalText)
	assert.Equal(t, []string{"Stored article idea"}, second.MainIdeas)
	assert.Equal(t, []string{"telecom"}, second.Tags)

	third, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, third.MainIdeas)
	assert.Equal(t, []string{"kept"}, third.Tags)
	assert.NotEmpty(t, third.OriginalText)

	pending, err := store.ListForEnrichment(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Bad reply", pending[0].Title)
}

func TestFillKeepsTextWhenLLMFails(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "e.db"), testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.InsertArticle(ctx, storage.ArticleRow{Title: "ok", Link: srv.URL + "/ok"})
	require.NoError(t, err)

	llm := &scriptedLLM{errs: []error{errors.New("rate limited")}}
	hf, err := fetcher.NewHTTPFetcher(config.DefaultConfig(), testLogger)
	require.NoError(t, err)

	stats, err := New(hf, 0, testLogger, WithInsights(llm)).Fill(ctx, store, 0)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Candidates: 1, Filled: 1}, stats)

	row, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, row.OriginalText, "cloud native platforms")
	assert.Empty(t, row.MainIdeas)
}

func TestParseInsights(t *testing.T) {
	in, err := ParseInsights(`{"main_ideas": ["One", ""], "tags": ["Edge AI", "edge-ai", " RAN "]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"One"}, in.MainIdeas)
	assert.Equal(t, []string{"edge-ai", "ran"}, in.Tags)

	in, err = ParseInsights(`{"summary": "no lists"}`)
	require.NoError(t, err)
	assert.True(t, in.Empty())

	_, err = ParseInsights("not json")
	assert.Error(t, err)
}

func TestInsightPromptBoundsContent(t *testing.T) {
	p := buildInsightPrompt("T", "", strings.Repeat("word ", 20000))
	assert.Contains(t, p, "Article Description: N/A")
	assert.NotContains(t, p, strings.Repeat("word ", 8001))
}

func TestBrowserDomainsRouteToBrowser(t *testing.T) {
	page := articlePage()
	httpF := &countingFetcher{name: "http", body: page}
	browserF := &countingFetcher{name: "browser", body: page}
	e := New(httpF, 0, testLogger, WithBrowser(browserF, []string{"hpe.com", "servicenow.com"}))

	ctx := context.Background()
	for _, link := range []string{
		"https://www.hpe.com/us/en/newsroom/press-release/2025/11/a.html",
		"https://www.servicenow.com/blogs/2025/b",
		"https://www.nokia.com/newsroom/c",
	} {
		_, err := e.Text(ctx, link)
		require.NoError(t, err)
	}
	assert.Len(t, browserF.calls, 2)
	assert.Equal(t, []string{"https://www.nokia.com/newsroom/c"}, httpF.calls)
}

func TestTextCapsLength(t *testing.T) {
	f := &countingFetcher{name: "http", body: articlePage()}
	text, err := New(f, 0, testLogger, WithMaxTextChars(100)).Text(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Len(t, []rune(text), 100)
}
