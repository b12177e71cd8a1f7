package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Middleware processes an article and returns the (possibly modified) article.
// Return nil to drop the article from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an article. Return nil to drop it.
	Process(a *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, mw)
	return p
}

// Process runs the article through all middleware in order.
// A nil result with nil error means the article was dropped.
func (p *Pipeline) Process(a *types.Article) (*types.Article, error) {
	current := a

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{Stage: mw.Name(), Link: current.Link, Err: err}
		}
		if result == nil {
			p.logger.Debug("article dropped", "stage", mw.Name(), "title", a.Title, "link", a.Link)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Options tunes the stock article pipeline.
type Options struct {
	MinTitleLen    int
	NormalizeDates bool
}

// Default builds the pipeline every scrape run uses. The dedup stage is
// fresh per call, so link uniqueness is scoped to one run.
func Default(logger *slog.Logger, opts Options) *Pipeline {
	p := New(logger).
		Use(&TrimMiddleware{}).
		Use(NewHTMLSanitizeMiddleware()).
		Use(&RequiredFieldsMiddleware{Fields: []string{"title", "link"}})
	if opts.MinTitleLen > 0 {
		p.Use(&MinLengthMiddleware{Field: "title", Min: opts.MinTitleLen})
	}
	if opts.NormalizeDates {
		p.Use(&DateNormalizeMiddleware{})
	}
	return p.
		Use(&DefaultValueMiddleware{Defaults: map[string]string{"date": types.Placeholder}}).
		Use(NewDedupMiddleware())
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(a *types.Article) (*types.Article, error) {
	for _, key := range types.StringFields {
		a.SetField(key, strings.TrimSpace(a.Field(key)))
	}
	a.Tags = trimAll(a.Tags)
	a.Authors = trimAll(a.Authors)
	return a, nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RequiredFieldsMiddleware drops articles with empty or placeholder fields.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(a *types.Article) (*types.Article, error) {
	for _, field := range m.Fields {
		if v := a.Field(field); v == "" || v == types.Placeholder {
			return nil, nil
		}
	}
	return a, nil
}

// DefaultValueMiddleware fills empty fields.
type DefaultValueMiddleware struct {
	Defaults map[string]string
}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(a *types.Article) (*types.Article, error) {
	for key, v := range m.Defaults {
		if a.Field(key) == "" {
			a.SetField(key, v)
		}
	}
	return a, nil
}

// DedupMiddleware drops articles whose canonical link was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(a *types.Article) (*types.Article, error) {
	key := parser.CanonicalizeLink(a.Link)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return a, nil
}

// Seen returns how many distinct links passed through.
func (m *DedupMiddleware) Seen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
