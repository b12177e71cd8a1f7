package pipeline

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// HTMLSanitizeMiddleware strips markup from text fields and decodes entities.
type HTMLSanitizeMiddleware struct {
	policy *bluemonday.Policy
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{policy: bluemonday.StrictPolicy()}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(a *types.Article) (*types.Article, error) {
	for _, key := range []string{"title", "description", "date", "content_type", "access_type"} {
		if s := a.Field(key); s != "" {
			a.SetField(key, m.clean(s))
		}
	}
	for i, t := range a.Tags {
		a.Tags[i] = m.clean(t)
	}
	for i, au := range a.Authors {
		a.Authors[i] = m.clean(au)
	}
	return a, nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	return parser.CleanText(html.UnescapeString(m.policy.Sanitize(s)))
}

// DateNormalizeMiddleware rewrites parseable dates as YYYY-MM-DD.
type DateNormalizeMiddleware struct{}

func (m *DateNormalizeMiddleware) Name() string { return "date_normalize" }

func (m *DateNormalizeMiddleware) Process(a *types.Article) (*types.Article, error) {
	if a.Date != "" {
		a.Date = parser.NormalizeOrKeep(a.Date)
	}
	return a, nil
}

// MinLengthMiddleware drops articles whose field is shorter than Min runes.
type MinLengthMiddleware struct {
	Field string
	Min   int
}

func (m *MinLengthMiddleware) Name() string { return "min_length" }

func (m *MinLengthMiddleware) Process(a *types.Article) (*types.Article, error) {
	if utf8.RuneCountInString(strings.TrimSpace(a.Field(m.Field))) < m.Min {
		return nil, nil
	}
	return a, nil
}
