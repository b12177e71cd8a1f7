// Package sites holds the built-in listing page definitions.
package sites

import (
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
)

var (
	errNoLink  = errors.New("no link")
	errNoTitle = errors.New("no title")
)

// Register adds every built-in site to reg.
func Register(reg *scraper.Registry) {
	for _, s := range []*scraper.Site{
		AnalysysMason(),
		Ericsson(),
		IBM(),
		Nokia(),
		Oracle(),
		ServiceNow(),
	} {
		reg.MustRegister(s)
	}
}

// Builtin returns a registry holding the built-in sites.
func Builtin() *scraper.Registry {
	reg := scraper.NewRegistry()
	Register(reg)
	return reg
}

var backgroundURL = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)

// styleImage returns the background-image URL in a style attribute.
func styleImage(style string) string {
	m := backgroundURL.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// firstLongText returns the first candidate longer than min characters.
func firstLongText(min int, candidates ...string) string {
	for _, c := range candidates {
		if c = parser.CleanText(c); len(c) > min {
			return c
		}
	}
	return ""
}

// ownText returns the cleaned text of sel.
func ownText(sel *goquery.Selection) string {
	return parser.CleanText(sel.Text())
}
