// Package scraper drives per-site listing scrapes: fetch, extract, clean,
// paginate and persist.
package scraper

import (
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Site describes one listing page and how to read it. Exactly one of
// Extract (with Items) or ExtractNode (with ItemsXPath) is set.
type Site struct {
	Name     string
	Kind     types.Kind
	URL      string
	Filename string

	// Fetch is a fetcher mode: browser, http or browser+http.
	Fetch string

	// The page counts as ready once ReadyMin elements match any of
	// ReadySelectors, or the HTML exceeds ReadyThreshold bytes.
	ReadySelectors []string
	ReadyMin       int
	ReadyThreshold int

	Items   string
	Extract func(item *goquery.Selection, base *url.URL) (types.Article, error)

	ItemsXPath  string
	ExtractNode func(item *html.Node, base *url.URL) (types.Article, error)

	// PageURL returns the URL of page n (1-based). Nil means single page.
	PageURL    func(page int) string
	MinPerPage int
	PageDelay  time.Duration

	MinTitleLen    int
	NormalizeDates bool
}

// Validate checks that the site is usable.
func (s *Site) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("site name is required")
	case s.URL == "":
		return fmt.Errorf("site %s: url is required", s.Name)
	case !storage.ValidFilename(s.Filename):
		return fmt.Errorf("site %s: filename %q must end in %s or %s", s.Name, s.Filename, storage.SuffixArticles, storage.SuffixNews)
	case s.Extract == nil && s.ExtractNode == nil:
		return fmt.Errorf("site %s: no extractor", s.Name)
	case s.Extract != nil && s.Items == "":
		return fmt.Errorf("site %s: items selector is required", s.Name)
	case s.ExtractNode != nil && s.ItemsXPath == "":
		return fmt.Errorf("site %s: items xpath is required", s.Name)
	}
	return nil
}

// Ready builds the readiness check handed to the browser fetcher.
func (s *Site) Ready() fetcher.ReadyFunc {
	threshold := s.ReadyThreshold
	if threshold <= 0 {
		threshold = fetcher.DefaultReadyThreshold
	}
	if len(s.ReadySelectors) == 0 {
		return fetcher.SizeReady(threshold)
	}
	min := s.ReadyMin
	if min <= 0 {
		min = 1
	}
	return fetcher.AnyReady(
		fetcher.SelectorReady(min, s.ReadySelectors...),
		fetcher.SizeReady(threshold),
	)
}

// pageURL returns the URL for page n.
func (s *Site) pageURL(n int) string {
	if s.PageURL == nil {
		return s.URL
	}
	return s.PageURL(n)
}
