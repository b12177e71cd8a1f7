package sites

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Ericsson is the blog listing filtered to one location.
func Ericsson() *scraper.Site {
	return &scraper.Site{
		Name:           "ericsson",
		Kind:           types.KindBlog,
		URL:            "https://www.ericsson.com/en/blog?locs=68304",
		Filename:       "ericsson_blog_articles.json",
		Fetch:          fetcher.ModeBrowser,
		ReadySelectors: []string{".filtered-blogs .card"},
		Items:          "div.card",
		Extract:        extractEricsson,
	}
}

func extractEricsson(card *goquery.Selection, base *url.URL) (types.Article, error) {
	var a types.Article

	anchor := card.Find("h4.card-title a").First()
	a.Title = ownText(anchor)
	href, _ := anchor.Attr("href")
	if href == "" {
		fallback := card.Find("a[href]").First()
		href, _ = fallback.Attr("href")
		if a.Title == "" {
			a.Title = ownText(fallback)
		}
	}

	link, ok := parser.ResolveLink(base, href)
	if !ok {
		return a, errNoLink
	}
	a.Link = link

	// Listing dates look like "Nov 14, 2025".
	if raw := parser.Text(card, "p.card-description span.date"); raw != "" {
		a.Date = parser.NormalizeOrKeep(raw)
	}
	return a, nil
}
