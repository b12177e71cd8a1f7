package sites

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Oracle is the blogs.oracle.com front page; posts sit in rc90 sections.
func Oracle() *scraper.Site {
	return &scraper.Site{
		Name:           "oracle",
		Kind:           types.KindBlog,
		URL:            "https://blogs.oracle.com/",
		Filename:       "oracle_blog_articles.json",
		Fetch:          fetcher.ModeBrowser,
		ReadySelectors: []string{".blogtile", ".cscroll-items"},
		Items:          "section[class*='rc90'] div.blogtile",
		Extract:        extractOracle,
		MinTitleLen:    5,
	}
}

func extractOracle(tile *goquery.Selection, base *url.URL) (types.Article, error) {
	var a types.Article

	anchor := tile.Find("div.blogtile-w2 h3 a[href]").First()
	if anchor.Length() == 0 {
		return a, errNoLink
	}
	href, _ := anchor.Attr("href")
	link, ok := parser.ResolveLink(base, href)
	if !ok {
		return a, errNoLink
	}

	a.Link = link
	a.Title = ownText(anchor)
	a.Date = parser.FindDate(tile.Text())
	return a, nil
}
