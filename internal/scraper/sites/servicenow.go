package sites

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// ServiceNow is the product-news blog category. Only the cards present on
// first load are collected.
func ServiceNow() *scraper.Site {
	return &scraper.Site{
		Name:           "servicenow",
		Kind:           types.KindBlog,
		URL:            "https://www.servicenow.com/blogs/category/product-news",
		Filename:       "servicenow_blog_articles.json",
		Fetch:          fetcher.ModeBrowser,
		ReadySelectors: []string{".blog-list-wrapper", ".blog-list", ".card", "a[href*='/blogs/']"},
		Items:          "div.card",
		Extract:        extractServiceNow,
	}
}

func extractServiceNow(card *goquery.Selection, base *url.URL) (types.Article, error) {
	var a types.Article

	anchor := card.Find("div.card-thumbnail a[href]").First()
	if anchor.Length() == 0 {
		anchor = card.Find("div.card-text a[href]").First()
	}
	if anchor.Length() == 0 {
		anchor = card.Find("a[href]").First()
	}
	href, _ := anchor.Attr("href")
	link, ok := parser.ResolveLink(base, href)
	if !ok {
		return a, errNoLink
	}
	a.Link = link

	a.Title = parser.Text(card, "div.card-text h5")
	if len(a.Title) < 5 {
		alt, _ := card.Find("img").First().Attr("alt")
		title, _ := anchor.Attr("title")
		if t := firstLongText(5, anchor.Text(), title, alt); t != "" {
			a.Title = t
		}
	}

	a.Date = parser.Text(card, "span.card-date")
	if len(a.Date) < 5 {
		if d := parser.FindDate(card.Text()); d != "" {
			a.Date = d
		}
	}
	return a, nil
}
