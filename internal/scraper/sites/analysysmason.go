package sites

import (
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

const analysysMasonBase = "https://www.analysysmason.com/knowledge-centre/"

// AnalysysMason is the free section of the Knowledge Centre, paginated.
func AnalysysMason() *scraper.Site {
	return &scraper.Site{
		Name:           "analysysmason",
		Kind:           types.KindArticles,
		URL:            analysysMasonPage(1),
		Filename:       "analysysmason_articles.json",
		Fetch:          fetcher.ModeBrowser,
		ReadySelectors: []string{".results__item", "#ResultListWrapper"},
		ReadyThreshold: 50000,
		Items:          "div.results__item",
		Extract:        extractAnalysysMason,
		PageURL:        analysysMasonPage,
		PageDelay:      2 * time.Second,
		MinTitleLen:    5,
	}
}

func analysysMasonPage(n int) string {
	return fmt.Sprintf("%s?ac=DontRequiresSubscription&author=&page=%d", analysysMasonBase, n)
}

func extractAnalysysMason(item *goquery.Selection, base *url.URL) (types.Article, error) {
	a := types.Article{
		Date:        types.Placeholder,
		Description: types.Placeholder,
		ContentType: types.Placeholder,
		ImageURL:    types.Placeholder,
		AccessType:  types.Placeholder,
	}

	anchor := item.Find("a.results__title").First()
	if anchor.Length() == 0 {
		return a, errNoTitle
	}
	href, _ := anchor.Attr("href")
	link, ok := parser.ResolveLink(base, href)
	if !ok {
		return a, errNoLink
	}
	a.Link = link
	a.Title = ownText(anchor)

	// The meta list reads: date, then content type.
	meta := item.Find("ul.results__list li.results__list-item")
	if d := ownText(meta.Eq(0)); d != "" {
		a.Date = d
	}
	if ct := parser.Text(meta.Eq(1), "a"); ct != "" {
		a.ContentType = ct
	}

	if d := parser.Text(item, "p.results__text"); d != "" {
		a.Description = d
	}
	if img := styleImage(parser.Attr(item, "a.results__img", "style")); img != "" {
		if abs, ok := parser.ResolveLink(base, img); ok {
			a.ImageURL = abs
		}
	}
	if tag := parser.Text(item, "a.results__tag"); tag != "" {
		a.AccessType = tag
	}
	return a, nil
}
