package sites

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

const nokiaHeadline = `//a[contains(concat(' ', normalize-space(@class), ' '), ' td_headlines ')]`

// Nokia is the newsroom filtered to press releases. Each release is an
// anchor wrapping a headline block and a split month/day/year date.
func Nokia() *scraper.Site {
	return &scraper.Site{
		Name:           "nokia",
		Kind:           types.KindNews,
		URL:            "https://www.nokia.com/newsroom/?h=1&t=press%20releases&match=1",
		Filename:       "nokia_news.json",
		Fetch:          fetcher.ModeBrowser,
		ReadySelectors: []string{"a.td_headlines", "a[href*='newsroom']"},
		ReadyMin:       5,
		ItemsXPath:     nokiaHeadline,
		ExtractNode:    extractNokia,
	}
}

// filterParams mark listing filter links rather than releases.
var filterParams = []string{"?h=", "?t=", "?match="}

func extractNokia(node *html.Node, base *url.URL) (types.Article, error) {
	var a types.Article

	href := parser.NodeAttr(node, "href")
	for _, p := range filterParams {
		if strings.Contains(href, p) {
			// Dropped downstream for lacking a link.
			return a, nil
		}
	}
	link, ok := parser.ResolveLink(base, href)
	if !ok {
		return a, errNoLink
	}
	a.Link = link

	a.Title = firstLongText(10,
		parser.NodeAttr(node, "title"),
		parser.XPathText(node, `.//div[contains(@class, 'pp_headline')]//h3`),
		parser.NodeText(node),
	)

	a.Date = nokiaDate(node)
	if a.Date == "" {
		a.Date = parser.FindDate(parser.NodeText(node))
	}
	return a, nil
}

// nokiaDate assembles the split publish date; a lone year is kept as is.
func nokiaDate(node *html.Node) string {
	const block = `.//div[contains(@class, 'pp_publishdate')]`
	month := parser.XPathText(node, block+`//div[contains(@class, 'pp_date_month')]`)
	day := strings.TrimSpace(strings.ReplaceAll(parser.XPathText(node, block+`//div[contains(@class, 'pp_date_day')]`), ",", ""))
	year := parser.XPathText(node, block+`//div[contains(@class, 'pp_date_year')]`)

	switch {
	case month != "" && day != "" && year != "":
		readable := fmt.Sprintf("%s %s, %s", month, day, year)
		return parser.NormalizeOrKeep(readable)
	case year != "":
		return year
	}
	return ""
}
