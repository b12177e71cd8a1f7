package sites

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/scraper"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

const ibmItems = "ul.wd_item_list li.wd_item"

// IBM is the IBM Newsroom campaign listing. The browser renders the final
// links; plain HTTP is the fallback.
func IBM() *scraper.Site {
	return &scraper.Site{
		Name:           "ibm",
		Kind:           types.KindNews,
		URL:            "https://newsroom.ibm.com/campaign",
		Filename:       "ibm_news.json",
		Fetch:          fetcher.ModeBrowserThenHTTP,
		ReadySelectors: []string{ibmItems},
		Items:          ibmItems,
		Extract:        extractIBM,
	}
}

func extractIBM(item *goquery.Selection, base *url.URL) (types.Article, error) {
	var a types.Article

	titleDiv := item.Find("div.wd_title").First()
	if anchor := titleDiv.Find("a").First(); anchor.Length() > 0 {
		a.Title = ownText(anchor)
		if href, ok := anchor.Attr("href"); ok {
			a.Link, _ = parser.ResolveLink(base, href)
		}
	} else {
		a.Title = ownText(titleDiv)
	}
	if a.Title == "" {
		return a, errNoTitle
	}

	a.Description = parser.FirstText(item, "div.wd_summary p", "div.wd_summary")
	a.Date = parser.Text(item, "div.wd_date")
	return a, nil
}
