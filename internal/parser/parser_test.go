package parser

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<div class="card">
  <div class="card-text"><h5>  Agentic AI
     in the enterprise </h5><a href="/blogs/2025/agentic-ai#top">read</a></div>
  <span class="card-date">Nov 14, 2025</span>
</div>
<section class="rc90 dark"><p>x</p></section>
</body></html>`

func TestDocumentHelpers(t *testing.T) {
	doc, err := Document(listingHTML)
	require.NoError(t, err)

	card := doc.Find("div.card").First()
	assert.Equal(t, "Agentic AI in the enterprise", Text(card, "h5"))
	assert.Equal(t, "Nov 14, 2025", FirstText(card, "span.missing", "span.card-date"))
	assert.Equal(t, "/blogs/2025/agentic-ai#top", Attr(card, "a", "href"))
	assert.Equal(t, "", Text(card, "h4"))

	assert.True(t, HasClassContaining(doc.Find("section").First(), "rc90"))
	assert.False(t, HasClassContaining(card, "rc90"))
}

func TestResolveLink(t *testing.T) {
	base, _ := url.Parse("https://www.servicenow.com/blogs/category/product-news")

	link, ok := ResolveLink(base, "/blogs/2025/agentic-ai#top")
	require.True(t, ok)
	assert.Equal(t, "https://www.servicenow.com/blogs/2025/agentic-ai", link)

	link, ok = ResolveLink(base, "https://newsroom.ibm.com/2025-01-01-x")
	require.True(t, ok)
	assert.Equal(t, "https://newsroom.ibm.com/2025-01-01-x", link)

	for _, bad := range []string{"", "#", "javascript:void(0)", "mailto:a@b.c", "ftp://host/file"} {
		_, ok := ResolveLink(base, bad)
		assert.False(t, ok, bad)
	}
}

func TestCanonicalizeLink(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Blogs.Oracle.com/cloud/":          "https://blogs.oracle.com/cloud",
		"https://blogs.oracle.com:443/a?b=2&a=1#x": "https://blogs.oracle.com/a?a=1&b=2",
		"https://www.nokia.com":                    "https://www.nokia.com/",
		"not a url/":                               "not a url",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalizeLink(in), in)
	}
}

func TestFindDate(t *testing.T) {
	cases := map[string]string{
		"Posted on November 14, 2025 by team": "November 14, 2025",
		"Oracle | Sep 3 2025 | 5 min read":    "Sep 3 2025",
		"Published 14 Nov 2025":               "14 Nov 2025",
		"updated 2025-11-14 10:00":            "2025-11-14",
		"on 14/11/2025":                       "14/11/2025",
		"no date here":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FindDate(in), in)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"Nov 14, 2025":     "2025-11-14",
		"November 4, 2025": "2025-11-04",
		"Sept. 3, 2025":    "2025-09-03",
		"3 Sep 2025":       "2025-09-03",
		"2025-01-31":       "2025-01-31",
	}
	for in, want := range cases {
		got, ok := NormalizeDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := NormalizeDate("14/11/2025")
	assert.False(t, ok)
	assert.Equal(t, "N/A", NormalizeOrKeep("N/A"))
}

func TestXPathHelpers(t *testing.T) {
	node, err := XPathDocument(`<html><body><a class="td_headlines" href="/en/news/a" title="Nokia wins a thing"><div class="pp_headline"><h3>Nokia wins</h3></div></a></body></html>`)
	require.NoError(t, err)

	links := XPathAll(node, `//a[contains(@class,"td_headlines")]`)
	require.Len(t, links, 1)
	assert.Equal(t, "/en/news/a", NodeAttr(links[0], "href"))
	assert.Equal(t, "Nokia wins", XPathText(links[0], `.//div[contains(@class,"pp_headline")]//h3`))
	assert.Equal(t, "Nokia wins a thing", XPathAttr(node, `//a`, "title"))
	assert.Equal(t, "Nokia wins", NodeText(links[0]))
	assert.Nil(t, XPathAll(node, `//a[`))
}
