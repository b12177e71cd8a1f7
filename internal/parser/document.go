package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document parses an HTML string into a goquery document.
func Document(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// CleanText collapses runs of whitespace and trims the result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text returns the cleaned text of the first element matching selector
// within sel, or "" when nothing matches.
func Text(sel *goquery.Selection, selector string) string {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	return CleanText(found.Text())
}

// FirstText tries each selector in order and returns the first non-empty text.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := Text(sel, s); t != "" {
			return t
		}
	}
	return ""
}

// Attr returns a trimmed attribute of the first match of selector within sel.
// An empty selector reads the attribute from sel itself.
func Attr(sel *goquery.Selection, selector, attr string) string {
	target := sel
	if selector != "" {
		target = sel.Find(selector).First()
	}
	v, ok := target.Attr(attr)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// HasClassContaining reports whether any class token of sel contains sub.
func HasClassContaining(sel *goquery.Selection, sub string) bool {
	class, _ := sel.Attr("class")
	for _, c := range strings.Fields(class) {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}
