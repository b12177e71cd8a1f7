package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPathDocument parses HTML for XPath queries.
func XPathDocument(src string) (*html.Node, error) {
	return html.Parse(strings.NewReader(src))
}

// XPathAll returns every node matching expr; invalid expressions yield nil.
func XPathAll(node *html.Node, expr string) []*html.Node {
	nodes, err := htmlquery.QueryAll(node, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// XPathText returns the cleaned inner text of the first match of expr.
func XPathText(node *html.Node, expr string) string {
	n, err := htmlquery.Query(node, expr)
	if err != nil || n == nil {
		return ""
	}
	return CleanText(htmlquery.InnerText(n))
}

// XPathAttr returns an attribute of the first match of expr.
func XPathAttr(node *html.Node, expr, attr string) string {
	n, err := htmlquery.Query(node, expr)
	if err != nil || n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(n, attr))
}

// NodeAttr returns an attribute of node itself.
func NodeAttr(node *html.Node, attr string) string {
	return strings.TrimSpace(htmlquery.SelectAttr(node, attr))
}

// NodeText returns the cleaned inner text of node.
func NodeText(node *html.Node) string {
	return CleanText(htmlquery.InnerText(node))
}
