package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/browser"
)

// SearchResult is one external web-search hit.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Searcher answers content.find calls with web scope.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

const (
	duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	maxSearchResults   = 5
)

// DuckDuckGoSearcher scrapes the HTML-only DuckDuckGo results page, which
// needs no API key and renders without JavaScript.
type DuckDuckGoSearcher struct {
	fetcher browser.Fetcher
}

// NewDuckDuckGoSearcher creates a searcher over the given fetcher.
func NewDuckDuckGoSearcher(fetcher browser.Fetcher) *DuckDuckGoSearcher {
	return &DuckDuckGoSearcher{fetcher: fetcher}
}

// Search returns up to five results for query.
func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	searchURL := duckDuckGoEndpoint + "?q=" + url.QueryEscape(query)
	markup, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}
	return parseSearchResults(markup), nil
}

// parseSearchResults pulls result links (a.result__a) out of the page.
func parseSearchResults(markup string) []SearchResult {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var results []SearchResult
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if len(results) >= maxSearchResults {
			return
		}
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") && nodeHasClass(n, "result__a") {
			title := nodeText(n)
			href := nodeAttr(n, "href")
			if title != "" && href != "" {
				results = append(results, SearchResult{Title: title, URL: resolveResultURL(href)})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return results
}

// resolveResultURL unwraps DuckDuckGo's redirect links (uddg parameter).
func resolveResultURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if unescaped, err := url.QueryUnescape(target); err == nil {
			return unescaped
		}
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeHasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(nodeAttr(n, "class")) {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			visit(gc)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
