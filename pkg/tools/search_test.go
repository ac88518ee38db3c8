package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgResultsPage = `<html><body>
<div class="results">
<div class="result"><h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Ffirst&amp;rut=abc">First result title</a></h2></div>
<div class="result"><h2><a class="result__a" href="https://example.org/direct">Second result title</a></h2></div>
<div class="result"><h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.net%2Fthird">Third result title</a></h2></div>
<div class="result"><a class="result__snippet" href="https://example.com/snippet">Not a result link</a></div>
</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	results := parseSearchResults(ddgResultsPage)
	require.Len(t, results, 3)

	assert.Equal(t, "First result title", results[0].Title)
	assert.Equal(t, "https://example.com/first", results[0].URL)
	assert.Equal(t, "https://example.org/direct", results[1].URL)
	assert.Equal(t, "https://example.net/third", results[2].URL)
}

func TestParseSearchResultsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 10; i++ {
		b.WriteString(`<a class="result__a" href="https://example.com/r">Repeated result entry</a>`)
	}
	b.WriteString("</body></html>")

	results := parseSearchResults(b.String())
	assert.Len(t, results, maxSearchResults)
}

func TestSearcherQueryEscaping(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]string{
		"https://html.duckduckgo.com/html/?q=cache+stampede+fix": ddgResultsPage,
	}}
	searcher := NewDuckDuckGoSearcher(fetcher)

	results, err := searcher.Search(context.Background(), "cache stampede fix")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearcherFetchError(t *testing.T) {
	searcher := NewDuckDuckGoSearcher(&mapFetcher{pages: map[string]string{}})
	_, err := searcher.Search(context.Background(), "anything")
	assert.Error(t, err)
}
