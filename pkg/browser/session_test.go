package browser

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfindhq/wayfind/pkg/config"
	"github.com/wayfindhq/wayfind/pkg/observe"
)

type fakeFetcher struct {
	pages   map[string]string
	fetches int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.fetches++
	markup, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: not found", url)
	}
	return markup, nil
}

func page(title string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body><main><p>Content of %s with enough text to register as a paragraph block in the observation.</p></main></body></html>", title, title)
}

func newFixture(urls ...string) (*fakeFetcher, *Session) {
	pages := map[string]string{}
	for _, u := range urls {
		pages[u] = page(u)
	}
	fetcher := &fakeFetcher{pages: pages}
	observer := observe.New(config.Default().Budgets)
	policy, _ := NewURLPolicy(nil)
	return fetcher, NewSession(fetcher, observer, policy)
}

func TestSessionOpenTab(t *testing.T) {
	_, session := newFixture("https://a.test/1")
	tab, err := session.OpenTab(context.Background(), "https://a.test/1")
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/1", tab.URL)
	assert.Equal(t, "https://a.test/1", tab.Title)
	assert.Same(t, tab, session.ActiveTab())
}

func TestSessionOpenTabFailureLeavesSessionUnchanged(t *testing.T) {
	_, session := newFixture("https://a.test/1")
	_, err := session.OpenTab(context.Background(), "https://a.test/1")
	require.NoError(t, err)
	before := session.ActiveTab()

	_, err = session.OpenTab(context.Background(), "https://a.test/missing")
	require.Error(t, err)
	assert.Same(t, before, session.ActiveTab())
	assert.Len(t, session.TabSummaries(), 1)
}

func TestSessionNavigateOpensTabWhenNoneExists(t *testing.T) {
	_, session := newFixture("https://a.test/1")
	tab, err := session.Navigate(context.Background(), "https://a.test/1")
	require.NoError(t, err)
	assert.Same(t, tab, session.ActiveTab())
}

func TestTabHistoryTruncatesForwardOnNavigate(t *testing.T) {
	_, session := newFixture("https://a.test/1", "https://a.test/2", "https://a.test/3", "https://a.test/4")
	ctx := context.Background()

	_, err := session.OpenTab(ctx, "https://a.test/1")
	require.NoError(t, err)
	_, err = session.Navigate(ctx, "https://a.test/2")
	require.NoError(t, err)
	_, err = session.Navigate(ctx, "https://a.test/3")
	require.NoError(t, err)

	_, err = session.Back(ctx)
	require.NoError(t, err)
	_, err = session.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/1", session.ActiveTab().URL)

	// Navigating from the middle of history drops the forward entries.
	_, err = session.Navigate(ctx, "https://a.test/4")
	require.NoError(t, err)
	_, err = session.Forward(ctx)
	assert.EqualError(t, err, "no forward history")

	_, err = session.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/1", session.ActiveTab().URL)
	_, err = session.Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/4", session.ActiveTab().URL)
}

func TestTabHistoryBoundaries(t *testing.T) {
	_, session := newFixture("https://a.test/1")
	ctx := context.Background()

	_, err := session.Back(ctx)
	assert.EqualError(t, err, "no active tab")

	_, err = session.OpenTab(ctx, "https://a.test/1")
	require.NoError(t, err)

	_, err = session.Back(ctx)
	assert.EqualError(t, err, "no back history")
	_, err = session.Forward(ctx)
	assert.EqualError(t, err, "no forward history")
}

func TestTabRefreshRefetchesWithoutGrowingHistory(t *testing.T) {
	fetcher, session := newFixture("https://a.test/1")
	ctx := context.Background()

	_, err := session.OpenTab(ctx, "https://a.test/1")
	require.NoError(t, err)
	fetchesBefore := fetcher.fetches

	_, err = session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, fetchesBefore+1, fetcher.fetches)

	// History still has a single entry, so back stays a boundary error.
	_, err = session.Back(ctx)
	assert.EqualError(t, err, "no back history")
}

func TestLoadFailureKeepsTabUsable(t *testing.T) {
	_, session := newFixture("https://a.test/1", "https://a.test/2")
	ctx := context.Background()

	_, err := session.OpenTab(ctx, "https://a.test/1")
	require.NoError(t, err)
	_, err = session.Navigate(ctx, "https://a.test/broken")
	require.Error(t, err)

	tab := session.ActiveTab()
	assert.Equal(t, "https://a.test/1", tab.URL)

	// The tab still navigates normally after the failure.
	_, err = session.Navigate(ctx, "https://a.test/2")
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/2", tab.URL)
	_, err = session.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/1", tab.URL)
}

func TestObserveDOMPopulatesHandles(t *testing.T) {
	fetcher, session := newFixture()
	fetcher.pages["https://a.test/links"] = `<html><head><title>Links</title></head><body>
<main><p>A short index of two destination pages maintained for integration checks.</p>
<a href="https://a.test/x">First destination page</a>
<a href="https://a.test/y">Second destination page</a></main></body></html>`

	_, err := session.OpenTab(context.Background(), "https://a.test/links")
	require.NoError(t, err)

	obs, err := session.ObserveDOM()
	require.NoError(t, err)
	require.NotEmpty(t, obs.Elements)

	tab := session.ActiveTab()
	for _, el := range obs.Elements {
		handle, ok := tab.Handle(el.HandleID)
		assert.True(t, ok, "handle %s missing from tab", el.HandleID)
		assert.Equal(t, el, handle.Observed)
	}
}

func TestURLPolicy(t *testing.T) {
	policy, err := NewURLPolicy([]string{"*.internal.test", "blocked.example"})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"allowed host", "https://example.com/page", false},
		{"blocked exact host", "https://blocked.example/page", true},
		{"blocked glob host", "https://db.internal.test/admin", true},
		{"case insensitive", "https://BLOCKED.EXAMPLE/x", true},
		{"non-http scheme", "ftp://example.com/file", true},
		{"missing host", "https:///path", true},
		{"not a url", "::::", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBlockedNavigationDoesNotFetch(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	observer := observe.New(config.Default().Budgets)
	policy, err := NewURLPolicy([]string{"evil.test"})
	require.NoError(t, err)
	session := NewSession(fetcher, observer, policy)

	_, err = session.OpenTab(context.Background(), "https://evil.test/payload")
	require.Error(t, err)
	assert.Zero(t, fetcher.fetches)
}

func TestTabSummaries(t *testing.T) {
	_, session := newFixture("https://a.test/1", "https://b.test/2")
	ctx := context.Background()

	_, err := session.OpenTab(ctx, "https://a.test/1")
	require.NoError(t, err)
	_, err = session.OpenTab(ctx, "https://b.test/2")
	require.NoError(t, err)

	summaries := session.TabSummaries()
	require.Len(t, summaries, 2)
	assert.False(t, summaries[0].IsActive)
	assert.True(t, summaries[1].IsActive)
	assert.Equal(t, "https://b.test", summaries[1].Origin)
}