package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfindhq/wayfind/pkg/browser"
	"github.com/wayfindhq/wayfind/pkg/config"
	"github.com/wayfindhq/wayfind/pkg/observe"
	"github.com/wayfindhq/wayfind/pkg/types"
)

// mapFetcher serves canned markup keyed by URL.
type mapFetcher struct {
	pages map[string]string
}

func (f *mapFetcher) Fetch(_ context.Context, url string) (string, error) {
	markup, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: not found", url)
	}
	return markup, nil
}

const startPage = `<html><head><title>Start</title></head><body>
<main>
<p>This page introduces a small catalog of engineering articles written for practitioners.
Each article covers one production incident and the fix that followed it.</p>
<a href="https://example.com/next">Read the follow-up article on caching</a>
<form><input type="text" name="q" placeholder="Search articles"></form>
</main>
</body></html>`

const nextPage = `<html><head><title>Next</title></head><body>
<main><p>The follow-up article explains how a cache stampede took down the search cluster
and how request coalescing prevented the repeat incident.</p></main>
</body></html>`

func newTestSession(t *testing.T) *browser.Session {
	t.Helper()
	fetcher := &mapFetcher{pages: map[string]string{
		"https://example.com/start": startPage,
		"https://example.com/next":  nextPage,
	}}
	observer := observe.New(config.Default().Budgets)
	policy, err := browser.NewURLPolicy(nil)
	require.NoError(t, err)
	session := browser.NewSession(fetcher, observer, policy)
	_, err = session.OpenTab(context.Background(), "https://example.com/start")
	require.NoError(t, err)
	return session
}

// findHandle locates the first observed element matching a role predicate.
func findHandle(t *testing.T, session *browser.Session, match func(types.ObservedElement) bool) string {
	t.Helper()
	obs, err := session.ObserveDOM()
	require.NoError(t, err)
	for _, el := range obs.Elements {
		if match(el) {
			return el.HandleID
		}
	}
	t.Fatal("no matching element found")
	return ""
}

func TestExecutorObserveModeGate(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeObserve, nil, nil)

	blocked := types.NewToolCall(types.ToolNavigate, map[string]any{"url": "https://example.com/next"})
	outcome := exec.Execute(context.Background(), blocked)
	assert.Equal(t, types.StatusError, outcome.Result.Status)
	assert.Equal(t, ErrObserveModeBlocksTool, outcome.Result.Payload["error"])

	allowed := types.NewToolCall(types.ToolObserveDOM, nil)
	outcome = exec.Execute(context.Background(), allowed)
	assert.Equal(t, types.StatusOK, outcome.Result.Status)
	require.NotNil(t, outcome.Observation)
	assert.Equal(t, "Start", outcome.Observation.Title)
}

func TestExecutorValidationFailure(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolClick, nil))
	assert.Equal(t, types.StatusError, outcome.Result.Status)
	assert.Equal(t, ErrValidation, outcome.Result.Payload["error"])
}

func TestExecutorUnknownHandle(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolClick, map[string]any{"handleId": "wf-999"}))
	assert.Equal(t, types.StatusError, outcome.Result.Status)
	assert.Equal(t, ErrUnknownHandle, outcome.Result.Payload["error"])
}

func TestExecutorClickAnchorNavigates(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	anchorID := findHandle(t, session, func(el types.ObservedElement) bool {
		return el.Role == "anchor" && el.Href == "https://example.com/next"
	})
	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolClick, map[string]any{"handleId": anchorID}))
	require.Equal(t, types.StatusOK, outcome.Result.Status)
	require.NotNil(t, outcome.Observation)
	assert.Equal(t, "https://example.com/next", outcome.Result.Payload["url"])
	assert.Equal(t, "Next", outcome.Observation.Title)
}

func TestExecutorTypeStoresFormValue(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	inputID := findHandle(t, session, func(el types.ObservedElement) bool {
		return el.Role == "input"
	})
	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolType, map[string]any{
		"handleId": inputID,
		"text":     "cache stampede",
	}))
	require.Equal(t, types.StatusOK, outcome.Result.Status)
	assert.Equal(t, "cache stampede", session.ActiveTab().FormValues[inputID])
}

func TestExecutorNavigateFetchFailure(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolNavigate, map[string]any{
		"url": "https://example.com/missing",
	}))
	assert.Equal(t, types.StatusError, outcome.Result.Status)
	assert.Equal(t, ErrFetchFailed, outcome.Result.Payload["error"])
	// The active tab keeps the last good page.
	assert.Equal(t, "https://example.com/start", session.ActiveTab().URL)
}

func TestExecutorHistoryBoundary(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolBack, nil))
	assert.Equal(t, types.StatusError, outcome.Result.Status)
	assert.Equal(t, ErrHistory, outcome.Result.Payload["error"])
}

func TestExecutorBackForwardRoundTrip(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolNavigate, map[string]any{
		"url": "https://example.com/next",
	}))
	require.Equal(t, types.StatusOK, outcome.Result.Status)

	outcome = exec.Execute(context.Background(), types.NewToolCall(types.ToolBack, nil))
	require.Equal(t, types.StatusOK, outcome.Result.Status)
	assert.Equal(t, "https://example.com/start", outcome.Result.Payload["url"])

	outcome = exec.Execute(context.Background(), types.NewToolCall(types.ToolForward, nil))
	require.Equal(t, types.StatusOK, outcome.Result.Status)
	assert.Equal(t, "https://example.com/next", outcome.Result.Payload["url"])
}

func TestExecutorFindOnPage(t *testing.T) {
	session := newTestSession(t)
	exec := NewExecutor(session, types.ModeAssist, nil, nil)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolContentFind, map[string]any{
		"query": "production incident",
	}))
	require.Equal(t, types.StatusOK, outcome.Result.Status)
	matches, ok := outcome.Result.Payload["matches"].([]string)
	require.True(t, ok)
	require.NotEmpty(t, matches)
	assert.Contains(t, matches[0], "production incident")
}

func TestExecutorSummarizeDelegates(t *testing.T) {
	session := newTestSession(t)
	var gotScope string
	summarize := func(_ context.Context, scope, handleID string) (string, error) {
		gotScope = scope
		return "a short summary", nil
	}
	exec := NewExecutor(session, types.ModeAssist, nil, summarize)

	outcome := exec.Execute(context.Background(), types.NewToolCall(types.ToolContentSummarize, nil))
	require.Equal(t, types.StatusOK, outcome.Result.Status)
	assert.Equal(t, "page", gotScope)
	assert.Equal(t, "a short summary", outcome.Result.Payload["summary"])
}
