package browser

import (
	"context"
	"fmt"

	"github.com/wayfindhq/wayfind/pkg/observe"
	"github.com/wayfindhq/wayfind/pkg/types"
)

// Tab owns one page: its markup, title, navigation history, and the
// element-handle map built by the most recent DOM observation.
type Tab struct {
	URL    string
	Title  string
	Markup string

	history      []string
	historyIndex int

	// Handles maps handle ids from the last observation to their elements.
	// Cleared on every load; rebuilt only when the tab is next observed.
	Handles map[string]types.ElementHandle

	// FormValues holds pending input set by type/select tools, keyed by
	// handle id. The simulated browser never submits them anywhere.
	FormValues map[string]string

	fetcher Fetcher
	policy  *URLPolicy
}

func newTab(fetcher Fetcher, policy *URLPolicy) *Tab {
	return &Tab{
		historyIndex: -1,
		Handles:      map[string]types.ElementHandle{},
		FormValues:   map[string]string{},
		fetcher:      fetcher,
		policy:       policy,
	}
}

// Load fetches url into the tab. When push is true the URL is appended to
// history, truncating any forward entries first; back/forward/refresh load
// with push false so replaying history never grows it.
func (t *Tab) Load(ctx context.Context, url string, push bool) error {
	if err := t.policy.Validate(url); err != nil {
		return err
	}
	markup, err := t.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	t.URL = url
	t.Markup = markup
	t.Title = observe.Title(markup)
	t.Handles = map[string]types.ElementHandle{}
	t.FormValues = map[string]string{}

	if push {
		if t.historyIndex < len(t.history)-1 {
			t.history = t.history[:t.historyIndex+1]
		}
		t.history = append(t.history, url)
		t.historyIndex = len(t.history) - 1
	}
	return nil
}

// Back replays the previous history entry without pushing a new one.
func (t *Tab) Back(ctx context.Context) error {
	if t.historyIndex <= 0 {
		return fmt.Errorf("no back history")
	}
	target := t.history[t.historyIndex-1]
	if err := t.Load(ctx, target, false); err != nil {
		return err
	}
	t.historyIndex--
	return nil
}

// Forward replays the next history entry without pushing a new one.
func (t *Tab) Forward(ctx context.Context) error {
	if t.historyIndex >= len(t.history)-1 {
		return fmt.Errorf("no forward history")
	}
	target := t.history[t.historyIndex+1]
	if err := t.Load(ctx, target, false); err != nil {
		return err
	}
	t.historyIndex++
	return nil
}

// Refresh re-fetches the tab's current URL without touching history.
func (t *Tab) Refresh(ctx context.Context) error {
	if t.historyIndex < 0 {
		return fmt.Errorf("no page loaded")
	}
	return t.Load(ctx, t.history[t.historyIndex], false)
}

// Observe runs the observer over the tab's current markup and replaces the
// handle map wholesale.
func (t *Tab) Observe(observer *observe.Observer) *types.Observation {
	obs, handles := observer.Observe(t.URL, t.Markup)
	t.Handles = handles
	return obs
}

// Handle looks up a handle id from the last observation.
func (t *Tab) Handle(id string) (types.ElementHandle, bool) {
	h, ok := t.Handles[id]
	return h, ok
}
