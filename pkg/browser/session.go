package browser

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wayfindhq/wayfind/pkg/logging"
	"github.com/wayfindhq/wayfind/pkg/observe"
	"github.com/wayfindhq/wayfind/pkg/types"
)

var browserDebugLog *logging.Logger

func init() {
	var err error
	browserDebugLog, err = logging.NewLogger("browser")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		browserDebugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Session owns the open tabs and routes navigation to the active one.
// A session belongs to exactly one agent; nothing here is safe for
// concurrent use and nothing needs to be.
type Session struct {
	tabs     []*Tab
	active   int
	fetcher  Fetcher
	observer *observe.Observer
	policy   *URLPolicy
}

// NewSession creates an empty session.
func NewSession(fetcher Fetcher, observer *observe.Observer, policy *URLPolicy) *Session {
	return &Session{
		active:   -1,
		fetcher:  fetcher,
		observer: observer,
		policy:   policy,
	}
}

// ActiveTab returns the active tab, or nil when no tab is open.
func (s *Session) ActiveTab() *Tab {
	if s.active < 0 || s.active >= len(s.tabs) {
		return nil
	}
	return s.tabs[s.active]
}

// OpenTab loads url into a new tab and makes it active. A failed load
// leaves the session unchanged; no broken tab is added.
func (s *Session) OpenTab(ctx context.Context, rawURL string) (*Tab, error) {
	tab := newTab(s.fetcher, s.policy)
	if err := tab.Load(ctx, rawURL, true); err != nil {
		browserDebugLog.Warnf("open_tab %s failed: %v", rawURL, err)
		return nil, err
	}
	s.tabs = append(s.tabs, tab)
	s.active = len(s.tabs) - 1
	browserDebugLog.Infof("opened tab %d: %s", s.active, rawURL)
	return tab, nil
}

// Navigate loads url in the active tab, or opens a new tab when none
// exists.
func (s *Session) Navigate(ctx context.Context, rawURL string) (*Tab, error) {
	tab := s.ActiveTab()
	if tab == nil {
		return s.OpenTab(ctx, rawURL)
	}
	if err := tab.Load(ctx, rawURL, true); err != nil {
		browserDebugLog.Warnf("navigate %s failed: %v", rawURL, err)
		return nil, err
	}
	return tab, nil
}

// Back replays history in the active tab.
func (s *Session) Back(ctx context.Context) (*Tab, error) {
	tab := s.ActiveTab()
	if tab == nil {
		return nil, fmt.Errorf("no active tab")
	}
	if err := tab.Back(ctx); err != nil {
		return nil, err
	}
	return tab, nil
}

// Forward replays history in the active tab.
func (s *Session) Forward(ctx context.Context) (*Tab, error) {
	tab := s.ActiveTab()
	if tab == nil {
		return nil, fmt.Errorf("no active tab")
	}
	if err := tab.Forward(ctx); err != nil {
		return nil, err
	}
	return tab, nil
}

// Refresh re-fetches the active tab's current page.
func (s *Session) Refresh(ctx context.Context) (*Tab, error) {
	tab := s.ActiveTab()
	if tab == nil {
		return nil, fmt.Errorf("no active tab")
	}
	if err := tab.Refresh(ctx); err != nil {
		return nil, err
	}
	return tab, nil
}

// ObserveDOM re-observes the active tab with the session's observer.
func (s *Session) ObserveDOM() (*types.Observation, error) {
	tab := s.ActiveTab()
	if tab == nil {
		return nil, fmt.Errorf("no active tab")
	}
	return tab.Observe(s.observer), nil
}

// ObserveDOMWith re-observes the active tab with a different observer,
// used for per-call budget overrides.
func (s *Session) ObserveDOMWith(observer *observe.Observer) (*types.Observation, error) {
	tab := s.ActiveTab()
	if tab == nil {
		return nil, fmt.Errorf("no active tab")
	}
	return tab.Observe(observer), nil
}

// Observer returns the session's default observer.
func (s *Session) Observer() *observe.Observer { return s.observer }

// TabSummaries describes every open tab for prompt construction.
func (s *Session) TabSummaries() []types.TabSummary {
	summaries := make([]types.TabSummary, 0, len(s.tabs))
	for i, tab := range s.tabs {
		summaries = append(summaries, types.TabSummary{
			Title:    tab.Title,
			URL:      tab.URL,
			Origin:   originOf(tab.URL),
			IsActive: i == s.active,
		})
	}
	return summaries
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
