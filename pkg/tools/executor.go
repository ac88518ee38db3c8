package tools

import (
	"context"
	"fmt"

	"github.com/wayfindhq/wayfind/pkg/browser"
	"github.com/wayfindhq/wayfind/pkg/logging"
	"github.com/wayfindhq/wayfind/pkg/types"
)

var toolsDebugLog *logging.Logger

func init() {
	var err error
	toolsDebugLog, err = logging.NewLogger("tools")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		toolsDebugLog.Warnf("Failed to initialize tools logger, using stderr fallback: %v", err)
	}
}

// Error codes surfaced in failed tool-result payloads.
const (
	ErrFetchFailed           = "fetch_failed"
	ErrUnknownHandle         = "unknown_handle"
	ErrValidation            = "validation"
	ErrObserveModeBlocksTool = "observe_mode_blocks_tool"
	ErrNoActiveTab           = "no_active_tab"
	ErrHistory               = "history"
	ErrUnavailable           = "unavailable"
)

// SummarizeFunc answers content.summarize calls. The agent wires this to
// its summarization pipeline; scope is page/item/comments, or empty when a
// specific handle id is targeted instead.
type SummarizeFunc func(ctx context.Context, scope, handleID string) (string, error)

// Executor runs validated tool calls against one browser session, applying
// the mode policy gate first.
type Executor struct {
	session   *browser.Session
	mode      types.Mode
	searcher  Searcher
	summarize SummarizeFunc
}

// NewExecutor creates an executor for the session in the given mode.
func NewExecutor(session *browser.Session, mode types.Mode, searcher Searcher, summarize SummarizeFunc) *Executor {
	return &Executor{
		session:   session,
		mode:      mode,
		searcher:  searcher,
		summarize: summarize,
	}
}

// Execute validates and runs one tool call. Failures come back as error
// results, never as Go errors; the agent loop is the only caller and it
// treats every outcome uniformly.
func (e *Executor) Execute(ctx context.Context, call types.ToolCall) types.ToolExecutionOutcome {
	if e.mode == types.ModeObserve && call.Name != types.ToolObserveDOM {
		return e.fail(call, ErrObserveModeBlocksTool,
			fmt.Sprintf("tool %s is not allowed in observe mode", call.Name))
	}
	if err := ValidateCall(call); err != nil {
		return e.fail(call, ErrValidation, err.Error())
	}

	toolsDebugLog.Debugf("executing %s", call.Name)
	switch call.Name {
	case types.ToolObserveDOM:
		return e.execObserveDOM(call)
	case types.ToolClick:
		return e.execClick(ctx, call)
	case types.ToolType:
		return e.execType(call)
	case types.ToolSelect:
		return e.execSelect(call)
	case types.ToolScroll:
		return e.execScroll(call)
	case types.ToolOpenTab:
		return e.execOpenTab(ctx, call)
	case types.ToolNavigate:
		return e.execNavigate(ctx, call)
	case types.ToolBack:
		return e.execHistory(ctx, call, e.session.Back, "no back history")
	case types.ToolForward:
		return e.execHistory(ctx, call, e.session.Forward, "no forward history")
	case types.ToolRefresh:
		return e.execHistory(ctx, call, e.session.Refresh, "no page loaded")
	case types.ToolContentSummarize:
		return e.execSummarize(ctx, call)
	case types.ToolContentFind:
		return e.execFind(ctx, call)
	}
	return e.fail(call, ErrValidation, fmt.Sprintf("unknown tool %q", call.Name))
}

func (e *Executor) execObserveDOM(call types.ToolCall) types.ToolExecutionOutcome {
	tab := e.session.ActiveTab()
	if tab == nil {
		return e.fail(call, ErrNoActiveTab, "no active tab to observe")
	}

	observer := e.session.Observer()
	budgets := observer.Budgets()
	if v, ok := argInt(call.Arguments, "maxChars"); ok {
		budgets.MaxChars = v
	}
	if v, ok := argInt(call.Arguments, "maxElements"); ok {
		budgets.MaxElements = v
	}
	obs, err := e.session.ObserveDOMWith(observer.WithBudgets(budgets))
	if err != nil {
		return e.fail(call, ErrNoActiveTab, err.Error())
	}
	return types.ToolExecutionOutcome{
		Result:      e.ok(call, map[string]any{"url": obs.URL, "title": obs.Title}),
		Observation: obs,
	}
}

func (e *Executor) execClick(ctx context.Context, call types.ToolCall) types.ToolExecutionOutcome {
	tab := e.session.ActiveTab()
	if tab == nil {
		return e.fail(call, ErrNoActiveTab, "no active tab")
	}
	id, _ := call.Arguments["handleId"].(string)
	handle, ok := tab.Handle(id)
	if !ok {
		return e.fail(call, ErrUnknownHandle, fmt.Sprintf("unknown handle id %q", id))
	}

	// Clicking an anchor navigates; anything else only touches tab state.
	if handle.Observed.Role == "anchor" && handle.Observed.Href != "" {
		return e.navigateTo(ctx, call, handle.Observed.Href)
	}
	return types.ToolExecutionOutcome{Result: e.ok(call, map[string]any{
		"clicked": id,
		"label":   handle.Observed.Label,
	})}
}

func (e *Executor) execType(call types.ToolCall) types.ToolExecutionOutcome {
	return e.setFormValue(call, "text")
}

func (e *Executor) execSelect(call types.ToolCall) types.ToolExecutionOutcome {
	return e.setFormValue(call, "value")
}

// setFormValue stores a pending form value on the tab for type/select.
func (e *Executor) setFormValue(call types.ToolCall, argKey string) types.ToolExecutionOutcome {
	tab := e.session.ActiveTab()
	if tab == nil {
		return e.fail(call, ErrNoActiveTab, "no active tab")
	}
	id, _ := call.Arguments["handleId"].(string)
	handle, ok := tab.Handle(id)
	if !ok {
		return e.fail(call, ErrUnknownHandle, fmt.Sprintf("unknown handle id %q", id))
	}
	value, _ := call.Arguments[argKey].(string)
	tab.FormValues[id] = value
	return types.ToolExecutionOutcome{Result: e.ok(call, map[string]any{
		"handleId": id,
		"label":    handle.Observed.Label,
		"applied":  true,
	})}
}

func (e *Executor) execScroll(call types.ToolCall) types.ToolExecutionOutcome {
	deltaY, _ := argInt(call.Arguments, "deltaY")
	// The simulated browser has no viewport; the signal is acknowledged so
	// the model's scroll intent is visible in the transcript.
	return types.ToolExecutionOutcome{Result: e.ok(call, map[string]any{"deltaY": deltaY})}
}

func (e *Executor) execOpenTab(ctx context.Context, call types.ToolCall) types.ToolExecutionOutcome {
	url, _ := call.Arguments["url"].(string)
	if _, err := e.session.OpenTab(ctx, url); err != nil {
		return e.fail(call, ErrFetchFailed, err.Error())
	}
	return e.observeAfterNavigation(call)
}

func (e *Executor) execNavigate(ctx context.Context, call types.ToolCall) types.ToolExecutionOutcome {
	url, _ := call.Arguments["url"].(string)
	return e.navigateTo(ctx, call, url)
}

func (e *Executor) navigateTo(ctx context.Context, call types.ToolCall, url string) types.ToolExecutionOutcome {
	if _, err := e.session.Navigate(ctx, url); err != nil {
		return e.fail(call, ErrFetchFailed, err.Error())
	}
	return e.observeAfterNavigation(call)
}

func (e *Executor) execHistory(ctx context.Context, call types.ToolCall, move func(context.Context) (*browser.Tab, error), boundary string) types.ToolExecutionOutcome {
	if _, err := move(ctx); err != nil {
		code := ErrFetchFailed
		if err.Error() == boundary || e.session.ActiveTab() == nil {
			code = ErrHistory
		}
		return e.fail(call, code, err.Error())
	}
	return e.observeAfterNavigation(call)
}

// observeAfterNavigation produces the fresh observation every successful
// navigation-class call carries, with {url, title} in the payload.
func (e *Executor) observeAfterNavigation(call types.ToolCall) types.ToolExecutionOutcome {
	obs, err := e.session.ObserveDOM()
	if err != nil {
		return e.fail(call, ErrNoActiveTab, err.Error())
	}
	return types.ToolExecutionOutcome{
		Result:      e.ok(call, map[string]any{"url": obs.URL, "title": obs.Title}),
		Observation: obs,
	}
}

func (e *Executor) execSummarize(ctx context.Context, call types.ToolCall) types.ToolExecutionOutcome {
	if e.summarize == nil {
		return e.fail(call, ErrUnavailable, "no summarizer configured")
	}
	scope, _ := call.Arguments["scope"].(string)
	handleID, _ := call.Arguments["handleId"].(string)
	if scope == "" && handleID == "" {
		scope = "page"
	}
	if handleID != "" {
		tab := e.session.ActiveTab()
		if tab == nil {
			return e.fail(call, ErrNoActiveTab, "no active tab")
		}
		if _, ok := tab.Handle(handleID); !ok {
			return e.fail(call, ErrUnknownHandle, fmt.Sprintf("unknown handle id %q", handleID))
		}
	}
	summary, err := e.summarize(ctx, scope, handleID)
	if err != nil {
		return e.fail(call, ErrUnavailable, err.Error())
	}
	return types.ToolExecutionOutcome{Result: e.ok(call, map[string]any{"summary": summary})}
}

func (e *Executor) execFind(ctx context.Context, call types.ToolCall) types.ToolExecutionOutcome {
	query, _ := call.Arguments["query"].(string)
	scope, _ := call.Arguments["scope"].(string)
	if scope == "" {
		scope = "page"
	}

	if scope == "web" {
		if e.searcher == nil {
			return e.fail(call, ErrUnavailable, "no web searcher configured")
		}
		results, err := e.searcher.Search(ctx, query)
		if err != nil {
			return e.fail(call, ErrFetchFailed, err.Error())
		}
		return types.ToolExecutionOutcome{Result: e.ok(call, map[string]any{
			"query":   query,
			"results": results,
		})}
	}

	obs, err := e.session.ObserveDOM()
	if err != nil {
		return e.fail(call, ErrNoActiveTab, err.Error())
	}
	return types.ToolExecutionOutcome{Result: e.ok(call, map[string]any{
		"query":   query,
		"matches": FindMatches(obs.Text, query),
	})}
}

func (e *Executor) ok(call types.ToolCall, payload map[string]any) types.ToolResult {
	return types.ToolResult{ToolCallID: call.ID, Status: types.StatusOK, Payload: payload}
}

func (e *Executor) fail(call types.ToolCall, code, message string) types.ToolExecutionOutcome {
	toolsDebugLog.Warnf("%s failed: %s (%s)", call.Name, message, code)
	return types.ToolExecutionOutcome{Result: types.ToolResult{
		ToolCallID: call.ID,
		Status:     types.StatusError,
		Payload:    map[string]any{"error": code, "message": message},
	}}
}

// argInt reads a numeric argument that may arrive as any JSON number type.
func argInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
