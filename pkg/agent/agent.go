// Package agent implements the control loop: deterministic navigation
// when the goal plan demands it, direct summarization when the goal asks
// for one, and otherwise a model consultation executing at most one tool
// call per step. The loop always returns a string within its step budget.
package agent

import (
	"context"
	"net/url"
	"strings"

	"github.com/wayfindhq/wayfind/pkg/browser"
	"github.com/wayfindhq/wayfind/pkg/goal"
	"github.com/wayfindhq/wayfind/pkg/llm"
	"github.com/wayfindhq/wayfind/pkg/llm/parser"
	"github.com/wayfindhq/wayfind/pkg/logging"
	"github.com/wayfindhq/wayfind/pkg/summary"
	"github.com/wayfindhq/wayfind/pkg/tools"
	"github.com/wayfindhq/wayfind/pkg/types"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

const (
	maxRecentTools = 20
	maxRecentPages = 6
)

// aggregatorFrontURL is where forced aggregator routing starts when the
// session is elsewhere.
const aggregatorFrontURL = "https://news.ycombinator.com"

// Options configures one agent run posture.
type Options struct {
	Mode       types.Mode
	MaxSteps   int
	DetailMode bool
}

// Agent owns one browsing session and drives it toward a goal.
type Agent struct {
	provider llm.Provider
	session  *browser.Session
	executor *tools.Executor
	svc      *summary.Service
	prompts  *PromptBuilder

	mode       types.Mode
	maxSteps   int
	detailMode bool

	recentCalls   []types.ToolCall
	recentResults []types.ToolResult
	recentPages   []types.PageBrief
	observation   *types.Observation

	goalText string
	plan     types.GoalPlan
}

// flowState tracks per-run forced-navigation progress so deterministic
// routing never loops.
type flowState struct {
	articleSeen bool
	lastForced  string
}

// New creates an agent over an already-open session. The current page is
// observed immediately so the first step has context.
func New(provider llm.Provider, session *browser.Session, svc *summary.Service, searcher tools.Searcher, opts Options) *Agent {
	a := &Agent{
		provider:   provider,
		session:    session,
		svc:        svc,
		prompts:    NewPromptBuilder(),
		mode:       opts.Mode,
		maxSteps:   opts.MaxSteps,
		detailMode: opts.DetailMode,
	}
	a.executor = tools.NewExecutor(session, opts.Mode, searcher, a.summarizeScope)
	if obs, err := session.ObserveDOM(); err == nil {
		a.observation = obs
	}
	return a
}

// Run drives the loop until a non-empty answer or step exhaustion. It
// always returns a string, possibly empty only when every step produced
// nothing.
func (a *Agent) Run(ctx context.Context, goalText string) string {
	a.goalText = goalText
	a.plan = goal.Classify(goalText)
	flow := &flowState{}
	answer := ""

	for step := 1; step <= a.maxSteps; step++ {
		if a.observation == nil {
			if obs, err := a.session.ObserveDOM(); err == nil {
				a.observation = obs
			} else {
				agentDebugLog.Warnf("no page to observe: %v", err)
				return answer
			}
		}

		if forced, skipModel := a.forcedAggregatorNavigation(flow); forced != nil {
			agentDebugLog.Infof("forcing navigation: %v", forced.Arguments["url"])
			a.execute(ctx, *forced)
			continue
		} else if skipModel {
			continue
		}

		if forced := a.forcedItemNavigation(flow); forced != nil {
			agentDebugLog.Infof("forcing item navigation: %v", forced.Arguments["url"])
			a.execute(ctx, *forced)
			continue
		}

		if a.wantsDirectSummary() {
			if text := a.summarizeCurrent(ctx); text != "" {
				return text
			}
		}

		pack := a.buildContext(step)
		system := a.prompts.SystemPrompt(a.mode)
		user := a.prompts.UserPrompt(pack, goalText, a.recentPages, a.plan)
		raw, err := a.provider.Generate(ctx, system, user)
		if err != nil {
			agentDebugLog.Warnf("model step failed: %v", err)
			continue
		}
		response := parser.Parse(raw)
		answer = strings.TrimSpace(response.Summary)

		if len(response.ToolCalls) == 0 {
			if answer != "" {
				if a.detailMode && a.needsStructuredAnswer(answer) {
					return a.structuredAnswer()
				}
				return answer
			}
			if a.detailMode {
				if retry := a.retryAnswer(ctx, step); retry != "" {
					if a.needsStructuredAnswer(retry) {
						return a.structuredAnswer()
					}
					return retry
				}
			}
			return answer
		}

		// At most one tool call per step.
		a.execute(ctx, response.ToolCalls[0])
	}
	return answer
}

// execute runs one tool call, records it in the rings, and folds any new
// observation into the rolling page history.
func (a *Agent) execute(ctx context.Context, call types.ToolCall) {
	outcome := a.executor.Execute(ctx, call)
	a.recentCalls = append(a.recentCalls, call)
	a.recentResults = append(a.recentResults, outcome.Result)
	if len(a.recentCalls) > maxRecentTools {
		a.recentCalls = a.recentCalls[len(a.recentCalls)-maxRecentTools:]
	}
	if len(a.recentResults) > maxRecentTools {
		a.recentResults = a.recentResults[len(a.recentResults)-maxRecentTools:]
	}
	if outcome.Observation != nil {
		a.updateObservation(outcome.Observation)
	}
}

// updateObservation archives the outgoing page as a brief when the URL
// changed, bounded to the last few pages.
func (a *Agent) updateObservation(obs *types.Observation) {
	if a.observation != nil && a.observation.URL != obs.URL {
		a.recentPages = append(a.recentPages, makePageBrief(a.observation))
		if len(a.recentPages) > maxRecentPages {
			a.recentPages = a.recentPages[len(a.recentPages)-maxRecentPages:]
		}
	}
	a.observation = obs
}

// makePageBrief compacts an observation for the rolling page history.
func makePageBrief(obs *types.Observation) types.PageBrief {
	excerpt := obs.Text
	if len(excerpt) > 320 {
		excerpt = excerpt[:320]
	}
	var links []string
	for _, el := range mainLinkCandidates(obs.Elements) {
		links = append(links, strings.TrimSpace(el.Label))
	}
	return types.PageBrief{
		URL:         obs.URL,
		Title:       obs.Title,
		TextExcerpt: excerpt,
		MainLinks:   links,
		Topics:      obs.Topics,
		Story:       obs.Story,
	}
}

// forcedAggregatorNavigation routes ordinal topic/comments goals on the
// known aggregator: off-site goes to the front page first, comments goals
// visit the article before the discussion, and every hop is compared to
// the current URL so routing never re-triggers.
func (a *Agent) forcedAggregatorNavigation(flow *flowState) (*types.ToolCall, bool) {
	if a.mode != types.ModeAssist || a.plan.TopicIndex < 0 {
		return nil, false
	}

	topics := a.latestTopics()
	if len(topics) == 0 {
		if !isAggregatorFront(a.observation.URL) {
			return a.forcedNavigate(flow, aggregatorFrontURL)
		}
		return nil, false
	}
	if a.plan.TopicIndex >= len(topics) {
		return nil, false
	}

	topic := topics[a.plan.TopicIndex]
	if topic.URL == "" && topic.CommentsURL == "" {
		return nil, false
	}
	current := strings.TrimRight(a.observation.URL, "/")

	if a.plan.WantsComments {
		if !flow.articleSeen {
			if topic.URL != "" && current != strings.TrimRight(topic.URL, "/") {
				return a.forcedNavigate(flow, topic.URL)
			}
			flow.articleSeen = true
			return nil, true
		}
		if topic.CommentsURL != "" && current != strings.TrimRight(topic.CommentsURL, "/") {
			return a.forcedNavigate(flow, topic.CommentsURL)
		}
		return nil, false
	}

	if topic.URL != "" && current != strings.TrimRight(topic.URL, "/") {
		return a.forcedNavigate(flow, topic.URL)
	}
	return nil, false
}

// forcedItemNavigation routes general list goals: when the current page
// has a matching item and the session is not on it yet, navigate there
// (or to its comments link), memoizing the target to avoid loops.
func (a *Agent) forcedItemNavigation(flow *flowState) *types.ToolCall {
	if a.mode != types.ModeAssist || !a.plan.HasTargeting() {
		return nil
	}
	if isAggregatorURL(a.observation.URL) {
		return nil
	}
	item, ok := summary.SelectItem(a.observation, a.plan)
	if !ok {
		return nil
	}

	target := item.URL
	if a.plan.WantsComments {
		for _, link := range item.Links {
			if isCommentLinkLabel(link.Title) && link.URL != "" {
				target = link.URL
				break
			}
		}
	}
	if target == "" {
		return nil
	}
	current := strings.TrimRight(a.observation.URL, "/")
	if current == strings.TrimRight(target, "/") || flow.lastForced == target {
		return nil
	}
	call, _ := a.forcedNavigate(flow, target)
	return call
}

func (a *Agent) forcedNavigate(flow *flowState, target string) (*types.ToolCall, bool) {
	if flow.lastForced == target {
		return nil, false
	}
	flow.lastForced = target
	call := types.NewToolCall(types.ToolNavigate, map[string]any{"url": target})
	return &call, true
}

// latestTopics returns the current page's topics, else the most recent
// brief that carried any.
func (a *Agent) latestTopics() []types.TopicSummary {
	if len(a.observation.Topics) > 0 {
		return a.observation.Topics
	}
	for i := len(a.recentPages) - 1; i >= 0; i-- {
		if len(a.recentPages[i].Topics) > 0 {
			return a.recentPages[i].Topics
		}
	}
	return nil
}

// summaryTriggers are goal phrases that send the loop straight to the
// summarization pipeline.
var summaryTriggers = []string{
	"summarize", "summary", "overview", "tl;dr", "tldr",
	"what is this page", "what's this page",
}

// wantsDirectSummary reports whether the goal is a summarization request:
// an explicit trigger phrase, or any item/comment targeting (once the
// forced navigation paths have put the session on the target).
func (a *Agent) wantsDirectSummary() bool {
	if a.plan.HasTargeting() || a.plan.WantsComments {
		return true
	}
	lower := strings.ToLower(a.goalText)
	for _, trigger := range summaryTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// summarizeCurrent runs the pipeline over the current observation.
func (a *Agent) summarizeCurrent(ctx context.Context) string {
	input := summary.BuildInput(a.observation, a.plan, a.plan.WantsComments)
	text, err := a.svc.Summarize(ctx, a.goalText, input)
	if err != nil {
		agentDebugLog.Warnf("summarization failed: %v", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// structuredAnswer synthesizes the shaped extractive answer for detail
// mode when free-form output misses the expected headings.
func (a *Agent) structuredAnswer() string {
	input := summary.BuildInput(a.observation, a.plan, a.plan.WantsComments)
	return summary.Fallback(input)
}

// needsStructuredAnswer checks a free-form answer against the headings the
// goal plan expects.
func (a *Agent) needsStructuredAnswer(answer string) bool {
	if a.plan.TopicIndex < 0 {
		return false
	}
	expected := []string{"topic overview:", "what it is:"}
	if a.plan.WantsComments {
		expected = []string{"topic overview:", "comment themes:"}
	}
	lower := strings.ToLower(answer)
	for _, section := range expected {
		if !strings.Contains(lower, section) {
			return true
		}
	}
	return false
}

// retryAnswer makes one compacted, schema-constrained attempt when detail
// mode got an empty answer.
func (a *Agent) retryAnswer(ctx context.Context, step int) string {
	pack := a.buildContext(step)
	system := a.prompts.RetrySystemPrompt()
	user := a.prompts.CompactUserPrompt(pack, a.goalText, a.plan)
	raw, err := a.provider.Generate(ctx, system, user)
	if err != nil {
		agentDebugLog.Warnf("retry failed: %v", err)
		return ""
	}
	return strings.TrimSpace(parser.Parse(raw).Summary)
}

// summarizeScope answers content.summarize tool calls from the executor.
func (a *Agent) summarizeScope(ctx context.Context, scope, handleID string) (string, error) {
	if handleID != "" {
		tab := a.session.ActiveTab()
		if tab != nil {
			if handle, ok := tab.Handle(handleID); ok {
				return tools.ExcerptText(handle.Text, 3), nil
			}
		}
		return "", nil
	}
	plan := types.DefaultGoalPlan()
	input := summary.BuildInput(a.observation, plan, scope == "comments")
	return a.svc.Summarize(ctx, a.goalText, input)
}

func (a *Agent) buildContext(step int) types.ContextPack {
	origin := ""
	if parsed, err := url.Parse(a.observation.URL); err == nil {
		origin = parsed.Host
	}
	return types.ContextPack{
		Origin:            origin,
		Mode:              a.mode,
		Observation:       a.observation,
		RecentToolCalls:   a.recentCalls,
		RecentToolResults: a.recentResults,
		Tabs:              a.session.TabSummaries(),
		Step:              step,
		MaxSteps:          a.maxSteps,
	}
}

// isAggregatorFront matches the aggregator's front-page style paths.
func isAggregatorFront(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(parsed.Hostname(), "news.ycombinator.com") {
		return false
	}
	switch parsed.Path {
	case "", "/", "/news", "/newest", "/front":
		return true
	}
	return false
}

func isAggregatorURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), "news.ycombinator.com")
}

// isCommentLinkLabel matches secondary links that point at a discussion.
func isCommentLinkLabel(label string) bool {
	lower := strings.ToLower(label)
	return strings.Contains(lower, "comment") || strings.Contains(lower, "discuss") ||
		strings.Contains(lower, "thread")
}
