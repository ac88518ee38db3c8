package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfindhq/wayfind/pkg/browser"
	"github.com/wayfindhq/wayfind/pkg/config"
	"github.com/wayfindhq/wayfind/pkg/llm"
	"github.com/wayfindhq/wayfind/pkg/observe"
	"github.com/wayfindhq/wayfind/pkg/summary"
	"github.com/wayfindhq/wayfind/pkg/types"
)

// scriptedProvider replays queued Generate responses and returns one fixed
// GenerateText response.
type scriptedProvider struct {
	generateQueue []string
	generateCalls int
	textResponse  string
	textErr       error
	textCalls     int
}

func (p *scriptedProvider) Generate(context.Context, string, string) (string, error) {
	if p.generateCalls >= len(p.generateQueue) {
		return "", errors.New("no scripted response left")
	}
	resp := p.generateQueue[p.generateCalls]
	p.generateCalls++
	return resp, nil
}

func (p *scriptedProvider) GenerateText(context.Context, string, string, llm.SamplingParams) (string, error) {
	p.textCalls++
	return p.textResponse, p.textErr
}

type fetchRecorder struct {
	pages   map[string]string
	fetched []string
}

func (f *fetchRecorder) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	markup, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: not found", url)
	}
	return markup, nil
}

const frontMarkup = `<html><head><title>Hacker News</title></head><body><center><table>
<tr class="athing" id="1"><td><span class="rank">1.</span></td>
<td class="title"><span class="titleline"><a href="https://alpha.example/post">Alpha: tracing a kernel scheduler regression</a></span></td></tr>
<tr><td class="subtext"><span class="score">120 points</span> by <a class="hnuser" href="user?id=ada">ada</a> <a href="item?id=1">64 comments</a></td></tr>
<tr class="athing" id="2"><td><span class="rank">2.</span></td>
<td class="title"><span class="titleline"><a href="https://beta.example/post">Beta: shipping a database migration without downtime</a></span></td></tr>
<tr><td class="subtext"><span class="score">75 points</span> by <a class="hnuser" href="user?id=bo">bo</a> <a href="item?id=2">31 comments</a></td></tr>
<tr class="athing" id="3"><td><span class="rank">3.</span></td>
<td class="title"><span class="titleline"><a href="https://gamma.example/post">Gamma: load testing with replayed traffic</a></span></td></tr>
<tr><td class="subtext"><span class="score">44 points</span> by <a class="hnuser" href="user?id=cy">cy</a> <a href="item?id=3">9 comments</a></td></tr>
</table></center></body></html>`

const alphaArticle = `<html><head><title>Alpha: tracing a kernel scheduler regression</title></head><body>
<main><article>
<h1>Alpha: tracing a kernel scheduler regression</h1>
<p>After an upgrade, p99 latency doubled on hosts running the new scheduler default.
Tracing showed tasks migrating between cores far more often than before, evicting warm caches.
Pinning the worker pools restored the old latency profile within a day.</p>
</article></main>
</body></html>`

const betaArticle = `<html><head><title>Beta: shipping a database migration without downtime</title></head><body>
<main><article>
<h1>Beta: shipping a database migration without downtime</h1>
<p>The team used a double-write phase for two weeks, verified row counts nightly,
and flipped reads behind a flag once drift stayed at zero for five days.</p>
</article></main>
</body></html>`

const alphaThread = `<html><head><title>Alpha: tracing a kernel scheduler regression | Hacker News</title></head><body><center><table>
<tr class="athing" id="1">
<td class="title"><span class="titleline"><a href="https://alpha.example/post">Alpha: tracing a kernel scheduler regression</a></span></td></tr>
<tr><td class="subtext"><span class="score">120 points</span></td></tr>
<tr class="athing comtr" id="101"><td><table><tr>
<td class="ind"><img src="s.gif" width="0" height="1"></td>
<td><a class="hnuser" href="user?id=kim">kim</a> <span class="age">3 hours ago</span>
<div class="commtext c00">We saw the same cache eviction pattern because the Scheduler rebalances too eagerly under bursty load.</div>
</td></tr></table></td></tr>
<tr class="athing comtr" id="102"><td><table><tr>
<td class="ind"><img src="s.gif" width="40" height="1"></td>
<td><a class="hnuser" href="user?id=lee">lee</a> <span class="age">2 hours ago</span>
<div class="commtext c00">Pinning worker pools means you trade Scheduler flexibility for cache warmth, which is usually worth it.</div>
</td></tr></table></td></tr>
</table></center></body></html>`

func newAgentFixture(t *testing.T, provider llm.Provider, startURL string) (*Agent, *fetchRecorder) {
	t.Helper()
	fetcher := &fetchRecorder{pages: map[string]string{
		"https://news.ycombinator.com/":          frontMarkup,
		"https://alpha.example/post":             alphaArticle,
		"https://beta.example/post":              betaArticle,
		"https://news.ycombinator.com/item?id=1": alphaThread,
	}}
	observer := observe.New(config.Default().Budgets)
	policy, err := browser.NewURLPolicy(nil)
	require.NoError(t, err)
	session := browser.NewSession(fetcher, observer, policy)
	_, err = session.OpenTab(context.Background(), startURL)
	require.NoError(t, err)

	svc := summary.NewService(provider, nil, config.Default(), false)
	a := New(provider, session, svc, nil, Options{
		Mode:     types.ModeAssist,
		MaxSteps: 6,
	})
	return a, fetcher
}

func TestRunFirstTopicComments(t *testing.T) {
	// GenerateText returns ungrounded output so the extractive fallback
	// produces the final comments-shaped answer.
	provider := &scriptedProvider{textResponse: "A vague unrelated remark."}
	a, fetcher := newAgentFixture(t, provider, "https://news.ycombinator.com/")

	answer := a.Run(context.Background(), "summarize the comments on the first topic")
	require.NotEmpty(t, answer)

	// The forced flow visits the article before the discussion.
	assert.Equal(t, []string{
		"https://news.ycombinator.com/",
		"https://alpha.example/post",
		"https://news.ycombinator.com/item?id=1",
	}, fetcher.fetched)

	assert.Contains(t, answer, "Comment themes:")
	assert.Contains(t, answer, "Topic overview:")
	assert.Contains(t, answer, "kim")
	// The model was never consulted for a decision step.
	assert.Zero(t, provider.generateCalls)
}

func TestRunSecondTopicArticle(t *testing.T) {
	provider := &scriptedProvider{textErr: errors.New("model unavailable")}
	a, fetcher := newAgentFixture(t, provider, "https://news.ycombinator.com/")

	answer := a.Run(context.Background(), "summarize the second story")
	require.NotEmpty(t, answer)

	assert.Equal(t, []string{
		"https://news.ycombinator.com/",
		"https://beta.example/post",
	}, fetcher.fetched)

	// Extractive fallback over the article body.
	assert.Contains(t, answer, "double-write")
}

func TestRunModelDrivenNavigation(t *testing.T) {
	provider := &scriptedProvider{
		generateQueue: []string{
			`{"summary": "", "tool_calls": [{"name": "browser.navigate", "arguments": {"url": "https://beta.example/post"}}]}`,
			`{"summary": "The migration used a double-write phase behind a flag.", "tool_calls": []}`,
		},
	}
	a, fetcher := newAgentFixture(t, provider, "https://alpha.example/post")

	answer := a.Run(context.Background(), "figure out how the beta team migrated their database")
	assert.Equal(t, "The migration used a double-write phase behind a flag.", answer)
	assert.Equal(t, 2, provider.generateCalls)
	assert.Equal(t, []string{
		"https://alpha.example/post",
		"https://beta.example/post",
	}, fetcher.fetched)
}

func TestRunStopsAtStepBudget(t *testing.T) {
	// The model keeps asking for refreshes and never answers.
	loop := `{"summary": "", "tool_calls": [{"name": "browser.refresh", "arguments": {}}]}`
	provider := &scriptedProvider{
		generateQueue: []string{loop, loop, loop, loop, loop, loop, loop, loop},
	}
	a, _ := newAgentFixture(t, provider, "https://alpha.example/post")

	answer := a.Run(context.Background(), "keep reloading until something changes")
	assert.Empty(t, answer)
	assert.Equal(t, 6, provider.generateCalls)
}

func TestRunObserveModeNeverNavigates(t *testing.T) {
	provider := &scriptedProvider{textErr: errors.New("model unavailable")}
	fetcher := &fetchRecorder{pages: map[string]string{
		"https://news.ycombinator.com/": frontMarkup,
	}}
	observer := observe.New(config.Default().Budgets)
	policy, err := browser.NewURLPolicy(nil)
	require.NoError(t, err)
	session := browser.NewSession(fetcher, observer, policy)
	_, err = session.OpenTab(context.Background(), "https://news.ycombinator.com/")
	require.NoError(t, err)

	svc := summary.NewService(provider, nil, config.Default(), false)
	a := New(provider, session, svc, nil, Options{Mode: types.ModeObserve, MaxSteps: 6})

	answer := a.Run(context.Background(), "summarize this page")
	require.NotEmpty(t, answer)
	// Only the initial page load hit the network.
	assert.Equal(t, []string{"https://news.ycombinator.com/"}, fetcher.fetched)
	// The extractive fallback names the front-page entries.
	assert.Contains(t, answer, "Alpha: tracing a kernel scheduler regression")
}

func TestNeedsStructuredAnswer(t *testing.T) {
	a := &Agent{plan: types.GoalPlan{TopicIndex: 0}}
	assert.True(t, a.needsStructuredAnswer("Just a plain answer without headings."))
	assert.False(t, a.needsStructuredAnswer("Topic overview: x\nWhat it is: y\nKey technical points: z"))

	a.plan.WantsComments = true
	assert.True(t, a.needsStructuredAnswer("Topic overview: x\nWhat it is: y"))
	assert.False(t, a.needsStructuredAnswer("Topic overview: x\nComment themes: y"))

	noTarget := &Agent{plan: types.DefaultGoalPlan()}
	assert.False(t, noTarget.needsStructuredAnswer("anything at all"))
}

func TestMakePageBrief(t *testing.T) {
	obs := &types.Observation{
		URL:   "https://a.test/page",
		Title: "A page",
		Text:  strings.Repeat("x", 400),
		Elements: []types.ObservedElement{
			{HandleID: "wf-1", Role: "anchor", Href: "https://a.test/next", Label: "A reasonably long article link label"},
			{HandleID: "wf-2", Role: "anchor", Href: "https://a.test/login", Label: "login"},
		},
	}
	brief := makePageBrief(obs)
	assert.Equal(t, "A page", brief.Title)
	assert.Len(t, brief.TextExcerpt, 320)
	assert.Contains(t, brief.MainLinks, "A reasonably long article link label")
	assert.NotContains(t, brief.MainLinks, "login")
}

func TestPromptBuilderSystemPrompts(t *testing.T) {
	p := NewPromptBuilder()

	assist := p.SystemPrompt(types.ModeAssist)
	assert.Contains(t, assist, "browser.navigate")
	assert.Contains(t, assist, "content.summarize")
	assert.Contains(t, assist, "tool_calls")

	observeSys := p.SystemPrompt(types.ModeObserve)
	assert.Contains(t, observeSys, "tool_calls MUST be [] in observe mode")
	assert.NotContains(t, observeSys, "browser.navigate")

	// Prompts are cached per mode.
	assert.Equal(t, assist, p.SystemPrompt(types.ModeAssist))
}

func TestCompactUserPrompt(t *testing.T) {
	p := NewPromptBuilder()
	pack := types.ContextPack{
		Observation: &types.Observation{
			URL:   "https://a.test/",
			Title: "A page",
			Text:  "Short page text for the compact retry prompt.",
		},
		Step:     2,
		MaxSteps: 6,
	}
	out := p.CompactUserPrompt(pack, "summarize this page", types.DefaultGoalPlan())
	assert.Contains(t, out, "summarize this page")
	assert.Contains(t, out, "Return JSON")
}
