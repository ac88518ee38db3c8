package summary

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfindhq/wayfind/pkg/types"
)

func listObservation(n int) *types.Observation {
	obs := &types.Observation{URL: "https://a.test/", Title: "Front page"}
	for i := 0; i < n; i++ {
		obs.Items = append(obs.Items, types.ObservedItem{
			Title: fmt.Sprintf("Story %d about a subject", i+1),
			URL:   fmt.Sprintf("https://a.test/story/%d", i+1),
		})
	}
	return obs
}

func TestBuildInputSelectsListShape(t *testing.T) {
	obs := listObservation(15)
	input := BuildInput(obs, types.DefaultGoalPlan(), false)
	assert.Equal(t, KindList, input.Kind)
	// The digest is capped at twelve entries.
	assert.Len(t, input.UsedItems, 12)
	assert.Contains(t, input.Text, "1. Story 1 about a subject")
	assert.NotContains(t, input.Text, "Story 13")
}

func TestBuildInputSelectsCommentsShape(t *testing.T) {
	obs := &types.Observation{
		Title: "Thread",
		Comments: []types.ObservedComment{
			{Text: "First reply about the rollout.", Author: "ana", Depth: 0},
			{Text: "Second reply answering the first.", Depth: 1},
		},
	}
	input := BuildInput(obs, types.DefaultGoalPlan(), true)
	assert.Equal(t, KindComments, input.Kind)
	assert.Contains(t, input.Text, "[depth 0] ana: First reply about the rollout.")
	assert.Contains(t, input.Text, "[depth 1] anonymous: Second reply")
}

func TestBuildInputCommentsRequestedButAbsent(t *testing.T) {
	obs := listObservation(15)
	input := BuildInput(obs, types.DefaultGoalPlan(), true)
	assert.Equal(t, KindList, input.Kind)
}

func TestBuildInputSelectsTargetedItem(t *testing.T) {
	obs := listObservation(15)
	plan := types.GoalPlan{TopicIndex: 2}
	input := BuildInput(obs, plan, false)
	require.Equal(t, KindItem, input.Kind)
	assert.Equal(t, "Story 3 about a subject", input.ItemTitle)
}

func TestBuildInputTargetedItemFallsBackToListWhenIndexOutOfRange(t *testing.T) {
	obs := listObservation(3)
	plan := types.GoalPlan{TopicIndex: 9}
	input := BuildInput(obs, plan, false)
	assert.Equal(t, KindList, input.Kind)
}

func TestBuildInputSelectsPageShape(t *testing.T) {
	obs := &types.Observation{
		Title: "Article",
		Primary: &types.ObservedPrimaryContent{
			Tag:  "article",
			Text: strings.Repeat("A long article body with plenty of running prose. ", 20),
		},
		Blocks: []types.ObservedTextBlock{
			{Tag: "p", Text: "A supporting paragraph with additional context about the topic.", LinkDensity: 0.1},
			{Tag: "div", Role: "navigation", Text: "Home News Archive About Contact and other nav labels"},
		},
	}
	input := BuildInput(obs, types.DefaultGoalPlan(), false)
	assert.Equal(t, KindPage, input.Kind)
	assert.True(t, input.UsedPrimary)
	assert.Contains(t, input.Text, "supporting paragraph")
	assert.NotContains(t, input.Text, "Home News Archive")
}

func TestBuildInputNilObservation(t *testing.T) {
	input := BuildInput(nil, types.DefaultGoalPlan(), false)
	assert.Equal(t, KindPage, input.Kind)
	assert.True(t, input.AccessLimited)
}

func TestBuildInputMarksAccessLimited(t *testing.T) {
	obs := &types.Observation{
		Title: "Sign in",
		Text:  "Sign in to continue",
		Elements: []types.ObservedElement{
			{HandleID: "wf-1", Role: "input", Label: "Email", InputType: "email"},
			{HandleID: "wf-2", Role: "input", Label: "Password", InputType: "password"},
		},
	}
	input := BuildInput(obs, types.DefaultGoalPlan(), false)
	assert.True(t, input.AccessLimited)
	assert.NotEmpty(t, input.AccessReasons)
}

func TestSelectItem(t *testing.T) {
	obs := listObservation(5)
	obs.Items[3].Title = "Kubernetes operators in anger"

	item, ok := SelectItem(obs, types.GoalPlan{TopicIndex: 1})
	require.True(t, ok)
	assert.Equal(t, "Story 2 about a subject", item.Title)

	item, ok = SelectItem(obs, types.GoalPlan{TopicIndex: -1, ItemQuery: "kubernetes operators"})
	require.True(t, ok)
	assert.Equal(t, "Kubernetes operators in anger", item.Title)

	_, ok = SelectItem(obs, types.GoalPlan{TopicIndex: -1, ItemQuery: "unrelated query terms"})
	assert.False(t, ok)
}

func TestFallbackListNamesTitles(t *testing.T) {
	input := listInputWithItems(8)
	out := Fallback(input)
	assert.Contains(t, out, "The page lists entries such as:")
	for i := 1; i <= 5; i++ {
		assert.Contains(t, out, fmt.Sprintf("%d. Entry %d", i, i))
	}
	assert.NotContains(t, out, "Entry 6")
}

func TestFallbackItemShape(t *testing.T) {
	input := Input{
		Kind:      KindItem,
		ItemTitle: "A story title",
		Text:      "Item: A story title\nPage context: The project replaced its build system and cut compile times by 40 percent across the monorepo.",
	}
	out := Fallback(input)
	for _, heading := range []string{"Topic overview:", "What it is:", "Key technical points:", "Why it is notable:", "Optional next step:"} {
		assert.Contains(t, out, heading)
	}
	assert.Contains(t, out, "A story title.")
}

func TestFallbackCommentsShape(t *testing.T) {
	input := Input{
		Kind: KindComments,
		UsedComments: []types.ObservedComment{
			{Text: "The Bazel migration took us a year because our Gradle setup was so entangled.", Author: "priya"},
			{Text: "Bazel remote caching is what made the Bazel move worth it for us.", Author: "tom"},
		},
	}
	out := Fallback(input)
	for _, heading := range []string{"Topic overview:", "Comment themes:", "Notable contributors/tools:", "Technical clarifications or Q&A:", "Reactions/culture:"} {
		assert.Contains(t, out, heading)
	}
	assert.Contains(t, out, "priya")
	assert.Contains(t, out, "tom")
	assert.Contains(t, out, "Bazel")
}

func TestFallbackAccessLimitedNotice(t *testing.T) {
	input := Input{
		Kind:          KindPage,
		Text:          "",
		AccessLimited: true,
		AccessReasons: []string{"an authentication form is present"},
	}
	out := Fallback(input)
	assert.Contains(t, out, "Access to this page appears limited")
	assert.Contains(t, out, "authentication form")
}

func TestFallbackEmptyInput(t *testing.T) {
	assert.Equal(t, "Not stated in the page.", Fallback(Input{Kind: KindPage}))
}
