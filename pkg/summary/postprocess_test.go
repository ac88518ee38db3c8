package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessStripsMarkdown(t *testing.T) {
	raw := "## Heading\n**Bold claim** about `code` and *emphasis*"
	out := postProcess(raw)
	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "`")
	assert.Contains(t, out, "Bold claim")
}

func TestPostProcessDedupesLines(t *testing.T) {
	raw := "The fix shipped on Tuesday.\nThe fix shipped on Tuesday!\nA second distinct line."
	out := postProcess(raw)
	assert.Equal(t, 1, strings.Count(out, "The fix shipped on Tuesday"))
	assert.Contains(t, out, "A second distinct line.")
}

func TestPostProcessCollapsesRepeatedWindows(t *testing.T) {
	phrase := "the cache was warm and ready"
	raw := phrase + " " + phrase + " " + phrase + " after the deploy"
	out := postProcess(raw)
	assert.Equal(t, phrase+" after the deploy", out)
}

func TestPostProcessKeepsShortRepeats(t *testing.T) {
	// Windows below the minimum size are legitimate prose, not loops.
	raw := "it was very very good"
	assert.Equal(t, raw, postProcess(raw))
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First point. Second point! Third question? Trailing fragment")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First point.", sentences[0])
	assert.Equal(t, "Third question?", sentences[2])
	assert.Equal(t, "Trailing fragment", sentences[3])
}

func TestPickSentences(t *testing.T) {
	text := "Too short. This sentence is comfortably longer than the minimum length. Another one that also clears the minimum length easily."
	out := PickSentences(text, 1, 40)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "comfortably longer")
}

func TestKeyFactsDerivesKeywordsFromContent(t *testing.T) {
	title := "Ferrite: a new message broker"
	text := "Ferrite was announced this week as a drop-in replacement broker. " +
		"The Ferrite storage engine writes segments of 64 MB and fsyncs every 50 ms under default settings. " +
		"Unrelated housekeeping announcements follow in later paragraphs without specifics."
	facts := KeyFacts(text, title, 2)
	require.NotEmpty(t, facts)
	assert.Contains(t, facts[0], "Ferrite")
}

func TestKeyFactsEmptyText(t *testing.T) {
	assert.Empty(t, KeyFacts("", "Title", 3))
	assert.Empty(t, KeyFacts("   ", "", 3))
}
