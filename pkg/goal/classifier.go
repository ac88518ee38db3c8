// Package goal parses a free-text goal into a structured plan: which item
// the user is pointing at, whether they want the discussion, and any named
// query when no ordinal applies.
package goal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// commentsVocabulary marks discussion intent.
var commentsVocabulary = []string{
	"comment", "comments", "discussion", "discussions", "discuss",
	"thread", "threads", "replies", "reply",
}

// contentNouns guard ordinal detection: "third topic" targets an item,
// "third paragraph" does not.
var contentNouns = []string{
	"topic", "topics", "story", "stories", "link", "links",
	"item", "items", "post", "posts", "article", "articles",
	"result", "results",
}

// wordOrdinals maps spelled ordinals to zero-based indices.
var wordOrdinals = map[string]int{
	"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4,
	"sixth": 5, "seventh": 6, "eighth": 7, "ninth": 8, "tenth": 9,
}

var (
	wordOrdinalPattern    = regexp.MustCompile(`\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\b`)
	numericOrdinalPattern = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)
	nounNumberPattern     = regexp.MustCompile(`\b(?:topic|story|link|item|post|article|result)\s+#?(\d{1,2})\b`)
	quotedPattern         = regexp.MustCompile(`"([^"]{2,})"|'([^']{2,})'`)
	aboutPattern          = regexp.MustCompile(`\babout\s+(.{3,}?)(?:[.?!]|$)`)
)

// Classify parses goal text into a plan. When nothing matches, the default
// plan (no targeting) comes back and the agent behaves as a general
// question-answering agent rather than a navigator.
func Classify(goalText string) types.GoalPlan {
	plan := types.DefaultGoalPlan()
	lower := strings.ToLower(goalText)

	plan.WantsComments = containsWord(lower, commentsVocabulary)

	if idx, found := findOrdinal(lower); found {
		if containsWord(lower, contentNouns) || plan.WantsComments {
			plan.TopicIndex = idx
		}
	}

	if plan.TopicIndex < 0 {
		plan.ItemQuery = findItemQuery(goalText)
	}
	return plan
}

// findOrdinal returns the zero-based index of any ordinal reference.
func findOrdinal(lower string) (int, bool) {
	if m := wordOrdinalPattern.FindStringSubmatch(lower); m != nil {
		return wordOrdinals[m[1]], true
	}
	if m := numericOrdinalPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 10 {
			return n - 1, true
		}
	}
	if m := nounNumberPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 10 {
			return n - 1, true
		}
	}
	return 0, false
}

// findItemQuery extracts a quoted phrase or an "about X" clause.
func findItemQuery(goalText string) string {
	if m := quotedPattern.FindStringSubmatch(goalText); m != nil {
		for _, group := range m[1:] {
			if group != "" {
				return strings.TrimSpace(group)
			}
		}
	}
	if m := aboutPattern.FindStringSubmatch(strings.ToLower(goalText)); m != nil {
		query := strings.TrimSpace(m[1])
		// "about the comments" is discussion intent, not an item query.
		if query != "" && !containsWord(query, commentsVocabulary) {
			return query
		}
	}
	return ""
}

func containsWord(lower string, words []string) bool {
	for _, w := range words {
		if containsWholeWord(lower, w) {
			return true
		}
	}
	return false
}

func containsWholeWord(lower, word string) bool {
	idx := 0
	for {
		at := strings.Index(lower[idx:], word)
		if at < 0 {
			return false
		}
		at += idx
		before := at == 0 || !isWordByte(lower[at-1])
		afterIdx := at + len(word)
		after := afterIdx >= len(lower) || !isWordByte(lower[afterIdx])
		if before && after {
			return true
		}
		idx = at + len(word)
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
