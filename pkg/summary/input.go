// Package summary selects and budgets page content for summarization,
// drives the model with shape-specific prompts, and validates that its
// output is grounded in the selected content, falling back to an
// extractive summary otherwise.
package summary

import (
	"fmt"
	"strings"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// Kind is the content shape handed to the model. Exactly one shape is
// chosen per request.
type Kind string

const (
	KindList     Kind = "list"
	KindItem     Kind = "item"
	KindPage     Kind = "page"
	KindComments Kind = "comments"
)

// Input is the selected, bounded content for one summarization request.
type Input struct {
	Kind Kind
	// Text is the exact bounded text handed to the model.
	Text string

	UsedItems    []types.ObservedItem
	UsedComments []types.ObservedComment
	UsedBlocks   []types.ObservedTextBlock
	UsedPrimary  bool

	// ItemTitle is set for the item shape: the selected entry's title.
	ItemTitle string

	// AccessLimited reports that the page looks gated or nearly empty, with
	// the reasons that triggered the signal.
	AccessLimited bool
	AccessReasons []string
}

const (
	listLikeMinItems     = 12
	listLikeMediumItems  = 6
	listLikeMediumChars  = 500
	listLikeSparseItems  = 3
	listLikeSparseChars  = 200
	maxDigestItems       = 12
	maxDigestComments    = 20
	maxDigestBlocks      = 8
	thinPrimaryChars     = 200
	thinBlockChars       = 300
	nearZeroTextChars    = 80
	itemPrimaryThinChars = 500
)

// BuildInput chooses one content shape for the observation: comments when
// requested and present, a single targeted item, a list digest for
// list-like pages, else a page-text digest degrading to the outline.
func BuildInput(obs *types.Observation, plan types.GoalPlan, wantComments bool) Input {
	input := Input{}
	if obs == nil {
		input.Kind = KindPage
		input.AccessLimited = true
		input.AccessReasons = []string{"no page loaded"}
		return input
	}

	if wantComments && len(obs.Comments) > 0 {
		input = buildCommentsInput(obs)
	} else if plan.HasTargeting() && isListLike(obs) {
		if item, ok := SelectItem(obs, plan); ok && primaryLen(obs) < itemPrimaryThinChars {
			input = buildItemInput(obs, item)
		} else {
			input = buildListInput(obs)
		}
	} else if isListLike(obs) {
		input = buildListInput(obs)
	} else {
		input = buildPageInput(obs)
	}

	markAccessLimited(obs, &input)
	return input
}

// isListLike applies the list-likeness heuristics: many items, or a
// moderate number of items next to a thin primary block.
func isListLike(obs *types.Observation) bool {
	n := len(obs.Items)
	switch {
	case n >= listLikeMinItems:
		return true
	case n >= listLikeMediumItems && primaryLen(obs) < listLikeMediumChars:
		return true
	case n >= listLikeSparseItems && primaryLen(obs) < listLikeSparseChars:
		return true
	}
	return false
}

func primaryLen(obs *types.Observation) int {
	if obs.Primary == nil {
		return 0
	}
	return len(obs.Primary.Text)
}

// SelectItem resolves the goal plan's target: by zero-based index, or by
// the query with the largest token overlap against item titles.
func SelectItem(obs *types.Observation, plan types.GoalPlan) (types.ObservedItem, bool) {
	if plan.TopicIndex >= 0 {
		if plan.TopicIndex < len(obs.Items) {
			return obs.Items[plan.TopicIndex], true
		}
		return types.ObservedItem{}, false
	}
	if plan.ItemQuery == "" {
		return types.ObservedItem{}, false
	}

	queryTokens := strings.Fields(strings.ToLower(plan.ItemQuery))
	bestScore := 0
	var best types.ObservedItem
	for _, item := range obs.Items {
		title := strings.ToLower(item.Title)
		score := 0
		for _, tok := range queryTokens {
			if strings.Contains(title, tok) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = item
		}
	}
	return best, bestScore > 0
}

func buildCommentsInput(obs *types.Observation) Input {
	comments := obs.Comments
	if len(comments) > maxDigestComments {
		comments = comments[:maxDigestComments]
	}
	var b strings.Builder
	if obs.Title != "" {
		fmt.Fprintf(&b, "Discussion: %s\n", obs.Title)
	}
	for i, c := range comments {
		author := c.Author
		if author == "" {
			author = "anonymous"
		}
		fmt.Fprintf(&b, "%d. [depth %d] %s: %s\n", i+1, c.Depth, author, c.Text)
	}
	return Input{
		Kind:         KindComments,
		Text:         strings.TrimRight(b.String(), "\n"),
		UsedComments: comments,
	}
}

func buildItemInput(obs *types.Observation, item types.ObservedItem) Input {
	var b strings.Builder
	fmt.Fprintf(&b, "Item: %s\n", item.Title)
	if item.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", item.URL)
	}
	if item.Snippet != "" && item.Snippet != item.Title {
		fmt.Fprintf(&b, "Details: %s\n", item.Snippet)
	}
	if obs.Primary != nil && obs.Primary.Text != "" {
		fmt.Fprintf(&b, "Page context: %s\n", obs.Primary.Text)
	}
	return Input{
		Kind:        KindItem,
		Text:        strings.TrimRight(b.String(), "\n"),
		UsedItems:   []types.ObservedItem{item},
		UsedPrimary: obs.Primary != nil,
		ItemTitle:   item.Title,
	}
}

func buildListInput(obs *types.Observation) Input {
	items := obs.Items
	if len(items) > maxDigestItems {
		items = items[:maxDigestItems]
	}
	var b strings.Builder
	if obs.Title != "" {
		fmt.Fprintf(&b, "Page: %s\n", obs.Title)
	}
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s", i+1, item.Title)
		if item.Snippet != "" && item.Snippet != item.Title {
			fmt.Fprintf(&b, " (%s)", item.Snippet)
		}
		b.WriteString("\n")
	}
	return Input{
		Kind:      KindList,
		Text:      strings.TrimRight(b.String(), "\n"),
		UsedItems: items,
	}
}

func buildPageInput(obs *types.Observation) Input {
	input := Input{Kind: KindPage}
	var parts []string
	seen := map[string]bool{}

	if obs.Primary != nil && obs.Primary.Text != "" {
		parts = append(parts, obs.Primary.Text)
		seen[normalizeKey(obs.Primary.Text)] = true
		input.UsedPrimary = true
	}
	for _, block := range obs.Blocks {
		if len(input.UsedBlocks) >= maxDigestBlocks {
			break
		}
		if !isRelevantBlock(block) {
			continue
		}
		key := normalizeKey(block.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, block.Text)
		input.UsedBlocks = append(input.UsedBlocks, block)
	}

	if len(parts) == 0 {
		for _, entry := range obs.Outline {
			parts = append(parts, entry.Text)
		}
	}
	if len(parts) == 0 && obs.Text != "" {
		parts = append(parts, obs.Text)
	}

	input.Text = strings.Join(parts, "\n")
	return input
}

// isRelevantBlock rejects nav-like, dialog-like, and link-heavy blocks
// from the page digest.
func isRelevantBlock(block types.ObservedTextBlock) bool {
	switch block.Role {
	case "navigation", "banner", "contentinfo", "menu", "dialog", "alertdialog", "complementary":
		return false
	}
	if block.LinkDensity > 0.6 {
		return false
	}
	return len(block.Text) >= 30
}

// markAccessLimited raises the access-limited signal when thin content
// co-occurs with a dialog block, an authentication input, or near-zero
// text.
func markAccessLimited(obs *types.Observation, input *Input) {
	thin := primaryLen(obs) < thinPrimaryChars && totalBlockChars(obs) < thinBlockChars
	if !thin {
		return
	}

	var reasons []string
	for _, block := range obs.Blocks {
		if block.Role == "dialog" || block.Role == "alertdialog" {
			reasons = append(reasons, "a dialog overlays the content")
			break
		}
	}
	for _, el := range obs.Elements {
		if el.InputType == "password" || el.InputType == "email" ||
			strings.Contains(strings.ToLower(el.Label), "sign in") ||
			strings.Contains(strings.ToLower(el.Label), "log in") {
			reasons = append(reasons, "an authentication form is present")
			break
		}
	}
	if len(obs.Text) < nearZeroTextChars {
		reasons = append(reasons, "the page has almost no visible text")
	}

	if len(reasons) > 0 {
		input.AccessLimited = true
		input.AccessReasons = reasons
	}
}

// normalizeKey lowercases and strips punctuation/whitespace for duplicate
// detection.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func totalBlockChars(obs *types.Observation) int {
	total := 0
	for _, block := range obs.Blocks {
		total += len(block.Text)
	}
	return total
}
