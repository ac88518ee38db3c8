package summary

import (
	"fmt"
	"sort"
	"strings"
)

const notStated = "Not stated in the page."

// Fallback synthesizes a purely extractive answer from the same input the
// model saw, in the same section-heading shape it was asked to produce.
// Downstream consumers always see a consistently shaped answer even when
// generation is rejected.
func Fallback(input Input) string {
	var body string
	switch input.Kind {
	case KindList:
		body = fallbackList(input)
	case KindItem:
		body = fallbackItem(input)
	case KindComments:
		body = fallbackComments(input)
	default:
		body = fallbackPage(input)
	}

	if input.AccessLimited {
		notice := "Access to this page appears limited (" + strings.Join(input.AccessReasons, "; ") + ")."
		if body == "" {
			return notice
		}
		return notice + "\n" + body
	}
	if body == "" {
		return notStated
	}
	return body
}

// fallbackList names the leading item titles verbatim, up to five.
func fallbackList(input Input) string {
	if len(input.UsedItems) == 0 {
		return ""
	}
	count := len(input.UsedItems)
	if count > 5 {
		count = 5
	}
	var b strings.Builder
	b.WriteString("The page lists entries such as:\n")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sanitize(input.UsedItems[i].Title))
	}
	return strings.TrimRight(b.String(), "\n")
}

// fallbackItem fills the topic-shaped headings from the input's sentences.
func fallbackItem(input Input) string {
	overview := notStated
	if input.ItemTitle != "" {
		overview = sanitize(input.ItemTitle) + "."
	}

	whatItIs := notStated
	lead := PickSentences(input.Text, 2, 40)
	if len(lead) > 0 {
		whatItIs = sanitize(strings.Join(lead, " "))
	}

	keyPoints := notStated
	facts := KeyFacts(input.Text, input.ItemTitle, 4)
	var remaining []string
	for _, fact := range facts {
		if strings.Contains(whatItIs, fact) {
			continue
		}
		remaining = append(remaining, fact)
	}
	if len(remaining) > 0 {
		keyPoints = sanitize(strings.Join(remaining, " "))
	}

	notable := notStated
	if len(remaining) > 0 {
		notable = sanitize(remaining[0])
	}

	sections := []string{
		"Topic overview: " + overview,
		"What it is: " + whatItIs,
		"Key technical points: " + keyPoints,
		"Why it is notable: " + notable,
		"Optional next step: If you want, ask for comment themes or a deeper technical breakdown.",
	}
	return strings.Join(sections, "\n")
}

// fallbackComments fills the comments-shaped headings from the used
// comments: recurring terms, visible authors, and literal phrases.
func fallbackComments(input Input) string {
	count := len(input.UsedComments)
	overview := fmt.Sprintf("Discussion with %d extracted comments.", count)

	var allText strings.Builder
	for _, c := range input.UsedComments {
		allText.WriteString(c.Text)
		allText.WriteString(" ")
	}

	themes := notStated
	if terms := recurringTerms(allText.String(), 5); len(terms) > 0 {
		themes = "Recurring terms across comments include: " + strings.Join(terms, ", ") + "."
	}

	contributors := notStated
	var authors []string
	seen := map[string]bool{}
	for _, c := range input.UsedComments {
		if c.Author == "" || seen[c.Author] {
			continue
		}
		seen[c.Author] = true
		authors = append(authors, c.Author)
		if len(authors) >= 3 {
			break
		}
	}
	if len(authors) > 0 {
		contributors = "Notable commenters include: " + strings.Join(authors, ", ") + "."
	}

	clarifications := notStated
	for _, c := range input.UsedComments {
		lower := strings.ToLower(c.Text)
		if strings.Contains(lower, "because") || strings.Contains(lower, "means") ||
			strings.Contains(lower, "explain") || strings.Contains(c.Text, "?") {
			if lead := PickSentences(c.Text, 1, 30); len(lead) > 0 {
				clarifications = sanitize(lead[0])
				break
			}
		}
	}

	reactions := notStated
	if count > 0 {
		if lead := PickSentences(input.UsedComments[0].Text, 1, 20); len(lead) > 0 {
			reactions = "One comment opens: " + sanitize(lead[0])
		}
	}

	sections := []string{
		"Topic overview: " + sanitize(overview),
		"Comment themes: " + themes,
		"Notable contributors/tools: " + contributors,
		"Technical clarifications or Q&A: " + clarifications,
		"Reactions/culture: " + reactions,
	}
	return strings.Join(sections, "\n")
}

// fallbackPage stitches the first qualifying sentences of the input.
func fallbackPage(input Input) string {
	lead := PickSentences(input.Text, 3, 40)
	if len(lead) == 0 {
		lead = PickSentences(input.Text, 3, 10)
	}
	if len(lead) == 0 {
		return ""
	}
	return sanitize(strings.Join(lead, " "))
}

// recurringTerms returns the most frequent longer capitalized terms of the
// text, derived from the content itself.
func recurringTerms(text string, max int) []string {
	counts := map[string]int{}
	for _, tok := range wordPattern.FindAllString(text, -1) {
		if len(tok) <= 4 {
			continue
		}
		if tok[0] < 'A' || tok[0] > 'Z' {
			continue
		}
		counts[tok]++
	}
	type termCount struct {
		term  string
		count int
	}
	var terms []termCount
	for term, n := range counts {
		if n >= 2 {
			terms = append(terms, termCount{term, n})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})
	if len(terms) > max {
		terms = terms[:max]
	}
	var out []string
	for _, t := range terms {
		out = append(out, t.term)
	}
	return out
}

// sanitize swaps double quotes for single quotes and normalizes space so
// the answer embeds safely in the JSON wire contract.
func sanitize(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, `"`, "'")), " ")
}
