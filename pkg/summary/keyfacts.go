package summary

import (
	"regexp"
	"sort"
	"strings"
)

var sentenceSplitPattern = regexp.MustCompile(`(?:[.!?])\s+`)

// splitSentences splits text after sentence-final punctuation.
func splitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	bounds := sentenceSplitPattern.FindAllStringIndex(text, -1)
	var sentences []string
	start := 0
	for _, b := range bounds {
		s := strings.TrimSpace(text[start : b[0]+1])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = b[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// PickSentences returns the first sentences at least minLen long.
func PickSentences(text string, maxSentences, minLen int) []string {
	var out []string
	for _, s := range splitSentences(text) {
		if len(s) < minLen {
			continue
		}
		out = append(out, s)
		if len(out) >= maxSentences {
			break
		}
	}
	return out
}

var wordPattern = regexp.MustCompile(`[A-Za-z0-9$]+`)

// KeyFacts picks the most fact-bearing sentences from text: sentences
// scoring highest for title keywords, recurring capitalized terms, and
// numerals, returned in document order. Keywords derive from the page
// itself rather than any fixed vocabulary.
func KeyFacts(text, title string, maxSentences int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	keywords := contentKeywords(text, title)
	sentences := splitSentences(text)

	type scored struct {
		text  string
		score int
	}
	var candidates []scored
	for _, sentence := range sentences {
		if len(sentence) < 40 {
			continue
		}
		if len(sentence) > 360 {
			sentence = sentence[:360] + "..."
		}
		lower := strings.ToLower(sentence)
		score := 0
		for word := range keywords {
			if strings.Contains(lower, word) {
				score++
			}
		}
		if strings.ContainsAny(sentence, "0123456789") {
			score += 2
		}
		if score == 0 {
			continue
		}
		candidates = append(candidates, scored{text: sentence, score: score})
	}
	if len(candidates) == 0 {
		return nil
	}

	byScore := make([]scored, len(candidates))
	copy(byScore, candidates)
	sort.SliceStable(byScore, func(i, j int) bool {
		if byScore[i].score != byScore[j].score {
			return byScore[i].score > byScore[j].score
		}
		return len(byScore[i].text) > len(byScore[j].text)
	})
	if len(byScore) > maxSentences*2 {
		byScore = byScore[:maxSentences*2]
	}
	picked := map[string]bool{}
	for _, c := range byScore {
		picked[c.text] = true
	}

	var ordered []string
	for _, c := range candidates {
		if picked[c.text] && !contains(ordered, c.text) {
			ordered = append(ordered, c.text)
		}
		if len(ordered) >= maxSentences {
			break
		}
	}
	return ordered
}

// contentKeywords builds the scoring vocabulary from the title's longer
// tokens plus terms that recur capitalized in the body.
func contentKeywords(text, title string) map[string]bool {
	keywords := map[string]bool{}
	for _, tok := range wordPattern.FindAllString(title, -1) {
		if len(tok) > 3 {
			keywords[strings.ToLower(tok)] = true
		}
	}

	counts := map[string]int{}
	for _, tok := range wordPattern.FindAllString(text, -1) {
		if len(tok) <= 3 {
			continue
		}
		if tok[0] >= 'A' && tok[0] <= 'Z' {
			counts[strings.ToLower(tok)]++
		}
	}
	for word, n := range counts {
		if n >= 2 {
			keywords[word] = true
		}
	}
	return keywords
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
