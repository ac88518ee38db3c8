package tools

import "strings"

const (
	findWindow   = 80
	findLimit    = 5
	excerptChars = 600
)

// FindMatches returns windowed excerpts around case-insensitive
// occurrences of query in text, up to findLimit matches.
func FindMatches(text, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" || text == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	var matches []string
	offset := 0
	for len(matches) < findLimit {
		idx := strings.Index(lowerText[offset:], lowerQuery)
		if idx < 0 {
			break
		}
		at := offset + idx
		start := at - findWindow
		if start < 0 {
			start = 0
		}
		end := at + len(query) + findWindow
		if end > len(text) {
			end = len(text)
		}
		matches = append(matches, strings.TrimSpace(text[start:end]))
		offset = at + len(query)
	}
	return matches
}

// ExcerptText returns the first few sentences of text, capped by character
// count. Used as a cheap local digest for a single element's content.
func ExcerptText(text string, maxSentences int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	sentences := SplitSentences(text)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	out := strings.Join(sentences, " ")
	if len(out) > excerptChars {
		out = strings.TrimSpace(out[:excerptChars])
	}
	return out
}

// SplitSentences splits text on sentence-final punctuation, keeping the
// punctuation with each sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
