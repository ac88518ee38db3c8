package summary

import "strings"

// postProcess cleans raw model text: markdown markers stripped, duplicate
// lines removed, repeated token windows collapsed.
func postProcess(raw string) string {
	text := stripMarkdown(raw)
	text = dedupLines(text)
	text = collapseRepetition(text)
	return strings.TrimSpace(text)
}

// stripMarkdown removes emphasis, code, and heading markers while keeping
// the line structure.
func stripMarkdown(text string) string {
	replacer := strings.NewReplacer("**", "", "__", "", "`", "", "*", "", "_", " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#>")
		line = strings.TrimSpace(replacer.Replace(line))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// dedupLines drops lines whose normalized key was already seen. Keys are
// case and punctuation insensitive so trivially restated lines collapse.
func dedupLines(text string) string {
	var out []string
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		key := normalizeKey(line)
		if key == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

const (
	repeatWindowMin = 4
	repeatWindowMax = 12
)

// collapseRepetition removes immediately repeated token windows, largest
// window first, so degenerate generation loops collapse to one copy.
// Collapsing runs per line to preserve the section structure.
func collapseRepetition(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		tokens := strings.Fields(line)
		for window := repeatWindowMax; window >= repeatWindowMin; window-- {
			tokens = collapseWindow(tokens, window)
		}
		lines = append(lines, strings.Join(tokens, " "))
	}
	return strings.Join(lines, "\n")
}

// collapseWindow removes consecutive duplicates of token windows of the
// given size.
func collapseWindow(tokens []string, window int) []string {
	i := 0
	for i+2*window <= len(tokens) {
		if equalWindow(tokens[i:i+window], tokens[i+window:i+2*window]) {
			// Drop the repeat and re-check from the same spot so longer
			// runs collapse fully.
			tokens = append(tokens[:i+window], tokens[i+2*window:]...)
			continue
		}
		i++
	}
	return tokens
}

func equalWindow(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
