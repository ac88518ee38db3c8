package observe

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// itemContainerTags are the container shapes list/feed entries live in.
var itemContainerTags = map[string]bool{
	"li": true, "tr": true, "article": true, "div": true, "section": true,
}

// extractItems detects list/feed entries: innermost containers holding at
// least one anchor, with the best-scoring anchor as the entry's primary
// link and the rest demoted to secondary links.
func (o *Observer) extractItems(doc *html.Node, base *url.URL, nodeHandles map[*html.Node]string) []types.ObservedItem {
	candidates := o.itemCandidates(doc)

	var items []types.ObservedItem
	for _, container := range candidates {
		if len(items) >= o.budgets.MaxItems {
			break
		}
		item, ok := o.buildItem(container, base, nodeHandles)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

// itemCandidates returns innermost item containers in document order.
// A container holding another candidate is a wrapper, not an entry.
func (o *Observer) itemCandidates(doc *html.Node) []*html.Node {
	all := findAll(doc, func(n *html.Node) bool {
		if !itemContainerTags[tagName(n)] {
			return false
		}
		if isNonContent(n) || insideNonContent(n) {
			return false
		}
		if len(findAll(n, byTag("a"))) == 0 {
			return false
		}
		return len(textContent(n)) >= o.heur.MinContainerChars
	})

	inSet := map[*html.Node]bool{}
	for _, n := range all {
		inSet[n] = true
	}
	var innermost []*html.Node
	for _, n := range all {
		hasInner := false
		walk(n, func(c *html.Node) bool {
			if c != n && inSet[c] {
				hasInner = true
				return false
			}
			return !hasInner
		})
		if !hasInner {
			innermost = append(innermost, n)
		}
	}
	return innermost
}

type scoredAnchor struct {
	node  *html.Node
	text  string
	url   string
	score int
}

// buildItem turns one container into an observed item, or rejects it via
// the post-filters.
func (o *Observer) buildItem(container *html.Node, base *url.URL, nodeHandles map[*html.Node]string) (types.ObservedItem, bool) {
	anchors := o.scoreAnchors(container, base)
	if len(anchors) == 0 {
		return types.ObservedItem{}, false
	}

	best := anchors[0]
	for _, a := range anchors[1:] {
		if a.score > best.score {
			best = a
		}
	}

	containerText := textContent(container)
	title := truncateText(best.text, o.budgets.MaxItemChars)

	if looksLikeTimestamp(title) || mostlyDigits(title) || looksLikeBareLabel(title) {
		return types.ObservedItem{}, false
	}

	linkCount, linkDensity := linkStats(container)
	if len(containerText) >= o.heur.AnchorShareMinLen && linkDensity < o.heur.MinAnchorShare {
		return types.ObservedItem{}, false
	}

	item := types.ObservedItem{
		Title:       title,
		URL:         best.url,
		Tag:         tagName(container),
		LinkCount:   linkCount,
		LinkDensity: linkDensity,
		HandleID:    nodeHandles[best.node],
	}

	for _, a := range anchors {
		if a.node == best.node {
			continue
		}
		if len(item.Links) >= o.budgets.MaxLinksPerItem && !isCommentLabel(a.text) {
			continue
		}
		item.Links = append(item.Links, types.ObservedItemLink{
			Title:    truncateText(a.text, o.budgets.MaxItemChars),
			URL:      a.url,
			HandleID: nodeHandles[a.node],
		})
	}

	snippet := containerText
	if meta, ok := o.siblingMetadata(container, base, best.score); ok {
		snippet = normalizeSpace(snippet + " " + meta)
	}
	item.Snippet = truncateText(snippet, o.budgets.MaxItemChars)

	return item, true
}

// scoreAnchors scores every resolvable anchor in the container: longer
// anchor text wins, external hosts get a bonus, very short or bare
// domain-like labels are penalized.
func (o *Observer) scoreAnchors(container *html.Node, base *url.URL) []scoredAnchor {
	var out []scoredAnchor
	for _, a := range findAll(container, byTag("a")) {
		resolved := resolveURL(base, attr(a, "href"))
		if resolved == "" {
			continue
		}
		text := textContent(a)
		if text == "" {
			continue
		}
		score := len(text)
		if base != nil {
			if parsed, err := url.Parse(resolved); err == nil && parsed.Hostname() != base.Hostname() {
				score += o.heur.ExternalHostBonus
			}
		}
		if len(text) < o.heur.ShortAnchorLen {
			score += o.heur.ShortAnchorPenalty
		}
		if looksLikeBareLabel(text) {
			score += o.heur.BareLabelPenalty
		}
		out = append(out, scoredAnchor{node: a, text: text, url: resolved, score: score})
	}
	return out
}

// siblingMetadata returns the text of the container's next element sibling
// when that sibling carries no anchor stronger than the item's own link.
// Aggregator layouts put "N points, M comments" rows there.
func (o *Observer) siblingMetadata(container *html.Node, base *url.URL, bestScore int) (string, bool) {
	sib := container.NextSibling
	for sib != nil && sib.Type != html.ElementNode {
		sib = sib.NextSibling
	}
	if sib == nil {
		return "", false
	}
	for _, a := range o.scoreAnchors(sib, base) {
		if a.score > bestScore {
			return "", false
		}
	}
	text := textContent(sib)
	if text == "" {
		return "", false
	}
	return text, true
}

var timestampPattern = regexp.MustCompile(`(?i)^(\d+\s+(second|minute|hour|day|week|month|year)s?\s+ago|yesterday|today|\d{1,2}[:/.-]\d{1,2}([:/.-]\d{2,4})?)$`)

// looksLikeTimestamp reports whether text is a relative or numeric
// timestamp rather than a title.
func looksLikeTimestamp(text string) bool {
	return timestampPattern.MatchString(strings.TrimSpace(text))
}

// mostlyDigits reports whether more than 60% of the non-space characters
// are digits.
func mostlyDigits(text string) bool {
	total, digits := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return total > 0 && float64(digits)/float64(total) > 0.6
}

var bareLabelPattern = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}(/\S*)?$`)

// looksLikeBareLabel reports whether the anchor text is a bare domain or
// path fragment rather than a human title.
func looksLikeBareLabel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.ContainsAny(t, " \t") {
		return false
	}
	return bareLabelPattern.MatchString(t) || strings.HasPrefix(t, "/")
}

// isCommentLabel reports whether a link label points at a discussion.
func isCommentLabel(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "comment") || strings.Contains(t, "discuss") ||
		strings.Contains(t, "thread") || strings.Contains(t, "repl")
}
