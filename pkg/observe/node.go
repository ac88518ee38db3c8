package observe

import (
	"strings"

	"golang.org/x/net/html"
)

// parseDocument parses markup into a tree. Malformed markup never fails;
// the parser produces a best-effort tree and the observer degrades from
// whatever it gets.
func parseDocument(markup string) *html.Node {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		doc, _ = html.Parse(strings.NewReader(""))
	}
	return doc
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether the node's class attribute contains name as a
// whole token.
func hasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// classAndID returns the lowercased class and id attributes joined, for
// keyword probing.
func classAndID(n *html.Node) string {
	return strings.ToLower(attr(n, "class") + " " + attr(n, "id"))
}

// tagName returns the lowercased element name, or "" for non-elements.
func tagName(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// walk visits n and its descendants in document order. The visitor returns
// false to skip a node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// findFirst returns the first descendant element matching the predicate.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// findAll returns every descendant element matching the predicate, in
// document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && match(c) {
			found = append(found, c)
		}
		return true
	})
	return found
}

// byTag returns a predicate matching any of the given element names.
func byTag(names ...string) func(*html.Node) bool {
	set := map[string]bool{}
	for _, name := range names {
		set[name] = true
	}
	return func(n *html.Node) bool {
		return set[tagName(n)]
	}
}

// textContent returns the whitespace-normalized text of a subtree.
func textContent(n *html.Node) string {
	return textContentExcept(n, nil)
}

// textContentExcept returns the normalized text of a subtree, skipping any
// descendant subtree for which skip returns true.
func textContentExcept(n *html.Node, skip func(*html.Node) bool) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if skip != nil && c != n && c.Type == html.ElementNode && skip(c) {
			return false
		}
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		return true
	})
	return normalizeSpace(b.String())
}

// anchorTextLength sums the normalized text length of every anchor inside
// the subtree.
func anchorTextLength(n *html.Node) int {
	total := 0
	for _, a := range findAll(n, byTag("a")) {
		total += len(textContent(a))
	}
	return total
}

// linkStats returns the anchor count and the share of the subtree's text
// that sits inside anchors (0..1).
func linkStats(n *html.Node) (count int, density float64) {
	anchors := findAll(n, byTag("a"))
	count = len(anchors)
	total := len(textContent(n))
	if total == 0 {
		return count, 0
	}
	inAnchors := 0
	for _, a := range anchors {
		inAnchors += len(textContent(a))
	}
	density = float64(inAnchors) / float64(total)
	if density > 1 {
		density = 1
	}
	return count, density
}

// hasAncestor reports whether any ancestor of n (excluding n) matches.
func hasAncestor(n *html.Node, match func(*html.Node) bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && match(p) {
			return true
		}
	}
	return false
}

// detachNodes removes every matching descendant subtree from the tree.
func detachNodes(root *html.Node, match func(*html.Node) bool) {
	doomed := findAll(root, match)
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// normalizeSpace collapses all whitespace runs to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateText cuts s to at most max bytes on a rune boundary.
func truncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	// Back off a partially cut UTF-8 sequence.
	for len(cut) > 0 && cut[len(cut)-1] >= 0x80 && cut[len(cut)-1] < 0xC0 {
		cut = cut[:len(cut)-1]
	}
	if len(cut) > 0 && cut[len(cut)-1] >= 0xC0 {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut)
}
