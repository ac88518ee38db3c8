package observe

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// extractElements walks interactive nodes in document order, assigning
// sequential handle ids. It returns the observed elements, the handle map,
// and a node-to-handle index used to tag items and comments with the
// handle of the anchor they were extracted from.
func (o *Observer) extractElements(doc *html.Node, base *url.URL) ([]types.ObservedElement, map[string]types.ElementHandle, map[*html.Node]string) {
	elements := make([]types.ObservedElement, 0, o.budgets.MaxElements)
	handles := map[string]types.ElementHandle{}
	nodeHandles := map[*html.Node]string{}

	seq := 0
	walk(doc, func(n *html.Node) bool {
		if len(elements) >= o.budgets.MaxElements {
			return false
		}
		role := elementRole(n)
		if role == "" {
			return true
		}

		var href string
		if role == "anchor" {
			href = resolveURL(base, attr(n, "href"))
			if href == "" {
				return true
			}
		}

		label := resolveLabel(n, role, href)
		if label == "" && (role == "anchor" || role == "button") {
			return true
		}

		seq++
		id := handleID(seq)
		el := types.ObservedElement{
			HandleID:  id,
			Role:      role,
			Label:     truncateText(label, 160),
			Href:      href,
			InputType: inputType(n, role),
		}
		elements = append(elements, el)
		handles[id] = types.ElementHandle{Observed: el, Text: textContent(n)}
		nodeHandles[n] = id

		// An anchor's descendants never add further interactive elements.
		return role != "anchor"
	})

	return elements, handles, nodeHandles
}

// elementRole classifies a node as anchor, button, or input, or returns ""
// for non-interactive nodes.
func elementRole(n *html.Node) string {
	switch tagName(n) {
	case "a":
		if attr(n, "href") == "" {
			return ""
		}
		return "anchor"
	case "button":
		return "button"
	case "input":
		switch strings.ToLower(attr(n, "type")) {
		case "submit", "button", "image":
			return "button"
		case "hidden":
			return ""
		default:
			return "input"
		}
	case "textarea", "select":
		return "input"
	default:
		return ""
	}
}

// resolveLabel resolves a human-readable label for an interactive node:
// explicit attributes first, then visible text, then a type-specific
// fallback.
func resolveLabel(n *html.Node, role, href string) string {
	for _, key := range []string{"aria-label", "title", "alt"} {
		if v := normalizeSpace(attr(n, key)); v != "" {
			return v
		}
	}
	if v := textContent(n); v != "" {
		return v
	}
	if role == "anchor" {
		return href
	}
	for _, key := range []string{"placeholder", "value", "name", "id"} {
		if v := normalizeSpace(attr(n, key)); v != "" {
			return v
		}
	}
	return ""
}

// inputType returns the input type for form controls.
func inputType(n *html.Node, role string) string {
	if role == "anchor" {
		return ""
	}
	switch tagName(n) {
	case "input":
		if t := strings.ToLower(attr(n, "type")); t != "" {
			return t
		}
		return "text"
	case "textarea":
		return "textarea"
	case "select":
		return "select"
	case "button":
		return ""
	}
	return ""
}
