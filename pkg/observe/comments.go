package observe

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// commentContainerTags are shapes a single comment can resolve to.
var commentContainerTags = map[string]bool{
	"div": true, "li": true, "article": true, "td": true, "section": true,
	"blockquote": true,
}

// extractComments finds discussion comments in three passes of decreasing
// confidence: explicit comment markers, comment-like structural signals,
// then flat list items. Fewer than three matches sends a pass to the next.
func (o *Observer) extractComments(doc *html.Node, nodeHandles map[*html.Node]string) []types.ObservedComment {
	candidates := commentMarkerPass(doc)
	if len(candidates) < 3 {
		candidates = commentSignalPass(doc)
	}
	if len(candidates) < 3 {
		candidates = flatListPass(doc)
	}

	inSet := map[*html.Node]bool{}
	for _, n := range candidates {
		inSet[n] = true
	}

	var comments []types.ObservedComment
	seen := map[string]bool{}
	for _, candidate := range candidates {
		if len(comments) >= o.budgets.MaxComments {
			break
		}
		container := enclosingCommentContainer(candidate)
		text := o.commentText(container, inSet)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true

		comments = append(comments, types.ObservedComment{
			Text:     truncateText(text, o.budgets.MaxCommentChars),
			Author:   commentAuthor(container),
			Age:      commentAge(container),
			Score:    commentScore(container),
			Depth:    commentDepth(container),
			HandleID: firstHandleIn(container, nodeHandles),
		})
	}
	return comments
}

// commentMarkerPass collects containers whose class or id names them a
// comment outright.
func commentMarkerPass(doc *html.Node) []*html.Node {
	return findAll(doc, func(n *html.Node) bool {
		if !commentContainerTags[tagName(n)] {
			return false
		}
		marker := classAndID(n)
		if !strings.Contains(marker, "comment") {
			return false
		}
		// Wrappers like "comments" or "comment-list" hold comments rather
		// than being one.
		if strings.Contains(marker, "comments") || strings.Contains(marker, "comment-list") ||
			strings.Contains(marker, "comment-tree") || strings.Contains(marker, "commentlist") {
			return false
		}
		return true
	})
}

// commentSignalPass collects generic containers showing comment-like
// structure: a discussion keyword, or a timestamp next to an author or a
// reply control.
func commentSignalPass(doc *html.Node) []*html.Node {
	return findAll(doc, func(n *html.Node) bool {
		if !commentContainerTags[tagName(n)] {
			return false
		}
		marker := classAndID(n)
		if strings.Contains(marker, "reply") || strings.Contains(marker, "response") ||
			strings.Contains(marker, "discussion-item") {
			return true
		}
		if !hasTimestampChild(n) {
			return false
		}
		return hasAuthorChild(n) || hasReplyControl(n)
	})
}

// flatListPass collects items of any list with at least three children.
func flatListPass(doc *html.Node) []*html.Node {
	var out []*html.Node
	for _, list := range findAll(doc, byTag("ul", "ol")) {
		var lis []*html.Node
		for c := list.FirstChild; c != nil; c = c.NextSibling {
			if tagName(c) == "li" {
				lis = append(lis, c)
			}
		}
		if len(lis) >= 3 {
			out = append(out, lis...)
		}
	}
	return out
}

// enclosingCommentContainer walks up to the nearest block container.
func enclosingCommentContainer(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if commentContainerTags[tagName(p)] {
			return p
		}
	}
	return n
}

// commentText extracts the comment body: a nested text-like sub-element
// when present, else the container itself, skipping nested replies, meta
// rows, and sub-lists so child comments are not absorbed.
func (o *Observer) commentText(container *html.Node, candidates map[*html.Node]bool) string {
	region := container
	if body := findFirst(container, func(n *html.Node) bool {
		marker := classAndID(n)
		return strings.Contains(marker, "commtext") ||
			strings.Contains(marker, "comment-text") ||
			strings.Contains(marker, "comment-body") ||
			strings.Contains(marker, "comment-content")
	}); body != nil {
		region = body
	}

	skip := func(n *html.Node) bool {
		if candidates[n] && n != region {
			return true
		}
		switch tagName(n) {
		case "ul", "ol", "time":
			return true
		}
		marker := classAndID(n)
		return strings.Contains(marker, "reply") || strings.Contains(marker, "meta") ||
			strings.Contains(marker, "author") || strings.Contains(marker, "byline") ||
			strings.Contains(marker, "age") || strings.Contains(marker, "time")
	}
	return textContentExcept(region, skip)
}

func hasTimestampChild(n *html.Node) bool {
	return findFirst(n, func(c *html.Node) bool {
		if tagName(c) == "time" {
			return true
		}
		marker := classAndID(c)
		return strings.Contains(marker, "age") || strings.Contains(marker, "timestamp") ||
			strings.Contains(marker, "time-ago")
	}) != nil
}

func hasAuthorChild(n *html.Node) bool {
	return findFirst(n, func(c *html.Node) bool {
		marker := classAndID(c)
		return strings.Contains(marker, "author") || strings.Contains(marker, "user") ||
			strings.Contains(marker, "byline")
	}) != nil
}

func hasReplyControl(n *html.Node) bool {
	return findFirst(n, func(c *html.Node) bool {
		tag := tagName(c)
		if tag != "a" && tag != "button" {
			return false
		}
		return strings.Contains(strings.ToLower(textContent(c)), "reply")
	}) != nil
}

func commentAuthor(container *html.Node) string {
	if n := findFirst(container, func(c *html.Node) bool {
		marker := classAndID(c)
		return strings.Contains(marker, "author") || strings.Contains(marker, "user") ||
			strings.Contains(marker, "byline")
	}); n != nil {
		return truncateText(textContent(n), 80)
	}
	return ""
}

func commentAge(container *html.Node) string {
	if n := findFirst(container, func(c *html.Node) bool {
		if tagName(c) == "time" {
			return true
		}
		marker := classAndID(c)
		return strings.Contains(marker, "age") || strings.Contains(marker, "timestamp")
	}); n != nil {
		return truncateText(textContent(n), 40)
	}
	return ""
}

func commentScore(container *html.Node) string {
	if n := findFirst(container, func(c *html.Node) bool {
		marker := classAndID(c)
		return strings.Contains(marker, "score") || strings.Contains(marker, "points") ||
			strings.Contains(marker, "votes")
	}); n != nil {
		return truncateText(textContent(n), 40)
	}
	return ""
}

// commentDepth reads an explicit depth/indent attribute, else counts
// ancestor list/quote nesting.
func commentDepth(container *html.Node) int {
	for _, key := range []string{"data-depth", "data-indent", "depth", "indent"} {
		if v := attr(container, key); v != "" {
			if depth, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && depth >= 0 {
				return depth
			}
		}
	}
	depth := 0
	for p := container.Parent; p != nil; p = p.Parent {
		switch tagName(p) {
		case "ul", "ol", "blockquote":
			depth++
		}
	}
	if depth > 0 {
		depth--
	}
	return depth
}

func firstHandleIn(container *html.Node, nodeHandles map[*html.Node]string) string {
	var id string
	walk(container, func(n *html.Node) bool {
		if id != "" {
			return false
		}
		if h, ok := nodeHandles[n]; ok {
			id = h
			return false
		}
		return true
	})
	return id
}
