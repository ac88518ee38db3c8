package observe

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// hackerNewsHost is the one aggregator with a dedicated extractor. Its
// front page and item pages short-circuit the general list/comment
// heuristics with structured results.
const hackerNewsHost = "news.ycombinator.com"

// isHackerNews reports whether pageURL points at the aggregator.
func isHackerNews(pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), hackerNewsHost)
}

// applyHackerNews fills the structured topic/story/comment fields and
// mirrors them into the general items/comments lists.
func (o *Observer) applyHackerNews(doc *html.Node, base *url.URL, obs *types.Observation) {
	topics := o.hnTopics(doc, base)
	comments := o.hnComments(doc, base)

	onItemPage := base != nil && strings.HasPrefix(base.Path, "/item")
	if onItemPage && len(topics) > 0 {
		story := topics[0]
		obs.Story = &story
	} else if len(topics) > 0 {
		obs.Topics = topics
	}
	obs.StoryComments = comments

	if len(topics) > 0 && !onItemPage {
		obs.Items = o.topicsAsItems(topics)
	}
	if len(comments) > 0 {
		obs.Comments = o.storyCommentsAsComments(comments)
	}
}

// hnTopics extracts story rows: tr.athing rows that are not comment rows,
// with rank, title link, and the points/comments subtext row below.
func (o *Observer) hnTopics(doc *html.Node, base *url.URL) []types.TopicSummary {
	var topics []types.TopicSummary
	rows := findAll(doc, func(n *html.Node) bool {
		return tagName(n) == "tr" && hasClass(n, "athing") && !hasClass(n, "comtr")
	})
	for _, row := range rows {
		if len(topics) >= o.budgets.MaxItems {
			break
		}
		topic := types.TopicSummary{Rank: len(topics) + 1}

		if rank := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "span" && hasClass(n, "rank")
		}); rank != nil {
			text := strings.TrimSuffix(textContent(rank), ".")
			if parsed, err := strconv.Atoi(text); err == nil {
				topic.Rank = parsed
			}
		}

		title := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "span" && hasClass(n, "titleline")
		})
		var link *html.Node
		if title != nil {
			link = findFirst(title, byTag("a"))
		} else if td := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "td" && hasClass(n, "title")
		}); td != nil {
			link = findFirst(td, byTag("a"))
		}
		if link == nil {
			continue
		}
		topic.Title = textContent(link)
		topic.URL = resolveURL(base, attr(link, "href"))
		if topic.Title == "" || topic.URL == "" {
			continue
		}

		if subtext := hnSubtext(row); subtext != nil {
			if score := findFirst(subtext, func(n *html.Node) bool {
				return tagName(n) == "span" && hasClass(n, "score")
			}); score != nil {
				if points, ok := leadingInt(textContent(score)); ok {
					topic.Points = types.IntPtr(points)
				}
			}
			for _, a := range findAll(subtext, byTag("a")) {
				label := strings.ToLower(textContent(a))
				if !strings.Contains(label, "comment") && label != "discuss" {
					continue
				}
				topic.CommentsURL = resolveURL(base, attr(a, "href"))
				if count, ok := leadingInt(label); ok {
					topic.Comments = types.IntPtr(count)
				} else {
					topic.Comments = types.IntPtr(0)
				}
			}
		}

		topics = append(topics, topic)
	}
	return topics
}

// hnSubtext returns the metadata row following a story row.
func hnSubtext(row *html.Node) *html.Node {
	sib := row.NextSibling
	for sib != nil && tagName(sib) != "tr" {
		sib = sib.NextSibling
	}
	if sib == nil {
		return nil
	}
	return findFirst(sib, func(n *html.Node) bool {
		return tagName(n) == "td" && hasClass(n, "subtext")
	})
}

// hnComments extracts discussion rows: tr.athing.comtr with the indent
// image width encoding nesting depth in 40px steps.
func (o *Observer) hnComments(doc *html.Node, base *url.URL) []types.StoryComment {
	var comments []types.StoryComment
	rows := findAll(doc, func(n *html.Node) bool {
		return tagName(n) == "tr" && hasClass(n, "athing") && hasClass(n, "comtr")
	})
	for _, row := range rows {
		if len(comments) >= o.budgets.MaxComments {
			break
		}
		comment := types.StoryComment{CommentID: attr(row, "id")}

		if ind := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "td" && hasClass(n, "ind")
		}); ind != nil {
			if img := findFirst(ind, byTag("img")); img != nil {
				if width, err := strconv.Atoi(attr(img, "width")); err == nil {
					comment.Indent = width / 40
				}
			} else if v := attr(ind, "indent"); v != "" {
				if indent, err := strconv.Atoi(v); err == nil {
					comment.Indent = indent
				}
			}
		}

		if user := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "a" && hasClass(n, "hnuser")
		}); user != nil {
			comment.Author = textContent(user)
		}
		if age := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "span" && hasClass(n, "age")
		}); age != nil {
			comment.Age = textContent(age)
		}
		if score := findFirst(row, func(n *html.Node) bool {
			return tagName(n) == "span" && hasClass(n, "score")
		}); score != nil {
			if points, ok := leadingInt(textContent(score)); ok {
				comment.Points = types.IntPtr(points)
			}
		}

		body := findFirst(row, func(n *html.Node) bool {
			return hasClass(n, "commtext")
		})
		if body == nil {
			continue
		}
		comment.Text = truncateText(textContent(body), o.budgets.MaxCommentChars)
		if comment.Text == "" {
			continue
		}

		comments = append(comments, comment)
	}
	return comments
}

// topicsAsItems mirrors structured topics into the general item list.
func (o *Observer) topicsAsItems(topics []types.TopicSummary) []types.ObservedItem {
	items := make([]types.ObservedItem, 0, len(topics))
	for _, topic := range topics {
		item := types.ObservedItem{
			Title: topic.Title,
			URL:   topic.URL,
			Tag:   "tr",
		}
		if topic.CommentsURL != "" {
			label := "discuss"
			if topic.Comments != nil && *topic.Comments > 0 {
				label = strconv.Itoa(*topic.Comments) + " comments"
			}
			item.Links = append(item.Links, types.ObservedItemLink{
				Title: label,
				URL:   topic.CommentsURL,
			})
		}
		if topic.Points != nil {
			item.Snippet = strconv.Itoa(*topic.Points) + " points"
		}
		items = append(items, item)
	}
	return items
}

// storyCommentsAsComments mirrors structured comments into the general
// comment list.
func (o *Observer) storyCommentsAsComments(comments []types.StoryComment) []types.ObservedComment {
	out := make([]types.ObservedComment, 0, len(comments))
	for _, c := range comments {
		oc := types.ObservedComment{
			Text:   c.Text,
			Author: c.Author,
			Age:    c.Age,
			Depth:  c.Indent,
		}
		if c.Points != nil {
			oc.Score = strconv.Itoa(*c.Points) + " points"
		}
		out = append(out, oc)
	}
	return out
}

// leadingInt parses the integer at the start of s, tolerating a prefix of
// whitespace.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}
