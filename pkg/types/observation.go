// Package types defines the shared data model for the browsing agent:
// page observations, tool calls and results, and the per-step context
// handed to the model.
package types

// BoundingBox is carried as a placeholder for element geometry. The
// simulated browser never lays pages out, so all fields stay zero.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ObservedElement is one interactive element surfaced to the model.
// HandleID is unique within a single Observation and becomes stale as
// soon as the owning tab re-observes.
type ObservedElement struct {
	HandleID    string      `json:"handleId"`
	Role        string      `json:"role"`
	Label       string      `json:"label"`
	BoundingBox BoundingBox `json:"boundingBox"`
	Href        string      `json:"href,omitempty"`
	InputType   string      `json:"inputType,omitempty"`
}

// ObservedTextBlock is a content-bearing text segment with link statistics.
type ObservedTextBlock struct {
	Tag         string  `json:"tag"`
	Role        string  `json:"role"`
	Text        string  `json:"text"`
	LinkCount   int     `json:"linkCount"`
	LinkDensity float64 `json:"linkDensity"`
	HandleID    string  `json:"handleId,omitempty"`
}

// ObservedPrimaryContent is the single highest-scoring text block of a page.
type ObservedPrimaryContent struct {
	Tag         string  `json:"tag"`
	Role        string  `json:"role"`
	Text        string  `json:"text"`
	LinkCount   int     `json:"linkCount"`
	LinkDensity float64 `json:"linkDensity"`
	HandleID    string  `json:"handleId,omitempty"`
}

// ObservedItemLink is a secondary link attached to a list item, such as a
// "discuss" or "12 comments" link next to the item's primary link.
type ObservedItemLink struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	HandleID string `json:"handleId,omitempty"`
}

// ObservedItem is one entry of a detected list or feed.
type ObservedItem struct {
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	Snippet     string             `json:"snippet"`
	Tag         string             `json:"tag"`
	LinkCount   int                `json:"linkCount"`
	LinkDensity float64            `json:"linkDensity"`
	HandleID    string             `json:"handleId,omitempty"`
	Links       []ObservedItemLink `json:"links,omitempty"`
}

// ObservedOutlineItem is one heading or list entry of the page skeleton.
type ObservedOutlineItem struct {
	Level int    `json:"level"`
	Tag   string `json:"tag"`
	Role  string `json:"role"`
	Text  string `json:"text"`
}

// ObservedComment is one extracted comment with optional metadata.
type ObservedComment struct {
	Text     string `json:"text"`
	Author   string `json:"author,omitempty"`
	Age      string `json:"age,omitempty"`
	Score    string `json:"score,omitempty"`
	Depth    int    `json:"depth"`
	HandleID string `json:"handleId,omitempty"`
}

// TopicSummary is one story row of a known aggregator front page, or the
// story header of an aggregator item page.
type TopicSummary struct {
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	CommentsURL string `json:"commentsUrl,omitempty"`
	Points      *int   `json:"points,omitempty"`
	Comments    *int   `json:"comments,omitempty"`
}

// StoryComment is one comment of a known aggregator discussion page.
type StoryComment struct {
	CommentID string `json:"commentId"`
	Author    string `json:"author"`
	Points    *int   `json:"points,omitempty"`
	Age       string `json:"age"`
	Text      string `json:"text"`
	Indent    int    `json:"indent"`
}

// Observation is an immutable snapshot of one page. It is created once per
// successful navigation or DOM observation and never mutated afterwards.
type Observation struct {
	URL      string
	Title    string
	Text     string
	Elements []ObservedElement
	Blocks   []ObservedTextBlock
	Items    []ObservedItem
	Outline  []ObservedOutlineItem
	Primary  *ObservedPrimaryContent
	Comments []ObservedComment

	// Aggregator short-circuit results, populated only for known sites.
	Topics        []TopicSummary
	Story         *TopicSummary
	StoryComments []StoryComment
}

// ElementHandle pairs an observed element with the full text of the node it
// was extracted from. Handles are owned by a tab and replaced wholesale on
// every re-observation.
type ElementHandle struct {
	Observed ObservedElement
	Text     string
}

// TabSummary describes one open tab for prompt construction.
type TabSummary struct {
	Title    string
	URL      string
	Origin   string
	IsActive bool
}

// PageBrief is a compact record of a previously visited page, kept so the
// model can refer back to recent navigation without re-fetching.
type PageBrief struct {
	URL         string
	Title       string
	TextExcerpt string
	MainLinks   []string
	Topics      []TopicSummary
	Story       *TopicSummary
}

// IntPtr returns a pointer to v. Convenience for optional counts.
func IntPtr(v int) *int { return &v }
