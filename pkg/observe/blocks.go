package observe

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// blockTags is the fixed set of block-level tags scanned for text blocks.
var blockTags = map[string]bool{
	"article": true, "main": true, "section": true, "div": true,
	"p": true, "blockquote": true, "pre": true,
}

// genericBlockTags are containers that need an upper length cap so page
// wrappers do not swallow the whole document as one block.
var genericBlockTags = map[string]bool{
	"section": true, "div": true,
}

type scoredBlock struct {
	block types.ObservedTextBlock
	score float64
	order int
}

// extractBlocks scans block-level nodes, scores them by text length
// discounted by link density, and returns the single best block as primary
// plus the top blocks re-sorted into document order.
func (o *Observer) extractBlocks(doc *html.Node) (*types.ObservedPrimaryContent, []types.ObservedTextBlock) {
	var candidates []scoredBlock
	order := 0

	walk(doc, func(n *html.Node) bool {
		tag := tagName(n)
		if !blockTags[tag] {
			return true
		}
		order++
		if isNonContent(n) || insideNonContent(n) {
			return true
		}

		text := textContent(n)
		if len(text) < o.heur.MinBlockChars {
			return true
		}
		if genericBlockTags[tag] && len(text) > o.heur.MaxGenericBlockChars {
			return true
		}

		linkCount, linkDensity := linkStats(n)
		if linkDensity > o.heur.LinkDensityLimit && len(text) < o.heur.LinkDensityCharLimit {
			return true
		}

		score := float64(len(text)) * (1 - linkDensity)
		if tag == "article" || tag == "main" {
			score += o.heur.ContentTagBonus
		}

		candidates = append(candidates, scoredBlock{
			block: types.ObservedTextBlock{
				Tag:         tag,
				Role:        strings.ToLower(attr(n, "role")),
				Text:        text,
				LinkCount:   linkCount,
				LinkDensity: linkDensity,
			},
			score: score,
			order: order,
		})
		return true
	})

	if len(candidates) == 0 {
		return nil, nil
	}

	byScore := make([]scoredBlock, len(candidates))
	copy(byScore, candidates)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].score > byScore[j].score
	})

	best := byScore[0]
	primary := &types.ObservedPrimaryContent{
		Tag:         best.block.Tag,
		Role:        best.block.Role,
		Text:        truncateText(best.block.Text, o.budgets.MaxPrimaryChars),
		LinkCount:   best.block.LinkCount,
		LinkDensity: best.block.LinkDensity,
	}

	top := byScore
	if len(top) > o.budgets.MaxBlocks {
		top = top[:o.budgets.MaxBlocks]
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].order < top[j].order
	})

	blocks := make([]types.ObservedTextBlock, 0, len(top))
	for _, sb := range top {
		b := sb.block
		b.Text = truncateText(b.Text, o.budgets.MaxBlockChars)
		blocks = append(blocks, b)
	}
	return primary, blocks
}

// outlineTags maps outline node tags to heading levels; zero means a
// non-heading skeleton entry.
var outlineTags = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
	"li": 0, "dt": 0, "dd": 0, "summary": 0, "figcaption": 0, "caption": 0,
}

// extractOutline collects the heading and list skeleton of the page,
// deduplicated by normalized text and kept in document order.
func (o *Observer) extractOutline(doc *html.Node) []types.ObservedOutlineItem {
	var outline []types.ObservedOutlineItem
	seen := map[string]bool{}

	walk(doc, func(n *html.Node) bool {
		if len(outline) >= o.budgets.MaxOutline {
			return false
		}
		tag := tagName(n)
		level, ok := outlineTags[tag]
		if !ok {
			return true
		}
		if isNonContent(n) || insideNonContent(n) {
			return true
		}
		text := textContent(n)
		if text == "" {
			return true
		}
		key := strings.ToLower(text)
		if seen[key] {
			return true
		}
		seen[key] = true
		outline = append(outline, types.ObservedOutlineItem{
			Level: level,
			Tag:   tag,
			Role:  strings.ToLower(attr(n, "role")),
			Text:  truncateText(text, o.budgets.MaxOutlineChars),
		})
		// List entries may nest further entries; keep walking into them.
		return true
	})
	return outline
}
