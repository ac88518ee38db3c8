// Package observe turns raw page markup into a bounded, ranked,
// handle-addressable Observation. Extraction is a pure function of the
// markup and the budgets: identical input yields an identical observation,
// including handle-id assignment order. Malformed markup never errors; the
// observer degrades to empty structures for whatever it cannot extract.
package observe

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/wayfindhq/wayfind/pkg/config"
	"github.com/wayfindhq/wayfind/pkg/types"
)

// handlePrefix prefixes every element handle id. Ids are sequential within
// one observation and stale as soon as the page re-observes.
const handlePrefix = "wf-"

// focusMinChars is the minimum focus-candidate length for the article/main
// and section/div passes of the focus-text cascade.
const focusMinChars = 200

// focusScanLimit bounds the section/div scan of the focus-text cascade.
const focusScanLimit = 400

// Heuristics centralizes the empirically tuned extraction constants so
// they can be re-tuned in one place.
type Heuristics struct {
	// Item anchor scoring.
	ExternalHostBonus  int
	ShortAnchorPenalty int
	ShortAnchorLen     int
	BareLabelPenalty   int

	// Item container filters.
	MinContainerChars int
	MinAnchorShare    float64
	AnchorShareMinLen int

	// Text-block filters and scoring.
	MinBlockChars        int
	MaxGenericBlockChars int
	LinkDensityLimit     float64
	LinkDensityCharLimit int
	ContentTagBonus      float64
}

// DefaultHeuristics returns the starting heuristic profile.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ExternalHostBonus:    80,
		ShortAnchorPenalty:   -10,
		ShortAnchorLen:       6,
		BareLabelPenalty:     -20,
		MinContainerChars:    20,
		MinAnchorShare:       0.12,
		AnchorShareMinLen:    120,
		MinBlockChars:        30,
		MaxGenericBlockChars: 900,
		LinkDensityLimit:     0.6,
		LinkDensityCharLimit: 200,
		ContentTagBonus:      200,
	}
}

// Observer extracts observations under a fixed set of budgets.
type Observer struct {
	budgets config.ObservationBudgets
	heur    Heuristics
}

// New creates an observer with the given budgets and default heuristics.
func New(budgets config.ObservationBudgets) *Observer {
	return &Observer{budgets: budgets, heur: DefaultHeuristics()}
}

// Budgets returns the observer's budgets.
func (o *Observer) Budgets() config.ObservationBudgets { return o.budgets }

// WithBudgets returns a copy of the observer using different budgets.
// Used for per-call overrides on DOM observation.
func (o *Observer) WithBudgets(budgets config.ObservationBudgets) *Observer {
	return &Observer{budgets: budgets, heur: o.heur}
}

// Title extracts just the document title from markup.
func Title(markup string) string {
	doc := parseDocument(markup)
	if t := findFirst(doc, byTag("title")); t != nil {
		return textContent(t)
	}
	return ""
}

// Observe extracts the full observation for one page and the element
// handle map addressed by its handle ids.
func (o *Observer) Observe(pageURL, markup string) (*types.Observation, map[string]types.ElementHandle) {
	doc := parseDocument(markup)

	obs := &types.Observation{URL: pageURL}
	if t := findFirst(doc, byTag("title")); t != nil {
		obs.Title = textContent(t)
	}

	stripNoise(doc)

	base, _ := url.Parse(pageURL)
	fullText := textContent(doc)
	obs.Text = truncateText(o.focusText(doc, fullText), o.budgets.MaxChars)

	elements, handles, nodeHandles := o.extractElements(doc, base)
	obs.Elements = elements

	primary, blocks := o.extractBlocks(doc)
	obs.Primary = primary
	obs.Blocks = blocks

	obs.Outline = o.extractOutline(doc)
	obs.Items = o.extractItems(doc, base, nodeHandles)
	obs.Comments = o.extractComments(doc, nodeHandles)

	if isHackerNews(pageURL) {
		o.applyHackerNews(doc, base, obs)
	}

	return obs, handles
}

// stripNoise removes script/style and chrome subtrees before any text
// extraction.
func stripNoise(doc *html.Node) {
	noise := map[string]bool{
		"script": true, "style": true, "noscript": true, "template": true,
		"iframe": true, "svg": true,
		"nav": true, "header": true, "footer": true, "aside": true,
	}
	detachNodes(doc, func(n *html.Node) bool {
		return noise[tagName(n)]
	})
}

// focusText implements the focus cascade: a long article/main node, else
// the longest sufficiently long section/div from a bounded scan, else the
// full page text.
func (o *Observer) focusText(doc *html.Node, fullText string) string {
	if n := findFirst(doc, byTag("article", "main")); n != nil {
		if text := textContent(n); len(text) > focusMinChars {
			return text
		}
	}

	best := ""
	scanned := 0
	walk(doc, func(n *html.Node) bool {
		if scanned >= focusScanLimit {
			return false
		}
		tag := tagName(n)
		if tag != "section" && tag != "div" {
			return true
		}
		scanned++
		if text := textContent(n); len(text) >= focusMinChars && len(text) > len(best) {
			best = text
		}
		return true
	})
	if best != "" {
		return best
	}
	return fullText
}

// resolveURL resolves href against the page URL and rejects schemes the
// simulated browser cannot follow.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}
	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}
	return resolved.String()
}

// nonContentRoles are ARIA roles that mark chrome rather than content.
var nonContentRoles = map[string]bool{
	"navigation": true, "banner": true, "contentinfo": true,
	"complementary": true, "menu": true, "menubar": true,
	"search": true, "form": true, "dialog": true, "alertdialog": true,
}

// nonContentTags are container tags that mark chrome rather than content.
// nav/header/footer/aside are already stripped; these survive stripping.
var nonContentTags = map[string]bool{
	"menu": true, "form": true, "dialog": true,
}

// isNonContent reports whether the node is chrome by tag or role.
func isNonContent(n *html.Node) bool {
	if nonContentTags[tagName(n)] {
		return true
	}
	return nonContentRoles[strings.ToLower(attr(n, "role"))]
}

// insideNonContent reports whether the node sits inside chrome.
func insideNonContent(n *html.Node) bool {
	return hasAncestor(n, isNonContent)
}

func handleID(seq int) string {
	return fmt.Sprintf("%s%d", handlePrefix, seq)
}
