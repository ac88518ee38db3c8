// Package parser implements the model wire contract: recovering the single
// JSON response object from raw model text and turning it into a
// ModelResponse. Unparsable output degrades to a plain-text summary with
// zero tool calls rather than an error.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/wayfindhq/wayfind/pkg/types"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>[\s\S]*?</think>`)
	thinkTagRe   = regexp.MustCompile(`(?i)<\s*/?\s*think\s*>`)
)

// StripThinkBlocks removes <think>...</think> blocks and stray think tags.
func StripThinkBlocks(text string) string {
	withoutBlocks := thinkBlockRe.ReplaceAllString(text, "")
	return thinkTagRe.ReplaceAllString(withoutBlocks, "")
}

// StripCodeFences drops any line that starts a markdown code fence.
func StripCodeFences(text string) string {
	lines := strings.Split(text, "\n")
	filtered := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		filtered = append(filtered, line)
	}
	return strings.Join(filtered, "\n")
}

// ExtractJSONObject returns the first balanced top-level JSON object in
// text, honoring string literals and escapes, or "" if none exists.
func ExtractJSONObject(text string) string {
	depth := 0
	inString := false
	escaped := false
	start := -1

	for idx, ch := range text {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			if depth == 0 {
				start = idx
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return text[start : idx+len("}")]
				}
			}
		}
	}
	return ""
}

// rawToolCall tolerates the alias keys some models emit for tool calls.
type rawToolCall struct {
	Name      string         `json:"name"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Args      map[string]any `json:"args"`
}

type rawResponse struct {
	Summary   string        `json:"summary"`
	ToolCalls []rawToolCall `json:"tool_calls"`
}

// Parse recovers a ModelResponse from raw model output. If no valid JSON
// object is found, the sanitized text becomes the summary and the call
// list is empty.
func Parse(text string) types.ModelResponse {
	sanitized := StripCodeFences(StripThinkBlocks(text))
	jsonStr := ExtractJSONObject(sanitized)
	if jsonStr == "" {
		return types.ModelResponse{Summary: strings.TrimSpace(sanitized)}
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return types.ModelResponse{Summary: strings.TrimSpace(sanitized)}
	}

	resp := types.ModelResponse{Summary: raw.Summary}
	for _, call := range raw.ToolCalls {
		name := call.Name
		if name == "" {
			name = call.Tool
		}
		toolName := types.ToolName(name)
		if !types.IsKnownTool(toolName) {
			continue
		}
		args := call.Arguments
		if args == nil {
			args = call.Args
		}
		resp.ToolCalls = append(resp.ToolCalls, types.NewToolCall(toolName, args))
	}
	return resp
}

// LooksComplete reports whether accumulated streaming text already holds a
// full wire-contract object. Used as the early-stop predicate when
// draining a token stream.
func LooksComplete(text string) bool {
	if !strings.Contains(text, "{") || !strings.Contains(text, "}") {
		return false
	}
	sanitized := StripCodeFences(StripThinkBlocks(text))
	jsonStr := ExtractJSONObject(sanitized)
	if jsonStr == "" {
		return false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return false
	}
	_, hasSummary := payload["summary"]
	_, hasCalls := payload["tool_calls"]
	return hasSummary && hasCalls
}
