// Package tools implements the closed action surface: per-tool argument
// schemas validated before execution, and the executor that dispatches one
// validated call against a browser session.
package tools

import (
	"fmt"
	"sort"

	"github.com/wayfindhq/wayfind/pkg/types"
)

// Predicate checks one argument value's type and shape.
type Predicate struct {
	Name  string
	Check func(any) bool
}

var (
	isString = Predicate{Name: "string", Check: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}
	isNumber = Predicate{Name: "number", Check: func(v any) bool {
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	}}
	isScope = Predicate{Name: "scope", Check: func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		return s == "page" || s == "item" || s == "comments"
	}}
	isFindScope = Predicate{Name: "find scope", Check: func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		return s == "page" || s == "web"
	}}
)

// Schema is one tool's argument contract: required and optional keys with
// type predicates. Any key outside the union is rejected.
type Schema struct {
	Required map[string]Predicate
	Optional map[string]Predicate
}

// Validate checks args against the schema. It is stateless: no browser or
// page state is consulted.
func (s Schema) Validate(args map[string]any) error {
	for key, pred := range s.Required {
		v, ok := args[key]
		if !ok {
			return fmt.Errorf("missing required argument %q", key)
		}
		if !pred.Check(v) {
			return fmt.Errorf("argument %q must be a %s", key, pred.Name)
		}
	}
	var unknown []string
	for key, v := range args {
		if _, ok := s.Required[key]; ok {
			continue
		}
		pred, ok := s.Optional[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if !pred.Check(v) {
			return fmt.Errorf("argument %q must be a %s", key, pred.Name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown argument %q", unknown[0])
	}
	return nil
}

// schemas is the closed schema table. A tool missing here does not exist.
var schemas = map[types.ToolName]Schema{
	types.ToolObserveDOM: {
		Optional: map[string]Predicate{
			"maxChars":    isNumber,
			"maxElements": isNumber,
		},
	},
	types.ToolClick: {
		Required: map[string]Predicate{"handleId": isString},
	},
	types.ToolType: {
		Required: map[string]Predicate{
			"handleId": isString,
			"text":     isString,
		},
	},
	types.ToolSelect: {
		Required: map[string]Predicate{
			"handleId": isString,
			"value":    isString,
		},
	},
	types.ToolScroll: {
		Required: map[string]Predicate{"deltaY": isNumber},
	},
	types.ToolOpenTab: {
		Required: map[string]Predicate{"url": isString},
	},
	types.ToolNavigate: {
		Required: map[string]Predicate{"url": isString},
	},
	types.ToolBack:    {},
	types.ToolForward: {},
	types.ToolRefresh: {},
	types.ToolContentSummarize: {
		Optional: map[string]Predicate{
			"scope":    isScope,
			"handleId": isString,
		},
	},
	types.ToolContentFind: {
		Required: map[string]Predicate{"query": isString},
		Optional: map[string]Predicate{"scope": isFindScope},
	},
}

// SchemaFor returns the schema of a known tool.
func SchemaFor(name types.ToolName) (Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}

// ValidateCall validates one tool call against the closed surface.
func ValidateCall(call types.ToolCall) error {
	schema, ok := schemas[call.Name]
	if !ok {
		return fmt.Errorf("unknown tool %q", call.Name)
	}
	if err := schema.Validate(call.Arguments); err != nil {
		return fmt.Errorf("%s: %w", call.Name, err)
	}
	return nil
}
