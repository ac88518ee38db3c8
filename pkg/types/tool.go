package types

import "github.com/google/uuid"

// Mode selects the agent's policy posture. Observe mode restricts the tool
// surface to DOM observation only; assist mode allows the full surface.
type Mode string

const (
	ModeObserve Mode = "observe"
	ModeAssist  Mode = "assist"
)

// ToolName identifies one action of the closed tool surface.
type ToolName string

const (
	ToolObserveDOM       ToolName = "browser.observe_dom"
	ToolClick            ToolName = "browser.click"
	ToolType             ToolName = "browser.type"
	ToolScroll           ToolName = "browser.scroll"
	ToolOpenTab          ToolName = "browser.open_tab"
	ToolNavigate         ToolName = "browser.navigate"
	ToolBack             ToolName = "browser.back"
	ToolForward          ToolName = "browser.forward"
	ToolRefresh          ToolName = "browser.refresh"
	ToolSelect           ToolName = "browser.select"
	ToolContentSummarize ToolName = "content.summarize"
	ToolContentFind      ToolName = "content.find"
)

// AllToolNames lists every tool of the closed surface. Used by the
// validator to reject unknown names before execution.
var AllToolNames = []ToolName{
	ToolObserveDOM,
	ToolClick,
	ToolType,
	ToolScroll,
	ToolOpenTab,
	ToolNavigate,
	ToolBack,
	ToolForward,
	ToolRefresh,
	ToolSelect,
	ToolContentSummarize,
	ToolContentFind,
}

// IsKnownTool reports whether name is part of the closed surface.
func IsKnownTool(name ToolName) bool {
	for _, known := range AllToolNames {
		if name == known {
			return true
		}
	}
	return false
}

// ToolStatus is the outcome class of one executed tool call.
type ToolStatus string

const (
	StatusOK        ToolStatus = "ok"
	StatusError     ToolStatus = "error"
	StatusCancelled ToolStatus = "cancelled"
)

// ToolCall is one requested action: a tool name plus its arguments object.
type ToolCall struct {
	Name      ToolName       `json:"name"`
	Arguments map[string]any `json:"arguments"`
	ID        string         `json:"id"`
}

// NewToolCall creates a call with a generated id.
func NewToolCall(name ToolName, arguments map[string]any) ToolCall {
	if arguments == nil {
		arguments = map[string]any{}
	}
	return ToolCall{Name: name, Arguments: arguments, ID: uuid.New().String()}
}

// ToolResult is the outcome of one executed tool call.
type ToolResult struct {
	ToolCallID string         `json:"toolCallId"`
	Status     ToolStatus     `json:"status"`
	Payload    map[string]any `json:"payload"`
}

// ToolExecutionOutcome pairs a result with the fresh observation produced
// by navigation-class tools. Observation is nil for local-state tools.
type ToolExecutionOutcome struct {
	Result      ToolResult
	Observation *Observation
}

// ModelResponse is the parsed form of the model's wire-contract output.
type ModelResponse struct {
	Summary   string
	ToolCalls []ToolCall
}

// ContextPack carries everything the prompt builder needs for one step.
type ContextPack struct {
	Origin            string
	Mode              Mode
	Observation       *Observation
	RecentToolCalls   []ToolCall
	RecentToolResults []ToolResult
	Tabs              []TabSummary
	Step              int
	MaxSteps          int
}

// GoalPlan is the structured reading of the user's free-text goal.
// TopicIndex is zero-based; -1 means no ordinal targeting. At most one of
// TopicIndex/ItemQuery drives item selection; WantsComments is orthogonal.
type GoalPlan struct {
	TopicIndex    int
	WantsComments bool
	ItemQuery     string
}

// DefaultGoalPlan returns a plan with no targeting.
func DefaultGoalPlan() GoalPlan {
	return GoalPlan{TopicIndex: -1}
}

// HasTargeting reports whether the plan selects a specific item.
func (p GoalPlan) HasTargeting() bool {
	return p.TopicIndex >= 0 || p.ItemQuery != ""
}
