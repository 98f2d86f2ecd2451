package models

type AgentMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

const (
	ToolStatusOK       = "ok"
	ToolStatusNotFound = "not_found"
	ToolStatusError    = "error"
)

type ToolResult struct {
	ToolCallID  string `json:"tool_call_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Content     string `json:"content,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// ToolOutcome is what a tool implementation hands back to the agent loop.
// Execution failures are returned as errors and mapped to an error-status
// ToolResult by the loop, never propagated further.
type ToolOutcome struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}

func OKOutcome(content string) ToolOutcome {
	return ToolOutcome{Status: ToolStatusOK, Content: content}
}

func NotFoundOutcome(content string) ToolOutcome {
	return ToolOutcome{Status: ToolStatusNotFound, Content: content}
}

type AgentRequest struct {
	Messages []AgentMessage `json:"messages"`
}

type AgentResponse struct {
	Messages []AgentMessage `json:"messages"`
	Response string         `json:"response"`
	Partial  bool           `json:"partial,omitempty"`
}

type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

type CapabilitiesResponse struct {
	Capabilities []Capability `json:"capabilities"`
	Status       string       `json:"status"`
}
