package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// RawMessage is the immutable snapshot handed to the pipeline on every render.
// While IsStreaming is true, Text only grows by append.
type RawMessage struct {
	Text        string           `json:"text"`
	IsStreaming bool             `json:"is_streaming"`
	ToolCalls   []ToolCallRecord `json:"tool_calls,omitempty"`
	ModelID     string           `json:"model_id,omitempty"`
	Role        string           `json:"role,omitempty"`
}

// IsAssistant reports whether the message came from the model. An empty role
// counts as assistant.
func (m RawMessage) IsAssistant() bool {
	return m.Role == "" || m.Role == RoleAssistant
}

// ToolStatus is the externally driven lifecycle state of a tool call
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolExecuting ToolStatus = "executing"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// Known reports whether s is one of the four lifecycle states
func (s ToolStatus) Known() bool {
	switch s {
	case ToolPending, ToolExecuting, ToolCompleted, ToolError:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected
func (s ToolStatus) Terminal() bool {
	return s == ToolCompleted || s == ToolError
}

// ToolCallRecord describes one external tool invocation. The pipeline only
// reads it; the surrounding system owns status transitions.
type ToolCallRecord struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Status        ToolStatus      `json:"status"`
	Parameters    map[string]any  `json:"parameters,omitempty"`
	RawParameters json.RawMessage `json:"raw_parameters,omitempty"`
	Result        string          `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Params returns the decoded parameters. RawParameters is used only when
// Parameters is empty; a non-object payload is an error.
func (r ToolCallRecord) Params() (map[string]any, error) {
	if len(r.Parameters) > 0 || len(r.RawParameters) == 0 {
		return r.Parameters, nil
	}

	raw := strings.TrimSpace(string(r.RawParameters))
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("tool call %q: decode parameters: %w", r.Name, err)
	}
	return params, nil
}

// NewAssistantMessage returns a finished assistant message
func NewAssistantMessage(text string) RawMessage {
	return RawMessage{
		Role: RoleAssistant,
		Text: text,
	}
}

// NewStreamingMessage returns an assistant message that is still receiving tokens
func NewStreamingMessage(text string) RawMessage {
	return RawMessage{
		Role:        RoleAssistant,
		Text:        text,
		IsStreaming: true,
	}
}

// Decode reads either a JSON-encoded RawMessage or, when data is not a JSON
// object, treats the whole input as assistant text.
func Decode(data []byte) (RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return NewAssistantMessage(string(data)), nil
	}

	var msg RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return RawMessage{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}
