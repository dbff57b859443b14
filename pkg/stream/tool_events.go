package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/markstream/pkg/message"
)

// ErrUnknownToolEvent is returned for an event type the session cannot apply.
var ErrUnknownToolEvent = errors.New("unknown tool event")

// ToolEvent reports progress of a tool call made while the message streams.
type ToolEvent struct {
	Type      ToolEventType  `json:"type"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToolEventType represents the type of tool event
type ToolEventType string

const (
	ToolEventQueued   ToolEventType = "tool_queued"
	ToolEventStart    ToolEventType = "tool_start"
	ToolEventOutput   ToolEventType = "tool_output"
	ToolEventComplete ToolEventType = "tool_complete"
	ToolEventError    ToolEventType = "tool_error"
)

// NewToolStartEvent creates a new tool start event
func NewToolStartEvent(id, name string, args map[string]any) ToolEvent {
	return ToolEvent{
		Type:      ToolEventStart,
		ID:        id,
		Name:      name,
		Arguments: args,
		Timestamp: time.Now(),
	}
}

// NewToolCompleteEvent creates a new tool complete event
func NewToolCompleteEvent(id, name, output string) ToolEvent {
	return ToolEvent{
		Type:      ToolEventComplete,
		ID:        id,
		Name:      name,
		Output:    output,
		Timestamp: time.Now(),
	}
}

// NewToolErrorEvent creates a new tool error event
func NewToolErrorEvent(id, name, errMsg string) ToolEvent {
	return ToolEvent{
		Type:      ToolEventError,
		ID:        id,
		Name:      name,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

func (e ToolEvent) status() (message.ToolStatus, error) {
	switch e.Type {
	case ToolEventQueued:
		return message.ToolPending, nil
	case ToolEventStart, ToolEventOutput:
		return message.ToolExecuting, nil
	case ToolEventComplete:
		return message.ToolCompleted, nil
	case ToolEventError:
		return message.ToolError, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownToolEvent, e.Type)
}

// applyToolEvent returns a new record slice with the event applied. The input
// slice and its records are left untouched so earlier documents stay valid.
func applyToolEvent(records []message.ToolCallRecord, e ToolEvent) ([]message.ToolCallRecord, error) {
	status, err := e.status()
	if err != nil {
		return records, err
	}

	out := append([]message.ToolCallRecord(nil), records...)
	idx := findRecord(out, e)
	if idx < 0 {
		out = append(out, message.ToolCallRecord{ID: e.ID, Name: e.Name})
		idx = len(out) - 1
	}

	r := out[idx]
	r.Status = status
	if len(e.Arguments) > 0 {
		r.Parameters = e.Arguments
	}
	switch e.Type {
	case ToolEventOutput:
		r.Result += e.Output
	case ToolEventComplete:
		if e.Output != "" {
			r.Result = e.Output
		}
	case ToolEventError:
		r.Error = e.Error
	}
	out[idx] = r
	return out, nil
}

// findRecord matches by ID, or by name against the latest unfinished record
// when the event carries no ID.
func findRecord(records []message.ToolCallRecord, e ToolEvent) int {
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if e.ID != "" {
			if r.ID == e.ID {
				return i
			}
			continue
		}
		if r.Name == e.Name && !r.Status.Terminal() {
			return i
		}
	}
	return -1
}
