// Package langchain connects langchaingo models to the rendering pipeline.
package langchain

import (
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/killallgit/markstream/pkg/message"
)

// FromContentChoice builds a finished assistant message from a model choice.
// Tool calls requested by the model start out pending.
func FromContentChoice(choice *llms.ContentChoice, modelID string) message.RawMessage {
	msg := message.RawMessage{
		Role:    message.RoleAssistant,
		ModelID: modelID,
	}
	if choice == nil {
		return msg
	}
	msg.Text = choice.Content
	msg.ToolCalls = ToolCallRecords(choice.ToolCalls)
	return msg
}

// ToolCallRecords converts langchaingo tool calls into pending records. The
// JSON argument string is kept raw and decoded when it is an object.
func ToolCallRecords(calls []llms.ToolCall) []message.ToolCallRecord {
	if len(calls) == 0 {
		return nil
	}

	records := make([]message.ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		record := message.ToolCallRecord{
			ID:     call.ID,
			Status: message.ToolPending,
		}
		if call.FunctionCall != nil {
			record.Name = call.FunctionCall.Name
			args := strings.TrimSpace(call.FunctionCall.Arguments)
			if args != "" {
				record.RawParameters = json.RawMessage(args)
				if params, err := record.Params(); err == nil {
					record.Parameters = params
				}
			}
		}
		records = append(records, record)
	}
	return records
}

// FirstChoice returns the first choice of a response, or nil.
func FirstChoice(resp *llms.ContentResponse) *llms.ContentChoice {
	if resp == nil || len(resp.Choices) == 0 {
		return nil
	}
	return resp.Choices[0]
}
