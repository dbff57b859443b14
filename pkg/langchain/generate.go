package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/stream"
)

// StreamingOption routes streamed chunks of a GenerateContent call into h.
func StreamingOption(h stream.Handler) llms.CallOption {
	return llms.WithStreamingFunc(stream.ToStreamingFunc(h))
}

// Generate calls the model with streaming into session. When the call
// returns, the session is completed with the final choice and its tool calls;
// on failure the session is closed with the error.
func Generate(ctx context.Context, model llms.Model, messages []llms.MessageContent, session *stream.Session, options ...llms.CallOption) (*llms.ContentResponse, error) {
	log := logger.WithComponent("langchain").With("session", session.ID())

	options = append(options, StreamingOption(session))
	resp, err := model.GenerateContent(ctx, messages, options...)
	if err != nil {
		if !session.Closed() {
			session.OnError(err)
		}
		return nil, fmt.Errorf("generate content: %w", err)
	}

	choice := FirstChoice(resp)
	if choice == nil {
		log.Warn("Model returned no choices")
		return resp, session.OnComplete("")
	}

	if records := ToolCallRecords(choice.ToolCalls); len(records) > 0 {
		log.Debug("Model requested tools", "count", len(records))
		session.SetToolCalls(records)
	}
	if err := session.OnComplete(choice.Content); err != nil {
		return resp, err
	}
	return resp, nil
}
