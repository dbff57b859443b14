package stream

import "context"

// Handler receives a streamed response chunk by chunk.
type Handler interface {
	// OnChunk is called for each new piece of content.
	OnChunk(chunk []byte) error

	// OnComplete is called once with the final content, which may be empty
	// when the source has nothing beyond the chunks already delivered.
	OnComplete(finalContent string) error

	// OnError is called when the stream fails.
	OnError(err error)
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc struct {
	ChunkFunc    func(chunk []byte) error
	CompleteFunc func(finalContent string) error
	ErrorFunc    func(err error)
}

// OnChunk implements Handler
func (h HandlerFunc) OnChunk(chunk []byte) error {
	if h.ChunkFunc != nil {
		return h.ChunkFunc(chunk)
	}
	return nil
}

// OnComplete implements Handler
func (h HandlerFunc) OnComplete(finalContent string) error {
	if h.CompleteFunc != nil {
		return h.CompleteFunc(finalContent)
	}
	return nil
}

// OnError implements Handler
func (h HandlerFunc) OnError(err error) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(err)
	}
}

// ToStreamingFunc converts a Handler to the callback signature used by
// langchaingo's llms.WithStreamingFunc.
func ToStreamingFunc(handler Handler) func(context.Context, []byte) error {
	return func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			handler.OnError(ctx.Err())
			return ctx.Err()
		default:
			return handler.OnChunk(chunk)
		}
	}
}

// MultiHandler broadcasts to several handlers in order. The first error
// stops the broadcast.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler creates a handler that forwards to multiple handlers
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// OnChunk forwards the chunk to all handlers
func (m *MultiHandler) OnChunk(chunk []byte) error {
	for _, h := range m.handlers {
		if err := h.OnChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

// OnComplete forwards completion to all handlers
func (m *MultiHandler) OnComplete(finalContent string) error {
	for _, h := range m.handlers {
		if err := h.OnComplete(finalContent); err != nil {
			return err
		}
	}
	return nil
}

// OnError forwards errors to all handlers
func (m *MultiHandler) OnError(err error) {
	for _, h := range m.handlers {
		h.OnError(err)
	}
}

var (
	_ Handler = HandlerFunc{}
	_ Handler = (*MultiHandler)(nil)
	_ Handler = (*Session)(nil)
)
