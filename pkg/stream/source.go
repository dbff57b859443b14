package stream

import (
	"context"
	"time"
	"unicode/utf8"
)

// Source produces a streamed response and feeds it to a handler.
type Source interface {
	Stream(ctx context.Context, handler Handler) error
}

// TextSource replays a fixed text as a stream of chunks. It stands in for a
// model when rendering saved transcripts.
type TextSource struct {
	Text string
	// ChunkSize is the number of runes per chunk; values below one mean one.
	ChunkSize int
	// Delay is slept between chunks.
	Delay time.Duration
}

// NewTextSource creates a replay source
func NewTextSource(text string, chunkSize int, delay time.Duration) *TextSource {
	return &TextSource{Text: text, ChunkSize: chunkSize, Delay: delay}
}

// Stream delivers the text chunk by chunk. Cancelling ctx stops the replay
// and reports ctx.Err() to the handler.
func (s *TextSource) Stream(ctx context.Context, handler Handler) error {
	for _, chunk := range Chunks(s.Text, s.ChunkSize) {
		if err := s.wait(ctx); err != nil {
			handler.OnError(err)
			return err
		}
		if err := handler.OnChunk([]byte(chunk)); err != nil {
			handler.OnError(err)
			return err
		}
	}
	return handler.OnComplete(s.Text)
}

func (s *TextSource) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil || s.Delay <= 0 {
		return err
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Chunks splits text into pieces of size runes without breaking a UTF-8
// sequence.
func Chunks(text string, size int) []string {
	if size < 1 {
		size = 1
	}
	var chunks []string
	for len(text) > 0 {
		end, n := 0, 0
		for end < len(text) && n < size {
			_, w := utf8.DecodeRuneInString(text[end:])
			end += w
			n++
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}
