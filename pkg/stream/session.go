package stream

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/pipeline"
)

// ErrSessionClosed is returned when chunks arrive after completion, error or
// cancellation.
var ErrSessionClosed = errors.New("stream session closed")

// Mode selects how a Session reparses.
type Mode int

const (
	// ModeFull reparses the whole message on every chunk.
	ModeFull Mode = iota
	// ModeIncremental reuses blocks of segments that can no longer change.
	// It produces the same documents as ModeFull.
	ModeIncremental
)

// String returns the mode name as used in configuration
func (m Mode) String() string {
	if m == ModeIncremental {
		return "incremental"
	}
	return "full"
}

// Update is one rendered revision. Revisions only increase; a renderer that
// has already shown a newer revision drops older ones.
type Update struct {
	SessionID string
	Revision  int
	Document  pipeline.Document
}

// SessionOptions configures a Session.
type SessionOptions struct {
	ID       string
	Mode     Mode
	ModelID  string
	Tracker  *Tracker
	OnUpdate func(Update)
}

// Session accumulates a streamed assistant message and reparses it after
// every change. It implements Handler and is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	id       string
	parser   *pipeline.Parser
	mode     Mode
	cache    pipeline.Cache
	text     strings.Builder
	msg      message.RawMessage
	doc      pipeline.Document
	revision int
	closed   bool
	err      error
	tracker  *Tracker
	onUpdate func(Update)
	log      *logger.ComponentLogger
}

// NewSession creates a streaming session
func NewSession(parser *pipeline.Parser, opts SessionOptions) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	s := &Session{
		id:     id,
		parser: parser,
		mode:   opts.Mode,
		msg: message.RawMessage{
			Role:        message.RoleAssistant,
			ModelID:     opts.ModelID,
			IsStreaming: true,
		},
		tracker:  opts.Tracker,
		onUpdate: opts.OnUpdate,
		log:      logger.WithComponent("stream").With("session", id, "mode", opts.Mode.String()),
	}
	if s.tracker != nil {
		s.tracker.Start(id)
	}
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// OnChunk appends chunk and reparses.
func (s *Session) OnChunk(chunk []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.text.Write(chunk)
	s.msg.Text = s.text.String()
	update := s.reparseLocked()
	if s.tracker != nil {
		s.tracker.Chunk(s.id, len(chunk), update.Revision)
	}
	s.mu.Unlock()

	s.notify(update)
	return nil
}

// OnComplete finishes the message. A non-empty finalContent replaces the
// accumulated text when the two differ.
func (s *Session) OnComplete(finalContent string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if finalContent != "" && finalContent != s.msg.Text {
		if !strings.HasPrefix(finalContent, s.msg.Text) {
			s.log.Debug("Final content diverges from streamed text", "streamed", len(s.msg.Text), "final", len(finalContent))
			s.cache.Reset()
		}
		s.text.Reset()
		s.text.WriteString(finalContent)
		s.msg.Text = finalContent
	}
	s.msg.IsStreaming = false
	s.closed = true
	update := s.reparseLocked()
	if s.tracker != nil {
		s.tracker.Finish(s.id, StateComplete, nil)
	}
	s.mu.Unlock()

	s.log.Debug("Stream complete", "revision", update.Revision, "cache_hits", s.cache.Hits())
	s.notify(update)
	return nil
}

// OnError closes the session. The text received so far is parsed one last
// time as a finished message so partial content still renders.
func (s *Session) OnError(err error) {
	s.finish(StateError, err)
}

// Cancel closes the session without an error.
func (s *Session) Cancel() {
	s.finish(StateCancelled, nil)
}

func (s *Session) finish(state State, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.msg.IsStreaming = false
	update := s.reparseLocked()
	if s.tracker != nil {
		s.tracker.Finish(s.id, state, err)
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("Stream failed", "error", err)
	}
	s.notify(update)
}

// ApplyToolEvent updates the tool-call records carried by the message and
// reparses. Events are accepted after completion since tools may finish late.
func (s *Session) ApplyToolEvent(e ToolEvent) error {
	s.mu.Lock()
	records, err := applyToolEvent(s.msg.ToolCalls, e)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.msg.ToolCalls = records
	update := s.reparseLocked()
	s.mu.Unlock()

	s.notify(update)
	return nil
}

// SetToolCalls replaces the tool-call snapshot and reparses.
func (s *Session) SetToolCalls(records []message.ToolCallRecord) {
	s.mu.Lock()
	s.msg.ToolCalls = append([]message.ToolCallRecord(nil), records...)
	update := s.reparseLocked()
	s.mu.Unlock()

	s.notify(update)
}

// Document returns the latest parsed document
func (s *Session) Document() pipeline.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Message returns the current message snapshot
func (s *Session) Message() message.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}

// Revision returns the number of parses performed so far
func (s *Session) Revision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Err returns the error the stream failed with, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Closed reports whether the session accepts more chunks
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) reparseLocked() Update {
	if s.mode == ModeIncremental {
		s.doc = s.parser.ParseCached(s.msg, &s.cache)
	} else {
		s.doc = s.parser.Parse(s.msg)
	}
	s.revision++
	return Update{SessionID: s.id, Revision: s.revision, Document: s.doc}
}

func (s *Session) notify(update Update) {
	if s.onUpdate != nil {
		s.onUpdate(update)
	}
}
