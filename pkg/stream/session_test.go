package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/pipeline"
)

const transcript = "<think>Check the docs</think>Use a fence:\n\n" +
	"```go\nfunc main() {}\n```\n" +
	"Then run it with $O(n)$ cost.\n\n" +
	"```sh\ngo run .\n```\n" +
	"- done\n\nSources:\n- https://go.dev/doc"

var _ = Describe("Session", func() {
	var parser *pipeline.Parser

	BeforeEach(func() {
		parser = pipeline.New(pipeline.Options{})
	})

	feed := func(s *Session, size int) {
		for _, chunk := range Chunks(transcript, size) {
			Expect(s.OnChunk([]byte(chunk))).To(Succeed())
		}
	}

	It("should produce the same documents in both modes", func() {
		full := NewSession(parser, SessionOptions{ID: "x", Mode: ModeFull})
		incremental := NewSession(parser, SessionOptions{ID: "x", Mode: ModeIncremental})

		for _, chunk := range Chunks(transcript, 3) {
			Expect(full.OnChunk([]byte(chunk))).To(Succeed())
			Expect(incremental.OnChunk([]byte(chunk))).To(Succeed())
			Expect(incremental.Document()).To(Equal(full.Document()))
		}

		Expect(full.OnComplete("")).To(Succeed())
		Expect(incremental.OnComplete("")).To(Succeed())
		Expect(incremental.Document()).To(Equal(full.Document()))
		Expect(incremental.Document().Citations).To(HaveLen(1))
	})

	It("should report strictly increasing revisions", func() {
		var mu sync.Mutex
		var revisions []int
		s := NewSession(parser, SessionOptions{OnUpdate: func(u Update) {
			mu.Lock()
			defer mu.Unlock()
			revisions = append(revisions, u.Revision)
		}})

		feed(s, 16)
		Expect(s.OnComplete("")).To(Succeed())

		Expect(revisions).NotTo(BeEmpty())
		for i := 1; i < len(revisions); i++ {
			Expect(revisions[i]).To(BeNumerically(">", revisions[i-1]))
		}
		Expect(revisions[len(revisions)-1]).To(Equal(s.Revision()))
	})

	It("should keep the message streaming until completion", func() {
		s := NewSession(parser, SessionOptions{ModelID: "llama3"})
		Expect(s.OnChunk([]byte("```py\nprint(1)"))).To(Succeed())

		doc := s.Document()
		Expect(doc.Streaming).To(BeTrue())
		Expect(doc.ModelID).To(Equal("llama3"))
		_, open := doc.Open()
		Expect(open).To(BeTrue())

		Expect(s.OnComplete("")).To(Succeed())
		Expect(s.Document().Streaming).To(BeFalse())
		Expect(s.Document().Body[0].(markdown.CodeBlock).Complete).To(BeFalse())
	})

	It("should prefer the final content when it differs", func() {
		s := NewSession(parser, SessionOptions{Mode: ModeIncremental})
		feed(s, 8)

		Expect(s.OnComplete("replaced entirely")).To(Succeed())
		Expect(s.Message().Text).To(Equal("replaced entirely"))
		Expect(s.Document()).To(Equal(parser.ParseText("replaced entirely")))
	})

	It("should reject chunks after completion", func() {
		s := NewSession(parser, SessionOptions{})
		Expect(s.OnComplete("done")).To(Succeed())

		Expect(s.OnChunk([]byte("more"))).To(MatchError(ErrSessionClosed))
		Expect(s.OnComplete("again")).To(MatchError(ErrSessionClosed))
		Expect(s.Closed()).To(BeTrue())
	})

	It("should render partial content after an error", func() {
		tracker := NewTracker()
		s := NewSession(parser, SessionOptions{ID: "e", Tracker: tracker})
		Expect(s.OnChunk([]byte("partial answer"))).To(Succeed())

		boom := errors.New("connection reset")
		s.OnError(boom)

		Expect(s.Err()).To(Equal(boom))
		Expect(s.Document().Streaming).To(BeFalse())
		Expect(s.Document().PlainText).To(Equal("partial answer"))
		Expect(s.OnChunk([]byte("x"))).To(MatchError(ErrSessionClosed))

		state, _ := tracker.State("e")
		Expect(state).To(Equal(StateError))
	})

	It("should track chunks and cancellation", func() {
		tracker := NewTracker()
		s := NewSession(parser, SessionOptions{ID: "c", Tracker: tracker})
		Expect(s.OnChunk([]byte("ab"))).To(Succeed())
		Expect(s.OnChunk([]byte("cde"))).To(Succeed())
		s.Cancel()
		s.Cancel()

		info, ok := tracker.Info("c")
		Expect(ok).To(BeTrue())
		Expect(info.Chunks).To(Equal(2))
		Expect(info.Bytes).To(Equal(5))
		Expect(info.State).To(Equal(StateCancelled))
		Expect(s.Err()).NotTo(HaveOccurred())
	})

	It("should fold tool events into the document", func() {
		s := NewSession(parser, SessionOptions{})
		Expect(s.OnChunk([]byte("Searching."))).To(Succeed())

		Expect(s.ApplyToolEvent(NewToolStartEvent("t1", "search", map[string]any{"q": "go"}))).To(Succeed())
		Expect(s.Document().ToolActivity).To(HaveLen(1))
		Expect(s.Document().ToolActivity[0].Label).To(Equal("Running"))

		before := s.Document()
		Expect(s.ApplyToolEvent(NewToolCompleteEvent("t1", "search", "3 results"))).To(Succeed())
		Expect(s.Document().ToolActivity[0].Label).To(Equal("Done"))
		Expect(s.Document().ToolActivity[0].Preview).To(Equal("3 results"))
		Expect(before.ToolActivity[0].Label).To(Equal("Running"))

		Expect(s.ApplyToolEvent(ToolEvent{Type: "bogus"})).To(MatchError(ErrUnknownToolEvent))
	})

	It("should accept tool snapshots", func() {
		s := NewSession(parser, SessionOptions{})
		s.SetToolCalls([]message.ToolCallRecord{{ID: "1", Name: "fetch", Status: message.ToolPending}})
		Expect(s.Document().ToolActivity[0].Label).To(Equal("Queued"))
	})

	It("should replay a text source into a session", func() {
		s := NewSession(parser, SessionOptions{Mode: ModeIncremental})
		src := NewTextSource(transcript, 5, 0)

		Expect(src.Stream(context.Background(), s)).To(Succeed())
		Expect(s.Closed()).To(BeTrue())
		Expect(s.Document()).To(Equal(parser.ParseText(transcript)))
	})

	It("should stop replaying when cancelled", func() {
		s := NewSession(parser, SessionOptions{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := NewTextSource(transcript, 5, time.Millisecond)
		Expect(src.Stream(ctx, s)).To(MatchError(context.Canceled))
		Expect(s.Err()).To(MatchError(context.Canceled))
		Expect(s.Message().Text).To(BeEmpty())
	})
})
