// Package segment splits raw assistant text into an optional thinking region
// and an ordered sequence of code and text segments.
package segment

// Segment is a contiguous span of the post-thinking body, either CodeSegment
// or TextSegment. Use a type switch to dispatch.
type Segment interface {
	// Source returns the exact body text this segment covers.
	Source() string
	// Start returns the byte offset of the segment within the body.
	Start() int
	isSegment()
}

// CodeSegment is a fenced code block. Complete is false while the closing
// fence has not arrived; such a segment is always the last one.
type CodeSegment struct {
	Language string
	Info     string
	Content  string
	Complete bool
	Offset   int
	Raw      string
}

func (c CodeSegment) Source() string { return c.Raw }
func (c CodeSegment) Start() int     { return c.Offset }
func (CodeSegment) isSegment()       {}

// TextSegment is prose between code blocks.
type TextSegment struct {
	Content string
	Offset  int
}

func (t TextSegment) Source() string { return t.Content }
func (t TextSegment) Start() int     { return t.Offset }
func (TextSegment) isSegment()       {}

// Thinking is the hidden reasoning region. Complete is false until the closing
// tag has been seen.
type Thinking struct {
	Content  string
	Complete bool
}

// Result is the classifier output.
type Result struct {
	Thinking *Thinking
	Body     string
	Segments []Segment
}

// Open returns the trailing incomplete code segment, if any.
func (r Result) Open() (CodeSegment, bool) {
	if len(r.Segments) == 0 {
		return CodeSegment{}, false
	}
	code, ok := r.Segments[len(r.Segments)-1].(CodeSegment)
	if !ok || code.Complete {
		return CodeSegment{}, false
	}
	return code, true
}

// Join concatenates segment sources. For any Result it equals Body.
func Join(segments []Segment) string {
	n := 0
	for _, s := range segments {
		n += len(s.Source())
	}
	buf := make([]byte, 0, n)
	for _, s := range segments {
		buf = append(buf, s.Source()...)
	}
	return string(buf)
}
