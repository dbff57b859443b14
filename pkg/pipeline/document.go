package pipeline

import (
	"errors"

	"github.com/killallgit/markstream/pkg/citations"
	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/segment"
	"github.com/killallgit/markstream/pkg/toolactivity"
)

// ErrExtractorFailed wraps a panic recovered from one stage of the pipeline.
var ErrExtractorFailed = errors.New("extractor failed")

// Document is everything a renderer needs for one message.
type Document struct {
	Thinking     *ThinkingDoc
	Body         []markdown.Block
	ToolActivity []toolactivity.Activity
	Citations    []citations.Citation
	// PlainText is the body with thinking and citations removed, for
	// clipboard, export, speech and sharing.
	PlainText string
	Segments  []segment.Segment
	ModelID   string
	Streaming bool
	Errors    []error
}

// ThinkingDoc is the reasoning region formatted like the body.
type ThinkingDoc struct {
	Blocks   []markdown.Block
	Raw      string
	Complete bool
}

// Open returns the trailing incomplete code block, if any.
func (d Document) Open() (markdown.CodeBlock, bool) {
	if len(d.Body) == 0 {
		return markdown.CodeBlock{}, false
	}
	code, ok := d.Body[len(d.Body)-1].(markdown.CodeBlock)
	if !ok || code.Complete {
		return markdown.CodeBlock{}, false
	}
	return code, true
}

// Failed reports whether any stage recovered from a failure.
func (d Document) Failed() bool {
	return len(d.Errors) > 0
}
