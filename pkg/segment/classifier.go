package segment

import (
	"strings"

	"github.com/killallgit/markstream/pkg/logger"
)

// DefaultTags are the thinking tag names recognized when none are configured.
var DefaultTags = []string{"think", "thinking"}

// Options configures a Classifier.
type Options struct {
	// Tags lists thinking tag names without brackets.
	Tags []string
	// Streaming holds back partially typed tags and closing fences at the end
	// of the text so they never flash into the output.
	Streaming bool
}

// Classifier performs the thinking split and fence segmentation. It is
// immutable and safe for concurrent use.
type Classifier struct {
	tags      thinkingTags
	streaming bool
}

// New creates a classifier
func New(opts Options) *Classifier {
	return &Classifier{
		tags:      newThinkingTags(opts.Tags),
		streaming: opts.Streaming,
	}
}

var defaultClassifier = New(Options{})

// Classify runs the default classifier over a finished text.
func Classify(text string) Result {
	return defaultClassifier.Classify(text)
}

// Classify extracts the thinking region and segments the remaining body.
func (c *Classifier) Classify(text string) Result {
	thinking, body := c.tags.extract(text, c.streaming)
	segments := c.Split(body)

	logger.WithComponent("segment").Debug("Classified message",
		"text_length", len(text),
		"has_thinking", thinking != nil,
		"segments", len(segments))

	return Result{
		Thinking: thinking,
		Body:     body,
		Segments: segments,
	}
}

// Split segments body into code and text. Concatenating the sources of the
// returned segments yields body exactly.
func (c *Classifier) Split(body string) []Segment {
	var segments []Segment
	textStart := 0

	flushText := func(end int) {
		if end > textStart {
			segments = append(segments, TextSegment{Content: body[textStart:end], Offset: textStart})
		}
	}

	for pos := 0; pos < len(body); {
		lineEnd := lineEndAt(body, pos)
		fence, ok := parseOpenFence(body[pos:lineEnd])
		if !ok {
			pos = nextLine(body, lineEnd)
			continue
		}

		contentStart := nextLine(body, lineEnd)
		closeStart, closeEnd, found := findCloseFence(body, contentStart, fence.ticks, c.streaming)

		if !found {
			if fence.stray() {
				// A bare run of six or more backticks is an empty fence pair.
				pos = nextLine(body, lineEnd)
				continue
			}
			flushText(pos)
			content := ""
			if contentStart < len(body) {
				content = body[contentStart:]
			}
			if c.streaming {
				content = trimPartialClose(content)
			}
			segments = append(segments, CodeSegment{
				Language: fence.language,
				Info:     fence.info,
				Content:  content,
				Complete: false,
				Offset:   pos,
				Raw:      body[pos:],
			})
			return segments
		}

		if closeStart == contentStart {
			// Fence closed with no content line: leave both lines as prose.
			pos = nextLine(body, closeEnd)
			continue
		}

		flushText(pos)
		segments = append(segments, CodeSegment{
			Language: fence.language,
			Info:     fence.info,
			Content:  body[contentStart : closeStart-1],
			Complete: true,
			Offset:   pos,
			Raw:      body[pos:closeEnd],
		})
		textStart = closeEnd
		pos = nextLine(body, closeEnd)
	}

	flushText(len(body))
	return segments
}

type openFence struct {
	ticks    int
	info     string
	language string
}

func (f openFence) stray() bool {
	return f.ticks >= 6 && f.info == ""
}

// parseOpenFence recognizes a line opening a fenced block: optional
// indentation, three or more backticks, then an info string without backticks.
func parseOpenFence(line string) (openFence, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	ticks := countLeading(trimmed, '`')
	if ticks < 3 {
		return openFence{}, false
	}

	info := strings.TrimSpace(strings.TrimSuffix(trimmed[ticks:], "\r"))
	if strings.ContainsRune(info, '`') {
		return openFence{}, false
	}

	language := info
	if i := strings.IndexAny(language, " \t{"); i >= 0 {
		language = language[:i]
	}

	return openFence{ticks: ticks, info: info, language: language}, true
}

// findCloseFence looks for a closing line at or after from: optional
// indentation, at least ticks backticks, then only whitespace. The returned
// end is the end of that line, without its newline. While streaming, a
// closing line counts only once its newline has arrived since more text may
// still turn it into something else.
func findCloseFence(body string, from, ticks int, streaming bool) (start, end int, found bool) {
	for pos := from; pos < len(body); {
		lineEnd := lineEndAt(body, pos)
		if isCloseFence(body[pos:lineEnd], ticks) {
			if streaming && lineEnd == len(body) {
				return 0, 0, false
			}
			return pos, lineEnd, true
		}
		pos = nextLine(body, lineEnd)
	}
	return 0, 0, false
}

func isCloseFence(line string, ticks int) bool {
	trimmed := strings.TrimSpace(line)
	n := countLeading(trimmed, '`')
	return n >= ticks && n == len(trimmed)
}

// trimPartialClose drops a trailing line made only of backticks: it may still
// grow into the closing fence, or already be one whose newline has not arrived.
func trimPartialClose(content string) string {
	lineStart := strings.LastIndexByte(content, '\n') + 1
	last := strings.TrimSpace(content[lineStart:])
	if last == "" {
		return content
	}
	if countLeading(last, '`') == len(last) {
		return strings.TrimSuffix(content[:lineStart], "\n")
	}
	return content
}

func lineEndAt(s string, pos int) int {
	if i := strings.IndexByte(s[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(s)
}

func nextLine(s string, lineEnd int) int {
	if lineEnd < len(s) {
		return lineEnd + 1
	}
	return len(s)
}

func countLeading(s string, b byte) int {
	n := 0
	for n < len(s) && s[n] == b {
		n++
	}
	return n
}
