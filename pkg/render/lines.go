package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/killallgit/markstream/pkg/citations"
	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/pipeline"
	"github.com/killallgit/markstream/pkg/toolactivity"
)

// FormattedLine represents a line with styling for a tcell view
type FormattedLine struct {
	Content string
	Style   tcell.Style
	Indent  int    // Number of spaces to indent
	Key     string // Key of the block the line belongs to
}

var (
	styleText     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleThinking = tcell.StyleDefault.Foreground(tcell.ColorGray).Italic(true)
	styleHeading  = tcell.StyleDefault.Foreground(tcell.ColorTomato).Bold(true)
	styleQuote    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Italic(true)
	styleCode     = tcell.StyleDefault.Foreground(tcell.ColorGold)
	styleCodeHead = tcell.StyleDefault.Foreground(tcell.ColorGold).Bold(true)
	styleMath     = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	styleTable    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleLink     = tcell.StyleDefault.Foreground(tcell.ColorDodgerBlue).Underline(true)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Lines lays doc out as styled lines. Blocks are separated by one empty line.
func Lines(doc pipeline.Document, opts Options) []FormattedLine {
	l := &lineWriter{width: opts.width()}

	if doc.Thinking != nil && opts.ShowThinking {
		title := "Thinking"
		if !doc.Thinking.Complete {
			title += "…"
		}
		l.line(title, styleDim, 0, "")
		l.blocks(doc.Thinking.Blocks, 2, styleThinking)
		l.gap()
	}

	l.blocks(doc.Body, 0, styleText)

	if len(doc.ToolActivity) > 0 {
		l.gap()
		l.tools(doc.ToolActivity)
	}
	if len(doc.Citations) > 0 {
		l.gap()
		l.sources(doc.Citations)
	}
	return l.out
}

type lineWriter struct {
	width int
	out   []FormattedLine
}

func (l *lineWriter) line(content string, style tcell.Style, indent int, key string) {
	l.out = append(l.out, FormattedLine{Content: content, Style: style, Indent: indent, Key: key})
}

// gap adds a separator unless the output is empty or already ends in one.
func (l *lineWriter) gap() {
	if n := len(l.out); n > 0 && l.out[n-1].Content != "" {
		l.line("", styleText, 0, "")
	}
}

func (l *lineWriter) wrapped(text string, style tcell.Style, indent int, key string) {
	for _, line := range wrap(text, l.width-indent) {
		l.line(line, style, indent, key)
	}
}

// item writes a list item: the marker on the first line, continuation lines
// aligned under the text.
func (l *lineWriter) item(marker, text string, style tcell.Style, indent int, key string) {
	hang := indent + len([]rune(marker)) + 1
	for i, line := range wrap(text, l.width-hang) {
		if i == 0 {
			l.line(marker+" "+line, style, indent, key)
			continue
		}
		l.line(line, style, hang, key)
	}
}

func (l *lineWriter) blocks(blocks []markdown.Block, indent int, base tcell.Style) {
	for i, b := range blocks {
		if i > 0 {
			l.gap()
		}
		l.block(b, indent, base)
	}
}

func (l *lineWriter) block(b markdown.Block, indent int, base tcell.Style) {
	key := b.BlockKey()
	switch b := b.(type) {
	case markdown.Heading:
		style := styleHeading
		if b.Level > 2 {
			style = style.Bold(false).Underline(true)
		}
		l.wrapped(plainInline(b.Inline), style, indent, key)
	case markdown.Paragraph:
		l.wrapped(plainInline(b.Inline), paragraphStyle(b.Inline, base), indent, key)
	case markdown.BulletList:
		for _, item := range b.Items {
			l.item("•", plainInline(item), base, indent+2, key)
		}
	case markdown.OrderedList:
		for i, item := range b.Items {
			l.item(strconv.Itoa(b.Start+i)+".", plainInline(item), base, indent+2, key)
		}
	case markdown.Blockquote:
		for _, line := range wrap(plainInline(b.Inline), l.width-indent-2) {
			l.line("│ "+line, styleQuote, indent, key)
		}
	case markdown.Rule:
		l.line(strings.Repeat("─", l.width-indent), styleDim, indent, key)
	case markdown.Table:
		for i, row := range tableRows(b, l.width-indent) {
			style := styleTable
			if i == 0 {
				style = style.Bold(true)
			} else if i == 1 {
				style = styleDim
			}
			l.line(row, style, indent, key)
		}
	case markdown.CodeBlock:
		l.line(codeTitle(b), styleCodeHead, indent, key)
		for _, line := range strings.Split(b.Content, "\n") {
			l.line(line, styleCode, indent+2, key)
		}
	case markdown.MathBlock:
		for _, line := range strings.Split(b.Latex, "\n") {
			l.line(line, styleMath, indent+4, key)
		}
	default:
		l.line(fmt.Sprintf("[%s]", b.Kind()), styleError, indent, key)
	}
}

// paragraphStyle highlights paragraphs that are a single bare link.
func paragraphStyle(nodes []markdown.Inline, base tcell.Style) tcell.Style {
	if len(nodes) == 1 {
		if _, ok := nodes[0].(markdown.Link); ok {
			return styleLink
		}
	}
	return base
}

func (l *lineWriter) tools(activity []toolactivity.Activity) {
	l.line(fmt.Sprintf("Tools (%d)", len(activity)), styleDim, 0, "")
	for _, a := range activity {
		style := styleText
		if a.Err != nil || a.Record.Status == message.ToolError {
			style = styleError
		}
		l.line(a.Line(), style, 2, a.Key)
	}
}

func (l *lineWriter) sources(cites []citations.Citation) {
	l.line("Sources", styleDim, 0, "")
	for i, c := range cites {
		text := c.URL
		if c.Title != "" {
			text = c.Title + " <" + c.URL + ">"
		}
		l.item(fmt.Sprintf("[%d]", i+1), text, styleLink, 2, "")
	}
}
