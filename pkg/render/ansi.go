package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/mazznoer/colorgrad"
	"github.com/muesli/termenv"

	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/pipeline"
)

// ANSIRenderer renders Documents for a plain terminal
type ANSIRenderer struct {
	opts Options
	r    *lipgloss.Renderer
	log  *logger.ComponentLogger

	headings []lipgloss.Style
	text     lipgloss.Style
	dim      lipgloss.Style
	thinking lipgloss.Style
	quote    lipgloss.Style
	code     lipgloss.Style
	codeHead lipgloss.Style
	math     lipgloss.Style
	link     lipgloss.Style
	failed   lipgloss.Style

	formatter chroma.Formatter
	codeStyle *chroma.Style
}

// NewANSIRenderer creates a renderer. With Color off every style renders as
// plain text.
func NewANSIRenderer(opts Options) *ANSIRenderer {
	r := lipgloss.NewRenderer(io.Discard)
	if opts.Color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	codeStyle := styles.Get(opts.CodeStyle)
	if codeStyle == nil {
		codeStyle = styles.Fallback
	}

	a := &ANSIRenderer{
		opts: opts,
		r:    r,
		log:  logger.WithComponent("render"),

		text:     r.NewStyle(),
		dim:      r.NewStyle().Foreground(lipgloss.Color("#888888")),
		thinking: r.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),
		quote:    r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Italic(true),
		code:     r.NewStyle().Background(lipgloss.Color("#333333")).Foreground(lipgloss.Color("#FFB000")),
		codeHead: r.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		math:     r.NewStyle().Foreground(lipgloss.Color("#DA70D6")),
		link:     r.NewStyle().Foreground(lipgloss.Color("#1E90FF")).Underline(true),
		failed:   r.NewStyle().Foreground(lipgloss.Color("#EF4444")),

		formatter: formatter,
		codeStyle: codeStyle,
	}
	a.headings = a.headingStyles()
	return a
}

// headingStyles colours levels 1..6 along a warm gradient.
func (a *ANSIRenderer) headingStyles() []lipgloss.Style {
	out := make([]lipgloss.Style, 6)
	grad, err := colorgrad.NewGradient().
		HtmlColors("#FF6347", "#FFA500", "#FFFF99").
		Build()
	if err != nil {
		a.log.Debug("Heading gradient unavailable", "error", err)
		for i := range out {
			out[i] = a.r.NewStyle().Bold(true)
		}
		return out
	}

	for i, c := range grad.Colors(uint(len(out))) {
		r, g, b, _ := c.RGBA255()
		out[i] = a.r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, b)))
	}
	out[0] = out[0].Underline(true)
	return out
}

// ANSI renders doc with a one-off renderer
func ANSI(doc pipeline.Document, opts Options) string {
	return NewANSIRenderer(opts).Render(doc)
}

// Render returns doc as terminal text. Sections are separated by blank lines
// and the result has no trailing newline.
func (a *ANSIRenderer) Render(doc pipeline.Document) string {
	width := a.opts.width()
	var sections []string

	if doc.Thinking != nil && a.opts.ShowThinking {
		title := "Thinking"
		if !doc.Thinking.Complete {
			title += "…"
		}
		lines := []string{a.dim.Render(title)}
		for _, line := range strings.Split(a.blocks(doc.Thinking.Blocks, width-2, a.thinking), "\n") {
			lines = append(lines, a.dim.Render("┆")+" "+line)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if body := a.blocks(doc.Body, width, a.text); body != "" {
		sections = append(sections, body)
	}

	if len(doc.ToolActivity) > 0 {
		lines := []string{a.dim.Render(fmt.Sprintf("▸ Tools (%d)", len(doc.ToolActivity)))}
		for _, act := range doc.ToolActivity {
			style := a.text
			if act.Err != nil || act.Record.Status == "error" {
				style = a.failed
			}
			lines = append(lines, "  "+style.Render(act.Line()))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(doc.Citations) > 0 {
		lines := []string{a.dim.Render("Sources")}
		for i, c := range doc.Citations {
			entry := a.link.Render(c.URL)
			if c.Title != "" {
				entry = c.Title + " " + a.dim.Render("<") + entry + a.dim.Render(">")
			}
			lines = append(lines, fmt.Sprintf("  [%d] %s", i+1, entry))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func (a *ANSIRenderer) blocks(blocks []markdown.Block, width int, base lipgloss.Style) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, a.block(b, width, base))
	}
	return strings.Join(out, "\n\n")
}

func (a *ANSIRenderer) block(b markdown.Block, width int, base lipgloss.Style) string {
	switch b := b.(type) {
	case markdown.Heading:
		level := min(max(b.Level, 1), len(a.headings))
		return wrapANSI(a.inline(b.Inline, a.headings[level-1]), width)
	case markdown.Paragraph:
		return wrapANSI(a.inline(b.Inline, base), width)
	case markdown.BulletList:
		items := make([]string, len(b.Items))
		for i, item := range b.Items {
			items[i] = hang("•", a.inline(item, base), width)
		}
		return strings.Join(items, "\n")
	case markdown.OrderedList:
		items := make([]string, len(b.Items))
		for i, item := range b.Items {
			items[i] = hang(strconv.Itoa(b.Start+i)+".", a.inline(item, base), width)
		}
		return strings.Join(items, "\n")
	case markdown.Blockquote:
		lines := strings.Split(wrapANSI(a.inline(b.Inline, a.quote), width-2), "\n")
		for i, line := range lines {
			lines[i] = a.dim.Render("│") + " " + line
		}
		return strings.Join(lines, "\n")
	case markdown.Rule:
		return a.dim.Render(strings.Repeat("─", width))
	case markdown.Table:
		rows := tableRows(b, width)
		for i, row := range rows {
			switch i {
			case 0:
				rows[i] = base.Bold(true).Render(row)
			case 1:
				rows[i] = a.dim.Render(row)
			default:
				rows[i] = base.Render(row)
			}
		}
		return strings.Join(rows, "\n")
	case markdown.CodeBlock:
		return a.codeBlock(b)
	case markdown.MathBlock:
		lines := strings.Split(b.Latex, "\n")
		for i, line := range lines {
			lines[i] = "    " + renderLines(a.math, line)
		}
		return strings.Join(lines, "\n")
	}
	return a.failed.Render("[" + b.Kind() + "]")
}

func (a *ANSIRenderer) codeBlock(code markdown.CodeBlock) string {
	body := a.highlight(code)
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return a.codeHead.Render(codeTitle(code)) + "\n" + strings.Join(lines, "\n")
}

// highlight returns the code with chroma colouring, or unchanged when colour
// is off or the lexer fails.
func (a *ANSIRenderer) highlight(code markdown.CodeBlock) string {
	if !a.opts.Color || code.Content == "" {
		return code.Content
	}

	var lexer chroma.Lexer
	if code.Language != "" {
		lexer = lexers.Get(code.Language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code.Content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code.Content)
	if err != nil {
		a.log.Debug("Failed to tokenize code, using plain text", "error", err)
		return code.Content
	}
	var buf strings.Builder
	if err := a.formatter.Format(&buf, a.codeStyle, iterator); err != nil {
		a.log.Debug("Failed to format code, using plain text", "error", err)
		return code.Content
	}
	return strings.TrimRight(buf.String(), "\n")
}

// inline renders nodes with style as the base. Nested emphasis accumulates.
func (a *ANSIRenderer) inline(nodes []markdown.Inline, style lipgloss.Style) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n := n.(type) {
		case markdown.Text:
			sb.WriteString(renderLines(style, n.Text))
		case markdown.Bold:
			sb.WriteString(a.inline(n.Children, style.Bold(true)))
		case markdown.Italic:
			sb.WriteString(a.inline(n.Children, style.Italic(true)))
		case markdown.Code:
			sb.WriteString(a.code.Render(n.Text))
		case markdown.Math:
			sb.WriteString(a.math.Render(n.Latex))
		case markdown.Link:
			label := markdown.PlainText(n.Label)
			if label == "" || label == n.Href {
				sb.WriteString(a.link.Render(n.Href))
				continue
			}
			sb.WriteString(a.inline(n.Label, a.link))
			sb.WriteString(" " + a.dim.Render("("+n.Href+")"))
		case markdown.LineBreak:
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// renderLines styles each line on its own so lipgloss does not pad a
// multi-line string into a block.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func wrapANSI(text string, width int) string {
	return strings.Join(wrap(text, width), "\n")
}

// hang writes a list item with continuation lines aligned under the text.
func hang(marker, text string, width int) string {
	pad := strings.Repeat(" ", len([]rune(marker))+1)
	lines := wrap(text, width-2-len(pad))
	for i, line := range lines {
		if i == 0 {
			lines[i] = "  " + marker + " " + line
		} else {
			lines[i] = "  " + pad + line
		}
	}
	return strings.Join(lines, "\n")
}
