package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/pipeline"
)

// Markdown serializes the document back to Markdown. Open code fences are
// closed so the output is always well formed.
func Markdown(doc pipeline.Document, opts Options) string {
	var sections []string
	if opts.Thinking && doc.Thinking != nil {
		if thinking := Blocks(doc.Thinking.Blocks); thinking != "" {
			sections = append(sections, "<details>\n<summary>Thinking</summary>\n\n"+thinking+"\n\n</details>")
		}
	}
	if body := Blocks(doc.Body); body != "" {
		sections = append(sections, body)
	}
	if opts.Tools && len(doc.ToolActivity) > 0 {
		lines := make([]string, len(doc.ToolActivity))
		for i, a := range doc.ToolActivity {
			lines[i] = "- " + a.Line()
		}
		sections = append(sections, "Tools:\n"+strings.Join(lines, "\n"))
	}
	if opts.Citations && len(doc.Citations) > 0 {
		lines := make([]string, len(doc.Citations))
		for i, c := range doc.Citations {
			if c.Title != "" {
				lines[i] = fmt.Sprintf("- [%s](%s)", c.Title, c.URL)
			} else {
				lines[i] = "- " + c.URL
			}
		}
		sections = append(sections, "Sources:\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// Blocks serializes blocks separated by blank lines
func Blocks(blocks []markdown.Block) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := block(b); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

func block(b markdown.Block) string {
	switch b := b.(type) {
	case markdown.Heading:
		return strings.Repeat("#", b.Level) + " " + inline(b.Inline, false)
	case markdown.Paragraph:
		return inline(b.Inline, true)
	case markdown.BulletList:
		items := make([]string, len(b.Items))
		for i, item := range b.Items {
			items[i] = "- " + inline(item, false)
		}
		return strings.Join(items, "\n")
	case markdown.OrderedList:
		items := make([]string, len(b.Items))
		for i, item := range b.Items {
			items[i] = strconv.Itoa(b.Start+i) + ". " + inline(item, false)
		}
		return strings.Join(items, "\n")
	case markdown.Blockquote:
		lines := strings.Split(inline(b.Inline, true), "\n")
		for i, line := range lines {
			lines[i] = strings.TrimRight("> "+line, " ")
		}
		return strings.Join(lines, "\n")
	case markdown.Rule:
		return "---"
	case markdown.Table:
		return table(b)
	case markdown.CodeBlock:
		fence := strings.Repeat("`", max(3, longestRun(b.Content, '`')+1))
		if b.Content == "" {
			return fence + b.Language + "\n" + fence
		}
		return fence + b.Language + "\n" + b.Content + "\n" + fence
	case markdown.MathBlock:
		return "$$\n" + b.Latex + "\n$$"
	}
	return ""
}

func table(t markdown.Table) string {
	row := func(cells [][]markdown.Inline) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = strings.ReplaceAll(inline(c, false), "|", `\|`)
		}
		return "| " + strings.Join(parts, " | ") + " |"
	}

	delims := make([]string, len(t.Header))
	for i := range delims {
		align := markdown.AlignNone
		if i < len(t.Align) {
			align = t.Align[i]
		}
		switch align {
		case markdown.AlignLeft:
			delims[i] = ":---"
		case markdown.AlignCenter:
			delims[i] = ":---:"
		case markdown.AlignRight:
			delims[i] = "---:"
		default:
			delims[i] = "---"
		}
	}

	lines := []string{row(t.Header), "| " + strings.Join(delims, " | ") + " |"}
	for _, r := range t.Rows {
		lines = append(lines, row(r))
	}
	return strings.Join(lines, "\n")
}

var (
	inlineEscaper  = strings.NewReplacer(`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "$", `\$`, "<", `\<`)
	orderedPrefix  = regexp.MustCompile(`^(\d+)([.)])(\s|$)`)
	blockLineStart = "#>-+"
)

// Inline serializes inline nodes. Text is escaped so it reads back as the
// same text.
func Inline(nodes []markdown.Inline) string {
	return inline(nodes, true)
}

// inline serializes nodes; lineStart says whether the first node begins a
// line, where block markers need escaping too.
func inline(nodes []markdown.Inline, lineStart bool) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n := n.(type) {
		case markdown.Text:
			sb.WriteString(escapeText(n.Text, lineStart))
		case markdown.Bold:
			sb.WriteString("**" + inline(n.Children, false) + "**")
		case markdown.Italic:
			sb.WriteString("*" + inline(n.Children, false) + "*")
		case markdown.Code:
			ticks := strings.Repeat("`", longestRun(n.Text, '`')+1)
			text := n.Text
			if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
				text = " " + text + " "
			}
			sb.WriteString(ticks + text + ticks)
		case markdown.Math:
			sb.WriteString("$" + n.Latex + "$")
		case markdown.Link:
			sb.WriteString("[" + inline(n.Label, false) + "](" + n.Href + ")")
		case markdown.LineBreak:
			sb.WriteString("\\\n")
		}
		lineStart = strings.HasSuffix(sb.String(), "\n")
	}
	return sb.String()
}

// escapeText backslash-escapes inline delimiters, and block markers at the
// start of a line.
func escapeText(text string, lineStart bool) string {
	lines := strings.Split(inlineEscaper.Replace(text), "\n")
	for i, line := range lines {
		if i == 0 && !lineStart {
			continue
		}
		trimmed := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(trimmed)]
		switch {
		case trimmed != "" && strings.IndexByte(blockLineStart, trimmed[0]) >= 0:
			lines[i] = indent + `\` + trimmed
		case orderedPrefix.MatchString(trimmed):
			lines[i] = indent + orderedPrefix.ReplaceAllString(trimmed, `$1\$2$3`)
		}
	}
	return strings.Join(lines, "\n")
}

func longestRun(s string, c byte) int {
	best, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}
