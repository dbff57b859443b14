package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/killallgit/markstream/pkg/markdown"
)

// plainInline flattens inline nodes for targets without styling. Links keep
// their target in parentheses.
func plainInline(nodes []markdown.Inline) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n := n.(type) {
		case markdown.Text:
			sb.WriteString(n.Text)
		case markdown.Bold:
			sb.WriteString(plainInline(n.Children))
		case markdown.Italic:
			sb.WriteString(plainInline(n.Children))
		case markdown.Code:
			sb.WriteString(n.Text)
		case markdown.Math:
			sb.WriteString(n.Latex)
		case markdown.Link:
			label := plainInline(n.Label)
			if label == "" || label == n.Href {
				sb.WriteString(n.Href)
			} else {
				sb.WriteString(label + " (" + n.Href + ")")
			}
		case markdown.LineBreak:
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// wrap word-wraps text to width, keeping explicit newlines. It never returns
// an empty slice.
func wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	wrapped := wordwrap.String(text, width)
	return strings.Split(wrapped, "\n")
}

// tableLayout computes the display width of every column.
func tableLayout(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}
	return widths
}

// fitColumns shrinks the widest columns until the table fits width.
func fitColumns(widths []int, width int) []int {
	out := append([]int(nil), widths...)
	// cells are joined by " │ "
	budget := width - 3*(len(out)-1)
	for {
		total, widest := 0, 0
		for i, w := range out {
			total += w
			if w > out[widest] {
				widest = i
			}
		}
		if total <= budget || out[widest] <= 3 {
			return out
		}
		out[widest]--
	}
}

func alignCell(text string, width int, align markdown.Align) string {
	text = runewidth.Truncate(text, width, "…")
	pad := width - runewidth.StringWidth(text)
	switch align {
	case markdown.AlignRight:
		return strings.Repeat(" ", pad) + text
	case markdown.AlignCenter:
		left := pad / 2
		return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
	default:
		return text + strings.Repeat(" ", pad)
	}
}

// tableRows renders a table as aligned plain rows: header, rule, body.
func tableRows(t markdown.Table, width int) []string {
	header := make([]string, len(t.Header))
	for i, cell := range t.Header {
		header[i] = plainInline(cell)
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		rows[r] = make([]string, len(header))
		for i := range header {
			if i < len(row) {
				rows[r][i] = plainInline(row[i])
			}
		}
	}

	widths := fitColumns(tableLayout(header, rows), width)
	format := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			align := markdown.AlignNone
			if i < len(t.Align) {
				align = t.Align[i]
			}
			parts[i] = alignCell(c, widths[i], align)
		}
		return strings.TrimRight(strings.Join(parts, " │ "), " ")
	}

	out := []string{format(header)}
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	out = append(out, strings.Join(rule, "─┼─"))
	for _, row := range rows {
		out = append(out, format(row))
	}
	return out
}

func codeTitle(code markdown.CodeBlock) string {
	title := code.Language
	if title == "" {
		title = strings.ToLower(code.Lexer)
	}
	if title == "" {
		title = "text"
	}
	if code.Executable {
		title += " ▶ run"
	}
	if !code.Complete {
		title += " …"
	}
	return title
}
