package markdown

import (
	"strconv"
	"strings"

	"github.com/killallgit/markstream/pkg/latex"
)

// Private-use runes mark spans the block pass has already resolved so the
// inline scanner can turn them back into nodes.
const (
	mathOpen  = "\uE000"
	mathClose = "\uE001"
	breakMark = "\uE002"
)

// MathPlaceholder returns the token that stands for InlineOptions.Math[i]
// inside text handed to a Formatter.
func MathPlaceholder(i int) string {
	return mathOpen + strconv.Itoa(i) + mathClose
}

// InlineOptions configures inline formatting.
type InlineOptions struct {
	// Math holds the inline math spans referenced by MathPlaceholder tokens.
	Math []latex.MathSegment
}

// escapable lists the punctuation a backslash turns into a literal.
const escapable = "\\`*_{}[]()#+-.!|$<>~"

// inlineScanner is a single left-to-right pass over a span. At each position
// it tries, in order: resolved placeholders, backslash escapes, code spans,
// links, bold, italic.
// Whatever does not match is copied through as text.
type inlineScanner struct {
	math []latex.MathSegment
}

func (s inlineScanner) scan(text string) []Inline {
	var nodes []Inline
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			nodes = append(nodes, Text{Text: plain.String()})
			plain.Reset()
		}
	}
	emit := func(n Inline) {
		flush()
		nodes = append(nodes, n)
	}

	for i := 0; i < len(text); {
		rest := text[i:]

		if strings.HasPrefix(rest, breakMark) {
			emit(LineBreak{})
			i += len(breakMark)
			continue
		}
		if strings.HasPrefix(rest, mathOpen) {
			if n, end, ok := s.mathAt(text, i); ok {
				emit(n)
				i = end
				continue
			}
		}

		switch text[i] {
		case '\\':
			if i+1 < len(text) && strings.IndexByte(escapable, text[i+1]) >= 0 {
				plain.WriteByte(text[i+1])
				i += 2
				continue
			}
		case '`':
			if n, end, ok := s.codeAt(text, i); ok {
				emit(n)
				i = end
				continue
			}
			run := countRun(text, i, '`')
			plain.WriteString(text[i : i+run])
			i += run
			continue
		case '[':
			if n, end, ok := s.linkAt(text, i); ok {
				emit(n)
				i = end
				continue
			}
		case '*':
			if n, end, ok := s.boldAt(text, i); ok {
				emit(n)
				i = end
				continue
			}
			if n, end, ok := s.italicAt(text, i); ok {
				emit(n)
				i = end
				continue
			}
		}

		plain.WriteByte(text[i])
		i++
	}

	flush()
	return nodes
}

func (s inlineScanner) mathAt(text string, i int) (Inline, int, bool) {
	start := i + len(mathOpen)
	end := strings.Index(text[start:], mathClose)
	if end < 0 {
		return nil, 0, false
	}
	idx, err := strconv.Atoi(text[start : start+end])
	if err != nil || idx < 0 || idx >= len(s.math) {
		return nil, 0, false
	}
	return Math{Latex: s.math[idx].Latex}, start + end + len(mathClose), true
}

// codeAt matches a code span opened by a run of backticks and closed by a run
// of the same length.
func (s inlineScanner) codeAt(text string, i int) (Inline, int, bool) {
	n := countRun(text, i, '`')
	for j := i + n; j < len(text); {
		if text[j] != '`' {
			j++
			continue
		}
		m := countRun(text, j, '`')
		if m == n {
			content := text[i+n : j]
			if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.TrimSpace(content) != "" {
				content = content[1 : len(content)-1]
			}
			return Code{Text: s.restore(content)}, j + m, true
		}
		j += m
	}
	return nil, 0, false
}

func (s inlineScanner) linkAt(text string, i int) (Inline, int, bool) {
	labelEnd := matchBracket(text, i, '[', ']')
	if labelEnd < 0 || labelEnd == i+1 {
		return nil, 0, false
	}
	if labelEnd+1 >= len(text) || text[labelEnd+1] != '(' {
		return nil, 0, false
	}
	hrefEnd := matchBracket(text, labelEnd+1, '(', ')')
	if hrefEnd < 0 {
		return nil, 0, false
	}
	href := strings.TrimSpace(text[labelEnd+2 : hrefEnd])
	if href == "" || strings.ContainsAny(href, "\n"+breakMark) {
		return nil, 0, false
	}
	return Link{Label: s.scan(text[i+1 : labelEnd]), Href: s.restore(href)}, hrefEnd + 1, true
}

// boldAt matches **inner** closing at the first "**" after at least one inner
// character. When both opener and closer are runs of three or more, the bold
// closes at the end of the closing run so ***x*** is bold around italic.
func (s inlineScanner) boldAt(text string, i int) (Inline, int, bool) {
	if !strings.HasPrefix(text[i:], "**") || i+3 > len(text) {
		return nil, 0, false
	}
	end := strings.Index(text[i+3:], "**")
	if end < 0 {
		return nil, 0, false
	}
	innerEnd := i + 3 + end
	if countRun(text, i, '*') >= 3 {
		innerEnd += countRun(text, innerEnd, '*') - 2
	}
	return Bold{Children: s.scan(text[i+2 : innerEnd])}, innerEnd + 2, true
}

// italicAt matches *inner* where the opener is not followed by another
// asterisk and the closer is a lone asterisk, so bold runs inside are skipped.
func (s inlineScanner) italicAt(text string, i int) (Inline, int, bool) {
	if i+1 >= len(text) || text[i+1] == '*' {
		return nil, 0, false
	}
	for j := i + 2; j < len(text); j++ {
		if text[j] != '*' {
			continue
		}
		if text[j-1] == '*' || (j+1 < len(text) && text[j+1] == '*') {
			continue
		}
		return Italic{Children: s.scan(text[i+1 : j])}, j + 1, true
	}
	return nil, 0, false
}

// restore puts the original source back for placeholders inside literal
// contexts such as code spans and link targets.
func (s inlineScanner) restore(text string) string {
	if !strings.Contains(text, mathOpen) && !strings.Contains(text, breakMark) {
		return text
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		rest := text[i:]
		if strings.HasPrefix(rest, breakMark) {
			b.WriteString("\n\n")
			i += len(breakMark)
			continue
		}
		if strings.HasPrefix(rest, mathOpen) {
			if n, end, ok := s.mathAt(text, i); ok {
				b.WriteString(s.rawMath(n.(Math)))
				i = end
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func (s inlineScanner) rawMath(m Math) string {
	for _, seg := range s.math {
		if seg.Latex == m.Latex {
			return seg.Raw
		}
	}
	return "$" + m.Latex + "$"
}

// matchBracket returns the index of the bracket closing the one at i, honouring
// nesting, or -1.
func matchBracket(text string, i int, left, right byte) int {
	depth := 0
	for j := i; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func countRun(text string, i int, b byte) int {
	n := 0
	for i+n < len(text) && text[i+n] == b {
		n++
	}
	return n
}
