// Package latex separates display and inline LaTeX spans from prose. The
// LaTeX itself is never validated; malformed math is still returned as math
// and left to the renderer.
package latex

import "strings"

// Piece is either a MathSegment or a PlainTextSegment.
type Piece interface {
	// Source returns the exact input text the piece covers.
	Source() string
	isPiece()
}

// MathSegment is a math span. Raw includes the dollar delimiters.
type MathSegment struct {
	Latex   string
	Display bool
	Raw     string
}

func (m MathSegment) Source() string { return m.Raw }
func (MathSegment) isPiece()         {}

// PlainTextSegment is text outside any math span.
type PlainTextSegment struct {
	Content string
}

func (p PlainTextSegment) Source() string { return p.Content }
func (PlainTextSegment) isPiece()         {}

// Extract splits text into math and plain pieces in source order. Display
// spans ($$...$$) are resolved over the whole text first; only the text left
// between them is scanned for inline spans ($...$).
func Extract(text string) []Piece {
	var pieces []Piece
	for _, part := range splitDisplay(text) {
		if m, ok := part.(MathSegment); ok {
			pieces = append(pieces, m)
			continue
		}
		pieces = append(pieces, splitInline(part.Source())...)
	}
	return pieces
}

// Join concatenates piece sources. Join(Extract(s)) == s for every s.
func Join(pieces []Piece) string {
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.Source())
	}
	return b.String()
}

// HasMath reports whether any piece is math.
func HasMath(pieces []Piece) bool {
	for _, p := range pieces {
		if _, ok := p.(MathSegment); ok {
			return true
		}
	}
	return false
}

func splitDisplay(text string) []Piece {
	var pieces []Piece
	plainStart := 0

	for pos := 0; pos < len(text); {
		open := indexDelim(text, pos, "$$")
		if open < 0 {
			break
		}
		closeAt := indexDelim(text, open+2, "$$")
		if closeAt < 0 {
			break
		}

		if open > plainStart {
			pieces = append(pieces, PlainTextSegment{Content: text[plainStart:open]})
		}
		pieces = append(pieces, MathSegment{
			Latex:   trimOneNewline(text[open+2 : closeAt]),
			Display: true,
			Raw:     text[open : closeAt+2],
		})
		pos = closeAt + 2
		plainStart = pos
	}

	if plainStart < len(text) {
		pieces = append(pieces, PlainTextSegment{Content: text[plainStart:]})
	}
	return pieces
}

func splitInline(text string) []Piece {
	var pieces []Piece
	plainStart := 0

	for pos := 0; pos < len(text); {
		open := indexDelim(text, pos, "$")
		if open < 0 {
			break
		}
		end, ok := inlineEnd(text, open)
		if !ok {
			pos = open + 1
			continue
		}

		if open > plainStart {
			pieces = append(pieces, PlainTextSegment{Content: text[plainStart:open]})
		}
		pieces = append(pieces, MathSegment{
			Latex: text[open+1 : end],
			Raw:   text[open : end+1],
		})
		pos = end + 1
		plainStart = pos
	}

	if plainStart < len(text) {
		pieces = append(pieces, PlainTextSegment{Content: text[plainStart:]})
	}
	return pieces
}

// inlineEnd finds the closing dollar for an inline span opened at open. The
// closer is the next unescaped dollar on the same line, and the span is only
// accepted when its first and last characters are not whitespace.
func inlineEnd(text string, open int) (int, bool) {
	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return 0, false
		case '$':
			if escaped(text, i) {
				continue
			}
			inner := text[open+1 : i]
			if inner == "" || isSpace(inner[0]) || isSpace(inner[len(inner)-1]) {
				return 0, false
			}
			return i, true
		}
	}
	return 0, false
}

// indexDelim returns the index of the next unescaped delim at or after from.
func indexDelim(text string, from int, delim string) int {
	for from < len(text) {
		i := strings.Index(text[from:], delim)
		if i < 0 {
			return -1
		}
		at := from + i
		if !escaped(text, at) {
			return at
		}
		from = at + 1
	}
	return -1
}

// escaped reports whether the byte at i is preceded by an odd number of
// backslashes.
func escaped(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func trimOneNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		s = s[2:]
	} else if strings.HasPrefix(s, "\n") {
		s = s[1:]
	}
	if strings.HasSuffix(s, "\r\n") {
		s = s[:len(s)-2]
	} else if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
