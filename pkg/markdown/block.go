package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingPattern   = regexp.MustCompile(`^(#{1,6})(?:[ \t]+(.*))?$`)
	orderedPattern   = regexp.MustCompile(`^(\d{1,9})\. (.*)$`)
	delimiterPattern = regexp.MustCompile(`^\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?$`)
)

// Formatter converts prose to blocks and inline nodes.
type Formatter struct {
	inline inlineScanner
}

// NewFormatter creates a formatter with the given inline options
func NewFormatter(opts InlineOptions) *Formatter {
	return &Formatter{inline: inlineScanner{math: opts.Math}}
}

var defaultFormatter = NewFormatter(InlineOptions{})

// FormatBlocks formats text with default options.
func FormatBlocks(text string) []Block {
	return defaultFormatter.Blocks(text)
}

// FormatInline formats a single span with default options.
func FormatInline(text string) []Inline {
	return defaultFormatter.Inline(text)
}

// Inline scans text for inline constructs. Unmatched delimiters stay literal.
func (f *Formatter) Inline(text string) []Inline {
	return f.inline.scan(text)
}

type lineKind int

const (
	lineNone lineKind = iota
	lineParagraph
	lineHeading
	lineRule
	lineQuote
	lineBullet
	lineOrdered
	lineBlank
)

// Blocks scans text line by line. Only one container is open at a time: a
// paragraph, a blockquote or a list. Any line of a different kind closes it.
// A blank line closes lists and quotes but only marks a hard break inside a
// paragraph.
func (f *Formatter) Blocks(text string) []Block {
	b := blockBuilder{f: f}
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		trimmed := strings.TrimLeft(line, " \t")

		switch classifyLine(trimmed) {
		case lineHeading:
			b.flush()
			m := headingPattern.FindStringSubmatch(strings.TrimRight(trimmed, " \t"))
			b.add(Heading{Level: len(m[1]), Inline: f.Inline(stripClosingHashes(m[2]))})

		case lineRule:
			b.flush()
			b.add(Rule{})

		case lineQuote:
			if b.open != lineQuote {
				b.flush()
				b.open = lineQuote
			}
			content := strings.TrimPrefix(strings.TrimPrefix(trimmed, ">"), " ")
			if strings.TrimSpace(content) == "" {
				content = breakMark
			}
			b.lines = append(b.lines, content)

		case lineBullet:
			if b.open != lineBullet {
				b.flush()
				b.open = lineBullet
			}
			b.items = append(b.items, f.Inline(strings.TrimSpace(trimmed[2:])))

		case lineOrdered:
			m := orderedPattern.FindStringSubmatch(trimmed)
			if b.open != lineOrdered {
				b.flush()
				b.open = lineOrdered
				b.start, _ = strconv.Atoi(m[1])
			}
			b.items = append(b.items, f.Inline(strings.TrimSpace(m[2])))

		case lineBlank:
			if b.open == lineParagraph {
				b.pendingBreak = true
				continue
			}
			b.flush()

		default:
			if isTableStart(lines, i) {
				b.flush()
				i = f.table(&b, lines, i)
				continue
			}
			if b.open == lineParagraph {
				if b.pendingBreak {
					b.lines = append(b.lines, breakMark)
					b.pendingBreak = false
				}
				// continuation lines keep their indentation
				b.lines = append(b.lines, line)
				continue
			}
			b.flush()
			b.open = lineParagraph
			b.lines = append(b.lines, trimmed)
		}
	}

	b.flush()
	return b.blocks
}

func classifyLine(trimmed string) lineKind {
	switch {
	case trimmed == "":
		return lineBlank
	case headingPattern.MatchString(strings.TrimRight(trimmed, " \t")):
		return lineHeading
	case isRule(trimmed):
		return lineRule
	case trimmed == ">" || strings.HasPrefix(trimmed, "> "):
		return lineQuote
	case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
		return lineBullet
	case orderedPattern.MatchString(trimmed):
		return lineOrdered
	}
	return lineParagraph
}

func isRule(trimmed string) bool {
	switch strings.TrimSpace(trimmed) {
	case "---", "***", "___":
		return true
	}
	return false
}

func stripClosingHashes(s string) string {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimRight(s, "#")
	if trimmed == s {
		return s
	}
	if trimmed == "" || strings.HasSuffix(trimmed, " ") {
		return strings.TrimSpace(trimmed)
	}
	return s
}

// blockBuilder accumulates the open container.
type blockBuilder struct {
	f            *Formatter
	blocks       []Block
	open         lineKind
	lines        []string
	items        [][]Inline
	start        int
	pendingBreak bool
}

func (b *blockBuilder) add(block Block) {
	b.blocks = append(b.blocks, block)
}

// flush emits the open container, if any, and resets the state.
func (b *blockBuilder) flush() {
	switch b.open {
	case lineParagraph:
		if len(b.lines) > 0 {
			b.add(Paragraph{Inline: b.f.Inline(joinLines(b.lines))})
		}
	case lineQuote:
		lines := b.lines
		for len(lines) > 0 && lines[len(lines)-1] == breakMark {
			lines = lines[:len(lines)-1]
		}
		for len(lines) > 0 && lines[0] == breakMark {
			lines = lines[1:]
		}
		b.add(Blockquote{Inline: b.f.Inline(joinLines(lines))})
	case lineBullet:
		b.add(BulletList{Items: b.items})
	case lineOrdered:
		b.add(OrderedList{Start: b.start, Items: b.items})
	}
	b.open = lineNone
	b.lines = nil
	b.items = nil
	b.start = 0
	b.pendingBreak = false
}

// joinLines joins lines with soft breaks. A break marker stands on its own
// and is not surrounded by newlines.
func joinLines(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 && line != breakMark && lines[i-1] != breakMark {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func isTableStart(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	header := strings.TrimSpace(lines[i])
	delim := strings.TrimSpace(strings.TrimSuffix(lines[i+1], "\r"))
	if !strings.Contains(header, "|") || !strings.Contains(delim, "-") {
		return false
	}
	if !delimiterPattern.MatchString(delim) {
		return false
	}
	// a delimiter row without pipes only counts for a single-column table
	if !strings.Contains(delim, "|") && len(splitCells(header)) != 1 {
		return false
	}
	return true
}

// table consumes a header row, a delimiter row and every following row that
// contains a pipe. It returns the index of the last consumed line.
func (f *Formatter) table(b *blockBuilder, lines []string, i int) int {
	headerCells := splitCells(strings.TrimSpace(lines[i]))
	aligns := parseAligns(splitCells(strings.TrimSpace(strings.TrimSuffix(lines[i+1], "\r"))), len(headerCells))

	t := Table{Align: aligns}
	for _, cell := range headerCells {
		t.Header = append(t.Header, f.Inline(cell))
	}

	j := i + 2
	for ; j < len(lines); j++ {
		row := strings.TrimSpace(strings.TrimSuffix(lines[j], "\r"))
		if row == "" || !strings.Contains(row, "|") {
			break
		}
		cells := splitCells(row)
		parsed := make([][]Inline, len(headerCells))
		for k := range parsed {
			if k < len(cells) {
				parsed[k] = f.Inline(cells[k])
			}
		}
		t.Rows = append(t.Rows, parsed)
	}

	b.add(t)
	return j - 1
}

// splitCells splits a table row on unescaped pipes outside code spans.
func splitCells(row string) []string {
	row = strings.TrimPrefix(row, "|")
	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}

	var cells []string
	var cell strings.Builder
	inCode := false
	for i := 0; i < len(row); i++ {
		c := row[i]
		switch {
		case c == '\\' && i+1 < len(row) && row[i+1] == '|':
			cell.WriteByte('|')
			i++
		case c == '`':
			inCode = !inCode
			cell.WriteByte(c)
		case c == '|' && !inCode:
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(c)
		}
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

func parseAligns(cells []string, n int) []Align {
	aligns := make([]Align, n)
	for i := 0; i < n && i < len(cells); i++ {
		c := cells[i]
		left := strings.HasPrefix(c, ":")
		right := strings.HasSuffix(c, ":")
		switch {
		case left && right:
			aligns[i] = AlignCenter
		case right:
			aligns[i] = AlignRight
		case left:
			aligns[i] = AlignLeft
		}
	}
	return aligns
}
