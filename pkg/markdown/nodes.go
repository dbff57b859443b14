// Package markdown turns prose into a small tree of block and inline nodes.
// It covers the subset of markdown assistants actually emit and makes no
// attempt at CommonMark compliance.
package markdown

// Block is a block-level node. The concrete types are Heading, Paragraph,
// BulletList, OrderedList, Blockquote, Rule, Table, CodeBlock and MathBlock.
type Block interface {
	// Kind names the block type, e.g. "heading".
	Kind() string
	// BlockKey returns the stable identity assigned by the pipeline, if any.
	BlockKey() string
	isBlock()
}

// Heading is an ATX heading of level 1 through 6.
type Heading struct {
	Key    string
	Level  int
	Inline []Inline
}

// Paragraph is a run of prose lines.
type Paragraph struct {
	Key    string
	Inline []Inline
}

// BulletList is a run of "- " or "* " items.
type BulletList struct {
	Key   string
	Items [][]Inline
}

// OrderedList is a run of "N. " items. Start is the first item's number.
type OrderedList struct {
	Key   string
	Start int
	Items [][]Inline
}

// Blockquote is a run of "> " lines.
type Blockquote struct {
	Key    string
	Inline []Inline
}

// Rule is a horizontal rule.
type Rule struct {
	Key string
}

// Align is a table column alignment.
type Align int

const (
	AlignNone Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Table is a pipe table. Every row has exactly len(Header) cells.
type Table struct {
	Key    string
	Header [][]Inline
	Align  []Align
	Rows   [][][]Inline
}

// CodeBlock is a fenced code segment. Lexer is the canonical highlighter
// name for Language, empty when no lexer is known.
type CodeBlock struct {
	Key        string
	Language   string
	Lexer      string
	Content    string
	Complete   bool
	Executable bool
}

// MathBlock is display math.
type MathBlock struct {
	Key   string
	Latex string
}

func (Heading) Kind() string     { return "heading" }
func (Paragraph) Kind() string   { return "paragraph" }
func (BulletList) Kind() string  { return "bullet_list" }
func (OrderedList) Kind() string { return "ordered_list" }
func (Blockquote) Kind() string  { return "blockquote" }
func (Rule) Kind() string        { return "rule" }
func (Table) Kind() string       { return "table" }
func (CodeBlock) Kind() string   { return "code" }
func (MathBlock) Kind() string   { return "math" }

func (b Heading) BlockKey() string     { return b.Key }
func (b Paragraph) BlockKey() string   { return b.Key }
func (b BulletList) BlockKey() string  { return b.Key }
func (b OrderedList) BlockKey() string { return b.Key }
func (b Blockquote) BlockKey() string  { return b.Key }
func (b Rule) BlockKey() string        { return b.Key }
func (b Table) BlockKey() string       { return b.Key }
func (b CodeBlock) BlockKey() string   { return b.Key }
func (b MathBlock) BlockKey() string   { return b.Key }

func (Heading) isBlock()     {}
func (Paragraph) isBlock()   {}
func (BulletList) isBlock()  {}
func (OrderedList) isBlock() {}
func (Blockquote) isBlock()  {}
func (Rule) isBlock()        {}
func (Table) isBlock()       {}
func (CodeBlock) isBlock()   {}
func (MathBlock) isBlock()   {}

// WithKey returns a copy of b carrying key.
func WithKey(b Block, key string) Block {
	switch n := b.(type) {
	case Heading:
		n.Key = key
		return n
	case Paragraph:
		n.Key = key
		return n
	case BulletList:
		n.Key = key
		return n
	case OrderedList:
		n.Key = key
		return n
	case Blockquote:
		n.Key = key
		return n
	case Rule:
		n.Key = key
		return n
	case Table:
		n.Key = key
		return n
	case CodeBlock:
		n.Key = key
		return n
	case MathBlock:
		n.Key = key
		return n
	}
	return b
}

// Inline is an inline node: Text, Bold, Italic, Link, Code, Math or LineBreak.
type Inline interface {
	isInline()
}

// Text is literal text. It may contain soft line breaks ("\n").
type Text struct {
	Text string
}

// Bold is strong emphasis.
type Bold struct {
	Children []Inline
}

// Italic is emphasis.
type Italic struct {
	Children []Inline
}

// Link is a [label](href) link.
type Link struct {
	Label []Inline
	Href  string
}

// Code is an inline code span.
type Code struct {
	Text string
}

// Math is inline LaTeX.
type Math struct {
	Latex string
}

// LineBreak is a hard break, produced by a blank line inside a paragraph.
type LineBreak struct{}

func (Text) isInline()      {}
func (Bold) isInline()      {}
func (Italic) isInline()    {}
func (Link) isInline()      {}
func (Code) isInline()      {}
func (Math) isInline()      {}
func (LineBreak) isInline() {}

// PlainText flattens inline nodes to their visible text. Math renders as its
// LaTeX source and line breaks as newlines.
func PlainText(nodes []Inline) string {
	var out []byte
	var walk func([]Inline)
	walk = func(nodes []Inline) {
		for _, n := range nodes {
			switch v := n.(type) {
			case Text:
				out = append(out, v.Text...)
			case Bold:
				walk(v.Children)
			case Italic:
				walk(v.Children)
			case Link:
				walk(v.Label)
			case Code:
				out = append(out, v.Text...)
			case Math:
				out = append(out, v.Latex...)
			case LineBreak:
				out = append(out, '\n')
			}
		}
	}
	walk(nodes)
	return string(out)
}
