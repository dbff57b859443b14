package markdown

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) []Inline {
	return []Inline{Text{Text: s}}
}

func TestFormatBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Block
	}{
		{
			name:  "list flushing",
			input: "- a\n- b\n\ntext",
			expected: []Block{
				BulletList{Items: [][]Inline{text("a"), text("b")}},
				Paragraph{Inline: text("text")},
			},
		},
		{
			name:     "single paragraph",
			input:    "Answer: 42",
			expected: []Block{Paragraph{Inline: text("Answer: 42")}},
		},
		{
			name:  "headings of every level",
			input: "# One\n###### Six ##\n####### seven",
			expected: []Block{
				Heading{Level: 1, Inline: text("One")},
				Heading{Level: 6, Inline: text("Six")},
				Paragraph{Inline: text("####### seven")},
			},
		},
		{
			name:     "hashtag is not a heading",
			input:    "#golang rocks",
			expected: []Block{Paragraph{Inline: text("#golang rocks")}},
		},
		{
			name:  "rules",
			input: "---\n***\n___\n----",
			expected: []Block{
				Rule{}, Rule{}, Rule{},
				Paragraph{Inline: text("----")},
			},
		},
		{
			name:  "blank line inside a paragraph is a hard break",
			input: "first\nsecond\n\nthird",
			expected: []Block{
				Paragraph{Inline: []Inline{Text{Text: "first\nsecond"}, LineBreak{}, Text{Text: "third"}}},
			},
		},
		{
			name:     "leading and trailing blanks produce nothing",
			input:    "\n\nbody\n\n",
			expected: []Block{Paragraph{Inline: text("body")}},
		},
		{
			name:  "ordered list keeps its start",
			input: "3. three\n4. four",
			expected: []Block{
				OrderedList{Start: 3, Items: [][]Inline{text("three"), text("four")}},
			},
		},
		{
			name:  "switching list type flushes",
			input: "- a\n1. b\n* c",
			expected: []Block{
				BulletList{Items: [][]Inline{text("a")}},
				OrderedList{Start: 1, Items: [][]Inline{text("b")}},
				BulletList{Items: [][]Inline{text("c")}},
			},
		},
		{
			name:  "nested items flatten",
			input: "- parent\n  - child\n- sibling",
			expected: []Block{
				BulletList{Items: [][]Inline{text("parent"), text("child"), text("sibling")}},
			},
		},
		{
			name:  "blockquote lines join",
			input: "> one\n> two\n>\n> three\nafter",
			expected: []Block{
				Blockquote{Inline: []Inline{Text{Text: "one\ntwo"}, LineBreak{}, Text{Text: "three"}}},
				Paragraph{Inline: text("after")},
			},
		},
		{
			name:  "paragraph then list",
			input: "Steps:\n- one",
			expected: []Block{
				Paragraph{Inline: text("Steps:")},
				BulletList{Items: [][]Inline{text("one")}},
			},
		},
		{
			name:  "heading interrupts paragraph",
			input: "intro\n\n## Next",
			expected: []Block{
				Paragraph{Inline: text("intro")},
				Heading{Level: 2, Inline: text("Next")},
			},
		},
		{
			name:  "continuation lines keep their indentation",
			input: "  first line\n  indented continuation\n\tand a tab",
			expected: []Block{
				Paragraph{Inline: text("first line\n  indented continuation\n\tand a tab")},
			},
		},
		{
			name:  "inline formatting inside items",
			input: "- **bold** item",
			expected: []Block{
				BulletList{Items: [][]Inline{{Bold{Children: text("bold")}, Text{Text: " item"}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatBlocks(tt.input))
		})
	}
}

// leaves concatenates the visible text of blocks in source order, with link
// targets and list numbers since both come from the source.
func leaves(blocks []Block) string {
	var sb strings.Builder
	var flat func([]Inline)
	flat = func(nodes []Inline) {
		for _, n := range nodes {
			switch v := n.(type) {
			case Text:
				sb.WriteString(v.Text)
			case Bold:
				flat(v.Children)
			case Italic:
				flat(v.Children)
			case Link:
				flat(v.Label)
				sb.WriteString(v.Href)
			case Code:
				sb.WriteString(v.Text)
			case Math:
				sb.WriteString(v.Latex)
			case LineBreak:
				sb.WriteByte('\n')
			}
		}
	}
	for _, b := range blocks {
		switch v := b.(type) {
		case Heading:
			flat(v.Inline)
		case Paragraph:
			flat(v.Inline)
		case Blockquote:
			flat(v.Inline)
		case BulletList:
			for _, item := range v.Items {
				flat(item)
			}
		case OrderedList:
			for i, item := range v.Items {
				sb.WriteString(strconv.Itoa(v.Start+i) + ".")
				flat(item)
			}
		case Table:
			for _, cell := range v.Header {
				flat(cell)
			}
			for _, row := range v.Rows {
				for _, cell := range row {
					flat(cell)
				}
			}
		}
	}
	return sb.String()
}

const markupChars = "#*>-+|:`[]()\\_"

func TestFormattingIsLossless(t *testing.T) {
	inputs := []string{
		"# Title\n\nSome **bold** and *it* with `code`.\n\n- one\n- two\n\n3. three\n\n> quoted\n> more\n\n---\n\n| a | b |\n|---|:-:|\n| 1 | 2 |\n\nSee [docs](https://go.dev) now.",
		"Price is $5 and 3 * 4 = 12, a_b [not a link] (aside)",
		"***both*** and **bold *nested* here**",
		`Escaped \*star\* stays`,
		"1. first\n2. second\n\n- [x](http://a.b)",
		"para\n  indented\n\nnext\n    deeper",
	}

	for _, input := range inputs {
		leaf := leaves(FormatBlocks(input))
		j := 0
		for i := 0; i < len(input); i++ {
			if j < len(leaf) && input[i] == leaf[j] {
				j++
				continue
			}
			c := input[i]
			assert.True(t, strings.IndexByte(markupChars, c) >= 0 || c == ' ' || c == '\t' || c == '\n',
				"%q dropped %q at %d", input, c, i)
		}
		assert.Equal(t, len(leaf), j, "leaves %q of %q are not in source order", leaf, input)
	}
}

func TestFormatTable(t *testing.T) {
	input := "Compare:\n| Name | Score |\n|:-----|------:|\n| ana | `9` |\n| bo |\n\nend"
	blocks := FormatBlocks(input)
	require.Len(t, blocks, 3)

	assert.Equal(t, Paragraph{Inline: text("Compare:")}, blocks[0])

	table, ok := blocks[1].(Table)
	require.True(t, ok)
	assert.Equal(t, [][]Inline{text("Name"), text("Score")}, table.Header)
	assert.Equal(t, []Align{AlignLeft, AlignRight}, table.Align)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, [][]Inline{text("ana"), {Code{Text: "9"}}}, table.Rows[0])
	assert.Equal(t, [][]Inline{text("bo"), nil}, table.Rows[1])

	assert.Equal(t, Paragraph{Inline: text("end")}, blocks[2])
}

func TestTableNeedsDelimiterRow(t *testing.T) {
	blocks := FormatBlocks("a | b\nc | d")
	assert.Equal(t, []Block{Paragraph{Inline: text("a | b\nc | d")}}, blocks)
}

func TestWithKey(t *testing.T) {
	b := WithKey(Paragraph{Inline: text("x")}, "k1")
	assert.Equal(t, "k1", b.BlockKey())
	assert.Equal(t, "paragraph", b.Kind())
}
