package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/pipeline"
)

func contents(lines []FormattedLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content
	}
	return out
}

func parse(t *testing.T, msg message.RawMessage) pipeline.Document {
	t.Helper()
	parser := pipeline.New(pipeline.Options{Executable: pipeline.LanguageSet([]string{"python"})})
	doc := parser.Parse(msg)
	require.False(t, doc.Failed(), "%v", doc.Errors)
	return doc
}

func plainOptions() Options {
	opts := DefaultOptions()
	opts.Width = 40
	opts.Color = false
	return opts
}

func TestLines(t *testing.T) {
	t.Run("Blocks", func(t *testing.T) {
		doc := parse(t, message.NewAssistantMessage("# Title\n\nSome **bold** text.\n\n- one\n- two\n\n1. first\n\n> quoted\n\n---"))
		got := contents(Lines(doc, plainOptions()))

		assert.Equal(t, []string{
			"Title",
			"",
			"Some bold text.",
			"",
			"• one",
			"• two",
			"",
			"1. first",
			"",
			"│ quoted",
			"",
			strings.Repeat("─", 40),
		}, got)
	})

	t.Run("Code", func(t *testing.T) {
		doc := parse(t, message.NewStreamingMessage("```python\nprint(1)\nprint(2)"))
		lines := Lines(doc, plainOptions())

		require.Len(t, lines, 3)
		assert.Equal(t, "python ▶ run …", lines[0].Content)
		assert.Equal(t, "print(1)", lines[1].Content)
		assert.Equal(t, 2, lines[1].Indent)
		assert.Equal(t, doc.Body[0].BlockKey(), lines[1].Key)
	})

	t.Run("Thinking", func(t *testing.T) {
		doc := parse(t, message.NewAssistantMessage("<think>plan</think>answer"))

		shown := contents(Lines(doc, plainOptions()))
		assert.Equal(t, []string{"Thinking", "plan", "", "answer"}, shown)

		opts := plainOptions()
		opts.ShowThinking = false
		assert.Equal(t, []string{"answer"}, contents(Lines(doc, opts)))
	})

	t.Run("Side channels", func(t *testing.T) {
		msg := message.NewAssistantMessage("Done.\n\nSources:\n- [Go](https://go.dev)")
		msg.ToolCalls = []message.ToolCallRecord{{ID: "1", Name: "search", Status: message.ToolCompleted}}
		got := contents(Lines(parse(t, msg), plainOptions()))

		assert.Equal(t, []string{
			"Done.",
			"",
			"Tools (1)",
			"✓ Done search()",
			"",
			"Sources",
			"[1] Go <https://go.dev>",
		}, got)
	})

	t.Run("Wrapping", func(t *testing.T) {
		doc := parse(t, message.NewAssistantMessage(strings.Repeat("word ", 12)))
		lines := Lines(doc, Options{Width: 20})
		for _, l := range lines {
			assert.LessOrEqual(t, len(l.Content), 20)
		}
		assert.Greater(t, len(lines), 1)
	})
}

func TestTableRows(t *testing.T) {
	table := markdown.Table{
		Header: [][]markdown.Inline{{markdown.Text{Text: "Name"}}, {markdown.Text{Text: "Qty"}}},
		Align:  []markdown.Align{markdown.AlignLeft, markdown.AlignRight},
		Rows: [][][]markdown.Inline{
			{{markdown.Text{Text: "apple"}}, {markdown.Text{Text: "3"}}},
			{{markdown.Text{Text: "kiwi"}}, {markdown.Text{Text: "12"}}},
		},
	}

	assert.Equal(t, []string{
		"Name  │ Qty",
		"──────┼────",
		"apple │   3",
		"kiwi  │  12",
	}, tableRows(table, 80))
}

func TestFitColumns(t *testing.T) {
	assert.Equal(t, []int{5, 3}, fitColumns([]int{5, 3}, 80))
	got := fitColumns([]int{30, 30}, 23)
	assert.LessOrEqual(t, got[0]+got[1]+3, 23)
}

func TestANSI(t *testing.T) {
	const text = "<think>hmm</think>## Plan\n\nUse `go test` and see [docs](https://go.dev).\n\n```go\nfunc main() {}\n```"

	t.Run("Plain", func(t *testing.T) {
		opts := plainOptions()
		opts.Width = 80
		out := ANSI(parse(t, message.NewAssistantMessage(text)), opts)

		assert.NotContains(t, out, "\x1b[")
		assert.Contains(t, out, "Thinking\n┆ hmm")
		assert.Contains(t, out, "Plan")
		assert.Contains(t, out, "Use go test and see docs (https://go.dev).")
		assert.Contains(t, out, "go\n  func main() {}")
		assert.False(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("Color", func(t *testing.T) {
		opts := plainOptions()
		opts.Color = true
		out := ANSI(parse(t, message.NewAssistantMessage(text)), opts)

		assert.Contains(t, out, "\x1b[")
		assert.Contains(t, out, "main")
	})

	t.Run("Tools and sources", func(t *testing.T) {
		msg := message.NewAssistantMessage("Done.\n\nSources:\n- https://go.dev")
		msg.ToolCalls = []message.ToolCallRecord{{ID: "1", Name: "fetch", Status: message.ToolError, Error: "timeout"}}
		out := ANSI(parse(t, msg), plainOptions())

		assert.Contains(t, out, "▸ Tools (1)\n  ✗ Failed fetch() → timeout")
		assert.Contains(t, out, "Sources\n  [1] https://go.dev")
	})

	t.Run("Empty document", func(t *testing.T) {
		assert.Empty(t, ANSI(pipeline.Document{}, plainOptions()))
	})
}
