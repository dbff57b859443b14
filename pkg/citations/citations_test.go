package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		clean     string
		citations []Citation
	}{
		{
			name:  "markdown links under a bold header",
			input: "Go is fast.\n\n**Sources:**\n- [Go](https://go.dev)\n- [Tour](https://go.dev/tour)\n",
			clean: "Go is fast.",
			citations: []Citation{
				{URL: "https://go.dev", Title: "Go"},
				{URL: "https://go.dev/tour", Title: "Tour"},
			},
		},
		{
			name:  "heading header with mixed line styles",
			input: "Answer.\n\n## References\n1. Effective Go - https://go.dev/doc/effective_go\n2. Spec: https://go.dev/ref/spec.\n[3] https://pkg.go.dev",
			clean: "Answer.",
			citations: []Citation{
				{URL: "https://go.dev/doc/effective_go", Title: "Effective Go"},
				{URL: "https://go.dev/ref/spec", Title: "Spec"},
				{URL: "https://pkg.go.dev"},
			},
		},
		{
			name:  "duplicates keep the first title",
			input: "x\nCitations\n- [A](https://a.example)\n- [B](https://a.example)",
			clean: "x",
			citations: []Citation{
				{URL: "https://a.example", Title: "A"},
			},
		},
		{
			name:  "no header means no block",
			input: "Links:\n- https://a.example",
			clean: "Links:\n- https://a.example",
		},
		{
			name:  "header followed by prose is not a block",
			input: "Sources\nI made this up.",
			clean: "Sources\nI made this up.",
		},
		{
			name:  "header without entries",
			input: "text\n\nSources:",
			clean: "text\n\nSources:",
		},
		{
			name:  "block must be trailing",
			input: "Sources:\n- https://a.example\n\nMore prose after.",
			clean: "Sources:\n- https://a.example\n\nMore prose after.",
		},
		{
			name:  "angle bracket urls",
			input: "body\nSources:\n- <https://a.example/x>",
			clean: "body",
			citations: []Citation{
				{URL: "https://a.example/x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, cites := Extract(tt.input)
			assert.Equal(t, tt.clean, clean)
			assert.Equal(t, tt.citations, cites)
		})
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	inputs := []string{
		"Go is fast.\n\n**Sources:**\n- [Go](https://go.dev)",
		"plain text",
		"",
		"Sources:\n- https://only.example",
		"Answer.\n\nSources:\n- https://a.example\n\nReferences:\n- https://b.example",
	}
	for _, input := range inputs {
		once, _ := Extract(input)
		twice, cites := Extract(once)
		assert.Equal(t, once, twice, "input %q", input)
		assert.Empty(t, cites)
	}
}

func TestExtractStackedBlocks(t *testing.T) {
	clean, cites := Extract("Answer.\n\nSources:\n- https://a.example\n\nReferences:\n- [B](https://b.example)\n- https://a.example")
	assert.Equal(t, "Answer.", clean)
	assert.Equal(t, []Citation{
		{URL: "https://a.example"},
		{URL: "https://b.example", Title: "B"},
	}, cites)
}

func TestCustomHeaders(t *testing.T) {
	e := New([]string{"Quellen"})
	clean, cites := e.Extract("Text\nQuellen:\n- https://de.example")
	assert.Equal(t, "Text", clean)
	assert.Len(t, cites, 1)

	clean, cites = e.Extract("Text\nSources:\n- https://de.example")
	assert.Equal(t, "Text\nSources:\n- https://de.example", clean)
	assert.Nil(t, cites)
}
