package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Piece
	}{
		{
			name:     "display math wins over inline",
			input:    "$$x+y$$",
			expected: []Piece{MathSegment{Latex: "x+y", Display: true, Raw: "$$x+y$$"}},
		},
		{
			name:     "prices are not math",
			input:    "a $5 and $10 b",
			expected: []Piece{PlainTextSegment{Content: "a $5 and $10 b"}},
		},
		{
			name:  "inline math in prose",
			input: "Euler: $e^{i\\pi}+1=0$ holds.",
			expected: []Piece{
				PlainTextSegment{Content: "Euler: "},
				MathSegment{Latex: "e^{i\\pi}+1=0", Raw: "$e^{i\\pi}+1=0$"},
				PlainTextSegment{Content: " holds."},
			},
		},
		{
			name:  "display trims one newline on each side",
			input: "Sum:\n$$\n\\sum_i x_i\n$$\nDone",
			expected: []Piece{
				PlainTextSegment{Content: "Sum:\n"},
				MathSegment{Latex: "\\sum_i x_i", Display: true, Raw: "$$\n\\sum_i x_i\n$$"},
				PlainTextSegment{Content: "\nDone"},
			},
		},
		{
			name:  "display then inline",
			input: "$$a$$ and $b$",
			expected: []Piece{
				MathSegment{Latex: "a", Display: true, Raw: "$$a$$"},
				PlainTextSegment{Content: " and "},
				MathSegment{Latex: "b", Raw: "$b$"},
			},
		},
		{
			name:     "unterminated display stays plain",
			input:    "start $$x + y",
			expected: []Piece{PlainTextSegment{Content: "start $$x + y"}},
		},
		{
			name:     "inline math does not cross lines",
			input:    "$a\nb$",
			expected: []Piece{PlainTextSegment{Content: "$a\nb$"}},
		},
		{
			name:     "escaped dollars",
			input:    `costs \$5 or \$6`,
			expected: []Piece{PlainTextSegment{Content: `costs \$5 or \$6`}},
		},
		{
			name:     "malformed latex is still math",
			input:    "$\\frac{1$",
			expected: []Piece{MathSegment{Latex: "\\frac{1", Raw: "$\\frac{1$"}},
		},
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.input, Join(got))
		})
	}
}

func TestHasMath(t *testing.T) {
	assert.True(t, HasMath(Extract("x $y$ z")))
	assert.False(t, HasMath(Extract("nothing here")))
}
