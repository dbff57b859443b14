package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "", 3, nil},
		{"even", "abcdef", 3, []string{"abc", "def"}},
		{"remainder", "abcde", 2, []string{"ab", "cd", "e"}},
		{"zero size means one", "ab", 0, []string{"a", "b"}},
		{"multibyte runes stay whole", "héllo→", 2, []string{"hé", "ll", "o→"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunks(tt.text, tt.size)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}
