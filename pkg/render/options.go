// Package render maps parsed Documents onto terminal output: styled lines for
// tcell views and ANSI strings for plain terminals.
package render

import (
	"github.com/killallgit/markstream/pkg/config"
)

const minWidth = 20

// Options controls layout and styling
type Options struct {
	Width        int
	ShowThinking bool
	// CodeStyle names a chroma style; unknown names fall back to chroma's default.
	CodeStyle string
	// Color disables all escape sequences when false.
	Color bool
}

// DefaultOptions returns the options used when no configuration is loaded
func DefaultOptions() Options {
	return Options{
		Width:        100,
		ShowThinking: true,
		CodeStyle:    "monokai",
		Color:        true,
	}
}

// FromConfig reads the render section of cfg
func FromConfig(cfg *config.Config) Options {
	return Options{
		Width:        cfg.Render.Width,
		ShowThinking: cfg.Render.ShowThinking,
		CodeStyle:    cfg.Render.CodeStyle,
		Color:        cfg.Render.Color,
	}
}

func (o Options) width() int {
	if o.Width < minWidth {
		return minWidth
	}
	return o.Width
}
