// Package export serializes Documents for copy, share and archive targets.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/killallgit/markstream/pkg/pipeline"
)

// ErrUnknownFormat is returned by Export for an unsupported format name
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an export target
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported formats
func Formats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatHTML}
}

// ParseFormat accepts a format name, case-insensitively. "md" and "txt" are
// accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "txt", "plain":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Options controls what besides the body is exported
type Options struct {
	Thinking  bool
	Citations bool
	Tools     bool
}

// Export renders doc in the given format
func Export(doc pipeline.Document, format Format, opts Options) (string, error) {
	switch format {
	case FormatText:
		return PlainText(doc), nil
	case FormatMarkdown:
		return Markdown(doc, opts), nil
	case FormatHTML:
		return HTML(doc, opts)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// PlainText returns the body text without reasoning or citations, as used for
// clipboard and speech.
func PlainText(doc pipeline.Document) string {
	return doc.PlainText
}
