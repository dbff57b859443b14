package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/killallgit/markstream/pkg/pipeline"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// HTML renders the document as an HTML fragment. The body goes through a
// GFM renderer with raw HTML disabled; side channels are emitted as classed
// lists so a stylesheet can collapse them.
func HTML(doc pipeline.Document, opts Options) (string, error) {
	var buf bytes.Buffer

	if opts.Thinking && doc.Thinking != nil && len(doc.Thinking.Blocks) > 0 {
		buf.WriteString(`<details class="thinking"><summary>Thinking</summary>` + "\n")
		if err := md.Convert([]byte(Blocks(doc.Thinking.Blocks)), &buf); err != nil {
			return "", fmt.Errorf("convert thinking: %w", err)
		}
		buf.WriteString("</details>\n")
	}

	if err := md.Convert([]byte(Blocks(doc.Body)), &buf); err != nil {
		return "", fmt.Errorf("convert body: %w", err)
	}

	if opts.Tools && len(doc.ToolActivity) > 0 {
		buf.WriteString(`<ul class="tools">` + "\n")
		for _, a := range doc.ToolActivity {
			fmt.Fprintf(&buf, "<li class=\"%s\">%s</li>\n", html.EscapeString(string(a.Record.Status)), html.EscapeString(a.Line()))
		}
		buf.WriteString("</ul>\n")
	}

	if opts.Citations && len(doc.Citations) > 0 {
		buf.WriteString(`<ol class="sources">` + "\n")
		for _, c := range doc.Citations {
			title := c.Title
			if title == "" {
				title = c.URL
			}
			fmt.Fprintf(&buf, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(c.URL), html.EscapeString(title))
		}
		buf.WriteString("</ol>\n")
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}
