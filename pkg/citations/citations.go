// Package citations pulls a trailing "Sources" style block out of an
// assistant answer so it can be shown separately from the body.
package citations

import (
	"regexp"
	"strings"

	"github.com/killallgit/markstream/pkg/logger"
)

// DefaultHeaders are the header words that introduce a citation block.
var DefaultHeaders = []string{"sources", "references", "citations"}

// Citation is a single source link.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

var (
	markerPattern   = regexp.MustCompile(`^(?:[-*+]\s+|\d{1,3}[.)]\s+|\[\d{1,3}\]:?\s*)`)
	mdLinkPattern   = regexp.MustCompile(`^\[([^\]]*)\]\(\s*<?(https?://[^\s)>]+)>?\s*\)`)
	urlPattern      = regexp.MustCompile(`https?://[^\s<>()\[\]]+`)
	headingPrefix   = regexp.MustCompile(`^#{1,6}\s+`)
	trailingPunct   = ".,;:!?'\""
	titleSeparators = " \t-–—:|>"
)

// Extractor detects citation blocks introduced by one of its headers.
type Extractor struct {
	headers map[string]struct{}
}

// New creates an extractor for the given header words. Matching ignores case.
func New(headers []string) *Extractor {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return &Extractor{headers: set}
}

var defaultExtractor = New(nil)

// Extract runs the default extractor.
func Extract(text string) (string, []Citation) {
	return defaultExtractor.Extract(text)
}

// Extract looks for a header line followed only by citation lines at the end of
// text. When found, it returns text with the block removed and the citations in
// order, deduplicated by URL. Stacked blocks at the end are all removed, so
// running it again on the cleaned text is a no-op. Otherwise text is returned
// unchanged.
func (e *Extractor) Extract(text string) (string, []Citation) {
	lines := strings.Split(text, "\n")

	var found []Citation
	cut := -1
	for end := len(lines); ; {
		header, block := e.trailingBlock(lines[:end])
		if header < 0 {
			break
		}
		found = append(block, found...)
		cut, end = header, header
	}

	if cut < 0 {
		return text, nil
	}

	cites := dedupe(found)
	clean := strings.TrimRight(strings.Join(lines[:cut], "\n"), " \t\r\n")

	logger.WithComponent("citations").Debug("Extracted citation block",
		"header_line", cut,
		"citations", len(cites))

	return clean, cites
}

// trailingBlock finds the last citation block in lines and returns the index
// of its header line and its citations in order, or -1.
func (e *Extractor) trailingBlock(lines []string) (int, []Citation) {
	var found []Citation
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if c, ok := parseLine(line); ok {
			found = append(found, c)
			continue
		}
		if !e.isHeader(line) || len(found) == 0 {
			return -1, nil
		}
		// collected bottom-up
		for a, b := 0, len(found)-1; a < b; a, b = a+1, b-1 {
			found[a], found[b] = found[b], found[a]
		}
		return i, found
	}
	return -1, nil
}

// isHeader accepts "Sources", "Sources:", "**Sources:**", "## References" and
// similar decorations of a configured header word.
func (e *Extractor) isHeader(line string) bool {
	s := headingPrefix.ReplaceAllString(line, "")
	s = strings.TrimSpace(s)
	for _, wrap := range []string{"**", "__", "*", "_"} {
		if strings.HasPrefix(s, wrap) && strings.HasSuffix(s, wrap) && len(s) > 2*len(wrap) {
			s = s[len(wrap) : len(s)-len(wrap)]
			break
		}
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
	_, ok := e.headers[strings.ToLower(s)]
	return ok
}

// parseLine recognizes one citation line: an optional list or reference
// marker, then either a markdown link or text containing a URL.
func parseLine(line string) (Citation, bool) {
	rest := markerPattern.ReplaceAllString(line, "")

	if m := mdLinkPattern.FindStringSubmatch(rest); m != nil {
		return Citation{URL: m[2], Title: cleanTitle(m[1])}, true
	}

	loc := urlPattern.FindStringIndex(rest)
	if loc == nil {
		return Citation{}, false
	}
	url := strings.TrimRight(rest[loc[0]:loc[1]], trailingPunct)

	title := rest[:loc[0]] + " " + rest[loc[1]:]
	title = strings.TrimRight(strings.TrimLeft(title, titleSeparators), titleSeparators+"<(")
	return Citation{URL: url, Title: cleanTitle(title)}, true
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, wrap := range []string{"**", "*", "\"", "_"} {
		if len(title) > 2*len(wrap) && strings.HasPrefix(title, wrap) && strings.HasSuffix(title, wrap) {
			title = title[len(wrap) : len(title)-len(wrap)]
		}
	}
	return strings.TrimSpace(title)
}

func dedupe(cites []Citation) []Citation {
	seen := make(map[string]struct{}, len(cites))
	out := make([]Citation, 0, len(cites))
	for _, c := range cites {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
