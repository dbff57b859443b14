package segment

import (
	"regexp"
	"strings"
)

// thinkingTags matches configured open tags and remembers their names so the
// matching close tag can be located.
type thinkingTags struct {
	open  *regexp.Regexp
	close map[string]*regexp.Regexp
	names []string
}

func newThinkingTags(names []string) thinkingTags {
	if len(names) == 0 {
		names = DefaultTags
	}

	quoted := make([]string, len(names))
	closers := make(map[string]*regexp.Regexp, len(names))
	for i, name := range names {
		lower := strings.ToLower(name)
		quoted[i] = regexp.QuoteMeta(lower)
		closers[lower] = regexp.MustCompile(`(?i)</` + regexp.QuoteMeta(lower) + `>`)
	}

	// longer names first so "thinking" wins over "think" in the alternation
	sortByLengthDesc(quoted)

	return thinkingTags{
		open:  regexp.MustCompile(`(?i)<(` + strings.Join(quoted, "|") + `)>`),
		close: closers,
		names: names,
	}
}

// extract splits text into the thinking region and the remaining body. Only the
// first region is extracted; anything after it stays in the body verbatim.
func (t thinkingTags) extract(text string, streaming bool) (*Thinking, string) {
	loc := t.open.FindStringSubmatchIndex(text)
	if loc == nil {
		if streaming {
			return nil, text[:len(text)-t.partialOpenSuffix(text)]
		}
		return nil, text
	}

	openStart, openEnd := loc[0], loc[1]
	name := strings.ToLower(text[loc[2]:loc[3]])
	closeTag := "</" + name + ">"

	rest := text[openEnd:]
	closeLoc := t.close[name].FindStringIndex(rest)
	if closeLoc == nil {
		// Still thinking: nothing after the open tag reaches the body.
		content := rest
		if streaming {
			content = content[:len(content)-partialSuffix(content, closeTag)]
		}
		return &Thinking{Content: strings.TrimSpace(content), Complete: false}, text[:openStart]
	}

	content := strings.TrimSpace(rest[:closeLoc[0]])
	body := text[:openStart] + rest[closeLoc[1]:]
	if content == "" {
		return nil, body
	}
	return &Thinking{Content: content, Complete: true}, body
}

// partialOpenSuffix returns the length of a trailing, partially typed open tag.
func (t thinkingTags) partialOpenSuffix(text string) int {
	longest := 0
	for _, name := range t.names {
		if n := partialSuffix(text, "<"+strings.ToLower(name)+">"); n > longest {
			longest = n
		}
	}
	return longest
}

// partialSuffix returns the length of the longest proper prefix of tag that
// text ends with, compared case-insensitively.
func partialSuffix(text, tag string) int {
	for n := len(tag) - 1; n > 0; n-- {
		if n <= len(text) && strings.EqualFold(text[len(text)-n:], tag[:n]) {
			return n
		}
	}
	return 0
}

func sortByLengthDesc(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && len(s[j]) > len(s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
