// Package pipeline composes the classifier, math extractor, formatters and
// side-channel extractors into a single parse of a RawMessage.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/google/uuid"

	"github.com/killallgit/markstream/pkg/citations"
	"github.com/killallgit/markstream/pkg/config"
	"github.com/killallgit/markstream/pkg/latex"
	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/segment"
	"github.com/killallgit/markstream/pkg/toolactivity"
)

var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("markstream/block"))

// Options configures a Parser.
type Options struct {
	// ThinkingTags lists thinking tag names; empty means segment.DefaultTags.
	ThinkingTags []string
	// CitationHeaders lists header words for citation blocks.
	CitationHeaders []string
	// Executable reports whether code in the given language can be run by the
	// host. Nil means nothing is executable.
	Executable func(language string) bool
}

// Parser turns RawMessage snapshots into Documents. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	final      *segment.Classifier
	streaming  *segment.Classifier
	citations  *citations.Extractor
	executable func(string) bool
	log        *logger.ComponentLogger
}

// New creates a parser
func New(opts Options) *Parser {
	executable := opts.Executable
	if executable == nil {
		executable = func(string) bool { return false }
	}
	return &Parser{
		final:      segment.New(segment.Options{Tags: opts.ThinkingTags}),
		streaming:  segment.New(segment.Options{Tags: opts.ThinkingTags, Streaming: true}),
		citations:  citations.New(opts.CitationHeaders),
		executable: executable,
		log:        logger.WithComponent("pipeline"),
	}
}

// FromConfig creates a parser from the parser section of cfg.
func FromConfig(cfg *config.Config) *Parser {
	return New(Options{
		ThinkingTags:    cfg.Parser.ThinkingTags,
		CitationHeaders: cfg.Parser.CitationHeaders,
		Executable:      LanguageSet(cfg.Parser.ExecutableLanguages),
	})
}

// LanguageSet returns an Executable func matching any of the given languages,
// by name or by canonical lexer name, ignoring case.
func LanguageSet(languages []string) func(string) bool {
	set := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		set[strings.ToLower(l)] = struct{}{}
		if canonical := CanonicalLanguage(l); canonical != "" {
			set[strings.ToLower(canonical)] = struct{}{}
		}
	}
	return func(language string) bool {
		if language == "" {
			return false
		}
		if _, ok := set[strings.ToLower(language)]; ok {
			return true
		}
		_, ok := set[strings.ToLower(CanonicalLanguage(language))]
		return ok
	}
}

// CanonicalLanguage returns the highlighter's name for a fence language, or
// "" when no lexer is registered for it.
func CanonicalLanguage(language string) string {
	if language == "" {
		return ""
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// ParseText parses a finished assistant message.
func (p *Parser) ParseText(text string) Document {
	return p.Parse(message.NewAssistantMessage(text))
}

// Parse runs the whole pipeline over msg.
func (p *Parser) Parse(msg message.RawMessage) Document {
	return p.parse(msg, nil)
}

func (p *Parser) parse(msg message.RawMessage, cache *Cache) Document {
	doc := Document{
		ModelID:   msg.ModelID,
		Streaming: msg.IsStreaming,
	}

	classifier := p.final
	if msg.IsStreaming {
		classifier = p.streaming
	}

	var result segment.Result
	if !p.isolate("classifier", &doc.Errors, func() {
		result = classifier.Classify(msg.Text)
	}) {
		// Without segments the whole text is still shown as prose.
		result = segment.Result{
			Body:     msg.Text,
			Segments: []segment.Segment{segment.TextSegment{Content: msg.Text}},
		}
	}

	body, segments := result.Body, result.Segments
	if msg.IsAssistant() && !msg.IsStreaming {
		p.isolate("citations", &doc.Errors, func() {
			body, segments, doc.Citations = p.stripCitations(body, segments)
		})
	}

	p.isolate("tool_activity", &doc.Errors, func() {
		doc.ToolActivity = toolactivity.Extract(msg.ToolCalls)
	})

	doc.Segments = segments
	doc.PlainText = body
	doc.Body = p.buildCached(segments, body, cache, &doc.Errors)

	if result.Thinking != nil {
		thinking := result.Thinking
		doc.Thinking = &ThinkingDoc{
			Raw:      thinking.Content,
			Complete: thinking.Complete,
			Blocks:   p.build("thinking", p.final.Split(thinking.Content), &doc.Errors),
		}
	}

	p.log.Debug("Parsed message",
		"text_length", len(msg.Text),
		"streaming", msg.IsStreaming,
		"blocks", len(doc.Body),
		"citations", len(doc.Citations),
		"tools", len(doc.ToolActivity),
		"errors", len(doc.Errors))

	return doc
}

// stripCitations only looks at the trailing text segment so a citation-like
// tail inside a code block is never touched.
func (p *Parser) stripCitations(body string, segments []segment.Segment) (string, []segment.Segment, []citations.Citation) {
	if len(segments) == 0 {
		return body, segments, nil
	}
	last, ok := segments[len(segments)-1].(segment.TextSegment)
	if !ok {
		return body, segments, nil
	}

	clean, cites := p.citations.Extract(last.Content)
	if len(cites) == 0 {
		return body, segments, nil
	}

	out := append([]segment.Segment(nil), segments[:len(segments)-1]...)
	if clean != "" {
		out = append(out, segment.TextSegment{Content: clean, Offset: last.Offset})
	}
	return body[:last.Offset] + clean, out, cites
}

// build formats segments into blocks. Each text segment is isolated so one
// failure degrades that segment to a plain paragraph.
func (p *Parser) build(scope string, segments []segment.Segment, errs *[]error) []markdown.Block {
	var blocks []markdown.Block
	for _, seg := range segments {
		blocks = append(blocks, p.buildSegment(scope, seg, errs)...)
	}
	return blocks
}

func (p *Parser) buildSegment(scope string, seg segment.Segment, errs *[]error) []markdown.Block {
	switch s := seg.(type) {
	case segment.CodeSegment:
		return []markdown.Block{p.codeBlock(scope, s, errs)}
	case segment.TextSegment:
		var blocks []markdown.Block
		if !p.isolate("formatter", errs, func() {
			blocks = formatText(s.Content)
		}) {
			blocks = []markdown.Block{markdown.Paragraph{Inline: []markdown.Inline{markdown.Text{Text: s.Content}}}}
		}
		for i, b := range blocks {
			blocks[i] = markdown.WithKey(b, blockKey(scope, b.Kind(), s.Offset, i))
		}
		return blocks
	}
	return nil
}

func (p *Parser) codeBlock(scope string, s segment.CodeSegment, errs *[]error) markdown.CodeBlock {
	lexer := CanonicalLanguage(s.Language)
	if lexer == "" && s.Language == "" && s.Complete {
		if l := lexers.Analyse(s.Content); l != nil {
			lexer = l.Config().Name
		}
	}

	// the executable lookup belongs to the host and may fail on its own
	executable := false
	p.isolate("executable", errs, func() {
		executable = p.executable(s.Language)
	})

	return markdown.CodeBlock{
		Key:        blockKey(scope, "code", s.Offset, 0),
		Language:   s.Language,
		Lexer:      lexer,
		Content:    s.Content,
		Complete:   s.Complete,
		Executable: executable,
	}
}

// formatText runs the math extractor and hands the remaining prose to the
// block formatter. Display math splits the prose into separate runs; inline
// math travels through the formatter as placeholder tokens.
func formatText(text string) []markdown.Block {
	pieces := latex.Extract(text)
	if !latex.HasMath(pieces) {
		return markdown.FormatBlocks(text)
	}

	var inline []latex.MathSegment
	for _, piece := range pieces {
		if m, ok := piece.(latex.MathSegment); ok && !m.Display {
			inline = append(inline, m)
		}
	}
	formatter := markdown.NewFormatter(markdown.InlineOptions{Math: inline})

	var blocks []markdown.Block
	var run strings.Builder
	next := 0
	flush := func() {
		if run.Len() > 0 {
			blocks = append(blocks, formatter.Blocks(run.String())...)
			run.Reset()
		}
	}

	for _, piece := range pieces {
		switch v := piece.(type) {
		case latex.MathSegment:
			if v.Display {
				flush()
				blocks = append(blocks, markdown.MathBlock{Latex: v.Latex})
				continue
			}
			run.WriteString(markdown.MathPlaceholder(next))
			next++
		case latex.PlainTextSegment:
			run.WriteString(v.Content)
		}
	}
	flush()
	return blocks
}

func blockKey(scope, kind string, offset, index int) string {
	name := fmt.Sprintf("%s|%s|%d|%d", scope, kind, offset, index)
	return uuid.NewSHA1(keySpace, []byte(name)).String()
}

// isolate runs fn and converts a panic into an error on errs. It reports
// whether fn completed.
func (p *Parser) isolate(stage string, errs *[]error, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: %w: %v", stage, ErrExtractorFailed, r)
			*errs = append(*errs, err)
			p.log.Error("Pipeline stage failed", "stage", stage, "error", err)
			ok = false
		}
	}()
	fn()
	return true
}
