package langchain

import (
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/killallgit/markstream/pkg/logger"
	"github.com/killallgit/markstream/pkg/pipeline"
)

// DocumentParser is a langchaingo output parser that turns model output into
// a rendered Document, so chains can hand their result straight to a renderer.
type DocumentParser struct {
	parser *pipeline.Parser
	log    *logger.ComponentLogger
}

var _ schema.OutputParser[pipeline.Document] = (*DocumentParser)(nil)

// NewDocumentParser creates an output parser backed by parser
func NewDocumentParser(parser *pipeline.Parser) *DocumentParser {
	return &DocumentParser{
		parser: parser,
		log:    logger.WithComponent("output_parser"),
	}
}

// Parse parses finished model output. It never fails; problems inside the
// pipeline are reported on Document.Errors.
func (p *DocumentParser) Parse(text string) (pipeline.Document, error) {
	doc := p.parser.ParseText(text)
	if doc.Failed() {
		p.log.Warn("Document parsed with errors", "errors", len(doc.Errors))
	}
	return doc, nil
}

// ParseWithPrompt ignores the prompt
func (p *DocumentParser) ParseWithPrompt(text string, _ llms.PromptValue) (pipeline.Document, error) {
	return p.Parse(text)
}

// GetFormatInstructions describes the markdown subset the renderer understands.
func (p *DocumentParser) GetFormatInstructions() string {
	return `Format your answer as Markdown. Supported: headings, **bold**, *italic*, ` +
		"`code`" + `, [links](https://example.com), bullet and numbered lists, block quotes, tables and fenced code blocks with a language.
Use $...$ for inline math and $$...$$ for display math.
You may reason inside <think>...</think> before answering.
End with a "Sources:" section listing one link per line when you cite the web.`
}

// Type returns the parser type
func (p *DocumentParser) Type() string {
	return "markstream_document"
}
