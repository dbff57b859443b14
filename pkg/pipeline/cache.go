package pipeline

import (
	"strings"

	"github.com/killallgit/markstream/pkg/markdown"
	"github.com/killallgit/markstream/pkg/message"
	"github.com/killallgit/markstream/pkg/segment"
)

// Cache keeps the blocks of finalized segments between parses of one growing
// message. A segment is finalized once a complete code segment at or after it
// exists: appending text can no longer change it. The zero value is ready to
// use. A Cache is not safe for concurrent use.
type Cache struct {
	prefix string
	segs   int
	blocks []markdown.Block
	errs   []error
	hits   int
}

// Reset drops everything cached.
func (c *Cache) Reset() {
	*c = Cache{}
}

// Segments returns how many leading segments are cached.
func (c *Cache) Segments() int {
	return c.segs
}

// Hits returns how many parses reused cached blocks.
func (c *Cache) Hits() int {
	return c.hits
}

// ParseCached parses msg, reusing blocks cached from earlier parses of the
// same message. The result always equals Parse(msg).
func (p *Parser) ParseCached(msg message.RawMessage, cache *Cache) Document {
	if cache == nil {
		cache = &Cache{}
	}
	return p.parse(msg, cache)
}

func (p *Parser) buildCached(segments []segment.Segment, body string, cache *Cache, errs *[]error) []markdown.Block {
	if cache == nil {
		return p.build("body", segments, errs)
	}

	final := 0
	for i, s := range segments {
		if code, ok := s.(segment.CodeSegment); ok && code.Complete {
			final = i + 1
		}
	}

	var blocks []markdown.Block
	start := 0
	if cache.segs > 0 && cache.segs <= final && strings.HasPrefix(body, cache.prefix) {
		blocks = append(blocks, cache.blocks...)
		*errs = append(*errs, cache.errs...)
		start = cache.segs
		cache.hits++
	} else if cache.segs > 0 {
		p.log.Debug("Dropping block cache", "cached_segments", cache.segs, "final_segments", final)
		hits := cache.hits
		cache.Reset()
		cache.hits = hits
	}

	if final > start {
		var fresh []error
		for _, s := range segments[start:final] {
			blocks = append(blocks, p.buildSegment("body", s, &fresh)...)
		}
		*errs = append(*errs, fresh...)

		last := segments[final-1]
		cache.prefix = body[:last.Start()+len(last.Source())]
		cache.segs = final
		cache.blocks = append([]markdown.Block(nil), blocks...)
		cache.errs = append(cache.errs, fresh...)
	}

	for _, s := range segments[final:] {
		blocks = append(blocks, p.buildSegment("body", s, errs)...)
	}
	return blocks
}
