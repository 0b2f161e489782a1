package match

import (
	"fmt"

	"github.com/maypok86/otter"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DefaultParseCacheSize is the number of distinct snippets whose parse result
// a Parser remembers.
const DefaultParseCacheSize = 4096

type parsed struct {
	doc *ast.QueryDocument
	err error
}

// Parser parses query snippets and memoizes the outcome per snippet text.
// Identical snippets recur across files (shared fragments, copied queries),
// and parsing is a pure function of the text. Safe for concurrent use;
// returned documents must be treated as read-only.
type Parser struct {
	cache otter.Cache[string, parsed]
}

// NewParser creates a Parser remembering up to size results.
func NewParser(size int) (*Parser, error) {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	cache, err := otter.MustBuilder[string, parsed](size).Build()
	if err != nil {
		return nil, fmt.Errorf("build parse cache: %w", err)
	}
	return &Parser{cache: cache}, nil
}

// Parse returns the document for snippet, or the parser's syntax error.
func (p *Parser) Parse(snippet string) (*ast.QueryDocument, error) {
	if r, ok := p.cache.Get(snippet); ok {
		return r.doc, r.err
	}
	doc, err := parser.ParseQuery(&ast.Source{Input: snippet})
	p.cache.Set(snippet, parsed{doc: doc, err: err})
	return doc, err
}

// Close releases the memo cache.
func (p *Parser) Close() {
	p.cache.Close()
}
