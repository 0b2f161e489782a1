package gqlsearch

import (
	"iter"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/wrhall/graphql-search/internal/extract"
	"github.com/wrhall/graphql-search/internal/match"
)

// Public aliases for the internal extraction and matching types. These are
// Go type aliases (=), so no conversion is needed.

type Path = match.Path
type Snippet = extract.Snippet

var (
	ErrEmptyPath    = match.ErrEmptyPath
	ErrEmptySegment = match.ErrEmptySegment
)

// ParsePath splits a dotted field path into segments. It rejects an empty
// path and empty segments.
func ParsePath(s string) (Path, error) {
	return match.ParsePath(s)
}

// Extract lazily yields the snippets embedded in text with the textual
// marker scan.
func Extract(text string) iter.Seq[Snippet] {
	return extract.Snippets(text)
}

// ContainsPath reports whether any operation or fragment definition in doc
// selects path from its root selection set.
func ContainsPath(doc *ast.QueryDocument, path Path) bool {
	return match.ContainsPath(doc, path)
}

// Match identifies a file containing the field path and the first snippet
// that selects it.
type Match struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Marker string `json:"marker"`
}

// Diagnostic describes a snippet the query parser rejected.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Report is the outcome of a search. Matches are in traversal order with each
// file at most once.
type Report struct {
	FieldPath    string       `json:"field_path"`
	Matches      []Match      `json:"matches"`
	Diagnostics  []Diagnostic `json:"diagnostics"`
	FilesScanned int          `json:"files_scanned"`
	CacheHits    int          `json:"cache_hits"`
}
