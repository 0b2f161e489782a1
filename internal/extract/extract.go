// Package extract finds embedded GraphQL snippets in source text.
//
// Two recognizers share the same fixed marker set: a call marker
// (graphql(`...`) and a tag marker (gql`...`). [Markers] is a best-effort
// textual scan that works on any file; [Syntax] recognizes the same markers
// with a tree-sitter parse for JavaScript and TypeScript sources.
package extract

import (
	"context"
	"iter"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Snippet is the text between a marker's opening backtick and the next
// backtick.
type Snippet struct {
	Text   string
	Line   int    // 1-based line of the opening backtick
	Marker string // "graphql" or "gql"
}

// Extractor yields the snippets embedded in a file's contents.
type Extractor interface {
	Snippets(ctx context.Context, path string, src []byte) iter.Seq[Snippet]
}

// Marker names.
const (
	MarkerCall = "graphql"
	MarkerTag  = "gql"
)

// matchTimeout bounds a single marker search. A search that times out ends
// the sequence for that text.
const matchTimeout = 2 * time.Second

// markerPattern: group 1 is the call marker, group 2 the tag marker, group 3
// the body. The body is non-greedy and stops at the first closing backtick.
var markerPattern = func() *regexp2.Regexp {
	re := regexp2.MustCompile("(?:(graphql)\\s*\\(|(gql)\\s*)`([\\s\\S]*?)`", regexp2.None)
	re.MatchTimeout = matchTimeout
	return re
}()

// Snippets lazily scans text for marker-delimited snippets, in order of
// appearance. Scanning resumes after each consumed match.
func Snippets(text string) iter.Seq[Snippet] {
	return func(yield func(Snippet) bool) {
		m, err := markerPattern.FindStringMatch(text)
		lines := newLineCounter(text)
		for m != nil && err == nil {
			body := m.GroupByNumber(3)
			marker := MarkerTag
			if m.GroupByNumber(1).Length > 0 {
				marker = MarkerCall
			}
			s := Snippet{
				Text:   body.String(),
				Line:   lines.lineAt(body.Index),
				Marker: marker,
			}
			if !yield(s) {
				return
			}
			m, err = markerPattern.FindNextMatch(m)
		}
	}
}

// Markers is the textual Extractor. It ignores the file path.
type Markers struct{}

var _ Extractor = Markers{}

func (Markers) Snippets(ctx context.Context, _ string, src []byte) iter.Seq[Snippet] {
	return func(yield func(Snippet) bool) {
		for s := range Snippets(string(src)) {
			if ctx.Err() != nil || !yield(s) {
				return
			}
		}
	}
}

// lineCounter converts rune offsets (as reported by regexp2) into 1-based
// line numbers. Offsets must be requested in ascending order.
type lineCounter struct {
	text    string
	bytePos int
	runePos int
	line    int
}

func newLineCounter(text string) *lineCounter {
	return &lineCounter{text: text, line: 1}
}

func (c *lineCounter) lineAt(runeIndex int) int {
	for c.runePos < runeIndex && c.bytePos < len(c.text) {
		r, size := utf8.DecodeRuneInString(c.text[c.bytePos:])
		if r == '\n' {
			c.line++
		}
		c.bytePos += size
		c.runePos++
	}
	return c.line
}
