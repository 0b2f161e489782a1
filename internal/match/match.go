// Package match decides whether a parsed GraphQL document selects a dotted
// field path.
//
// A path matches when some operation or top-level fragment definition has a
// chain of field selections, starting at its root selection set, whose names
// equal the path segments in order. Inline fragments are transparent and do
// not consume a segment. Fragment spreads are never followed, so a path that
// is only reachable through ...spread does not match.
package match

import (
	"iter"

	"github.com/vektah/gqlparser/v2/ast"
)

// ContainsPath reports whether any definition in doc selects path from its
// root. path must be non-empty; see ParsePath.
func ContainsPath(doc *ast.QueryDocument, path Path) bool {
	if doc == nil || len(path) == 0 {
		return false
	}
	for set := range Roots(doc) {
		if anyMatches(set, path) {
			return true
		}
	}
	return false
}

// Roots yields the root selection set of every operation (query, mutation,
// subscription and the anonymous shorthand alike) followed by the selection
// set of every fragment definition.
func Roots(doc *ast.QueryDocument) iter.Seq[ast.SelectionSet] {
	return func(yield func(ast.SelectionSet) bool) {
		for _, op := range doc.Operations {
			if !yield(op.SelectionSet) {
				return
			}
		}
		for _, frag := range doc.Fragments {
			if !yield(frag.SelectionSet) {
				return
			}
		}
	}
}

func anyMatches(set ast.SelectionSet, path Path) bool {
	for _, sel := range set {
		if selectionMatches(sel, path) {
			return true
		}
	}
	return false
}

func selectionMatches(sel ast.Selection, path Path) bool {
	switch s := sel.(type) {
	case *ast.Field:
		if s.Name != path[0] {
			return false
		}
		if len(path) == 1 {
			return true
		}
		return anyMatches(s.SelectionSet, path[1:])
	case *ast.InlineFragment:
		return anyMatches(s.SelectionSet, path)
	case *ast.FragmentSpread:
		return false
	default:
		return false
	}
}
