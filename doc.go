// Package gqlsearch finds the source files whose embedded GraphQL queries
// select a given field path. It is meant for answering "who uses this field?"
// before an API field is renamed or removed.
//
// # Pipeline
//
// Each file goes through two stages:
//
//  1. Extract: snippets are pulled out of the source text by their markers,
//     a graphql(`...`) call or a gql`...` tagged template. The default scan is
//     textual and works on any file; [WithSyntaxAware] recognizes the same
//     markers with a tree-sitter parse for JavaScript and TypeScript.
//
//  2. Match: each snippet is parsed as a GraphQL document and its operations
//     and fragment definitions are searched for the dotted field path. Inline
//     fragments are transparent; fragment spreads are not followed.
//
// The first matching snippet ends the file. Snippets that fail to parse are
// reported as [Diagnostic] values and never stop the search.
//
// # Usage
//
//	e, err := gqlsearch.New("user.profile.email")
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.SearchDirectory(ctx, "path/to/project")
//	for _, m := range report.Matches {
//		fmt.Println(m.File)
//	}
//
// # Caching
//
// [WithCache] keeps per-file results in SQLite, keyed by content hash, field
// path and extraction mode. Unchanged files are answered from the cache and
// counted in [Report.CacheHits]; a changed file drops its stale entries.
//
// # Concurrency
//
// By default files are searched by a worker pool with a single cache writer.
// Results are reported in input order either way. Cancelling the context
// abandons the remaining files and returns the partial [Report] with the
// context's error.
package gqlsearch
