package extract

import (
	"context"
	"iter"

	sitter "github.com/smacker/go-tree-sitter"
)

// Syntax recognizes the marker set on a tree-sitter parse of JavaScript and
// TypeScript sources, so markers inside comments and string literals are
// ignored. Files in other languages, and sources that parse with syntax
// errors, fall back to the textual scan.
type Syntax struct{}

var _ Extractor = Syntax{}

func (Syntax) Snippets(ctx context.Context, path string, src []byte) iter.Seq[Snippet] {
	lang, ok := LanguageForFile(path)
	if !ok {
		return Markers{}.Snippets(ctx, path, src)
	}
	grammar, ok := grammarFor(lang)
	if !ok {
		return Markers{}.Snippets(ctx, path, src)
	}

	return func(yield func(Snippet) bool) {
		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(grammar)

		tree, err := parser.ParseCtx(ctx, nil, src)
		if err == nil {
			defer tree.Close()
		}
		// A tree with syntax errors can hide markers inside ERROR nodes.
		if err != nil || tree.RootNode().HasError() {
			for s := range (Markers{}).Snippets(ctx, path, src) {
				if !yield(s) {
					return
				}
			}
			return
		}

		walkCalls(tree.RootNode(), src, func(s Snippet) bool {
			return ctx.Err() == nil && yield(s)
		})
	}
}

// walkCalls visits nodes in document order and yields the template body of
// every marker call. It does not descend into a matched call. Returns false
// once yield asks to stop.
func walkCalls(node *sitter.Node, src []byte, yield func(Snippet) bool) bool {
	if node.Type() == "call_expression" {
		if s, ok := markerCall(node, src); ok {
			return yield(s)
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if !walkCalls(child, src, yield) {
			return false
		}
	}
	return true
}

// markerCall matches gql`...` (tagged template) and graphql(`...`) where the
// template is the first argument.
func markerCall(call *sitter.Node, src []byte) (Snippet, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return Snippet{}, false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return Snippet{}, false
	}

	var tpl *sitter.Node
	marker := fn.Content(src)
	switch marker {
	case MarkerTag:
		if args.Type() == "template_string" {
			tpl = args
		}
	case MarkerCall:
		if args.Type() == "arguments" && args.NamedChildCount() > 0 {
			if first := args.NamedChild(0); first != nil && first.Type() == "template_string" {
				tpl = first
			}
		}
	}
	if tpl == nil {
		return Snippet{}, false
	}

	text := tpl.Content(src)
	if len(text) >= 2 {
		text = text[1 : len(text)-1]
	}
	return Snippet{
		Text:   text,
		Line:   int(tpl.StartPoint().Row) + 1,
		Marker: marker,
	}, true
}
