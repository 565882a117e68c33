// Package configfmt implements the default Format Adapter: it turns
// configuration file text into a position-annotated node tree. The core
// (package facetargs) only depends on the small facetargs.FormatAdapter
// interface and never imports this package, so callers remain free to
// supply their own adapter for other formats.
//
// Built on github.com/goccy/go-yaml's ast/parser packages, which expose a
// source position for every parsed node — the data the file provenance
// layer needs. goccy parses JSON as a YAML subset, so one adapter serves
// both extensions.
package configfmt

import (
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	facetargs "github.com/facet-args/facet-args"
)

// YAML is the default facetargs.FormatAdapter, backed by goccy/go-yaml's
// ast/parser packages. It handles both ".yaml"/".yml" and ".json" since
// goccy parses JSON as a YAML subset.
type YAML struct{}

// New constructs the default Format Adapter.
func New() YAML { return YAML{} }

// Extensions reports the file suffixes this adapter claims.
func (YAML) Extensions() []string {
	return []string{".yaml", ".yml", ".json"}
}

// Parse decodes text into a byte-span-annotated facetargs.FileNode tree.
func (YAML) Parse(path, text string) (facetargs.FileNode, error) {
	file, err := parser.ParseBytes([]byte(text), 0)
	if err != nil {
		return facetargs.FileNode{}, &facetargs.FileParseError{Path: path, Err: err}
	}

	if len(file.Docs) == 0 {
		return facetargs.FileNode{Kind: facetargs.FileObject, Object: map[string]facetargs.FileNode{}}, nil
	}

	return convert(file.Docs[len(file.Docs)-1].Body), nil
}

func convert(n ast.Node) facetargs.FileNode {
	if n == nil {
		return facetargs.FileNode{Kind: facetargs.FileNull}
	}

	pos := positionOf(n)

	switch v := n.(type) {
	case *ast.MappingNode:
		return convertMapping(v.Values, pos)

	case *ast.MappingValueNode:
		return convertMapping([]*ast.MappingValueNode{v}, pos)

	case *ast.SequenceNode:
		items := make([]facetargs.FileNode, 0, len(v.Values))
		for _, item := range v.Values {
			items = append(items, convert(item))
		}

		return facetargs.FileNode{Kind: facetargs.FileArray, Array: items, Pos: pos}

	case *ast.StringNode:
		return facetargs.FileNode{Kind: facetargs.FileString, Str: v.Value, Pos: pos}

	case *ast.LiteralNode:
		return facetargs.FileNode{Kind: facetargs.FileString, Str: v.String(), Pos: pos}

	case *ast.IntegerNode:
		return facetargs.FileNode{Kind: facetargs.FileInteger, Integer: toInt64(v.Value), Pos: pos}

	case *ast.FloatNode:
		return facetargs.FileNode{Kind: facetargs.FileFloat, Float: v.Value, Pos: pos}

	case *ast.BoolNode:
		return facetargs.FileNode{Kind: facetargs.FileBool, Bool: v.Value, Pos: pos}

	case *ast.NullNode:
		return facetargs.FileNode{Kind: facetargs.FileNull, Pos: pos}

	default:
		// Any other node (anchors, tags, aliases, …) is not unwrapped to
		// its underlying value: it degrades to its string form rather than
		// failing the whole file.
		return facetargs.FileNode{Kind: facetargs.FileString, Str: v.String(), Pos: pos}
	}
}

func convertMapping(values []*ast.MappingValueNode, pos facetargs.FilePosition) facetargs.FileNode {
	obj := facetargs.FileNode{Kind: facetargs.FileObject, Object: map[string]facetargs.FileNode{}, Pos: pos}

	for _, mv := range values {
		key := keyString(mv.Key)
		if _, exists := obj.Object[key]; !exists {
			obj.Keys = append(obj.Keys, key)
		}

		obj.Object[key] = convert(mv.Value)
	}

	return obj
}

func keyString(n ast.Node) string {
	if s, ok := n.(*ast.StringNode); ok {
		return s.Value
	}

	return n.String()
}

func positionOf(n ast.Node) facetargs.FilePosition {
	tok := n.GetToken()
	if tok == nil || tok.Position == nil {
		return facetargs.FilePosition{}
	}

	return facetargs.FilePosition{Line: tok.Position.Line, Column: tok.Position.Column, Offset: tok.Position.Offset}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}
