package facetargs

import (
	"strconv"
	"strings"
)

// CLIOverride is one `--{config}.{dotted.path}[=]VALUE` argument diverted
// by the Parser into the Layer Merge Engine's CLI layer.
type CLIOverride struct {
	Dotted string
	Raw    string
}

// EnvToTree maps every environment variable (as `os.Environ()`-style
// "KEY=VALUE" strings) whose name begins with `prefix + "__"` into a
// dotted-path Object tree: each "__" separator becomes a path step, each
// step lowercased. Conflicting variables mapping to the same path resolve
// by later-in-enumeration winning; callers must not rely on enumeration
// order beyond that.
func EnvToTree(prefix string, env []string) Value {
	root := NewObject()

	if prefix == "" {
		return root
	}

	marker := prefix + "__"

	for _, kv := range env {
		name, val, ok := splitKV(kv)
		if !ok || !strings.HasPrefix(name, marker) {
			continue
		}

		rest := strings.TrimPrefix(name, marker)
		if rest == "" {
			continue
		}

		segments := strings.Split(rest, "__")
		for i, seg := range segments {
			segments[i] = strings.ToLower(seg)
		}

		setPath(&root, segments, Value{
			Kind: ValString,
			Str:  val,
			Prov: Provenance{Kind: ProvEnv, VarName: name},
		})
	}

	return root
}

func splitKV(kv string) (name, val string, ok bool) {
	i := strings.IndexByte(kv, '=')
	if i < 0 {
		return "", "", false
	}

	return kv[:i], kv[i+1:], true
}

// CLIOverridesToTree builds the CLI override layer's Object tree, inferring
// each raw value's scalar kind by examination only: a literal matching
// true|false becomes Bool; an integer pattern becomes Integer; a float
// pattern becomes Float; otherwise String.
func CLIOverridesToTree(overrides []CLIOverride) Value {
	root := NewObject()

	for _, o := range overrides {
		segments := strings.Split(o.Dotted, ".")
		prov := Provenance{Kind: ProvCLI, ArgText: o.Dotted + "=" + o.Raw}
		setPath(&root, segments, inferCLIScalar(o.Raw, prov))
	}

	return root
}

func inferCLIScalar(raw string, prov Provenance) Value {
	switch strings.ToLower(raw) {
	case "true":
		return Value{Kind: ValBool, Bool: true, Prov: prov}
	case "false":
		return Value{Kind: ValBool, Bool: false, Prov: prov}
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Value{Kind: ValInteger, Integer: n, Prov: prov}
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Value{Kind: ValFloat, Float: f, Prov: prov}
	}

	return Value{Kind: ValString, Str: raw, Prov: prov}
}

// setPath inserts leaf at the dotted path segments within root, creating
// intermediate Object nodes as needed and replacing any non-object node
// found in the way (a scalar/array layer underneath an object path is
// simply overwritten, mirroring the deep-merge rule that only two object
// sides recurse).
func setPath(root *Value, segments []string, leaf Value) {
	if len(segments) == 1 {
		root.Set(segments[0], leaf)

		return
	}

	key := segments[0]

	child, ok := root.Get(key)
	if !ok || child.Kind != ValObject {
		child = NewObject()
	}

	setPath(&child, segments[1:], leaf)
	root.Set(key, child)
}

// DefaultsToTree builds the lowest-priority layer, built-in defaults, from
// a config-mode Shape's own `default` attributes, recursing into nested
// structs so a deeply-nested leaf's default still participates in the
// merge even if no file/env/CLI layer mentions its parent object.
func DefaultsToTree(sh *Shape) Value {
	root := NewObject()

	for _, f := range sh.Fields {
		if f.Attr != nil && f.Attr.Skip {
			continue
		}

		key := configKey(f)
		childShape := f.Shape

		if childShape.Kind == KindOption {
			childShape = childShape.Elem
		}

		switch {
		case childShape.Kind == KindStruct:
			child := DefaultsToTree(childShape)
			if len(child.Keys) > 0 {
				root.Set(key, child)
			}

		case f.Attr != nil && f.Attr.HasDefault:
			root.Set(key, Value{
				Kind: ValString,
				Str:  f.Attr.Default,
				Prov: Provenance{Kind: ProvDefault},
			})
		}
	}

	return root
}

// FileToTree parses src with adapter and converts the resulting FileNode
// tree into a Value tree, re-tagging every leaf with file provenance
// (path, dotted key path, and the node's original position).
func FileToTree(adapter FormatAdapter, src FileSource) (Value, error) {
	node, err := adapter.Parse(src.Path, src.Text)
	if err != nil {
		return Value{}, err
	}

	return fileNodeToValue(node, src.Path, ""), nil
}

func fileNodeToValue(n FileNode, path, keyPath string) Value {
	prov := Provenance{
		Kind:     ProvFile,
		Path:     path,
		KeyPath:  keyPath,
		Line:     n.Pos.Line,
		ByteSpan: Span{Start: n.Pos.Offset, End: n.Pos.Offset},
	}

	switch n.Kind {
	case FileBool:
		return Value{Kind: ValBool, Bool: n.Bool, Prov: prov}

	case FileInteger:
		return Value{Kind: ValInteger, Integer: n.Integer, Prov: prov}

	case FileFloat:
		return Value{Kind: ValFloat, Float: n.Float, Prov: prov}

	case FileString:
		return Value{Kind: ValString, Str: n.Str, Prov: prov}

	case FileArray:
		items := make([]Value, 0, len(n.Array))
		for _, item := range n.Array {
			items = append(items, fileNodeToValue(item, path, keyPath))
		}

		return Value{Kind: ValArray, Array: items, Prov: prov}

	case FileObject:
		obj := Value{Kind: ValObject, Object: map[string]Value{}, Prov: prov}

		for _, key := range n.Keys {
			childPath := key
			if keyPath != "" {
				childPath = keyPath + "." + key
			}

			obj.Set(key, fileNodeToValue(n.Object[key], path, childPath))
		}

		return obj

	default:
		return Value{Kind: ValNull, Prov: prov}
	}
}

// Merge deep-merges layers in ascending priority order (lowest first),
// recording an Override each time a higher-priority leaf displaces a
// lower-priority one. The conventional call is Merge(defaults, file, env,
// cli).
func Merge(layers ...Value) (Value, []Override) {
	merged := NewObject()

	var overrides []Override

	for _, layer := range layers {
		overrides = append(overrides, mergeInto(&merged, layer, "")...)
	}

	return merged, overrides
}

// UnknownKeys walks tree's leaves (scalars and arrays, not intermediate
// objects) and returns every dotted path that has no matching declaration
// in sh.
func UnknownKeys(sh *Shape, tree Value) []string {
	known := make(map[string]bool)
	for _, k := range configDottedKeys(sh, "") {
		known[k] = true
	}

	var unknown []string

	collectLeafPaths(tree, "", func(path string) {
		if !known[path] {
			unknown = append(unknown, path)
		}
	})

	return unknown
}

func collectLeafPaths(v Value, path string, emit func(string)) {
	if v.Kind != ValObject {
		if path != "" {
			emit(path)
		}

		return
	}

	for _, key := range v.Keys {
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}

		collectLeafPaths(v.Object[key], childPath, emit)
	}
}

func mergeInto(dst *Value, src Value, path string) []Override {
	if src.Kind != ValObject {
		return nil
	}

	var overrides []Override

	for _, key := range src.Keys {
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}

		srcChild := src.Object[key]
		dstChild, existed := dst.Get(key)

		switch {
		case srcChild.Kind == ValObject && existed && dstChild.Kind == ValObject:
			overrides = append(overrides, mergeInto(&dstChild, srcChild, childPath)...)
			dst.Set(key, dstChild)

		case srcChild.Kind == ValObject:
			fresh := NewObject()
			overrides = append(overrides, mergeInto(&fresh, srcChild, childPath)...)
			dst.Set(key, fresh)

		default:
			if existed {
				overrides = append(overrides, Override{
					Path:   childPath,
					Winner: srcChild.Prov,
					Loser:  dstChild.Prov,
				})
			}

			dst.Set(key, srcChild)
		}
	}

	return overrides
}
