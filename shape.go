package facetargs

import (
	"reflect"
	"strings"
	"sync"

	"github.com/facet-args/facet-args/internal/numeric"
)

// ShapeKind classifies what a Shape's type resolves to.
type ShapeKind int

const (
	KindOpaque ShapeKind = iota
	KindScalar
	KindStruct
	KindEnum
	KindOption
	KindList
)

// mode distinguishes the two ways a struct gets walked: as the CLI grammar
// (named/positional/subcommand flags, nested plain structs flattened away)
// or as a config subtree (every exported field participates, nesting kept
// as an object tree for the Coercer to walk by key).
type mode int

const (
	modeCLI mode = iota
	modeConfig
)

// ScalarParser turns raw text into a value assignable to a scalar Shape's
// Type, or returns a diagnostic-shaped error.
type ScalarParser func(s string) (any, error)

// Shape is the introspected description of a Go type, built once via
// reflect and cached for reuse across repeated Parse calls against the
// same struct.
type Shape struct {
	Type   reflect.Type
	Kind   ShapeKind
	Mode   mode
	Fields []*Field

	LongFlags  map[string]*Field
	ShortFlags map[rune]*Field
	Positional []*Field

	SubcommandField *Field
	ConfigField     *Field

	Elem *Shape // List element / Option inner shape

	Parser ScalarParser // set when Kind == KindScalar
}

// Field is one named member of a Shape: either a direct child (Config mode,
// or a CLI mode subcommand/config slot — Path has length 1) or a leaf
// reached by flattening through unmarked nested-struct groups (CLI mode —
// Path may have length > 1, walkable with reflect.Value.FieldByIndex).
type Field struct {
	Path     []int
	Name     string
	LongName string
	Short    rune
	HasShort bool
	Attr     *Attr
	Shape    *Shape
}

var shapeCache sync.Map // reflect.Type -> *Shape, keyed per mode via shapeCacheKey

type shapeCacheKey struct {
	t reflect.Type
	m mode
}

// IntrospectCLI builds (or returns the cached) Shape for a struct type (the
// element type of a pointer-to-struct target), the root of command-line
// parsing.
func IntrospectCLI(t reflect.Type) (*Shape, error) {
	return introspect(t, modeCLI)
}

// IntrospectConfig builds (or returns the cached) Shape for a struct type
// reachable only through a `config` field — every field participates
// regardless of tags, and nesting is preserved rather than flattened.
func IntrospectConfig(t reflect.Type) (*Shape, error) {
	return introspect(t, modeConfig)
}

func introspect(t reflect.Type, m mode) (*Shape, error) {
	key := shapeCacheKey{t, m}
	if cached, ok := shapeCache.Load(key); ok {
		return cached.(*Shape), nil
	}

	sh, err := buildShape(t, m)
	if err != nil {
		return nil, err
	}

	shapeCache.Store(key, sh)

	return sh, nil
}

func buildShape(t reflect.Type, m mode) (*Shape, error) {
	if t.Kind() == reflect.Ptr {
		elem, err := buildShape(t.Elem(), m)
		if err != nil {
			return nil, err
		}

		return &Shape{Type: t, Kind: KindOption, Mode: m, Elem: elem}, nil
	}

	if p, ok := scalarParser(t); ok {
		return &Shape{Type: t, Kind: KindScalar, Mode: m, Parser: p}, nil
	}

	switch t.Kind() { //nolint:exhaustive // default branch handles the rest
	case reflect.Slice:
		elem, err := buildShape(t.Elem(), m)
		if err != nil {
			return nil, err
		}

		return &Shape{Type: t, Kind: KindList, Mode: m, Elem: elem}, nil

	case reflect.Struct:
		if m == modeConfig {
			return buildConfigStruct(t)
		}

		return buildCLIStruct(t)

	default:
		return &Shape{Type: t, Kind: KindOpaque, Mode: m}, nil
	}
}

// buildEnumShape introspects the struct type of a field tagged `subcommand`:
// a Go-native sum type, one field per variant, each `*VariantStruct` tagged
// `variant:"name"` (or named by snake_case of the Go field name). Only one
// variant pointer is ever non-nil.
func buildEnumShape(t reflect.Type) (*Shape, error) {
	sh := &Shape{Type: t, Kind: KindEnum, Mode: modeCLI, Fields: nil}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		if field.Type.Kind() != reflect.Ptr || field.Type.Elem().Kind() != reflect.Struct {
			return nil, newDiagf(KindDuplicateAttribute,
				"variant field `%s`: subcommand enum fields must be pointer to struct", field.Name)
		}

		attr, err := parseAttr(field)
		if err != nil {
			return nil, err
		}

		if attr == nil {
			attr = &Attr{}
		}

		name := attr.VariantName
		if name == "" {
			name = snakeCase(field.Name)
		}

		payload, err := buildCLIStruct(field.Type.Elem())
		if err != nil {
			return nil, err
		}

		sh.Fields = append(sh.Fields, &Field{
			Path:     []int{i},
			Name:     field.Name,
			LongName: name,
			Attr:     attr,
			Shape:    &Shape{Type: field.Type, Kind: KindOption, Mode: modeCLI, Elem: payload},
		})
	}

	return sh, nil
}

func buildConfigStruct(t reflect.Type) (*Shape, error) {
	sh := &Shape{Type: t, Kind: KindStruct, Mode: modeConfig}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" && !field.Anonymous {
			continue
		}

		attr, err := parseAttr(field)
		if err != nil {
			return nil, err
		}

		if attr == nil {
			attr = &Attr{}
		}

		if attr.Skip {
			continue
		}

		childShape, err := buildShape(field.Type, modeConfig)
		if err != nil {
			return nil, err
		}

		sh.Fields = append(sh.Fields, &Field{
			Path:  []int{i},
			Name:  field.Name,
			Attr:  attr,
			Shape: childShape,
		})
	}

	return sh, nil
}

func buildCLIStruct(t reflect.Type) (*Shape, error) {
	sh := &Shape{
		Type:       t,
		Kind:       KindStruct,
		Mode:       modeCLI,
		LongFlags:  map[string]*Field{},
		ShortFlags: map[rune]*Field{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" && !field.Anonymous {
			continue
		}

		attr, err := parseAttr(field)
		if err != nil {
			return nil, err
		}

		if attr != nil && attr.Skip {
			continue
		}

		switch {
		case attr != nil && attr.Subcommand:
			if sh.SubcommandField != nil {
				return nil, newDiagf(KindDuplicateAttribute,
					"struct `%s` declares more than one subcommand field", t.Name())
			}

			enumShape, err := buildEnumShape(unwrapStructType(field.Type))
			if err != nil {
				return nil, err
			}

			f := &Field{Path: []int{i}, Name: field.Name, Attr: attr, Shape: enumShape}
			sh.SubcommandField = f
			sh.Fields = append(sh.Fields, f)

		case attr != nil && attr.Config:
			if sh.ConfigField != nil {
				return nil, newDiagf(KindDuplicateAttribute,
					"struct `%s` declares more than one config field", t.Name())
			}

			configShape, err := buildShape(field.Type, modeConfig)
			if err != nil {
				return nil, err
			}

			longName := attr.LongName
			if longName == "" {
				longName = kebabCase(field.Name)
			}

			f := &Field{Path: []int{i}, Name: field.Name, LongName: longName, Attr: attr, Shape: configShape}
			sh.ConfigField = f
			sh.Fields = append(sh.Fields, f)

		case attr != nil && (attr.Named || attr.Positional):
			childShape, err := buildShape(field.Type, modeCLI)
			if err != nil {
				return nil, err
			}

			f := &Field{Name: field.Name, Path: []int{i}, Attr: attr, Shape: childShape}

			if attr.LongName == "" && attr.Named {
				f.LongName = kebabCase(field.Name)
			} else {
				f.LongName = attr.LongName
			}

			if attr.Short != 0 {
				f.Short, f.HasShort = attr.Short, true
			}

			if err := registerField(sh, f); err != nil {
				return nil, err
			}

		default:
			// Unmarked field: if it resolves to a nested struct, flatten it
			// transparently into this shape as an option group. Anything
			// else carries no attribute and takes no part in the CLI
			// grammar.
			if !isStructLike(field.Type) {
				continue
			}

			nested, err := buildCLIStruct(unwrapStructType(field.Type))
			if err != nil {
				return nil, err
			}

			if err := flattenInto(sh, nested, i); err != nil {
				return nil, err
			}
		}
	}

	return sh, nil
}

func registerField(sh *Shape, f *Field) error {
	if f.LongName != "" {
		if existing, ok := sh.LongFlags[f.LongName]; ok {
			return newDiagf(KindDuplicateAttribute,
				"duplicate long flag `--%s` on fields `%s` and `%s`", f.LongName, existing.Name, f.Name)
		}

		sh.LongFlags[f.LongName] = f
	}

	if f.HasShort {
		if existing, ok := sh.ShortFlags[f.Short]; ok {
			return newDiagf(KindDuplicateAttribute,
				"duplicate short flag `-%c` on fields `%s` and `%s`", f.Short, existing.Name, f.Name)
		}

		sh.ShortFlags[f.Short] = f
	}

	if f.Attr.Positional {
		if len(sh.Positional) > 0 && sh.Positional[len(sh.Positional)-1].Shape.Kind == KindList {
			return newDiagf(KindDuplicateAttribute,
				"positional field `%s` declared after a list-typed positional, which must be last", f.Name)
		}

		sh.Positional = append(sh.Positional, f)
	}

	sh.Fields = append(sh.Fields, f)

	return nil
}

// flattenInto re-parents a nested CLI shape's fields into sh, prefixing
// each Path with the group field's own index so FieldByIndex still resolves
// against sh's root type.
func flattenInto(sh, nested *Shape, groupIndex int) error {
	for _, f := range nested.Fields {
		clone := *f
		clone.Path = append([]int{groupIndex}, f.Path...)

		if clone.Attr != nil && (clone.Attr.Named || clone.Attr.Positional) {
			if err := registerField(sh, &clone); err != nil {
				return err
			}

			continue
		}

		sh.Fields = append(sh.Fields, &clone)
	}

	if nested.SubcommandField != nil && sh.SubcommandField == nil {
		clone := *nested.SubcommandField
		clone.Path = append([]int{groupIndex}, nested.SubcommandField.Path...)
		sh.SubcommandField = &clone
		sh.Fields = append(sh.Fields, &clone)
	}

	return nil
}

func isStructLike(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Kind() == reflect.Struct
}

func unwrapStructType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}

	return t
}

// scalarParser returns the ScalarParser for t's kind, or false if t is not
// a recognized scalar. Widths are range-checked via internal/numeric rather
// than one strconv call per width.
func scalarParser(t reflect.Type) (ScalarParser, bool) {
	switch t.Kind() { //nolint:exhaustive // non-scalar kinds fall through to false
	case reflect.String:
		return func(s string) (any, error) { return s, nil }, true

	case reflect.Bool:
		return parseBool, true

	case reflect.Int:
		return numericParser(numeric.ParseSigned[int]), true
	case reflect.Int8:
		return numericParser(numeric.ParseSigned[int8]), true
	case reflect.Int16:
		return numericParser(numeric.ParseSigned[int16]), true
	case reflect.Int32:
		return numericParser(numeric.ParseSigned[int32]), true
	case reflect.Int64:
		return numericParser(numeric.ParseSigned[int64]), true

	case reflect.Uint:
		return numericParser(numeric.ParseUnsigned[uint]), true
	case reflect.Uint8:
		return numericParser(numeric.ParseUnsigned[uint8]), true
	case reflect.Uint16:
		return numericParser(numeric.ParseUnsigned[uint16]), true
	case reflect.Uint32:
		return numericParser(numeric.ParseUnsigned[uint32]), true
	case reflect.Uint64:
		return numericParser(numeric.ParseUnsigned[uint64]), true

	case reflect.Float32:
		return numericParser(numeric.ParseFloat[float32]), true
	case reflect.Float64:
		return numericParser(numeric.ParseFloat[float64]), true

	default:
		return nil, false
	}
}

func numericParser[T any](fn func(string) (T, error)) ScalarParser {
	return func(s string) (any, error) {
		v, err := fn(s)
		if err != nil {
			return nil, err
		}

		return v, nil
	}
}

// parseBool accepts the boolean literals true/false, case-insensitive.
// Numeric spellings are deliberately not booleans.
func parseBool(s string) (any, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return nil, newDiagf(KindReflectError, "invalid boolean %q", s)
	}
}
