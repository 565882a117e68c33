package facetargs

import "reflect"

// frame tracks the in-progress initialization of one struct value: the
// shape describing it, the live reflect.Value, and which Fields have been
// set so far. Go owns the target's memory already (no separate builder
// allocation step), so a frame is just an initialized-set over a Shape's
// Fields.
type frame struct {
	shape *Shape
	value reflect.Value
	set   map[*Field]bool
}

// Materializer tracks partial initialization of the target as a frame
// stack, so subcommand descent can push and later finalize each level
// independently.
type Materializer struct {
	root   reflect.Value
	frames []*frame
}

// NewMaterializer builds a Materializer over target, which must be a
// pointer to a struct: the caller owns the memory the resolver populates.
func NewMaterializer(target any) (*Materializer, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, ErrNotPointerToStruct
	}

	root := v.Elem()

	shape, err := IntrospectCLI(root.Type())
	if err != nil {
		return nil, err
	}

	m := &Materializer{root: root}
	m.frames = []*frame{{shape: shape, value: root, set: map[*Field]bool{}}}

	return m, nil
}

func (m *Materializer) current() *frame {
	return m.frames[len(m.frames)-1]
}

// Shape returns the current frame's shape, for the Parser to consult its
// flag maps and positional slots.
func (m *Materializer) Shape() *Shape {
	return m.current().shape
}

// RootShape returns the outermost (non-subcommand-descended) shape, the
// one a declared `config` root field lives on.
func (m *Materializer) RootShape() *Shape {
	return m.frames[0].shape
}

// RootValue exposes the target's own reflect.Value, for the Layer Merge
// Engine to locate and populate the `config` root field directly —
// configuration resolution happens outside the CLI frame stack.
func (m *Materializer) RootValue() reflect.Value {
	return m.root
}

// SetNamed assigns raw to a named field of the current frame, coercing
// through the field's scalar parser. A repeated scalar flag overwrites
// silently (last write wins); a list-typed flag appends each value.
func (m *Materializer) SetNamed(f *Field, raw string) error {
	return m.assign(f, raw)
}

// SetPositional assigns raw to a positional field the same way SetNamed
// does; positional binding never special-cases booleans (only named flags
// do — a positional slot typed bool still parses the literal as text).
func (m *Materializer) SetPositional(f *Field, raw string) error {
	return m.assign(f, raw)
}

func (m *Materializer) assign(f *Field, raw string) error {
	fr := m.current()

	target := fieldByPathAlloc(fr.value, f.Path)
	sh := f.Shape

	if sh.Kind == KindOption {
		if target.IsNil() {
			target.Set(reflect.New(sh.Elem.Type))
		}

		target = target.Elem()
		sh = sh.Elem
	}

	switch sh.Kind {
	case KindList:
		parsed, err := sh.Elem.Parser(raw)
		if err != nil {
			return newDiagf(KindReflectError, "field `%s`: %v", f.Name, err)
		}

		elem := reflect.ValueOf(parsed).Convert(sh.Elem.Type)
		target.Set(reflect.Append(target, elem))

	case KindScalar:
		parsed, err := sh.Parser(raw)
		if err != nil {
			return newDiagf(KindReflectError, "field `%s`: %v", f.Name, err)
		}

		if err := runValidate(f, f.Name, parsed); err != nil {
			return err
		}

		target.Set(reflect.ValueOf(parsed).Convert(sh.Type))

	default:
		return newDiagf(KindReflectError, "field `%s`: not a scalar or list target", f.Name)
	}

	fr.set[f] = true

	return nil
}

// SetBool sets a boolean-typed named field to v without going through a
// string parser, for the flag-without-value case ("-v" sets true).
func (m *Materializer) SetBool(f *Field, v bool) error {
	fr := m.current()
	target := fieldByPathAlloc(fr.value, f.Path)
	sh := f.Shape

	if sh.Kind == KindOption {
		if target.IsNil() {
			target.Set(reflect.New(sh.Elem.Type))
		}

		target = target.Elem()
		sh = sh.Elem
	}

	if sh.Kind != KindScalar || sh.Type.Kind() != reflect.Bool {
		return newDiagf(KindReflectError, "field `%s`: not a boolean target", f.Name)
	}

	target.SetBool(v)
	fr.set[f] = true

	return nil
}

// IsBoolField reports whether f resolves (through at most one Option
// layer) to a bare bool.
func IsBoolField(f *Field) bool {
	sh := f.Shape
	if sh.Kind == KindOption {
		sh = sh.Elem
	}

	return sh.Kind == KindScalar && sh.Type.Kind() == reflect.Bool
}

// EnterVariant descends into a subcommand's chosen variant, allocating its
// payload struct and pushing a new frame. Once a variant is chosen it
// cannot be switched; callers must not call EnterVariant twice for the
// same subcommand field.
func (m *Materializer) EnterVariant(subField, variantField *Field) error {
	fr := m.current()
	fr.set[subField] = true

	enumValue := fieldByPathAlloc(fr.value, subField.Path)
	if enumValue.Kind() == reflect.Ptr {
		if enumValue.IsNil() {
			enumValue.Set(reflect.New(enumValue.Type().Elem()))
		}

		enumValue = enumValue.Elem()
	}

	payloadPtr := enumValue.FieldByIndex(variantField.Path)
	if payloadPtr.IsNil() {
		payloadPtr.Set(reflect.New(variantField.Shape.Elem.Type))
	}

	m.frames = append(m.frames, &frame{
		shape: variantField.Shape.Elem,
		value: payloadPtr.Elem(),
		set:   map[*Field]bool{},
	})

	return nil
}

// Finalize fills every unset field in every active frame (innermost first):
// Option fields become nil, fields with a `default` attribute are parsed
// from it, and anything else unset raises missing_argument or
// missing_subcommand. On any error the whole target is zeroed — Go has no
// manual allocation to unwind, so "drop discipline" reduces to not letting
// a half-populated struct escape a failed call.
func (m *Materializer) Finalize() error {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if err := finalizeFrame(m.frames[i]); err != nil {
			m.Discard()

			return err
		}
	}

	return nil
}

// Discard unwinds the partial target: the whole value is zeroed so no
// half-populated struct escapes a failed resolve.
func (m *Materializer) Discard() {
	m.root.Set(reflect.Zero(m.root.Type()))
}

func finalizeFrame(fr *frame) error {
	for _, f := range fr.shape.Fields {
		if f == fr.shape.ConfigField {
			continue
		}

		if fr.set[f] {
			continue
		}

		if f == fr.shape.SubcommandField {
			if f.Attr != nil && f.Attr.RequiredTag == "false" {
				continue
			}

			return newDiag(KindMissingSubcommand, "missing_subcommand: no subcommand selected").
				withSpan(Span{}, f.Name)
		}

		if err := finalizeLeaf(fr.value, f); err != nil {
			return err
		}
	}

	return nil
}

func finalizeLeaf(root reflect.Value, f *Field) error {
	sh := f.Shape

	if sh.Kind == KindOption {
		return nil // unset Option -> already nil
	}

	if sh.Kind == KindScalar && sh.Type.Kind() == reflect.Bool && (f.Attr == nil || !f.Attr.HasDefault) {
		return nil // an absent boolean flag is simply false
	}

	if f.Attr != nil && f.Attr.RequiredTag == "false" {
		return nil // explicitly opted out of the required check
	}

	if sh.Kind == KindList {
		if min := requiredListMin(f); min > 0 {
			target := fieldByPathAlloc(root, f.Path)
			if target.Len() < min {
				return newDiagf(KindMissingArgument,
					"missing_argument: `%s` needs at least %d value(s)", displayName(f), min).
					withSpan(Span{}, f.Name)
			}
		}

		return nil
	}

	if f.Attr != nil && f.Attr.HasDefault {
		target := fieldByPathAlloc(root, f.Path)
		parsed, err := sh.Parser(f.Attr.Default)
		if err != nil {
			return newDiagf(KindReflectError, "field `%s` default %q: %v", f.Name, f.Attr.Default, err)
		}

		target.Set(reflect.ValueOf(parsed).Convert(sh.Type))

		return nil
	}

	return newDiagf(KindMissingArgument, "missing_argument: `%s` was not provided", displayName(f)).
		withSpan(Span{}, f.Name)
}

func requiredListMin(f *Field) int {
	if f.Attr == nil || f.Attr.RequiredTag == "" {
		return 0
	}

	n := 0
	for _, r := range f.Attr.RequiredTag {
		if r < '0' || r > '9' {
			return 0
		}

		n = n*10 + int(r-'0')
	}

	return n
}

func displayName(f *Field) string {
	if f.Attr != nil && f.Attr.Positional {
		return "<" + kebabCase(f.Name) + ">"
	}

	if f.LongName != "" {
		return "--" + f.LongName
	}

	return f.Name
}

// fieldByPathAlloc walks path from root, allocating any nil intermediate
// pointer-to-struct it passes through (flattened nested option groups).
func fieldByPathAlloc(root reflect.Value, path []int) reflect.Value {
	v := root

	for _, idx := range path {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}

			v = v.Elem()
		}

		v = v.Field(idx)
	}

	return v
}
