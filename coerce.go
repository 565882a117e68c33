package facetargs

import (
	"reflect"
	"strconv"
)

// Coerce walks tree against sh (a config-mode Shape) and writes into
// target, invoking each scalar leaf's shape-declared parser whenever the
// tree leaf's own representation differs from the target Go kind — e.g.
// an environment String "8080" coerced into a uint16 field. prov collects
// each coerced leaf's Provenance keyed by its dotted path, for the
// redacting dumper to render later.
func Coerce(target reflect.Value, sh *Shape, tree Value, path string, prov map[string]Provenance) error {
	for _, f := range sh.Fields {
		if f.Attr != nil && f.Attr.Skip {
			continue
		}

		childPath := configKey(f)
		fullPath := childPath
		if path != "" {
			fullPath = path + "." + childPath
		}

		leaf, ok := tree.Get(childPath)
		if !ok {
			if err := coerceMissing(target, f, fullPath); err != nil {
				return err
			}

			continue
		}

		if err := coerceField(fieldByPathAlloc(target, f.Path), f.Shape, leaf, fullPath, f.Name, prov); err != nil {
			return err
		}

		if err := runValidate(f, fullPath, fieldByPathAlloc(target, f.Path).Interface()); err != nil {
			return err
		}
	}

	return nil
}

// configKey is the dotted-path segment a config field is matched against:
// its `rename` attribute if present, else the snake_case of its Go name
// (matching the case the default YAML/JSON adapter and the environment
// mapper both produce).
func configKey(f *Field) string {
	if f.Attr != nil && f.Attr.Rename != "" {
		return f.Attr.Rename
	}

	return snakeCase(f.Name)
}

func coerceMissing(target reflect.Value, f *Field, fullPath string) error {
	sh := f.Shape

	if sh.Kind == KindOption {
		return nil
	}

	if f.Attr != nil && f.Attr.HasDefault {
		leafTarget := fieldByPathAlloc(target, f.Path)
		parsed, err := sh.Parser(f.Attr.Default)
		if err != nil {
			return newDiagf(KindReflectError, "field `%s` default %q: %v", fullPath, f.Attr.Default, err)
		}

		leafTarget.Set(reflect.ValueOf(parsed).Convert(sh.Type))

		return nil
	}

	if sh.Kind == KindStruct {
		// A missing nested object is only an error if one of its own
		// leaves is required; recurse against an empty tree so that
		// sub-fields with defaults/options still resolve and only a truly
		// required leaf fails.
		return Coerce(fieldByPathAlloc(target, f.Path), sh, NewObject(), fullPath, nil)
	}

	return newDiagf(KindMissingArgument, "missing_argument: config key `%s` was not provided", fullPath).
		withSpan(Span{}, fullPath)
}

func coerceField(target reflect.Value, sh *Shape, leaf Value, fullPath, name string, prov map[string]Provenance) error {
	if sh.Kind == KindOption {
		if target.IsNil() {
			target.Set(reflect.New(sh.Elem.Type))
		}

		return coerceField(target.Elem(), sh.Elem, leaf, fullPath, name, prov)
	}

	switch sh.Kind {
	case KindStruct:
		if leaf.Kind != ValObject {
			return newDiagf(KindReflectError, "reflect_error: config key `%s` expected an object", fullPath)
		}

		return Coerce(target, sh, leaf, fullPath, prov)

	case KindList:
		if leaf.Kind != ValArray {
			return newDiagf(KindReflectError, "reflect_error: config key `%s` expected a list", fullPath)
		}

		out := reflect.MakeSlice(target.Type(), 0, len(leaf.Array))

		for i, item := range leaf.Array {
			elemVal, err := coerceScalarValue(sh.Elem, item, indexPath(fullPath, i))
			if err != nil {
				return err
			}

			out = reflect.Append(out, elemVal)
		}

		target.Set(out)

		if prov != nil {
			prov[fullPath] = leaf.Prov
		}

		return nil

	case KindScalar:
		v, err := coerceScalarValue(sh, leaf, fullPath)
		if err != nil {
			return err
		}

		target.Set(v)

		if prov != nil {
			prov[fullPath] = leaf.Prov
		}

		return nil

	default:
		return newDiagf(KindReflectError, "reflect_error: config key `%s`: unsupported target kind", fullPath)
	}
}

func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

// coerceScalarValue returns a reflect.Value of sh.Type built from leaf,
// invoking sh.Parser only when leaf's own kind differs from sh.Type's Go
// kind: a tree leaf that is already the right Go representation (e.g. a
// file-parsed Bool landing on a bool field) is used directly.
func coerceScalarValue(sh *Shape, leaf Value, fullPath string) (reflect.Value, error) {
	if v, ok := directScalar(sh.Type, leaf); ok {
		return v, nil
	}

	text, err := leafAsString(leaf, fullPath)
	if err != nil {
		return reflect.Value{}, err
	}

	parsed, err := sh.Parser(text)
	if err != nil {
		return reflect.Value{}, newDiagf(KindReflectError, "reflect_error: config key `%s`: %v", fullPath, err)
	}

	return reflect.ValueOf(parsed).Convert(sh.Type), nil
}

func directScalar(t reflect.Type, leaf Value) (reflect.Value, bool) {
	switch {
	case t.Kind() == reflect.Bool && leaf.Kind == ValBool:
		return reflect.ValueOf(leaf.Bool).Convert(t), true

	case t.Kind() == reflect.String && leaf.Kind == ValString:
		return reflect.ValueOf(leaf.Str).Convert(t), true

	case isIntKind(t.Kind()) && leaf.Kind == ValInteger:
		return reflect.ValueOf(leaf.Integer).Convert(t), true

	case isUintKind(t.Kind()) && leaf.Kind == ValInteger && leaf.Integer >= 0:
		return reflect.ValueOf(leaf.Integer).Convert(t), true

	case isFloatKind(t.Kind()) && leaf.Kind == ValFloat:
		return reflect.ValueOf(leaf.Float).Convert(t), true

	case isFloatKind(t.Kind()) && leaf.Kind == ValInteger:
		return reflect.ValueOf(float64(leaf.Integer)).Convert(t), true

	default:
		return reflect.Value{}, false
	}
}

func isIntKind(k reflect.Kind) bool {
	switch k { //nolint:exhaustive // only integer kinds matter here
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUintKind(k reflect.Kind) bool {
	switch k { //nolint:exhaustive // only unsigned kinds matter here
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func leafAsString(leaf Value, fullPath string) (string, error) {
	switch leaf.Kind {
	case ValString:
		return leaf.Str, nil
	case ValBool:
		return strconv.FormatBool(leaf.Bool), nil
	case ValInteger:
		return strconv.FormatInt(leaf.Integer, 10), nil
	case ValFloat:
		return strconv.FormatFloat(leaf.Float, 'g', -1, 64), nil
	default:
		return "", newDiagf(KindReflectError, "reflect_error: config key `%s`: not a scalar value", fullPath)
	}
}
