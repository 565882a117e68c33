package facetargs

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/facet-args/facet-args/internal/tag"
)

// Attr is the parsed attribute set a struct field or variant field may
// carry: named/positional/subcommand/config membership, the short flag
// rune, env/default/sensitive/rename, plus choice/validate/unquote/alias/
// required.
type Attr struct {
	Named       bool
	Positional  bool
	Subcommand  bool
	Config      bool
	Short       rune
	LongName    string
	EnvPrefix   string
	Default     string
	HasDefault  bool
	Sensitive   bool
	Rename      string
	Required    bool
	RequiredTag string
	Choices     []string
	Validate    string
	Unquote     bool
	Desc        string
	VariantName string
	Aliases     []string
	Skip        bool
}

// parseAttr reads a struct field's tag into an Attr. A nil, nil return means
// the field is unexported (and not embedded). A field carrying no recognized
// attribute still gets an Attr, with every membership flag false; the shape
// walk recurses into such a field only if it is itself a struct (an
// unmarked nested group).
func parseAttr(field reflect.StructField) (*Attr, error) {
	if field.PkgPath != "" && !field.Anonymous {
		return nil, nil //nolint:nilnil // unexported, unreachable field
	}

	t, err := tag.New(string(field.Tag))
	if err != nil {
		return nil, newDiagf(KindDuplicateAttribute, "field `%s`: %v", field.Name, err)
	}

	if t.Has("no-flag") {
		return &Attr{Skip: true}, nil
	}

	a := &Attr{Unquote: true}

	if long, ok := t.Get("long"); ok {
		a.Named = true
		a.LongName = long
	}

	if short, ok := t.Get("short"); ok {
		r, err := parseShortRune(short)
		if err != nil {
			return nil, newDiagf(KindDuplicateAttribute, "field `%s`: %v", field.Name, err)
		}

		a.Named = true
		a.Short = r
	}

	if t.Has("positional") {
		a.Positional = true
	}

	if t.Has("subcommand") {
		a.Subcommand = true
	}

	if t.Has("config") {
		a.Config = true
	}

	if a.Named && a.Positional {
		return nil, newDiagf(KindDuplicateAttribute,
			"field `%s`: `named` and `positional` are mutually exclusive", field.Name)
	}

	if env, ok := t.Get("env-prefix"); ok {
		a.EnvPrefix = env
	}

	if def, ok := t.Get("default"); ok {
		a.Default = def
		a.HasDefault = true
	}

	if t.Has("sensitive") {
		a.Sensitive = true
	}

	if rn, ok := t.Get("rename"); ok {
		a.Rename = rn
		if a.LongName == "" {
			a.Named = true
			a.LongName = rn
		}
	}

	if req, ok := t.Get("required"); ok {
		a.Required = req != "false"
		a.RequiredTag = req
	}

	a.Choices = t.GetMany("choice")

	if v, ok := t.Get("validate"); ok {
		a.Validate = v
	}

	if uq, ok := t.Get("unquote"); ok && uq == "false" {
		a.Unquote = false
	}

	if d, ok := t.Get("desc"); ok {
		a.Desc = d
	} else if d, ok := t.Get("description"); ok {
		a.Desc = d
	}

	if variant, ok := t.Get("variant"); ok {
		a.VariantName = variant
	}

	if alias, ok := t.Get("alias"); ok {
		a.Aliases = strings.Split(alias, ",")
	}

	return a, nil
}

func parseShortRune(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("short flag name must be exactly one character, got %q", s)
	}

	r, _ := utf8.DecodeRuneInString(s)

	return r, nil
}

// kebabCase converts a Go exported identifier (CamelCase) to kebab-case,
// the default long-flag spelling of a field name.
func kebabCase(name string) string {
	return wordsJoined(name, "-")
}

// snakeCase converts a Go exported identifier to snake_case, the default
// spelling of subcommand variant names and configuration keys.
func snakeCase(name string) string {
	return wordsJoined(name, "_")
}

func wordsJoined(name, sep string) string {
	var b strings.Builder

	runes := []rune(name)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteString(sep)
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
