package facetargs

import (
	"strconv"
	"strings"
)

// ParseOptions carries the hooks that divert configuration-layer arguments
// out of the ordinary flag path.
type ParseOptions struct {
	// ConfigFieldName, when non-empty, is the long flag name that diverts
	// `--name.dotted.path VALUE` into the Layer Merge Engine's CLI override
	// layer instead of the ordinary flag path. Set automatically by
	// FromArgsLayered from the shape's declared config field.
	ConfigFieldName string

	// OnConfigOverride receives every diverted `--config.a.b[=]VALUE`
	// argument, in encounter order, for the Layer Merge Engine to fold into
	// its CLI layer. Nil means no config field is declared.
	OnConfigOverride func(dotted, raw string)

	// OnConfigFile receives the value of a bare `--config PATH` argument
	// (the config field's own long name, with no dotted suffix). Nil means
	// no config field is declared.
	OnConfigFile func(path string)
}

// Parse drives the Materializer token by token: long/short flag dispatch
// within the current struct frame, positional slot binding in declaration
// order, subcommand descent, and `--` handling.
func Parse(m *Materializer, tokens []Token, source Source, opts ParseOptions) error {
	positionalIdx := 0

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch tok.Kind {
		case TokLongFlag:
			if opts.ConfigFieldName != "" && tok.Name == opts.ConfigFieldName && opts.OnConfigFile != nil {
				raw, consumed, err := configOverrideValue(tok, tokens, i, source)
				if err != nil {
					return err
				}

				opts.OnConfigFile(raw)
				i += consumed

				continue
			}

			if diverted, ok := diversionKey(tok.Name, opts.ConfigFieldName); ok {
				raw, consumed, err := configOverrideValue(tok, tokens, i, source)
				if err != nil {
					return err
				}

				opts.OnConfigOverride(diverted, raw)
				i += consumed

				continue
			}

			consumed, err := parseLongFlag(m, tok, tokens, i, source)
			if err != nil {
				return err
			}

			i += consumed

		case TokShortCluster:
			consumed, err := parseShortCluster(m, tok, tokens, i, source)
			if err != nil {
				return err
			}

			i += consumed

		case TokSeparator:
			// Nothing to bind; subsequent tokens already arrive pre-classified
			// as TokPositional by the Scanner.

		case TokPositional:
			var err error

			positionalIdx, err = parsePositional(m, tok, positionalIdx, source)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// diversionKey reports whether name is `configField.dotted.path` and, if
// so, returns the dotted path alone.
func diversionKey(name, configField string) (string, bool) {
	if configField == "" {
		return "", false
	}

	prefix := configField + "."

	if !strings.HasPrefix(name, prefix) {
		return "", false
	}

	return strings.TrimPrefix(name, prefix), true
}

func configOverrideValue(tok Token, tokens []Token, i int, source Source) (string, int, error) {
	if tok.HasValue {
		return tok.Value, 0, nil
	}

	if i+1 < len(tokens) && tokens[i+1].Kind == TokPositional {
		return tokens[i+1].Text, 1, nil
	}

	return "", 0, newDiagf(KindExpectedValue, "expected_value: flag `--%s` requires a value", tok.Name).
		withSpan(tok.Span, tok.Text)
}

func parseLongFlag(m *Materializer, tok Token, tokens []Token, i int, source Source) (int, error) {
	sh := m.Shape()

	f, ok := sh.LongFlags[tok.Name]
	if !ok {
		if tok.Name == "help" || tok.Name == "h" {
			return 0, helpRequested(sh)
		}

		return 0, newDiagf(KindUnknownLongFlag, "unknown_long_flag: unrecognized flag `--%s`", tok.Name).
			withSpan(tok.Span, tok.Text).
			withSuggestionPrefixed(tok.Name, longFlagNames(sh), "--")
	}

	if IsBoolField(f) {
		if tok.HasValue {
			v, err := parseBoolLiteral(tok.Value)
			if err != nil {
				return 0, newDiagf(KindReflectError, "reflect_error: flag `--%s`: %v", tok.Name, err).
					withSpan(tok.Span, tok.Text)
			}

			return 0, m.SetBool(f, v)
		}

		return 0, m.SetBool(f, true)
	}

	if tok.HasValue {
		return 0, setFieldValue(m, f, tok.Value)
	}

	if i+1 >= len(tokens) || !consumableAsValue(tokens[i+1]) {
		return 0, newDiagf(KindExpectedValue, "expected_value: flag `--%s` requires a value", tok.Name).
			withSpan(tok.Span, tok.Text)
	}

	return 1, setFieldValue(m, f, tokens[i+1].Text)
}

// consumableAsValue reports whether the next token may be consumed as a
// flag's value: any Positional, or a BareDash (scanned as Positional{"-"}
// already). A LongFlag/ShortCluster/Separator cannot be silently eaten.
func consumableAsValue(t Token) bool {
	return t.Kind == TokPositional
}

func parseShortCluster(m *Materializer, tok Token, tokens []Token, i int, source Source) (int, error) {
	sh := m.Shape()
	letters := []rune(tok.Letters)

	for li, r := range letters {
		f, ok := sh.ShortFlags[r]
		if !ok {
			if r == 'h' && len(letters) == 1 {
				return 0, helpRequested(sh)
			}

			return 0, unknownShortError(tok, string(r), sh)
		}

		if IsBoolField(f) {
			if err := m.SetBool(f, true); err != nil {
				return 0, err
			}

			continue
		}

		remainder := string(letters[li+1:]) + tok.Trailing
		if remainder != "" {
			remainder = strings.TrimPrefix(remainder, "=")

			return 0, setFieldValue(m, f, remainder)
		}

		if i+1 >= len(tokens) || !consumableAsValue(tokens[i+1]) {
			return 0, newDiagf(KindExpectedValue, "expected_value: flag `-%c` requires a value", r).
				withSpan(tok.Span, tok.Text)
		}

		return 1, setFieldValue(m, f, tokens[i+1].Text)
	}

	return 0, nil
}

func unknownShortError(tok Token, letter string, sh *Shape) error {
	e := newDiagf(KindUnknownShortFlag, "unknown_short_flag: unrecognized flag `-%s`", letter).
		withSpan(tok.Span, tok.Text)

	if spelled, ok := sh.LongFlags[tok.Letters]; ok {
		e.Suggestion = tok.Letters
		e.Help = "did you mean `--" + spelled.LongName + "`?"

		return e
	}

	return e.withSuggestionPrefixed(letter, shortFlagNames(sh), "-")
}

func parsePositional(m *Materializer, tok Token, positionalIdx int, source Source) (int, error) {
	sh := m.Shape()

	if sh.SubcommandField != nil && positionalIdx >= len(sh.Positional) {
		variant, ok := resolveVariant(sh.SubcommandField.Shape, tok.Text)
		if !ok {
			if tok.Text == "help" {
				return positionalIdx, helpRequested(sh)
			}

			return positionalIdx, newDiagf(KindUnknownSubcommand, "unknown_subcommand: unrecognized command `%s`", tok.Text).
				withSpan(tok.Span, tok.Text).
				withSuggestion(tok.Text, variantNames(sh.SubcommandField.Shape))
		}

		if err := m.EnterVariant(sh.SubcommandField, variant); err != nil {
			return positionalIdx, err
		}

		return 0, nil
	}

	if positionalIdx >= len(sh.Positional) {
		return positionalIdx, newDiagf(KindUnexpectedPositional,
			"unexpected_positional: no free positional slot for `%s`", tok.Text).
			withSpan(tok.Span, tok.Text)
	}

	f := sh.Positional[positionalIdx]
	if err := setFieldValue(m, f, tok.Text); err != nil {
		return positionalIdx, err
	}

	if f.Shape.Kind == KindList {
		// A list-typed positional slot absorbs every remaining positional
		// token and must be the declared last slot.
		return positionalIdx, nil
	}

	return positionalIdx + 1, nil
}

func resolveVariant(enumShape *Shape, name string) (*Field, bool) {
	for _, f := range enumShape.Fields {
		if f.LongName == name {
			return f, true
		}

		if f.Attr != nil {
			for _, alias := range f.Attr.Aliases {
				if alias == name {
					return f, true
				}
			}
		}
	}

	return nil, false
}

func setFieldValue(m *Materializer, f *Field, raw string) error {
	if f.Attr != nil && f.Attr.Unquote {
		if unq, ok := tryUnquote(raw); ok {
			raw = unq
		}
	}

	if f.Attr != nil && len(f.Attr.Choices) > 0 && !choiceAllowed(raw, f.Attr.Choices) {
		return newDiagf(KindReflectError, "reflect_error: `%s` is not a valid choice for `%s`", raw, f.Name).
			withSpan(Span{}, raw).
			withSuggestion(raw, f.Attr.Choices)
	}

	if f.Attr != nil && f.Attr.Positional {
		return m.SetPositional(f, raw)
	}

	return m.SetNamed(f, raw)
}

func choiceAllowed(raw string, choices []string) bool {
	for _, c := range choices {
		if c == raw {
			return true
		}
	}

	return false
}

// tryUnquote unquotes a Go-style double-quoted string literal token
// (`"a\tb"`). Values that are not quoted at all are returned unchanged.
func tryUnquote(raw string) (string, bool) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return raw, false
	}

	unq, err := strconv.Unquote(raw)
	if err != nil {
		return raw, false
	}

	return unq, true
}

// helpRequested renders the current frame's help block as a KindHelp
// diagnostic, for the program driver to print to stdout and exit 0 rather
// than treat as a failure.
func helpRequested(sh *Shape) error {
	var b strings.Builder

	WriteHelp(&b, "", sh)

	return newDiag(KindHelp, b.String())
}

func parseBoolLiteral(s string) (bool, error) {
	v, err := parseBool(s)
	if err != nil {
		return false, err
	}

	return v.(bool), nil
}

func longFlagNames(sh *Shape) []string {
	names := make([]string, 0, len(sh.LongFlags))
	for n := range sh.LongFlags {
		names = append(names, n)
	}

	return names
}

func shortFlagNames(sh *Shape) []string {
	names := make([]string, 0, len(sh.ShortFlags))
	for r := range sh.ShortFlags {
		names = append(names, string(r))
	}

	return names
}

func variantNames(enumShape *Shape) []string {
	names := make([]string, 0, len(enumShape.Fields))
	for _, f := range enumShape.Fields {
		names = append(names, f.LongName)
	}

	return names
}
