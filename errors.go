package facetargs

import (
	"errors"
	"fmt"
)

// ErrNotPointerToStruct indicates that a target value is not a pointer to a
// struct — the only shape the Materializer knows how to build into.
var ErrNotPointerToStruct = errors.New("facetargs: target must be a pointer to a struct")

// ErrNoConfigField indicates FromArgsLayered was called against a shape that
// declares no `config` root field, so the Layer Merge Engine has nothing to
// resolve.
var ErrNoConfigField = errors.New("facetargs: shape declares no config field")

// Kind identifies the taxonomy of a diagnostic. The String form of each
// kind (unknown_long_flag, missing_argument, …) is the stable, user-facing
// identifier rendered in error output.
type Kind uint

const (
	// KindUnknown is a generic, uncategorized error.
	KindUnknown Kind = iota

	// KindUnknownLongFlag: a --name token did not match any long flag.
	KindUnknownLongFlag

	// KindUnknownShortFlag: a letter inside a short cluster did not match
	// any short flag.
	KindUnknownShortFlag

	// KindUnknownSubcommand: a positional token meant to select a variant
	// named a variant that doesn't exist.
	KindUnknownSubcommand

	// KindExpectedValue: a flag requires a value but none was available.
	KindExpectedValue

	// KindMissingArgument: a required positional or flag was never set.
	KindMissingArgument

	// KindMissingSubcommand: a required subcommand field was never resolved.
	KindMissingSubcommand

	// KindUnexpectedPositional: a positional token arrived with no free slot.
	KindUnexpectedPositional

	// KindReflectError: a scalar parser rejected its input.
	KindReflectError

	// KindConfigParseError: the Format Adapter failed to parse a file.
	KindConfigParseError

	// KindAmbiguousKey: strict mode only — an env/file key matched no shape
	// path even after typo correction.
	KindAmbiguousKey

	// KindInvalidValue: a `validate` tag rejected an otherwise well-typed
	// scalar value.
	KindInvalidValue

	// KindDuplicateAttribute: the shape itself is ill-formed (e.g. two
	// subcommand fields on one struct, or positional+named on one field).
	KindDuplicateAttribute

	// KindHelp: the built-in help was requested; Message holds the text.
	KindHelp
)

func (k Kind) String() string {
	names := [...]string{
		"unknown",
		"unknown_long_flag",
		"unknown_short_flag",
		"unknown_subcommand",
		"expected_value",
		"missing_argument",
		"missing_subcommand",
		"unexpected_positional",
		"reflect_error",
		"config_parse_error",
		"ambiguous_key",
		"invalid_value",
		"duplicate_attribute",
		"help",
	}
	if int(k) >= len(names) {
		return "unrecognized"
	}

	return names[k]
}

// Error is the single diagnostic type every failure in this module surfaces
// as. It carries a typed Kind, the offending text, a Span labeling it within
// a Source, and an optional "did you mean" Suggestion or general Help
// block.
type Error struct {
	Kind       Kind
	Message    string
	Offending  string
	Span       Span
	Suggestion string
	Help       string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Help != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Help)
	}

	return e.Message
}

func newDiag(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func newDiagf(kind Kind, format string, args ...any) *Error {
	return newDiag(kind, fmt.Sprintf(format, args...))
}

// withSpan attaches a labeled span to the diagnostic and returns it, for
// fluent construction at the call site.
func (e *Error) withSpan(s Span, offending string) *Error {
	e.Span = s
	e.Offending = offending

	return e
}

// withSuggestion computes a "did you mean" hint for query against
// candidates and, when none is close enough, falls back to listing every
// candidate as Help. query is the bare name that missed (`verbos`), not
// the full offending token (`--verbos`), so edit distance is never skewed
// by the dashes.
func (e *Error) withSuggestion(query string, candidates []string) *Error {
	return e.withSuggestionPrefixed(query, candidates, "")
}

// withSuggestionPrefixed is withSuggestion, but the rendered hint carries
// prefix (e.g. "--" for long flags, "-" for short flags): `did you mean
// `--verbose`?`.
func (e *Error) withSuggestionPrefixed(query string, candidates []string, prefix string) *Error {
	if closest, ok := Suggest(query, candidates); ok {
		e.Suggestion = closest
		e.Help = fmt.Sprintf("did you mean `%s%s`?", prefix, closest)

		return e
	}

	if len(candidates) > 0 {
		prefixed := make([]string, len(candidates))
		for i, c := range candidates {
			prefixed[i] = prefix + c
		}

		e.Help = "available: " + joinBackticks(prefixed)
	}

	return e
}

func joinBackticks(names []string) string {
	out := ""

	for i, n := range names {
		if i > 0 {
			out += ", "
		}

		out += "`" + n + "`"
	}

	return out
}

// AsError extracts *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error

	ok := errors.As(err, &e)

	return e, ok
}
