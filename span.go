package facetargs

import "strings"

// Span is a half-open byte range, [Start, End), into a Source's joined text.
type Span struct {
	Start int
	End   int
}

// Source is the synthetic single-line source the Diagnostics component
// reconstructs from an argument vector: every token's span is an offset into
// Joined, which is simply argv joined by single spaces. This differs from
// how a shell would echo the command back (quoting is lost), which is fine
// for pointing a diagnostic at a token but must not be read as shell-accurate.
type Source struct {
	Joined string
}

// NewSource joins args with single spaces and records, for each argument by
// index, the span it occupies in the joined text.
func NewSource(args []string) (Source, []Span) {
	var b strings.Builder

	spans := make([]Span, len(args))

	for i, a := range args {
		if i > 0 {
			b.WriteByte(' ')
		}

		start := b.Len()
		b.WriteString(a)
		spans[i] = Span{Start: start, End: b.Len()}
	}

	return Source{Joined: b.String()}, spans
}
