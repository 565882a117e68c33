package facetargs

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TruncateDisableEnvVar, when set to any non-empty value, makes the dumper
// render every value in full instead of middle-ellipsis truncating at 50
// characters.
const TruncateDisableEnvVar = "FACETARGS_NO_TRUNCATE"

const dumpTruncateWidth = 50

// dumpRow is one rendered line of the `--dump-config` output: a dotted key,
// its formatted value (redacted if sensitive), and its provenance string.
type dumpRow struct {
	Key    string
	Value  string
	Prov   string
	Marked bool // true if Value was truncated
}

// Dump renders the merged configuration tree keyed by sh's declared field
// order, not the tree's own insertion order, which may differ once env/CLI
// layers have added keys no file declared. Sensitive fields redact to
// `[REDACTED (N bytes)]` where N is the UTF-8 byte length of the
// serialized value before redaction.
func Dump(w io.Writer, sh *Shape, tree Value) error {
	rows, truncatedAny := collectRows(sh, tree, "")

	keyWidth, valWidth := 0, 0

	for _, r := range rows {
		keyWidth = maxInt(keyWidth, len(r.Key))
		valWidth = maxInt(valWidth, len(r.Value))
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s%s  %s%s  %s\n",
			r.Key, dots(keyWidth-len(r.Key)+2),
			r.Value, dots(valWidth-len(r.Value)+2),
			r.Prov); err != nil {
			return err
		}
	}

	if truncatedAny {
		fmt.Fprintf(w, "\n(values longer than %d characters were truncated; set %s=1 to disable)\n",
			dumpTruncateWidth, TruncateDisableEnvVar)
	}

	return nil
}

func dots(n int) string {
	if n <= 0 {
		return " "
	}

	return " " + strings.Repeat(".", n)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}

func collectRows(sh *Shape, tree Value, path string) ([]dumpRow, bool) {
	var rows []dumpRow

	truncatedAny := false

	for _, f := range sh.Fields {
		key := configKey(f)
		fullPath := key

		if path != "" {
			fullPath = path + "." + key
		}

		leaf, ok := tree.Get(key)
		if !ok {
			continue
		}

		childShape := f.Shape
		if childShape.Kind == KindOption {
			childShape = childShape.Elem
		}

		if childShape.Kind == KindStruct {
			childRows, childTrunc := collectRows(childShape, leaf, fullPath)
			rows = append(rows, childRows...)
			truncatedAny = truncatedAny || childTrunc

			continue
		}

		text := formatLeaf(leaf)

		if f.Attr != nil && f.Attr.Sensitive {
			rows = append(rows, dumpRow{
				Key:   fullPath,
				Value: fmt.Sprintf("[REDACTED (%d bytes)]", len(text)),
				Prov:  leaf.Prov.String(),
			})

			continue
		}

		rendered, truncated := maybeTruncate(text)
		truncatedAny = truncatedAny || truncated

		rows = append(rows, dumpRow{Key: fullPath, Value: rendered, Prov: leaf.Prov.String(), Marked: truncated})
	}

	return rows, truncatedAny
}

func formatLeaf(v Value) string {
	switch v.Kind {
	case ValBool:
		return strconv.FormatBool(v.Bool)
	case ValInteger:
		return strconv.FormatInt(v.Integer, 10)
	case ValFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValString:
		return v.Str
	case ValArray:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = formatLeaf(item)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

func maybeTruncate(s string) (string, bool) {
	if os.Getenv(TruncateDisableEnvVar) != "" {
		return s, false
	}

	runes := []rune(s)
	if len(runes) <= dumpTruncateWidth {
		return s, false
	}

	// Middle-ellipsis truncation: keep a prefix and suffix, drop the
	// middle.
	keep := dumpTruncateWidth - 3
	head := keep / 2
	tail := keep - head

	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:]), true
}
