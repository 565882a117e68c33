package facetargs

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteUsage renders a "Usage:" header followed by a one-line usage summary
// for sh, driven purely from the introspected shape.
func WriteUsage(w io.Writer, program string, sh *Shape) {
	fmt.Fprintf(w, "Usage:\n  %s", program)

	if len(sh.LongFlags) > 0 || len(sh.ShortFlags) > 0 {
		fmt.Fprint(w, " [flags]")
	}

	for _, f := range sh.Positional {
		fmt.Fprintf(w, " %s", positionalUsageToken(f))
	}

	if sh.SubcommandField != nil {
		fmt.Fprint(w, " <command>")
	}

	fmt.Fprintln(w)
}

func positionalUsageToken(f *Field) string {
	name := kebabCase(f.Name)
	if f.Shape.Kind == KindList {
		return "[" + name + "...]"
	}

	if f.Shape.Kind == KindOption {
		return "[" + name + "]"
	}

	return "<" + name + ">"
}

// WriteHelp renders usage plus a flag/positional/subcommand reference
// block: options in the Shape's declaration order, commands sorted by name.
func WriteHelp(w io.Writer, program string, sh *Shape) {
	WriteUsage(w, program, sh)

	if len(sh.Fields) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")

	for _, f := range sh.Fields {
		if f == sh.SubcommandField || f == sh.ConfigField {
			continue
		}

		if f.Attr == nil || (!f.Attr.Named && !f.Attr.Positional) {
			continue
		}

		fmt.Fprintf(w, "  %s\n", flagHelpLine(f))
	}

	if sh.SubcommandField != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands:")

		names := variantNames(sh.SubcommandField.Shape)
		sort.Strings(names)

		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
}

func flagHelpLine(f *Field) string {
	var parts []string

	if f.HasShort {
		parts = append(parts, fmt.Sprintf("-%c", f.Short))
	}

	if f.Attr.Positional {
		parts = append(parts, "<"+kebabCase(f.Name)+">")
	} else if f.LongName != "" {
		parts = append(parts, "--"+f.LongName)
	}

	line := strings.Join(parts, ", ")

	if f.Attr.Desc != "" {
		line += "\t" + f.Attr.Desc
	}

	return line
}
