package facetargs

import "sort"

// CompletionCandidates returns the static completion candidate lists: the
// long flag names, short flag names, subcommand/variant names, and (when a
// config root is declared) its dotted configuration keys. Emitting an
// actual shell completion script (zsh/bash/fish) is left to callers; this
// is the schema-driven data their own completion command can format
// however it likes.
func CompletionCandidates(sh *Shape) (longFlags, shortFlags, subcommands, configKeys []string) {
	longFlags = longFlagNames(sh)
	sort.Strings(longFlags)

	shortFlags = shortFlagNames(sh)
	sort.Strings(shortFlags)

	if sh.SubcommandField != nil {
		subcommands = variantNames(sh.SubcommandField.Shape)
		sort.Strings(subcommands)
	}

	if sh.ConfigField != nil {
		configKeys = configDottedKeys(sh.ConfigField.Shape, "")
		sort.Strings(configKeys)
	}

	return longFlags, shortFlags, subcommands, configKeys
}

func configDottedKeys(sh *Shape, prefix string) []string {
	var keys []string

	for _, f := range sh.Fields {
		if f.Attr != nil && f.Attr.Skip {
			continue
		}

		key := configKey(f)
		if prefix != "" {
			key = prefix + "." + key
		}

		childShape := f.Shape
		if childShape.Kind == KindOption {
			childShape = childShape.Elem
		}

		if childShape.Kind == KindStruct {
			keys = append(keys, configDottedKeys(childShape, key)...)

			continue
		}

		keys = append(keys, key)
	}

	return keys
}
