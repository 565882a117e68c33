package facetargs

import (
	"errors"
	"io"
	"os"
	"reflect"
	"strings"
)

// resolveOpts carries FromArgsLayered's functional options.
type resolveOpts struct {
	adapter     FormatAdapter
	strict      bool
	onWarn      func(msg string)
	onOverrides func([]Override)
	dumpTo      io.Writer
}

// Option configures FromArgsLayered.
type Option func(*resolveOpts)

// WithFormatAdapter supplies the Format Adapter used to parse configuration
// file sources. Required whenever fileSources is non-empty.
func WithFormatAdapter(a FormatAdapter) Option {
	return func(o *resolveOpts) { o.adapter = a }
}

// WithStrictMode turns unknown environment/file keys from a warning (the
// default, lenient mode) into an `ambiguous_key` error.
func WithStrictMode(strict bool) Option {
	return func(o *resolveOpts) { o.strict = strict }
}

// WithWarningHandler registers a callback invoked once per unknown
// environment/file key in lenient mode. A nil handler (the default)
// discards warnings silently.
func WithWarningHandler(fn func(msg string)) Option {
	return func(o *resolveOpts) { o.onWarn = fn }
}

// WithOverrideRecorder registers a callback that receives every Override
// record the deep merge emits, one per leaf a higher-priority layer
// displaced.
func WithOverrideRecorder(fn func([]Override)) Option {
	return func(o *resolveOpts) { o.onOverrides = fn }
}

// WithDumpTo writes the redacting configuration dump to w after a
// successful resolve: every leaf in declaration order, sensitive values
// redacted, provenance per leaf.
func WithDumpTo(w io.Writer) Option {
	return func(o *resolveOpts) { o.dumpTo = w }
}

// FromArgs resolves target purely from argv, with no configuration
// layers. target must be a pointer to a struct.
func FromArgs(target any, argv []string) error {
	m, err := NewMaterializer(target)
	if err != nil {
		return err
	}

	tokens, source := Scan(argv)

	if err := Parse(m, tokens, source, ParseOptions{}); err != nil {
		m.Discard()

		return err
	}

	return m.Finalize()
}

// FromArgsLayered resolves target from argv plus environment variables and
// configuration file sources, engaging the Layer Merge Engine. The target
// shape must declare exactly one `config` root field: ErrNoConfigField when
// it declares none, a duplicate_attribute diagnostic when it declares more.
func FromArgsLayered(target any, argv, env []string, fileSources []FileSource, opts ...Option) error {
	cfg := resolveOpts{}
	for _, o := range opts {
		o(&cfg)
	}

	m, err := NewMaterializer(target)
	if err != nil {
		return err
	}

	rootShape := m.RootShape()
	if rootShape.ConfigField == nil {
		return ErrNoConfigField
	}

	var (
		overrides []CLIOverride
		cliPaths  []string
	)

	popts := ParseOptions{
		ConfigFieldName: rootShape.ConfigField.LongName,
		OnConfigOverride: func(dotted, raw string) {
			overrides = append(overrides, CLIOverride{Dotted: dotted, Raw: raw})
		},
		OnConfigFile: func(path string) {
			cliPaths = append(cliPaths, path)
		},
	}

	tokens, source := Scan(argv)

	if err := Parse(m, tokens, source, popts); err != nil {
		m.Discard()

		return err
	}

	if err := m.Finalize(); err != nil {
		return err
	}

	configShape := rootShape.ConfigField.Shape
	configTarget := fieldByPathAlloc(m.RootValue(), rootShape.ConfigField.Path)

	if configShape.Kind == KindOption {
		if configTarget.IsNil() {
			configTarget.Set(reflect.New(configShape.Elem.Type))
		}

		configTarget = configTarget.Elem()
		configShape = configShape.Elem
	}

	allSources := fileSources

	for _, path := range cliPaths {
		text, readErr := os.ReadFile(path) //nolint:gosec // path is an operator-supplied CLI argument, not untrusted input
		if readErr != nil {
			m.Discard()

			return newDiagf(KindConfigParseError, "config_parse_error: %s: %v", path, readErr)
		}

		allSources = append(allSources, FileSource{Path: path, Text: string(text)})
	}

	merged, err := resolveConfigTree(configShape, rootShape.ConfigField, env, allSources, overrides, cfg)
	if err != nil {
		m.Discard()

		return err
	}

	if err := Coerce(configTarget, configShape, merged, "", nil); err != nil {
		m.Discard()

		return err
	}

	if cfg.dumpTo != nil {
		return Dump(cfg.dumpTo, configShape, merged)
	}

	return nil
}

// resolveConfigTree builds and merges every layer for the declared config
// root: defaults, then file, then env, then CLI.
func resolveConfigTree(
	configShape *Shape,
	configField *Field,
	env []string,
	fileSources []FileSource,
	overrides []CLIOverride,
	cfg resolveOpts,
) (Value, error) {
	defaults := DefaultsToTree(configShape)

	fileTree := NewObject()

	for _, src := range fileSources {
		if cfg.adapter == nil {
			return Value{}, newDiagf(KindConfigParseError,
				"config_parse_error: %s: no FormatAdapter configured", src.Path)
		}

		parsed, err := FileToTree(cfg.adapter, src)
		if err != nil {
			return Value{}, wrapConfigParseError(src.Path, err)
		}

		fileTree, _ = Merge(fileTree, parsed)
	}

	envPrefix := ""
	if configField.Attr != nil {
		envPrefix = configField.Attr.EnvPrefix
	}

	envTree := EnvToTree(envPrefix, env)
	cliTree := CLIOverridesToTree(overrides)

	merged, overrideRecords := Merge(defaults, fileTree, envTree, cliTree)

	if cfg.onOverrides != nil && len(overrideRecords) > 0 {
		cfg.onOverrides(overrideRecords)
	}

	fileAndEnv, _ := Merge(fileTree, envTree)

	if unknown := UnknownKeys(configShape, fileAndEnv); len(unknown) > 0 {
		if cfg.strict {
			return Value{}, newDiagf(KindAmbiguousKey, "ambiguous_key: unrecognized configuration key `%s`",
				unknown[0]).withSuggestion(unknown[0], configDottedKeys(configShape, ""))
		}

		if cfg.onWarn != nil {
			for _, k := range unknown {
				cfg.onWarn("unrecognized configuration key `" + k + "`")
			}
		}
	}

	return merged, nil
}

func wrapConfigParseError(path string, err error) error {
	var fpe *FileParseError
	if errors.As(err, &fpe) {
		return newDiagf(KindConfigParseError, "config_parse_error: %s: %v", fpe.Path, fpe.Err).
			withSpan(Span{Start: fpe.Pos.Offset, End: fpe.Pos.Offset}, path)
	}

	return newDiagf(KindConfigParseError, "config_parse_error: %s: %v", path, err)
}

// DottedEnvPath is a small helper exposed for callers building their own
// env var names: PREFIX + "__" + strings.ToUpper(strings.Join(segments, "__")).
func DottedEnvPath(prefix string, segments ...string) string {
	return prefix + "__" + strings.ToUpper(strings.Join(segments, "__"))
}
