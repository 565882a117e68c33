package facetargs_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	facetargs "github.com/facet-args/facet-args"
	"github.com/facet-args/facet-args/internal/configfmt"
)

type simpleArgs struct {
	Name    string   `long:"name" short:"n" default:"anon"`
	Verbose bool     `long:"verbose" short:"v"`
	Count   int      `long:"count" default:"1"`
	Tags    []string `long:"tag"`
	Target  string   `positional:"true"`
}

func TestFromArgsPopulatesEveryFieldKind(t *testing.T) {
	var args simpleArgs

	err := facetargs.FromArgs(&args, []string{"--name=bob", "-v", "--tag=a", "--tag=b", "targetval"})
	require.NoError(t, err)

	assert.Equal(t, "bob", args.Name)
	assert.True(t, args.Verbose)
	assert.Equal(t, 1, args.Count) // fell back to default, never supplied
	assert.Equal(t, []string{"a", "b"}, args.Tags)
	assert.Equal(t, "targetval", args.Target)
}

func TestFromArgsMissingPositionalIsMissingArgument(t *testing.T) {
	var args simpleArgs

	err := facetargs.FromArgs(&args, []string{"--name=bob"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindMissingArgument, diag.Kind)
}

func TestFromArgsUnknownFlagSuggestsClosest(t *testing.T) {
	var args simpleArgs

	err := facetargs.FromArgs(&args, []string{"--verbos", "x"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindUnknownLongFlag, diag.Kind)
	assert.Equal(t, "verbose", diag.Suggestion)
}

type startCmd struct {
	Name string `positional:"true"`
}

type stopCmd struct {
	Force bool `long:"force"`
}

type action struct {
	Start *startCmd `variant:"start"`
	Stop  *stopCmd  `variant:"stop"`
}

type rootCmd struct {
	Verbose bool    `long:"verbose" short:"v"`
	Action  *action `subcommand:"true"`
}

func TestFromArgsResolvesSubcommandVariant(t *testing.T) {
	var root rootCmd

	err := facetargs.FromArgs(&root, []string{"-v", "start", "myserver"})
	require.NoError(t, err)

	assert.True(t, root.Verbose)
	require.NotNil(t, root.Action)
	require.NotNil(t, root.Action.Start)
	assert.Equal(t, "myserver", root.Action.Start.Name)
	assert.Nil(t, root.Action.Stop)
}

func TestFromArgsUnresolvedSubcommandIsMissingSubcommand(t *testing.T) {
	var root rootCmd

	err := facetargs.FromArgs(&root, []string{"-v"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindMissingSubcommand, diag.Kind)
}

func TestFromArgsUnknownSubcommandSuggestsClosest(t *testing.T) {
	var root rootCmd

	err := facetargs.FromArgs(&root, []string{"stahrt", "x"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindUnknownSubcommand, diag.Kind)
	assert.Equal(t, "start", diag.Suggestion)
}

type choiceArgs struct {
	Mode string `long:"mode" choice:"fast" choice:"slow" default:"fast"`
}

func TestFromArgsRejectsValueOutsideChoices(t *testing.T) {
	var args choiceArgs

	err := facetargs.FromArgs(&args, []string{"--mode=turbo"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindReflectError, diag.Kind)
}

func TestFromArgsAcceptsValueWithinChoices(t *testing.T) {
	var args choiceArgs

	err := facetargs.FromArgs(&args, []string{"--mode=slow"})
	require.NoError(t, err)
	assert.Equal(t, "slow", args.Mode)
}

type validateArgs struct {
	Port int `long:"port" validate:"gte=1,lte=65535"`
}

func TestFromArgsValidateTagRejectsOutOfRange(t *testing.T) {
	var args validateArgs

	err := facetargs.FromArgs(&args, []string{"--port=99999"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindInvalidValue, diag.Kind)
}

func TestFromArgsValidateTagAcceptsInRange(t *testing.T) {
	var args validateArgs

	err := facetargs.FromArgs(&args, []string{"--port=8080"})
	require.NoError(t, err)
	assert.Equal(t, 8080, args.Port)
}

type layeredDB struct {
	Host string `default:"localhost"`
	Port int    `default:"5432"`
}

type layeredAppConfig struct {
	DB    layeredDB
	Debug bool `default:"false"`
}

type layeredRoot struct {
	Verbose bool             `long:"verbose" short:"v"`
	Config  layeredAppConfig `config:"true" env-prefix:"APP"`
}

func TestFromArgsLayeredMergesDefaultsFileEnvCLI(t *testing.T) {
	var root layeredRoot

	fileSources := []facetargs.FileSource{{
		Path: "app.yaml",
		Text: "db:\n  host: filehost\n  port: 1234\ndebug: true\n",
	}}

	env := []string{"APP__DB__HOST=envhost"}

	err := facetargs.FromArgsLayered(
		&root,
		[]string{"-v", "--config.db.port=9999"},
		env,
		fileSources,
		facetargs.WithFormatAdapter(configfmt.New()),
	)
	require.NoError(t, err)

	assert.True(t, root.Verbose)
	assert.Equal(t, "envhost", root.Config.DB.Host) // env outranks file
	assert.Equal(t, 9999, root.Config.DB.Port)       // CLI outranks everything
	assert.True(t, root.Config.Debug)                // only the file layer set it
}

func TestFromArgsLayeredBareConfigFlagReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/app.yaml"

	require.NoError(t, os.WriteFile(path, []byte("db:\n  host: filehost\n  port: 1234\n"), 0o600))

	var root layeredRoot

	err := facetargs.FromArgsLayered(
		&root,
		[]string{"--config", path},
		nil,
		nil,
		facetargs.WithFormatAdapter(configfmt.New()),
	)
	require.NoError(t, err)

	assert.Equal(t, "filehost", root.Config.DB.Host)
	assert.Equal(t, 1234, root.Config.DB.Port)
}

func TestFromArgsLayeredStrictModeRejectsUnknownKey(t *testing.T) {
	fileSources := []facetargs.FileSource{{
		Path: "app.yaml",
		Text: "db:\n  host: filehost\n  region: us-east\n",
	}}

	var root layeredRoot

	err := facetargs.FromArgsLayered(&root, nil, nil, fileSources, facetargs.WithFormatAdapter(configfmt.New()), facetargs.WithStrictMode(true))
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindAmbiguousKey, diag.Kind)
}

func TestFromArgsLayeredLenientModeWarnsInsteadOfFailing(t *testing.T) {
	fileSources := []facetargs.FileSource{{
		Path: "app.yaml",
		Text: "db:\n  host: filehost\n  region: us-east\n",
	}}

	var warnings []string

	var root layeredRoot

	err := facetargs.FromArgsLayered(&root, nil, nil, fileSources,
		facetargs.WithFormatAdapter(configfmt.New()),
		facetargs.WithWarningHandler(func(msg string) { warnings = append(warnings, msg) }),
	)
	require.NoError(t, err)
	assert.Equal(t, "filehost", root.Config.DB.Host)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "db.region")
}

type buildArgs struct {
	Verbose bool    `long:"verbose" short:"v"`
	Jobs    *int    `long:"jobs" short:"j"`
	Input   string  `positional:"true"`
	Output  *string `positional:"true"`
}

func TestFromArgsShortFlagsAndPositionalSlots(t *testing.T) {
	var args buildArgs

	err := facetargs.FromArgs(&args, []string{"-v", "-j", "4", "input.txt", "output.txt"})
	require.NoError(t, err)

	assert.True(t, args.Verbose)
	require.NotNil(t, args.Jobs)
	assert.Equal(t, 4, *args.Jobs)
	assert.Equal(t, "input.txt", args.Input)
	require.NotNil(t, args.Output)
	assert.Equal(t, "output.txt", *args.Output)
}

func TestFromArgsAttachedShortValue(t *testing.T) {
	var args buildArgs

	err := facetargs.FromArgs(&args, []string{"-j4", "input.txt"})
	require.NoError(t, err)

	assert.False(t, args.Verbose) // never supplied, finalizes to false
	require.NotNil(t, args.Jobs)
	assert.Equal(t, 4, *args.Jobs)
	assert.Equal(t, "input.txt", args.Input)
	assert.Nil(t, args.Output)
}

type remoteAddCmd struct {
	Name string `positional:"true"`
	URL  string `positional:"true"`
}

type remoteRmCmd struct {
	Name string `positional:"true"`
}

type remoteLsCmd struct {
	Verbose bool `long:"verbose" short:"v"`
}

type remoteAction struct {
	Add *remoteAddCmd `variant:"add"`
	Rm  *remoteRmCmd  `variant:"rm"`
	Ls  *remoteLsCmd  `variant:"ls"`
}

type remoteCmd struct {
	Action *remoteAction `subcommand:"true"`
}

type cloneCmd struct {
	URL       string  `positional:"true"`
	Directory *string `positional:"true"`
	Branch    *string `long:"branch" short:"b"`
	Depth     *int    `long:"depth"`
}

type gitAction struct {
	Clone  *cloneCmd  `variant:"clone"`
	Remote *remoteCmd `variant:"remote"`
}

type gitCmd struct {
	Version bool       `long:"version"`
	Command *gitAction `subcommand:"true"`
}

func TestFromArgsNestedSubcommandDescent(t *testing.T) {
	var git gitCmd

	err := facetargs.FromArgs(&git, []string{"remote", "add", "origin", "https://github.com/u/r"})
	require.NoError(t, err)

	assert.False(t, git.Version)
	require.NotNil(t, git.Command)
	require.NotNil(t, git.Command.Remote)
	require.NotNil(t, git.Command.Remote.Action)
	require.NotNil(t, git.Command.Remote.Action.Add)
	assert.Equal(t, "origin", git.Command.Remote.Action.Add.Name)
	assert.Equal(t, "https://github.com/u/r", git.Command.Remote.Action.Add.URL)
	assert.Nil(t, git.Command.Clone)
	assert.Nil(t, git.Command.Remote.Action.Rm)
}

func TestFromArgsTripleDashListsAllOptions(t *testing.T) {
	var args simpleArgs

	err := facetargs.FromArgs(&args, []string{"---verbose", "in.txt"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindUnknownLongFlag, diag.Kind)
	assert.Equal(t, "---verbose", diag.Offending)
	assert.Equal(t, facetargs.Span{Start: 0, End: 10}, diag.Span)
	assert.Empty(t, diag.Suggestion) // too far from every candidate
	assert.Contains(t, diag.Help, "available:")
}

func TestFromArgsHelpFlagRendersOptions(t *testing.T) {
	var args simpleArgs

	err := facetargs.FromArgs(&args, []string{"--help"})
	require.Error(t, err)

	diag, ok := facetargs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, facetargs.KindHelp, diag.Kind)
	assert.Contains(t, diag.Message, "--name")
	assert.Contains(t, diag.Message, "--verbose")
}

func TestFromArgsParseErrorLeavesTargetZeroed(t *testing.T) {
	var args simpleArgs

	err := facetargs.FromArgs(&args, []string{"--name=bob", "--bogus-flag-xyzzy"})
	require.Error(t, err)
	assert.Equal(t, simpleArgs{}, args)
}

type provServer struct {
	Host string `default:"127.0.0.1"`
	Port int    `default:"8080"`
}

type provEmail struct {
	Password       string `sensitive:"true" default:"hunter2hunter2"`
	WelcomeMessage string `default:"hello"`
}

type provConfig struct {
	Server provServer
	Email  provEmail
}

type provRoot struct {
	DumpConfig bool       `long:"dump-config"`
	Config     provConfig `config:"true" env-prefix:"MYAPP"`
}

func TestFromArgsLayeredDumpShowsProvenanceAndRedacts(t *testing.T) {
	fileSources := []facetargs.FileSource{{
		Path: "config.json",
		Text: "{\"server\": {\"host\": \"0.0.0.0\"}}",
	}}

	env := []string{"MYAPP__SERVER__PORT=9000"}

	var (
		root     provRoot
		dump     strings.Builder
		recorded []facetargs.Override
	)

	err := facetargs.FromArgsLayered(
		&root,
		[]string{"--dump-config"},
		env,
		fileSources,
		facetargs.WithFormatAdapter(configfmt.New()),
		facetargs.WithDumpTo(&dump),
		facetargs.WithOverrideRecorder(func(o []facetargs.Override) { recorded = o }),
	)
	require.NoError(t, err)

	assert.True(t, root.DumpConfig)
	assert.Equal(t, "0.0.0.0", root.Config.Server.Host)
	assert.Equal(t, 9000, root.Config.Server.Port)

	out := dump.String()
	assert.Contains(t, out, "server.port")
	assert.Contains(t, out, "9000")
	assert.Contains(t, out, "$MYAPP__SERVER__PORT")
	assert.Contains(t, out, "config.json:")
	assert.Contains(t, out, "[REDACTED")
	assert.NotContains(t, out, "hunter2hunter2")

	var sawPortOverride bool

	for _, o := range recorded {
		if o.Path == "server.port" && o.Winner.Kind == facetargs.ProvEnv && o.Loser.Kind == facetargs.ProvDefault {
			sawPortOverride = true
		}
	}

	assert.True(t, sawPortOverride, "expected an facetargs.Override recording env displacing the default port")
}
