package facetargs

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvToTreeMapsDoubleUnderscoreSegments(t *testing.T) {
	env := []string{
		"APP__DB__HOST=dbhost",
		"APP__DB__PORT=5433",
		"OTHER__IGNORED=1",
	}

	tree := EnvToTree("APP", env)

	host, ok := tree.Get("db")
	require.True(t, ok)

	field, ok := host.Get("host")
	require.True(t, ok)
	assert.Equal(t, "dbhost", field.Str)
	assert.Equal(t, ProvEnv, field.Prov.Kind)
	assert.Equal(t, "APP__DB__HOST", field.Prov.VarName)

	portField, ok := host.Get("port")
	require.True(t, ok)
	assert.Equal(t, "5433", portField.Str)
}

func TestCLIOverridesToTreeInfersScalarKind(t *testing.T) {
	tree := CLIOverridesToTree([]CLIOverride{
		{Dotted: "debug", Raw: "true"},
		{Dotted: "db.port", Raw: "9999"},
		{Dotted: "rate", Raw: "0.5"},
		{Dotted: "name", Raw: "bob"},
	})

	debug, ok := tree.Get("debug")
	require.True(t, ok)
	assert.Equal(t, ValBool, debug.Kind)
	assert.True(t, debug.Bool)

	db, ok := tree.Get("db")
	require.True(t, ok)
	port, ok := db.Get("port")
	require.True(t, ok)
	assert.Equal(t, ValInteger, port.Kind)
	assert.EqualValues(t, 9999, port.Integer)

	rate, ok := tree.Get("rate")
	require.True(t, ok)
	assert.Equal(t, ValFloat, rate.Kind)

	name, ok := tree.Get("name")
	require.True(t, ok)
	assert.Equal(t, ValString, name.Kind)
	assert.Equal(t, "bob", name.Str)
}

func TestMergeAscendingPriorityLaterWins(t *testing.T) {
	defaults := NewObject()
	defaults.Set("host", Value{Kind: ValString, Str: "localhost", Prov: Provenance{Kind: ProvDefault}})
	defaults.Set("port", Value{Kind: ValInteger, Integer: 80, Prov: Provenance{Kind: ProvDefault}})

	file := NewObject()
	file.Set("host", Value{Kind: ValString, Str: "filehost", Prov: Provenance{Kind: ProvFile, Path: "cfg.yaml"}})

	cli := NewObject()
	cli.Set("port", Value{Kind: ValInteger, Integer: 9999, Prov: Provenance{Kind: ProvCLI, ArgText: "port=9999"}})

	merged, overrides := Merge(defaults, file, cli)

	host, ok := merged.Get("host")
	require.True(t, ok)
	assert.Equal(t, "filehost", host.Str)

	port, ok := merged.Get("port")
	require.True(t, ok)
	assert.EqualValues(t, 9999, port.Integer)

	require.Len(t, overrides, 2)

	var sawHost, sawPort bool

	for _, o := range overrides {
		switch o.Path {
		case "host":
			sawHost = true
			assert.Equal(t, ProvDefault, o.Loser.Kind)
			assert.Equal(t, ProvFile, o.Winner.Kind)
		case "port":
			sawPort = true
			assert.Equal(t, ProvDefault, o.Loser.Kind)
			assert.Equal(t, ProvCLI, o.Winner.Kind)
		}
	}

	assert.True(t, sawHost)
	assert.True(t, sawPort)
}

func TestMergeRecursesIntoNestedObjects(t *testing.T) {
	a := NewObject()
	dbA := NewObject()
	dbA.Set("host", Value{Kind: ValString, Str: "a-host"})
	dbA.Set("port", Value{Kind: ValInteger, Integer: 1})
	a.Set("db", dbA)

	b := NewObject()
	dbB := NewObject()
	dbB.Set("port", Value{Kind: ValInteger, Integer: 2})
	b.Set("db", dbB)

	merged, _ := Merge(a, b)

	db, ok := merged.Get("db")
	require.True(t, ok)

	host, ok := db.Get("host")
	require.True(t, ok)
	assert.Equal(t, "a-host", host.Str) // untouched by b, survives merge

	port, ok := db.Get("port")
	require.True(t, ok)
	assert.EqualValues(t, 2, port.Integer)
}

type layerDB struct {
	Host string `default:"localhost"`
	Port int    `default:"8080"`
}

type layerConfig struct {
	DB    layerDB
	Debug bool `default:"false"`
}

func TestDefaultsToTreeRecursesIntoNestedStructs(t *testing.T) {
	sh, err := IntrospectConfig(reflect.TypeOf(layerConfig{}))
	require.NoError(t, err)

	tree := DefaultsToTree(sh)

	db, ok := tree.Get("db")
	require.True(t, ok)

	host, ok := db.Get("host")
	require.True(t, ok)
	assert.Equal(t, "localhost", host.Str)

	debug, ok := tree.Get("debug")
	require.True(t, ok)
	assert.Equal(t, "false", debug.Str)
}

func TestUnknownKeysDetectsPathsAbsentFromShape(t *testing.T) {
	sh, err := IntrospectConfig(reflect.TypeOf(layerConfig{}))
	require.NoError(t, err)

	tree := NewObject()
	db := NewObject()
	db.Set("host", Value{Kind: ValString, Str: "x"})
	db.Set("region", Value{Kind: ValString, Str: "us-east"}) // not in layerDB
	tree.Set("db", db)

	unknown := UnknownKeys(sh, tree)
	require.Len(t, unknown, 1)
	assert.Equal(t, "db.region", unknown[0])
}
