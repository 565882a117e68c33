package facetargs

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coerceDB struct {
	Host     string `default:"localhost"`
	Port     int    `default:"5432"`
	Password string `sensitive:"true" default:"unset"`
}

type coerceApp struct {
	DB    coerceDB
	Debug bool `default:"false"`
}

func TestCoerceFillsFromMixedRepresentations(t *testing.T) {
	sh, err := IntrospectConfig(reflect.TypeOf(coerceApp{}))
	require.NoError(t, err)

	tree := NewObject()
	db := NewObject()
	// host arrives as a tree String (typical of a file/env leaf).
	db.Set("host", Value{Kind: ValString, Str: "dbhost"})
	// port arrives as a tree Integer already (also typical of a file leaf);
	// Coerce must accept it without re-parsing through the scalar parser.
	db.Set("port", Value{Kind: ValInteger, Integer: 9999})
	tree.Set("db", db)
	tree.Set("debug", Value{Kind: ValBool, Bool: true})

	var target coerceApp

	err = Coerce(reflect.ValueOf(&target).Elem(), sh, tree, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "dbhost", target.DB.Host)
	assert.Equal(t, 9999, target.DB.Port)
	assert.Equal(t, "unset", target.DB.Password) // fell back to its own default
	assert.True(t, target.Debug)
}

func TestCoerceMissingRequiredLeafErrors(t *testing.T) {
	type noDefault struct {
		Name string
	}

	sh, err := IntrospectConfig(reflect.TypeOf(noDefault{}))
	require.NoError(t, err)

	var target noDefault

	err = Coerce(reflect.ValueOf(&target).Elem(), sh, NewObject(), "", nil)
	require.Error(t, err)

	diag, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindMissingArgument, diag.Kind)
}

func TestCoerceRecordsProvenancePerLeaf(t *testing.T) {
	sh, err := IntrospectConfig(reflect.TypeOf(coerceApp{}))
	require.NoError(t, err)

	tree := NewObject()
	db := NewObject()
	db.Set("host", Value{Kind: ValString, Str: "dbhost", Prov: Provenance{Kind: ProvFile, Path: "cfg.yaml", Line: 3}})
	tree.Set("db", db)

	var target coerceApp

	prov := map[string]Provenance{}

	err = Coerce(reflect.ValueOf(&target).Elem(), sh, tree, "", prov)
	require.NoError(t, err)

	got, ok := prov["db.host"]
	require.True(t, ok)
	assert.Equal(t, ProvFile, got.Kind)
	assert.Equal(t, "cfg.yaml", got.Path)
}
