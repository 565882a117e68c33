package facetargs

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dumpDB struct {
	Host     string `default:"localhost"`
	Password string `sensitive:"true" default:"hunter2hunter2"`
}

type dumpApp struct {
	DB dumpDB
}

func TestDumpRedactsSensitiveFields(t *testing.T) {
	sh, err := IntrospectConfig(reflect.TypeOf(dumpApp{}))
	require.NoError(t, err)

	tree := DefaultsToTree(sh)

	var buf strings.Builder

	require.NoError(t, Dump(&buf, sh, tree))

	out := buf.String()
	assert.Contains(t, out, "db.host")
	assert.Contains(t, out, "localhost")
	assert.Contains(t, out, "db.password")
	assert.NotContains(t, out, "hunter2hunter2")
	assert.Contains(t, out, "[REDACTED")
}

func TestMaybeTruncateMiddleEllipsis(t *testing.T) {
	long := strings.Repeat("x", 80)

	truncated, did := maybeTruncate(long)
	assert.True(t, did)
	assert.Less(t, len(truncated), len(long))
	assert.Contains(t, truncated, "...")
}

func TestMaybeTruncateRespectsDisableEnvVar(t *testing.T) {
	t.Setenv(TruncateDisableEnvVar, "1")

	long := strings.Repeat("x", 80)

	_, did := maybeTruncate(long)
	assert.False(t, did)
}
