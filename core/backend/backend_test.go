package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name  string
		rdbms string
		kind  string
	}{
		{name: "oracle", rdbms: registry.RDBMSOracle, kind: "oracle"},
		{name: "sqlserver", rdbms: registry.RDBMSSQLServer, kind: "sqlserver"},
		{name: "postgresql", rdbms: registry.RDBMSPostgreSQL, kind: "postgresql"},
		{name: "mysql", rdbms: registry.RDBMSMySQL, kind: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := For(registry.Connection{Name: "dwh", RDBMS: tt.rdbms}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, adapter.Kind())
		})
	}
}

func TestForUnknownBackend(t *testing.T) {
	adapter, err := For(registry.Connection{Name: "dwh", RDBMS: "db2"}, nil)
	require.Error(t, err)
	assert.Nil(t, adapter)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownBackend))
	assert.Contains(t, err.Error(), `"db2"`)
	assert.Contains(t, err.Error(), `"dwh"`)
}

func TestAffected(t *testing.T) {
	rs := Affected(3)
	require.Equal(t, []string{AffectedColumn}, rs.Columns)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, int64(3), rs.Rows[0][AffectedColumn])

	count, ok := rs.AffectedCount()
	require.True(t, ok)
	assert.Equal(t, int64(3), count)
}

func TestAffectedCountOnRowResult(t *testing.T) {
	rs := &Rowset{
		Columns: []string{"ID"},
		Rows:    []map[string]any{{"ID": int64(1)}},
	}
	_, ok := rs.AffectedCount()
	assert.False(t, ok)
}

func TestRowsetEmptyAndFirst(t *testing.T) {
	var nilSet *Rowset
	assert.True(t, nilSet.Empty())

	empty := &Rowset{Columns: []string{"ID"}, Rows: []map[string]any{}}
	assert.True(t, empty.Empty())
	_, ok := empty.First()
	assert.False(t, ok)

	full := &Rowset{
		Columns: []string{"ID"},
		Rows:    []map[string]any{{"ID": int64(7)}, {"ID": int64(8)}},
	}
	assert.False(t, full.Empty())
	first, ok := full.First()
	require.True(t, ok)
	assert.Equal(t, int64(7), first["ID"])
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "bob", normalizeValue([]byte("bob")))
	assert.Equal(t, int64(5), normalizeValue(int64(5)))
	assert.Nil(t, normalizeValue(nil))
}
