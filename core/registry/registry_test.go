package registry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

const sampleJSON = `[
  {
    "connection-name": "warehouse",
    "rdbms": "oracle",
    "active": true,
    "username": "etl",
    "password": "gAAAAABtoken",
    "server": "ora01.internal",
    "port": "1521",
    "service-name": "WHPRD"
  },
  {
    "connection-name": "reporting",
    "rdbms": "postgresql",
    "active": true,
    "username": "reports",
    "password": "gAAAAABtoken",
    "server": "pg01.internal",
    "port": 5432,
    "database-name": "reporting"
  },
  {
    "connection-name": "legacy",
    "rdbms": "mysql",
    "active": false,
    "username": "app",
    "password": "gAAAAABtoken",
    "server": "my01.internal",
    "port": 3306,
    "database-name": "legacy"
  }
]`

func writeRegistry(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeRegistry(t, "database-config.json", sampleJSON)

	reg, err := registry.Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, reg.Path())
	assert.Len(t, reg.Connections(), 3)
	assert.Len(t, reg.Active(), 2)
}

func TestLoadYAML(t *testing.T) {
	path := writeRegistry(t, "database-config.yaml", `
- connection-name: warehouse
  rdbms: oracle
  active: true
  username: etl
  password: gAAAAABtoken
  server: ora01.internal
  port: 1521
  service-name: WHPRD
- connection-name: reporting
  rdbms: postgresql
  active: true
  server: pg01.internal
  port: "5432"
  database-name: reporting
`)

	reg, err := registry.Load(path)
	require.NoError(t, err)
	require.Len(t, reg.Connections(), 2)

	warehouse, err := reg.Lookup("warehouse")
	require.NoError(t, err)
	assert.Equal(t, registry.Port("1521"), warehouse.Port)

	reporting, err := reg.Lookup("reporting")
	require.NoError(t, err)
	assert.Equal(t, registry.Port("5432"), reporting.Port)
}

func TestPortForms(t *testing.T) {
	path := writeRegistry(t, "config.json", sampleJSON)
	reg, err := registry.Load(path)
	require.NoError(t, err)

	warehouse, err := reg.Lookup("warehouse")
	require.NoError(t, err)
	assert.Equal(t, "1521", warehouse.Port.String())

	reporting, err := reg.Lookup("reporting")
	require.NoError(t, err)
	n, err := reporting.Port.Int()
	require.NoError(t, err)
	assert.Equal(t, 5432, n)

	assert.Equal(t, 1433, registry.Port("").IntOr(1433))
	assert.Equal(t, 1433, registry.Port("junk").IntOr(1433))
}

func TestLookup(t *testing.T) {
	path := writeRegistry(t, "config.json", sampleJSON)
	reg, err := registry.Load(path)
	require.NoError(t, err)

	t.Run("active connection resolves", func(t *testing.T) {
		conn, err := reg.Lookup("warehouse")
		require.NoError(t, err)
		assert.Equal(t, "oracle", conn.RDBMS)
		assert.Equal(t, "etl", conn.Username)
	})

	t.Run("unknown name reports not found", func(t *testing.T) {
		_, err := reg.Lookup("nope")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("inactive entry reports not active", func(t *testing.T) {
		_, err := reg.Lookup("legacy")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "not active")
	})
}

func TestLookupDuplicates(t *testing.T) {
	t.Run("active entry wins over inactive twin", func(t *testing.T) {
		path := writeRegistry(t, "config.json", `[
  {"connection-name": "orders", "rdbms": "mysql", "active": false, "server": "old.internal"},
  {"connection-name": "orders", "rdbms": "postgresql", "active": true, "server": "new.internal"}
]`)
		reg, err := registry.Load(path)
		require.NoError(t, err)

		conn, err := reg.Lookup("orders")
		require.NoError(t, err)
		assert.Equal(t, "postgresql", conn.RDBMS)
		assert.Equal(t, "new.internal", conn.Server)
	})

	t.Run("two active twins are rejected", func(t *testing.T) {
		path := writeRegistry(t, "config.json", `[
  {"connection-name": "orders", "rdbms": "mysql", "active": true, "server": "a.internal"},
  {"connection-name": "orders", "rdbms": "postgresql", "active": true, "server": "b.internal"}
]`)
		reg, err := registry.Load(path)
		require.NoError(t, err)

		_, err = reg.Lookup("orders")
		assert.True(t, errors.Is(err, errors.ErrCodeConnectionAmbiguous))
	})
}

func TestLoadFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := registry.Load(filepath.Join(t.TempDir(), "missing.json"))
		assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeRegistry(t, "config.json", `{"not": "an array"}`)
		_, err := registry.Load(path)
		assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
	})

	t.Run("entry missing required fields", func(t *testing.T) {
		path := writeRegistry(t, "config.json", `[{"connection-name": "x", "active": true}]`)
		_, err := registry.Load(path)
		assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
	})
}

func TestUnknownRDBMSAllowedAtLoad(t *testing.T) {
	path := writeRegistry(t, "config.json", `[
  {"connection-name": "weird", "rdbms": "dbase", "active": true, "server": "x"}
]`)
	reg, err := registry.Load(path)
	require.NoError(t, err)

	conn, err := reg.Lookup("weird")
	require.NoError(t, err)
	assert.Equal(t, "dbase", conn.RDBMS)
}

func TestEncryptPasswords(t *testing.T) {
	path := writeRegistry(t, "config.json", sampleJSON)
	reg, err := registry.Load(path)
	require.NoError(t, err)

	encrypted, err := reg.EncryptPasswords(func(plaintext string) (string, error) {
		return "enc(" + plaintext + ")", nil
	})
	require.NoError(t, err)

	for _, conn := range encrypted.Connections() {
		assert.Equal(t, "enc(gAAAAABtoken)", conn.Password)
	}
	// Source registry is untouched.
	for _, conn := range reg.Connections() {
		assert.Equal(t, "gAAAAABtoken", conn.Password)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := writeRegistry(t, "config.json", sampleJSON)
	reg, err := registry.Load(path)
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, reg.WriteFile(outPath))

	reloaded, err := registry.Load(outPath)
	require.NoError(t, err)
	assert.Equal(t, reg.Connections(), reloaded.Connections())
}

func TestEncryptedSiblingPath(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"config/database-config-plaintext.json", "config/database-config.json"},
		{"registry-plaintext.yaml", "registry.yaml"},
		{"config/database-config.json", "config/database-config.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, registry.EncryptedSiblingPath(tt.in))
	}
}

func TestWatchReload(t *testing.T) {
	path := writeRegistry(t, "config.json", sampleJSON)

	reloaded := make(chan *registry.Registry, 1)
	watcher, err := registry.Watch(path, func(reg *registry.Registry) {
		select {
		case reloaded <- reg:
		default:
		}
	})
	require.NoError(t, err)
	defer watcher.Close()

	assert.Len(t, watcher.Registry().Connections(), 3)

	updated := `[{"connection-name": "solo", "rdbms": "mysql", "active": true, "server": "my01"}]`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))

	select {
	case reg := <-reloaded:
		assert.Len(t, reg.Connections(), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("registry was not reloaded after file change")
	}

	assert.Len(t, watcher.Registry().Connections(), 1)
}
