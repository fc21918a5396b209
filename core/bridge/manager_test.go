package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

const managerRegistry = `[
  {
    "connection-name": "ora-dwh",
    "rdbms": "oracle",
    "active": true,
    "username": "loader",
    "password": "tok",
    "server": "db1",
    "port": "1521",
    "service-name": "DWH"
  },
  {
    "connection-name": "pg-app",
    "rdbms": "postgresql",
    "active": true,
    "username": "app",
    "password": "tok",
    "server": "db2",
    "database-name": "app"
  },
  {
    "connection-name": "legacy",
    "rdbms": "mysql",
    "active": false,
    "username": "app",
    "password": "tok",
    "server": "db3",
    "port": 3306,
    "database-name": "legacy"
  }
]`

type passthroughDecryptor struct{}

func (passthroughDecryptor) Decrypt(token string) (string, error) { return token, nil }

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	reg, err := registry.Parse([]byte(managerRegistry), "database-config.json")
	require.NoError(t, err)
	return NewManager(reg, passthroughDecryptor{})
}

func TestManagerGetCachesBridges(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Get("ora-dwh")
	require.NoError(t, err)
	assert.Equal(t, "oracle", first.Kind())

	second, err := m.Get("ora-dwh")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Count())
}

func TestManagerGetUnknownConnection(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestManagerGetInactiveConnection(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get("legacy")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestManagerNames(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, []string{"ora-dwh", "pg-app"}, m.Names())
}

func TestManagerStatusAll(t *testing.T) {
	m := newTestManager(t)

	// Nothing dialed yet: every active connection reports down.
	statuses := m.StatusAll(context.Background())
	assert.Equal(t, map[string]bool{"ora-dwh": false, "pg-app": false}, statuses)

	b, err := m.Get("ora-dwh")
	require.NoError(t, err)
	conn := &fakeConn{result: twoRows()}
	b.conn = conn

	statuses = m.StatusAll(context.Background())
	assert.True(t, statuses["ora-dwh"])
	assert.False(t, statuses["pg-app"])
}

func TestManagerCloseAll(t *testing.T) {
	m := newTestManager(t)

	b, err := m.Get("ora-dwh")
	require.NoError(t, err)
	conn := &fakeConn{result: twoRows()}
	b.conn = conn

	require.NoError(t, m.CloseAll())
	assert.True(t, conn.closed)

	// Bridges survive a close and stay addressable.
	again, err := m.Get("ora-dwh")
	require.NoError(t, err)
	assert.Same(t, b, again)
}

func TestManagerCloseAllCollectsErrors(t *testing.T) {
	m := newTestManager(t)

	b, err := m.Get("ora-dwh")
	require.NoError(t, err)
	b.conn = &fakeConn{closeErr: assert.AnError}

	err = m.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ora-dwh"`)
}

func TestManagerReload(t *testing.T) {
	m := newTestManager(t)

	b, err := m.Get("ora-dwh")
	require.NoError(t, err)
	conn := &fakeConn{result: twoRows()}
	b.conn = conn

	fresh, err := registry.Parse([]byte(managerRegistry), "database-config.json")
	require.NoError(t, err)
	m.Reload(fresh)

	assert.True(t, conn.closed)
	assert.Equal(t, 0, m.Count())

	rebuilt, err := m.Get("ora-dwh")
	require.NoError(t, err)
	assert.NotSame(t, b, rebuilt)
}
