package backend

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/registry"
)

func TestMySQLDSN(t *testing.T) {
	details := registry.Connection{
		Name:     "inventory",
		Username: "app",
		Server:   "mysql01",
		Port:     registry.Port("3307"),
		Database: "stock",
	}

	cfg, err := mysql.ParseDSN(mysqlDSN(details, "secret"))
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "mysql01:3307", cfg.Addr)
	assert.Equal(t, "stock", cfg.DBName)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.True(t, cfg.ParseTime)
}

func TestMySQLDSNDefaultPort(t *testing.T) {
	details := registry.Connection{
		Name:     "inventory",
		Username: "app",
		Server:   "mysql01",
		Database: "stock",
	}

	cfg, err := mysql.ParseDSN(mysqlDSN(details, "secret"))
	require.NoError(t, err)
	assert.Equal(t, "mysql01:3306", cfg.Addr)
}

func TestMySQLExecuteQuery(t *testing.T) {
	session, mock := newMockSession(t)
	conn := &mysqlConn{sqlSession: session}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM people").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "amy"))

	result, err := conn.Execute(context.Background(), "SELECT id, name FROM people")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "amy", result.Rows[0]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLExecuteDML(t *testing.T) {
	session, mock := newMockSession(t)
	conn := &mysqlConn{sqlSession: session}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO people VALUES (1, 'amy')").WillReturnRows(
		sqlmock.NewRows([]string{}))
	mock.ExpectQuery("SELECT ROW_COUNT()").WillReturnRows(
		sqlmock.NewRows([]string{"rc"}).AddRow(int64(1)))

	result, err := conn.Execute(context.Background(), "INSERT INTO people VALUES (1, 'amy')")
	require.NoError(t, err)

	count, ok := result.AffectedCount()
	require.True(t, ok)
	assert.Equal(t, int64(1), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLExecuteQueryNoRows(t *testing.T) {
	session, mock := newMockSession(t)
	conn := &mysqlConn{sqlSession: session}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM people WHERE 1 = 0").WillReturnRows(
		sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT ROW_COUNT()").WillReturnRows(
		sqlmock.NewRows([]string{"rc"}).AddRow(int64(-1)))

	result, err := conn.Execute(context.Background(), "SELECT id FROM people WHERE 1 = 0")
	require.NoError(t, err)

	// An empty result set falls back to the tally, and the -1 that
	// ROW_COUNT() reports after a SELECT clamps to zero.
	count, ok := result.AffectedCount()
	require.True(t, ok)
	assert.Equal(t, int64(0), count)
	require.NoError(t, mock.ExpectationsWereMet())
}
