package backend

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

const (
	defaultMySQLPort    = 3306
	mysqlConnectTimeout = 20 * time.Second
)

type mysqlAdapter struct {
	details registry.Connection
	secrets Decryptor
}

func (a *mysqlAdapter) Kind() string { return registry.RDBMSMySQL }

// Open dials a MySQL session using go-sql-driver and pins a single
// connection.
func (a *mysqlAdapter) Open(ctx context.Context) (Conn, error) {
	password, err := a.secrets.Decrypt(a.details.Password)
	if err != nil {
		return nil, err
	}

	log := logging.New("backend:mysql")
	log.Debugf("Opening MySQL connection %q", a.details.Name)

	session, err := openPinned(ctx, "mysql", mysqlDSN(a.details, password), a.details.Name)
	if err != nil {
		return nil, err
	}

	log.Debugf("MySQL connection %q established", a.details.Name)
	return &mysqlConn{sqlSession: session}, nil
}

// mysqlDSN builds a go-sql-driver DSN. ParseTime makes temporal columns
// scan as time.Time instead of raw bytes.
func mysqlDSN(details registry.Connection, password string) string {
	cfg := mysql.NewConfig()
	cfg.User = details.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(details.Server, strconv.Itoa(details.Port.IntOr(defaultMySQLPort)))
	cfg.DBName = details.Database
	cfg.Timeout = mysqlConnectTimeout
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// mysqlConn runs statements on a pinned MySQL session. Every statement goes
// through Query; when no rows come back, ROW_COUNT() supplies the tally.
type mysqlConn struct {
	*sqlSession
}

func (c *mysqlConn) Execute(ctx context.Context, statement string) (*Rowset, error) {
	tx, err := c.ensureTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, statement)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to execute statement", err)
	}
	result, err := scanRows(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(result.Rows) > 0 {
		return result, nil
	}

	// ROW_COUNT() reports the previous statement's tally on this session,
	// and -1 after a SELECT, so empty result sets read as zero.
	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT ROW_COUNT()").Scan(&count); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to read rowcount", err)
	}
	if count < 0 {
		count = 0
	}
	return Affected(count), nil
}
