package backend

import (
	"context"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

type sqlserverAdapter struct {
	details registry.Connection
	secrets Decryptor
}

func (a *sqlserverAdapter) Kind() string { return registry.RDBMSSQLServer }

// Open dials a SQL Server session using go-mssqldb and pins a single
// connection.
func (a *sqlserverAdapter) Open(ctx context.Context) (Conn, error) {
	password, err := a.secrets.Decrypt(a.details.Password)
	if err != nil {
		return nil, err
	}

	log := logging.New("backend:sqlserver")
	log.Debugf("Opening SQL Server connection %q", a.details.Name)

	session, err := openPinned(ctx, "sqlserver", sqlserverURL(a.details, password), a.details.Name)
	if err != nil {
		return nil, err
	}

	log.Debugf("SQL Server connection %q established", a.details.Name)
	return &sqlserverConn{sqlSession: session}, nil
}

// sqlserverURL builds a go-mssqldb connection URL. When the registry entry
// carries no port the driver default of 1433 applies.
func sqlserverURL(details registry.Connection, password string) string {
	host := details.Server
	if port := details.Port.IntOr(0); port > 0 {
		host = net.JoinHostPort(details.Server, strconv.Itoa(port))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(details.Username, password),
		Host:     host,
		RawQuery: url.Values{"database": {details.Database}}.Encode(),
	}
	return u.String()
}

// sqlserverConn runs statements on a pinned SQL Server session. Every
// statement goes through Query; ones that produce no result set come back
// with zero columns, and @@ROWCOUNT supplies their tally.
type sqlserverConn struct {
	*sqlSession
}

func (c *sqlserverConn) Execute(ctx context.Context, statement string) (*Rowset, error) {
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
	if len(result.Columns) > 0 {
		return result, nil
	}

	// No result set, so the statement was DML or DDL. @@ROWCOUNT still
	// holds its tally because the lookup runs next on the same session.
	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT @@ROWCOUNT").Scan(&count); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to read rowcount", err)
	}
	return Affected(count), nil
}
