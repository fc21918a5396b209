package backend

import (
	"context"
	goerrors "errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

type postgresAdapter struct {
	details registry.Connection
	secrets Decryptor
}

func (a *postgresAdapter) Kind() string { return registry.RDBMSPostgreSQL }

// Open dials a PostgreSQL session using pgx/v5. pgx is used natively here
// rather than through database/sql because result classification needs the
// command tag, which the database/sql surface does not expose.
func (a *postgresAdapter) Open(ctx context.Context) (Conn, error) {
	password, err := a.secrets.Decrypt(a.details.Password)
	if err != nil {
		return nil, err
	}

	log := logging.New("backend:postgres")
	log.Debugf("Opening PostgreSQL connection %q", a.details.Name)

	conn, err := pgx.Connect(ctx, postgresURL(a.details, password))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConnectionFailed, err,
			"failed to connect to %q", a.details.Name)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, errors.Wrapf(errors.ErrCodeConnectionFailed, err,
			"failed to ping %q", a.details.Name)
	}

	log.Debugf("PostgreSQL connection %q established", a.details.Name)
	return &postgresConn{conn: conn}, nil
}

// postgresURL builds a pgx connection URL. When the registry entry carries
// no port the driver default of 5432 applies.
func postgresURL(details registry.Connection, password string) string {
	host := details.Server
	if port := details.Port.IntOr(0); port > 0 {
		host = net.JoinHostPort(details.Server, strconv.Itoa(port))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(details.Username, password),
		Host:   host,
		Path:   "/" + details.Database,
	}
	return u.String()
}

// postgresConn runs statements on a single pgx connection inside a lazily
// opened transaction.
type postgresConn struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

func (c *postgresConn) ensureTx(ctx context.Context) (pgx.Tx, error) {
	if c.tx != nil {
		return c.tx, nil
	}
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed,
			"failed to begin transaction", err)
	}
	c.tx = tx
	return tx, nil
}

// Alive mirrors the driver's local closed flag. No round trip happens, so
// a dropped network path is only discovered on the next statement.
func (c *postgresConn) Alive(ctx context.Context) bool {
	return !c.conn.IsClosed()
}

func (c *postgresConn) Execute(ctx context.Context, statement string) (*Rowset, error) {
	tx, err := c.ensureTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, statement)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to execute statement", err)
	}
	return collectPostgresResult(rows)
}

func (c *postgresConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	if err != nil {
		return errors.Wrap(errors.ErrCodeStatementFailed, "failed to commit", err)
	}
	return nil
}

func (c *postgresConn) Close() error {
	ctx := context.Background()
	var errs []error
	if c.tx != nil {
		if err := c.tx.Rollback(ctx); err != nil && !goerrors.Is(err, pgx.ErrTxClosed) {
			errs = append(errs, err)
		}
		c.tx = nil
	}
	if err := c.conn.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return goerrors.Join(errs...)
}

// collectPostgresResult drains a pgx result and classifies it by command
// tag: a SELECT that returned rows yields them, anything else yields the
// affected-row tally. An INSERT with a RETURNING clause therefore reports
// its tally, not its rows.
func collectPostgresResult(rows pgx.Rows) (*Rowset, error) {
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columns[i] = string(fd.Name)
	}

	collected := &Rowset{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to get row values", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(values) {
				rowMap[col] = normalizeValue(values[i])
			}
		}
		collected.Rows = append(collected.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to execute statement", err)
	}

	tag := rows.CommandTag()
	if strings.HasPrefix(tag.String(), "SELECT") && len(collected.Rows) > 0 {
		return collected, nil
	}
	return Affected(tag.RowsAffected()), nil
}
