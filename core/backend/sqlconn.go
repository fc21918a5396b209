package backend

import (
	"context"
	"database/sql"
	goerrors "errors"

	"github.com/dbbridge/dbbridge/core/shared/errors"
)

// sqlSession pins a single database/sql connection and runs every statement
// on it inside a lazily opened transaction. Pinning matters: liveness
// probes, rowcount lookups, and commits must observe the same server
// session as the statements themselves, and the pool abstraction would
// otherwise hand them different connections.
type sqlSession struct {
	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
}

// openPinned dials driverName with the given DSN, reserves one connection
// from the pool, and verifies it responds. name is the registry connection
// name, used for error context only.
func openPinned(ctx context.Context, driverName, dsn, name string) (*sqlSession, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConnectionFailed, err,
			"failed to open connection %q", name)
	}

	// The pool exists only to hand out this one session.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(errors.ErrCodeConnectionFailed, err,
			"failed to connect to %q", name)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, errors.Wrapf(errors.ErrCodeConnectionFailed, err,
			"failed to ping %q", name)
	}

	return &sqlSession{db: db, conn: conn}, nil
}

// ensureTx opens the session transaction if none is pending. Statements run
// inside it so that work stays uncommitted until Commit is called, matching
// the manual-commit model of every supported backend.
func (s *sqlSession) ensureTx(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed,
			"failed to begin transaction", err)
	}
	s.tx = tx
	return tx, nil
}

// Alive probes the pinned connection. The ping travels over the same
// driver connection even while a transaction is open.
func (s *sqlSession) Alive(ctx context.Context) bool {
	return s.conn.PingContext(ctx) == nil
}

// Commit makes pending work durable. With no transaction open there is
// nothing to commit and the call is a no-op.
func (s *sqlSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return errors.Wrap(errors.ErrCodeStatementFailed, "failed to commit", err)
	}
	return nil
}

// Close rolls back any pending work and releases the session.
func (s *sqlSession) Close() error {
	var errs []error
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && !goerrors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		s.tx = nil
	}
	if err := s.conn.Close(); err != nil && !goerrors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return goerrors.Join(errs...)
}

// scanRows drains a result set into a normalized Rowset. Column order is
// preserved; []byte values become strings so results serialize cleanly.
func scanRows(rows *sql.Rows) (*Rowset, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to get columns", err)
	}

	result := &Rowset{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStatementFailed, "failed to scan row", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatementFailed, "error iterating rows", err)
	}

	return result, nil
}
