// Package backend dials and drives sessions against the supported RDBMS
// types. Each backend normalizes statement results into the same Rowset
// shape, so callers never branch on the database flavor.
package backend

import (
	"context"

	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

// Conn is one live session with a database. Statements, transaction verbs,
// and liveness probes all target the same server session, so session state
// like uncommitted work and rowcount variables behaves predictably.
type Conn interface {
	// Alive reports whether the session still responds. Probe failures
	// report false; they never propagate as errors.
	Alive(ctx context.Context) bool

	// Execute runs one statement and normalizes its outcome. A statement
	// producing a result set yields its columns and rows; anything else
	// yields the affected-row tally under the AffectedColumn title.
	Execute(ctx context.Context, statement string) (*Rowset, error)

	// Commit makes the session's pending work durable.
	Commit(ctx context.Context) error

	// Close rolls back pending work and releases the session.
	Close() error
}

// Adapter dials sessions for one registry entry.
type Adapter interface {
	// Kind returns the rdbms name this adapter serves.
	Kind() string

	// Open dials a new session and verifies it responds.
	Open(ctx context.Context) (Conn, error)
}

// Decryptor turns an encrypted registry password into plaintext.
type Decryptor interface {
	Decrypt(token string) (string, error)
}

// For selects the adapter for a connection descriptor. The rdbms value is
// checked here rather than at registry load, so registries may carry entries
// for backends this build does not speak as long as nobody uses them.
func For(details registry.Connection, secrets Decryptor) (Adapter, error) {
	switch details.RDBMS {
	case registry.RDBMSOracle:
		return &oracleAdapter{details: details, secrets: secrets}, nil
	case registry.RDBMSSQLServer:
		return &sqlserverAdapter{details: details, secrets: secrets}, nil
	case registry.RDBMSPostgreSQL:
		return &postgresAdapter{details: details, secrets: secrets}, nil
	case registry.RDBMSMySQL:
		return &mysqlAdapter{details: details, secrets: secrets}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownBackend,
			"unknown database type %q for connection %q", details.RDBMS, details.Name)
	}
}
