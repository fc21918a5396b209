// Package bridge exposes named database connections behind a single execute
// facade. A bridge resolves its connection in the registry, dials the
// matching backend on demand, and normalizes every statement outcome into
// the same rowset shape regardless of the database behind it.
package bridge

import (
	"context"
	"io"
	"sync"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/secret"
	"github.com/dbbridge/dbbridge/core/shared/errors"
	"github.com/dbbridge/dbbridge/core/table"
)

// Bridge drives one named connection through its lifecycle: disconnected
// until dialed, reconnected automatically when a statement finds the
// session dead, and disconnected again after each statement unless asked
// to stay open. All methods are safe for concurrent use; statements on the
// same bridge serialize.
type Bridge struct {
	mu         sync.Mutex
	details    registry.Connection
	adapter    backend.Adapter
	conn       backend.Conn
	lastResult *backend.Rowset
	log        logging.Logger
}

// New resolves name in the registry at path and prepares a bridge without
// dialing. The decryption key comes from the environment.
func New(path, name string) (*Bridge, error) {
	reg, err := registry.Load(path)
	if err != nil {
		return nil, err
	}
	details, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	cipher, err := secret.CipherFromEnv()
	if err != nil {
		return nil, err
	}
	return FromConnection(details, cipher)
}

// Open resolves, prepares, and dials in one step.
func Open(ctx context.Context, path, name string) (*Bridge, error) {
	b, err := New(path, name)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// FromConnection prepares a bridge for an already resolved descriptor.
func FromConnection(details registry.Connection, secrets backend.Decryptor) (*Bridge, error) {
	adapter, err := backend.For(details, secrets)
	if err != nil {
		return nil, err
	}
	return &Bridge{
		details: details,
		adapter: adapter,
		log:     logging.New("bridge"),
	}, nil
}

// Name returns the registry connection name.
func (b *Bridge) Name() string {
	return b.details.Name
}

// Kind returns the backend type serving this bridge.
func (b *Bridge) Kind() string {
	return b.adapter.Kind()
}

// Connect dials the backend. Connecting an already live bridge is a no-op;
// a dead session is replaced.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureConnected(ctx)
}

func (b *Bridge) ensureConnected(ctx context.Context) error {
	if b.conn != nil {
		if b.conn.Alive(ctx) {
			return nil
		}
		b.log.Warnf("Connection %q went away, reconnecting", b.details.Name)
		if err := b.closeConn(); err != nil {
			b.log.Debugf("Discarding dead connection %q: %v", b.details.Name, err)
		}
	}

	conn, err := b.adapter.Open(ctx)
	if err != nil {
		return err
	}
	b.conn = conn
	b.log.Debugf("Connection %q is live", b.details.Name)
	return nil
}

// Status reports whether the bridge currently holds a responsive session.
// A bridge that was never connected reports false.
func (b *Bridge) Status(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.Alive(ctx)
}

// Disconnect closes the session if one is open. Uncommitted work is rolled
// back by the backend.
func (b *Bridge) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeConn()
}

func (b *Bridge) closeConn() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// Execute runs one statement and returns its normalized result, dialing or
// reviving the session first when needed. By default the statement is not
// committed and the session closes afterwards; Commit and KeepOpen change
// that. On a statement error the session stays open and uncommitted.
//
// With One the returned rowset is cut down to its first row, and an empty
// result becomes an error; the full result is still retained for
// LastResult. Commit and close-after happen before the cut, so an empty
// one-row request still commits and releases the session.
func (b *Bridge) Execute(ctx context.Context, statement string, opts ...Option) (*backend.Rowset, error) {
	options := applyOptions(opts)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}

	result, err := b.conn.Execute(ctx, statement)
	if err != nil {
		return nil, err
	}
	b.lastResult = result

	if options.commit {
		if err := b.conn.Commit(ctx); err != nil {
			return nil, err
		}
	}
	if !options.keepOpen {
		if err := b.closeConn(); err != nil {
			b.log.Warnf("Connection %q did not close cleanly: %v", b.details.Name, err)
		}
	}

	if options.one {
		first, ok := result.First()
		if !ok {
			return nil, errors.Newf(errors.ErrCodeEmptyResult,
				"result set was empty, nothing to return for connection %q", b.details.Name)
		}
		return &backend.Rowset{Columns: result.Columns, Rows: []map[string]any{first}}, nil
	}
	return result, nil
}

// ExecuteRow runs one statement and returns only the first row of its
// result. An empty result is an error.
func (b *Bridge) ExecuteRow(ctx context.Context, statement string, opts ...Option) (map[string]any, error) {
	result, err := b.Execute(ctx, statement, append(opts, One())...)
	if err != nil {
		return nil, err
	}
	first, _ := result.First()
	return first, nil
}

// LastResult returns the full result of the most recent statement, before
// any One reduction, or nil when nothing ran since the last Flush.
func (b *Bridge) LastResult() *backend.Rowset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastResult
}

// Flush drops the retained result.
func (b *Bridge) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastResult = nil
}

// Table renders the retained result to w in the given format. Running it
// before any statement produced a result is an error.
func (b *Bridge) Table(w io.Writer, format table.Format) error {
	b.mu.Lock()
	result := b.lastResult
	b.mu.Unlock()

	if result == nil {
		return errors.New(errors.ErrCodeNoResult,
			"no result to render, run a statement first")
	}
	return table.Render(w, result, format)
}
