// Package cache keeps recent statement results close to the serving layer.
// The in-memory store is the default; pointing it at Redis shares the cache
// across instances. Only the caller decides what is cacheable, the stores
// just hold rowsets under opaque keys.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dbbridge/dbbridge/core/backend"
)

// Store is a read-through result cache. Get returns a copy the caller may
// mutate; Set is best-effort and a zero or negative ttl stores nothing.
type Store interface {
	Get(ctx context.Context, key string) (*backend.Rowset, bool)
	Set(ctx context.Context, key string, result *backend.Rowset, ttl time.Duration)
	Close() error
}

// New selects a store: an empty URL means in-memory, anything else is
// treated as a Redis URL.
func New(redisURL string) (Store, error) {
	if redisURL == "" {
		return NewMemory(), nil
	}
	return NewRedis(redisURL)
}

// Key derives the cache key for a statement on a named connection.
func Key(connection, statement string) string {
	hash := sha256.Sum256([]byte(connection + ":" + statement))
	return hex.EncodeToString(hash[:])
}

func cloneRowset(rs *backend.Rowset) *backend.Rowset {
	if rs == nil {
		return nil
	}

	out := &backend.Rowset{
		Columns: make([]string, len(rs.Columns)),
		Rows:    make([]map[string]any, len(rs.Rows)),
	}
	copy(out.Columns, rs.Columns)
	for i, row := range rs.Rows {
		if row == nil {
			continue
		}
		copyRow := make(map[string]any, len(row))
		for key, value := range row {
			copyRow[key] = value
		}
		out.Rows[i] = copyRow
	}
	return out
}
