package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/dbbridge/dbbridge/core/backend"
)

const (
	// Keep up to ~128 MiB of cached results in memory.
	defaultMaxCost = 128 << 20
	// Rule of thumb from Ristretto: ~10x expected live keys.
	defaultNumCounters = 1_000_000
	defaultBufferItems = 64
)

// Memory is a process-local result cache backed by Ristretto.
type Memory struct {
	store *ristretto.Cache
}

// NewMemory builds the in-memory store. Sizing is tuned for variable-sized
// rowsets: bounded RAM with a good hit ratio.
func NewMemory() *Memory {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		// Invalid config cannot happen with static values.
		panic(err)
	}

	return &Memory{store: store}
}

func (m *Memory) Get(_ context.Context, key string) (*backend.Rowset, bool) {
	value, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	result, ok := value.(*backend.Rowset)
	if !ok {
		return nil, false
	}
	return cloneRowset(result), true
}

func (m *Memory) Set(_ context.Context, key string, result *backend.Rowset, ttl time.Duration) {
	if ttl <= 0 || result == nil {
		return
	}

	accepted := m.store.SetWithTTL(key, cloneRowset(result), estimateCost(result), ttl)
	if accepted {
		// Ristretto sets are asynchronous. Wait ensures the value can be
		// read back immediately.
		m.store.Wait()
	}
}

func (m *Memory) Close() error {
	m.store.Close()
	return nil
}

func estimateCost(rs *backend.Rowset) int64 {
	var total int64
	for _, col := range rs.Columns {
		total += int64(len(col))
	}
	for _, row := range rs.Rows {
		if row == nil {
			continue
		}
		// Map entry overhead plus key/value estimation.
		total += int64(len(row) * 16)
		for key, value := range row {
			total += int64(len(key))
			total += estimateValueCost(value)
		}
	}

	if total <= 0 {
		return 1
	}
	return total
}

func estimateValueCost(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(val))
	case []byte:
		return int64(len(val))
	case bool:
		return 1
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return 8
	case float32:
		return 4
	case float64:
		return 8
	case time.Time:
		return 16
	case map[string]any:
		var size int64
		for key, nested := range val {
			size += int64(len(key)) + estimateValueCost(nested)
		}
		return size
	case []any:
		var size int64
		for _, nested := range val {
			size += estimateValueCost(nested)
		}
		return size
	default:
		// Fallback for uncommon/custom types.
		return int64(len(fmt.Sprintf("%v", val)))
	}
}
