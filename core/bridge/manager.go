package bridge

import (
	"context"
	goerrors "errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/registry"
)

// Manager hands out bridges by connection name, creating each one lazily
// from the registry on first use. Bridges are cached so follow-up requests
// reach the same session state, which is what keeps kept-open transactions
// usable across calls.
type Manager struct {
	mu      sync.RWMutex
	reg     *registry.Registry
	secrets backend.Decryptor
	bridges map[string]*Bridge
}

// NewManager builds a manager over a loaded registry.
func NewManager(reg *registry.Registry, secrets backend.Decryptor) *Manager {
	return &Manager{
		reg:     reg,
		secrets: secrets,
		bridges: make(map[string]*Bridge),
	}
}

// Registry returns the registry currently backing the manager.
func (m *Manager) Registry() *registry.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reg
}

// Get returns the bridge for name, creating it on first use. Unknown or
// inactive names fail with the registry's lookup error.
func (m *Manager) Get(name string) (*Bridge, error) {
	m.mu.RLock()
	b, ok := m.bridges[name]
	m.mu.RUnlock()
	if ok {
		return b, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bridges[name]; ok {
		return b, nil
	}

	details, err := m.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	b, err = FromConnection(details, m.secrets)
	if err != nil {
		return nil, err
	}
	m.bridges[name] = b
	return b, nil
}

// Execute runs a statement on the named connection through its cached
// bridge, creating the bridge on first use.
func (m *Manager) Execute(ctx context.Context, name, statement string, opts ...Option) (*backend.Rowset, error) {
	b, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, statement, opts...)
}

// Names returns the active connection names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := m.reg.Active()
	names := make([]string, 0, len(active))
	for _, details := range active {
		names = append(names, details.Name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of bridges created so far.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bridges)
}

// StatusAll probes every active connection in parallel and reports which
// ones currently hold a live session. Connections never used report false.
func (m *Manager) StatusAll(ctx context.Context) map[string]bool {
	m.mu.RLock()
	active := m.reg.Active()
	bridges := make(map[string]*Bridge, len(m.bridges))
	maps.Copy(bridges, m.bridges)
	m.mu.RUnlock()

	// Fill the map before spawning anything so the probe goroutines are the
	// only writers.
	var statusMu sync.Mutex
	statuses := make(map[string]bool, len(active))
	for _, details := range active {
		statuses[details.Name] = false
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, details := range active {
		b, ok := bridges[details.Name]
		if !ok {
			continue
		}
		name := details.Name
		g.Go(func() error {
			alive := b.Status(ctx)
			statusMu.Lock()
			statuses[name] = alive
			statusMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

// CloseAll disconnects every cached bridge in parallel, collecting and
// returning all errors. The bridges stay usable and reconnect on demand.
func (m *Manager) CloseAll() error {
	m.mu.RLock()
	bridgeCount := len(m.bridges)
	if bridgeCount == 0 {
		m.mu.RUnlock()
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, bridgeCount)

	log := logging.New("bridge")
	log.Debugf("Closing %d connection(s)...", bridgeCount)

	for name, b := range m.bridges {
		wg.Add(1)
		go func(name string, b *Bridge) {
			defer wg.Done()
			if err := b.Disconnect(); err != nil {
				errChan <- fmt.Errorf("connection %q: %w", name, err)
			}
		}(name, b)
	}
	m.mu.RUnlock()

	wg.Wait()
	close(errChan)

	return collectErrors(errChan)
}

// Reload swaps in a fresh registry. Existing sessions close and the bridge
// cache resets so renamed or retuned connections take effect immediately.
func (m *Manager) Reload(reg *registry.Registry) {
	if err := m.CloseAll(); err != nil {
		logging.New("bridge").Warnf("Reload closed connections with errors: %v", err)
	}

	m.mu.Lock()
	m.reg = reg
	m.bridges = make(map[string]*Bridge)
	m.mu.Unlock()
}

// collectErrors collects all errors from a channel and combines them
func collectErrors(errChan <-chan error) error {
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return goerrors.Join(errs...)
}
