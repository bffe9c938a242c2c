// Package registry caches model schemas per dependency set and owns the
// lifecycle of the introspection worker supplying them.
package registry

import (
	"sync"

	"relint/internal/introspect"
	"relint/internal/logging"
	"relint/internal/modindex"
)

// Manager owns the two process-wide caches (pools and module indexes) and
// the introspector handle. The single mutex serializes every introspector
// round trip: at most one session or schema request is in flight, concurrent
// callers queue.
type Manager struct {
	mu      sync.Mutex
	log     *logging.Logger
	spawn   func() (introspect.Introspector, error)
	intr    introspect.Introspector
	pools   map[string]*Pool
	modules map[string]*modindex.Index
}

// NewManager creates a manager spawning introspectors through the given
// factory. The first spawn is deferred until a request needs it.
func NewManager(spawn func() (introspect.Introspector, error), log *logging.Logger) *Manager {
	return &Manager{
		log:     log,
		spawn:   spawn,
		pools:   map[string]*Pool{},
		modules: map[string]*modindex.Index{},
	}
}

// Close releases the introspector.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.intr != nil {
		_ = m.intr.Close()
		m.intr = nil
	}
}

// Alive reports whether a live introspector is attached.
func (m *Manager) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intr != nil && m.intr.Alive()
}

// introspector returns a living introspector, respawning a dead one. A
// crash invalidates the whole session-scoped pool cache: every schema was
// derived from the dead session.
//
// Callers must hold m.mu.
func (m *Manager) introspector() (introspect.Introspector, error) {
	if m.intr != nil && m.intr.Alive() {
		return m.intr, nil
	}
	if m.intr != nil {
		m.log.Warn("introspection worker died, respawning", map[string]interface{}{
			"invalidatedPools": len(m.pools),
		})
		_ = m.intr.Close()
		m.intr = nil
		m.pools = map[string]*Pool{}
	}
	intr, err := m.spawn()
	if err != nil {
		return nil, err
	}
	m.intr = intr
	return intr, nil
}

// Pool returns the cached schema view for a dependency set, initializing a
// session on first use. Session initialization is the main latency source of
// an analysis, hence the aggressive memoization.
func (m *Manager) Pool(modules ...string) (*Pool, error) {
	deps := introspect.NewDepSet(modules...)
	m.mu.Lock()
	defer m.mu.Unlock()
	// the liveness check runs before the cache lookup: a dead session must
	// never serve its cached pools
	intr, err := m.introspector()
	if err != nil {
		return nil, err
	}
	if pool, ok := m.pools[deps.Key()]; ok {
		return pool, nil
	}
	m.log.Debug("initializing registry session", map[string]interface{}{
		"deps": deps.Key(),
	})
	info, err := intr.InitSession(deps)
	if err != nil {
		return nil, err
	}
	pool := newPool(m, deps, info)
	m.pools[deps.Key()] = pool
	return pool, nil
}

// Module returns the cached registration index of a module, building it on
// first use. Module indexes survive introspector crashes; they are derived
// from source, not from the session.
func (m *Manager) Module(name string) (*modindex.Index, error) {
	m.mu.Lock()
	if ix, ok := m.modules[name]; ok {
		m.mu.Unlock()
		return ix, nil
	}
	intr, err := m.introspector()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	info, err := intr.FetchModuleInfo(name)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ix := modindex.Build(name, info)
	m.mu.Lock()
	m.modules[name] = ix
	m.mu.Unlock()
	return ix, nil
}

// EvictModule drops a module index so the next request rebuilds it.
func (m *Manager) EvictModule(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.modules, name)
}

func (m *Manager) fetchModel(deps introspect.DepSet, name string, kind introspect.Kind) (introspect.ModelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intr, err := m.introspector()
	if err != nil {
		return introspect.ModelInfo{}, err
	}
	return intr.FetchModel(deps, name, kind)
}

func (m *Manager) fetchChain(deps introspect.DepSet, kind introspect.Kind, name, method string) ([]introspect.ChainEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intr, err := m.introspector()
	if err != nil {
		return nil, err
	}
	return intr.FetchOverrideChain(deps, kind, name, method)
}

func (m *Manager) fetchCompletions(deps introspect.DepSet, name string, kind introspect.Kind) (map[string]introspect.CompletionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intr, err := m.introspector()
	if err != nil {
		return nil, err
	}
	return intr.FetchCompletions(deps, name, kind)
}
