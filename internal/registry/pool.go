package registry

import (
	"strings"

	"relint/internal/introspect"
	"relint/internal/relerr"
)

// Pool is the schema view for one dependency set. It memoizes model fetches:
// each (kind, name) is fetched from the introspector at most once per
// session.
type Pool struct {
	manager *Manager
	deps    introspect.DepSet
	// nil value = known name, not fetched yet
	models  map[string]*Model
	wizards map[string]*Model
}

func newPool(manager *Manager, deps introspect.DepSet, info introspect.SessionInfo) *Pool {
	p := &Pool{
		manager: manager,
		deps:    deps,
		models:  make(map[string]*Model, len(info.Models)),
		wizards: make(map[string]*Model, len(info.Wizards)),
	}
	for _, name := range info.Models {
		p.models[name] = nil
	}
	for _, name := range info.Wizards {
		p.wizards[name] = nil
	}
	return p
}

// Deps returns the normalized dependency set of the pool.
func (p *Pool) Deps() introspect.DepSet { return p.deps }

// SupportedKinds renders the legal kind values for diagnostics.
func (p *Pool) SupportedKinds() string {
	kinds := introspect.Kinds()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// Get returns the schema of a model, fetching and caching it on first use.
// Names absent from the session listing fail with UNKNOWN_MODEL.
func (p *Pool) Get(name string, kind introspect.Kind) (*Model, error) {
	table := p.models
	if kind == introspect.KindWizard {
		table = p.wizards
	}
	model, known := table[name]
	if !known {
		return nil, relerr.Newf(relerr.UnknownModel, "no %s named %q for dependency set %q",
			kind, name, p.deps.Key())
	}
	if model != nil {
		return model, nil
	}
	info, err := p.manager.fetchModel(p.deps, name, kind)
	if err != nil {
		return nil, err
	}
	model = newModel(p, name, kind, info)
	table[name] = model
	return model, nil
}

// GetEntity is Get for the entity kind, the overwhelmingly common lookup.
func (p *Pool) GetEntity(name string) (*Model, error) {
	return p.Get(name, introspect.KindModel)
}
