package analyzer

import "relint/internal/registry"

// binding is the inferred type of an expression: a model, and whether the
// expression denotes a sequence of records or a single one. The zero binding
// means "unknown", which silences every downstream check.
type binding struct {
	model *registry.Model
	seq   bool
}

func (b binding) known() bool { return b.model != nil }

func single(m *registry.Model) binding { return binding{model: m} }
func sequence(m *registry.Model) binding {
	return binding{model: m, seq: true}
}

// env is the per-function binding environment. Names live in at most one of
// the two maps; rebinding moves them.
type env struct {
	singles  map[string]*registry.Model
	seqs     map[string]*registry.Model
	poolVars map[string]struct{}
}

func newEnv() *env {
	return &env{
		singles:  map[string]*registry.Model{},
		seqs:     map[string]*registry.Model{},
		poolVars: map[string]struct{}{},
	}
}

// lookup resolves a name to its current binding.
func (e *env) lookup(name string) binding {
	if m, ok := e.singles[name]; ok {
		return single(m)
	}
	if m, ok := e.seqs[name]; ok {
		return sequence(m)
	}
	return binding{}
}

// bind records a binding for name, displacing any previous one. It returns
// the model previously bound under the same shape, for reassignment checks.
func (e *env) bind(name string, b binding) *registry.Model {
	var prev *registry.Model
	if b.seq {
		prev = e.seqs[name]
		e.seqs[name] = b.model
		delete(e.singles, name)
	} else {
		prev = e.singles[name]
		e.singles[name] = b.model
		delete(e.seqs, name)
	}
	delete(e.poolVars, name)
	return prev
}

// clear forgets any binding for name.
func (e *env) clear(name string) {
	delete(e.singles, name)
	delete(e.seqs, name)
	delete(e.poolVars, name)
}

// snapshot captures the bindings of the given names so a scoped construct
// (a comprehension) can restore them on exit.
type snapshot struct {
	env   *env
	saved map[string]binding
}

func (e *env) save(names []string) snapshot {
	s := snapshot{env: e, saved: map[string]binding{}}
	for _, name := range names {
		s.saved[name] = e.lookup(name)
	}
	return s
}

func (s snapshot) restore() {
	for name, b := range s.saved {
		s.env.clear(name)
		if b.known() {
			s.env.bind(name, b)
		}
	}
}
