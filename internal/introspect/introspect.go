// Package introspect defines the boundary to the framework introspection
// worker: the process that loads the live framework and answers schema
// queries. The analyzer core never reflects on the framework itself; it only
// talks to an Introspector, which may be an out-of-process worker or a
// precomputed snapshot.
package introspect

import (
	"sort"
	"strings"
)

// Kind distinguishes the two registrable model kinds.
type Kind string

const (
	// KindModel is a persisted entity model
	KindModel Kind = "model"
	// KindWizard is a multi-step interactive flow model
	KindWizard Kind = "wizard"
)

// Kinds lists the legal kind values in display order.
func Kinds() []Kind {
	return []Kind{KindModel, KindWizard}
}

// ValidKind reports whether s names a legal kind.
func ValidKind(s string) bool {
	return s == string(KindModel) || s == string(KindWizard)
}

// DepSet is a normalized dependency set: the module names whose combined
// schema contributions are visible in an analysis context.
type DepSet []string

// NewDepSet returns a sorted, deduplicated dependency set.
func NewDepSet(modules ...string) DepSet {
	seen := make(map[string]struct{}, len(modules))
	out := make(DepSet, 0, len(modules))
	for _, m := range modules {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Key returns the stable cache key for the set.
func (d DepSet) Key() string {
	return strings.Join(d, ",")
}

// SessionInfo lists the models visible for a dependency set.
type SessionInfo struct {
	Models  []string `json:"models" yaml:"models"`
	Wizards []string `json:"wizards" yaml:"wizards"`
}

// FieldInfo is the raw description of one entity field.
type FieldInfo struct {
	Label    string `json:"string" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
}

// StateInfo is the raw description of one wizard state.
type StateInfo struct {
	Relation string `json:"relation" yaml:"relation"`
}

// ModelInfo is the raw schema payload for one model.
type ModelInfo struct {
	Attrs  []string             `json:"attrs" yaml:"attrs"`
	Fields map[string]FieldInfo `json:"fields,omitempty" yaml:"fields,omitempty"`
	States map[string]StateInfo `json:"states,omitempty" yaml:"states,omitempty"`
}

// DefinitionSite locates a method definition in source.
type DefinitionSite struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// ChainEntry is one class of an override chain, in resolution-priority order.
// Site is nil when the class does not define the method; NoBody marks
// definitions without inspectable code (chain terminators).
type ChainEntry struct {
	Class  string          `json:"class" yaml:"class"`
	Site   *DefinitionSite `json:"site,omitempty" yaml:"site,omitempty"`
	NoBody bool            `json:"noBody,omitempty" yaml:"noBody,omitempty"`
}

// Defines reports whether the chain entry defines the method at all.
func (e ChainEntry) Defines() bool {
	return e.Site != nil || e.NoBody
}

// CompletionInfo describes one completable member of a model.
type CompletionInfo struct {
	Kind          string   `json:"kind" yaml:"kind"` // field, state or method
	Label         string   `json:"label,omitempty" yaml:"label,omitempty"`
	ClassName     string   `json:"className,omitempty" yaml:"className,omitempty"`
	Documentation string   `json:"documentation,omitempty" yaml:"documentation,omitempty"`
	Computed      bool     `json:"computed,omitempty" yaml:"computed,omitempty"`
	Choices       []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Visibility    string   `json:"visibility,omitempty" yaml:"visibility,omitempty"`
}

// ModuleInfo is the raw description of one framework module.
type ModuleInfo struct {
	Directory string   `json:"directory" yaml:"directory"`
	DataFiles []string `json:"data" yaml:"data"`
}

// Introspector answers schema queries for the analyzer core. Implementations
// must be safe for serialized use behind the registry lock; they need not be
// internally concurrent.
type Introspector interface {
	// InitSession prepares the schema graph for a dependency set and lists
	// the registrable names it contains.
	InitSession(deps DepSet) (SessionInfo, error)
	// FetchModel returns the raw schema payload for one model.
	FetchModel(deps DepSet, name string, kind Kind) (ModelInfo, error)
	// FetchOverrideChain returns the ordered same-named method definitions
	// across the model's composed hierarchy.
	FetchOverrideChain(deps DepSet, kind Kind, name, method string) ([]ChainEntry, error)
	// FetchCompletions returns the completable members of one model.
	FetchCompletions(deps DepSet, name string, kind Kind) (map[string]CompletionInfo, error)
	// FetchModuleInfo describes one framework module.
	FetchModuleInfo(module string) (ModuleInfo, error)
	// Alive reports whether the introspector can still answer.
	Alive() bool
	// Close releases the introspector.
	Close() error
}
