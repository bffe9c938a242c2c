package registry

import (
	"sort"
	"strings"

	"relint/internal/introspect"
)

// RelationKind tags a field as scalar or relational.
type RelationKind int

const (
	// RelNone marks a scalar field
	RelNone RelationKind = iota
	// RelToOne marks a to-one relation field
	RelToOne
	// RelToMany marks a to-many relation field
	RelToMany
)

// Field is the normalized description of one entity field.
type Field struct {
	Label    string
	Relation RelationKind
	Target   string
}

// Model is an immutable model schema, shared read-only by every analyzer
// consulting the same pool.
type Model struct {
	Name string
	Kind introspect.Kind
	// Fields is populated for entity models.
	Fields map[string]Field
	// States maps wizard state names to their relation target.
	States map[string]string

	pool        *Pool
	members     map[string]struct{}
	completions []CompletionItem
}

// newModel validates and normalizes a raw introspector payload. The
// heterogeneous field-type tags of the wire format are folded into the
// relation kinds the analyzer cares about, once, at this boundary.
func newModel(pool *Pool, name string, kind introspect.Kind, info introspect.ModelInfo) *Model {
	m := &Model{
		Name:    name,
		Kind:    kind,
		pool:    pool,
		members: make(map[string]struct{}, len(info.Attrs)),
	}
	for _, attr := range info.Attrs {
		m.members[attr] = struct{}{}
	}
	if kind == introspect.KindModel {
		m.Fields = make(map[string]Field, len(info.Fields))
		for fname, raw := range info.Fields {
			field := Field{Label: raw.Label, Target: raw.Relation}
			switch raw.Type {
			case "many2one":
				field.Relation = RelToOne
			case "one2many", "many2many":
				field.Relation = RelToMany
			default:
				field.Target = ""
			}
			m.Fields[fname] = field
		}
	} else {
		m.States = make(map[string]string, len(info.States))
		for sname, raw := range info.States {
			m.States[sname] = raw.Relation
		}
	}
	return m
}

// HasMember reports whether name is in the model's accessible-member set.
func (m *Model) HasMember(name string) bool {
	_, ok := m.members[name]
	return ok
}

// Pool returns the pool the model was resolved in.
func (m *Model) Pool() *Pool { return m.pool }

// SuperChain returns the ordered override chain for a method, highest
// resolution priority first.
func (m *Model) SuperChain(method string) ([]introspect.ChainEntry, error) {
	return m.pool.manager.fetchChain(m.pool.deps, m.Kind, m.Name, method)
}

// CompletionItem is one ranked completion result.
type CompletionItem struct {
	Label         string
	Kind          string // "field" or "method"
	Detail        string
	Documentation string
}

// Completions returns the ranked completion list for the model, fields
// before methods. The listing is fetched once and cached on the model.
func (m *Model) Completions() ([]CompletionItem, error) {
	if m.completions != nil {
		return m.completions, nil
	}
	infos, err := m.pool.manager.fetchCompletions(m.pool.deps, m.Name, m.Kind)
	if err != nil {
		return nil, err
	}
	items := make([]CompletionItem, 0, len(infos))
	for name, info := range infos {
		items = append(items, completionItem(name, info))
	}
	sort.Slice(items, func(i, j int) bool {
		ri, rj := completionRank(items[i].Kind), completionRank(items[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return items[i].Label < items[j].Label
	})
	m.completions = items
	return items, nil
}

func completionRank(kind string) int {
	if kind == "field" {
		return 0
	}
	return 1
}

func completionItem(name string, info introspect.CompletionInfo) CompletionItem {
	switch info.Kind {
	case "field":
		var doc strings.Builder
		doc.WriteString(info.Label)
		if info.Computed {
			doc.WriteString(" [Computed]")
		}
		if len(info.Choices) > 0 {
			doc.WriteString("\n\nChoices:\n\n")
			doc.WriteString(strings.Join(info.Choices, ", "))
		}
		if info.Visibility != "" {
			doc.WriteString("\n\nVisible when:\n\n")
			doc.WriteString(info.Visibility)
		}
		return CompletionItem{
			Label:         name,
			Kind:          "field",
			Detail:        info.ClassName,
			Documentation: doc.String(),
		}
	case "state":
		return CompletionItem{Label: name, Kind: "field", Detail: info.ClassName}
	default:
		return CompletionItem{Label: name, Kind: "method", Documentation: info.Documentation}
	}
}
