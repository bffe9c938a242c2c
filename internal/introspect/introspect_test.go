package introspect

import (
	"reflect"
	"testing"
)

func TestNewDepSetNormalizes(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want DepSet
	}{
		{"sorted", []string{"sale", "base"}, DepSet{"base", "sale"}},
		{"deduplicated", []string{"base", "base", "sale"}, DepSet{"base", "sale"}},
		{"trimmed and blank dropped", []string{" base ", "", "sale"}, DepSet{"base", "sale"}},
		{"empty", nil, DepSet{}},
	}
	for _, tc := range cases {
		if got := NewDepSet(tc.in...); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: NewDepSet(%v) = %v, want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestDepSetKeyIsStable(t *testing.T) {
	a := NewDepSet("sale", "base").Key()
	b := NewDepSet("base", "sale", "base").Key()
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "base,sale" {
		t.Errorf("Key() = %q, want %q", a, "base,sale")
	}
}

func TestValidKind(t *testing.T) {
	if !ValidKind("model") || !ValidKind("wizard") {
		t.Error("model and wizard must be valid kinds")
	}
	if ValidKind("report") {
		t.Error("report must not be a valid kind")
	}
}

func TestChainEntryDefines(t *testing.T) {
	if (ChainEntry{Class: "C"}).Defines() {
		t.Error("entry without site or NoBody does not define")
	}
	if !(ChainEntry{Class: "C", Site: &DefinitionSite{File: "f.py", Line: 3}}).Defines() {
		t.Error("entry with a site defines")
	}
	if !(ChainEntry{Class: "C", NoBody: true}).Defines() {
		t.Error("NoBody entry defines")
	}
}
