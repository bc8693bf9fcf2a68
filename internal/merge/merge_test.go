package merge

import (
	"testing"

	"github.com/classanalyser/classanalyser/internal/classinfo"
)

type fakeLoader struct {
	metas map[string]*classinfo.Meta
}

func (f *fakeLoader) LoadMeta(className string) (*classinfo.Meta, error) {
	return f.metas[className], nil
}

// S1: two classes A, B extends A; both declare a member foo.
func TestOverrideWinsAndAppearsIn(t *testing.T) {
	t.Parallel()
	a := &classinfo.Meta{
		ClassName: "A",
		Members: map[string]*classinfo.MemberDef{
			"foo": {Type: classinfo.EntityFunction},
		},
	}
	b := &classinfo.Meta{
		ClassName:  "B",
		SuperClass: "A",
		Members: map[string]*classinfo.MemberDef{
			"foo": {Type: classinfo.EntityFunction},
		},
	}

	m := &Merger{Loader: &fakeLoader{metas: map[string]*classinfo.Meta{"A": a}}}
	if err := m.MergeClass(b); err != nil {
		t.Fatalf("MergeClass: %v", err)
	}

	foo := b.Members["foo"]
	if foo.OverriddenFrom != "A" {
		t.Errorf("overriddenFrom = %q, want A", foo.OverriddenFrom)
	}
	if len(foo.AppearsIn) != 1 || foo.AppearsIn[0] != "A" {
		t.Errorf("appearsIn = %v, want [A]", foo.AppearsIn)
	}
}

// S2: class C implements interface I that declares abstract bar; C leaves
// bar unimplemented, so meta(C).abstract must end up true.
func TestAbstractPropagationFromInterface(t *testing.T) {
	t.Parallel()
	iface := &classinfo.Meta{
		ClassName: "I",
		Type:      "interface",
		Members: map[string]*classinfo.MemberDef{
			"bar": {Type: classinfo.EntityFunction},
		},
	}
	c := &classinfo.Meta{
		ClassName:  "C",
		Interfaces: []string{"I"},
	}

	m := &Merger{Loader: &fakeLoader{metas: map[string]*classinfo.Meta{"I": iface}}}
	if err := m.MergeClass(c); err != nil {
		t.Fatalf("MergeClass: %v", err)
	}

	bar, ok := c.Members["bar"]
	if !ok {
		t.Fatal("expected materialized abstract bar member")
	}
	if !bar.Abstract {
		t.Error("expected bar.abstract == true")
	}
	if !c.Abstract {
		t.Error("expected meta(C).abstract == true")
	}
}

// S2 variant: C itself defines bar concretely -> not abstract.
func TestAbstractClearedByConcreteImplementation(t *testing.T) {
	t.Parallel()
	iface := &classinfo.Meta{
		ClassName: "I",
		Type:      "interface",
		Members: map[string]*classinfo.MemberDef{
			"bar": {Type: classinfo.EntityFunction},
		},
	}
	c := &classinfo.Meta{
		ClassName:  "C",
		Interfaces: []string{"I"},
		Members: map[string]*classinfo.MemberDef{
			"bar": {Type: classinfo.EntityFunction},
		},
	}

	m := &Merger{Loader: &fakeLoader{metas: map[string]*classinfo.Meta{"I": iface}}}
	if err := m.MergeClass(c); err != nil {
		t.Fatalf("MergeClass: %v", err)
	}
	if c.Members["bar"].Abstract {
		t.Error("expected bar.abstract == false when C defines it")
	}
	if c.Abstract {
		t.Error("expected meta(C).abstract == false")
	}
}

// S3: class D with Boolean property enabled.
func TestBooleanPropertyAccessorCompleteness(t *testing.T) {
	t.Parallel()
	d := &classinfo.Meta{
		ClassName: "D",
		Properties: map[string]*classinfo.PropertyDef{
			"enabled": {Check: classinfo.CheckBoolean},
		},
	}

	m := &Merger{Loader: &fakeLoader{}}
	if err := m.MergeClass(d); err != nil {
		t.Fatalf("MergeClass: %v", err)
	}

	for _, name := range []string{"getEnabled", "isEnabled", "setEnabled", "resetEnabled"} {
		if _, ok := d.Members[name]; !ok {
			t.Errorf("expected synthesized member %q", name)
		}
	}
	if d.Members["getEnabled"].Property != classinfo.AccessorGet {
		t.Errorf("getEnabled.property = %q", d.Members["getEnabled"].Property)
	}
	if d.Members["isEnabled"].Property != classinfo.AccessorIs {
		t.Errorf("isEnabled.property = %q", d.Members["isEnabled"].Property)
	}
}

// S4: class E with async property data of type String.
func TestAsyncPropertyAccessors(t *testing.T) {
	t.Parallel()
	e := &classinfo.Meta{
		ClassName: "E",
		Properties: map[string]*classinfo.PropertyDef{
			"data": {Check: "String", Async: true},
		},
	}

	m := &Merger{Loader: &fakeLoader{}}
	if err := m.MergeClass(e); err != nil {
		t.Fatalf("MergeClass: %v", err)
	}

	for _, name := range []string{"getData", "getDataAsync", "setData", "setDataAsync", "resetData"} {
		if _, ok := e.Members[name]; !ok {
			t.Errorf("expected synthesized member %q", name)
		}
	}
	if _, ok := e.Members["isData"]; ok {
		t.Error("did not expect isData for a non-Boolean property")
	}
	if e.Members["getDataAsync"].JSDoc.Return != "Promise" {
		t.Errorf("getDataAsync return type = %q, want Promise", e.Members["getDataAsync"].JSDoc.Return)
	}
}

func TestMixinOriginTracked(t *testing.T) {
	t.Parallel()
	mixin := &classinfo.Meta{
		ClassName: "MMixin",
		Type:      "mixin",
		Members: map[string]*classinfo.MemberDef{
			"helper": {Type: classinfo.EntityFunction},
		},
	}
	c := &classinfo.Meta{
		ClassName: "C",
		Mixins:    []string{"MMixin"},
	}

	m := &Merger{Loader: &fakeLoader{metas: map[string]*classinfo.Meta{"MMixin": mixin}}}
	if err := m.MergeClass(c); err != nil {
		t.Fatalf("MergeClass: %v", err)
	}
	helper, ok := c.Members["helper"]
	if !ok {
		t.Fatal("expected materialized helper member")
	}
	if !helper.Mixin {
		t.Error("expected helper.mixin == true")
	}
}

func TestCyclicAncestryTerminates(t *testing.T) {
	t.Parallel()
	a := &classinfo.Meta{ClassName: "A", SuperClass: "B"}
	b := &classinfo.Meta{ClassName: "B", SuperClass: "A"}

	m := &Merger{Loader: &fakeLoader{metas: map[string]*classinfo.Meta{"A": a, "B": b}}}
	done := make(chan error, 1)
	go func() { done <- m.MergeClass(a) }()
	if err := <-done; err != nil {
		t.Fatalf("MergeClass: %v", err)
	}
}
