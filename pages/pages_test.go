package pages

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tsawler/pagecheck/core"
)

// mockResolver serves objects from a map keyed by object number.
type mockResolver struct {
	objects map[int]core.Object
}

func newMockResolver() *mockResolver {
	return &mockResolver{objects: make(map[int]core.Object)}
}

func (m *mockResolver) add(num int, obj core.Object) core.IndirectRef {
	m.objects[num] = obj
	return core.IndirectRef{Number: num}
}

func (m *mockResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return m.ResolveReference(ref)
	}
	return obj, nil
}

func (m *mockResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return obj, nil
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

// nestedTree builds root(2) -> [branch(3) -> [page 4, page 5], page 6].
func nestedTree(m *mockResolver) {
	m.add(2, core.Dict{
		"Type":      core.Name("Pages"),
		"Kids":      core.Array{ref(3), ref(6)},
		"Count":     core.Int(3),
		"Resources": core.Dict{"Font": core.Dict{"F1": ref(9)}},
		"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)},
	})
	m.add(3, core.Dict{
		"Type":   core.Name("Pages"),
		"Kids":   core.Array{ref(4), ref(5)},
		"Count":  core.Int(2),
		"Rotate": core.Int(90),
	})
	m.add(4, core.Dict{"Type": core.Name("Page"), "Parent": ref(3)})
	m.add(5, core.Dict{"Type": core.Name("Page"), "Parent": ref(3), "Rotate": core.Int(180)})
	m.add(6, core.Dict{"Type": core.Name("Page"), "Parent": ref(2), "Resources": ref(7)})
	m.add(7, core.Dict{"Properties": core.Dict{"OC1": ref(8)}})
}

func TestCatalog(t *testing.T) {
	m := newMockResolver()
	nestedTree(m)
	m.add(10, core.Dict{"OCGs": core.Array{}})

	c := NewCatalog(core.Dict{
		"Type":         core.Name("Catalog"),
		"Version":      core.Name("1.7"),
		"Pages":        ref(2),
		"OCProperties": ref(10),
	}, m)
	if c.Type() != "Catalog" || c.Version() != "1.7" {
		t.Errorf("Type/Version = %q/%q", c.Type(), c.Version())
	}

	tree, err := c.PageTree()
	if err != nil {
		t.Fatal(err)
	}
	if n, err := tree.Count(); err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}

	oc, ok, err := c.OCProperties()
	if err != nil || !ok || !oc.Has("OCGs") {
		t.Errorf("OCProperties = %v %v %v", oc, ok, err)
	}

	if _, ok, err := NewCatalog(core.Dict{}, m).OCProperties(); ok || err != nil {
		t.Error("catalog without /OCProperties should report absent")
	}
	if _, err := NewCatalog(core.Dict{}, m).PageTree(); err == nil {
		t.Error("catalog without /Pages should fail")
	}
}

func TestBuildTree(t *testing.T) {
	m := newMockResolver()
	nestedTree(m)

	root, err := BuildTree(ref(2), m)
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind != NodeBranch || root.Ref != ref(2) || len(root.Kids) != 2 {
		t.Fatalf("root = %+v", root)
	}
	inner := root.Kids[0]
	if inner.Kind != NodeBranch || len(inner.Kids) != 2 || inner.Kids[1].Ref != ref(5) {
		t.Errorf("inner branch = %+v", inner)
	}
	if root.Kids[1].Kind != NodeLeaf || root.Kids[1].Kids != nil {
		t.Errorf("leaf = %+v", root.Kids[1])
	}
}

func TestBuildTreeSkipsBadKids(t *testing.T) {
	m := newMockResolver()
	m.add(2, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  core.Array{ref(3), core.Null{}, ref(99), core.Int(4), ref(5), ref(2)},
		"Count": core.Int(6),
	})
	m.add(3, core.Dict{"Type": core.Name("Page")})
	m.add(5, core.Dict{"Type": core.Name("Template"), "Kids": core.Array{ref(3)}})

	root, err := BuildTree(ref(2), m)
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Kids) != 6 {
		t.Fatalf("got %d kids, want 6", len(root.Kids))
	}
	for _, i := range []int{1, 2, 3, 5} {
		if root.Kids[i] != nil {
			t.Errorf("kid %d should be nil, got %+v", i, root.Kids[i])
		}
	}
	if unknown := root.Kids[4]; unknown.Kind != NodeUnknown || unknown.Kids != nil {
		t.Errorf("unknown node should not be expanded: %+v", unknown)
	}
	if leaves, err := root.Leaves(DefaultMaxPages); err != nil || len(leaves) != 1 {
		t.Errorf("got %d leaves (%v), want 1", len(leaves), err)
	}
}

// sharedChain builds depth branches starting at object 2, each listing the
// next one twice, ending in a single page. The tree has 2^depth leaves.
func sharedChain(m *mockResolver, depth int) {
	for i := 0; i < depth; i++ {
		next := ref(3 + i)
		m.add(2+i, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{next, next}})
	}
	m.add(2+depth, core.Dict{"Type": core.Name("Page")})
}

func TestSharedBranchesAreBuiltOnce(t *testing.T) {
	m := newMockResolver()
	sharedChain(m, 22)

	root, err := BuildTree(ref(2), m)
	if err != nil {
		t.Fatal(err)
	}
	if root.Kids[0] != root.Kids[1] {
		t.Error("a branch reached twice should be one node")
	}

	got, err := root.CountLeaves(1 << 23)
	if err != nil || got != 1<<22 {
		t.Errorf("CountLeaves = %d, %v; want %d", got, err, 1<<22)
	}
	if _, err := root.CountLeaves(DefaultMaxPages); !errors.Is(err, ErrTooManyPages) {
		t.Errorf("CountLeaves over the limit: err = %v", err)
	}
	if _, err := root.Leaves(DefaultMaxPages); !errors.Is(err, ErrTooManyPages) {
		t.Errorf("Leaves over the limit: err = %v", err)
	}
	if _, err := NewPageTree(ref(2), m).Pages(); !errors.Is(err, ErrTooManyPages) {
		t.Errorf("Pages over the limit: err = %v", err)
	}
}

func TestPageTreeMaxPages(t *testing.T) {
	tests := []struct {
		max     int
		wantErr bool
	}{
		{2, true},
		{3, false},
		{0, false}, // ignored, default applies
	}
	for _, tt := range tests {
		m := newMockResolver()
		nestedTree(m)
		tree := NewPageTree(ref(2), m)
		tree.SetMaxPages(tt.max)

		n, err := tree.LeafCount()
		if gotErr := errors.Is(err, ErrTooManyPages); gotErr != tt.wantErr {
			t.Errorf("max %d: LeafCount = %d, %v", tt.max, n, err)
		}
		list, err := tree.Pages()
		if gotErr := errors.Is(err, ErrTooManyPages); gotErr != tt.wantErr {
			t.Errorf("max %d: Pages = %d pages, %v", tt.max, len(list), err)
		}
		if !tt.wantErr && (n != 3 || len(list) != 3) {
			t.Errorf("max %d: got %d leaves and %d pages, want 3", tt.max, n, len(list))
		}
	}
}

func TestBuildTreeRootErrors(t *testing.T) {
	m := newMockResolver()
	m.add(2, core.Int(5))
	if _, err := BuildTree(ref(2), m); err == nil {
		t.Error("expected error for non-dictionary root")
	}
	if _, err := BuildTree(ref(42), m); err == nil {
		t.Error("expected error for unresolvable root")
	}
}

func TestPageTreePagesAndInheritance(t *testing.T) {
	m := newMockResolver()
	nestedTree(m)
	tree := NewPageTree(ref(2), m)

	pages, err := tree.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	wantRefs := []core.IndirectRef{ref(4), ref(5), ref(6)}
	for i, p := range pages {
		if p.Ref() != wantRefs[i] {
			t.Errorf("page %d ref = %v, want %v", i, p.Ref(), wantRefs[i])
		}
	}

	tests := []struct {
		page   int
		rotate int
		font   bool
	}{
		{0, 90, true},
		{1, 180, true},
		{2, 0, false},
	}
	for _, tt := range tests {
		p := pages[tt.page]
		if got := p.Rotate(); got != tt.rotate {
			t.Errorf("page %d Rotate = %d, want %d", tt.page, got, tt.rotate)
		}
		res, err := p.Resources()
		if err != nil {
			t.Fatalf("page %d Resources: %v", tt.page, err)
		}
		if got := res.Has("Font"); got != tt.font {
			t.Errorf("page %d has Font = %v, want %v", tt.page, got, tt.font)
		}
		box, err := p.MediaBox()
		if err != nil || box[2] != 612 {
			t.Errorf("page %d MediaBox = %v, %v", tt.page, box, err)
		}
	}

	props, err := pages[2].Properties()
	if err != nil || !props.Has("OC1") {
		t.Errorf("page 3 Properties = %v, %v", props, err)
	}
	if props, err := pages[0].Properties(); err != nil || props != nil {
		t.Errorf("page 1 Properties = %v, %v", props, err)
	}

	if p, err := tree.GetPage(1); err != nil || p.Ref() != ref(5) {
		t.Errorf("GetPage(1) = %v, %v", p, err)
	}
	if _, err := tree.GetPage(3); err == nil {
		t.Error("expected error for out of range page")
	}
}

func TestInheritedIgnoresNonInheritableKeys(t *testing.T) {
	p := NewPage(ref(4), core.Dict{"Type": core.Name("Page")},
		[]core.Dict{{"Contents": ref(1), "CropBox": core.Array{core.Int(1), core.Int(1), core.Int(2), core.Int(2)}}}, newMockResolver())
	if p.Inherited("Contents") != nil {
		t.Error("Contents must not be inherited")
	}
	box, err := p.CropBox()
	if err != nil || box[0] != 1 {
		t.Errorf("CropBox = %v, %v", box, err)
	}
	if _, err := p.MediaBox(); err == nil {
		t.Error("expected error for missing MediaBox")
	}
}

func TestCountErrors(t *testing.T) {
	m := newMockResolver()
	m.add(2, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}})
	if _, err := NewPageTree(ref(2), m).Count(); err == nil {
		t.Error("expected error for missing /Count")
	}
	m.add(3, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}, "Count": core.Real(2)})
	if _, err := NewPageTree(ref(3), m).Count(); err == nil {
		t.Error("expected error for non-integer /Count")
	}
}

func TestContents(t *testing.T) {
	m := newMockResolver()
	s1 := &core.Stream{Dict: core.Dict{}, Data: []byte("q")}
	s2 := &core.Stream{Dict: core.Dict{}, Data: []byte("Q")}
	m.add(1, s1)
	m.add(2, s2)

	p := NewPage(ref(4), core.Dict{"Contents": core.Array{ref(1), ref(2)}}, nil, m)
	streams, err := p.Contents()
	if err != nil || len(streams) != 2 || streams[1] != s2 {
		t.Errorf("Contents = %v, %v", streams, err)
	}

	p = NewPage(ref(4), core.Dict{}, nil, m)
	if streams, err := p.Contents(); err != nil || streams != nil {
		t.Errorf("empty Contents = %v, %v", streams, err)
	}
}
