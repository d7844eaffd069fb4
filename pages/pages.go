package pages

import (
	"fmt"

	"github.com/tsawler/pagecheck/core"
)

// PageTree gives access to the declared page count and the flattened
// list of leaf pages.
type PageTree struct {
	root     core.Object
	resolver ObjectResolver
	maxPages int
	node     *Node
	pages    []*Page
}

// NewPageTree wraps the /Pages entry of a catalog, either a reference or a
// direct dictionary.
func NewPageTree(root core.Object, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver, maxPages: DefaultMaxPages}
}

// SetMaxPages changes how many leaves Pages and LeafCount accept before
// failing with ErrTooManyPages. Values below 1 are ignored.
func (t *PageTree) SetMaxPages(n int) {
	if n > 0 && n != t.maxPages {
		t.maxPages = n
		t.pages = nil
	}
}

// Root returns the resolved node hierarchy.
func (t *PageTree) Root() (*Node, error) {
	if t.node == nil {
		n, err := BuildTree(t.root, t.resolver)
		if err != nil {
			return nil, err
		}
		t.node = n
	}
	return t.node, nil
}

// Count returns the /Count declared on the root node. It does not look at
// the leaves.
func (t *PageTree) Count() (int, error) {
	root, err := t.Root()
	if err != nil {
		return 0, err
	}
	obj, err := t.resolver.Resolve(root.Dict.Get("Count"))
	if err != nil {
		return 0, fmt.Errorf("resolve /Count: %w", err)
	}
	count, ok := obj.(core.Int)
	if !ok {
		return 0, fmt.Errorf("page tree /Count is %s, want integer", typeOf(obj))
	}
	return int(count), nil
}

// LeafCount returns the number of leaf pages reachable from the root.
func (t *PageTree) LeafCount() (int, error) {
	root, err := t.Root()
	if err != nil {
		return 0, err
	}
	if root.Kind == NodeLeaf {
		return 1, nil
	}
	return root.CountLeaves(t.maxPages)
}

// Pages returns every leaf page in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages != nil {
		return t.pages, nil
	}
	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	leaves, err := root.Leaves(t.maxPages)
	if err != nil {
		return nil, err
	}
	pages := make([]*Page, len(leaves))
	for i, l := range leaves {
		pages[i] = NewPage(l.Leaf.Ref, l.Leaf.Dict, l.Ancestors, t.resolver)
	}
	t.pages = pages
	return pages, nil
}

// GetPage returns the page at the 0-based index.
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", index, len(pages))
	}
	return pages[index], nil
}

// Page is a leaf of the page tree.
type Page struct {
	ref       core.IndirectRef
	dict      core.Dict
	ancestors []core.Dict
	resolver  ObjectResolver
}

// NewPage builds a page from its dictionary and its ancestor /Pages
// dictionaries, nearest first.
func NewPage(ref core.IndirectRef, dict core.Dict, ancestors []core.Dict, resolver ObjectResolver) *Page {
	return &Page{ref: ref, dict: dict, ancestors: ancestors, resolver: resolver}
}

// Ref returns the page object's reference, zero for a direct dictionary.
func (p *Page) Ref() core.IndirectRef { return p.ref }

// Dict returns the page dictionary itself.
func (p *Page) Dict() core.Dict { return p.dict }

// Inherited looks key up on the page and then on each ancestor. Only
// Resources, MediaBox, CropBox and Rotate are inheritable in PDF; other
// keys are found on the page alone.
func (p *Page) Inherited(key string) core.Object {
	if v := p.dict.Get(key); v != nil {
		return v
	}
	switch key {
	case "Resources", "MediaBox", "CropBox", "Rotate":
	default:
		return nil
	}
	for _, a := range p.ancestors {
		if v := a.Get(key); v != nil {
			return v
		}
	}
	return nil
}

// Resources returns the effective resource dictionary, or nil when the
// page and its ancestors have none.
func (p *Page) Resources() (core.Dict, error) {
	obj, err := p.resolver.Resolve(p.Inherited("Resources"))
	if err != nil {
		return nil, fmt.Errorf("resolve /Resources: %w", err)
	}
	if core.IsNull(obj) {
		return nil, nil
	}
	res, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/Resources is %s, want dictionary", obj.Type())
	}
	return res, nil
}

// Properties returns the /Properties sub-dictionary of the effective
// resources, which maps marked-content names to property lists such as
// optional content groups. It is nil when absent.
func (p *Page) Properties() (core.Dict, error) {
	res, err := p.Resources()
	if err != nil || res == nil {
		return nil, err
	}
	obj, err := p.resolver.Resolve(res.Get("Properties"))
	if err != nil {
		return nil, fmt.Errorf("resolve /Properties: %w", err)
	}
	props, _ := obj.(core.Dict)
	return props, nil
}

// MediaBox returns the effective media box.
func (p *Page) MediaBox() ([]float64, error) {
	return p.box("MediaBox")
}

// CropBox returns the effective crop box, defaulting to the media box.
func (p *Page) CropBox() ([]float64, error) {
	if p.Inherited("CropBox") == nil {
		return p.MediaBox()
	}
	return p.box("CropBox")
}

func (p *Page) box(key string) ([]float64, error) {
	obj, err := p.resolver.Resolve(p.Inherited(key))
	if err != nil {
		return nil, fmt.Errorf("resolve /%s: %w", key, err)
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("/%s is not a 4-element array", key)
	}
	box := make([]float64, 4)
	for i, v := range arr {
		switch n := v.(type) {
		case core.Int:
			box[i] = float64(n)
		case core.Real:
			box[i] = float64(n)
		default:
			return nil, fmt.Errorf("/%s[%d] is %s, want number", key, i, typeOf(v))
		}
	}
	return box, nil
}

// Rotate returns the effective rotation in degrees.
func (p *Page) Rotate() int {
	r, _ := p.Inherited("Rotate").(core.Int)
	return int(r)
}

// Contents returns the page's content streams in drawing order.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj, err := p.resolver.Resolve(p.dict.Get("Contents"))
	if err != nil {
		return nil, fmt.Errorf("resolve /Contents: %w", err)
	}
	var items core.Array
	switch v := obj.(type) {
	case nil, core.Null:
		return nil, nil
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		items = v
	default:
		return nil, fmt.Errorf("/Contents is %s, want stream or array", v.Type())
	}

	streams := make([]*core.Stream, 0, len(items))
	for i, item := range items {
		resolved, err := p.resolver.Resolve(item)
		if err != nil {
			return nil, fmt.Errorf("resolve /Contents[%d]: %w", i, err)
		}
		if s, ok := resolved.(*core.Stream); ok {
			streams = append(streams, s)
		}
	}
	return streams, nil
}
