package copier

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pagecheck/core"
	"github.com/tsawler/pagecheck/pages"
)

var (
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("copy session closed")
	// ErrForeignPage is returned when a page imported by another session
	// is handed to this one.
	ErrForeignPage = errors.New("page belongs to another copy session")
	// ErrPageAlreadyAdded is returned when a page is finalized twice.
	ErrPageAlreadyAdded = errors.New("page already added")
)

// PageSource is a document pages can be imported from. Implementations
// must be comparable, since imported objects are shared per source.
type PageSource interface {
	GetPage(index int) (*pages.Page, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// State is a snapshot of the session's bookkeeping counters.
type State struct {
	// CurrentPageNumber counts pages finalized with AddPage.
	CurrentPageNumber int
	// PageReferences counts page references registered by ImportPage.
	PageReferences int
}

// Session collects imported pages and writes them as a new document when
// closed. It is not safe for concurrent use.
type Session struct {
	w       io.Writer
	version string

	objects  map[int]core.Object
	next     int
	pagesNum int

	imported map[PageSource]map[core.IndirectRef]core.IndirectRef
	stdFonts map[string]core.IndirectRef
	pageRefs []core.IndirectRef
	kids     core.Array
	added    map[core.IndirectRef]bool
	current  int
	closed   bool
}

// NewSession starts a session that writes to w on Close.
func NewSession(w io.Writer) *Session {
	return &Session{
		w:        w,
		version:  "1.7",
		objects:  make(map[int]core.Object),
		next:     2,
		pagesNum: 1,
		imported: make(map[PageSource]map[core.IndirectRef]core.IndirectRef),
		stdFonts: make(map[string]core.IndirectRef),
		added:    make(map[core.IndirectRef]bool),
	}
}

// State returns the current counters. It has no side effects.
func (s *Session) State() State {
	return State{CurrentPageNumber: s.current, PageReferences: len(s.pageRefs)}
}

// ImportedPage is a page copied into the session but not necessarily
// finalized yet.
type ImportedPage struct {
	session *Session
	ref     core.IndirectRef
	dict    core.Dict
	source  int
}

// Ref returns the page's reference in the output document.
func (p *ImportedPage) Ref() core.IndirectRef { return p.ref }

// SourcePage returns the 1-based page number in the source document.
func (p *ImportedPage) SourcePage() int { return p.source }

func (s *Session) alloc(obj core.Object) core.IndirectRef {
	ref := core.IndirectRef{Number: s.next}
	s.objects[s.next] = obj
	s.next++
	return ref
}

// ImportPage copies page pageNum (1-based) of src and every object it
// references into the session, and registers one page reference.
func (s *Session) ImportPage(src PageSource, pageNum int) (*ImportedPage, error) {
	if s.closed {
		return nil, ErrClosed
	}
	page, err := src.GetPage(pageNum - 1)
	if err != nil {
		return nil, fmt.Errorf("import page %d: %w", pageNum, err)
	}

	memo, ok := s.imported[src]
	if !ok {
		memo = make(map[core.IndirectRef]core.IndirectRef)
		s.imported[src] = memo
	}

	dict := core.Dict{}
	ref := s.alloc(dict)
	if page.Ref() != (core.IndirectRef{}) {
		memo[page.Ref()] = ref
	}

	c := importer{s: s, src: src, memo: memo}
	for _, key := range page.Dict().Keys() {
		if key == "Parent" {
			continue
		}
		v, err := c.copy(page.Dict()[key])
		if err != nil {
			return nil, fmt.Errorf("import page %d /%s: %w", pageNum, key, err)
		}
		dict[key] = v
	}
	for _, key := range []string{"Resources", "MediaBox", "CropBox", "Rotate"} {
		if dict.Has(key) {
			continue
		}
		if inherited := page.Inherited(key); inherited != nil {
			v, err := c.copy(inherited)
			if err != nil {
				return nil, fmt.Errorf("import page %d inherited /%s: %w", pageNum, key, err)
			}
			dict[key] = v
		}
	}
	dict["Type"] = core.Name("Page")
	dict["Parent"] = core.IndirectRef{Number: s.pagesNum}

	s.pageRefs = append(s.pageRefs, ref)
	return &ImportedPage{session: s, ref: ref, dict: dict, source: pageNum}, nil
}

// importer deep-copies objects from one source, renumbering references.
type importer struct {
	s    *Session
	src  PageSource
	memo map[core.IndirectRef]core.IndirectRef
}

func (c *importer) copy(obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		if ref, ok := c.memo[v]; ok {
			return ref, nil
		}
		target, err := c.src.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", v, err)
		}
		// Links to other parts of the page tree would drag in the whole
		// source document.
		if d, ok := target.(core.Dict); ok && pages.KindOf(d) != pages.NodeUnknown {
			return core.Null{}, nil
		}
		ref := c.s.alloc(core.Null{})
		c.memo[v] = ref
		copied, err := c.copy(target)
		if err != nil {
			return nil, err
		}
		c.s.objects[ref.Number] = copied
		return ref, nil

	case core.Dict:
		out := make(core.Dict, len(v))
		for k, val := range v {
			cv, err := c.copy(val)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, val := range v {
			cv, err := c.copy(val)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil

	case *core.Stream:
		dict := v.Dict.Clone()
		delete(dict, "Length")
		cd, err := c.copy(dict)
		if err != nil {
			return nil, err
		}
		return &core.Stream{Dict: cd.(core.Dict), Data: v.Data}, nil
	}
	return obj, nil
}

// AddPage finalizes an imported page: it is appended to the output page
// tree and the finalized-page counter advances.
func (s *Session) AddPage(p *ImportedPage) error {
	if s.closed {
		return ErrClosed
	}
	if p == nil || p.session != s {
		return ErrForeignPage
	}
	if s.added[p.ref] {
		return fmt.Errorf("page %d: %w", p.source, ErrPageAlreadyAdded)
	}
	s.added[p.ref] = true
	s.kids = append(s.kids, p.ref)
	s.current++
	return nil
}

// Close writes the document to the session's writer. Pages that were
// imported but never added are not part of the page tree. Closing twice
// is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.objects[s.pagesNum] = core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  s.kids,
		"Count": core.Int(len(s.kids)),
	}
	root := s.alloc(core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": core.IndirectRef{Number: s.pagesNum},
	})
	info := s.alloc(core.Dict{"Producer": core.String("pagecheck")})

	var buf bytes.Buffer
	writeDocument(&buf, s.version, s.objects, s.next, root, info)
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write copy output: %w", err)
	}
	return nil
}
