package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/pagecheck/core"
	"github.com/tsawler/pagecheck/pages"
)

// ErrInvalidPDF is wrapped by every error caused by a malformed header or
// unreadable cross-reference data.
var ErrInvalidPDF = errors.New("invalid PDF")

// PDFVersion is the version from the file header.
type PDFVersion struct {
	Major int
	Minor int
}

func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader reads objects out of one PDF document.
type Reader struct {
	src     io.ReaderAt
	size    int64
	closer  io.Closer
	version PDFVersion
	xref    *core.XRefTable

	cache   map[int]core.Object
	objStms map[int]*core.ObjectStream
	loading map[int]bool

	catalog  *pages.Catalog
	tree     *pages.PageTree
	maxPages int
}

var _ pages.ObjectResolver = (*Reader)(nil)

// Open opens the named file.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := newReader(f, info.Size(), f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return r, nil
}

// FromBytes reads a document held in memory.
func FromBytes(data []byte) (*Reader, error) {
	return newReader(bytes.NewReader(data), int64(len(data)), nil)
}

// NewReader reads a document from rs. If rs does not also implement
// io.ReaderAt its content is read into memory first.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if ra, ok := rs.(io.ReaderAt); ok {
		return newReader(ra, size, nil)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, err
	}
	return FromBytes(data)
}

func newReader(src io.ReaderAt, size int64, closer io.Closer) (*Reader, error) {
	r := &Reader{
		src:     src,
		size:    size,
		closer:  closer,
		cache:   make(map[int]core.Object),
		objStms: make(map[int]*core.ObjectStream),
		loading: make(map[int]bool),
	}
	v, err := r.parseHeader()
	if err != nil {
		return nil, err
	}
	r.version = v

	tables, err := core.NewXRefParser(io.NewSectionReader(src, 0, size)).ParseAllXRefs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	r.xref = core.MergeXRefTables(tables...)
	if r.xref.Trailer.Has("Encrypt") {
		return nil, fmt.Errorf("%w: encrypted documents are not supported", ErrInvalidPDF)
	}
	return r, nil
}

var headerVersion = regexp.MustCompile(`^%PDF-(\d+)\.(\d+)`)

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

func (r *Reader) parseHeader() (PDFVersion, error) {
	n := int64(headerWindow)
	if r.size < n {
		n = r.size
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, 0); err != nil && err != io.EOF {
		return PDFVersion{}, err
	}
	// Some producers put junk before the header.
	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 {
		return PDFVersion{}, fmt.Errorf("%w: missing %%PDF- header", ErrInvalidPDF)
	}
	m := headerVersion.FindSubmatch(buf[idx:])
	if m == nil {
		return PDFVersion{}, fmt.Errorf("%w: malformed header %q", ErrInvalidPDF, firstLine(buf[idx:]))
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexAny(b, "\r\n"); i >= 0 {
		b = b[:i]
	}
	if len(b) > 16 {
		b = b[:16]
	}
	return b
}

// Close releases the underlying file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer != nil {
		c := r.closer
		r.closer = nil
		return c.Close()
	}
	return nil
}

// Version returns the header version.
func (r *Reader) Version() PDFVersion { return r.version }

// Trailer returns the merged trailer dictionary.
func (r *Reader) Trailer() core.Dict { return r.xref.Trailer }

// Size returns the document length in bytes.
func (r *Reader) Size() int64 { return r.size }

// NumObjects returns the trailer /Size.
func (r *Reader) NumObjects() int {
	n, _ := r.xref.Trailer.GetInt("Size")
	return int(n)
}

// GetObject loads object num, from its byte offset or from the object
// stream holding it.
func (r *Reader) GetObject(num int) (core.Object, error) {
	if obj, ok := r.cache[num]; ok {
		return obj, nil
	}
	e, ok := r.xref.Get(num)
	if !ok || !e.InUse {
		// References to free or missing objects are references to null.
		return core.Null{}, nil
	}
	if r.loading[num] {
		return nil, fmt.Errorf("object %d refers to itself while loading", num)
	}
	r.loading[num] = true
	defer delete(r.loading, num)

	var obj core.Object
	var err error
	if e.Compressed {
		obj, err = r.compressedObject(num, e)
	} else {
		obj, err = r.objectAt(num, e.Offset)
	}
	if err != nil {
		return nil, err
	}
	r.cache[num] = obj
	return obj, nil
}

func (r *Reader) objectAt(num int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= r.size {
		return nil, fmt.Errorf("object %d: offset %d outside file", num, offset)
	}
	p := core.NewParser(io.NewSectionReader(r.src, offset, r.size-offset))
	p.SetReferenceResolver(r)
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	if ind.Ref.Number != num {
		return nil, fmt.Errorf("object %d: offset %d holds object %d", num, offset, ind.Ref.Number)
	}
	return ind.Object, nil
}

func (r *Reader) compressedObject(num int, e *core.XRefEntry) (core.Object, error) {
	stm, ok := r.objStms[e.StreamNumber]
	if !ok {
		obj, err := r.GetObject(e.StreamNumber)
		if err != nil {
			return nil, fmt.Errorf("object %d: load object stream %d: %w", num, e.StreamNumber, err)
		}
		stream, isStream := obj.(*core.Stream)
		if !isStream {
			return nil, fmt.Errorf("object %d: object stream %d is %s", num, e.StreamNumber, obj.Type())
		}
		if stm, err = core.NewObjectStream(stream); err != nil {
			return nil, fmt.Errorf("object %d: %w", num, err)
		}
		r.objStms[e.StreamNumber] = stm
	}
	obj, err := stm.Object(num, e.StreamIndex)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	return obj, nil
}

// ResolveReference loads the object ref points to.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve follows obj if it is a reference and returns it unchanged
// otherwise. A nil obj resolves to nil.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// GetCatalog returns the catalog dictionary named by the trailer /Root.
func (r *Reader) GetCatalog() (core.Dict, error) {
	root := r.xref.Trailer.Get("Root")
	if root == nil {
		return nil, fmt.Errorf("%w: trailer has no /Root", ErrInvalidPDF)
	}
	obj, err := r.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: catalog is %s, want dictionary", ErrInvalidPDF, obj.Type())
	}
	return dict, nil
}

// Catalog returns the catalog wrapper.
func (r *Reader) Catalog() (*pages.Catalog, error) {
	if r.catalog == nil {
		dict, err := r.GetCatalog()
		if err != nil {
			return nil, err
		}
		r.catalog = pages.NewCatalog(dict, r)
	}
	return r.catalog, nil
}

// GetInfo returns the document information dictionary, or nil.
func (r *Reader) GetInfo() (core.Dict, error) {
	obj, err := r.Resolve(r.xref.Trailer.Get("Info"))
	if err != nil {
		return nil, fmt.Errorf("load info: %w", err)
	}
	info, _ := obj.(core.Dict)
	return info, nil
}

// Title returns the decoded /Title from the information dictionary.
func (r *Reader) Title() string {
	info, err := r.GetInfo()
	if err != nil || info == nil {
		return ""
	}
	obj, err := r.Resolve(info.Get("Title"))
	if err != nil {
		return ""
	}
	s, _ := obj.(core.String)
	return core.DecodeTextString(s)
}

func (r *Reader) pageTree() (*pages.PageTree, error) {
	if r.tree != nil {
		return r.tree, nil
	}
	c, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	if r.tree, err = c.PageTree(); err != nil {
		return nil, err
	}
	r.tree.SetMaxPages(r.maxPages)
	return r.tree, nil
}

// SetMaxPages bounds how many leaf pages the page tree may expand to;
// beyond it, page access fails with pages.ErrTooManyPages. The default is
// pages.DefaultMaxPages.
func (r *Reader) SetMaxPages(n int) {
	r.maxPages = n
	if r.tree != nil {
		r.tree.SetMaxPages(n)
	}
}

// DeclaredPageCount returns the /Count of the page-tree root.
func (r *Reader) DeclaredPageCount() (int, error) {
	t, err := r.pageTree()
	if err != nil {
		return 0, err
	}
	return t.Count()
}

// PageTreeRoot returns the page-tree hierarchy as linked in the file.
func (r *Reader) PageTreeRoot() (*pages.Node, error) {
	t, err := r.pageTree()
	if err != nil {
		return nil, err
	}
	return t.Root()
}

// Pages returns the leaf pages in document order.
func (r *Reader) Pages() ([]*pages.Page, error) {
	t, err := r.pageTree()
	if err != nil {
		return nil, err
	}
	return t.Pages()
}

// NumPages returns the number of leaf pages actually reachable from the
// root, which may differ from DeclaredPageCount.
func (r *Reader) NumPages() (int, error) {
	t, err := r.pageTree()
	if err != nil {
		return 0, err
	}
	return t.LeafCount()
}

// GetPage returns the page at the 0-based index.
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	t, err := r.pageTree()
	if err != nil {
		return nil, err
	}
	return t.GetPage(index)
}

// OCProperties returns the catalog's optional content properties.
func (r *Reader) OCProperties() (core.Dict, bool, error) {
	c, err := r.Catalog()
	if err != nil {
		return nil, false, err
	}
	return c.OCProperties()
}
