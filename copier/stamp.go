package copier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsawler/pagecheck/contentstream"
	"github.com/tsawler/pagecheck/core"
	"github.com/tsawler/pagecheck/font"
)

var (
	// ErrStampCommitted is returned when AlterContents runs a second time.
	ErrStampCommitted = errors.New("page stamp already committed")
	// ErrNonStandardFont is returned for overlay text set in a font other
	// than the standard 14, which would need an embedded font program.
	ErrNonStandardFont = errors.New("not a standard 14 font")
)

// PageStamp collects content to draw over one imported page.
type PageStamp struct {
	page      *ImportedPage
	over      *Content
	committed bool
}

// CreatePageStamp opens a stamp on p. Nothing changes on the page until
// AlterContents is called.
func (s *Session) CreatePageStamp(p *ImportedPage) (*PageStamp, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if p == nil || p.session != s {
		return nil, ErrForeignPage
	}
	return &PageStamp{page: p}, nil
}

// OverContent returns the layer drawn above the page's existing content.
func (st *PageStamp) OverContent() *Content {
	if st.over == nil {
		st.over = &Content{}
	}
	return st.over
}

// AlterContents commits the over content to the page. The original content
// is wrapped in q/Q so its graphics state cannot leak into the overlay, and
// every font the overlay uses is added to the page's font resources.
func (st *PageStamp) AlterContents() error {
	s := st.page.session
	if s.closed {
		return ErrClosed
	}
	if st.committed {
		return ErrStampCommitted
	}
	st.committed = true
	if st.over == nil || st.over.Len() == 0 {
		return nil
	}

	ops, err := contentstream.NewParser(st.over.Bytes()).Parse()
	if err != nil {
		return fmt.Errorf("overlay content: %w", err)
	}
	if err := contentstream.CheckNesting(ops); err != nil {
		return fmt.Errorf("overlay content: %w", err)
	}
	for _, base := range st.over.Fonts() {
		if !font.IsStandard(base) {
			return fmt.Errorf("overlay content: %w: %s", ErrNonStandardFont, base)
		}
	}

	dict := st.page.dict
	res, err := s.pageResources(dict)
	if err != nil {
		return err
	}
	fonts := core.Dict{}
	if existing, ok := s.deref(res.Get("Font")).(core.Dict); ok {
		fonts = existing.Clone()
	}
	for _, base := range st.over.Fonts() {
		name := string(fontResourceName(base))
		ref := s.standardFont(base)
		if prev, ok := fonts[name]; ok && prev != ref {
			return fmt.Errorf("font resource /%s already used by the page", name)
		}
		fonts[name] = ref
	}
	res["Font"] = fonts
	dict["Resources"] = res

	var original core.Array
	switch v := s.deref(dict.Get("Contents")).(type) {
	case *core.Stream:
		original = core.Array{dict.Get("Contents")}
	case core.Array:
		original = v
	}
	pre := s.alloc(&core.Stream{Dict: core.Dict{}, Data: []byte("q\n")})
	post := s.alloc(&core.Stream{
		Dict: core.Dict{},
		Data: append([]byte("Q\n"), st.over.Bytes()...),
	})
	contents := make(core.Array, 0, len(original)+2)
	contents = append(contents, pre)
	contents = append(contents, original...)
	contents = append(contents, post)
	dict["Contents"] = contents
	return nil
}

// pageResources returns a private copy of the page's resource dictionary.
// Imported resources are often shared between pages, so they are never
// modified in place.
func (s *Session) pageResources(page core.Dict) (core.Dict, error) {
	switch v := s.deref(page.Get("Resources")).(type) {
	case nil, core.Null:
		return core.Dict{}, nil
	case core.Dict:
		return v.Clone(), nil
	default:
		return nil, fmt.Errorf("page /Resources is %s, want dictionary", v.Type())
	}
}

// deref follows a reference into the session's own object table.
func (s *Session) deref(obj core.Object) core.Object {
	if ref, ok := obj.(core.IndirectRef); ok {
		return s.objects[ref.Number]
	}
	return obj
}

// standardFont returns the session-wide font object for a standard 14
// base font, creating it on first use.
func (s *Session) standardFont(base string) core.IndirectRef {
	if ref, ok := s.stdFonts[base]; ok {
		return ref
	}
	ref := s.alloc(core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name(base),
		"Encoding": core.Name("WinAnsiEncoding"),
	})
	s.stdFonts[base] = ref
	return ref
}

func fontResourceName(base string) core.Name {
	var b strings.Builder
	b.WriteString("PC")
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return core.Name(b.String())
}
