package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tsawler/pagecheck/copier"
	"github.com/tsawler/pagecheck/pages"
)

// CopySource is a document CheckCopyOperation can copy pages from.
type CopySource interface {
	copier.PageSource
	NumPages() (int, error)
}

// PageHandle is a page imported into a copy session.
type PageHandle interface {
	SourcePage() int
}

// Overlay is content waiting to be drawn over an imported page.
type Overlay interface {
	Content() *copier.Content
	Commit() error
}

// CopySession is the copy pipeline CheckCopyOperation drives. State must
// report the session's counters without changing them.
type CopySession interface {
	ImportPage(src copier.PageSource, pageNum int) (PageHandle, error)
	CreatePageStamp(page PageHandle) (Overlay, error)
	AddPage(page PageHandle) error
	State() copier.State
	Close() error
}

// SessionOpener opens a copy session writing to sink.
type SessionOpener func(sink io.Writer) (CopySession, error)

// OpenCopierSession is the default SessionOpener.
func OpenCopierSession(sink io.Writer) (CopySession, error) {
	return copierSession{copier.NewSession(sink)}, nil
}

type copierSession struct {
	s *copier.Session
}

func (cs copierSession) ImportPage(src copier.PageSource, pageNum int) (PageHandle, error) {
	p, err := cs.s.ImportPage(src, pageNum)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (cs copierSession) CreatePageStamp(page PageHandle) (Overlay, error) {
	p, ok := page.(*copier.ImportedPage)
	if !ok {
		return nil, copier.ErrForeignPage
	}
	st, err := cs.s.CreatePageStamp(p)
	if err != nil {
		return nil, err
	}
	return stampOverlay{st}, nil
}

func (cs copierSession) AddPage(page PageHandle) error {
	p, ok := page.(*copier.ImportedPage)
	if !ok {
		return copier.ErrForeignPage
	}
	return cs.s.AddPage(p)
}

func (cs copierSession) State() copier.State { return cs.s.State() }
func (cs copierSession) Close() error        { return cs.s.Close() }

type stampOverlay struct {
	st *copier.PageStamp
}

func (o stampOverlay) Content() *copier.Content { return o.st.OverContent() }
func (o stampOverlay) Commit() error             { return o.st.AlterContents() }

// Phase is a step of the per-page copy pipeline.
type Phase int

const (
	PhasePreImport Phase = iota
	PhaseImport
	PhaseStamp
	PhaseAlter
	PhaseFinalize
)

var phaseLabels = [...]string{"Before import", "After import", "After stamp", "After alter", "After add"}
var phaseNames = [...]string{"pre-import", "import", "stamp", "alter", "finalize"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PageStateSnapshot records the session counters right after one phase.
type PageStateSnapshot struct {
	Label              string `json:"label"`
	Page               int    `json:"page"`
	Phase              Phase  `json:"phase"`
	CurrentPageNumber  int    `json:"current_page_number"`
	PageReferencesSize int    `json:"page_references_size"`
}

func (s PageStateSnapshot) String() string {
	return fmt.Sprintf("%-35s | currentPageNumber: %-3d | pageReferences: %-3d",
		s.Label, s.CurrentPageNumber, s.PageReferencesSize)
}

// drift is how far the snapshot is from the expected relationship: one
// more page reference than finalized pages.
func (s PageStateSnapshot) drift() int {
	return s.PageReferencesSize - (s.CurrentPageNumber + 1)
}

// Outcome tells a detected counter mismatch apart from a simulation that
// could not run.
type Outcome int

const (
	OutcomeClean Outcome = iota
	OutcomeMismatch
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// CopyOperationResult is the outcome of CheckCopyOperation.
type CopyOperationResult struct {
	File            string              `json:"file"`
	TotalPages      int                 `json:"total_pages"`
	ProblematicPage int                 `json:"problematic_page"`
	HasMismatch     bool                `json:"has_mismatch"`
	Outcome         Outcome             `json:"outcome"`
	Snapshots       []PageStateSnapshot `json:"snapshots"`
	Message         string              `json:"message"`
	Err             error               `json:"-"`
}

// MarshalJSON adds the error text.
func (r CopyOperationResult) MarshalJSON() ([]byte, error) {
	type plain CopyOperationResult
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(r), errorText(r.Err)})
}

func (r CopyOperationResult) String() string {
	var sb strings.Builder
	if !r.HasMismatch {
		fmt.Fprintf(&sb, "✓ NO COPY MISMATCH in '%s'\n", r.File)
		fmt.Fprintf(&sb, "   Total pages processed: %d\n", r.TotalPages)
		fmt.Fprintf(&sb, "   Message: %s\n", r.Message)
		return sb.String()
	}

	fmt.Fprintf(&sb, "⚠ COPY MISMATCH in '%s':\n", r.File)
	fmt.Fprintf(&sb, "   Total pages: %d\n", r.TotalPages)
	fmt.Fprintf(&sb, "   Problematic page: %d\n", r.ProblematicPage)
	fmt.Fprintf(&sb, "   Message: %s\n\n", r.Message)
	sb.WriteString("   Internal State Timeline:\n")
	sb.WriteString("   " + strings.Repeat("-", 85) + "\n")

	// The failing page and the one before it.
	start := max(0, (r.ProblematicPage-2)*5)
	end := min(len(r.Snapshots), r.ProblematicPage*5)
	for i := start; i < end; i++ {
		s := r.Snapshots[i]
		sb.WriteString("   " + s.String())
		if s.Phase == PhaseAlter && s.drift() != 0 {
			fmt.Fprintf(&sb, " ⚠ DIFF: %d", s.drift())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// CheckCopyOperation copies every page of src into a new document through
// a copy session, stamping "Page N" on each, and snapshots the session
// counters after each of the five phases of every page. The copy is
// written to sink, which may be nil.
func (c *Checker) CheckCopyOperation(name string, src CopySource, sink io.Writer) (result CopyOperationResult) {
	if sink == nil {
		sink = io.Discard
	}
	defer func() {
		if r := recover(); r != nil {
			result = c.copyFailure(name, fmt.Errorf("panic: %v", r))
		}
	}()

	n, err := src.NumPages()
	if err != nil {
		return c.copyFailure(name, err)
	}
	if n > c.maxPages {
		return c.copyFailure(name, fmt.Errorf("%w: %d pages, limit %d", pages.ErrTooManyPages, n, c.maxPages))
	}
	c.logger.Info("simulating page copy", "file", name, "pages", n)

	session, err := c.opener(sink)
	if err != nil {
		return c.copyFailure(name, fmt.Errorf("open copy session: %w", err))
	}
	closed := false
	defer func() {
		if !closed {
			session.Close()
		}
	}()

	snapshots := make([]PageStateSnapshot, 0, 5*n)
	snap := func(phase Phase, page int) PageStateSnapshot {
		st := session.State()
		s := PageStateSnapshot{
			Label:              fmt.Sprintf("%s %d", phaseLabels[phase], page),
			Page:               page,
			Phase:              phase,
			CurrentPageNumber:  st.CurrentPageNumber,
			PageReferencesSize: st.PageReferences,
		}
		snapshots = append(snapshots, s)
		return s
	}

	for i := 1; i <= n; i++ {
		snap(PhasePreImport, i)
		page, err := session.ImportPage(src, i)
		if err != nil {
			return c.copyFailure(name, err)
		}
		snap(PhaseImport, i)

		overlay, err := session.CreatePageStamp(page)
		if err != nil {
			return c.copyFailure(name, fmt.Errorf("stamp page %d: %w", i, err))
		}
		snap(PhaseStamp, i)

		overlay.Content().ShowTextAt("Helvetica", 10, 50, 50, fmt.Sprintf("Page %d", i))
		if err := overlay.Commit(); err != nil {
			return c.copyFailure(name, fmt.Errorf("alter page %d: %w", i, err))
		}
		altered := snap(PhaseAlter, i)

		if err := session.AddPage(page); err != nil {
			return c.copyFailure(name, fmt.Errorf("add page %d: %w", i, err))
		}
		snap(PhaseFinalize, i)

		if altered.drift() != 0 {
			c.logger.Warn("copy state mismatch",
				"file", name,
				"page", i,
				"current_page_number", altered.CurrentPageNumber,
				"page_references", altered.PageReferencesSize)
			closed = true
			if err := session.Close(); err != nil {
				c.logger.Error("close copy session", "file", name, "error", err)
			}
			return CopyOperationResult{
				File:            name,
				TotalPages:      n,
				ProblematicPage: i,
				HasMismatch:     true,
				Outcome:         OutcomeMismatch,
				Snapshots:       snapshots,
				Message: fmt.Sprintf("mismatch at page %d: currentPageNumber=%d, pageReferences=%d",
					i, altered.CurrentPageNumber, altered.PageReferencesSize),
			}
		}
	}

	closed = true
	if err := session.Close(); err != nil {
		return c.copyFailure(name, fmt.Errorf("close copy session: %w", err))
	}
	c.logger.Info("no copy state mismatch", "file", name)
	return CopyOperationResult{
		File:            name,
		TotalPages:      n,
		ProblematicPage: -1,
		Outcome:         OutcomeClean,
		Snapshots:       snapshots,
		Message:         "no issues detected",
	}
}

func (c *Checker) copyFailure(name string, err error) CopyOperationResult {
	c.logger.Error("copy simulation failed", "file", name, "error", err)
	return CopyError(name, err)
}

// CopyError returns the result CheckCopyOperation gives when the
// simulation cannot run.
func CopyError(name string, err error) CopyOperationResult {
	return CopyOperationResult{
		File:            name,
		TotalPages:      -1,
		ProblematicPage: -1,
		HasMismatch:     true,
		Outcome:         OutcomeFailed,
		Snapshots:       []PageStateSnapshot{},
		Message:         "simulation failed: " + err.Error(),
		Err:             err,
	}
}
