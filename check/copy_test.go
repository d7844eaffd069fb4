package check

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/tsawler/pagecheck/copier"
	"github.com/tsawler/pagecheck/core"
	"github.com/tsawler/pagecheck/internal/pdftest"
	"github.com/tsawler/pagecheck/pages"
	"github.com/tsawler/pagecheck/reader"
)

func TestCheckCopyOperationClean(t *testing.T) {
	src := openBytes(t, pdftest.FlatDocument(3).Bytes())
	var out bytes.Buffer

	got := New().CheckCopyOperation("three.pdf", src, &out)
	if got.Err != nil {
		t.Fatalf("Err = %v", got.Err)
	}
	if got.TotalPages != 3 || got.ProblematicPage != -1 || got.HasMismatch || got.Outcome != OutcomeClean {
		t.Errorf("got %d/%d/%v/%v, want 3/-1/false/clean", got.TotalPages, got.ProblematicPage, got.HasMismatch, got.Outcome)
	}
	if got.Message != "no issues detected" {
		t.Errorf("Message = %q", got.Message)
	}

	want := [][2]int{
		{0, 0}, {0, 1}, {0, 1}, {0, 1}, {1, 1},
		{1, 1}, {1, 2}, {1, 2}, {1, 2}, {2, 2},
		{2, 2}, {2, 3}, {2, 3}, {2, 3}, {3, 3},
	}
	if len(got.Snapshots) != len(want) {
		t.Fatalf("len(Snapshots) = %d, want %d", len(got.Snapshots), len(want))
	}
	for i, s := range got.Snapshots {
		if [2]int{s.CurrentPageNumber, s.PageReferencesSize} != want[i] {
			t.Errorf("snapshot %d (%s) = (%d,%d), want %v", i, s.Label, s.CurrentPageNumber, s.PageReferencesSize, want[i])
		}
		if s.Page != i/5+1 || s.Phase != Phase(i%5) {
			t.Errorf("snapshot %d page/phase = %d/%v", i, s.Page, s.Phase)
		}
	}
	labels := []string{"Before import 2", "After import 2", "After stamp 2", "After alter 2", "After add 2"}
	for i, l := range labels {
		if got.Snapshots[5+i].Label != l {
			t.Errorf("label %d = %q, want %q", 5+i, got.Snapshots[5+i].Label, l)
		}
	}

	copied, err := reader.FromBytes(out.Bytes())
	if err != nil {
		t.Fatalf("copy output does not re-open: %v", err)
	}
	n, err := copied.NumPages()
	if err != nil || n != 3 {
		t.Errorf("copy has %d pages, %v", n, err)
	}
	if !bytes.Contains(out.Bytes(), []byte("(Page 3) Tj")) {
		t.Error("copy is missing the page 3 overlay")
	}
}

func TestCheckCopyOperationXRefStream(t *testing.T) {
	data := pdftest.FlatDocument(2).UseXRefStream(pdftest.PagesNum, pdftest.FontNum, pdftest.PageNum(1)).Bytes()
	got := New().CheckCopyOperation("packed.pdf", openBytes(t, data), nil)
	if got.Outcome != OutcomeClean || len(got.Snapshots) != 10 {
		t.Errorf("got outcome %v with %d snapshots: %s", got.Outcome, len(got.Snapshots), got.Message)
	}
}

// countingSession keeps its own counters and can be told to skip the
// page reference for one page or to fail at a given step.
type countingSession struct {
	refs, current int
	skipRefAt     int
	failImportAt  int
	panicOnStamp  bool
	closeErr      error
	closed        bool
}

type countedPage int

func (p countedPage) SourcePage() int { return int(p) }

type nopOverlay struct{ c copier.Content }

func (o *nopOverlay) Content() *copier.Content { return &o.c }
func (o *nopOverlay) Commit() error             { return nil }

func (s *countingSession) ImportPage(_ copier.PageSource, pageNum int) (PageHandle, error) {
	if pageNum == s.failImportAt {
		return nil, fmt.Errorf("page %d is unreadable", pageNum)
	}
	if pageNum != s.skipRefAt {
		s.refs++
	}
	return countedPage(pageNum), nil
}

func (s *countingSession) CreatePageStamp(PageHandle) (Overlay, error) {
	if s.panicOnStamp {
		panic("stamp exploded")
	}
	return &nopOverlay{}, nil
}

func (s *countingSession) AddPage(PageHandle) error {
	s.current++
	return nil
}

func (s *countingSession) State() copier.State {
	return copier.State{CurrentPageNumber: s.current, PageReferences: s.refs}
}

func (s *countingSession) Close() error {
	s.closed = true
	return s.closeErr
}

type pageCounter struct {
	n   int
	err error
}

func (p pageCounter) NumPages() (int, error)           { return p.n, p.err }
func (p pageCounter) GetPage(int) (*pages.Page, error) { return nil, errors.New("not used") }
func (p pageCounter) ResolveReference(core.IndirectRef) (core.Object, error) {
	return core.Null{}, nil
}

func withSession(s *countingSession) Option {
	return WithSessionOpener(func(io.Writer) (CopySession, error) { return s, nil })
}

func TestCheckCopyOperationDetectsSkippedReference(t *testing.T) {
	session := &countingSession{skipRefAt: 2}
	got := New(withSession(session)).CheckCopyOperation("drift.pdf", pageCounter{n: 4}, nil)

	if got.Outcome != OutcomeMismatch || !got.HasMismatch || got.Err != nil {
		t.Fatalf("outcome %v, mismatch %v, err %v", got.Outcome, got.HasMismatch, got.Err)
	}
	if got.ProblematicPage != 2 || got.TotalPages != 4 {
		t.Errorf("ProblematicPage/TotalPages = %d/%d, want 2/4", got.ProblematicPage, got.TotalPages)
	}
	if len(got.Snapshots) != 10 {
		t.Errorf("len(Snapshots) = %d, want 10", len(got.Snapshots))
	}
	if want := "mismatch at page 2: currentPageNumber=1, pageReferences=1"; got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}
	if !session.closed {
		t.Error("session not closed after mismatch")
	}
	if !strings.Contains(got.String(), "After alter 2") || !strings.Contains(got.String(), "DIFF: -1") {
		t.Errorf("String() missing timeline:\n%s", got.String())
	}
}

func TestCheckCopyOperationFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     pageCounter
		session *countingSession
		opener  SessionOpener
		want    string
	}{
		{"page count", pageCounter{err: errors.New("no catalog")}, &countingSession{}, nil, "no catalog"},
		{"import", pageCounter{n: 3}, &countingSession{failImportAt: 2}, nil, "page 2 is unreadable"},
		{"panic", pageCounter{n: 1}, &countingSession{panicOnStamp: true}, nil, "stamp exploded"},
		{"close", pageCounter{n: 1}, &countingSession{closeErr: errors.New("disk full")}, nil, "disk full"},
		{"open", pageCounter{n: 1}, nil, func(io.Writer) (CopySession, error) {
			return nil, errors.New("no session")
		}, "no session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := WithSessionOpener(tt.opener)
			if tt.session != nil {
				opt = withSession(tt.session)
			}
			got := New(opt).CheckCopyOperation("bad.pdf", tt.src, nil)

			if got.Outcome != OutcomeFailed || !got.HasMismatch || got.Err == nil {
				t.Fatalf("outcome %v, mismatch %v, err %v", got.Outcome, got.HasMismatch, got.Err)
			}
			if got.TotalPages != -1 || got.ProblematicPage != -1 || len(got.Snapshots) != 0 {
				t.Errorf("got %d/%d with %d snapshots", got.TotalPages, got.ProblematicPage, len(got.Snapshots))
			}
			if !strings.HasPrefix(got.Message, "simulation failed: ") || !strings.Contains(got.Message, tt.want) {
				t.Errorf("Message = %q", got.Message)
			}
			if tt.session != nil && tt.name != "page count" && !tt.session.closed {
				t.Error("session left open")
			}
		})
	}
}

func TestCheckCopyOperationPageLimit(t *testing.T) {
	session := &countingSession{}
	got := New(withSession(session), WithMaxPages(4)).CheckCopyOperation("big.pdf", pageCounter{n: 5}, nil)
	if got.Outcome != OutcomeFailed || !errors.Is(got.Err, pages.ErrTooManyPages) {
		t.Fatalf("outcome %v, err %v", got.Outcome, got.Err)
	}
	if session.refs != 0 {
		t.Errorf("imported %d pages past the limit", session.refs)
	}
}
