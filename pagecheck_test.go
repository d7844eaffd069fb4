package pagecheck

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tsawler/pagecheck/check"
	"github.com/tsawler/pagecheck/internal/pdftest"
	"github.com/tsawler/pagecheck/pages"
	"github.com/tsawler/pagecheck/reader"
)

func TestOpenRun(t *testing.T) {
	path := pdftest.WriteFile(t, "three.pdf", pdftest.FlatDocument(3).Bytes())

	report, err := Open(path).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.File != "three.pdf" {
		t.Errorf("File = %q", report.File)
	}
	if report.Tree.ActualCount != 3 || report.Copy.Outcome != check.OutcomeClean || report.Layers.HasLayers {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.HasIssues() {
		t.Error("HasIssues = true for a clean document")
	}
}

func TestFromBytesCopyOutput(t *testing.T) {
	var out bytes.Buffer
	res, err := FromBytes("mem.pdf", pdftest.FlatDocument(2).Bytes()).CopyOutput(&out).Copy()
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if res.File != "mem.pdf" || res.TotalPages != 2 {
		t.Errorf("result = %+v", res)
	}
	r, err := reader.FromBytes(out.Bytes())
	if err != nil {
		t.Fatalf("copy output: %v", err)
	}
	if n, _ := r.NumPages(); n != 2 {
		t.Errorf("copy output has %d pages", n)
	}
}

func TestFromReaderLeavesReaderOpen(t *testing.T) {
	r, err := reader.FromBytes(pdftest.FlatDocument(1).Bytes())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	doc := FromReader("shared.pdf", r)
	if _, err := doc.Tree(); err != nil {
		t.Fatalf("Tree: %v", err)
	}
	layers, err := doc.Layers()
	if err != nil || layers.Err != nil {
		t.Fatalf("Layers after Tree: %v %v", err, layers.Err)
	}
}

func TestDocumentSharedAcrossGoroutines(t *testing.T) {
	path := pdftest.WriteFile(t, "four.pdf", pdftest.FlatDocument(4).Bytes())
	docs := []*Document{
		Open(path),
		FromBytes("four.pdf", pdftest.FlatDocument(4).Bytes()),
	}

	for _, doc := range docs {
		var wg sync.WaitGroup
		reports := make([]Report, 8)
		errs := make([]error, len(reports))
		for i := range reports {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reports[i], errs[i] = doc.Run()
			}(i)
		}
		wg.Wait()

		for i, r := range reports {
			if errs[i] != nil {
				t.Fatalf("run %d: %v", i, errs[i])
			}
			if r.Tree.ActualCount != 4 || r.Copy.Outcome != check.OutcomeClean || r.HasIssues() {
				t.Errorf("run %d: %+v", i, r)
			}
		}

		// The shared Document stays reusable after the concurrent runs.
		if res, err := doc.Tree(); err != nil || res.ActualCount != 4 {
			t.Errorf("Tree after concurrent runs: %+v, %v", res, err)
		}
	}
}

func TestWithMaxPages(t *testing.T) {
	doc := FromBytes("three.pdf", pdftest.FlatDocument(3).Bytes())

	report := doc.WithMaxPages(2).RunOrReport()
	if !errors.Is(report.Tree.Err, pages.ErrTooManyPages) {
		t.Errorf("Tree.Err = %v, want ErrTooManyPages", report.Tree.Err)
	}
	if report.Copy.Outcome != check.OutcomeFailed || !errors.Is(report.Copy.Err, pages.ErrTooManyPages) {
		t.Errorf("Copy = %v, %v", report.Copy.Outcome, report.Copy.Err)
	}

	// The limit belongs to the derived Document only.
	if report := doc.RunOrReport(); report.HasIssues() {
		t.Errorf("unbounded document reported issues: %+v", report)
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	if _, err := Open(path).Run(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Run error = %v, want fs.ErrNotExist", err)
	}

	report := Open(path).RunOrReport()
	if report.File != "missing.pdf" || !report.HasIssues() {
		t.Errorf("report = %+v", report)
	}
	if report.Tree.DeclaredCount != -1 || report.Copy.Outcome != check.OutcomeFailed || report.Layers.Err == nil {
		t.Errorf("every result should carry the open error: %+v", report)
	}
}

func TestInvalidDocument(t *testing.T) {
	report := FromBytes("junk.pdf", []byte("not a pdf at all")).RunOrReport()
	if !errors.Is(report.Tree.Err, reader.ErrInvalidPDF) {
		t.Errorf("Tree.Err = %v, want ErrInvalidPDF", report.Tree.Err)
	}
}

func TestReportJSON(t *testing.T) {
	report := Must(FromBytes("a.pdf", pdftest.FlatDocument(1).Bytes()).Run())
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded struct {
		File string `json:"file"`
		Tree struct {
			ActualCount int `json:"actual_count"`
		} `json:"tree"`
		Copy struct {
			Outcome   string `json:"outcome"`
			Snapshots []struct {
				Phase string `json:"phase"`
			} `json:"snapshots"`
		} `json:"copy"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.File != "a.pdf" || decoded.Tree.ActualCount != 1 || decoded.Copy.Outcome != "clean" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Copy.Snapshots) != 5 || decoded.Copy.Snapshots[3].Phase != "alter" {
		t.Errorf("snapshots = %+v", decoded.Copy.Snapshots)
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Must did not panic")
		}
	}()
	Must(Open(filepath.Join(t.TempDir(), "nope.pdf")).Run())
}
