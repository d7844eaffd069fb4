package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/tsawler/pagecheck/internal/pdftest"
	"github.com/tsawler/pagecheck/pages"
	"github.com/tsawler/pagecheck/reader"
)

func TestRunKeepsOrderAndSkips(t *testing.T) {
	dir := t.TempDir()
	one := pdftest.WriteFile(t, "one.pdf", pdftest.FlatDocument(1).Bytes())
	three := pdftest.WriteFile(t, "three.pdf", pdftest.FlatDocument(3).Bytes())
	damaged := pdftest.WriteFile(t, "damaged.pdf", []byte("not really a pdf"))
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.pdf")

	paths := []string{three, notes, one, missing, damaged}
	r := New(Options{Workers: 2})
	results, err := r.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d is for %s, want %s", i, res.Path, paths[i])
		}
	}

	if results[0].Skipped || results[0].Report.Tree.ActualCount != 3 {
		t.Errorf("three.pdf: %+v", results[0])
	}
	if !results[1].Skipped || results[1].Reason != "not a PDF (Unknown)" {
		t.Errorf("notes.txt: %+v", results[1])
	}
	if results[2].Skipped || results[2].Report.File != "one.pdf" {
		t.Errorf("one.pdf: %+v", results[2])
	}
	if !results[3].Skipped || results[3].Reason != "file not found" {
		t.Errorf("missing.pdf: %+v", results[3])
	}
	if results[4].Skipped || !errors.Is(results[4].Report.Tree.Err, reader.ErrInvalidPDF) {
		t.Errorf("damaged.pdf should be checked and fail: %+v", results[4])
	}

	run := r.ReportRun(results)
	if run.ID != r.ID() || len(run.Reports) != 3 || len(run.Skipped) != 2 {
		t.Errorf("ReportRun = %+v", run)
	}
	if _, err := uuid.Parse(r.ID()); err != nil {
		t.Errorf("run id %q is not a UUID", r.ID())
	}
}

func TestRunWritesCopyOutput(t *testing.T) {
	src := pdftest.WriteFile(t, "two.pdf", pdftest.FlatDocument(2).Bytes())
	out := t.TempDir()

	results, err := New(Options{Workers: 1, CopyOutDir: out}).Run(context.Background(), []string{src})
	if err != nil || results[0].Skipped {
		t.Fatalf("Run: %v %+v", err, results)
	}

	copied, err := reader.Open(filepath.Join(out, "two.copy.pdf"))
	if err != nil {
		t.Fatalf("open copy output: %v", err)
	}
	defer copied.Close()
	if n, _ := copied.NumPages(); n != 2 {
		t.Errorf("copy output has %d pages", n)
	}
}

func TestRunCopyOutputSameBaseName(t *testing.T) {
	short := pdftest.WriteFile(t, "doc.pdf", pdftest.FlatDocument(2).Bytes())
	long := pdftest.WriteFile(t, "doc.pdf", pdftest.FlatDocument(5).Bytes())
	single := pdftest.WriteFile(t, "other.pdf", pdftest.FlatDocument(1).Bytes())
	out := t.TempDir()

	paths := []string{short, single, long}
	if _, err := New(Options{Workers: 3, CopyOutDir: out}).Run(context.Background(), paths); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[string]int{"doc.0.copy.pdf": 2, "other.copy.pdf": 1, "doc.2.copy.pdf": 5}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(want) {
		t.Errorf("copy outputs = %v", entries)
	}
	for name, pagesWant := range want {
		copied, err := reader.Open(filepath.Join(out, name))
		if err != nil {
			t.Errorf("open %s: %v", name, err)
			continue
		}
		if n, _ := copied.NumPages(); n != pagesWant {
			t.Errorf("%s has %d pages, want %d", name, n, pagesWant)
		}
		copied.Close()
	}
}

func TestCopyOutputNames(t *testing.T) {
	tests := []struct {
		paths []string
		want  []string
	}{
		{[]string{"a/x.pdf", "b/y.PDF"}, []string{"x.copy.pdf", "y.copy.pdf"}},
		{[]string{"a/x.pdf", "b/x.pdf", "z"}, []string{"x.0.copy.pdf", "x.1.copy.pdf", "z.copy.pdf"}},
		{nil, []string{}},
	}
	for _, tt := range tests {
		if got := copyOutputNames(tt.paths); !slices.Equal(got, tt.want) {
			t.Errorf("copyOutputNames(%v) = %v, want %v", tt.paths, got, tt.want)
		}
	}
}

func TestRunMaxPages(t *testing.T) {
	src := pdftest.WriteFile(t, "five.pdf", pdftest.FlatDocument(5).Bytes())

	results, err := New(Options{MaxPages: 4}).Run(context.Background(), []string{src})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rep := results[0].Report
	if !errors.Is(rep.Tree.Err, pages.ErrTooManyPages) || !errors.Is(rep.Copy.Err, pages.ErrTooManyPages) {
		t.Errorf("tree %v, copy %v", rep.Tree.Err, rep.Copy.Err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths := []string{"a.pdf", "b.pdf"}
	results, err := New(Options{Workers: 1}).Run(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	for i, res := range results {
		if res.Path != paths[i] || !res.Skipped {
			t.Errorf("result %d = %+v", i, res)
		}
	}
}
