package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/pagecheck/internal/pdftest"
)

// miscounted declares five pages but links two.
func miscounted() []byte {
	return pdftest.FlatDocument(2).NewRevision().
		Object(pdftest.PagesNum, fmt.Sprintf(
			"<< /Type /Pages /Kids [%d 0 R %d 0 R ] /Count 5 /MediaBox [0 0 612 792] >>",
			pdftest.PageNum(1), pdftest.PageNum(2))).
		Bytes()
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no files", nil, exitUsage},
		{"unknown flag", []string{"-nope", "a.pdf"}, exitUsage},
		{"bad format", []string{"-format", "xml", "a.pdf"}, exitUsage},
		{"bad log level", []string{"-log-level", "loud", "a.pdf"}, exitUsage},
		{"bad workers", []string{"-workers", "0", "a.pdf"}, exitUsage},
		{"bad max pages", []string{"-max-pages", "-1", "a.pdf"}, exitUsage},
		{"help", []string{"-h"}, exitClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("exit = %d, want %d (stderr: %s)", got, tt.want, stderr.String())
			}
		})
	}
}

func TestRunText(t *testing.T) {
	clean := pdftest.WriteFile(t, "clean.pdf", pdftest.FlatDocument(2).Bytes())
	bad := pdftest.WriteFile(t, "bad.pdf", miscounted())
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	tests := []struct {
		name     string
		files    []string
		want     int
		contains []string
	}{
		{
			name:     "clean",
			files:    []string{clean},
			want:     exitClean,
			contains: []string{"=== PDF Page Count Discrepancy Checker ===", "NO DISCREPANCY in 'clean.pdf'"},
		},
		{
			name:     "discrepancy",
			files:    []string{clean, bad},
			want:     exitIssues,
			contains: []string{"DISCREPANCY FOUND in 'bad.pdf'", "Declared /Count: 5 pages"},
		},
		{
			name:     "missing file is skipped",
			files:    []string{missing, clean},
			want:     exitClean,
			contains: []string{"missing.pdf", "file not found"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append([]string{"-log-level", "error"}, tt.files...)
			if got := run(args, &stdout, &stderr); got != tt.want {
				t.Errorf("exit = %d, want %d", got, tt.want)
			}
			for _, s := range tt.contains {
				if !strings.Contains(stdout.String(), s) {
					t.Errorf("output missing %q:\n%s", s, stdout.String())
				}
			}
		})
	}
}

func TestRunMaxPages(t *testing.T) {
	src := pdftest.WriteFile(t, "three.pdf", pdftest.FlatDocument(3).Bytes())

	var stdout, stderr bytes.Buffer
	if got := run([]string{"-log-level", "error", "-max-pages", "3", src}, &stdout, &stderr); got != exitClean {
		t.Errorf("at the limit: exit = %d\n%s", got, stdout.String())
	}
	stdout.Reset()
	if got := run([]string{"-log-level", "error", "-max-pages", "2", src}, &stdout, &stderr); got != exitIssues {
		t.Errorf("past the limit: exit = %d\n%s", got, stdout.String())
	}
}

func TestRunJSONWithCopyOutput(t *testing.T) {
	src := pdftest.WriteFile(t, "three.pdf", pdftest.FlatDocument(3).Bytes())
	out := filepath.Join(t.TempDir(), "copies")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-format", "json", "-workers", "2", "-copy-out", out, "-log-level", "error", src}, &stdout, &stderr)
	if code != exitClean {
		t.Fatalf("exit = %d (stderr: %s)", code, stderr.String())
	}

	var got struct {
		RunID   string `json:"run_id"`
		Reports []struct {
			File string `json:"file"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if got.RunID == "" || len(got.Reports) != 1 || got.Reports[0].File != "three.pdf" {
		t.Errorf("unexpected report %+v", got)
	}
	if _, err := os.Stat(filepath.Join(out, "three.copy.pdf")); err != nil {
		t.Errorf("copy output: %v", err)
	}
}
