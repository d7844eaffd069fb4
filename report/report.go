// Package report renders check results as plain text, JSON or HTML.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/tsawler/pagecheck"
)

// Format selects a renderer.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	HTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, HTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json or html)", s)
}

// Skip records an input that was not checked.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Run is everything one invocation produced.
type Run struct {
	ID      string             `json:"run_id,omitempty"`
	Reports []pagecheck.Report `json:"reports"`
	Skipped []Skip             `json:"skipped,omitempty"`
}

// Summary counts documents by outcome.
type Summary struct {
	Checked           int  `json:"checked"`
	TreeDiscrepancies int  `json:"tree_discrepancies"`
	CopyMismatches    int  `json:"copy_mismatches"`
	Clean             int  `json:"clean"`
	Skipped           int  `json:"skipped"`
	HasLayers         bool `json:"has_layers"`
}

// Summarize counts the run. A document with both a tree discrepancy and a
// copy mismatch counts in both, and is not clean.
func Summarize(run Run) Summary {
	s := Summary{Checked: len(run.Reports), Skipped: len(run.Skipped)}
	for _, r := range run.Reports {
		if r.Tree.HasDiscrepancy {
			s.TreeDiscrepancies++
		}
		if r.Copy.HasMismatch {
			s.CopyMismatches++
		}
		if !r.HasIssues() {
			s.Clean++
		}
		if r.Layers.HasLayers {
			s.HasLayers = true
		}
	}
	return s
}

// Write renders run in the given format.
func Write(w io.Writer, f Format, run Run) error {
	switch f {
	case Text:
		return WriteText(w, run)
	case JSON:
		return WriteJSON(w, run)
	case HTML:
		return WriteHTML(w, run)
	}
	return fmt.Errorf("unknown report format %q", string(f))
}
