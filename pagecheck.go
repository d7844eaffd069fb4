// Package pagecheck checks PDF documents for page tree inconsistencies,
// copy pipeline state drift and optional content layers.
//
// Basic usage:
//
//	report, err := pagecheck.Open("document.pdf").Run()
//	if err != nil {
//	    // the file could not be opened
//	}
//	fmt.Println(report.Tree)
//	fmt.Println(report.Copy)
//	fmt.Println(report.Layers)
//
// Single checks and options:
//
//	result, err := pagecheck.Open("report.pdf").
//	    WithLogger(logger).
//	    CopyOutput(w).
//	    Copy()
//
// The check package holds the checks themselves; the reader package is the
// lower-level PDF reader they run against.
package pagecheck

import (
	"github.com/tsawler/pagecheck/check"
)

// Report holds the three check results for one document.
type Report struct {
	File   string                    `json:"file"`
	Tree   check.DiscrepancyResult   `json:"tree"`
	Copy   check.CopyOperationResult `json:"copy"`
	Layers check.OcgLayerCheckResult `json:"layers"`
}

// HasIssues reports whether any check found a problem or failed. Layers
// alone are not an issue.
func (r Report) HasIssues() bool {
	return r.Tree.Err != nil || r.Tree.HasDiscrepancy || r.Copy.HasMismatch || r.Layers.Err != nil
}

// errorReport fills every result with err.
func errorReport(name string, err error) Report {
	return Report{
		File:   name,
		Tree:   check.TreeError(name, err),
		Copy:   check.CopyError(name, err),
		Layers: check.LayerError(err),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for scripts and tests.
//
// Example:
//
//	report := pagecheck.Must(pagecheck.Open("document.pdf").Run())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
