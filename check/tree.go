package check

import (
	"encoding/json"
	"fmt"

	"github.com/tsawler/pagecheck/pages"
)

// TreeSource supplies what CheckTree needs from a document.
type TreeSource interface {
	DeclaredPageCount() (int, error)
	PageTreeRoot() (*pages.Node, error)
}

// DiscrepancyResult is the outcome of CheckTree.
type DiscrepancyResult struct {
	File           string `json:"file"`
	DeclaredCount  int    `json:"declared_count"`
	ActualCount    int    `json:"actual_count"`
	HasDiscrepancy bool   `json:"has_discrepancy"`
	// Err is set when the tree could not be read. Both counts are then -1.
	Err error `json:"-"`
}

// Difference returns how many pages the declared count is off by.
func (r DiscrepancyResult) Difference() int {
	d := r.ActualCount - r.DeclaredCount
	if d < 0 {
		return -d
	}
	return d
}

func (r DiscrepancyResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("File: %s - Error: %v", r.File, r.Err)
	}
	if r.HasDiscrepancy {
		return fmt.Sprintf("⚠ DISCREPANCY FOUND in '%s':\n"+
			"   Declared /Count: %d pages\n"+
			"   Actual Kids count: %d pages\n"+
			"   Difference: %d page(s)",
			r.File, r.DeclaredCount, r.ActualCount, r.Difference())
	}
	return fmt.Sprintf("✓ NO DISCREPANCY in '%s': Both counts match at %d pages", r.File, r.DeclaredCount)
}

// MarshalJSON adds the difference and the error text.
func (r DiscrepancyResult) MarshalJSON() ([]byte, error) {
	type plain DiscrepancyResult
	return json.Marshal(struct {
		plain
		Difference int    `json:"difference"`
		Error      string `json:"error,omitempty"`
	}{plain(r), r.Difference(), errorText(r.Err)})
}

// CheckTree counts the leaf pages reachable from the page tree root and
// compares them with the declared count. A tree with more leaves than the
// Checker's page limit is reported as an error.
func (c *Checker) CheckTree(name string, src TreeSource) (result DiscrepancyResult) {
	defer func() {
		if r := recover(); r != nil {
			result = c.treeFailure(name, fmt.Errorf("panic: %v", r))
		}
	}()

	declared, err := src.DeclaredPageCount()
	if err != nil {
		return c.treeFailure(name, err)
	}
	root, err := src.PageTreeRoot()
	if err != nil {
		return c.treeFailure(name, err)
	}

	actual, err := countLeaves(root, c.maxPages)
	if err != nil {
		return c.treeFailure(name, err)
	}
	result = DiscrepancyResult{
		File:           name,
		DeclaredCount:  declared,
		ActualCount:    actual,
		HasDiscrepancy: declared != actual,
	}
	if result.HasDiscrepancy {
		c.logger.Warn("page tree discrepancy",
			"file", name, "declared", declared, "actual", actual)
	} else {
		c.logger.Debug("page tree consistent", "file", name, "pages", actual)
	}
	return result
}

func (c *Checker) treeFailure(name string, err error) DiscrepancyResult {
	c.logger.Error("read page tree", "file", name, "error", err)
	return TreeError(name, err)
}

// TreeError returns the result CheckTree gives for a document whose page
// tree cannot be read.
func TreeError(name string, err error) DiscrepancyResult {
	return DiscrepancyResult{File: name, DeclaredCount: -1, ActualCount: -1, Err: err}
}

// countLeaves counts leaf pages below n. Missing kids are skipped and
// nodes of unknown type count as zero.
func countLeaves(n *pages.Node, max int) (int, error) {
	if n == nil {
		return 0, nil
	}
	return n.CountLeaves(max)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
