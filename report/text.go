package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tsawler/pagecheck"
)

// WriteText writes the console layout: one block per document followed by
// the summary.
func WriteText(w io.Writer, run Run) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "=== PDF Page Count Discrepancy Checker ===")
	fmt.Fprintln(bw)
	for _, r := range run.Reports {
		writeDocument(bw, r)
	}
	for _, s := range run.Skipped {
		fmt.Fprintf(bw, "Skipped: %s (%s)\n", s.Path, s.Reason)
	}
	if len(run.Skipped) > 0 {
		fmt.Fprintln(bw)
	}

	sum := Summarize(run)
	fmt.Fprintln(bw, "=== Summary ===")
	if run.ID != "" {
		fmt.Fprintf(bw, "Run: %s\n", run.ID)
	}
	fmt.Fprintf(bw, "Total files checked: %d\n", sum.Checked)
	fmt.Fprintf(bw, "Files with page tree discrepancy: %d\n", sum.TreeDiscrepancies)
	fmt.Fprintf(bw, "Files with copy state mismatch: %d\n", sum.CopyMismatches)
	fmt.Fprintf(bw, "Files without issues: %d\n", sum.Clean)
	return bw.Flush()
}

func writeDocument(w io.Writer, r pagecheck.Report) {
	fmt.Fprintf(w, "Checking: %s\n\n", r.File)

	fmt.Fprintln(w, "--- Check 1: Page Tree Structure ---")
	fmt.Fprintln(w, r.Tree)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Check 2: Copy Pipeline State Tracking ---")
	fmt.Fprintln(w, r.Copy)

	fmt.Fprintln(w, "=== Check 3: OCG layers ===")
	fmt.Fprintln(w, r.Layers)
	fmt.Fprintln(w, strings.Repeat("=", 90))
	fmt.Fprintln(w)
}
