package report

import (
	"encoding/json"
	"io"

	"github.com/tsawler/pagecheck"
)

// WriteJSON writes the run and its summary as one indented JSON object.
func WriteJSON(w io.Writer, run Run) error {
	if run.Reports == nil {
		run.Reports = []pagecheck.Report{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Run
		Summary Summary `json:"summary"`
	}{run, Summarize(run)})
}
