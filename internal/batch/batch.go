// Package batch checks many documents concurrently.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tsawler/pagecheck"
	"github.com/tsawler/pagecheck/format"
	"github.com/tsawler/pagecheck/report"
)

// Result is the outcome for one input path. Exactly one of Report and
// Reason is meaningful, depending on Skipped.
type Result struct {
	Path    string
	Report  pagecheck.Report
	Skipped bool
	Reason  string
}

// Options configures a Runner.
type Options struct {
	// Workers bounds how many documents are checked at once.
	Workers int
	Logger  *slog.Logger
	// CopyOutDir, when set, receives each copy simulation output as
	// <name>.copy.pdf. Inputs sharing a base name are written as
	// <name>.<index>.copy.pdf, index being the input position.
	CopyOutDir string
	// MaxPages bounds the pages expanded per document. Zero keeps the
	// library default.
	MaxPages int
}

// Runner checks a list of files. Each Runner has its own run id, which is
// attached to every log record.
type Runner struct {
	id      string
	workers int
	log      *slog.Logger
	copyDir  string
	maxPages int
}

func New(opts Options) *Runner {
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		id:       id,
		workers:  workers,
		log:      log.With("run_id", id),
		copyDir:  opts.CopyOutDir,
		maxPages: opts.MaxPages,
	}
}

// ID returns the run id.
func (r *Runner) ID() string { return r.id }

// Run checks every path and returns results in input order. Missing and
// non-PDF files are skipped. Documents not yet started when ctx is done
// are skipped too, and ctx's error is returned with the results.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	outNames := copyOutputNames(paths)
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, path := range paths {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				results[j] = Result{Path: paths[j], Skipped: true, Reason: "canceled"}
			}
			wg.Wait()
			return results, ctx.Err()
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.check(path, outNames[i])
		}(i, path)
	}
	wg.Wait()
	return results, ctx.Err()
}

func (r *Runner) check(path, outName string) Result {
	log := r.log.With("file", path)

	info, err := os.Stat(path)
	if err != nil {
		log.Error("file not found", "error", err)
		return Result{Path: path, Skipped: true, Reason: "file not found"}
	}
	if info.IsDir() {
		log.Warn("skipping directory")
		return Result{Path: path, Skipped: true, Reason: "is a directory"}
	}
	kind, err := format.DetectFile(path)
	if err != nil {
		log.Error("read file", "error", err)
		return Result{Path: path, Skipped: true, Reason: err.Error()}
	}
	if kind != format.PDF {
		log.Warn("skipping non-PDF file", "format", kind.String())
		return Result{Path: path, Skipped: true, Reason: fmt.Sprintf("not a PDF (%s)", kind)}
	}

	log.Info("checking")
	doc := pagecheck.Open(path).WithLogger(log).WithMaxPages(r.maxPages)
	if r.copyDir == "" {
		return Result{Path: path, Report: doc.RunOrReport()}
	}

	outPath := filepath.Join(r.copyDir, outName)
	out, err := os.Create(outPath)
	if err != nil {
		log.Error("create copy output", "error", err)
		return Result{Path: path, Report: doc.RunOrReport()}
	}
	res := Result{Path: path, Report: doc.CopyOutput(out).RunOrReport()}
	if err := out.Close(); err != nil {
		log.Error("close copy output", "path", outPath, "error", err)
	}
	return res
}

// copyOutputNames returns the copy output file name for each path.
// Base names that occur more than once get the input index appended, so
// no two inputs write to the same file.
func copyOutputNames(paths []string) []string {
	stems := make([]string, len(paths))
	seen := make(map[string]int, len(paths))
	for i, p := range paths {
		base := filepath.Base(p)
		stems[i] = strings.TrimSuffix(base, filepath.Ext(base))
		seen[stems[i]]++
	}
	names := make([]string, len(paths))
	for i, stem := range stems {
		if seen[stem] > 1 {
			names[i] = fmt.Sprintf("%s.%d.copy.pdf", stem, i)
			continue
		}
		names[i] = stem + ".copy.pdf"
	}
	return names
}

// ReportRun converts results into the renderable form.
func (r *Runner) ReportRun(results []Result) report.Run {
	run := report.Run{ID: r.id, Reports: []pagecheck.Report{}}
	for _, res := range results {
		if res.Skipped {
			run.Skipped = append(run.Skipped, report.Skip{Path: res.Path, Reason: res.Reason})
			continue
		}
		run.Reports = append(run.Reports, res.Report)
	}
	return run
}
