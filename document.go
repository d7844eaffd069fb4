package pagecheck

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/tsawler/pagecheck/check"
	"github.com/tsawler/pagecheck/reader"
)

// Document is a fluent handle on one PDF. Each configuration method
// returns a new Document and each terminal operation opens its own reader,
// so a Document from Open or FromBytes may be run from several goroutines.
// A Document from FromReader uses the caller's reader, which is not safe
// for concurrent use.
type Document struct {
	// Source
	filename string
	data     []byte
	name     string

	// Lifecycle
	reader       *reader.Reader
	ownsReader   bool
	readerOpened bool

	// Configuration
	logger     *slog.Logger
	copyOutput io.Writer
	opener     check.SessionOpener
	maxPages   int
}

// Open returns a Document for the file. Nothing is read until a check
// runs. The reader is closed after each terminal operation.
func Open(filename string) *Document {
	return &Document{filename: filename, name: filepath.Base(filename)}
}

// FromBytes returns a Document over an in-memory PDF. name is used in
// results and log records.
func FromBytes(name string, data []byte) *Document {
	return &Document{data: data, name: name}
}

// FromReader returns a Document over an already opened reader. The caller
// keeps ownership and must close it.
func FromReader(name string, r *reader.Reader) *Document {
	return &Document{name: name, reader: r, readerOpened: true}
}

func (d *Document) clone() *Document {
	c := *d
	return &c
}

// WithLogger sets the logger passed to the checks.
func (d *Document) WithLogger(l *slog.Logger) *Document {
	c := d.clone()
	c.logger = l
	return c
}

// CopyOutput keeps the document produced by the copy check.
func (d *Document) CopyOutput(w io.Writer) *Document {
	c := d.clone()
	c.copyOutput = w
	return c
}

// WithSessionOpener replaces the copy session used by the copy check.
func (d *Document) WithSessionOpener(open check.SessionOpener) *Document {
	c := d.clone()
	c.opener = open
	return c
}

// WithMaxPages bounds how many leaf pages the checks expand before
// failing with pages.ErrTooManyPages. The default is pages.DefaultMaxPages.
func (d *Document) WithMaxPages(n int) *Document {
	c := d.clone()
	c.maxPages = n
	return c
}

// Name returns the name used in results.
func (d *Document) Name() string { return d.name }

func (d *Document) checker() *check.Checker {
	return check.New(
		check.WithLogger(d.logger),
		check.WithSessionOpener(d.opener),
		check.WithMaxPages(d.maxPages),
	)
}

func (d *Document) ensureReader() error {
	if d.readerOpened {
		return nil
	}
	var (
		r   *reader.Reader
		err error
	)
	switch {
	case d.filename != "":
		r, err = reader.Open(d.filename)
	case d.data != nil:
		r, err = reader.FromBytes(d.data)
	default:
		return fmt.Errorf("no document specified")
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", d.name, err)
	}
	r.SetMaxPages(d.maxPages)
	d.reader = r
	d.ownsReader = true
	d.readerOpened = true
	return nil
}

// open returns a copy of d with its reader ready. The copy owns whatever
// reader it opened.
func (d *Document) open() (*Document, error) {
	w := d.clone()
	if err := w.ensureReader(); err != nil {
		return nil, err
	}
	return w, nil
}

// close releases the reader if this copy opened it.
func (d *Document) close() error {
	if !d.ownsReader || d.reader == nil {
		return nil
	}
	err := d.reader.Close()
	d.reader = nil
	d.ownsReader = false
	d.readerOpened = false
	return err
}

// Tree runs the page tree discrepancy check.
func (d *Document) Tree() (check.DiscrepancyResult, error) {
	w, err := d.open()
	if err != nil {
		return check.DiscrepancyResult{}, err
	}
	defer w.close()
	return w.checker().CheckTree(w.name, w.reader), nil
}

// Copy runs the copy pipeline simulation.
func (d *Document) Copy() (check.CopyOperationResult, error) {
	w, err := d.open()
	if err != nil {
		return check.CopyOperationResult{}, err
	}
	defer w.close()
	return w.checker().CheckCopyOperation(w.name, w.reader, w.copyOutput), nil
}

// Layers runs the optional content layer check.
func (d *Document) Layers() (check.OcgLayerCheckResult, error) {
	w, err := d.open()
	if err != nil {
		return check.OcgLayerCheckResult{}, err
	}
	defer w.close()
	return w.checker().CheckLayers(w.reader), nil
}

// Run opens the document once and runs all three checks in order. The
// error is only for documents that cannot be opened; check failures are
// part of the report.
func (d *Document) Run() (Report, error) {
	w, err := d.open()
	if err != nil {
		return Report{}, err
	}
	defer w.close()

	c := w.checker()
	return Report{
		File:   w.name,
		Tree:   c.CheckTree(w.name, w.reader),
		Copy:   c.CheckCopyOperation(w.name, w.reader, w.copyOutput),
		Layers: c.CheckLayers(w.reader),
	}, nil
}

// RunOrReport is Run for batch use: an open failure becomes a report whose
// three results all carry the error.
func (d *Document) RunOrReport() Report {
	r, err := d.Run()
	if err != nil {
		return errorReport(d.name, err)
	}
	return r
}
