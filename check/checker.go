package check

import (
	"io"
	"log/slog"

	"github.com/tsawler/pagecheck/pages"
)

// Checker runs the checks. The zero value is not usable; use New.
type Checker struct {
	logger   *slog.Logger
	opener   SessionOpener
	maxPages int
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSessionOpener replaces how CheckCopyOperation opens its copy
// session. The default uses the copier package.
func WithSessionOpener(open SessionOpener) Option {
	return func(c *Checker) {
		if open != nil {
			c.opener = open
		}
	}
}

// WithMaxPages bounds how many leaf pages CheckTree counts and
// CheckCopyOperation copies before giving up with pages.ErrTooManyPages.
// The default is pages.DefaultMaxPages.
func WithMaxPages(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// New returns a Checker with the given options applied.
func New(opts ...Option) *Checker {
	c := &Checker{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		opener:   OpenCopierSession,
		maxPages: pages.DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
