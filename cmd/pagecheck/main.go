// Command pagecheck checks PDF files for page tree discrepancies, copy
// pipeline state drift and optional content layers.
//
// Usage:
//
//	pagecheck [flags] file.pdf ...
//	pagecheck -serve :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsawler/pagecheck/internal/api"
	"github.com/tsawler/pagecheck/internal/batch"
	"github.com/tsawler/pagecheck/internal/config"
	"github.com/tsawler/pagecheck/report"
)

// Exit codes.
const (
	exitClean  = 0
	exitIssues = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(stderr, "pagecheck:", err)
		return exitUsage
	}

	fs := flag.NewFlagSet("pagecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Format, "format", cfg.Format, "report format: text, json or html")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of documents checked at once")
	fs.StringVar(&cfg.CopyOutDir, "copy-out", cfg.CopyOutDir, "keep each simulated copy as `DIR`/<name>.copy.pdf")
	fs.StringVar(&cfg.ServeAddr, "serve", cfg.ServeAddr, "serve the HTTP API on `ADDR` instead of checking files")
	fs.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "give up on documents whose page tree expands past `N` pages")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pagecheck [flags] file.pdf ...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitClean
		}
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "pagecheck:", err)
		return exitUsage
	}
	log := newLogger(cfg, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ServeAddr != "" {
		if err := serve(ctx, cfg, log); err != nil {
			log.Error("server error", "error", err)
			return exitIssues
		}
		return exitClean
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintln(stderr, "pagecheck:", err)
		return exitUsage
	}
	if cfg.CopyOutDir != "" {
		if err := os.MkdirAll(cfg.CopyOutDir, 0o755); err != nil {
			log.Error("create copy output directory", "dir", cfg.CopyOutDir, "error", err)
			return exitIssues
		}
	}

	runner := batch.New(batch.Options{
		Workers:    cfg.Workers,
		Logger:     log,
		CopyOutDir: cfg.CopyOutDir,
		MaxPages:   cfg.MaxPages,
	})
	results, runErr := runner.Run(ctx, fs.Args())
	if runErr != nil {
		log.Warn("run interrupted", "error", runErr)
	}

	out := runner.ReportRun(results)
	if err := report.Write(stdout, format, out); err != nil {
		log.Error("write report", "error", err)
		return exitIssues
	}

	s := report.Summarize(out)
	if runErr != nil || s.Clean != s.Checked {
		return exitIssues
	}
	return exitClean
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         cfg.ServeAddr,
		Handler:      api.NewServer(log, cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting pagecheck server", "addr", cfg.ServeAddr, "auth", cfg.APIToken != "")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
