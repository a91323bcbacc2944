// Command fbe2json converts one page of a social network data export into
// JSON on stdout.
//
// Usage:
//
//	fbe2json --friends html/friends.htm
//	fbe2json --messages html/messages.htm --max-threads 10 --offset 20
//
// Debug a landmark selector against a page:
//
//	fbe2json --messages html/messages.htm --debug-selector "div.thread > div" --text
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"fbe2json/internal/config"
	"fbe2json/internal/extracthtml"
	"fbe2json/internal/logx"
	"fbe2json/internal/metrics"
	"fbe2json/internal/metrics/datadog"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, deps{newBackend: newDatadogBackend})
	stop()
	os.Exit(code)
}

// backendCloser is a metrics backend that must be closed before exit.
type backendCloser interface {
	metrics.Backend
	Close() error
}

type deps struct {
	newBackend func(ctx context.Context, opts datadog.Options) (backendCloser, error)
}

func newDatadogBackend(ctx context.Context, opts datadog.Options) (backendCloser, error) {
	return datadog.NewBackend(ctx, opts)
}

// run is split out from main so the command can be tested without spawning
// a process. It returns 0 on success, 1 on runtime errors and 2 on usage or
// config errors. Nothing is written to stdout unless the conversion succeeds.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("fbe2json"),
		kong.Description("Convert a data export page to JSON."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "build parser: %v\n", err)
		return 1
	}
	_, err = parser.Parse(args)
	if exitCode >= 0 {
		return exitCode // --help
	}
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 2
	}

	category, path, err := cli.selection()
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 2
	}
	page, err := cli.pagination(category)
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 2
	}

	cfg, err := config.Load(cli.Config)
	if err == nil {
		err = cfg.Apply(cli.overrides())
	}
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 2
	}

	logger, err := logx.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 2
	}

	closeMetrics := setupMetrics(ctx, cfg, d, logger)
	defer closeMetrics()

	conv := extracthtml.NewConverter(cfg.Landmarks, logger)

	if cli.DebugSelector != "" {
		return debugSelector(ctx, conv, path, cli.DebugSelector, cli.Text, stdout, stderr, logger)
	}

	rec, err := conv.Convert(ctx, category, path)
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 1
	}

	if mr, ok := rec.(*extracthtml.MessagesRecord); ok && !page.IsZero() {
		_ = metrics.Time("paginate", func() error {
			paged := mr.Paginate(page)
			logger.Debug("paginated threads", "total", len(mr.Threads), "kept", len(paged.Threads))
			rec = paged
			return nil
		})
	}

	var buf bytes.Buffer
	err = metrics.Time("encode", func() error { return encode(&buf, rec, cfg.IndentString()) })
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: encode json: %v\n", err)
		return 1
	}
	if _, err := stdout.Write(buf.Bytes()); err != nil {
		fmt.Fprintf(stderr, "fbe2json: write output: %v\n", err)
		return 1
	}
	return 0
}

func encode(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	return enc.Encode(v)
}

func debugSelector(ctx context.Context, conv *extracthtml.Converter, path, selector string, textOnly bool, stdout, stderr io.Writer, logger *slog.Logger) int {
	doc, err := conv.Load(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: %v\n", err)
		return 1
	}
	n, err := extracthtml.DebugPrintSelector(stdout, doc, selector, textOnly)
	if err != nil {
		fmt.Fprintf(stderr, "fbe2json: debug selector: %v\n", err)
		return 1
	}
	logger.Info("selector matches", "selector", selector, "count", n)
	return 0
}

// setupMetrics installs the configured metrics backend and returns the
// function that flushes and removes it. A backend that cannot start is
// logged and replaced by the no-op backend.
func setupMetrics(ctx context.Context, cfg *config.Config, d deps, logger *slog.Logger) func() {
	if cfg.Metrics.Backend != "datadog" || d.newBackend == nil {
		return func() {}
	}

	b, err := d.newBackend(ctx, datadog.Options{
		JobName:    cfg.Metrics.Job,
		Tags:       cfg.Metrics.Tags,
		FlushEvery: cfg.Metrics.FlushEvery,
	})
	if err != nil {
		logger.Warn("metrics disabled", "backend", cfg.Metrics.Backend, "err", err)
		return func() {}
	}
	metrics.SetBackend(b)
	logger.Debug("metrics enabled", "backend", cfg.Metrics.Backend, "job", cfg.Metrics.Job)

	return func() {
		metrics.SetBackend(nil)
		if err := b.Close(); err != nil {
			logger.Warn("flush metrics", "err", err)
		}
	}
}
