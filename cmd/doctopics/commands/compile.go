package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/compiler"
	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/indexstore"
	"git.home.luguber.info/inful/doctopics/internal/metrics"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/publish"
	"git.home.luguber.info/inful/doctopics/internal/storage"
)

// ErrCompileProblems is returned when a compilation reports error problems.
var ErrCompileProblems = errors.New("compilation reported errors")

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Catalog     string `arg:"" help:"Catalog directory, or a directory containing exactly one .docc catalog" type:"path"`
	Output      string `short:"o" help:"Render unit object store directory (overrides output.directory)" type:"path"`
	IndexDB     string `name:"index-db" help:"SQLite database for link summaries and search records (overrides output.index_db)" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in textfile format to this path" type:"path"`
	Publish     string `help:"NATS URL to publish problems to (enables publishing)"`
	ReportDir   string `name:"report-dir" help:"Directory receiving compile-report.json and compile-report.txt" type:"path"`
	Format      string `short:"f" help:"Problem output format" enum:"text,json" default:"text"`
	Watch       bool   `short:"w" help:"Recompile whenever catalog files change"`
	Prune       bool   `help:"Remove stored objects not produced by the latest run"`
}

func (c *CompileCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Watch {
		return c.watch(ctx, g.Out, cfg)
	}
	res, err := c.compileOnce(ctx, g.Out, cfg)
	if err != nil {
		return err
	}
	if res.HasErrors() {
		return ErrCompileProblems
	}
	return nil
}

func (c *CompileCmd) applyOverrides(cfg *config.Config) {
	if c.Output != "" {
		cfg.Output.Directory = c.Output
	}
	if c.IndexDB != "" {
		cfg.Output.IndexDB = c.IndexDB
	}
	if c.MetricsFile != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.File = c.MetricsFile
	}
	if c.Publish != "" {
		cfg.Publish.Enabled = true
		cfg.Publish.URL = c.Publish
	}
}

// compileOnce discovers the catalog, compiles it into the configured sinks
// and prints its problems.
func (c *CompileCmd) compileOnce(ctx context.Context, out io.Writer, cfg *config.Config) (*models.Result, error) {
	bundle, err := catalog.Discover(c.Catalog, catalog.Options{SymbolGraphDirs: cfg.Compile.SymbolGraphDirs})
	if err != nil {
		return nil, err
	}

	sinks, closeSinks, err := openSinks(cfg)
	if err != nil {
		return nil, err
	}
	defer closeSinks()

	opts := []compiler.Option{compiler.WithSinks(sinks)}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		opts = append(opts, compiler.WithRecorder(metrics.NewPrometheusRecorder(reg)))
	}
	if c.ReportDir != "" {
		opts = append(opts, compiler.WithReportDir(c.ReportDir))
	}

	res, compileErr := compiler.New(cfg, opts...).Compile(ctx, bundle)
	if c.Prune && compileErr == nil {
		if store, ok := sinks.Objects.(*storage.FSStore); ok {
			prune(ctx, store, res.RunID)
		}
	}

	if err := problems.NewFormatter(c.Format).Format(out, res.Problems()); err != nil {
		return res, fmt.Errorf("print problems: %w", err)
	}
	if c.Format != "json" {
		_, _ = fmt.Fprintln(out, res.Report.Summary())
	}
	if reg != nil && cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File, reg); err != nil {
			slog.Warn("Failed to write metrics", "path", cfg.Metrics.File, "error", err)
		}
	}
	return res, compileErr
}

// openSinks opens every configured output sink. The returned func closes them.
func openSinks(cfg *config.Config) (models.Sinks, func(), error) {
	var sinks models.Sinks
	var closers []func() error
	closeAll := func() {
		for _, fn := range closers {
			if err := fn(); err != nil {
				slog.Warn("Failed to close output sink", "error", err)
			}
		}
	}

	if cfg.Output.Directory != "" {
		store, err := storage.NewFSStore(cfg.Output.Directory)
		if err != nil {
			return models.Sinks{}, nil, err
		}
		sinks.Objects = store
		closers = append(closers, store.Close)
	}
	if cfg.Output.IndexDB != "" {
		index, err := indexstore.Open(cfg.Output.IndexDB)
		if err != nil {
			closeAll()
			return models.Sinks{}, nil, err
		}
		sinks.Index = index
		closers = append(closers, index.Close)
	}
	if cfg.Publish.Enabled {
		pub, err := publish.New(cfg.Publish)
		if err != nil {
			closeAll()
			return models.Sinks{}, nil, err
		}
		sinks.Publisher = pub
		closers = append(closers, pub.Close)
	}
	return sinks, closeAll, nil
}

// prune garbage collects every object the run did not reference.
func prune(ctx context.Context, store *storage.FSStore, runID string) {
	hashes, err := store.RunRef(ctx, runID)
	if err != nil {
		slog.Warn("Skipping prune; run objects unknown", "run_id", runID, "error", err)
		return
	}
	keep := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		keep[h] = true
	}
	removed, err := store.GC(ctx, keep)
	if err != nil {
		slog.Warn("Prune failed", "removed", removed, "error", err)
		return
	}
	slog.Info("Pruned object store", "removed", removed, "kept", len(keep))
}
