// Package commands implements the doctopics command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
)

// Global is shared state bound into every command.
type Global struct {
	// Out receives command output meant for the user. Logs go to stderr.
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"doctopics.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile   CompileCmd   `cmd:"" help:"Compile a documentation catalog"`
	Resolve   ResolveCmd   `cmd:"" help:"Resolve a documentation link inside a catalog"`
	Hierarchy HierarchyCmd `cmd:"" help:"Print the curated topic hierarchy of a catalog"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; sets up logging until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.setupLogging(config.LoggingConfig{})
	return nil
}

// LoadConfig loads the configuration file. A missing file yields the
// defaults so catalogs can be compiled without any setup.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if _, err := os.Stat(c.Config); errors.Is(err, os.ErrNotExist) {
		slog.Debug("Configuration file not found; using defaults", "path", c.Config)
		return config.Default(), nil
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.setupLogging(cfg.Logging)
	return cfg, nil
}

func (c *CLI) setupLogging(lc config.LoggingConfig) {
	level := config.NormalizeLogLevel(string(lc.Level)).SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(string(lc.Format)) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// analyze discovers the catalog at path and registers and curates it.
func analyze(ctx context.Context, path string, cfg *config.Config) (*doccontext.Context, error) {
	bundle, err := catalog.Discover(path, catalog.Options{SymbolGraphDirs: cfg.Compile.SymbolGraphDirs})
	if err != nil {
		return nil, err
	}
	docs := doccontext.New(cfg.Features)
	if err := docs.Register(ctx, bundle); err != nil {
		return nil, err
	}
	if err := docs.Curate(ctx); err != nil {
		return nil, err
	}
	return docs, nil
}
