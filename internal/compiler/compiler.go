// Package compiler orchestrates a documentation compilation: it registers the
// inputs of a bundle, curates them into a topic graph, converts every topic
// into a render unit in parallel, and hands the results to the configured
// output sinks.
package compiler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	"git.home.luguber.info/inful/doctopics/internal/compiler/stages"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/metrics"
	"git.home.luguber.info/inful/doctopics/internal/observability"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Compiler runs compilations with one configuration. A Compiler holds no
// per-run state and may be reused.
type Compiler struct {
	cfg          *config.Config
	recorder     metrics.Recorder
	observers    models.MultiObserver
	newConverter models.ConverterFactory
	sinks        models.Sinks
	reportDir    string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Compiler) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithObserver adds an observer of stage execution.
func WithObserver(o models.CompileObserver) Option {
	return func(c *Compiler) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithConverterFactory replaces the render unit converter.
func WithConverterFactory(f models.ConverterFactory) Option {
	return func(c *Compiler) {
		if f != nil {
			c.newConverter = f
		}
	}
}

// WithSinks sets the output sinks. The persist stage only runs when at
// least one sink is set.
func WithSinks(s models.Sinks) Option {
	return func(c *Compiler) { c.sinks = s }
}

// WithReportDir persists the compile report into dir after every run.
func WithReportDir(dir string) Option {
	return func(c *Compiler) { c.reportDir = dir }
}

// DefaultConverter creates the render unit converter.
func DefaultConverter(docs *doccontext.Context, auto *curation.Automatic, languages topic.LanguageSet) models.Converter {
	return renderunit.NewConverter(docs, auto, languages)
}

// New creates a compiler. A nil configuration uses config.Default.
func New(cfg *config.Config, opts ...Option) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Compiler{
		cfg:          cfg,
		recorder:     metrics.NoopRecorder{},
		observers:    models.MultiObserver{models.LogObserver{}},
		newConverter: DefaultConverter,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.observers = append(c.observers, models.RecorderObserver{Recorder: c.recorder})
	return c
}

// Pipeline returns the stages a compilation runs.
func (c *Compiler) Pipeline() []models.StageDef {
	return models.NewPipeline().
		Add(models.StageRegister, stages.StageRegister).
		Add(models.StageCurate, stages.StageCurate).
		Add(models.StagePrecompute, stages.StagePrecompute).
		Add(models.StageConvert, stages.StageConvert).
		Add(models.StageFinalize, stages.StageFinalize).
		AddIf(!c.sinks.Empty(), models.StagePersist, stages.StagePersist).
		Build()
}

// Compile compiles bundle. The result is never nil: when the compilation is
// cancelled or a stage fails, it holds everything produced up to that point
// and the error is the stage error that stopped the run.
func (c *Compiler) Compile(ctx context.Context, bundle *catalog.Bundle) (*models.Result, error) {
	runID := uuid.NewString()
	ctx = observability.WithBundle(observability.WithRunID(ctx, runID), bundle.Identifier)

	cs := models.NewCompileState(runID, c.cfg, bundle)
	cs.Recorder = c.recorder
	cs.Observer = c.observers
	cs.NewConverter = c.newConverter
	cs.Sinks = c.sinks
	cs.Docs.SetRecorder(c.recorder)

	observability.InfoContext(ctx, "Starting compilation",
		logfields.Count(bundle.InputCount()),
		slog.Int("concurrency", c.cfg.Compile.Concurrency),
		slog.Int("batch_size", c.cfg.Compile.BatchSize))

	err := stages.RunStages(ctx, cs, c.Pipeline())

	cs.Report.RecordOutputs(cs.Snapshot(), cs.Docs.Problems())
	cs.Report.Finish()
	cs.Report.DeriveOutcome()
	cs.Observer.OnCompileComplete(cs.Report)

	if c.reportDir != "" {
		if perr := cs.Report.Persist(c.reportDir); perr != nil {
			observability.WarnContext(ctx, "Failed to persist compile report", logfields.Error(perr))
		}
	}
	return models.NewResult(cs), err
}
