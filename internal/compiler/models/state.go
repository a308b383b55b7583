package models

import (
	"context"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/metrics"
	"git.home.luguber.info/inful/doctopics/internal/publish"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
	"git.home.luguber.info/inful/doctopics/internal/storage"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Converter renders one topic. Implementations are shared by all
// conversion workers and must be safe for concurrent use.
type Converter interface {
	Convert(ctx context.Context, ref topic.Reference) (*renderunit.Output, error)
}

// ConverterFactory creates the converter once curation is complete.
type ConverterFactory func(docs *doccontext.Context, auto *curation.Automatic, languages topic.LanguageSet) Converter

// IndexWriter receives the link summaries and search records of a run.
type IndexWriter interface {
	Write(ctx context.Context, runID, bundle string, summaries []renderunit.LinkSummary, records []renderunit.IndexRecord) error
}

// Sinks are the optional destinations of compile output. Nil members are
// skipped.
type Sinks struct {
	Objects   storage.ObjectStore
	Index     IndexWriter
	Publisher publish.Publisher
}

// Empty reports whether no sink is configured.
func (s Sinks) Empty() bool {
	return s.Objects == nil && s.Index == nil && s.Publisher == nil
}

// CompileState carries mutable state across stages. Stages run one at a
// time; the convert stage's workers only touch Outputs.
type CompileState struct {
	RunID  string
	Config *config.Config
	Bundle *catalog.Bundle

	Docs         *doccontext.Context
	Cache        *curation.PrecomputedCache
	Automatic    *curation.Automatic
	NewConverter ConverterFactory

	Recorder metrics.Recorder
	Observer CompileObserver
	Sinks    Sinks

	Report  *CompileReport
	Outputs *Accumulator
	// Final is the sorted snapshot taken by the finalize stage.
	Final *Outputs
}

// NewCompileState constructs a CompileState for one run.
func NewCompileState(runID string, cfg *config.Config, bundle *catalog.Bundle) *CompileState {
	return &CompileState{
		RunID:    runID,
		Config:   cfg,
		Bundle:   bundle,
		Docs:     doccontext.New(cfg.Features),
		Recorder: metrics.NoopRecorder{},
		Observer: NoopObserver{},
		Report:   NewCompileReport(runID, bundle.Identifier),
		Outputs:  NewAccumulator(),
	}
}

// Snapshot returns the finalized outputs, or a sorted snapshot of whatever
// was accumulated when finalize did not run.
func (cs *CompileState) Snapshot() *Outputs {
	if cs.Final != nil {
		return cs.Final
	}
	return cs.Outputs.Snapshot()
}
