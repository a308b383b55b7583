package models

import (
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/problems"
)

// Result is what a compilation returns, including partial results of a
// cancelled or failed run.
type Result struct {
	RunID string
	State doccontext.State
	// Docs is the documentation context, for queries after compilation.
	Docs    *doccontext.Context
	Outputs *Outputs
	// AnalysisProblems come from registration and curation.
	AnalysisProblems []problems.Problem
	// ConversionProblems come from isolated per-topic failures.
	ConversionProblems []problems.Problem
	Report             *CompileReport
}

// NewResult assembles the result of a run from its state.
func NewResult(cs *CompileState) *Result {
	out := cs.Snapshot()
	return &Result{
		RunID:              cs.RunID,
		State:              cs.Docs.State(),
		Docs:               cs.Docs,
		Outputs:            out,
		AnalysisProblems:   cs.Docs.Problems().Sorted(),
		ConversionProblems: out.ConversionProblems,
		Report:             cs.Report,
	}
}

// Problems returns analysis and conversion problems in deterministic order.
func (r *Result) Problems() []problems.Problem {
	all := slices.Concat(r.AnalysisProblems, r.ConversionProblems)
	slices.SortStableFunc(all, problems.Compare)
	return all
}

// HasErrors reports whether any problem has error severity.
func (r *Result) HasErrors() bool {
	for _, p := range r.Problems() {
		if p.Severity == problems.SeverityError {
			return true
		}
	}
	return false
}
