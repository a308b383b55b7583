package models

import (
	"slices"
	"sync"

	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
)

// Outputs is everything a conversion produced, in deterministic order.
type Outputs struct {
	Units     []*renderunit.RenderUnit
	Summaries []renderunit.LinkSummary
	Records   []renderunit.IndexRecord
	// Assets are the distinct asset references of all units, sorted.
	Assets             []string
	ConversionProblems []problems.Problem

	Attempted int
	Converted int
	Skipped   int
	Failed    int
}

// Accumulator collects conversion results from concurrent workers. It is the
// only mutable state the workers share.
type Accumulator struct {
	mu        sync.Mutex
	units     []*renderunit.RenderUnit
	summaries []renderunit.LinkSummary
	records   []renderunit.IndexRecord
	assets    map[string]struct{}
	problems  problems.List
	attempted int
	skipped   int
	failed    int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{assets: make(map[string]struct{})}
}

// Attempt counts a conversion that was started.
func (a *Accumulator) Attempt() {
	a.mu.Lock()
	a.attempted++
	a.mu.Unlock()
}

// Add records a successful conversion.
func (a *Accumulator) Add(out *renderunit.Output) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.units = append(a.units, out.Unit)
	a.summaries = append(a.summaries, out.Summary)
	a.records = append(a.records, out.Records...)
	for _, asset := range out.Assets {
		a.assets[asset] = struct{}{}
	}
}

// Skip records a topic that has no page of its own.
func (a *Accumulator) Skip() {
	a.mu.Lock()
	a.skipped++
	a.mu.Unlock()
}

// Fail records a conversion failure as a problem.
func (a *Accumulator) Fail(p problems.Problem) {
	a.mu.Lock()
	a.failed++
	a.problems.Add(p)
	a.mu.Unlock()
}

// Attempted returns the number of conversions started so far.
func (a *Accumulator) Attempted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempted
}

// Snapshot returns sorted copies of everything accumulated so far.
func (a *Accumulator) Snapshot() *Outputs {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := &Outputs{
		Units:              slices.Clone(a.units),
		Summaries:          slices.Clone(a.summaries),
		Records:            slices.Clone(a.records),
		ConversionProblems: a.problems.Sorted(),
		Attempted:          a.attempted,
		Converted:          len(a.units),
		Skipped:            a.skipped,
		Failed:             a.failed,
	}
	for asset := range a.assets {
		out.Assets = append(out.Assets, asset)
	}
	slices.Sort(out.Assets)
	renderunit.SortUnits(out.Units)
	renderunit.SortSummaries(out.Summaries)
	renderunit.SortRecords(out.Records)
	return out
}
