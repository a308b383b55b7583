package compiler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/compiler"
	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/frontmatter"
	"git.home.luguber.info/inful/doctopics/internal/indexstore"
	"git.home.luguber.info/inful/doctopics/internal/metrics"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/publish"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
	"git.home.luguber.info/inful/doctopics/internal/storage"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

const bundleID = "com.example.Kit"

func sym(id, kind string, path ...string) symbolgraph.Symbol {
	return symbolgraph.Symbol{
		Identifier:     symbolgraph.Identifier{Precise: id, InterfaceLanguage: "swift"},
		Kind:           symbolgraph.Kind{Identifier: "swift." + kind},
		PathComponents: path,
		AccessLevel:    "public",
	}
}

func kitBundle(markup ...catalog.File) *catalog.Bundle {
	g := &symbolgraph.Graph{
		Module: symbolgraph.Module{Name: "Kit"},
		Symbols: []symbolgraph.Symbol{
			sym("s:Foo", "struct", "Foo"),
			sym("s:Foo.a", "method", "Foo", "a()"),
			sym("s:Bar", "class", "Bar"),
		},
		Relationships: []symbolgraph.Relationship{
			{Kind: symbolgraph.MemberOf, Source: "s:Foo.a", Target: "s:Foo"},
		},
	}
	return &catalog.Bundle{
		Identifier:      bundleID,
		DisplayName:     "Kit",
		DefaultLanguage: topic.LanguageSwift,
		SymbolGraphs:    []*symbolgraph.Graph{g},
		Markup:          markup,
	}
}

// largeBundle has a module and n-1 top-level structures: n topics.
func largeBundle(n int) *catalog.Bundle {
	g := &symbolgraph.Graph{Module: symbolgraph.Module{Name: "Kit"}}
	for i := range n - 1 {
		name := fmt.Sprintf("S%04d", i)
		g.Symbols = append(g.Symbols, sym("s:"+name, "struct", name))
	}
	return &catalog.Bundle{
		Identifier:      bundleID,
		DisplayName:     "Kit",
		DefaultLanguage: topic.LanguageSwift,
		SymbolGraphs:    []*symbolgraph.Graph{g},
	}
}

func testConfig(concurrency, batch int) *config.Config {
	cfg := config.Default()
	cfg.Compile.Concurrency = concurrency
	cfg.Compile.BatchSize = batch
	return cfg
}

func id(path string) string {
	return topic.ParsePath(bundleID, topic.LanguageSwift, path).String()
}

func identifiers(units []*renderunit.RenderUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Identifier
	}
	return out
}

// stubConverter returns a minimal output for every topic, calling hook with
// the 1-based call number first.
type stubConverter struct {
	calls atomic.Int32
	hook  func(n int32, ref topic.Reference) error
}

func (s *stubConverter) Convert(_ context.Context, ref topic.Reference) (*renderunit.Output, error) {
	n := s.calls.Add(1)
	if s.hook != nil {
		if err := s.hook(n, ref); err != nil {
			return nil, err
		}
	}
	return &renderunit.Output{
		Unit:    &renderunit.RenderUnit{Identifier: ref.String(), Title: ref.LastComponent()},
		Summary: renderunit.LinkSummary{Identifier: ref.String(), Path: ref.Path()},
	}, nil
}

func (s *stubConverter) factory() compiler.Option {
	return compiler.WithConverterFactory(func(*doccontext.Context, *curation.Automatic, topic.LanguageSet) models.Converter {
		return s
	})
}

func TestCompile_ProducesSortedOutputs(t *testing.T) {
	c := compiler.New(testConfig(4, 2))
	guide := catalog.File{Path: "Guide.md", Content: []byte("# Guide\n\nStart here.\n")}

	res, err := c.Compile(context.Background(), kitBundle(guide))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, doccontext.StateDone, res.State)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{
		id("/documentation/Kit"),
		id("/documentation/Kit/Bar"),
		id("/documentation/Kit/Foo"),
		id("/documentation/Kit/Foo/a()"),
		id("/documentation/Kit/Guide"),
	}, identifiers(res.Outputs.Units))
	assert.True(t, slices.IsSortedFunc(res.Outputs.Summaries, func(a, b renderunit.LinkSummary) int {
		return strings.Compare(a.Identifier, b.Identifier)
	}))
	assert.Empty(t, res.ConversionProblems)

	r := res.Report
	assert.Equal(t, 5, r.Converted)
	assert.Equal(t, 5, r.Attempted)
	assert.Zero(t, r.NotAttempted)
	assert.NotEqual(t, models.OutcomeFailed, r.Outcome)
	assert.NotEqual(t, models.OutcomeCanceled, r.Outcome)
	for _, st := range []models.StageName{models.StageRegister, models.StageCurate, models.StagePrecompute, models.StageConvert, models.StageFinalize} {
		assert.Contains(t, r.StageDurations, string(st))
		assert.Equal(t, 1, r.StageCounts[st].Success, st)
	}
	assert.NotContains(t, r.StageDurations, string(models.StagePersist))
}

func TestCompile_IsDeterministicAcrossConcurrency(t *testing.T) {
	serial, err := compiler.New(testConfig(1, 1)).Compile(context.Background(), largeBundle(50))
	require.NoError(t, err)
	parallel, err := compiler.New(testConfig(8, 7)).Compile(context.Background(), largeBundle(50))
	require.NoError(t, err)

	assert.Equal(t, identifiers(serial.Outputs.Units), identifiers(parallel.Outputs.Units))
	assert.Equal(t, serial.Outputs.Records, parallel.Outputs.Records)
}

func TestCompile_CancellationAfterTenTopics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := &stubConverter{hook: func(n int32, _ topic.Reference) error {
		if n == 10 {
			cancel()
		}
		return nil
	}}
	c := compiler.New(testConfig(1, 64), conv.factory())

	res, err := c.Compile(ctx, largeBundle(1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var se *models.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.StageErrorCanceled, se.Kind)
	assert.Equal(t, models.StageConvert, se.Stage)

	require.NotNil(t, res)
	assert.Equal(t, doccontext.StateCancelled, res.State)
	assert.Len(t, res.Outputs.Units, 10)
	assert.EqualValues(t, 10, conv.calls.Load())
	assert.Equal(t, 10, res.Report.Attempted)
	assert.Equal(t, 990, res.Report.NotAttempted)
	assert.Equal(t, models.OutcomeCanceled, res.Report.Outcome)
	assert.True(t, slices.IsSorted(identifiers(res.Outputs.Units)))
}

func TestCompile_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := compiler.New(testConfig(2, 8)).Compile(ctx, kitBundle())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Outputs.Units)
	assert.Equal(t, models.OutcomeCanceled, res.Report.Outcome)
	assert.Equal(t, 1, res.Report.StageCounts[models.StageRegister].Canceled)
}

func TestCompile_ConversionFailuresAreIsolated(t *testing.T) {
	conv := &stubConverter{hook: func(_ int32, ref topic.Reference) error {
		switch ref.LastComponent() {
		case "Bar":
			return errors.New("boom")
		case "a()":
			panic("unexpected fragment")
		}
		return nil
	}}
	c := compiler.New(testConfig(3, 2), conv.factory())

	res, err := c.Compile(context.Background(), kitBundle())
	require.NoError(t, err)

	assert.Equal(t, doccontext.StateDone, res.State)
	assert.Equal(t, []string{id("/documentation/Kit"), id("/documentation/Kit/Foo")}, identifiers(res.Outputs.Units))

	require.Len(t, res.ConversionProblems, 2)
	for _, p := range res.ConversionProblems {
		assert.Equal(t, problems.ConversionFailed, p.Identifier)
		assert.Equal(t, problems.SeverityError, p.Severity)
	}
	assert.Contains(t, res.ConversionProblems[0].Explanation+res.ConversionProblems[1].Explanation, "boom")
	assert.Contains(t, res.ConversionProblems[0].Explanation+res.ConversionProblems[1].Explanation, "conversion panicked: unexpected fragment")
	assert.Contains(t, res.Problems(), res.ConversionProblems[0])
	assert.True(t, res.HasErrors())

	r := res.Report
	assert.Equal(t, 2, r.Failed)
	assert.Equal(t, 2, r.Converted)
	assert.Equal(t, models.OutcomeWarning, r.Outcome)
	assert.Equal(t, models.StageErrorWarning, r.StageErrorKinds[models.StageConvert])
	require.NotEmpty(t, r.Issues)
	assert.Equal(t, models.IssuePartialConversion, r.Issues[0].Code)
	assert.Equal(t, 1, r.StageCounts[models.StageFinalize].Success, "finalize still runs after a warning")
}

func TestCompile_RegistrationFailureIsFatal(t *testing.T) {
	broken := catalog.File{Path: "Broken.md", Content: []byte("---\ntitle: x\n# Broken\n")}

	res, err := compiler.New(testConfig(1, 1)).Compile(context.Background(), kitBundle(broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRegistration)
	assert.ErrorIs(t, err, frontmatter.ErrMissingClosingDelimiter)

	require.NotNil(t, res)
	assert.Equal(t, models.OutcomeFailed, res.Report.Outcome)
	assert.Equal(t, 1, res.Report.StageCounts[models.StageRegister].Fatal)
	assert.NotContains(t, res.Report.StageDurations, string(models.StageCurate))
	assert.Empty(t, res.Outputs.Units)
}

type capturingPublisher struct {
	mu     sync.Mutex
	run    publish.RunEvent
	list   []problems.Problem
	closed bool
}

func (p *capturingPublisher) PublishProblems(_ context.Context, run publish.RunEvent, list []problems.Problem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.run, p.list = run, list
	return nil
}

func (p *capturingPublisher) Close() error { p.closed = true; return nil }

func TestCompile_PersistsToSinks(t *testing.T) {
	dir := t.TempDir()
	objects := storage.NewMemoryStore()
	index, err := indexstore.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	pub := &capturingPublisher{}

	guide := catalog.File{Path: "Guide.md", Content: []byte("# Guide\n\nSee <doc:Missing>.\n")}
	c := compiler.New(testConfig(2, 4),
		compiler.WithSinks(models.Sinks{Objects: objects, Index: index, Publisher: pub}),
		compiler.WithReportDir(filepath.Join(dir, "report")))

	res, err := c.Compile(context.Background(), kitBundle(guide))
	require.NoError(t, err)
	ctx := context.Background()

	// one object per unit, plus the link index and the run manifest
	assert.Equal(t, len(res.Outputs.Units)+2, objects.Len())
	hashes, err := objects.RunRef(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, hashes, objects.Len())
	assert.Equal(t, objects.Len(), res.Report.StoredObjects)

	manifests, err := objects.List(ctx, storage.ObjectTypeRunManifest)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	obj, err := objects.Get(ctx, manifests[0])
	require.NoError(t, err)
	var manifest struct {
		RunID string            `json:"run_id"`
		Units map[string]string `json:"units"`
	}
	require.NoError(t, json.Unmarshal(obj.Data, &manifest))
	assert.Equal(t, res.RunID, manifest.RunID)
	assert.Contains(t, manifest.Units, id("/documentation/Kit/Foo"))

	summary, err := index.LinkSummary(ctx, res.RunID, id("/documentation/Kit/Foo"))
	require.NoError(t, err)
	assert.Equal(t, "Foo", summary.Title)
	found, err := index.Search(ctx, res.RunID, "guide", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, found)

	assert.Equal(t, res.RunID, pub.run.RunID)
	assert.Equal(t, bundleID, pub.run.Bundle)
	assert.Len(t, pub.list, len(res.Problems()))
	assert.NotEmpty(t, pub.list, "the unresolved <doc:Missing> link is published")

	assert.Equal(t, 1, res.Report.StageCounts[models.StagePersist].Success)
	data, err := os.ReadFile(filepath.Join(dir, "report", "compile-report.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), res.RunID)
}

type failingIndex struct{}

func (failingIndex) Write(context.Context, string, string, []renderunit.LinkSummary, []renderunit.IndexRecord) error {
	return errors.New("database is locked")
}

func TestCompile_SinkFailureIsAWarning(t *testing.T) {
	c := compiler.New(testConfig(1, 8), compiler.WithSinks(models.Sinks{Index: failingIndex{}}))

	res, err := c.Compile(context.Background(), kitBundle())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Outputs.Units)
	assert.Equal(t, models.OutcomeWarning, res.Report.Outcome)
	assert.Equal(t, models.StageErrorWarning, res.Report.StageErrorKinds[models.StagePersist])
	require.NotEmpty(t, res.Report.Warnings)
	assert.ErrorIs(t, res.Report.Warnings[0], models.ErrPersist)
	assert.True(t, ferrors.HasCategory(res.Report.Warnings[0], ferrors.CategoryStorage))

	last := res.Report.Issues[len(res.Report.Issues)-1]
	assert.Equal(t, models.IssuePersistFailure, last.Code)
	assert.True(t, last.Transient)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu          sync.Mutex
	stages      map[string]metrics.ResultLabel
	outcomes    []string
	conversions int
	links       map[metrics.LinkOutcome]int
	concurrency int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{stages: map[string]metrics.ResultLabel{}, links: map[metrics.LinkOutcome]int{}}
}

func (c *countingRecorder) IncStageResult(stage string, r metrics.ResultLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage] = r
}

func (c *countingRecorder) IncCompileOutcome(o string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *countingRecorder) IncConversionResult(bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversions++
}

func (c *countingRecorder) IncLinkResolution(o metrics.LinkOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[o]++
}

func (c *countingRecorder) SetConversionConcurrency(n int) { c.concurrency = n }

type stageLog struct {
	models.NoopObserver
	started []models.StageName
	report  *models.CompileReport
}

func (s *stageLog) OnStageStart(st models.StageName)          { s.started = append(s.started, st) }
func (s *stageLog) OnCompileComplete(r *models.CompileReport) { s.report = r }

func TestCompile_RecordsMetricsAndNotifiesObservers(t *testing.T) {
	rec := newCountingRecorder()
	obs := &stageLog{}
	page := catalog.File{Path: "Guide.md", Content: []byte("# Guide\n\nUse ``Foo`` or ``Nope``.\n")}
	c := compiler.New(testConfig(3, 8), compiler.WithRecorder(rec), compiler.WithObserver(obs))

	res, err := c.Compile(context.Background(), kitBundle(page))
	require.NoError(t, err)

	assert.Equal(t, metrics.ResultSuccess, rec.stages[string(models.StageConvert)])
	assert.Equal(t, []string{string(res.Report.Outcome)}, rec.outcomes)
	assert.Equal(t, res.Report.Attempted, rec.conversions)
	assert.Equal(t, 3, rec.concurrency)
	assert.Positive(t, rec.links[metrics.LinkResolved])
	assert.Positive(t, rec.links[metrics.LinkNotFound])

	assert.Equal(t, []models.StageName{
		models.StageRegister, models.StageCurate, models.StagePrecompute, models.StageConvert, models.StageFinalize,
	}, obs.started)
	assert.Same(t, res.Report, obs.report)
}
