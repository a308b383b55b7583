package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testRecorder struct {
	mu             sync.Mutex
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	links          map[LinkOutcome]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		stageDurations: map[string]int{},
		stageResults:   map[string]map[ResultLabel]int{},
		links:          map[LinkOutcome]int{},
	}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stageDurations[stage]++
}
func (t *testRecorder) ObserveCompileDuration(time.Duration) {}
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) IncCompileOutcome(string)                              {}
func (t *testRecorder) ObserveConversionDuration(string, time.Duration, bool) {}
func (t *testRecorder) IncConversionResult(bool)                              {}
func (t *testRecorder) IncLinkResolution(o LinkOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.links[o]++
}
func (t *testRecorder) SetConversionConcurrency(int) {}

func TestRecorderInterfaceSatisfied(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)

	r := newTestRecorder()
	var rec Recorder = r
	rec.ObserveStageDuration("convert", time.Millisecond)
	rec.IncStageResult("convert", ResultSuccess)
	rec.IncStageResult("convert", ResultSuccess)
	rec.IncLinkResolution(LinkAmbiguous)

	assert.Equal(t, 1, r.stageDurations["convert"])
	assert.Equal(t, 2, r.stageResults["convert"][ResultSuccess])
	assert.Equal(t, 1, r.links[LinkAmbiguous])
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var p *PrometheusRecorder
	assert.NotPanics(t, func() {
		p.ObserveStageDuration("register", time.Second)
		p.IncConversionResult(true)
		p.SetConversionConcurrency(4)
	})
}
