package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// LinkOutcome enumerates link resolution results.
type LinkOutcome string

const (
	LinkResolved    LinkOutcome = "resolved"
	LinkNotFound    LinkOutcome = "not_found"
	LinkAmbiguous   LinkOutcome = "ambiguous"
	LinkNotLinkable LinkOutcome = "not_linkable"
)

// Recorder defines observability hooks for compile and stage metrics. All methods
// must be safe to call concurrently from conversion workers.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveCompileDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncCompileOutcome(outcome string) // outcome: success|warning|failed|canceled
	ObserveConversionDuration(kind string, d time.Duration, success bool)
	IncConversionResult(success bool)
	IncLinkResolution(outcome LinkOutcome)
	SetConversionConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)            {}
func (NoopRecorder) ObserveCompileDuration(time.Duration)                  {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                    {}
func (NoopRecorder) IncCompileOutcome(string)                              {}
func (NoopRecorder) ObserveConversionDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncConversionResult(bool)                              {}
func (NoopRecorder) IncLinkResolution(LinkOutcome)                         {}
func (NoopRecorder) SetConversionConcurrency(int)                          {}
