package models

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/metrics"
)

// CompileObserver receives callbacks around stage execution and the
// compilation lifecycle.
type CompileObserver interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnCompileComplete(report *CompileReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(_ StageName)                                    {}
func (NoopObserver) OnStageComplete(_ StageName, _ time.Duration, _ StageResult) {}
func (NoopObserver) OnCompileComplete(_ *CompileReport)                          {}

// RecorderObserver adapts metrics.Recorder into a CompileObserver.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(_ StageName) {}
func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, _ StageResult) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
	}
}

func (r RecorderObserver) OnCompileComplete(report *CompileReport) {
	if r.Recorder != nil {
		r.Recorder.ObserveCompileDuration(report.End.Sub(report.Start))
		r.Recorder.IncCompileOutcome(string(report.Outcome))
	}
}

// LogObserver logs stage transitions at debug level.
type LogObserver struct{ Logger *slog.Logger }

func (l LogObserver) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l LogObserver) OnStageStart(stage StageName) {
	l.logger().Debug("Stage started", logfields.Stage(string(stage)))
}

func (l LogObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	l.logger().Debug("Stage completed",
		logfields.Stage(string(stage)),
		logfields.DurationMS(float64(d.Microseconds())/1000),
		slog.String("result", string(result)))
}

func (l LogObserver) OnCompileComplete(report *CompileReport) {
	l.logger().Info("Compilation finished", logfields.RunID(report.RunID), slog.String("summary", report.Summary()))
}

// MultiObserver fans callbacks out to several observers in order.
type MultiObserver []CompileObserver

func (m MultiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m MultiObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	for _, o := range m {
		o.OnStageComplete(stage, d, result)
	}
}

func (m MultiObserver) OnCompileComplete(report *CompileReport) {
	for _, o := range m {
		o.OnCompileComplete(report)
	}
}
