package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "doctopics"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration         *prom.HistogramVec
	compileDuration       prom.Histogram
	stageResults          *prom.CounterVec
	compileOutcome        *prom.CounterVec
	conversionDuration    *prom.HistogramVec
	conversionResults     *prom.CounterVec
	linkResolutions       *prom.CounterVec
	conversionConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual compile stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		compileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Total compile duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		compileOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compile_outcomes_total",
			Help:      "Compile outcomes by final status",
		}, []string{"outcome"}),
		conversionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of individual topic conversions",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind", "result"}),
		conversionResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_results_total",
			Help:      "Topic conversion results by success/failure",
		}, []string{"result"}),
		linkResolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_resolutions_total",
			Help:      "Link resolution attempts by outcome",
		}, []string{"outcome"}),
		conversionConcurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "conversion_concurrency",
			Help:      "Configured conversion concurrency for the last compile",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.compileDuration, pr.stageResults, pr.compileOutcome,
		pr.conversionDuration, pr.conversionResults, pr.linkResolutions, pr.conversionConcurrency)
	return pr
}

// WriteTextfile gathers reg and writes it in the node-exporter textfile format.
func WriteTextfile(path string, reg *prom.Registry) error {
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCompileOutcome(outcome string) {
	if p == nil {
		return
	}
	p.compileOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveConversionDuration(kind string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.conversionDuration.WithLabelValues(kind, resultLabel(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncConversionResult(success bool) {
	if p == nil {
		return
	}
	p.conversionResults.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncLinkResolution(outcome LinkOutcome) {
	if p == nil {
		return
	}
	p.linkResolutions.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetConversionConcurrency(n int) {
	if p == nil {
		return
	}
	p.conversionConcurrency.Set(float64(n))
}
