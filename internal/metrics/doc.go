// Package metrics provides the observability hooks for doctopics compilations.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so call sites never need nil checks:
//
//	c := compiler.New(cfg, compiler.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The CLI exports a registry with WriteTextfile when --metrics-file is set.
package metrics
