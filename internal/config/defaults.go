package config

import (
	"runtime"
	"time"
)

const (
	defaultBatchSize      = 64
	defaultWatchDebounce  = 500 * time.Millisecond
	defaultPublishSubject = "doctopics.problems"
)

func normalize(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

// applyDefaults fills zero values. It never overrides explicit settings.
func applyDefaults(cfg *Config) {
	if cfg.Compile.Concurrency <= 0 {
		cfg.Compile.Concurrency = runtime.NumCPU()
	}
	if cfg.Compile.BatchSize <= 0 {
		cfg.Compile.BatchSize = defaultBatchSize
	}
	if cfg.Compile.WatchDebounce == "" {
		cfg.Compile.WatchDebounce = defaultWatchDebounce.String()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Publish.Subject == "" {
		cfg.Publish.Subject = defaultPublishSubject
	}
}
