package config

import (
	"fmt"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Validate checks a loaded configuration.
func Validate(cfg *Config) error {
	if cfg.Compile.Concurrency < 1 {
		return invalid("compile.concurrency", "must be at least 1")
	}
	if cfg.Compile.BatchSize < 1 {
		return invalid("compile.batch_size", "must be at least 1")
	}
	for _, l := range cfg.Compile.Languages {
		if topic.ParseSourceLanguage(l) == topic.LanguageUnknown {
			return invalid("compile.languages", fmt.Sprintf("unknown source language %q", l))
		}
	}
	if d, err := time.ParseDuration(cfg.Compile.WatchDebounce); err != nil || d <= 0 {
		return invalid("compile.watch_debounce", fmt.Sprintf("invalid duration %q", cfg.Compile.WatchDebounce))
	}
	if cfg.Publish.Enabled {
		if cfg.Publish.URL == "" {
			return invalid("publish.url", "required when publishing is enabled")
		}
		if strings.ContainsAny(cfg.Publish.Subject, " \t*>") {
			return invalid("publish.subject", "must be a literal subject")
		}
	}
	return nil
}

// LanguageSet returns the configured language filter.
func (c CompileConfig) LanguageSet() topic.LanguageSet {
	var out topic.LanguageSet
	for _, l := range c.Languages {
		out = out.Add(topic.ParseSourceLanguage(l))
	}
	return out
}

func invalid(field, msg string) error {
	return foundationerrors.ValidationError(fmt.Sprintf("invalid %s: %s", field, msg)).
		WithContext("field", field).Build()
}
