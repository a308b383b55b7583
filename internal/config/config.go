// Package config loads and validates doctopics configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
)

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1"

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "doctopics.yaml"

// Config represents the application configuration.
type Config struct {
	Version  string        `yaml:"version"`
	Compile  CompileConfig `yaml:"compile"`
	Features Features      `yaml:"features"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Output   OutputConfig  `yaml:"output"`
	Publish  PublishConfig `yaml:"publish"`
}

// CompileConfig tunes the compilation pipeline.
type CompileConfig struct {
	// Concurrency bounds the number of topics converted in parallel.
	Concurrency int `yaml:"concurrency"`
	// BatchSize is the number of topics handed to the workers between
	// cancellation checks.
	BatchSize int `yaml:"batch_size"`
	// Languages restricts rendered language variants. Empty means all.
	Languages []string `yaml:"languages,omitempty"`
	// SymbolGraphDirs lists extra directories searched for symbol graph files.
	SymbolGraphDirs []string `yaml:"symbol_graph_dirs,omitempty"`
	// WatchDebounce delays recompiles in watch mode.
	WatchDebounce string `yaml:"watch_debounce,omitempty"`
}

// Features carries the compiler's behavior toggles. It is passed explicitly
// to every component that needs it.
type Features struct {
	// AutomaticSeeAlso enables synthesized See Also sections.
	AutomaticSeeAlso bool `yaml:"automatic_see_also"`
	// CurateInheritedSymbols keeps inherited members in automatic Topics
	// even when they are curated in more than one place.
	CurateInheritedSymbols bool `yaml:"curate_inherited_symbols"`
	// AutomaticArticleCuration attaches uncurated articles to the technology root.
	AutomaticArticleCuration bool `yaml:"automatic_article_curation"`
	// ParametersDisambiguation lets a link to "foo" match "foo()" and "foo(_:)".
	ParametersDisambiguation bool `yaml:"parameters_disambiguation"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// File receives the gathered metrics in textfile format after each compile.
	File string `yaml:"file,omitempty"`
}

// OutputConfig configures where compile results are persisted.
type OutputConfig struct {
	// Directory holds the content-addressed render unit store. Empty disables it.
	Directory string `yaml:"directory,omitempty"`
	// IndexDB is the SQLite database receiving link summaries and index records.
	IndexDB string `yaml:"index_db,omitempty"`
}

// PublishConfig configures problem publishing over NATS.
type PublishConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Debounce returns the parsed watch debounce interval.
func (c CompileConfig) Debounce() time.Duration {
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil || d <= 0 {
		return defaultWatchDebounce
	}
	return d
}

// DefaultFeatures returns the feature set used when the configuration does not
// override it.
func DefaultFeatures() Features {
	return Features{
		AutomaticSeeAlso:         true,
		CurateInheritedSymbols:   false,
		AutomaticArticleCuration: true,
		ParametersDisambiguation: true,
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion, Features: DefaultFeatures()}
	applyDefaults(cfg)
	return cfg
}

// Load reads, expands, normalizes, defaults and validates a configuration file.
// A .env file in the working directory is loaded first; variables already set
// in the environment win.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load .env file").Fatal().Build()
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- path supplied by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, foundationerrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).Build()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Fatal().Build()
	}
	return Parse(data)
}

// Parse decodes configuration YAML after environment expansion.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{Features: DefaultFeatures()}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return nil, foundationerrors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)).Build()
	}

	normalize(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Default()
	example.Output = OutputConfig{Directory: "./.doctopics/objects", IndexDB: "./.doctopics/index.db"}
	example.Publish = PublishConfig{Enabled: false, URL: "nats://127.0.0.1:4222", Subject: defaultPublishSubject}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return foundationerrors.FileSystemError("failed to write config file").Wrap(err).
			WithContext("path", configPath).Build()
	}
	return nil
}
