package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyTopic      = "topic"
	KeyKind       = "kind"
	KeyLink       = "link"
	KeyScope      = "scope"
	KeyBundle     = "bundle"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyBatch      = "batch"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Topic(ref string) slog.Attr      { return slog.String(KeyTopic, ref) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Link(l string) slog.Attr         { return slog.String(KeyLink, l) }
func Scope(ref string) slog.Attr      { return slog.String(KeyScope, ref) }
func Bundle(id string) slog.Attr      { return slog.String(KeyBundle, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Batch(n int) slog.Attr           { return slog.Int(KeyBatch, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
