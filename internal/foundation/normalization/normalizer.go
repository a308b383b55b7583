// Package normalization maps loosely formatted strings (config values, symbol
// kind identifiers, language tags) onto typed enumerations.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Func normalizes a raw key before lookup.
type Func func(string) string

// Normalizer provides type-safe string-to-enum normalization.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string
	clean        Func
}

// NewNormalizer creates a normalizer that trims and lowercases keys.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	return WithCustomNormalizer(values, defaultValue, Lowercase)
}

// WithCustomNormalizer creates a normalizer with custom key normalization.
func WithCustomNormalizer[T comparable](values map[string]T, defaultValue T, clean Func) *Normalizer[T] {
	n := &Normalizer[T]{
		values:       make(map[string]T, len(values)),
		defaultValue: defaultValue,
		keys:         make([]string, 0, len(values)),
		clean:        clean,
	}
	for k, v := range values {
		key := clean(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	slices.Sort(n.keys)
	return n
}

// Lookup returns the value for raw and whether it was recognized.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.values[n.clean(raw)]
	return v, ok
}

// Normalize returns the value for raw, or the default when unrecognized.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.Lookup(raw); ok {
		return v
	}
	return n.defaultValue
}

// NormalizeWithError returns an error listing valid keys when raw is unrecognized.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys)
}

// ValidKeys returns all valid normalized keys, sorted.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.keys)
}

// Lowercase trims surrounding whitespace and lowercases s.
func Lowercase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
