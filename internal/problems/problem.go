// Package problems holds the diagnostics produced while compiling a
// documentation bundle. Problems never abort a compilation on their own; the
// orchestrator decides what is fatal.
package problems

import (
	"cmp"
	"fmt"
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Severity indicates the importance level of a problem.
type Severity int

const (
	// SeverityInformation marks notes that need no action.
	SeverityInformation Severity = iota
	SeverityHint
	// SeverityWarning marks content that compiles but is likely wrong.
	SeverityWarning
	// SeverityError marks content that could not be compiled as written.
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Identifier names the check that produced a problem.
type Identifier string

const (
	UnresolvedTopicReference  Identifier = "unresolved-topic-reference"
	AmbiguousTopicReference   Identifier = "ambiguous-topic-reference"
	NotLinkableTopicReference Identifier = "not-linkable-topic-reference"
	DuplicateTopicsSection    Identifier = "duplicate-topics-section"
	MissingAbstract           Identifier = "missing-abstract"
	InvalidHeading            Identifier = "invalid-heading"
	CurationCycle             Identifier = "curation-cycle"
	SelfCuration              Identifier = "self-curation"
	OrphanedArticle           Identifier = "orphaned-article"
	ConversionFailed          Identifier = "conversion-failed"
	DuplicateExtensionFile    Identifier = "duplicate-extension-file"
	UnknownExtensionSymbol    Identifier = "unknown-extension-symbol"
)

// Solution is a suggested fix. Replacement is the text that would replace
// the offending source span, empty when the fix is not mechanical.
type Solution struct {
	Summary     string `json:"summary"`
	Replacement string `json:"replacement,omitempty"`
}

// Problem is a single diagnostic.
type Problem struct {
	Identifier  Identifier
	Severity    Severity
	Summary     string
	Explanation string
	// Source is the catalog-relative file the problem was found in, empty
	// for problems that concern symbol data.
	Source    string
	Line      int
	Reference topic.Reference
	Solutions []Solution
}

// String renders the problem as "source:line: severity: summary".
func (p Problem) String() string {
	loc := p.Source
	if loc == "" && !p.Reference.IsZero() {
		loc = p.Reference.Path()
	}
	if p.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, p.Line)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s [%s]", p.Severity, p.Summary, p.Identifier)
	}
	return fmt.Sprintf("%s: %s: %s [%s]", loc, p.Severity, p.Summary, p.Identifier)
}

// Compare orders problems by source, line, reference path, then identifier
// and summary.
func Compare(a, b Problem) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Line, b.Line),
		topic.Compare(a.Reference, b.Reference),
		cmp.Compare(a.Identifier, b.Identifier),
		cmp.Compare(a.Summary, b.Summary),
	)
}

// List collects problems. It is not safe for concurrent use; concurrent
// producers feed it through a synchronized accumulator.
type List struct {
	items []Problem
}

// Add appends problems to the list.
func (l *List) Add(p ...Problem) {
	l.items = append(l.items, p...)
}

// Merge appends every problem of other.
func (l *List) Merge(other *List) {
	if other == nil {
		return
	}
	l.items = append(l.items, other.items...)
}

// Len returns the number of problems.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// All returns the problems in insertion order.
func (l *List) All() []Problem {
	if l == nil {
		return nil
	}
	return slices.Clone(l.items)
}

// Sorted returns the problems in deterministic order.
func (l *List) Sorted() []Problem {
	out := l.All()
	slices.SortStableFunc(out, Compare)
	return out
}

// HasErrors reports whether any problem has error severity.
func (l *List) HasErrors() bool {
	return l.Count(SeverityError) > 0
}

// Count returns the number of problems with severity s.
func (l *List) Count(s Severity) int {
	if l == nil {
		return 0
	}
	n := 0
	for _, p := range l.items {
		if p.Severity == s {
			n++
		}
	}
	return n
}

// WithIdentifier returns the problems produced by check id, in insertion
// order.
func (l *List) WithIdentifier(id Identifier) []Problem {
	if l == nil {
		return nil
	}
	var out []Problem
	for _, p := range l.items {
		if p.Identifier == id {
			out = append(out, p)
		}
	}
	return out
}
