package pathhierarchy

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// ErrorKind classifies a failed resolution.
type ErrorKind int

const (
	NotFound ErrorKind = iota
	Ambiguous
	NotLinkable
)

func (k ErrorKind) String() string {
	switch k {
	case Ambiguous:
		return "ambiguous"
	case NotLinkable:
		return "not linkable"
	default:
		return "not found"
	}
}

// Candidate is one of several topics an ambiguous link could mean.
type Candidate struct {
	Reference topic.Reference
	Kind      topic.Kind
	Name      string
	// Disambiguation is the suffix telling the candidate apart from
	// candidates with the same name. Empty when Name alone is unique.
	Disambiguation string
}

// Link returns the path component that selects this candidate.
func (c Candidate) Link() string {
	if c.Disambiguation == "" {
		return c.Name
	}
	return c.Name + "-" + c.Disambiguation
}

// ResolutionError describes why a link could not be resolved. It is a
// diagnostic: callers record it and carry on.
type ResolutionError struct {
	Kind ErrorKind
	Link string
	// PartialResult is the deepest topic the link matched before failing.
	PartialResult topic.Reference
	// Remaining lists the path components that could not be matched.
	Remaining []string
	// Candidates is set for ambiguous links, sorted by name and suffix.
	Candidates []Candidate
	// Suggestions holds near-miss names, closest first.
	Suggestions []string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case Ambiguous:
		fmt.Fprintf(&b, "%q is ambiguous", e.Link)
		if len(e.Candidates) > 0 {
			opts := make([]string, len(e.Candidates))
			for i, c := range e.Candidates {
				opts[i] = c.Link()
			}
			fmt.Fprintf(&b, "; use one of %s", strings.Join(opts, ", "))
		}
	case NotLinkable:
		fmt.Fprintf(&b, "%q resolves to a topic that can't be linked to", e.Link)
	default:
		fmt.Fprintf(&b, "%q not found", e.Link)
		if len(e.Remaining) > 0 && !e.PartialResult.IsZero() {
			fmt.Fprintf(&b, ": no %q below %s", e.Remaining[0], e.PartialResult.Path())
		}
		if len(e.Suggestions) > 0 {
			fmt.Fprintf(&b, "; did you mean %s?", strings.Join(e.Suggestions, ", "))
		}
	}
	return b.String()
}
