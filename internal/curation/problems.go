package curation

import (
	"errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/markup"
	"git.home.luguber.info/inful/doctopics/internal/pathhierarchy"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// ResolutionProblem turns a failed link resolution into a diagnostic with
// one solution per disambiguation candidate or near-miss suggestion.
func ResolutionProblem(err error, link markup.Link, source string, page topic.Reference) problems.Problem {
	p := problems.Problem{
		Identifier: problems.UnresolvedTopicReference,
		Severity:   problems.SeverityWarning,
		Summary:    err.Error(),
		Source:     source,
		Line:       link.Line,
		Reference:  page,
	}
	var re *pathhierarchy.ResolutionError
	if !errors.As(err, &re) {
		return p
	}
	switch re.Kind {
	case pathhierarchy.Ambiguous:
		p.Identifier = problems.AmbiguousTopicReference
		for _, c := range re.Candidates {
			p.Solutions = append(p.Solutions, problems.Solution{
				Summary:     fmt.Sprintf("Use %q for the %s", c.Link(), strings.ToLower(c.Kind.Name())),
				Replacement: replaceComponent(link.Target(), re.Remaining, c.Link()),
			})
		}
	case pathhierarchy.NotLinkable:
		p.Identifier = problems.NotLinkableTopicReference
	default:
		if len(re.Remaining) > 0 {
			for _, s := range re.Suggestions {
				p.Solutions = append(p.Solutions, problems.Solution{
					Summary:     fmt.Sprintf("Replace %q with %q", re.Remaining[0], s),
					Replacement: replaceComponent(link.Target(), re.Remaining, s),
				})
			}
		}
	}
	return p
}

// replaceComponent rewrites the first unmatched component of link. It only
// rewrites links whose last component failed; other links get the bare
// replacement.
func replaceComponent(link string, remaining []string, with string) string {
	if len(remaining) != 1 {
		return with
	}
	body, frag, hasFrag := strings.Cut(link, "#")
	if !strings.HasSuffix(body, remaining[0]) {
		return with
	}
	out := strings.TrimSuffix(body, remaining[0]) + with
	if hasFrag {
		out += "#" + frag
	}
	return out
}
