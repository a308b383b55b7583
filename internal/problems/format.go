package problems

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter writes problems for humans or machines.
type Formatter interface {
	Format(w io.Writer, problems []Problem) error
}

// NewFormatter returns the formatter for format ("json" or text).
func NewFormatter(format string) Formatter {
	if format == "json" {
		return JSONFormatter{}
	}
	return TextFormatter{}
}

// TextFormatter prints one problem per block followed by a summary line.
type TextFormatter struct{}

// Format outputs problems in human-readable text format.
func (TextFormatter) Format(w io.Writer, problems []Problem) error {
	counts := map[Severity]int{}
	for _, p := range problems {
		counts[p.Severity]++
		if _, err := fmt.Fprintln(w, p.String()); err != nil {
			return err
		}
		if p.Explanation != "" {
			for line := range strings.SplitSeq(strings.TrimSpace(p.Explanation), "\n") {
				if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
					return err
				}
			}
		}
		for _, s := range p.Solutions {
			if _, err := fmt.Fprintf(w, "  Fix: %s\n", s.Summary); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d error%s, %d warning%s\n",
		counts[SeverityError], pluralize(counts[SeverityError]),
		counts[SeverityWarning], pluralize(counts[SeverityWarning]))
	return err
}

// JSONFormatter encodes problems as an indented JSON document.
type JSONFormatter struct{}

// JSONProblem is the wire form of a Problem.
type JSONProblem struct {
	Identifier  string     `json:"identifier"`
	Severity    string     `json:"severity"`
	Summary     string     `json:"summary"`
	Explanation string     `json:"explanation,omitempty"`
	Source      string     `json:"source,omitempty"`
	Line        int        `json:"line,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	Solutions   []Solution `json:"solutions,omitempty"`
}

// ToJSON converts p to its wire form.
func ToJSON(p Problem) JSONProblem {
	out := JSONProblem{
		Identifier:  string(p.Identifier),
		Severity:    p.Severity.String(),
		Summary:     p.Summary,
		Explanation: p.Explanation,
		Source:      p.Source,
		Line:        p.Line,
		Solutions:   p.Solutions,
	}
	if !p.Reference.IsZero() {
		out.Reference = p.Reference.String()
	}
	return out
}

// Format outputs problems in JSON format.
func (JSONFormatter) Format(w io.Writer, problems []Problem) error {
	out := struct {
		ErrorCount   int           `json:"error_count"`
		WarningCount int           `json:"warning_count"`
		Problems     []JSONProblem `json:"problems"`
	}{Problems: make([]JSONProblem, 0, len(problems))}
	for _, p := range problems {
		switch p.Severity {
		case SeverityError:
			out.ErrorCount++
		case SeverityWarning:
			out.WarningCount++
		}
		out.Problems = append(out.Problems, ToJSON(p))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
