package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/doctopics/internal/metrics"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/version"
)

// NewCompileReport constructs a new CompileReport.
func NewCompileReport(runID, bundle string) *CompileReport {
	return &CompileReport{
		SchemaVersion:    1,
		RunID:            runID,
		Bundle:           bundle,
		Start:            time.Now(),
		StageDurations:   make(map[string]time.Duration),
		StageErrorKinds:  make(map[StageName]StageErrorKind),
		StageCounts:      make(map[StageName]StageCount),
		DoctopicsVersion: version.Version,
	}
}

// CompileOutcome is the typed enumeration of final compile result states.
type CompileOutcome string

const (
	OutcomeSuccess  CompileOutcome = "success"
	OutcomeWarning  CompileOutcome = "warning"
	OutcomeFailed   CompileOutcome = "failed"
	OutcomeCanceled CompileOutcome = "canceled"
)

// CompileReport captures high-level metrics about one compilation run.
type CompileReport struct {
	SchemaVersion   int
	RunID           string
	Bundle          string
	Start           time.Time
	End             time.Time
	Errors          []error // fatal errors causing the compilation to abort
	Warnings        []error // non-fatal issues such as failed conversions
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount

	Inputs int // symbol graphs, markup files and tutorials registered
	Topics int // topics in the curated graph

	// Conversion counters. Attempted+NotAttempted is the number of
	// topics scheduled for conversion.
	Attempted    int
	Converted    int
	Skipped      int
	Failed       int
	NotAttempted int

	AnalysisProblems   int
	ConversionProblems int
	ErrorProblems      int // problems of error severity, of either kind

	StoredObjects int // objects written by the persist stage
	Outcome       CompileOutcome
	Issues        []ReportIssue

	DoctopicsVersion string
}

// AddIssue appends a structured issue and mirrors severity into Errors/Warnings slices.
func (r *CompileReport) AddIssue(code ReportIssueCode, stage StageName, severity IssueSeverity, msg string, transient bool, err error) {
	issue := ReportIssue{Code: code, Stage: stage, Severity: severity, Message: msg, Transient: transient}
	r.Issues = append(r.Issues, issue)
	if err != nil {
		switch severity {
		case SeverityError:
			r.Errors = append(r.Errors, err)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, err)
		}
	}
}

// ReportIssueCode enumerates machine-parseable issue identifiers.
// Codes are append-only.
type ReportIssueCode string

const (
	IssueRegistrationFailure ReportIssueCode = "REGISTRATION_FAILURE"
	IssueCurationCycle       ReportIssueCode = "CURATION_CYCLE"
	IssueCurationFailure     ReportIssueCode = "CURATION_FAILURE"
	IssuePartialConversion   ReportIssueCode = "PARTIAL_CONVERSION"
	IssuePersistFailure      ReportIssueCode = "PERSIST_FAILURE"
	IssueCanceled            ReportIssueCode = "COMPILE_CANCELED"
	IssueGenericStageError   ReportIssueCode = "GENERIC_STAGE_ERROR"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ReportIssue is a structured taxonomy entry describing a discrete problem encountered.
type ReportIssue struct {
	Code      ReportIssueCode `json:"code"`
	Stage     StageName       `json:"stage"`
	Severity  IssueSeverity   `json:"severity"`
	Message   string          `json:"message"`
	Transient bool            `json:"transient"`
}

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// RecordOutputs copies conversion counters and problem counts into the report.
func (r *CompileReport) RecordOutputs(out *Outputs, analysis *problems.List) {
	r.Attempted = out.Attempted
	r.Converted = out.Converted
	r.Skipped = out.Skipped
	r.Failed = out.Failed
	r.AnalysisProblems = analysis.Len()
	r.ConversionProblems = len(out.ConversionProblems)
	r.ErrorProblems = analysis.Count(problems.SeverityError)
	for _, p := range out.ConversionProblems {
		if p.Severity == problems.SeverityError {
			r.ErrorProblems++
		}
	}
}

// Finish sets the end time of the report.
func (r *CompileReport) Finish() { r.End = time.Now() }

// RecordStageResult updates report counters and emits metrics (if recorder non-nil).
func (r *CompileReport) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	if r.StageCounts == nil {
		r.StageCounts = make(map[StageName]StageCount)
	}
	sc := r.StageCounts[stage]
	var label metrics.ResultLabel
	switch res {
	case StageResultSuccess:
		sc.Success++
		label = metrics.ResultSuccess
	case StageResultWarning:
		sc.Warning++
		label = metrics.ResultWarning
	case StageResultFatal:
		sc.Fatal++
		label = metrics.ResultFatal
	case StageResultCanceled:
		sc.Canceled++
		label = metrics.ResultCanceled
	case StageResultSkipped:
	}
	r.StageCounts[stage] = sc
	if recorder != nil && label != "" {
		recorder.IncStageResult(string(stage), label)
	}
}

// Summary returns a human-readable single-line summary.
func (r *CompileReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("bundle=%s topics=%d converted=%d skipped=%d failed=%d not_attempted=%d problems=%d/%d duration=%s errors=%d warnings=%d outcome=%s",
		r.Bundle, r.Topics, r.Converted, r.Skipped, r.Failed, r.NotAttempted,
		r.AnalysisProblems, r.ConversionProblems, dur.Truncate(time.Millisecond),
		len(r.Errors), len(r.Warnings), string(r.Outcome))
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *CompileReport) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 || r.ErrorProblems > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Persist writes the report atomically into the provided root directory.
func (r *CompileReport) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.SanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "compile-report.json"), jb); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(root, "compile-report.txt"), []byte(r.Summary()+"\n"))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SanitizedCopy returns a copy with error fields converted to strings for JSON output.
func (r *CompileReport) SanitizedCopy() *CompileReportSerializable {
	stageCounts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		stageCounts[string(k)] = v
	}
	sek := make(map[string]string, len(r.StageErrorKinds))
	for k, v := range r.StageErrorKinds {
		sek[string(k)] = string(v)
	}
	durations := r.StageDurations
	if durations == nil {
		durations = map[string]time.Duration{}
	}
	issues := r.Issues
	if issues == nil {
		issues = []ReportIssue{}
	}

	s := &CompileReportSerializable{
		SchemaVersion:      r.SchemaVersion,
		RunID:              r.RunID,
		Bundle:             r.Bundle,
		Start:              r.Start,
		End:                r.End,
		Errors:             make([]string, len(r.Errors)),
		Warnings:           make([]string, len(r.Warnings)),
		StageDurations:     durations,
		StageErrorKinds:    sek,
		StageCounts:        stageCounts,
		Inputs:             r.Inputs,
		Topics:             r.Topics,
		Attempted:          r.Attempted,
		Converted:          r.Converted,
		Skipped:            r.Skipped,
		Failed:             r.Failed,
		NotAttempted:       r.NotAttempted,
		AnalysisProblems:   r.AnalysisProblems,
		ConversionProblems: r.ConversionProblems,
		ErrorProblems:      r.ErrorProblems,
		StoredObjects:      r.StoredObjects,
		Outcome:            string(r.Outcome),
		Issues:             issues,
		DoctopicsVersion:   r.DoctopicsVersion,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// CompileReportSerializable mirrors CompileReport but with string errors for JSON output.
type CompileReportSerializable struct {
	SchemaVersion      int                      `json:"schema_version"`
	RunID              string                   `json:"run_id"`
	Bundle             string                   `json:"bundle"`
	Start              time.Time                `json:"start"`
	End                time.Time                `json:"end"`
	Errors             []string                 `json:"errors"`
	Warnings           []string                 `json:"warnings"`
	StageDurations     map[string]time.Duration `json:"stage_durations"`
	StageErrorKinds    map[string]string        `json:"stage_error_kinds"`
	StageCounts        map[string]StageCount    `json:"stage_counts"`
	Inputs             int                      `json:"inputs"`
	Topics             int                      `json:"topics"`
	Attempted          int                      `json:"attempted"`
	Converted          int                      `json:"converted"`
	Skipped            int                      `json:"skipped"`
	Failed             int                      `json:"failed"`
	NotAttempted       int                      `json:"not_attempted"`
	AnalysisProblems   int                      `json:"analysis_problems"`
	ConversionProblems int                      `json:"conversion_problems"`
	ErrorProblems      int                      `json:"error_problems"`
	StoredObjects      int                      `json:"stored_objects,omitempty"`
	Outcome            string                   `json:"outcome"`
	Issues             []ReportIssue            `json:"issues"`
	DoctopicsVersion   string                   `json:"doctopics_version,omitempty"`
}
