package stages

import (
	"errors"

	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

// StageOutcome normalized result of stage execution.
type StageOutcome struct {
	Stage     models.StageName
	Error     *models.StageError
	Result    models.StageResult
	IssueCode models.ReportIssueCode
	Severity  models.IssueSeverity
	Transient bool
	Abort     bool
}

func resultFromStageErrorKind(k models.StageErrorKind) models.StageResult {
	switch k {
	case models.StageErrorWarning:
		return models.StageResultWarning
	case models.StageErrorCanceled:
		return models.StageResultCanceled
	case models.StageErrorFatal:
		return models.StageResultFatal
	default:
		return models.StageResultFatal
	}
}

func severityFromStageErrorKind(k models.StageErrorKind) models.IssueSeverity {
	if k == models.StageErrorWarning {
		return models.SeverityWarning
	}
	return models.SeverityError
}

// ClassifyStageResult converts a raw error from a stage into a StageOutcome.
// Errors that are not StageErrors are fatal.
func ClassifyStageResult(stage models.StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: models.StageResultSuccess}
	}

	var se *models.StageError
	if !errors.As(err, &se) {
		se = models.NewFatalStageError(stage, err)
	}
	if se.Kind == models.StageErrorCanceled {
		return StageOutcome{
			Stage:     stage,
			Error:     se,
			Result:    models.StageResultCanceled,
			IssueCode: models.IssueCanceled,
			Severity:  models.SeverityError,
			Abort:     true,
		}
	}

	return StageOutcome{
		Stage:     stage,
		Error:     se,
		Result:    resultFromStageErrorKind(se.Kind),
		IssueCode: classifyIssueCode(se),
		Severity:  severityFromStageErrorKind(se.Kind),
		Transient: se.Transient(),
		Abort:     se.Kind == models.StageErrorFatal,
	}
}

func classifyIssueCode(se *models.StageError) models.ReportIssueCode {
	switch se.Stage {
	case models.StageRegister:
		return models.IssueRegistrationFailure
	case models.StageCurate, models.StagePrecompute:
		return classifyCurationIssue(se)
	case models.StageConvert:
		return models.IssuePartialConversion
	case models.StagePersist:
		return models.IssuePersistFailure
	case models.StageFinalize:
		return models.IssueGenericStageError
	default:
		return models.IssueGenericStageError
	}
}

func classifyCurationIssue(se *models.StageError) models.ReportIssueCode {
	var cycle *topicgraph.CycleError
	if errors.As(se.Err, &cycle) {
		return models.IssueCurationCycle
	}
	if ferrors.HasCategory(se.Err, ferrors.CategoryGraph) {
		return models.IssueCurationCycle
	}
	return models.IssueCurationFailure
}
