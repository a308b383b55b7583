// Package stages holds the compile stages and the runner that executes them.
package stages

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/observability"
	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

// RunStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func RunStages(ctx context.Context, cs *models.CompileState, stages []models.StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := models.NewCanceledStageError(st.Name, ctx.Err())
			out := StageOutcome{Stage: st.Name, Error: se, Result: models.StageResultCanceled, IssueCode: models.IssueCanceled, Severity: models.SeverityError, Abort: true}
			record(cs, out)
			cs.Observer.OnStageComplete(st.Name, 0, models.StageResultCanceled)
			return se
		default:
		}

		cs.Observer.OnStageStart(st.Name)
		stageCtx := observability.WithStage(ctx, string(st.Name))

		t0 := time.Now()
		err := runStage(stageCtx, cs, st)
		dur := time.Since(t0)

		cs.Report.StageDurations[string(st.Name)] = dur

		out := ClassifyStageResult(st.Name, err)
		record(cs, out)
		cs.Observer.OnStageComplete(st.Name, dur, out.Result)

		if out.Error != nil {
			observability.WarnContext(stageCtx, "Stage did not succeed",
				logfields.Error(out.Error),
				logfields.DurationMS(float64(dur.Microseconds())/1000))
		}
		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}

func record(cs *models.CompileState, out StageOutcome) {
	if out.Error != nil {
		cs.Report.StageErrorKinds[out.Stage] = out.Error.Kind
		cs.Report.AddIssue(out.IssueCode, out.Stage, out.Severity, out.Error.Error(), out.Transient, out.Error)
	}
	cs.Report.RecordStageResult(out.Stage, out.Result, cs.Recorder)
}

// runStage runs one stage, turning a curation cycle found by a graph
// traversal into a fatal stage error.
func runStage(ctx context.Context, cs *models.CompileState, st models.StageDef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*topicgraph.CycleError)
			if !ok {
				panic(r)
			}
			err = models.NewFatalStageError(st.Name, fmt.Errorf("%w: %w", models.ErrCuration, ce))
		}
	}()
	return st.Fn(ctx, cs)
}
