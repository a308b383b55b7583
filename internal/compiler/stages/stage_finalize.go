package stages

import (
	"context"

	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
)

// StageFinalize freezes the accumulated outputs in deterministic order and
// completes the compilation state.
func StageFinalize(_ context.Context, cs *models.CompileState) error {
	cs.Final = cs.Outputs.Snapshot()
	cs.Report.RecordOutputs(cs.Final, cs.Docs.Problems())
	if err := cs.Docs.FinishConversion(); err != nil {
		return models.NewFatalStageError(models.StageFinalize, err)
	}
	return nil
}
