package stages

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/observability"
)

// StageRegister registers every input of the bundle. Registration failures
// abort the compilation.
func StageRegister(ctx context.Context, cs *models.CompileState) error {
	cs.Report.Inputs = cs.Bundle.InputCount()
	if err := cs.Docs.Register(ctx, cs.Bundle); err != nil {
		if ctx.Err() != nil {
			return models.NewCanceledStageError(models.StageRegister, err)
		}
		return models.NewFatalStageError(models.StageRegister, fmt.Errorf("%w: %w", models.ErrRegistration, err))
	}
	return nil
}

// StageCurate builds the topic graph from symbol relationships and authored
// Topics sections. A curation cycle aborts the compilation.
func StageCurate(ctx context.Context, cs *models.CompileState) error {
	if err := cs.Docs.Curate(ctx); err != nil {
		if ctx.Err() != nil {
			return models.NewCanceledStageError(models.StageCurate, err)
		}
		return models.NewFatalStageError(models.StageCurate, fmt.Errorf("%w: %w", models.ErrCuration, err))
	}
	cs.Report.Topics = cs.Docs.Graph().Len()
	return nil
}

// StagePrecompute walks the curated graph once to cache canonical paths and
// task groups for automatic curation.
func StagePrecompute(ctx context.Context, cs *models.CompileState) error {
	cache, err := curation.Precompute(ctx, cs.Docs, cs.Config.Features)
	if err != nil {
		if ctx.Err() != nil {
			return models.NewCanceledStageError(models.StagePrecompute, err)
		}
		return models.NewFatalStageError(models.StagePrecompute, fmt.Errorf("%w: %w", models.ErrCuration, err))
	}
	cs.Cache = cache
	cs.Automatic = curation.NewAutomatic(cs.Docs, cs.Config.Features, cache)
	observability.DebugContext(ctx, "Render content cache ready", logfields.Count(cache.Len()))
	return nil
}
