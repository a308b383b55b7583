package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/observability"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// StageConvert converts every topic in path order, in batches of
// Compile.BatchSize with at most Compile.Concurrency conversions in flight.
// The context is checked before each batch and each topic; conversions that
// already started finish and keep their output. Per-topic failures become
// conversion problems.
func StageConvert(ctx context.Context, cs *models.CompileState) error {
	if err := cs.Docs.BeginConversion(); err != nil {
		return models.NewFatalStageError(models.StageConvert, err)
	}
	if cs.Automatic == nil {
		return models.NewFatalStageError(models.StageConvert, ferrors.InternalError("automatic curation not prepared").Build())
	}
	refs := cs.Docs.References()
	concurrency := max(1, cs.Config.Compile.Concurrency)
	batchSize := max(1, cs.Config.Compile.BatchSize)
	cs.Recorder.SetConversionConcurrency(concurrency)
	conv := cs.NewConverter(cs.Docs, cs.Automatic, cs.Config.Compile.LanguageSet())

	for start := 0; start < len(refs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return cancelConversion(ctx, cs, len(refs), err)
		}
		end := min(start+batchSize, len(refs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, ref := range refs[start:end] {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				convertOne(gctx, cs, conv, ref)
				return nil
			})
		}
		_ = g.Wait()
		observability.DebugContext(ctx, "Batch converted", logfields.Batch(start/batchSize), logfields.Count(end-start))
	}
	if err := ctx.Err(); err != nil {
		return cancelConversion(ctx, cs, len(refs), err)
	}

	out := cs.Outputs.Snapshot()
	observability.InfoContext(ctx, "Conversion complete",
		logfields.Count(out.Converted),
		logfields.State(cs.Docs.State().String()))
	if out.Failed > 0 {
		return models.NewWarnStageError(models.StageConvert,
			fmt.Errorf("%w: %d of %d topics failed", models.ErrConversion, out.Failed, out.Attempted))
	}
	return nil
}

func cancelConversion(ctx context.Context, cs *models.CompileState, scheduled int, err error) error {
	attempted := cs.Outputs.Attempted()
	cs.Report.NotAttempted = scheduled - attempted
	if cerr := cs.Docs.Cancel(); cerr != nil {
		return models.NewFatalStageError(models.StageConvert, cerr)
	}
	observability.WarnContext(ctx, "Conversion cancelled",
		logfields.Count(attempted),
		logfields.State(cs.Docs.State().String()))
	return models.NewCanceledStageError(models.StageConvert, err)
}

func convertOne(ctx context.Context, cs *models.CompileState, conv models.Converter, ref topic.Reference) {
	if ctx.Err() != nil {
		return
	}
	cs.Outputs.Attempt()
	kind, source := "unknown", ""
	if e, err := cs.Docs.Entity(ref); err == nil {
		kind, source = e.Kind.Identifier(), e.Source
	}

	t0 := time.Now()
	out, err := safeConvert(ctx, conv, ref)
	dur := time.Since(t0)

	switch {
	case err == nil:
		cs.Outputs.Add(out)
	case errors.Is(err, renderunit.ErrSkipped):
		cs.Outputs.Skip()
		return
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return
	default:
		observability.WarnContext(observability.WithTopic(ctx, ref.Path()), "Topic conversion failed", logfields.Error(err))
		cs.Outputs.Fail(problems.Problem{
			Identifier:  problems.ConversionFailed,
			Severity:    problems.SeverityError,
			Summary:     fmt.Sprintf("Failed to convert %s", ref.Path()),
			Explanation: err.Error(),
			Source:      source,
			Reference:   ref,
		})
	}
	cs.Recorder.ObserveConversionDuration(kind, dur, err == nil)
	cs.Recorder.IncConversionResult(err == nil)
}

// safeConvert isolates a panicking conversion to its own topic.
func safeConvert(ctx context.Context, conv models.Converter, ref topic.Reference) (out *renderunit.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ferrors.ConversionError(fmt.Sprintf("conversion panicked: %v", r)).
				WithContext("reference", ref.Path()).Build()
		}
	}()
	return conv.Convert(ctx, ref)
}
