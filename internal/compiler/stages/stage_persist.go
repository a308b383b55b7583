package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"git.home.luguber.info/inful/doctopics/internal/compiler/models"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/observability"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/publish"
	"git.home.luguber.info/inful/doctopics/internal/storage"
)

// RunManifest is the run_manifest object: which stored render unit holds
// each topic of a run.
type RunManifest struct {
	RunID     string            `json:"run_id"`
	Bundle    string            `json:"bundle"`
	CreatedAt time.Time         `json:"created_at"`
	Units     map[string]string `json:"units"`
	LinkIndex string            `json:"link_index"`
}

// StagePersist hands the finalized outputs to every configured sink. Sink
// failures are warnings: the compiled outputs stay in the result.
func StagePersist(ctx context.Context, cs *models.CompileState) error {
	out := cs.Snapshot()
	var errs []error

	if cs.Sinks.Objects != nil {
		n, err := storeObjects(ctx, cs, out)
		cs.Report.StoredObjects = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	if cs.Sinks.Index != nil {
		if err := cs.Sinks.Index.Write(ctx, cs.RunID, cs.Bundle.Identifier, out.Summaries, out.Records); err != nil {
			errs = append(errs, ferrors.StorageError("write index").Wrap(err).Warning().
				WithContext("run_id", cs.RunID).Build())
		}
	}
	if cs.Sinks.Publisher != nil {
		if err := publishProblems(ctx, cs, out); err != nil {
			errs = append(errs, fmt.Errorf("publish problems: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		if ctx.Err() != nil {
			return models.NewCanceledStageError(models.StagePersist, err)
		}
		return models.NewWarnStageError(models.StagePersist, fmt.Errorf("%w: %w", models.ErrPersist, err))
	}
	return nil
}

func storeObjects(ctx context.Context, cs *models.CompileState, out *models.Outputs) (int, error) {
	store := cs.Sinks.Objects
	manifest := RunManifest{
		RunID:     cs.RunID,
		Bundle:    cs.Bundle.Identifier,
		CreatedAt: cs.Report.Start.UTC(),
		Units:     make(map[string]string, len(out.Units)),
	}
	hashes := make([]string, 0, len(out.Units)+2)
	put := func(typ storage.ObjectType, v any, custom map[string]string) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", typ, err)
		}
		hash, err := store.Put(ctx, &storage.Object{
			Type:     typ,
			Size:     int64(len(data)),
			Data:     data,
			Metadata: storage.Metadata{Custom: custom},
		})
		if err != nil {
			return "", ferrors.StorageError("store " + string(typ)).Wrap(err).Warning().Build()
		}
		hashes = append(hashes, hash)
		return hash, nil
	}

	for _, u := range out.Units {
		hash, err := put(storage.ObjectTypeRenderUnit, u, map[string]string{"identifier": u.Identifier})
		if err != nil {
			return len(hashes), err
		}
		manifest.Units[u.Identifier] = hash
	}
	hash, err := put(storage.ObjectTypeLinkIndex, out.Summaries, map[string]string{"bundle": cs.Bundle.Identifier})
	if err != nil {
		return len(hashes), err
	}
	manifest.LinkIndex = hash
	if _, err := put(storage.ObjectTypeRunManifest, manifest, map[string]string{"run_id": cs.RunID}); err != nil {
		return len(hashes), err
	}

	slices.Sort(hashes)
	hashes = slices.Compact(hashes)
	if err := store.AddRunRef(ctx, cs.RunID, hashes); err != nil {
		return len(hashes), ferrors.StorageError("record run").Wrap(err).Warning().
			WithContext("run_id", cs.RunID).Build()
	}
	observability.InfoContext(ctx, "Stored compile output", logfields.Count(len(hashes)))
	return len(hashes), nil
}

func publishProblems(ctx context.Context, cs *models.CompileState, out *models.Outputs) error {
	all := slices.Concat(cs.Docs.Problems().Sorted(), out.ConversionProblems)
	provisional := *cs.Report
	provisional.DeriveOutcome()
	run := publish.RunEvent{
		RunID:   cs.RunID,
		Bundle:  cs.Bundle.Identifier,
		Outcome: string(provisional.Outcome),
	}
	for _, p := range all {
		switch p.Severity {
		case problems.SeverityError:
			run.ErrorCount++
		case problems.SeverityWarning:
			run.WarningCount++
		}
	}
	return cs.Sinks.Publisher.PublishProblems(ctx, run, all)
}
