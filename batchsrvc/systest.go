package batchsrvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/logger"
	"github.com/programme-lv/ojcore/record"
)

type BatchResult struct {
	Cloned []uuid.UUID
	// latest records that already carried the categories
	Skipped int
}

// SystemTest clones each contestant's latest original record per problem
// under categories; the judge folds each clone as a pending attempt before
// queueing it. With onlyNew,
// a problem whose latest categorized record already has exactly these
// categories is left alone. Clone failures do not stop the batch; they are
// returned joined once every contestant was visited.
func (s *BatchSrvc) SystemTest(ctx context.Context, tid uuid.UUID, categories []string, onlyNew bool) (BatchResult, error) {
	categories = record.NormalizeCategories(categories)
	if len(categories) == 0 {
		return BatchResult{}, fmt.Errorf("system test needs a judge category")
	}
	ctx = logger.WithContestID(ctx, tid)

	sameTarget := func(rec record.Record) bool {
		return onlyNew && record.SameCategories(rec.JudgeCategory, categories)
	}
	selected, err := s.SelectLatest(ctx, tid, nil, func(rec record.Record) bool {
		// categorized records are clones, never originals
		return len(rec.JudgeCategory) > 0 && !sameTarget(rec)
	})
	if err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	var errs []error
	for _, rec := range selected {
		if sameTarget(rec) {
			res.Skipped++
			continue
		}
		clone, err := s.judge.SystemTest(ctx, rec, categories)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", rec.ID, err))
			continue
		}
		res.Cloned = append(res.Cloned, clone.ID)
	}
	logger.FromContext(ctx).Info("system test batch queued",
		slog.Int("cloned", len(res.Cloned)),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", len(errs)))
	return res, errors.Join(errs...)
}
