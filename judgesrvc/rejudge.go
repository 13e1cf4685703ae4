package judgesrvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/record"
)

// Rejudge puts a record back to WAITING. Any claim in flight is invalidated,
// so the previous worker's late reports are dropped.
func (s *JudgeSrvc) Rejudge(ctx context.Context, id uuid.UUID, enqueue bool) (record.Record, error) {
	rec, err := s.records.Reset(ctx, id)
	if err != nil {
		return record.Record{}, err
	}
	s.logger.Info("record rejudged", slog.String("rid", id.String()), slog.Bool("enqueue", enqueue))
	s.changes.PublishChange(rec)
	s.fold(ctx, rec)
	if enqueue {
		if err := s.enqueue(ctx, rec.ID); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// SystemTest clones src under judge categories as a new WAITING record,
// folds it as a pending attempt and enqueues it. src is left as is; the
// clone keeps its submission time.
func (s *JudgeSrvc) SystemTest(ctx context.Context, src record.Record, categories []string) (record.Record, error) {
	categories = record.NormalizeCategories(categories)
	if len(categories) == 0 {
		return record.Record{}, fmt.Errorf("system test needs a judge category")
	}
	submitAt := src.SubmittedAt()
	clone := record.Record{
		ID:            record.NewID(),
		DomainID:      src.DomainID,
		ProblemID:     src.ProblemID,
		UID:           src.UID,
		ContestID:     src.ContestID,
		Lang:          src.Lang,
		Code:          src.Code,
		CodeBlob:      src.CodeBlob,
		CodeType:      src.CodeType,
		Type:          src.Type,
		JudgeCategory: categories,
		Status:        record.StatusWaiting,
		Hidden:        src.Hidden,
		SubmitAt:      &submitAt,
	}
	if err := s.records.Insert(ctx, clone); err != nil {
		return record.Record{}, fmt.Errorf("failed to insert system test record: %w", err)
	}
	submissionsTotal.WithLabelValues(typeLabel(record.TypeSystemTest)).Inc()
	s.changes.PublishChange(clone)
	s.fold(ctx, clone)
	if err := s.enqueue(ctx, clone.ID); err != nil {
		return clone, err
	}
	return clone, nil
}
