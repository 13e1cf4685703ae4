package judgesrvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/broker"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/standings"
)

// Task is the work queue message. Workers de-duplicate through BeginJudge.
type Task struct {
	RecordID uuid.UUID `json:"rid"`
}

func (s *JudgeSrvc) enqueue(ctx context.Context, rid uuid.UUID) error {
	body, err := json.Marshal(Task{RecordID: rid})
	if err != nil {
		return fmt.Errorf("failed to marshal judge task: %w", err)
	}
	ch, err := s.queue.Channel(ctx, queueChannelKey)
	if err != nil {
		return err
	}
	err = ch.Publish(ctx, broker.Delivery{Route: s.queueName, Body: body})
	if err != nil {
		return fmt.Errorf("failed to enqueue judge task: %w", err)
	}
	return nil
}

// fold records rec's current state in its contestant's standing. Failures
// are logged and counted; the judge state is already durable.
func (s *JudgeSrvc) fold(ctx context.Context, rec record.Record) {
	if rec.ContestID == nil || s.standings == nil {
		return
	}
	_, err := s.standings.UpdateStatus(ctx, standings.UpdateParams{
		ContestID: *rec.ContestID,
		UID:       rec.UID,
		RecordID:  rec.ID,
		ProblemID: rec.ProblemID,
		Status:    rec.Status,
		Accept:    rec.Status == record.StatusAccepted,
		Score:     rec.Score,
		At:        rec.SubmittedAt(),
	})
	if err != nil {
		sideEffectFailuresTotal.WithLabelValues("standings").Inc()
		s.logger.Error("failed to fold record into standings",
			slog.String("rid", rec.ID.String()),
			slog.String("tid", rec.ContestID.String()),
			slog.Any("error", err))
	}
}
