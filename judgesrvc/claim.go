package judgesrvc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/record"
)

// BeginJudge claims a record for a worker. ok is false when the record is
// held by a live claim or already judged; that is not an error.
func (s *JudgeSrvc) BeginJudge(ctx context.Context, id uuid.UUID, judgeUID, token string, status record.Status) (record.Record, bool, error) {
	if judgeUID == "" || token == "" {
		return record.Record{}, false, ErrInvalidClaim()
	}
	if status == record.StatusWaiting {
		status = record.StatusJudging
	}
	if !status.IsActive() {
		return record.Record{}, false, ErrInvalidOutcome()
	}

	now := s.now()
	rec, ok, err := s.records.Claim(ctx, id, record.Claim{
		JudgeUID: judgeUID,
		Token:    token,
		At:       now,
		Status:   status,
	}, now.Add(-s.staleAfter))
	if err != nil {
		claimsTotal.WithLabelValues("error").Inc()
		return record.Record{}, false, err
	}
	if !ok {
		claimsTotal.WithLabelValues("held").Inc()
		s.logger.Debug("claim refused",
			slog.String("rid", id.String()),
			slog.String("judge_uid", judgeUID),
			slog.String("status", rec.Status.String()))
		return rec, false, nil
	}
	claimsTotal.WithLabelValues("won").Inc()
	s.changes.PublishChange(rec)
	return rec, true, nil
}

// ReportProgress applies a partial update under the caller's claim. Reports
// for a claim that was replaced are dropped with ok=false.
func (s *JudgeSrvc) ReportProgress(ctx context.Context, id uuid.UUID, judgeUID, token string, p record.Progress) (record.Record, bool, error) {
	if judgeUID == "" || token == "" {
		return record.Record{}, false, ErrInvalidClaim()
	}
	if p.Status != nil && !p.Status.IsActive() {
		return record.Record{}, false, ErrInvalidOutcome()
	}
	rec, ok, err := s.records.ApplyProgress(ctx, id, judgeUID, token, p)
	if err != nil {
		return record.Record{}, false, err
	}
	if !ok {
		s.mismatch("progress", id, judgeUID)
		return record.Record{}, false, nil
	}
	s.changes.PublishChange(rec)
	return rec, true, nil
}

// EndJudge stores the final outcome under the caller's claim and folds the
// record into its contest standing.
func (s *JudgeSrvc) EndJudge(ctx context.Context, id uuid.UUID, judgeUID, token string, res record.Result) (record.Record, bool, error) {
	if judgeUID == "" || token == "" {
		return record.Record{}, false, ErrInvalidClaim()
	}
	if !res.Status.IsTerminal() {
		return record.Record{}, false, ErrInvalidOutcome()
	}
	rec, ok, err := s.records.Finish(ctx, id, judgeUID, token, res)
	if err != nil {
		return record.Record{}, false, err
	}
	if !ok {
		s.mismatch("end", id, judgeUID)
		return record.Record{}, false, nil
	}
	outcomesTotal.WithLabelValues(rec.Status.String()).Inc()
	s.logger.Info("record judged",
		slog.String("rid", rec.ID.String()),
		slog.String("status", rec.Status.String()),
		slog.Int("score", rec.Score))
	s.changes.PublishChange(rec)

	if rec.Status == record.StatusAccepted && rec.Type == record.TypeSubmission && !rec.Rejudged {
		if err := s.dir.IncAccept(ctx, rec.DomainID, rec.ProblemID, rec.UID); err != nil {
			sideEffectFailuresTotal.WithLabelValues("counters").Inc()
			s.logger.Warn("failed to bump accept counters",
				slog.String("rid", rec.ID.String()), slog.Any("error", err))
		}
	}
	s.fold(ctx, rec)
	return rec, true, nil
}

func (s *JudgeSrvc) mismatch(op string, id uuid.UUID, judgeUID string) {
	claimMismatchTotal.WithLabelValues(op).Inc()
	s.logger.Debug("stale judge report dropped",
		slog.String("op", op),
		slog.String("rid", id.String()),
		slog.String("judge_uid", judgeUID))
}
