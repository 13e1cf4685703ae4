package judgesrvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/planglist"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/srvcerror"
)

type SubmitParams struct {
	DomainID  string
	ProblemID string
	UID       uuid.UUID
	ContestID *uuid.UUID

	Lang     string
	Code     string
	CodeBlob string
	CodeType record.CodeType

	Type          record.Type
	JudgeCategory []string
	Hidden        bool

	// lets problem setters submit to hidden problems
	Privileged bool
}

// Submit admits a new record in WAITING and hands it to the judge queue.
// Counter updates and the pending standings fold are best-effort. If only
// the enqueue fails, the stored record's id is returned with the error so
// it can be rejudged once the broker is back.
func (s *JudgeSrvc) Submit(ctx context.Context, p SubmitParams) (uuid.UUID, error) {
	if _, err := planglist.GetProgrLangById(p.Lang); err != nil {
		return uuid.Nil, err
	}
	problem, err := s.dir.GetProblem(ctx, p.DomainID, p.ProblemID)
	if err != nil {
		return uuid.Nil, err
	}
	if problem.Hidden && !p.Privileged {
		return uuid.Nil, directory.ErrProblemNotFound()
	}
	if !problem.AcceptsLanguage(p.Lang) {
		return uuid.Nil, planglist.ErrInvalidProgLang().
			SetDebug(fmt.Errorf("problem %s does not accept %s", p.ProblemID, p.Lang))
	}
	if p.ContestID != nil {
		if err := s.checkContestEntry(ctx, p); err != nil {
			return uuid.Nil, err
		}
	}

	rec := record.Record{
		ID:            record.NewID(),
		DomainID:      p.DomainID,
		ProblemID:     p.ProblemID,
		UID:           p.UID,
		ContestID:     p.ContestID,
		Lang:          p.Lang,
		Code:          p.Code,
		CodeBlob:      p.CodeBlob,
		CodeType:      p.CodeType,
		Type:          p.Type,
		JudgeCategory: record.NormalizeCategories(p.JudgeCategory),
		Status:        record.StatusWaiting,
		Hidden:        p.Hidden,
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert record: %w", err)
	}
	submissionsTotal.WithLabelValues(typeLabel(rec.Type)).Inc()
	log := s.logger.With(slog.String("rid", rec.ID.String()))
	log.Info("record submitted",
		slog.String("pid", rec.ProblemID),
		slog.String("uid", rec.UID.String()),
		slog.String("lang", rec.Lang))

	s.changes.PublishChange(rec)
	// the pending entry must precede any judge outcome in the journal
	s.fold(ctx, rec)
	if err := s.enqueue(ctx, rec.ID); err != nil {
		return rec.ID, err
	}

	if rec.Type == record.TypeSubmission {
		if err := s.dir.IncSubmit(ctx, rec.DomainID, rec.ProblemID, rec.UID); err != nil {
			sideEffectFailuresTotal.WithLabelValues("counters").Inc()
			log.Warn("failed to bump submission counters", slog.Any("error", err))
		}
	}
	return rec.ID, nil
}

func (s *JudgeSrvc) checkContestEntry(ctx context.Context, p SubmitParams) error {
	c, err := s.contests.Get(ctx, *p.ContestID)
	if err != nil {
		return err
	}
	if c.DomainID != p.DomainID {
		return contest.ErrContestNotFound()
	}
	if !c.IsOngoing(s.now()) {
		return contest.ErrContestNotLive()
	}
	if !c.HasProblem(p.ProblemID) {
		return directory.ErrProblemNotFound().
			SetDebug(fmt.Errorf("problem %s is not part of contest %s", p.ProblemID, c.ID))
	}
	st, err := s.standings.GetStatus(ctx, c.ID, p.UID)
	if srvcerror.IsNotFound(err) {
		return contest.ErrContestNotAttended()
	}
	if err != nil {
		return err
	}
	if !st.Attend {
		return contest.ErrContestNotAttended()
	}
	return nil
}

func typeLabel(t record.Type) string {
	switch t {
	case record.TypeSubmission:
		return "submission"
	case record.TypePretest:
		return "pretest"
	case record.TypeSystemTest:
		return "system_test"
	}
	return "unknown"
}
