package standings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/logger"
	"github.com/programme-lv/ojcore/record"
)

// derivedAttempts bounds how often a fold recomputes after losing the
// journal length race to a concurrent append.
const derivedAttempts = 5

type Service struct {
	store    Store
	contests contest.Store
	dir      directory.Directory
	now      func() time.Time
	log      *slog.Logger
}

func NewService(store Store, contests contest.Store, dir directory.Directory, now func() time.Time, log *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		contests: contests,
		dir:      dir,
		now:      now,
		log:      log.With(slog.String("module", "standings")),
	}
}

type UpdateParams struct {
	ContestID uuid.UUID
	UID       uuid.UUID
	RecordID  uuid.UUID
	ProblemID string
	Status    record.Status
	Accept    bool
	Score     int
	// submission time of the attempt
	At time.Time
}

// UpdateStatus appends one journal entry and recomputes the derived stat
// from the effective journal.
func (s *Service) UpdateStatus(ctx context.Context, p UpdateParams) (Standing, error) {
	start := time.Now()
	defer func() { foldDuration.Observe(time.Since(start).Seconds()) }()
	ctx = logger.WithRecordID(logger.WithContestID(ctx, p.ContestID), p.RecordID)

	c, err := s.contests.Get(ctx, p.ContestID)
	if err != nil {
		foldsTotal.WithLabelValues("error").Inc()
		return Standing{}, err
	}
	rule, err := RuleByID(c.Rule)
	if err != nil {
		foldsTotal.WithLabelValues("error").Inc()
		return Standing{}, err
	}

	doc, err := s.store.Append(ctx, p.ContestID, p.UID, JournalEntry{
		RecordID:  p.RecordID,
		ProblemID: p.ProblemID,
		At:        p.At,
		Status:    p.Status,
		Accept:    p.Accept,
		Score:     p.Score,
	})
	if err != nil {
		foldsTotal.WithLabelValues("error").Inc()
		return Standing{}, fmt.Errorf("failed to append journal entry: %w", err)
	}

	doc, err = s.derive(ctx, c, rule, doc)
	if err != nil {
		foldsTotal.WithLabelValues("error").Inc()
		return Standing{}, err
	}
	foldsTotal.WithLabelValues("ok").Inc()
	return doc, nil
}

// derive stores the stat of doc's effective journal. If another fold
// appended meanwhile, the newer document is reloaded and derived instead.
// The fold that appended last always wins the length check.
func (s *Service) derive(ctx context.Context, c contest.Contest, rule Rule, doc Standing) (Standing, error) {
	for range derivedAttempts {
		st := rule.Stat(c, Effective(doc.Journal))
		ok, err := s.store.SetDerived(ctx, doc.ContestID, doc.UID, len(doc.Journal), st)
		if err != nil {
			return Standing{}, err
		}
		if ok {
			doc.Stat = st
			return doc, nil
		}
		doc, err = s.store.Get(ctx, doc.ContestID, doc.UID)
		if err != nil {
			return Standing{}, err
		}
	}
	// a later append is still folding and will store the newer stat
	logger.FromContext(ctx).Debug("standing kept changing while deriving",
		slog.String("uid", doc.UID.String()))
	return doc, nil
}

// Recalc rederives every standing of a contest, e.g. after its rule, window
// or penalty schedule was edited.
func (s *Service) Recalc(ctx context.Context, tid uuid.UUID) (int, error) {
	ctx = logger.WithContestID(ctx, tid)
	c, err := s.contests.Get(ctx, tid)
	if err != nil {
		return 0, err
	}
	rule, err := RuleByID(c.Rule)
	if err != nil {
		return 0, err
	}
	docs, err := s.store.List(ctx, tid)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if _, err := s.derive(ctx, c, rule, doc); err != nil {
			return 0, fmt.Errorf("failed to recalc standing of %s: %w", doc.UID, err)
		}
	}
	logger.FromContext(ctx).Info("recalculated standings", slog.Int("count", len(docs)))
	return len(docs), nil
}

func (s *Service) GetStatus(ctx context.Context, tid, uid uuid.UUID) (Standing, error) {
	return s.store.Get(ctx, tid, uid)
}

// GetAndListStatus returns the contest and all its standings, ranked order
// not applied.
func (s *Service) GetAndListStatus(ctx context.Context, tid uuid.UUID) (contest.Contest, []Standing, error) {
	c, err := s.contests.Get(ctx, tid)
	if err != nil {
		return contest.Contest{}, nil, err
	}
	docs, err := s.store.List(ctx, tid)
	if err != nil {
		return contest.Contest{}, nil, err
	}
	return c, docs, nil
}

func (s *Service) GetDictStatus(ctx context.Context, uid uuid.UUID, tids []uuid.UUID) (map[uuid.UUID]Standing, error) {
	return s.store.GetMulti(ctx, uid, tids)
}

// Attend registers a contestant. Finished contests refuse new attendance.
func (s *Service) Attend(ctx context.Context, tid, uid uuid.UUID) (Standing, error) {
	c, err := s.contests.Get(ctx, tid)
	if err != nil {
		return Standing{}, err
	}
	if c.IsFinished(s.now()) {
		return Standing{}, contest.ErrContestNotLive()
	}
	return s.store.Attend(ctx, tid, uid)
}

func (s *Service) IsScoreboardVisible(c contest.Contest) (bool, error) {
	if c.ScoreboardOverride != nil {
		return *c.ScoreboardOverride, nil
	}
	rule, err := RuleByID(c.Rule)
	if err != nil {
		return false, err
	}
	return rule.IsScoreboardVisible(c, s.now()), nil
}

// CanShowRecord reports whether contest records are visible to other users.
func (s *Service) CanShowRecord(c contest.Contest, privileged bool) (bool, error) {
	if privileged {
		return true, nil
	}
	rule, err := RuleByID(c.Rule)
	if err != nil {
		return false, err
	}
	return rule.IsRecordVisible(c, s.now()), nil
}

// RecordsVisible loads the contest and applies CanShowRecord.
func (s *Service) RecordsVisible(ctx context.Context, tid uuid.UUID, privileged bool) (bool, error) {
	c, err := s.contests.Get(ctx, tid)
	if err != nil {
		return false, err
	}
	return s.CanShowRecord(c, privileged)
}

type ScoreboardParams struct {
	Export bool
	// bypasses the visibility window
	Privileged bool
	Translate  Translator
}

type Scoreboard struct {
	Contest contest.Contest
	Ranked  []Ranked
	Rows    []Row
}

// Scoreboard ranks attended contestants and renders rows with the
// contest's rule.
func (s *Service) Scoreboard(ctx context.Context, tid uuid.UUID, p ScoreboardParams) (Scoreboard, error) {
	c, err := s.contests.Get(ctx, tid)
	if err != nil {
		return Scoreboard{}, err
	}
	visible, err := s.IsScoreboardVisible(c)
	if err != nil {
		return Scoreboard{}, err
	}
	if !visible && !p.Privileged {
		return Scoreboard{}, ErrScoreboardHidden()
	}
	rule, err := RuleByID(c.Rule)
	if err != nil {
		return Scoreboard{}, err
	}

	docs, err := s.store.List(ctx, tid)
	if err != nil {
		return Scoreboard{}, err
	}
	attended := make([]Standing, 0, len(docs))
	uids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		if d.Attend {
			attended = append(attended, d)
			uids = append(uids, d.UID)
		}
	}

	users, err := s.dir.GetUsers(ctx, uids)
	if err != nil {
		return Scoreboard{}, fmt.Errorf("failed to look up contestants: %w", err)
	}
	problems, err := s.dir.GetProblems(ctx, c.DomainID, c.ProblemIDs)
	if err != nil {
		return Scoreboard{}, fmt.Errorf("failed to look up contest problems: %w", err)
	}

	ranked := rule.Rank(attended)
	rows := rule.ScoreboardRows(ScoreboardInput{
		Export:    p.Export,
		Translate: p.Translate,
		Contest:   c,
		Ranked:    ranked,
		Users:     users,
		Problems:  problems,
	})
	return Scoreboard{Contest: c, Ranked: ranked, Rows: rows}, nil
}
