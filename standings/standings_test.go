package standings

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func icpcContest() contest.Contest {
	return contest.Contest{
		ID:         uuid.New(),
		DomainID:   "system",
		Kind:       contest.KindContest,
		Title:      "round 1",
		Rule:       contest.RuleICPC,
		BeginAt:    t0,
		EndAt:      t0.Add(5 * time.Hour),
		ProblemIDs: []string{"A", "B"},
	}
}

func homework() contest.Contest {
	since := t0.Add(24 * time.Hour)
	return contest.Contest{
		ID:           uuid.New(),
		DomainID:     "system",
		Kind:         contest.KindHomework,
		Title:        "week 1",
		Rule:         contest.RuleAssignment,
		BeginAt:      t0,
		EndAt:        since.Add(10 * 24 * time.Hour),
		ProblemIDs:   []string{"A"},
		PenaltySince: &since,
		Penalty: contest.Schedule{
			{AfterSec: 0, Factor: 1},
			{AfterSec: 24 * 3600, Factor: 0.8},
			{AfterSec: 72 * 3600, Factor: 0.5},
		},
	}
}

type fixture struct {
	svc      *Service
	store    *InMemStore
	contests *contest.InMemStore
	dir      *directory.InMemDirectory
	now      time.Time
}

func newFixture(t *testing.T, cs ...contest.Contest) *fixture {
	t.Helper()
	f := &fixture{
		store:    NewInMemStore(),
		contests: contest.NewInMemStore(),
		dir:      directory.NewInMemDirectory(),
		now:      t0.Add(time.Hour),
	}
	for _, c := range cs {
		require.NoError(t, f.contests.Create(context.Background(), c))
		for _, pid := range c.ProblemIDs {
			f.dir.AddProblem(directory.Problem{DomainID: c.DomainID, ID: pid, Title: "problem " + pid})
		}
	}
	f.svc = NewService(f.store, f.contests, f.dir, func() time.Time { return f.now }, slog.Default())
	return f
}

// attempt builds a record id whose embedded time is at.
func attempt(at time.Time) uuid.UUID {
	id := record.NewID()
	ms := at.UnixMilli()
	for i := 0; i < 6; i++ {
		id[5-i] = byte(ms >> (8 * i))
	}
	return id
}

func TestJournalIsAppendOnly(t *testing.T) {
	c := icpcContest()
	f := newFixture(t, c)
	ctx := context.Background()
	uid := uuid.New()
	rid := attempt(t0.Add(10 * time.Minute))

	s, err := f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: uid, RecordID: rid, ProblemID: "A",
		Status: record.StatusWaiting, At: t0.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, s.Journal, 1)
	first := s.Journal[0]

	s, err = f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: uid, RecordID: rid, ProblemID: "A",
		Status: record.StatusAccepted, Accept: true, Score: 100, At: t0.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, s.Journal, 2)
	assert.Equal(t, first, s.Journal[0])

	eff := Effective(s.Journal)
	require.Len(t, eff, 1)
	assert.Equal(t, record.StatusAccepted, eff[0].Status)
	assert.Equal(t, 1, s.Accept)
	assert.False(t, s.Attend)
}

func TestIcpcPenaltyTime(t *testing.T) {
	c := icpcContest()
	f := newFixture(t, c)
	ctx := context.Background()
	uid := uuid.New()

	fold := func(at time.Duration, st record.Status) {
		_, err := f.svc.UpdateStatus(ctx, UpdateParams{
			ContestID: c.ID, UID: uid, RecordID: attempt(t0.Add(at)), ProblemID: "A",
			Status: st, Accept: st == record.StatusAccepted, At: t0.Add(at),
		})
		require.NoError(t, err)
	}
	fold(10*time.Minute, record.StatusWrongAnswer)
	fold(15*time.Minute, record.StatusSystemError)
	fold(20*time.Minute, record.StatusTimeLimitExceeded)
	fold(40*time.Minute, record.StatusAccepted)
	fold(50*time.Minute, record.StatusWrongAnswer)

	s, err := f.svc.GetStatus(ctx, c.ID, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Accept)
	assert.EqualValues(t, 80*60, s.TimeSec)

	d, ok := s.DetailFor("A")
	require.True(t, ok)
	assert.True(t, d.Accept)
	assert.Equal(t, 2, d.Penalties)
}

func TestIcpcPendingIsNotAWrongAttempt(t *testing.T) {
	c := icpcContest()
	journal := []JournalEntry{
		{RecordID: attempt(t0.Add(time.Minute)), ProblemID: "B", Status: record.StatusWaiting, At: t0.Add(time.Minute)},
		{RecordID: attempt(t0.Add(2 * time.Minute)), ProblemID: "B", Status: record.StatusJudging, At: t0.Add(2 * time.Minute)},
	}
	st := icpcRule{}.Stat(c, Effective(journal))
	require.Len(t, st.Detail, 1)
	assert.Equal(t, 0, st.Detail[0].Penalties)
	assert.Equal(t, record.StatusJudging, st.Detail[0].Status)
	assert.Zero(t, st.Accept)
}

func TestAssignmentDecay(t *testing.T) {
	c := homework()
	f := newFixture(t, c)
	ctx := context.Background()
	uid := uuid.New()
	late := c.PenaltySince.Add(100 * time.Hour)

	s, err := f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: uid, RecordID: attempt(late), ProblemID: "A",
		Status: record.StatusAccepted, Accept: true, Score: 80, At: late,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, s.Score)
	assert.InDelta(t, 40.0, s.PenaltyScore, 1e-9)

	early := t0.Add(2 * time.Hour)
	s, err = f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: uid, RecordID: attempt(early), ProblemID: "A",
		Status: record.StatusWrongAnswer, Score: 60, At: early,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, s.Score)
	assert.InDelta(t, 60.0, s.PenaltyScore, 1e-9)

	// the early attempt now carries the problem; its own score is shown
	d, ok := s.DetailFor("A")
	require.True(t, ok)
	assert.Equal(t, attempt(early), d.RecordID)
	assert.Equal(t, record.StatusWrongAnswer, d.Status)
	assert.Equal(t, 60, d.Score)
	assert.Equal(t, 80, d.BestScore)
	assert.InDelta(t, 60.0, d.PenaltyScore, 1e-9)
}

func TestRemovedProblemKeptOutOfTotals(t *testing.T) {
	a := t0.Add(10 * time.Minute)
	z := t0.Add(20 * time.Minute)
	journal := Effective([]JournalEntry{
		{RecordID: attempt(a), ProblemID: "A", Status: record.StatusAccepted, Accept: true, Score: 100, At: a},
		{RecordID: attempt(z), ProblemID: "Z", Status: record.StatusAccepted, Accept: true, Score: 100, At: z},
	})

	c := icpcContest()
	st := icpcRule{}.Stat(c, journal)
	assert.Equal(t, 1, st.Accept)
	assert.EqualValues(t, 600, st.TimeSec)
	require.Len(t, st.Detail, 2)
	assert.Equal(t, "A", st.Detail[0].ProblemID)
	assert.False(t, st.Detail[0].Retired)
	assert.Equal(t, "Z", st.Detail[1].ProblemID)
	assert.True(t, st.Detail[1].Retired)
	assert.Equal(t, attempt(z), st.Detail[1].RecordID)

	c.Rule = contest.RuleOI
	st = oiRule{}.Stat(c, journal)
	assert.Equal(t, 100, st.Score)
	assert.Equal(t, 1, st.Accept)
	require.Len(t, st.Detail, 2)
	assert.True(t, st.Detail[1].Retired)
	assert.Equal(t, 100, st.Detail[1].BestScore)
}

func TestOiBestScoreEarliestWins(t *testing.T) {
	c := icpcContest()
	c.Rule = contest.RuleOI
	a := t0.Add(10 * time.Minute)
	b := t0.Add(30 * time.Minute)
	journal := []JournalEntry{
		{RecordID: attempt(a), ProblemID: "A", Status: record.StatusWrongAnswer, Score: 50, At: a},
		{RecordID: attempt(b), ProblemID: "A", Status: record.StatusWrongAnswer, Score: 50, At: b},
	}
	st := oiRule{}.Stat(c, Effective(journal))
	assert.Equal(t, 50, st.Score)
	assert.EqualValues(t, 600, st.TimeSec)
}

func TestCompetitionRanking(t *testing.T) {
	mk := func(accept int, sec int64) Standing {
		return Standing{UID: uuid.New(), Attend: true, Stat: Stat{Accept: accept, TimeSec: sec}}
	}
	ranked := icpcRule{}.Rank([]Standing{mk(1, 300), mk(2, 900), mk(2, 900), mk(3, 5000)})
	ranks := make([]int, len(ranked))
	for i, r := range ranked {
		ranks[i] = r.Rank
	}
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
	assert.Equal(t, 3, ranked[0].Standing.Accept)
}

func TestVisibility(t *testing.T) {
	c := icpcContest()
	during := t0.Add(time.Hour)
	after := c.EndAt.Add(time.Second)

	assert.True(t, icpcRule{}.IsScoreboardVisible(c, during))
	assert.False(t, icpcRule{}.IsRecordVisible(c, during))
	assert.True(t, icpcRule{}.IsRecordVisible(c, after))

	assert.False(t, oiRule{}.IsScoreboardVisible(c, during))
	assert.True(t, oiRule{}.IsScoreboardVisible(c, after))

	h := homework()
	assert.False(t, assignmentRule{}.IsScoreboardVisible(h, t0.Add(-time.Minute)))
	assert.True(t, assignmentRule{}.IsScoreboardVisible(h, t0))
}

func TestScoreboard(t *testing.T) {
	c := icpcContest()
	c.Rule = contest.RuleOI
	f := newFixture(t, c)
	ctx := context.Background()

	alice := directory.User{UID: uuid.New(), Uname: "alice"}
	bob := directory.User{UID: uuid.New(), Uname: "bob", DisplayName: "Bob"}
	f.dir.AddUser(alice)
	f.dir.AddUser(bob)
	for _, u := range []directory.User{alice, bob} {
		_, err := f.svc.Attend(ctx, c.ID, u.UID)
		require.NoError(t, err)
	}
	at := t0.Add(20 * time.Minute)
	_, err := f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: bob.UID, RecordID: attempt(at), ProblemID: "B",
		Status: record.StatusAccepted, Accept: true, Score: 100, At: at,
	})
	require.NoError(t, err)
	// folded but never attended
	_, err = f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: uuid.New(), RecordID: attempt(at), ProblemID: "A",
		Status: record.StatusAccepted, Accept: true, Score: 100, At: at,
	})
	require.NoError(t, err)

	_, err = f.svc.Scoreboard(ctx, c.ID, ScoreboardParams{})
	require.ErrorIs(t, err, ErrScoreboardHidden())

	sb, err := f.svc.Scoreboard(ctx, c.ID, ScoreboardParams{Privileged: true})
	require.NoError(t, err)
	require.Len(t, sb.Rows, 3)
	assert.Equal(t, "#1", sb.Rows[0][3].Value)
	assert.Equal(t, "Bob", sb.Rows[1][1].Value)
	assert.Equal(t, "100", sb.Rows[1][2].Value)
	assert.Equal(t, "2", sb.Rows[2][0].Value)

	f.now = c.EndAt.Add(time.Minute)
	sb, err = f.svc.Scoreboard(ctx, c.ID, ScoreboardParams{Export: true})
	require.NoError(t, err)
	assert.Equal(t, "#2 problem B", sb.Rows[0][5].Value)
}

func TestScoreboardOverride(t *testing.T) {
	c := icpcContest()
	hidden := false
	c.ScoreboardOverride = &hidden
	f := newFixture(t, c)

	_, err := f.svc.Scoreboard(context.Background(), c.ID, ScoreboardParams{})
	assert.ErrorIs(t, err, ErrScoreboardHidden())
}

func TestAttendRefusedAfterEnd(t *testing.T) {
	c := icpcContest()
	f := newFixture(t, c)
	f.now = c.EndAt

	_, err := f.svc.Attend(context.Background(), c.ID, uuid.New())
	assert.ErrorIs(t, err, contest.ErrContestNotLive())
}

func TestConcurrentFoldsConverge(t *testing.T) {
	c := icpcContest()
	f := newFixture(t, c)
	ctx := context.Background()
	uid := uuid.New()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := t0.Add(time.Duration(i+1) * time.Minute)
			_, err := f.svc.UpdateStatus(ctx, UpdateParams{
				ContestID: c.ID, UID: uid, RecordID: attempt(at), ProblemID: "A",
				Status: record.StatusWrongAnswer, At: at,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := f.svc.GetStatus(ctx, c.ID, uid)
	require.NoError(t, err)
	require.Len(t, s.Journal, 8)
	d, ok := s.DetailFor("A")
	require.True(t, ok)
	assert.Equal(t, 8, d.Penalties)
}

func TestRecalcAfterScheduleEdit(t *testing.T) {
	c := homework()
	f := newFixture(t, c)
	ctx := context.Background()
	uid := uuid.New()
	late := c.PenaltySince.Add(30 * time.Hour)

	_, err := f.svc.UpdateStatus(ctx, UpdateParams{
		ContestID: c.ID, UID: uid, RecordID: attempt(late), ProblemID: "A",
		Status: record.StatusAccepted, Accept: true, Score: 100, At: late,
	})
	require.NoError(t, err)

	c.Penalty = contest.Schedule{{AfterSec: 0, Factor: 1}}
	require.NoError(t, f.contests.Update(ctx, c))
	n, err := f.svc.Recalc(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s, err := f.svc.GetStatus(ctx, c.ID, uid)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, s.PenaltyScore, 1e-9)
}
