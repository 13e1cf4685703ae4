package judgesrvc

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/planglist"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/srvcerror"
	"github.com/programme-lv/ojcore/standings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	srvc      *JudgeSrvc
	records   *record.InMemStore
	contests  *contest.InMemStore
	dir       *directory.InMemDirectory
	standings *standings.Service
	queue     *queueChannel
	changes   *changeLog
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		records:  record.NewInMemStore(),
		contests: contest.NewInMemStore(),
		dir:      directory.NewInMemDirectory(),
		queue:    newQueueChannel(),
		changes:  &changeLog{},
		now:      t0.Add(30 * time.Minute),
	}
	clock := func() time.Time { return f.now }
	f.standings = standings.NewService(standings.NewInMemStore(), f.contests, f.dir, clock, slog.Default())
	f.dir.AddProblem(directory.Problem{DomainID: "system", ID: "1000", Title: "A+B", Languages: []string{"cc", "py3"}})
	f.dir.AddProblem(directory.Problem{DomainID: "system", ID: "1001", Title: "secret", Hidden: true})
	f.srvc = NewJudgeSrvc(Deps{
		Records:   f.records,
		Contests:  f.contests,
		Directory: f.dir,
		Standings: f.standings,
		Queue:     f.queue,
		Changes:   f.changes,
	}, WithClock(clock))
	return f
}

func (f *fixture) submit(t *testing.T, p SubmitParams) uuid.UUID {
	t.Helper()
	id, err := f.srvc.Submit(context.Background(), p)
	require.NoError(t, err)
	return id
}

func plainSubmission(uid uuid.UUID) SubmitParams {
	return SubmitParams{DomainID: "system", ProblemID: "1000", UID: uid, Lang: "cc", Code: "int main(){}"}
}

func TestSubmitRejectsLanguage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := plainSubmission(uuid.New())
	p.Lang = "brainfuck"
	_, err := f.srvc.Submit(ctx, p)
	require.ErrorIs(t, err, planglist.ErrInvalidProgLang())

	p.Lang = "java"
	_, err = f.srvc.Submit(ctx, p)
	require.ErrorIs(t, err, planglist.ErrInvalidProgLang())
	assert.True(t, srvcerror.IsValidation(err))

	recs, err := f.records.List(ctx, record.Filter{IncludeHidden: true})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, f.queue.tasks())
}

func TestSubmitHiddenProblem(t *testing.T) {
	f := newFixture(t)
	p := plainSubmission(uuid.New())
	p.ProblemID = "1001"

	_, err := f.srvc.Submit(context.Background(), p)
	require.ErrorIs(t, err, directory.ErrProblemNotFound())

	p.Privileged = true
	f.submit(t, p)
}

func TestSubmitEnqueuesAndCounts(t *testing.T) {
	f := newFixture(t)
	uid := uuid.New()
	id := f.submit(t, plainSubmission(uid))

	rec, err := f.records.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, record.StatusWaiting, rec.Status)
	assert.Equal(t, []uuid.UUID{id}, f.queue.tasks())
	assert.Equal(t, DefaultQueue, f.queue.sent[0].Route)
	assert.False(t, f.queue.sent[0].Fanout)
	assert.Equal(t, id, f.changes.last().ID)

	submits, _ := f.dir.UserCounters("system", uid)
	assert.EqualValues(t, 1, submits)
}

func TestSubmitBrokerDownKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.queue.fail = errBrokerDown

	id, err := f.srvc.Submit(context.Background(), plainSubmission(uuid.New()))
	require.ErrorIs(t, err, errBrokerDown)
	_, err = f.records.Get(context.Background(), id)
	require.NoError(t, err)
}

func TestSecondClaimIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, plainSubmission(uuid.New()))

	rec, ok, err := f.srvc.BeginJudge(ctx, id, "w1", "t1", record.StatusJudging)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "w1", rec.JudgeUID)

	rec, ok, err = f.srvc.BeginJudge(ctx, id, "w2", "t2", record.StatusJudging)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "w1", rec.JudgeUID)

	// a stale claim may be taken over
	f.now = f.now.Add(DefaultStaleAfter + time.Second)
	rec, ok, err = f.srvc.BeginJudge(ctx, id, "w2", "t2", record.StatusJudging)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "w2", rec.JudgeUID)
}

func TestStaleTokenAfterRejudge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, plainSubmission(uuid.New()))

	_, ok, err := f.srvc.BeginJudge(ctx, id, "w1", "t1", record.StatusJudging)
	require.NoError(t, err)
	require.True(t, ok)

	res := record.Result{Status: record.StatusAccepted, Score: 100, TimeMs: 50, MemoryKiB: 1024}
	rec, ok, err := f.srvc.EndJudge(ctx, id, "w1", "t1", res)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.StatusAccepted, rec.Status)
	assert.Empty(t, rec.JudgeToken)
	assert.Equal(t, "w1", rec.JudgeUID)

	_, err = f.srvc.Rejudge(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id, id}, f.queue.tasks())

	rec, ok, err = f.srvc.EndJudge(ctx, id, "w1", "t1", res)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, record.Record{}, rec)

	stored, err := f.records.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, record.StatusWaiting, stored.Status)
	assert.True(t, stored.Rejudged)
	assert.Zero(t, stored.Score)
}

func TestProgressUnderClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, plainSubmission(uuid.New()))
	_, _, err := f.srvc.BeginJudge(ctx, id, "w1", "t1", record.StatusCompiling)
	require.NoError(t, err)

	half := 0.5
	rec, ok, err := f.srvc.ReportProgress(ctx, id, "w1", "t1", record.Progress{
		Progress:      &half,
		CompilerTexts: []string{"ok"},
		Cases:         []record.CaseResult{{Status: record.StatusAccepted, Score: 10}},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"ok"}, rec.CompilerTexts)
	assert.Len(t, rec.Cases, 1)

	_, ok, err = f.srvc.ReportProgress(ctx, id, "w1", "other", record.Progress{Progress: &half})
	require.NoError(t, err)
	assert.False(t, ok)

	accepted := record.StatusAccepted
	_, _, err = f.srvc.ReportProgress(ctx, id, "w1", "t1", record.Progress{Status: &accepted})
	assert.ErrorIs(t, err, ErrInvalidOutcome())
}

func TestClaimArgumentsValidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, plainSubmission(uuid.New()))

	_, _, err := f.srvc.BeginJudge(ctx, id, "w1", "", record.StatusJudging)
	assert.ErrorIs(t, err, ErrInvalidClaim())

	_, _, err = f.srvc.EndJudge(ctx, id, "w1", "t1", record.Result{Status: record.StatusJudging})
	assert.ErrorIs(t, err, ErrInvalidOutcome())
}

func TestContestSubmissionFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := contest.Contest{
		ID:         uuid.New(),
		DomainID:   "system",
		Kind:       contest.KindContest,
		Title:      "round",
		Rule:       contest.RuleICPC,
		BeginAt:    t0,
		EndAt:      t0.Add(2 * time.Hour),
		ProblemIDs: []string{"1000"},
	}
	require.NoError(t, f.contests.Create(ctx, c))
	uid := uuid.New()

	p := plainSubmission(uid)
	p.ContestID = &c.ID
	_, err := f.srvc.Submit(ctx, p)
	require.ErrorIs(t, err, contest.ErrContestNotAttended())

	_, err = f.standings.Attend(ctx, c.ID, uid)
	require.NoError(t, err)
	id := f.submit(t, p)

	st, err := f.standings.GetStatus(ctx, c.ID, uid)
	require.NoError(t, err)
	require.Len(t, st.Journal, 1)
	assert.Equal(t, record.StatusWaiting, st.Journal[0].Status)

	_, _, err = f.srvc.BeginJudge(ctx, id, "w1", "t1", record.StatusJudging)
	require.NoError(t, err)
	_, ok, err := f.srvc.EndJudge(ctx, id, "w1", "t1", record.Result{Status: record.StatusAccepted, Score: 100})
	require.NoError(t, err)
	require.True(t, ok)

	st, err = f.standings.GetStatus(ctx, c.ID, uid)
	require.NoError(t, err)
	assert.Len(t, st.Journal, 2)
	assert.Equal(t, 1, st.Accept)

	_, accepts := f.dir.UserCounters("system", uid)
	assert.EqualValues(t, 1, accepts)

	f.now = c.EndAt
	_, err = f.srvc.Submit(ctx, p)
	require.ErrorIs(t, err, contest.ErrContestNotLive())

	f.now = t0.Add(time.Minute)
	other := p
	other.ProblemID = "1001"
	other.Privileged = true
	_, err = f.srvc.Submit(ctx, other)
	require.ErrorIs(t, err, directory.ErrProblemNotFound())
}

func TestSystemTestClone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, plainSubmission(uuid.New()))
	src, err := f.records.Get(ctx, id)
	require.NoError(t, err)

	clone, err := f.srvc.SystemTest(ctx, src, []string{" strong", "strong", "big"})
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, []string{"big", "strong"}, clone.JudgeCategory)
	assert.Equal(t, src.Code, clone.Code)
	assert.Equal(t, src.SubmittedAt(), clone.SubmittedAt())
	assert.Equal(t, []uuid.UUID{id, clone.ID}, f.queue.tasks())

	again, err := f.records.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, src, again)

	_, err = f.srvc.SystemTest(ctx, src, nil)
	assert.Error(t, err)
}

func TestJudgeFasterThanSubmitterStaysFolded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := contest.Contest{
		ID:         uuid.New(),
		DomainID:   "system",
		Kind:       contest.KindContest,
		Title:      "round",
		Rule:       contest.RuleICPC,
		BeginAt:    t0,
		EndAt:      t0.Add(2 * time.Hour),
		ProblemIDs: []string{"1000"},
	}
	require.NoError(t, f.contests.Create(ctx, c))
	uid := uuid.New()
	_, err := f.standings.Attend(ctx, c.ID, uid)
	require.NoError(t, err)

	f.queue.judged = func(rid uuid.UUID) {
		_, ok, err := f.srvc.BeginJudge(ctx, rid, "w1", rid.String(), record.StatusJudging)
		require.NoError(t, err)
		require.True(t, ok)
		_, ok, err = f.srvc.EndJudge(ctx, rid, "w1", rid.String(), record.Result{Status: record.StatusAccepted, Score: 100})
		require.NoError(t, err)
		require.True(t, ok)
	}
	accepted := func(rid uuid.UUID) {
		t.Helper()
		rec, err := f.records.Get(ctx, rid)
		require.NoError(t, err)
		require.Equal(t, record.StatusAccepted, rec.Status)

		st, err := f.standings.GetStatus(ctx, c.ID, uid)
		require.NoError(t, err)
		assert.Equal(t, 1, st.Accept)
		d, ok := st.DetailFor("1000")
		require.True(t, ok)
		assert.Equal(t, record.StatusAccepted, d.Status)
		assert.Equal(t, rid, d.RecordID)
	}

	p := plainSubmission(uid)
	p.ContestID = &c.ID
	id := f.submit(t, p)
	accepted(id)

	_, err = f.srvc.Rejudge(ctx, id, true)
	require.NoError(t, err)
	accepted(id)

	src, err := f.records.Get(ctx, id)
	require.NoError(t, err)
	clone, err := f.srvc.SystemTest(ctx, src, []string{"strong"})
	require.NoError(t, err)
	rec, err := f.records.Get(ctx, clone.ID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusAccepted, rec.Status)

	st, err := f.standings.GetStatus(ctx, c.ID, uid)
	require.NoError(t, err)
	for _, e := range standings.Effective(st.Journal) {
		assert.Equal(t, record.StatusAccepted, e.Status, "rid %s", e.RecordID)
	}

	n, err := f.standings.Recalc(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	accepted(id)
}
