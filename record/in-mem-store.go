package record

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemStore keeps records in a map; the mutex stands in for the document
// store's compare-and-set so the claim conditions are identical to DdbStore.
type InMemStore struct {
	lock    sync.Mutex
	records map[uuid.UUID]Record
}

func NewInMemStore() *InMemStore {
	return &InMemStore{
		records: make(map[uuid.UUID]Record),
	}
}

func (m *InMemStore) Insert(ctx context.Context, rec Record) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return ErrRecordExists()
	}
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *InMemStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound()
	}
	return clone(rec), nil
}

func (m *InMemStore) GetMulti(ctx context.Context, ids []uuid.UUID, includeHidden bool) ([]Record, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	seen := make(map[uuid.UUID]struct{}, len(ids))
	res := make([]Record, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rec, ok := m.records[id]
		if !ok || (rec.Hidden && !includeHidden) {
			continue
		}
		res = append(res, clone(rec))
	}
	return res, nil
}

func (m *InMemStore) List(ctx context.Context, f Filter) ([]Record, error) {
	m.lock.Lock()
	res := make([]Record, 0)
	for _, rec := range m.records {
		if f.match(rec) {
			res = append(res, clone(rec))
		}
	}
	m.lock.Unlock()

	SortNewestFirst(res)
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (m *InMemStore) Claim(ctx context.Context, id uuid.UUID, c Claim, staleBefore time.Time) (Record, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false, ErrRecordNotFound()
	}
	if !claimable(rec, staleBefore) {
		return clone(rec), false, nil
	}
	at := c.At
	rec.Status = c.status()
	rec.JudgeUID = c.JudgeUID
	rec.JudgeToken = c.Token
	rec.JudgeAt = &at
	rec.CompilerTexts = []string{}
	rec.JudgeTexts = []string{}
	rec.Cases = []CaseResult{}
	zero := 0.0
	rec.Progress = &zero
	m.records[id] = rec
	return clone(rec), true, nil
}

func (m *InMemStore) ApplyProgress(ctx context.Context, id uuid.UUID, judgeUID, token string, p Progress) (Record, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	rec, ok := m.records[id]
	if !ok || !holds(rec, judgeUID, token) {
		return Record{}, false, nil
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Progress != nil {
		v := *p.Progress
		rec.Progress = &v
	}
	rec.Cases = append(rec.Cases, p.Cases...)
	rec.CompilerTexts = append(rec.CompilerTexts, p.CompilerTexts...)
	rec.JudgeTexts = append(rec.JudgeTexts, p.JudgeTexts...)
	m.records[id] = rec
	return clone(rec), true, nil
}

func (m *InMemStore) Finish(ctx context.Context, id uuid.UUID, judgeUID, token string, r Result) (Record, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	rec, ok := m.records[id]
	if !ok || !holds(rec, judgeUID, token) {
		return Record{}, false, nil
	}
	rec.Status = r.Status
	rec.Score = r.Score
	rec.TimeMs = r.TimeMs
	rec.MemoryKiB = r.MemoryKiB
	rec.JudgeToken = ""
	rec.Progress = nil
	m.records[id] = rec
	return clone(rec), true, nil
}

func (m *InMemStore) Reset(ctx context.Context, id uuid.UUID) (Record, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound()
	}
	rec = resetJudgeState(rec)
	m.records[id] = rec
	return clone(rec), nil
}

func holds(rec Record, judgeUID, token string) bool {
	return rec.JudgeToken != "" && rec.JudgeUID == judgeUID && rec.JudgeToken == token
}

func resetJudgeState(rec Record) Record {
	rec.JudgeUID = ""
	rec.JudgeToken = ""
	rec.JudgeAt = nil
	rec.CompilerTexts = nil
	rec.JudgeTexts = nil
	rec.Cases = nil
	rec.Progress = nil
	rec.Status = StatusWaiting
	rec.Score = 0
	rec.TimeMs = 0
	rec.MemoryKiB = 0
	rec.Rejudged = true
	return rec
}

func clone(r Record) Record {
	r.JudgeCategory = slices.Clone(r.JudgeCategory)
	r.Cases = slices.Clone(r.Cases)
	r.CompilerTexts = slices.Clone(r.CompilerTexts)
	r.JudgeTexts = slices.Clone(r.JudgeTexts)
	if r.ContestID != nil {
		v := *r.ContestID
		r.ContestID = &v
	}
	if r.Progress != nil {
		v := *r.Progress
		r.Progress = &v
	}
	if r.JudgeAt != nil {
		v := *r.JudgeAt
		r.JudgeAt = &v
	}
	if r.SubmitAt != nil {
		v := *r.SubmitAt
		r.SubmitAt = &v
	}
	return r
}
