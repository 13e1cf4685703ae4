package standings

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type standingKey struct {
	tid, uid uuid.UUID
}

type InMemStore struct {
	mu   sync.Mutex
	docs map[standingKey]Standing
}

var _ Store = (*InMemStore)(nil)

func NewInMemStore() *InMemStore {
	return &InMemStore{docs: make(map[standingKey]Standing)}
}

func (s *InMemStore) Get(ctx context.Context, tid, uid uuid.UUID) (Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[standingKey{tid, uid}]
	if !ok {
		return Standing{}, ErrStandingNotFound()
	}
	return cloneStanding(doc), nil
}

func (s *InMemStore) List(ctx context.Context, tid uuid.UUID) ([]Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []Standing{}
	for k, doc := range s.docs {
		if k.tid == tid {
			res = append(res, cloneStanding(doc))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].UID.String() < res[j].UID.String()
	})
	return res, nil
}

func (s *InMemStore) GetMulti(ctx context.Context, uid uuid.UUID, tids []uuid.UUID) (map[uuid.UUID]Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[uuid.UUID]Standing, len(tids))
	for _, tid := range tids {
		if doc, ok := s.docs[standingKey{tid, uid}]; ok {
			res[tid] = cloneStanding(doc)
		}
	}
	return res, nil
}

func (s *InMemStore) Append(ctx context.Context, tid, uid uuid.UUID, entries ...JournalEntry) (Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := standingKey{tid, uid}
	doc, ok := s.docs[k]
	if !ok {
		doc = Standing{ContestID: tid, UID: uid}
	}
	doc.Journal = append(doc.Journal, entries...)
	s.docs[k] = doc
	return cloneStanding(doc), nil
}

func (s *InMemStore) SetDerived(ctx context.Context, tid, uid uuid.UUID, journalLen int, st Stat) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := standingKey{tid, uid}
	doc, ok := s.docs[k]
	if !ok {
		return false, ErrStandingNotFound()
	}
	if len(doc.Journal) != journalLen {
		return false, nil
	}
	doc.Stat = st
	s.docs[k] = doc
	return true, nil
}

func (s *InMemStore) Attend(ctx context.Context, tid, uid uuid.UUID) (Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := standingKey{tid, uid}
	doc, ok := s.docs[k]
	if !ok {
		doc = Standing{ContestID: tid, UID: uid}
	}
	doc.Attend = true
	s.docs[k] = doc
	return cloneStanding(doc), nil
}
