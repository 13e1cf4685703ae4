package contest

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type InMemStore struct {
	lock     sync.Mutex
	contests map[uuid.UUID]Contest
}

func NewInMemStore() *InMemStore {
	return &InMemStore{
		contests: make(map[uuid.UUID]Contest),
	}
}

func (s *InMemStore) Create(ctx context.Context, c Contest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.contests[c.ID] = clone(c)
	return nil
}

func (s *InMemStore) Get(ctx context.Context, id uuid.UUID) (Contest, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c, ok := s.contests[id]
	if !ok {
		return Contest{}, ErrContestNotFound()
	}
	return clone(c), nil
}

func (s *InMemStore) Update(ctx context.Context, c Contest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.contests[c.ID]; !ok {
		return ErrContestNotFound()
	}
	s.contests[c.ID] = clone(c)
	return nil
}

func (s *InMemStore) List(ctx context.Context, f ListFilter) ([]Contest, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	res := []Contest{}
	for _, c := range s.contests {
		if f.match(c) {
			res = append(res, clone(c))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].BeginAt.After(res[j].BeginAt)
	})
	return res, nil
}

func (s *InMemStore) SetPlagiarismURL(ctx context.Context, id uuid.UUID, url string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	c, ok := s.contests[id]
	if !ok {
		return ErrContestNotFound()
	}
	c.PlagiarismURL = &url
	s.contests[id] = c
	return nil
}

func clone(c Contest) Contest {
	c.ProblemIDs = slices.Clone(c.ProblemIDs)
	c.Penalty = slices.Clone(c.Penalty)
	return c
}
