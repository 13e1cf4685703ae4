package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type problemKey struct {
	domainID string
	pid      string
}

type userKey struct {
	domainID string
	uid      uuid.UUID
}

type counters struct {
	submit int64
	accept int64
}

type InMemDirectory struct {
	lock     sync.Mutex
	problems map[problemKey]Problem
	users    map[uuid.UUID]User
	members  map[userKey]counters
}

func NewInMemDirectory() *InMemDirectory {
	return &InMemDirectory{
		problems: make(map[problemKey]Problem),
		users:    make(map[uuid.UUID]User),
		members:  make(map[userKey]counters),
	}
}

func (d *InMemDirectory) AddProblem(p Problem) {
	d.lock.Lock()
	defer d.lock.Unlock()
	p.Languages = slices.Clone(p.Languages)
	d.problems[problemKey{p.DomainID, p.ID}] = p
}

func (d *InMemDirectory) AddUser(u User) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.users[u.UID] = u
}

func (d *InMemDirectory) GetProblem(ctx context.Context, domainID, pid string) (Problem, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	p, ok := d.problems[problemKey{domainID, pid}]
	if !ok {
		return Problem{}, ErrProblemNotFound().SetDebug(fmt.Errorf("problem %s/%s", domainID, pid))
	}
	p.Languages = slices.Clone(p.Languages)
	return p, nil
}

func (d *InMemDirectory) GetProblems(ctx context.Context, domainID string, pids []string) (map[string]Problem, error) {
	res := make(map[string]Problem, len(pids))
	for _, pid := range pids {
		p, err := d.GetProblem(ctx, domainID, pid)
		if err != nil {
			return nil, err
		}
		res[pid] = p
	}
	return res, nil
}

func (d *InMemDirectory) GetUsers(ctx context.Context, uids []uuid.UUID) (map[uuid.UUID]User, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	res := make(map[uuid.UUID]User, len(uids))
	for _, uid := range uids {
		u, ok := d.users[uid]
		if !ok {
			return nil, ErrUserNotFound().SetDebug(fmt.Errorf("user %s", uid))
		}
		res[uid] = u
	}
	return res, nil
}

func (d *InMemDirectory) SetHidden(ctx context.Context, domainID, pid string, hidden bool) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	k := problemKey{domainID, pid}
	p, ok := d.problems[k]
	if !ok {
		return ErrProblemNotFound()
	}
	p.Hidden = hidden
	d.problems[k] = p
	return nil
}

func (d *InMemDirectory) IncSubmit(ctx context.Context, domainID, pid string, uid uuid.UUID) error {
	return d.inc(domainID, pid, uid, func(p *Problem, c *counters) {
		p.NumSubmit++
		c.submit++
	})
}

func (d *InMemDirectory) IncAccept(ctx context.Context, domainID, pid string, uid uuid.UUID) error {
	return d.inc(domainID, pid, uid, func(p *Problem, c *counters) {
		p.NumAccept++
		c.accept++
	})
}

func (d *InMemDirectory) inc(domainID, pid string, uid uuid.UUID, fn func(*Problem, *counters)) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	pk := problemKey{domainID, pid}
	p, ok := d.problems[pk]
	if !ok {
		return ErrProblemNotFound()
	}
	uk := userKey{domainID, uid}
	c := d.members[uk]
	fn(&p, &c)
	d.problems[pk] = p
	d.members[uk] = c
	return nil
}

// UserCounters returns (submitted, accepted) for a user within a domain.
func (d *InMemDirectory) UserCounters(domainID string, uid uuid.UUID) (int64, int64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	c := d.members[userKey{domainID, uid}]
	return c.submit, c.accept
}
