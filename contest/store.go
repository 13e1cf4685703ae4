package contest

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	Create(ctx context.Context, c Contest) error
	Get(ctx context.Context, id uuid.UUID) (Contest, error)
	Update(ctx context.Context, c Contest) error
	// List returns contests of a domain, latest begin first.
	List(ctx context.Context, f ListFilter) ([]Contest, error)
	SetPlagiarismURL(ctx context.Context, id uuid.UUID, url string) error
}

type ListFilter struct {
	DomainID string
	Kind     *Kind
	Rule     *RuleID
}

func (f ListFilter) match(c Contest) bool {
	if f.DomainID != "" && c.DomainID != f.DomainID {
		return false
	}
	if f.Kind != nil && c.Kind != *f.Kind {
		return false
	}
	if f.Rule != nil && c.Rule != *f.Rule {
		return false
	}
	return true
}
