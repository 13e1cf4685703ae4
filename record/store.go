package record

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the single source of truth for judge state. Every method that
// changes claim fields is one atomic conditional write; callers never lock.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	GetMulti(ctx context.Context, ids []uuid.UUID, includeHidden bool) ([]Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)

	// Claim stamps the claim on a WAITING record, or on an active one whose
	// claim is older than staleBefore. When the record is held by someone
	// else the current record is returned with ok=false.
	Claim(ctx context.Context, id uuid.UUID, c Claim, staleBefore time.Time) (rec Record, ok bool, err error)

	// ApplyProgress and Finish apply only while (judgeUID, token) still
	// match; otherwise ok=false and nothing is written.
	ApplyProgress(ctx context.Context, id uuid.UUID, judgeUID, token string, p Progress) (rec Record, ok bool, err error)
	Finish(ctx context.Context, id uuid.UUID, judgeUID, token string, r Result) (rec Record, ok bool, err error)

	// Reset clears claim and judge output and puts the record back to WAITING.
	Reset(ctx context.Context, id uuid.UUID) (Record, error)
}

type Claim struct {
	JudgeUID string
	Token    string
	At       time.Time
	Status   Status // JUDGING unless the worker reports COMPILING / FETCHED
}

type Progress struct {
	Status        *Status
	Progress      *float64
	Cases         []CaseResult
	CompilerTexts []string
	JudgeTexts    []string
}

type Result struct {
	Status    Status
	Score     int
	TimeMs    int
	MemoryKiB int
}

type Filter struct {
	DomainID      string
	ProblemID     string
	UID           *uuid.UUID
	ContestID     *uuid.UUID
	Type          *Type
	IncludeHidden bool
	BeforeID      *uuid.UUID
	Limit         int
}

func (f Filter) match(r Record) bool {
	if !f.IncludeHidden && r.Hidden {
		return false
	}
	if f.DomainID != "" && r.DomainID != f.DomainID {
		return false
	}
	if f.ProblemID != "" && r.ProblemID != f.ProblemID {
		return false
	}
	if f.UID != nil && r.UID != *f.UID {
		return false
	}
	if f.ContestID != nil && (r.ContestID == nil || *r.ContestID != *f.ContestID) {
		return false
	}
	if f.Type != nil && r.Type != *f.Type {
		return false
	}
	if f.BeforeID != nil && CompareIDs(r.ID, *f.BeforeID) >= 0 {
		return false
	}
	return true
}

func claimable(r Record, staleBefore time.Time) bool {
	if r.Status == StatusWaiting {
		return true
	}
	return r.Status.IsActive() && r.JudgeAt != nil && r.JudgeAt.Before(staleBefore)
}

func (c Claim) status() Status {
	if c.Status.IsActive() {
		return c.Status
	}
	return StatusJudging
}
