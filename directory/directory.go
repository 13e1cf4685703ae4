// Package directory answers the problem and contestant lookups the judge
// pipeline depends on, and keeps per-problem and per-user submission counters.
package directory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/srvcerror"
)

type Problem struct {
	DomainID string `json:"domain_id"`
	ID       string `json:"pid"`
	Title    string `json:"title"`
	Hidden   bool   `json:"hidden"`
	// empty means every enabled language
	Languages []string `json:"languages"`
	NumSubmit int64    `json:"num_submit"`
	NumAccept int64    `json:"num_accept"`
}

func (p Problem) AcceptsLanguage(lang string) bool {
	return len(p.Languages) == 0 || slices.Contains(p.Languages, lang)
}

type User struct {
	UID         uuid.UUID `json:"uid"`
	Uname       string    `json:"uname"`
	DisplayName string    `json:"display_name"`
}

// Name is what the scoreboard shows.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Uname
}

type Directory interface {
	GetProblem(ctx context.Context, domainID, pid string) (Problem, error)
	// GetProblems fails with problem_not_found if any pid is unknown.
	GetProblems(ctx context.Context, domainID string, pids []string) (map[string]Problem, error)
	// GetUsers fails with user_not_found if any uid is unknown.
	GetUsers(ctx context.Context, uids []uuid.UUID) (map[uuid.UUID]User, error)
	SetHidden(ctx context.Context, domainID, pid string, hidden bool) error

	IncSubmit(ctx context.Context, domainID, pid string, uid uuid.UUID) error
	IncAccept(ctx context.Context, domainID, pid string, uid uuid.UUID) error
}

const (
	ErrCodeProblemNotFound = "problem_not_found"
	ErrCodeUserNotFound    = "user_not_found"
)

func ErrProblemNotFound() *srvcerror.Error {
	return srvcerror.NotFound(
		ErrCodeProblemNotFound,
		"problem not found",
	)
}

func ErrUserNotFound() *srvcerror.Error {
	return srvcerror.NotFound(
		ErrCodeUserNotFound,
		"user not found",
	)
}
