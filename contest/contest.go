package contest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind int

const (
	KindContest  Kind = 30
	KindHomework Kind = 60
)

func (k Kind) String() string {
	switch k {
	case KindContest:
		return "contest"
	case KindHomework:
		return "homework"
	}
	return "unknown"
}

// ParseKind accepts the route names used by the presentation layer.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "contest":
		return KindContest, nil
	case "homework":
		return KindHomework, nil
	}
	return 0, fmt.Errorf("unknown contest kind %q", s)
}

// RuleID selects the standings rule. The set is closed; see standings.RuleByID.
type RuleID int

const (
	RuleOI         RuleID = 2
	RuleICPC       RuleID = 3
	RuleAssignment RuleID = 11
)

func (r RuleID) Known() bool {
	switch r {
	case RuleOI, RuleICPC, RuleAssignment:
		return true
	}
	return false
}

func (r RuleID) String() string {
	switch r {
	case RuleOI:
		return "oi"
	case RuleICPC:
		return "icpc"
	case RuleAssignment:
		return "assignment"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// ParseRule accepts rule names and their numeric ids.
func ParseRule(s string) (RuleID, error) {
	for _, r := range []RuleID{RuleOI, RuleICPC, RuleAssignment} {
		if s == r.String() || s == fmt.Sprint(int(r)) {
			return r, nil
		}
	}
	return 0, ErrInvalidRule().SetDebug(fmt.Errorf("rule %q", s))
}

type Contest struct {
	ID       uuid.UUID `json:"tid"`
	DomainID string    `json:"domain_id"`
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	OwnerUID uuid.UUID `json:"owner_uid"`
	Rule     RuleID    `json:"rule"`

	BeginAt    time.Time `json:"begin_at"`
	EndAt      time.Time `json:"end_at"`
	ProblemIDs []string  `json:"pids"`

	// homework only
	PenaltySince *time.Time `json:"penalty_since,omitempty"`
	Penalty      Schedule   `json:"penalty_rules,omitempty"`

	RateLimit          int     `json:"rate_limit"`
	ScoreboardOverride *bool   `json:"show_scoreboard,omitempty"`
	PlagiarismURL      *string `json:"plagiarism_url,omitempty"`
}

// Validate checks the definition before it is stored.
func (c Contest) Validate() error {
	if !c.Rule.Known() {
		return ErrInvalidRule().SetDebug(fmt.Errorf("rule %d", int(c.Rule)))
	}
	if !c.BeginAt.Before(c.EndAt) {
		return ErrInvalidContestWindow("begin time must be before end time")
	}
	if len(c.ProblemIDs) == 0 {
		return ErrInvalidProblemList("contest has no problems")
	}
	seen := make(map[string]struct{}, len(c.ProblemIDs))
	for _, pid := range c.ProblemIDs {
		if _, dup := seen[pid]; dup {
			return ErrInvalidProblemList(fmt.Sprintf("problem %s listed twice", pid))
		}
		seen[pid] = struct{}{}
	}
	switch c.Kind {
	case KindHomework:
		if c.Rule != RuleAssignment {
			return ErrInvalidRule().SetDebug(fmt.Errorf("homework must use the assignment rule"))
		}
		if c.PenaltySince == nil {
			return ErrInvalidContestWindow("homework needs a penalty start time")
		}
		if !c.BeginAt.Before(*c.PenaltySince) {
			return ErrInvalidContestWindow("penalty must start after the homework begins")
		}
		if c.PenaltySince.After(c.EndAt) {
			return ErrInvalidContestWindow("penalty must start no later than the homework ends")
		}
		if err := c.Penalty.Validate(); err != nil {
			return err
		}
	case KindContest:
		if c.Rule == RuleAssignment {
			return ErrInvalidRule().SetDebug(fmt.Errorf("assignment rule is homework only"))
		}
	default:
		return ErrInvalidRule().SetDebug(fmt.Errorf("kind %d", int(c.Kind)))
	}
	return nil
}

func (c Contest) HasProblem(pid string) bool {
	for _, p := range c.ProblemIDs {
		if p == pid {
			return true
		}
	}
	return false
}

// PenaltyFactor is the decay multiplier for an attempt submitted at at.
func (c Contest) PenaltyFactor(at time.Time) float64 {
	if c.PenaltySince == nil {
		return 1.0
	}
	return c.Penalty.Factor(at.Sub(*c.PenaltySince))
}

// ParseProblemIDs splits a comma separated list keeping first occurrences.
func ParseProblemIDs(s string) []string {
	seen := make(map[string]struct{})
	res := []string{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		res = append(res, p)
	}
	return res
}

func FormatProblemIDs(pids []string) string {
	return strings.Join(pids, ",")
}
