package standings

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/directory"
	"github.com/programme-lv/ojcore/record"
)

// Rule computes standings, ranking, scoreboard rows and visibility for one
// contest type. The set is closed: see RuleByID.
type Rule interface {
	ID() contest.RuleID
	Stat(c contest.Contest, journal []JournalEntry) Stat
	Rank(standings []Standing) []Ranked
	ScoreboardRows(in ScoreboardInput) []Row
	IsRecordVisible(c contest.Contest, now time.Time) bool
	IsScoreboardVisible(c contest.Contest, now time.Time) bool
}

func RuleByID(id contest.RuleID) (Rule, error) {
	switch id {
	case contest.RuleICPC:
		return icpcRule{}, nil
	case contest.RuleOI:
		return oiRule{}, nil
	case contest.RuleAssignment:
		return assignmentRule{}, nil
	}
	return nil, contest.ErrInvalidRule().SetDebug(fmt.Errorf("rule %d", int(id)))
}

type Ranked struct {
	Rank     int      `json:"rank"`
	Standing Standing `json:"standing"`
}

// ScoreboardInput carries everything a rule needs to render rows.
type ScoreboardInput struct {
	Export    bool
	Translate Translator
	Contest   contest.Contest
	Ranked    []Ranked
	Users     map[uuid.UUID]directory.User
	Problems  map[string]directory.Problem
}

// rankBy sorts with less and assigns competition ranks: equal keys share a
// rank and the next distinct key skips ahead (1, 1, 3).
func rankBy(standings []Standing, less func(a, b Standing) bool) []Ranked {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UID.String() < sorted[j].UID.String()
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	res := make([]Ranked, len(sorted))
	for i, s := range sorted {
		rank := i + 1
		if i > 0 && !less(sorted[i-1], s) {
			rank = res[i-1].Rank
		}
		res[i] = Ranked{Rank: rank, Standing: s}
	}
	return res
}

// countsAsAttempt excludes outcomes the contestant is not responsible for.
func countsAsAttempt(s record.Status) bool {
	if !s.IsTerminal() {
		return false
	}
	switch s {
	case record.StatusSystemError, record.StatusCanceled, record.StatusIgnored:
		return false
	}
	return true
}

func sinceBegin(c contest.Contest, at time.Time) int64 {
	d := at.Sub(c.BeginAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

func afterBegin(c contest.Contest, now time.Time) bool {
	return !now.Before(c.BeginAt)
}

func afterEnd(c contest.Contest, now time.Time) bool {
	return !now.Before(c.EndAt)
}

// detailOrder lists the contest's problems, then attempted problems that
// were removed from it, in the order they were first attempted.
func detailOrder(c contest.Contest, attempted []string) []string {
	order := slices.Clone(c.ProblemIDs)
	for _, pid := range attempted {
		if !c.HasProblem(pid) {
			order = append(order, pid)
		}
	}
	return order
}
