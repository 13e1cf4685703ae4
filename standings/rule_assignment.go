package standings

import (
	"time"

	"github.com/programme-lv/ojcore/contest"
)

// assignmentRule scores homework: each attempt's score is scaled by the
// penalty factor in force when it was submitted.
type assignmentRule struct{}

func (assignmentRule) ID() contest.RuleID { return contest.RuleAssignment }

func (assignmentRule) Stat(c contest.Contest, journal []JournalEntry) Stat {
	return bestPerProblem(c, journal, func(j JournalEntry) float64 {
		return float64(j.Score) * c.PenaltyFactor(j.At)
	})
}

func (assignmentRule) Rank(standings []Standing) []Ranked {
	return rankBy(standings, func(a, b Standing) bool {
		if a.PenaltyScore != b.PenaltyScore {
			return a.PenaltyScore > b.PenaltyScore
		}
		return a.TimeSec < b.TimeSec
	})
}

func (assignmentRule) ScoreboardRows(in ScoreboardInput) []Row {
	return scoredRows(in, func(s Standing) float64 { return s.PenaltyScore },
		func(d ProblemDetail) float64 { return d.PenaltyScore })
}

func (assignmentRule) IsRecordVisible(c contest.Contest, now time.Time) bool {
	return afterEnd(c, now)
}

func (assignmentRule) IsScoreboardVisible(c contest.Contest, now time.Time) bool {
	return afterBegin(c, now)
}
