package standings

import (
	"time"

	"github.com/programme-lv/ojcore/contest"
)

// bestPerProblem picks, per problem, the highest-weighted terminal entry
// (earliest wins ties). Problems with only pending entries show the latest.
func bestPerProblem(c contest.Contest, journal []JournalEntry, weight func(JournalEntry) float64) Stat {
	type state struct {
		best     JournalEntry
		weighted float64
		raw      int
		terminal bool
		attempts int
	}
	per := make(map[string]*state)
	var attempted []string
	for _, j := range journal {
		s, ok := per[j.ProblemID]
		if !ok {
			s = &state{}
			per[j.ProblemID] = s
			attempted = append(attempted, j.ProblemID)
		}
		if !j.Status.IsTerminal() {
			if !s.terminal {
				s.best = j
			}
			continue
		}
		s.attempts++
		w := weight(j)
		if !s.terminal || w > s.weighted {
			s.best, s.weighted, s.terminal = j, w, true
		}
		if j.Score > s.raw {
			s.raw = j.Score
		}
	}

	var st Stat
	for _, pid := range detailOrder(c, attempted) {
		s, ok := per[pid]
		if !ok {
			continue
		}
		d := ProblemDetail{
			ProblemID: pid,
			RecordID:  s.best.RecordID,
			Status:    s.best.Status,
			Accept:    s.best.Accept,
			Retired:   !c.HasProblem(pid),
			At:        s.best.At,
		}
		if s.terminal {
			d.Score = s.best.Score
			d.BestScore = s.raw
			d.PenaltyScore = s.weighted
			d.Penalties = s.attempts - 1
			d.TimeSec = sinceBegin(c, s.best.At)
		}
		st.Detail = append(st.Detail, d)
		if !s.terminal || d.Retired {
			continue
		}
		if d.Accept {
			st.Accept++
		}
		st.Score += d.BestScore
		st.PenaltyScore += d.PenaltyScore
		st.TimeSec = max(st.TimeSec, d.TimeSec)
	}
	return st
}

type oiRule struct{}

func (oiRule) ID() contest.RuleID { return contest.RuleOI }

func (oiRule) Stat(c contest.Contest, journal []JournalEntry) Stat {
	return bestPerProblem(c, journal, func(j JournalEntry) float64 {
		return float64(j.Score)
	})
}

func (oiRule) Rank(standings []Standing) []Ranked {
	return rankBy(standings, func(a, b Standing) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.TimeSec < b.TimeSec
	})
}

func (oiRule) ScoreboardRows(in ScoreboardInput) []Row {
	return scoredRows(in, func(s Standing) float64 { return float64(s.Score) },
		func(d ProblemDetail) float64 { return float64(d.BestScore) })
}

func (oiRule) IsRecordVisible(c contest.Contest, now time.Time) bool {
	return afterEnd(c, now)
}

func (oiRule) IsScoreboardVisible(c contest.Contest, now time.Time) bool {
	return afterEnd(c, now)
}
