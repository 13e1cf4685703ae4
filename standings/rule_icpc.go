package standings

import (
	"time"

	"github.com/programme-lv/ojcore/contest"
)

// PenaltyPerAttempt is added to an accepted problem's time for every counted
// attempt before the accepted one.
const PenaltyPerAttempt = 20 * time.Minute

type icpcRule struct{}

func (icpcRule) ID() contest.RuleID { return contest.RuleICPC }

func (icpcRule) Stat(c contest.Contest, journal []JournalEntry) Stat {
	type state struct {
		shown    JournalEntry
		wrong    int
		accepted bool
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
		if s.accepted {
			continue
		}
		s.shown = j
		if j.Accept {
			s.accepted = true
		} else if countsAsAttempt(j.Status) {
			s.wrong++
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
			RecordID:  s.shown.RecordID,
			Status:    s.shown.Status,
			Accept:    s.accepted,
			Score:     s.shown.Score,
			BestScore: s.shown.Score,
			Retired:   !c.HasProblem(pid),
			Penalties: s.wrong,
			At:        s.shown.At,
		}
		if s.accepted {
			// the wrong attempts counted so far all precede the accepted one
			d.TimeSec = sinceBegin(c, s.shown.At) + int64(s.wrong)*int64(PenaltyPerAttempt/time.Second)
		}
		st.Detail = append(st.Detail, d)
		if d.Retired {
			continue
		}
		if s.accepted {
			st.Accept++
			st.TimeSec += d.TimeSec
		}
		st.Score += d.Score
	}
	return st
}

func (icpcRule) Rank(standings []Standing) []Ranked {
	return rankBy(standings, func(a, b Standing) bool {
		if a.Accept != b.Accept {
			return a.Accept > b.Accept
		}
		return a.TimeSec < b.TimeSec
	})
}

func (icpcRule) ScoreboardRows(in ScoreboardInput) []Row {
	t := in.translate()
	header := Row{
		{Kind: CellRank, Value: t("Rank")},
		{Kind: CellUser, Value: t("User")},
		{Kind: CellSolved, Value: t("Solved Problems")},
	}
	if in.Export {
		header = append(header,
			Cell{Kind: CellTotalTime, Value: t("Total Time (Seconds)")},
			Cell{Kind: CellTotalTimeStr, Value: t("Total Time")},
		)
	}
	header = append(header, in.problemHeaders(t, t("Time (Seconds)"))...)

	rows := []Row{header}
	for _, r := range in.Ranked {
		s := r.Standing
		row := Row{in.rankCell(r), in.userCell(s.UID), {Kind: CellSolved, Value: itoa(s.Accept), Number: float64(s.Accept)}}
		if in.Export {
			row = append(row,
				Cell{Kind: CellTotalTime, Value: itoa64(s.TimeSec), Number: float64(s.TimeSec)},
				Cell{Kind: CellTotalTimeStr, Value: clock(s.TimeSec)},
			)
		}
		for _, pid := range in.Contest.ProblemIDs {
			d, ok := s.DetailFor(pid)
			if !ok {
				row = append(row, in.emptyProblemCells()...)
				continue
			}
			flag := ""
			if d.Accept {
				flag = "AC"
			} else if d.Penalties > 0 {
				flag = "-" + itoa(d.Penalties)
			}
			cell := Cell{Kind: CellProblem, Value: flag, Number: float64(d.TimeSec), RecordID: &d.RecordID}
			if in.Export {
				cell.RecordID = nil
				row = append(row, cell, Cell{Kind: CellProblemTime, Value: itoa64(d.TimeSec), Number: float64(d.TimeSec)})
				continue
			}
			if d.Accept {
				cell.Value = clock(d.TimeSec)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

func (icpcRule) IsRecordVisible(c contest.Contest, now time.Time) bool {
	return afterEnd(c, now)
}

func (icpcRule) IsScoreboardVisible(c contest.Contest, now time.Time) bool {
	return true
}
