package standings

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

type CellKind string

const (
	CellRank         CellKind = "rank"
	CellUser         CellKind = "user"
	CellSolved       CellKind = "solved"
	CellTotalScore   CellKind = "total_score"
	CellTotalTime    CellKind = "time"
	CellTotalTimeStr CellKind = "time_str"
	CellProblem      CellKind = "record"
	CellProblemTime  CellKind = "record_time"
	CellProblemTitle CellKind = "problem_detail"
	CellString       CellKind = "string"
)

type Cell struct {
	Kind     CellKind   `json:"type"`
	Value    string     `json:"value"`
	Number   float64    `json:"number,omitempty"`
	RecordID *uuid.UUID `json:"rid,omitempty"`
	UID      *uuid.UUID `json:"uid,omitempty"`
}

type Row []Cell

// Translator localizes header labels. Nil leaves them as is.
type Translator func(string) string

func (in ScoreboardInput) translate() Translator {
	if in.Translate != nil {
		return in.Translate
	}
	return func(s string) string { return s }
}

// problemHeaders emits one column per problem, numbered from 1. Export adds
// a second column per problem, labeled with extra.
func (in ScoreboardInput) problemHeaders(t Translator, extra string) Row {
	var row Row
	for i, pid := range in.Contest.ProblemIDs {
		label := fmt.Sprintf("#%d", i+1)
		if in.Export {
			title := pid
			if p, ok := in.Problems[pid]; ok && p.Title != "" {
				title = p.Title
			}
			row = append(row,
				Cell{Kind: CellProblemTitle, Value: label + " " + title},
				Cell{Kind: CellProblemTime, Value: label + " " + extra},
			)
			continue
		}
		row = append(row, Cell{Kind: CellProblemTitle, Value: label})
	}
	return row
}

func (in ScoreboardInput) emptyProblemCells() Row {
	if in.Export {
		return Row{{Kind: CellProblem}, {Kind: CellProblemTime}}
	}
	return Row{{Kind: CellProblem}}
}

func (in ScoreboardInput) rankCell(r Ranked) Cell {
	return Cell{Kind: CellRank, Value: itoa(r.Rank), Number: float64(r.Rank)}
}

func (in ScoreboardInput) userCell(uid uuid.UUID) Cell {
	name := uid.String()
	if u, ok := in.Users[uid]; ok {
		name = u.Name()
	}
	return Cell{Kind: CellUser, Value: name, UID: &uid}
}

// scoredRows renders score based boards. total and cell pick which score
// the rule displays.
func scoredRows(in ScoreboardInput, total func(Standing) float64, cell func(ProblemDetail) float64) []Row {
	t := in.translate()
	header := Row{
		{Kind: CellRank, Value: t("Rank")},
		{Kind: CellUser, Value: t("User")},
		{Kind: CellTotalScore, Value: t("Total Score")},
	}
	header = append(header, in.problemHeaders(t, t("Original Score"))...)

	rows := []Row{header}
	for _, r := range in.Ranked {
		s := r.Standing
		sum := total(s)
		row := Row{in.rankCell(r), in.userCell(s.UID), {Kind: CellTotalScore, Value: ftoa(sum), Number: sum}}
		for _, pid := range in.Contest.ProblemIDs {
			d, ok := s.DetailFor(pid)
			if !ok || !d.Status.IsTerminal() {
				row = append(row, in.emptyProblemCells()...)
				continue
			}
			v := cell(d)
			c := Cell{Kind: CellProblem, Value: ftoa(v), Number: v, RecordID: &d.RecordID}
			if in.Export {
				c.RecordID = nil
				row = append(row, c, Cell{Kind: CellProblemTime, Value: itoa(d.BestScore), Number: float64(d.BestScore)})
				continue
			}
			row = append(row, c)
		}
		rows = append(rows, row)
	}
	return rows
}

func itoa(n int) string { return strconv.Itoa(n) }

func itoa64(n int64) string { return strconv.FormatInt(n, 10) }

func ftoa(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// clock formats seconds as HH:MM:SS, hours unbounded.
func clock(sec int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
