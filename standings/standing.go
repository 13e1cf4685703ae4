// Package standings folds judged attempts into per-contestant standing
// documents and ranks them with the contest's rule.
package standings

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/record"
)

// JournalEntry is one fold of a record into a standing. A record folded at
// submission and again at judge end appears twice; the later entry wins.
type JournalEntry struct {
	RecordID  uuid.UUID     `json:"rid"`
	ProblemID string        `json:"pid"`
	At        time.Time     `json:"at"`
	Status    record.Status `json:"status"`
	Accept    bool          `json:"accept"`
	Score     int           `json:"score"`
}

type ProblemDetail struct {
	ProblemID string        `json:"pid"`
	RecordID  uuid.UUID     `json:"rid"`
	Status    record.Status `json:"status"`
	Accept    bool          `json:"accept"`
	// Score belongs to the shown attempt; BestScore is the highest raw score
	// of any attempt, which differs under penalty decay.
	Score        int     `json:"score"`
	BestScore    int     `json:"best_score"`
	PenaltyScore float64 `json:"penalty_score"`
	// attempted but no longer part of the contest; left out of totals
	Retired bool `json:"retired,omitempty"`
	// counted attempts before the one shown
	Penalties int `json:"naccept"`
	// seconds since contest begin, including attempt penalties
	TimeSec int64     `json:"time"`
	At      time.Time `json:"at"`
}

// Stat is the projection a rule derives from the effective journal.
type Stat struct {
	Detail       []ProblemDetail `json:"detail"`
	Accept       int             `json:"accept"`
	Score        int             `json:"score"`
	PenaltyScore float64         `json:"penalty_score"`
	TimeSec      int64           `json:"time"`
}

type Standing struct {
	ContestID uuid.UUID      `json:"tid"`
	UID       uuid.UUID      `json:"uid"`
	Attend    bool           `json:"attend"`
	Journal   []JournalEntry `json:"journal"`
	Stat
}

func (s Standing) DetailFor(pid string) (ProblemDetail, bool) {
	for _, d := range s.Detail {
		if d.ProblemID == pid {
			return d, true
		}
	}
	return ProblemDetail{}, false
}

// Effective returns the journal with one entry per record, the last one
// appended, ordered by record id.
func Effective(journal []JournalEntry) []JournalEntry {
	last := make(map[uuid.UUID]int, len(journal))
	for i, j := range journal {
		last[j.RecordID] = i
	}
	res := make([]JournalEntry, 0, len(last))
	for i, j := range journal {
		if last[j.RecordID] == i {
			res = append(res, j)
		}
	}
	sort.SliceStable(res, func(a, b int) bool {
		return record.CompareIDs(res[a].RecordID, res[b].RecordID) < 0
	})
	return res
}

// NewestFirst returns the effective journal's record ids, newest first.
func NewestFirst(journal []JournalEntry) []uuid.UUID {
	eff := Effective(journal)
	ids := make([]uuid.UUID, len(eff))
	for i, j := range eff {
		ids[len(eff)-1-i] = j.RecordID
	}
	return ids
}

func cloneStanding(s Standing) Standing {
	s.Journal = slices.Clone(s.Journal)
	s.Detail = slices.Clone(s.Detail)
	return s
}
