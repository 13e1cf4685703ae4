// Package batchsrvc runs contest-wide operations over each contestant's
// latest attempt per problem: system tests, plagiarism gathering and code
// export.
package batchsrvc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/contest"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/standings"
)

// fetchConcurrency bounds parallel record lookups, one per contestant.
const fetchConcurrency = 8

type Judge interface {
	SystemTest(ctx context.Context, src record.Record, categories []string) (record.Record, error)
}

type Standings interface {
	GetAndListStatus(ctx context.Context, tid uuid.UUID) (contest.Contest, []standings.Standing, error)
}

type BatchSrvc struct {
	records   record.Store
	contests  contest.Store
	standings Standings
	judge     Judge
	logger    *slog.Logger
}

func NewBatchSrvc(records record.Store, contests contest.Store, st Standings, judge Judge, log *slog.Logger) *BatchSrvc {
	return &BatchSrvc{
		records:   records,
		contests:  contests,
		standings: st,
		judge:     judge,
		logger:    log.With(slog.String("module", "batch")),
	}
}
