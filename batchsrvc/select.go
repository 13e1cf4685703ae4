package batchsrvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/standings"
	"golang.org/x/sync/errgroup"
)

// Predicate inspects one journaled record during selection.
type Predicate func(rec record.Record) bool

// SelectLatest walks every contestant's journaled records newest first and
// keeps, per contest problem, the first record that is not skipped. A
// contestant's walk ends when stop holds or every problem has a record.
// Either predicate may be nil.
func (s *BatchSrvc) SelectLatest(ctx context.Context, tid uuid.UUID, stop, skip Predicate) ([]record.Record, error) {
	c, docs, err := s.standings.GetAndListStatus(ctx, tid)
	if err != nil {
		return nil, err
	}

	perUser := make([][]record.Record, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, doc := range docs {
		if len(doc.Journal) == 0 {
			continue
		}
		g.Go(func() error {
			recs, err := s.journaled(gctx, doc)
			if err != nil {
				return err
			}
			perUser[i] = pickLatest(recs, c.ProblemIDs, stop, skip)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := []record.Record{}
	for _, recs := range perUser {
		res = append(res, recs...)
	}
	return res, nil
}

// journaled loads the distinct records of a standing's journal, newest
// first. Hidden records are included.
func (s *BatchSrvc) journaled(ctx context.Context, doc standings.Standing) ([]record.Record, error) {
	rids := standings.NewestFirst(doc.Journal)
	recs, err := s.records.GetMulti(ctx, rids, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal records of %s: %w", doc.UID, err)
	}
	record.SortNewestFirst(recs)
	return recs, nil
}

func pickLatest(recs []record.Record, pids []string, stop, skip Predicate) []record.Record {
	want := make(map[string]struct{}, len(pids))
	for _, pid := range pids {
		want[pid] = struct{}{}
	}
	var res []record.Record
	for _, rec := range recs {
		if len(want) == 0 {
			break
		}
		if stop != nil && stop(rec) {
			break
		}
		if skip != nil && skip(rec) {
			continue
		}
		if _, ok := want[rec.ProblemID]; !ok {
			continue
		}
		delete(want, rec.ProblemID)
		res = append(res, rec)
	}
	return res
}
