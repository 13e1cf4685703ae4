package standings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/guregu/dynamo/v2"
	"github.com/programme-lv/ojcore/record"
)

type journalRow struct {
	RecordID  string `dynamo:"rid"`
	ProblemID string `dynamo:"pid"`
	AtMs      int64  `dynamo:"at"`
	Status    int    `dynamo:"status"`
	Accept    bool   `dynamo:"accept"`
	Score     int    `dynamo:"score"`
}

type detailRow struct {
	ProblemID    string  `dynamo:"pid"`
	RecordID     string  `dynamo:"rid"`
	Status       int     `dynamo:"status"`
	Accept       bool    `dynamo:"accept"`
	Score        int     `dynamo:"score"`
	BestScore    int     `dynamo:"best_score"`
	PenaltyScore float64 `dynamo:"penalty_score"`
	Retired      bool    `dynamo:"retired,omitempty"`
	Penalties    int     `dynamo:"naccept"`
	TimeSec      int64   `dynamo:"time"`
	AtMs         int64   `dynamo:"at"`
}

type standingRow struct {
	ContestID string `dynamo:"tid,hash"`
	UID       string `dynamo:"uid,range"`
	Attend    bool   `dynamo:"attend"`

	Journal []journalRow `dynamo:"journal"`

	Detail       []detailRow `dynamo:"detail"`
	Accept       int         `dynamo:"accept"`
	Score        int         `dynamo:"score"`
	PenaltyScore float64     `dynamo:"penalty_score"`
	TimeSec      int64       `dynamo:"time"`
}

// DdbStore keeps one item per (tid, uid) in a table with hash key tid and
// range key uid.
type DdbStore struct {
	ddbClient *dynamodb.Client
	tableName string
	table     dynamo.Table
}

var _ Store = (*DdbStore)(nil)

func NewDdbStore(ddbClient *dynamodb.Client, tableName string) *DdbStore {
	ddb := &DdbStore{
		ddbClient: ddbClient,
		tableName: tableName,
	}
	db := dynamo.NewFromIface(ddb.ddbClient)
	ddb.table = db.Table(ddb.tableName)
	return ddb
}

func (ddb *DdbStore) Get(ctx context.Context, tid, uid uuid.UUID) (Standing, error) {
	var row standingRow
	err := ddb.table.Get("tid", tid.String()).
		Range("uid", dynamo.Equal, uid.String()).
		Consistent(true).
		One(ctx, &row)
	if errors.Is(err, dynamo.ErrNotFound) {
		return Standing{}, ErrStandingNotFound()
	}
	if err != nil {
		return Standing{}, fmt.Errorf("failed to get standing: %w", err)
	}
	return row.toStanding()
}

func (ddb *DdbStore) List(ctx context.Context, tid uuid.UUID) ([]Standing, error) {
	var rows []standingRow
	err := ddb.table.Get("tid", tid.String()).Consistent(true).All(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	res := make([]Standing, 0, len(rows))
	for _, row := range rows {
		s, err := row.toStanding()
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (ddb *DdbStore) GetMulti(ctx context.Context, uid uuid.UUID, tids []uuid.UUID) (map[uuid.UUID]Standing, error) {
	res := make(map[uuid.UUID]Standing, len(tids))
	if len(tids) == 0 {
		return res, nil
	}
	keys := make([]dynamo.Keyed, 0, len(tids))
	for _, tid := range tids {
		keys = append(keys, dynamo.Keys{tid.String(), uid.String()})
	}
	var rows []standingRow
	err := ddb.table.Batch("tid", "uid").Get(keys...).All(ctx, &rows)
	if err != nil && !errors.Is(err, dynamo.ErrNotFound) {
		return nil, fmt.Errorf("failed to batch get standings: %w", err)
	}
	for _, row := range rows {
		s, err := row.toStanding()
		if err != nil {
			return nil, err
		}
		res[s.ContestID] = s
	}
	return res, nil
}

// appendAttempts bounds the create-or-append race between two first folds
// for the same contestant.
const appendAttempts = 3

func (ddb *DdbStore) Append(ctx context.Context, tid, uid uuid.UUID, entries ...JournalEntry) (Standing, error) {
	rows := make([]journalRow, len(entries))
	for i, e := range entries {
		rows[i] = toJournalRow(e)
	}

	var row standingRow
	for range appendAttempts {
		err := ddb.table.Update("tid", tid.String()).
			Range("uid", uid.String()).
			Append("journal", rows).
			If("attribute_exists($)", "journal").
			Value(ctx, &row)
		if err == nil {
			return row.toStanding()
		}
		if !dynamo.IsCondCheckFailed(err) {
			return Standing{}, fmt.Errorf("failed to append to journal: %w", err)
		}

		err = ddb.table.Update("tid", tid.String()).
			Range("uid", uid.String()).
			Set("journal", rows).
			SetIfNotExists("attend", false).
			If("attribute_not_exists($)", "journal").
			Value(ctx, &row)
		if err == nil {
			return row.toStanding()
		}
		if !dynamo.IsCondCheckFailed(err) {
			return Standing{}, fmt.Errorf("failed to create journal: %w", err)
		}
	}
	return Standing{}, fmt.Errorf("journal append for %s/%s kept racing", tid, uid)
}

func (ddb *DdbStore) SetDerived(ctx context.Context, tid, uid uuid.UUID, journalLen int, st Stat) (bool, error) {
	detail := make([]detailRow, len(st.Detail))
	for i, d := range st.Detail {
		detail[i] = toDetailRow(d)
	}
	err := ddb.table.Update("tid", tid.String()).
		Range("uid", uid.String()).
		Set("detail", detail).
		Set("accept", st.Accept).
		Set("score", st.Score).
		Set("penalty_score", st.PenaltyScore).
		Set("time", st.TimeSec).
		If("size($) = ?", "journal", journalLen).
		Run(ctx)
	if dynamo.IsCondCheckFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to store standing stat: %w", err)
	}
	return true, nil
}

func (ddb *DdbStore) Attend(ctx context.Context, tid, uid uuid.UUID) (Standing, error) {
	var row standingRow
	err := ddb.table.Update("tid", tid.String()).
		Range("uid", uid.String()).
		Set("attend", true).
		Value(ctx, &row)
	if err != nil {
		return Standing{}, fmt.Errorf("failed to mark attendance: %w", err)
	}
	return row.toStanding()
}

func toJournalRow(e JournalEntry) journalRow {
	return journalRow{
		RecordID:  e.RecordID.String(),
		ProblemID: e.ProblemID,
		AtMs:      e.At.UnixMilli(),
		Status:    int(e.Status),
		Accept:    e.Accept,
		Score:     e.Score,
	}
}

func toDetailRow(d ProblemDetail) detailRow {
	return detailRow{
		ProblemID:    d.ProblemID,
		RecordID:     d.RecordID.String(),
		Status:       int(d.Status),
		Accept:       d.Accept,
		Score:        d.Score,
		BestScore:    d.BestScore,
		PenaltyScore: d.PenaltyScore,
		Retired:      d.Retired,
		Penalties:    d.Penalties,
		TimeSec:      d.TimeSec,
		AtMs:         d.At.UnixMilli(),
	}
}

func (row standingRow) toStanding() (Standing, error) {
	tid, err := uuid.Parse(row.ContestID)
	if err != nil {
		return Standing{}, fmt.Errorf("bad tid %q: %w", row.ContestID, err)
	}
	uid, err := uuid.Parse(row.UID)
	if err != nil {
		return Standing{}, fmt.Errorf("bad uid %q: %w", row.UID, err)
	}
	s := Standing{
		ContestID: tid,
		UID:       uid,
		Attend:    row.Attend,
		Stat: Stat{
			Accept:       row.Accept,
			Score:        row.Score,
			PenaltyScore: row.PenaltyScore,
			TimeSec:      row.TimeSec,
		},
	}
	for _, j := range row.Journal {
		rid, err := uuid.Parse(j.RecordID)
		if err != nil {
			return Standing{}, fmt.Errorf("bad journal rid %q: %w", j.RecordID, err)
		}
		s.Journal = append(s.Journal, JournalEntry{
			RecordID:  rid,
			ProblemID: j.ProblemID,
			At:        time.UnixMilli(j.AtMs).UTC(),
			Status:    record.Status(j.Status),
			Accept:    j.Accept,
			Score:     j.Score,
		})
	}
	for _, d := range row.Detail {
		rid, err := uuid.Parse(d.RecordID)
		if err != nil {
			return Standing{}, fmt.Errorf("bad detail rid %q: %w", d.RecordID, err)
		}
		s.Detail = append(s.Detail, ProblemDetail{
			ProblemID:    d.ProblemID,
			RecordID:     rid,
			Status:       record.Status(d.Status),
			Accept:       d.Accept,
			Score:        d.Score,
			BestScore:    d.BestScore,
			PenaltyScore: d.PenaltyScore,
			Retired:      d.Retired,
			Penalties:    d.Penalties,
			TimeSec:      d.TimeSec,
			At:           time.UnixMilli(d.AtMs).UTC(),
		})
	}
	return s, nil
}
