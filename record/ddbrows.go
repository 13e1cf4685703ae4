package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// recordRow is the dynamodb item layout. Partition key is rid; contest
// records are additionally indexed by tid (GSI "tid-rid-index").
type recordRow struct {
	Rid       string  `dynamodbav:"rid"`
	DomainID  string  `dynamodbav:"domain_id"`
	ProblemID string  `dynamodbav:"pid"`
	UID       string  `dynamodbav:"uid"`
	Tid       *string `dynamodbav:"tid,omitempty"`

	Lang     string `dynamodbav:"lang"`
	Code     string `dynamodbav:"code"`
	CodeBlob string `dynamodbav:"code_blob"`
	CodeType int    `dynamodbav:"code_type"`

	Type          int      `dynamodbav:"type"`
	JudgeCategory []string `dynamodbav:"judge_category"`

	Status        int          `dynamodbav:"status"`
	Score         int          `dynamodbav:"score"`
	TimeMs        int          `dynamodbav:"time_ms"`
	MemoryKiB     int          `dynamodbav:"memory_kib"`
	Cases         []CaseResult `dynamodbav:"cases"`
	CompilerTexts []string     `dynamodbav:"compiler_texts"`
	JudgeTexts    []string     `dynamodbav:"judge_texts"`
	Progress      *float64     `dynamodbav:"progress"`

	JudgeUID    string `dynamodbav:"judge_uid"`
	JudgeToken  string `dynamodbav:"judge_token"`
	JudgeAtUnix *int64 `dynamodbav:"judge_at"` // unix millis

	Hidden       bool   `dynamodbav:"hidden"`
	Rejudged     bool   `dynamodbav:"rejudged"`
	SubmitAtUnix *int64 `dynamodbav:"submit_at"`
}

func toRow(r Record) recordRow {
	row := recordRow{
		Rid:           r.ID.String(),
		DomainID:      r.DomainID,
		ProblemID:     r.ProblemID,
		UID:           r.UID.String(),
		Lang:          r.Lang,
		Code:          r.Code,
		CodeBlob:      r.CodeBlob,
		CodeType:      int(r.CodeType),
		Type:          int(r.Type),
		JudgeCategory: NormalizeCategories(r.JudgeCategory),
		Status:        int(r.Status),
		Score:         r.Score,
		TimeMs:        r.TimeMs,
		MemoryKiB:     r.MemoryKiB,
		Cases:         r.Cases,
		CompilerTexts: r.CompilerTexts,
		JudgeTexts:    r.JudgeTexts,
		Progress:      r.Progress,
		JudgeUID:      r.JudgeUID,
		JudgeToken:    r.JudgeToken,
		Hidden:        r.Hidden,
		Rejudged:      r.Rejudged,
	}
	if r.ContestID != nil {
		tid := r.ContestID.String()
		row.Tid = &tid
	}
	if r.JudgeAt != nil {
		ms := r.JudgeAt.UnixMilli()
		row.JudgeAtUnix = &ms
	}
	if r.SubmitAt != nil {
		ms := r.SubmitAt.UnixMilli()
		row.SubmitAtUnix = &ms
	}
	return row
}

func fromRow(row recordRow) (Record, error) {
	id, err := uuid.Parse(row.Rid)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse rid %q: %w", row.Rid, err)
	}
	uid, err := uuid.Parse(row.UID)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse uid %q: %w", row.UID, err)
	}
	rec := Record{
		ID:            id,
		DomainID:      row.DomainID,
		ProblemID:     row.ProblemID,
		UID:           uid,
		Lang:          row.Lang,
		Code:          row.Code,
		CodeBlob:      row.CodeBlob,
		CodeType:      CodeType(row.CodeType),
		Type:          Type(row.Type),
		JudgeCategory: row.JudgeCategory,
		Status:        Status(row.Status),
		Score:         row.Score,
		TimeMs:        row.TimeMs,
		MemoryKiB:     row.MemoryKiB,
		Cases:         row.Cases,
		CompilerTexts: row.CompilerTexts,
		JudgeTexts:    row.JudgeTexts,
		Progress:      row.Progress,
		JudgeUID:      row.JudgeUID,
		JudgeToken:    row.JudgeToken,
		Hidden:        row.Hidden,
		Rejudged:      row.Rejudged,
	}
	if row.Tid != nil {
		tid, err := uuid.Parse(*row.Tid)
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse tid %q: %w", *row.Tid, err)
		}
		rec.ContestID = &tid
	}
	if row.JudgeAtUnix != nil {
		t := time.UnixMilli(*row.JudgeAtUnix).UTC()
		rec.JudgeAt = &t
	}
	if row.SubmitAtUnix != nil {
		t := time.UnixMilli(*row.SubmitAtUnix).UTC()
		rec.SubmitAt = &t
	}
	return rec, nil
}
