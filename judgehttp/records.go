package judgehttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/httpjson"
	"github.com/programme-lv/ojcore/judgesrvc"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/srvcerror"
)

type recordView struct {
	ID            uuid.UUID           `json:"rid"`
	DomainID      string              `json:"domain_id"`
	ProblemID     string              `json:"pid"`
	UID           uuid.UUID           `json:"uid"`
	ContestID     *uuid.UUID          `json:"tid,omitempty"`
	Lang          string              `json:"lang"`
	Code          string              `json:"code,omitempty"`
	Type          record.Type         `json:"type"`
	JudgeCategory []string            `json:"judge_category"`
	Status        string              `json:"status"`
	StatusCode    record.Status       `json:"status_code"`
	Score         int                 `json:"score"`
	TimeMs        int                 `json:"time_ms"`
	MemoryKiB     int                 `json:"memory_kib"`
	Cases         []record.CaseResult `json:"cases,omitempty"`
	CompilerTexts []string            `json:"compiler_texts,omitempty"`
	JudgeTexts    []string            `json:"judge_texts,omitempty"`
	Progress      *float64            `json:"progress,omitempty"`
	Rejudged      bool                `json:"rejudged"`
	SubmittedAt   time.Time           `json:"submitted_at"`
}

func mapRecord(rec record.Record) recordView {
	return recordView{
		ID:            rec.ID,
		DomainID:      rec.DomainID,
		ProblemID:     rec.ProblemID,
		UID:           rec.UID,
		ContestID:     rec.ContestID,
		Lang:          rec.Lang,
		Code:          rec.Code,
		Type:          rec.Type,
		JudgeCategory: rec.JudgeCategory,
		Status:        rec.Status.String(),
		StatusCode:    rec.Status,
		Score:         rec.Score,
		TimeMs:        rec.TimeMs,
		MemoryKiB:     rec.MemoryKiB,
		Cases:         rec.Cases,
		CompilerTexts: rec.CompilerTexts,
		JudgeTexts:    rec.JudgeTexts,
		Progress:      rec.Progress,
		Rejudged:      rec.Rejudged,
		SubmittedAt:   rec.SubmittedAt(),
	}
}

func (httpserver *HttpServer) submitRecord(w http.ResponseWriter, r *http.Request) {
	uid, err := callerUID(r)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}

	type submitRequest struct {
		DomainID  string     `json:"domain_id"`
		ProblemID string     `json:"pid"`
		ContestID *uuid.UUID `json:"tid"`
		Lang      string     `json:"lang"`
		Code      string     `json:"code"`
		Pretest   bool       `json:"pretest"`
	}
	var req submitRequest
	if !httpjson.DecodeBody(w, r, &req) {
		return
	}

	typ := record.TypeSubmission
	if req.Pretest {
		typ = record.TypePretest
	}
	rid, err := httpserver.judge.Submit(r.Context(), judgesrvc.SubmitParams{
		DomainID:   req.DomainID,
		ProblemID:  req.ProblemID,
		UID:        uid,
		ContestID:  req.ContestID,
		Lang:       req.Lang,
		Code:       req.Code,
		CodeType:   record.CodeTypeText,
		Type:       typ,
		Hidden:     req.Pretest,
		Privileged: isOperator(r),
	})
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}

	httpjson.WriteSuccessJson(w, map[string]uuid.UUID{"rid": rid})
}

// getRecord shows code only to its author and operators.
func (httpserver *HttpServer) getRecord(w http.ResponseWriter, r *http.Request) {
	rid, err := urlUUID(r, "rid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	rec, err := httpserver.records.Get(r.Context(), rid)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	uid, _ := callerUID(r)
	if uid != rec.UID && !isOperator(r) {
		rec = rec.Public()
	}
	httpjson.WriteSuccessJson(w, mapRecord(rec))
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func errRecordsHidden() *srvcerror.Error {
	return srvcerror.Forbidden("records_hidden", "contest records are not public yet")
}

// listRecords pages through records newest first. Other users' contest
// records are listed only once the contest rule shows them.
func (httpserver *HttpServer) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := record.Filter{
		DomainID:      q.Get("domain"),
		ProblemID:     q.Get("pid"),
		IncludeHidden: isOperator(r),
		Limit:         defaultListLimit,
	}
	for name, dst := range map[string]**uuid.UUID{"uid": &f.UID, "tid": &f.ContestID, "before": &f.BeforeID} {
		if v := q.Get(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				httpserver.fail(w, r, errInvalidID(name).SetDebug(err))
				return
			}
			*dst = &id
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httpserver.fail(w, r, srvcerror.Validation("invalid_limit", "limit must be a positive number"))
			return
		}
		f.Limit = min(n, maxListLimit)
	}

	caller, _ := callerUID(r)
	if f.ContestID != nil && (f.UID == nil || *f.UID != caller) {
		ok, err := httpserver.standings.RecordsVisible(r.Context(), *f.ContestID, isOperator(r))
		if err != nil {
			httpserver.fail(w, r, err)
			return
		}
		if !ok {
			httpserver.fail(w, r, errRecordsHidden())
			return
		}
	}

	recs, err := httpserver.records.List(r.Context(), f)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	views := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		if rec.UID != caller && !isOperator(r) {
			rec = rec.Public()
		}
		views = append(views, mapRecord(rec))
	}
	httpjson.WriteSuccessJson(w, views)
}

func (httpserver *HttpServer) rejudgeRecord(w http.ResponseWriter, r *http.Request) {
	rid, err := urlUUID(r, "rid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	enqueue := r.URL.Query().Get("enqueue") != "false"
	rec, err := httpserver.judge.Rejudge(r.Context(), rid, enqueue)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, mapRecord(rec))
}
