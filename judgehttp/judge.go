package judgehttp

import (
	"net/http"

	"github.com/programme-lv/ojcore/auth"
	"github.com/programme-lv/ojcore/httpjson"
	"github.com/programme-lv/ojcore/record"
)

// claimResponse tells the worker whether its claim still holds. A refused
// claim is a normal answer, not an error.
type claimResponse struct {
	Applied bool        `json:"applied"`
	Record  *recordView `json:"record,omitempty"`
}

func claimed(rec record.Record, ok bool) claimResponse {
	if !ok {
		return claimResponse{Applied: false}
	}
	view := mapRecord(rec)
	return claimResponse{Applied: true, Record: &view}
}

func judgeUID(r *http.Request) string {
	return auth.ClaimsFromContext(r.Context()).Subject
}

func (httpserver *HttpServer) beginJudge(w http.ResponseWriter, r *http.Request) {
	rid, err := urlUUID(r, "rid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	type beginRequest struct {
		Token  string        `json:"token"`
		Status record.Status `json:"status"`
	}
	var req beginRequest
	if !httpjson.DecodeBody(w, r, &req) {
		return
	}
	rec, ok, err := httpserver.judge.BeginJudge(r.Context(), rid, judgeUID(r), req.Token, req.Status)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, claimed(rec, ok))
}

func (httpserver *HttpServer) reportProgress(w http.ResponseWriter, r *http.Request) {
	rid, err := urlUUID(r, "rid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	type progressRequest struct {
		Token         string              `json:"token"`
		Status        *record.Status      `json:"status"`
		Progress      *float64            `json:"progress"`
		Cases         []record.CaseResult `json:"cases"`
		CompilerTexts []string            `json:"compiler_texts"`
		JudgeTexts    []string            `json:"judge_texts"`
	}
	var req progressRequest
	if !httpjson.DecodeBody(w, r, &req) {
		return
	}
	rec, ok, err := httpserver.judge.ReportProgress(r.Context(), rid, judgeUID(r), req.Token, record.Progress{
		Status:        req.Status,
		Progress:      req.Progress,
		Cases:         req.Cases,
		CompilerTexts: req.CompilerTexts,
		JudgeTexts:    req.JudgeTexts,
	})
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, claimed(rec, ok))
}

func (httpserver *HttpServer) endJudge(w http.ResponseWriter, r *http.Request) {
	rid, err := urlUUID(r, "rid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	type endRequest struct {
		Token     string        `json:"token"`
		Status    record.Status `json:"status"`
		Score     int           `json:"score"`
		TimeMs    int           `json:"time_ms"`
		MemoryKiB int           `json:"memory_kib"`
	}
	var req endRequest
	if !httpjson.DecodeBody(w, r, &req) {
		return
	}
	rec, ok, err := httpserver.judge.EndJudge(r.Context(), rid, judgeUID(r), req.Token, record.Result{
		Status:    req.Status,
		Score:     req.Score,
		TimeMs:    req.TimeMs,
		MemoryKiB: req.MemoryKiB,
	})
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, claimed(rec, ok))
}
