package judgehttp

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/programme-lv/ojcore/httpjson"
	"github.com/programme-lv/ojcore/record"
)

func (httpserver *HttpServer) systemTestContest(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	type systemTestRequest struct {
		JudgeCategory string `json:"judge_category"`
		OnlyNew       bool   `json:"system_test_new"`
	}
	var req systemTestRequest
	if !httpjson.DecodeBody(w, r, &req) {
		return
	}
	res, err := httpserver.batch.SystemTest(r.Context(), tid, record.ParseCategories(req.JudgeCategory), req.OnlyNew)
	if err != nil && len(res.Cloned) == 0 {
		httpserver.fail(w, r, err)
		return
	}
	type systemTestResponse struct {
		Cloned  int    `json:"cloned"`
		Skipped int    `json:"skipped"`
		Error   string `json:"error,omitempty"`
	}
	resp := systemTestResponse{Cloned: len(res.Cloned), Skipped: res.Skipped}
	if err != nil {
		resp.Error = err.Error()
	}
	httpjson.WriteSuccessJson(w, resp)
}

func (httpserver *HttpServer) gatherLatest(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	recs, err := httpserver.batch.GatherLatest(r.Context(), tid)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	views := make([]recordView, len(recs))
	for i, rec := range recs {
		views[i] = mapRecord(rec)
	}
	httpjson.WriteSuccessJson(w, views)
}

func (httpserver *HttpServer) savePlagiarismResult(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	type plagiarismRequest struct {
		URL string `json:"url"`
	}
	var req plagiarismRequest
	if !httpjson.DecodeBody(w, r, &req) {
		return
	}
	if err := httpserver.batch.SavePlagiarismResult(r.Context(), tid, req.URL); err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, nil)
}

// exportCode buffers the archive so a failure can still be reported as JSON.
func (httpserver *HttpServer) exportCode(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, _, err := httpserver.batch.ExportCode(r.Context(), tid, &buf); err != nil {
		httpserver.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_records.zip"`, tid))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
