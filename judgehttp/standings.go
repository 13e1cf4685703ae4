package judgehttp

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/httpjson"
	"github.com/programme-lv/ojcore/standings"
)

func (httpserver *HttpServer) attendContest(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	uid, err := callerUID(r)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	st, err := httpserver.standings.Attend(r.Context(), tid, uid)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, st)
}

func (httpserver *HttpServer) getStanding(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	uid, err := urlUUID(r, "uid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	st, err := httpserver.standings.GetStatus(r.Context(), tid, uid)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, st)
}

// listStandings is hidden together with the scoreboard.
func (httpserver *HttpServer) listStandings(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	c, docs, err := httpserver.standings.GetAndListStatus(r.Context(), tid)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	visible, err := httpserver.standings.IsScoreboardVisible(c)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	if !visible && !isOperator(r) {
		httpserver.fail(w, r, standings.ErrScoreboardHidden())
		return
	}
	httpjson.WriteSuccessJson(w, docs)
}

func (httpserver *HttpServer) getDictStandings(w http.ResponseWriter, r *http.Request) {
	uid, err := urlUUID(r, "uid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	var tids []uuid.UUID
	for _, s := range splitList(r.URL.Query().Get("tid")) {
		tid, err := uuid.Parse(s)
		if err != nil {
			httpserver.fail(w, r, errInvalidID("tid").SetDebug(err))
			return
		}
		tids = append(tids, tid)
	}
	dict, err := httpserver.standings.GetDictStatus(r.Context(), uid, tids)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	res := make(map[string]standings.Standing, len(dict))
	for tid, st := range dict {
		res[tid.String()] = st
	}
	httpjson.WriteSuccessJson(w, res)
}

func (httpserver *HttpServer) getScoreboard(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	sb, err := httpserver.standings.Scoreboard(r.Context(), tid, standings.ScoreboardParams{
		Export:     r.URL.Query().Get("export") == "true",
		Privileged: isOperator(r),
	})
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, sb.Rows)
}

func (httpserver *HttpServer) recalcStandings(w http.ResponseWriter, r *http.Request) {
	tid, err := urlUUID(r, "tid")
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	n, err := httpserver.standings.Recalc(r.Context(), tid)
	if err != nil {
		httpserver.fail(w, r, err)
		return
	}
	httpjson.WriteSuccessJson(w, map[string]int{"recalculated": n})
}
