package judgehttp

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/auth"
	"github.com/programme-lv/ojcore/httpjson"
	"github.com/programme-lv/ojcore/srvcerror"
)

func errInvalidID(name string) *srvcerror.Error {
	return srvcerror.Validation("invalid_id", "invalid "+name)
}

func errUnauthenticated() *srvcerror.Error {
	return srvcerror.New("unauthenticated", "sign in first").SetHttpStatusCode(http.StatusUnauthorized)
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID(name).SetDebug(err)
	}
	return id, nil
}

// callerUID returns the authenticated user's id.
func callerUID(r *http.Request) (uuid.UUID, error) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return uuid.Nil, errUnauthenticated()
	}
	uid, err := claims.UserID()
	if err != nil {
		return uuid.Nil, errUnauthenticated().SetDebug(err)
	}
	return uid, nil
}

func isOperator(r *http.Request) bool {
	return auth.ClaimsFromContext(r.Context()).HasRole(auth.RoleOperator)
}

func splitList(s string) []string {
	var res []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

func (httpserver *HttpServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpjson.HandleError(httplog.LogEntry(r.Context()), w, r, err)
}
