// Package judgehttp exposes the judge claim protocol to workers and the
// submission and standings API to the presentation layer.
package judgehttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/klauspost/compress/gzhttp"
	"github.com/programme-lv/ojcore/auth"
	"github.com/programme-lv/ojcore/batchsrvc"
	"github.com/programme-lv/ojcore/judgesrvc"
	ojlog "github.com/programme-lv/ojcore/logger"
	"github.com/programme-lv/ojcore/record"
	"github.com/programme-lv/ojcore/standings"
)

type HttpServer struct {
	judge     *judgesrvc.JudgeSrvc
	standings *standings.Service
	batch     *batchsrvc.BatchSrvc
	records   record.Store
	router    *chi.Mux
	server    *http.Server
	logger    *slog.Logger
}

type Options struct {
	JwtKey         []byte
	AllowedOrigins []string
	LogLevel       slog.Level
	LogJson        bool
	Env            string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewHttpServer(
	judge *judgesrvc.JudgeSrvc,
	st *standings.Service,
	batch *batchsrvc.BatchSrvc,
	records record.Store,
	opts Options,
) *HttpServer {
	router := chi.NewRouter()

	logger := httplog.NewLogger("ojcore", httplog.Options{
		LogLevel:         opts.LogLevel,
		JSON:             opts.LogJson,
		Concise:          true,
		RequestHeaders:   false,
		MessageFieldName: "message",
		Tags: map[string]string{
			"env": opts.Env,
		},
		QuietDownRoutes: []string{"/healthz", "/metrics"},
		QuietDownPeriod: 10 * time.Second,
	})

	router.Use(middleware.RequestID)
	router.Use(httplog.RequestLogger(logger))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ojlog.WithLogger(r.Context(), httplog.LogEntry(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(func(next http.Handler) http.Handler {
		return gzhttp.GzipHandler(next)
	})

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Link", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           3000,
		}))
	}

	router.Use(auth.GetJwtAuthMiddleware(opts.JwtKey))

	server := &HttpServer{
		judge:     judge,
		standings: st,
		batch:     batch,
		records:   records,
		router:    router,
		logger:    logger.Logger,
	}

	server.routes(opts.Metrics)

	return server
}

func (httpserver *HttpServer) Handler() http.Handler {
	return httpserver.router
}

// Start serves until Shutdown is called.
func (httpserver *HttpServer) Start(address string) error {
	httpserver.logger.Info("http server listening", slog.String("addr", address))
	httpserver.server = &http.Server{
		Addr:              address,
		Handler:           httpserver.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := httpserver.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (httpserver *HttpServer) Shutdown(ctx context.Context) error {
	if httpserver.server == nil {
		return nil
	}
	return httpserver.server.Shutdown(ctx)
}

func (httpserver *HttpServer) routes(metrics http.Handler) {
	r := httpserver.router

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Get("/records", httpserver.listRecords)
	r.Post("/records", httpserver.submitRecord)
	r.Get("/records/{rid}", httpserver.getRecord)

	r.Route("/judge/records/{rid}", func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleJudge))
		r.Post("/begin", httpserver.beginJudge)
		r.Post("/progress", httpserver.reportProgress)
		r.Post("/end", httpserver.endJudge)
	})

	r.Route("/contests/{tid}", func(r chi.Router) {
		r.Post("/attend", httpserver.attendContest)
		r.Get("/standings", httpserver.listStandings)
		r.Get("/standings/{uid}", httpserver.getStanding)
		r.Get("/scoreboard", httpserver.getScoreboard)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleOperator))
			r.Post("/system-test", httpserver.systemTestContest)
			r.Post("/recalc", httpserver.recalcStandings)
			r.Get("/plagiarism", httpserver.gatherLatest)
			r.Put("/plagiarism", httpserver.savePlagiarismResult)
			r.Get("/export", httpserver.exportCode)
		})
	})
	r.Get("/users/{uid}/standings", httpserver.getDictStandings)

	r.With(auth.RequireRole(auth.RoleOperator)).
		Post("/records/{rid}/rejudge", httpserver.rejudgeRecord)
}
