package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/programme-lv/ojcore/app"
	"github.com/programme-lv/ojcore/conf"
	"github.com/programme-lv/ojcore/judgehttp"
	"github.com/programme-lv/ojcore/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := conf.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.SlogLevel(), cfg.LogJson)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg conf.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := judgehttp.NewHttpServer(a.Judge, a.Standings, a.Batch, a.Records, judgehttp.Options{
		JwtKey:         []byte(cfg.JwtKey),
		AllowedOrigins: cfg.CorsOrigins,
		LogLevel:       cfg.SlogLevel(),
		LogJson:        cfg.LogJson,
		Env:            cfg.Env,
		Metrics:        promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.HttpAddr)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		err,
		srv.Shutdown(shutdownCtx),
		a.Close(shutdownCtx),
	)
}
