package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type ctxKey struct{}

// FromContext returns the logger bound to ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func WithRecordID(ctx context.Context, rid uuid.UUID) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(slog.String("rid", rid.String())))
}

func WithContestID(ctx context.Context, tid uuid.UUID) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(slog.String("tid", tid.String())))
}

// New builds the process logger, JSON unless running locally.
func New(level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
