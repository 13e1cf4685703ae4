package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestWithRecordIDAddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	rid := uuid.New()

	ctx := WithRecordID(WithLogger(context.Background(), base), rid)
	FromContext(ctx).Info("claimed")

	assert.Contains(t, buf.String(), "rid="+rid.String())
}

func TestWithContestIDStacks(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	tid, rid := uuid.New(), uuid.New()

	ctx := WithContestID(WithLogger(context.Background(), base), tid)
	ctx = WithRecordID(ctx, rid)
	FromContext(ctx).Info("folded")

	assert.Contains(t, buf.String(), "tid="+tid.String())
	assert.Contains(t, buf.String(), "rid="+rid.String())
}
