package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/programme-lv/ojcore/broker"
	"github.com/programme-lv/ojcore/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureChannel struct {
	mu   sync.Mutex
	sent []broker.Delivery
	err  error
}

func (c *captureChannel) Publish(ctx context.Context, d broker.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, d)
	return nil
}

func (c *captureChannel) Done() <-chan struct{} { return nil }
func (c *captureChannel) Close() error          { return nil }

func (c *captureChannel) deliveries() []broker.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]broker.Delivery(nil), c.sent...)
}

type staticSource struct {
	ch *captureChannel

	mu   sync.Mutex
	keys []string
}

func (s *staticSource) Channel(ctx context.Context, key string) (broker.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return s.ch, nil
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, d broker.Delivery) ChangeEvent {
	t.Helper()
	var ev ChangeEvent
	require.NoError(t, json.Unmarshal(d.Body, &ev))
	return ev
}

func TestBurstCollapsesToLatestSnapshot(t *testing.T) {
	ch := &captureChannel{}
	p := NewPublisher(&staticSource{ch: ch}, "", 30*time.Millisecond, quietLog())

	rec := record.Record{ID: record.NewID(), Code: "secret", Status: record.StatusJudging}
	for i := 0; i < 20; i++ {
		rec.Score = i
		p.PublishChange(rec)
	}

	require.Eventually(t, func() bool { return len(ch.deliveries()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	sent := ch.deliveries()
	require.Len(t, sent, 1)

	assert.Equal(t, DefaultTopic, sent[0].Route)
	assert.True(t, sent[0].Fanout)
	ev := decode(t, sent[0])
	assert.Equal(t, rec.ID, ev.RecordID)
	assert.Equal(t, 19, ev.Record.Score)
	assert.Empty(t, ev.Record.Code)
}

func TestDistinctRecordsPublishSeparately(t *testing.T) {
	ch := &captureChannel{}
	src := &staticSource{ch: ch}
	p := NewPublisher(src, "changes", 10*time.Millisecond, quietLog())

	p.PublishChange(record.Record{ID: record.NewID()})
	p.PublishChange(record.Record{ID: record.NewID()})

	require.Eventually(t, func() bool { return len(ch.deliveries()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "changes", ch.deliveries()[0].Route)
	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, ChannelKey, src.keys[0])
}

func TestChangeAfterWindowPublishesAgain(t *testing.T) {
	ch := &captureChannel{}
	p := NewPublisher(&staticSource{ch: ch}, "", 10*time.Millisecond, quietLog())
	rec := record.Record{ID: record.NewID()}

	p.PublishChange(rec)
	require.Eventually(t, func() bool { return len(ch.deliveries()) == 1 }, time.Second, 5*time.Millisecond)
	p.PublishChange(rec)
	require.Eventually(t, func() bool { return len(ch.deliveries()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestCloseFlushesPending(t *testing.T) {
	ch := &captureChannel{}
	p := NewPublisher(&staticSource{ch: ch}, "", time.Hour, quietLog())
	p.PublishChange(record.Record{ID: record.NewID()})

	p.Flush(context.Background())
	assert.Len(t, ch.deliveries(), 1)

	p.PublishChange(record.Record{ID: record.NewID()})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// the hour-long timer is still armed, so waiting for it times out
	_ = p.Close(ctx)
	assert.Len(t, ch.deliveries(), 2)

	p.PublishChange(record.Record{ID: record.NewID()})
	p.Flush(context.Background())
	assert.Len(t, ch.deliveries(), 2)
}

func TestPublishErrorsAreSwallowed(t *testing.T) {
	ch := &captureChannel{err: errors.New("broker gone")}
	p := NewPublisher(&staticSource{ch: ch}, "", time.Millisecond, quietLog())
	p.PublishChange(record.Record{ID: record.NewID()})
	require.NoError(t, p.Close(context.Background()))
	assert.Empty(t, ch.deliveries())
}
