// Package fanout announces record changes on the broadcast topic, collapsing
// bursts of updates to one record into a single trailing-edge message.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/broker"
	"github.com/programme-lv/ojcore/record"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	DefaultWindow = 500 * time.Millisecond
	DefaultTopic  = "record_change"

	// ChannelKey is the broker channel shared by every broadcast publisher.
	ChannelKey = "bus"

	publishTimeout = 5 * time.Second
)

type ChannelSource interface {
	Channel(ctx context.Context, key string) (broker.Channel, error)
}

// ChangeEvent is the broadcast body.
type ChangeEvent struct {
	RecordID uuid.UUID     `json:"rid"`
	Record   record.Record `json:"rdoc"`
}

type Publisher struct {
	src    ChannelSource
	topic  string
	window time.Duration
	log    *slog.Logger

	pending *xsync.MapOf[uuid.UUID, record.Record]
	timers  sync.WaitGroup
	closed  atomic.Bool
}

func NewPublisher(src ChannelSource, topic string, window time.Duration, log *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Publisher{
		src:     src,
		topic:   topic,
		window:  window,
		log:     log.With(slog.String("module", "fanout")),
		pending: xsync.NewMapOf[uuid.UUID, record.Record](),
	}
}

// PublishChange schedules an announcement of rec. It never blocks on the
// broker; the latest snapshot within the window is what gets delivered.
func (p *Publisher) PublishChange(rec record.Record) {
	if p.closed.Load() {
		return
	}
	snapshot := rec.Public()
	armed := false
	p.pending.Compute(rec.ID, func(_ record.Record, loaded bool) (record.Record, bool) {
		armed = !loaded
		return snapshot, false
	})
	if !armed {
		coalescedTotal.Inc()
		return
	}
	p.timers.Add(1)
	time.AfterFunc(p.window, func() {
		defer p.timers.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		p.deliver(ctx, rec.ID)
	})
}

func (p *Publisher) deliver(ctx context.Context, id uuid.UUID) {
	rec, ok := p.pending.LoadAndDelete(id)
	if !ok {
		return
	}
	if err := p.send(ctx, rec); err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		p.log.Warn("failed to publish record change",
			slog.String("rid", id.String()),
			slog.Any("error", err))
		return
	}
	publishedTotal.WithLabelValues("ok").Inc()
}

func (p *Publisher) send(ctx context.Context, rec record.Record) error {
	body, err := json.Marshal(ChangeEvent{RecordID: rec.ID, Record: rec})
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	ch, err := p.src.Channel(ctx, ChannelKey)
	if err != nil {
		return err
	}
	return ch.Publish(ctx, broker.Delivery{
		Route:  p.topic,
		Body:   body,
		Fanout: true,
	})
}

// Flush delivers every pending snapshot now.
func (p *Publisher) Flush(ctx context.Context) {
	p.pending.Range(func(id uuid.UUID, _ record.Record) bool {
		p.deliver(ctx, id)
		return true
	})
}

// Close stops accepting changes, flushes what is pending and waits for
// armed timers to drain or ctx to end.
func (p *Publisher) Close(ctx context.Context) error {
	p.closed.Store(true)
	p.Flush(ctx)

	done := make(chan struct{})
	go func() {
		p.timers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
