package judgesrvc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/broker"
	"github.com/programme-lv/ojcore/record"
)

type queueChannel struct {
	mu   sync.Mutex
	fail error
	sent []broker.Delivery
	done chan struct{}
	// judged runs synchronously after each publish, like a worker that
	// finishes before the publisher returns
	judged func(rid uuid.UUID)
}

func newQueueChannel() *queueChannel {
	return &queueChannel{done: make(chan struct{})}
}

func (c *queueChannel) Channel(ctx context.Context, key string) (broker.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	return c, nil
}

func (c *queueChannel) Publish(ctx context.Context, d broker.Delivery) error {
	c.mu.Lock()
	c.sent = append(c.sent, d)
	judged := c.judged
	c.mu.Unlock()

	if judged != nil {
		var t Task
		if err := json.Unmarshal(d.Body, &t); err != nil {
			return err
		}
		judged(t.RecordID)
	}
	return nil
}

func (c *queueChannel) Done() <-chan struct{} { return c.done }
func (c *queueChannel) Close() error        { return nil }

func (c *queueChannel) tasks() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := []uuid.UUID{}
	for _, d := range c.sent {
		var t Task
		if err := json.Unmarshal(d.Body, &t); err == nil {
			res = append(res, t.RecordID)
		}
	}
	return res
}

type changeLog struct {
	mu      sync.Mutex
	changes []record.Record
}

func (l *changeLog) PublishChange(rec record.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, rec)
}

func (l *changeLog) last() record.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changes[len(l.changes)-1]
}

var errBrokerDown = errors.New("broker down")
