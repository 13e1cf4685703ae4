package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type fakeChannel struct {
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	published []Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{done: make(chan struct{})}
}

func (c *fakeChannel) Publish(ctx context.Context, d Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, d)
	return nil
}

func (c *fakeChannel) Done() <-chan struct{} { return c.done }

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

type fakeConn struct {
	done      chan struct{}
	closeOnce sync.Once
	opened    atomic.Int32
	openDelay time.Duration

	mu       sync.Mutex
	channels []*fakeChannel
}

func (c *fakeConn) Channel(ctx context.Context) (Channel, error) {
	if c.openDelay > 0 {
		time.Sleep(c.openDelay)
	}
	c.opened.Add(1)
	ch := newFakeChannel()
	c.mu.Lock()
	c.channels = append(c.channels, ch)
	c.mu.Unlock()
	return ch, nil
}

func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// fakeDialer fails the first failures dials, then succeeds.
type fakeDialer struct {
	failures  int32
	dialDelay time.Duration
	openDelay time.Duration

	dials atomic.Int32

	mu    sync.Mutex
	conns []*fakeConn
}

var errRefused = errors.New("dial tcp: connection refused")

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	n := d.dials.Add(1)
	if d.dialDelay > 0 {
		time.Sleep(d.dialDelay)
	}
	if n <= d.failures {
		return nil, errRefused
	}
	c := &fakeConn{done: make(chan struct{}), openDelay: d.openDelay}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}
