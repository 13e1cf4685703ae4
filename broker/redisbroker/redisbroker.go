// Package redisbroker carries broker deliveries over redis: work queues are
// streams (XADD), fan-out topics are pub/sub channels (PUBLISH).
package redisbroker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/programme-lv/ojcore/broker"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPingInterval = 5 * time.Second
	defaultStreamMaxLen = int64(200000)
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second

	bodyField = "body"
)

type client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type Dialer struct {
	opts         *redis.Options
	pingInterval time.Duration
	streamMaxLen int64
	log          *slog.Logger

	newClient func(*redis.Options) client
}

// NewDialer parses a redis:// or rediss:// url.
func NewDialer(url string, log *slog.Logger) (*Dialer, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DialTimeout = defaultDialTimeout
	opts.ReadTimeout = defaultReadTimeout
	opts.WriteTimeout = defaultWriteTimeout
	return &Dialer{
		opts:         opts,
		pingInterval: defaultPingInterval,
		streamMaxLen: defaultStreamMaxLen,
		log:          log.With(slog.String("module", "redisbroker")),
		newClient: func(o *redis.Options) client {
			return redis.NewClient(o)
		},
	}, nil
}

func (d *Dialer) Dial(ctx context.Context) (broker.Conn, error) {
	c := d.newClient(d.opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	conn := &Conn{
		client:       c,
		streamMaxLen: d.streamMaxLen,
		done:         make(chan struct{}),
		log:          d.log,
	}
	go conn.watch(d.pingInterval)
	return conn, nil
}

type Conn struct {
	client       client
	streamMaxLen int64
	log          *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// watch pings until the first failure, then marks the connection lost.
func (c *Conn) watch(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := c.client.Ping(ctx).Err()
			cancel()
			if err != nil {
				c.log.Warn("redis ping failed, dropping connection", slog.Any("error", err))
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Conn) Channel(ctx context.Context) (broker.Channel, error) {
	select {
	case <-c.done:
		return nil, fmt.Errorf("redis connection closed")
	default:
	}
	return &Channel{conn: c, done: make(chan struct{})}, nil
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.client.Close()
	})
	return err
}

// Channel is a logical handle over the shared client; it is done when
// either itself or its connection is closed.
type Channel struct {
	conn      *Conn
	done      chan struct{}
	closeOnce sync.Once
	watchOnce sync.Once
}

func (ch *Channel) Publish(ctx context.Context, d broker.Delivery) error {
	select {
	case <-ch.Done():
		return fmt.Errorf("redis channel closed")
	default:
	}
	if d.Fanout {
		if err := ch.conn.client.Publish(ctx, d.Route, d.Body).Err(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", d.Route, err)
		}
		return nil
	}
	err := ch.conn.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.Route,
		MaxLen: ch.conn.streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{bodyField: d.Body},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", d.Route, err)
	}
	return nil
}

func (ch *Channel) Done() <-chan struct{} {
	ch.watchOnce.Do(func() {
		go func() {
			select {
			case <-ch.conn.done:
				_ = ch.Close()
			case <-ch.done:
			}
		}()
	})
	return ch.done
}

func (ch *Channel) Close() error {
	ch.closeOnce.Do(func() { close(ch.done) })
	return nil
}
