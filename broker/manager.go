package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/programme-lv/ojcore/srvcerror"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultConnectAttempts = 10
	DefaultRetryDelay      = 5 * time.Second
)

const connectFlightKey = "conn"

type Option func(*Manager)

// WithRetry overrides the connect attempt bound and the fixed delay between
// attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(m *Manager) {
		if attempts > 0 {
			m.attempts = attempts
		}
		if delay >= 0 {
			m.delay = delay
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// Manager hands out one shared connection and a cache of keyed channels.
// Concurrent callers share in-flight connects and per-key opens.
type Manager struct {
	dialer   Dialer
	attempts int
	delay    time.Duration
	log      *slog.Logger

	// ctx bounds dialing and opening; cancelled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	sf singleflight.Group

	mu       sync.Mutex
	conn     Conn
	channels map[string]Channel
	closed   bool
}

func NewManager(dialer Dialer, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		dialer:   dialer,
		attempts: DefaultConnectAttempts,
		delay:    DefaultRetryDelay,
		log:      slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		channels: make(map[string]Channel),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(slog.String("module", "broker"))
	return m
}

// Connect returns the live connection, dialing one if there is none.
// Retries are exhausted with a broker_unavailable error.
func (m *Manager) Connect(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed()
	}
	if m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	ch := m.sf.DoChan(connectFlightKey, func() (interface{}, error) {
		return m.dial()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Conn), nil
	}
}

func (m *Manager) dial() (Conn, error) {
	m.mu.Lock()
	if m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	var conn Conn
	var lastErr error
	attempt := 0
	op := func() error {
		attempt++
		c, err := m.dialer.Dial(m.ctx)
		if err != nil {
			dialAttemptsTotal.WithLabelValues("error").Inc()
			lastErr = err
			return err
		}
		dialAttemptsTotal.WithLabelValues("ok").Inc()
		conn = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		m.log.Warn("broker dial failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", m.attempts),
			slog.Duration("retry_in", next),
			slog.Any("error", err))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.delay), uint64(m.attempts-1)),
		m.ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		m.log.Error("broker unavailable",
			slog.Int("attempts", attempt),
			slog.Any("error", lastErr))
		return nil, srvcerror.ErrBrokerUnavailable().SetDebug(
			fmt.Errorf("gave up after %d attempts: %w", attempt, lastErr))
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil, ErrManagerClosed()
	}
	m.conn = conn
	m.mu.Unlock()

	go m.watchConn(conn)
	m.log.Info("broker connected", slog.Int("attempts", attempt))
	return conn, nil
}

func (m *Manager) watchConn(conn Conn) {
	select {
	case <-m.ctx.Done():
		return
	case <-conn.Done():
	}
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		evictionsTotal.WithLabelValues("conn").Inc()
		m.log.Warn("broker connection closed, will reconnect on next use")
	}
	m.mu.Unlock()
}

// Channel returns a logical channel. An empty key opens a fresh, uncached
// channel owned by the caller. A keyed channel is shared and stays cached
// until the transport closes it.
func (m *Manager) Channel(ctx context.Context, key string) (Channel, error) {
	if key == "" {
		conn, err := m.Connect(ctx)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}
		channelOpensTotal.WithLabelValues("fresh").Inc()
		return ch, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed()
	}
	if ch, ok := m.channels[key]; ok {
		m.mu.Unlock()
		return ch, nil
	}
	m.mu.Unlock()

	res := m.sf.DoChan("channel:"+key, func() (interface{}, error) {
		return m.openKeyed(key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Channel), nil
	}
}

func (m *Manager) openKeyed(key string) (Channel, error) {
	m.mu.Lock()
	if ch, ok := m.channels[key]; ok {
		m.mu.Unlock()
		return ch, nil
	}
	m.mu.Unlock()

	conn, err := m.Connect(m.ctx)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel(m.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel %q: %w", key, err)
	}
	channelOpensTotal.WithLabelValues("keyed").Inc()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = ch.Close()
		return nil, ErrManagerClosed()
	}
	m.channels[key] = ch
	m.mu.Unlock()

	go m.watchChannel(key, ch)
	return ch, nil
}

func (m *Manager) watchChannel(key string, ch Channel) {
	select {
	case <-m.ctx.Done():
		return
	case <-ch.Done():
	}
	m.mu.Lock()
	if cur, ok := m.channels[key]; ok && cur == ch {
		delete(m.channels, key)
		evictionsTotal.WithLabelValues("channel").Inc()
		m.log.Info("broker channel closed, evicted", slog.String("key", key))
	}
	m.mu.Unlock()
}

// Shutdown closes cached channels and the connection. Later calls fail
// with broker_manager_closed.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancel()
	channels := m.channels
	m.channels = make(map[string]Channel)
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	var errs []error
	for key, ch := range channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %q: %w", key, err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
