// Package broker owns the process-wide broker connection and the named
// logical channels opened on top of it.
package broker

import "context"

// Dialer establishes a transport connection. Implementations live in
// redisbroker and sqsbroker.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type Conn interface {
	Channel(ctx context.Context) (Channel, error)
	// Done is closed once the transport reports the connection lost.
	Done() <-chan struct{}
	Close() error
}

type Channel interface {
	Publish(ctx context.Context, d Delivery) error
	Done() <-chan struct{}
	Close() error
}

// Delivery is one outgoing message. Route names the work queue, or the
// topic when Fanout is set.
type Delivery struct {
	Route  string
	Body   []byte
	Fanout bool
}
