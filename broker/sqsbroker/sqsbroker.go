// Package sqsbroker sends work-queue deliveries to AWS SQS. Bodies are
// zstd-compressed and base64-encoded, the format the tester queue reads.
package sqsbroker

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/ojcore/broker"
)

type sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// Dialer maps delivery routes to queue urls.
type Dialer struct {
	client sender
	queues map[string]string
}

func NewDialer(client *sqs.Client, queues map[string]string) *Dialer {
	return &Dialer{client: client, queues: queues}
}

// Dial checks every configured queue is reachable.
func (d *Dialer) Dial(ctx context.Context) (broker.Conn, error) {
	for route, url := range d.queues {
		_, err := d.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
			QueueUrl: aws.String(url),
		})
		if err != nil {
			return nil, fmt.Errorf("queue %s (%s) unreachable: %w", route, url, err)
		}
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Conn{
		client:  d.client,
		queues:  d.queues,
		encoder: enc,
		done:    make(chan struct{}),
	}, nil
}

type Conn struct {
	client  sender
	queues  map[string]string
	encoder *zstd.Encoder

	done      chan struct{}
	closeOnce sync.Once
}

func (c *Conn) Channel(ctx context.Context) (broker.Channel, error) {
	return &Channel{conn: c, done: make(chan struct{})}, nil
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.encoder.Close()
	})
	return nil
}

type Channel struct {
	conn      *Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (ch *Channel) Publish(ctx context.Context, d broker.Delivery) error {
	if d.Fanout {
		return fmt.Errorf("sqs transport has no fan-out topics (route %s)", d.Route)
	}
	url, ok := ch.conn.queues[d.Route]
	if !ok {
		return fmt.Errorf("no sqs queue configured for route %s", d.Route)
	}
	_, err := ch.conn.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(ch.conn.encode(d.Body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", d.Route, err)
	}
	return nil
}

func (ch *Channel) Done() <-chan struct{} {
	return ch.done
}

func (ch *Channel) Close() error {
	ch.closeOnce.Do(func() { close(ch.done) })
	return nil
}

func (c *Conn) encode(body []byte) string {
	compressed := c.encoder.EncodeAll(body, make([]byte, 0, len(body)))
	return base64.StdEncoding.EncodeToString(compressed)
}

// Decode reverses the message body encoding.
func Decode(body string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return raw, nil
}
