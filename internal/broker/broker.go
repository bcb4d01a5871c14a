// Package broker provides the at-least-once message delivery port between
// the control plane and the worker: topic exchanges, a dead-letter exchange,
// a TTL-based delayed retry queue, and per-message acknowledgement.
package broker

import "context"

// Delivery wraps one in-flight message. Ack and Retry are mutually
// exclusive terminal actions — calling either ends the delivery's
// lifecycle.
type Delivery struct {
	Body  []byte
	Count int

	ack   func() error
	retry func(ctx context.Context) error
}

// Ack positively acknowledges the delivery, removing it from the main
// queue permanently.
func (d *Delivery) Ack() error {
	return d.ack()
}

// Retry republishes the delivery to the retry queue with Count
// incremented, then acks the original so it is not double-delivered. The
// retry queue's TTL governs how long before the message reappears on the
// main queue.
func (d *Delivery) Retry(ctx context.Context) error {
	return d.retry(ctx)
}

// Config names the exchanges, queues, and retry TTL that SetupInfrastructure
// declares.
type Config struct {
	Exchange             string
	QueueName            string
	QueueRetry           string
	QueueDLQ             string
	QueueTTLMilliseconds int
}

// MaxRetries is the number of main-queue deliveries allowed before a message
// is routed to the terminal DLQ handler instead of the main handler.
const MaxRetries = 5

// Broker is the message delivery port the control plane and worker depend
// on. SetupInfrastructure is idempotent and safe to call from multiple
// processes at startup.
type Broker interface {
	SetupInfrastructure(ctx context.Context) error

	// Publish sends body to the application exchange on routingKey, with
	// the given retry count in the "count" header.
	Publish(ctx context.Context, routingKey string, body []byte, count int) error

	// ConsumeSync pulls up to n messages from the main queue without
	// blocking, stopping early if the queue empties before n is reached.
	ConsumeSync(ctx context.Context, n int) ([]*Delivery, error)

	// ConsumeBlocking runs until ctx is cancelled. Each delivery with
	// Count >= MaxRetries is routed to onDLQTerminal; all others go to
	// onMessage. A handler returning an error causes the delivery to be
	// nacked without requeue, which routes it to the dead-letter exchange.
	ConsumeBlocking(ctx context.Context, onMessage, onDLQTerminal func(*Delivery) error) error

	Close() error
}
