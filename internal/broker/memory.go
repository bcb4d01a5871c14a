package broker

import (
	"context"
	"sync"
)

type memoryMessage struct {
	body  []byte
	count int
}

// MemoryBroker is an in-memory Broker used by tests: a main queue, a retry
// "queue" applied immediately (no TTL simulation — tests that need to
// observe retry counts call ConsumeSync/ConsumeBlocking repeatedly), and a
// terminal DLQ slice for inspection.
type MemoryBroker struct {
	mu   sync.Mutex
	main []memoryMessage
	dlq  []memoryMessage
}

// NewMemoryBroker returns an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{}
}

func (b *MemoryBroker) SetupInfrastructure(_ context.Context) error {
	return nil
}

func (b *MemoryBroker) Publish(_ context.Context, _ string, body []byte, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.main = append(b.main, memoryMessage{body: body, count: count})
	return nil
}

func (b *MemoryBroker) ConsumeSync(_ context.Context, n int) ([]*Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	take := n
	if take > len(b.main) {
		take = len(b.main)
	}
	out := make([]*Delivery, 0, take)
	for i := 0; i < take; i++ {
		out = append(out, b.wrapLocked(b.main[i]))
	}
	b.main = b.main[take:]
	return out, nil
}

// ConsumeBlocking dispatches queued messages to onMessage or onDLQTerminal
// per their count until the main queue is empty, then returns. A message a
// handler re-queues with Retry during the call is dispatched again in the
// same call; there is no background loop.
func (b *MemoryBroker) ConsumeBlocking(ctx context.Context, onMessage, onDLQTerminal func(*Delivery) error) error {
	for {
		b.mu.Lock()
		if len(b.main) == 0 {
			b.mu.Unlock()
			return nil
		}
		msg := b.main[0]
		b.main = b.main[1:]
		d := b.wrapLocked(msg)
		b.mu.Unlock()

		var err error
		if msg.count >= MaxRetries {
			err = onDLQTerminal(d)
		} else {
			err = onMessage(d)
		}
		if err != nil {
			b.mu.Lock()
			b.dlq = append(b.dlq, msg)
			b.mu.Unlock()
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (b *MemoryBroker) Close() error {
	return nil
}

func (b *MemoryBroker) wrapLocked(msg memoryMessage) *Delivery {
	return &Delivery{
		Body:  msg.body,
		Count: msg.count,
		ack: func() error {
			return nil
		},
		retry: func(ctx context.Context) error {
			b.mu.Lock()
			b.main = append(b.main, memoryMessage{body: msg.body, count: msg.count + 1})
			b.mu.Unlock()
			return nil
		},
	}
}

// DLQSize returns the number of messages whose handler (onMessage or
// onDLQTerminal) returned an error, the in-memory stand-in for a nack to the
// dead-letter exchange, for test assertions.
func (b *MemoryBroker) DLQSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dlq)
}

// MainQueueSize returns the current main-queue depth, for test assertions.
func (b *MemoryBroker) MainQueueSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.main)
}
