package broker

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dataplatform/validation-pipeline/internal/metrics"
	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
)

// AMQPBroker is the production Broker backed by RabbitMQ (or any AMQP
// 0-9-1 server).
type AMQPBroker struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel

	dlxExchange string
	stats       *metrics.Metrics
}

// SetMetrics attaches m to the broker, so retry and dead-letter routing get
// recorded. Optional: an unset broker simply skips recording.
func (b *AMQPBroker) SetMetrics(m *metrics.Metrics) {
	b.stats = m
}

// DialAMQP connects to url and returns a Broker bound to cfg's topology.
// Call SetupInfrastructure before publishing or consuming.
func DialAMQP(url string, cfg Config) (*AMQPBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}
	return &AMQPBroker{
		cfg:         cfg,
		conn:        conn,
		ch:          ch,
		dlxExchange: cfg.Exchange + ".dlx",
	}, nil
}

// SetupInfrastructure declares the application exchange, the dead-letter
// exchange, and the three queues (main, retry, dlq) with their bindings.
// The retry queue is bound to the dead-letter exchange under its own name
// and dead-letters back to the main exchange with the main queue's routing
// key after its TTL elapses, producing the delayed re-delivery.
func (b *AMQPBroker) SetupInfrastructure(_ context.Context) error {
	if err := b.ch.ExchangeDeclare(b.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}
	if err := b.ch.ExchangeDeclare(b.dlxExchange, "topic", true, false, false, false, nil); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}

	_, err := b.ch.QueueDeclare(b.cfg.QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    b.dlxExchange,
		"x-dead-letter-routing-key": b.cfg.QueueDLQ,
	})
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}

	_, err = b.ch.QueueDeclare(b.cfg.QueueRetry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    b.cfg.Exchange,
		"x-dead-letter-routing-key": b.cfg.QueueName,
		"x-message-ttl":             int32(b.cfg.QueueTTLMilliseconds),
	})
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}

	if _, err := b.ch.QueueDeclare(b.cfg.QueueDLQ, true, false, false, false, nil); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}

	if err := b.ch.QueueBind(b.cfg.QueueName, "app.*", b.cfg.Exchange, false, nil); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}
	if err := b.ch.QueueBind(b.cfg.QueueRetry, b.cfg.QueueRetry, b.dlxExchange, false, nil); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}
	if err := b.ch.QueueBind(b.cfg.QueueDLQ, b.cfg.QueueDLQ, b.dlxExchange, false, nil); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}
	return nil
}

func (b *AMQPBroker) publish(exchange, routingKey string, body []byte, count int) error {
	err := b.ch.PublishWithContext(context.Background(), exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"count": int32(count)},
		Body:         body,
	})
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerSendError, err)
	}
	return nil
}

func (b *AMQPBroker) Publish(_ context.Context, routingKey string, body []byte, count int) error {
	return b.publish(b.cfg.Exchange, routingKey, body, count)
}

func (b *AMQPBroker) ConsumeSync(_ context.Context, n int) ([]*Delivery, error) {
	deliveries := make([]*Delivery, 0, n)
	for i := 0; i < n; i++ {
		msg, ok, err := b.ch.Get(b.cfg.QueueName, false)
		if err != nil {
			return nil, pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
		}
		if !ok {
			break
		}
		deliveries = append(deliveries, b.wrap(msg))
	}
	return deliveries, nil
}

func (b *AMQPBroker) ConsumeBlocking(ctx context.Context, onMessage, onDLQTerminal func(*Delivery) error) error {
	msgs, err := b.ch.Consume(b.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			d := b.wrap(raw)

			var handlerErr error
			if d.Count >= MaxRetries {
				if b.stats != nil {
					b.stats.RecordBrokerDLQ()
				}
				handlerErr = onDLQTerminal(d)
			} else {
				handlerErr = onMessage(d)
			}
			if handlerErr != nil {
				if nackErr := raw.Nack(false, false); nackErr != nil {
					return pipelineerr.Wrap(pipelineerr.KindBrokerConnectionRefused, nackErr)
				}
			}
		}
	}
}

func (b *AMQPBroker) Close() error {
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *AMQPBroker) wrap(msg amqp.Delivery) *Delivery {
	count := headerCount(msg.Headers)
	return &Delivery{
		Body:  msg.Body,
		Count: count,
		ack: func() error {
			return msg.Ack(false)
		},
		retry: func(ctx context.Context) error {
			// The retry queue is bound to the dead-letter exchange under its
			// own name, not to the application exchange, so the retry
			// publish must target X.dlx with the retry queue's name as
			// routing key to actually land there.
			if err := b.publish(b.dlxExchange, b.cfg.QueueRetry, msg.Body, count+1); err != nil {
				return err
			}
			if b.stats != nil {
				b.stats.RecordBrokerRetry(b.cfg.QueueRetry)
			}
			return msg.Ack(false)
		},
	}
}

func headerCount(headers amqp.Table) int {
	raw, ok := headers["count"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

