package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends welcome jobs to a durable queue.  A connection is dialed
// per publish; registrations are rare enough that pooling is not needed.
type Publisher struct {
	URL   string
	Queue string
	dial  func(url string) (amqpConn, error)
}

// NewPublisher returns a Publisher for the given broker and queue.
func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultWelcomeQueue
	}
	return &Publisher{URL: url, Queue: queue, dial: dialAMQP}
}

// amqpConn and amqpChannel narrow the client to what publishing uses.
type amqpConn interface {
	Channel() (amqpChannel, error)
	Close() error
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connAdapter struct{ *amqp.Connection }

func (c connAdapter) Channel() (amqpChannel, error) { return c.Connection.Channel() }

func dialAMQP(url string) (amqpConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return connAdapter{conn}, nil
}

// Enqueue publishes job as persistent JSON on the default exchange.
func (p *Publisher) Enqueue(ctx context.Context, job WelcomeEmailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal welcome job: %w", err)
	}

	conn, err := p.dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// durable so jobs survive broker restarts
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}
