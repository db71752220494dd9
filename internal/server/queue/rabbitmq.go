package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ is a durable queue on a RabbitMQ broker. Messages are
// persistent JSON and consumers ack manually.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	name string
	// amqp channels must not be used for concurrent publishes.
	mu sync.Mutex
}

// NewRabbitMQ connects to url and declares the durable queue name.
// prefetch bounds the unacked deliveries held by this connection.
func NewRabbitMQ(url, name string, prefetch int) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", name, err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}

	return &RabbitMQ{conn: conn, ch: ch, name: name}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, job models.ThumbnailJob) error {
	body, err := encode(job)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ch.PublishWithContext(ctx,
		"",     // exchange
		r.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (r *RabbitMQ) Consume(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := r.ch.ConsumeWithContext(ctx,
		r.name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %q: %w", r.name, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- fromAMQP(m):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func fromAMQP(m amqp.Delivery) Delivery {
	return Delivery{
		Job:  decode(m.Body),
		ack:  func() error { return m.Ack(false) },
		nack: func(requeue bool) error { return m.Nack(false, requeue) },
	}
}

// Alive reports whether the broker connection is open.
func (r *RabbitMQ) Alive() bool {
	return !r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
