package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

var ErrClosed = errors.New("queue closed")

// MemoryQueue is an in-process queue for single-binary deployments and
// tests. Jobs do not survive a restart.
type MemoryQueue struct {
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	return &MemoryQueue{
		ch:   make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, job models.ThumbnailJob) error {
	body, err := encode(job)
	if err != nil {
		return err
	}
	return q.publishRaw(ctx, body)
}

func (q *MemoryQueue) publishRaw(ctx context.Context, body []byte) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- body:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	select {
	case <-q.done:
		return nil, ErrClosed
	default:
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			var body []byte
			select {
			case body = <-q.ch:
			case <-ctx.Done():
				return
			case <-q.done:
				return
			}

			d := Delivery{
				Job: decode(body),
				ack: func() error { return nil },
				nack: func(requeue bool) error {
					if !requeue {
						return nil
					}
					go func() { _ = q.publishRaw(context.Background(), body) }()
					return nil
				},
			}

			select {
			case out <- d:
			case <-ctx.Done():
				return
			case <-q.done:
				return
			}
		}
	}()
	return out, nil
}

// Len is the number of jobs waiting for a consumer.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
