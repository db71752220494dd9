// Package queue carries thumbnail jobs from the file service to the worker.
//
// Delivery is at least once: a job stays on the queue until its consumer
// acks it, and a nacked job is either requeued or dropped.
package queue

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

// Publisher enqueues thumbnail jobs.
type Publisher interface {
	Publish(ctx context.Context, job models.ThumbnailJob) error
}

// Consumer streams deliveries until ctx ends or the queue closes.
type Consumer interface {
	// Consume streams deliveries until ctx is done or the queue closes.
	Consume(ctx context.Context) (<-chan Delivery, error)
}

// Queue is a job queue usable from both sides.
type Queue interface {
	Publisher
	Consumer
	Close() error
}

// Delivery is one received job awaiting its settlement.
type Delivery struct {
	Job  models.ThumbnailJob
	ack  func() error
	nack func(requeue bool) error
}

// Ack removes the job from the queue.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack rejects the job, putting it back when requeue is set.
func (d Delivery) Nack(requeue bool) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}

func encode(job models.ThumbnailJob) ([]byte, error) {
	return json.Marshal(job)
}

// decode never fails: an unreadable body yields a job with empty fields,
// which the processor rejects like any other incomplete job.
func decode(body []byte) models.ThumbnailJob {
	var job models.ThumbnailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return models.ThumbnailJob{}
	}
	return job
}
