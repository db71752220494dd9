package thumbnails

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/metrics"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/queue"
)

// ErrStreamClosed is returned by Run when the queue stops delivering while
// the worker is still meant to be running.
var ErrStreamClosed = errors.New("delivery stream closed")

type jobProcessor interface {
	Process(ctx context.Context, job models.ThumbnailJob) Result
}

// Worker drains a queue with a fixed number of goroutines.
type Worker struct {
	consumer    queue.Consumer
	processor   jobProcessor
	concurrency int
	// requeue is the nack policy for failed jobs.
	requeue bool
	metrics metrics.Recorder
	logger  logging.Logger
}

// NewWorker returns a Worker; concurrency below one is raised to one.
func NewWorker(
	consumer queue.Consumer,
	processor jobProcessor,
	concurrency int,
	requeue bool,
	rec metrics.Recorder,
	logger logging.Logger,
) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Worker{
		consumer:    consumer,
		processor:   processor,
		concurrency: concurrency,
		requeue:     requeue,
		metrics:     rec,
		logger:      logger.With("module", "thumbnails"),
	}
}

// Run consumes until ctx is cancelled or the delivery stream ends. A job
// already started is finished on a detached context before Run returns.
// Cancellation yields nil; losing the stream yields ErrStreamClosed.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		return err
	}

	w.logger.Info(ctx, "worker started", "concurrency", w.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				w.handle(context.WithoutCancel(ctx), d)
			}
		}()
	}
	wg.Wait()

	if ctx.Err() == nil {
		w.logger.Error(ctx, "worker lost its delivery stream")
		return ErrStreamClosed
	}

	w.logger.Info(ctx, "worker stopped")
	return nil
}

func (w *Worker) handle(ctx context.Context, d queue.Delivery) {
	start := time.Now()
	res := w.processor.Process(ctx, d.Job)
	w.metrics.JobFinished(string(res.State), time.Since(start))

	if res.Err == nil {
		w.logger.Info(ctx, "thumbnails persisted",
			"file_id", d.Job.FileID, "written", len(res.Written), "duration", time.Since(start))
		if err := d.Ack(); err != nil {
			w.logger.Error(ctx, "ack failed", "file_id", d.Job.FileID, "error", err)
		}
		return
	}

	w.logger.Error(ctx, "thumbnail job failed",
		"file_id", d.Job.FileID, "user_id", d.Job.UserID, "written", len(res.Written),
		"requeue", w.requeue, "error", res.Err)
	if err := d.Nack(w.requeue); err != nil {
		w.logger.Error(ctx, "nack failed", "file_id", d.Job.FileID, "error", err)
	}
}
