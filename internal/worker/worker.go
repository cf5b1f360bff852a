package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/college-clubs/backend/pkg/queue"
)

// ObjectDeleter removes an object from external storage.
// *storage.S3 implements it.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// JobQueue is the queue surface the worker consumes. *queue.Queue implements it.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// CleanupProcessor deletes no-longer-referenced media objects from external
// storage. Deletion is best-effort from the request path's point of view: the
// owning record is already gone by the time a job lands here, and a job that
// keeps failing ends up in the DLQ, never back in a response.
type CleanupProcessor struct {
	store  ObjectDeleter
	queue  JobQueue
	logger *zap.Logger
}

// NewCleanupProcessor creates a media cleanup processor.
func NewCleanupProcessor(store ObjectDeleter, q JobQueue, logger *zap.Logger) *CleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupProcessor{store: store, queue: q, logger: logger}
}

// Process executes one media cleanup job.
func (p *CleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMediaCleanup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.MediaCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.Key == "" {
		return nil
	}
	if err := p.store.DeleteObject(ctx, payload.Key); err != nil {
		return fmt.Errorf("delete %s: %w", payload.Key, err)
	}
	p.logger.Info("media object deleted", zap.String("key", payload.Key))
	return nil
}

// Run dequeues and processes jobs until ctx is cancelled. Failed jobs are
// retried with backoff up to the queue's retry limit, then dead-lettered.
func (p *CleanupProcessor) Run(ctx context.Context) {
	p.logger.Info("media cleanup worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("media cleanup worker stopped")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			if !p.sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("cleanup job failed", zap.Error(err), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
			if !p.sleep(ctx, queue.RetryBackoff) {
				return
			}
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry enqueue failed", zap.Error(err), zap.String("job_id", job.ID))
			}
		}
	}
}

// sleep waits for d but wakes immediately on shutdown. Returns false when ctx
// was cancelled during the wait.
func (p *CleanupProcessor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		p.logger.Info("media cleanup worker stopped")
		return false
	case <-time.After(d):
		return true
	}
}
