// Package worker runs the background side of the platform: mail delivery,
// audit sink writes and magic link housekeeping.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/audit"
	"github.com/craftlane/backend/internal/email"
	"github.com/craftlane/backend/internal/magiclink"
	"github.com/craftlane/backend/pkg/queue"
)

// SweepInterval is how often expired magic links are cleaned up.
const SweepInterval = 10 * time.Minute

// dequeueTimeout bounds each blocking pop so shutdown is responsive.
const dequeueTimeout = 5 * time.Second

// Worker consumes email and audit jobs and runs periodic housekeeping.
type Worker struct {
	jobs   *queue.Queue
	mailer *email.Sender
	sink   *audit.Repository
	links  *magiclink.Issuer
	logger *zap.Logger
}

// New creates a worker.
func New(jobs *queue.Queue, mailer *email.Sender, sink *audit.Repository, links *magiclink.Issuer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{jobs: jobs, mailer: mailer, sink: sink, links: links, logger: logger}
}

// Run blocks until ctx is cancelled, consuming both queues and sweeping
// expired magic links on a ticker.
func (w *Worker) Run(ctx context.Context) {
	go w.consume(ctx, queue.QueueEmails)
	go w.consume(ctx, queue.QueueAudit)

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		case <-ticker.C:
			if _, err := w.links.Sweep(ctx); err != nil {
				w.logger.Error("magic link sweep failed", zap.Error(err))
			}
		}
	}
}

// consume runs the dequeue-process-retry loop for one list.
func (w *Worker) consume(ctx context.Context, list string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobs.Dequeue(ctx, list, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("dequeue error", zap.String("list", list), zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job",
			zap.String("job_id", job.ID.String()),
			zap.String("type", string(job.Type)),
		)
		if err := w.process(ctx, job); err != nil {
			w.logger.Error("job failed",
				zap.String("job_id", job.ID.String()),
				zap.String("type", string(job.Type)),
				zap.Error(err),
			)
			if reErr := w.jobs.Retry(ctx, list, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}

// process executes one job.
func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal email payload: %w", err)
		}
		return w.mailer.Send(payload.To, payload.Subject, payload.BodyHTML)
	case queue.JobTypeAudit:
		var payload queue.AuditPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal audit payload: %w", err)
		}
		return w.sink.Insert(ctx, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
