package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list key for outbound email jobs.
	QueueEmails = "worker:emails"
	// QueueAudit is the Redis list key for audit sink writes.
	QueueAudit = "worker:audit"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail JobType = "email"
	JobTypeAudit JobType = "audit"
)

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
}

// AuditPayload is the payload for audit sink jobs.
type AuditPayload struct {
	TenantID   uuid.UUID         `json:"tenant_id"`
	UserID     *uuid.UUID        `json:"user_id,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Job is the envelope stored on the Redis list.
type Job struct {
	ID       uuid.UUID       `json:"id"`
	Type     JobType         `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Enqueued time.Time       `json:"enqueued"`
}

// Queue is a Redis list-backed job queue.
type Queue struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewQueue creates a queue over the shared Redis client.
func NewQueue(rdb *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{rdb: rdb, logger: logger}
}

// Enqueue pushes a job onto the named list.
func (q *Queue) Enqueue(ctx context.Context, list string, jobType JobType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:       uuid.New(),
		Type:     jobType,
		Payload:  raw,
		Enqueued: time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.LPush(ctx, list, data).Err()
}

// Dequeue blocks up to timeout waiting for a job on the named list. Returns
// (nil, nil) on timeout.
func (q *Queue) Dequeue(ctx context.Context, list string, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, list).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// Retry re-enqueues a failed job or moves it to the DLQ after MaxRetries.
func (q *Queue) Retry(ctx context.Context, list string, job *Job) error {
	job.Attempts++
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if job.Attempts >= MaxRetries {
		q.logger.Warn("job moved to DLQ",
			zap.String("job_id", job.ID.String()), zap.String("type", string(job.Type)))
		return q.rdb.LPush(ctx, QueueDLQ, data).Err()
	}
	return q.rdb.LPush(ctx, list, data).Err()
}
