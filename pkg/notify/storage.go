package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
)

// QueueRepository defines the storage operations used by the Queue API.
type QueueRepository interface {
	// CreateJob persists a new job in pending status.
	CreateJob(ctx context.Context, job *Job) error

	// CancelJob transitions a job to cancelled only while it is still
	// pending. It returns ErrJobNotCancellable if the job is already in
	// flight or terminal, ErrJobNotFound if the id is unknown.
	CancelJob(ctx context.Context, jobID uuid.UUID) error
}

// DispatchRepository defines the storage operations used by the Dispatcher.
type DispatchRepository interface {
	// DueJobs returns pending jobs with scheduled_for at or before now,
	// oldest first, limited to limit rows.
	DueJobs(ctx context.Context, now time.Time, limit int) ([]Job, error)

	// ClaimJob atomically transitions a job from pending to processing.
	// The transition is conditional on the current status so that exactly
	// one caller wins under concurrent dispatch; losers get
	// ErrJobAlreadyClaimed.
	ClaimJob(ctx context.Context, jobID uuid.UUID) error

	// HasRecentDelivery reports whether another job with the same
	// (recipient, update, type) key as the given job was sent since the
	// given instant, or is processing and was created before the given
	// job. The creation-order condition breaks the tie between duplicates
	// claimed concurrently: the oldest proceeds, the rest see it as a
	// duplicate.
	HasRecentDelivery(ctx context.Context, job Job, since time.Time) (bool, error)

	// MarkSent records a successful delivery with the provider message id.
	MarkSent(ctx context.Context, jobID uuid.UUID, messageID string, processedAt time.Time) error

	// MarkSkipped records a debounced duplicate as skipped.
	MarkSkipped(ctx context.Context, jobID uuid.UUID, reason string, processedAt time.Time) error

	// MarkFailed records a terminal failure with its reason.
	MarkFailed(ctx context.Context, jobID uuid.UUID, reason string, processedAt time.Time) error

	// RequeueJob returns a processing job to pending after a transient
	// failure, with the incremented retry count and the backed-off
	// scheduled_for.
	RequeueJob(ctx context.Context, jobID uuid.UUID, retryCount int8, scheduledFor time.Time, reason string) error
}

// QueryRepository is the read-only surface for job status and history,
// consumed by the UI delivery log.
type QueryRepository interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context, recipientID uuid.UUID, opts ListOptions) ([]Job, error)
}

// ScheduleStore reads and advances persisted digest schedules so a restart
// resumes from next_digest_scheduled without recomputation drift.
type ScheduleStore interface {
	GetDigestSchedule(ctx context.Context, recipientID, groupID uuid.UUID) (*digest.Schedule, error)
	SaveDigestSchedule(ctx context.Context, schedule *digest.Schedule) error
}

// ListOptions filters and paginates job history queries.
type ListOptions struct {
	Statuses []JobStatus // If specified, only jobs in these statuses
	Since    *time.Time  // If specified, only jobs created after this instant
	Limit    int         // Maximum number of jobs to return (0 = no limit)
	Offset   int         // Number of jobs to skip for pagination
}
