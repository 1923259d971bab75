package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
)

// MemoryStorage implements all queue repository interfaces for testing and
// local development. Terminal jobs are kept forever; they are the audit trail.
type MemoryStorage struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*Job
	schedules map[uuid.UUID]*digest.Schedule // keyed by recipient id

	// Indexes for efficient queries
	byStatus    map[JobStatus][]uuid.UUID
	byRecipient map[uuid.UUID][]uuid.UUID
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		jobs:        make(map[uuid.UUID]*Job),
		schedules:   make(map[uuid.UUID]*digest.Schedule),
		byStatus:    make(map[JobStatus][]uuid.UUID),
		byRecipient: make(map[uuid.UUID][]uuid.UUID),
	}
}

// CreateJob implements QueueRepository.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}

	// Clone to prevent external modifications
	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy

	ms.byStatus[job.Status] = append(ms.byStatus[job.Status], job.ID)
	ms.byRecipient[job.RecipientID] = append(ms.byRecipient[job.RecipientID], job.ID)

	return nil
}

// CancelJob implements QueueRepository. The transition is conditional on the
// job still being pending.
func (ms *MemoryStorage) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return fmt.Errorf("%w: status is %s", ErrJobNotCancellable, job.Status)
	}

	ms.transition(job, StatusCancelled)
	now := time.Now()
	job.ProcessedAt = &now
	return nil
}

// DueJobs implements DispatchRepository.
func (ms *MemoryStorage) DueJobs(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	due := make([]Job, 0)
	for _, id := range ms.byStatus[StatusPending] {
		job := ms.jobs[id]
		if job.ScheduledFor.After(now) {
			continue
		}
		due = append(due, *job)
	}

	// Oldest first so long-deferred jobs are not starved by new arrivals.
	slices.SortFunc(due, func(a, b Job) int { return a.ScheduledFor.Compare(b.ScheduledFor) })

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// ClaimJob implements DispatchRepository with a compare-and-swap on the
// current status: only a pending job can move to processing, and only once.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return ErrJobAlreadyClaimed
	}

	ms.transition(job, StatusProcessing)
	return nil
}

// HasRecentDelivery implements DispatchRepository. A processing peer counts
// only when it was created before the checking job, so duplicates claimed in
// the same sweep resolve to exactly one sender.
func (ms *MemoryStorage) HasRecentDelivery(ctx context.Context, job Job, since time.Time) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, id := range ms.byRecipient[job.RecipientID] {
		peer := ms.jobs[id]
		if peer.ID == job.ID {
			continue
		}
		if peer.Type != job.Type {
			continue
		}
		if !sameUpdate(peer.UpdateID, job.UpdateID) {
			continue
		}
		switch peer.Status {
		case StatusProcessing:
			if createdBefore(*peer, job) {
				return true, nil
			}
		case StatusSent:
			if peer.ProcessedAt != nil && !peer.ProcessedAt.Before(since) {
				return true, nil
			}
		}
	}
	return false, nil
}

// MarkSent implements DispatchRepository.
func (ms *MemoryStorage) MarkSent(ctx context.Context, jobID uuid.UUID, messageID string, processedAt time.Time) error {
	return ms.finish(jobID, StatusSent, processedAt, func(job *Job) {
		job.MessageID = &messageID
	})
}

// MarkSkipped implements DispatchRepository.
func (ms *MemoryStorage) MarkSkipped(ctx context.Context, jobID uuid.UUID, reason string, processedAt time.Time) error {
	return ms.finish(jobID, StatusSkipped, processedAt, func(job *Job) {
		job.FailureReason = &reason
	})
}

// MarkFailed implements DispatchRepository.
func (ms *MemoryStorage) MarkFailed(ctx context.Context, jobID uuid.UUID, reason string, processedAt time.Time) error {
	return ms.finish(jobID, StatusFailed, processedAt, func(job *Job) {
		job.FailureReason = &reason
	})
}

// RequeueJob implements DispatchRepository: the transient-failure path back
// to pending with an incremented retry count and backed-off schedule.
func (ms *MemoryStorage) RequeueJob(ctx context.Context, jobID uuid.UUID, retryCount int8, scheduledFor time.Time, reason string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != StatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	job.RetryCount = retryCount
	job.ScheduledFor = scheduledFor
	job.FailureReason = &reason
	ms.transition(job, StatusPending)
	return nil
}

// GetJob implements QueryRepository.
func (ms *MemoryStorage) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements QueryRepository, newest first.
func (ms *MemoryStorage) ListJobs(ctx context.Context, recipientID uuid.UUID, opts ListOptions) ([]Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	jobs := make([]Job, 0)
	for _, id := range ms.byRecipient[recipientID] {
		job := ms.jobs[id]
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, job.Status) {
			continue
		}
		if opts.Since != nil && job.CreatedAt.Before(*opts.Since) {
			continue
		}
		jobs = append(jobs, *job)
	}

	slices.SortFunc(jobs, func(a, b Job) int { return b.CreatedAt.Compare(a.CreatedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return []Job{}, nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && len(jobs) > opts.Limit {
		jobs = jobs[:opts.Limit]
	}
	return jobs, nil
}

// GetDigestSchedule implements ScheduleStore.
func (ms *MemoryStorage) GetDigestSchedule(ctx context.Context, recipientID, groupID uuid.UUID) (*digest.Schedule, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	s, exists := ms.schedules[recipientID]
	if !exists || s.GroupID != groupID {
		return nil, nil
	}
	schedCopy := *s
	return &schedCopy, nil
}

// SaveDigestSchedule implements ScheduleStore.
func (ms *MemoryStorage) SaveDigestSchedule(ctx context.Context, schedule *digest.Schedule) error {
	if schedule == nil {
		return errors.New("schedule cannot be nil")
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	schedCopy := *schedule
	ms.schedules[schedule.RecipientID] = &schedCopy
	return nil
}

// Helper methods

// transition moves a job between statuses and keeps the index consistent.
// Must be called with lock held.
func (ms *MemoryStorage) transition(job *Job, to JobStatus) {
	ms.byStatus[job.Status] = slices.DeleteFunc(ms.byStatus[job.Status], func(id uuid.UUID) bool {
		return id == job.ID
	})
	job.Status = to
	ms.byStatus[to] = append(ms.byStatus[to], job.ID)
}

func (ms *MemoryStorage) finish(jobID uuid.UUID, to JobStatus, processedAt time.Time, apply func(*Job)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != StatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	ms.transition(job, to)
	job.ProcessedAt = &processedAt
	apply(job)
	return nil
}

func sameUpdate(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// createdBefore orders jobs by creation time, id bytes breaking exact ties.
func createdBefore(a, b Job) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
