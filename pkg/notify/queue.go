package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
	"github.com/colin-rod/tribe-mvp-sub000/pkg/preferences"
	"github.com/colin-rod/tribe-mvp-sub000/pkg/quiethours"
)

// PreferenceResolver yields the effective preference set for a recipient.
// *preferences.Resolver satisfies it.
type PreferenceResolver interface {
	Resolve(ctx context.Context, recipientID uuid.UUID) (preferences.EffectivePreferences, error)
}

// Queue is the scheduling API: it creates notification jobs with their
// scheduled_for already resolved against preferences, quiet hours and digest
// schedules, cancels still-pending jobs, and serves the read-only job and
// suppression-state queries used by the delivery log UI.
type Queue struct {
	repo       QueueRepository
	query      QueryRepository
	prefs      PreferenceResolver
	schedules  ScheduleStore
	logger     *slog.Logger
	maxRetries int8
}

// QueueOption is a functional option for configuring a Queue.
type QueueOption func(*queueOptions)

type queueOptions struct {
	logger     *slog.Logger
	maxRetries int8
}

// WithQueueLogger sets the queue logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(o *queueOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDefaultMaxRetries sets the retry budget for jobs that do not specify
// one (0-10).
func WithDefaultMaxRetries(n int8) QueueOption {
	return func(o *queueOptions) {
		if n >= 0 && n <= 10 {
			o.maxRetries = n
		}
	}
}

// NewQueue creates the scheduling API over the given storage. The schedule
// store may be nil when digest jobs are not used.
func NewQueue(repo QueueRepository, query QueryRepository, prefs PreferenceResolver, schedules ScheduleStore, opts ...QueueOption) (*Queue, error) {
	if repo == nil || query == nil {
		return nil, ErrRepositoryNil
	}
	if prefs == nil {
		return nil, ErrResolverNil
	}

	options := &queueOptions{
		logger:     slog.Default(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Queue{
		repo:       repo,
		query:      query,
		prefs:      prefs,
		schedules:  schedules,
		logger:     options.logger,
		maxRetries: options.maxRetries,
	}, nil
}

// EnqueueParams describes a notification to be queued. Method is optional;
// when empty the recipient's first effective channel is used. MaxRetries of
// zero means the queue default.
type EnqueueParams struct {
	RecipientID uuid.UUID
	GroupID     uuid.UUID
	UpdateID    *uuid.UUID
	Type        NotificationType
	Urgency     Urgency
	Method      DeliveryMethod
	Content     json.RawMessage
	MaxRetries  int8
}

// Enqueue validates the recipient and creates a pending job.
//
// Scheduling rules: digest jobs take their scheduled_for from the recipient's
// digest schedule; all other non-urgent jobs are deferred to the end of a
// currently-active quiet window; urgent jobs go out immediately. A muted
// recipient rejects normal and low urgency enqueues with ErrRecipientMuted
// before anything is persisted.
func (q *Queue) Enqueue(ctx context.Context, params EnqueueParams) (uuid.UUID, error) {
	if params.RecipientID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: recipient id is required", ErrInvalidJobSpec)
	}
	if !params.Type.Valid() {
		return uuid.Nil, fmt.Errorf("%w: notification type %q", ErrInvalidJobSpec, params.Type)
	}
	if params.Urgency == "" {
		params.Urgency = UrgencyNormal
	}
	if !params.Urgency.Valid() {
		return uuid.Nil, fmt.Errorf("%w: urgency %q", ErrInvalidJobSpec, params.Urgency)
	}
	if params.Method != "" && !params.Method.Valid() {
		return uuid.Nil, fmt.Errorf("%w: delivery method %q", ErrInvalidJobSpec, params.Method)
	}

	eff, err := q.prefs.Resolve(ctx, params.RecipientID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve preferences for %s: %w", params.RecipientID, err)
	}
	if !eff.IsActive {
		return uuid.Nil, ErrRecipientInactive
	}
	if eff.IsMuted && params.Urgency != UrgencyUrgent {
		return uuid.Nil, ErrRecipientMuted
	}

	method := params.Method
	if method == "" {
		if len(eff.Channels) == 0 {
			return uuid.Nil, ErrNoChannels
		}
		method = MethodForChannel(eff.Channels[0])
	}

	now := time.Now()
	scheduledFor, err := q.scheduleFor(ctx, params, eff, now)
	if err != nil {
		return uuid.Nil, err
	}

	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = q.maxRetries
	}

	job := &Job{
		ID:           uuid.New(),
		RecipientID:  params.RecipientID,
		GroupID:      params.GroupID,
		UpdateID:     params.UpdateID,
		Type:         params.Type,
		Urgency:      params.Urgency,
		Method:       method,
		Content:      params.Content,
		Status:       StatusPending,
		ScheduledFor: scheduledFor,
		RetryCount:   0,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
	}

	if err := q.repo.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create notification job: %w", err)
	}

	q.logger.Info("notification job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("recipient_id", job.RecipientID.String()),
		slog.String("type", string(job.Type)),
		slog.String("method", string(job.Method)),
		slog.Time("scheduled_for", job.ScheduledFor))

	return job.ID, nil
}

// scheduleFor picks the initial scheduled_for instant for a new job.
func (q *Queue) scheduleFor(ctx context.Context, params EnqueueParams, eff preferences.EffectivePreferences, now time.Time) (time.Time, error) {
	if params.Type == TypeDigest {
		return q.digestScheduleFor(ctx, params, now)
	}

	scheduledFor := now.UTC()
	if params.Urgency == UrgencyUrgent {
		return scheduledFor, nil
	}

	quiet, err := quiethours.IsQuiet(now, eff.QuietHours)
	if err != nil {
		return time.Time{}, err
	}
	if !quiet {
		return scheduledFor, nil
	}

	boundary, kind, err := quiethours.NextBoundary(now, eff.QuietHours)
	if err != nil {
		return time.Time{}, err
	}
	if kind != quiethours.BoundaryEnds {
		// Inside the window the next flip is always the window end.
		return time.Time{}, fmt.Errorf("unexpected quiet hours boundary %q", kind)
	}

	q.logger.Debug("deferring job past quiet hours",
		slog.String("recipient_id", params.RecipientID.String()),
		slog.Time("deferred_to", boundary))

	return boundary.UTC(), nil
}

func (q *Queue) digestScheduleFor(ctx context.Context, params EnqueueParams, now time.Time) (time.Time, error) {
	if q.schedules == nil {
		return time.Time{}, ErrNoDigestSchedule
	}

	schedule, err := q.schedules.GetDigestSchedule(ctx, params.RecipientID, params.GroupID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load digest schedule: %w", err)
	}
	if schedule == nil || !schedule.IsActive {
		return time.Time{}, ErrNoDigestSchedule
	}

	// Resume from the persisted next run when it is still in the future;
	// recompute otherwise so a lapsed schedule does not fire immediately
	// at an instant long past.
	if schedule.NextDigestScheduled != nil && schedule.NextDigestScheduled.After(now) {
		return schedule.NextDigestScheduled.UTC(), nil
	}
	return digest.NextRun(*schedule, now)
}

// Cancel transitions a still-pending job to cancelled. Jobs already claimed
// or terminal report ErrJobNotCancellable.
func (q *Queue) Cancel(ctx context.Context, jobID uuid.UUID) error {
	if err := q.repo.CancelJob(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotCancellable) {
			return err
		}
		return fmt.Errorf("failed to cancel job %s: %w", jobID, err)
	}

	q.logger.Info("notification job cancelled", slog.String("job_id", jobID.String()))
	return nil
}

// Job returns a single job by id for status display.
func (q *Queue) Job(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	return q.query.GetJob(ctx, jobID)
}

// History lists a recipient's jobs, newest first, for the delivery log.
func (q *Queue) History(ctx context.Context, recipientID uuid.UUID, opts ListOptions) ([]Job, error) {
	return q.query.ListJobs(ctx, recipientID, opts)
}

// IsInQuietHours reports whether the recipient's quiet window suppresses
// non-urgent notifications at the given instant.
func (q *Queue) IsInQuietHours(ctx context.Context, recipientID uuid.UUID, now time.Time) (bool, error) {
	eff, err := q.prefs.Resolve(ctx, recipientID)
	if err != nil {
		return false, err
	}
	return quiethours.IsQuiet(now, eff.QuietHours)
}

// NextNotificationTime returns the earliest instant a non-urgent notification
// enqueued now could be dispatched: now itself outside quiet hours, otherwise
// the end of the active window.
func (q *Queue) NextNotificationTime(ctx context.Context, recipientID uuid.UUID, now time.Time) (time.Time, error) {
	eff, err := q.prefs.Resolve(ctx, recipientID)
	if err != nil {
		return time.Time{}, err
	}

	quiet, err := quiethours.IsQuiet(now, eff.QuietHours)
	if err != nil {
		return time.Time{}, err
	}
	if !quiet {
		return now.UTC(), nil
	}

	boundary, _, err := quiethours.NextBoundary(now, eff.QuietHours)
	if err != nil {
		return time.Time{}, err
	}
	return boundary.UTC(), nil
}
