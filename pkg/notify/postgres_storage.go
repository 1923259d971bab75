package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
)

// PostgresStorage implements all queue repository interfaces on a pgx pool.
// The schema lives in the migrations directory and is applied with pkg/pg.
//
// Claims are conditional updates keyed by id and expected prior status, so
// concurrent dispatchers racing for the same row resolve at the database:
// exactly one UPDATE reports an affected row.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed storage implementation.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrRepositoryNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const jobColumns = `id, recipient_id, group_id, update_id, notification_type, urgency_level,
	delivery_method, content, status, scheduled_for, retry_count, max_retries,
	processed_at, failure_reason, message_id, created_at`

// CreateJob implements QueueRepository.
func (ps *PostgresStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO notification_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		job.ID, job.RecipientID, job.GroupID, job.UpdateID, job.Type, job.Urgency,
		job.Method, job.Content, job.Status, job.ScheduledFor, job.RetryCount, job.MaxRetries,
		job.ProcessedAt, job.FailureReason, job.MessageID, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification job: %w", err)
	}
	return nil
}

// CancelJob implements QueueRepository.
func (ps *PostgresStorage) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = $2, processed_at = now()
		WHERE id = $1 AND status = $3`,
		jobID, StatusCancelled, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The conditional update lost; distinguish missing from in-flight.
	var status JobStatus
	err = ps.pool.QueryRow(ctx, `SELECT status FROM notification_jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read job status: %w", err)
	}
	return fmt.Errorf("%w: status is %s", ErrJobNotCancellable, status)
}

// DueJobs implements DispatchRepository.
func (ps *PostgresStorage) DueJobs(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM notification_jobs
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for`
	args := []any{StatusPending, now}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $3"
	}

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select due jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ClaimJob implements DispatchRepository. A zero-row update means another
// dispatcher already moved the job out of pending.
func (ps *PostgresStorage) ClaimJob(ctx context.Context, jobID uuid.UUID) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = $2
		WHERE id = $1 AND status = $3`,
		jobID, StatusProcessing, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobAlreadyClaimed
	}
	return nil
}

// HasRecentDelivery implements DispatchRepository. A processing peer counts
// only when it sorts before the checking job by (created_at, id), so
// duplicates claimed in the same sweep resolve to exactly one sender.
func (ps *PostgresStorage) HasRecentDelivery(ctx context.Context, job Job, since time.Time) (bool, error) {
	var exists bool
	err := ps.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_jobs
			WHERE recipient_id = $1
			  AND notification_type = $2
			  AND update_id IS NOT DISTINCT FROM $3
			  AND id <> $4
			  AND (
			      (status = $5 AND (created_at, id) < ($6, $4))
			      OR (status = $7 AND processed_at >= $8)
			  )
		)`,
		job.RecipientID, job.Type, job.UpdateID, job.ID,
		StatusProcessing, job.CreatedAt, StatusSent, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for recent delivery: %w", err)
	}
	return exists, nil
}

// MarkSent implements DispatchRepository.
func (ps *PostgresStorage) MarkSent(ctx context.Context, jobID uuid.UUID, messageID string, processedAt time.Time) error {
	return ps.finish(ctx, jobID, `
		UPDATE notification_jobs
		SET status = $2, message_id = $3, processed_at = $4
		WHERE id = $1 AND status = $5`,
		jobID, StatusSent, messageID, processedAt, StatusProcessing)
}

// MarkSkipped implements DispatchRepository.
func (ps *PostgresStorage) MarkSkipped(ctx context.Context, jobID uuid.UUID, reason string, processedAt time.Time) error {
	return ps.finish(ctx, jobID, `
		UPDATE notification_jobs
		SET status = $2, failure_reason = $3, processed_at = $4
		WHERE id = $1 AND status = $5`,
		jobID, StatusSkipped, reason, processedAt, StatusProcessing)
}

// MarkFailed implements DispatchRepository.
func (ps *PostgresStorage) MarkFailed(ctx context.Context, jobID uuid.UUID, reason string, processedAt time.Time) error {
	return ps.finish(ctx, jobID, `
		UPDATE notification_jobs
		SET status = $2, failure_reason = $3, processed_at = $4
		WHERE id = $1 AND status = $5`,
		jobID, StatusFailed, reason, processedAt, StatusProcessing)
}

// RequeueJob implements DispatchRepository.
func (ps *PostgresStorage) RequeueJob(ctx context.Context, jobID uuid.UUID, retryCount int8, scheduledFor time.Time, reason string) error {
	return ps.finish(ctx, jobID, `
		UPDATE notification_jobs
		SET status = $2, retry_count = $3, scheduled_for = $4, failure_reason = $5
		WHERE id = $1 AND status = $6`,
		jobID, StatusPending, retryCount, scheduledFor, reason, StatusProcessing)
}

// GetJob implements QueryRepository.
func (ps *PostgresStorage) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE id = $1`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}
	return job, nil
}

// ListJobs implements QueryRepository, newest first.
func (ps *PostgresStorage) ListJobs(ctx context.Context, recipientID uuid.UUID, opts ListOptions) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM notification_jobs WHERE recipient_id = $1`
	args := []any{recipientID}

	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at > $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// GetDigestSchedule implements ScheduleStore.
func (ps *PostgresStorage) GetDigestSchedule(ctx context.Context, recipientID, groupID uuid.UUID) (*digest.Schedule, error) {
	var s digest.Schedule
	err := ps.pool.QueryRow(ctx, `
		SELECT recipient_id, group_id, frequency, delivery_day, delivery_time, timezone,
			is_active, last_digest_sent, next_digest_scheduled,
			max_updates_per_digest, include_content_types
		FROM digest_schedules
		WHERE recipient_id = $1 AND group_id = $2`,
		recipientID, groupID).Scan(
		&s.RecipientID, &s.GroupID, &s.Frequency, &s.DeliveryDay, &s.DeliveryTime, &s.Timezone,
		&s.IsActive, &s.LastDigestSent, &s.NextDigestScheduled,
		&s.MaxUpdatesPerDigest, &s.IncludeContentTypes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read digest schedule: %w", err)
	}
	return &s, nil
}

// SaveDigestSchedule implements ScheduleStore.
func (ps *PostgresStorage) SaveDigestSchedule(ctx context.Context, schedule *digest.Schedule) error {
	if schedule == nil {
		return errors.New("schedule cannot be nil")
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO digest_schedules (
			recipient_id, group_id, frequency, delivery_day, delivery_time, timezone,
			is_active, last_digest_sent, next_digest_scheduled,
			max_updates_per_digest, include_content_types
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (recipient_id, group_id) DO UPDATE SET
			frequency = EXCLUDED.frequency,
			delivery_day = EXCLUDED.delivery_day,
			delivery_time = EXCLUDED.delivery_time,
			timezone = EXCLUDED.timezone,
			is_active = EXCLUDED.is_active,
			last_digest_sent = EXCLUDED.last_digest_sent,
			next_digest_scheduled = EXCLUDED.next_digest_scheduled,
			max_updates_per_digest = EXCLUDED.max_updates_per_digest,
			include_content_types = EXCLUDED.include_content_types`,
		schedule.RecipientID, schedule.GroupID, schedule.Frequency, schedule.DeliveryDay,
		schedule.DeliveryTime, schedule.Timezone, schedule.IsActive,
		schedule.LastDigestSent, schedule.NextDigestScheduled,
		schedule.MaxUpdatesPerDigest, schedule.IncludeContentTypes)
	if err != nil {
		return fmt.Errorf("failed to save digest schedule: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) finish(ctx context.Context, jobID uuid.UUID, query string, args ...any) error {
	tag, err := ps.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}
	return nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	err := row.Scan(
		&job.ID, &job.RecipientID, &job.GroupID, &job.UpdateID, &job.Type, &job.Urgency,
		&job.Method, &job.Content, &job.Status, &job.ScheduledFor, &job.RetryCount, &job.MaxRetries,
		&job.ProcessedAt, &job.FailureReason, &job.MessageID, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func scanJobs(rows pgx.Rows) ([]Job, error) {
	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return jobs, nil
}
