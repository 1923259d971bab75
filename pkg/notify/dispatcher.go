package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
)

// Dispatcher sweeps due jobs and drives each one to a terminal or retry
// state. It can run as a recurring in-process loop (Start/Stop) or be invoked
// directly per sweep (DispatchDue), which is what tests and cron-style
// callers use. Multiple dispatchers may run concurrently against the same
// storage; the per-job claim guarantees at most one delivers a given job.
type Dispatcher struct {
	repo       DispatchRepository
	transports *TransportRegistry
	schedules  ScheduleStore
	logger     *slog.Logger

	pollInterval   time.Duration
	sendTimeout    time.Duration
	debounceWindow time.Duration
	backoffBase    time.Duration
	backoffCap     time.Duration
	batchLimit     int
	sem            chan struct{}

	wg       sync.WaitGroup
	mu       sync.Mutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewDispatcher creates a dispatcher over the given storage and transports.
func NewDispatcher(repo DispatchRepository, transports *TransportRegistry, opts ...DispatcherOption) (*Dispatcher, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if transports == nil {
		return nil, errors.New("transport registry cannot be nil")
	}

	options := defaultDispatcherOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Dispatcher{
		repo:           repo,
		transports:     transports,
		schedules:      options.schedules,
		logger:         options.logger,
		pollInterval:   options.pollInterval,
		sendTimeout:    options.sendTimeout,
		debounceWindow: options.debounceWindow,
		backoffBase:    options.backoffBase,
		backoffCap:     options.backoffCap,
		batchLimit:     options.batchLimit,
		sem:            make(chan struct{}, options.maxConcurrentSends),
	}, nil
}

// Start begins the recurring dispatch loop in the background.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already started")
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.stopping.Store(false)
	go d.run()

	d.logger.Info("dispatcher started",
		slog.Duration("poll_interval", d.pollInterval),
		slog.Int("max_concurrent_sends", cap(d.sem)))

	return nil
}

// Stop gracefully shuts down the loop, letting in-flight deliveries finish.
// A claimed job always runs to completion or failure; cancellation only ever
// applies to still-pending jobs.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.cancel == nil {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher not started")
	}

	d.stopMu.Lock()
	d.stopping.Store(true)
	d.stopMu.Unlock()

	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	cancel()

	d.logger.Info("dispatcher stopping, waiting for in-flight deliveries")
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")

	return nil
}

// Run starts the dispatcher and returns a function suitable for errgroup.
func (d *Dispatcher) Run(ctx context.Context) func() error {
	return func() error {
		if err := d.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return d.Stop()
	}
}

// run is the recurring polling loop.
func (d *Dispatcher) run() {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchDue(d.ctx, time.Now()); err != nil {
				d.logger.Error("dispatch sweep failed", slog.Any("error", err))
			}
		}
	}
}

// DispatchDue claims and delivers every pending job due at now, waiting for
// the sweep to finish. Per-job failures are isolated: one failing delivery
// never halts the sweep for other jobs. It returns the number of jobs this
// sweep actually claimed.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	jobs, err := d.repo.DueJobs(ctx, now, d.batchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to select due jobs: %w", err)
	}

	var claimed atomic.Int64
	var sweep sync.WaitGroup
	for _, job := range jobs {
		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			sweep.Wait()
			return int(claimed.Load()), ctx.Err()
		}

		d.stopMu.Lock()
		if d.stopping.Load() {
			d.stopMu.Unlock()
			<-d.sem
			break
		}
		d.wg.Add(1)
		d.stopMu.Unlock()

		sweep.Add(1)
		go func(job Job) {
			defer d.wg.Done()
			defer sweep.Done()
			defer func() { <-d.sem }()

			if d.processJob(ctx, job, now) {
				claimed.Add(1)
			}
		}(job)
	}

	sweep.Wait()
	return int(claimed.Load()), nil
}

// processJob drives one due job to sent, skipped, failed or requeued.
// Reports whether this dispatcher won the claim.
func (d *Dispatcher) processJob(ctx context.Context, job Job, now time.Time) (won bool) {
	// A panicking transport must not take the sweep down; treat it as a
	// transient failure of this job only.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("transport panicked",
				slog.String("job_id", job.ID.String()),
				slog.Any("panic", r))
			d.settleFailure(ctx, job, Transient(fmt.Errorf("panic in transport: %v", r)))
		}
	}()

	if err := d.repo.ClaimJob(ctx, job.ID); err != nil {
		if errors.Is(err, ErrJobAlreadyClaimed) || errors.Is(err, ErrJobNotFound) {
			// Another dispatcher won, or the job was cancelled between
			// selection and claim.
			return false
		}
		d.logger.Error("failed to claim job",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err))
		return false
	}
	won = true

	// Debounce: an identical notification already sent within the window,
	// or in flight and older than this job, makes this one a duplicate.
	dup, err := d.repo.HasRecentDelivery(ctx, job, now.Add(-d.debounceWindow))
	if err != nil {
		d.settleFailure(ctx, job, Transient(fmt.Errorf("duplicate check failed: %w", err)))
		return won
	}
	if dup {
		if err := d.repo.MarkSkipped(ctx, job.ID, "duplicate within debounce window", time.Now()); err != nil {
			d.logger.Error("failed to mark job skipped",
				slog.String("job_id", job.ID.String()),
				slog.Any("error", err))
		}
		d.logger.Info("skipped duplicate notification",
			slog.String("job_id", job.ID.String()),
			slog.String("recipient_id", job.RecipientID.String()))
		return won
	}

	transport, err := d.transports.Get(job.Method)
	if err != nil {
		d.settleFailure(ctx, job, Permanent(err))
		return won
	}

	// The transport call is the only blocking operation in the sweep and
	// runs under its own deadline, detached from the loop context so
	// graceful shutdown lets it finish.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	start := time.Now()
	messageID, err := transport.Send(sendCtx, job)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = Transient(err)
		}
		d.logger.Error("delivery failed",
			slog.String("job_id", job.ID.String()),
			slog.String("method", string(job.Method)),
			slog.Int("retry_count", int(job.RetryCount)),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		d.settleFailure(ctx, job, err)
		return won
	}

	if err := d.repo.MarkSent(ctx, job.ID, messageID, time.Now()); err != nil {
		d.logger.Error("failed to mark job sent",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err))
		return won
	}

	d.logger.Info("notification delivered",
		slog.String("job_id", job.ID.String()),
		slog.String("recipient_id", job.RecipientID.String()),
		slog.String("method", string(job.Method)),
		slog.String("message_id", messageID),
		slog.Duration("duration", duration))

	if job.Type == TypeDigest {
		d.advanceDigestSchedule(ctx, job)
	}
	return won
}

// settleFailure applies the retry policy to a failed delivery: permanent
// failures and exhausted budgets are terminal, everything else is requeued
// with exponential backoff. Total delivery attempts are bounded by
// MaxRetries: a job that failed its MaxRetries-th attempt is never requeued.
func (d *Dispatcher) settleFailure(ctx context.Context, job Job, sendErr error) {
	now := time.Now()

	if IsPermanent(sendErr) || job.RetryCount+1 >= job.MaxRetries {
		if err := d.repo.MarkFailed(ctx, job.ID, sendErr.Error(), now); err != nil {
			d.logger.Error("failed to mark job failed",
				slog.String("job_id", job.ID.String()),
				slog.Any("error", err))
		}
		return
	}

	retryCount := job.RetryCount + 1
	delay := backoffDelay(d.backoffBase, d.backoffCap, retryCount)
	if err := d.repo.RequeueJob(ctx, job.ID, retryCount, now.Add(delay), sendErr.Error()); err != nil {
		d.logger.Error("failed to requeue job",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err))
		return
	}

	d.logger.Warn("delivery requeued",
		slog.String("job_id", job.ID.String()),
		slog.Int("retry_count", int(retryCount)),
		slog.Int("max_retries", int(job.MaxRetries)),
		slog.Duration("delay", delay))
}

// advanceDigestSchedule stamps last_digest_sent and the next run after a
// successful digest delivery. Best effort: a failure here only delays the
// schedule, the delivered job itself is already settled.
func (d *Dispatcher) advanceDigestSchedule(ctx context.Context, job Job) {
	if d.schedules == nil {
		return
	}

	schedule, err := d.schedules.GetDigestSchedule(ctx, job.RecipientID, job.GroupID)
	if err != nil || schedule == nil {
		return
	}
	if err := digest.MarkSent(schedule, time.Now()); err != nil {
		d.logger.Error("failed to advance digest schedule",
			slog.String("recipient_id", job.RecipientID.String()),
			slog.Any("error", err))
		return
	}
	if err := d.schedules.SaveDigestSchedule(ctx, schedule); err != nil {
		d.logger.Error("failed to save digest schedule",
			slog.String("recipient_id", job.RecipientID.String()),
			slog.Any("error", err))
	}
}

// backoffDelay computes base * 2^retryCount, capped.
func backoffDelay(base, cap time.Duration, retryCount int8) time.Duration {
	delay := base
	for range retryCount {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
