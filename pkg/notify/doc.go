// Package notify is the notification job queue: it decides when a queued
// notification may fire and drives every job from creation to a terminal
// delivery outcome with bounded retries and at-most-one-in-flight claims.
//
// # Lifecycle
//
// A job moves pending -> processing -> {sent, failed, skipped}. A transient
// delivery failure with budget left moves it processing -> pending with an
// incremented retry count and exponential backoff; a still-pending job can be
// cancelled. Transitions are monotonic and terminal rows are never deleted,
// forming the delivery audit trail.
//
// # Scheduling
//
// Enqueue resolves the recipient's effective preferences, rejects muted
// recipients for non-urgent work, defers non-urgent jobs past an active
// quiet-hours window, and schedules digest jobs at their digest schedule's
// next run. The Dispatcher polls for due jobs on a recurring interval;
// multiple dispatchers may run concurrently because the claim is a
// conditional status update that exactly one caller wins per job.
//
// # Usage
//
//	storage := notify.NewMemoryStorage()
//	queue, err := notify.NewQueue(storage, storage, resolver, storage)
//	jobID, err := queue.Enqueue(ctx, notify.EnqueueParams{
//		RecipientID: recipientID,
//		GroupID:     groupID,
//		Type:        notify.TypeImmediate,
//		Urgency:     notify.UrgencyNormal,
//		Content:     payload,
//	})
//
//	dispatcher, err := notify.NewDispatcher(storage, registry,
//		notify.WithPollInterval(15*time.Second),
//	)
//	_ = dispatcher.Start(ctx)
//	defer dispatcher.Stop()
//
// Storage is injected through small repository interfaces; MemoryStorage
// serves tests and local development, PostgresStorage production.
package notify
