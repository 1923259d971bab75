package notify

import (
	"log/slog"
	"time"
)

// DispatcherOption is a functional option for configuring a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	schedules          ScheduleStore
	logger             *slog.Logger
	pollInterval       time.Duration
	sendTimeout        time.Duration
	debounceWindow     time.Duration
	backoffBase        time.Duration
	backoffCap         time.Duration
	batchLimit         int
	maxConcurrentSends int
}

func defaultDispatcherOptions() *dispatcherOptions {
	return &dispatcherOptions{
		logger:             slog.Default(),
		pollInterval:       15 * time.Second,
		sendTimeout:        30 * time.Second,
		debounceWindow:     5 * time.Minute,
		backoffBase:        time.Minute,
		backoffCap:         time.Hour,
		batchLimit:         100,
		maxConcurrentSends: 8,
	}
}

// WithScheduleStore enables digest schedule advancement after successful
// digest deliveries.
func WithScheduleStore(schedules ScheduleStore) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.schedules = schedules
	}
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPollInterval sets how often the recurring loop sweeps for due jobs.
func WithPollInterval(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithSendTimeout bounds each transport call.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithDebounceWindow sets how far back the duplicate check looks.
func WithDebounceWindow(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.debounceWindow = d
		}
	}
}

// WithBackoff sets the retry backoff base and cap.
func WithBackoff(base, cap time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if base > 0 {
			o.backoffBase = base
		}
		if cap > 0 {
			o.backoffCap = cap
		}
	}
}

// WithBatchLimit bounds how many due jobs one sweep selects.
func WithBatchLimit(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		if n > 0 {
			o.batchLimit = n
		}
	}
}

// WithMaxConcurrentSends bounds in-flight transport calls.
func WithMaxConcurrentSends(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// WithDispatcherConfig applies an environment-derived Config.
func WithDispatcherConfig(cfg Config) DispatcherOption {
	return func(o *dispatcherOptions) {
		WithPollInterval(cfg.PollInterval)(o)
		WithSendTimeout(cfg.SendTimeout)(o)
		WithDebounceWindow(cfg.DebounceWindow)(o)
		WithBackoff(cfg.BackoffBase, cfg.BackoffCap)(o)
		WithBatchLimit(cfg.BatchLimit)(o)
		WithMaxConcurrentSends(cfg.MaxConcurrentSends)(o)
	}
}
