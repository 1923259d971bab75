package notify

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrResolverNil is returned when a nil preference resolver is provided.
	ErrResolverNil = errors.New("preference resolver cannot be nil")

	// ErrRecipientInactive rejects enqueues for deactivated recipients.
	ErrRecipientInactive = errors.New("recipient is not active")

	// ErrRecipientMuted rejects non-urgent enqueues while the recipient is muted.
	ErrRecipientMuted = errors.New("recipient is muted")

	// ErrNoChannels is returned when no delivery method was given and the
	// recipient's effective preferences enable no channel either.
	ErrNoChannels = errors.New("no delivery channel available for recipient")

	// ErrNoDigestSchedule is returned when a digest job is enqueued for a
	// recipient without an active digest schedule.
	ErrNoDigestSchedule = errors.New("no active digest schedule for recipient")

	// ErrInvalidJobSpec is returned when enqueue parameters are malformed.
	ErrInvalidJobSpec = errors.New("invalid notification job spec")

	// ErrJobNotFound is returned when a job id is unknown.
	ErrJobNotFound = errors.New("notification job not found")

	// ErrJobNotCancellable reports a cancel conflict: the job is already in
	// flight or terminal.
	ErrJobNotCancellable = errors.New("job is not pending and cannot be cancelled")

	// ErrJobAlreadyClaimed is returned when a concurrent dispatcher won the
	// claim for a due job.
	ErrJobAlreadyClaimed = errors.New("job already claimed by another dispatcher")

	// ErrNoTransport is returned when no transport is registered for a job's
	// delivery method. Retrying cannot help, so it is a permanent failure.
	ErrNoTransport = errors.New("no transport registered for delivery method")
)

// TransientError marks a delivery failure worth retrying: provider timeouts,
// 5xx responses, connection resets. The dispatcher requeues these with
// backoff until the retry budget is exhausted.
type TransientError struct {
	err error
}

// Transient wraps err as a retryable delivery failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{err: err}
}

func (e *TransientError) Error() string { return "transient delivery failure: " + e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// PermanentError marks a delivery failure that retrying cannot fix: invalid
// addresses, rejected payloads, provider 4xx responses. The dispatcher fails
// these immediately regardless of remaining retry budget.
type PermanentError struct {
	err error
}

// Permanent wraps err as a non-retryable delivery failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{err: err}
}

func (e *PermanentError) Error() string { return "permanent delivery failure: " + e.err.Error() }
func (e *PermanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err is classified as a permanent delivery failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsTransient reports whether err should be retried. Unclassified errors are
// treated as transient: the retry budget bounds the damage of a wrong guess,
// while misclassifying a recoverable failure as permanent drops it forever.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !IsPermanent(err)
}
