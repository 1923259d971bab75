package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/preferences"
)

// JobStatus represents where a notification job is in its delivery lifecycle.
//
// Transitions are monotonic: pending -> processing -> {sent, failed, skipped},
// plus processing -> pending on a transient requeue and pending -> cancelled
// while the job has not been claimed. Terminal rows are never deleted, they
// form the delivery audit trail.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSent       JobStatus = "sent"
	StatusFailed     JobStatus = "failed"
	StatusSkipped    JobStatus = "skipped"
	StatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSent, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// NotificationType classifies what kind of outbound notification a job carries.
type NotificationType string

const (
	TypeImmediate NotificationType = "immediate"
	TypeDigest    NotificationType = "digest"
	TypeMilestone NotificationType = "milestone"
)

// Valid checks if the notification type is one of the supported values.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeImmediate, TypeDigest, TypeMilestone:
		return true
	}
	return false
}

// Urgency controls whether quiet hours and mutes apply to a job.
// Urgent jobs bypass both.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
	UrgencyLow    Urgency = "low"
)

// Valid checks if the urgency is one of the supported values.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyLow:
		return true
	}
	return false
}

// DeliveryMethod is the concrete channel a job is delivered on.
type DeliveryMethod string

const (
	MethodEmail    DeliveryMethod = "email"
	MethodSMS      DeliveryMethod = "sms"
	MethodWhatsApp DeliveryMethod = "whatsapp"
	MethodPush     DeliveryMethod = "push"
)

// Valid checks if the delivery method is one of the supported values.
func (m DeliveryMethod) Valid() bool {
	switch m {
	case MethodEmail, MethodSMS, MethodWhatsApp, MethodPush:
		return true
	}
	return false
}

// MethodForChannel maps a preference channel to its delivery method.
func MethodForChannel(c preferences.Channel) DeliveryMethod {
	return DeliveryMethod(c)
}

// Job is a unit of pending outbound notification work.
//
// Content is an opaque payload produced by the digest compiler or the update
// flow; the queue never inspects it. ScheduledFor is set at creation and only
// moves forward, via quiet-hours deferral at enqueue or retry backoff.
type Job struct {
	ID            uuid.UUID        `json:"id"`
	RecipientID   uuid.UUID        `json:"recipient_id"`
	GroupID       uuid.UUID        `json:"group_id"`
	UpdateID      *uuid.UUID       `json:"update_id,omitempty"`
	Type          NotificationType `json:"notification_type"`
	Urgency       Urgency          `json:"urgency_level"`
	Method        DeliveryMethod   `json:"delivery_method"`
	Content       json.RawMessage  `json:"content,omitempty"`
	Status        JobStatus        `json:"status"`
	ScheduledFor  time.Time        `json:"scheduled_for"`
	RetryCount    int8             `json:"retry_count"`
	MaxRetries    int8             `json:"max_retries"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	FailureReason *string          `json:"failure_reason,omitempty"`
	MessageID     *string          `json:"message_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
