package preferences

import (
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/quiethours"
)

// Channel is a delivery channel a recipient can be notified on.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
)

// Valid checks if the channel is one of the supported values.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush:
		return true
	}
	return false
}

// Frequency is how often a recipient wants to hear about update activity.
type Frequency string

const (
	FrequencyEveryUpdate    Frequency = "every_update"
	FrequencyDailyDigest    Frequency = "daily_digest"
	FrequencyWeeklyDigest   Frequency = "weekly_digest"
	FrequencyMilestonesOnly Frequency = "milestones_only"
)

// Source records which layer an effective preference set was computed from.
type Source string

const (
	SourceRecipientOverride Source = "recipient-override"
	SourceGroupDefault      Source = "group-default"
)

// Recipient is the per-person preference record, read from external storage.
// When OverridesGroupDefault is false the channel, content-type and frequency
// fields are ignored and the owning group's defaults apply.
type Recipient struct {
	ID                    uuid.UUID         `json:"id"`
	GroupID               uuid.UUID         `json:"group_id"`
	IsActive              bool              `json:"is_active"`
	OverridesGroupDefault bool              `json:"overrides_group_default"`
	Channels              []Channel         `json:"channels,omitempty"`
	ContentTypes          []string          `json:"content_types,omitempty"`
	Frequency             Frequency         `json:"frequency,omitempty"`
	MutedUntil            *time.Time        `json:"muted_until,omitempty"`
	QuietHours            quiethours.Config `json:"quiet_hours"`
}

// GroupDefaults holds the group-level fallback preferences.
type GroupDefaults struct {
	GroupID      uuid.UUID `json:"group_id"`
	Channels     []Channel `json:"channels"`
	ContentTypes []string  `json:"content_types"`
	Frequency    Frequency `json:"frequency"`
}

// EffectivePreferences is the merged preference set used by the notification
// queue. CacheVersion and ExpiresAt describe the cache entry's validity: an
// entry behind the authoritative version counter or past its expiry is never
// served, it is recomputed first.
type EffectivePreferences struct {
	RecipientID  uuid.UUID  `json:"recipient_id"`
	GroupID      uuid.UUID  `json:"group_id"`
	IsActive     bool       `json:"is_active"`
	Channels     []Channel  `json:"channels"`
	ContentTypes []string   `json:"content_types"`
	Frequency    Frequency  `json:"frequency"`
	IsMuted      bool       `json:"is_muted"`
	MutedUntil   *time.Time `json:"muted_until,omitempty"`
	QuietHours   quiethours.Config
	Source       Source    `json:"source"`
	CacheVersion uint64    `json:"cache_version"`
	ExpiresAt    time.Time `json:"cache_expires_at"`
}
