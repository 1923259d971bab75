package digest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Frequency determines how often a digest is compiled and delivered.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid checks if the frequency is one of the supported values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Schedule describes when a recipient receives their digest.
//
// DeliveryDay is a weekday name ("Monday") for weekly schedules and a
// day-of-month ("1".."28") for monthly ones; daily schedules ignore it.
// Monthly days are restricted to 1-28 so every month has the configured day
// and end-of-month behavior is never ambiguous.
type Schedule struct {
	RecipientID         uuid.UUID  `json:"recipient_id"`
	GroupID             uuid.UUID  `json:"group_id"`
	Frequency           Frequency  `json:"frequency"`
	DeliveryDay         string     `json:"delivery_day,omitempty"`
	DeliveryTime        string     `json:"delivery_time"`
	Timezone            string     `json:"timezone"`
	IsActive            bool       `json:"is_active"`
	LastDigestSent      *time.Time `json:"last_digest_sent,omitempty"`
	NextDigestScheduled *time.Time `json:"next_digest_scheduled,omitempty"`
	MaxUpdatesPerDigest int        `json:"max_updates_per_digest"`
	IncludeContentTypes []string   `json:"include_content_types,omitempty"`
}

// Validate rejects malformed schedules before they are persisted.
func (s Schedule) Validate() error {
	if !s.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, s.Frequency)
	}
	if _, err := parseClock(s.DeliveryTime); err != nil {
		return fmt.Errorf("%w: delivery time %q", ErrInvalidDeliveryTime, s.DeliveryTime)
	}
	if _, err := loadLocation(s.Timezone); err != nil {
		return err
	}

	switch s.Frequency {
	case FrequencyWeekly:
		if _, err := parseWeekday(s.DeliveryDay); err != nil {
			return err
		}
	case FrequencyMonthly:
		if _, err := parseMonthDay(s.DeliveryDay); err != nil {
			return err
		}
	}
	return nil
}

// NextRun computes the next delivery instant strictly after now, entirely in
// the schedule's timezone. The result is normalized to UTC at this boundary
// so persisted instants are always in the storage timezone.
func NextRun(s Schedule, now time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}

	clock, _ := parseClock(s.DeliveryTime)
	hour, minute := clock/60, clock%60
	loc, _ := loadLocation(s.Timezone)
	local := now.In(loc)

	var next time.Time
	switch s.Frequency {
	case FrequencyDaily:
		next = time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if !next.After(local) {
			next = next.AddDate(0, 0, 1)
		}

	case FrequencyWeekly:
		weekday, _ := parseWeekday(s.DeliveryDay)
		// Days until the target weekday, modulo handles week wraparound.
		daysUntil := (int(weekday) - int(local.Weekday()) + 7) % 7
		next = local.AddDate(0, 0, daysUntil)
		next = time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, loc)
		if !next.After(local) {
			next = next.AddDate(0, 0, 7)
		}

	case FrequencyMonthly:
		day, _ := parseMonthDay(s.DeliveryDay)
		// Days 1-28 exist in every month, so no end-of-month clamping is needed.
		next = time.Date(local.Year(), local.Month(), day, hour, minute, 0, 0, loc)
		if !next.After(local) {
			next = time.Date(local.Year(), local.Month()+1, day, hour, minute, 0, 0, loc)
		}
	}

	return next.UTC(), nil
}

// MarkSent records a completed digest delivery and advances the schedule to
// its next run.
func MarkSent(s *Schedule, now time.Time) error {
	next, err := NextRun(*s, now)
	if err != nil {
		return err
	}

	sent := now.UTC()
	s.LastDigestSent = &sent
	s.NextDigestScheduled = &next
	return nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if name == d.String() {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: weekly delivery day %q, expected a weekday name", ErrInvalidDeliveryDay, name)
}

func parseMonthDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 28 {
		return 0, fmt.Errorf("%w: monthly delivery day %q, expected 1-28", ErrInvalidDeliveryDay, s)
	}
	return day, nil
}
