package digest_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
)

func weeklySchedule() digest.Schedule {
	return digest.Schedule{
		RecipientID:  uuid.New(),
		GroupID:      uuid.New(),
		Frequency:    digest.FrequencyWeekly,
		DeliveryDay:  "Monday",
		DeliveryTime: "09:00",
		Timezone:     "UTC",
		IsActive:     true,
	}
}

func TestScheduleValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid weekly schedule", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, weeklySchedule().Validate())
	})

	t.Run("invalid frequency", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = "hourly"
		assert.ErrorIs(t, s.Validate(), digest.ErrInvalidFrequency)
	})

	t.Run("invalid delivery time", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.DeliveryTime = "24:30"
		assert.ErrorIs(t, s.Validate(), digest.ErrInvalidDeliveryTime)
	})

	t.Run("weekly requires a weekday name", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.DeliveryDay = "Someday"
		assert.ErrorIs(t, s.Validate(), digest.ErrInvalidDeliveryDay)
	})

	t.Run("monthly day must be 1-28", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = digest.FrequencyMonthly

		for _, bad := range []string{"0", "29", "31", "first"} {
			s.DeliveryDay = bad
			assert.ErrorIs(t, s.Validate(), digest.ErrInvalidDeliveryDay, "day %q", bad)
		}

		s.DeliveryDay = "28"
		assert.NoError(t, s.Validate())
	})

	t.Run("invalid timezone", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Timezone = "Atlantis/Capital"
		assert.ErrorIs(t, s.Validate(), digest.ErrInvalidTimezone)
	})
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	t.Run("daily before delivery time runs the same day", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = digest.FrequencyDaily
		now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("daily at or past delivery time runs the next day", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = digest.FrequencyDaily
		now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("weekly from tuesday lands the following monday", func(t *testing.T) {
		t.Parallel()

		// 2024-01-02 is a Tuesday; the Monday 09:00 run is six days later.
		s := weeklySchedule()
		now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("weekly on the delivery day before the clock runs today", func(t *testing.T) {
		t.Parallel()

		// 2024-01-08 is a Monday.
		s := weeklySchedule()
		now := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("weekly on the delivery day past the clock waits a full week", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("monthly rolls into the next month", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = digest.FrequencyMonthly
		s.DeliveryDay = "15"
		now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("monthly day 28 works across february", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = digest.FrequencyMonthly
		s.DeliveryDay = "28"
		now := time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 28, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("computed in the schedule timezone, returned in UTC", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.Frequency = digest.FrequencyDaily
		s.Timezone = "Asia/Tokyo" // UTC+9, no DST

		// 02:00 UTC is 11:00 in Tokyo, past the 09:00 slot, so the run is
		// tomorrow 09:00 Tokyo = 00:00 UTC.
		now := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)

		next, err := digest.NextRun(s, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.UTC, next.Location())
	})

	t.Run("invalid schedule is rejected", func(t *testing.T) {
		t.Parallel()

		s := weeklySchedule()
		s.DeliveryDay = "Noday"

		_, err := digest.NextRun(s, time.Now())
		assert.ErrorIs(t, err, digest.ErrInvalidDeliveryDay)
	})
}

func TestMarkSent(t *testing.T) {
	t.Parallel()

	s := weeklySchedule()
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, digest.MarkSent(&s, now))

	require.NotNil(t, s.LastDigestSent)
	assert.Equal(t, now, *s.LastDigestSent)
	require.NotNil(t, s.NextDigestScheduled)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), *s.NextDigestScheduled)
}
