package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/digest"
	"github.com/colin-rod/tribe-mvp-sub000/pkg/notify"
	"github.com/colin-rod/tribe-mvp-sub000/pkg/preferences"
	"github.com/colin-rod/tribe-mvp-sub000/pkg/quiethours"
)

// stubResolver serves a fixed preference set, letting tests control the
// recipient state without a backing store.
type stubResolver struct {
	eff preferences.EffectivePreferences
	err error
}

func (s *stubResolver) Resolve(_ context.Context, recipientID uuid.UUID) (preferences.EffectivePreferences, error) {
	if s.err != nil {
		return preferences.EffectivePreferences{}, s.err
	}
	eff := s.eff
	eff.RecipientID = recipientID
	return eff, nil
}

// activeQuietWindow builds a window that is open right now regardless of the
// wall clock the test runs at.
func activeQuietWindow() quiethours.Config {
	now := time.Now().UTC()
	return quiethours.Config{
		Enabled:  true,
		Start:    now.Add(-time.Hour).Format("15:04"),
		End:      now.Add(time.Hour).Format("15:04"),
		Timezone: "UTC",
	}
}

func activePrefs() preferences.EffectivePreferences {
	return preferences.EffectivePreferences{
		IsActive: true,
		Channels: []preferences.Channel{preferences.ChannelEmail},
	}
}

func newTestQueue(t *testing.T, resolver *stubResolver) (*notify.Queue, *notify.MemoryStorage) {
	t.Helper()

	storage := notify.NewMemoryStorage()
	q, err := notify.NewQueue(storage, storage, resolver, storage)
	require.NoError(t, err)
	return q, storage
}

func TestQueueEnqueue(t *testing.T) {
	t.Parallel()

	t.Run("creates a pending job scheduled now", func(t *testing.T) {
		t.Parallel()

		q, storage := newTestQueue(t, &stubResolver{eff: activePrefs()})
		before := time.Now()

		jobID, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			GroupID:     uuid.New(),
			Type:        notify.TypeImmediate,
			Content:     json.RawMessage(`{"subject":"hi"}`),
		})
		require.NoError(t, err)

		job, err := storage.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusPending, job.Status)
		assert.Equal(t, notify.MethodEmail, job.Method)
		assert.Equal(t, notify.UrgencyNormal, job.Urgency)
		assert.Equal(t, int8(0), job.RetryCount)
		assert.Equal(t, int8(3), job.MaxRetries)
		assert.False(t, job.ScheduledFor.Before(before.UTC().Truncate(time.Second)))
	})

	t.Run("method defaults to the first effective channel", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.Channels = []preferences.Channel{preferences.ChannelWhatsApp, preferences.ChannelEmail}
		q, storage := newTestQueue(t, &stubResolver{eff: prefs})

		jobID, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeImmediate,
		})
		require.NoError(t, err)

		job, err := storage.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, notify.MethodWhatsApp, job.Method)
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		t.Parallel()

		q, _ := newTestQueue(t, &stubResolver{eff: activePrefs()})
		ctx := context.Background()

		_, err := q.Enqueue(ctx, notify.EnqueueParams{Type: notify.TypeImmediate})
		assert.ErrorIs(t, err, notify.ErrInvalidJobSpec)

		_, err = q.Enqueue(ctx, notify.EnqueueParams{RecipientID: uuid.New(), Type: "carrier_pigeon"})
		assert.ErrorIs(t, err, notify.ErrInvalidJobSpec)

		_, err = q.Enqueue(ctx, notify.EnqueueParams{RecipientID: uuid.New(), Type: notify.TypeImmediate, Urgency: "extreme"})
		assert.ErrorIs(t, err, notify.ErrInvalidJobSpec)

		_, err = q.Enqueue(ctx, notify.EnqueueParams{RecipientID: uuid.New(), Type: notify.TypeImmediate, Method: "fax"})
		assert.ErrorIs(t, err, notify.ErrInvalidJobSpec)
	})

	t.Run("inactive recipient is rejected before persisting", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.IsActive = false
		q, storage := newTestQueue(t, &stubResolver{eff: prefs})
		recipientID := uuid.New()

		_, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: recipientID,
			Type:        notify.TypeImmediate,
		})
		assert.ErrorIs(t, err, notify.ErrRecipientInactive)

		jobs, err := storage.ListJobs(context.Background(), recipientID, notify.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("muted recipient rejects normal urgency", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.IsMuted = true
		q, storage := newTestQueue(t, &stubResolver{eff: prefs})
		recipientID := uuid.New()

		_, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: recipientID,
			Type:        notify.TypeImmediate,
		})
		assert.ErrorIs(t, err, notify.ErrRecipientMuted)

		jobs, err := storage.ListJobs(context.Background(), recipientID, notify.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("urgent notifications pass through a mute", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.IsMuted = true
		q, storage := newTestQueue(t, &stubResolver{eff: prefs})

		jobID, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeMilestone,
			Urgency:     notify.UrgencyUrgent,
		})
		require.NoError(t, err)

		job, err := storage.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusPending, job.Status)
	})

	t.Run("no effective channels", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.Channels = nil
		q, _ := newTestQueue(t, &stubResolver{eff: prefs})

		_, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeImmediate,
		})
		assert.ErrorIs(t, err, notify.ErrNoChannels)
	})

	t.Run("quiet hours defer non-urgent jobs to the window end", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.QuietHours = activeQuietWindow()
		q, storage := newTestQueue(t, &stubResolver{eff: prefs})

		jobID, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeImmediate,
		})
		require.NoError(t, err)

		job, err := storage.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.True(t, job.ScheduledFor.After(time.Now()), "job should be deferred into the future")
	})

	t.Run("urgent jobs ignore quiet hours", func(t *testing.T) {
		t.Parallel()

		prefs := activePrefs()
		prefs.QuietHours = activeQuietWindow()
		q, storage := newTestQueue(t, &stubResolver{eff: prefs})

		jobID, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeImmediate,
			Urgency:     notify.UrgencyUrgent,
		})
		require.NoError(t, err)

		job, err := storage.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		assert.False(t, job.ScheduledFor.After(time.Now()))
	})

	t.Run("digest jobs take the schedule's next run", func(t *testing.T) {
		t.Parallel()

		q, storage := newTestQueue(t, &stubResolver{eff: activePrefs()})
		ctx := context.Background()
		recipientID := uuid.New()
		groupID := uuid.New()

		require.NoError(t, storage.SaveDigestSchedule(ctx, &digest.Schedule{
			RecipientID:  recipientID,
			GroupID:      groupID,
			Frequency:    digest.FrequencyDaily,
			DeliveryTime: "09:00",
			Timezone:     "UTC",
			IsActive:     true,
		}))

		jobID, err := q.Enqueue(ctx, notify.EnqueueParams{
			RecipientID: recipientID,
			GroupID:     groupID,
			Type:        notify.TypeDigest,
		})
		require.NoError(t, err)

		job, err := storage.GetJob(ctx, jobID)
		require.NoError(t, err)
		assert.True(t, job.ScheduledFor.After(time.Now()))
		assert.Equal(t, 9, job.ScheduledFor.UTC().Hour())
		assert.Equal(t, 0, job.ScheduledFor.UTC().Minute())
	})

	t.Run("digest resumes from a persisted future run", func(t *testing.T) {
		t.Parallel()

		q, storage := newTestQueue(t, &stubResolver{eff: activePrefs()})
		ctx := context.Background()
		recipientID := uuid.New()
		groupID := uuid.New()
		persisted := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)

		require.NoError(t, storage.SaveDigestSchedule(ctx, &digest.Schedule{
			RecipientID:         recipientID,
			GroupID:             groupID,
			Frequency:           digest.FrequencyDaily,
			DeliveryTime:        "09:00",
			Timezone:            "UTC",
			IsActive:            true,
			NextDigestScheduled: &persisted,
		}))

		jobID, err := q.Enqueue(ctx, notify.EnqueueParams{
			RecipientID: recipientID,
			GroupID:     groupID,
			Type:        notify.TypeDigest,
		})
		require.NoError(t, err)

		job, err := storage.GetJob(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, persisted, job.ScheduledFor)
	})

	t.Run("digest without a schedule is rejected", func(t *testing.T) {
		t.Parallel()

		q, _ := newTestQueue(t, &stubResolver{eff: activePrefs()})

		_, err := q.Enqueue(context.Background(), notify.EnqueueParams{
			RecipientID: uuid.New(),
			GroupID:     uuid.New(),
			Type:        notify.TypeDigest,
		})
		assert.ErrorIs(t, err, notify.ErrNoDigestSchedule)
	})

	t.Run("digest with an inactive schedule is rejected", func(t *testing.T) {
		t.Parallel()

		q, storage := newTestQueue(t, &stubResolver{eff: activePrefs()})
		ctx := context.Background()
		recipientID := uuid.New()
		groupID := uuid.New()

		require.NoError(t, storage.SaveDigestSchedule(ctx, &digest.Schedule{
			RecipientID:  recipientID,
			GroupID:      groupID,
			Frequency:    digest.FrequencyDaily,
			DeliveryTime: "09:00",
			Timezone:     "UTC",
			IsActive:     false,
		}))

		_, err := q.Enqueue(ctx, notify.EnqueueParams{
			RecipientID: recipientID,
			GroupID:     groupID,
			Type:        notify.TypeDigest,
		})
		assert.ErrorIs(t, err, notify.ErrNoDigestSchedule)
	})
}

func TestQueueCancel(t *testing.T) {
	t.Parallel()

	t.Run("pending job cancels cleanly", func(t *testing.T) {
		t.Parallel()

		q, storage := newTestQueue(t, &stubResolver{eff: activePrefs()})
		ctx := context.Background()

		jobID, err := q.Enqueue(ctx, notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeImmediate,
		})
		require.NoError(t, err)

		require.NoError(t, q.Cancel(ctx, jobID))

		job, err := storage.GetJob(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, notify.StatusCancelled, job.Status)
		assert.NotNil(t, job.ProcessedAt)
	})

	t.Run("claimed job reports a cancellation conflict", func(t *testing.T) {
		t.Parallel()

		q, storage := newTestQueue(t, &stubResolver{eff: activePrefs()})
		ctx := context.Background()

		jobID, err := q.Enqueue(ctx, notify.EnqueueParams{
			RecipientID: uuid.New(),
			Type:        notify.TypeImmediate,
		})
		require.NoError(t, err)
		require.NoError(t, storage.ClaimJob(ctx, jobID))

		assert.ErrorIs(t, q.Cancel(ctx, jobID), notify.ErrJobNotCancellable)
	})

	t.Run("unknown job", func(t *testing.T) {
		t.Parallel()

		q, _ := newTestQueue(t, &stubResolver{eff: activePrefs()})
		assert.ErrorIs(t, q.Cancel(context.Background(), uuid.New()), notify.ErrJobNotFound)
	})
}

func TestQueueQuietHoursQueries(t *testing.T) {
	t.Parallel()

	prefs := activePrefs()
	prefs.QuietHours = quiethours.Config{
		Enabled:  true,
		Start:    "22:00",
		End:      "07:00",
		Timezone: "UTC",
	}
	q, _ := newTestQueue(t, &stubResolver{eff: prefs})
	ctx := context.Background()
	recipientID := uuid.New()

	t.Run("inside the window", func(t *testing.T) {
		now := time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)

		quiet, err := q.IsInQuietHours(ctx, recipientID, now)
		require.NoError(t, err)
		assert.True(t, quiet)

		next, err := q.NextNotificationTime(ctx, recipientID, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 3, 7, 1, 0, 0, time.UTC), next)
	})

	t.Run("outside the window", func(t *testing.T) {
		now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

		quiet, err := q.IsInQuietHours(ctx, recipientID, now)
		require.NoError(t, err)
		assert.False(t, quiet)

		next, err := q.NextNotificationTime(ctx, recipientID, now)
		require.NoError(t, err)
		assert.Equal(t, now, next)
	})
}

func TestNewQueue(t *testing.T) {
	t.Parallel()

	storage := notify.NewMemoryStorage()
	resolver := &stubResolver{eff: activePrefs()}

	_, err := notify.NewQueue(nil, storage, resolver, storage)
	assert.ErrorIs(t, err, notify.ErrRepositoryNil)

	_, err = notify.NewQueue(storage, nil, resolver, storage)
	assert.ErrorIs(t, err, notify.ErrRepositoryNil)

	_, err = notify.NewQueue(storage, storage, nil, storage)
	assert.ErrorIs(t, err, notify.ErrResolverNil)
}
