package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/notify"
)

// Handler serves the notification queue's HTTP surface: job status, the
// per-recipient delivery log, quiet hours state and job cancellation.
type Handler struct {
	queue  *notify.Queue
	logger *slog.Logger
}

// NewHandler creates the HTTP handler over the queue API.
func NewHandler(queue *notify.Queue, logger *slog.Logger) (*Handler, error) {
	if queue == nil {
		return nil, errors.New("queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{queue: queue, logger: logger}, nil
}

// GetJob returns a single job by id.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.queue.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, notify.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load job",
			slog.String("job_id", jobID.String()), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// CancelJob cancels a still-pending job. Conflicts with dispatch report 409.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.queue.Cancel(r.Context(), jobID); err != nil {
		switch {
		case errors.Is(err, notify.ErrJobNotFound):
			respondError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, notify.ErrJobNotCancellable):
			respondError(w, http.StatusConflict, "job is already in flight or settled")
		default:
			h.logger.ErrorContext(r.Context(), "failed to cancel job",
				slog.String("job_id", jobID.String()), slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListJobs returns a recipient's delivery log, newest first. Supports
// status, since, limit and offset query parameters.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	recipientID, err := uuid.Parse(chi.URLParam(r, "recipientID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	opts, err := listOptionsFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.queue.History(r.Context(), recipientID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list jobs",
			slog.String("recipient_id", recipientID.String()), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// QuietHoursStatus reports whether the recipient is currently inside a quiet
// window and the earliest instant a non-urgent notification could go out.
func (h *Handler) QuietHoursStatus(w http.ResponseWriter, r *http.Request) {
	recipientID, err := uuid.Parse(chi.URLParam(r, "recipientID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}

	now := time.Now()
	quiet, err := h.queue.IsInQuietHours(r.Context(), recipientID, now)
	if err != nil {
		h.respondResolveError(w, r, recipientID, err)
		return
	}

	next, err := h.queue.NextNotificationTime(r.Context(), recipientID, now)
	if err != nil {
		h.respondResolveError(w, r, recipientID, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"is_quiet":               quiet,
		"next_notification_time": next,
	})
}

func (h *Handler) respondResolveError(w http.ResponseWriter, r *http.Request, recipientID uuid.UUID, err error) {
	h.logger.ErrorContext(r.Context(), "failed to resolve recipient state",
		slog.String("recipient_id", recipientID.String()), slog.Any("error", err))
	respondError(w, http.StatusInternalServerError, "failed to resolve recipient state")
}

func listOptionsFromQuery(r *http.Request) (notify.ListOptions, error) {
	var opts notify.ListOptions

	for _, raw := range r.URL.Query()["status"] {
		status := notify.JobStatus(raw)
		switch status {
		case notify.StatusPending, notify.StatusProcessing, notify.StatusSent,
			notify.StatusFailed, notify.StatusSkipped, notify.StatusCancelled:
			opts.Statuses = append(opts.Statuses, status)
		default:
			return opts, errors.New("invalid status filter: " + raw)
		}
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, errors.New("since must be RFC 3339")
		}
		opts.Since = &since
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return opts, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = limit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return opts, errors.New("offset must be a non-negative integer")
		}
		opts.Offset = offset
	}

	return opts, nil
}
