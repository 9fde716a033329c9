package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/internal/worker"
)

type feedbackEnvelope struct {
	Feedback any    `json:"feedback"`
	Job      any    `json:"job,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	IsStale  *bool  `json:"is_stale,omitempty"`
}

// NewRequestFeedbackHandler returns the handler for POST /api/v1/feedback/weekly.
// The status code mirrors the orchestration outcome: 201 when a new job was
// created, 200 when a fresh artifact was served from the ledger, 202 when a
// job for this week is already running.
func NewRequestFeedbackHandler(svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		var req struct {
			WeekStart string `json:"week_start"`
			WeekEnd   string `json:"week_end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		weekStart, ok := parseDate(w, "week_start", req.WeekStart)
		if !ok {
			return
		}
		weekEnd, ok := parseDate(w, "week_end", req.WeekEnd)
		if !ok {
			return
		}

		result, err := svc.Request(r.Context(), userID, weekStart, weekEnd)
		if err != nil {
			switch {
			case errors.Is(err, feedback.ErrInvalidWindow):
				response.Error(w, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
			case errors.Is(err, worker.ErrQueueFull):
				response.Error(w, http.StatusServiceUnavailable, "QUEUE_FULL",
					"Too many jobs in flight, try again shortly", nil)
			default:
				slog.Error("requesting weekly feedback", "error", err, "user_id", userID)
				storeError(w, err)
			}
			return
		}

		body := feedbackEnvelope{
			Feedback: result.Feedback,
			Job:      result.Job,
			Outcome:  string(result.Outcome),
		}
		switch result.Outcome {
		case feedback.OutcomeCached:
			response.JSON(w, body)
		case feedback.OutcomeInProgress:
			response.Accepted(w, body)
		default:
			response.Created(w, body)
		}
	}
}

// NewListFeedbackHandler returns the handler for GET /api/v1/feedback/weekly.
func NewListFeedbackHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		dr, ok := dateRangeQuery(w, r)
		if !ok {
			return
		}
		feedbacks, err := st.ListWeeklyFeedback(r.Context(), userID, dr)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, feedbacks)
	}
}

// NewGetFeedbackHandler returns the handler for GET /api/v1/feedback/weekly/{feedbackID}.
// The stored fingerprint is re-checked on every read, so a stale artifact is
// reported (and its job marked outdated) even if eager invalidation missed it.
func NewGetFeedbackHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		feedbackID, ok := uuidParam(w, r, "feedbackID")
		if !ok {
			return
		}

		fb, err := st.GetWeeklyFeedback(r.Context(), feedbackID, userID)
		if err != nil {
			storeError(w, err)
			return
		}

		stale, err := svc.CheckStaleness(r.Context(), fb)
		if err != nil {
			slog.Warn("checking feedback staleness", "error", err, "feedback_id", fb.ID)
		}

		response.JSON(w, feedbackEnvelope{Feedback: fb, IsStale: &stale})
	}
}
