package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

type dailyLogRequest struct {
	Date           string   `json:"date"`
	WeightKg       *float64 `json:"weight_kg"`
	SleepHours     *float64 `json:"sleep_hours"`
	TrainingDone   bool     `json:"training_done"`
	Calories       *int     `json:"calories"`
	CaloriesSource *string  `json:"calories_source"`
	Notes          *string  `json:"notes"`
}

// NewCreateDailyLogHandler returns the handler for POST /api/v1/daily-logs.
// A second log for the same date is rejected with 409; days are edited, not
// duplicated.
func NewCreateDailyLogHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		var req dailyLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		date, ok := parseDate(w, "date", req.Date)
		if !ok {
			return
		}

		now := time.Now().UTC()
		log := &models.DailyLog{
			ID:             uuid.New(),
			UserID:         userID,
			Date:           date,
			WeightKg:       req.WeightKg,
			SleepHours:     req.SleepHours,
			TrainingDone:   req.TrainingDone,
			Calories:       req.Calories,
			CaloriesSource: req.CaloriesSource,
			Notes:          req.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := st.CreateDailyLog(r.Context(), log); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, date)
		response.Created(w, log)
	}
}

// NewListDailyLogsHandler returns the handler for GET /api/v1/daily-logs.
func NewListDailyLogsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		dr, ok := dateRangeQuery(w, r)
		if !ok {
			return
		}
		logs, err := st.ListDailyLogs(r.Context(), userID, dr)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, logs)
	}
}

// NewGetDailyLogHandler returns the handler for GET /api/v1/daily-logs/{logID}.
func NewGetDailyLogHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		logID, ok := uuidParam(w, r, "logID")
		if !ok {
			return
		}
		log, err := st.GetDailyLog(r.Context(), logID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, log)
	}
}

// NewUpdateDailyLogHandler returns the handler for PUT /api/v1/daily-logs/{logID}.
// When the date itself moves, feedback covering both the old and new date is
// invalidated.
func NewUpdateDailyLogHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		logID, ok := uuidParam(w, r, "logID")
		if !ok {
			return
		}

		existing, err := st.GetDailyLog(r.Context(), logID, userID)
		if err != nil {
			storeError(w, err)
			return
		}

		var req dailyLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		date, ok := parseDate(w, "date", req.Date)
		if !ok {
			return
		}

		oldDate := existing.Date
		existing.Date = date
		existing.WeightKg = req.WeightKg
		existing.SleepHours = req.SleepHours
		existing.TrainingDone = req.TrainingDone
		existing.Calories = req.Calories
		existing.CaloriesSource = req.CaloriesSource
		existing.Notes = req.Notes
		existing.UpdatedAt = time.Now().UTC()

		if err := st.UpdateDailyLog(r.Context(), existing); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, oldDate, date)
		response.JSON(w, existing)
	}
}

// NewDeleteDailyLogHandler returns the handler for DELETE /api/v1/daily-logs/{logID}.
func NewDeleteDailyLogHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		logID, ok := uuidParam(w, r, "logID")
		if !ok {
			return
		}

		existing, err := st.GetDailyLog(r.Context(), logID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := st.DeleteDailyLog(r.Context(), logID, userID); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, existing.Date)
		response.NoContent(w)
	}
}

// invalidate marks feedback covering the given dates as outdated. The mutation
// already committed, so a failure here is logged rather than surfaced; the
// fingerprint check on read catches anything missed.
func invalidate(r *http.Request, svc *feedback.Service, userID uuid.UUID, dates ...time.Time) {
	if _, err := svc.Invalidate(r.Context(), userID, dates...); err != nil {
		slog.Warn("invalidating feedback", "error", err, "user_id", userID)
	}
}
