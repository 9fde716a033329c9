package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

// NewCreateCheatMealHandler returns the handler for POST /api/v1/cheat-meals.
// A cheat_meal_analysis job is scheduled for the new entry.
func NewCreateCheatMealHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		var req struct {
			Date        string `json:"date"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		date, ok := parseDate(w, "date", req.Date)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Description) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "description is required", nil)
			return
		}

		now := time.Now().UTC()
		meal := &models.CheatMeal{
			ID:          uuid.New(),
			UserID:      userID,
			Date:        date,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.CreateCheatMeal(r.Context(), meal); err != nil {
			storeError(w, err)
			return
		}

		job, err := svc.ScheduleCheatMealAnalysis(r.Context(), userID, meal.ID)
		if err != nil {
			slog.Warn("scheduling cheat meal analysis", "error", err, "cheat_meal_id", meal.ID)
		} else {
			meal.AnalysisJobID = &job.ID
		}

		invalidate(r, svc, userID, date)
		response.Created(w, meal)
	}
}

// NewListCheatMealsHandler returns the handler for GET /api/v1/cheat-meals.
func NewListCheatMealsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		dr, ok := dateRangeQuery(w, r)
		if !ok {
			return
		}
		meals, err := st.ListCheatMeals(r.Context(), userID, dr)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, meals)
	}
}

// NewGetCheatMealHandler returns the handler for GET /api/v1/cheat-meals/{mealID}.
func NewGetCheatMealHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		mealID, ok := uuidParam(w, r, "mealID")
		if !ok {
			return
		}
		meal, err := st.GetCheatMeal(r.Context(), mealID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, meal)
	}
}

// NewUpdateCheatMealHandler returns the handler for PUT /api/v1/cheat-meals/{mealID}.
func NewUpdateCheatMealHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		mealID, ok := uuidParam(w, r, "mealID")
		if !ok {
			return
		}

		existing, err := st.GetCheatMeal(r.Context(), mealID, userID)
		if err != nil {
			storeError(w, err)
			return
		}

		var req struct {
			Date        string `json:"date"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		date, ok := parseDate(w, "date", req.Date)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Description) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "description is required", nil)
			return
		}

		oldDate := existing.Date
		existing.Date = date
		existing.Description = req.Description
		existing.UpdatedAt = time.Now().UTC()

		if err := st.UpdateCheatMeal(r.Context(), existing); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, oldDate, date)
		response.JSON(w, existing)
	}
}

// NewDeleteCheatMealHandler returns the handler for DELETE /api/v1/cheat-meals/{mealID}.
func NewDeleteCheatMealHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		mealID, ok := uuidParam(w, r, "mealID")
		if !ok {
			return
		}

		existing, err := st.GetCheatMeal(r.Context(), mealID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := st.DeleteCheatMeal(r.Context(), mealID, userID); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, existing.Date)
		response.NoContent(w)
	}
}
