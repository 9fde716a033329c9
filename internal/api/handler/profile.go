package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

// NewCreateProfileEntryHandler returns the handler for POST /api/v1/profile.
// Profile history is append-only; every POST adds a new snapshot.
func NewCreateProfileEntryHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		var req struct {
			Age                 *int     `json:"age"`
			HeightCm            *float64 `json:"height_cm"`
			InitialWeightKg     *float64 `json:"initial_weight_kg"`
			TrainingDaysPerWeek *int     `json:"training_days_per_week"`
			TrainingType        *string  `json:"training_type"`
			ActivityLevel       *string  `json:"activity_level"`
			Notes               *string  `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		entry := &models.ProfileEntry{
			ID:                  uuid.New(),
			UserID:              userID,
			Age:                 req.Age,
			HeightCm:            req.HeightCm,
			InitialWeightKg:     req.InitialWeightKg,
			TrainingDaysPerWeek: req.TrainingDaysPerWeek,
			TrainingType:        req.TrainingType,
			ActivityLevel:       req.ActivityLevel,
			Notes:               req.Notes,
			CreatedAt:           time.Now().UTC(),
		}
		if err := st.CreateProfileEntry(r.Context(), entry); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, entry)
	}
}

// NewListProfileHistoryHandler returns the handler for GET /api/v1/profile.
func NewListProfileHistoryHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		entries, err := st.ListProfileEntries(r.Context(), userID)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, entries)
	}
}
