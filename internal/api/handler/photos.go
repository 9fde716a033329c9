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

// NewCreatePhotoHandler returns the handler for POST /api/v1/photos. The photo
// row is created first, then a photo_analysis job is scheduled against it.
func NewCreatePhotoHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		var req struct {
			Date        string  `json:"date"`
			FilePath    string  `json:"file_path"`
			FileName    string  `json:"file_name"`
			IsBestState bool    `json:"is_best_state"`
			UserNotes   *string `json:"user_notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		date, ok := parseDate(w, "date", req.Date)
		if !ok {
			return
		}
		if strings.TrimSpace(req.FilePath) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "file_path is required", nil)
			return
		}

		now := time.Now().UTC()
		photo := &models.Photo{
			ID:          uuid.New(),
			UserID:      userID,
			Date:        date,
			FilePath:    req.FilePath,
			FileName:    req.FileName,
			IsBestState: req.IsBestState,
			UserNotes:   req.UserNotes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.CreatePhoto(r.Context(), photo); err != nil {
			storeError(w, err)
			return
		}

		job, err := svc.SchedulePhotoAnalysis(r.Context(), userID, photo.ID)
		if err != nil {
			// The photo exists but analysis could not be scheduled; it can be
			// retried via the jobs API once a job row exists, or by re-upload.
			slog.Warn("scheduling photo analysis", "error", err, "photo_id", photo.ID)
		} else {
			photo.AnalysisJobID = &job.ID
		}

		invalidate(r, svc, userID, date)
		response.Created(w, photo)
	}
}

// NewListPhotosHandler returns the handler for GET /api/v1/photos.
func NewListPhotosHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		dr, ok := dateRangeQuery(w, r)
		if !ok {
			return
		}
		photos, err := st.ListPhotos(r.Context(), userID, dr)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, photos)
	}
}

// NewGetPhotoHandler returns the handler for GET /api/v1/photos/{photoID}.
func NewGetPhotoHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		photoID, ok := uuidParam(w, r, "photoID")
		if !ok {
			return
		}
		photo, err := st.GetPhoto(r.Context(), photoID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, photo)
	}
}

// NewUpdatePhotoHandler returns the handler for PUT /api/v1/photos/{photoID}.
// Only user-editable fields change here; body-fat fields belong to the
// analysis job.
func NewUpdatePhotoHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		photoID, ok := uuidParam(w, r, "photoID")
		if !ok {
			return
		}

		existing, err := st.GetPhoto(r.Context(), photoID, userID)
		if err != nil {
			storeError(w, err)
			return
		}

		var req struct {
			Date        string  `json:"date"`
			IsBestState bool    `json:"is_best_state"`
			UserNotes   *string `json:"user_notes"`
		}
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
		existing.IsBestState = req.IsBestState
		existing.UserNotes = req.UserNotes
		existing.UpdatedAt = time.Now().UTC()

		if err := st.UpdatePhoto(r.Context(), existing); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, oldDate, date)
		response.JSON(w, existing)
	}
}

// NewDeletePhotoHandler returns the handler for DELETE /api/v1/photos/{photoID}.
func NewDeletePhotoHandler(st store.Store, svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		photoID, ok := uuidParam(w, r, "photoID")
		if !ok {
			return
		}

		existing, err := st.GetPhoto(r.Context(), photoID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := st.DeletePhoto(r.Context(), photoID, userID); err != nil {
			storeError(w, err)
			return
		}

		invalidate(r, svc, userID, existing.Date)
		response.NoContent(w)
	}
}
