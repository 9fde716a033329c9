package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/cache"
	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/internal/worker"
	"github.com/controlfit/controlfit/pkg/models"
)

// NewListJobsHandler returns the handler for GET /api/v1/jobs. An optional
// ?status= filter restricts to one status.
func NewListJobsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		status := models.JobStatus(r.URL.Query().Get("status"))
		if status != "" && !models.ValidStatus(status) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be one of pending, processing, done, failed, outdated", nil)
			return
		}

		jobs, err := st.ListJobs(r.Context(), userID, status)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, jobs)
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}
		job, err := st.GetJob(r.Context(), jobID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewGetJobStatusHandler returns the handler for GET /api/v1/jobs/{jobID}/status.
// Redis answers the common polling case; the database is the fallback and the
// source of truth. Failure detail rides along in either case: polling status is
// the only place a failed job's error reaches the caller.
func NewGetJobStatusHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		// Ownership always has to be checked against the database row, so the
		// error detail is available on the cache path too.
		job, err := st.GetJob(r.Context(), jobID, userID)
		if err != nil {
			storeError(w, err)
			return
		}

		payload := map[string]any{"job_id": job.ID, "status": job.Status, "source": "db"}
		if status, found, err := ca.GetJobStatus(r.Context(), jobID); err == nil && found {
			payload["status"] = status
			payload["source"] = "cache"
		}
		if job.ErrorMessage != nil {
			payload["error"] = *job.ErrorMessage
		}
		response.JSON(w, payload)
	}
}

// NewProcessJobHandler returns the handler for POST /api/v1/jobs/{jobID}/process.
// Pending jobs are re-enqueued; failed jobs are reissued as a fresh job.
func NewProcessJobHandler(svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		job, err := svc.Reprocess(r.Context(), userID, jobID)
		if err != nil {
			switch {
			case errors.Is(err, feedback.ErrJobNotReprocessable):
				response.Error(w, http.StatusConflict, "NOT_REPROCESSABLE",
					"Only pending or failed jobs can be processed", nil)
			case errors.Is(err, worker.ErrQueueFull):
				response.Error(w, http.StatusServiceUnavailable, "QUEUE_FULL",
					"Too many jobs in flight, try again shortly", nil)
			default:
				slog.Error("reprocessing job", "error", err, "job_id", jobID)
				storeError(w, err)
			}
			return
		}
		response.Accepted(w, job)
	}
}
