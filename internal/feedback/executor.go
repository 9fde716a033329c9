package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/internal/cache"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

// Executor runs one job at a time from the worker pool. It owns the
// pending->processing->done|failed transitions; nothing else advances a job
// along that path.
type Executor struct {
	store    store.Store
	cache    cache.Cache
	provider models.AIProvider
	timeout  time.Duration
}

// NewExecutor creates an Executor. timeout bounds each AI inference call, not
// the whole job.
func NewExecutor(st store.Store, ca cache.Cache, provider models.AIProvider, timeout time.Duration) *Executor {
	return &Executor{store: st, cache: ca, provider: provider, timeout: timeout}
}

// Process claims and runs a single job. A job that is no longer pending is
// skipped silently: either another worker claimed it or it was cancelled.
// Process never returns an error to the pool; failures are recorded on the
// job row.
func (e *Executor) Process(ctx context.Context, jobID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic processing job", "error", r, "job_id", jobID)
			e.fail(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	job, err := e.store.GetJobByID(ctx, jobID)
	if err != nil {
		slog.Error("fetching job", "error", err, "job_id", jobID)
		return
	}

	claimed, err := e.store.TransitionJob(ctx, jobID, models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		slog.Error("claiming job", "error", err, "job_id", jobID)
		return
	}
	if !claimed {
		slog.Debug("job not pending, skipping", "job_id", jobID, "status", job.Status)
		return
	}
	_ = e.cache.SetJobStatus(ctx, jobID, models.JobStatusProcessing, jobStatusTTL)

	var result json.RawMessage
	switch job.Kind {
	case models.JobKindWeeklyFeedback:
		result, err = e.runWeeklyFeedback(ctx, job)
	case models.JobKindPhotoAnalysis:
		result, err = e.runPhotoAnalysis(ctx, job)
	case models.JobKindCheatMealAnalysis:
		result, err = e.runCheatMealAnalysis(ctx, job)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err != nil {
		slog.Error("job failed", "error", err, "job_id", jobID, "kind", job.Kind)
		e.fail(ctx, jobID, err.Error())
		return
	}

	opts := []store.JobUpdateOption{}
	if result != nil {
		opts = append(opts, store.WithResultData(result))
	}
	if _, err := e.store.TransitionJob(ctx, jobID, models.JobStatusProcessing, models.JobStatusDone, opts...); err != nil {
		slog.Error("completing job", "error", err, "job_id", jobID)
		return
	}
	_ = e.cache.SetJobStatus(ctx, jobID, models.JobStatusDone, jobStatusTTL)
	slog.Info("job completed", "job_id", jobID, "kind", job.Kind)
}

func (e *Executor) fail(ctx context.Context, jobID uuid.UUID, msg string) {
	_, _ = e.store.TransitionJob(ctx, jobID, models.JobStatusProcessing, models.JobStatusFailed,
		store.WithErrorMessage(msg))
	_ = e.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, jobStatusTTL)
}

// runWeeklyFeedback computes the deterministic metrics for the job's window,
// asks the provider for interpretation, and writes both onto the feedback row
// linked to this job.
func (e *Executor) runWeeklyFeedback(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	var input models.WeeklyFeedbackInput
	if err := json.Unmarshal(job.InputData, &input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	weekStart, err := time.Parse(DateLayout, input.WeekStart)
	if err != nil {
		return nil, fmt.Errorf("parse week start: %w", err)
	}
	weekEnd, err := time.Parse(DateLayout, input.WeekEnd)
	if err != nil {
		return nil, fmt.Errorf("parse week end: %w", err)
	}

	fb, err := e.store.GetWeeklyFeedbackByWeek(ctx, job.UserID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("fetching feedback row: %w", err)
	}
	// The row may have been relinked to a newer job while this one waited in
	// the queue. Writing results would clobber the newer generation.
	if fb.GenerationJobID == nil || *fb.GenerationJobID != job.ID {
		return nil, fmt.Errorf("feedback row no longer linked to this job")
	}

	window := store.DateRange{Start: weekStart, End: weekEnd}
	logs, err := e.store.ListDailyLogs(ctx, job.UserID, window)
	if err != nil {
		return nil, fmt.Errorf("listing daily logs: %w", err)
	}
	photos, err := e.store.ListPhotos(ctx, job.UserID, window)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	meals, err := e.store.ListCheatMeals(ctx, job.UserID, window)
	if err != nil {
		return nil, fmt.Errorf("listing cheat meals: %w", err)
	}

	metrics := ComputeWeeklyMetrics(logs)
	trend := ComputeWeightTrend(logs)
	bodyFat := AnalyzeBodyFat(photos)

	profile, err := e.store.GetProfileAt(ctx, job.UserID, weekEnd)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	interp, err := e.provider.InterpretWeek(aiCtx, models.WeeklyInterpretationRequest{
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
		Metrics:     metrics,
		WeightTrend: trend,
		BodyFat:     bodyFat,
		Profile:     profile,
		CheatMeals:  meals,
	})
	interpPtr := &interp
	if err != nil {
		if !errors.Is(err, models.ErrUnsupported) {
			return nil, fmt.Errorf("interpreting week: %w", err)
		}
		// Provider can't narrate; keep the deterministic metrics and leave
		// interpretive fields null.
		interpPtr = nil
	}

	if err := e.store.UpdateWeeklyFeedbackResults(ctx, fb.ID, metrics, bodyFat.Summary, interpPtr); err != nil {
		return nil, fmt.Errorf("storing results: %w", err)
	}

	providerName := ""
	if interpPtr != nil {
		providerName = e.provider.Name()
	}

	result, err := json.Marshal(struct {
		FeedbackID  uuid.UUID            `json:"feedback_id"`
		Metrics     models.WeeklyMetrics `json:"metrics"`
		WeightTrend models.WeightTrend   `json:"weight_trend"`
		Provider    string               `json:"provider,omitempty"`
	}{
		FeedbackID:  fb.ID,
		Metrics:     metrics,
		WeightTrend: trend,
		Provider:    providerName,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return result, nil
}

// runPhotoAnalysis asks the provider for a body-fat estimate and writes it onto
// the photo. Providers without vision support skip the estimate; the job still
// completes so the photo is not retried forever.
func (e *Executor) runPhotoAnalysis(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	var input models.PhotoAnalysisInput
	if err := json.Unmarshal(job.InputData, &input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}

	photo, err := e.store.GetPhoto(ctx, input.PhotoID, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetching photo: %w", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	estimate, err := e.provider.EstimateBodyFat(aiCtx, models.BodyFatRequest{
		FilePath:  photo.FilePath,
		FileName:  photo.FileName,
		Date:      photo.Date,
		UserNotes: photo.UserNotes,
	})
	if err != nil {
		if errors.Is(err, models.ErrUnsupported) {
			return json.Marshal(map[string]any{"skipped": true, "reason": "provider does not support body fat estimation"})
		}
		return nil, fmt.Errorf("estimating body fat: %w", err)
	}

	if err := e.store.SetPhotoBodyFat(ctx, photo.ID, estimate.Min, estimate.Max, estimate.Confidence); err != nil {
		return nil, fmt.Errorf("storing estimate: %w", err)
	}
	return json.Marshal(estimate)
}

// runCheatMealAnalysis asks the provider for an impact estimate and writes it
// onto the cheat meal. Same skip semantics as photo analysis.
func (e *Executor) runCheatMealAnalysis(ctx context.Context, job *models.Job) (json.RawMessage, error) {
	var input models.CheatMealAnalysisInput
	if err := json.Unmarshal(job.InputData, &input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}

	meal, err := e.store.GetCheatMeal(ctx, input.CheatMealID, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetching cheat meal: %w", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	impact, err := e.provider.InterpretCheatMeal(aiCtx, models.CheatMealRequest{
		Date:        meal.Date,
		Description: meal.Description,
	})
	if err != nil {
		if errors.Is(err, models.ErrUnsupported) {
			return json.Marshal(map[string]any{"skipped": true, "reason": "provider does not support cheat meal interpretation"})
		}
		return nil, fmt.Errorf("interpreting cheat meal: %w", err)
	}

	if err := e.store.SetCheatMealImpact(ctx, meal.ID, impact); err != nil {
		return nil, fmt.Errorf("storing impact: %w", err)
	}
	return json.Marshal(map[string]string{"estimated_impact": impact})
}
