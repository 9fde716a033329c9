// Package feedback holds the weekly-feedback core: deterministic metric
// aggregation, content fingerprinting of contributing records, the request
// orchestration protocol, eager invalidation, and the background executor.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/internal/cache"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

// DateLayout is the wire format for dates in job payloads and the API.
const DateLayout = "2006-01-02"

const jobStatusTTL = 30 * time.Minute

// Outcome tells the caller how a feedback request was resolved.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeCached     Outcome = "cached"
	OutcomeInProgress Outcome = "in_progress"
)

// Queue hands jobs off for background execution. The request path only
// enqueues; it never waits for the job to run.
type Queue interface {
	Enqueue(jobID uuid.UUID) error
}

// RequestResult bundles the artifact, its generation job, and how the request
// was resolved, so callers can poll the job when the artifact is not ready.
type RequestResult struct {
	Feedback *models.WeeklyFeedback
	Job      *models.Job
	Outcome  Outcome
}

// Service coordinates feedback requests against the shared job/feedback ledger
// and invalidates artifacts when contributing records change.
type Service struct {
	store store.Store
	cache cache.Cache
	queue Queue
}

// NewService creates a feedback Service.
func NewService(st store.Store, ca cache.Cache, q Queue) *Service {
	return &Service{store: st, cache: ca, queue: q}
}

// Request implements the feedback request protocol for (userID, weekStart,
// weekEnd): reuse a fresh artifact, report one already being generated, or
// create a new job + artifact row and enqueue it.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (*RequestResult, error) {
	if err := validateWindow(weekStart, weekEnd); err != nil {
		return nil, err
	}
	return s.request(ctx, userID, weekStart, weekEnd, true)
}

func (s *Service) request(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time, retryOnConflict bool) (*RequestResult, error) {
	existing, err := s.store.GetWeeklyFeedbackByWeek(ctx, userID, weekStart)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	logIDs, photoIDs, mealIDs, err := s.contributingIDs(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	hash := DataHash(logIDs, photoIDs, mealIDs)

	if existing != nil {
		invalidated := false
		if existing.DataHash != "" && existing.DataHash != hash && existing.GenerationJobID != nil {
			if _, err := s.store.TransitionJob(ctx, *existing.GenerationJobID,
				models.JobStatusDone, models.JobStatusOutdated); err != nil {
				return nil, err
			}
			invalidated = true
		}

		var job *models.Job
		if existing.GenerationJobID != nil {
			job, err = s.store.GetJobByID(ctx, *existing.GenerationJobID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}

		if job != nil {
			switch {
			case !invalidated && job.Status == models.JobStatusDone:
				return &RequestResult{Feedback: existing, Job: job, Outcome: OutcomeCached}, nil
			case job.Status == models.JobStatusPending || job.Status == models.JobStatusProcessing:
				return &RequestResult{Feedback: existing, Job: job, Outcome: OutcomeInProgress}, nil
			}
		}

		// Outdated, failed, or missing job: regenerate in place, keeping the
		// (user, week) key.
		newJob, err := s.createWeeklyJob(ctx, userID, weekStart, weekEnd, logIDs, photoIDs, mealIDs)
		if err != nil {
			return nil, err
		}
		if err := s.store.ResetWeeklyFeedbackForRegeneration(ctx, existing.ID, hash, newJob.ID); err != nil {
			return nil, err
		}
		refreshed, err := s.store.GetWeeklyFeedbackByWeek(ctx, userID, weekStart)
		if err != nil {
			return nil, err
		}
		if err := s.dispatch(ctx, newJob); err != nil {
			return nil, err
		}
		return &RequestResult{Feedback: refreshed, Job: newJob, Outcome: OutcomeCreated}, nil
	}

	newJob, err := s.createWeeklyJob(ctx, userID, weekStart, weekEnd, logIDs, photoIDs, mealIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fb := &models.WeeklyFeedback{
		ID:              uuid.New(),
		UserID:          userID,
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		DataHash:        hash,
		GenerationJobID: &newJob.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateWeeklyFeedback(ctx, fb); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) && retryOnConflict {
			// A concurrent request won the insert race. Its row is the truth
			// now; re-run the read-decide step once against it. Our job row
			// stays pending and unreferenced, which is harmless and auditable.
			return s.request(ctx, userID, weekStart, weekEnd, false)
		}
		return nil, err
	}

	if err := s.dispatch(ctx, newJob); err != nil {
		return nil, err
	}
	return &RequestResult{Feedback: fb, Job: newJob, Outcome: OutcomeCreated}, nil
}

// Invalidate marks every done feedback-generation job whose week contains any
// of the given dates as outdated. Dates mapping to the same week are deduped,
// and jobs not currently done are skipped, so the call is idempotent. Returns
// the number of jobs actually transitioned.
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID, dates ...time.Time) (int, error) {
	seen := make(map[uuid.UUID]struct{})
	count := 0

	for _, date := range dates {
		feedbacks, err := s.store.ListWeeklyFeedbackCoveringDate(ctx, userID, date)
		if err != nil {
			return count, err
		}
		for _, fb := range feedbacks {
			if fb.GenerationJobID == nil {
				continue
			}
			if _, dup := seen[fb.ID]; dup {
				continue
			}
			seen[fb.ID] = struct{}{}

			transitioned, err := s.store.TransitionJob(ctx, *fb.GenerationJobID,
				models.JobStatusDone, models.JobStatusOutdated)
			if err != nil {
				return count, err
			}
			if transitioned {
				_ = s.cache.SetJobStatus(ctx, *fb.GenerationJobID, models.JobStatusOutdated, jobStatusTTL)
				count++
			}
		}
	}
	return count, nil
}

// CheckStaleness lazily compares the stored fingerprint against current data
// and, when they diverge, forces the generation job to outdated. Returns true
// if the artifact was found stale.
func (s *Service) CheckStaleness(ctx context.Context, fb *models.WeeklyFeedback) (bool, error) {
	if fb.DataHash == "" {
		return false, nil
	}

	logIDs, photoIDs, mealIDs, err := s.contributingIDs(ctx, fb.UserID, fb.WeekStart, fb.WeekEnd)
	if err != nil {
		return false, err
	}
	if DataHash(logIDs, photoIDs, mealIDs) == fb.DataHash {
		return false, nil
	}

	if fb.GenerationJobID != nil {
		transitioned, err := s.store.TransitionJob(ctx, *fb.GenerationJobID,
			models.JobStatusDone, models.JobStatusOutdated)
		if err != nil {
			return false, err
		}
		if transitioned {
			_ = s.cache.SetJobStatus(ctx, *fb.GenerationJobID, models.JobStatusOutdated, jobStatusTTL)
		}
	}
	return true, nil
}

// SchedulePhotoAnalysis creates and enqueues a photo_analysis job for an
// existing photo and links the photo to it.
func (s *Service) SchedulePhotoAnalysis(ctx context.Context, userID, photoID uuid.UUID) (*models.Job, error) {
	input, err := json.Marshal(models.PhotoAnalysisInput{PhotoID: photoID})
	if err != nil {
		return nil, fmt.Errorf("marshal photo analysis input: %w", err)
	}

	job, err := s.createJob(ctx, userID, models.JobKindPhotoAnalysis, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPhotoAnalysisJob(ctx, photoID, job.ID); err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ScheduleCheatMealAnalysis creates and enqueues a cheat_meal_analysis job for
// an existing cheat meal and links the meal to it.
func (s *Service) ScheduleCheatMealAnalysis(ctx context.Context, userID, mealID uuid.UUID) (*models.Job, error) {
	input, err := json.Marshal(models.CheatMealAnalysisInput{CheatMealID: mealID})
	if err != nil {
		return nil, fmt.Errorf("marshal cheat meal analysis input: %w", err)
	}

	job, err := s.createJob(ctx, userID, models.JobKindCheatMealAnalysis, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetCheatMealAnalysisJob(ctx, mealID, job.ID); err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Reprocess re-runs a pending job or reissues a failed one as a new job.
// Failed jobs are never resumed in place; a fresh job row carries the work.
func (s *Service) Reprocess(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case models.JobStatusPending:
		if err := s.dispatch(ctx, job); err != nil {
			return nil, err
		}
		return job, nil

	case models.JobStatusFailed:
		replacement, err := s.createJob(ctx, userID, job.Kind, job.InputData)
		if err != nil {
			return nil, err
		}
		if err := s.relink(ctx, job, replacement); err != nil {
			return nil, err
		}
		if err := s.dispatch(ctx, replacement); err != nil {
			return nil, err
		}
		return replacement, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrJobNotReprocessable, job.Status)
	}
}

// relink points the record that referenced the failed job at its replacement.
func (s *Service) relink(ctx context.Context, failed, replacement *models.Job) error {
	switch failed.Kind {
	case models.JobKindWeeklyFeedback:
		var input models.WeeklyFeedbackInput
		if err := json.Unmarshal(failed.InputData, &input); err != nil {
			return fmt.Errorf("unmarshal weekly feedback input: %w", err)
		}
		weekStart, err := time.Parse(DateLayout, input.WeekStart)
		if err != nil {
			return fmt.Errorf("parse week start: %w", err)
		}
		fb, err := s.store.GetWeeklyFeedbackByWeek(ctx, failed.UserID, weekStart)
		if err != nil {
			return err
		}
		return s.store.ResetWeeklyFeedbackForRegeneration(ctx, fb.ID, fb.DataHash, replacement.ID)

	case models.JobKindPhotoAnalysis:
		var input models.PhotoAnalysisInput
		if err := json.Unmarshal(failed.InputData, &input); err != nil {
			return fmt.Errorf("unmarshal photo analysis input: %w", err)
		}
		return s.store.SetPhotoAnalysisJob(ctx, input.PhotoID, replacement.ID)

	case models.JobKindCheatMealAnalysis:
		var input models.CheatMealAnalysisInput
		if err := json.Unmarshal(failed.InputData, &input); err != nil {
			return fmt.Errorf("unmarshal cheat meal analysis input: %w", err)
		}
		return s.store.SetCheatMealAnalysisJob(ctx, input.CheatMealID, replacement.ID)
	}
	return nil
}

func (s *Service) createWeeklyJob(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time, logIDs, photoIDs, mealIDs []uuid.UUID) (*models.Job, error) {
	input, err := json.Marshal(models.WeeklyFeedbackInput{
		WeekStart:    weekStart.Format(DateLayout),
		WeekEnd:      weekEnd.Format(DateLayout),
		LogIDs:       logIDs,
		PhotoIDs:     photoIDs,
		CheatMealIDs: mealIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal weekly feedback input: %w", err)
	}
	return s.createJob(ctx, userID, models.JobKindWeeklyFeedback, input)
}

func (s *Service) createJob(ctx context.Context, userID uuid.UUID, kind models.JobKind, input json.RawMessage) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Status:    models.JobStatusPending,
		InputData: input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) dispatch(ctx context.Context, job *models.Job) error {
	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, jobStatusTTL)
	if err := s.queue.Enqueue(job.ID); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Service) contributingIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) (logIDs, photoIDs, mealIDs []uuid.UUID, err error) {
	logIDs, err = s.store.ListDailyLogIDs(ctx, userID, start, end)
	if err != nil {
		return nil, nil, nil, err
	}
	photoIDs, err = s.store.ListPhotoIDs(ctx, userID, start, end)
	if err != nil {
		return nil, nil, nil, err
	}
	mealIDs, err = s.store.ListCheatMealIDs(ctx, userID, start, end)
	if err != nil {
		return nil, nil, nil, err
	}
	return logIDs, photoIDs, mealIDs, nil
}

func validateWindow(weekStart, weekEnd time.Time) error {
	if !weekEnd.After(weekStart) {
		return fmt.Errorf("%w: week_start must be before week_end", ErrInvalidWindow)
	}
	days := int(weekEnd.Sub(weekStart).Hours() / 24)
	if days < 5 || days > 9 {
		return fmt.Errorf("%w: week range should be approximately 7 days, got %d", ErrInvalidWindow, days)
	}
	return nil
}
