package feedback_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/pkg/models"
)

var (
	testUserID = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	weekStart  = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd    = time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store *mockStore
	cache *mockCache
	queue *mockQueue
	svc   *feedback.Service
}

func newFixture() *fixture {
	st := newMockStore()
	ca := newMockCache()
	q := &mockQueue{}
	return &fixture{
		store: st,
		cache: ca,
		queue: q,
		svc:   feedback.NewService(st, ca, q),
	}
}

func (f *fixture) seedLog(t *testing.T, day int, weight float64) *models.DailyLog {
	t.Helper()
	log := &models.DailyLog{
		ID:       uuid.New(),
		UserID:   testUserID,
		Date:     time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		WeightKg: &weight,
	}
	require.NoError(t, f.store.CreateDailyLog(context.Background(), log))
	return log
}

// completeJob walks a pending job through the executor-owned transitions.
func (f *fixture) completeJob(t *testing.T, jobID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	ok, err := f.store.TransitionJob(ctx, jobID, models.JobStatusPending, models.JobStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.store.TransitionJob(ctx, jobID, models.JobStatusProcessing, models.JobStatusDone)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRequest_FreshWindowCreatesJobAndArtifact(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)
	f.seedLog(t, 3, 79.8)

	result, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	assert.Equal(t, feedback.OutcomeCreated, result.Outcome)
	require.NotNil(t, result.Job)
	assert.Equal(t, models.JobStatusPending, result.Job.Status)
	assert.Equal(t, models.JobKindWeeklyFeedback, result.Job.Kind)

	require.NotNil(t, result.Feedback)
	assert.NotEmpty(t, result.Feedback.DataHash)
	require.NotNil(t, result.Feedback.GenerationJobID)
	assert.Equal(t, result.Job.ID, *result.Feedback.GenerationJobID)
	assert.Nil(t, result.Feedback.AvgWeight, "metrics stay null until the job runs")

	assert.Equal(t, 1, f.queue.len())
	status, found, _ := f.cache.GetJobStatus(context.Background(), result.Job.ID)
	assert.True(t, found)
	assert.Equal(t, models.JobStatusPending, status)
}

func TestRequest_SecondCallWhilePendingIsInProgress(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	require.Equal(t, feedback.OutcomeCreated, first.Outcome)

	second, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	assert.Equal(t, feedback.OutcomeInProgress, second.Outcome)
	assert.Equal(t, first.Feedback.ID, second.Feedback.ID)
	assert.Equal(t, first.Job.ID, second.Job.ID)
	assert.Equal(t, 1, f.queue.len(), "no second job enqueued")
}

func TestRequest_CachedWhenDoneAndDataUnchanged(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	f.completeJob(t, first.Job.ID)

	second, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	assert.Equal(t, feedback.OutcomeCached, second.Outcome)
	assert.Equal(t, first.Feedback.ID, second.Feedback.ID)
	assert.Equal(t, 1, f.queue.len())
}

func TestRequest_RegeneratesWhenContributingRecordsChange(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	firstHash := first.Feedback.DataHash
	f.completeJob(t, first.Job.ID)

	// A new log joins the window, so the fingerprint diverges.
	f.seedLog(t, 4, 79.5)

	second, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	assert.Equal(t, feedback.OutcomeCreated, second.Outcome)
	assert.Equal(t, first.Feedback.ID, second.Feedback.ID, "row is reused, not duplicated")
	assert.NotEqual(t, first.Job.ID, second.Job.ID, "regeneration issues a new job")
	assert.NotEqual(t, firstHash, second.Feedback.DataHash)

	oldJob, err := f.store.GetJobByID(context.Background(), first.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOutdated, oldJob.Status)

	assert.Equal(t, 2, f.queue.len())
}

func TestRequest_RegeneratesAfterEagerInvalidation(t *testing.T) {
	f := newFixture()
	log := f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	f.completeJob(t, first.Job.ID)

	// Same id set, changed values: the fingerprint cannot see this, so the
	// mutation path must invalidate eagerly.
	newWeight := 79.0
	log.WeightKg = &newWeight
	require.NoError(t, f.store.UpdateDailyLog(context.Background(), log))

	n, err := f.svc.Invalidate(context.Background(), testUserID, log.Date)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	assert.Equal(t, feedback.OutcomeCreated, second.Outcome)
	assert.NotEqual(t, first.Job.ID, second.Job.ID)
}

func TestRequest_RejectsInvalidWindows(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Request(ctx, testUserID, weekEnd, weekStart)
	assert.ErrorIs(t, err, feedback.ErrInvalidWindow)

	_, err = f.svc.Request(ctx, testUserID, weekStart, weekStart)
	assert.ErrorIs(t, err, feedback.ErrInvalidWindow)

	_, err = f.svc.Request(ctx, testUserID, weekStart, weekStart.AddDate(0, 0, 3))
	assert.ErrorIs(t, err, feedback.ErrInvalidWindow)

	_, err = f.svc.Request(ctx, testUserID, weekStart, weekStart.AddDate(0, 0, 14))
	assert.ErrorIs(t, err, feedback.ErrInvalidWindow)

	assert.Equal(t, 0, f.queue.len())
}

func TestRequest_LosingInsertRaceRetriesOnce(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	// Simulate a concurrent winner committing between our read and insert.
	f.store.beforeCreateFeedback = func(s *mockStore) error {
		winnerJob := &models.Job{
			ID:        uuid.New(),
			UserID:    testUserID,
			Kind:      models.JobKindWeeklyFeedback,
			Status:    models.JobStatusPending,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		s.jobs[winnerJob.ID] = winnerJob
		fb := &models.WeeklyFeedback{
			ID:              uuid.New(),
			UserID:          testUserID,
			WeekStart:       weekStart,
			WeekEnd:         weekEnd,
			DataHash:        "winner-hash",
			GenerationJobID: &winnerJob.ID,
		}
		s.feedback[fb.ID] = fb
		return nil
	}

	result, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	assert.Equal(t, feedback.OutcomeInProgress, result.Outcome)
	assert.Equal(t, "winner-hash", result.Feedback.DataHash)
}

func TestInvalidate_IsIdempotent(t *testing.T) {
	f := newFixture()
	log := f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	f.completeJob(t, first.Job.ID)

	n, err := f.svc.Invalidate(context.Background(), testUserID, log.Date)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.Invalidate(context.Background(), testUserID, log.Date)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already outdated job is skipped")

	job, err := f.store.GetJobByID(context.Background(), first.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOutdated, job.Status)
}

func TestInvalidate_DedupesDatesInSameWeek(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	f.completeJob(t, first.Job.ID)

	n, err := f.svc.Invalidate(context.Background(), testUserID,
		weekStart.AddDate(0, 0, 1), weekStart.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInvalidate_SkipsPendingJobs(t *testing.T) {
	f := newFixture()
	log := f.seedLog(t, 2, 80.0)

	_, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	// Job still pending; invalidation only targets done jobs.
	n, err := f.svc.Invalidate(context.Background(), testUserID, log.Date)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCheckStaleness(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	f.completeJob(t, first.Job.ID)

	stale, err := f.svc.CheckStaleness(context.Background(), first.Feedback)
	require.NoError(t, err)
	assert.False(t, stale)

	f.seedLog(t, 5, 79.5)

	stale, err = f.svc.CheckStaleness(context.Background(), first.Feedback)
	require.NoError(t, err)
	assert.True(t, stale)

	job, err := f.store.GetJobByID(context.Background(), first.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOutdated, job.Status)
}

func TestSchedulePhotoAnalysis(t *testing.T) {
	f := newFixture()
	photo := &models.Photo{
		ID:       uuid.New(),
		UserID:   testUserID,
		Date:     weekStart,
		FilePath: "/photos/p.jpg",
	}
	require.NoError(t, f.store.CreatePhoto(context.Background(), photo))

	job, err := f.svc.SchedulePhotoAnalysis(context.Background(), testUserID, photo.ID)
	require.NoError(t, err)

	assert.Equal(t, models.JobKindPhotoAnalysis, job.Kind)
	assert.Equal(t, models.JobStatusPending, job.Status)
	require.NotNil(t, photo.AnalysisJobID)
	assert.Equal(t, job.ID, *photo.AnalysisJobID)
	assert.Equal(t, 1, f.queue.len())
}

func TestScheduleCheatMealAnalysis(t *testing.T) {
	f := newFixture()
	meal := &models.CheatMeal{
		ID:          uuid.New(),
		UserID:      testUserID,
		Date:        weekStart,
		Description: "pizza night",
	}
	require.NoError(t, f.store.CreateCheatMeal(context.Background(), meal))

	job, err := f.svc.ScheduleCheatMealAnalysis(context.Background(), testUserID, meal.ID)
	require.NoError(t, err)

	assert.Equal(t, models.JobKindCheatMealAnalysis, job.Kind)
	require.NotNil(t, meal.AnalysisJobID)
	assert.Equal(t, job.ID, *meal.AnalysisJobID)
}

func TestReprocess_PendingJobIsReEnqueued(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	job, err := f.svc.Reprocess(context.Background(), testUserID, first.Job.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Job.ID, job.ID)
	assert.Equal(t, 2, f.queue.len())
}

func TestReprocess_FailedJobGetsReplacement(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.store.TransitionJob(ctx, first.Job.ID, models.JobStatusPending, models.JobStatusProcessing)
	require.NoError(t, err)
	_, err = f.store.TransitionJob(ctx, first.Job.ID, models.JobStatusProcessing, models.JobStatusFailed)
	require.NoError(t, err)

	replacement, err := f.svc.Reprocess(ctx, testUserID, first.Job.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.Job.ID, replacement.ID)
	assert.Equal(t, models.JobKindWeeklyFeedback, replacement.Kind)
	assert.Equal(t, models.JobStatusPending, replacement.Status)

	fb, err := f.store.GetWeeklyFeedbackByWeek(ctx, testUserID, weekStart)
	require.NoError(t, err)
	require.NotNil(t, fb.GenerationJobID)
	assert.Equal(t, replacement.ID, *fb.GenerationJobID, "feedback row points at the replacement")
}

func TestReprocess_RejectsDoneJob(t *testing.T) {
	f := newFixture()
	f.seedLog(t, 2, 80.0)

	first, err := f.svc.Request(context.Background(), testUserID, weekStart, weekEnd)
	require.NoError(t, err)
	f.completeJob(t, first.Job.ID)

	_, err = f.svc.Reprocess(context.Background(), testUserID, first.Job.ID)
	assert.ErrorIs(t, err, feedback.ErrJobNotReprocessable)
}
