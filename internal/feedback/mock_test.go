package feedback_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

// mockStore is an in-memory store.Store with the same transition and
// duplicate-key semantics as the Postgres implementation.
type mockStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	tokens   map[uuid.UUID]*models.SessionToken
	profiles []*models.ProfileEntry
	logs     map[uuid.UUID]*models.DailyLog
	photos   map[uuid.UUID]*models.Photo
	meals    map[uuid.UUID]*models.CheatMeal
	feedback map[uuid.UUID]*models.WeeklyFeedback
	jobs     map[uuid.UUID]*models.Job

	// beforeCreateFeedback, when set, runs once inside CreateWeeklyFeedback
	// before the insert; used to simulate a concurrent winner.
	beforeCreateFeedback func(s *mockStore) error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[uuid.UUID]*models.User),
		tokens:   make(map[uuid.UUID]*models.SessionToken),
		logs:     make(map[uuid.UUID]*models.DailyLog),
		photos:   make(map[uuid.UUID]*models.Photo),
		meals:    make(map[uuid.UUID]*models.CheatMeal),
		feedback: make(map[uuid.UUID]*models.WeeklyFeedback),
		jobs:     make(map[uuid.UUID]*models.Job),
	}
}

var _ store.Store = (*mockStore)(nil)

func (s *mockStore) Ping(context.Context) error { return nil }

func (s *mockStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrDuplicateKey
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *mockStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *mockStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) CreateSessionToken(_ context.Context, tok *models.SessionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = tok
	return nil
}

func (s *mockStore) GetSessionTokensByPrefix(_ context.Context, prefix string) ([]*models.SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.SessionToken
	for _, tok := range s.tokens {
		if tok.TokenPrefix == prefix {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (s *mockStore) UpdateSessionTokenLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokens[id]; ok {
		now := time.Now().UTC()
		tok.LastUsedAt = &now
	}
	return nil
}

func (s *mockStore) CreateProfileEntry(_ context.Context, entry *models.ProfileEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, entry)
	return nil
}

func (s *mockStore) ListProfileEntries(_ context.Context, userID uuid.UUID) ([]*models.ProfileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ProfileEntry
	for _, p := range s.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *mockStore) GetProfileAt(_ context.Context, userID uuid.UUID, date time.Time) (*models.ProfileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.ProfileEntry
	for _, p := range s.profiles {
		if p.UserID != userID || p.CreatedAt.After(date) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func (s *mockStore) CreateDailyLog(_ context.Context, log *models.DailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.logs {
		if existing.UserID == log.UserID && existing.Date.Equal(log.Date) {
			return store.ErrDuplicateKey
		}
	}
	s.logs[log.ID] = log
	return nil
}

func (s *mockStore) GetDailyLog(_ context.Context, id, userID uuid.UUID) (*models.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[id]
	if !ok || log.UserID != userID {
		return nil, store.ErrNotFound
	}
	return log, nil
}

func (s *mockStore) ListDailyLogs(_ context.Context, userID uuid.UUID, r store.DateRange) ([]*models.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DailyLog
	for _, log := range s.logs {
		if log.UserID == userID && inRange(log.Date, r) {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *mockStore) UpdateDailyLog(_ context.Context, log *models.DailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[log.ID]; !ok {
		return store.ErrNotFound
	}
	s.logs[log.ID] = log
	return nil
}

func (s *mockStore) DeleteDailyLog(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[id]
	if !ok || log.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.logs, id)
	return nil
}

func (s *mockStore) CreatePhoto(_ context.Context, photo *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[photo.ID] = photo
	return nil
}

func (s *mockStore) GetPhoto(_ context.Context, id, userID uuid.UUID) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *mockStore) ListPhotos(_ context.Context, userID uuid.UUID, r store.DateRange) ([]*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Photo
	for _, p := range s.photos {
		if p.UserID == userID && inRange(p.Date, r) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *mockStore) UpdatePhoto(_ context.Context, photo *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[photo.ID]; !ok {
		return store.ErrNotFound
	}
	s.photos[photo.ID] = photo
	return nil
}

func (s *mockStore) SetPhotoBodyFat(_ context.Context, id uuid.UUID, min, max float64, confidence string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return store.ErrNotFound
	}
	p.BodyFatMin = &min
	p.BodyFatMax = &max
	p.BodyFatConfidence = &confidence
	return nil
}

func (s *mockStore) SetPhotoAnalysisJob(_ context.Context, id, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return store.ErrNotFound
	}
	p.AnalysisJobID = &jobID
	return nil
}

func (s *mockStore) DeletePhoto(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok || p.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.photos, id)
	return nil
}

func (s *mockStore) CreateCheatMeal(_ context.Context, meal *models.CheatMeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals[meal.ID] = meal
	return nil
}

func (s *mockStore) GetCheatMeal(_ context.Context, id, userID uuid.UUID) (*models.CheatMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meals[id]
	if !ok || m.UserID != userID {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (s *mockStore) ListCheatMeals(_ context.Context, userID uuid.UUID, r store.DateRange) ([]*models.CheatMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CheatMeal
	for _, m := range s.meals {
		if m.UserID == userID && inRange(m.Date, r) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *mockStore) UpdateCheatMeal(_ context.Context, meal *models.CheatMeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[meal.ID]; !ok {
		return store.ErrNotFound
	}
	s.meals[meal.ID] = meal
	return nil
}

func (s *mockStore) SetCheatMealImpact(_ context.Context, id uuid.UUID, impact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meals[id]
	if !ok {
		return store.ErrNotFound
	}
	m.EstimatedImpact = &impact
	return nil
}

func (s *mockStore) SetCheatMealAnalysisJob(_ context.Context, id, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meals[id]
	if !ok {
		return store.ErrNotFound
	}
	m.AnalysisJobID = &jobID
	return nil
}

func (s *mockStore) DeleteCheatMeal(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meals[id]
	if !ok || m.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.meals, id)
	return nil
}

func (s *mockStore) ListDailyLogIDs(_ context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for _, log := range s.logs {
		if log.UserID == userID && inWindow(log.Date, start, end) {
			out = append(out, log.ID)
		}
	}
	return out, nil
}

func (s *mockStore) ListPhotoIDs(_ context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for _, p := range s.photos {
		if p.UserID == userID && inWindow(p.Date, start, end) {
			out = append(out, p.ID)
		}
	}
	return out, nil
}

func (s *mockStore) ListCheatMealIDs(_ context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for _, m := range s.meals {
		if m.UserID == userID && inWindow(m.Date, start, end) {
			out = append(out, m.ID)
		}
	}
	return out, nil
}

func (s *mockStore) CreateWeeklyFeedback(_ context.Context, fb *models.WeeklyFeedback) error {
	s.mu.Lock()
	hook := s.beforeCreateFeedback
	s.beforeCreateFeedback = nil
	s.mu.Unlock()
	if hook != nil {
		if err := hook(s); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.feedback {
		if existing.UserID == fb.UserID && existing.WeekStart.Equal(fb.WeekStart) {
			return store.ErrDuplicateKey
		}
	}
	s.feedback[fb.ID] = fb
	return nil
}

func (s *mockStore) GetWeeklyFeedback(_ context.Context, id, userID uuid.UUID) (*models.WeeklyFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.feedback[id]
	if !ok || fb.UserID != userID {
		return nil, store.ErrNotFound
	}
	return fb, nil
}

func (s *mockStore) GetWeeklyFeedbackByWeek(_ context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fb := range s.feedback {
		if fb.UserID == userID && fb.WeekStart.Equal(weekStart) {
			return fb, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) ListWeeklyFeedback(_ context.Context, userID uuid.UUID, r store.DateRange) ([]*models.WeeklyFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WeeklyFeedback
	for _, fb := range s.feedback {
		if fb.UserID == userID && inRange(fb.WeekStart, r) {
			out = append(out, fb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out, nil
}

func (s *mockStore) ListWeeklyFeedbackCoveringDate(_ context.Context, userID uuid.UUID, date time.Time) ([]*models.WeeklyFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WeeklyFeedback
	for _, fb := range s.feedback {
		if fb.UserID == userID && fb.GenerationJobID != nil && inWindow(date, fb.WeekStart, fb.WeekEnd) {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (s *mockStore) ResetWeeklyFeedbackForRegeneration(_ context.Context, id uuid.UUID, dataHash string, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.feedback[id]
	if !ok {
		return store.ErrNotFound
	}
	fb.AvgWeight = nil
	fb.WeightChange = nil
	fb.TrainingDays = nil
	fb.AvgSleep = nil
	fb.TotalCalories = nil
	fb.BodyFatTrend = nil
	fb.InflammationNotes = nil
	fb.LiquidRetentionNotes = nil
	fb.ConsistencyAnalysis = nil
	fb.OverallInterpretation = nil
	fb.DataHash = dataHash
	fb.GenerationJobID = &jobID
	fb.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mockStore) UpdateWeeklyFeedbackResults(_ context.Context, id uuid.UUID, metrics models.WeeklyMetrics, bodyFatSummary string, interp *models.WeeklyInterpretation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.feedback[id]
	if !ok {
		return store.ErrNotFound
	}
	fb.AvgWeight = metrics.AvgWeight
	fb.WeightChange = metrics.WeightChange
	td := metrics.TrainingDays
	fb.TrainingDays = &td
	fb.AvgSleep = metrics.AvgSleep
	fb.TotalCalories = metrics.TotalCalories
	fb.BodyFatTrend = &bodyFatSummary
	if interp != nil {
		fb.InflammationNotes = &interp.InflammationNotes
		fb.LiquidRetentionNotes = &interp.LiquidRetentionNotes
		fb.ConsistencyAnalysis = &interp.ConsistencyAnalysis
		fb.OverallInterpretation = &interp.OverallInterpretation
	}
	fb.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *mockStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *mockStore) GetJob(_ context.Context, id, userID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.UserID != userID {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (s *mockStore) GetJobByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (s *mockStore) ListJobs(_ context.Context, userID uuid.UUID, status models.JobStatus) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, job := range s.jobs {
		if job.UserID == userID && (status == "" || job.Status == status) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *mockStore) TransitionJob(_ context.Context, id uuid.UUID, from, to models.JobStatus, opts ...store.JobUpdateOption) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, store.ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if job.Status != from {
		return false, nil
	}

	params := store.ApplyJobUpdateOptions(opts)
	now := time.Now().UTC()
	job.Status = to
	job.UpdatedAt = now
	if to == models.JobStatusProcessing {
		job.StartedAt = &now
	}
	if to == models.JobStatusDone || to == models.JobStatusFailed {
		job.CompletedAt = &now
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.ResultData != nil {
		job.ResultData = params.ResultData
	}
	return true, nil
}

func inRange(date time.Time, r store.DateRange) bool {
	if !r.Start.IsZero() && date.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && date.After(r.End) {
		return false
	}
	return true
}

func inWindow(date, start, end time.Time) bool {
	return !date.Before(start) && !date.After(end)
}

// mockCache records job status writes.
type mockCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]models.JobStatus
}

func newMockCache() *mockCache {
	return &mockCache{statuses: make(map[uuid.UUID]models.JobStatus)}
}

func (c *mockCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (c *mockCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (c *mockCache) Delete(context.Context, string) error                     { return nil }
func (c *mockCache) Ping(context.Context) error                               { return nil }

func (c *mockCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status models.JobStatus, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *mockCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (models.JobStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.statuses[jobID]
	return status, ok, nil
}

func (c *mockCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

// mockQueue records enqueued job ids.
type mockQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	err      error
}

func (q *mockQueue) Enqueue(jobID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, jobID)
	return nil
}

func (q *mockQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}
