package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/controlfit/controlfit/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidTransition is returned when a requested job status transition is
// not in the state machine's transition table at all. A legal transition whose
// precondition no longer holds (the row moved on) is not an error; it reports
// transitioned=false instead.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateSessionToken(ctx context.Context, token *models.SessionToken) error
	GetSessionTokensByPrefix(ctx context.Context, prefix string) ([]*models.SessionToken, error)
	UpdateSessionTokenLastUsed(ctx context.Context, id uuid.UUID) error

	CreateProfileEntry(ctx context.Context, entry *models.ProfileEntry) error
	ListProfileEntries(ctx context.Context, userID uuid.UUID) ([]*models.ProfileEntry, error)
	GetProfileAt(ctx context.Context, userID uuid.UUID, date time.Time) (*models.ProfileEntry, error)

	CreateDailyLog(ctx context.Context, log *models.DailyLog) error
	GetDailyLog(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.DailyLog, error)
	ListDailyLogs(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.DailyLog, error)
	UpdateDailyLog(ctx context.Context, log *models.DailyLog) error
	DeleteDailyLog(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreatePhoto(ctx context.Context, photo *models.Photo) error
	GetPhoto(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Photo, error)
	ListPhotos(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.Photo, error)
	UpdatePhoto(ctx context.Context, photo *models.Photo) error
	SetPhotoBodyFat(ctx context.Context, id uuid.UUID, min, max float64, confidence string) error
	SetPhotoAnalysisJob(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error
	DeletePhoto(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreateCheatMeal(ctx context.Context, meal *models.CheatMeal) error
	GetCheatMeal(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.CheatMeal, error)
	ListCheatMeals(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.CheatMeal, error)
	UpdateCheatMeal(ctx context.Context, meal *models.CheatMeal) error
	SetCheatMealImpact(ctx context.Context, id uuid.UUID, impact string) error
	SetCheatMealAnalysisJob(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error
	DeleteCheatMeal(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	// Contributing-record id sets for fingerprinting, per kind, within [start, end].
	ListDailyLogIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error)
	ListPhotoIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error)
	ListCheatMealIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error)

	// CreateWeeklyFeedback inserts a fresh row and returns ErrDuplicateKey when a
	// row for (user_id, week_start) already exists; the uniqueness constraint is
	// the backstop against concurrent duplicate requests.
	CreateWeeklyFeedback(ctx context.Context, fb *models.WeeklyFeedback) error
	GetWeeklyFeedback(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.WeeklyFeedback, error)
	GetWeeklyFeedbackByWeek(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyFeedback, error)
	ListWeeklyFeedback(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.WeeklyFeedback, error)
	// ListWeeklyFeedbackCoveringDate returns rows whose [week_start, week_end]
	// interval contains date and which have a generation job linked.
	ListWeeklyFeedbackCoveringDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*models.WeeklyFeedback, error)
	// ResetWeeklyFeedbackForRegeneration clears metrics and interpretation and
	// relinks the row to a new job + fingerprint, keeping the (user, week) key.
	ResetWeeklyFeedbackForRegeneration(ctx context.Context, id uuid.UUID, dataHash string, jobID uuid.UUID) error
	UpdateWeeklyFeedbackResults(ctx context.Context, id uuid.UUID, metrics models.WeeklyMetrics, bodyFatSummary string, interp *models.WeeklyInterpretation) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error)
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, userID uuid.UUID, status models.JobStatus) ([]*models.Job, error)
	// TransitionJob performs an atomic compare-and-swap of the job status:
	// the UPDATE only fires while the row still holds `from`. It returns
	// ErrInvalidTransition if from->to is not in the transition table, and
	// (false, nil) if the transition is legal but the row was not in `from`
	// anymore — which is how done->outdated stays idempotent.
	TransitionJob(ctx context.Context, id uuid.UUID, from, to models.JobStatus, opts ...JobUpdateOption) (bool, error)
}

// DateRange is an optional inclusive [Start, End] filter; zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// JobUpdateParams collects the optional columns of a status transition.
type JobUpdateParams struct {
	ErrorMessage *string
	ResultData   json.RawMessage
}

type JobUpdateOption func(*JobUpdateParams)

// WithErrorMessage records error detail alongside a processing->failed transition.
func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

// WithResultData records the result payload alongside a processing->done transition.
func WithResultData(data json.RawMessage) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.ResultData = data
	}
}

// ApplyJobUpdateOptions folds opts into a JobUpdateParams. Exposed so
// alternative Store implementations resolve options the same way.
func ApplyJobUpdateOptions(opts []JobUpdateOption) JobUpdateParams {
	var p JobUpdateParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
