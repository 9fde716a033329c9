package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/controlfit/controlfit/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// --- Session tokens ---

func (s *PostgresStore) CreateSessionToken(ctx context.Context, token *models.SessionToken) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_tokens (id, user_id, token_hash, token_prefix, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.TokenHash, token.TokenPrefix, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSessionTokensByPrefix(ctx context.Context, prefix string) ([]*models.SessionToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, token_hash, token_prefix, last_used_at, expires_at, created_at
		 FROM session_tokens WHERE token_prefix = $1 AND expires_at > NOW()`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get session tokens by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []*models.SessionToken
	for rows.Next() {
		var t models.SessionToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.TokenPrefix,
			&t.LastUsedAt, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) UpdateSessionTokenLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE session_tokens SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update session token last used: %w", err)
	}
	return nil
}

// --- Profile history ---

func (s *PostgresStore) CreateProfileEntry(ctx context.Context, entry *models.ProfileEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profile_history (id, user_id, age, height_cm, initial_weight_kg,
		   training_days_per_week, training_type, activity_level, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.UserID, entry.Age, entry.HeightCm, entry.InitialWeightKg,
		entry.TrainingDaysPerWeek, entry.TrainingType, entry.ActivityLevel, entry.Notes, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create profile entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProfileEntries(ctx context.Context, userID uuid.UUID) ([]*models.ProfileEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, age, height_cm, initial_weight_kg, training_days_per_week,
		   training_type, activity_level, notes, created_at
		 FROM profile_history WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list profile entries: %w", err)
	}
	defer rows.Close()
	return scanProfileEntries(rows)
}

func (s *PostgresStore) GetProfileAt(ctx context.Context, userID uuid.UUID, date time.Time) (*models.ProfileEntry, error) {
	var e models.ProfileEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, age, height_cm, initial_weight_kg, training_days_per_week,
		   training_type, activity_level, notes, created_at
		 FROM profile_history WHERE user_id = $1 AND created_at::date <= $2
		 ORDER BY created_at DESC LIMIT 1`, userID, date,
	).Scan(&e.ID, &e.UserID, &e.Age, &e.HeightCm, &e.InitialWeightKg,
		&e.TrainingDaysPerWeek, &e.TrainingType, &e.ActivityLevel, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile at date: %w", err)
	}
	return &e, nil
}

func scanProfileEntries(rows pgx.Rows) ([]*models.ProfileEntry, error) {
	var entries []*models.ProfileEntry
	for rows.Next() {
		var e models.ProfileEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Age, &e.HeightCm, &e.InitialWeightKg,
			&e.TrainingDaysPerWeek, &e.TrainingType, &e.ActivityLevel, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- Daily logs ---

const dailyLogColumns = `id, user_id, date, weight_kg, sleep_hours, training_done,
	calories, calories_source, notes, created_at, updated_at`

func (s *PostgresStore) CreateDailyLog(ctx context.Context, log *models.DailyLog) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO daily_logs (id, user_id, date, weight_kg, sleep_hours, training_done,
		   calories, calories_source, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.ID, log.UserID, log.Date, log.WeightKg, log.SleepHours, log.TrainingDone,
		log.Calories, log.CaloriesSource, log.Notes, log.CreatedAt, log.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create daily log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDailyLog(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.DailyLog, error) {
	var l models.DailyLog
	err := s.pool.QueryRow(ctx,
		`SELECT `+dailyLogColumns+` FROM daily_logs WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&l.ID, &l.UserID, &l.Date, &l.WeightKg, &l.SleepHours, &l.TrainingDone,
		&l.Calories, &l.CaloriesSource, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily log: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) ListDailyLogs(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.DailyLog, error) {
	where, args := rangeFilter(userID, r)
	rows, err := s.pool.Query(ctx,
		`SELECT `+dailyLogColumns+` FROM daily_logs WHERE `+where+` ORDER BY date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.DailyLog
	for rows.Next() {
		var l models.DailyLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Date, &l.WeightKg, &l.SleepHours, &l.TrainingDone,
			&l.Calories, &l.CaloriesSource, &l.Notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (s *PostgresStore) UpdateDailyLog(ctx context.Context, log *models.DailyLog) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE daily_logs SET date = $3, weight_kg = $4, sleep_hours = $5, training_done = $6,
		   calories = $7, calories_source = $8, notes = $9, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		log.ID, log.UserID, log.Date, log.WeightKg, log.SleepHours, log.TrainingDone,
		log.Calories, log.CaloriesSource, log.Notes)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update daily log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteDailyLog(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM daily_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete daily log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Photos ---

const photoColumns = `id, user_id, date, file_path, file_name, body_fat_min, body_fat_max,
	body_fat_confidence, is_best_state, user_notes, analysis_job_id, created_at, updated_at`

func (s *PostgresStore) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO photos (id, user_id, date, file_path, file_name, body_fat_min, body_fat_max,
		   body_fat_confidence, is_best_state, user_notes, analysis_job_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		photo.ID, photo.UserID, photo.Date, photo.FilePath, photo.FileName,
		photo.BodyFatMin, photo.BodyFatMax, photo.BodyFatConfidence,
		photo.IsBestState, photo.UserNotes, photo.AnalysisJobID, photo.CreatedAt, photo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Photo, error) {
	var p models.Photo
	err := s.pool.QueryRow(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&p.ID, &p.UserID, &p.Date, &p.FilePath, &p.FileName, &p.BodyFatMin, &p.BodyFatMax,
		&p.BodyFatConfidence, &p.IsBestState, &p.UserNotes, &p.AnalysisJobID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.Photo, error) {
	where, args := rangeFilter(userID, r)
	rows, err := s.pool.Query(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE `+where+` ORDER BY date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.UserID, &p.Date, &p.FilePath, &p.FileName, &p.BodyFatMin,
			&p.BodyFatMax, &p.BodyFatConfidence, &p.IsBestState, &p.UserNotes, &p.AnalysisJobID,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, &p)
	}
	return photos, rows.Err()
}

func (s *PostgresStore) UpdatePhoto(ctx context.Context, photo *models.Photo) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET date = $3, is_best_state = $4, user_notes = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		photo.ID, photo.UserID, photo.Date, photo.IsBestState, photo.UserNotes)
	if err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPhotoBodyFat(ctx context.Context, id uuid.UUID, min, max float64, confidence string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET body_fat_min = $2, body_fat_max = $3, body_fat_confidence = $4, updated_at = NOW()
		 WHERE id = $1`, id, min, max, confidence)
	if err != nil {
		return fmt.Errorf("set photo body fat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPhotoAnalysisJob(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET analysis_job_id = $2, updated_at = NOW() WHERE id = $1`, id, jobID)
	if err != nil {
		return fmt.Errorf("set photo analysis job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeletePhoto(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM photos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Cheat meals ---

const cheatMealColumns = `id, user_id, date, description, estimated_impact, analysis_job_id,
	created_at, updated_at`

func (s *PostgresStore) CreateCheatMeal(ctx context.Context, meal *models.CheatMeal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cheat_meals (id, user_id, date, description, estimated_impact,
		   analysis_job_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		meal.ID, meal.UserID, meal.Date, meal.Description, meal.EstimatedImpact,
		meal.AnalysisJobID, meal.CreatedAt, meal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create cheat meal: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCheatMeal(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.CheatMeal, error) {
	var m models.CheatMeal
	err := s.pool.QueryRow(ctx,
		`SELECT `+cheatMealColumns+` FROM cheat_meals WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&m.ID, &m.UserID, &m.Date, &m.Description, &m.EstimatedImpact, &m.AnalysisJobID,
		&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cheat meal: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) ListCheatMeals(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.CheatMeal, error) {
	where, args := rangeFilter(userID, r)
	rows, err := s.pool.Query(ctx,
		`SELECT `+cheatMealColumns+` FROM cheat_meals WHERE `+where+` ORDER BY date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list cheat meals: %w", err)
	}
	defer rows.Close()

	var meals []*models.CheatMeal
	for rows.Next() {
		var m models.CheatMeal
		if err := rows.Scan(&m.ID, &m.UserID, &m.Date, &m.Description, &m.EstimatedImpact,
			&m.AnalysisJobID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cheat meal: %w", err)
		}
		meals = append(meals, &m)
	}
	return meals, rows.Err()
}

func (s *PostgresStore) UpdateCheatMeal(ctx context.Context, meal *models.CheatMeal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cheat_meals SET date = $3, description = $4, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		meal.ID, meal.UserID, meal.Date, meal.Description)
	if err != nil {
		return fmt.Errorf("update cheat meal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetCheatMealImpact(ctx context.Context, id uuid.UUID, impact string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cheat_meals SET estimated_impact = $2, updated_at = NOW() WHERE id = $1`, id, impact)
	if err != nil {
		return fmt.Errorf("set cheat meal impact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetCheatMealAnalysisJob(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cheat_meals SET analysis_job_id = $2, updated_at = NOW() WHERE id = $1`, id, jobID)
	if err != nil {
		return fmt.Errorf("set cheat meal analysis job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCheatMeal(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cheat_meals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete cheat meal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Contributing-record ids ---

func (s *PostgresStore) ListDailyLogIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	return s.listIDs(ctx, "daily_logs", userID, start, end)
}

func (s *PostgresStore) ListPhotoIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	return s.listIDs(ctx, "photos", userID, start, end)
}

func (s *PostgresStore) ListCheatMealIDs(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	return s.listIDs(ctx, "cheat_meals", userID, start, end)
}

func (s *PostgresStore) listIDs(ctx context.Context, table string, userID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM `+table+` WHERE user_id = $1 AND date >= $2 AND date <= $3`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", table, err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Weekly feedback ---

const feedbackColumns = `id, user_id, week_start, week_end, avg_weight, weight_change,
	training_days, avg_sleep, total_calories, body_fat_trend, inflammation_notes,
	liquid_retention_notes, consistency_analysis, overall_interpretation, data_hash,
	generation_job_id, created_at, updated_at`

func scanFeedback(row pgx.Row) (*models.WeeklyFeedback, error) {
	var f models.WeeklyFeedback
	err := row.Scan(&f.ID, &f.UserID, &f.WeekStart, &f.WeekEnd, &f.AvgWeight, &f.WeightChange,
		&f.TrainingDays, &f.AvgSleep, &f.TotalCalories, &f.BodyFatTrend, &f.InflammationNotes,
		&f.LiquidRetentionNotes, &f.ConsistencyAnalysis, &f.OverallInterpretation, &f.DataHash,
		&f.GenerationJobID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) CreateWeeklyFeedback(ctx context.Context, fb *models.WeeklyFeedback) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO weekly_feedback (id, user_id, week_start, week_end, data_hash,
		   generation_job_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fb.ID, fb.UserID, fb.WeekStart, fb.WeekEnd, fb.DataHash,
		fb.GenerationJobID, fb.CreatedAt, fb.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create weekly feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWeeklyFeedback(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.WeeklyFeedback, error) {
	f, err := scanFeedback(s.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM weekly_feedback WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly feedback: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) GetWeeklyFeedbackByWeek(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyFeedback, error) {
	f, err := scanFeedback(s.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM weekly_feedback WHERE user_id = $1 AND week_start = $2`,
		userID, weekStart))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly feedback by week: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) ListWeeklyFeedback(ctx context.Context, userID uuid.UUID, r DateRange) ([]*models.WeeklyFeedback, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 2

	if !r.Start.IsZero() {
		conditions = append(conditions, fmt.Sprintf("week_start >= $%d", argIdx))
		args = append(args, r.Start)
		argIdx++
	}
	if !r.End.IsZero() {
		conditions = append(conditions, fmt.Sprintf("week_end <= $%d", argIdx))
		args = append(args, r.End)
		argIdx++
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+feedbackColumns+` FROM weekly_feedback WHERE `+strings.Join(conditions, " AND ")+
			` ORDER BY week_start DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list weekly feedback: %w", err)
	}
	defer rows.Close()
	return collectFeedback(rows)
}

func (s *PostgresStore) ListWeeklyFeedbackCoveringDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*models.WeeklyFeedback, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+feedbackColumns+` FROM weekly_feedback
		 WHERE user_id = $1 AND week_start <= $2 AND week_end >= $2 AND generation_job_id IS NOT NULL`,
		userID, date)
	if err != nil {
		return nil, fmt.Errorf("list weekly feedback covering date: %w", err)
	}
	defer rows.Close()
	return collectFeedback(rows)
}

func collectFeedback(rows pgx.Rows) ([]*models.WeeklyFeedback, error) {
	var feedbacks []*models.WeeklyFeedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weekly feedback: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}

func (s *PostgresStore) ResetWeeklyFeedbackForRegeneration(ctx context.Context, id uuid.UUID, dataHash string, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE weekly_feedback SET
		   avg_weight = NULL, weight_change = NULL, training_days = NULL,
		   avg_sleep = NULL, total_calories = NULL,
		   body_fat_trend = NULL, inflammation_notes = NULL, liquid_retention_notes = NULL,
		   consistency_analysis = NULL, overall_interpretation = NULL,
		   data_hash = $2, generation_job_id = $3, updated_at = NOW()
		 WHERE id = $1`, id, dataHash, jobID)
	if err != nil {
		return fmt.Errorf("reset weekly feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateWeeklyFeedbackResults(ctx context.Context, id uuid.UUID, metrics models.WeeklyMetrics, bodyFatSummary string, interp *models.WeeklyInterpretation) error {
	query := `UPDATE weekly_feedback SET
	   avg_weight = $2, weight_change = $3, training_days = $4, avg_sleep = $5,
	   total_calories = $6, body_fat_trend = $7, updated_at = NOW()`
	args := []any{id, metrics.AvgWeight, metrics.WeightChange, metrics.TrainingDays,
		metrics.AvgSleep, metrics.TotalCalories, bodyFatSummary}
	argIdx := 8

	if interp != nil {
		query += fmt.Sprintf(`, inflammation_notes = $%d, liquid_retention_notes = $%d,
		   consistency_analysis = $%d, overall_interpretation = $%d`,
			argIdx, argIdx+1, argIdx+2, argIdx+3)
		args = append(args, interp.InflammationNotes, interp.LiquidRetentionNotes,
			interp.ConsistencyAnalysis, interp.OverallInterpretation)
	}

	query += " WHERE id = $1"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update weekly feedback results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, user_id, kind, status, input_data, result_data, error_message,
	started_at, completed_at, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, user_id, kind, status, input_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.UserID, job.Kind, job.Status, job.InputData, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.UserID, &j.Kind, &j.Status, &j.InputData, &j.ResultData,
		&j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, userID uuid.UUID, status models.JobStatus) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// TransitionJob atomically advances a job from one status to another. The CAS
// condition in the WHERE clause is the only thing that guards concurrent
// writers: if the row already left `from`, zero rows are affected and the call
// reports (false, nil).
func (s *PostgresStore) TransitionJob(ctx context.Context, id uuid.UUID, from, to models.JobStatus, opts ...JobUpdateOption) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	params := ApplyJobUpdateOptions(opts)

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $3, updated_at = $4`
	args := []any{id, from, to, now}
	argIdx := 5

	if to == models.JobStatusProcessing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if to == models.JobStatusDone || to == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.ResultData != nil {
		query += fmt.Sprintf(", result_data = $%d", argIdx)
		args = append(args, params.ResultData)
		argIdx++
	}

	query += " WHERE id = $1 AND status = $2"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No rows moved: either the job is gone or it already left `from`.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check job existence: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// rangeFilter builds the WHERE clause for user-scoped, optionally date-bounded lists.
func rangeFilter(userID uuid.UUID, r DateRange) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 2

	if !r.Start.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIdx))
		args = append(args, r.Start)
		argIdx++
	}
	if !r.End.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIdx))
		args = append(args, r.End)
		argIdx++
	}
	return strings.Join(conditions, " AND "), args
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
