package models

import (
	"context"
	"errors"
	"time"
)

// Provider contract errors. They live next to the interface so that both
// provider implementations and callers can match on them.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")

	// ErrUnsupported means the provider cannot perform the requested operation
	// (e.g. text-only providers cannot estimate body fat from a photo).
	// Callers treat it as "leave the field empty", not as a failure.
	ErrUnsupported = errors.New("operation not supported by ai provider")
)

// AIProvider is the interface all AI integrations implement. Never call a
// specific provider directly — always inject this interface.
type AIProvider interface {
	// InterpretWeek turns deterministic weekly metrics into interpretive text.
	InterpretWeek(ctx context.Context, req WeeklyInterpretationRequest) (WeeklyInterpretation, error)
	// EstimateBodyFat estimates a body-fat range for a progress photo.
	EstimateBodyFat(ctx context.Context, req BodyFatRequest) (BodyFatEstimate, error)
	// InterpretCheatMeal estimates the qualitative impact of a cheat meal.
	InterpretCheatMeal(ctx context.Context, req CheatMealRequest) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}

// WeeklyInterpretationRequest is the context handed to the provider for a
// weekly feedback job: everything is precomputed, the provider only narrates.
type WeeklyInterpretationRequest struct {
	WeekStart   time.Time
	WeekEnd     time.Time
	Metrics     WeeklyMetrics
	WeightTrend WeightTrend
	BodyFat     BodyFatAnalysis
	Profile     *ProfileEntry
	CheatMeals  []*CheatMeal
}

// WeeklyInterpretation holds the interpretive fields of a weekly feedback.
type WeeklyInterpretation struct {
	BodyFatTrend          string `json:"body_fat_trend"`
	InflammationNotes     string `json:"inflammation_notes"`
	LiquidRetentionNotes  string `json:"liquid_retention_notes"`
	ConsistencyAnalysis   string `json:"consistency_analysis"`
	OverallInterpretation string `json:"overall_interpretation"`
}

// BodyFatRequest describes one photo to estimate.
type BodyFatRequest struct {
	FilePath  string
	FileName  string
	Date      time.Time
	UserNotes *string
}

// BodyFatEstimate is a provider's body-fat range guess for one photo.
type BodyFatEstimate struct {
	Min        float64 `json:"body_fat_min"`
	Max        float64 `json:"body_fat_max"`
	Confidence string  `json:"confidence"`
}

// CheatMealRequest describes one cheat meal to interpret.
type CheatMealRequest struct {
	Date        time.Time
	Description string
}
