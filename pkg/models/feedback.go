package models

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyFeedback is the computed artifact for one (user, week_start) pair.
// Metric fields are populated by the executor on job completion; interpretive
// fields by the AI provider. DataHash fingerprints the contributing-record ids
// the artifact was generated from, so staleness can be detected without keeping
// old values around.
type WeeklyFeedback struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	WeekStart time.Time `db:"week_start" json:"week_start"`
	WeekEnd   time.Time `db:"week_end"   json:"week_end"`

	AvgWeight     *float64 `db:"avg_weight"     json:"avg_weight,omitempty"`
	WeightChange  *float64 `db:"weight_change"  json:"weight_change,omitempty"`
	TrainingDays  *int     `db:"training_days"  json:"training_days,omitempty"`
	AvgSleep      *float64 `db:"avg_sleep"      json:"avg_sleep,omitempty"`
	TotalCalories *int     `db:"total_calories" json:"total_calories,omitempty"`

	BodyFatTrend          *string `db:"body_fat_trend"          json:"body_fat_trend,omitempty"`
	InflammationNotes     *string `db:"inflammation_notes"      json:"inflammation_notes,omitempty"`
	LiquidRetentionNotes  *string `db:"liquid_retention_notes"  json:"liquid_retention_notes,omitempty"`
	ConsistencyAnalysis   *string `db:"consistency_analysis"    json:"consistency_analysis,omitempty"`
	OverallInterpretation *string `db:"overall_interpretation"  json:"overall_interpretation,omitempty"`

	DataHash        string     `db:"data_hash"         json:"data_hash,omitempty"`
	GenerationJobID *uuid.UUID `db:"generation_job_id" json:"generation_job_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at"        json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"        json:"updated_at"`
}

// WeeklyMetrics are the five deterministic weekly aggregates. A nil field means
// no data was available for that metric; TrainingDays is 0, never nil.
type WeeklyMetrics struct {
	AvgWeight     *float64 `json:"avg_weight"`
	WeightChange  *float64 `json:"weight_change"`
	TrainingDays  int      `json:"training_days"`
	AvgSleep      *float64 `json:"avg_sleep"`
	TotalCalories *int     `json:"total_calories"`
}

// Trend classifications shared by weight and body-fat analysis.
const (
	TrendStable           = "stable"
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendInsufficientData = "insufficient_data"
)

// WeightTrend is the rate-of-change analysis over an arbitrary date range.
// Unlike WeeklyMetrics.WeightChange it anchors on the first and last
// weight-bearing records in range, not on the sequence endpoints.
type WeightTrend struct {
	Trend       string   `json:"trend"`
	RatePerWeek *float64 `json:"rate_per_week"`
	TotalChange *float64 `json:"total_change"`
	FirstWeight *float64 `json:"first_weight"`
	LastWeight  *float64 `json:"last_weight"`
	Days        int      `json:"days"`
}

// BodyFatAnalysis summarizes body-fat ranges across analyzed photos in a window.
type BodyFatAnalysis struct {
	Summary     string   `json:"trend_summary"`
	PhotosCount int      `json:"photos_count"`
	AvgMin      *float64 `json:"avg_body_fat_min"`
	AvgMax      *float64 `json:"avg_body_fat_max"`
	Direction   *string  `json:"trend_direction"`
}
