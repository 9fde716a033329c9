package models

import (
	"time"

	"github.com/google/uuid"
)

// CheatMeal is a qualitative off-plan meal entry. EstimatedImpact is null until
// a cheat_meal_analysis job interprets the description.
type CheatMeal struct {
	ID              uuid.UUID  `db:"id"              json:"id"`
	UserID          uuid.UUID  `db:"user_id"         json:"user_id"`
	Date            time.Time  `db:"date"            json:"date"`
	Description     string     `db:"description"     json:"description"`
	EstimatedImpact *string    `db:"estimated_impact" json:"estimated_impact,omitempty"`
	AnalysisJobID   *uuid.UUID `db:"analysis_job_id" json:"analysis_job_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"      json:"updated_at"`
}
