package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyLog is one day's self-reported metrics. At most one row per (user, date).
// Weight, sleep and calories are independently optional; a missing value is
// distinct from zero and is excluded from weekly aggregation.
type DailyLog struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	UserID         uuid.UUID `db:"user_id"         json:"user_id"`
	Date           time.Time `db:"date"            json:"date"`
	WeightKg       *float64  `db:"weight_kg"       json:"weight_kg,omitempty"`
	SleepHours     *float64  `db:"sleep_hours"     json:"sleep_hours,omitempty"`
	TrainingDone   bool      `db:"training_done"   json:"training_done"`
	Calories       *int      `db:"calories"        json:"calories,omitempty"`
	CaloriesSource *string   `db:"calories_source" json:"calories_source,omitempty"`
	Notes          *string   `db:"notes"           json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}
