// Package models contains shared data models used across the ControlFit codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. All other rows are owned by exactly one user.
type User struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// ProfileEntry is one append-only snapshot of a user's training context.
// The most recent entry at or before a date is the active profile for that date.
type ProfileEntry struct {
	ID                  uuid.UUID `db:"id"                     json:"id"`
	UserID              uuid.UUID `db:"user_id"                json:"user_id"`
	Age                 *int      `db:"age"                    json:"age,omitempty"`
	HeightCm            *float64  `db:"height_cm"              json:"height_cm,omitempty"`
	InitialWeightKg     *float64  `db:"initial_weight_kg"      json:"initial_weight_kg,omitempty"`
	TrainingDaysPerWeek *int      `db:"training_days_per_week" json:"training_days_per_week,omitempty"`
	TrainingType        *string   `db:"training_type"          json:"training_type,omitempty"`
	ActivityLevel       *string   `db:"activity_level"         json:"activity_level,omitempty"`
	Notes               *string   `db:"notes"                  json:"notes,omitempty"`
	CreatedAt           time.Time `db:"created_at"             json:"created_at"`
}
