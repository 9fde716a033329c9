package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is the metadata row for one progress photo. The file itself lives in
// external storage; only the path is kept here. Body-fat fields stay null until
// a photo_analysis job fills them in.
type Photo struct {
	ID                uuid.UUID  `db:"id"                  json:"id"`
	UserID            uuid.UUID  `db:"user_id"             json:"user_id"`
	Date              time.Time  `db:"date"                json:"date"`
	FilePath          string     `db:"file_path"           json:"file_path"`
	FileName          string     `db:"file_name"           json:"file_name"`
	BodyFatMin        *float64   `db:"body_fat_min"        json:"body_fat_min,omitempty"`
	BodyFatMax        *float64   `db:"body_fat_max"        json:"body_fat_max,omitempty"`
	BodyFatConfidence *string    `db:"body_fat_confidence" json:"body_fat_confidence,omitempty"`
	IsBestState       bool       `db:"is_best_state"       json:"is_best_state"`
	UserNotes         *string    `db:"user_notes"          json:"user_notes,omitempty"`
	AnalysisJobID     *uuid.UUID `db:"analysis_job_id"     json:"analysis_job_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"          json:"updated_at"`
}
