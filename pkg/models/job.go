package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the closed set of lifecycle states for async jobs.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
	JobStatusOutdated   JobStatus = "outdated"
)

// JobKind identifies what a job computes.
type JobKind string

const (
	JobKindPhotoAnalysis     JobKind = "photo_analysis"
	JobKindCheatMealAnalysis JobKind = "cheat_meal_analysis"
	JobKindWeeklyFeedback    JobKind = "weekly_feedback"
)

// validTransitions is the full transition table. pending->processing is taken
// exactly once by the executor; done->outdated is driven by invalidation and is
// the only transition out of a terminal state.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing},
	JobStatusProcessing: {JobStatusDone, JobStatusFailed},
	JobStatusDone:       {JobStatusOutdated},
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to JobStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no executor-driven transition leaves the status.
// outdated and failed jobs are never resumed; regeneration issues a new job.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed || s == JobStatusOutdated
}

// ValidStatus reports whether s is one of the known job statuses.
func ValidStatus(s JobStatus) bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusDone, JobStatusFailed, JobStatusOutdated:
		return true
	}
	return false
}

// Job is one async unit of work. Rows are created by the orchestrator, advanced
// only by the executor, and flipped done->outdated by the invalidation engine.
type Job struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	UserID       uuid.UUID       `db:"user_id"       json:"user_id"`
	Kind         JobKind         `db:"kind"          json:"kind"`
	Status       JobStatus       `db:"status"        json:"status"`
	InputData    json.RawMessage `db:"input_data"    json:"input_data,omitempty"`
	ResultData   json.RawMessage `db:"result_data"   json:"result_data,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time      `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time      `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
}

// WeeklyFeedbackInput is the input payload for weekly_feedback jobs: the window
// plus the exact contributing-record id sets the fingerprint was computed over.
type WeeklyFeedbackInput struct {
	WeekStart    string      `json:"week_start"`
	WeekEnd      string      `json:"week_end"`
	LogIDs       []uuid.UUID `json:"log_ids"`
	PhotoIDs     []uuid.UUID `json:"photo_ids"`
	CheatMealIDs []uuid.UUID `json:"cheat_meal_ids"`
}

// PhotoAnalysisInput is the input payload for photo_analysis jobs.
type PhotoAnalysisInput struct {
	PhotoID uuid.UUID `json:"photo_id"`
}

// CheatMealAnalysisInput is the input payload for cheat_meal_analysis jobs.
type CheatMealAnalysisInput struct {
	CheatMealID uuid.UUID `json:"cheat_meal_id"`
}
