package models

import (
	"encoding/json"
	"time"
)

// Exercise is an immutable catalog entry from the bundled dataset.
type Exercise struct {
	ID               ExerciseID `json:"id"`
	Name             string     `json:"name"`
	PrimaryMuscles   []string   `json:"primaryMuscles"`
	SecondaryMuscles []string   `json:"secondaryMuscles"`
	Equipment        string     `json:"equipment"`
}

// CustomExercise is a user-created exercise. Created offline it carries
// PendingSync until the backend has assigned it a BackendID.
type CustomExercise struct {
	Exercise
	Category    string `json:"category,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	PendingSync bool   `json:"pendingSync"`
	BackendID   int64  `json:"backendId,omitempty"`
}

// QueuedAction is a generic offline user action awaiting replay. Not
// workout-specific; handlers are registered per Type.
type QueuedAction struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	UserID     string          `json:"userId,omitempty"`
	RetryCount int             `json:"retryCount"`
}

// ProgressionState is the day-progression pointer. Each field persists under
// its own flat storage key.
type ProgressionState struct {
	CurrentWeek        int    `json:"currentWeek"`
	CurrentDayIndex    int    `json:"currentDayIndex"`
	LastCompletionDate string `json:"lastCompletionDate,omitempty"`
	LastCheckDate      string `json:"lastCheckDate,omitempty"`
	CompletedSessionID string `json:"completedSessionId,omitempty"`
}
