package models

import "time"

// DateOnly is the local calendar date layout used for progression pointers
// and completion dates. Local time, not UTC — the training day rolls over at
// the user's midnight.
const DateOnly = "2006-01-02"

// Session types. An empty Type means a regular workout; rest-day records are
// written by the progression clock so streaks and sync can see them.
const (
	SessionTypeWorkout = "workout"
	SessionTypeRestDay = "rest_day"
)

// Split is a user-defined multi-day workout template. Exactly one split is
// active at a time; it lives in a single storage slot, last write wins.
type Split struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	TotalDays int        `json:"totalDays"`
	Days      []SplitDay `json:"days"`
}

// Day returns the split day at the given rotation index, nil if out of range.
func (s *Split) Day(dayIndex int) *SplitDay {
	if s == nil || dayIndex < 0 || dayIndex >= len(s.Days) {
		return nil
	}
	return &s.Days[dayIndex]
}

type SplitDay struct {
	DayIndex  int             `json:"dayIndex"`
	Name      string          `json:"name"`
	IsRest    bool            `json:"isRest"`
	Exercises []SplitExercise `json:"exercises"`
}

type SplitExercise struct {
	ExerciseID  ExerciseID `json:"exerciseId"`
	TargetSets  FlexInt    `json:"targetSets"`
	TargetReps  FlexInt    `json:"targetReps"`
	RestSeconds int        `json:"restSeconds"`
}

// WorkoutSession is one concrete attempt at a split day. A session with no
// CompletedAt is the active session; at most one may exist at a time.
type WorkoutSession struct {
	ID          string            `json:"id"`
	SplitID     string            `json:"splitId"`
	DayIndex    int               `json:"dayIndex"`
	Type        string            `json:"type,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Exercises   []WorkoutExercise `json:"exercises"`
	PendingSync bool              `json:"pendingSync"`
}

// IsRestDay reports whether this is a rest-day record rather than a workout.
func (w *WorkoutSession) IsRestDay() bool {
	return w.Type == SessionTypeRestDay
}

// CompletedDate returns the local calendar date the session finished on,
// empty if still active.
func (w *WorkoutSession) CompletedDate() string {
	if w.CompletedAt == nil {
		return ""
	}
	return w.CompletedAt.Local().Format(DateOnly)
}

type WorkoutExercise struct {
	ExerciseID ExerciseID   `json:"exerciseId"`
	Sets       []WorkoutSet `json:"sets"`
}

// WorkoutSet is one set within an exercise. SetIndex values are dense and
// zero-based per exercise.
type WorkoutSet struct {
	SetIndex  int     `json:"setIndex"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
	Completed bool    `json:"completed"`
}

// SetPatch is a partial update to a single set. Nil fields are left alone.
type SetPatch struct {
	Reps      *int     `json:"reps,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
	Completed *bool    `json:"completed,omitempty"`
}

// Apply writes the non-nil fields onto the set.
func (p SetPatch) Apply(s *WorkoutSet) {
	if p.Reps != nil {
		s.Reps = *p.Reps
	}
	if p.Weight != nil {
		s.Weight = *p.Weight
	}
	if p.Completed != nil {
		s.Completed = *p.Completed
	}
}
