// Package progression keeps the (week, dayIndex) cursor that answers "what
// is today's workout", correcting itself as real days pass while the app is
// closed.
package progression

import (
	"context"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/store"
	"github.com/google/uuid"
)

// Clock evaluates the day-progression state transition. Run it once per app
// foreground and on a fixed interval while foregrounded.
type Clock struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Clock.
func New(st *store.Store, log *slog.Logger) *Clock {
	return &Clock{store: st, log: log, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (c *Clock) SetClock(now func() time.Time) { c.now = now }

// Evaluate advances or holds the day pointer to stay consistent with real
// elapsed days and returns the resulting state. The pointer advances past
// the old day only if that day was a rest day or was completed on the last
// check date; a missed workout day holds so the user resumes it rather than
// skipping it.
func (c *Clock) Evaluate(ctx context.Context) (models.ProgressionState, error) {
	st, err := c.store.Progression(ctx)
	if err != nil {
		return st, err
	}

	split, err := c.store.Split(ctx)
	if err != nil {
		return st, err
	}
	if split == nil || split.TotalDays == 0 {
		return st, nil
	}

	// Local calendar date — the training day rolls over at the user's
	// midnight, not UTC's.
	today := c.now().Local().Format(models.DateOnly)

	if st.LastCheckDate == "" {
		st.LastCheckDate = today
		return st, c.store.SaveProgression(ctx, st)
	}

	if st.LastCheckDate > today {
		// A previously shipped UTC-vs-local bug could stamp a check date in
		// the future and advance the pointer a day early. Roll the pointer
		// back one day and rewrite the stale dates.
		c.log.Warn("future check date found, rolling pointer back",
			"lastCheckDate", st.LastCheckDate, "today", today)
		st.CurrentDayIndex--
		if st.CurrentDayIndex < 0 {
			st.CurrentDayIndex = split.TotalDays - 1
			if st.CurrentWeek > 0 {
				st.CurrentWeek--
			}
		}
		st.LastCheckDate = today
		if st.LastCompletionDate > today {
			st.LastCompletionDate = today
		}
		return st, c.store.SaveProgression(ctx, st)
	}

	if st.LastCheckDate == today {
		return st, nil
	}

	// A day boundary has passed. Decide whether the day at the old pointer
	// is done with.
	day := split.Day(st.CurrentDayIndex % split.TotalDays)
	advance := day != nil && (day.IsRest || (st.LastCompletionDate != "" && st.LastCompletionDate == st.LastCheckDate))

	if advance {
		if day.IsRest {
			if err := c.recordRestDay(ctx, split, st); err != nil {
				return st, err
			}
		}
		st.CurrentDayIndex = (st.CurrentDayIndex + 1) % split.TotalDays
		if st.CurrentDayIndex == 0 {
			st.CurrentWeek++
		}
		c.log.Info("day pointer advanced",
			"week", st.CurrentWeek, "dayIndex", st.CurrentDayIndex)
	}

	// New day regardless of advance or hold.
	st.LastCompletionDate = ""
	st.CompletedSessionID = ""
	st.LastCheckDate = today

	return st, c.store.SaveProgression(ctx, st)
}

// recordRestDay writes a rest-day record into history and the pending queue
// so streaks and the sync short-circuit both see it.
func (c *Clock) recordRestDay(ctx context.Context, split *models.Split, st models.ProgressionState) error {
	completedAt, err := time.ParseInLocation(models.DateOnly, st.LastCheckDate, time.Local)
	if err != nil {
		return err
	}
	rec := &models.WorkoutSession{
		ID:          uuid.NewString(),
		SplitID:     split.ID,
		DayIndex:    st.CurrentDayIndex,
		Type:        models.SessionTypeRestDay,
		StartedAt:   completedAt,
		CompletedAt: &completedAt,
		PendingSync: true,
	}
	if err := c.store.AppendHistory(ctx, rec); err != nil {
		return err
	}
	return c.store.AppendPending(ctx, rec)
}

// PlannedExercise is one catalog-resolved exercise of today's plan.
type PlannedExercise struct {
	ExerciseID  models.ExerciseID `json:"exerciseId"`
	Name        string            `json:"name"`
	TargetSets  int               `json:"targetSets"`
	TargetReps  int               `json:"targetReps"`
	RestSeconds int               `json:"restSeconds"`
}

// DayPlan is the display form of "today's workout".
type DayPlan struct {
	SplitID   string            `json:"splitId"`
	Week      int               `json:"week"`
	DayIndex  int               `json:"dayIndex"`
	Name      string            `json:"name"`
	IsRest    bool              `json:"isRest"`
	Exercises []PlannedExercise `json:"exercises,omitempty"`
}

// TodayWorkout projects the current pointer onto the split. Pure read: it
// never moves the pointer. Returns nil when no split is stored.
func (c *Clock) TodayWorkout(ctx context.Context) (*DayPlan, error) {
	split, err := c.store.Split(ctx)
	if err != nil {
		return nil, err
	}
	if split == nil || split.TotalDays == 0 {
		return nil, nil
	}

	st, err := c.store.Progression(ctx)
	if err != nil {
		return nil, err
	}

	day := split.Day(st.CurrentDayIndex % split.TotalDays)
	if day == nil {
		return nil, nil
	}

	plan := &DayPlan{
		SplitID:  split.ID,
		Week:     st.CurrentWeek,
		DayIndex: day.DayIndex,
		Name:     day.Name,
		IsRest:   day.IsRest,
	}
	for _, ex := range day.Exercises {
		name := string(ex.ExerciseID)
		if resolved, err := c.store.ExerciseByID(ctx, ex.ExerciseID); err != nil {
			return nil, err
		} else if resolved != nil {
			name = resolved.Name
		}
		plan.Exercises = append(plan.Exercises, PlannedExercise{
			ExerciseID:  ex.ExerciseID,
			Name:        name,
			TargetSets:  int(ex.TargetSets),
			TargetReps:  int(ex.TargetReps),
			RestSeconds: ex.RestSeconds,
		})
	}
	return plan, nil
}
