package session

import "github.com/claude/liftlog/internal/models"

// Defaults substituted for malformed split exercise targets.
const (
	defaultTargetSets = 3
	defaultTargetReps = 10
)

// RepairSplit validates a loaded split and returns a corrected copy plus
// whether anything changed. Malformed target counts are coerced to defaults
// and exercise ids are normalized; the caller decides whether to persist the
// repaired form. Fixing silently is far cheaper than blocking a workout on
// historical data drift.
func RepairSplit(split models.Split) (models.Split, bool) {
	changed := false

	if split.TotalDays != len(split.Days) {
		split.TotalDays = len(split.Days)
		changed = true
	}

	days := make([]models.SplitDay, len(split.Days))
	copy(days, split.Days)
	for di := range days {
		if days[di].DayIndex != di {
			days[di].DayIndex = di
			changed = true
		}
		exercises := make([]models.SplitExercise, len(days[di].Exercises))
		copy(exercises, days[di].Exercises)
		for ei := range exercises {
			ex := &exercises[ei]
			if ex.TargetSets <= 0 {
				ex.TargetSets = defaultTargetSets
				changed = true
			}
			if ex.TargetReps <= 0 {
				ex.TargetReps = defaultTargetReps
				changed = true
			}
			if norm := models.NormalizeExerciseID(ex.ExerciseID); norm != ex.ExerciseID {
				ex.ExerciseID = norm
				changed = true
			}
		}
		days[di].Exercises = exercises
	}
	split.Days = days

	return split, changed
}
