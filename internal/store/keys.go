package store

// Storage keys. Flat, namespaced, string → JSON. The progression pointers are
// individual flat keys rather than one blob so a crash between writes leaves
// at worst one stale pointer instead of a torn struct.
const (
	keySplit           = "liftlog:split"
	keyActiveWorkout   = "liftlog:active_workout"
	keyPendingQueue    = "liftlog:pending_workouts"
	keyHistory         = "liftlog:completed_workouts"
	keyExerciseCatalog = "liftlog:exercise_catalog"
	keyCustomExercises = "liftlog:custom_exercises"
	keyActionQueue     = "liftlog:action_queue"

	keyCurrentWeek        = "liftlog:current_week"
	keyCurrentDayIndex    = "liftlog:current_day_index"
	keyLastCompletionDate = "liftlog:last_completion_date"
	keyLastCheckDate      = "liftlog:last_check_date"
	keyCompletedSessionID = "liftlog:completed_session_id"

	// backendIDPrefix maps local session ids to backend numeric ids:
	// liftlog:backend_id:<localID> → number
	backendIDPrefix = "liftlog:backend_id:"
)
