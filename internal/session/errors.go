package session

import "errors"

// User-input and not-found failures surfaced by the lifecycle helpers.
// Storage I/O failures are returned wrapped, not as these sentinels.
var (
	ErrNoActiveSplit    = errors.New("no active split")
	ErrSplitMismatch    = errors.New("split id does not match the active split")
	ErrInvalidDay       = errors.New("day index out of range or rest day")
	ErrEmptyWorkout     = errors.New("split day has no usable exercises")
	ErrSessionNotFound  = errors.New("session id does not match the active workout")
	ErrExerciseNotFound = errors.New("exercise not found in session")
	ErrSetNotFound      = errors.New("set index not found in exercise")
)
