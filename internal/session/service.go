// Package session implements the active-workout lifecycle: a single mutable
// session that moves NONE → ACTIVE → (COMPLETED | CANCELLED), persisted on
// every mutation so process death leaves durable state at some prior valid
// point.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/store"
	"github.com/google/uuid"
)

// Service owns all lifecycle mutations. A single mutex serializes them: the
// store's single-writer-per-key discipline holds no matter how many
// goroutines call in.
type Service struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
	mu    sync.Mutex
}

// New creates the lifecycle service.
func New(st *store.Store, log *slog.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Start begins a workout for the given split day. If a session is already
// active it is returned unchanged — resuming is not an error. Malformed
// split entries are repaired and the corrected split persisted before the
// session is built.
func (s *Service) Start(ctx context.Context, splitID string, dayIndex int) (*models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	split, err := s.store.Split(ctx)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, ErrNoActiveSplit
	}
	if split.ID != splitID {
		return nil, fmt.Errorf("%w: active %s, requested %s", ErrSplitMismatch, split.ID, splitID)
	}

	if active, err := s.store.ActiveWorkout(ctx); err != nil {
		return nil, err
	} else if active != nil {
		s.log.Info("resuming active workout", "session", active.ID)
		return active, nil
	}

	repaired, changed := RepairSplit(*split)
	if changed {
		s.log.Warn("repaired malformed split entries", "split", split.ID)
		if err := s.store.SaveSplit(ctx, &repaired); err != nil {
			return nil, err
		}
	}

	day := repaired.Day(dayIndex)
	if day == nil || day.IsRest {
		return nil, fmt.Errorf("%w: day %d", ErrInvalidDay, dayIndex)
	}

	w := &models.WorkoutSession{
		ID:        uuid.NewString(),
		SplitID:   repaired.ID,
		DayIndex:  dayIndex,
		Type:      models.SessionTypeWorkout,
		StartedAt: s.now(),
	}
	for _, ex := range day.Exercises {
		if ex.ExerciseID == "" {
			continue
		}
		we := models.WorkoutExercise{ExerciseID: ex.ExerciseID}
		for i := 0; i < int(ex.TargetSets); i++ {
			we.Sets = append(we.Sets, models.WorkoutSet{
				SetIndex: i,
				Reps:     int(ex.TargetReps),
			})
		}
		w.Exercises = append(w.Exercises, we)
	}
	if len(w.Exercises) == 0 {
		// deliberate hard stop: a zero-exercise session could never complete
		// meaningfully
		return nil, fmt.Errorf("%w: day %d", ErrEmptyWorkout, dayIndex)
	}

	if err := s.store.SaveActiveWorkout(ctx, w); err != nil {
		return nil, err
	}
	s.log.Info("workout started", "session", w.ID, "day", dayIndex, "exercises", len(w.Exercises))
	return w, nil
}

// UpdateSet patches a single set in the active session and persists
// immediately — a session may be abandoned at any set, so durability beats
// batching. Exercise resolution tolerates historical string/number id drift.
func (s *Service) UpdateSet(ctx context.Context, sessionID string, exerciseID models.ExerciseID, setIndex int, patch models.SetPatch) (*models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.store.ActiveWorkout(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil || active.ID != sessionID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	ex := resolveExercise(active, exerciseID)
	if ex == nil {
		return nil, fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}
	if setIndex < 0 || setIndex >= len(ex.Sets) {
		return nil, fmt.Errorf("%w: exercise %s set %d", ErrSetNotFound, exerciseID, setIndex)
	}

	patch.Apply(&ex.Sets[setIndex])
	if err := s.store.SaveActiveWorkout(ctx, active); err != nil {
		return nil, err
	}
	return active, nil
}

// resolveExercise tries exact match, then string-normalized match, then
// numeric match.
func resolveExercise(w *models.WorkoutSession, id models.ExerciseID) *models.WorkoutExercise {
	for i := range w.Exercises {
		if w.Exercises[i].ExerciseID == id {
			return &w.Exercises[i]
		}
	}
	norm := models.NormalizeExerciseID(id)
	for i := range w.Exercises {
		if models.NormalizeExerciseID(w.Exercises[i].ExerciseID) == norm {
			return &w.Exercises[i]
		}
	}
	if want, ok := norm.Numeric(); ok {
		for i := range w.Exercises {
			if have, ok := w.Exercises[i].ExerciseID.Numeric(); ok && have == want {
				return &w.Exercises[i]
			}
		}
	}
	return nil
}

// Complete finishes the active session: it moves to the pending queue and
// completed history, the active slot clears, and the progression pointer
// learns that today's workout is done.
func (s *Service) Complete(ctx context.Context, sessionID string) (*models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.store.CompleteWorkout(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st, err := s.store.Progression(ctx)
	if err != nil {
		return nil, err
	}
	st.LastCompletionDate = w.CompletedAt.Local().Format(models.DateOnly)
	st.CompletedSessionID = w.ID
	if err := s.store.SaveProgression(ctx, st); err != nil {
		return nil, err
	}

	s.log.Info("workout completed", "session", w.ID, "day", w.DayIndex)
	return w, nil
}

// Cancel discards the active session. A mismatched or absent id is a no-op,
// not an error — the caller may race with an already-cleared session.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.store.ActiveWorkout(ctx)
	if err != nil {
		return err
	}
	if active == nil || active.ID != sessionID {
		return nil
	}
	if err := s.store.ClearActiveWorkout(ctx); err != nil {
		return err
	}
	s.log.Info("workout cancelled", "session", sessionID)
	return nil
}
