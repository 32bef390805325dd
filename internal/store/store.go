package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// History entries older than this are swept on every history write.
const historyRetention = 90 * 24 * time.Hour

var (
	// ErrNoActiveWorkout is returned by CompleteWorkout when no session is active.
	ErrNoActiveWorkout = errors.New("no active workout")
	// ErrWorkoutMismatch is returned when the given id does not match the active session.
	ErrWorkoutMismatch = errors.New("workout id does not match active session")
)

// Store is the typed façade over the durable KV. Methods never error on
// "not found" — absent values come back as nil or empty slices. Errors mean
// serialization or underlying store I/O failure.
//
// The array-valued keys (pending queue, history, custom exercises, action
// queue) are mutated by whole-array read-modify-write, and both the session
// service and the background syncer touch them. mu serializes those cycles so
// concurrent mutators never overwrite each other's appends.
type Store struct {
	kv  KV
	now func() time.Time
	mu  sync.Mutex
}

// New creates a Store over the given KV.
func New(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data)
}

// --- Split ---

// Split returns the active split, nil if none is stored.
func (s *Store) Split(ctx context.Context) (*models.Split, error) {
	var split models.Split
	ok, err := s.getJSON(ctx, keySplit, &split)
	if err != nil || !ok {
		return nil, err
	}
	return &split, nil
}

// SaveSplit stores the split. Single slot, last write wins.
func (s *Store) SaveSplit(ctx context.Context, split *models.Split) error {
	return s.setJSON(ctx, keySplit, split)
}

// --- Active session ---

// ActiveWorkout returns the in-progress session, nil if none.
func (s *Store) ActiveWorkout(ctx context.Context) (*models.WorkoutSession, error) {
	var w models.WorkoutSession
	ok, err := s.getJSON(ctx, keyActiveWorkout, &w)
	if err != nil || !ok {
		return nil, err
	}
	return &w, nil
}

// SaveActiveWorkout persists the active session slot.
func (s *Store) SaveActiveWorkout(ctx context.Context, w *models.WorkoutSession) error {
	return s.setJSON(ctx, keyActiveWorkout, w)
}

// ClearActiveWorkout empties the active slot.
func (s *Store) ClearActiveWorkout(ctx context.Context) error {
	return s.kv.Delete(ctx, keyActiveWorkout)
}

// CompleteWorkout finishes the active session: stamps completedAt, appends to
// the pending queue, appends to completed history (deduped by id), then
// clears the active slot — in that order, so a crash mid-sequence never loses
// a completed session. Re-running after a partial crash is safe: the history
// dedup absorbs the duplicate append.
func (s *Store) CompleteWorkout(ctx context.Context, id string) (*models.WorkoutSession, error) {
	active, err := s.ActiveWorkout(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveWorkout
	}
	if active.ID != id {
		return nil, fmt.Errorf("%w: have %s, got %s", ErrWorkoutMismatch, active.ID, id)
	}

	completedAt := s.now()
	active.CompletedAt = &completedAt
	active.PendingSync = true

	if err := s.AppendPending(ctx, active); err != nil {
		return nil, err
	}
	if err := s.AppendHistory(ctx, active); err != nil {
		return nil, err
	}
	if err := s.ClearActiveWorkout(ctx); err != nil {
		return nil, err
	}
	return active, nil
}

// --- Pending queue ---

// PendingWorkouts lists completed-but-unsynced sessions in FIFO order.
func (s *Store) PendingWorkouts(ctx context.Context) ([]models.WorkoutSession, error) {
	var queue []models.WorkoutSession
	if _, err := s.getJSON(ctx, keyPendingQueue, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

// AppendPending adds a session to the pending queue, deduped by id so a
// crash-retry of CompleteWorkout does not double-queue.
func (s *Store) AppendPending(ctx context.Context, w *models.WorkoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.PendingWorkouts(ctx)
	if err != nil {
		return err
	}
	for _, q := range queue {
		if q.ID == w.ID {
			return nil
		}
	}
	queue = append(queue, *w)
	return s.setJSON(ctx, keyPendingQueue, queue)
}

// RemovePending drops the session from the pending queue.
func (s *Store) RemovePending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removePendingLocked(ctx, id)
}

func (s *Store) removePendingLocked(ctx context.Context, id string) error {
	queue, err := s.PendingWorkouts(ctx)
	if err != nil {
		return err
	}
	kept := queue[:0]
	for _, q := range queue {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	return s.setJSON(ctx, keyPendingQueue, kept)
}

// MarkWorkoutSynced removes the session from the pending queue and flips its
// history entry's pendingSync flag. The only mutator once a session is queued.
func (s *Store) MarkWorkoutSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removePendingLocked(ctx, id); err != nil {
		return err
	}
	history, err := s.CompletedWorkouts(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i := range history {
		if history[i].ID == id && history[i].PendingSync {
			history[i].PendingSync = false
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeHistoryLocked(ctx, history)
}

// --- Completed history ---

// CompletedWorkouts lists the local history of finished sessions, newest last.
func (s *Store) CompletedWorkouts(ctx context.Context) ([]models.WorkoutSession, error) {
	var history []models.WorkoutSession
	if _, err := s.getJSON(ctx, keyHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AppendHistory appends a finished session to completed history, deduped by id.
func (s *Store) AppendHistory(ctx context.Context, w *models.WorkoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.CompletedWorkouts(ctx)
	if err != nil {
		return err
	}
	for _, h := range history {
		if h.ID == w.ID {
			return nil
		}
	}
	return s.writeHistoryLocked(ctx, append(history, *w))
}

// RemoveCompleted drops a session from history (the "un-complete" flow).
func (s *Store) RemoveCompleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.CompletedWorkouts(ctx)
	if err != nil {
		return err
	}
	kept := history[:0]
	for _, h := range history {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	return s.writeHistoryLocked(ctx, kept)
}

// writeHistoryLocked persists history, sweeping entries past the retention
// window on every write and dropping the backend-id mappings of swept
// sessions so the mapping namespace cannot grow past the history it serves.
// Callers hold s.mu.
func (s *Store) writeHistoryLocked(ctx context.Context, history []models.WorkoutSession) error {
	cutoff := s.now().Add(-historyRetention)
	kept := history[:0]
	var swept []string
	for _, h := range history {
		if h.CompletedAt == nil || h.CompletedAt.After(cutoff) {
			kept = append(kept, h)
			continue
		}
		swept = append(swept, backendIDPrefix+h.ID)
	}
	if len(swept) > 0 {
		if err := s.kv.DeleteMany(ctx, swept...); err != nil {
			return err
		}
	}
	return s.setJSON(ctx, keyHistory, kept)
}

// --- Exercise catalog ---

// ExerciseCatalog returns the bundled catalog as stored.
func (s *Store) ExerciseCatalog(ctx context.Context) ([]models.Exercise, error) {
	var catalog []models.Exercise
	if _, err := s.getJSON(ctx, keyExerciseCatalog, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// SaveExerciseCatalog replaces the stored catalog. Called once at startup
// from the bundled dataset.
func (s *Store) SaveExerciseCatalog(ctx context.Context, catalog []models.Exercise) error {
	return s.setJSON(ctx, keyExerciseCatalog, catalog)
}

// ExerciseByID resolves an id against the catalog, then custom exercises.
// Returns nil if unknown.
func (s *Store) ExerciseByID(ctx context.Context, id models.ExerciseID) (*models.Exercise, error) {
	catalog, err := s.ExerciseCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i], nil
		}
	}
	custom, err := s.CustomExercises(ctx)
	if err != nil {
		return nil, err
	}
	for i := range custom {
		if custom[i].ID == id {
			return &custom[i].Exercise, nil
		}
	}
	return nil, nil
}

// --- Custom exercises ---

// CustomExercises lists the user-created exercises.
func (s *Store) CustomExercises(ctx context.Context) ([]models.CustomExercise, error) {
	var custom []models.CustomExercise
	if _, err := s.getJSON(ctx, keyCustomExercises, &custom); err != nil {
		return nil, err
	}
	return custom, nil
}

// CreateCustomExercise appends a new custom exercise.
func (s *Store) CreateCustomExercise(ctx context.Context, e models.CustomExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, err := s.CustomExercises(ctx)
	if err != nil {
		return err
	}
	return s.setJSON(ctx, keyCustomExercises, append(custom, e))
}

// UpdateCustomExercise replaces the entry with the same id. Unknown ids are
// a no-op, matching the adapter's never-throw-on-missing contract.
func (s *Store) UpdateCustomExercise(ctx context.Context, e models.CustomExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, err := s.CustomExercises(ctx)
	if err != nil {
		return err
	}
	for i := range custom {
		if custom[i].ID == e.ID {
			custom[i] = e
		}
	}
	return s.setJSON(ctx, keyCustomExercises, custom)
}

// DeleteCustomExercise removes the entry with the given id.
func (s *Store) DeleteCustomExercise(ctx context.Context, id models.ExerciseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	custom, err := s.CustomExercises(ctx)
	if err != nil {
		return err
	}
	kept := custom[:0]
	for _, c := range custom {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return s.setJSON(ctx, keyCustomExercises, kept)
}

// ReplaceCustomExercises merges server truth with local state: the server
// list wins, plus any local-only entries still pending sync (deduped by
// backend id). This is the catalog's offline/online reconciliation point.
func (s *Store) ReplaceCustomExercises(ctx context.Context, backendList []models.CustomExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, err := s.CustomExercises(ctx)
	if err != nil {
		return err
	}

	seen := make(map[int64]bool, len(backendList))
	for _, b := range backendList {
		if b.BackendID != 0 {
			seen[b.BackendID] = true
		}
	}

	merged := backendList
	for _, l := range local {
		if !l.PendingSync {
			continue
		}
		if l.BackendID != 0 && seen[l.BackendID] {
			continue
		}
		merged = append(merged, l)
	}
	return s.setJSON(ctx, keyCustomExercises, merged)
}

// --- Workout-ID mapping ---

// SetWorkoutBackendID records the backend row id for an uploaded session.
func (s *Store) SetWorkoutBackendID(ctx context.Context, localID string, backendID int64) error {
	return s.kv.Set(ctx, backendIDPrefix+localID, []byte(strconv.FormatInt(backendID, 10)))
}

// WorkoutBackendID returns the backend id for a local session, false if the
// session never uploaded.
func (s *Store) WorkoutBackendID(ctx context.Context, localID string) (int64, bool, error) {
	data, ok, err := s.kv.Get(ctx, backendIDPrefix+localID)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decoding backend id for %s: %w", localID, err)
	}
	return n, true, nil
}

// DeleteWorkoutBackendID removes the mapping after the backend row is deleted.
func (s *Store) DeleteWorkoutBackendID(ctx context.Context, localID string) error {
	return s.kv.Delete(ctx, backendIDPrefix+localID)
}

// --- Progression pointers ---

// Progression reads the day-progression pointer keys. Missing keys come back
// as zero values.
func (s *Store) Progression(ctx context.Context) (models.ProgressionState, error) {
	var st models.ProgressionState
	var err error
	if st.CurrentWeek, err = s.getInt(ctx, keyCurrentWeek); err != nil {
		return st, err
	}
	if st.CurrentDayIndex, err = s.getInt(ctx, keyCurrentDayIndex); err != nil {
		return st, err
	}
	if st.LastCompletionDate, err = s.getString(ctx, keyLastCompletionDate); err != nil {
		return st, err
	}
	if st.LastCheckDate, err = s.getString(ctx, keyLastCheckDate); err != nil {
		return st, err
	}
	if st.CompletedSessionID, err = s.getString(ctx, keyCompletedSessionID); err != nil {
		return st, err
	}
	return st, nil
}

// SaveProgression writes all pointer keys.
func (s *Store) SaveProgression(ctx context.Context, st models.ProgressionState) error {
	if err := s.kv.Set(ctx, keyCurrentWeek, []byte(strconv.Itoa(st.CurrentWeek))); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, keyCurrentDayIndex, []byte(strconv.Itoa(st.CurrentDayIndex))); err != nil {
		return err
	}
	if err := s.setString(ctx, keyLastCompletionDate, st.LastCompletionDate); err != nil {
		return err
	}
	if err := s.setString(ctx, keyLastCheckDate, st.LastCheckDate); err != nil {
		return err
	}
	return s.setString(ctx, keyCompletedSessionID, st.CompletedSessionID)
}

func (s *Store) getInt(ctx context.Context, key string) (int, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) getString(ctx context.Context, key string) (string, error) {
	data, _, err := s.kv.Get(ctx, key)
	return string(data), err
}

func (s *Store) setString(ctx context.Context, key, value string) error {
	if value == "" {
		return s.kv.Delete(ctx, key)
	}
	return s.kv.Set(ctx, key, []byte(value))
}

// --- Offline action queue ---

// Actions lists queued offline actions in FIFO order.
func (s *Store) Actions(ctx context.Context) ([]models.QueuedAction, error) {
	var queue []models.QueuedAction
	if _, err := s.getJSON(ctx, keyActionQueue, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

// EnqueueAction appends an action to the offline queue.
func (s *Store) EnqueueAction(ctx context.Context, a models.QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.Actions(ctx)
	if err != nil {
		return err
	}
	return s.setJSON(ctx, keyActionQueue, append(queue, a))
}

// UpdateAction replaces the queued action with the same id, used to bump its
// retry count.
func (s *Store) UpdateAction(ctx context.Context, a models.QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.Actions(ctx)
	if err != nil {
		return err
	}
	for i := range queue {
		if queue[i].ID == a.ID {
			queue[i] = a
		}
	}
	return s.setJSON(ctx, keyActionQueue, queue)
}

// RemoveAction drops an action from the queue.
func (s *Store) RemoveAction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.Actions(ctx)
	if err != nil {
		return err
	}
	kept := queue[:0]
	for _, a := range queue {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return s.setJSON(ctx, keyActionQueue, kept)
}
