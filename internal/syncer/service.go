// Package syncer drains local pending state against the backend whenever
// connectivity allows. At-least-once delivery: a session leaves the pending
// queue only once the backend confirms it or rejects it terminally.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/remote"
	"github.com/claude/liftlog/internal/store"
)

// SyncError describes a session abandoned as non-retryable during a pass.
type SyncError struct {
	SessionID string
	Status    int
	Message   string
}

// Result aggregates one sync pass. The caller decides whether to surface
// failures to the user.
type Result struct {
	Synced int
	Failed int
	Errors []SyncError
}

// Status is the observable state of the supervised background sync.
type Status struct {
	LastRun     time.Time
	LastError   string
	TotalSynced int
	TotalFailed int
}

// Service reconciles the pending queue, the offline action queue, and the
// custom-exercise catalog with the backend. It never touches the active
// session slot, and the store serializes queue and history mutations, so it
// may run alongside UI-driven lifecycle calls.
type Service struct {
	store  *store.Store
	remote *remote.Client
	log    *slog.Logger

	inFlight atomic.Bool
	trigger  chan struct{}

	mu       sync.Mutex
	status   Status
	handlers map[string]ActionHandler
}

// New creates the sync service.
func New(st *store.Store, rc *remote.Client, log *slog.Logger) *Service {
	return &Service{
		store:    st,
		remote:   rc,
		log:      log,
		trigger:  make(chan struct{}, 1),
		handlers: make(map[string]ActionHandler),
	}
}

// Status returns a copy of the observable sync status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SyncPending uploads completed-but-unsynced sessions in FIFO order. It
// no-ops when the user id is absent, the backend is unreachable, or another
// pass is already in flight.
func (s *Service) SyncPending(ctx context.Context, userID string) (Result, error) {
	var result Result
	if userID == "" {
		return result, nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return result, nil
	}
	defer s.inFlight.Store(false)

	if !s.remote.Healthy(ctx) {
		return result, nil
	}

	pending, err := s.store.PendingWorkouts(ctx)
	if err != nil {
		return result, err
	}
	if len(pending) == 0 {
		return result, nil
	}

	split, err := s.store.Split(ctx)
	if err != nil {
		return result, err
	}

	for i := range pending {
		w := &pending[i]

		// Rest-day records were already delivered through the progression
		// flow; they only need to leave the queue.
		if w.IsRestDay() {
			if err := s.store.MarkWorkoutSynced(ctx, w.ID); err != nil {
				return result, err
			}
			result.Synced++
			continue
		}

		upload, ok, err := s.buildUpload(ctx, userID, split, w)
		if err != nil {
			return result, err
		}
		if !ok {
			// Nothing uploadable survived enrichment; this session can
			// never succeed, so retrying forever would be pointless. The
			// data stays in completed history.
			s.log.Warn("dropping unuploadable session from queue", "session", w.ID)
			if err := s.store.RemovePending(ctx, w.ID); err != nil {
				return result, err
			}
			result.Failed++
			result.Errors = append(result.Errors, SyncError{
				SessionID: w.ID,
				Message:   "no uploadable exercises",
			})
			continue
		}

		backendID, err := s.remote.CreateWorkoutSession(ctx, upload)
		if err == nil {
			if err := s.store.SetWorkoutBackendID(ctx, w.ID, backendID); err != nil {
				return result, err
			}
			if err := s.store.MarkWorkoutSynced(ctx, w.ID); err != nil {
				return result, err
			}
			result.Synced++
			continue
		}

		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			// 4xx: the backend rejected the session itself. Keeping it
			// queued would retry forever; history still holds the data.
			s.log.Warn("backend rejected session, abandoning upload",
				"session", w.ID, "status", statusErr.Code)
			if err := s.store.RemovePending(ctx, w.ID); err != nil {
				return result, err
			}
			result.Failed++
			result.Errors = append(result.Errors, SyncError{
				SessionID: w.ID,
				Status:    statusErr.Code,
				Message:   statusErr.Body,
			})
			continue
		}

		// 5xx or no distinguishable status: leave queued for the next pass.
		s.log.Warn("upload failed, will retry", "session", w.ID, "error", err)
		result.Failed++
	}

	return result, nil
}

// buildUpload converts a session to wire form, enriching each exercise with
// its catalog name. Exercises with no resolvable name or zero sets are
// dropped; ok is false when nothing survives.
func (s *Service) buildUpload(ctx context.Context, userID string, split *models.Split, w *models.WorkoutSession) (remote.SessionUpload, bool, error) {
	upload := remote.SessionUpload{
		UserID:    userID,
		SplitID:   w.SplitID,
		DayName:   fmt.Sprintf("Day %d", w.DayIndex+1),
		DayNumber: w.DayIndex + 1,
	}
	if w.CompletedAt != nil {
		upload.CompletedAt = *w.CompletedAt
	}
	if split != nil {
		if day := split.Day(w.DayIndex); day != nil && day.Name != "" {
			upload.DayName = day.Name
		}
	}

	for _, ex := range w.Exercises {
		if len(ex.Sets) == 0 {
			continue
		}
		name := string(ex.ExerciseID)
		resolved, err := s.store.ExerciseByID(ctx, ex.ExerciseID)
		if err != nil {
			return upload, false, err
		}
		if resolved != nil {
			name = resolved.Name
		}
		if name == "" {
			continue
		}
		ue := remote.UploadExercise{Name: name}
		for _, set := range ex.Sets {
			ue.Sets = append(ue.Sets, remote.UploadSet{
				SetNumber: set.SetIndex + 1,
				Weight:    set.Weight,
				Reps:      set.Reps,
				Completed: set.Completed,
			})
		}
		upload.Exercises = append(upload.Exercises, ue)
	}

	return upload, len(upload.Exercises) > 0, nil
}

// BackgroundSync runs one full pass (pending sessions, offline actions,
// custom-exercise catalog) and captures every failure into Status instead of
// returning it. Background sync must never crash the app. Action replay and
// catalog reconciliation only run when the backend is reachable: an offline
// pass must leave queued actions untouched, with their retry budget intact,
// rather than burning retries against a dead network.
func (s *Service) BackgroundSync(ctx context.Context, userID string) {
	result, err := s.SyncPending(ctx, userID)

	if err == nil && s.remote.Healthy(ctx) {
		if _, _, aerr := s.ProcessActions(ctx); aerr != nil {
			err = aerr
		}
		if err == nil {
			if cerr := s.SyncCustomExercises(ctx); cerr != nil {
				err = cerr
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRun = time.Now()
	s.status.TotalSynced += result.Synced
	s.status.TotalFailed += result.Failed
	switch {
	case err != nil:
		s.status.LastError = err.Error()
	case len(result.Errors) > 0:
		s.status.LastError = fmt.Sprintf("%d sessions abandoned as non-retryable", len(result.Errors))
	default:
		s.status.LastError = ""
	}
}

// Trigger requests an immediate pass from the Run loop, used on app
// foreground. Coalesces if one is already requested.
func (s *Service) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run drives BackgroundSync on the given interval and on Trigger until the
// context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration, userID string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.BackgroundSync(ctx, userID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.BackgroundSync(ctx, userID)
		case <-s.trigger:
			s.BackgroundSync(ctx, userID)
		}
	}
}
