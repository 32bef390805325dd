package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := OpenKV(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKV: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return New(kv)
}

func testSession(id string) *models.WorkoutSession {
	return &models.WorkoutSession{
		ID:        id,
		SplitID:   "split-1",
		DayIndex:  0,
		Type:      models.SessionTypeWorkout,
		StartedAt: time.Now(),
		Exercises: []models.WorkoutExercise{
			{ExerciseID: "1", Sets: []models.WorkoutSet{{SetIndex: 0, Reps: 10}}},
		},
	}
}

// TestSplitRoundTrip verifies the single-slot split storage: absent reads
// nil, saving and reloading returns the same split, and a second save
// overwrites.
func TestSplitRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.Split(ctx)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil split before save, got %+v", got)
	}

	split := &models.Split{ID: "split-1", Name: "PPL", TotalDays: 3}
	if err := s.SaveSplit(ctx, split); err != nil {
		t.Fatalf("SaveSplit: %v", err)
	}

	got, err = s.Split(ctx)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got == nil || got.ID != "split-1" || got.Name != "PPL" {
		t.Errorf("reload = %+v, want saved split", got)
	}

	split.Name = "Upper/Lower"
	if err := s.SaveSplit(ctx, split); err != nil {
		t.Fatalf("SaveSplit overwrite: %v", err)
	}
	got, _ = s.Split(ctx)
	if got.Name != "Upper/Lower" {
		t.Errorf("after overwrite Name = %q, want Upper/Lower", got.Name)
	}
}

// TestCompleteWorkout verifies the completion sequence: the session gains a
// completion stamp and pendingSync, lands in both the pending queue and
// history, and the active slot clears.
func TestCompleteWorkout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := testSession("sess-1")
	if err := s.SaveActiveWorkout(ctx, w); err != nil {
		t.Fatalf("SaveActiveWorkout: %v", err)
	}

	done, err := s.CompleteWorkout(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CompleteWorkout: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped")
	}
	if !done.PendingSync {
		t.Error("PendingSync not set")
	}

	pending, _ := s.PendingWorkouts(ctx)
	if len(pending) != 1 || pending[0].ID != "sess-1" {
		t.Errorf("pending queue = %+v, want one entry sess-1", pending)
	}
	history, _ := s.CompletedWorkouts(ctx)
	if len(history) != 1 || history[0].ID != "sess-1" {
		t.Errorf("history = %+v, want one entry sess-1", history)
	}
	active, _ := s.ActiveWorkout(ctx)
	if active != nil {
		t.Errorf("active slot not cleared: %+v", active)
	}
}

// TestCompleteWorkout_Errors verifies the failure modes: no active session
// and a mismatched id.
func TestCompleteWorkout_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CompleteWorkout(ctx, "sess-1"); !errors.Is(err, ErrNoActiveWorkout) {
		t.Errorf("no active: err = %v, want ErrNoActiveWorkout", err)
	}

	if err := s.SaveActiveWorkout(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("SaveActiveWorkout: %v", err)
	}
	if _, err := s.CompleteWorkout(ctx, "other"); !errors.Is(err, ErrWorkoutMismatch) {
		t.Errorf("mismatch: err = %v, want ErrWorkoutMismatch", err)
	}

	// The failed attempt must not have touched the active slot.
	active, _ := s.ActiveWorkout(ctx)
	if active == nil || active.ID != "sess-1" {
		t.Errorf("active slot disturbed: %+v", active)
	}
}

// TestAppendDedup verifies that re-appending the same session id to the
// pending queue or history is absorbed, so a crash-retry of completion
// cannot double-queue.
func TestAppendDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := testSession("sess-1")
	now := time.Now()
	w.CompletedAt = &now

	for i := 0; i < 2; i++ {
		if err := s.AppendPending(ctx, w); err != nil {
			t.Fatalf("AppendPending: %v", err)
		}
		if err := s.AppendHistory(ctx, w); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	pending, _ := s.PendingWorkouts(ctx)
	if len(pending) != 1 {
		t.Errorf("pending length = %d, want 1", len(pending))
	}
	history, _ := s.CompletedWorkouts(ctx)
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

// TestMarkWorkoutSynced verifies that syncing removes the pending entry and
// clears the history entry's pendingSync flag.
func TestMarkWorkoutSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := testSession("sess-1")
	now := time.Now()
	w.CompletedAt = &now
	w.PendingSync = true
	if err := s.AppendPending(ctx, w); err != nil {
		t.Fatalf("AppendPending: %v", err)
	}
	if err := s.AppendHistory(ctx, w); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	if err := s.MarkWorkoutSynced(ctx, "sess-1"); err != nil {
		t.Fatalf("MarkWorkoutSynced: %v", err)
	}

	pending, _ := s.PendingWorkouts(ctx)
	if len(pending) != 0 {
		t.Errorf("pending length = %d, want 0", len(pending))
	}
	history, _ := s.CompletedWorkouts(ctx)
	if len(history) != 1 || history[0].PendingSync {
		t.Errorf("history = %+v, want one entry with pendingSync=false", history)
	}
}

// TestConcurrentQueueMutations verifies that pending-queue and history
// mutations from different goroutines never lose each other's writes: marking
// sessions synced while new completions are appended must leave exactly the
// new completions queued.
func TestConcurrentQueueMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 10
	now := time.Now()
	for i := 0; i < n; i++ {
		w := testSession(fmt.Sprintf("old-%d", i))
		w.CompletedAt = &now
		w.PendingSync = true
		if err := s.AppendPending(ctx, w); err != nil {
			t.Fatalf("AppendPending: %v", err)
		}
		if err := s.AppendHistory(ctx, w); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := s.MarkWorkoutSynced(ctx, fmt.Sprintf("old-%d", i)); err != nil {
				t.Errorf("MarkWorkoutSynced: %v", err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			w := testSession(fmt.Sprintf("new-%d", i))
			w.CompletedAt = &now
			w.PendingSync = true
			if err := s.AppendPending(ctx, w); err != nil {
				t.Errorf("AppendPending: %v", err)
			}
			if err := s.AppendHistory(ctx, w); err != nil {
				t.Errorf("AppendHistory: %v", err)
			}
		}(i)
	}
	wg.Wait()

	pending, err := s.PendingWorkouts(ctx)
	if err != nil {
		t.Fatalf("PendingWorkouts: %v", err)
	}
	if len(pending) != n {
		t.Fatalf("pending length = %d, want %d", len(pending), n)
	}
	for _, p := range pending {
		if len(p.ID) < 4 || p.ID[:4] != "new-" {
			t.Errorf("pending entry %s survived MarkWorkoutSynced", p.ID)
		}
	}

	history, err := s.CompletedWorkouts(ctx)
	if err != nil {
		t.Fatalf("CompletedWorkouts: %v", err)
	}
	if len(history) != 2*n {
		t.Fatalf("history length = %d, want %d", len(history), 2*n)
	}
	for _, h := range history {
		if h.ID[:4] == "old-" && h.PendingSync {
			t.Errorf("history entry %s still pendingSync", h.ID)
		}
	}
}

// TestHistoryRetention verifies that history writes sweep entries older
// than the retention window.
func TestHistoryRetention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	old := testSession("old")
	oldDate := now.Add(-91 * 24 * time.Hour)
	old.CompletedAt = &oldDate
	if err := s.AppendHistory(ctx, old); err != nil {
		t.Fatalf("AppendHistory old: %v", err)
	}

	fresh := testSession("fresh")
	freshDate := now.Add(-time.Hour)
	fresh.CompletedAt = &freshDate
	if err := s.AppendHistory(ctx, fresh); err != nil {
		t.Fatalf("AppendHistory fresh: %v", err)
	}

	history, _ := s.CompletedWorkouts(ctx)
	if len(history) != 1 || history[0].ID != "fresh" {
		t.Errorf("history = %+v, want only fresh", history)
	}
}

// TestHistoryRetention_SweepsOnSyncedRewrite verifies that the retention
// sweep runs when MarkWorkoutSynced rewrites history, not just on appends,
// and that the swept session's backend-id mapping goes with it.
func TestHistoryRetention_SweepsOnSyncedRewrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seed under a backdated clock so the stale entry survives its own append.
	base := time.Now()
	s.SetClock(func() time.Time { return base.Add(-95 * 24 * time.Hour) })

	stale := testSession("stale")
	staleDate := base.Add(-95 * 24 * time.Hour)
	stale.CompletedAt = &staleDate
	if err := s.AppendHistory(ctx, stale); err != nil {
		t.Fatalf("AppendHistory stale: %v", err)
	}
	if err := s.SetWorkoutBackendID(ctx, "stale", 7); err != nil {
		t.Fatalf("SetWorkoutBackendID: %v", err)
	}

	fresh := testSession("fresh")
	freshDate := base.Add(-time.Hour)
	fresh.CompletedAt = &freshDate
	fresh.PendingSync = true
	if err := s.AppendPending(ctx, fresh); err != nil {
		t.Fatalf("AppendPending fresh: %v", err)
	}
	if err := s.AppendHistory(ctx, fresh); err != nil {
		t.Fatalf("AppendHistory fresh: %v", err)
	}

	s.SetClock(func() time.Time { return base })
	if err := s.MarkWorkoutSynced(ctx, "fresh"); err != nil {
		t.Fatalf("MarkWorkoutSynced: %v", err)
	}

	history, _ := s.CompletedWorkouts(ctx)
	if len(history) != 1 || history[0].ID != "fresh" {
		t.Errorf("history = %+v, want stale entry swept", history)
	}
	if _, ok, _ := s.WorkoutBackendID(ctx, "stale"); ok {
		t.Error("swept session's backend-id mapping survived")
	}
}

// TestHistoryRetention_SweepsOnRemove verifies that RemoveCompleted also
// applies the retention sweep to the rewritten history.
func TestHistoryRetention_SweepsOnRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.SetClock(func() time.Time { return base.Add(-95 * 24 * time.Hour) })

	for _, id := range []string{"stale", "victim"} {
		w := testSession(id)
		date := base.Add(-95 * 24 * time.Hour)
		w.CompletedAt = &date
		if err := s.AppendHistory(ctx, w); err != nil {
			t.Fatalf("AppendHistory %s: %v", id, err)
		}
	}

	s.SetClock(func() time.Time { return base })
	if err := s.RemoveCompleted(ctx, "victim"); err != nil {
		t.Fatalf("RemoveCompleted: %v", err)
	}

	history, _ := s.CompletedWorkouts(ctx)
	if len(history) != 0 {
		t.Errorf("history = %+v, want empty after sweep", history)
	}
}

// TestReplaceCustomExercises verifies the reconciliation merge: the server
// list wins, local entries still pending sync survive, and local entries the
// server already knows (same backend id) are not duplicated.
func TestReplaceCustomExercises(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	local := []models.CustomExercise{
		{Exercise: models.Exercise{ID: "c1", Name: "Synced"}, BackendID: 10},
		{Exercise: models.Exercise{ID: "c2", Name: "Offline only"}, PendingSync: true},
		{Exercise: models.Exercise{ID: "c3", Name: "Pending but known"}, PendingSync: true, BackendID: 20},
	}
	for _, e := range local {
		if err := s.CreateCustomExercise(ctx, e); err != nil {
			t.Fatalf("CreateCustomExercise: %v", err)
		}
	}

	server := []models.CustomExercise{
		{Exercise: models.Exercise{ID: "c1", Name: "Synced (renamed)"}, BackendID: 10},
		{Exercise: models.Exercise{ID: "c3", Name: "Pending but known"}, BackendID: 20},
	}
	if err := s.ReplaceCustomExercises(ctx, server); err != nil {
		t.Fatalf("ReplaceCustomExercises: %v", err)
	}

	got, _ := s.CustomExercises(ctx)
	if len(got) != 3 {
		t.Fatalf("merged length = %d, want 3: %+v", len(got), got)
	}
	byID := make(map[models.ExerciseID]models.CustomExercise)
	for _, e := range got {
		byID[e.ID] = e
	}
	if byID["c1"].Name != "Synced (renamed)" {
		t.Errorf("c1 = %+v, want server rename to win", byID["c1"])
	}
	if !byID["c2"].PendingSync {
		t.Errorf("c2 = %+v, want local pending entry preserved", byID["c2"])
	}
}

// TestWorkoutBackendID verifies the local-to-backend session id mapping.
func TestWorkoutBackendID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.WorkoutBackendID(ctx, "sess-1"); err != nil || ok {
		t.Fatalf("before set: ok=%v err=%v, want false nil", ok, err)
	}

	if err := s.SetWorkoutBackendID(ctx, "sess-1", 4711); err != nil {
		t.Fatalf("SetWorkoutBackendID: %v", err)
	}
	id, ok, err := s.WorkoutBackendID(ctx, "sess-1")
	if err != nil || !ok || id != 4711 {
		t.Errorf("after set: id=%d ok=%v err=%v, want 4711 true nil", id, ok, err)
	}

	if err := s.DeleteWorkoutBackendID(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteWorkoutBackendID: %v", err)
	}
	if _, ok, _ := s.WorkoutBackendID(ctx, "sess-1"); ok {
		t.Error("mapping survived delete")
	}
}

// TestProgressionRoundTrip verifies that the pointer keys persist
// individually and that clearing a string field deletes its key.
func TestProgressionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Progression(ctx)
	if err != nil {
		t.Fatalf("Progression: %v", err)
	}
	if st != (models.ProgressionState{}) {
		t.Errorf("fresh store progression = %+v, want zero value", st)
	}

	want := models.ProgressionState{
		CurrentWeek:        2,
		CurrentDayIndex:    1,
		LastCompletionDate: "2026-08-28",
		LastCheckDate:      "2026-08-29",
		CompletedSessionID: "sess-9",
	}
	if err := s.SaveProgression(ctx, want); err != nil {
		t.Fatalf("SaveProgression: %v", err)
	}
	got, err := s.Progression(ctx)
	if err != nil {
		t.Fatalf("Progression: %v", err)
	}
	if got != want {
		t.Errorf("reload = %+v, want %+v", got, want)
	}

	want.LastCompletionDate = ""
	want.CompletedSessionID = ""
	if err := s.SaveProgression(ctx, want); err != nil {
		t.Fatalf("SaveProgression clear: %v", err)
	}
	got, _ = s.Progression(ctx)
	if got.LastCompletionDate != "" || got.CompletedSessionID != "" {
		t.Errorf("cleared fields persisted: %+v", got)
	}
}

// TestActionQueue verifies enqueue, retry-count update, and removal of
// offline actions.
func TestActionQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := models.QueuedAction{ID: "act-1", Type: "delete_session", Timestamp: time.Now()}
	b := models.QueuedAction{ID: "act-2", Type: "create_split", Timestamp: time.Now()}
	if err := s.EnqueueAction(ctx, a); err != nil {
		t.Fatalf("EnqueueAction: %v", err)
	}
	if err := s.EnqueueAction(ctx, b); err != nil {
		t.Fatalf("EnqueueAction: %v", err)
	}

	queue, _ := s.Actions(ctx)
	if len(queue) != 2 || queue[0].ID != "act-1" {
		t.Fatalf("queue = %+v, want FIFO [act-1 act-2]", queue)
	}

	a.RetryCount = 2
	if err := s.UpdateAction(ctx, a); err != nil {
		t.Fatalf("UpdateAction: %v", err)
	}
	queue, _ = s.Actions(ctx)
	if queue[0].RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", queue[0].RetryCount)
	}

	if err := s.RemoveAction(ctx, "act-1"); err != nil {
		t.Fatalf("RemoveAction: %v", err)
	}
	queue, _ = s.Actions(ctx)
	if len(queue) != 1 || queue[0].ID != "act-2" {
		t.Errorf("queue after remove = %+v, want [act-2]", queue)
	}
}
