package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

func enqueue(t *testing.T, svc *Service, a models.QueuedAction) {
	t.Helper()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if err := svc.store.EnqueueAction(context.Background(), a); err != nil {
		t.Fatalf("EnqueueAction: %v", err)
	}
}

// TestProcessActions_Success verifies that a handled action leaves the queue.
func TestProcessActions_Success(t *testing.T) {
	svc, st, _ := newTestSyncer(t)
	ctx := context.Background()

	var calls int
	svc.RegisterHandler("ping", func(ctx context.Context, a models.QueuedAction) error {
		calls++
		return nil
	})
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: "ping"})

	processed, dropped, err := svc.ProcessActions(ctx)
	if err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if processed != 1 || dropped != 0 || calls != 1 {
		t.Errorf("processed=%d dropped=%d calls=%d, want 1/0/1", processed, dropped, calls)
	}
	queue, _ := st.Actions(ctx)
	if len(queue) != 0 {
		t.Errorf("queue = %+v, want empty", queue)
	}
}

// TestProcessActions_RetryThenDrop verifies the bounded retry: failures bump
// the persisted retry count and the action drops after three.
func TestProcessActions_RetryThenDrop(t *testing.T) {
	svc, st, _ := newTestSyncer(t)
	ctx := context.Background()

	svc.RegisterHandler("flaky", func(ctx context.Context, a models.QueuedAction) error {
		return errors.New("still broken")
	})
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: "flaky"})

	for pass := 1; pass <= 2; pass++ {
		if _, dropped, err := svc.ProcessActions(ctx); err != nil || dropped != 0 {
			t.Fatalf("pass %d: dropped=%d err=%v, want still queued", pass, dropped, err)
		}
		queue, _ := st.Actions(ctx)
		if len(queue) != 1 || queue[0].RetryCount != pass {
			t.Fatalf("pass %d: queue = %+v, want retry count %d", pass, queue, pass)
		}
	}

	_, dropped, err := svc.ProcessActions(ctx)
	if err != nil {
		t.Fatalf("final pass: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1 after exhausting retries", dropped)
	}
	queue, _ := st.Actions(ctx)
	if len(queue) != 0 {
		t.Errorf("queue = %+v, want empty", queue)
	}
}

// TestProcessActions_UnknownTypeStaysQueued verifies that an action with no
// registered handler is skipped, not dropped.
func TestProcessActions_UnknownTypeStaysQueued(t *testing.T) {
	svc, st, _ := newTestSyncer(t)
	ctx := context.Background()
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: "mystery"})

	processed, dropped, err := svc.ProcessActions(ctx)
	if err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if processed != 0 || dropped != 0 {
		t.Errorf("processed=%d dropped=%d, want 0/0", processed, dropped)
	}
	queue, _ := st.Actions(ctx)
	if len(queue) != 1 || queue[0].RetryCount != 0 {
		t.Errorf("queue = %+v, want untouched", queue)
	}
}

// TestBackgroundSync_OfflineLeavesActionsQueued verifies that an unreachable
// backend never burns the action retry budget: repeated offline passes leave
// the queue untouched, and the action still replays once connectivity returns.
func TestBackgroundSync_OfflineLeavesActionsQueued(t *testing.T) {
	svc, st, backend := newTestSyncer(t)
	ctx := context.Background()
	svc.RegisterDefaultHandlers()

	split := models.Split{ID: "split-1", Name: "PPL", TotalDays: 3}
	payload, _ := json.Marshal(split)
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: ActionCreateSplit, Payload: payload})

	backend.SetHealthy(false)
	for pass := 1; pass <= maxActionRetries; pass++ {
		svc.BackgroundSync(ctx, "user-1")
		queue, err := st.Actions(ctx)
		if err != nil {
			t.Fatalf("pass %d: Actions: %v", pass, err)
		}
		if len(queue) != 1 || queue[0].RetryCount != 0 {
			t.Fatalf("pass %d: queue = %+v, want one action with retry count 0", pass, queue)
		}
	}

	backend.SetHealthy(true)
	svc.BackgroundSync(ctx, "user-1")
	queue, _ := st.Actions(ctx)
	if len(queue) != 0 {
		t.Errorf("queue = %+v, want empty after reconnect", queue)
	}
	splits, err := svc.remote.ListSplits(ctx)
	if err != nil {
		t.Fatalf("ListSplits: %v", err)
	}
	if len(splits) != 1 || splits[0].Name != "PPL" {
		t.Errorf("backend splits = %+v, want the replayed split", splits)
	}
}

// TestReplayDeleteSession verifies the un-complete flow: the queued delete
// removes the backend row and the local id mapping.
func TestReplayDeleteSession(t *testing.T) {
	svc, st, backend := newTestSyncer(t)
	ctx := context.Background()
	svc.RegisterDefaultHandlers()

	// Upload a session first so a backend row and mapping exist.
	if err := st.SaveExerciseCatalog(ctx, []models.Exercise{{ID: "1", Name: "Bench Press"}}); err != nil {
		t.Fatalf("SaveExerciseCatalog: %v", err)
	}
	queuePending(t, st, pendingWorkout("sess-1"))
	if _, err := svc.SyncPending(ctx, "user-1"); err != nil {
		t.Fatalf("SyncPending: %v", err)
	}
	if len(backend.Sessions()) != 1 {
		t.Fatal("upload did not reach backend")
	}

	payload, _ := json.Marshal(map[string]string{"sessionId": "sess-1"})
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: ActionDeleteSession, Payload: payload})

	processed, _, err := svc.ProcessActions(ctx)
	if err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if len(backend.Sessions()) != 0 {
		t.Error("backend row not deleted")
	}
	if _, ok, _ := st.WorkoutBackendID(ctx, "sess-1"); ok {
		t.Error("backend id mapping not removed")
	}
}

// TestReplayDeleteSession_NeverUploaded verifies that deleting a session
// with no backend id succeeds immediately; there is nothing to undo.
func TestReplayDeleteSession_NeverUploaded(t *testing.T) {
	svc, st, _ := newTestSyncer(t)
	ctx := context.Background()
	svc.RegisterDefaultHandlers()

	payload, _ := json.Marshal(map[string]string{"sessionId": "ghost"})
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: ActionDeleteSession, Payload: payload})

	processed, dropped, err := svc.ProcessActions(ctx)
	if err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if processed != 1 || dropped != 0 {
		t.Errorf("processed=%d dropped=%d, want 1/0", processed, dropped)
	}
	queue, _ := st.Actions(ctx)
	if len(queue) != 0 {
		t.Errorf("queue = %+v, want empty", queue)
	}
}

// TestReplaySplitMutation verifies that an offline split edit reaches the
// backend on replay.
func TestReplaySplitMutation(t *testing.T) {
	svc, _, _ := newTestSyncer(t)
	ctx := context.Background()
	svc.RegisterDefaultHandlers()

	split := models.Split{ID: "split-1", Name: "PPL", TotalDays: 3}
	payload, _ := json.Marshal(split)
	enqueue(t, svc, models.QueuedAction{ID: "act-1", Type: ActionCreateSplit, Payload: payload})

	processed, _, err := svc.ProcessActions(ctx)
	if err != nil {
		t.Fatalf("ProcessActions: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}

	// Verify against the backend's split list through the client.
	splits, err := svc.remote.ListSplits(ctx)
	if err != nil {
		t.Fatalf("ListSplits: %v", err)
	}
	if len(splits) != 1 || splits[0].Name != "PPL" {
		t.Errorf("backend splits = %+v, want the replayed split", splits)
	}
}
