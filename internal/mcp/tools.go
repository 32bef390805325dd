package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetTodayWorkout = mcp.NewTool("get_today_workout",
	mcp.WithDescription("Get today's planned workout: the split day at the current progression pointer, with exercise names, target sets/reps, and rest times. Rest days return a rest marker."),
)

var toolGetStreak = mcp.NewTool("get_streak",
	mcp.WithDescription("Get the current consecutive-day training streak, computed from local history only."),
)

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("List completed workout sessions from local history (90-day rolling window), newest first."),
	mcp.WithString("start", mcp.Description("Earliest completion date (YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("Latest completion date (YYYY-MM-DD). Defaults to today.")),
)

var toolGetSyncStatus = mcp.NewTool("get_sync_status",
	mcp.WithDescription("Report background sync state: last run, last error, totals, and the current pending-queue depth."),
)

var toolSyncNow = mcp.NewTool("sync_now",
	mcp.WithDescription("Run one synchronous sync pass, uploading pending sessions to the backend. Returns synced/failed counts."),
)

// --- Tool handlers ---

func (h *handlers) getTodayWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, err := h.clock.TodayWorkout(ctx)
	if err != nil {
		h.log.Error("mcp get_today_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if plan == nil {
		return mcp.NewToolResultText("no active split"), nil
	}
	result, err := mcp.NewToolResultJSON(plan)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStreak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streak, err := h.session.Streak(ctx)
	if err != nil {
		h.log.Error("mcp get_streak", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(map[string]int{"streak": streak})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	end := req.GetString("end", "")
	if end == "" {
		end = time.Now().Format(models.DateOnly)
	}
	start := req.GetString("start", "")
	if start == "" {
		endT, err := time.Parse(models.DateOnly, end)
		if err != nil {
			return mcp.NewToolResultError("invalid end date: " + err.Error()), nil
		}
		start = endT.AddDate(0, 0, -30).Format(models.DateOnly)
	}

	history, err := h.store.CompletedWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	var filtered []models.WorkoutSession
	for i := len(history) - 1; i >= 0; i-- {
		date := history[i].CompletedDate()
		if date >= start && date <= end {
			filtered = append(filtered, history[i])
		}
	}

	result, err := mcp.NewToolResultJSON(filtered)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSyncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pending, err := h.store.PendingWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp get_sync_status", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	status := h.sync.Status()
	result, err := mcp.NewToolResultJSON(map[string]any{
		"lastRun":      status.LastRun,
		"lastError":    status.LastError,
		"totalSynced":  status.TotalSynced,
		"totalFailed":  status.TotalFailed,
		"pendingCount": len(pending),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) syncNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.sync.SyncPending(ctx, h.userID)
	if err != nil {
		h.log.Error("mcp sync_now", "error", err)
		return mcp.NewToolResultError("sync failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Resource handlers ---

func (h *handlers) todayPlan(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	plan, err := h.clock.TodayWorkout(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) pendingQueue(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pending, err := h.store.PendingWorkouts(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
