// Package mcp exposes the local workout data over MCP: today's plan, streak,
// history, and the sync status. Read-only apart from the sync_now trigger —
// lifecycle mutations stay with the UI.
package mcp

import (
	"log/slog"

	"github.com/claude/liftlog/internal/progression"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
	"github.com/claude/liftlog/internal/syncer"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(st *store.Store, clock *progression.Clock, sess *session.Service, sync *syncer.Service, userID, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog local workout store. Query today's planned workout, training streak, completed history, and sync state. All data is local-first; sync_now pushes pending sessions to the backend."),
	)

	h := &handlers{store: st, clock: clock, session: sess, sync: sync, userID: userID, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetTodayWorkout, Handler: h.getTodayWorkout},
		server.ServerTool{Tool: toolGetStreak, Handler: h.getStreak},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
		server.ServerTool{Tool: toolGetSyncStatus, Handler: h.getSyncStatus},
		server.ServerTool{Tool: toolSyncNow, Handler: h.syncNow},
	)

	s.AddResources(
		server.ServerResource{Resource: resTodayPlan, Handler: h.todayPlan},
		server.ServerResource{Resource: resPendingQueue, Handler: h.pendingQueue},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	store   *store.Store
	clock   *progression.Clock
	session *session.Service
	sync    *syncer.Service
	userID  string
	log     *slog.Logger
}

// --- Resource definitions ---

var resTodayPlan = mcp.NewResource(
	"liftlog://today_plan",
	"Today's Plan",
	mcp.WithResourceDescription("The split day at the current progression pointer, with exercise names resolved"),
	mcp.WithMIMEType("application/json"),
)

var resPendingQueue = mcp.NewResource(
	"liftlog://pending_queue",
	"Pending Sync Queue",
	mcp.WithResourceDescription("Completed sessions awaiting upload to the backend"),
	mcp.WithMIMEType("application/json"),
)
