package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// Action types replayed by the default handlers.
const (
	ActionDeleteSession = "delete_session"
	ActionCreateSplit   = "create_split"
	ActionUpdateSplit   = "update_split"
	ActionDeleteSplit   = "delete_split"
)

// deleteSessionPayload carries the local id of an un-completed session whose
// backend row should be removed.
type deleteSessionPayload struct {
	SessionID string `json:"sessionId"`
}

type deleteSplitPayload struct {
	SplitID string `json:"splitId"`
}

// RegisterDefaultHandlers installs replay handlers for the built-in action
// types: backend deletion of un-completed sessions and split mutations made
// while offline.
func (s *Service) RegisterDefaultHandlers() {
	s.RegisterHandler(ActionDeleteSession, s.replayDeleteSession)
	s.RegisterHandler(ActionCreateSplit, s.replaySplitMutation(s.remote.CreateSplit))
	s.RegisterHandler(ActionUpdateSplit, s.replaySplitMutation(s.remote.UpdateSplit))
	s.RegisterHandler(ActionDeleteSplit, s.replayDeleteSplit)
}

// replayDeleteSession removes the backend row for a session the user
// un-completed locally. If the session never uploaded there is no backend id
// and nothing to delete.
func (s *Service) replayDeleteSession(ctx context.Context, action models.QueuedAction) error {
	var p deleteSessionPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		return fmt.Errorf("decoding delete_session payload: %w", err)
	}

	backendID, ok, err := s.store.WorkoutBackendID(ctx, p.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := s.remote.DeleteWorkoutSession(ctx, backendID); err != nil {
		if terminal(err) {
			s.log.Warn("backend rejected session delete", "session", p.SessionID, "error", err)
			return nil
		}
		return err
	}

	return s.store.DeleteWorkoutBackendID(ctx, p.SessionID)
}

func (s *Service) replaySplitMutation(call func(context.Context, models.Split) error) ActionHandler {
	return func(ctx context.Context, action models.QueuedAction) error {
		var split models.Split
		if err := json.Unmarshal(action.Payload, &split); err != nil {
			return fmt.Errorf("decoding %s payload: %w", action.Type, err)
		}
		if err := call(ctx, split); err != nil {
			if terminal(err) {
				s.log.Warn("backend rejected split mutation", "type", action.Type, "split", split.ID, "error", err)
				return nil
			}
			return err
		}
		return nil
	}
}

func (s *Service) replayDeleteSplit(ctx context.Context, action models.QueuedAction) error {
	var p deleteSplitPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		return fmt.Errorf("decoding delete_split payload: %w", err)
	}
	if err := s.remote.DeleteSplit(ctx, p.SplitID); err != nil {
		if terminal(err) {
			s.log.Warn("backend rejected split delete", "split", p.SplitID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
