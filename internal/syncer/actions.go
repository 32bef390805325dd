package syncer

import (
	"context"

	"github.com/claude/liftlog/internal/models"
)

// maxActionRetries bounds replay attempts before an action is dropped as
// poison.
const maxActionRetries = 3

// ActionHandler replays one queued offline action against the backend.
type ActionHandler func(ctx context.Context, action models.QueuedAction) error

// RegisterHandler installs the replay handler for an action type.
func (s *Service) RegisterHandler(actionType string, h ActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[actionType] = h
}

func (s *Service) handlerFor(actionType string) ActionHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[actionType]
}

// ProcessActions replays the offline action queue in FIFO order. An action
// leaves the queue on handler success or once it has failed maxActionRetries
// times; actions with no registered handler stay queued untouched.
func (s *Service) ProcessActions(ctx context.Context) (processed, dropped int, err error) {
	actions, err := s.store.Actions(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, a := range actions {
		h := s.handlerFor(a.Type)
		if h == nil {
			s.log.Warn("no handler for queued action", "type", a.Type, "action", a.ID)
			continue
		}

		if herr := h(ctx, a); herr != nil {
			a.RetryCount++
			if a.RetryCount >= maxActionRetries {
				s.log.Warn("dropping action after repeated failures",
					"action", a.ID, "type", a.Type, "retries", a.RetryCount, "error", herr)
				if err := s.store.RemoveAction(ctx, a.ID); err != nil {
					return processed, dropped, err
				}
				dropped++
				continue
			}
			s.log.Warn("action replay failed, will retry",
				"action", a.ID, "type", a.Type, "retries", a.RetryCount, "error", herr)
			if err := s.store.UpdateAction(ctx, a); err != nil {
				return processed, dropped, err
			}
			continue
		}

		if err := s.store.RemoveAction(ctx, a.ID); err != nil {
			return processed, dropped, err
		}
		processed++
	}

	return processed, dropped, nil
}
