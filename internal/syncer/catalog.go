package syncer

import (
	"context"
	"errors"

	"github.com/claude/liftlog/internal/remote"
)

// SyncCustomExercises reconciles the custom-exercise catalog: push local
// entries still pending sync, then pull server truth and merge it back in.
// Last local write wins; there is no multi-device merge.
func (s *Service) SyncCustomExercises(ctx context.Context) error {
	local, err := s.store.CustomExercises(ctx)
	if err != nil {
		return err
	}

	for _, e := range local {
		if !e.PendingSync {
			continue
		}

		if e.BackendID == 0 {
			backendID, cerr := s.remote.CreateCustomExercise(ctx, e)
			if cerr != nil {
				if terminal(cerr) {
					s.log.Warn("backend rejected custom exercise", "exercise", e.ID, "error", cerr)
				}
				continue
			}
			e.BackendID = backendID
		} else {
			if uerr := s.remote.UpdateCustomExercise(ctx, e); uerr != nil {
				if terminal(uerr) {
					s.log.Warn("backend rejected custom exercise update", "exercise", e.ID, "error", uerr)
				}
				continue
			}
		}

		e.PendingSync = false
		if err := s.store.UpdateCustomExercise(ctx, e); err != nil {
			return err
		}
	}

	serverList, err := s.remote.ListCustomExercises(ctx)
	if err != nil {
		// Pull is best-effort; the push above already made progress.
		s.log.Warn("custom exercise pull failed", "error", err)
		return nil
	}
	return s.store.ReplaceCustomExercises(ctx, serverList)
}

func terminal(err error) bool {
	var statusErr *remote.StatusError
	return errors.As(err, &statusErr) && !statusErr.Retryable()
}
