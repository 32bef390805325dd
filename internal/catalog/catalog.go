// Package catalog loads the bundled exercise dataset and seeds the local
// store with it on first run.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/store"
)

// Load parses the bundled dataset from the given filesystem.
func Load(fsys fs.FS) ([]models.Exercise, error) {
	data, err := fs.ReadFile(fsys, "data/exercises.json")
	if err != nil {
		return nil, fmt.Errorf("reading bundled exercises: %w", err)
	}
	var exercises []models.Exercise
	if err := json.Unmarshal(data, &exercises); err != nil {
		return nil, fmt.Errorf("parsing bundled exercises: %w", err)
	}
	return exercises, nil
}

// Seed writes the bundled dataset into the store if no catalog is present.
// The catalog is immutable, so an existing one is left untouched.
func Seed(ctx context.Context, s *store.Store, fsys fs.FS) (int, error) {
	existing, err := s.ExerciseCatalog(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	exercises, err := Load(fsys)
	if err != nil {
		return 0, err
	}
	if err := s.SaveExerciseCatalog(ctx, exercises); err != nil {
		return 0, err
	}
	return len(exercises), nil
}
