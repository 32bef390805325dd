package session

import (
	"context"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Streak computes the current consecutive-day training streak from local
// history only, so it works fully offline. Walking recorded activity dates
// newest-first: workout days increment, rest-day records preserve without
// incrementing, and a gap of two or more calendar days breaks the streak.
// Greedy single pass, O(days recorded).
func (s *Service) Streak(ctx context.Context) (int, error) {
	history, err := s.store.CompletedWorkouts(ctx)
	if err != nil {
		return 0, err
	}

	// Collapse to one entry per calendar date; a workout on a date outranks
	// a rest-day record on the same date.
	byDate := make(map[string]bool) // date → had a workout
	for i := range history {
		date := history[i].CompletedDate()
		if date == "" {
			continue
		}
		if !history[i].IsRestDay() {
			byDate[date] = true
		} else if _, ok := byDate[date]; !ok {
			byDate[date] = false
		}
	}
	if len(byDate) == 0 {
		return 0, nil
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	today := s.now().Local().Format(models.DateOnly)
	prev := today
	streak := 0
	for i, d := range dates {
		gap, err := daysBetween(d, prev)
		if err != nil {
			return 0, err
		}
		if gap >= 2 {
			if i == 0 {
				return 0, nil // most recent activity is already too old
			}
			break
		}
		if byDate[d] {
			streak++
		}
		prev = d
	}
	return streak, nil
}

// daysBetween returns the whole calendar days from earlier to later.
func daysBetween(earlier, later string) (int, error) {
	a, err := time.Parse(models.DateOnly, earlier)
	if err != nil {
		return 0, err
	}
	b, err := time.Parse(models.DateOnly, later)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}
