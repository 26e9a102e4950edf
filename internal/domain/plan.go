// Package domain defines the workout plan model shared by the sync agent and the plan server.
package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrPlanNotFound is returned when a plan cannot be located.
	ErrPlanNotFound = errors.New("workout plan not found")
	// ErrInvalidPlan indicates a plan that fails validation even after canonicalization.
	ErrInvalidPlan = errors.New("invalid workout plan")
)

// Level enumerates coaching difficulty tiers.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Exercise is a single prescribed movement within a session.
type Exercise struct {
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	Reps        int    `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
}

// Session groups exercises scheduled for one day of a plan.
type Session struct {
	Day       string     `json:"day"`
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is the canonical record persisted locally and on the plan server.
type WorkoutPlan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Goal      string    `json:"goal"`
	Level     Level     `json:"level"`
	Sessions  []Session `json:"sessions"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Canonicalize normalizes a plan into the single form accepted by storage.
// Storage layers persist canonical plans verbatim; no normalization happens on read.
func Canonicalize(plan WorkoutPlan) WorkoutPlan {
	plan.Title = strings.TrimSpace(plan.Title)
	plan.Goal = strings.TrimSpace(strings.ToLower(plan.Goal))
	plan.Level = Level(strings.TrimSpace(strings.ToLower(string(plan.Level))))
	if plan.Level == "" {
		plan.Level = LevelBeginner
	}

	sessions := make([]Session, 0, len(plan.Sessions))
	for _, session := range plan.Sessions {
		session.Day = strings.TrimSpace(strings.ToLower(session.Day))
		session.Focus = strings.TrimSpace(strings.ToLower(session.Focus))

		exercises := make([]Exercise, 0, len(session.Exercises))
		for _, exercise := range session.Exercises {
			exercise.Name = strings.TrimSpace(exercise.Name)
			if exercise.Name == "" {
				continue
			}
			if exercise.Sets <= 0 {
				exercise.Sets = 1
			}
			if exercise.Reps <= 0 {
				exercise.Reps = 1
			}
			if exercise.RestSeconds < 0 {
				exercise.RestSeconds = 0
			}
			exercises = append(exercises, exercise)
		}
		if len(exercises) == 0 {
			continue
		}
		session.Exercises = exercises
		sessions = append(sessions, session)
	}
	plan.Sessions = sessions

	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	} else {
		plan.CreatedAt = plan.CreatedAt.UTC()
	}
	if plan.UpdatedAt.IsZero() {
		plan.UpdatedAt = now
	} else {
		plan.UpdatedAt = plan.UpdatedAt.UTC()
	}

	return plan
}

// Validate reports whether a canonical plan is storable.
func (p WorkoutPlan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.Join(ErrInvalidPlan, errors.New("missing plan id"))
	}
	if strings.TrimSpace(p.UserID) == "" {
		return errors.Join(ErrInvalidPlan, errors.New("missing user id"))
	}
	if p.Title == "" {
		return errors.Join(ErrInvalidPlan, errors.New("missing title"))
	}
	switch p.Level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		return errors.Join(ErrInvalidPlan, errors.New("unknown level"))
	}
	return nil
}
