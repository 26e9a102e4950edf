package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeNormalizesFields(t *testing.T) {
	plan := Canonicalize(WorkoutPlan{
		ID:     "plan-1",
		UserID: "user-1",
		Title:  "  12 Week Strength  ",
		Goal:   " Build Muscle ",
		Level:  " Intermediate ",
		Sessions: []Session{
			{
				Day:   " Monday ",
				Focus: "UPPER",
				Exercises: []Exercise{
					{Name: "  Bench Press ", Sets: 0, Reps: -2, RestSeconds: -5},
					{Name: "   "},
				},
			},
			{Day: "tuesday", Exercises: []Exercise{{Name: ""}}},
		},
	})

	require.Equal(t, "12 Week Strength", plan.Title)
	require.Equal(t, "build muscle", plan.Goal)
	require.Equal(t, LevelIntermediate, plan.Level)

	require.Len(t, plan.Sessions, 1, "sessions with no usable exercises are dropped")
	session := plan.Sessions[0]
	require.Equal(t, "monday", session.Day)
	require.Equal(t, "upper", session.Focus)
	require.Len(t, session.Exercises, 1)
	require.Equal(t, Exercise{Name: "Bench Press", Sets: 1, Reps: 1, RestSeconds: 0}, session.Exercises[0])

	require.False(t, plan.CreatedAt.IsZero())
	require.Equal(t, time.UTC, plan.CreatedAt.Location())
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	plan := Canonicalize(WorkoutPlan{
		ID:     "plan-1",
		UserID: "user-1",
		Title:  " Base ",
		Level:  "beginner",
		Sessions: []Session{
			{Day: "friday", Exercises: []Exercise{{Name: "Squat", Sets: 3, Reps: 5}}},
		},
	})

	again := Canonicalize(plan)
	require.Equal(t, plan, again)
}

func TestCanonicalizeDefaultsLevel(t *testing.T) {
	plan := Canonicalize(WorkoutPlan{ID: "p", UserID: "u", Title: "t"})
	require.Equal(t, LevelBeginner, plan.Level)
}

func TestValidateRejectsIncompletePlans(t *testing.T) {
	base := Canonicalize(WorkoutPlan{ID: "plan-1", UserID: "user-1", Title: "Base"})
	require.NoError(t, base.Validate())

	cases := map[string]WorkoutPlan{
		"missing id":    {UserID: "user-1", Title: "Base", Level: LevelBeginner},
		"missing user":  {ID: "plan-1", Title: "Base", Level: LevelBeginner},
		"missing title": {ID: "plan-1", UserID: "user-1", Level: LevelBeginner},
		"unknown level": {ID: "plan-1", UserID: "user-1", Title: "Base", Level: "elite"},
	}
	for name, plan := range cases {
		require.ErrorIs(t, plan.Validate(), ErrInvalidPlan, name)
	}
}
