package reoptimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

func TestReplanDropsExcludedStops(t *testing.T) {
	pool := []models.Attraction{stop("A", 1), stop("B", 2), stop("C", 3), stop("D", 4)}
	s := testState(pool...)
	s.MarkVisited("A", 10)
	s.MarkSkipped("B")
	s.DeferStop("C")
	require.NoError(t, s.SetTime(models.ClockAt(11, 30)))

	plan, err := NewPartialReplanner(testPlanner(t)).Replan(s, pool, models.ConstraintBundle{}, ReplanOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"D"}, plan.StopNames())
	assert.GreaterOrEqual(t, float64(plan.RoutePoints[0].ArrivalTime), float64(models.ClockAt(11, 30)))
}

func TestReplanReturnsEmptyPlan(t *testing.T) {
	pool := []models.Attraction{stop("A", 1)}
	r := NewPartialReplanner(testPlanner(t))

	s := testState(pool...)
	s.MarkVisited("A", 0)
	plan, err := r.Replan(s, pool, models.ConstraintBundle{}, ReplanOptions{})
	require.NoError(t, err)
	assert.Empty(t, plan.RoutePoints)
	assert.Equal(t, 1, plan.DayNumber)

	late := testState(pool...)
	require.NoError(t, late.SetTime(models.ClockAt(20, 30)))
	plan, err = r.Replan(late, pool, models.ConstraintBundle{}, ReplanOptions{})
	require.NoError(t, err)
	assert.Empty(t, plan.RoutePoints)
}

func TestIndoorFirst(t *testing.T) {
	got := indoorFirst([]models.Attraction{outdoor("Park", 1), stop("Museum", 2), outdoor("Beach", 3), stop("Gallery", 4)})
	names := make([]string, len(got))
	for i, a := range got {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Museum", "Gallery", "Park", "Beach"}, names)
}

func TestMonthOf(t *testing.T) {
	assert.Equal(t, 5, monthOf("2026-05-04"))
	assert.Equal(t, 0, monthOf(""))
}

func TestApplyPreferenceUpdate(t *testing.T) {
	bundle := models.ConstraintBundle{Soft: models.SoftConstraints{Interests: []string{"art"}}}

	got, err := ApplyPreferenceUpdate(bundle, "interests", []interface{}{"history", "food"})
	require.NoError(t, err)
	assert.Equal(t, []string{"history", "food"}, got.Soft.Interests)
	assert.Equal(t, []string{"art"}, bundle.Soft.Interests)

	got, err = ApplyPreferenceUpdate(bundle, "avoid_crowds", "true")
	require.NoError(t, err)
	assert.True(t, got.Soft.AvoidCrowds)

	got, err = ApplyPreferenceUpdate(bundle, "rest_interval_minutes", 90.0)
	require.NoError(t, err)
	assert.Equal(t, 90, got.Soft.RestIntervalMinutes)

	got, err = ApplyPreferenceUpdate(bundle, "pace_preference", models.PaceRelaxed)
	require.NoError(t, err)
	assert.Equal(t, models.PaceRelaxed, got.Soft.Pace())
}

func TestApplyPreferenceUpdateRejectsBadInput(t *testing.T) {
	bundle := models.ConstraintBundle{}

	_, err := ApplyPreferenceUpdate(bundle, "favourite_colour", "blue")
	assert.True(t, errs.IsValidation(err))

	_, err = ApplyPreferenceUpdate(bundle, "pace_preference", "sprint")
	assert.True(t, errs.IsValidation(err))

	_, err = ApplyPreferenceUpdate(bundle, "avoid_crowds", 3)
	assert.True(t, errs.IsValidation(err))
}
