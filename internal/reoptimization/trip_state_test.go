package reoptimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

func TestMarkSkippedClearsDeferred(t *testing.T) {
	s := testState()
	s.DeferStop("Castle")
	require.True(t, s.IsDeferred("Castle"))

	s.MarkSkipped("Castle")
	assert.True(t, s.IsSkipped("Castle"))
	assert.False(t, s.IsDeferred("Castle"))
}

func TestDeferNeverReadmitsSkipped(t *testing.T) {
	s := testState()
	s.MarkSkipped("Castle")
	s.DeferStop("Castle")
	assert.False(t, s.IsDeferred("Castle"))
	assert.Equal(t, []string{"Castle"}, s.Skipped())
}

func TestMarkVisitedAccruesCost(t *testing.T) {
	s := testState()
	s.MarkVisited("Museum", 12.5)
	s.MarkVisited("Tower", 7.5)
	assert.Equal(t, 20.0, s.BudgetSpent.Attractions)
	assert.Equal(t, 180.0, s.RemainingBudget(models.BudgetAllocation{Attractions: 200}))
	assert.Equal(t, []string{"Museum", "Tower"}, s.Visited())
}

func TestAdvanceTime(t *testing.T) {
	s := testState()
	require.NoError(t, s.AdvanceTime(45))
	assert.Equal(t, "09:45", s.Now().String())

	err := s.AdvanceTime(-5)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, "09:45", s.Now().String())
}

func TestSetTimeRejectsGoingBack(t *testing.T) {
	s := testState()
	require.NoError(t, s.SetTime(models.ClockAt(11, 0)))
	assert.True(t, errs.IsValidation(s.SetTime(models.ClockAt(10, 0))))
	assert.Equal(t, 540.0, s.RemainingMinutesToday())
}

func TestRemainingMinutesNeverNegative(t *testing.T) {
	s := testState()
	require.NoError(t, s.SetTime(models.ClockAt(21, 0)))
	assert.Zero(t, s.RemainingMinutesToday())
}

func TestNextStopSkipsExcluded(t *testing.T) {
	s := testState(stop("A", 1), stop("B", 2), stop("C", 3))
	s.MarkVisited("A", 0)
	s.DeferStop("B")

	rp, ok := s.NextStop()
	require.True(t, ok)
	assert.Equal(t, "C", rp.Name)
}

func TestCloneIsIndependent(t *testing.T) {
	s := testState(stop("A", 1), stop("B", 2))
	s.markMeal()
	c := s.clone()

	c.DeferStop("A")
	c.MarkSkipped("B")
	require.NoError(t, c.AdvanceTime(30))
	c.CurrentDayPlan.RoutePoints[0].Name = "changed"

	assert.False(t, s.IsDeferred("A"))
	assert.False(t, s.IsSkipped("B"))
	assert.Equal(t, "09:00", s.Now().String())
	assert.Equal(t, "A", s.CurrentDayPlan.RoutePoints[0].Name)
	last, ok := s.LastMeal()
	require.True(t, ok)
	assert.Equal(t, "09:00", last.String())
}

func TestLevelsClamp(t *testing.T) {
	s := testState()
	s.setHunger(1.4)
	s.setFatigue(-0.2)
	assert.Equal(t, 1.0, s.Hunger())
	assert.Equal(t, 0.0, s.Fatigue())
}
