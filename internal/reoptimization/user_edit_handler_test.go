package reoptimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// editFixture keeps every stop within walking distance so the default
// scorer never rules one out on travel time.
func editFixture() (*TripState, []models.Attraction) {
	pool := []models.Attraction{stop("A", 0.01), stop("B", 0.02), stop("C", 0.03), stop("D", 0.04)}
	return testState(pool[:3]...), pool
}

func TestDislikeNextPOI(t *testing.T) {
	u := NewUserEditHandler(testStrategy(), gridDistance{})
	s, pool := editFixture()
	s.MarkSkipped("C")

	res, err := u.DislikeNextPOI(s, pool, models.ConstraintBundle{})
	require.NoError(t, err)

	assert.Equal(t, "A", res.DislikedStop)
	assert.False(t, res.NoAlternatives)
	names := map[string]bool{}
	for i, alt := range res.Alternatives {
		assert.Equal(t, i+1, alt.Rank)
		names[alt.Attraction.Name] = true
	}
	assert.Equal(t, map[string]bool{"B": true, "D": true}, names)
	assert.Equal(t, []string{"C"}, s.Skipped())
	assert.Equal(t, []string{"A", "B", "C"}, s.CurrentDayPlan.StopNames())
}

func TestReplacePOIAccepted(t *testing.T) {
	u := NewUserEditHandler(testStrategy(), gridDistance{})
	s, _ := editFixture()
	r := stop("R", 0.015)
	r.EntryCost = 25

	res, err := u.ReplacePOI(s, r, models.ConstraintBundle{}, 100)
	require.NoError(t, err)

	require.True(t, res.Accepted, res.RejectionReason)
	assert.Equal(t, "A", res.OriginalStop)
	assert.Equal(t, []string{"R", "B", "C"}, res.Plan.StopNames())
	assert.Equal(t, "09:01", res.Plan.RoutePoints[0].ArrivalTime.String())
	assert.Equal(t, "12:03", res.Plan.RoutePoints[2].DepartureTime.String())
	assert.Equal(t, 15.0, res.BudgetDelta)
	assert.Equal(t, -3, res.TimeDeltaMinutes)
	assert.Equal(t, []string{"A", "B", "C"}, s.CurrentDayPlan.StopNames())
}

func TestReplacePOIRejections(t *testing.T) {
	closed := stop("Evening Bar", 0.015)
	closed.OpeningHours = "18:00-23:00"
	pricey := stop("Pricey", 0.015)
	pricey.EntryCost = 80
	long := stop("Long", 0.015)
	long.VisitDurationMinutes = 700

	tests := []struct {
		name        string
		replacement models.Attraction
		prepare     func(*TripState)
		reason      string
	}{
		{name: "visited", replacement: stop("V", 0.015), prepare: func(s *TripState) { s.MarkVisited("V", 0) }, reason: "already visited or skipped"},
		{name: "hard constraint", replacement: closed, reason: "fails a hard constraint"},
		{name: "no time", replacement: long, reason: "fails a hard constraint"},
		{name: "budget", replacement: pricey, reason: "Budget exceeded"},
		{name: "duplicate", replacement: stop("C", 0.03), reason: "Duplicate"},
		{name: "no next stop", replacement: stop("R", 0.015), prepare: func(s *TripState) {
			for _, n := range []string{"A", "B", "C"} {
				s.MarkVisited(n, 0)
			}
		}, reason: "No next stop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUserEditHandler(testStrategy(), gridDistance{})
			s, _ := editFixture()
			if tt.prepare != nil {
				tt.prepare(s)
			}
			res, err := u.ReplacePOI(s, tt.replacement, models.ConstraintBundle{}, 50)
			require.NoError(t, err)
			assert.False(t, res.Accepted)
			assert.Nil(t, res.Plan)
			assert.Contains(t, res.RejectionReason, tt.reason)
		})
	}
}

func TestReplacePOIRunningPastDayEnd(t *testing.T) {
	u := NewUserEditHandler(testStrategy(), gridDistance{})
	s, _ := editFixture()
	require.NoError(t, s.SetTime(models.ClockAt(17, 30)))

	res, err := u.ReplacePOI(s, stop("R", 0.015), models.ConstraintBundle{}, 50)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.RejectionReason, "past day end 20:00")
}

func TestSkipCurrentPOI(t *testing.T) {
	s, pool := editFixture()
	s.MarkVisited("A", 0)

	strategy := testStrategy()
	strategy.Edits.HighValue = 0
	res, err := NewUserEditHandler(strategy, gridDistance{}).SkipCurrentPOI(s, pool, models.ConstraintBundle{})
	require.NoError(t, err)
	assert.Equal(t, "B", res.SkippedStop)
	assert.Greater(t, res.SLost, 0.0)
	assert.True(t, res.MemorySignal)
	assert.Contains(t, res.Reason, "preference signal written")
	assert.False(t, s.IsSkipped("B"))

	strategy.Edits.HighValue = 1.01
	res, err = NewUserEditHandler(strategy, gridDistance{}).SkipCurrentPOI(s, pool, models.ConstraintBundle{})
	require.NoError(t, err)
	assert.False(t, res.MemorySignal)
}

func TestSkipCurrentPOIWithNothingLeft(t *testing.T) {
	u := NewUserEditHandler(testStrategy(), gridDistance{})
	res, err := u.SkipCurrentPOI(testState(), nil, models.ConstraintBundle{})
	require.NoError(t, err)
	assert.Empty(t, res.SkippedStop)
	assert.Contains(t, res.Reason, "No remaining stop")
}
