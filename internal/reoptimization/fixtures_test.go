package reoptimization

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// gridDistance treats one degree in either axis as one kilometer.
type gridDistance struct{}

func (gridDistance) DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dx, dy := lon2-lon1, lat2-lat1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

func testStrategy() config.Strategy {
	return config.DefaultStrategy()
}

func testPlanner(t *testing.T) *planning.RoutePlanner {
	t.Helper()
	params := optimization.DefaultACOParams()
	params.NumAnts = 6
	params.NumIterations = 15
	params.Seed = 7
	p, err := planning.NewRoutePlanner(
		planning.WithTravelTime(spatial.NewTravelTime(gridDistance{}, 60)),
		planning.WithACOParams(params),
	)
	require.NoError(t, err)
	return p
}

func stop(name string, lon float64) models.Attraction {
	a := models.NewAttraction(name, 0, lon)
	a.Rating = 4
	a.EntryCost = 10
	a.Category = "museum"
	return a
}

func outdoor(name string, lon float64) models.Attraction {
	a := stop(name, lon)
	a.Category = "park"
	a.IsOutdoor = true
	return a
}

func clockPtr(h, m int) *models.Clock {
	c := models.ClockAt(h, m)
	return &c
}

func fptr(v float64) *float64 { return &v }

// planOf lays the stops out as a day plan, one hour apart from 09:00.
func planOf(stops ...models.Attraction) *models.DayPlan {
	plan := &models.DayPlan{DayNumber: 1, RoutePoints: []models.RoutePoint{}}
	t := models.ClockAt(9, 0)
	for i, a := range stops {
		plan.RoutePoints = append(plan.RoutePoints, models.RoutePoint{
			Sequence:             i,
			Name:                 a.Name,
			Lat:                  a.Lat,
			Lon:                  a.Lon,
			ArrivalTime:          t,
			DepartureTime:        t + models.Clock(a.Duration()),
			VisitDurationMinutes: a.Duration(),
			ActivityType:         string(models.KindAttraction),
			EstimatedCost:        a.EntryCost,
		})
		t += models.Clock(a.Duration())
	}
	return plan
}

// testState starts at the origin at 09:00 with the stops as today's plan.
func testState(stops ...models.Attraction) *TripState {
	s := NewTripState(0, 0, models.ClockAt(9, 0), models.ClockAt(20, 0), 1)
	s.CurrentDayPlan = planOf(stops...)
	return s
}

// testSession builds a two-day trip over the given pool with today's plan
// holding the pool in order.
func testSession(t *testing.T, pool []models.Attraction, mutate ...func(*SessionConfig)) *Session {
	t.Helper()
	itin := &models.Itinerary{
		TripID:          "trip-1",
		DestinationCity: "Lisbon",
		Days: []models.DayPlan{
			*planOf(pool...),
			{DayNumber: 2, RoutePoints: []models.RoutePoint{}},
		},
		Budget: models.BudgetAllocation{Attractions: 200, Restaurants: 120},
	}
	cfg := SessionConfig{
		Strategy: testStrategy(),
		Planner:  testPlanner(t),
		Source:   gridDistance{},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewSession(itin, models.ConstraintBundle{}, pool, cfg)
	require.NoError(t, err)
	return s
}
