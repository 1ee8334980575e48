package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jengzang/itinerary-backend-go/internal/models"
)

func TestAttractionChecks(t *testing.T) {
	base := func() models.Attraction {
		a := models.NewAttraction("Fort", 0, 0)
		a.OpeningHours = "09:00-17:00"
		return a
	}

	tests := []struct {
		name   string
		mutate func(a *models.Attraction, ctx *HCContext)
		failAt int // index expected to fail, -1 for all pass
	}{
		{"all pass", func(a *models.Attraction, ctx *HCContext) {}, -1},
		{"closed", func(a *models.Attraction, ctx *HCContext) { ctx.TCur = models.ClockAt(18, 0) }, 0},
		{"closed but opening checked elsewhere", func(a *models.Attraction, ctx *HCContext) {
			ctx.TCur = models.ClockAt(18, 0)
			ctx.SkipOpeningHours = true
		}, -1},
		{"over time budget", func(a *models.Attraction, ctx *HCContext) { ctx.ElapsedMin = 450 }, 1},
		{"wheelchair", func(a *models.Attraction, ctx *HCContext) {
			ctx.RequiresWheelchair = true
			a.WheelchairAccessible = false
		}, 2},
		{"too young", func(a *models.Attraction, ctx *HCContext) {
			a.MinAge = 12
			ctx.TravelerAges = []int{35, 8}
		}, 3},
		{"no permit", func(a *models.Attraction, ctx *HCContext) {
			a.TicketRequired = true
			ctx.PermitAvailable = false
		}, 4},
		{"group too large", func(a *models.Attraction, ctx *HCContext) {
			a.MaxGroupSize = 4
			ctx.GroupSize = 6
		}, 5},
		{"off season", func(a *models.Attraction, ctx *HCContext) {
			a.SeasonalOpenMonths = []int{6, 7, 8}
			ctx.TripMonth = 1
		}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			ctx := DefaultHCContext()
			ctx.TCur = models.ClockAt(10, 0)
			tt.mutate(&a, &ctx)

			results := EvaluateHC(models.AttractionPOI(&a), ctx)
			assert.Len(t, results, 8)
			for i, r := range results {
				if i == tt.failAt {
					assert.Equal(t, 0, r, "check %d", i)
				} else if tt.failAt == -1 {
					assert.Equal(t, 1, r, "check %d", i)
				}
			}
		})
	}
}

func TestAttractionMinimumVisitCheck(t *testing.T) {
	a := models.NewAttraction("Garden", 0, 0)
	a.VisitDurationMinutes = 10
	a.MinVisitDurationMinutes = 30

	ctx := DefaultHCContext()
	ctx.ElapsedMin = 440
	ctx.TravelMinutes = 15

	results := EvaluateHC(models.AttractionPOI(&a), ctx)
	assert.Equal(t, 1, results[1], "short visit still fits the budget")
	assert.Equal(t, 0, results[7], "minimum visit does not fit")
}

func TestUnknownDataPasses(t *testing.T) {
	a := models.Attraction{Name: "Bare"}
	results := EvaluateHC(models.AttractionPOI(&a), DefaultHCContext())
	assert.Equal(t, 1, ComputeHC(results))

	a.SeasonalOpenMonths = []int{7}
	results = EvaluateHC(models.AttractionPOI(&a), DefaultHCContext())
	assert.Equal(t, 1, ComputeHC(results), "unknown trip month allows seasonal venues")
}

func TestUnknownKindPasses(t *testing.T) {
	assert.Equal(t, []int{1}, EvaluateHC(models.POI{Kind: "museum_pass"}, DefaultHCContext()))
	assert.Equal(t, []int{1}, EvaluateHC(models.POI{Kind: models.KindHotel}, DefaultHCContext()))
}

func TestHotelChecks(t *testing.T) {
	h := &models.Hotel{Name: "Inn", PricePerNight: 120, Available: true, StarRating: 3}
	ctx := DefaultHCContext()
	ctx.NightlyBudget = 150
	ctx.MinStarRating = 3
	assert.Equal(t, []int{1, 1, 1, 1}, EvaluateHC(models.HotelPOI(h), ctx))

	ctx.NightlyBudget = 100
	ctx.RequiresWheelchair = true
	ctx.MinStarRating = 4
	h.Available = false
	assert.Equal(t, []int{0, 0, 0, 0}, EvaluateHC(models.HotelPOI(h), ctx))
}

func TestRestaurantChecks(t *testing.T) {
	r := &models.Restaurant{
		Name:                 "Green Leaf",
		CuisineType:          "Indian",
		CuisineTags:          []string{"vegetarian_friendly"},
		AvgPricePerPerson:    20,
		OpeningHours:         "11:00-22:00",
		WheelchairAccessible: true,
	}
	ctx := DefaultHCContext()
	ctx.TCur = models.ClockAt(13, 0)
	ctx.DietaryPreferences = []string{"vegetarian"}
	ctx.PerMealBudget = 25
	assert.Equal(t, []int{1, 1, 1, 1}, EvaluateHC(models.RestaurantPOI(r), ctx))

	ctx.DietaryPreferences = []string{"halal"}
	ctx.TCur = models.ClockAt(23, 0)
	ctx.PerMealBudget = 10
	assert.Equal(t, []int{0, 0, 0, 1}, EvaluateHC(models.RestaurantPOI(r), ctx))
}

func TestFlightChecks(t *testing.T) {
	f := &models.Flight{Price: 300, StopsType: "one_stop", DepartureTime: "08:30"}
	ctx := DefaultHCContext()
	ctx.FlightBudget = 400
	ctx.AllowedModes = []string{"direct", "one_stop"}
	ctx.EarliestDep = "07:00"
	ctx.LatestDep = "12:00"
	assert.Equal(t, []int{1, 1, 1}, EvaluateHC(models.FlightPOI(f), ctx))

	ctx.AllowedModes = []string{"direct"}
	ctx.EarliestDep = "09:00"
	assert.Equal(t, []int{1, 0, 0}, EvaluateHC(models.FlightPOI(f), ctx))
}
