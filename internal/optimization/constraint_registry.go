package optimization

import (
	"math"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// HCContext is the runtime traveler profile and scheduling state the
// hard-constraint checks read. Zero budgets mean "no ceiling".
type HCContext struct {
	// Scheduling
	TCur          models.Clock
	ElapsedMin    float64
	TmaxMin       float64
	TravelMinutes float64 // Dij from the current position to the POI

	// SkipOpeningHours passes hc1; the caller enforces opening windows
	// itself, as tour construction does per step.
	SkipOpeningHours bool

	// Traveler profile
	RequiresWheelchair bool
	TravelerAges       []int
	PermitAvailable    bool
	GroupSize          int
	TripMonth          int // 1-12, 0 unknown

	// Hotel
	NightlyBudget float64
	MinStarRating float64

	// Restaurant
	DietaryPreferences []string
	PerMealBudget      float64

	// Flight
	FlightBudget float64
	AllowedModes []string
	EarliestDep  string // HH:MM
	LatestDep    string // HH:MM
}

// DefaultHCContext returns a context with a 480 minute budget starting at 09:00.
func DefaultHCContext() HCContext {
	return HCContext{
		TCur:            models.ClockAt(9, 0),
		TmaxMin:         480,
		PermitAvailable: true,
		GroupSize:       1,
	}
}

// EvaluateHC runs every registered check for the POI variant and returns
// one 0/1 entry per check.
func EvaluateHC(poi models.POI, ctx HCContext) []int {
	switch poi.Kind {
	case models.KindAttraction:
		if poi.Attraction != nil {
			return attractionChecks(poi.Attraction, ctx)
		}
	case models.KindHotel:
		if poi.Hotel != nil {
			return hotelChecks(poi.Hotel, ctx)
		}
	case models.KindRestaurant:
		if poi.Restaurant != nil {
			return restaurantChecks(poi.Restaurant, ctx)
		}
	case models.KindFlight:
		if poi.Flight != nil {
			return flightChecks(poi.Flight, ctx)
		}
	}
	return []int{1}
}

func bit(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

// openAt treats a missing or malformed window as open.
func openAt(window string, t models.Clock) bool {
	if window == "" || !strings.Contains(window, "-") {
		return true
	}
	return t.WithinWindow(window)
}

func ceiling(budget float64) float64 {
	if budget <= 0 {
		return math.Inf(1)
	}
	return budget
}

func attractionChecks(a *models.Attraction, ctx HCContext) []int {
	results := make([]int, 0, 8)

	// hc1 opening hours
	results = append(results, bit(ctx.SkipOpeningHours || openAt(a.OpeningHours, ctx.TCur)))

	// hc2 time budget
	tmax := ctx.TmaxMin
	if tmax <= 0 {
		tmax = 480
	}
	visit := float64(a.Duration())
	results = append(results, bit(ctx.ElapsedMin+ctx.TravelMinutes+visit <= tmax))

	// hc3 accessibility
	results = append(results, bit(!ctx.RequiresWheelchair || a.WheelchairAccessible))

	// hc4 age restriction against the youngest traveler
	if len(ctx.TravelerAges) > 0 && a.MinAge > 0 {
		youngest := ctx.TravelerAges[0]
		for _, age := range ctx.TravelerAges[1:] {
			if age < youngest {
				youngest = age
			}
		}
		results = append(results, bit(youngest >= a.MinAge))
	} else {
		results = append(results, 1)
	}

	// hc5 permit
	results = append(results, bit(!a.TicketRequired || ctx.PermitAvailable))

	// hc6 group size
	group := ctx.GroupSize
	if group <= 0 {
		group = 1
	}
	minGroup, maxGroup := a.MinGroupSize, a.MaxGroupSize
	if minGroup <= 0 {
		minGroup = 1
	}
	if maxGroup <= 0 {
		maxGroup = 999
	}
	results = append(results, bit(minGroup <= group && group <= maxGroup))

	// hc7 seasonal closure
	if len(a.SeasonalOpenMonths) > 0 && ctx.TripMonth > 0 {
		open := false
		for _, m := range a.SeasonalOpenMonths {
			if m == ctx.TripMonth {
				open = true
				break
			}
		}
		results = append(results, bit(open))
	} else {
		results = append(results, 1)
	}

	// hc8 minimum visit still fits after travel
	if a.MinVisitDurationMinutes > 0 {
		remaining := tmax - ctx.ElapsedMin - ctx.TravelMinutes
		results = append(results, bit(remaining >= float64(a.MinVisitDurationMinutes)))
	} else {
		results = append(results, 1)
	}

	return results
}

func hotelChecks(h *models.Hotel, ctx HCContext) []int {
	return []int{
		bit(h.PricePerNight <= ceiling(ctx.NightlyBudget)),
		bit(h.Available),
		bit(!ctx.RequiresWheelchair || h.WheelchairAccessible),
		bit(h.StarRating >= ctx.MinStarRating),
	}
}

func restaurantChecks(r *models.Restaurant, ctx HCContext) []int {
	results := make([]int, 0, 4)

	// dietary / cuisine overlap, partial matches count
	if len(ctx.DietaryPreferences) > 0 {
		results = append(results, bit(cuisineMatches(r, ctx.DietaryPreferences)))
	} else {
		results = append(results, 1)
	}

	results = append(results, bit(openAt(r.OpeningHours, ctx.TCur)))
	results = append(results, bit(r.AvgPricePerPerson <= ceiling(ctx.PerMealBudget)))
	results = append(results, bit(!ctx.RequiresWheelchair || r.WheelchairAccessible))
	return results
}

// cuisineMatches reports whether any preference overlaps any cuisine tag
// or the primary cuisine, in either substring direction. A restaurant with
// no primary cuisine is unknown data and passes.
func cuisineMatches(r *models.Restaurant, prefs []string) bool {
	if strings.TrimSpace(r.CuisineType) == "" {
		return true
	}
	tags := make([]string, 0, len(r.CuisineTags)+1)
	for _, t := range r.CuisineTags {
		tags = append(tags, strings.ToLower(t))
	}
	tags = append(tags, strings.ToLower(r.CuisineType))

	for _, p := range prefs {
		pref := strings.ToLower(p)
		for _, tag := range tags {
			if strings.Contains(tag, pref) || strings.Contains(pref, tag) {
				return true
			}
		}
	}
	return false
}

func flightChecks(f *models.Flight, ctx HCContext) []int {
	results := make([]int, 0, 3)
	results = append(results, bit(f.Price <= ceiling(ctx.FlightBudget)))

	mode := f.StopsType
	if mode == "" {
		mode = "direct"
	}
	if len(ctx.AllowedModes) > 0 {
		allowed := false
		for _, m := range ctx.AllowedModes {
			if m == mode {
				allowed = true
				break
			}
		}
		results = append(results, bit(allowed))
	} else {
		results = append(results, 1)
	}

	if ctx.EarliestDep != "" && ctx.LatestDep != "" && f.DepartureTime != "" {
		dep, err := models.ParseClock(f.DepartureTime)
		if err != nil {
			results = append(results, 0)
		} else {
			results = append(results, bit(dep.WithinWindow(ctx.EarliestDep+"-"+ctx.LatestDep)))
		}
	} else {
		results = append(results, 1)
	}
	return results
}
