package reoptimization

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
)

// ReplanOptions tune a single partial replan
type ReplanOptions struct {
	// DeprioritizeOutdoor moves indoor candidates to the front of the pool.
	DeprioritizeOutdoor bool
	ScorerOptions       []optimization.ScorerOption
}

// PartialReplanner plans the rest of the current day from where the
// traveler stands now.
type PartialReplanner struct {
	planner *planning.RoutePlanner
}

func NewPartialReplanner(planner *planning.RoutePlanner) *PartialReplanner {
	return &PartialReplanner{planner: planner}
}

// Replan builds a new plan for the remainder of today. The start node is the
// current position, Tmax is the time left until day end, and visited, skipped
// and deferred stops are dropped from the pool. Stop times start at the
// current clock. An empty plan comes back when nothing is left or no time remains.
func (r *PartialReplanner) Replan(state *TripState, remaining []models.Attraction, constraints models.ConstraintBundle, opts ReplanOptions) (*models.DayPlan, error) {
	empty := &models.DayPlan{
		DayNumber:   state.CurrentDay,
		Date:        state.CurrentDate,
		RoutePoints: []models.RoutePoint{},
	}

	pool := make([]models.Attraction, 0, len(remaining))
	for _, a := range remaining {
		if !state.Excluded(a.Name) {
			pool = append(pool, a)
		}
	}
	if opts.DeprioritizeOutdoor {
		pool = indoorFirst(pool)
	}
	if len(pool) == 0 {
		return empty, nil
	}

	tmax := state.RemainingMinutesToday()
	if tmax <= 0 {
		return empty, nil
	}

	plan, err := r.planner.PlanDay(planning.DayRequest{
		DayNumber:     state.CurrentDay,
		Date:          state.CurrentDate,
		Pool:          pool,
		StartLat:      state.CurrentLat,
		StartLon:      state.CurrentLon,
		StartClock:    state.Now(),
		Tmax:          tmax,
		Constraints:   constraints,
		TripMonth:     monthOf(state.CurrentDate),
		ScorerOptions: opts.ScorerOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replan day %d: %w", state.CurrentDay, err)
	}
	return plan, nil
}

func indoorFirst(pool []models.Attraction) []models.Attraction {
	out := make([]models.Attraction, 0, len(pool))
	for _, a := range pool {
		if !a.IsOutdoor {
			out = append(out, a)
		}
	}
	for _, a := range pool {
		if a.IsOutdoor {
			out = append(out, a)
		}
	}
	return out
}

func monthOf(date string) int {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0
	}
	return int(t.Month())
}

// ApplyPreferenceUpdate returns a copy of the bundle with one soft field
// replaced. Field names follow the JSON names of SoftConstraints.
func ApplyPreferenceUpdate(bundle models.ConstraintBundle, field string, value interface{}) (models.ConstraintBundle, error) {
	soft := bundle.Soft
	var err error
	switch field {
	case "interests":
		soft.Interests, err = toStrings(value)
	case "travel_preferences":
		soft.TravelPreferences, err = toStrings(value)
	case "dietary_preferences":
		soft.DietaryPreferences, err = toStrings(value)
	case "preferred_transport_mode":
		soft.PreferredTransport, err = toStrings(value)
	case "spending_power":
		soft.SpendingPower, err = toString(value)
	case "preferred_time_of_day":
		soft.PreferredTimeOfDay, err = toString(value)
	case "pace_preference":
		soft.PacePreference, err = toString(value)
		if err == nil && soft.PacePreference != models.PaceRelaxed &&
			soft.PacePreference != models.PaceModerate && soft.PacePreference != models.PacePacked {
			err = fmt.Errorf("unknown pace %q", soft.PacePreference)
		}
	case "avoid_crowds":
		soft.AvoidCrowds, err = toBool(value)
	case "heavy_travel_penalty":
		soft.HeavyTravelPenalty, err = toBool(value)
	case "avoid_consecutive_same_category":
		soft.AvoidConsecutiveSame, err = toBool(value)
	case "novelty_spread":
		soft.NoveltySpread, err = toBool(value)
	case "rest_interval_minutes":
		soft.RestIntervalMinutes, err = toInt(value)
	default:
		return bundle, errs.Validation("field", "unknown preference field %q", field)
	}
	if err != nil {
		return bundle, errs.Validation(field, "%v", err)
	}
	bundle.Soft = soft
	return bundle, nil
}

func toString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("expected a string, got %T", v)
}

func toStrings(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, found %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", v)
}

func toBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	}
	return false, fmt.Errorf("expected a boolean, got %T", v)
}

func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
