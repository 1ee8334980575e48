package reoptimization

import (
	"math"
	"sort"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// Behavioral signals that nudge fatigue
const (
	SignalSkipHighIntensity = "skip_high_intensity"
	SignalPaceChange        = "pace_change"
)

// Hunger/fatigue actions recorded to memory
const (
	ActionMealInserted = "meal_inserted"
	ActionRestInserted = "rest_inserted"
	ActionAdvisoryOnly = "advisory_only"
)

// MealOption is a restaurant offered when the traveler is hungry
type MealOption struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Cuisine     string  `json:"cuisine"`
	Rating      float64 `json:"rating"`
	AvgCost     float64 `json:"avg_cost"`
	DijMinutes  float64 `json:"dij_minutes"`
	S           float64 `json:"s"`
	WhySuitable string  `json:"why_suitable"`
}

// HungerAdvisory lists meal options for a hunger disruption
type HungerAdvisory struct {
	HungerLevel     float64      `json:"hunger_level"`
	Threshold       float64      `json:"threshold"`
	Options         []MealOption `json:"options"`
	Action          string       `json:"action"`
	MinutesConsumed int          `json:"minutes_consumed"`
	NoOptions       bool         `json:"no_options"`
}

// FatigueAdvisory describes the rest break for a fatigue disruption
type FatigueAdvisory struct {
	FatigueLevel    float64  `json:"fatigue_level"`
	Threshold       float64  `json:"threshold"`
	RestMinutes     int      `json:"rest_minutes"`
	NextStop        string   `json:"next_stop"`
	DeferredStops   []string `json:"deferred_stops"`
	Action          string   `json:"action"`
	MinutesConsumed int      `json:"minutes_consumed"`
}

// HungerFatigueAdvisor owns the hunger and fatigue model. Levels live on
// TripState and only change through the methods here.
type HungerFatigueAdvisor struct {
	cfg        config.HungerFatigueStrategy
	source     spatial.DistanceSource
	classifier Classifier
	topN       int
}

func NewHungerFatigueAdvisor(strategy config.Strategy, source spatial.DistanceSource, classifier Classifier) *HungerFatigueAdvisor {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &HungerFatigueAdvisor{
		cfg:        strategy.HungerFatigue,
		source:     source,
		classifier: classifier,
		topN:       strategy.Alternatives,
	}
}

// ApplyKeywords raises hunger and fatigue to their keyword floors when the
// text mentions them. Levels already above a floor are left alone.
func (h *HungerFatigueAdvisor) ApplyKeywords(text string, state *TripState) SignalSet {
	sig := h.classifier.Classify(text)
	if sig.Hunger && state.Hunger() < h.cfg.HungerFloor {
		state.setHunger(h.cfg.HungerFloor)
	}
	if sig.Fatigue && state.Fatigue() < h.cfg.FatigueFloor {
		state.setFatigue(h.cfg.FatigueFloor)
	}
	return sig
}

// OnBehavioralSignal nudges fatigue up for inferred signals.
func (h *HungerFatigueAdvisor) OnBehavioralSignal(signal string, state *TripState) {
	switch signal {
	case SignalSkipHighIntensity:
		state.setFatigue(state.Fatigue() + h.cfg.SkipIntenseNudge)
	case SignalPaceChange:
		state.setFatigue(state.Fatigue() + h.cfg.PaceChangeNudge)
	}
}

// Accumulate adds elapsed minutes of activity. Fatigue grows faster for
// more intense stops; unknown intensities count as medium.
func (h *HungerFatigueAdvisor) Accumulate(state *TripState, intensity string, elapsedMinutes float64) {
	if elapsedMinutes <= 0 {
		return
	}
	effort, ok := h.cfg.IntensityEffort[intensity]
	if !ok {
		effort = h.cfg.IntensityEffort[models.IntensityMedium]
	}
	state.setHunger(state.Hunger() + elapsedMinutes/h.cfg.HungerFullMinutes)
	state.setFatigue(state.Fatigue() + elapsedMinutes/h.cfg.FatigueFullMinutes*effort)
}

// Triggers returns the disruptions whose level is at or above the trigger
// and whose last relief is outside the cooldown window.
func (h *HungerFatigueAdvisor) Triggers(state *TripState) []EventType {
	var out []EventType
	if state.Hunger() >= h.cfg.HungerTrigger {
		if last, ok := state.LastMeal(); !ok || !h.inCooldown(last, state.Now()) {
			out = append(out, EventHunger)
		}
	}
	if state.Fatigue() >= h.cfg.FatigueTrigger {
		if last, ok := state.LastRest(); !ok || !h.inCooldown(last, state.Now()) {
			out = append(out, EventFatigue)
		}
	}
	return out
}

func (h *HungerFatigueAdvisor) inCooldown(last, now models.Clock) bool {
	return float64(now-last) < h.cfg.CooldownMinutes
}

// Meal advances the clock by the meal duration, capped at day end, and
// resets hunger.
func (h *HungerFatigueAdvisor) Meal(state *TripState) int {
	advanceCapped(state, h.cfg.MealMinutes)
	state.setHunger(0)
	state.markMeal()
	return h.cfg.MealMinutes
}

// Rest advances the clock by the rest duration, capped at day end, and
// relieves part of the fatigue.
func (h *HungerFatigueAdvisor) Rest(state *TripState) int {
	advanceCapped(state, h.cfg.RestMinutes)
	state.setFatigue(state.Fatigue() - h.cfg.RestRelief)
	state.markRest()
	return h.cfg.RestMinutes
}

func advanceCapped(state *TripState, minutes int) {
	target := state.Now() + models.Clock(minutes)
	if target > state.DayEnd {
		target = state.DayEnd
	}
	if target > state.Now() {
		_ = state.SetTime(target)
	}
}

// IsRestaurant reports whether an attraction is a place to eat.
func IsRestaurant(a models.Attraction) bool {
	switch strings.ToLower(a.Category) {
	case "restaurant", "cafe", "food_court":
		return true
	}
	return false
}

// Penalty is the sc5 deduction for a stop given the current levels.
// Restaurants carry no hunger penalty.
func (h *HungerFatigueAdvisor) Penalty(a models.Attraction, hunger, fatigue float64) float64 {
	var p float64
	if hunger >= h.cfg.HungerTrigger && !IsRestaurant(a) {
		if a.Duration() > h.cfg.LongStopMinutes {
			p += h.cfg.HungerPenaltyLong
		} else {
			p += h.cfg.HungerPenaltyShort
		}
	}
	if fatigue >= h.cfg.FatigueTrigger {
		intensity := a.IntensityLevel
		if intensity == "" {
			intensity = models.IntensityMedium
		}
		p += h.cfg.FatiguePenalty[intensity]
	}
	return p
}

// ScorerOptions folds the current hunger and fatigue into scoring: sc5
// loses the penalty and restaurants gain a bonus while hungry. Levels are
// captured now, so later changes do not leak into a running plan.
func (h *HungerFatigueAdvisor) ScorerOptions(state *TripState) []optimization.ScorerOption {
	hunger, fatigue := state.Hunger(), state.Fatigue()
	if hunger < h.cfg.HungerTrigger && fatigue < h.cfg.FatigueTrigger {
		return nil
	}
	return []optimization.ScorerOption{
		optimization.WithEnergyAdjustment(func(a models.Attraction, base float64) float64 {
			return math.Max(0, base-h.Penalty(a, hunger, fatigue))
		}),
		optimization.WithSCBonus(func(a models.Attraction) float64 {
			if IsRestaurant(a) && hunger >= h.cfg.HungerTrigger {
				return h.cfg.RestaurantBonus
			}
			return 0
		}),
	}
}

// HungerAdvisory ranks restaurants that pass the dining hard constraints
// (dietary overlap, open now, per-meal budget, access) by S then distance.
func (h *HungerFatigueAdvisor) HungerAdvisory(state *TripState, restaurants []models.Restaurant, bundle models.ConstraintBundle, budgetPerMeal float64) HungerAdvisory {
	out := HungerAdvisory{
		HungerLevel: state.Hunger(),
		Threshold:   h.cfg.HungerTrigger,
		Action:      ActionAdvisoryOnly,
		Options:     []MealOption{},
	}
	if len(restaurants) == 0 {
		out.NoOptions = true
		return out
	}

	ctx := optimization.DefaultHCContext()
	ctx.TCur = state.Now()
	ctx.RequiresWheelchair = bundle.Hard.RequiresWheelchair
	ctx.DietaryPreferences = bundle.Soft.DietaryPreferences
	ctx.PerMealBudget = budgetPerMeal
	travel := spatial.NewTravelTime(h.source, h.cfg.WalkingSpeedKmh)

	for i := range restaurants {
		r := restaurants[i]
		if optimization.ComputeHC(optimization.EvaluateHC(models.RestaurantPOI(&r), ctx)) == 0 {
			continue
		}
		dij := travel.Minutes(state.CurrentLat, state.CurrentLon, r.Lat, r.Lon)
		out.Options = append(out.Options, MealOption{
			Name:        r.Name,
			Cuisine:     r.CuisineType,
			Rating:      r.Rating,
			AvgCost:     r.AvgPricePerPerson,
			DijMinutes:  math.Round(dij*10) / 10,
			S:           math.Round(math.Min(1, r.Rating/5+h.cfg.RestaurantBonus)*100) / 100,
			WhySuitable: whyMeal(r, bundle.Soft.DietaryPreferences),
		})
	}
	sort.SliceStable(out.Options, func(i, j int) bool {
		if out.Options[i].S != out.Options[j].S {
			return out.Options[i].S > out.Options[j].S
		}
		return out.Options[i].DijMinutes < out.Options[j].DijMinutes
	})
	if len(out.Options) > h.topN {
		out.Options = out.Options[:h.topN]
	}
	for i := range out.Options {
		out.Options[i].Rank = i + 1
	}
	out.NoOptions = len(out.Options) == 0
	return out
}

// FatigueAdvisory lists the stops that no longer fit once the rest break
// is taken out of the remaining time.
func (h *HungerFatigueAdvisor) FatigueAdvisory(state *TripState, nextStop string, remaining []models.Attraction) FatigueAdvisory {
	usable := math.Max(0, state.RemainingMinutesToday()-float64(h.cfg.RestMinutes))
	deferred := []string{}
	for _, a := range remaining {
		if float64(a.Duration()) > usable {
			deferred = append(deferred, a.Name)
		}
	}
	return FatigueAdvisory{
		FatigueLevel:    state.Fatigue(),
		Threshold:       h.cfg.FatigueTrigger,
		RestMinutes:     h.cfg.RestMinutes,
		NextStop:        nextStop,
		DeferredStops:   deferred,
		Action:          ActionRestInserted,
		MinutesConsumed: h.cfg.RestMinutes,
	}
}

func whyMeal(r models.Restaurant, dietary []string) string {
	var parts []string
	var matched []string
	for _, d := range dietary {
		for _, t := range r.CuisineTags {
			if strings.EqualFold(d, t) {
				matched = append(matched, strings.ToLower(d))
			}
		}
	}
	if len(matched) > 0 {
		sort.Strings(matched)
		parts = append(parts, "matches dietary: "+strings.Join(matched, ", "))
	}
	if r.Rating >= 4.2 {
		parts = append(parts, "highly rated")
	}
	if r.AcceptsReservations {
		parts = append(parts, "takes reservations")
	}
	if len(parts) == 0 {
		return "nearby option"
	}
	return strings.Join(parts, "; ")
}
