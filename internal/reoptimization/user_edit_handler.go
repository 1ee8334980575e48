package reoptimization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// EditOption is one ranked alternative for a disliked stop
type EditOption struct {
	Rank        int               `json:"rank"`
	Attraction  models.Attraction `json:"attraction"`
	S           float64           `json:"s"`
	DijMinutes  float64           `json:"dij_minutes"`
	Eta         float64           `json:"eta"`
	WhySuitable string            `json:"why_suitable"`
}

// DislikeResult lists alternatives to the next stop. Nothing is changed.
type DislikeResult struct {
	DislikedStop   string       `json:"disliked_stop"`
	CurrentS       float64      `json:"current_s"`
	Alternatives   []EditOption `json:"alternatives"`
	NoAlternatives bool         `json:"no_alternatives"`
}

// ReplaceResult is the outcome of swapping the next stop. Plan is a new
// copy and is only set when the swap was accepted.
type ReplaceResult struct {
	OriginalStop     string          `json:"original_stop"`
	ReplacementStop  string          `json:"replacement_stop"`
	Accepted         bool            `json:"accepted"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	Plan             *models.DayPlan `json:"plan,omitempty"`
	TimeDeltaMinutes int             `json:"time_delta_minutes"`
	BudgetDelta      float64         `json:"budget_delta"`
}

// SkipResult identifies the stop to skip and whether skipping it says
// something about the traveler's taste.
type SkipResult struct {
	SkippedStop  string  `json:"skipped_stop"`
	SLost        float64 `json:"s_lost"`
	MemorySignal bool    `json:"memory_signal"`
	Reason       string  `json:"reason"`
}

// UserEditHandler answers dislike, replace and skip-current requests. It
// reads TripState and never writes it.
type UserEditHandler struct {
	cfg    config.EditStrategy
	travel spatial.TravelTime
}

func NewUserEditHandler(strategy config.Strategy, source spatial.DistanceSource) *UserEditHandler {
	return &UserEditHandler{
		cfg:    strategy.Edits,
		travel: spatial.NewTravelTime(source, strategy.Edits.WalkingSpeedKmh),
	}
}

func (u *UserEditHandler) walk(lat1, lon1, lat2, lon2 float64) float64 {
	m := u.travel.Minutes(lat1, lon1, lat2, lon2)
	if m < 1 {
		return 1
	}
	return m
}

// nextIndex is the first plan stop that is neither visited nor skipped.
func nextIndex(state *TripState) int {
	if state.CurrentDayPlan == nil {
		return -1
	}
	for i, rp := range state.CurrentDayPlan.RoutePoints {
		if !state.IsVisited(rp.Name) && !state.IsSkipped(rp.Name) {
			return i
		}
	}
	return -1
}

func (u *UserEditHandler) scorer(state *TripState, bundle models.ConstraintBundle, opts []optimization.ScorerOption) (*optimization.AttractionScorer, error) {
	all := append([]optimization.ScorerOption{optimization.WithTmax(state.RemainingMinutesToday())}, opts...)
	return optimization.NewAttractionScorer(bundle, all...)
}

func (u *UserEditHandler) scoreOf(sc *optimization.AttractionScorer, state *TripState, a models.Attraction) optimization.AttractionScore {
	return sc.ScoreAll([]models.Attraction{a}, state.CurrentLat, state.CurrentLon, state.Now(), state.DayEnd, false)[0]
}

func findByName(pool []models.Attraction, name string) (models.Attraction, bool) {
	for _, a := range pool {
		if a.Name == name {
			return a, true
		}
	}
	return models.Attraction{}, false
}

// DislikeNextPOI scores every other candidate that still fits today and
// returns the best by S, nearest first on ties.
func (u *UserEditHandler) DislikeNextPOI(state *TripState, pool []models.Attraction, bundle models.ConstraintBundle, opts ...optimization.ScorerOption) (DislikeResult, error) {
	res := DislikeResult{Alternatives: []EditOption{}}
	if i := nextIndex(state); i >= 0 {
		res.DislikedStop = state.CurrentDayPlan.RoutePoints[i].Name
	}

	sc, err := u.scorer(state, bundle, opts)
	if err != nil {
		return res, fmt.Errorf("failed to build edit scorer: %w", err)
	}
	if rec, ok := findByName(pool, res.DislikedStop); ok {
		res.CurrentS = u.scoreOf(sc, state, rec).S
	}

	var candidates []models.Attraction
	for _, a := range pool {
		if state.Excluded(a.Name) || a.Name == res.DislikedStop {
			continue
		}
		candidates = append(candidates, a)
	}
	remaining := state.RemainingMinutesToday()
	for _, s := range sc.ScoreAll(candidates, state.CurrentLat, state.CurrentLon, state.Now(), state.DayEnd, false) {
		if s.HC == 0 || float64(s.Attraction.VisitDurationMinutes) > remaining {
			continue
		}
		dij := u.walk(state.CurrentLat, state.CurrentLon, s.Attraction.Lat, s.Attraction.Lon)
		res.Alternatives = append(res.Alternatives, EditOption{
			Attraction:  s.Attraction,
			S:           s.S,
			DijMinutes:  dij,
			Eta:         s.S / dij,
			WhySuitable: whyEditSuitable(s, bundle.Soft),
		})
	}
	sort.SliceStable(res.Alternatives, func(i, j int) bool {
		a, b := res.Alternatives[i], res.Alternatives[j]
		if a.S != b.S {
			return a.S > b.S
		}
		return a.DijMinutes < b.DijMinutes
	})
	if len(res.Alternatives) > u.cfg.TopN {
		res.Alternatives = res.Alternatives[:u.cfg.TopN]
	}
	for i := range res.Alternatives {
		res.Alternatives[i].Rank = i + 1
	}
	res.NoAlternatives = len(res.Alternatives) == 0
	return res, nil
}

// ReplacePOI swaps the next stop for replacement. The checks run in order
// and the first failure rejects: already visited or skipped, hard
// constraints, time left, budget left, duplicate later stop. Downstream
// times are then recomputed at walking speed and the swap is rejected if
// the day would run past its end.
func (u *UserEditHandler) ReplacePOI(state *TripState, replacement models.Attraction, bundle models.ConstraintBundle, budgetRemaining float64, opts ...optimization.ScorerOption) (ReplaceResult, error) {
	res := ReplaceResult{ReplacementStop: replacement.Name}
	idx := nextIndex(state)
	if idx < 0 {
		res.RejectionReason = "No next stop found in current plan."
		return res, nil
	}
	plan := state.CurrentDayPlan
	res.OriginalStop = plan.RoutePoints[idx].Name

	if state.IsVisited(replacement.Name) || state.IsSkipped(replacement.Name) {
		res.RejectionReason = fmt.Sprintf("'%s' is already visited or skipped.", replacement.Name)
		return res, nil
	}

	sc, err := u.scorer(state, bundle, opts)
	if err != nil {
		return res, fmt.Errorf("failed to build edit scorer: %w", err)
	}
	if u.scoreOf(sc, state, replacement).HC == 0 {
		res.RejectionReason = fmt.Sprintf("'%s' fails a hard constraint and cannot be added.", replacement.Name)
		return res, nil
	}

	remaining := state.RemainingMinutesToday()
	dij := u.walk(state.CurrentLat, state.CurrentLon, replacement.Lat, replacement.Lon)
	if dij+float64(replacement.VisitDurationMinutes) > remaining {
		res.RejectionReason = fmt.Sprintf("Infeasible: travel %.1f min + visit %d min > %.0f min remaining.",
			dij, replacement.VisitDurationMinutes, remaining)
		return res, nil
	}

	if replacement.EntryCost > budgetRemaining {
		res.RejectionReason = fmt.Sprintf("Budget exceeded: entry cost %.2f > remaining %.2f.",
			replacement.EntryCost, budgetRemaining)
		return res, nil
	}

	for _, rp := range plan.RoutePoints[idx+1:] {
		if rp.Name == replacement.Name {
			res.RejectionReason = fmt.Sprintf("Duplicate: '%s' already appears later in today's plan.", replacement.Name)
			return res, nil
		}
	}

	updated := plan.Clone()
	rps := updated.RoutePoints
	oldCost := rps[idx].EstimatedCost
	oldEnd := rps[len(rps)-1].DepartureTime
	rps[idx].Name = replacement.Name
	rps[idx].Lat = replacement.Lat
	rps[idx].Lon = replacement.Lon
	rps[idx].VisitDurationMinutes = replacement.VisitDurationMinutes
	rps[idx].EstimatedCost = replacement.EntryCost
	rps[idx].ActivityType = string(models.KindAttraction)
	rps[idx].Notes = fmt.Sprintf("Replaced original stop '%s' by user.", res.OriginalStop)

	clock := state.Now()
	lat, lon := state.CurrentLat, state.CurrentLon
	for i := idx; i < len(rps); i++ {
		leg := int(u.walk(lat, lon, rps[i].Lat, rps[i].Lon))
		rps[i].ArrivalTime = clock + models.Clock(leg)
		rps[i].DepartureTime = rps[i].ArrivalTime + models.Clock(rps[i].VisitDurationMinutes)
		clock = rps[i].DepartureTime
		lat, lon = rps[i].Lat, rps[i].Lon
	}
	if clock > state.DayEnd {
		res.RejectionReason = fmt.Sprintf("After replacement the plan runs until %s, past day end %s.", clock, state.DayEnd)
		return res, nil
	}

	res.Accepted = true
	res.Plan = updated
	res.BudgetDelta = replacement.EntryCost - oldCost
	res.TimeDeltaMinutes = int(oldEnd - clock)
	return res, nil
}

// SkipCurrentPOI names the next stop and its S. Marking it skipped and
// replanning are up to the caller.
func (u *UserEditHandler) SkipCurrentPOI(state *TripState, pool []models.Attraction, bundle models.ConstraintBundle, opts ...optimization.ScorerOption) (SkipResult, error) {
	idx := nextIndex(state)
	if idx < 0 {
		return SkipResult{Reason: "No remaining stop found to skip."}, nil
	}
	name := state.CurrentDayPlan.RoutePoints[idx].Name
	res := SkipResult{SkippedStop: name}

	if rec, ok := findByName(pool, name); ok {
		sc, err := u.scorer(state, bundle, opts)
		if err != nil {
			return res, fmt.Errorf("failed to build edit scorer: %w", err)
		}
		res.SLost = u.scoreOf(sc, state, rec).S
	}
	res.MemorySignal = res.SLost >= u.cfg.HighValue
	if res.MemorySignal {
		res.Reason = fmt.Sprintf("User skipped '%s' (S=%.2f >= %.2f, preference signal written).", name, res.SLost, u.cfg.HighValue)
	} else {
		res.Reason = fmt.Sprintf("User skipped '%s' (S=%.2f).", name, res.SLost)
	}
	return res, nil
}

func whyEditSuitable(s optimization.AttractionScore, soft models.SoftConstraints) string {
	a := s.Attraction
	var parts []string
	if hasInterest(soft.Interests, a.Category) {
		parts = append(parts, fmt.Sprintf("matches interest in '%s'", a.Category))
	}
	if soft.AvoidCrowds && !a.IsOutdoor {
		parts = append(parts, "indoor, less crowded")
	}
	if soft.PacePreference == models.PaceRelaxed && a.IntensityLevel == models.IntensityLow {
		parts = append(parts, "low intensity, suits relaxed pace")
	}
	parts = append(parts, fmt.Sprintf("S=%.2f", s.S))
	return strings.Join(parts, "; ")
}
