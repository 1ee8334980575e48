package optimization

import (
	"sort"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// DefaultSoftWeights weights the five soft scores: optimal window,
// remaining-time efficiency, interest match, time of day, crowd/energy.
var DefaultSoftWeights = []float64{0.25, 0.20, 0.30, 0.15, 0.10}

// AttractionScore is the full scoring breakdown for one candidate
type AttractionScore struct {
	Attraction    models.Attraction `json:"attraction"`
	HC            int               `json:"hc"`
	SC            float64           `json:"sc"`
	S             float64           `json:"s"`
	Eta           float64           `json:"eta"`
	TravelMinutes float64           `json:"travel_minutes"`
	Feasible      bool              `json:"feasible"`
	SoftScores    []float64         `json:"soft_scores,omitempty"`
}

// AttractionScorer scores candidates from the current position and clock
type AttractionScorer struct {
	travel      spatial.TravelTime
	method      AggregationMethod
	weights     []float64
	tmax        float64
	soft        models.SoftConstraints
	hard        models.HardConstraints
	tripMonth   int
	permit      bool
	skipOpening bool
	sc5Override func(a models.Attraction, base float64) float64
	scBonus     func(a models.Attraction) float64
}

// ScorerOption customizes an AttractionScorer
type ScorerOption func(*AttractionScorer)

// WithTravelTime sets the distance source and speed used for Dij.
func WithTravelTime(t spatial.TravelTime) ScorerOption {
	return func(s *AttractionScorer) { s.travel = t }
}

// WithWeights overrides the five soft weights.
func WithWeights(w []float64) ScorerOption {
	return func(s *AttractionScorer) { s.weights = append([]float64(nil), w...) }
}

// WithMethod sets the SC aggregation method.
func WithMethod(m AggregationMethod) ScorerOption {
	return func(s *AttractionScorer) { s.method = m }
}

// WithoutOpeningCheck scores candidates without hc1, for callers that check
// opening hours at the actual arrival time.
func WithoutOpeningCheck() ScorerOption {
	return func(s *AttractionScorer) { s.skipOpening = true }
}

// WithTmax sets the per-day time budget in minutes.
func WithTmax(minutes float64) ScorerOption {
	return func(s *AttractionScorer) { s.tmax = minutes }
}

// WithTripMonth sets the month used by the seasonal check.
func WithTripMonth(month int) ScorerOption {
	return func(s *AttractionScorer) { s.tripMonth = month }
}

// WithEnergyAdjustment replaces the crowd/energy score (sc5) with the
// result of fn. Used to fold hunger and fatigue into scoring.
func WithEnergyAdjustment(fn func(a models.Attraction, base float64) float64) ScorerOption {
	return func(s *AttractionScorer) { s.sc5Override = fn }
}

// WithSCBonus adds fn(a) to SC after aggregation, capped at 1.
func WithSCBonus(fn func(a models.Attraction) float64) ScorerOption {
	return func(s *AttractionScorer) { s.scBonus = fn }
}

// NewAttractionScorer builds a scorer for a constraint bundle.
// It fails when the weight vector is malformed.
func NewAttractionScorer(bundle models.ConstraintBundle, opts ...ScorerOption) (*AttractionScorer, error) {
	s := &AttractionScorer{
		travel:  spatial.NewTravelTime(nil, spatial.UrbanSpeedKmh),
		method:  AggregateSum,
		weights: append([]float64(nil), DefaultSoftWeights...),
		tmax:    480,
		soft:    bundle.Soft,
		hard:    bundle.Hard,
		permit:  true,
	}
	if !bundle.Hard.DepartureDate.IsZero() {
		s.tripMonth = int(bundle.Hard.DepartureDate.Month())
	}
	if bundle.Hard.PermitAvailable != nil {
		s.permit = *bundle.Hard.PermitAvailable
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.weights) != 5 {
		return nil, errs.Validation("weights", "expected 5 soft weights, got %d", len(s.weights))
	}
	if _, err := ComputeSC([]float64{1, 1, 1, 1, 1}, s.weights, s.method); err != nil {
		return nil, err
	}
	return s, nil
}

// Tmax returns the configured daily budget.
func (s *AttractionScorer) Tmax() float64 {
	return s.tmax
}

// Soft returns the soft constraints the scorer reads.
func (s *AttractionScorer) Soft() models.SoftConstraints {
	return s.soft
}

// TravelMinutes returns Dij between two coordinates.
func (s *AttractionScorer) TravelMinutes(lat1, lon1, lat2, lon2 float64) float64 {
	return s.travel.Minutes(lat1, lon1, lat2, lon2)
}

// ScoreAll scores every candidate from (lat, lon) at tCur with the day ending
// at end. Feasible results come first sorted by eta descending, infeasible
// results follow in input order.
func (s *AttractionScorer) ScoreAll(candidates []models.Attraction, lat, lon float64, tCur, end models.Clock, boundaryDay bool) []AttractionScore {
	remaining := tCur.MinutesUntil(end)
	used := s.tmax - remaining
	if used < 0 {
		used = 0
	}

	feasible := make([]AttractionScore, 0, len(candidates))
	var infeasible []AttractionScore
	for _, a := range candidates {
		sc := s.scoreOne(a, lat, lon, tCur, used, remaining, boundaryDay)
		if sc.Feasible {
			feasible = append(feasible, sc)
		} else {
			infeasible = append(infeasible, sc)
		}
	}

	sort.SliceStable(feasible, func(i, j int) bool {
		return feasible[i].Eta > feasible[j].Eta
	})
	return append(feasible, infeasible...)
}

// ScoreOne scores a single candidate with an explicit elapsed/remaining split.
func (s *AttractionScorer) ScoreOne(a models.Attraction, lat, lon float64, tCur models.Clock, used, remaining float64, boundaryDay bool) AttractionScore {
	return s.scoreOne(a, lat, lon, tCur, used, remaining, boundaryDay)
}

func (s *AttractionScorer) scoreOne(a models.Attraction, lat, lon float64, tCur models.Clock, used, remaining float64, boundaryDay bool) AttractionScore {
	dij := s.travel.Minutes(lat, lon, a.Lat, a.Lon)

	ctx := HCContext{
		TCur:               tCur,
		SkipOpeningHours:   s.skipOpening,
		ElapsedMin:         used,
		TmaxMin:            s.tmax,
		TravelMinutes:      dij,
		RequiresWheelchair: s.hard.RequiresWheelchair,
		TravelerAges:       s.hard.TravelerAges,
		PermitAvailable:    s.permit,
		GroupSize:          s.hard.EffectiveGroupSize(),
		TripMonth:          s.tripMonth,
	}
	hc := ComputeHC(EvaluateHC(models.AttractionPOI(&a), ctx))

	sc1 := optimalWindowScore(a, tCur)
	sc2 := 0.0
	if s.tmax > 0 {
		sc2 = (remaining - (dij + float64(a.Duration()))) / s.tmax
		if sc2 < 0 {
			sc2 = 0
		}
	}
	sc3 := InterestScore(a, s.soft.Interests)
	sc4 := timeOfDayScore(a, tCur, s.soft)
	sc5 := CrowdEnergyScore(a, tCur, s.soft, boundaryDay)
	if s.sc5Override != nil {
		sc5 = s.sc5Override(a, sc5)
	}
	values := []float64{sc1, sc2, sc3, sc4, sc5}

	// Weights were validated at construction.
	scVal, _ := ComputeSC(values, s.weights, s.method)
	if s.scBonus != nil {
		scVal = minf(1, scVal+s.scBonus(a))
	}
	sat := ComputeS(hc, scVal)

	return AttractionScore{
		Attraction:    a,
		HC:            hc,
		SC:            scVal,
		S:             sat,
		Eta:           Eta(sat, dij),
		TravelMinutes: dij,
		Feasible:      hc == 1,
		SoftScores:    values,
	}
}

func optimalWindowScore(a models.Attraction, tCur models.Clock) float64 {
	start, end, ok := models.ParseWindow(a.OptimalVisitTime)
	if !ok {
		return 0.5
	}
	if tCur.Within(start, end) {
		return 1.0
	}
	return 0.0
}

// InterestScore is 0.5 with no interests, 1.0 when the category and an
// interest overlap by substring, else 0.2.
func InterestScore(a models.Attraction, interests []string) float64 {
	if len(interests) == 0 {
		return 0.5
	}
	cat := strings.ToLower(strings.TrimSpace(a.Category))
	if cat == "" {
		return 0.2
	}
	for _, in := range interests {
		interest := strings.ToLower(in)
		if strings.Contains(interest, cat) || strings.Contains(cat, interest) {
			return 1.0
		}
	}
	return 0.2
}

func timeOfDayScore(a models.Attraction, tCur models.Clock, soft models.SoftConstraints) float64 {
	pref := strings.ToLower(soft.PreferredTimeOfDay)
	hour := tCur.Hour()

	if pref == "" {
		if a.IsOutdoor && hour < 11 {
			return 0.8
		}
		return 0.5
	}

	switch {
	case pref == "morning" && hour >= 6 && hour < 12:
		return 1.0
	case pref == "afternoon" && hour >= 12 && hour < 17:
		return 1.0
	case pref == "evening" && hour >= 17 && hour < 21:
		return 1.0
	}
	return 0.2
}

// CrowdEnergyScore combines crowd avoidance, travel-day energy management
// and pace preference into one score in [0, 1].
func CrowdEnergyScore(a models.Attraction, tCur models.Clock, soft models.SoftConstraints, boundaryDay bool) float64 {
	score := 1.0

	if soft.AvoidCrowds {
		hour := tCur.Hour()
		switch {
		case a.IsOutdoor && hour >= 10 && hour < 15:
			score = minf(score, 0.3)
		case a.IsOutdoor:
			score = minf(score, 1.0)
		default:
			score = minf(score, 0.7)
		}
	}

	intensity := strings.ToLower(a.IntensityLevel)
	if soft.HeavyTravelPenalty && boundaryDay {
		switch intensity {
		case models.IntensityHigh:
			score = minf(score, 0.1)
		case models.IntensityMedium:
			score = minf(score, 0.5)
		}
	}

	if soft.PacePreference == models.PaceRelaxed && intensity == models.IntensityHigh {
		score = minf(score, 0.4)
	}

	if score < 0 {
		return 0
	}
	return score
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
