// Package planning builds multi-day itineraries: budget distribution, day
// bucketing and per-day ACO tour construction.
package planning

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// Default day boundaries
var (
	DefaultDayStart = models.ClockAt(9, 0)
	DefaultDayEnd   = models.ClockAt(20, 0)
)

// GenerateRequest is everything needed to plan a trip
type GenerateRequest struct {
	Constraints models.ConstraintBundle
	// Attractions is the ranked candidate pool. When empty the planner's
	// PoiSource is queried for the destination city.
	Attractions []models.Attraction
	Filter      POIFilter
	TotalBudget float64
	StartDate   time.Time
	EndDate     time.Time
	StartLat    float64
	StartLon    float64
}

// DayRequest plans a single day from an arbitrary position and clock
type DayRequest struct {
	DayNumber   int
	Date        string
	Pool        []models.Attraction
	StartLat    float64
	StartLon    float64
	StartClock  models.Clock // zero means the planner's day start
	Tmax        float64      // zero means ACOParams.Tmax
	BoundaryDay bool
	Constraints models.ConstraintBundle
	TripMonth   int
	// ScorerOptions are appended after the planner's own scorer options.
	ScorerOptions []optimization.ScorerOption
}

// RoutePlanner turns a candidate pool into a timed multi-day itinerary
type RoutePlanner struct {
	source   PoiSource
	budget   *BudgetPlanner
	travel   spatial.TravelTime
	params   optimization.ACOParams
	method   optimization.AggregationMethod
	dayStart models.Clock
	dayEnd   models.Clock
}

// Option customizes a RoutePlanner
type Option func(*RoutePlanner)

// WithSource sets the PoiSource used when a request carries no attractions.
func WithSource(s PoiSource) Option {
	return func(p *RoutePlanner) { p.source = s }
}

// WithTravelTime sets the distance source and average speed.
func WithTravelTime(t spatial.TravelTime) Option {
	return func(p *RoutePlanner) { p.travel = t }
}

// WithACOParams sets the optimizer parameters.
func WithACOParams(params optimization.ACOParams) Option {
	return func(p *RoutePlanner) { p.params = params }
}

// WithAggregation sets the SC aggregation method.
func WithAggregation(m optimization.AggregationMethod) Option {
	return func(p *RoutePlanner) { p.method = m }
}

// WithDayWindow sets the default day start and end clocks.
func WithDayWindow(start, end models.Clock) Option {
	return func(p *RoutePlanner) {
		p.dayStart = start
		p.dayEnd = end
	}
}

// NewRoutePlanner creates a planner with default ACO parameters and S2 distances.
func NewRoutePlanner(opts ...Option) (*RoutePlanner, error) {
	p := &RoutePlanner{
		budget:   NewBudgetPlanner(),
		travel:   spatial.NewTravelTime(nil, spatial.UrbanSpeedKmh),
		params:   optimization.DefaultACOParams(),
		method:   optimization.AggregateSum,
		dayStart: DefaultDayStart,
		dayEnd:   DefaultDayEnd,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.params.Validate(); err != nil {
		return nil, err
	}
	if p.dayEnd <= p.dayStart {
		return nil, errs.Validation("day_window", "day end %s must be after day start %s", p.dayEnd, p.dayStart)
	}
	return p, nil
}

// Params returns the optimizer parameters.
func (p *RoutePlanner) Params() optimization.ACOParams {
	return p.params
}

// DayStart returns the default day-start clock.
func (p *RoutePlanner) DayStart() models.Clock {
	return p.dayStart
}

// DayEnd returns the day-end clock.
func (p *RoutePlanner) DayEnd() models.Clock {
	return p.dayEnd
}

// Travel returns the travel-time estimator.
func (p *RoutePlanner) Travel() spatial.TravelTime {
	return p.travel
}

// Budget returns the budget planner.
func (p *RoutePlanner) Budget() *BudgetPlanner {
	return p.budget
}

// Generate plans every day of the trip. Candidates are split into per-day
// buckets; whatever a day cannot fit rolls to the front of the next day and
// no attraction is visited twice across the trip.
func (p *RoutePlanner) Generate(ctx context.Context, req GenerateRequest) (*models.Itinerary, error) {
	hard := req.Constraints.Hard
	pool := req.Attractions
	if len(pool) == 0 && p.source != nil {
		fetched, err := p.source.Fetch(ctx, hard.DestinationCity, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch attractions: %w", err)
		}
		pool = fetched
	}

	startDate, endDate := req.StartDate, req.EndDate
	if startDate.IsZero() {
		startDate = hard.DepartureDate
	}
	if endDate.IsZero() {
		endDate = hard.ReturnDate
	}
	numDays, err := tripDays(startDate, endDate)
	if err != nil {
		return nil, err
	}

	tripMonth := 0
	if !startDate.IsZero() {
		tripMonth = int(startDate.Month())
	}

	it := &models.Itinerary{
		TripID:          uuid.New().String(),
		DestinationCity: hard.DestinationCity,
		StartLat:        req.StartLat,
		StartLon:        req.StartLon,
		Days:            make([]models.DayPlan, 0, numDays),
		Budget:          p.budget.Distribute(req.TotalBudget),
		GeneratedAt:     time.Now().UTC(),
	}

	rng := newRand(p.params.Seed)
	buckets := bucketize(pool, numDays)
	visited := make(map[string]bool, len(pool))
	var rollover []models.Attraction

	for d, bucket := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dayPool := make([]models.Attraction, 0, len(rollover)+len(bucket))
		for _, a := range rollover {
			if !visited[a.Name] {
				dayPool = append(dayPool, a)
			}
		}
		for _, a := range bucket {
			if !visited[a.Name] {
				dayPool = append(dayPool, a)
			}
		}
		dayPool = dedupeByName(dayPool)

		date := ""
		if !startDate.IsZero() {
			date = startDate.AddDate(0, 0, d).Format(models.DateLayout)
		}

		day, err := p.planDay(DayRequest{
			DayNumber:   d + 1,
			Date:        date,
			Pool:        dayPool,
			StartLat:    req.StartLat,
			StartLon:    req.StartLon,
			BoundaryDay: d == 0 || d == numDays-1,
			Constraints: req.Constraints,
			TripMonth:   tripMonth,
		}, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to plan day %d: %w", d+1, err)
		}

		for _, rp := range day.RoutePoints {
			visited[rp.Name] = true
		}
		rollover = rollover[:0:0]
		for _, a := range dayPool {
			if !visited[a.Name] {
				rollover = append(rollover, a)
			}
		}

		it.Days = append(it.Days, *day)
		it.TotalActualCost += day.DailyBudgetUsed
	}
	return it, nil
}

// PlanDay plans one day with its own random source seeded from ACOParams.Seed.
func (p *RoutePlanner) PlanDay(req DayRequest) (*models.DayPlan, error) {
	return p.planDay(req, newRand(p.params.Seed))
}

func (p *RoutePlanner) planDay(req DayRequest, rng *rand.Rand) (*models.DayPlan, error) {
	day := &models.DayPlan{
		DayNumber:   req.DayNumber,
		Date:        req.Date,
		RoutePoints: []models.RoutePoint{},
	}
	if len(req.Pool) == 0 {
		return day, nil
	}

	startClock := req.StartClock
	if startClock == 0 {
		startClock = p.dayStart
	}
	tmax := req.Tmax
	if tmax == 0 {
		tmax = p.params.Tmax
	}

	scorerOpts := []optimization.ScorerOption{
		optimization.WithTravelTime(p.travel),
		optimization.WithMethod(p.method),
		optimization.WithTmax(tmax),
		// opening hours are checked at each stop's arrival by the ACO
		optimization.WithoutOpeningCheck(),
	}
	if req.TripMonth > 0 {
		scorerOpts = append(scorerOpts, optimization.WithTripMonth(req.TripMonth))
	}
	scorerOpts = append(scorerOpts, req.ScorerOptions...)
	scorer, err := optimization.NewAttractionScorer(req.Constraints, scorerOpts...)
	if err != nil {
		return nil, err
	}

	graph, byNode := p.buildGraph(req.Pool, req.StartLat, req.StartLon, startClock)
	satisfaction := make(map[int]float64, len(graph.Nodes))
	for _, n := range graph.Nodes {
		a, ok := byNode[n.ID]
		if n.IsStart || n.IsEnd || !ok {
			satisfaction[n.ID] = 0
			continue
		}
		satisfaction[n.ID] = scorer.ScoreOne(a, req.StartLat, req.StartLon, startClock, 0, tmax, req.BoundaryDay).S
	}

	params := p.params
	params.Tmax = tmax
	aco, err := optimization.NewACOOptimizer(graph, satisfaction, params, 0, optimization.WithRand(rng))
	if err != nil {
		return nil, err
	}
	best := aco.Run()

	plan := tourToDayPlan(day, best, graph, byNode, startClock)
	plan.DistanceKm = routeDistanceKm(req.StartLat, req.StartLon, plan.RoutePoints)
	return plan, nil
}

// routeDistanceKm is the straight-line length of start -> stop 1 -> ... -> stop n.
func routeDistanceKm(lat, lon float64, stops []models.RoutePoint) float64 {
	if len(stops) == 0 {
		return 0
	}
	path := make([]spatial.Point, 0, len(stops)+1)
	path = append(path, spatial.Point{Lat: lat, Lon: lon})
	for _, rp := range stops {
		path = append(path, spatial.Point{Lat: rp.Lat, Lon: rp.Lon})
	}
	return spatial.PathLength(path) / 1000.0
}

// buildGraph makes a complete directed graph; node 0 is the start position.
// Opening hours become node windows relative to start.
func (p *RoutePlanner) buildGraph(pool []models.Attraction, lat, lon float64, start models.Clock) (*optimization.Graph, map[int]models.Attraction) {
	nodes := make([]optimization.GraphNode, 0, len(pool)+1)
	nodes = append(nodes, optimization.GraphNode{ID: 0, Name: "START", Lat: lat, Lon: lon, IsStart: true})
	byNode := make(map[int]models.Attraction, len(pool))

	for i, a := range pool {
		id := i + 1
		node := optimization.GraphNode{
			ID:       id,
			Name:     a.Name,
			Utility:  math.Min(a.Rating/5.0, 1.0),
			Duration: float64(a.Duration()),
			Lat:      a.Lat,
			Lon:      a.Lon,
		}
		node.HasWindow, node.OpensAt, node.ClosesAt = openingWindow(a.OpeningHours, start)
		nodes = append(nodes, node)
		byNode[id] = a
	}

	edges := make([]optimization.GraphEdge, 0, len(nodes)*(len(nodes)-1))
	for _, from := range nodes {
		for _, to := range nodes {
			if from.ID == to.ID {
				continue
			}
			edges = append(edges, optimization.GraphEdge{
				From:    from.ID,
				To:      to.ID,
				Minutes: p.travel.Minutes(from.Lat, from.Lon, to.Lat, to.Lon),
			})
		}
	}
	return optimization.NewGraph(nodes, edges), byNode
}

// openingWindow converts "HH:MM-HH:MM" into minutes relative to start. An
// empty window is always open; a malformed one is never open.
func openingWindow(hours string, start models.Clock) (bool, float64, float64) {
	if hours == "" || !strings.Contains(hours, "-") {
		return false, 0, 0
	}
	open, closing, ok := models.ParseWindow(hours)
	if !ok {
		return true, 0, -1
	}
	return true, open.Minutes() - start.Minutes(), closing.Minutes() - start.Minutes()
}

// tourToDayPlan walks the path adding travel time, any wait for the stop to
// open, then the visit duration. ArrivalTime is when the visit begins.
func tourToDayPlan(day *models.DayPlan, tour optimization.Tour, graph *optimization.Graph, byNode map[int]models.Attraction, start models.Clock) *models.DayPlan {
	elapsed := 0.0
	prev := 0
	seq := 0
	for _, id := range tour.Path {
		if id == 0 {
			continue
		}
		a, ok := byNode[id]
		if !ok {
			continue
		}
		node, _ := graph.Node(id)
		begin, _ := node.VisitStart(elapsed + graph.Travel(prev, id))
		arrival := start.Add(begin)
		departure := arrival.Add(float64(a.Duration()))
		day.RoutePoints = append(day.RoutePoints, models.RoutePoint{
			Sequence:             seq,
			Name:                 a.Name,
			Lat:                  a.Lat,
			Lon:                  a.Lon,
			ArrivalTime:          arrival,
			DepartureTime:        departure,
			VisitDurationMinutes: a.Duration(),
			ActivityType:         string(models.KindAttraction),
			EstimatedCost:        a.EntryCost,
		})
		day.DailyBudgetUsed += a.EntryCost
		elapsed = begin + float64(a.Duration())
		prev = id
		seq++
	}
	return day
}

// bucketize splits the ranked pool into numDays slices of ceil(total/days).
// The last bucket is never empty while candidates exist.
func bucketize(pool []models.Attraction, numDays int) [][]models.Attraction {
	total := len(pool)
	quota := int(math.Ceil(float64(total) / float64(numDays)))
	if quota < 1 {
		quota = 1
	}

	buckets := make([][]models.Attraction, numDays)
	for d := 0; d < numDays; d++ {
		lo := d * quota
		hi := lo + quota
		if lo > total {
			lo = total
		}
		if hi > total {
			hi = total
		}
		buckets[d] = append([]models.Attraction(nil), pool[lo:hi]...)
	}
	if total > 0 && len(buckets[numDays-1]) == 0 {
		buckets[numDays-1] = []models.Attraction{pool[total-1]}
	}
	return buckets
}

func dedupeByName(pool []models.Attraction) []models.Attraction {
	seen := make(map[string]bool, len(pool))
	out := pool[:0]
	for _, a := range pool {
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		out = append(out, a)
	}
	return out
}

func tripDays(start, end time.Time) (int, error) {
	if start.IsZero() || end.IsZero() {
		return 1, nil
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0, errs.Validation("end_date", "end date %s is before start date %s",
			e.Format(models.DateLayout), s.Format(models.DateLayout))
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}
