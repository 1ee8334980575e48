// Package reoptimization replans an in-progress trip day when live
// conditions or the traveler's own actions invalidate the current plan.
// All types here are single-owner; callers serialize access per trip.
package reoptimization

import (
	"sort"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// DisruptionEntry is one logged event with the clock it arrived at
type DisruptionEntry struct {
	Type    EventType    `json:"type"`
	Day     int          `json:"day"`
	Time    models.Clock `json:"time"`
	Payload Payload      `json:"payload"`
}

// TripState is the live state of the trip day being traveled.
type TripState struct {
	CurrentLat  float64      `json:"current_lat"`
	CurrentLon  float64      `json:"current_lon"`
	CurrentDay  int          `json:"current_day"`
	CurrentDate string       `json:"current_date,omitempty"`
	DayEnd      models.Clock `json:"day_end"`

	BudgetSpent    models.BudgetAllocation `json:"budget_spent"`
	CurrentDayPlan *models.DayPlan         `json:"current_day_plan,omitempty"`
	DisruptionLog  []DisruptionEntry       `json:"disruption_log"`
	MinutesOnFeet  int                     `json:"minutes_on_feet"`
	ReplanPending  bool                    `json:"replan_pending"`

	now      models.Clock
	visited  map[string]bool
	skipped  map[string]bool
	deferred map[string]bool

	hunger   float64
	fatigue  float64
	lastMeal *models.Clock
	lastRest *models.Clock
}

// NewTripState starts a day at the given position and clock. The day ends at dayEnd.
func NewTripState(lat, lon float64, start, dayEnd models.Clock, day int) *TripState {
	if day < 1 {
		day = 1
	}
	return &TripState{
		CurrentLat:    lat,
		CurrentLon:    lon,
		CurrentDay:    day,
		DayEnd:        dayEnd,
		DisruptionLog: []DisruptionEntry{},
		now:           start,
		visited:       make(map[string]bool),
		skipped:       make(map[string]bool),
		deferred:      make(map[string]bool),
	}
}

// clone deep-copies the state so a dry run can mutate it freely.
func (s *TripState) clone() *TripState {
	c := *s
	c.CurrentDayPlan = s.CurrentDayPlan.Clone()
	c.DisruptionLog = append([]DisruptionEntry(nil), s.DisruptionLog...)
	c.visited = copySet(s.visited)
	c.skipped = copySet(s.skipped)
	c.deferred = copySet(s.deferred)
	if s.lastMeal != nil {
		t := *s.lastMeal
		c.lastMeal = &t
	}
	if s.lastRest != nil {
		t := *s.lastRest
		c.lastRest = &t
	}
	return &c
}

// Now returns the current clock.
func (s *TripState) Now() models.Clock { return s.now }

// Hunger returns the hunger level in [0,1].
func (s *TripState) Hunger() float64 { return s.hunger }

// Fatigue returns the fatigue level in [0,1].
func (s *TripState) Fatigue() float64 { return s.fatigue }

// LastMeal returns the clock of the last meal relief, if any.
func (s *TripState) LastMeal() (models.Clock, bool) {
	if s.lastMeal == nil {
		return 0, false
	}
	return *s.lastMeal, true
}

// LastRest returns the clock of the last rest relief, if any.
func (s *TripState) LastRest() (models.Clock, bool) {
	if s.lastRest == nil {
		return 0, false
	}
	return *s.lastRest, true
}

func (s *TripState) setHunger(v float64)  { s.hunger = clamp01(v) }
func (s *TripState) setFatigue(v float64) { s.fatigue = clamp01(v) }

func (s *TripState) markMeal() {
	t := s.now
	s.lastMeal = &t
}

func (s *TripState) markRest() {
	t := s.now
	s.lastRest = &t
}

// MarkVisited records a completed stop and accrues its cost to Attractions.
func (s *TripState) MarkVisited(name string, cost float64) {
	s.visited[name] = true
	s.BudgetSpent.Add(models.BudgetAttractions, cost)
}

// MarkSkipped excludes a stop permanently. A deferred entry is promoted to skipped.
func (s *TripState) MarkSkipped(name string) {
	s.skipped[name] = true
	delete(s.deferred, name)
}

// DeferStop excludes a stop from the current replan. Skipped stops stay skipped.
func (s *TripState) DeferStop(name string) {
	if s.skipped[name] {
		return
	}
	s.deferred[name] = true
}

// UndeferStop re-admits a deferred stop to the planning pool.
func (s *TripState) UndeferStop(name string) {
	delete(s.deferred, name)
}

func (s *TripState) IsVisited(name string) bool  { return s.visited[name] }
func (s *TripState) IsSkipped(name string) bool  { return s.skipped[name] }
func (s *TripState) IsDeferred(name string) bool { return s.deferred[name] }

// Excluded reports whether a stop is visited, skipped or deferred.
func (s *TripState) Excluded(name string) bool {
	return s.visited[name] || s.skipped[name] || s.deferred[name]
}

func (s *TripState) Visited() []string  { return sortedKeys(s.visited) }
func (s *TripState) Skipped() []string  { return sortedKeys(s.skipped) }
func (s *TripState) Deferred() []string { return sortedKeys(s.deferred) }

// AdvanceTime moves the clock forward. Negative values are rejected.
func (s *TripState) AdvanceTime(minutes float64) error {
	if minutes < 0 {
		return errs.Validation("minutes", "cannot advance time by %.0f minutes", minutes)
	}
	s.now += models.Clock(minutes)
	return nil
}

// SetTime jumps the clock to t. Moving backwards is rejected.
func (s *TripState) SetTime(t models.Clock) error {
	if t < s.now {
		return errs.Validation("current_time", "%s is before the current clock %s", t, s.now)
	}
	s.now = t
	return nil
}

// MoveTo updates the current position.
func (s *TripState) MoveTo(lat, lon float64) {
	s.CurrentLat = lat
	s.CurrentLon = lon
}

// LogDisruption appends an event to the disruption log.
func (s *TripState) LogDisruption(t EventType, p Payload) {
	s.DisruptionLog = append(s.DisruptionLog, DisruptionEntry{
		Type:    t,
		Day:     s.CurrentDay,
		Time:    s.now,
		Payload: p,
	})
}

// RemainingMinutesToday returns the minutes until the configured day end.
func (s *TripState) RemainingMinutesToday() float64 {
	return s.now.MinutesUntil(s.DayEnd)
}

// RemainingMinutesUntil returns the minutes until end, never negative.
func (s *TripState) RemainingMinutesUntil(end models.Clock) float64 {
	return s.now.MinutesUntil(end)
}

// RemainingBudget is the Attractions allocation minus what has been spent.
func (s *TripState) RemainingBudget(alloc models.BudgetAllocation) float64 {
	return alloc.Attractions - s.BudgetSpent.Attractions
}

// NextStop returns the first stop of the current plan that is not visited,
// skipped or deferred.
func (s *TripState) NextStop() (models.RoutePoint, bool) {
	if s.CurrentDayPlan == nil {
		return models.RoutePoint{}, false
	}
	for _, rp := range s.CurrentDayPlan.RoutePoints {
		if !s.Excluded(rp.Name) {
			return rp, true
		}
	}
	return models.RoutePoint{}, false
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
