package reoptimization

import (
	"fmt"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// WeatherSeverity maps a reported condition onto a [0,1] severity.
// Unknown conditions are treated as clear.
var WeatherSeverity = map[string]float64{
	"clear":        0.00,
	"mostly_clear": 0.10,
	"cloudy":       0.30,
	"overcast":     0.45,
	"drizzle":      0.55,
	"rainy":        0.65,
	"heavy_rain":   0.80,
	"thunderstorm": 0.90,
	"stormy":       1.00,
	"hail":         1.00,
	"snow":         0.70,
	"blizzard":     1.00,
	"foggy":        0.40,
	"hot":          0.35,
	"heatwave":     0.65,
}

// SeverityOf returns the severity for a condition name, or fallback for a
// condition missing from WeatherSeverity.
func SeverityOf(condition string, fallback float64) float64 {
	if s, ok := WeatherSeverity[strings.ToLower(strings.TrimSpace(condition))]; ok {
		return s
	}
	return fallback
}

// ConditionThresholds are the per-traveler tolerances; a reading strictly
// above a threshold fires an event.
type ConditionThresholds struct {
	Crowd   float64 `json:"crowd"`
	Traffic float64 `json:"traffic"`
	Weather float64 `json:"weather"`
}

func (t ConditionThresholds) Describe() string {
	return fmt.Sprintf("crowd>%.0f%%  traffic>%.0f%%  weather>%.0f%%", t.Crowd*100, t.Traffic*100, t.Weather*100)
}

// Readings are live environmental observations. Nil levels and an empty
// condition mean the source had nothing to report.
type Readings struct {
	CrowdLevel          *float64 `json:"crowd_level,omitempty"`
	TrafficLevel        *float64 `json:"traffic_level,omitempty"`
	WeatherCondition    string   `json:"weather_condition,omitempty"`
	NextStopName        string   `json:"next_stop_name,omitempty"`
	NextStopIsOutdoor   bool     `json:"next_stop_is_outdoor,omitempty"`
	TrafficDelayMinutes int      `json:"estimated_traffic_delay_minutes,omitempty"`
}

// ConditionMonitor derives thresholds from preferences and turns readings
// that exceed them into handled events.
type ConditionMonitor struct {
	strategy   config.Strategy
	soft       models.SoftConstraints
	remaining  []models.Attraction
	totalDays  int
	thresholds ConditionThresholds
	handler    *EventHandler
}

// NewConditionMonitor builds a monitor and derives its thresholds.
func NewConditionMonitor(strategy config.Strategy, soft models.SoftConstraints, remaining []models.Attraction, totalDays int, handler *EventHandler) *ConditionMonitor {
	if handler == nil {
		handler = NewEventHandler(strategy)
	}
	if totalDays < 1 {
		totalDays = 1
	}
	m := &ConditionMonitor{
		strategy:  strategy,
		soft:      soft,
		remaining: remaining,
		totalDays: totalDays,
		handler:   handler,
	}
	m.thresholds = m.derive()
	return m
}

func (m *ConditionMonitor) Thresholds() ConditionThresholds { return m.thresholds }

// UpdateRemaining refreshes the pool and the weather threshold that depends on it.
func (m *ConditionMonitor) UpdateRemaining(remaining []models.Attraction) {
	m.remaining = remaining
	m.thresholds = m.derive()
}

// UpdateSoft re-derives every threshold after a preference change.
func (m *ConditionMonitor) UpdateSoft(soft models.SoftConstraints) {
	m.soft = soft
	m.thresholds = m.derive()
}

func (m *ConditionMonitor) UpdateTotalDays(days int) {
	if days >= 1 {
		m.totalDays = days
	}
}

// Check compares readings against the thresholds and runs each exceeded
// one through the event handler, crowd first, then traffic, then weather.
func (m *ConditionMonitor) Check(state *TripState, r Readings) []ReplanDecision {
	var out []ReplanDecision
	remaining := state.RemainingMinutesToday()
	lat, lon := state.CurrentLat, state.CurrentLon

	if r.CrowdLevel != nil && *r.CrowdLevel > m.thresholds.Crowd {
		minDuration := m.strategy.Crowd.DefaultMinVisit
		importance := ""
		if a, ok := m.find(r.NextStopName); ok {
			if a.MinVisitDurationMinutes > 0 {
				minDuration = a.MinVisitDurationMinutes
			}
			importance = a.HistoricalImportance
		}
		out = append(out, m.handler.Handle(EventCrowdHigh, Payload{
			StopName:         r.NextStopName,
			CrowdLevel:       *r.CrowdLevel,
			Threshold:        m.thresholds.Crowd,
			TotalDays:        m.totalDays,
			RemainingMinutes: &remaining,
			MinVisitDuration: minDuration,
			PlaceImportance:  importance,
		}, state))
	}

	if r.TrafficLevel != nil && *r.TrafficLevel > m.thresholds.Traffic {
		rem := state.RemainingMinutesToday()
		out = append(out, m.handler.Handle(EventTrafficHigh, Payload{
			StopName:         r.NextStopName,
			TrafficLevel:     *r.TrafficLevel,
			Threshold:        m.thresholds.Traffic,
			DelayMinutes:     r.TrafficDelayMinutes,
			CurrentLat:       &lat,
			CurrentLon:       &lon,
			RemainingMinutes: &rem,
		}, state))
	}

	if r.WeatherCondition != "" {
		severity := SeverityOf(r.WeatherCondition, m.strategy.Thresholds.Fallback)
		if severity > m.thresholds.Weather {
			rem := state.RemainingMinutesToday()
			outdoor := r.NextStopIsOutdoor
			out = append(out, m.handler.Handle(EventWeatherBad, Payload{
				Severity:         severity,
				Threshold:        m.thresholds.Weather,
				Condition:        r.WeatherCondition,
				AffectsOutdoor:   &outdoor,
				CurrentLat:       &lat,
				CurrentLon:       &lon,
				RemainingMinutes: &rem,
			}, state))
		}
	}
	return out
}

func (m *ConditionMonitor) find(name string) (models.Attraction, bool) {
	for _, a := range m.remaining {
		if a.Name == name {
			return a, true
		}
	}
	return models.Attraction{}, false
}

func (m *ConditionMonitor) derive() ConditionThresholds {
	t := m.strategy.Thresholds

	crowd := t.CrowdTolerant
	if m.soft.AvoidCrowds {
		crowd = t.CrowdAverse
	}

	var traffic float64
	switch m.soft.Pace() {
	case models.PaceRelaxed:
		traffic = t.TrafficRelaxed
	case models.PacePacked:
		traffic = t.TrafficPacked
	default:
		traffic = t.TrafficModerate
	}
	if m.soft.HeavyTravelPenalty {
		traffic *= t.HeavyTravelScale
	}

	outdoor := 0
	for _, a := range m.remaining {
		if a.IsOutdoor {
			outdoor++
		}
	}
	total := len(m.remaining)
	if total == 0 {
		total = 1
	}
	weather := t.WeatherIndoor
	if float64(outdoor)/float64(total) > 0.5 {
		weather = t.WeatherOutdoor
	}
	if m.soft.PreferredTimeOfDay == "morning" {
		weather *= t.MorningScale
	}

	return ConditionThresholds{
		Crowd:   m.clamp(crowd),
		Traffic: m.clamp(traffic),
		Weather: m.clamp(weather),
	}
}

func (m *ConditionMonitor) clamp(v float64) float64 {
	lo, hi := m.strategy.Thresholds.Min, m.strategy.Thresholds.Max
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
