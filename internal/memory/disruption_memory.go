// Package memory keeps the in-session record of disruptions and how the
// traveler responded to them.
package memory

import (
	"encoding/json"
	"fmt"
)

// WeatherRecord is one weather disruption and its outcome
type WeatherRecord struct {
	Condition     string   `json:"condition"`
	Severity      float64  `json:"severity"`
	Threshold     float64  `json:"threshold"`
	BlockedCount  int      `json:"blocked_count"`
	DeferredCount int      `json:"deferred_count"`
	Accepted      bool     `json:"accepted"`
	Alternatives  []string `json:"alternatives"`
}

// TrafficRecord is one traffic disruption and its outcome
type TrafficRecord struct {
	TrafficLevel float64  `json:"traffic_level"`
	Threshold    float64  `json:"threshold"`
	DelayMinutes int      `json:"delay_minutes"`
	DelayFactor  float64  `json:"delay_factor"`
	Deferred     []string `json:"deferred"`
	Replaced     []string `json:"replaced"`
	Accepted     bool     `json:"accepted"`
}

// ReplacementRecord is one stop replaced by another
type ReplacementRecord struct {
	Original    string  `json:"original"`
	Replacement string  `json:"replacement"`
	Reason      string  `json:"reason"` // weather | traffic | crowd | user_skip | <type>:<response>
	SOrig       float64 `json:"S_orig"`
	SRep        float64 `json:"S_rep"`
}

// HungerRecord is one hunger disruption and its outcome
type HungerRecord struct {
	TriggerTime    string   `json:"trigger_time"`
	HungerLevel    float64  `json:"hunger_level"`
	ActionTaken    string   `json:"action_taken"` // meal_inserted | advisory_only
	RestaurantName *string  `json:"restaurant_name"`
	SInserted      *float64 `json:"S_pti_inserted"`
	UserResponse   string   `json:"user_response"`
}

// FatigueRecord is one fatigue disruption and its outcome
type FatigueRecord struct {
	TriggerTime   string   `json:"trigger_time"`
	FatigueLevel  float64  `json:"fatigue_level"`
	ActionTaken   string   `json:"action_taken"` // rest_inserted | replan_triggered
	RestDuration  *int     `json:"rest_duration"`
	StopsDeferred []string `json:"stops_deferred"`
	UserResponse  string   `json:"user_response"`
}

// Sink accepts structured disruption outcomes
type Sink interface {
	RecordWeather(r WeatherRecord)
	RecordTraffic(r TrafficRecord)
	RecordReplacement(r ReplacementRecord)
	RecordHunger(r HungerRecord)
	RecordFatigue(r FatigueRecord)
	RecordGeneric(disruptionType string, severity float64, actionTaken, userResponse string, impacted []string)
}

// DisruptionMemory stores every disruption outcome of one session.
// It is not safe for concurrent use; the owning session serializes access.
type DisruptionMemory struct {
	Weather      []WeatherRecord     `json:"weather"`
	Traffic      []TrafficRecord     `json:"traffic"`
	Replacements []ReplacementRecord `json:"replacements"`
	Hunger       []HungerRecord      `json:"hunger"`
	Fatigue      []FatigueRecord     `json:"fatigue"`
}

var _ Sink = (*DisruptionMemory)(nil)

// New returns an empty memory.
func New() *DisruptionMemory {
	return &DisruptionMemory{
		Weather:      []WeatherRecord{},
		Traffic:      []TrafficRecord{},
		Replacements: []ReplacementRecord{},
		Hunger:       []HungerRecord{},
		Fatigue:      []FatigueRecord{},
	}
}

func (m *DisruptionMemory) RecordWeather(r WeatherRecord) {
	r.Alternatives = nonNil(r.Alternatives)
	m.Weather = append(m.Weather, r)
}

func (m *DisruptionMemory) RecordTraffic(r TrafficRecord) {
	r.Deferred = nonNil(r.Deferred)
	r.Replaced = nonNil(r.Replaced)
	m.Traffic = append(m.Traffic, r)
}

func (m *DisruptionMemory) RecordReplacement(r ReplacementRecord) {
	m.Replacements = append(m.Replacements, r)
}

func (m *DisruptionMemory) RecordHunger(r HungerRecord) {
	if r.UserResponse == "" {
		r.UserResponse = "accepted"
	}
	m.Hunger = append(m.Hunger, r)
}

func (m *DisruptionMemory) RecordFatigue(r FatigueRecord) {
	r.StopsDeferred = nonNil(r.StopsDeferred)
	if r.UserResponse == "" {
		r.UserResponse = "accepted"
	}
	m.Fatigue = append(m.Fatigue, r)
}

// RecordGeneric stores an approval-gate outcome for crowd, weather or traffic
// disruptions. Each impacted stop becomes a replacement entry with an empty
// replacement and reason "<type>:<response>".
func (m *DisruptionMemory) RecordGeneric(disruptionType string, severity float64, actionTaken, userResponse string, impacted []string) {
	for _, stop := range impacted {
		m.Replacements = append(m.Replacements, ReplacementRecord{
			Original: stop,
			Reason:   disruptionType + ":" + userResponse,
			SOrig:    severity,
		})
	}
}

// WeatherTolerance is the lowest severity the traveler accepted a replan for.
func (m *DisruptionMemory) WeatherTolerance() (float64, bool) {
	found := false
	lowest := 0.0
	for _, w := range m.Weather {
		if !w.Accepted {
			continue
		}
		if !found || w.Severity < lowest {
			lowest = w.Severity
			found = true
		}
	}
	return lowest, found
}

// DelayTolerance is the mean delay across accepted traffic replans.
func (m *DisruptionMemory) DelayTolerance() (float64, bool) {
	sum, n := 0, 0
	for _, t := range m.Traffic {
		if t.Accepted {
			sum += t.DelayMinutes
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// CommonReplacements maps each original stop to what replaced it, in order.
func (m *DisruptionMemory) CommonReplacements() map[string][]string {
	out := make(map[string][]string)
	for _, r := range m.Replacements {
		out[r.Original] = append(out[r.Original], r.Replacement)
	}
	return out
}

// ReplacementSummary is the compact form of a replacement in Summary
type ReplacementSummary struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason"`
}

// Summary is the structured digest used by the session summary
type Summary struct {
	WeatherEvents      int                  `json:"weather_events"`
	WeatherTolerance   *float64             `json:"weather_tolerance"`
	TrafficEvents      int                  `json:"traffic_events"`
	DelayToleranceMin  *float64             `json:"delay_tolerance_min"`
	HungerEvents       int                  `json:"hunger_events"`
	FatigueEvents      int                  `json:"fatigue_events"`
	Replacements       []ReplacementSummary `json:"replacements"`
	CommonReplacements map[string][]string  `json:"common_replacements"`
}

// Summarize returns counts, tolerances and the replacement history.
func (m *DisruptionMemory) Summarize() Summary {
	s := Summary{
		WeatherEvents:      len(m.Weather),
		TrafficEvents:      len(m.Traffic),
		HungerEvents:       len(m.Hunger),
		FatigueEvents:      len(m.Fatigue),
		Replacements:       make([]ReplacementSummary, 0, len(m.Replacements)),
		CommonReplacements: m.CommonReplacements(),
	}
	if v, ok := m.WeatherTolerance(); ok {
		s.WeatherTolerance = &v
	}
	if v, ok := m.DelayTolerance(); ok {
		s.DelayToleranceMin = &v
	}
	for _, r := range m.Replacements {
		s.Replacements = append(s.Replacements, ReplacementSummary{
			Original:    r.Original,
			Replacement: r.Replacement,
			Reason:      r.Reason,
		})
	}
	return s
}

// Export serializes every record to JSON.
func (m *DisruptionMemory) Export() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export disruption memory: %w", err)
	}
	return data, nil
}

// Import rebuilds a memory from Export output.
func Import(data []byte) (*DisruptionMemory, error) {
	var raw DisruptionMemory
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to import disruption memory: %w", err)
	}
	m := New()
	for _, r := range raw.Weather {
		m.RecordWeather(r)
	}
	for _, r := range raw.Traffic {
		m.RecordTraffic(r)
	}
	for _, r := range raw.Replacements {
		m.RecordReplacement(r)
	}
	for _, r := range raw.Hunger {
		m.RecordHunger(r)
	}
	for _, r := range raw.Fatigue {
		m.RecordFatigue(r)
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
