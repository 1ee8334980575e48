package models

import "time"

// Pace preferences
const (
	PaceRelaxed  = "relaxed"
	PaceModerate = "moderate"
	PacePacked   = "packed"
)

// HardConstraints are non-negotiable trip requirements. Any violation gates S to 0.
type HardConstraints struct {
	DepartureCity   string    `json:"departure_city,omitempty" yaml:"departure_city"`
	DestinationCity string    `json:"destination_city" yaml:"destination_city"`
	DepartureDate   time.Time `json:"departure_date,omitempty" yaml:"-"`
	ReturnDate      time.Time `json:"return_date,omitempty" yaml:"-"`
	NumAdults       int       `json:"num_adults" yaml:"num_adults"`
	NumChildren     int       `json:"num_children,omitempty" yaml:"num_children"`

	RequiresWheelchair bool  `json:"requires_wheelchair,omitempty" yaml:"requires_wheelchair"`
	GroupSize          int   `json:"group_size,omitempty" yaml:"group_size"`
	TravelerAges       []int `json:"traveler_ages,omitempty" yaml:"traveler_ages"`
	PermitAvailable    *bool `json:"permit_available,omitempty" yaml:"permit_available"`
}

// TotalTravelers is adults plus children.
func (h HardConstraints) TotalTravelers() int {
	return h.NumAdults + h.NumChildren
}

// EffectiveGroupSize prefers the explicit group size, then the traveler count, then 1.
func (h HardConstraints) EffectiveGroupSize() int {
	if h.GroupSize > 0 {
		return h.GroupSize
	}
	if n := h.TotalTravelers(); n > 0 {
		return n
	}
	return 1
}

// SoftConstraints are preferences that shape SC but never gate a POI.
type SoftConstraints struct {
	Interests            []string `json:"interests,omitempty" yaml:"interests"`
	TravelPreferences    []string `json:"travel_preferences,omitempty" yaml:"travel_preferences"`
	SpendingPower        string   `json:"spending_power,omitempty" yaml:"spending_power"`
	DietaryPreferences   []string `json:"dietary_preferences,omitempty" yaml:"dietary_preferences"`
	PreferredTimeOfDay   string   `json:"preferred_time_of_day,omitempty" yaml:"preferred_time_of_day"` // morning | afternoon | evening
	AvoidCrowds          bool     `json:"avoid_crowds,omitempty" yaml:"avoid_crowds"`
	PacePreference       string   `json:"pace_preference,omitempty" yaml:"pace_preference"`
	PreferredTransport   []string `json:"preferred_transport_mode,omitempty" yaml:"preferred_transport_mode"`
	RestIntervalMinutes  int      `json:"rest_interval_minutes,omitempty" yaml:"rest_interval_minutes"`
	HeavyTravelPenalty   bool     `json:"heavy_travel_penalty" yaml:"heavy_travel_penalty"`
	AvoidConsecutiveSame bool     `json:"avoid_consecutive_same_category,omitempty" yaml:"avoid_consecutive_same_category"`
	NoveltySpread        bool     `json:"novelty_spread,omitempty" yaml:"novelty_spread"`
}

// Pace returns the pace preference, defaulting to moderate.
func (s SoftConstraints) Pace() string {
	if s.PacePreference == "" {
		return PaceModerate
	}
	return s.PacePreference
}

// CommonsenseConstraints are free-text travel rules such as "no street food".
type CommonsenseConstraints struct {
	Rules []string `json:"rules,omitempty" yaml:"rules"`
}

// ConstraintBundle aggregates the three constraint types.
type ConstraintBundle struct {
	Hard        HardConstraints        `json:"hard" yaml:"hard"`
	Soft        SoftConstraints        `json:"soft" yaml:"soft"`
	Commonsense CommonsenseConstraints `json:"commonsense" yaml:"commonsense"`
}
