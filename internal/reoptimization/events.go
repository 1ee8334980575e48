package reoptimization

import (
	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// EventType identifies a disruption or user action
type EventType string

const (
	// user reported
	EventSkip             EventType = "user_skip"
	EventDelay            EventType = "user_delay"
	EventPreferenceChange EventType = "user_pref"
	EventAddStop          EventType = "user_add"
	EventReport           EventType = "user_report"

	// environmental, fired by ConditionMonitor
	EventCrowdHigh   EventType = "env_crowd"
	EventTrafficHigh EventType = "env_traffic"
	EventWeatherBad  EventType = "env_weather"

	EventVenueClosed EventType = "venue_closed"

	// user edits
	EventDislikeNext EventType = "user_dislike_next"
	EventReplacePOI  EventType = "user_replace_poi"
	EventSkipCurrent EventType = "user_skip_current"
	EventReorder     EventType = "user_reorder"
	EventManualReopt EventType = "user_manual_reopt"

	// traveler state
	EventHunger  EventType = "hunger_disruption"
	EventFatigue EventType = "fatigue_disruption"
)

var allEvents = []EventType{
	EventSkip, EventDelay, EventPreferenceChange, EventAddStop, EventReport,
	EventCrowdHigh, EventTrafficHigh, EventWeatherBad, EventVenueClosed,
	EventDislikeNext, EventReplacePOI, EventSkipCurrent, EventReorder,
	EventManualReopt, EventHunger, EventFatigue,
}

// ParseEventType validates a wire event name.
func ParseEventType(s string) (EventType, error) {
	for _, e := range allEvents {
		if string(e) == s {
			return e, nil
		}
	}
	return "", errs.Validation("event_type", "unknown event %q", s)
}

// Gated reports whether the event must pass the approval gate before it
// may touch the trip state.
func (e EventType) Gated() bool {
	switch e {
	case EventSkip, EventSkipCurrent, EventDislikeNext, EventReplacePOI,
		EventAddStop, EventPreferenceChange, EventReorder, EventManualReopt:
		return true
	}
	return false
}

// Urgency of a replan
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// CrowdAction is the crowd rescheduling tier chosen by the handler
type CrowdAction string

const (
	CrowdSameDay    CrowdAction = "reschedule_same_day"
	CrowdFutureDay  CrowdAction = "reschedule_future_day"
	CrowdInformUser CrowdAction = "inform_user"
)

// Advisory routing tags carried in Metadata
const (
	TrafficAssess   = "assess_and_replan"
	WeatherClassify = "classify_and_replan"

	EditDislikeNext = "dislike_next"
	EditReplacePOI  = "replace_poi"
	EditSkipCurrent = "skip_current"

	HFHunger  = "hunger"
	HFFatigue = "fatigue"
)

// Payload carries the event-specific inputs. Zero values mean "not given";
// pointer fields distinguish an explicit zero from an absent value.
type Payload struct {
	StopName string `json:"stop_name,omitempty"`

	DelayMinutes int           `json:"delay_minutes,omitempty"`
	CurrentTime  *models.Clock `json:"current_time,omitempty"`
	CurrentLat   *float64      `json:"current_lat,omitempty"`
	CurrentLon   *float64      `json:"current_lon,omitempty"`

	RemainingMinutes *float64 `json:"remaining_minutes,omitempty"`
	BudgetRemaining  *float64 `json:"budget_remaining,omitempty"`

	// preference change
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`

	// add stop and replace
	Attraction *models.Attraction `json:"attraction,omitempty"`

	Message        string   `json:"message,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	PreferredOrder []string `json:"preferred_order,omitempty"`

	// environmental readings
	CrowdLevel       float64 `json:"crowd_level,omitempty"`
	TrafficLevel     float64 `json:"traffic_level,omitempty"`
	Severity         float64 `json:"severity,omitempty"`
	Threshold        float64 `json:"threshold,omitempty"`
	Condition        string  `json:"condition,omitempty"`
	AffectsOutdoor   *bool   `json:"affects_outdoor,omitempty"`
	TotalDays        int     `json:"total_days,omitempty"`
	MinVisitDuration int     `json:"min_visit_duration,omitempty"`
	PlaceImportance  string  `json:"place_importance,omitempty"`
}

// Metadata is the routing context attached to a ReplanDecision
type Metadata struct {
	CrowdAction    CrowdAction `json:"crowd_action,omitempty"`
	TrafficAction  string      `json:"traffic_action,omitempty"`
	WeatherAction  string      `json:"weather_action,omitempty"`
	UserEditAction string      `json:"user_edit_action,omitempty"`
	HFAction       string      `json:"hf_action,omitempty"`

	StopName        string `json:"stop_name,omitempty"`
	DeferredStop    string `json:"deferred_stop,omitempty"`
	TargetDay       int    `json:"target_day,omitempty"`
	PlaceImportance string `json:"place_importance,omitempty"`

	CrowdLevel   float64 `json:"crowd_level,omitempty"`
	TrafficLevel float64 `json:"traffic_level,omitempty"`
	Severity     float64 `json:"severity,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	DelayMinutes int     `json:"delay_minutes,omitempty"`
	DelayFactor  float64 `json:"delay_factor,omitempty"`

	Condition           string `json:"condition,omitempty"`
	AffectsOutdoor      bool   `json:"affects_outdoor,omitempty"`
	DeprioritizeOutdoor bool   `json:"deprioritize_outdoor,omitempty"`

	CurrentLat       float64      `json:"current_lat,omitempty"`
	CurrentLon       float64      `json:"current_lon,omitempty"`
	CurrentTime      models.Clock `json:"current_time,omitempty"`
	RemainingMinutes float64      `json:"remaining_minutes,omitempty"`
	BudgetRemaining  *float64     `json:"budget_remaining,omitempty"`

	Replacement     *models.Attraction `json:"replacement,omitempty"`
	NewAttraction   *models.Attraction `json:"new_attraction,omitempty"`
	PreferenceField string             `json:"preference_field,omitempty"`
	PreferenceValue interface{}        `json:"preference_value,omitempty"`
	PreferredOrder  []string           `json:"reorder_preferred,omitempty"`

	HungerLevel  float64 `json:"hunger_level,omitempty"`
	FatigueLevel float64 `json:"fatigue_level,omitempty"`
}

// ReplanDecision tells the session whether and how urgently to replan
type ReplanDecision struct {
	Event        EventType `json:"event"`
	ShouldReplan bool      `json:"should_replan"`
	Urgency      Urgency   `json:"urgency"`
	Reason       string    `json:"reason"`
	Metadata     Metadata  `json:"metadata"`
}
