package reoptimization

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
)

// DisruptionKind classifies a PendingDecision
type DisruptionKind string

const (
	KindCrowd      DisruptionKind = "CROWD"
	KindWeather    DisruptionKind = "WEATHER"
	KindTraffic    DisruptionKind = "TRAFFIC"
	KindUserAction DisruptionKind = "USER_ACTION"
)

// ActionType names one proposed remedy inside a PendingDecision
type ActionType string

const (
	ActionApplyChange         ActionType = "APPLY_CHANGE"
	ActionSuggestAlternatives ActionType = "SUGGEST_ALTERNATIVES"
	ActionDeferChange         ActionType = "DEFER_CHANGE"
	ActionKeepAsIs            ActionType = "KEEP_AS_IS"
	ActionDefer               ActionType = "DEFER"
	ActionReplace             ActionType = "REPLACE"
	ActionShiftTime           ActionType = "SHIFT_TIME"
)

// Resolution is the traveler's answer to a PendingDecision
type Resolution string

const (
	ResolveApprove Resolution = "APPROVE"
	ResolveReject  Resolution = "REJECT"
	ResolveModify  Resolution = "MODIFY"
)

// ParseResolution accepts any letter case.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToUpper(strings.TrimSpace(s))); r {
	case ResolveApprove, ResolveReject, ResolveModify:
		return r, nil
	}
	return "", errs.Validation("decision", "unknown decision %q, use APPROVE, REJECT or MODIFY", s)
}

// ActionDetails carries the optional parameters of a ProposedAction
type ActionDetails struct {
	Op           string   `json:"op,omitempty"`
	Timing       string   `json:"timing,omitempty"`
	TargetDay    int      `json:"target_day,omitempty"`
	HC           *int     `json:"hc,omitempty"`
	DeltaS       *float64 `json:"delta_s,omitempty"`
	Replacement  string   `json:"replacement,omitempty"`
	Field        string   `json:"field,omitempty"`
	Value        string   `json:"value,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	DelayMinutes int      `json:"delay_minutes,omitempty"`
	VisitMinutes int      `json:"visit_minutes,omitempty"`
	Cost         float64  `json:"cost,omitempty"`
}

// ProposedAction is one candidate remedy
type ProposedAction struct {
	Type       ActionType    `json:"action_type"`
	TargetStop string        `json:"target_stop"`
	Details    ActionDetails `json:"details"`
}

// ImpactSummary describes what a user action would change
type ImpactSummary struct {
	FeasibilityChange  int    `json:"feasibility_change"`
	SatisfactionChange string `json:"satisfaction_change"`
	TimeChange         string `json:"time_change"`
	CostChange         string `json:"cost_change"`
}

// PendingDecision is a frozen, unapplied proposal. Nothing it describes has
// touched the trip state yet.
type PendingDecision struct {
	ID                    string           `json:"id"`
	Kind                  DisruptionKind   `json:"disruption_type"`
	ImpactedPOIs          []string         `json:"impacted_pois"`
	Reason                string           `json:"reason"`
	MissedValue           float64          `json:"missed_value"`
	ProposedActions       []ProposedAction `json:"proposed_actions"`
	SuggestedAlternatives []string         `json:"suggested_alternatives"`
	Severity              float64          `json:"severity"`
	Impact                *ImpactSummary   `json:"impact_summary,omitempty"`
	UserEvent             EventType        `json:"user_event,omitempty"`

	userPayload Payload
	readings    *Readings
}

func newPendingDecision(kind DisruptionKind) *PendingDecision {
	return &PendingDecision{
		ID:                    uuid.NewString(),
		Kind:                  kind,
		ImpactedPOIs:          []string{},
		ProposedActions:       []ProposedAction{},
		SuggestedAlternatives: []string{},
	}
}

// Status is always AWAITING_DECISION while the decision exists.
func (d *PendingDecision) Status() string { return "AWAITING_DECISION" }

// Action returns the proposed action at index.
func (d *PendingDecision) Action(index int) (ProposedAction, error) {
	if index < 0 || index >= len(d.ProposedActions) {
		return ProposedAction{}, errs.Validation("action_index",
			"index %d out of range (0-%d)", index, len(d.ProposedActions)-1)
	}
	return d.ProposedActions[index], nil
}

func (d *PendingDecision) impacts(name string) bool {
	for _, n := range d.ImpactedPOIs {
		if n == name {
			return true
		}
	}
	return false
}

func (d *PendingDecision) addImpacted(name string) bool {
	if name == "" || d.impacts(name) {
		return false
	}
	d.ImpactedPOIs = append(d.ImpactedPOIs, name)
	return true
}
