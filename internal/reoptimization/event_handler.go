package reoptimization

import (
	"fmt"

	"github.com/jengzang/itinerary-backend-go/internal/config"
)

// EventHandler applies an event to TripState and decides whether to replan
type EventHandler struct {
	strategy   config.Strategy
	classifier Classifier
}

// NewEventHandler creates a handler bound to a strategy.
func NewEventHandler(strategy config.Strategy) *EventHandler {
	return &EventHandler{strategy: strategy, classifier: DefaultClassifier()}
}

// WithClassifier swaps the free-text classifier used for reports.
func (h *EventHandler) WithClassifier(c Classifier) *EventHandler {
	if c != nil {
		h.classifier = c
	}
	return h
}

// Handle logs the event on the state and dispatches it.
// The state is mutated in place where the event implies it.
func (h *EventHandler) Handle(event EventType, p Payload, state *TripState) ReplanDecision {
	state.LogDisruption(event, p)

	var d ReplanDecision
	switch event {
	case EventSkip:
		d = h.skip(state, p)
	case EventDelay:
		d = h.delay(state, p)
	case EventPreferenceChange:
		d = h.preferenceChange(p)
	case EventAddStop:
		d = h.addStop(p)
	case EventReport:
		d = h.report(p)
	case EventCrowdHigh:
		d = h.crowd(state, p)
	case EventTrafficHigh:
		d = h.traffic(state, p)
	case EventWeatherBad:
		d = h.weather(state, p)
	case EventVenueClosed:
		d = h.venueClosed(state, p)
	case EventDislikeNext:
		d = h.dislikeNext(state, p)
	case EventReplacePOI:
		d = h.replacePOI(state, p)
	case EventSkipCurrent:
		d = h.skipCurrent(state, p)
	case EventReorder:
		state.ReplanPending = true
		d = ReplanDecision{
			ShouldReplan: true,
			Urgency:      UrgencyNormal,
			Reason:       fmt.Sprintf("User requested reorder of remaining stops: %v", p.PreferredOrder),
			Metadata:     Metadata{PreferredOrder: p.PreferredOrder},
		}
	case EventManualReopt:
		state.ReplanPending = true
		reason := p.Reason
		if reason == "" {
			reason = "Manual re-optimization requested by user"
		}
		d = ReplanDecision{ShouldReplan: true, Urgency: UrgencyNormal, Reason: reason}
	case EventHunger:
		d = ReplanDecision{
			ShouldReplan: true,
			Urgency:      UrgencyNormal,
			Reason:       fmt.Sprintf("Hunger level %.0f%% exceeded threshold, inserting meal stop", state.Hunger()*100),
			Metadata:     Metadata{HFAction: HFHunger, HungerLevel: state.Hunger()},
		}
	case EventFatigue:
		d = ReplanDecision{
			ShouldReplan: true,
			Urgency:      UrgencyNormal,
			Reason:       fmt.Sprintf("Fatigue level %.0f%% exceeded threshold, inserting rest break", state.Fatigue()*100),
			Metadata:     Metadata{HFAction: HFFatigue, FatigueLevel: state.Fatigue()},
		}
	default:
		d = ReplanDecision{Urgency: UrgencyNormal, Reason: fmt.Sprintf("Unknown event: %s", event)}
	}
	d.Event = event
	return d
}

func (h *EventHandler) skip(state *TripState, p Payload) ReplanDecision {
	if p.StopName != "" {
		state.MarkSkipped(p.StopName)
	}
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      UrgencyNormal,
		Reason:       fmt.Sprintf("User skipped '%s', replanning remaining stops.", p.StopName),
	}
}

func (h *EventHandler) delay(state *TripState, p Payload) ReplanDecision {
	rules := h.strategy.Delay
	moved := false
	if p.CurrentTime != nil {
		moved = state.SetTime(*p.CurrentTime) == nil
	}
	if !moved && p.DelayMinutes > 0 {
		// DelayMinutes is positive so the advance cannot fail
		_ = state.AdvanceTime(float64(p.DelayMinutes))
	}

	remaining := state.RemainingMinutesToday()
	urgency := UrgencyNormal
	if remaining < float64(rules.HighUrgencyRemains) {
		urgency = UrgencyHigh
	}
	return ReplanDecision{
		ShouldReplan: p.DelayMinutes >= rules.ReplanMinutes || remaining < float64(rules.ReplanRemaining),
		Urgency:      urgency,
		Reason:       fmt.Sprintf("User delayed %d min. Remaining day: %.0f min.", p.DelayMinutes, remaining),
	}
}

func (h *EventHandler) preferenceChange(p Payload) ReplanDecision {
	field := p.Field
	if field == "" {
		field = "unknown"
	}
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      UrgencyNormal,
		Reason:       fmt.Sprintf("Preference '%s' changed to '%v', rescoring needed.", field, p.Value),
		Metadata:     Metadata{PreferenceField: p.Field, PreferenceValue: p.Value},
	}
}

func (h *EventHandler) addStop(p Payload) ReplanDecision {
	name := "<unknown>"
	if p.Attraction != nil {
		name = p.Attraction.Name
	}
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      UrgencyLow,
		Reason:       fmt.Sprintf("User added '%s' to remaining stops.", name),
		Metadata:     Metadata{NewAttraction: p.Attraction},
	}
}

func (h *EventHandler) report(p Payload) ReplanDecision {
	urgency := UrgencyNormal
	if h.classifier.Classify(p.Message).Urgent {
		urgency = UrgencyHigh
	}
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      urgency,
		Reason:       fmt.Sprintf("User reported disruption: '%s'", p.Message),
	}
}

// crowd tries, in order: later today, a future day, then asks the traveler.
func (h *EventHandler) crowd(state *TripState, p Payload) ReplanDecision {
	rules := h.strategy.Crowd
	stop := p.StopName
	threshold := p.Threshold
	if threshold == 0 {
		threshold = h.strategy.Thresholds.Fallback
	}
	totalDays := p.TotalDays
	if totalDays == 0 {
		totalDays = state.CurrentDay
	}
	remaining := state.RemainingMinutesToday()
	if p.RemainingMinutes != nil {
		remaining = *p.RemainingMinutes
	}
	minDuration := p.MinVisitDuration
	if minDuration == 0 {
		minDuration = rules.DefaultMinVisit
	}

	timeForLater := remaining - float64(minDuration) - float64(rules.BufferMinutes)
	if stop != "" && timeForLater >= float64(minDuration) {
		state.DeferStop(stop)
		return ReplanDecision{
			ShouldReplan: true,
			Urgency:      UrgencyLow,
			Reason: fmt.Sprintf("'%s' is very crowded right now (%.0f%% > %.0f%%). Rescheduling to a quieter time later today.",
				stop, p.CrowdLevel*100, threshold*100),
			Metadata: Metadata{
				CrowdAction:  CrowdSameDay,
				DeferredStop: stop,
				CrowdLevel:   p.CrowdLevel,
				Threshold:    threshold,
			},
		}
	}

	if stop != "" && state.CurrentDay < totalDays {
		target := state.CurrentDay + 1
		state.DeferStop(stop)
		return ReplanDecision{
			ShouldReplan: true,
			Urgency:      UrgencyNormal,
			Reason: fmt.Sprintf("'%s' is very crowded (%.0f%%) and today is too full to return. Rescheduled to Day %d.",
				stop, p.CrowdLevel*100, target),
			Metadata: Metadata{
				CrowdAction:  CrowdFutureDay,
				DeferredStop: stop,
				TargetDay:    target,
				CrowdLevel:   p.CrowdLevel,
				Threshold:    threshold,
			},
		}
	}

	importance := p.PlaceImportance
	if importance == "" {
		importance = fmt.Sprintf("'%s' is a notable attraction on your itinerary.", stop)
	}
	return ReplanDecision{
		ShouldReplan: false,
		Urgency:      UrgencyHigh,
		Reason: fmt.Sprintf("'%s' is very crowded (%.0f%%) and cannot be rescheduled (last day or no capacity).",
			stop, p.CrowdLevel*100),
		Metadata: Metadata{
			CrowdAction:     CrowdInformUser,
			DeferredStop:    stop,
			PlaceImportance: importance,
			CrowdLevel:      p.CrowdLevel,
			Threshold:       threshold,
		},
	}
}

func (h *EventHandler) traffic(state *TripState, p Payload) ReplanDecision {
	rules := h.strategy.Traffic
	threshold := p.Threshold
	if threshold == 0 {
		threshold = h.strategy.Thresholds.Fallback
	}
	factor := 1 + p.TrafficLevel
	replan := p.DelayMinutes >= rules.ReplanDelayMinutes
	if replan {
		_ = state.AdvanceTime(float64(p.DelayMinutes))
	}
	urgency := UrgencyNormal
	if p.DelayMinutes >= rules.HighUrgencyDelay {
		urgency = UrgencyHigh
	}

	md := h.positionContext(state, p)
	md.TrafficAction = TrafficAssess
	md.StopName = p.StopName
	md.TrafficLevel = p.TrafficLevel
	md.Threshold = threshold
	md.DelayMinutes = p.DelayMinutes
	md.DelayFactor = factor
	return ReplanDecision{
		ShouldReplan: replan,
		Urgency:      urgency,
		Reason: fmt.Sprintf("Traffic to '%s' at %.0f%% (threshold %.0f%%), +%d min delay. Delay factor x%.1f.",
			p.StopName, p.TrafficLevel*100, threshold*100, p.DelayMinutes, factor),
		Metadata: md,
	}
}

func (h *EventHandler) weather(state *TripState, p Payload) ReplanDecision {
	threshold := p.Threshold
	if threshold == 0 {
		threshold = h.strategy.Thresholds.Fallback
	}
	condition := p.Condition
	if condition == "" {
		condition = "bad weather"
	}
	affects := true
	if p.AffectsOutdoor != nil {
		affects = *p.AffectsOutdoor
	}
	urgency := UrgencyNormal
	if p.Severity > h.strategy.Weather.HighUrgencySeverity {
		urgency = UrgencyHigh
	}
	tail := "Classifying outdoor stops and rerouting to indoor alternatives."
	if !affects {
		tail = "No outdoor stops affected, no replan needed."
	}

	md := h.positionContext(state, p)
	md.WeatherAction = WeatherClassify
	md.Condition = condition
	md.Severity = p.Severity
	md.Threshold = threshold
	md.AffectsOutdoor = affects
	md.DeprioritizeOutdoor = affects
	return ReplanDecision{
		ShouldReplan: affects,
		Urgency:      urgency,
		Reason: fmt.Sprintf("Weather: '%s' (severity %.0f%% > %.0f%%). %s",
			condition, p.Severity*100, threshold*100, tail),
		Metadata: md,
	}
}

func (h *EventHandler) venueClosed(state *TripState, p Payload) ReplanDecision {
	if p.StopName != "" {
		state.MarkSkipped(p.StopName)
	}
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      UrgencyHigh,
		Reason:       fmt.Sprintf("'%s' is unexpectedly closed, rerouting immediately.", p.StopName),
	}
}

// dislikeNext never mutates the state; the session only computes alternatives.
func (h *EventHandler) dislikeNext(state *TripState, p Payload) ReplanDecision {
	md := h.positionContext(state, p)
	md.UserEditAction = EditDislikeNext
	return ReplanDecision{
		ShouldReplan: false,
		Urgency:      UrgencyLow,
		Reason:       "User dislikes next stop, computing alternatives.",
		Metadata:     md,
	}
}

func (h *EventHandler) replacePOI(state *TripState, p Payload) ReplanDecision {
	name := "<unknown>"
	if p.Attraction != nil {
		name = p.Attraction.Name
	}
	md := h.positionContext(state, p)
	md.UserEditAction = EditReplacePOI
	md.Replacement = p.Attraction
	md.BudgetRemaining = p.BudgetRemaining
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      UrgencyNormal,
		Reason:       fmt.Sprintf("User replacing next stop with '%s'.", name),
		Metadata:     md,
	}
}

func (h *EventHandler) skipCurrent(state *TripState, p Payload) ReplanDecision {
	if p.StopName != "" {
		state.MarkSkipped(p.StopName)
	}
	md := h.positionContext(state, p)
	md.UserEditAction = EditSkipCurrent
	md.StopName = p.StopName
	return ReplanDecision{
		ShouldReplan: true,
		Urgency:      UrgencyNormal,
		Reason:       fmt.Sprintf("User aborted '%s' mid-visit, replanning from the current position.", p.StopName),
		Metadata:     md,
	}
}

// positionContext copies position, clock and remaining time from the payload,
// falling back to the live state.
func (h *EventHandler) positionContext(state *TripState, p Payload) Metadata {
	md := Metadata{
		CurrentLat:       state.CurrentLat,
		CurrentLon:       state.CurrentLon,
		CurrentTime:      state.Now(),
		RemainingMinutes: state.RemainingMinutesToday(),
	}
	if p.CurrentLat != nil {
		md.CurrentLat = *p.CurrentLat
	}
	if p.CurrentLon != nil {
		md.CurrentLon = *p.CurrentLon
	}
	if p.CurrentTime != nil {
		md.CurrentTime = *p.CurrentTime
	}
	if p.RemainingMinutes != nil {
		md.RemainingMinutes = *p.RemainingMinutes
	}
	return md
}
