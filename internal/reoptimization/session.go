package reoptimization

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/insight"
	"github.com/jengzang/itinerary-backend-go/internal/memory"
	"github.com/jengzang/itinerary-backend-go/internal/metrics"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// SessionConfig wires the collaborators of a Session. Planner is required;
// everything else has a default.
type SessionConfig struct {
	Strategy    config.Strategy
	Planner     *planning.RoutePlanner
	Source      spatial.DistanceSource
	Insights    insight.TextInsight
	Memory      *memory.DisruptionMemory
	Classifier  Classifier
	Restaurants []models.Restaurant

	// AccumulateHungerFatigue turns on per-stop hunger and fatigue growth
	// in AdvanceToStop.
	AccumulateHungerFatigue bool
}

// AdvanceRequest reports arrival at a stop
type AdvanceRequest struct {
	StopName        string        `json:"stop_name" binding:"required"`
	Arrival         *models.Clock `json:"arrival_time,omitempty"`
	Lat             *float64      `json:"lat,omitempty"`
	Lon             *float64      `json:"lon,omitempty"`
	Cost            float64       `json:"cost"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	Intensity       string        `json:"intensity_level,omitempty"`
}

// Advisories holds what the last session call computed for the traveler.
type Advisories struct {
	Crowd   *CrowdAdvisory   `json:"crowd,omitempty"`
	Weather *WeatherAdvisory `json:"weather,omitempty"`
	Traffic *TrafficAdvisory `json:"traffic,omitempty"`
	Hunger  *HungerAdvisory  `json:"hunger,omitempty"`
	Fatigue *FatigueAdvisory `json:"fatigue,omitempty"`
	Dislike *DislikeResult   `json:"dislike,omitempty"`
	Replace *ReplaceResult   `json:"replace,omitempty"`
	Skip    *SkipResult      `json:"skip,omitempty"`
}

// ReplanRecord is one entry of the replan history
type ReplanRecord struct {
	Time     models.Clock `json:"time"`
	Trigger  string       `json:"trigger"`
	Reasons  []string     `json:"reasons"`
	NewStops []string     `json:"new_stops"`
}

// Summary is a snapshot of the session for display
type Summary struct {
	SessionID          string              `json:"session_id"`
	TripID             string              `json:"trip_id"`
	CurrentTime        models.Clock        `json:"current_time"`
	CurrentDay         int                 `json:"current_day"`
	CurrentLat         float64             `json:"current_lat"`
	CurrentLon         float64             `json:"current_lon"`
	Visited            []string            `json:"visited"`
	Skipped            []string            `json:"skipped"`
	DeferredSameDay    []string            `json:"deferred_same_day"`
	DeferredFutureDays map[string]int      `json:"deferred_future_days"`
	RemainingStops     []string            `json:"remaining_stops"`
	RemainingMinutes   float64             `json:"remaining_minutes"`
	HungerLevel        float64             `json:"hunger_level"`
	FatigueLevel       float64             `json:"fatigue_level"`
	Thresholds         ConditionThresholds `json:"thresholds"`
	ThresholdsText     string              `json:"thresholds_text"`
	ReplansTriggered   int                 `json:"replans_triggered"`
	DisruptionLog      []DisruptionEntry   `json:"disruption_log"`
	CrowdPending       *CrowdAdvisory      `json:"crowd_pending,omitempty"`
	PendingDecision    *PendingDecision    `json:"pending_decision,omitempty"`
	CurrentPlan        *models.DayPlan     `json:"current_plan,omitempty"`
	Memory             memory.Summary      `json:"disruption_memory"`
}

// Session is the re-optimization facade for one traveler on one trip. It
// owns the TripState and the approval gate: at most one PendingDecision is
// outstanding, and gated changes only reach the state through ResolvePending.
// A Session is not safe for concurrent use.
type Session struct {
	ID          string
	TripID      string
	City        string
	Constraints models.ConstraintBundle
	Budget      models.BudgetAllocation
	TotalDays   int

	AccumulateHungerFatigue bool

	strategy    config.Strategy
	state       *TripState
	remaining   []models.Attraction
	restaurants []models.Restaurant

	handler   *EventHandler
	monitor   *ConditionMonitor
	replanner *PartialReplanner
	weather   *WeatherAdvisor
	traffic   *TrafficAdvisor
	crowd     *CrowdAdvisor
	hf        *HungerFatigueAdvisor
	edits     *UserEditHandler
	memory    *memory.DisruptionMemory

	pending        *PendingDecision
	crowdPending   *CrowdAdvisory
	futureDeferred map[string]int
	history        []ReplanRecord
	advisories     Advisories
}

// NewSession starts day 1 of the itinerary at its start position and the
// configured day start. pool is every attraction still in play for the trip.
func NewSession(itin *models.Itinerary, constraints models.ConstraintBundle, pool []models.Attraction, cfg SessionConfig) (*Session, error) {
	if itin == nil {
		return nil, errs.Validation("itinerary", "an itinerary is required")
	}
	if cfg.Planner == nil {
		return nil, errs.Configuration("planner", "a route planner is required to replan")
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil {
		cfg.Source = spatial.S2Distance{}
	}
	if cfg.Memory == nil {
		cfg.Memory = memory.New()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier()
	}

	totalDays := len(itin.Days)
	if totalDays < 1 {
		totalDays = 1
	}

	state := NewTripState(itin.StartLat, itin.StartLon, cfg.Strategy.Day.Start, cfg.Strategy.Day.End, 1)
	if day, ok := itin.Day(1); ok {
		state.CurrentDate = day.Date
		state.CurrentDayPlan = day.Clone()
	}

	remaining := append([]models.Attraction(nil), pool...)
	handler := NewEventHandler(cfg.Strategy).WithClassifier(cfg.Classifier)

	s := &Session{
		ID:                      uuid.NewString(),
		TripID:                  itin.TripID,
		City:                    itin.DestinationCity,
		Constraints:             constraints,
		Budget:                  itin.Budget,
		TotalDays:               totalDays,
		AccumulateHungerFatigue: cfg.AccumulateHungerFatigue,
		strategy:                cfg.Strategy,
		state:                   state,
		remaining:               remaining,
		restaurants:             append([]models.Restaurant(nil), cfg.Restaurants...),
		handler:                 handler,
		monitor:                 NewConditionMonitor(cfg.Strategy, constraints.Soft, remaining, totalDays, handler),
		replanner:               NewPartialReplanner(cfg.Planner),
		weather:                 NewWeatherAdvisor(cfg.Strategy, cfg.Source),
		traffic:                 NewTrafficAdvisor(cfg.Strategy, cfg.Source),
		crowd:                   NewCrowdAdvisor(cfg.Insights, cfg.Strategy.Alternatives),
		hf:                      NewHungerFatigueAdvisor(cfg.Strategy, cfg.Source, cfg.Classifier),
		edits:                   NewUserEditHandler(cfg.Strategy, cfg.Source),
		memory:                  cfg.Memory,
		futureDeferred:          make(map[string]int),
	}
	log.Printf("Session %s started for trip %s: %d stops in pool, thresholds %s",
		s.ID, s.TripID, len(remaining), s.monitor.Thresholds().Describe())
	return s, nil
}

// State exposes the live trip state for reading.
func (s *Session) State() *TripState { return s.state }

// Pending returns the outstanding decision, or nil.
func (s *Session) Pending() *PendingDecision { return s.pending }

// Advisories returns what the most recent call computed.
func (s *Session) Advisories() Advisories { return s.advisories }

func (s *Session) Memory() *memory.DisruptionMemory { return s.memory }

func (s *Session) Thresholds() ConditionThresholds { return s.monitor.Thresholds() }

// ReplanHistory lists every replan in order.
func (s *Session) ReplanHistory() []ReplanRecord {
	return append([]ReplanRecord(nil), s.history...)
}

// AdvanceToStop records arrival at a stop: clock, position, visited set and
// spend. With accumulation on, the visit feeds hunger and fatigue and a
// crossed trigger inserts a meal or rest right away, unless a decision is
// pending. The returned plan is nil unless that happened.
func (s *Session) AdvanceToStop(req AdvanceRequest) (*models.DayPlan, error) {
	s.advisories = Advisories{}
	if req.StopName == "" {
		return nil, errs.Validation("stop_name", "a stop name is required")
	}
	if req.Arrival != nil {
		if err := s.state.SetTime(*req.Arrival); err != nil {
			return nil, err
		}
	}
	if req.Lat != nil && req.Lon != nil {
		s.state.MoveTo(*req.Lat, *req.Lon)
	}

	intensity := req.Intensity
	duration := req.DurationMinutes
	if a, ok := findByName(s.remaining, req.StopName); ok {
		if intensity == "" {
			intensity = a.IntensityLevel
		}
		if duration <= 0 {
			duration = a.Duration()
		}
	}
	if duration <= 0 {
		duration = 60
	}

	s.state.MarkVisited(req.StopName, req.Cost)
	s.state.MinutesOnFeet += duration
	s.dropFromPool(req.StopName)
	log.Printf("Session %s: arrived at '%s' at %s, %d stops remaining",
		s.ID, req.StopName, s.state.Now(), len(s.remaining))

	if !s.AccumulateHungerFatigue {
		return nil, nil
	}
	s.hf.Accumulate(s.state, intensity, float64(duration))
	if s.pending != nil {
		return nil, nil
	}
	return s.runHungerFatigue(s.hf.Triggers(s.state))
}

// CheckConditions compares live readings against the thresholds. When any
// is exceeded it stores a PendingDecision and returns it; the trip state is
// left untouched until ResolvePending. Nil means nothing needs a decision or
// one is already pending.
func (s *Session) CheckConditions(ctx context.Context, r Readings) (*PendingDecision, error) {
	s.advisories = Advisories{}
	if s.pending != nil {
		log.Printf("Session %s: decision %s already pending, readings ignored", s.ID, s.pending.ID)
		return nil, nil
	}

	// the monitor's handler defers and advances time, so it runs on a copy
	dry := s.state.clone()
	candidates := envCandidates(s.monitor.Check(dry, r))
	if len(candidates) == 0 {
		return nil, nil
	}

	pd := s.buildEnvPending(candidates, r)
	s.pending = pd
	metrics.RecordPendingDecision(string(pd.Kind))
	log.Printf("Session %s: %s decision %s pending (%s)", s.ID, pd.Kind, pd.ID, pd.Reason)
	return pd, nil
}

// envCandidates keeps decisions that want a replan, falling back to a crowd
// decision that needs the traveler's choice.
func envCandidates(decisions []ReplanDecision) []ReplanDecision {
	var out []ReplanDecision
	for _, d := range decisions {
		if d.ShouldReplan {
			out = append(out, d)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, d := range decisions {
		if d.Metadata.CrowdAction == CrowdInformUser {
			out = append(out, d)
		}
	}
	return out
}

// Event applies one event. Gated events only build a PendingDecision (or do
// nothing while one is outstanding) and return a nil plan. Other events run
// now; the returned plan is set when they caused a replan.
func (s *Session) Event(ctx context.Context, et EventType, p Payload) (*models.DayPlan, error) {
	s.advisories = Advisories{}
	metrics.RecordEvent(string(et))

	if et.Gated() {
		if s.pending != nil {
			log.Printf("Session %s: decision %s already pending, %s ignored", s.ID, s.pending.ID, et)
			return nil, nil
		}
		if err := s.validateUserEvent(et, p); err != nil {
			return nil, err
		}
		pd := s.buildUserPending(et, p)
		s.pending = pd
		metrics.RecordPendingDecision(string(pd.Kind))
		log.Printf("Session %s: %s awaiting decision %s (%s)", s.ID, et, pd.ID, pd.Reason)
		return nil, nil
	}

	// a pending decision holds off meal and rest relief, as in AdvanceToStop
	if et == EventReport {
		s.hf.ApplyKeywords(p.Message, s.state)
		if triggers := s.hf.Triggers(s.state); len(triggers) > 0 && s.pending == nil {
			s.state.LogDisruption(et, p)
			return s.runHungerFatigue(triggers)
		}
	}

	return s.route(ctx, s.handler.Handle(et, p, s.state))
}

// ResolvePending answers the outstanding decision. index selects the
// proposed action for MODIFY and is ignored otherwise. An out-of-range index
// is rejected and leaves the decision pending.
func (s *Session) ResolvePending(ctx context.Context, res Resolution, index int) (*models.DayPlan, error) {
	s.advisories = Advisories{}
	pd := s.pending
	if pd == nil {
		return nil, errs.NotFound("pending decision", s.ID)
	}

	var (
		plan   *models.DayPlan
		err    error
		action string
	)
	switch res {
	case ResolveReject:
		action = string(ResolveReject)
		s.pending = nil

	case ResolveApprove:
		action = string(ResolveApprove)
		s.pending = nil
		if pd.UserEvent != "" {
			plan, err = s.executeUserEvent(ctx, pd.UserEvent, pd.userPayload)
		} else {
			plan, err = s.approveEnvironmental(ctx, pd)
		}

	case ResolveModify:
		chosen, aerr := pd.Action(index)
		if aerr != nil {
			return nil, aerr
		}
		action = "MODIFY:" + string(chosen.Type)
		s.pending = nil
		plan, err = s.applyAction(ctx, pd, chosen)

	default:
		return nil, errs.Validation("decision", "unknown decision %q", res)
	}

	s.memory.RecordGeneric(string(pd.Kind), pd.Severity, action, action, pd.ImpactedPOIs)
	metrics.RecordResolution(action)
	log.Printf("Session %s: decision %s resolved with %s", s.ID, pd.ID, action)
	if err != nil {
		return nil, fmt.Errorf("failed to apply decision %s: %w", pd.ID, err)
	}
	return plan, nil
}

// approveEnvironmental re-runs the stored readings on the live state and
// routes every resulting decision through its advisory.
func (s *Session) approveEnvironmental(ctx context.Context, pd *PendingDecision) (*models.DayPlan, error) {
	if pd.readings == nil {
		return s.doReplan("approve", ReplanOptions{}, pd.Reason)
	}
	var last *models.DayPlan
	for _, d := range envCandidates(s.monitor.Check(s.state, *pd.readings)) {
		plan, err := s.route(ctx, d)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			last = plan
		}
	}
	return last, nil
}

func (s *Session) applyAction(ctx context.Context, pd *PendingDecision, a ProposedAction) (*models.DayPlan, error) {
	reason := "MODIFY:" + string(a.Type)
	switch a.Type {
	case ActionApplyChange, ActionSuggestAlternatives:
		if pd.UserEvent != "" {
			return s.executeUserEvent(ctx, pd.UserEvent, pd.userPayload)
		}
		return s.doReplan("modify", ReplanOptions{}, reason)
	case ActionDeferChange, ActionDefer:
		if a.TargetStop != "" {
			s.state.DeferStop(a.TargetStop)
		}
		return s.doReplan("modify", ReplanOptions{}, reason)
	case ActionReplace:
		s.state.MarkSkipped(a.TargetStop)
		return s.doReplan("modify", ReplanOptions{}, reason)
	case ActionShiftTime:
		delay := a.Details.DelayMinutes
		if delay <= 0 {
			delay = 30
		}
		advanceCapped(s.state, delay)
		return s.doReplan("modify", ReplanOptions{}, reason)
	case ActionKeepAsIs:
		return nil, nil
	}
	return s.doReplan("modify", ReplanOptions{}, reason)
}

// executeUserEvent runs an approved user event against the live state.
func (s *Session) executeUserEvent(ctx context.Context, et EventType, p Payload) (*models.DayPlan, error) {
	var skip *SkipResult
	if et == EventSkipCurrent {
		r, err := s.edits.SkipCurrentPOI(s.state, s.remaining, s.Constraints, s.hf.ScorerOptions(s.state)...)
		if err != nil {
			return nil, err
		}
		skip = &r
		if p.StopName == "" {
			p.StopName = r.SkippedStop
		}
	}

	switch et {
	case EventPreferenceChange:
		updated, err := ApplyPreferenceUpdate(s.Constraints, p.Field, p.Value)
		if err != nil {
			return nil, err
		}
		s.Constraints = updated
		s.monitor.UpdateSoft(updated.Soft)
		if p.Field == "pace_preference" && updated.Soft.PacePreference == models.PaceRelaxed {
			s.hf.OnBehavioralSignal(SignalPaceChange, s.state)
		}
	case EventAddStop:
		s.addToPool(*p.Attraction)
	}

	d := s.handler.Handle(et, p, s.state)
	if et == EventSkip || et == EventSkipCurrent {
		s.inferFromSkip(p.StopName)
	}
	if d.Metadata.UserEditAction != "" {
		return s.handleUserEdit(d, skip)
	}
	if !d.ShouldReplan {
		return nil, nil
	}
	return s.doReplan(string(et), ReplanOptions{}, d.Reason)
}

func (s *Session) inferFromSkip(name string) {
	if a, ok := findByName(s.remaining, name); ok && a.IntensityLevel == models.IntensityHigh {
		s.hf.OnBehavioralSignal(SignalSkipHighIntensity, s.state)
	}
}

// route sends a decision to the advisory that owns it.
func (s *Session) route(ctx context.Context, d ReplanDecision) (*models.DayPlan, error) {
	md := d.Metadata
	switch {
	case md.CrowdAction != "":
		return s.handleCrowd(ctx, d)
	case md.UserEditAction != "":
		return s.handleUserEdit(d, nil)
	case md.HFAction == HFHunger:
		return s.handleHunger()
	case md.HFAction == HFFatigue:
		return s.handleFatigue()
	case !d.ShouldReplan:
		log.Printf("Session %s: event '%s' needs no replan (%s)", s.ID, d.Event, d.Reason)
		return nil, nil
	case md.WeatherAction != "":
		return s.handleWeather(d)
	case md.TrafficAction != "":
		return s.handleTraffic(d)
	}
	return s.doReplan(string(d.Event), ReplanOptions{}, d.Reason)
}

func (s *Session) handleCrowd(ctx context.Context, d ReplanDecision) (*models.DayPlan, error) {
	md := d.Metadata
	stop := md.DeferredStop
	adv, err := s.crowd.Build(ctx, CrowdInput{
		Stop:             stop,
		CrowdLevel:       md.CrowdLevel,
		Threshold:        md.Threshold,
		Action:           md.CrowdAction,
		TargetDay:        md.TargetDay,
		Pool:             s.open(stop),
		Constraints:      s.Constraints,
		Lat:              s.state.CurrentLat,
		Lon:              s.state.CurrentLon,
		Now:              s.state.Now(),
		DayEnd:           s.state.DayEnd,
		RemainingMinutes: s.state.RemainingMinutesToday(),
		City:             s.City,
		ScorerOptions:    s.hf.ScorerOptions(s.state),
	})
	if err != nil {
		return nil, err
	}
	s.advisories.Crowd = &adv

	switch md.CrowdAction {
	case CrowdSameDay:
		plan, err := s.doReplan("crowd", ReplanOptions{}, d.Reason)
		s.state.UndeferStop(stop)
		return plan, err
	case CrowdFutureDay:
		s.futureDeferred[stop] = md.TargetDay
		return s.doReplan("crowd", ReplanOptions{}, d.Reason)
	case CrowdInformUser:
		s.crowdPending = &adv
		return nil, nil
	}
	return s.doReplan("crowd", ReplanOptions{}, d.Reason)
}

func (s *Session) handleWeather(d ReplanDecision) (*models.DayPlan, error) {
	md := d.Metadata
	adv := s.weather.Classify(WeatherInput{
		Condition:        md.Condition,
		Threshold:        md.Threshold,
		Pool:             s.open(""),
		Constraints:      s.Constraints,
		Lat:              md.CurrentLat,
		Lon:              md.CurrentLon,
		RemainingMinutes: md.RemainingMinutes,
	})
	s.advisories.Weather = &adv

	for _, b := range adv.Blocked {
		s.state.DeferStop(b.Attraction.Name)
	}
	alts := make([]string, 0, len(adv.Alternatives))
	for _, a := range adv.Alternatives {
		alts = append(alts, a.Attraction.Name)
	}
	s.memory.RecordWeather(memory.WeatherRecord{
		Condition:     md.Condition,
		Severity:      md.Severity,
		Threshold:     md.Threshold,
		BlockedCount:  len(adv.Blocked),
		DeferredCount: len(adv.Deferred),
		Accepted:      true,
		Alternatives:  alts,
	})
	if len(adv.Alternatives) > 0 {
		best := adv.Alternatives[0]
		for _, b := range adv.Blocked {
			s.memory.RecordReplacement(memory.ReplacementRecord{
				Original:    b.Attraction.Name,
				Replacement: best.Attraction.Name,
				Reason:      "weather",
				SRep:        best.S,
			})
		}
	}
	return s.doReplan("weather", ReplanOptions{DeprioritizeOutdoor: md.DeprioritizeOutdoor}, d.Reason)
}

func (s *Session) handleTraffic(d ReplanDecision) (*models.DayPlan, error) {
	md := d.Metadata
	adv := s.traffic.Assess(TrafficInput{
		TrafficLevel:     md.TrafficLevel,
		Threshold:        md.Threshold,
		DelayMinutes:     md.DelayMinutes,
		Pool:             s.open(""),
		Constraints:      s.Constraints,
		Lat:              md.CurrentLat,
		Lon:              md.CurrentLon,
		RemainingMinutes: md.RemainingMinutes,
	})
	s.advisories.Traffic = &adv

	for _, f := range adv.Deferred {
		s.state.DeferStop(f.Attraction.Name)
	}
	s.memory.RecordTraffic(memory.TrafficRecord{
		TrafficLevel: md.TrafficLevel,
		Threshold:    md.Threshold,
		DelayMinutes: md.DelayMinutes,
		DelayFactor:  adv.DelayFactor,
		Deferred:     feasibilityNames(adv.Deferred),
		Replaced:     feasibilityNames(adv.Replaced),
		Accepted:     true,
	})
	if len(adv.Alternatives) > 0 {
		best := adv.Alternatives[0]
		for _, f := range adv.Replaced {
			s.memory.RecordReplacement(memory.ReplacementRecord{
				Original:    f.Attraction.Name,
				Replacement: best.Attraction.Name,
				Reason:      "traffic",
				SOrig:       f.S,
				SRep:        best.S,
			})
		}
	}
	return s.doReplan("traffic", ReplanOptions{}, d.Reason)
}

// handleUserEdit runs dislike, replace and skip-current. skip carries the
// skip analysis computed before the stop was marked skipped.
func (s *Session) handleUserEdit(d ReplanDecision, skip *SkipResult) (*models.DayPlan, error) {
	if s.state.CurrentDayPlan == nil {
		return nil, nil
	}
	md := d.Metadata
	opts := s.hf.ScorerOptions(s.state)

	switch md.UserEditAction {
	case EditDislikeNext:
		res, err := s.edits.DislikeNextPOI(s.state, s.remaining, s.Constraints, opts...)
		if err != nil {
			return nil, err
		}
		s.advisories.Dislike = &res
		return nil, nil

	case EditReplacePOI:
		if md.Replacement == nil {
			return nil, nil
		}
		budget := s.state.RemainingBudget(s.Budget)
		if md.BudgetRemaining != nil {
			budget = *md.BudgetRemaining
		}
		res, err := s.edits.ReplacePOI(s.state, *md.Replacement, s.Constraints, budget, opts...)
		if err != nil {
			return nil, err
		}
		s.advisories.Replace = &res
		if !res.Accepted {
			log.Printf("Session %s: replacement '%s' rejected: %s", s.ID, res.ReplacementStop, res.RejectionReason)
			return nil, nil
		}
		s.state.CurrentDayPlan = res.Plan
		s.state.BudgetSpent.Attractions = math.Max(0, s.state.BudgetSpent.Attractions+res.BudgetDelta)
		s.addToPool(*md.Replacement)
		s.state.MarkSkipped(res.OriginalStop)
		s.memory.RecordReplacement(memory.ReplacementRecord{
			Original:    res.OriginalStop,
			Replacement: res.ReplacementStop,
			Reason:      "user_replace",
		})
		log.Printf("Session %s: '%s' replaced by '%s' (%+d min, %+.2f budget)",
			s.ID, res.OriginalStop, res.ReplacementStop, res.TimeDeltaMinutes, res.BudgetDelta)
		return res.Plan, nil

	case EditSkipCurrent:
		if skip != nil {
			s.advisories.Skip = skip
			if skip.MemorySignal {
				s.memory.RecordReplacement(memory.ReplacementRecord{
					Original: skip.SkippedStop,
					Reason:   "user_skip_current_high_spti",
					SOrig:    skip.SLost,
				})
			}
		}
		return s.doReplan(string(EventSkipCurrent), ReplanOptions{}, d.Reason)
	}
	return nil, nil
}

func (s *Session) runHungerFatigue(triggers []EventType) (*models.DayPlan, error) {
	var last *models.DayPlan
	for _, t := range triggers {
		var (
			plan *models.DayPlan
			err  error
		)
		switch t {
		case EventHunger:
			plan, err = s.handleHunger()
		case EventFatigue:
			plan, err = s.handleFatigue()
		}
		if err != nil {
			return nil, err
		}
		if plan != nil {
			last = plan
		}
	}
	return last, nil
}

func (s *Session) handleHunger() (*models.DayPlan, error) {
	level := s.state.Hunger()
	perMeal := s.Budget.Restaurants / float64(s.TotalDays)
	adv := s.hf.HungerAdvisory(s.state, s.restaurants, s.Constraints, perMeal)
	minutes := s.hf.Meal(s.state)
	adv.Action = ActionMealInserted
	adv.MinutesConsumed = minutes
	s.advisories.Hunger = &adv

	rec := memory.HungerRecord{
		TriggerTime:  s.state.Now().String(),
		HungerLevel:  level,
		ActionTaken:  ActionMealInserted,
		UserResponse: "accepted",
	}
	if len(adv.Options) > 0 {
		name, score := adv.Options[0].Name, adv.Options[0].S
		rec.RestaurantName = &name
		rec.SInserted = &score
	}
	s.memory.RecordHunger(rec)
	return s.doReplan("hunger", ReplanOptions{}, fmt.Sprintf("Hunger disruption: %d-min meal break inserted.", minutes))
}

func (s *Session) handleFatigue() (*models.DayPlan, error) {
	level := s.state.Fatigue()
	next := ""
	if rp, ok := s.state.NextStop(); ok {
		next = rp.Name
	}
	adv := s.hf.FatigueAdvisory(s.state, next, s.open(""))
	minutes := s.hf.Rest(s.state)
	s.advisories.Fatigue = &adv

	rest := minutes
	s.memory.RecordFatigue(memory.FatigueRecord{
		TriggerTime:   s.state.Now().String(),
		FatigueLevel:  level,
		ActionTaken:   ActionRestInserted,
		RestDuration:  &rest,
		StopsDeferred: adv.DeferredStops,
		UserResponse:  "accepted",
	})
	return s.doReplan("fatigue", ReplanOptions{}, fmt.Sprintf("Fatigue disruption: %d-min rest break inserted.", minutes))
}

// doReplan regenerates the rest of today and commits it. trigger is a
// short label used for metrics.
func (s *Session) doReplan(trigger string, opts ReplanOptions, reasons ...string) (*models.DayPlan, error) {
	if opts.ScorerOptions == nil {
		opts.ScorerOptions = s.hf.ScorerOptions(s.state)
	}
	plan, err := s.replanner.Replan(s.state, s.remaining, s.Constraints, opts)
	if err != nil {
		return nil, err
	}
	s.state.CurrentDayPlan = plan
	s.state.ReplanPending = false
	s.history = append(s.history, ReplanRecord{
		Time:     s.state.Now(),
		Trigger:  trigger,
		Reasons:  reasons,
		NewStops: plan.StopNames(),
	})
	metrics.RecordReplan(trigger)
	log.Printf("Session %s: replan #%d (%s) at %s, %.0f min left: %s",
		s.ID, len(s.history), strings.Join(reasons, " | "), s.state.Now(),
		s.state.RemainingMinutesToday(), strings.Join(plan.StopNames(), " -> "))
	return plan, nil
}

// open lists pool stops that are not visited, skipped or deferred, plus keep
// when it names an excluded stop that must stay visible.
func (s *Session) open(keep string) []models.Attraction {
	out := make([]models.Attraction, 0, len(s.remaining))
	for _, a := range s.remaining {
		if a.Name == keep || !s.state.Excluded(a.Name) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Session) addToPool(a models.Attraction) {
	if _, ok := findByName(s.remaining, a.Name); ok {
		return
	}
	s.remaining = append(s.remaining, a)
	s.monitor.UpdateRemaining(s.remaining)
}

func (s *Session) dropFromPool(name string) {
	kept := s.remaining[:0]
	for _, a := range s.remaining {
		if a.Name != name {
			kept = append(kept, a)
		}
	}
	s.remaining = kept
	s.monitor.UpdateRemaining(s.remaining)
}

// Summary snapshots the session.
func (s *Session) Summary() Summary {
	var remaining []string
	for _, a := range s.remaining {
		if !s.state.IsVisited(a.Name) && !s.state.IsSkipped(a.Name) {
			remaining = append(remaining, a.Name)
		}
	}
	future := make(map[string]int, len(s.futureDeferred))
	for k, v := range s.futureDeferred {
		future[k] = v
	}
	th := s.monitor.Thresholds()
	return Summary{
		SessionID:          s.ID,
		TripID:             s.TripID,
		CurrentTime:        s.state.Now(),
		CurrentDay:         s.state.CurrentDay,
		CurrentLat:         s.state.CurrentLat,
		CurrentLon:         s.state.CurrentLon,
		Visited:            s.state.Visited(),
		Skipped:            s.state.Skipped(),
		DeferredSameDay:    s.state.Deferred(),
		DeferredFutureDays: future,
		RemainingStops:     nonNilNames(remaining),
		RemainingMinutes:   s.state.RemainingMinutesToday(),
		HungerLevel:        s.state.Hunger(),
		FatigueLevel:       s.state.Fatigue(),
		Thresholds:         th,
		ThresholdsText:     th.Describe(),
		ReplansTriggered:   len(s.history),
		DisruptionLog:      append([]DisruptionEntry{}, s.state.DisruptionLog...),
		CrowdPending:       s.crowdPending,
		PendingDecision:    s.pending,
		CurrentPlan:        s.state.CurrentDayPlan.Clone(),
		Memory:             s.memory.Summarize(),
	}
}

func nonNilNames(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

// validateUserEvent rejects gated requests that could never be applied, so
// that a malformed request never becomes a pending decision.
func (s *Session) validateUserEvent(et EventType, p Payload) error {
	switch et {
	case EventAddStop, EventReplacePOI:
		if p.Attraction == nil || p.Attraction.Name == "" {
			return errs.Validation("attraction", "an attraction with a name is required")
		}
	case EventPreferenceChange:
		if _, err := ApplyPreferenceUpdate(s.Constraints, p.Field, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// --- pending decision builders ---

func (s *Session) buildEnvPending(candidates []ReplanDecision, r Readings) *PendingDecision {
	var crowd, weather, traffic []ReplanDecision
	for _, d := range candidates {
		switch {
		case d.Metadata.CrowdAction != "":
			crowd = append(crowd, d)
		case d.Metadata.WeatherAction != "":
			weather = append(weather, d)
		case d.Metadata.TrafficAction != "":
			traffic = append(traffic, d)
		}
	}

	var pd *PendingDecision
	var reasons []string
	switch {
	case len(crowd) > 0:
		pd = newPendingDecision(KindCrowd)
		for _, d := range crowd {
			md := d.Metadata
			stop := md.DeferredStop
			if stop == "" {
				stop = r.NextStopName
			}
			pd.Severity = math.Max(pd.Severity, md.CrowdLevel)
			pd.addImpacted(stop)
			reasons = append(reasons, fmt.Sprintf("crowd %s > threshold %s at '%s'", pct(md.CrowdLevel), pct(md.Threshold), stop))
			switch md.CrowdAction {
			case CrowdSameDay:
				pd.ProposedActions = append(pd.ProposedActions, ProposedAction{Type: ActionDefer, TargetStop: stop, Details: ActionDetails{Timing: "later today"}})
			case CrowdFutureDay:
				pd.ProposedActions = append(pd.ProposedActions, ProposedAction{Type: ActionDefer, TargetStop: stop, Details: ActionDetails{TargetDay: md.TargetDay}})
			default:
				pd.ProposedActions = append(pd.ProposedActions, ProposedAction{Type: ActionKeepAsIs, TargetStop: stop})
			}
		}

	case len(weather) > 0:
		pd = newPendingDecision(KindWeather)
		for _, d := range weather {
			md := d.Metadata
			pd.Severity = math.Max(pd.Severity, md.Severity)
			reasons = append(reasons, fmt.Sprintf("%s (severity %s > threshold %s)", md.Condition, pct(md.Severity), pct(md.Threshold)))
			if r.NextStopIsOutdoor && pd.addImpacted(r.NextStopName) {
				pd.ProposedActions = append(pd.ProposedActions, ProposedAction{Type: ActionDefer, TargetStop: r.NextStopName})
			}
			for _, a := range s.remaining {
				if a.IsOutdoor && !s.state.IsVisited(a.Name) && !s.state.IsSkipped(a.Name) && pd.addImpacted(a.Name) {
					pd.ProposedActions = append(pd.ProposedActions, ProposedAction{Type: ActionDefer, TargetStop: a.Name})
				}
			}
		}

	default:
		pd = newPendingDecision(KindTraffic)
		for _, d := range traffic {
			md := d.Metadata
			stop := r.NextStopName
			if stop == "" {
				stop = "current stop"
			}
			pd.Severity = math.Max(pd.Severity, md.TrafficLevel)
			pd.addImpacted(stop)
			reasons = append(reasons, fmt.Sprintf("traffic %s > threshold %s, delay +%d min", pct(md.TrafficLevel), pct(md.Threshold), md.DelayMinutes))

			action := ProposedAction{Type: ActionDefer, TargetStop: stop}
			if a, ok := findByName(s.remaining, stop); ok {
				if ratingScore(a) >= s.strategy.Traffic.HighPriority {
					action.Details.Reason = "high value, kept for later"
				} else {
					action = ProposedAction{Type: ActionReplace, TargetStop: stop, Details: ActionDetails{Reason: "low value, swap for a nearby alternative"}}
				}
			}
			pd.ProposedActions = append(pd.ProposedActions, action)
			if md.DelayMinutes > 0 {
				pd.ProposedActions = append(pd.ProposedActions, ProposedAction{
					Type:       ActionShiftTime,
					TargetStop: stop,
					Details:    ActionDetails{DelayMinutes: md.DelayMinutes, Reason: "wait out the congestion"},
				})
			}
		}
	}

	pd.Reason = strings.Join(reasons, " | ")
	pd.MissedValue = s.missedValue(pd.ImpactedPOIs)
	pd.SuggestedAlternatives = s.topAlternatives(pd.ImpactedPOIs)
	readings := r
	pd.readings = &readings
	return pd
}

func (s *Session) buildUserPending(et EventType, p Payload) *PendingDecision {
	pd := newPendingDecision(KindUserAction)
	pd.UserEvent = et
	pd.userPayload = p

	switch et {
	case EventSkip, EventSkipCurrent:
		stop := p.StopName
		if stop == "" {
			stop = s.nextStopName()
		}
		score := s.sProxy(stop)
		duration, cost := 60, 0.0
		if a, ok := findByName(s.remaining, stop); ok {
			duration, cost = a.Duration(), a.EntryCost
		}
		pd.addImpacted(stop)
		pd.Reason = fmt.Sprintf("User requested skip of '%s' (S proxy=%.2f)", stop, score)
		pd.MissedValue = score
		pd.ProposedActions = []ProposedAction{
			{Type: ActionApplyChange, TargetStop: stop, Details: ActionDetails{Op: "skip", HC: intPtr(1), DeltaS: floatPtr(round3(-score))}},
			{Type: ActionDeferChange, TargetStop: stop, Details: ActionDetails{Timing: "later today"}},
			{Type: ActionKeepAsIs, TargetStop: stop},
		}
		pd.SuggestedAlternatives = s.topAlternatives([]string{stop})
		pd.Impact = &ImpactSummary{
			FeasibilityChange:  1,
			SatisfactionChange: fmt.Sprintf("%+.3f", -score),
			TimeChange:         fmt.Sprintf("-%d min (freed)", duration),
			CostChange:         fmt.Sprintf("-%.0f", cost),
		}

	case EventDislikeNext:
		stop := s.nextStopName()
		score := s.sProxy(stop)
		pd.addImpacted(stop)
		pd.Reason = fmt.Sprintf("User dislikes next stop '%s' (S proxy=%.2f), show alternatives", stop, score)
		pd.MissedValue = score
		pd.ProposedActions = []ProposedAction{
			{Type: ActionSuggestAlternatives, TargetStop: stop, Details: ActionDetails{Op: "dislike_show_alts", DeltaS: floatPtr(round3(-score))}},
			{Type: ActionKeepAsIs, TargetStop: stop},
		}
		pd.SuggestedAlternatives = s.topAlternatives([]string{stop})
		pd.Impact = &ImpactSummary{
			FeasibilityChange:  1,
			SatisfactionChange: fmt.Sprintf("%+.3f", -score),
			TimeChange:         "0 min (no skip yet)",
			CostChange:         "0",
		}

	case EventReplacePOI:
		rep := *p.Attraction
		orig := s.nextStopName()
		sOrig := s.sProxy(orig)
		sRep := ratingScore(rep)
		delta := round3(sRep - sOrig)
		hc := 0
		if sRep > 0 {
			hc = 1
		}
		origDuration, origCost := 60, 0.0
		if a, ok := findByName(s.remaining, orig); ok {
			origDuration, origCost = a.Duration(), a.EntryCost
		}
		pd.addImpacted(orig)
		pd.addImpacted(rep.Name)
		pd.Reason = fmt.Sprintf("Replace '%s' with '%s' (delta S=%+.2f, HC=%d)", orig, rep.Name, delta, hc)
		pd.MissedValue = sOrig
		pd.ProposedActions = []ProposedAction{
			{Type: ActionApplyChange, TargetStop: orig, Details: ActionDetails{Replacement: rep.Name, HC: intPtr(hc), DeltaS: floatPtr(delta)}},
			{Type: ActionKeepAsIs, TargetStop: orig},
		}
		pd.SuggestedAlternatives = s.topAlternatives([]string{orig, rep.Name})
		pd.Impact = &ImpactSummary{
			FeasibilityChange:  hc,
			SatisfactionChange: fmt.Sprintf("%+.3f", delta),
			TimeChange:         fmt.Sprintf("%+d min", rep.Duration()-origDuration),
			CostChange:         fmt.Sprintf("%+.0f", rep.EntryCost-origCost),
		}

	case EventAddStop:
		a := *p.Attraction
		score := ratingScore(a)
		pd.addImpacted(a.Name)
		pd.Reason = fmt.Sprintf("Add '%s' to pool (S proxy=%.2f, about %d min, cost about %.0f)", a.Name, score, a.Duration(), a.EntryCost)
		pd.ProposedActions = []ProposedAction{
			{Type: ActionApplyChange, TargetStop: a.Name, Details: ActionDetails{Op: "add_to_pool", DeltaS: floatPtr(round3(score)), VisitMinutes: a.Duration(), Cost: a.EntryCost}},
			{Type: ActionKeepAsIs, TargetStop: a.Name},
		}
		pd.Impact = &ImpactSummary{
			FeasibilityChange:  1,
			SatisfactionChange: fmt.Sprintf("%+.3f", score),
			TimeChange:         fmt.Sprintf("+%d min", a.Duration()),
			CostChange:         fmt.Sprintf("+%.0f", a.EntryCost),
		}

	default:
		switch et {
		case EventPreferenceChange:
			pd.Reason = fmt.Sprintf("Preference change: %s -> %v", p.Field, p.Value)
		case EventReorder:
			pd.Reason = fmt.Sprintf("Reorder request: %v", p.PreferredOrder)
		default:
			pd.Reason = p.Reason
			if pd.Reason == "" {
				pd.Reason = "Manual re-optimization requested"
			}
		}
		for _, a := range s.remaining {
			if len(pd.ImpactedPOIs) == 5 {
				break
			}
			if !s.state.IsVisited(a.Name) && !s.state.IsSkipped(a.Name) {
				pd.addImpacted(a.Name)
			}
		}
		value := ""
		if p.Value != nil {
			value = fmt.Sprint(p.Value)
		}
		pd.ProposedActions = []ProposedAction{
			{Type: ActionApplyChange, TargetStop: "all_remaining", Details: ActionDetails{Field: p.Field, Value: value}},
			{Type: ActionKeepAsIs, TargetStop: "all_remaining"},
		}
		pd.Impact = &ImpactSummary{
			FeasibilityChange:  1,
			SatisfactionChange: "recomputed after change",
			TimeChange:         "recomputed",
			CostChange:         "unchanged",
		}
	}
	return pd
}

func (s *Session) nextStopName() string {
	if i := nextIndex(s.state); i >= 0 {
		return s.state.CurrentDayPlan.RoutePoints[i].Name
	}
	return ""
}

// sProxy stands in for S while nothing has been scored: rating over five.
func (s *Session) sProxy(name string) float64 {
	if a, ok := findByName(s.remaining, name); ok {
		return ratingScore(a)
	}
	return 0
}

func (s *Session) missedValue(names []string) float64 {
	var sum float64
	n := 0
	for _, name := range names {
		if a, ok := findByName(s.remaining, name); ok {
			sum += ratingScore(a)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// topAlternatives names the best-rated open stops outside exclude.
func (s *Session) topAlternatives(exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		skip[n] = true
	}
	var pool []models.Attraction
	for _, a := range s.remaining {
		if !skip[a.Name] && !s.state.IsVisited(a.Name) && !s.state.IsSkipped(a.Name) {
			pool = append(pool, a)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Rating > pool[j].Rating })
	out := []string{}
	for _, a := range pool {
		if len(out) == s.strategy.Alternatives {
			break
		}
		out = append(out, a.Name)
	}
	return out
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
