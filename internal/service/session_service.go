package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/insight"
	"github.com/jengzang/itinerary-backend-go/internal/memory"
	"github.com/jengzang/itinerary-backend-go/internal/metrics"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/reoptimization"
	"github.com/jengzang/itinerary-backend-go/internal/repository"
)

// SessionDeps wires the collaborators of a SessionService. Planner is
// required; the stores and the insight generator are optional.
type SessionDeps struct {
	Strategy    config.Strategy
	Planner     *planning.RoutePlanner
	Itineraries *repository.ItineraryRepository
	POIs        planning.PoiSource
	Memories    *repository.MemoryRepository
	Generator   insight.Generator
}

// StartSessionInput opens a session for a stored itinerary, or for an inline
// one when Itinerary is set.
type StartSessionInput struct {
	TripID      string                   `json:"trip_id"`
	Itinerary   *models.Itinerary        `json:"itinerary,omitempty"`
	Constraints *models.ConstraintBundle `json:"constraints,omitempty"`
	Attractions []models.Attraction      `json:"attractions,omitempty"`
	Restaurants []models.Restaurant      `json:"restaurants,omitempty"`

	AccumulateHungerFatigue bool `json:"accumulate_hunger_fatigue"`
}

// EventInput is one raw session event
type EventInput struct {
	Type    string                 `json:"event_type" binding:"required"`
	Payload reoptimization.Payload `json:"payload"`
}

// ResolveInput answers the pending decision
type ResolveInput struct {
	Decision    string `json:"decision" binding:"required"`
	ActionIndex int    `json:"action_index"`
}

// SessionResult is what a session call changed
type SessionResult struct {
	Plan       *models.DayPlan                 `json:"plan,omitempty"`
	Pending    *reoptimization.PendingDecision `json:"pending_decision,omitempty"`
	Advisories reoptimization.Advisories       `json:"advisories"`
}

// ClosedSession reports where an ended session's memory was stored
type ClosedSession struct {
	SessionID string                 `json:"session_id"`
	TripID    string                 `json:"trip_id"`
	MemoryID  int64                  `json:"memory_id,omitempty"`
	Summary   reoptimization.Summary `json:"summary"`
}

type managedSession struct {
	mu      sync.Mutex
	session *reoptimization.Session
}

// SessionService keeps the live re-optimization sessions. Calls on one
// session are serialized; different sessions run independently.
type SessionService struct {
	deps SessionDeps

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewSessionService creates a new session service
func NewSessionService(deps SessionDeps) (*SessionService, error) {
	if deps.Planner == nil {
		return nil, errs.Configuration("session", "a route planner is required")
	}
	if err := deps.Strategy.Validate(); err != nil {
		return nil, err
	}
	return &SessionService{deps: deps, sessions: make(map[string]*managedSession)}, nil
}

// Start opens a session and returns its initial summary
func (s *SessionService) Start(ctx context.Context, in StartSessionInput) (*reoptimization.Summary, error) {
	ctx, span := tracer.Start(ctx, "session.Start", trace.WithAttributes(attribute.String("trip_id", in.TripID)))
	defer span.End()

	itin, constraints, err := s.loadItinerary(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pool, err := s.pool(ctx, itin, in.Attractions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	mem, err := s.priorMemory(ctx, itin.TripID)
	if err != nil {
		return nil, err
	}

	sess, err := reoptimization.NewSession(itin, constraints, pool, reoptimization.SessionConfig{
		Strategy:                s.deps.Strategy,
		Planner:                 s.deps.Planner,
		Insights:                insight.NewResolver(s.deps.Generator),
		Memory:                  mem,
		Restaurants:             in.Restaurants,
		AccumulateHungerFatigue: in.AccumulateHungerFatigue,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &managedSession{session: sess}
	s.mu.Unlock()
	metrics.SessionOpened()

	span.SetAttributes(attribute.String("session_id", sess.ID), attribute.Int("pool", len(pool)))
	span.SetStatus(codes.Ok, "")
	summary := sess.Summary()
	return &summary, nil
}

func (s *SessionService) loadItinerary(ctx context.Context, in StartSessionInput) (*models.Itinerary, models.ConstraintBundle, error) {
	var constraints models.ConstraintBundle
	if in.Constraints != nil {
		constraints = *in.Constraints
	}
	if in.Itinerary != nil {
		return in.Itinerary, constraints, nil
	}
	if in.TripID == "" {
		return nil, constraints, errs.Validation("trip_id", "a trip id or an inline itinerary is required")
	}
	if s.deps.Itineraries == nil {
		return nil, constraints, errs.Configuration("session", "no itinerary store configured")
	}
	stored, err := s.deps.Itineraries.Get(ctx, in.TripID)
	if err != nil {
		return nil, constraints, err
	}
	if in.Constraints == nil {
		constraints = stored.Constraints
	}
	return stored.Itinerary, constraints, nil
}

// pool prefers the request's attractions, then the catalogue for the
// destination, then the stops of the itinerary itself.
func (s *SessionService) pool(ctx context.Context, itin *models.Itinerary, inline []models.Attraction) ([]models.Attraction, error) {
	if len(inline) > 0 {
		return inline, nil
	}
	if s.deps.POIs != nil {
		fetched, err := s.deps.POIs.Fetch(ctx, itin.DestinationCity, planning.POIFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to load session pool: %w", err)
		}
		if len(fetched) > 0 {
			return fetched, nil
		}
	}
	return PoolFromItinerary(itin), nil
}

// PoolFromItinerary rebuilds minimal attractions from the planned stops
func PoolFromItinerary(itin *models.Itinerary) []models.Attraction {
	seen := make(map[string]bool)
	var out []models.Attraction
	for _, day := range itin.Days {
		for _, rp := range day.RoutePoints {
			if rp.ActivityType != "" && rp.ActivityType != string(models.KindAttraction) {
				continue
			}
			if seen[rp.Name] {
				continue
			}
			seen[rp.Name] = true
			a := models.NewAttraction(rp.Name, rp.Lat, rp.Lon)
			a.City = itin.DestinationCity
			if rp.VisitDurationMinutes > 0 {
				a.VisitDurationMinutes = rp.VisitDurationMinutes
			}
			a.EntryCost = rp.EstimatedCost
			out = append(out, a)
		}
	}
	return out
}

func (s *SessionService) priorMemory(ctx context.Context, tripID string) (*memory.DisruptionMemory, error) {
	if s.deps.Memories == nil || tripID == "" {
		return memory.New(), nil
	}
	m, err := s.deps.Memories.Latest(ctx, tripID)
	if errs.IsNotFound(err) {
		return memory.New(), nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("Resuming disruption memory for trip %s: %d weather, %d traffic events",
		tripID, len(m.Weather), len(m.Traffic))
	return m, nil
}

// with runs fn while holding the session's own lock
func (s *SessionService) with(id string, fn func(*reoptimization.Session) error) error {
	s.mu.RLock()
	ms, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return errs.NotFound("session", id)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return fn(ms.session)
}

func result(sess *reoptimization.Session, plan *models.DayPlan) *SessionResult {
	return &SessionResult{Plan: plan, Pending: sess.Pending(), Advisories: sess.Advisories()}
}

// Summary returns the session snapshot
func (s *SessionService) Summary(id string) (*reoptimization.Summary, error) {
	var out reoptimization.Summary
	err := s.with(id, func(sess *reoptimization.Session) error {
		out = sess.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Advance records arrival at a stop
func (s *SessionService) Advance(ctx context.Context, id string, req reoptimization.AdvanceRequest) (*SessionResult, error) {
	_, span := tracer.Start(ctx, "session.Advance", trace.WithAttributes(
		attribute.String("session_id", id), attribute.String("stop", req.StopName)))
	defer span.End()

	var out *SessionResult
	err := s.with(id, func(sess *reoptimization.Session) error {
		plan, err := sess.AdvanceToStop(req)
		if err != nil {
			return err
		}
		out = result(sess, plan)
		return nil
	})
	return out, traced(span, err)
}

// CheckConditions evaluates live readings
func (s *SessionService) CheckConditions(ctx context.Context, id string, r reoptimization.Readings) (*SessionResult, error) {
	ctx, span := tracer.Start(ctx, "session.CheckConditions", trace.WithAttributes(attribute.String("session_id", id)))
	defer span.End()

	var out *SessionResult
	err := s.with(id, func(sess *reoptimization.Session) error {
		if _, err := sess.CheckConditions(ctx, r); err != nil {
			return err
		}
		out = result(sess, nil)
		return nil
	})
	return out, traced(span, err)
}

// Event applies one raw event
func (s *SessionService) Event(ctx context.Context, id string, in EventInput) (*SessionResult, error) {
	ctx, span := tracer.Start(ctx, "session.Event", trace.WithAttributes(
		attribute.String("session_id", id), attribute.String("event", in.Type)))
	defer span.End()

	et, err := reoptimization.ParseEventType(in.Type)
	if err != nil {
		return nil, traced(span, err)
	}

	var out *SessionResult
	err = s.with(id, func(sess *reoptimization.Session) error {
		plan, err := sess.Event(ctx, et, in.Payload)
		if err != nil {
			return err
		}
		out = result(sess, plan)
		return nil
	})
	return out, traced(span, err)
}

// Resolve answers the pending decision
func (s *SessionService) Resolve(ctx context.Context, id string, in ResolveInput) (*SessionResult, error) {
	ctx, span := tracer.Start(ctx, "session.Resolve", trace.WithAttributes(
		attribute.String("session_id", id), attribute.String("decision", in.Decision)))
	defer span.End()

	res, err := reoptimization.ParseResolution(in.Decision)
	if err != nil {
		return nil, traced(span, err)
	}

	var out *SessionResult
	err = s.with(id, func(sess *reoptimization.Session) error {
		plan, err := sess.ResolvePending(ctx, res, in.ActionIndex)
		if err != nil {
			return err
		}
		out = result(sess, plan)
		return nil
	})
	return out, traced(span, err)
}

// Memory exports the session's disruption memory and stores a copy
func (s *SessionService) Memory(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.with(id, func(sess *reoptimization.Session) error {
		var err error
		data, err = sess.Memory().Export()
		if err != nil {
			return err
		}
		if s.deps.Memories != nil {
			_, err = s.deps.Memories.Save(ctx, sess.TripID, sess.ID, sess.Memory())
		}
		return err
	})
	return data, err
}

// End closes a session and persists its disruption memory
func (s *SessionService) End(ctx context.Context, id string) (*ClosedSession, error) {
	s.mu.Lock()
	ms, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, errs.NotFound("session", id)
	}
	metrics.SessionClosed()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	sess := ms.session
	out := &ClosedSession{SessionID: sess.ID, TripID: sess.TripID, Summary: sess.Summary()}
	if s.deps.Memories != nil {
		memID, err := s.deps.Memories.Save(ctx, sess.TripID, sess.ID, sess.Memory())
		if err != nil {
			return nil, err
		}
		out.MemoryID = memID
	}
	log.Printf("Session %s closed for trip %s after %d replans", sess.ID, sess.TripID, out.Summary.ReplansTriggered)
	return out, nil
}

// Count reports the number of open sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func traced(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
