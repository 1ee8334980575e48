package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/metrics"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/repository"
)

var tracer = otel.Tracer("itinerary-backend-go/service")

// GenerateInput is the itinerary request accepted by the API and the CLI
type GenerateInput struct {
	Constraints models.ConstraintBundle `json:"constraints" yaml:"constraints"`
	Attractions []models.Attraction     `json:"attractions,omitempty" yaml:"attractions"`
	Filter      planning.POIFilter      `json:"filter" yaml:"filter"`
	TotalBudget float64                 `json:"total_budget" yaml:"total_budget" binding:"gte=0"`
	StartDate   string                  `json:"start_date" yaml:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate     string                  `json:"end_date" yaml:"end_date" binding:"required"`
	StartLat    float64                 `json:"start_lat" yaml:"start_lat" binding:"gte=-90,lte=90"`
	StartLon    float64                 `json:"start_lon" yaml:"start_lon" binding:"gte=-180,lte=180"`
}

// PlanningRequest parses the dates and builds the planner request
func (in GenerateInput) PlanningRequest() (planning.GenerateRequest, error) {
	start, err := time.Parse(models.DateLayout, strings.TrimSpace(in.StartDate))
	if err != nil {
		return planning.GenerateRequest{}, errs.Validation("start_date", "expected YYYY-MM-DD, got %q", in.StartDate)
	}
	end, err := time.Parse(models.DateLayout, strings.TrimSpace(in.EndDate))
	if err != nil {
		return planning.GenerateRequest{}, errs.Validation("end_date", "expected YYYY-MM-DD, got %q", in.EndDate)
	}
	if in.TotalBudget < 0 {
		return planning.GenerateRequest{}, errs.Validation("total_budget", "must not be negative")
	}

	cons := in.Constraints
	cons.Hard.DepartureDate = start
	cons.Hard.ReturnDate = end
	return planning.GenerateRequest{
		Constraints: cons,
		Attractions: in.Attractions,
		Filter:      in.Filter,
		TotalBudget: in.TotalBudget,
		StartDate:   start,
		EndDate:     end,
		StartLat:    in.StartLat,
		StartLon:    in.StartLon,
	}, nil
}

// ItineraryService generates and stores itineraries
type ItineraryService struct {
	planner *planning.RoutePlanner
	repo    *repository.ItineraryRepository
}

// NewItineraryService creates a new itinerary service. repo may be nil for
// offline use, in which case nothing is persisted.
func NewItineraryService(planner *planning.RoutePlanner, repo *repository.ItineraryRepository) *ItineraryService {
	return &ItineraryService{planner: planner, repo: repo}
}

// Generate plans the trip and persists the result
func (s *ItineraryService) Generate(ctx context.Context, in GenerateInput) (*models.Itinerary, error) {
	ctx, span := tracer.Start(ctx, "itinerary.Generate",
		trace.WithAttributes(
			attribute.String("destination", in.Constraints.Hard.DestinationCity),
			attribute.Int("inline_attractions", len(in.Attractions)),
		),
	)
	defer span.End()

	req, err := in.PlanningRequest()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	it, err := s.planner.Generate(ctx, req)
	if err != nil {
		metrics.RecordItinerary("error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.RecordItinerary("success", time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("trip_id", it.TripID),
		attribute.Int("days", len(it.Days)),
		attribute.Float64("total_cost", it.TotalActualCost),
	)

	if s.repo != nil {
		if err := s.repo.Save(ctx, it, req.Constraints); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
			return nil, err
		}
	}
	span.SetStatus(codes.Ok, "")
	return it, nil
}

// Get loads a stored itinerary
func (s *ItineraryService) Get(ctx context.Context, tripID string) (*repository.StoredItinerary, error) {
	if s.repo == nil {
		return nil, errs.Configuration("itinerary", "no itinerary store configured")
	}
	return s.repo.Get(ctx, tripID)
}

// List returns stored itineraries, newest first
func (s *ItineraryService) List(ctx context.Context, city string, limit int) ([]repository.ItinerarySummary, error) {
	if s.repo == nil {
		return nil, errs.Configuration("itinerary", "no itinerary store configured")
	}
	return s.repo.List(ctx, city, limit)
}
