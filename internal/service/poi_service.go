package service

import (
	"context"

	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/repository"
)

// POIService handles business logic for the attraction catalogue
type POIService struct {
	repo *repository.POIRepository
}

// NewPOIService creates a new attraction service
func NewPOIService(repo *repository.POIRepository) *POIService {
	return &POIService{repo: repo}
}

// List returns the attractions of a city
func (s *POIService) List(ctx context.Context, city string, filter planning.POIFilter) ([]models.Attraction, error) {
	out, err := s.repo.Fetch(ctx, city, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Attraction{}
	}
	return out, nil
}

// Save creates or updates an attraction and returns the stored record
func (s *POIService) Save(ctx context.Context, a models.Attraction) (*models.Attraction, error) {
	id, err := s.repo.Upsert(ctx, a)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Nearby returns attractions within radiusKm, nearest first
func (s *POIService) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.Attraction, error) {
	out, err := s.repo.Nearby(ctx, lat, lon, radiusKm, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Attraction{}
	}
	return out, nil
}
