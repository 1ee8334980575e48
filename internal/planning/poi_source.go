package planning

import (
	"context"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// POIFilter narrows the attractions fetched for a destination
type POIFilter struct {
	Category   string  `json:"category,omitempty" yaml:"category" form:"category"`
	MinRating  float64 `json:"min_rating,omitempty" yaml:"min_rating" form:"min_rating"`
	IndoorOnly bool    `json:"indoor_only,omitempty" yaml:"indoor_only" form:"indoor_only"`
	Limit      int     `json:"limit,omitempty" yaml:"limit" form:"limit"`
}

// Matches reports whether a passes every set field of the filter.
func (f POIFilter) Matches(a models.Attraction) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, a.Category) {
		return false
	}
	if f.MinRating > 0 && a.Rating < f.MinRating {
		return false
	}
	if f.IndoorOnly && a.IsOutdoor {
		return false
	}
	return true
}

// PoiSource fetches candidate attractions for a destination
type PoiSource interface {
	Fetch(ctx context.Context, destination string, filter POIFilter) ([]models.Attraction, error)
}

// StaticSource serves a fixed slice of attractions
type StaticSource []models.Attraction

// Fetch returns the attractions in the destination city that pass the filter.
// Records without a city match every destination.
func (s StaticSource) Fetch(ctx context.Context, destination string, filter POIFilter) ([]models.Attraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.Attraction
	for _, a := range s {
		if destination != "" && a.City != "" && !strings.EqualFold(a.City, destination) {
			continue
		}
		if !filter.Matches(a) {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
