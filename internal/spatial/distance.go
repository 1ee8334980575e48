package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// DistanceSource computes the great-circle distance between two coordinates
type DistanceSource interface {
	DistanceKm(lat1, lon1, lat2, lon2 float64) float64
}

// S2Distance is the default DistanceSource backed by the S2 geometry library
type S2Distance struct{}

// DistanceKm returns the great-circle distance in kilometers
func (S2Distance) DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineDistance(lat1, lon1, lat2, lon2) / 1000.0
}

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// TravelMinutes converts a distance into travel time at an average speed.
// A non-positive speed yields +Inf so the leg is treated as unreachable.
func TravelMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return math.Inf(1)
	}
	return distanceKm / speedKmh * 60.0
}

// TravelTime combines a DistanceSource with a fixed average speed
type TravelTime struct {
	Source   DistanceSource
	SpeedKmh float64
}

// NewTravelTime creates a travel-time estimator; a nil source falls back to S2Distance
func NewTravelTime(source DistanceSource, speedKmh float64) TravelTime {
	if source == nil {
		source = S2Distance{}
	}
	return TravelTime{Source: source, SpeedKmh: speedKmh}
}

// Minutes returns the travel time between two coordinates
func (t TravelTime) Minutes(lat1, lon1, lat2, lon2 float64) float64 {
	return TravelMinutes(t.Source.DistanceKm(lat1, lon1, lat2, lon2), t.SpeedKmh)
}

// FlooredMinutes returns travel minutes rounded down, never less than one
func (t TravelTime) FlooredMinutes(lat1, lon1, lat2, lon2 float64) int {
	m := int(t.Minutes(lat1, lon1, lat2, lon2))
	if m < 1 {
		return 1
	}
	return m
}

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// Default average speeds in km/h
const (
	UrbanSpeedKmh   = 30.0
	WalkingSpeedKmh = 5.0
)
