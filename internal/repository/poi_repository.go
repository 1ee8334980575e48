package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

const attractionColumns = `id, name, city, lat, lon, opening_hours, optimal_visit_time,
		rating, visit_duration_minutes, min_visit_duration_minutes, entry_cost, category,
		wheelchair_accessible, min_age, ticket_required, min_group_size, max_group_size,
		seasonal_open_months, is_outdoor, intensity_level, historical_importance`

// POIRepository handles database operations for attractions
type POIRepository struct {
	db       *sql.DB
	distance spatial.DistanceSource
}

var _ planning.PoiSource = (*POIRepository)(nil)

// NewPOIRepository creates a new attraction repository
func NewPOIRepository(db *sql.DB) *POIRepository {
	return &POIRepository{db: db, distance: spatial.S2Distance{}}
}

// Upsert inserts an attraction or updates the row with the same city and
// name. It returns the row id.
func (r *POIRepository) Upsert(ctx context.Context, a models.Attraction) (int64, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, errs.Validation("name", "must not be empty")
	}
	if a.Lat < -90 || a.Lat > 90 || a.Lon < -180 || a.Lon > 180 {
		return 0, errs.Validation("lat/lon", "out of range: %.6f,%.6f", a.Lat, a.Lon)
	}
	months, err := json.Marshal(nonNilInts(a.SeasonalOpenMonths))
	if err != nil {
		return 0, fmt.Errorf("failed to encode seasonal months: %w", err)
	}
	if a.IntensityLevel == "" {
		a.IntensityLevel = models.IntensityLow
	}

	query := `INSERT INTO attractions (name, city, lat, lon, geohash, opening_hours, optimal_visit_time,
		rating, visit_duration_minutes, min_visit_duration_minutes, entry_cost, category,
		wheelchair_accessible, min_age, ticket_required, min_group_size, max_group_size,
		seasonal_open_months, is_outdoor, intensity_level, historical_importance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(city, name) DO UPDATE SET
			lat = excluded.lat, lon = excluded.lon, geohash = excluded.geohash,
			opening_hours = excluded.opening_hours, optimal_visit_time = excluded.optimal_visit_time,
			rating = excluded.rating, visit_duration_minutes = excluded.visit_duration_minutes,
			min_visit_duration_minutes = excluded.min_visit_duration_minutes,
			entry_cost = excluded.entry_cost, category = excluded.category,
			wheelchair_accessible = excluded.wheelchair_accessible, min_age = excluded.min_age,
			ticket_required = excluded.ticket_required, min_group_size = excluded.min_group_size,
			max_group_size = excluded.max_group_size, seasonal_open_months = excluded.seasonal_open_months,
			is_outdoor = excluded.is_outdoor, intensity_level = excluded.intensity_level,
			historical_importance = excluded.historical_importance,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		a.Name, a.City, a.Lat, a.Lon, spatial.EncodeGeohash(a.Lat, a.Lon, spatial.AttractionGeohashPrecision),
		a.OpeningHours, a.OptimalVisitTime,
		a.Rating, a.VisitDurationMinutes, a.MinVisitDurationMinutes, a.EntryCost, a.Category,
		a.WheelchairAccessible, a.MinAge, a.TicketRequired, a.MinGroupSize, a.MaxGroupSize,
		string(months), a.IsOutdoor, a.IntensityLevel, a.HistoricalImportance,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert attraction %q: %w", a.Name, err)
	}
	return id, nil
}

// GetByID retrieves a single attraction
func (r *POIRepository) GetByID(ctx context.Context, id int64) (*models.Attraction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+attractionColumns+" FROM attractions WHERE id = ?", id)
	a, err := scanAttraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("attraction", fmt.Sprint(id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attraction: %w", err)
	}
	return &a, nil
}

// Fetch returns the attractions of a city that pass the filter, best rated
// first. An empty destination matches every city.
func (r *POIRepository) Fetch(ctx context.Context, destination string, filter planning.POIFilter) ([]models.Attraction, error) {
	query := "SELECT " + attractionColumns + " FROM attractions"

	var conditions []string
	var args []interface{}

	if destination != "" {
		conditions = append(conditions, "city = ? COLLATE NOCASE")
		args = append(args, destination)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}
	if filter.MinRating > 0 {
		conditions = append(conditions, "rating >= ?")
		args = append(args, filter.MinRating)
	}
	if filter.IndoorOnly {
		conditions = append(conditions, "is_outdoor = 0")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rating DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return r.query(ctx, query, args...)
}

// Nearby returns the attractions within radiusKm of (lat, lon), nearest first.
// Candidates are narrowed by geohash prefix before the exact distance check.
func (r *POIRepository) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.Attraction, error) {
	if radiusKm <= 0 {
		return nil, errs.Validation("radius_km", "must be positive, got %v", radiusKm)
	}

	cells := spatial.GeohashCover(lat, lon, radiusKm)
	conditions := make([]string, len(cells))
	args := make([]interface{}, len(cells))
	for i, c := range cells {
		conditions[i] = "geohash LIKE ?"
		args[i] = c + "%"
	}
	query := "SELECT " + attractionColumns + " FROM attractions WHERE " + strings.Join(conditions, " OR ")

	candidates, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	type hit struct {
		a  models.Attraction
		km float64
	}
	var hits []hit
	for _, a := range candidates {
		if km := r.distance.DistanceKm(lat, lon, a.Lat, a.Lon); km <= radiusKm {
			hits = append(hits, hit{a, km})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].km < hits[j].km })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]models.Attraction, len(hits))
	for i, h := range hits {
		out[i] = h.a
	}
	return out, nil
}

// Delete removes an attraction by id
func (r *POIRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attractions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete attraction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("attraction", fmt.Sprint(id))
	}
	return nil
}

func (r *POIRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Attraction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attractions: %w", err)
	}
	defer rows.Close()

	var out []models.Attraction
	for rows.Next() {
		a, err := scanAttraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attraction: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attractions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttraction(row rowScanner) (models.Attraction, error) {
	var a models.Attraction
	var months string
	err := row.Scan(
		&a.ID, &a.Name, &a.City, &a.Lat, &a.Lon, &a.OpeningHours, &a.OptimalVisitTime,
		&a.Rating, &a.VisitDurationMinutes, &a.MinVisitDurationMinutes, &a.EntryCost, &a.Category,
		&a.WheelchairAccessible, &a.MinAge, &a.TicketRequired, &a.MinGroupSize, &a.MaxGroupSize,
		&months, &a.IsOutdoor, &a.IntensityLevel, &a.HistoricalImportance,
	)
	if err != nil {
		return a, err
	}
	if months != "" {
		if err := json.Unmarshal([]byte(months), &a.SeasonalOpenMonths); err != nil {
			return a, fmt.Errorf("failed to decode seasonal months: %w", err)
		}
		if len(a.SeasonalOpenMonths) == 0 {
			a.SeasonalOpenMonths = nil
		}
	}
	return a, nil
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
