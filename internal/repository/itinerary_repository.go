package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// StoredItinerary is a persisted plan together with the constraints it was
// generated for
type StoredItinerary struct {
	Itinerary   *models.Itinerary       `json:"itinerary"`
	Constraints models.ConstraintBundle `json:"constraints"`
}

// ItinerarySummary is the list view of a stored itinerary
type ItinerarySummary struct {
	TripID          string  `json:"trip_id"`
	DestinationCity string  `json:"destination_city"`
	NumDays         int     `json:"num_days"`
	TotalActualCost float64 `json:"total_actual_cost"`
	GeneratedAt     string  `json:"generated_at"`
}

// ItineraryRepository handles database operations for generated itineraries
type ItineraryRepository struct {
	db *sql.DB
}

// NewItineraryRepository creates a new itinerary repository
func NewItineraryRepository(db *sql.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

// Save stores an itinerary, replacing any earlier version with the same trip id
func (r *ItineraryRepository) Save(ctx context.Context, it *models.Itinerary, constraints models.ConstraintBundle) error {
	if it == nil || it.TripID == "" {
		return errs.Validation("trip_id", "itinerary must carry a trip id")
	}

	plan, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode itinerary: %w", err)
	}
	cons, err := json.Marshal(constraints)
	if err != nil {
		return fmt.Errorf("failed to encode constraints: %w", err)
	}

	query := `INSERT INTO itineraries (trip_id, destination_city, num_days, total_actual_cost,
		plan_json, constraints_json, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trip_id) DO UPDATE SET
			destination_city = excluded.destination_city, num_days = excluded.num_days,
			total_actual_cost = excluded.total_actual_cost, plan_json = excluded.plan_json,
			constraints_json = excluded.constraints_json, generated_at = excluded.generated_at`

	_, err = r.db.ExecContext(ctx, query,
		it.TripID, it.DestinationCity, len(it.Days), it.TotalActualCost,
		string(plan), string(cons), it.GeneratedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save itinerary %s: %w", it.TripID, err)
	}
	return nil
}

// Get loads a stored itinerary by trip id
func (r *ItineraryRepository) Get(ctx context.Context, tripID string) (*StoredItinerary, error) {
	var plan, cons string
	err := r.db.QueryRowContext(ctx,
		"SELECT plan_json, constraints_json FROM itineraries WHERE trip_id = ?", tripID,
	).Scan(&plan, &cons)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("itinerary", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}

	stored := &StoredItinerary{Itinerary: &models.Itinerary{}}
	if err := json.Unmarshal([]byte(plan), stored.Itinerary); err != nil {
		return nil, fmt.Errorf("failed to decode itinerary %s: %w", tripID, err)
	}
	if err := json.Unmarshal([]byte(cons), &stored.Constraints); err != nil {
		return nil, fmt.Errorf("failed to decode constraints %s: %w", tripID, err)
	}
	return stored, nil
}

// List returns the most recent itineraries, optionally for one city
func (r *ItineraryRepository) List(ctx context.Context, city string, limit int) ([]ItinerarySummary, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT trip_id, destination_city, num_days, total_actual_cost, generated_at
		FROM itineraries`
	var args []interface{}
	if city != "" {
		query += " WHERE destination_city = ? COLLATE NOCASE"
		args = append(args, city)
	}
	query += " ORDER BY generated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query itineraries: %w", err)
	}
	defer rows.Close()

	out := []ItinerarySummary{}
	for rows.Next() {
		var s ItinerarySummary
		if err := rows.Scan(&s.TripID, &s.DestinationCity, &s.NumDays, &s.TotalActualCost, &s.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
