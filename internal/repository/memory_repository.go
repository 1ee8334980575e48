package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/memory"
)

// MemoryRecord is one persisted disruption-memory export
type MemoryRecord struct {
	ID            int64  `json:"id"`
	TripID        string `json:"trip_id"`
	SessionID     string `json:"session_id"`
	WeatherEvents int    `json:"weather_events"`
	TrafficEvents int    `json:"traffic_events"`
	Replacements  int    `json:"replacements"`
	CreatedAt     string `json:"created_at"`
}

// MemoryRepository persists disruption memory exports per trip
type MemoryRepository struct {
	db *sql.DB
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *sql.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Save stores the export of m for a trip session and returns the row id
func (r *MemoryRepository) Save(ctx context.Context, tripID, sessionID string, m *memory.DisruptionMemory) (int64, error) {
	if m == nil {
		return 0, errs.Validation("memory", "must not be nil")
	}
	payload, err := m.Export()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO disruption_memory (trip_id, session_id, payload, weather_events, traffic_events, replacements)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tripID, sessionID, string(payload), len(m.Weather), len(m.Traffic), len(m.Replacements),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save disruption memory: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the most recently saved memory for a trip
func (r *MemoryRepository) Latest(ctx context.Context, tripID string) (*memory.DisruptionMemory, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT payload FROM disruption_memory WHERE trip_id = ? ORDER BY id DESC LIMIT 1", tripID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("disruption memory", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disruption memory: %w", err)
	}
	return memory.Import([]byte(payload))
}

// ListByTrip returns every saved export for a trip, oldest first
func (r *MemoryRepository) ListByTrip(ctx context.Context, tripID string) ([]MemoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, session_id, weather_events, traffic_events, replacements, created_at
		FROM disruption_memory WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query disruption memory: %w", err)
	}
	defer rows.Close()

	out := []MemoryRecord{}
	for rows.Next() {
		var rec MemoryRecord
		var created sql.NullString
		if err := rows.Scan(&rec.ID, &rec.TripID, &rec.SessionID, &rec.WeatherEvents,
			&rec.TrafficEvents, &rec.Replacements, &created); err != nil {
			return nil, fmt.Errorf("failed to scan disruption memory: %w", err)
		}
		rec.CreatedAt = created.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
