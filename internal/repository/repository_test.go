package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/database"
	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/memory"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func lisbon(name string, lat, lon, rating float64) models.Attraction {
	a := models.NewAttraction(name, lat, lon)
	a.City = "Lisbon"
	a.Rating = rating
	a.Category = "museum"
	return a
}

func seedLisbon(t *testing.T, repo *POIRepository) {
	t.Helper()
	ctx := context.Background()
	castle := lisbon("Castelo de São Jorge", 38.7139, -9.1335, 4.6)
	castle.Category = "landmark"
	castle.IsOutdoor = true
	castle.SeasonalOpenMonths = []int{4, 5, 6, 7, 8, 9}
	for _, a := range []models.Attraction{
		castle,
		lisbon("MAAT", 38.6957, -9.1934, 4.3),
		lisbon("Gulbenkian", 38.7372, -9.1545, 4.8),
		lisbon("Tile Museum", 38.7247, -9.1137, 4.5),
	} {
		_, err := repo.Upsert(ctx, a)
		require.NoError(t, err)
	}
	porto := models.NewAttraction("Livraria Lello", 41.1469, -8.6148)
	porto.City = "Porto"
	porto.Rating = 4.4
	_, err := repo.Upsert(ctx, porto)
	require.NoError(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, database.NewMigrationManager(db, nil).RunMigrations())

	applied, err := database.NewMigrationManager(db, nil).GetAppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, applied)
}

func TestPOIRepositoryFetch(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedLisbon(t, repo)
	ctx := context.Background()

	all, err := repo.Fetch(ctx, "lisbon", planning.POIFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Gulbenkian", all[0].Name)

	indoor, err := repo.Fetch(ctx, "Lisbon", planning.POIFilter{IndoorOnly: true, MinRating: 4.4})
	require.NoError(t, err)
	assert.Len(t, indoor, 2)

	top, err := repo.Fetch(ctx, "Lisbon", planning.POIFilter{Category: "Landmark", Limit: 1})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9}, top[0].SeasonalOpenMonths)
	assert.True(t, top[0].IsOutdoor)
	assert.True(t, top[0].WheelchairAccessible)
	assert.Equal(t, 999, top[0].MaxGroupSize)

	everywhere, err := repo.Fetch(ctx, "", planning.POIFilter{})
	require.NoError(t, err)
	assert.Len(t, everywhere, 5)
}

func TestPOIRepositoryUpsertUpdatesExisting(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	ctx := context.Background()

	a := lisbon("MAAT", 38.6957, -9.1934, 4.3)
	id, err := repo.Upsert(ctx, a)
	require.NoError(t, err)

	a.EntryCost = 11
	id2, err := repo.Upsert(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 11.0, got.EntryCost)
	assert.Nil(t, got.SeasonalOpenMonths)
}

func TestPOIRepositoryValidation(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	_, err := repo.Upsert(context.Background(), models.NewAttraction(" ", 0, 0))
	assert.True(t, errs.IsValidation(err))

	_, err = repo.Upsert(context.Background(), models.NewAttraction("Nowhere", 95, 0))
	assert.True(t, errs.IsValidation(err))
}

func TestPOIRepositoryNotFound(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	_, err := repo.GetByID(context.Background(), 42)
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsNotFound(repo.Delete(context.Background(), 42)))
}

func TestPOIRepositoryNearby(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedLisbon(t, repo)
	ctx := context.Background()

	// Praça do Comércio
	near, err := repo.Nearby(ctx, 38.7075, -9.1364, 3, 0)
	require.NoError(t, err)
	names := make([]string, len(near))
	for i, a := range near {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Castelo de São Jorge", "Tile Museum"}, names)

	one, err := repo.Nearby(ctx, 38.7075, -9.1364, 3, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = repo.Nearby(ctx, 38.7075, -9.1364, 0, 0)
	assert.True(t, errs.IsValidation(err))
}

func TestItineraryRepositoryRoundTrip(t *testing.T) {
	repo := NewItineraryRepository(openTestDB(t))
	ctx := context.Background()

	it := &models.Itinerary{
		TripID:          "trip-1",
		DestinationCity: "Lisbon",
		Days: []models.DayPlan{{
			DayNumber: 1,
			RoutePoints: []models.RoutePoint{{
				Sequence: 1, Name: "MAAT", ArrivalTime: models.ClockAt(9, 15), DepartureTime: models.ClockAt(10, 45),
				VisitDurationMinutes: 90, ActivityType: "attraction", EstimatedCost: 11,
			}},
			DailyBudgetUsed: 11,
		}},
		TotalActualCost: 11,
		GeneratedAt:     time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	bundle := models.ConstraintBundle{Hard: models.HardConstraints{DestinationCity: "Lisbon", NumAdults: 2}}
	require.NoError(t, repo.Save(ctx, it, bundle))

	got, err := repo.Get(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, it.Days, got.Itinerary.Days)
	assert.True(t, it.GeneratedAt.Equal(got.Itinerary.GeneratedAt))
	assert.Equal(t, 2, got.Constraints.Hard.NumAdults)

	it.TotalActualCost = 20
	require.NoError(t, repo.Save(ctx, it, bundle))
	list, err := repo.List(ctx, "lisbon", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 20.0, list[0].TotalActualCost)
	assert.Equal(t, 1, list[0].NumDays)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsValidation(repo.Save(ctx, &models.Itinerary{}, bundle)))
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Latest(ctx, "trip-1")
	assert.True(t, errs.IsNotFound(err))

	m := memory.New()
	m.RecordWeather(memory.WeatherRecord{Condition: "rainy", Severity: 0.65, Threshold: 0.4, Accepted: true})
	m.RecordReplacement(memory.ReplacementRecord{Original: "Park", Replacement: "Museum", Reason: "weather"})
	_, err = repo.Save(ctx, "trip-1", "s-1", m)
	require.NoError(t, err)

	m.RecordTraffic(memory.TrafficRecord{TrafficLevel: 0.8, DelayMinutes: 30, Accepted: true})
	_, err = repo.Save(ctx, "trip-1", "s-2", m)
	require.NoError(t, err)

	latest, err := repo.Latest(ctx, "trip-1")
	require.NoError(t, err)
	assert.Len(t, latest.Weather, 1)
	assert.Len(t, latest.Traffic, 1)
	assert.Equal(t, "Museum", latest.Replacements[0].Replacement)

	records, err := repo.ListByTrip(ctx, "trip-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s-1", records[0].SessionID)
	assert.Equal(t, 0, records[0].TrafficEvents)
	assert.Equal(t, 1, records[1].TrafficEvents)
	assert.NotEmpty(t, records[1].CreatedAt)

	_, err = repo.Save(ctx, "trip-1", "s-3", nil)
	assert.True(t, errs.IsValidation(err))
}
