package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/database"
	"github.com/jengzang/itinerary-backend-go/internal/middleware"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Open(database.InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	app, err := NewApp(cfg, db)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", ACOSeed: 3}
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" && w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func attraction(name string, lat float64) gin.H {
	return gin.H{
		"name": name, "city": "Lisbon", "lat": lat, "lon": -9.14, "rating": 4.5,
		"visit_duration_minutes": 60, "min_visit_duration_minutes": 15, "entry_cost": 5,
		"category": "museum", "wheelchair_accessible": true, "min_group_size": 1, "max_group_size": 50,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, testConfig())

	w, _ := do(t, app.Router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w, _ = do(t, app.Router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "itinerary_session_active")
}

func TestAttractionsEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig())

	w, env := do(t, app.Router, http.MethodPost, "/api/v1/attractions", attraction("Gulbenkian", 38.737))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 0, env.Code)

	w, _ = do(t, app.Router, http.MethodPost, "/api/v1/attractions", gin.H{"name": "", "lat": 1, "lon": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, app.Router, http.MethodGet, "/api/v1/attractions?city=Lisbon", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)

	w, _ = do(t, app.Router, http.MethodGet, "/api/v1/attractions/nearby?lat=38.737&lon=-9.14", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, app.Router, http.MethodGet, "/api/v1/attractions/nearby?lat=138&lon=-9.14", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func generate(t *testing.T, app *App) string {
	t.Helper()
	body := gin.H{
		"constraints":  gin.H{"hard": gin.H{"destination_city": "Lisbon", "num_adults": 2}},
		"attractions":  []gin.H{attraction("A", 38.700), attraction("B", 38.704), attraction("C", 38.708)},
		"total_budget": 800,
		"start_date":   "2026-05-04",
		"end_date":     "2026-05-04",
		"start_lat":    38.70,
		"start_lon":    -9.14,
	}
	w, env := do(t, app.Router, http.MethodPost, "/api/v1/itineraries", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var it struct {
		TripID string `json:"trip_id"`
		Days   []struct {
			RoutePoints []struct {
				Name string `json:"name"`
			} `json:"route_points"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &it))
	require.Len(t, it.Days, 1)
	assert.NotEmpty(t, it.Days[0].RoutePoints)
	return it.TripID
}

func TestItineraryEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig())
	tripID := generate(t, app)

	w, _ := do(t, app.Router, http.MethodGet, "/api/v1/itineraries/"+tripID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, app.Router, http.MethodGet, "/api/v1/itineraries/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, env.Code)

	w, _ = do(t, app.Router, http.MethodPost, "/api/v1/itineraries", gin.H{"start_date": "2026-05-04"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, app.Router, http.MethodPost, "/api/v1/itineraries", gin.H{"start_date": "2026-05-06", "end_date": "2026-05-04"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, app.Router, http.MethodGet, "/api/v1/itineraries?city=Lisbon", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig())
	tripID := generate(t, app)

	w, env := do(t, app.Router, http.MethodPost, "/api/v1/sessions", gin.H{"trip_id": tripID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var summary struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	base := "/api/v1/sessions/" + summary.SessionID

	w, _ = do(t, app.Router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, app.Router, http.MethodPost, base+"/events", gin.H{"event_type": "user_skip", "payload": gin.H{"stop_name": "A"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "pending_decision")

	w, _ = do(t, app.Router, http.MethodPost, base+"/resolve", gin.H{"decision": "REJECT"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, app.Router, http.MethodPost, base+"/resolve", gin.H{"decision": "APPROVE"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, app.Router, http.MethodPost, base+"/events", gin.H{"event_type": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, app.Router, http.MethodPost, base+"/conditions", gin.H{"crowd_level": 0.1})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, app.Router, http.MethodPost, base+"/advance", gin.H{"stop_name": "A", "arrival_time": "09:30", "cost": 5})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = do(t, app.Router, http.MethodPost, base+"/advance", gin.H{"cost": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, app.Router, http.MethodGet, base+"/memory", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "replacements")

	w, _ = do(t, app.Router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, app.Router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplaceRejectionIsUnprocessable(t *testing.T) {
	app := newTestApp(t, testConfig())
	tripID := generate(t, app)

	_, env := do(t, app.Router, http.MethodPost, "/api/v1/sessions", gin.H{"trip_id": tripID})
	var summary struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	base := "/api/v1/sessions/" + summary.SessionID

	closed := attraction("Night Club", 38.701)
	closed["opening_hours"] = "23:00-23:30"
	w, _ := do(t, app.Router, http.MethodPost, base+"/events", gin.H{"event_type": "user_replace_poi", "payload": gin.H{"attraction": closed}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = do(t, app.Router, http.MethodPost, base+"/resolve", gin.H{"decision": "APPROVE"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, env.Message, "hard constraint")
}

func TestAuthEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = true
	app := newTestApp(t, cfg)

	w, _ := do(t, app.Router, http.MethodGet, "/api/v1/attractions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := middleware.IssueToken(cfg.JWTSecret, "traveler", time.Hour)
	require.NoError(t, err)
	w, _ = do(t, app.Router, http.MethodGet, "/api/v1/attractions", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, app.Router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitApplies(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	app := newTestApp(t, cfg)

	for i := 0; i < 2; i++ {
		w, _ := do(t, app.Router, http.MethodGet, "/api/v1/attractions", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := do(t, app.Router, http.MethodGet, "/api/v1/attractions", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
