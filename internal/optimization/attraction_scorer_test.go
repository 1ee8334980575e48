package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// planeDistance treats one degree of longitude as one kilometer.
type planeDistance struct{}

func (planeDistance) DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dx := lon2 - lon1
	dy := lat2 - lat1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// oneKmPerMinute makes travel minutes equal to plane kilometers.
var oneKmPerMinute = spatial.NewTravelTime(planeDistance{}, 60)

func TestNewAttractionScorerRejectsBadWeights(t *testing.T) {
	_, err := NewAttractionScorer(models.ConstraintBundle{}, WithWeights([]float64{0.5, 0.5}))
	assert.True(t, errs.IsValidation(err))

	_, err = NewAttractionScorer(models.ConstraintBundle{}, WithWeights([]float64{0.5, 0.5, 0.5, 0, 0}))
	assert.True(t, errs.IsValidation(err))
}

func TestScoreAllOrdersFeasibleByEta(t *testing.T) {
	scorer, err := NewAttractionScorer(models.ConstraintBundle{
		Soft: models.SoftConstraints{Interests: []string{"museum"}},
	}, WithTravelTime(oneKmPerMinute))
	require.NoError(t, err)

	near := models.NewAttraction("Near Museum", 0, 5)
	near.Category = "museum"
	far := models.NewAttraction("Far Museum", 0, 40)
	far.Category = "museum"
	closed := models.NewAttraction("Closed Park", 0, 1)
	closed.OpeningHours = "18:00-20:00"

	results := scorer.ScoreAll([]models.Attraction{far, closed, near}, 0, 0, models.ClockAt(9, 0), models.ClockAt(17, 0), false)
	require.Len(t, results, 3)

	assert.Equal(t, "Near Museum", results[0].Attraction.Name)
	assert.Equal(t, "Far Museum", results[1].Attraction.Name)
	assert.Equal(t, "Closed Park", results[2].Attraction.Name)
	assert.False(t, results[2].Feasible)
	assert.Equal(t, 0.0, results[2].S)
	assert.Equal(t, 0.0, results[2].Eta)
	assert.InDelta(t, 5.0, results[0].TravelMinutes, 1e-9)
	assert.Greater(t, results[0].Eta, results[1].Eta)
}

func TestScoreOneSoftBreakdown(t *testing.T) {
	scorer, err := NewAttractionScorer(models.ConstraintBundle{}, WithTravelTime(oneKmPerMinute))
	require.NoError(t, err)

	a := models.NewAttraction("Lookout", 0, 10)
	a.OptimalVisitTime = "08:00-10:00"
	a.IsOutdoor = true

	// 480 minute day, nothing used, 10 minute walk, 60 minute visit
	res := scorer.ScoreOne(a, 0, 0, models.ClockAt(9, 0), 0, 480, false)
	require.Len(t, res.SoftScores, 5)
	assert.Equal(t, 1.0, res.SoftScores[0])
	assert.InDelta(t, (480.0-70.0)/480.0, res.SoftScores[1], 1e-9)
	assert.Equal(t, 0.5, res.SoftScores[2])
	assert.Equal(t, 0.8, res.SoftScores[3])
	assert.Equal(t, 1.0, res.SoftScores[4])

	want := 0.25*1.0 + 0.20*(410.0/480.0) + 0.30*0.5 + 0.15*0.8 + 0.10*1.0
	assert.InDelta(t, want, res.S, 1e-9)
	assert.InDelta(t, want/10.0, res.Eta, 1e-9)
}

func TestInterestScore(t *testing.T) {
	a := models.Attraction{Category: "Art Museum"}
	assert.Equal(t, 0.5, InterestScore(a, nil))
	assert.Equal(t, 1.0, InterestScore(a, []string{"museum"}))
	assert.Equal(t, 0.2, InterestScore(a, []string{"food"}))
	assert.Equal(t, 0.2, InterestScore(models.Attraction{}, []string{"food"}))
}

func TestCrowdEnergyScore(t *testing.T) {
	outdoorHigh := models.Attraction{IsOutdoor: true, IntensityLevel: models.IntensityHigh}
	indoorMedium := models.Attraction{IntensityLevel: models.IntensityMedium}
	noon := models.ClockAt(12, 0)
	morning := models.ClockAt(8, 0)

	tests := []struct {
		name     string
		a        models.Attraction
		at       models.Clock
		soft     models.SoftConstraints
		boundary bool
		want     float64
	}{
		{"no preferences", outdoorHigh, noon, models.SoftConstraints{}, false, 1.0},
		{"crowded outdoor midday", outdoorHigh, noon, models.SoftConstraints{AvoidCrowds: true}, false, 0.3},
		{"quiet outdoor morning", outdoorHigh, morning, models.SoftConstraints{AvoidCrowds: true}, false, 1.0},
		{"indoor crowd", indoorMedium, noon, models.SoftConstraints{AvoidCrowds: true}, false, 0.7},
		{"heavy on boundary day", outdoorHigh, morning, models.SoftConstraints{HeavyTravelPenalty: true}, true, 0.1},
		{"medium on boundary day", indoorMedium, morning, models.SoftConstraints{HeavyTravelPenalty: true}, true, 0.5},
		{"heavy on middle day", outdoorHigh, morning, models.SoftConstraints{HeavyTravelPenalty: true}, false, 1.0},
		{"relaxed pace", outdoorHigh, morning, models.SoftConstraints{PacePreference: models.PaceRelaxed}, false, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CrowdEnergyScore(tt.a, tt.at, tt.soft, tt.boundary))
		})
	}
}

func TestTimeOfDayPreference(t *testing.T) {
	a := models.Attraction{}
	soft := models.SoftConstraints{PreferredTimeOfDay: "afternoon"}
	assert.Equal(t, 1.0, timeOfDayScore(a, models.ClockAt(13, 0), soft))
	assert.Equal(t, 0.2, timeOfDayScore(a, models.ClockAt(9, 0), soft))

	soft.PreferredTimeOfDay = "Evening"
	assert.Equal(t, 1.0, timeOfDayScore(a, models.ClockAt(18, 30), soft))
	assert.Equal(t, 0.5, timeOfDayScore(a, models.ClockAt(18, 30), models.SoftConstraints{}))
}

func TestEnergyAdjustmentReplacesSC5(t *testing.T) {
	scorer, err := NewAttractionScorer(models.ConstraintBundle{},
		WithTravelTime(oneKmPerMinute),
		WithEnergyAdjustment(func(a models.Attraction, base float64) float64 { return 0 }),
	)
	require.NoError(t, err)

	res := scorer.ScoreOne(models.NewAttraction("X", 0, 1), 0, 0, models.ClockAt(9, 0), 0, 480, false)
	assert.Equal(t, 0.0, res.SoftScores[4])
}
