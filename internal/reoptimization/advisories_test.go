package reoptimization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/insight"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

func TestWeatherBlocksSensitiveStopsWhenUnsafe(t *testing.T) {
	w := NewWeatherAdvisor(testStrategy(), gridDistance{})
	garden := stop("Botanic Garden", 2)
	garden.Category = "garden"

	adv := w.Classify(WeatherInput{
		Condition:        "thunderstorm",
		Threshold:        0.4,
		Pool:             []models.Attraction{outdoor("Park", 1), garden, stop("Museum", 3)},
		RemainingMinutes: 300,
	})

	assert.Equal(t, 0.9, adv.Severity)
	assert.Equal(t, []string{"Park", "Botanic Garden"}, adv.BlockedNames())
	assert.Empty(t, adv.Deferred)
	require.Len(t, adv.Alternatives, 1)
	assert.Equal(t, "Museum", adv.Alternatives[0].Attraction.Name)
	assert.InDelta(t, 45.0, adv.Alternatives[0].Dij, 1e-9)
	assert.Contains(t, adv.Message, "blocked")
}

func TestWeatherShortensRiskyVisits(t *testing.T) {
	w := NewWeatherAdvisor(testStrategy(), gridDistance{})
	park := outdoor("Park", 1)
	park.VisitDurationMinutes = 100
	short := outdoor("Pier", 2)
	short.VisitDurationMinutes = 16

	adv := w.Classify(WeatherInput{Condition: "rainy", Pool: []models.Attraction{park, short}, RemainingMinutes: 300})

	assert.Empty(t, adv.Blocked)
	require.Len(t, adv.Deferred, 2)
	assert.Equal(t, 75, adv.DurationAdjustments["Park"])
	assert.Equal(t, 15, adv.DurationAdjustments["Pier"])
	assert.Equal(t, 1, adv.Deferred[0].HCOverride)
	assert.Empty(t, adv.Alternatives)
}

func TestWeatherUnknownConditionUsesFallback(t *testing.T) {
	w := NewWeatherAdvisor(testStrategy(), gridDistance{})
	adv := w.Classify(WeatherInput{Condition: "volcanic ash", Pool: []models.Attraction{stop("Museum", 1)}, RemainingMinutes: 300})
	assert.Equal(t, 0.5, adv.Severity)
	assert.Contains(t, adv.Message, "No outdoor stops affected")
}

func TestTrafficDefersHighValueAndReplacesTheRest(t *testing.T) {
	a := NewTrafficAdvisor(testStrategy(), gridDistance{})
	near := stop("Near", 1)
	star := stop("Star", 30)
	star.Rating = 5
	dull := stop("Dull", 40)
	dull.Rating = 2

	adv := a.Assess(TrafficInput{
		TrafficLevel:     0.5,
		Threshold:        0.3,
		DelayMinutes:     25,
		Pool:             []models.Attraction{near, star, dull},
		RemainingMinutes: 120,
	})

	assert.InDelta(t, 1.5, adv.DelayFactor, 1e-9)
	require.Len(t, adv.Feasibility, 3)
	assert.Equal(t, TrafficKeep, adv.Feasibility[0].Action)
	assert.Equal(t, []string{"Star"}, feasibilityNames(adv.Deferred))
	assert.Equal(t, []string{"Dull"}, feasibilityNames(adv.Replaced))
	require.Len(t, adv.Alternatives, 1)
	assert.True(t, adv.Alternatives[0].Clustered)
	assert.Equal(t, 25, adv.StartDelayMinutes)
	assert.Contains(t, adv.Message, "Start time pushed by +25 min.")
}

func TestTrafficSwitchesToWalkingPace(t *testing.T) {
	a := NewTrafficAdvisor(testStrategy(), gridDistance{})
	assert.Equal(t, 20.0, a.speed(1.5))
	assert.Equal(t, 4.0, a.speed(2.5))

	adv := a.Assess(TrafficInput{TrafficLevel: 1.5, Pool: []models.Attraction{stop("A", 1)}, RemainingMinutes: 600})
	require.Len(t, adv.Feasibility, 1)
	assert.InDelta(t, 15.0, adv.Feasibility[0].DijBase, 1e-9)
	assert.InDelta(t, 37.5, adv.Feasibility[0].DijNew, 1e-9)
	assert.Zero(t, adv.StartDelayMinutes)
}

func TestPassesCommonsense(t *testing.T) {
	market := stop("Ribeira Market", 1)
	market.Category = "market"
	bar := stop("Old Pub", 2)
	bar.Category = "bar"

	ok, rule := PassesCommonsense(market, []string{"No street food please"})
	assert.False(t, ok)
	assert.Equal(t, "No street food please", rule)

	ok, _ = PassesCommonsense(bar, []string{"No street food please"})
	assert.True(t, ok)

	ok, _ = PassesCommonsense(bar, []string{"avoid nightlife"})
	assert.False(t, ok)
}

type recordingInsight struct {
	calls int
}

func (r *recordingInsight) Resolve(_ context.Context, a models.Attraction, city string) insight.Insight {
	r.calls++
	return insight.Insight{PlaceName: a.Name, City: city, Importance: "A landmark.", Source: insight.SourceRecord}
}

func TestCrowdAdvisorSameDay(t *testing.T) {
	ins := &recordingInsight{}
	c := NewCrowdAdvisor(ins, 2)
	market := stop("Market", 0.002)
	market.Category = "market"

	adv, err := c.Build(context.Background(), CrowdInput{
		Stop:             "Tower",
		CrowdLevel:       0.82,
		Threshold:        0.35,
		Action:           CrowdSameDay,
		Pool:             []models.Attraction{stop("Tower", 0.001), market, stop("Gallery", 0.003), stop("Palace", 0.004), stop("Chapel", 0.005)},
		Constraints:      models.ConstraintBundle{Commonsense: models.CommonsenseConstraints{Rules: []string{"no street food"}}},
		Now:              models.ClockAt(10, 0),
		DayEnd:           models.ClockAt(20, 0),
		RemainingMinutes: 600,
		City:             "Lisbon",
	})
	require.NoError(t, err)

	assert.Zero(t, ins.calls)
	assert.Nil(t, adv.Insight)
	assert.False(t, adv.NeedsChoice)
	assert.Len(t, adv.Alternatives, 2)
	for _, alt := range adv.Alternatives {
		assert.NotEqual(t, "Tower", alt.Attraction.Name)
		assert.NotEqual(t, "Market", alt.Attraction.Name)
		assert.Contains(t, alt.WhySuitable, "score")
	}
	assert.Contains(t, adv.Message, "later today")
}

func TestCrowdAdvisorInformUserResolvesInsight(t *testing.T) {
	ins := &recordingInsight{}
	c := NewCrowdAdvisor(ins, 3)

	adv, err := c.Build(context.Background(), CrowdInput{
		Stop:       "Tower",
		CrowdLevel: 0.9,
		Threshold:  0.35,
		Action:     CrowdInformUser,
		Pool:       []models.Attraction{stop("Tower", 0.001)},
		City:       "Lisbon",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ins.calls)
	require.NotNil(t, adv.Insight)
	assert.Equal(t, "Tower", adv.Insight.PlaceName)
	assert.True(t, adv.NeedsChoice)
	assert.Empty(t, adv.Alternatives)
	assert.Contains(t, adv.Message, "cannot be rescheduled")
}

func TestQuickScore(t *testing.T) {
	a := stop("Museum", 1)
	assert.InDelta(t, 0.75, quickScore(a, models.SoftConstraints{}), 1e-9)
	assert.InDelta(t, 1.0, quickScore(a, models.SoftConstraints{Interests: []string{"Museum"}, AvoidCrowds: true}), 1e-9)
	assert.InDelta(t, 0.8, ratingScore(a), 1e-9)
	assert.Equal(t, "'a' and 'b'", quoteNames([]string{"a", "b", "c"}, 2, " and "))
}
