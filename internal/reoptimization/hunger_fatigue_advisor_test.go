package reoptimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
)

func testHF() *HungerFatigueAdvisor {
	return NewHungerFatigueAdvisor(testStrategy(), gridDistance{}, nil)
}

func TestApplyKeywordsRaisesToFloor(t *testing.T) {
	h := testHF()
	s := testState()

	sig := h.ApplyKeywords("I'm starving!", s)
	assert.True(t, sig.Hunger)
	assert.False(t, sig.Fatigue)
	assert.GreaterOrEqual(t, s.Hunger(), 0.72)
	assert.Zero(t, s.Fatigue())

	s.setFatigue(0.9)
	h.ApplyKeywords("so tired, my feet hurt", s)
	assert.Equal(t, 0.9, s.Fatigue())
}

func TestApplyKeywordsIgnoresUnrelatedText(t *testing.T) {
	h := testHF()
	s := testState()
	sig := h.ApplyKeywords("lovely view from the terrace", s)
	assert.Equal(t, SignalSet{}, sig)
	assert.Zero(t, s.Hunger())
}

func TestAccumulate(t *testing.T) {
	h := testHF()
	s := testState()

	h.Accumulate(s, models.IntensityHigh, 90)
	assert.InDelta(t, 0.5, s.Hunger(), 1e-9)
	assert.InDelta(t, 90.0/420*1.8, s.Fatigue(), 1e-9)

	h.Accumulate(s, "extreme", 0)
	assert.InDelta(t, 0.5, s.Hunger(), 1e-9)

	h.Accumulate(s, "extreme", 420)
	assert.Equal(t, 1.0, s.Hunger())
	assert.Equal(t, 1.0, s.Fatigue())
}

func TestBehavioralSignals(t *testing.T) {
	h := testHF()
	s := testState()
	h.OnBehavioralSignal(SignalSkipHighIntensity, s)
	h.OnBehavioralSignal(SignalPaceChange, s)
	h.OnBehavioralSignal("unknown", s)
	assert.InDelta(t, 0.18, s.Fatigue(), 1e-9)
}

func TestTriggersRespectCooldown(t *testing.T) {
	h := testHF()
	s := testState()
	assert.Empty(t, h.Triggers(s))

	s.setHunger(0.8)
	s.setFatigue(0.8)
	assert.Equal(t, []EventType{EventHunger, EventFatigue}, h.Triggers(s))

	h.Meal(s)
	s.setHunger(0.9)
	require.NoError(t, s.AdvanceTime(10))
	assert.Equal(t, []EventType{EventFatigue}, h.Triggers(s))

	require.NoError(t, s.AdvanceTime(40))
	assert.Contains(t, h.Triggers(s), EventHunger)
}

func TestMealAndRest(t *testing.T) {
	h := testHF()
	s := testState()
	s.setHunger(0.9)
	s.setFatigue(0.9)

	assert.Equal(t, 45, h.Meal(s))
	assert.Zero(t, s.Hunger())
	assert.Equal(t, "09:45", s.Now().String())

	assert.Equal(t, 20, h.Rest(s))
	assert.InDelta(t, 0.5, s.Fatigue(), 1e-9)
	assert.Equal(t, "10:05", s.Now().String())
	last, ok := s.LastRest()
	require.True(t, ok)
	assert.Equal(t, "10:05", last.String())
}

func TestMealIsCappedAtDayEnd(t *testing.T) {
	h := testHF()
	s := testState()
	require.NoError(t, s.SetTime(models.ClockAt(19, 40)))
	h.Meal(s)
	assert.Equal(t, "20:00", s.Now().String())
}

func TestPenalty(t *testing.T) {
	h := testHF()
	long := stop("Palace", 1)
	long.VisitDurationMinutes = 120
	long.IntensityLevel = models.IntensityHigh
	cafe := stop("Cafe", 1)
	cafe.Category = "cafe"

	assert.Zero(t, h.Penalty(long, 0.1, 0.1))
	assert.InDelta(t, 0.4, h.Penalty(long, 0.8, 0.1), 1e-9)
	assert.InDelta(t, 0.9, h.Penalty(long, 0.8, 0.8), 1e-9)
	assert.Zero(t, h.Penalty(cafe, 0.8, 0.1))
	assert.InDelta(t, 0.1, h.Penalty(stop("Museum", 1), 0.8, 0.1), 1e-9)
}

func TestScorerOptionsOnlyWhenTriggered(t *testing.T) {
	h := testHF()
	s := testState()
	assert.Nil(t, h.ScorerOptions(s))

	s.setHunger(0.75)
	opts := h.ScorerOptions(s)
	require.Len(t, opts, 2)
	_, err := optimization.NewAttractionScorer(models.ConstraintBundle{}, opts...)
	assert.NoError(t, err)
}

func TestHungerAdvisoryFiltersAndRanks(t *testing.T) {
	h := testHF()
	s := testState()
	s.setHunger(0.8)

	restaurants := []models.Restaurant{
		{Name: "Tasca", Lon: 1, CuisineType: "portuguese", Rating: 4.5, AvgPricePerPerson: 15},
		{Name: "Pricey", Lon: 1, CuisineType: "portuguese", Rating: 4.9, AvgPricePerPerson: 90},
		{Name: "Closed", Lon: 1, CuisineType: "portuguese", Rating: 4.8, AvgPricePerPerson: 10, OpeningHours: "18:00-23:00"},
		{Name: "Sushi", Lon: 2, CuisineType: "japanese", Rating: 4.0, AvgPricePerPerson: 20},
		{Name: "Veg", Lon: 3, CuisineType: "vegetarian", CuisineTags: []string{"vegetarian"}, Rating: 4.5, AvgPricePerPerson: 12},
	}
	bundle := models.ConstraintBundle{Soft: models.SoftConstraints{DietaryPreferences: []string{"portuguese", "vegetarian"}}}

	adv := h.HungerAdvisory(s, restaurants, bundle, 30)

	assert.False(t, adv.NoOptions)
	require.Len(t, adv.Options, 2)
	assert.Equal(t, "Tasca", adv.Options[0].Name)
	assert.Equal(t, 1, adv.Options[0].Rank)
	assert.Equal(t, "Veg", adv.Options[1].Name)
	assert.Equal(t, 12.0, adv.Options[0].DijMinutes)
	assert.Contains(t, adv.Options[1].WhySuitable, "matches dietary: vegetarian")
	assert.Equal(t, ActionAdvisoryOnly, adv.Action)
}

func TestHungerAdvisoryWithoutRestaurants(t *testing.T) {
	adv := testHF().HungerAdvisory(testState(), nil, models.ConstraintBundle{}, 0)
	assert.True(t, adv.NoOptions)
	assert.Empty(t, adv.Options)
}

func TestFatigueAdvisoryDefersLongStops(t *testing.T) {
	h := testHF()
	s := testState()
	require.NoError(t, s.SetTime(models.ClockAt(18, 30)))
	long := stop("Palace", 1)
	long.VisitDurationMinutes = 80

	adv := h.FatigueAdvisory(s, "Museum", []models.Attraction{stop("Museum", 1), long})
	assert.Equal(t, []string{"Palace"}, adv.DeferredStops)
	assert.Equal(t, 20, adv.RestMinutes)
	assert.Equal(t, ActionRestInserted, adv.Action)
}

func TestIsRestaurant(t *testing.T) {
	a := stop("Time Out", 1)
	a.Category = "Food_Court"
	assert.True(t, IsRestaurant(a))
	assert.False(t, IsRestaurant(stop("Museum", 1)))
}
