package planning

import (
	"math"

	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// DefaultBudgetRatios is the share of the total budget given to each category.
var DefaultBudgetRatios = map[string]float64{
	models.BudgetAccommodation:  0.35,
	models.BudgetAttractions:    0.15,
	models.BudgetRestaurants:    0.20,
	models.BudgetTransportation: 0.15,
	models.BudgetOtherExpenses:  0.10,
	models.BudgetReserveFund:    0.05,
}

// budgetTolerance absorbs rounding to whole cents.
const budgetTolerance = 0.01

// BudgetPlanner splits a confirmed total budget across spending categories
type BudgetPlanner struct {
	ratios map[string]float64
}

// NewBudgetPlanner creates a planner using DefaultBudgetRatios
func NewBudgetPlanner() *BudgetPlanner {
	return &BudgetPlanner{ratios: DefaultBudgetRatios}
}

// Distribute allocates total across the six categories, rounded to cents.
func (p *BudgetPlanner) Distribute(total float64) models.BudgetAllocation {
	part := func(category string) float64 {
		return roundCents(total * p.ratios[category])
	}
	return models.BudgetAllocation{
		Accommodation:  part(models.BudgetAccommodation),
		Attractions:    part(models.BudgetAttractions),
		Restaurants:    part(models.BudgetRestaurants),
		Transportation: part(models.BudgetTransportation),
		OtherExpenses:  part(models.BudgetOtherExpenses),
		ReserveFund:    part(models.BudgetReserveFund),
	}
}

// Validate reports whether the allocation stays within the confirmed total.
func (p *BudgetPlanner) Validate(allocation models.BudgetAllocation, total float64) bool {
	return allocation.Total() <= total+budgetTolerance
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
