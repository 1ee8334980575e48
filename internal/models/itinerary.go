package models

import "time"

// Budget categories
const (
	BudgetAccommodation  = "Accommodation"
	BudgetAttractions    = "Attractions"
	BudgetRestaurants    = "Restaurants"
	BudgetTransportation = "Transportation"
	BudgetOtherExpenses  = "Other_Expenses"
	BudgetReserveFund    = "Reserve_Fund"
)

// BudgetAllocation splits the total budget across spending categories
type BudgetAllocation struct {
	Accommodation  float64 `json:"Accommodation"`
	Attractions    float64 `json:"Attractions"`
	Restaurants    float64 `json:"Restaurants"`
	Transportation float64 `json:"Transportation"`
	OtherExpenses  float64 `json:"Other_Expenses"`
	ReserveFund    float64 `json:"Reserve_Fund"`
}

// Total sums every category
func (b BudgetAllocation) Total() float64 {
	return b.Accommodation + b.Attractions + b.Restaurants +
		b.Transportation + b.OtherExpenses + b.ReserveFund
}

// Category returns the amount allocated to a named category
func (b BudgetAllocation) Category(name string) float64 {
	switch name {
	case BudgetAccommodation:
		return b.Accommodation
	case BudgetAttractions:
		return b.Attractions
	case BudgetRestaurants:
		return b.Restaurants
	case BudgetTransportation:
		return b.Transportation
	case BudgetOtherExpenses:
		return b.OtherExpenses
	case BudgetReserveFund:
		return b.ReserveFund
	}
	return 0
}

// Add accrues amount onto a named category; unknown names land in OtherExpenses
func (b *BudgetAllocation) Add(name string, amount float64) {
	switch name {
	case BudgetAccommodation:
		b.Accommodation += amount
	case BudgetAttractions:
		b.Attractions += amount
	case BudgetRestaurants:
		b.Restaurants += amount
	case BudgetTransportation:
		b.Transportation += amount
	case BudgetReserveFund:
		b.ReserveFund += amount
	default:
		b.OtherExpenses += amount
	}
}

// RoutePoint is a single timed stop in a day plan
type RoutePoint struct {
	Sequence             int     `json:"sequence"`
	Name                 string  `json:"name"`
	Lat                  float64 `json:"lat"`
	Lon                  float64 `json:"lon"`
	ArrivalTime          Clock   `json:"arrival_time"`
	DepartureTime        Clock   `json:"departure_time"`
	VisitDurationMinutes int     `json:"visit_duration_minutes"`
	ActivityType         string  `json:"activity_type"` // attraction | restaurant | hotel | flight | rest
	EstimatedCost        float64 `json:"estimated_cost"`
	Notes                string  `json:"notes,omitempty"`
}

// DayPlan is the ordered list of stops for one day
type DayPlan struct {
	DayNumber       int          `json:"day_number"`
	Date            string       `json:"date,omitempty"` // YYYY-MM-DD
	RoutePoints     []RoutePoint `json:"route_points"`
	DailyBudgetUsed float64      `json:"daily_budget_used"`
	DistanceKm      float64      `json:"distance_km"` // start position through every stop
}

// Clone returns a deep copy so that edits never alias the original plan
func (d *DayPlan) Clone() *DayPlan {
	if d == nil {
		return nil
	}
	c := *d
	c.RoutePoints = append([]RoutePoint(nil), d.RoutePoints...)
	return &c
}

// StopNames lists the route point names in order
func (d *DayPlan) StopNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.RoutePoints))
	for _, rp := range d.RoutePoints {
		names = append(names, rp.Name)
	}
	return names
}

// Itinerary is the complete multi-day trip plan
type Itinerary struct {
	TripID          string           `json:"trip_id"`
	DestinationCity string           `json:"destination_city"`
	StartLat        float64          `json:"start_lat"`
	StartLon        float64          `json:"start_lon"`
	Days            []DayPlan        `json:"days"`
	Budget          BudgetAllocation `json:"budget"`
	TotalActualCost float64          `json:"total_actual_cost"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Day returns the plan for a 1-based day number.
func (it *Itinerary) Day(number int) (*DayPlan, bool) {
	for i := range it.Days {
		if it.Days[i].DayNumber == number {
			return &it.Days[i], true
		}
	}
	return nil, false
}
