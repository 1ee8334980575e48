package models

// POIKind tags the closed set of point-of-interest variants.
type POIKind string

const (
	KindAttraction POIKind = "attraction"
	KindHotel      POIKind = "hotel"
	KindRestaurant POIKind = "restaurant"
	KindFlight     POIKind = "flight"
)

// Intensity levels for attractions
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

// Attraction represents a visitable place returned by the POI source
type Attraction struct {
	ID   int64  `json:"id,omitempty" db:"id"`
	Name string `json:"name" db:"name" yaml:"name"`
	City string `json:"city,omitempty" db:"city" yaml:"city"`

	// Location
	Lat float64 `json:"lat" db:"lat" yaml:"lat"`
	Lon float64 `json:"lon" db:"lon" yaml:"lon"`

	// Time windows, "HH:MM-HH:MM"
	OpeningHours     string `json:"opening_hours,omitempty" db:"opening_hours" yaml:"opening_hours"`
	OptimalVisitTime string `json:"optimal_visit_time,omitempty" db:"optimal_visit_time" yaml:"optimal_visit_time"`

	Rating                  float64 `json:"rating" db:"rating" yaml:"rating"` // 1-5
	VisitDurationMinutes    int     `json:"visit_duration_minutes" db:"visit_duration_minutes" yaml:"visit_duration_minutes"`
	MinVisitDurationMinutes int     `json:"min_visit_duration_minutes" db:"min_visit_duration_minutes" yaml:"min_visit_duration_minutes"`
	EntryCost               float64 `json:"entry_cost" db:"entry_cost" yaml:"entry_cost"` // per person
	Category                string  `json:"category" db:"category" yaml:"category"`

	// Hard-constraint fields
	WheelchairAccessible bool  `json:"wheelchair_accessible" db:"wheelchair_accessible" yaml:"wheelchair_accessible"`
	MinAge               int   `json:"min_age,omitempty" db:"min_age" yaml:"min_age"`
	TicketRequired       bool  `json:"ticket_required,omitempty" db:"ticket_required" yaml:"ticket_required"`
	MinGroupSize         int   `json:"min_group_size,omitempty" db:"min_group_size" yaml:"min_group_size"`
	MaxGroupSize         int   `json:"max_group_size,omitempty" db:"max_group_size" yaml:"max_group_size"`
	SeasonalOpenMonths   []int `json:"seasonal_open_months,omitempty" db:"seasonal_open_months" yaml:"seasonal_open_months"`

	// Soft-constraint fields
	IsOutdoor      bool   `json:"is_outdoor" db:"is_outdoor" yaml:"is_outdoor"`
	IntensityLevel string `json:"intensity_level,omitempty" db:"intensity_level" yaml:"intensity_level"`

	HistoricalImportance string `json:"historical_importance,omitempty" db:"historical_importance" yaml:"historical_importance"`
}

// NewAttraction returns an attraction carrying the record defaults
// (60 minute visit, 15 minute minimum, accessible, group 1..999, low intensity).
func NewAttraction(name string, lat, lon float64) Attraction {
	return Attraction{
		Name:                    name,
		Lat:                     lat,
		Lon:                     lon,
		VisitDurationMinutes:    60,
		MinVisitDurationMinutes: 15,
		WheelchairAccessible:    true,
		MinGroupSize:            1,
		MaxGroupSize:            999,
		IntensityLevel:          IntensityLow,
	}
}

// Duration returns the visit duration, falling back to 60 minutes.
func (a Attraction) Duration() int {
	if a.VisitDurationMinutes <= 0 {
		return 60
	}
	return a.VisitDurationMinutes
}

// Hotel represents an accommodation option
type Hotel struct {
	Name                 string   `json:"name"`
	Brand                string   `json:"brand,omitempty"`
	Lat                  float64  `json:"lat"`
	Lon                  float64  `json:"lon"`
	StarRating           float64  `json:"star_rating"`
	Amenities            []string `json:"amenities,omitempty"`
	CheckInTime          string   `json:"check_in_time,omitempty"`
	CheckOutTime         string   `json:"check_out_time,omitempty"`
	WheelchairAccessible bool     `json:"wheelchair_accessible"`
	PricePerNight        float64  `json:"price_per_night"`
	Available            bool     `json:"available"`
	RoomsLeft            int      `json:"rooms_left,omitempty"`
}

// Restaurant represents a dining option
type Restaurant struct {
	Name                 string   `json:"name"`
	Lat                  float64  `json:"lat"`
	Lon                  float64  `json:"lon"`
	CuisineType          string   `json:"cuisine_type,omitempty"`
	CuisineTags          []string `json:"cuisine_tags,omitempty"`
	Rating               float64  `json:"rating"`
	AvgPricePerPerson    float64  `json:"avg_price_per_person"`
	OpeningHours         string   `json:"opening_hours,omitempty"`
	AcceptsReservations  bool     `json:"accepts_reservations,omitempty"`
	WheelchairAccessible bool     `json:"wheelchair_accessible"`
}

// Flight represents a transport option between cities
type Flight struct {
	Airline         string  `json:"airline"`
	FlightNumber    string  `json:"flight_number"`
	Origin          string  `json:"origin"`
	Destination     string  `json:"destination"`
	DepartureTime   string  `json:"departure_time,omitempty"` // HH:MM
	ArrivalTime     string  `json:"arrival_time,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	CabinClass      string  `json:"cabin_class,omitempty"`
	StopsType       string  `json:"stops_type,omitempty"` // direct | one_stop | multi_stop
}

// POI is the tagged variant handed to the constraint registry.
// Exactly one pointer matching Kind is set.
type POI struct {
	Kind       POIKind
	Attraction *Attraction
	Hotel      *Hotel
	Restaurant *Restaurant
	Flight     *Flight
}

func AttractionPOI(a *Attraction) POI { return POI{Kind: KindAttraction, Attraction: a} }
func HotelPOI(h *Hotel) POI           { return POI{Kind: KindHotel, Hotel: h} }
func RestaurantPOI(r *Restaurant) POI { return POI{Kind: KindRestaurant, Restaurant: r} }
func FlightPOI(f *Flight) POI         { return POI{Kind: KindFlight, Flight: f} }
