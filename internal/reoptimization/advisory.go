package reoptimization

import (
	"fmt"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// quickScore is a cheap S estimate for advisories that cannot afford a full
// scorer pass: normalised rating plus small interest and indoor bonuses.
func quickScore(a models.Attraction, soft models.SoftConstraints) float64 {
	rating := a.Rating
	if rating == 0 {
		rating = 3
	}
	s := (rating - 1) / 4
	if hasInterest(soft.Interests, a.Category) {
		s += 0.15
	}
	if soft.AvoidCrowds && !a.IsOutdoor {
		s += 0.10
	}
	return clamp01(s)
}

// ratingScore is rating/5, the value proxy used by the approval gate.
func ratingScore(a models.Attraction) float64 {
	return clamp01(a.Rating / 5)
}

func hasInterest(interests []string, category string) bool {
	for _, i := range interests {
		if strings.EqualFold(i, category) {
			return true
		}
	}
	return false
}

// legMinutes is the travel time at speed, never below one minute.
func legMinutes(src spatial.DistanceSource, speedKmh, lat1, lon1, lat2, lon2 float64) float64 {
	m := spatial.NewTravelTime(src, speedKmh).Minutes(lat1, lon1, lat2, lon2)
	if m < 1 {
		return 1
	}
	return m
}

// quoteNames renders up to n names as 'a' and 'b'.
func quoteNames(names []string, n int, sep string) string {
	if len(names) > n {
		names = names[:n]
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("'%s'", name)
	}
	return strings.Join(quoted, sep)
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
