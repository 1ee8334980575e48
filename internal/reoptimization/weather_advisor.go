package reoptimization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// WeatherImpact is how the weather affects one remaining stop
type WeatherImpact struct {
	Attraction       models.Attraction `json:"attraction"`
	HCOverride       int               `json:"hc_override"`
	Blocked          bool              `json:"blocked"`
	Deferred         bool              `json:"deferred"`
	AdjustedDuration int               `json:"adjusted_duration"`
	Reason           string            `json:"reason"`
}

// WeatherAlternative is an indoor stop ranked by eta at bad-weather speed
type WeatherAlternative struct {
	Attraction  models.Attraction `json:"attraction"`
	Eta         float64           `json:"eta"`
	S           float64           `json:"s"`
	Dij         float64           `json:"dij"`
	WhySuitable string            `json:"why_suitable"`
}

// WeatherAdvisory is the result of classifying the pool under a condition
type WeatherAdvisory struct {
	Condition           string               `json:"condition"`
	Severity            float64              `json:"severity"`
	Threshold           float64              `json:"threshold"`
	Blocked             []WeatherImpact      `json:"blocked"`
	Deferred            []WeatherImpact      `json:"deferred"`
	Safe                []models.Attraction  `json:"safe"`
	Alternatives        []WeatherAlternative `json:"alternatives"`
	DurationAdjustments map[string]int       `json:"duration_adjustments"`
	Message             string               `json:"message"`
}

// BlockedNames lists the stops that cannot be visited in this weather.
func (w WeatherAdvisory) BlockedNames() []string {
	out := make([]string, len(w.Blocked))
	for i, b := range w.Blocked {
		out[i] = b.Attraction.Name
	}
	return out
}

// WeatherInput describes one weather disruption
type WeatherInput struct {
	Condition        string
	Threshold        float64
	Pool             []models.Attraction
	Constraints      models.ConstraintBundle
	Lat, Lon         float64
	RemainingMinutes float64
}

// WeatherAdvisor splits the pool into blocked, deferred and safe stops and
// ranks the safe ones as alternatives.
type WeatherAdvisor struct {
	strategy  config.WeatherStrategy
	fallback  float64
	topN      int
	source    spatial.DistanceSource
	sensitive map[string]bool
}

func NewWeatherAdvisor(strategy config.Strategy, source spatial.DistanceSource) *WeatherAdvisor {
	sensitive := make(map[string]bool, len(strategy.Weather.SensitiveCategories))
	for _, c := range strategy.Weather.SensitiveCategories {
		sensitive[strings.ToLower(c)] = true
	}
	return &WeatherAdvisor{
		strategy:  strategy.Weather,
		fallback:  strategy.Thresholds.Fallback,
		topN:      strategy.Alternatives,
		source:    source,
		sensitive: sensitive,
	}
}

// Sensitive reports whether a stop is exposed to the weather.
func (w *WeatherAdvisor) Sensitive(a models.Attraction) bool {
	return a.IsOutdoor || w.sensitive[strings.ToLower(a.Category)]
}

func (w *WeatherAdvisor) severity(condition string) float64 {
	return SeverityOf(condition, w.fallback)
}

// Classify blocks sensitive stops at or above the unsafe severity and defers
// them with a shortened visit below it. Indoor stops that still fit in the
// remaining time are ranked by S/Dij.
func (w *WeatherAdvisor) Classify(in WeatherInput) WeatherAdvisory {
	severity := w.severity(in.Condition)
	out := WeatherAdvisory{
		Condition:           in.Condition,
		Severity:            severity,
		Threshold:           in.Threshold,
		DurationAdjustments: make(map[string]int),
	}

	for _, a := range in.Pool {
		if !w.Sensitive(a) {
			out.Safe = append(out.Safe, a)
			continue
		}
		if severity >= w.strategy.UnsafeSeverity {
			out.Blocked = append(out.Blocked, WeatherImpact{
				Attraction:       a,
				HCOverride:       0,
				Blocked:          true,
				AdjustedDuration: a.VisitDurationMinutes,
				Reason: fmt.Sprintf("Unsafe weather '%s' (severity %s, unsafe at %s): visit not viable.",
					in.Condition, pct(severity), pct(w.strategy.UnsafeSeverity)),
			})
			continue
		}
		adj := int(float64(a.VisitDurationMinutes) * w.strategy.DurationScale)
		if adj < a.MinVisitDurationMinutes {
			adj = a.MinVisitDurationMinutes
		}
		out.Deferred = append(out.Deferred, WeatherImpact{
			Attraction:       a,
			HCOverride:       1,
			Deferred:         true,
			AdjustedDuration: adj,
			Reason: fmt.Sprintf("Risky outdoor stop in '%s': visit shortened to %d min (x%.2f).",
				in.Condition, adj, w.strategy.DurationScale),
		})
		out.DurationAdjustments[a.Name] = adj
	}

	for _, a := range out.Safe {
		if float64(a.VisitDurationMinutes) > in.RemainingMinutes {
			continue
		}
		dij := legMinutes(w.source, w.strategy.SpeedKmh, in.Lat, in.Lon, a.Lat, a.Lon)
		s := quickScore(a, in.Constraints.Soft)
		out.Alternatives = append(out.Alternatives, WeatherAlternative{
			Attraction:  a,
			Eta:         s / dij,
			S:           s,
			Dij:         dij,
			WhySuitable: whyWeatherSuitable(a, in.Constraints.Soft),
		})
	}
	sort.SliceStable(out.Alternatives, func(i, j int) bool {
		return out.Alternatives[i].Eta > out.Alternatives[j].Eta
	})
	if len(out.Alternatives) > w.topN {
		out.Alternatives = out.Alternatives[:w.topN]
	}

	out.Message = w.message(out)
	return out
}

func (w *WeatherAdvisor) message(r WeatherAdvisory) string {
	var b strings.Builder
	switch {
	case len(r.Blocked) > 0:
		fmt.Fprintf(&b, "%d outdoor stop(s) blocked by unsafe '%s' (severity %s); deferred to a less exposed time. ",
			len(r.Blocked), r.Condition, pct(r.Severity))
	case len(r.Deferred) > 0:
		fmt.Fprintf(&b, "%d outdoor stop(s) at risk from '%s'; visit durations reduced x%.2f. ",
			len(r.Deferred), r.Condition, w.strategy.DurationScale)
	default:
		fmt.Fprintf(&b, "No outdoor stops affected by '%s'. Plan unchanged. ", r.Condition)
	}
	if len(r.Alternatives) > 0 {
		names := make([]string, len(r.Alternatives))
		for i, alt := range r.Alternatives {
			names[i] = alt.Attraction.Name
		}
		fmt.Fprintf(&b, "Routing to indoor alternative(s): %s.", quoteNames(names, 2, " and "))
	}
	return strings.TrimSpace(b.String())
}

func whyWeatherSuitable(a models.Attraction, soft models.SoftConstraints) string {
	reasons := []string{"indoor, protected from weather"}
	if hasInterest(soft.Interests, a.Category) {
		reasons = append(reasons, fmt.Sprintf("matches your interest in '%s'", a.Category))
	}
	if soft.PacePreference == models.PaceRelaxed && a.IntensityLevel == models.IntensityLow {
		reasons = append(reasons, "low intensity, suits a relaxed pace")
	}
	return strings.Join(reasons, "; ")
}
