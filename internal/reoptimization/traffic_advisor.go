package reoptimization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/spatial"
)

// Traffic actions per stop
const (
	TrafficKeep    = "keep"
	TrafficDefer   = "defer"
	TrafficReplace = "replace"
)

// TrafficFeasibility is the congested-travel check for one stop
type TrafficFeasibility struct {
	Attraction  models.Attraction `json:"attraction"`
	DijBase     float64           `json:"dij_base"`
	DijNew      float64           `json:"dij_new"`
	DelayFactor float64           `json:"delay_factor"`
	S           float64           `json:"s"`
	Feasible    bool              `json:"feasible"`
	Action      string            `json:"action"`
	Reason      string            `json:"reason"`
}

// TrafficAlternative is a feasible stop ranked by congested eta
type TrafficAlternative struct {
	Attraction  models.Attraction `json:"attraction"`
	Eta         float64           `json:"eta"`
	S           float64           `json:"s"`
	DijNew      float64           `json:"dij_new"`
	Clustered   bool              `json:"clustered"`
	WhySuitable string            `json:"why_suitable"`
}

// TrafficAdvisory is the result of assessing the pool under congestion
type TrafficAdvisory struct {
	TrafficLevel      float64              `json:"traffic_level"`
	DelayFactor       float64              `json:"delay_factor"`
	Threshold         float64              `json:"threshold"`
	Feasibility       []TrafficFeasibility `json:"feasibility"`
	Deferred          []TrafficFeasibility `json:"deferred"`
	Replaced          []TrafficFeasibility `json:"replaced"`
	Alternatives      []TrafficAlternative `json:"alternatives"`
	StartDelayMinutes int                  `json:"start_time_delay_minutes"`
	Message           string               `json:"message"`
}

// TrafficInput describes one traffic disruption
type TrafficInput struct {
	TrafficLevel     float64
	Threshold        float64
	DelayMinutes     int
	Pool             []models.Attraction
	Constraints      models.ConstraintBundle
	Lat, Lon         float64
	RemainingMinutes float64
}

// TrafficAdvisor recomputes travel times under congestion and decides which
// stops to defer and which to replace.
type TrafficAdvisor struct {
	strategy config.TrafficStrategy
	topN     int
	source   spatial.DistanceSource
}

func NewTrafficAdvisor(strategy config.Strategy, source spatial.DistanceSource) *TrafficAdvisor {
	return &TrafficAdvisor{
		strategy: strategy.Traffic,
		topN:     strategy.Alternatives,
		source:   source,
	}
}

// speed drops to walking pace once congestion more than doubles travel time.
func (t *TrafficAdvisor) speed(factor float64) float64 {
	if factor > t.strategy.WalkingFactor {
		return t.strategy.WalkingSpeedKmh
	}
	return t.strategy.SpeedKmh
}

// Assess applies delay factor 1+level to every leg. A stop whose congested
// leg plus visit no longer fits is deferred when its score reaches the
// high-priority line and replaced otherwise. Feasible stops are ranked with
// clustered ones first, then by eta.
func (t *TrafficAdvisor) Assess(in TrafficInput) TrafficAdvisory {
	factor := 1 + in.TrafficLevel
	speed := t.speed(factor)
	out := TrafficAdvisory{
		TrafficLevel: in.TrafficLevel,
		DelayFactor:  factor,
		Threshold:    in.Threshold,
	}

	var keep []TrafficFeasibility
	for _, a := range in.Pool {
		base := legMinutes(t.source, speed, in.Lat, in.Lon, a.Lat, a.Lon)
		dijNew := base * factor
		s := quickScore(a, in.Constraints.Soft)
		fi := TrafficFeasibility{
			Attraction:  a,
			DijBase:     base,
			DijNew:      dijNew,
			DelayFactor: factor,
			S:           s,
		}
		need := dijNew + float64(a.VisitDurationMinutes)
		switch {
		case need <= in.RemainingMinutes:
			fi.Feasible = true
			fi.Action = TrafficKeep
			fi.Reason = fmt.Sprintf("Dij_new %.1f min + %d min fits in %.0f min remaining.",
				dijNew, a.VisitDurationMinutes, in.RemainingMinutes)
			keep = append(keep, fi)
		case s >= t.strategy.HighPriority:
			fi.Action = TrafficDefer
			fi.Reason = fmt.Sprintf("Infeasible: %.1f + %d min > %.0f min; S=%.2f >= %.2f, deferred.",
				dijNew, a.VisitDurationMinutes, in.RemainingMinutes, s, t.strategy.HighPriority)
			out.Deferred = append(out.Deferred, fi)
		default:
			fi.Action = TrafficReplace
			fi.Reason = fmt.Sprintf("Infeasible: %.1f + %d min > %.0f min; S=%.2f < %.2f, replaced.",
				dijNew, a.VisitDurationMinutes, in.RemainingMinutes, s, t.strategy.HighPriority)
			out.Replaced = append(out.Replaced, fi)
		}
		out.Feasibility = append(out.Feasibility, fi)
	}

	for _, fi := range keep {
		clustered := fi.DijNew <= t.strategy.ClusterRadiusMinutes
		out.Alternatives = append(out.Alternatives, TrafficAlternative{
			Attraction:  fi.Attraction,
			Eta:         fi.S / fi.DijNew,
			S:           fi.S,
			DijNew:      fi.DijNew,
			Clustered:   clustered,
			WhySuitable: t.whySuitable(fi.Attraction, clustered, in.Constraints.Soft),
		})
	}
	sort.SliceStable(out.Alternatives, func(i, j int) bool {
		a, b := out.Alternatives[i], out.Alternatives[j]
		if a.Clustered != b.Clustered {
			return a.Clustered
		}
		return a.Eta > b.Eta
	})
	if len(out.Alternatives) > t.topN {
		out.Alternatives = out.Alternatives[:t.topN]
	}

	if in.DelayMinutes >= t.strategy.ReplanDelayMinutes {
		out.StartDelayMinutes = in.DelayMinutes
	}
	out.Message = t.message(out)
	return out
}

func (t *TrafficAdvisor) message(r TrafficAdvisory) string {
	parts := []string{fmt.Sprintf("Traffic at %s (threshold %s), delay factor x%.1f.",
		pct(r.TrafficLevel), pct(r.Threshold), r.DelayFactor)}
	if len(r.Deferred) > 0 {
		parts = append(parts, fmt.Sprintf("%d high-priority stop(s) deferred: %s.",
			len(r.Deferred), quoteNames(feasibilityNames(r.Deferred), 2, ", ")))
	}
	if len(r.Replaced) > 0 {
		parts = append(parts, fmt.Sprintf("%d low-priority stop(s) replaced: %s.",
			len(r.Replaced), quoteNames(feasibilityNames(r.Replaced), 2, ", ")))
	}
	if len(r.Alternatives) > 0 {
		names := make([]string, len(r.Alternatives))
		for i, alt := range r.Alternatives {
			names[i] = alt.Attraction.Name
		}
		parts = append(parts, fmt.Sprintf("Routing to nearby feasible stop(s): %s.", quoteNames(names, 2, " and ")))
	}
	if r.StartDelayMinutes > 0 {
		parts = append(parts, fmt.Sprintf("Start time pushed by +%d min.", r.StartDelayMinutes))
	}
	return strings.Join(parts, " ")
}

func (t *TrafficAdvisor) whySuitable(a models.Attraction, clustered bool, soft models.SoftConstraints) string {
	var reasons []string
	if clustered {
		reasons = append(reasons, fmt.Sprintf("nearby (%.0f min or less in traffic)", t.strategy.ClusterRadiusMinutes))
	}
	if hasInterest(soft.Interests, a.Category) {
		reasons = append(reasons, fmt.Sprintf("matches interest in '%s'", a.Category))
	}
	if !a.IsOutdoor {
		reasons = append(reasons, "indoor, avoids weather and traffic exposure")
	}
	if soft.PacePreference == models.PaceRelaxed && a.IntensityLevel == models.IntensityLow {
		reasons = append(reasons, "low intensity, suits a relaxed pace")
	}
	if len(reasons) == 0 {
		return "ranked by S/Dij_new"
	}
	return strings.Join(reasons, "; ")
}

func feasibilityNames(fs []TrafficFeasibility) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Attraction.Name
	}
	return out
}
