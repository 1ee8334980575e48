package reoptimization

import (
	"context"
	"fmt"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/insight"
	"github.com/jengzang/itinerary-backend-go/internal/models"
	"github.com/jengzang/itinerary-backend-go/internal/optimization"
)

// commonsenseBlocks maps a rule keyword to the categories it rules out.
var commonsenseBlocks = map[string][]string{
	"street food":  {"market", "street_food", "food_stall"},
	"tourist trap": {"tourist_trap"},
	"nightlife":    {"nightlife", "bar", "club"},
}

// PassesCommonsense checks a stop against free-text rules such as
// "no street food". The matching rule is returned when the stop is blocked.
func PassesCommonsense(a models.Attraction, rules []string) (bool, string) {
	category := strings.ToLower(a.Category)
	name := strings.ToLower(a.Name)
	for _, rule := range rules {
		lower := strings.ToLower(rule)
		for keyword, blocked := range commonsenseBlocks {
			if !strings.Contains(lower, keyword) {
				continue
			}
			for _, b := range blocked {
				if category == b || strings.Contains(name, b) {
					return false, rule
				}
			}
		}
	}
	return true, ""
}

// Suggestion is one ranked alternative to a crowded stop
type Suggestion struct {
	Attraction  models.Attraction            `json:"attraction"`
	Score       optimization.AttractionScore `json:"score"`
	WhySuitable string                       `json:"why_suitable"`
}

// CrowdAdvisory explains a crowd decision to the traveler
type CrowdAdvisory struct {
	Stop         string           `json:"stop"`
	CrowdLevel   float64          `json:"crowd_level"`
	Threshold    float64          `json:"threshold"`
	Action       CrowdAction      `json:"action"`
	Insight      *insight.Insight `json:"insight,omitempty"`
	Alternatives []Suggestion     `json:"alternatives"`
	Message      string           `json:"message"`
	NeedsChoice  bool             `json:"needs_choice"`
}

// CrowdInput describes one crowd disruption
type CrowdInput struct {
	Stop             string
	CrowdLevel       float64
	Threshold        float64
	Action           CrowdAction
	TargetDay        int
	Pool             []models.Attraction
	Constraints      models.ConstraintBundle
	Lat, Lon         float64
	Now, DayEnd      models.Clock
	RemainingMinutes float64
	City             string
	ScorerOptions    []optimization.ScorerOption
}

// CrowdAdvisor ranks alternatives for a crowded stop. The significance of
// the stop is only looked up when it cannot be rescheduled.
type CrowdAdvisor struct {
	insights insight.TextInsight
	topN     int
}

func NewCrowdAdvisor(insights insight.TextInsight, topN int) *CrowdAdvisor {
	if insights == nil {
		insights = insight.NewResolver(nil)
	}
	if topN < 1 {
		topN = 3
	}
	return &CrowdAdvisor{insights: insights, topN: topN}
}

// Build scores the pool without the crowded stop, drops commonsense
// violations and keeps the best feasible candidates.
func (c *CrowdAdvisor) Build(ctx context.Context, in CrowdInput) (CrowdAdvisory, error) {
	out := CrowdAdvisory{
		Stop:        in.Stop,
		CrowdLevel:  in.CrowdLevel,
		Threshold:   in.Threshold,
		Action:      in.Action,
		NeedsChoice: in.Action == CrowdInformUser,
	}

	if in.Action == CrowdInformUser {
		record := models.Attraction{Name: in.Stop}
		for _, a := range in.Pool {
			if a.Name == in.Stop {
				record = a
				break
			}
		}
		ins := c.insights.Resolve(ctx, record, in.City)
		out.Insight = &ins
	}

	candidates := make([]models.Attraction, 0, len(in.Pool))
	for _, a := range in.Pool {
		if a.Name != in.Stop {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) > 0 {
		opts := append([]optimization.ScorerOption{optimization.WithTmax(in.RemainingMinutes)}, in.ScorerOptions...)
		scorer, err := optimization.NewAttractionScorer(in.Constraints, opts...)
		if err != nil {
			return out, fmt.Errorf("failed to build crowd scorer: %w", err)
		}
		for _, s := range scorer.ScoreAll(candidates, in.Lat, in.Lon, in.Now, in.DayEnd, false) {
			if len(out.Alternatives) == c.topN {
				break
			}
			if !s.Feasible {
				continue
			}
			if ok, _ := PassesCommonsense(s.Attraction, in.Constraints.Commonsense.Rules); !ok {
				continue
			}
			out.Alternatives = append(out.Alternatives, Suggestion{
				Attraction:  s.Attraction,
				Score:       s,
				WhySuitable: whyCrowdSuitable(s, in.Constraints.Soft),
			})
		}
	}

	out.Message = crowdMessage(in, out.Alternatives)
	return out, nil
}

func crowdMessage(in CrowdInput, alts []Suggestion) string {
	names := make([]string, len(alts))
	for i, a := range alts {
		names[i] = a.Attraction.Name
	}
	altNames := quoteNames(names, 2, " and ")

	switch in.Action {
	case CrowdSameDay:
		msg := fmt.Sprintf("'%s' is currently %s crowded (your limit %s). It will move to a quieter slot later today",
			in.Stop, pct(in.CrowdLevel), pct(in.Threshold))
		if altNames != "" {
			return msg + " and you will go to " + altNames + " first."
		}
		return msg + "."
	case CrowdFutureDay:
		msg := fmt.Sprintf("'%s' is currently %s crowded (your limit %s). Today is too tight to revisit it, so it moves to Day %d",
			in.Stop, pct(in.CrowdLevel), pct(in.Threshold), in.TargetDay)
		if altNames != "" {
			return msg + ". Today you will go to " + altNames + " instead."
		}
		return msg + "."
	}
	return fmt.Sprintf("'%s' is very crowded (%s, your limit %s) and cannot be rescheduled. "+
		"Decide whether to visit despite the crowds or skip it for good.",
		in.Stop, pct(in.CrowdLevel), pct(in.Threshold))
}

func whyCrowdSuitable(s optimization.AttractionScore, soft models.SoftConstraints) string {
	a := s.Attraction
	var reasons []string
	if hasInterest(soft.Interests, a.Category) {
		reasons = append(reasons, fmt.Sprintf("matches your interest in '%s'", a.Category))
	}
	if soft.AvoidCrowds {
		if a.IsOutdoor {
			reasons = append(reasons, "outdoor, best visited off-peak")
		} else {
			reasons = append(reasons, "indoor, likely less crowded")
		}
	}
	switch {
	case soft.PacePreference == models.PaceRelaxed && a.IntensityLevel == models.IntensityLow:
		reasons = append(reasons, "low intensity, suits your relaxed pace")
	case soft.PacePreference == models.PacePacked && (a.IntensityLevel == models.IntensityMedium || a.IntensityLevel == models.IntensityHigh):
		reasons = append(reasons, "high-value stop, keeps your pace")
	}
	if soft.PreferredTimeOfDay == "morning" {
		if start, _, ok := models.ParseWindow(a.OptimalVisitTime); ok && start < models.ClockAt(13, 0) {
			reasons = append(reasons, "best visited in the morning")
		}
	}
	reasons = append(reasons, fmt.Sprintf("score %.2f", s.S))
	return strings.Join(reasons, "; ")
}
