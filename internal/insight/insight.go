// Package insight resolves the cultural or historical significance of a place
// so a traveler can be told what skipping it would cost them.
package insight

import (
	"context"
	"log"
	"strings"

	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// Sources of an Insight
const (
	SourceRecord = "record"
	SourceLLM    = "llm"
	SourceStub   = "stub"
)

// DefaultDisplayWidth is the wrap width used by FormatForDisplay callers.
const DefaultDisplayWidth = 62

var stubByCategory = map[string]string{
	"museum": "This museum preserves centuries of regional history, housing artefacts " +
		"that are unavailable anywhere else in the country. Skipping it means " +
		"missing the only permanent public collection of its kind.",
	"landmark": "This landmark is a defining symbol of the city's cultural identity and " +
		"appears in the historical record as far back as the founding era. " +
		"It is one of the most architecturally significant structures in the region.",
	"park": "This park occupies historically significant ground, the site of key " +
		"civic events that shaped the city. Its riverside or garden sections " +
		"contain preserved heritage structures not found elsewhere.",
	"temple": "This temple is an active centre of religious and cultural life, with " +
		"architectural elements spanning multiple centuries. It represents a " +
		"living tradition that has influenced the surrounding community for generations.",
	"default": "This is a noted attraction on your itinerary with recognised cultural " +
		"or historical significance. Visiting provides context that enriches " +
		"the rest of your trip experience.",
}

// StubText returns the fallback paragraph for a category.
func StubText(category string) string {
	if text, ok := stubByCategory[strings.ToLower(strings.TrimSpace(category))]; ok {
		return text
	}
	return stubByCategory["default"]
}

// Insight is the significance of a single place
type Insight struct {
	PlaceName  string `json:"place_name"`
	City       string `json:"city"`
	Category   string `json:"category"`
	Importance string `json:"importance"`
	Source     string `json:"source"`
}

// FormatForDisplay word-wraps the importance text to width columns.
func (i Insight) FormatForDisplay(width int) []string {
	if width <= 0 {
		width = DefaultDisplayWidth
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(i.Importance) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// Generator produces a short significance paragraph from an external text service
type Generator interface {
	Generate(ctx context.Context, place, city, category string) (string, error)
}

// TextInsight resolves the significance of an attraction in a city
type TextInsight interface {
	Resolve(ctx context.Context, a models.Attraction, city string) Insight
}

// Resolver resolves insights by priority: record field, generator, category
// stub. Results are cached per place and city for the lifetime of the resolver.
type Resolver struct {
	generator Generator
	cache     map[string]Insight
}

var _ TextInsight = (*Resolver)(nil)

// NewResolver creates a resolver. A nil generator skips straight to stubs.
func NewResolver(generator Generator) *Resolver {
	return &Resolver{
		generator: generator,
		cache:     make(map[string]Insight),
	}
}

// Resolve returns the cached or freshly resolved insight for a.
// Generator failures fall back to the category stub.
func (r *Resolver) Resolve(ctx context.Context, a models.Attraction, city string) Insight {
	name := a.Name
	if name == "" {
		name = "Unknown Place"
	}
	key := name + "::" + city
	if cached, ok := r.cache[key]; ok {
		return cached
	}

	ins := Insight{PlaceName: name, City: city, Category: a.Category}
	switch {
	case strings.TrimSpace(a.HistoricalImportance) != "":
		ins.Importance = strings.TrimSpace(a.HistoricalImportance)
		ins.Source = SourceRecord
	case r.generator != nil:
		text, err := r.generator.Generate(ctx, name, city, a.Category)
		if err == nil && strings.TrimSpace(text) != "" {
			ins.Importance = strings.TrimSpace(text)
			ins.Source = SourceLLM
			break
		}
		if err != nil {
			log.Printf("Insight generation failed for %s: %v", name, err)
		}
		fallthrough
	default:
		ins.Importance = StubText(a.Category)
		ins.Source = SourceStub
	}

	r.cache[key] = ins
	return ins
}

// Cached reports how many places have been resolved.
func (r *Resolver) Cached() int {
	return len(r.cache)
}
