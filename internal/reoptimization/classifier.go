package reoptimization

import (
	"strings"
	"unicode"
)

// SignalSet is what a free-text traveler report was found to say
type SignalSet struct {
	Hunger  bool `json:"hunger"`
	Fatigue bool `json:"fatigue"`
	Urgent  bool `json:"urgent"`
}

// Classifier turns a free-text report into signals
type Classifier interface {
	Classify(text string) SignalSet
}

// KeywordClassifier matches single words against the tokens of the text and
// multi-word phrases against the whole lowercased text.
type KeywordClassifier struct {
	Hunger  []string
	Fatigue []string
	Urgent  []string
}

var _ Classifier = KeywordClassifier{}

// DefaultClassifier returns the built-in keyword lists.
func DefaultClassifier() KeywordClassifier {
	return KeywordClassifier{
		Hunger: []string{
			"hungry", "starving", "famished", "need food", "want to eat", "too hungry",
			"eat", "lunch", "dinner", "snack", "food", "meal", "restaurant",
		},
		Fatigue: []string{
			"tired", "exhausted", "need rest", "feet hurt", "worn out",
			"take a break", "sit down", "need a break", "cant walk",
			"can't walk", "too much walking", "too tired", "rest",
		},
		Urgent: []string{"closed", "full", "crowded", "storm", "flood"},
	}
}

func (k KeywordClassifier) Classify(text string) SignalSet {
	lower := strings.ToLower(text)
	tokens := make(map[string]bool)
	for _, t := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		tokens[strings.Trim(t, "'")] = true
	}
	return SignalSet{
		Hunger:  matchAny(lower, tokens, k.Hunger),
		Fatigue: matchAny(lower, tokens, k.Fatigue),
		Urgent:  containsAny(lower, k.Urgent),
	}
}

func matchAny(lower string, tokens map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		if tokens[kw] {
			return true
		}
	}
	return false
}

// containsAny matches substrings, so "crowded" also catches "overcrowded".
func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
