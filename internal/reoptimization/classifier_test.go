package reoptimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		text string
		want SignalSet
	}{
		{"I'm starving!", SignalSet{Hunger: true}},
		{"We need a break, my feet hurt.", SignalSet{Fatigue: true}},
		{"can't walk any further and want to eat", SignalSet{Hunger: true, Fatigue: true}},
		{"The square is overcrowded", SignalSet{Urgent: true}},
		{"Interesting architecture", SignalSet{}},
		{"", SignalSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestSingleWordsMatchWholeTokens(t *testing.T) {
	c := DefaultClassifier()
	// "eat" must not fire inside "theatre" or "great"
	assert.False(t, c.Classify("a great theatre").Hunger)
	// "rest" must not fire inside "interesting" or "forest"
	assert.False(t, c.Classify("an interesting forest walk").Fatigue)
}

func TestCustomClassifier(t *testing.T) {
	c := KeywordClassifier{Hunger: []string{"fome"}}
	assert.True(t, c.Classify("Estou com fome").Hunger)
	assert.False(t, c.Classify("Estou com fome").Fatigue)
}
