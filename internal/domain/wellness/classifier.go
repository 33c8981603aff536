package wellness

import "strings"

// Classifier derives signals from free text.
type Classifier interface {
	Classify(text string) Signals
}

// Metric identifies one tracked wellness metric.
type Metric int

// Tracked metrics.
const (
	MetricStress Metric = iota
	MetricEnergy
	MetricBurnout
	MetricConfidence
)

// Keyword is one lexicon entry: a phrase and the metric value it implies.
type Keyword struct {
	Phrase string
	Metric Metric
	Value  float64
}

// DefaultLexicon is ordered strongest phrase first within each metric; the
// first match per metric wins.
var DefaultLexicon = []Keyword{
	{Phrase: "burned out", Metric: MetricBurnout, Value: 9},
	{Phrase: "burnt out", Metric: MetricBurnout, Value: 9},
	{Phrase: "exhausted", Metric: MetricBurnout, Value: 8},
	{Phrase: "drained", Metric: MetricBurnout, Value: 7},
	{Phrase: "overwhelmed", Metric: MetricStress, Value: 8},
	{Phrase: "panic", Metric: MetricStress, Value: 8},
	{Phrase: "anxious", Metric: MetricStress, Value: 7},
	{Phrase: "stressed", Metric: MetricStress, Value: 7},
	{Phrase: "relaxed", Metric: MetricStress, Value: 3},
	{Phrase: "calm", Metric: MetricStress, Value: 3},
	{Phrase: "energized", Metric: MetricEnergy, Value: 8},
	{Phrase: "energetic", Metric: MetricEnergy, Value: 8},
	{Phrase: "rested", Metric: MetricEnergy, Value: 7},
	{Phrase: "tired", Metric: MetricEnergy, Value: 3},
	{Phrase: "sluggish", Metric: MetricEnergy, Value: 3},
	{Phrase: "confident", Metric: MetricConfidence, Value: 8},
	{Phrase: "proud", Metric: MetricConfidence, Value: 7},
	{Phrase: "unsure", Metric: MetricConfidence, Value: 4},
	{Phrase: "doubt", Metric: MetricConfidence, Value: 3},
}

// KeywordClassifier matches lowercase phrases against text.
type KeywordClassifier struct {
	lexicon []Keyword
}

// NewKeywordClassifier returns a classifier over lexicon, or over
// DefaultLexicon when lexicon is empty. Phrases must be lowercase.
func NewKeywordClassifier(lexicon ...Keyword) *KeywordClassifier {
	if len(lexicon) == 0 {
		lexicon = DefaultLexicon
	}
	return &KeywordClassifier{lexicon: lexicon}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(text string) Signals {
	var out Signals
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, kw := range c.lexicon {
		if !strings.Contains(text, kw.Phrase) {
			continue
		}
		slot := out.slot(kw.Metric)
		if *slot == nil {
			*slot = ptr(kw.Value)
		}
	}
	return out
}

func (s *Signals) slot(m Metric) **float64 {
	switch m {
	case MetricStress:
		return &s.Stress
	case MetricEnergy:
		return &s.Energy
	case MetricBurnout:
		return &s.Burnout
	default:
		return &s.Confidence
	}
}
