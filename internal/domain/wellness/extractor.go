package wellness

import (
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/okian/interpretreflect/internal/domain/model"
)

// Field names checked for each metric, in priority order.
var commonAliases = map[Metric][]string{
	MetricStress:     {"stressLevel", "stress_level", "stress"},
	MetricEnergy:     {"energyLevel", "energy_level", "energy"},
	MetricBurnout:    {"burnoutScore", "burnout_score", "burnout"},
	MetricConfidence: {"confidenceLevel", "confidence_level", "confidence"},
}

// Extra aliases for fields that only some forms produce. They are checked
// after the common ones.
var kindAliases = map[model.Kind]map[Metric][]string{
	model.KindCompassCheck: {
		MetricStress: {"moralDistressLevel"},
	},
	model.KindMentoringReflection: {
		MetricConfidence: {"confidenceAfter"},
	},
	model.KindPostAssignmentDebrief: {
		MetricBurnout:    {"emotionalResidue"},
		MetricConfidence: {"selfAssessment"},
	},
	model.KindValuesAlignment: {
		MetricStress: {"integrityStrain"},
	},
}

// Categorical fields that map onto a metric.
var categoricalAliases = map[string]struct {
	metric Metric
	values map[string]float64
}{
	"burnoutRisk": {metric: MetricBurnout, values: map[string]float64{"low": 2, "moderate": 5, "high": 8}},
}

// Extractor reads wellness signals from a reflection's data map.
type Extractor struct {
	classifier Classifier
}

// NewExtractor returns an extractor using c for free text. A nil classifier
// falls back to the keyword classifier.
func NewExtractor(c Classifier) *Extractor {
	if c == nil {
		c = NewKeywordClassifier()
	}
	return &Extractor{classifier: c}
}

// Extract returns the signals found in data. Numeric fields take priority
// over signals inferred from text.
func (e *Extractor) Extract(kind model.Kind, data map[string]any) Signals {
	var numeric Signals
	for _, m := range []Metric{MetricStress, MetricEnergy, MetricBurnout, MetricConfidence} {
		names := slices.Concat(commonAliases[m], kindAliases[kind][m])
		if v, ok := firstNumber(data, names); ok {
			*numeric.slot(m) = ptr(clampMetric(v))
		}
	}
	for field, cat := range categoricalAliases {
		slot := numeric.slot(cat.metric)
		if *slot != nil {
			continue
		}
		if v, ok := cat.values[cast.ToString(data[field])]; ok {
			*slot = ptr(v)
		}
	}
	return numeric.Overlay(e.classifier.Classify(freeText(data)))
}

func firstNumber(data map[string]any, names []string) (float64, bool) {
	for _, name := range names {
		raw, ok := data[name]
		if !ok || raw == nil {
			continue
		}
		if _, isBool := raw.(bool); isBool {
			continue
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil || v == 0 {
			continue
		}
		return v, true
	}
	return 0, false
}

// freeText joins every string value (and string list item) in key order.
func freeText(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			b.WriteString(v)
			b.WriteByte(' ')
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					b.WriteString(s)
					b.WriteByte(' ')
				}
			}
		case []string:
			for _, s := range v {
				b.WriteString(s)
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}
