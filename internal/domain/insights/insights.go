package insights

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/spf13/cast"

	"github.com/okian/interpretreflect/internal/domain/model"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// Stats is the summary shown on the reflection dashboard.
type Stats struct {
	Total          int                `json:"totalReflections"`
	ThisWeek       int                `json:"thisWeek"`
	ThisMonth      int                `json:"thisMonth"`
	CurrentStreak  int                `json:"currentStreak"`
	Kinds          map[model.Kind]int `json:"entryKinds"`
	LastReflection *time.Time         `json:"lastReflection,omitempty"`
}

// KindCount is one row of the kind frequency table.
type KindCount struct {
	Kind  model.Kind `json:"kind"`
	Count int        `json:"count"`
}

// DayCount is one point of the activity timeline.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Insights is the growth summary over a time window.
type Insights struct {
	WindowDays     int         `json:"windowDays,omitempty"`
	Total          int         `json:"totalReflections"`
	TopKinds       []KindCount `json:"topKinds"`
	CurrentStreak  int         `json:"currentStreak"`
	AveragePerWeek float64     `json:"averagePerWeek"`
	Timeline       []DayCount  `json:"timeline"`
	AverageStress  *float64    `json:"averageStress,omitempty"`
	AverageEnergy  *float64    `json:"averageEnergy,omitempty"`
}

// EmptyStats returns the zero summary with non-nil collections.
func EmptyStats() Stats {
	return Stats{Kinds: map[model.Kind]int{}}
}

// EmptyInsights returns the zero insights with non-nil collections.
func EmptyInsights(window time.Duration) Insights {
	return Insights{WindowDays: int(window / day), TopKinds: []KindCount{}, Timeline: []DayCount{}}
}

// ComputeStats summarizes entries. This week and this month are rolling
// 7 and 30 day windows ending at now.
func ComputeStats(entries []model.Entry, now time.Time, loc *time.Location) Stats {
	s := EmptyStats()
	times := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		s.Total++
		s.Kinds[e.Kind]++
		age := now.Sub(e.CreatedAt)
		if age < week {
			s.ThisWeek++
		}
		if age < 30*day {
			s.ThisMonth++
		}
		if s.LastReflection == nil || e.CreatedAt.After(*s.LastReflection) {
			t := e.CreatedAt
			s.LastReflection = &t
		}
		times = append(times, e.CreatedAt)
	}
	s.CurrentStreak = Streak(times, now, loc)
	return s
}

// ComputeInsights summarizes entries created within window of now. A zero
// window covers all entries. At most topN kinds are listed, most frequent
// first with ties broken by name.
func ComputeInsights(entries []model.Entry, window time.Duration, now time.Time, loc *time.Location, topN int) Insights {
	if loc == nil {
		loc = time.UTC
	}
	out := EmptyInsights(window)

	var (
		kinds                    = map[model.Kind]int{}
		days                     = map[string]int{}
		times                    []time.Time
		earliest                 time.Time
		stressSum, energySum     float64
		stressCount, energyCount int
	)
	for _, e := range entries {
		if window > 0 && now.Sub(e.CreatedAt) > window {
			continue
		}
		out.Total++
		kinds[e.Kind]++
		days[e.CreatedAt.In(loc).Format(dayLayout)]++
		times = append(times, e.CreatedAt)
		if earliest.IsZero() || e.CreatedAt.Before(earliest) {
			earliest = e.CreatedAt
		}
		if v, ok := metricField(e.Data, "stressLevel"); ok {
			stressSum += v
			stressCount++
		}
		if v, ok := metricField(e.Data, "energyLevel"); ok {
			energySum += v
			energyCount++
		}
	}
	if out.Total == 0 {
		return out
	}

	for k, n := range kinds {
		out.TopKinds = append(out.TopKinds, KindCount{Kind: k, Count: n})
	}
	slices.SortFunc(out.TopKinds, func(a, b KindCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	if topN > 0 && len(out.TopKinds) > topN {
		out.TopKinds = out.TopKinds[:topN]
	}

	for d, n := range days {
		out.Timeline = append(out.Timeline, DayCount{Date: d, Count: n})
	}
	slices.SortFunc(out.Timeline, func(a, b DayCount) int { return cmp.Compare(a.Date, b.Date) })

	span := window
	if span <= 0 {
		span = now.Sub(earliest)
	}
	weeks := math.Max(1, span.Hours()/week.Hours())
	out.AveragePerWeek = math.Round(float64(out.Total)/weeks*100) / 100
	out.CurrentStreak = Streak(times, now, loc)

	if stressCount > 0 {
		v := stressSum / float64(stressCount)
		out.AverageStress = &v
	}
	if energyCount > 0 {
		v := energySum / float64(energyCount)
		out.AverageEnergy = &v
	}
	return out
}

func metricField(data map[string]any, name string) (float64, bool) {
	raw, ok := data[name]
	if !ok || raw == nil {
		return 0, false
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
