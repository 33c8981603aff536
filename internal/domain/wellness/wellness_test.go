package wellness_test

import (
	"testing"
	"time"

	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/domain/wellness"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }

type fixedClassifier struct{ out wellness.Signals }

func (c fixedClassifier) Classify(string) wellness.Signals { return c.out }

func TestKeywordClassifier(t *testing.T) {
	Convey("Given the default keyword classifier", t, func() {
		c := wellness.NewKeywordClassifier()

		Convey("When text says exhausted", func() {
			sig := c.Classify("Honestly I am Exhausted after the trial")

			Convey("Then burnout is 8", func() {
				So(sig.Burnout, ShouldNotBeNil)
				So(*sig.Burnout, ShouldEqual, 8)
				So(sig.Stress, ShouldBeNil)
			})
		})

		Convey("When several phrases hit one metric", func() {
			sig := c.Classify("burned out and exhausted")

			Convey("Then the strongest listed phrase wins", func() {
				So(*sig.Burnout, ShouldEqual, 9)
			})
		})

		Convey("When text is blank", func() {
			So(c.Classify("   ").Empty(), ShouldBeTrue)
		})
	})

	Convey("Given a custom lexicon", t, func() {
		c := wellness.NewKeywordClassifier(wellness.Keyword{Phrase: "fried", Metric: wellness.MetricBurnout, Value: 6})

		Convey("Then only its phrases match", func() {
			So(*c.Classify("totally fried").Burnout, ShouldEqual, 6)
			So(c.Classify("exhausted").Empty(), ShouldBeTrue)
		})
	})
}

func TestExtractor(t *testing.T) {
	Convey("Given an extractor with the keyword classifier", t, func() {
		e := wellness.NewExtractor(nil)

		Convey("When numeric fields are present in any JSON shape", func() {
			sig := e.Extract(model.KindWellnessCheckIn, map[string]any{
				"stressLevel": float64(8),
				"energy":      "4",
				"notes":       "calm and confident",
			})

			Convey("Then they are coerced and win over text", func() {
				So(*sig.Stress, ShouldEqual, 8)
				So(*sig.Energy, ShouldEqual, 4)
				So(*sig.Confidence, ShouldEqual, 8)
			})
		})

		Convey("When only text is present", func() {
			sig := e.Extract("gratitude_journal", map[string]any{
				"feelings": []any{"exhausted", 3},
			})

			Convey("Then the classifier fills the metric", func() {
				So(*sig.Burnout, ShouldEqual, 8)
			})
		})

		Convey("When a kind-specific alias is used", func() {
			sig := e.Extract(model.KindCompassCheck, map[string]any{"moralDistressLevel": 10})

			Convey("Then it maps onto the metric", func() {
				So(*sig.Stress, ShouldEqual, 10)
			})
		})

		Convey("When the alias belongs to another kind", func() {
			sig := e.Extract(model.KindTeamingReflection, map[string]any{"moralDistressLevel": 10})

			Convey("Then it is ignored", func() {
				So(sig.Stress, ShouldBeNil)
			})
		})

		Convey("When values are out of range or unusable", func() {
			sig := e.Extract(model.KindWellnessCheckIn, map[string]any{
				"stressLevel": 40,
				"energyLevel": "lots",
				"burnout":     true,
				"burnoutRisk": "high",
			})

			Convey("Then numbers are clamped and junk is skipped", func() {
				So(*sig.Stress, ShouldEqual, 10)
				So(sig.Energy, ShouldBeNil)
				So(*sig.Burnout, ShouldEqual, 8)
			})
		})
	})

	Convey("Given a swapped classifier", t, func() {
		e := wellness.NewExtractor(fixedClassifier{out: wellness.Signals{Energy: f(2)}})

		Convey("Then its signals are used for missing metrics", func() {
			sig := e.Extract("anything", map[string]any{"stress": 6})
			So(*sig.Stress, ShouldEqual, 6)
			So(*sig.Energy, ShouldEqual, 2)
		})
	})
}

func TestMerge(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	Convey("Given an empty weekly snapshot", t, func() {
		var snap model.Snapshot

		Convey("When stress 8 then 4 is merged", func() {
			snap = wellness.Merge(snap, wellness.Signals{Stress: f(8)}, now)
			snap = wellness.Merge(snap, wellness.Signals{Stress: f(4)}, now)

			Convey("Then stress is 6", func() {
				So(snap.StressLevel, ShouldEqual, 6)
				So(snap.StressSamples, ShouldEqual, 2)
				So(snap.UpdatedAt, ShouldEqual, now)
			})
		})

		Convey("When three values arrive in different orders", func() {
			orders := [][]float64{{10, 2, 9}, {9, 2, 10}, {2, 10, 9}}
			for _, order := range orders {
				s := model.Snapshot{}
				for _, v := range order {
					s = wellness.Merge(s, wellness.Signals{Stress: f(v), Energy: f(v)}, now)
				}

				So(s.StressLevel, ShouldAlmostEqual, 7, 1e-9)
				So(s.EnergyLevel, ShouldAlmostEqual, 7, 1e-9)
			}
		})

		Convey("When burnout is merged", func() {
			snap = wellness.Merge(snap, wellness.Signals{Burnout: f(9)}, now)
			snap = wellness.Merge(snap, wellness.Signals{Burnout: f(3)}, now)

			Convey("Then the weekly maximum is kept and recovery is flagged", func() {
				So(snap.BurnoutScore, ShouldEqual, 9)
				So(snap.RecoveryNeeded, ShouldBeTrue)
			})
		})

		Convey("When stress stays high across saves", func() {
			snap = wellness.Merge(snap, wellness.Signals{Stress: f(9)}, now)
			So(snap.HighStressPattern, ShouldBeFalse)
			snap = wellness.Merge(snap, wellness.Signals{Stress: f(8), Confidence: f(8)}, now)

			Convey("Then the high stress pattern is flagged", func() {
				So(snap.HighStressPattern, ShouldBeTrue)
				So(snap.GrowthTrajectory, ShouldBeTrue)
			})
		})

		Convey("When empty signals are merged", func() {
			snap = wellness.Merge(snap, wellness.Signals{}, now)

			Convey("Then no metric changes", func() {
				So(snap.StressSamples, ShouldEqual, 0)
				So(snap.RecoveryNeeded, ShouldBeFalse)
			})
		})
	})
}

func TestWeekOf(t *testing.T) {
	Convey("Given times across a week", t, func() {
		monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

		Convey("Then all map to that Monday", func() {
			for d := 0; d < 7; d++ {
				got := wellness.WeekOf(monday.AddDate(0, 0, d).Add(13*time.Hour), time.UTC)
				So(got.Equal(monday), ShouldBeTrue)
			}
		})

		Convey("And the next Monday starts a new week", func() {
			So(wellness.WeekOf(monday.AddDate(0, 0, 7), time.UTC).Equal(monday), ShouldBeFalse)
		})

		Convey("And the location decides the day", func() {
			tokyo := time.FixedZone("JST", 9*3600)
			sundayNightUTC := time.Date(2026, 3, 8, 20, 0, 0, 0, time.UTC)
			So(wellness.WeekOf(sundayNightUTC, time.UTC).Equal(monday), ShouldBeTrue)
			So(wellness.WeekOf(sundayNightUTC, tokyo).Format("2006-01-02"), ShouldEqual, "2026-03-09")
		})
	})
}

func TestHasher(t *testing.T) {
	Convey("Given two hashers with different salts", t, func() {
		a := wellness.NewHasher("salt-a")
		b := wellness.NewHasher("salt-b")

		Convey("Then hashes are stable per salt and differ across salts", func() {
			So(a.UserHash("u1"), ShouldEqual, a.UserHash("u1"))
			So(a.UserHash("u1"), ShouldNotEqual, b.UserHash("u1"))
			So(a.UserHash("u1"), ShouldNotEqual, a.UserHash("u2"))
			So(len(a.UserHash("u1")), ShouldEqual, 64)
		})

		Convey("And record hashes differ per save", func() {
			So(a.RecordHash("u1", "s1"), ShouldNotEqual, a.RecordHash("u1", "s2"))
			So(a.RecordHash("u1", "s1"), ShouldNotContainSubstring, "u1")
		})

		Convey("And long salts are accepted", func() {
			long := wellness.NewHasher(string(make([]byte, 200)))
			So(long.UserHash("u1"), ShouldNotBeEmpty)
		})
	})
}
