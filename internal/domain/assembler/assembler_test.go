package assembler_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/interpretreflect/internal/domain/assembler"
	"github.com/okian/interpretreflect/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAssemble(t *testing.T) {
	Convey("Given a Compass Check payload", t, func() {
		p := model.CompassCheck{
			WeightLevel:      "crushing",
			Affecting:        "sleep",
			ValuesInConflict: []string{"accuracy", "neutrality"},
			NextStep:         "talk to my mentor",
		}

		Convey("When it is assembled", func() {
			rec, err := assembler.Assemble(p)

			Convey("Then raw fields and scores share one flat map", func() {
				So(err, ShouldBeNil)
				So(rec.Kind, ShouldEqual, model.KindCompassCheck)
				So(rec.Data["weightLevel"], ShouldEqual, "crushing")
				So(rec.Data["moralDistressLevel"], ShouldEqual, float64(10))
				So(rec.Data["residueIntensity"], ShouldEqual, float64(8))
				So(rec.Data["planMade"], ShouldEqual, true)
				So(rec.Data["valuesAtStake"], ShouldEqual, float64(2))
			})
		})

		Convey("When it is assembled twice", func() {
			a, errA := assembler.Assemble(p)
			b, errB := assembler.Assemble(p)
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)

			Convey("Then the canonical encodings are byte identical", func() {
				ca, err := a.Canonical()
				So(err, ShouldBeNil)
				cb, err := b.Canonical()
				So(err, ShouldBeNil)
				So(string(ca), ShouldEqual, string(cb))
			})
		})
	})

	Convey("Given a Team Reflection without conflict", t, func() {
		rec, err := assembler.Assemble(model.TeamingReflection{CollaborationQuality: "good"})

		Convey("Then conflict details are absent from the record", func() {
			So(err, ShouldBeNil)
			_, ok := rec.Data["conflict"]
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an unknown kind", t, func() {
		fields := map[string]any{"grateful_for": "quiet booth"}
		rec, err := assembler.Assemble(model.Unknown{Tag: "gratitude_journal", Fields: fields})

		Convey("Then fields pass through unscored", func() {
			So(err, ShouldBeNil)
			So(rec.Kind, ShouldEqual, model.Kind("gratitude_journal"))
			So(rec.Data, ShouldResemble, fields)
		})

		Convey("And the caller's map is not shared", func() {
			rec.Data["extra"] = 1
			_, ok := fields["extra"]
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a submission with a field the form type does not declare", t, func() {
		raw := json.RawMessage(`{"difficulty":"overwhelming","emotionalImpact":"severe","hospitalWard":"ICU 4"}`)
		p, err := model.DecodePayload(model.KindPostAssignmentDebrief, raw)
		So(err, ShouldBeNil)

		Convey("When it is assembled with its raw fields", func() {
			rec, err := assembler.AssembleFields(p, raw)

			Convey("Then the undeclared field survives next to the scores", func() {
				So(err, ShouldBeNil)
				So(rec.Data["hospitalWard"], ShouldEqual, "ICU 4")
				So(rec.Data["difficulty"], ShouldEqual, "overwhelming")
				So(len(rec.Data), ShouldBeGreaterThan, 3)
			})
		})

		Convey("When a raw field collides with a score key", func() {
			collide := json.RawMessage(`{"weightLevel":"light","affecting":"nothing","moralDistressLevel":99}`)
			cp, err := model.DecodePayload(model.KindCompassCheck, collide)
			So(err, ShouldBeNil)
			rec, err := assembler.AssembleFields(cp, collide)

			Convey("Then the computed score wins", func() {
				So(err, ShouldBeNil)
				So(rec.Data["moralDistressLevel"], ShouldNotEqual, float64(99))
			})
		})

		Convey("When the raw fields are not an object", func() {
			_, err := assembler.AssembleFields(p, json.RawMessage(`[1,2]`))

			Convey("Then assembly fails as an invalid payload", func() {
				So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
			})
		})
	})

	Convey("Given a nil payload", t, func() {
		_, err := assembler.Assemble(nil)

		Convey("Then assembly fails", func() {
			So(errors.Is(err, assembler.ErrNilPayload), ShouldBeTrue)
		})
	})
}
