package extraction_test

import (
	"testing"

	"github.com/GruntingRhino/Athlemetry/internal/domain/extraction"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const megabyte = 1024 * 1024

func TestExtract(t *testing.T) {
	Convey("Given a sprint recorded at 30fps with frame markers", t, func() {
		in := extraction.Input{
			DrillType:   model.DrillSprint20m,
			FrameRate:   model.Float(30),
			StartFrame:  model.Int(15),
			FinishFrame: model.Int(165),
			FileSize:    20 * megabyte,
		}

		Convey("When extracting metrics", func() {
			out := extraction.Extract(in)

			Convey("Then the sprint time comes from the frame interval", func() {
				So(*out.SprintTime, ShouldEqual, 5.0)
				So(*out.AccelerationTiming, ShouldEqual, 1.75)
				So(*out.FrameBasedDuration, ShouldEqual, 5.0)
			})

			Convey("Then error tolerance reflects the frame rate", func() {
				So(*out.ErrorToleranceScore, ShouldBeGreaterThan, 0.9)
				So(*out.ReliabilityScore, ShouldEqual, 95.6)
			})

			Convey("Then drill-specific fields are absent", func() {
				So(out.ShotTiming, ShouldBeNil)
				So(out.RepetitionCount, ShouldBeNil)
				So(out.ChangeOfDirectionMeasurement, ShouldBeNil)
			})
		})
	})

	Convey("Given an agility drill without frame markers", t, func() {
		in := extraction.Input{DrillType: model.DrillAgility5105, FileSize: 50 * megabyte}

		Convey("When extracting metrics", func() {
			out := extraction.Extract(in)

			Convey("Then the size-based baseline drives the result", func() {
				So(*out.ChangeOfDirectionMeasurement, ShouldBeGreaterThan, 3)
				So(*out.AccelerationTiming, ShouldBeGreaterThan, 1)
				So(out.FrameBasedDuration, ShouldBeNil)
				So(*out.ErrorToleranceScore, ShouldEqual, 0.72)
				So(*out.ReliabilityScore, ShouldEqual, 72.0)
			})
		})
	})

	Convey("Given frame markers that do not describe a positive interval", t, func() {
		in := extraction.Input{
			DrillType:   model.DrillSprint20m,
			FrameRate:   model.Float(30),
			StartFrame:  model.Int(100),
			FinishFrame: model.Int(100),
		}

		Convey("Then the baseline minimum is used", func() {
			out := extraction.Extract(in)
			So(*out.SprintTime, ShouldEqual, 2.8)
			So(out.FrameBasedDuration, ShouldBeNil)
		})
	})

	Convey("Given a very large file", t, func() {
		in := extraction.Input{DrillType: model.DrillSprint20m, FileSize: 1000 * megabyte}

		Convey("Then the baseline is clamped at its maximum", func() {
			So(*extraction.Extract(in).SprintTime, ShouldEqual, 15.0)
		})
	})

	Convey("Given a shooting drill", t, func() {
		Convey("When no repetition hint is provided", func() {
			out := extraction.Extract(extraction.Input{DrillType: model.DrillShootingAccuracy})
			So(*out.RepetitionCount, ShouldEqual, 10)
			So(*out.DrillCompletionRate, ShouldEqual, 1.0)
			So(*out.ConsistencyScore, ShouldEqual, 83.0)
			So(*out.ShotTiming, ShouldEqual, 1.26)
		})

		Convey("When a repetition hint of 5 is provided", func() {
			out := extraction.Extract(extraction.Input{DrillType: model.DrillShootingAccuracy, RepetitionHint: model.Int(5)})
			So(*out.RepetitionCount, ShouldEqual, 5)
			So(*out.DrillCompletionRate, ShouldEqual, 0.5)
			So(*out.ConsistencyScore, ShouldEqual, 74.0)
		})
	})

	Convey("Given a cone dribble drill", t, func() {
		out := extraction.Extract(extraction.Input{DrillType: model.DrillConeDribble, RepetitionHint: model.Int(12)})

		Convey("Then completion and consistency are capped", func() {
			So(*out.DrillCompletionRate, ShouldEqual, 1.0)
			So(*out.ConsistencyScore, ShouldEqual, 100.0)
			So(*out.ChangeOfDirectionMeasurement, ShouldEqual, 3.08)
		})
	})

	Convey("Given an unknown drill type", t, func() {
		out := extraction.Extract(extraction.Input{DrillType: "juggling"})

		Convey("Then the endurance branch is used", func() {
			So(*out.RepetitionCount, ShouldEqual, 15)
			So(*out.AccelerationTiming, ShouldEqual, 0.784)
			So(*out.MotionTrackingScore, ShouldEqual, 77.0)
		})
	})

	Convey("Given the same input twice", t, func() {
		in := extraction.Input{DrillType: model.DrillShuttleEndurance, FrameRate: model.Float(60), StartFrame: model.Int(0), FinishFrame: model.Int(600)}

		Convey("Then the output is identical", func() {
			So(extraction.Extract(in), ShouldResemble, extraction.Extract(in))
			So(extraction.Placeholder{}.Extract(in), ShouldResemble, extraction.Extract(in))
		})
	})
}
