package model_test

import (
	"math"
	"testing"

	model "github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestProcessingStatus(t *testing.T) {
	convey.Convey("Given the processing statuses", t, func() {
		convey.Convey("Then only QUEUED and RETRYING are pending", func() {
			convey.So(model.StatusQueued.Pending(), convey.ShouldBeTrue)
			convey.So(model.StatusRetrying.Pending(), convey.ShouldBeTrue)
			convey.So(model.StatusProcessing.Pending(), convey.ShouldBeFalse)
			convey.So(model.StatusCompleted.Pending(), convey.ShouldBeFalse)
			convey.So(model.StatusFailed.Pending(), convey.ShouldBeFalse)
		})

		convey.Convey("Then COMPLETED and FAILED are terminal", func() {
			convey.So(model.StatusCompleted.Terminal(), convey.ShouldBeTrue)
			convey.So(model.StatusFailed.Terminal(), convey.ShouldBeTrue)
			convey.So(model.StatusRetrying.Terminal(), convey.ShouldBeFalse)
		})

		convey.Convey("Then unknown values are invalid", func() {
			convey.So(model.ProcessingStatus("DONE").Valid(), convey.ShouldBeFalse)
			convey.So(model.StatusRetrying.Valid(), convey.ShouldBeTrue)
		})
	})
}

func TestMetricsValue(t *testing.T) {
	convey.Convey("Given a sparse metric set", t, func() {
		m := model.Metrics{
			SprintTime:      model.Float(5.1),
			RepetitionCount: model.Int(12),
			ShotTiming:      model.Float(math.NaN()),
		}

		convey.Convey("When reading a present float metric", func() {
			v, ok := m.Value(model.MetricSprintTime)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 5.1)
		})

		convey.Convey("When reading the integer repetition count", func() {
			v, ok := m.Value(model.MetricRepetitionCount)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 12.0)
		})

		convey.Convey("When reading absent, non-finite or unknown metrics", func() {
			_, ok := m.Value(model.MetricConsistencyScore)
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = m.Value(model.MetricShotTiming)
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = m.Value("topSpeed")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestDrillCatalog(t *testing.T) {
	convey.Convey("Given the built-in drill catalog", t, func() {
		catalog := model.DrillCatalog()

		convey.Convey("Then every drill names a primary metric", func() {
			convey.So(len(catalog), convey.ShouldEqual, 5)
			for _, d := range catalog {
				convey.So(d.MetricPrimaryKey, convey.ShouldNotBeEmpty)
				convey.So(d.IsActive, convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then timing drills are lower-is-better", func() {
			bySlug := map[string]model.DrillDefinition{}
			for _, d := range catalog {
				bySlug[d.Slug] = d
			}
			convey.So(bySlug[model.DrillSprint20m].LowerIsBetter, convey.ShouldBeTrue)
			convey.So(bySlug[model.DrillConeDribble].LowerIsBetter, convey.ShouldBeFalse)
			convey.So(bySlug[model.DrillShuttleEndurance].MetricPrimaryKey, convey.ShouldEqual, model.MetricRepetitionCount)
		})
	})
}
