package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/GruntingRhino/Athlemetry/internal/adapters/repository"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/seed"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := repository.Open(repository.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	store := repository.New(db)
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestCatalog(t *testing.T) {
	Convey("Given an empty database", t, func() {
		ctx := context.Background()
		store := newStore(t)
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("Catalog installs every drill and the default model version", func() {
			sum, err := seed.Catalog(ctx, store, now)
			So(err, ShouldBeNil)
			So(sum.Drills, ShouldEqual, len(model.DrillCatalog()))
			So(sum.ActivatedVersion, ShouldEqual, model.DefaultModelVersion)

			drills, err := store.ListDrills(ctx, true)
			So(err, ShouldBeNil)
			So(len(drills), ShouldEqual, len(model.DrillCatalog()))

			active, err := store.ActiveModelVersion(ctx)
			So(err, ShouldBeNil)
			So(active, ShouldEqual, model.DefaultModelVersion)

			Convey("and a second run keeps drill ids and the active version", func() {
				_, err := store.ActivateModelVersion(ctx, "v2.0.0", "", now)
				So(err, ShouldBeNil)
				sprint, err := store.FindDrillBySlug(ctx, model.DrillSprint20m)
				So(err, ShouldBeNil)

				again, err := seed.Catalog(ctx, store, now.Add(time.Hour))
				So(err, ShouldBeNil)
				So(again.ActivatedVersion, ShouldBeEmpty)

				after, err := store.FindDrillBySlug(ctx, model.DrillSprint20m)
				So(err, ShouldBeNil)
				So(after.ID, ShouldEqual, sprint.ID)
				active, err := store.ActiveModelVersion(ctx)
				So(err, ShouldBeNil)
				So(active, ShouldEqual, "v2.0.0")
			})
		})
	})
}
