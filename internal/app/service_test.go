package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/GruntingRhino/Athlemetry/internal/app"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/repository"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/storage"
	"github.com/GruntingRhino/Athlemetry/internal/domain/claim"
	"github.com/GruntingRhino/Athlemetry/internal/domain/extraction"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/processing"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
)

type fixture struct {
	store *repository.Store
	local *storage.Local
	svc   *service.Service
	drill *model.DrillDefinition
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.Open(repository.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	store := repository.New(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var sprint model.DrillDefinition
	for _, d := range model.DrillCatalog() {
		if d.Slug == model.DrillSprint20m {
			sprint = d
		}
	}
	drill, err := store.UpsertDrill(context.Background(), &sprint)
	if err != nil {
		t.Fatalf("seed drill: %v", err)
	}

	dir := t.TempDir()
	resolver := storage.NewResolver(storage.Config{Provider: string(storage.ProviderLocal), LocalDir: dir})
	return &fixture{
		store: store,
		local: storage.NewLocal(dir),
		svc:   service.New(store, resolver, opts...),
		drill: drill,
	}
}

func (f *fixture) athlete(age int) *model.Athlete {
	a := &model.Athlete{
		Name:             "Jordan",
		Age:              model.Int(age),
		Position:         model.String("FWD"),
		CompetitionLevel: model.String("academy"),
	}
	So(f.store.CreateAthlete(context.Background(), a), ShouldBeNil)
	return a
}

func (f *fixture) queued(a *model.Athlete, hint int, queuedAt time.Time) *model.Submission {
	sub := &model.Submission{
		AthleteID:         a.ID,
		DrillDefinitionID: f.drill.ID,
		DrillType:         f.drill.Slug,
		RecordingDate:     queuedAt,
		Location:          "Main pitch",
		RepetitionHint:    model.Int(hint),
		FileName:          "clip.mp4",
		FileSize:          1024,
		MimeType:          "video/mp4",
		ProcessingStatus:  model.StatusQueued,
		QueuedAt:          queuedAt,
	}
	So(f.store.CreateSubmission(context.Background(), sub), ShouldBeNil)
	return sub
}

func (f *fixture) status(id string) *model.Submission {
	sub, err := f.store.FindSubmission(context.Background(), id)
	So(err, ShouldBeNil)
	return sub
}

func upload(athleteID, drillID string) service.SubmitVideoInput {
	return service.SubmitVideoInput{
		AthleteID:         athleteID,
		DrillDefinitionID: drillID,
		RecordingDate:     time.Now().UTC(),
		Location:          "Training ground",
		FrameRate:         model.Float(60),
		StartFrame:        model.Int(12),
		FinishFrame:       model.Int(300),
		FileName:          "sprint.mp4",
		ContentType:       "video/mp4",
		Body:              []byte("not really a video"),
	}
}

// hintExtractor reports the repetition hint as the sprint time.
func hintExtractor(fail *atomic.Bool) extraction.Extractor {
	return extraction.Func(func(in extraction.Input) model.Metrics {
		if fail != nil && fail.Load() {
			panic("model unavailable")
		}
		return model.Metrics{SprintTime: model.Float(float64(*in.RepetitionHint))}
	})
}

func TestSubmitVideo(t *testing.T) {
	ctx := context.Background()

	Convey("Given an upload intake backed by local storage", t, func() {
		f := newFixture(t, service.WithMaxVideoBytes(1024))
		adult := f.athlete(21)

		Convey("A valid upload is queued, processed and its video purged", func() {
			res, err := f.svc.SubmitVideo(ctx, upload(adult.ID, f.drill.ID))
			So(err, ShouldBeNil)
			So(res.SubmissionID, ShouldNotBeEmpty)
			So(res.Batch, ShouldNotBeNil)
			So(res.Batch.Completed, ShouldEqual, 1)

			sub, err := f.svc.SubmissionStatus(ctx, res.SubmissionID)
			So(err, ShouldBeNil)
			So(sub.ProcessingStatus, ShouldEqual, model.StatusCompleted)
			So(sub.MetricResult, ShouldNotBeNil)
			So(sub.MetricResult.MetricVersion, ShouldEqual, model.DefaultModelVersion)
			So(sub.VideoDeletedAt, ShouldNotBeNil)
			So(sub.VideoExpiresAt.After(sub.QueuedAt), ShouldBeTrue)
			So(sub.VideoHash, ShouldHaveLength, 64)
			So(sub.DrillType, ShouldEqual, model.DrillSprint20m)
			So(sub.Metadata["storagePolicy"], ShouldEqual, "metrics-first")

			So(len(sub.ProcessingLogs), ShouldBeGreaterThanOrEqualTo, 2)
			So(sub.ProcessingLogs[0].Status, ShouldEqual, model.StatusQueued)
			So(sub.ProcessingLogs[0].Attempt, ShouldEqual, 0)

			_, statErr := os.Stat(f.local.Path(*sub.StorageKey))
			So(os.IsNotExist(statErr), ShouldBeTrue)

			logs, err := f.store.ListSystemLogs(ctx, model.CategoryUpload, 10)
			So(err, ShouldBeNil)
			So(logs, ShouldHaveLength, 1)
			So(logs[0].Message, ShouldEqual, "Submission queued: "+res.SubmissionID)
			So(logs[0].LatencyMs, ShouldNotBeNil)
		})

		Convey("A minor needs verified parental consent", func() {
			minor := f.athlete(14)
			_, err := f.svc.SubmitVideo(ctx, upload(minor.ID, f.drill.ID))
			So(err, ShouldEqual, service.ErrConsentRequired)

			So(f.svc.ApproveParentConsent(ctx, minor.ID), ShouldBeNil)
			res, err := f.svc.SubmitVideo(ctx, upload(minor.ID, f.drill.ID))
			So(err, ShouldBeNil)
			So(res.SubmissionID, ShouldNotBeEmpty)
		})

		Convey("Unsupported formats and oversized files are rejected", func() {
			in := upload(adult.ID, f.drill.ID)
			in.ContentType = "image/png"
			_, err := f.svc.SubmitVideo(ctx, in)
			So(errors.Is(err, service.ErrInvalidUpload), ShouldBeTrue)

			in = upload(adult.ID, f.drill.ID)
			in.Body = make([]byte, 2048)
			_, err = f.svc.SubmitVideo(ctx, in)
			So(errors.Is(err, service.ErrInvalidUpload), ShouldBeTrue)
		})

		Convey("Inconsistent frame markers are rejected", func() {
			in := upload(adult.ID, f.drill.ID)
			in.FinishFrame = model.Int(12)
			_, err := f.svc.SubmitVideo(ctx, in)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Unknown athletes and inactive drills are rejected", func() {
			_, err := f.svc.SubmitVideo(ctx, upload(uuid.NewString(), f.drill.ID))
			So(err, ShouldEqual, service.ErrAthleteNotFound)

			_, err = f.svc.SubmitVideo(ctx, upload(adult.ID, uuid.NewString()))
			So(err, ShouldEqual, service.ErrDrillUnavailable)

			So(f.store.DB().Model(&model.DrillDefinition{}).Where("id = ?", f.drill.ID).
				Update("is_active", false).Error, ShouldBeNil)
			_, err = f.svc.SubmitVideo(ctx, upload(adult.ID, f.drill.ID))
			So(err, ShouldEqual, service.ErrDrillUnavailable)
		})

		Convey("No submission is written for a rejected upload", func() {
			in := upload(adult.ID, f.drill.ID)
			in.ContentType = "text/plain"
			_, _ = f.svc.SubmitVideo(ctx, in)

			counts, err := f.store.CountByStatus(ctx)
			So(err, ShouldBeNil)
			So(counts, ShouldBeEmpty)
		})
	})
}

func TestRunProcessingBatch(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given five queued submissions in one cohort", t, func() {
		Convey("A sequential batch completes every one and ranks the best first", func() {
			f := newFixture(t, service.WithExtractor(hintExtractor(nil)))
			var subs []*model.Submission
			for i, hint := range []int{7, 6, 5, 4, 3} {
				subs = append(subs, f.queued(f.athlete(12), hint, base.Add(time.Duration(i)*time.Minute)))
			}

			res, err := f.svc.RunProcessingBatch(ctx, 10)
			So(err, ShouldBeNil)
			So(res.Total, ShouldEqual, 5)
			So(res.Completed, ShouldEqual, 5)
			So(res.Failed, ShouldEqual, 0)
			for i, r := range res.Results {
				So(r.SubmissionID, ShouldEqual, subs[i].ID)
			}

			for _, sub := range subs {
				n, err := f.store.CountBenchmarkSnapshots(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			}

			best, err := f.store.FindBenchmarkSnapshot(ctx, subs[4].ID)
			So(err, ShouldBeNil)
			So(best.Percentile, ShouldEqual, 100)
			So(best.RelativeRank, ShouldEqual, 1)

			agg, err := f.store.FindBenchmarkAggregate(ctx, best.CohortKey, f.drill.ID, model.MetricSprintTime)
			So(err, ShouldBeNil)
			So(agg.SampleSize, ShouldEqual, 5)
			So(agg.Mean, ShouldAlmostEqual, 5.0)

			logs, err := f.store.ListSystemLogs(ctx, model.CategoryProcessingBatch, 1)
			So(err, ShouldBeNil)
			So(logs[0].Level, ShouldEqual, model.LevelInfo)
			So(logs[0].Message, ShouldEqual, "Processed 5 queued submissions.")
		})

		Convey("A concurrent batch completes every one exactly once", func() {
			f := newFixture(t, service.WithExtractor(hintExtractor(nil)), service.WithWorkerCount(3))
			var subs []*model.Submission
			for i, hint := range []int{7, 6, 5, 4, 3} {
				subs = append(subs, f.queued(f.athlete(12), hint, base.Add(time.Duration(i)*time.Minute)))
			}

			res, err := f.svc.RunProcessingBatch(ctx, 10)
			So(err, ShouldBeNil)
			So(res.Completed, ShouldEqual, 5)
			for _, sub := range subs {
				So(f.status(sub.ID).ProcessingAttempts, ShouldEqual, 1)
				n, err := f.store.CountBenchmarkSnapshots(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			}

			again, err := f.svc.RunProcessingBatch(ctx, 10)
			So(err, ShouldBeNil)
			So(again.Total, ShouldEqual, 0)
		})

		Convey("The limit caps the batch at the oldest submissions", func() {
			f := newFixture(t, service.WithExtractor(hintExtractor(nil)))
			older := f.queued(f.athlete(12), 5, base)
			newer := f.queued(f.athlete(12), 4, base.Add(time.Hour))

			res, err := f.svc.RunProcessingBatch(ctx, 1)
			So(err, ShouldBeNil)
			So(res.Total, ShouldEqual, 1)
			So(res.Results[0].SubmissionID, ShouldEqual, older.ID)
			So(f.status(newer.ID).ProcessingStatus, ShouldEqual, model.StatusQueued)
		})
	})

	Convey("Given a submission claimed by another caller", t, func() {
		claimer := claim.NewInMemoryClaimer()
		f := newFixture(t, service.WithClaimer(claimer), service.WithExtractor(hintExtractor(nil)))
		sub := f.queued(f.athlete(16), 4, base)

		token, ok, err := claimer.TryClaim(ctx, sub.ID)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		Convey("The batch skips it without counting a failure", func() {
			res, err := f.svc.RunProcessingBatch(ctx, 10)
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldEqual, 1)
			So(res.Failed, ShouldEqual, 0)
			So(res.Results[0].Err, ShouldEqual, claim.ErrClaimed)
			So(f.status(sub.ID).ProcessingAttempts, ShouldEqual, 0)

			Convey("And processes it once the claim is released", func() {
				So(claimer.Release(ctx, sub.ID, token), ShouldBeNil)
				res, err := f.svc.RunProcessingBatch(ctx, 10)
				So(err, ShouldBeNil)
				So(res.Completed, ShouldEqual, 1)
				So(claimer.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestFailureLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given an extractor that keeps failing", t, func() {
		var failing atomic.Bool
		failing.Store(true)
		claims := claim.NewInMemoryClaimer()
		f := newFixture(t, service.WithExtractor(hintExtractor(&failing)), service.WithClaimer(claims))
		adult := f.athlete(25)

		in := upload(adult.ID, f.drill.ID)
		in.RepetitionHint = model.Int(4)
		res, err := f.svc.SubmitVideo(ctx, in)
		So(err, ShouldBeNil)
		So(res.Batch.Failed, ShouldEqual, 1)

		sub := f.status(res.SubmissionID)
		So(sub.ProcessingStatus, ShouldEqual, model.StatusRetrying)
		So(sub.ProcessingAttempts, ShouldEqual, 1)
		So(*sub.LastError, ShouldContainSubstring, "model unavailable")

		Convey("The third failed attempt is terminal and purges the video", func() {
			for range 2 {
				_, err := f.svc.RunProcessingBatch(ctx, 10)
				So(err, ShouldBeNil)
			}
			sub := f.status(res.SubmissionID)
			So(sub.ProcessingStatus, ShouldEqual, model.StatusFailed)
			So(sub.ProcessingAttempts, ShouldEqual, model.MaxProcessingAttempts)
			So(sub.VideoDeletedAt, ShouldNotBeNil)
			_, statErr := os.Stat(f.local.Path(*sub.StorageKey))
			So(os.IsNotExist(statErr), ShouldBeTrue)

			logs, err := f.store.ListSystemLogs(ctx, model.CategoryProcessingBatch, 1)
			So(err, ShouldBeNil)
			So(logs[0].Level, ShouldEqual, model.LevelWarn)

			next, err := f.svc.RunProcessingBatch(ctx, 10)
			So(err, ShouldBeNil)
			So(next.Total, ShouldEqual, 0)

			Convey("A manual retry reprocesses it", func() {
				failing.Store(false)
				result, err := f.svc.RetrySubmission(ctx, res.SubmissionID)
				So(err, ShouldBeNil)
				So(result.OK, ShouldBeTrue)
				So(result.Attempt, ShouldEqual, model.MaxProcessingAttempts+1)

				sub := f.status(res.SubmissionID)
				So(sub.ProcessingStatus, ShouldEqual, model.StatusCompleted)
				So(sub.LastError, ShouldBeNil)
			})

			Convey("A retry of a claimed submission leaves its state alone", func() {
				token, ok, err := claims.TryClaim(ctx, res.SubmissionID)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				result, err := f.svc.RetrySubmission(ctx, res.SubmissionID)
				So(err, ShouldBeNil)
				So(result.Skipped, ShouldBeTrue)
				So(result.Err, ShouldEqual, claim.ErrClaimed)

				sub := f.status(res.SubmissionID)
				So(sub.ProcessingStatus, ShouldEqual, model.StatusFailed)
				So(sub.ProcessingAttempts, ShouldEqual, model.MaxProcessingAttempts)
				So(sub.LastError, ShouldNotBeNil)
				So(claims.Release(ctx, res.SubmissionID, token), ShouldBeNil)
			})
		})
	})

	Convey("Retrying an unknown submission reports not found", t, func() {
		f := newFixture(t)
		_, err := f.svc.RetrySubmission(ctx, uuid.NewString())
		So(err, ShouldEqual, processing.ErrSubmissionNotFound)

		_, err = f.svc.SubmissionStatus(ctx, uuid.NewString())
		So(err, ShouldEqual, processing.ErrSubmissionNotFound)
	})
}

func TestAdminOperations(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given a service with one queued submission", t, func() {
		f := newFixture(t, service.WithExtractor(hintExtractor(nil)))
		sub := f.queued(f.athlete(19), 5, base)

		Convey("Activating a model version stamps later results", func() {
			_, err := f.svc.ActivateModelVersion(ctx, "  ", "")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			mv, err := f.svc.ActivateModelVersion(ctx, "v2.0.0", "")
			So(err, ShouldBeNil)
			So(mv.IsActive, ShouldBeTrue)
			So(mv.Notes, ShouldEqual, "Manual version activation.")

			r := f.svc.ProcessSubmission(ctx, sub.ID)
			So(r.OK, ShouldBeTrue)
			result, err := f.store.FindMetricResult(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(result.MetricVersion, ShouldEqual, "v2.0.0")

			logs, err := f.store.ListSystemLogs(ctx, model.CategoryModelVersion, 10)
			So(err, ShouldBeNil)
			So(logs, ShouldHaveLength, 1)
		})

		Convey("A manual override forces state and metric values", func() {
			_, err := f.svc.ApplyManualOverride(ctx, service.ManualOverrideInput{SubmissionID: sub.ID, Action: "x"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			_, err = f.svc.ApplyManualOverride(ctx, service.ManualOverrideInput{SubmissionID: uuid.NewString(), Action: "correct-time"})
			So(err, ShouldEqual, processing.ErrSubmissionNotFound)

			completed := model.StatusCompleted
			o, err := f.svc.ApplyManualOverride(ctx, service.ManualOverrideInput{
				SubmissionID:     sub.ID,
				Action:           "correct-time",
				Notes:            "timing gate misfired",
				ProcessingStatus: &completed,
				SprintTime:       model.Float(4.2),
			})
			So(err, ShouldBeNil)
			So(o.AdminID, ShouldEqual, "admin")
			So(o.Payload["sprint_time"], ShouldEqual, 4.2)

			So(f.status(sub.ID).ProcessingStatus, ShouldEqual, model.StatusCompleted)
			result, err := f.store.FindMetricResult(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(result.MetricVersion, ShouldEqual, model.ManualOverrideVersion)
			So(*result.SprintTime, ShouldEqual, 4.2)

			overrides, err := f.store.ListManualOverrides(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(overrides, ShouldHaveLength, 1)
		})

		Convey("Stats count submissions by status", func() {
			stats, err := f.svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats["total"], ShouldEqual, int64(1))
			byStatus := stats["submissions"].(map[string]int64)
			So(byStatus[string(model.StatusQueued)], ShouldEqual, 1)
			So(stats["activeClaims"], ShouldEqual, int64(0))
			So(stats["started"], ShouldBeFalse)
		})

		Convey("Athletes are validated on registration", func() {
			_, err := f.svc.RegisterAthlete(ctx, service.RegisterAthleteInput{Name: "Sam", Age: model.Int(3)})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			a, err := f.svc.RegisterAthlete(ctx, service.RegisterAthleteInput{Name: "Sam", Age: model.Int(13), Position: model.String("MID")})
			So(err, ShouldBeNil)
			So(a.ID, ShouldNotBeEmpty)
			So(a.ParentConsentVerified, ShouldBeFalse)

			So(f.svc.ApproveParentConsent(ctx, uuid.NewString()), ShouldEqual, service.ErrAthleteNotFound)

			blank, err := f.svc.RegisterAthlete(ctx, service.RegisterAthleteInput{Name: "Kai", Gender: model.String("")})
			So(err, ShouldBeNil)
			So(blank.Gender, ShouldBeNil)
		})

		Convey("The drill catalog lists active drills", func() {
			drills, err := f.svc.Drills(ctx)
			So(err, ShouldBeNil)
			So(drills, ShouldHaveLength, 1)
			So(drills[0].Slug, ShouldEqual, model.DrillSprint20m)
		})
	})
}

func TestPurgeExpiredVideos(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	Convey("Given a completed submission whose video outlived its retention", t, func() {
		f := newFixture(t,
			service.WithClock(func() time.Time { return now }),
			service.WithRetention(retention.NewPolicy(24, false)),
		)
		sub := f.queued(f.athlete(30), 5, now.Add(-48*time.Hour))

		key := "2026-02-28/expired.mp4"
		So(f.local.Put(ctx, key, []byte("frames"), "video/mp4"), ShouldBeNil)
		expired := now.Add(-time.Hour)
		So(f.store.DB().Model(&model.Submission{}).Where("id = ?", sub.ID).Updates(map[string]any{
			"processing_status": model.StatusCompleted,
			"storage_provider":  string(storage.ProviderLocal),
			"storage_key":       key,
			"video_expires_at":  expired,
		}).Error, ShouldBeNil)

		Convey("The sweep deletes it and stamps the submission", func() {
			summary, err := f.svc.PurgeExpiredVideos(ctx, 10)
			So(err, ShouldBeNil)
			So(summary.Scanned, ShouldEqual, 1)
			So(summary.Purged, ShouldEqual, 1)

			_, statErr := os.Stat(f.local.Path(key))
			So(os.IsNotExist(statErr), ShouldBeTrue)
			So(f.status(sub.ID).VideoDeletedAt, ShouldNotBeNil)

			again, err := f.svc.PurgeExpiredVideos(ctx, 10)
			So(err, ShouldBeNil)
			So(again.Scanned, ShouldEqual, 0)
		})
	})
}

func TestStartStop(t *testing.T) {
	Convey("The scheduler processes queued work until stopped", t, func() {
		f := newFixture(t,
			service.WithExtractor(hintExtractor(nil)),
			service.WithBatchInterval(10*time.Millisecond),
		)
		sub := f.queued(f.athlete(20), 4, time.Now().UTC())

		So(f.svc.Start(context.Background()), ShouldBeNil)
		So(f.svc.Start(context.Background()), ShouldBeNil)

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && f.status(sub.ID).ProcessingStatus != model.StatusCompleted {
			time.Sleep(10 * time.Millisecond)
		}
		f.svc.Stop()
		f.svc.Stop()

		So(f.status(sub.ID).ProcessingStatus, ShouldEqual, model.StatusCompleted)
	})
}

func TestRecalculateAllBenchmarks(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given completed submissions in one cohort", t, func() {
		f := newFixture(t, service.WithExtractor(hintExtractor(nil)))
		first := f.queued(f.athlete(12), 3, base)
		second := f.queued(f.athlete(12), 5, base.Add(time.Minute))
		_, err := f.svc.RunProcessingBatch(ctx, 10)
		So(err, ShouldBeNil)

		before, err := f.store.FindBenchmarkSnapshot(ctx, first.ID)
		So(err, ShouldBeNil)
		So(before.Percentile, ShouldEqual, 50)

		Convey("A full recalculation ranks every member against the whole cohort", func() {
			n, err := f.svc.RecalculateAllBenchmarks(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			after, err := f.store.FindBenchmarkSnapshot(ctx, first.ID)
			So(err, ShouldBeNil)
			So(after.Percentile, ShouldEqual, 100)

			snaps, err := f.svc.AthleteBenchmarks(ctx, second.AthleteID)
			So(err, ShouldBeNil)
			So(snaps, ShouldHaveLength, 1)
			So(snaps[0].RelativeRank, ShouldEqual, 2)
		})

		Convey("Benchmarks of an unknown athlete report not found", func() {
			_, err := f.svc.AthleteBenchmarks(ctx, uuid.NewString())
			So(err, ShouldEqual, service.ErrAthleteNotFound)
		})
	})
}

func TestStopDrainsRunningBatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a batch whose first item is still extracting", t, func() {
		entered := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int64
		blocking := extraction.Func(func(in extraction.Input) model.Metrics {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return model.Metrics{SprintTime: model.Float(4.2)}
		})
		f := newFixture(t, service.WithExtractor(blocking), service.WithWorkerCount(1))
		a := f.athlete(21)
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		first := f.queued(a, 1, base)
		second := f.queued(a, 2, base.Add(time.Minute))

		done := make(chan service.BatchResult, 1)
		go func() {
			res, _ := f.svc.RunProcessingBatch(ctx, 10)
			done <- res
		}()
		<-entered

		Convey("When the service stops", func() {
			stopped := make(chan struct{})
			go func() {
				f.svc.Stop()
				close(stopped)
			}()
			time.Sleep(20 * time.Millisecond)
			close(release)
			<-stopped
			res := <-done

			Convey("Then the running item completes and the rest stay queued", func() {
				So(res.Total, ShouldEqual, 2)
				So(res.Completed, ShouldEqual, 1)
				So(res.Skipped, ShouldEqual, 1)
				So(res.Results[1].Err, ShouldEqual, service.ErrServiceStopped)

				So(f.status(first.ID).ProcessingStatus, ShouldEqual, model.StatusCompleted)
				sub := f.status(second.ID)
				So(sub.ProcessingStatus, ShouldEqual, model.StatusQueued)
				So(sub.ProcessingAttempts, ShouldEqual, 0)
			})
		})
	})
}
