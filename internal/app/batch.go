package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/GruntingRhino/Athlemetry/internal/adapters/mq/queue"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/mq/worker"
	"github.com/GruntingRhino/Athlemetry/internal/domain/claim"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/processing"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

// BatchResult summarises one batch run. Results are in queue order.
type BatchResult struct {
	Total               int                 `json:"total"`
	Completed           int                 `json:"completed"`
	Failed              int                 `json:"failed"`
	Skipped             int                 `json:"skipped"`
	PurgedExpiredVideos int                 `json:"purgedExpiredVideos"`
	Results             []processing.Result `json:"results"`
}

// ProcessSubmission runs one processing attempt for id regardless of its state.
func (s *Service) ProcessSubmission(ctx context.Context, id string) processing.Result {
	return s.process(ctx, id, false)
}

func (s *Service) process(ctx context.Context, id string, pendingOnly bool) processing.Result {
	return s.claimed(ctx, id, func(ctx context.Context) processing.Result {
		return s.attempt(ctx, id, pendingOnly)
	})
}

// claimed runs fn while holding the claim on id so a scheduled batch and a
// manual retry never work on the same submission at once. fn does not run
// when another holder has the claim.
func (s *Service) claimed(ctx context.Context, id string, fn func(context.Context) processing.Result) processing.Result {
	token, ok, err := s.claimer.TryClaim(ctx, id)
	if err != nil {
		return processing.Result{SubmissionID: id, Err: err, Error: err.Error()}
	}
	if !ok {
		metrics.RecordClaimConflict()
		return processing.Result{SubmissionID: id, Skipped: true, Err: claim.ErrClaimed, Error: claim.ErrClaimed.Error()}
	}
	defer func() {
		if err := s.claimer.Release(context.WithoutCancel(ctx), id, token); err != nil {
			s.logger.Warn(ctx, "failed to release claim", logger.String("submissionId", id), logger.Error(err))
		}
	}()
	return fn(ctx)
}

func (s *Service) attempt(ctx context.Context, id string, pendingOnly bool) processing.Result {
	if s.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.itemTimeout)
		defer cancel()
	}
	if pendingOnly {
		return s.pipeline.ProcessPending(ctx, id)
	}
	return s.pipeline.Process(ctx, id)
}

// RunProcessingBatch processes up to limit pending submissions, oldest queue
// time first, then sweeps expired videos and records one summary log entry.
// A failing item never stops the batch.
func (s *Service) RunProcessingBatch(ctx context.Context, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = s.batchLimit
	}
	ctx, span := tracer.Start(ctx, "service.RunProcessingBatch")
	defer span.End()

	pending, err := s.repo.ListPendingSubmissions(ctx, model.MaxProcessingAttempts, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list pending submissions: %w", err)
	}
	span.SetAttributes(attribute.Int("batch.size", len(pending)))

	results := s.runJobs(ctx, pending)

	out := BatchResult{Total: len(results), Results: results}
	for _, r := range results {
		switch {
		case r.OK:
			out.Completed++
		case r.Skipped:
			out.Skipped++
		default:
			out.Failed++
		}
	}

	summary, err := s.purger.PurgeExpired(ctx, s.purgeLimit)
	if err != nil {
		s.logger.Warn(ctx, "expired video sweep failed", logger.Error(err))
	}
	out.PurgedExpiredVideos = summary.Purged

	level := model.LevelInfo
	if out.Failed > 0 {
		level = model.LevelWarn
	}
	s.systemLog(ctx, &model.SystemLog{
		Level:    level,
		Category: model.CategoryProcessingBatch,
		Message:  fmt.Sprintf("Processed %d queued submissions.", out.Total),
		Metadata: datatypes.JSONMap{
			"completed":           out.Completed,
			"failed":              out.Failed,
			"skipped":             out.Skipped,
			"purgedExpiredVideos": out.PurgedExpiredVideos,
		},
	})
	metrics.RecordBatchRun(out.Completed, out.Failed)
	return out, nil
}

// runJobs fans pending submissions out to the worker pool and collects one
// result per submission in queue order.
func (s *Service) runJobs(ctx context.Context, pending []model.Submission) []processing.Result {
	results := make([]processing.Result, len(pending))
	if len(pending) == 0 {
		return results
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(pending)))
	for i := range pending {
		q.Enqueue(ctx, queue.Job{SubmissionID: pending[i].ID, Index: i})
	}
	_ = q.Close()

	handler := worker.HandlerFunc(func(ctx context.Context, j queue.Job) error {
		res := s.process(ctx, j.SubmissionID, true)
		results[j.Index] = res
		if !res.OK && !res.Skipped {
			return res.Err
		}
		return nil
	})
	pool := worker.NewPool(min(s.workerCount, len(pending)), q, handler)
	untrack := s.trackPool(pool)
	err := pool.Run(ctx)
	untrack()
	if err != nil {
		s.logger.Warn(ctx, "batch interrupted", logger.Error(err))
	}

	for i := range results {
		if results[i].SubmissionID != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i] = processing.Result{SubmissionID: pending[i].ID, Err: err, Error: err.Error()}
			continue
		}
		// Never picked up before the pool was shut down; the submission keeps its state.
		results[i] = processing.Result{
			SubmissionID: pending[i].ID,
			Skipped:      true,
			Err:          ErrServiceStopped,
			Error:        ErrServiceStopped.Error(),
		}
	}
	return results
}

// RecalculateBenchmarksForSubmission recomputes the benchmark of a completed submission.
func (s *Service) RecalculateBenchmarksForSubmission(ctx context.Context, id string) (*model.BenchmarkSnapshot, error) {
	return s.engine.Recalculate(ctx, id)
}

// RecalculateAllBenchmarks recomputes the snapshots of completed submissions.
// A failing submission is logged and skipped.
func (s *Service) RecalculateAllBenchmarks(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "service.RecalculateAllBenchmarks")
	defer span.End()

	ids, err := s.repo.ListCompletedSubmissionIDs(ctx, recalculateLimit)
	if err != nil {
		return 0, fmt.Errorf("list completed submissions: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, err := s.engine.Recalculate(ctx, id); err != nil {
			s.logger.Warn(ctx, "benchmark recalculation failed", logger.String("submissionId", id), logger.Error(err))
		}
	}
	span.SetAttributes(attribute.Int("benchmark.recalculated", len(ids)))
	return len(ids), nil
}

// AthleteBenchmarks lists an athlete's benchmark snapshots, newest first.
func (s *Service) AthleteBenchmarks(ctx context.Context, athleteID string) ([]model.BenchmarkSnapshot, error) {
	if _, err := s.repo.FindAthlete(ctx, athleteID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, fmt.Errorf("load athlete: %w", err)
	}
	return s.repo.ListAthleteSnapshots(ctx, athleteID)
}

// PurgeExpiredVideos sweeps up to limit expired videos.
func (s *Service) PurgeExpiredVideos(ctx context.Context, limit int) (retention.Summary, error) {
	if limit <= 0 {
		limit = s.purgeLimit
	}
	return s.purger.PurgeExpired(ctx, limit)
}

func (s *Service) systemLog(ctx context.Context, entry *model.SystemLog) {
	if err := s.repo.AppendSystemLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error(ctx, "failed to append system log",
			logger.String("category", entry.Category), logger.Error(err))
	}
}
