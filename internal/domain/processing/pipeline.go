// Package processing drives a submission through its lifecycle:
// QUEUED or RETRYING, then PROCESSING, then COMPLETED, RETRYING or FAILED.
package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/GruntingRhino/Athlemetry/internal/domain/extraction"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

var tracer = otel.Tracer("github.com/GruntingRhino/Athlemetry/internal/domain/processing")

// completedMessage is logged for every successful attempt.
const completedMessage = "Metrics extracted successfully."

// Store is the persistence surface the pipeline needs.
type Store interface {
	// FindSubmissionWithDrill loads a submission and its drill definition.
	// Returns model.ErrNotFound when absent.
	FindSubmissionWithDrill(ctx context.Context, id string) (*model.Submission, error)
	// MarkProcessing moves the submission to PROCESSING, stamps startedAt,
	// increments the attempt counter and returns the new count.
	MarkProcessing(ctx context.Context, id string, at time.Time) (int, error)
	// ActiveModelVersion returns the active version, or "" when none is active.
	ActiveModelVersion(ctx context.Context) (string, error)
	UpsertMetricResult(ctx context.Context, r *model.MetricResult) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, status model.ProcessingStatus, message string) error
	AppendProcessingLog(ctx context.Context, l *model.ProcessingLog) error
}

// Recalculator recomputes a submission's benchmark snapshot.
type Recalculator interface {
	Recalculate(ctx context.Context, submissionID string) (*model.BenchmarkSnapshot, error)
}

// Purger deletes videos after processing ends.
type Purger interface {
	AfterCompletion(ctx context.Context, sub *model.Submission) retention.Outcome
	AfterTerminalFailure(ctx context.Context, sub *model.Submission) retention.Outcome
}

// Pipeline processes one submission per call.
type Pipeline struct {
	store       Store
	extractor   extraction.Extractor
	benchmarks  Recalculator
	purger      Purger
	maxAttempts int
	logger      logger.Logger
	now         func() time.Time
}

// NewPipeline creates a pipeline over store.
func NewPipeline(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		extractor:   extraction.Placeholder{},
		maxAttempts: model.MaxProcessingAttempts,
		logger:      logger.Named("processing"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one attempt regardless of the submission's current state.
// It never returns an error: every failure is reported in the Result.
func (p *Pipeline) Process(ctx context.Context, submissionID string) Result {
	return p.run(ctx, submissionID, false)
}

// ProcessPending runs one attempt only if the submission is still QUEUED or
// RETRYING below the failure ceiling; otherwise the result is Skipped.
func (p *Pipeline) ProcessPending(ctx context.Context, submissionID string) Result {
	return p.run(ctx, submissionID, true)
}

func (p *Pipeline) run(ctx context.Context, submissionID string, pendingOnly bool) Result {
	ctx, span := tracer.Start(ctx, "processing.Process")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

	res := Result{SubmissionID: submissionID}

	sub, err := p.store.FindSubmissionWithDrill(ctx, submissionID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return res.fail(ErrSubmissionNotFound)
	case err != nil:
		return res.fail(fmt.Errorf("load submission: %w", err))
	case sub.DrillDefinition == nil || sub.DrillDefinition.ID == "":
		return res.fail(ErrDrillNotFound)
	}
	res.Status = sub.ProcessingStatus

	if pendingOnly && (!sub.ProcessingStatus.Pending() || sub.ProcessingAttempts >= p.maxAttempts) {
		res.Skipped = true
		return res.fail(ErrNotPending)
	}

	start := p.now()
	attempt, err := p.store.MarkProcessing(ctx, submissionID, start)
	if err != nil {
		return res.fail(fmt.Errorf("mark processing: %w", err))
	}
	res.Attempt = attempt
	res.Status = model.StatusProcessing

	if err := p.attempt(ctx, sub, start); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return p.failed(ctx, sub, res, start, err)
	}

	res.OK = true
	res.Status = model.StatusCompleted
	p.appendLog(ctx, &model.ProcessingLog{
		SubmissionID: submissionID,
		Status:       model.StatusCompleted,
		Message:      completedMessage,
		Attempt:      attempt,
		DurationMs:   durationMs(start, p.now()),
	})
	metrics.RecordSubmissionProcessed(string(model.StatusCompleted))
	metrics.RecordProcessingLatency(float64(p.now().Sub(start).Milliseconds()))

	if p.benchmarks != nil {
		snap, err := p.benchmarks.Recalculate(ctx, submissionID)
		if err != nil {
			res.BenchmarkError = err.Error()
			metrics.RecordErrorByComponent("benchmark", "recalculate")
			p.logger.Warn(ctx, "benchmark recalculation failed",
				logger.String("submissionId", submissionID), logger.Error(err))
		}
		res.Benchmark = snap
	}

	if p.purger != nil {
		out := p.purger.AfterCompletion(ctx, sub)
		res.Purge = &out
	}
	return res
}

// attempt performs extraction and the completion write. A panic in the
// extractor is converted into an error.
func (p *Pipeline) attempt(ctx context.Context, sub *model.Submission, start time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	bundle := p.extractor.Extract(extraction.Input{
		DrillType:      sub.DrillDefinition.Slug,
		FrameRate:      sub.FrameRate,
		StartFrame:     sub.StartFrame,
		FinishFrame:    sub.FinishFrame,
		RepetitionHint: sub.RepetitionHint,
		FileSize:       sub.FileSize,
	})

	version, err := p.store.ActiveModelVersion(ctx)
	if err != nil {
		return fmt.Errorf("resolve model version: %w", err)
	}
	if version == "" {
		version = model.DefaultModelVersion
	}

	if err := p.store.UpsertMetricResult(ctx, &model.MetricResult{
		SubmissionID:  sub.ID,
		MetricVersion: version,
		Metrics:       bundle,
	}); err != nil {
		return fmt.Errorf("save metric result: %w", err)
	}

	if err := p.store.MarkCompleted(ctx, sub.ID, p.now()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// failed records a failed attempt. Bookkeeping writes ignore cancellation of
// ctx so a timed-out attempt still leaves RETRYING or FAILED behind.
func (p *Pipeline) failed(ctx context.Context, sub *model.Submission, res Result, start time.Time, cause error) Result {
	bookkeeping := context.WithoutCancel(ctx)
	message := cause.Error()

	status := model.StatusRetrying
	if res.Attempt >= p.maxAttempts {
		status = model.StatusFailed
	}
	res.Status = status
	res.Error = message
	res.Err = cause

	if err := p.store.MarkFailed(bookkeeping, sub.ID, status, message); err != nil {
		p.logger.Error(ctx, "failed to record processing failure",
			logger.String("submissionId", sub.ID), logger.Error(err))
	}
	p.appendLog(bookkeeping, &model.ProcessingLog{
		SubmissionID: sub.ID,
		Status:       status,
		Message:      message,
		Attempt:      res.Attempt,
		DurationMs:   durationMs(start, p.now()),
	})
	p.logger.Warn(ctx, "submission processing failed",
		logger.String("submissionId", sub.ID),
		logger.String("status", string(status)),
		logger.Int("attempt", res.Attempt),
		logger.Error(cause),
	)
	metrics.RecordSubmissionProcessed(string(status))

	if status == model.StatusFailed && p.purger != nil {
		out := p.purger.AfterTerminalFailure(bookkeeping, sub)
		res.Purge = &out
	}
	return res
}

func (p *Pipeline) appendLog(ctx context.Context, l *model.ProcessingLog) {
	if err := p.store.AppendProcessingLog(ctx, l); err != nil {
		p.logger.Error(ctx, "failed to append processing log",
			logger.String("submissionId", l.SubmissionID), logger.Error(err))
	}
}

func durationMs(start, end time.Time) *int64 {
	ms := end.Sub(start).Milliseconds()
	return &ms
}
