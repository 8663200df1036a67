package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

var tracer = otel.Tracer("github.com/GruntingRhino/Athlemetry/internal/domain/benchmark")

// Store is the persistence surface the engine needs.
type Store interface {
	// FindSubmissionForBenchmark loads a submission with its athlete, drill
	// and metric result. Returns model.ErrNotFound when absent.
	FindSubmissionForBenchmark(ctx context.Context, id string) (*model.Submission, error)
	// ListCohortSubmissions returns COMPLETED submissions of non-deleted
	// athletes matching q, with metric results loaded.
	ListCohortSubmissions(ctx context.Context, q CohortQuery) ([]model.Submission, error)
	UpsertBenchmarkSnapshot(ctx context.Context, s *model.BenchmarkSnapshot) error
	UpsertBenchmarkAggregate(ctx context.Context, a *model.BenchmarkAggregate) error
}

// Engine recomputes benchmark snapshots. Recalculations that share a cohort
// key run one at a time.
type Engine struct {
	store  Store
	locks  *keyedMutex
	logger logger.Logger
	now    func() time.Time
}

// NewEngine creates a benchmark engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger.Named("benchmark"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recalculate rescans the cohort of a submission and upserts its snapshot
// and the cohort aggregate. It returns a nil snapshot without error when the
// submission has no metric result or the cohort yields no values.
func (e *Engine) Recalculate(ctx context.Context, submissionID string) (*model.BenchmarkSnapshot, error) {
	ctx, span := tracer.Start(ctx, "benchmark.Recalculate")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

	start := time.Now()
	sub, err := e.store.FindSubmissionForBenchmark(ctx, submissionID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub.MetricResult == nil || sub.DrillDefinition == nil || sub.Athlete == nil {
		return nil, nil
	}

	query := QueryFor(sub.DrillType, sub.Athlete)
	key := query.Key()
	span.SetAttributes(attribute.String("cohort.key", key))

	unlock := e.locks.Lock(key)
	defer unlock()

	cohort, err := e.store.ListCohortSubmissions(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cohort %s: %w", key, err)
	}

	metricKey := sub.DrillDefinition.MetricPrimaryKey
	values := make([]float64, 0, len(cohort))
	for i := range cohort {
		values = append(values, primaryValue(cohort[i].MetricResult, metricKey))
	}
	if len(values) == 0 {
		return nil, nil
	}

	own := primaryValue(sub.MetricResult, metricKey)
	lower := sub.DrillDefinition.LowerIsBetter
	summary := Summarize(values, lower)

	snapshot := &model.BenchmarkSnapshot{
		AthleteID:       sub.AthleteID,
		SubmissionID:    sub.ID,
		CohortKey:       key,
		Percentile:      Percentile(summary.Sorted, own, lower),
		RelativeRank:    RelativeRank(summary.Sorted, own, lower),
		NormalizedScore: ZScore(own, summary.Distribution.Mean, summary.Distribution.StdDev),
		Distribution:    datatypes.NewJSONType(summary.Distribution),
		IsAnonymized:    sub.Athlete.AnonymizeForBenchmark,
	}
	if err := e.store.UpsertBenchmarkSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("upsert snapshot: %w", err)
	}

	aggregate := &model.BenchmarkAggregate{
		CohortKey:         key,
		DrillDefinitionID: sub.DrillDefinitionID,
		MetricName:        metricKey,
		SampleSize:        len(values),
		Mean:              summary.Distribution.Mean,
		StdDev:            summary.Distribution.StdDev,
		P50:               summary.Distribution.P50,
		P90:               summary.Distribution.P90,
		LastRecalculated:  e.now(),
	}
	if err := e.store.UpsertBenchmarkAggregate(ctx, aggregate); err != nil {
		return nil, fmt.Errorf("upsert aggregate: %w", err)
	}

	metrics.RecordBenchmarkRecalculation(float64(time.Since(start).Milliseconds()))
	e.logger.Debug(ctx, "benchmark recalculated",
		logger.String("submissionId", sub.ID),
		logger.String("cohortKey", key),
		logger.Int("sampleSize", len(values)),
		logger.Float64("percentile", snapshot.Percentile),
	)
	return snapshot, nil
}

// Summary is the polarity-sorted population and its distribution.
type Summary struct {
	Sorted       []float64
	Distribution model.Distribution
}

// Summarize computes the distribution of values. Min, max and mean are
// order independent; quantiles read the polarity-sorted array.
func Summarize(values []float64, lowerIsBetter bool) Summary {
	sorted := SortByPolarity(values, lowerIsBetter)
	mean := Mean(values)
	d := model.Distribution{
		Mean:   mean,
		StdDev: StdDev(values, mean),
		P25:    Quantile(sorted, 0.25),
		P50:    Quantile(sorted, 0.5),
		P75:    Quantile(sorted, 0.75),
		P90:    Quantile(sorted, 0.9),
	}
	if len(values) > 0 {
		d.Min, d.Max = values[0], values[0]
		for _, v := range values[1:] {
			d.Min = min(d.Min, v)
			d.Max = max(d.Max, v)
		}
	}
	return Summary{Sorted: sorted, Distribution: d}
}

// primaryValue reads the drill's primary metric, treating missing values as 0.
func primaryValue(m *model.MetricResult, key string) float64 {
	if m == nil {
		return 0
	}
	v, ok := m.Value(key)
	if !ok {
		return 0
	}
	return v
}
