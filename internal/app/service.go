// Package service composes the processing pipeline, benchmark engine,
// retention purger and storage into the operations the HTTP API exposes.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"

	"github.com/GruntingRhino/Athlemetry/internal/adapters/mq/worker"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/storage"
	"github.com/GruntingRhino/Athlemetry/internal/domain/benchmark"
	"github.com/GruntingRhino/Athlemetry/internal/domain/claim"
	"github.com/GruntingRhino/Athlemetry/internal/domain/extraction"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/processing"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

var tracer = otel.Tracer("github.com/GruntingRhino/Athlemetry/internal/app")

const (
	defaultBatchLimit    = 10
	defaultPurgeLimit    = 100
	defaultMaxVideoBytes = 200 * 1024 * 1024
	defaultStatsInterval = 15 * time.Second
	recalculateLimit     = 500
	drainTimeout         = 30 * time.Second
)

// Repository is the persistence surface of the service.
type Repository interface {
	processing.Store
	benchmark.Store
	retention.Store

	CreateSubmission(ctx context.Context, sub *model.Submission) error
	FindSubmission(ctx context.Context, id string) (*model.Submission, error)
	FindSubmissionDetail(ctx context.Context, id string) (*model.Submission, error)
	ListPendingSubmissions(ctx context.Context, maxAttempts, limit int) ([]model.Submission, error)
	Requeue(ctx context.Context, id string, status model.ProcessingStatus, at time.Time) error
	SetProcessingStatus(ctx context.Context, id string, status model.ProcessingStatus) error
	CountByStatus(ctx context.Context) (map[model.ProcessingStatus]int64, error)
	ListCompletedSubmissionIDs(ctx context.Context, limit int) ([]string, error)
	ListAthleteSnapshots(ctx context.Context, athleteID string) ([]model.BenchmarkSnapshot, error)

	FindDrill(ctx context.Context, id string) (*model.DrillDefinition, error)
	ListDrills(ctx context.Context, activeOnly bool) ([]model.DrillDefinition, error)
	CreateAthlete(ctx context.Context, a *model.Athlete) error
	FindAthlete(ctx context.Context, id string) (*model.Athlete, error)
	ApproveParentConsent(ctx context.Context, id string) error

	ActivateModelVersion(ctx context.Context, version, notes string, at time.Time) (*model.ModelVersion, error)
	CreateManualOverride(ctx context.Context, o *model.ManualOverride) error
	ApplyMetricOverride(ctx context.Context, submissionID string, values map[string]any) error
}

// Storage uploads videos and deletes them from the provider that holds them.
type Storage interface {
	Upload(ctx context.Context, in storage.UploadInput) (storage.StoredAsset, error)
	retention.Deleter
}

// Service implements the operations of the submission processing system.
type Service struct {
	mu sync.Mutex

	repo      Repository
	storage   Storage
	claimer   claim.Claimer
	policy    retention.Policy
	extractor extraction.Extractor
	validate  *validator.Validate

	pipeline *processing.Pipeline
	engine   *benchmark.Engine
	purger   *retention.Purger

	// Configuration
	workerCount   int
	batchLimit    int
	purgeLimit    int
	itemTimeout   time.Duration
	maxVideoBytes int64
	batchInterval time.Duration
	statsInterval time.Duration

	// State
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pools   map[*worker.Pool]struct{}

	logger logger.Logger
	now    func() time.Time
}

// New constructs a Service over repo and store.
func New(repo Repository, store Storage, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		storage:       store,
		claimer:       claim.NewInMemoryClaimer(),
		policy:        retention.NewPolicy(retention.DefaultRetentionHours, false),
		extractor:     extraction.Placeholder{},
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		workerCount:   1,
		batchLimit:    defaultBatchLimit,
		purgeLimit:    defaultPurgeLimit,
		maxVideoBytes: defaultMaxVideoBytes,
		statsInterval: defaultStatsInterval,
		pools:         make(map[*worker.Pool]struct{}),
		logger:        logger.Named("service"),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = benchmark.NewEngine(repo, benchmark.WithClock(s.now))
	s.purger = retention.NewPurger(repo, store, s.policy, retention.WithClock(s.now))
	s.pipeline = processing.NewPipeline(repo,
		processing.WithExtractor(s.extractor),
		processing.WithBenchmarks(s.engine),
		processing.WithPurger(s.purger),
		processing.WithClock(s.now),
	)
	return s
}

// Start launches the batch scheduler and the status gauge refresher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true

	if s.batchInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.every(runCtx, s.batchInterval, func(ctx context.Context) {
				if _, err := s.RunProcessingBatch(ctx, s.batchLimit); err != nil {
					s.logger.Error(ctx, "scheduled batch failed", logger.Error(err))
				}
			})
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.every(runCtx, s.statsInterval, func(ctx context.Context) {
			if _, err := s.GetStats(ctx); err != nil {
				s.logger.Warn(ctx, "stats refresh failed", logger.Error(err))
			}
		})
	}()

	s.logger.Info(ctx, "processing service started",
		logger.Int("workers", s.workerCount),
		logger.Int("batchLimit", s.batchLimit),
		logger.Duration("batchInterval", s.batchInterval),
	)
	return nil
}

// Stop drains in-flight batches, cancels background loops and waits for them
// to end.
func (s *Service) Stop() {
	s.drainPools()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info(context.Background(), "processing service stopped")
}

// drainPools lets every in-flight batch finish its running items and
// abandons the jobs its workers have not picked up.
func (s *Service) drainPools() {
	s.mu.Lock()
	pools := make([]*worker.Pool, 0, len(s.pools))
	for p := range s.pools {
		pools = append(pools, p)
	}
	s.mu.Unlock()
	if len(pools) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for _, p := range pools {
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "batch did not drain before shutdown", logger.Error(err))
		}
	}
}

func (s *Service) trackPool(p *worker.Pool) func() {
	s.mu.Lock()
	s.pools[p] = struct{}{}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.pools, p)
		s.mu.Unlock()
	}
}

func (s *Service) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Drills returns the active drill catalog.
func (s *Service) Drills(ctx context.Context) ([]model.DrillDefinition, error) {
	return s.repo.ListDrills(ctx, true)
}

// GetStats returns submission counts by status and refreshes the matching gauges.
func (s *Service) GetStats(ctx context.Context) (map[string]any, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int64, len(counts))
	var total int64
	for _, st := range []model.ProcessingStatus{
		model.StatusQueued, model.StatusProcessing, model.StatusCompleted,
		model.StatusRetrying, model.StatusFailed,
	} {
		n := counts[st]
		byStatus[string(st)] = n
		total += n
		metrics.UpdateSubmissionsByStatus(string(st), n)
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	stats := map[string]any{
		"started":     started,
		"workerCount": s.workerCount,
		"batchLimit":  s.batchLimit,
		"total":       total,
		"submissions": byStatus,
	}
	if sized, ok := s.claimer.(interface{ Size() int64 }); ok {
		stats["activeClaims"] = sized.Size()
	}
	return stats, nil
}
