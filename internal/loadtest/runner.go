package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrNoSprintDrill is returned when the catalog lacks the sprint drill.
var ErrNoSprintDrill = errors.New("sprint drill not in catalog")

// Run executes a complete load run: register athletes, upload sprint videos,
// drain the queue, refresh benchmarks, then verify cohort ordering.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("loadtest")
	client := NewClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting athlemetry load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("athletes", config.Athletes),
		logger.Int("submissionsPerAthlete", config.SubmissionsPerAthlete),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	drillID, err := sprintDrill(ctx, client)
	if err != nil {
		return stats, err
	}

	athletes, err := registerAthletes(ctx, client, config, stats)
	if err != nil {
		return stats, fmt.Errorf("athlete registration failed: %w", err)
	}

	uploads := make([]Upload, 0, len(athletes)*config.SubmissionsPerAthlete)
	for _, id := range athletes {
		for i := 0; i < config.SubmissionsPerAthlete; i++ {
			uploads = append(uploads, generateUpload(id))
		}
	}
	ids := submitUploads(ctx, client, config, drillID, uploads, stats)

	if err := drainQueue(ctx, client, stats); err != nil {
		return stats, fmt.Errorf("processing failed: %w", err)
	}
	if stats.Recalculated, err = client.RecalculateAll(ctx); err != nil {
		return stats, fmt.Errorf("benchmark recalculation failed: %w", err)
	}

	outcomes, err := retrieveOutcomes(ctx, client, config, ids, uploads, stats)
	if err != nil {
		return stats, fmt.Errorf("status retrieval failed: %w", err)
	}

	if stats.CohortsVerified, err = verifyCohorts(outcomes); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if err := saveReport(config.OutputFile, outcomes); err != nil {
		log.Warn(ctx, "failed to save report", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

func sprintDrill(ctx context.Context, client *Client) (string, error) {
	drills, err := client.Drills(ctx)
	if err != nil {
		return "", fmt.Errorf("list drills: %w", err)
	}
	for _, d := range drills {
		if d.Slug == model.DrillSprint20m {
			return d.ID, nil
		}
	}
	return "", ErrNoSprintDrill
}

// registerAthletes creates athletes sequentially and approves consent for
// minors so their uploads are accepted.
func registerAthletes(ctx context.Context, client *Client, config *Config, stats *Stats) ([]string, error) {
	profiles := generateAthletes(config.Athletes)
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		a, err := client.RegisterAthlete(ctx, p)
		if err != nil {
			return ids, err
		}
		stats.AthletesRegistered++
		if p.Age < MinorAge {
			if err := client.ApproveConsent(ctx, a.ID); err != nil {
				return ids, err
			}
			stats.ConsentsApproved++
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// submitUploads posts uploads concurrently. Failed uploads leave an empty id
// at their index.
func submitUploads(ctx context.Context, client *Client, config *Config, drillID string, uploads []Upload, stats *Stats) []string {
	log := logger.Named("loadtest")
	ids := make([]string, len(uploads))
	var successful, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))
	for i, u := range uploads {
		g.Go(func() error {
			id, err := client.Upload(gctx, drillID, u)
			if err != nil {
				failed.Add(1)
				if config.Verbose {
					log.Warn(gctx, "upload failed", logger.String("athleteId", u.AthleteID), logger.Error(err))
				}
				return nil
			}
			ids[i] = id
			successful.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats.UploadsSubmitted = len(uploads)
	stats.UploadsSuccessful = int(successful.Load())
	stats.UploadsFailed = int(failed.Load())
	log.Info(ctx, "uploads submitted",
		logger.Int("successful", stats.UploadsSuccessful),
		logger.Int("failed", stats.UploadsFailed))
	return ids
}

// drainQueue runs processing batches until one finds nothing to do.
func drainQueue(ctx context.Context, client *Client, stats *Stats) error {
	for round := 0; round < MaxProcessingRounds; round++ {
		sum, err := client.RunBatch(ctx, ProcessingBatchLimit)
		if err != nil {
			return err
		}
		stats.Completed += sum.Completed
		if sum.Total == 0 {
			return nil
		}
	}
	return nil
}

func retrieveOutcomes(ctx context.Context, client *Client, config *Config, ids []string, uploads []Upload, stats *Stats) ([]Outcome, error) {
	outcomes := make([]Outcome, len(ids))
	var retrieved atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, config.Workers))
	for i, id := range ids {
		if id == "" {
			continue
		}
		g.Go(func() error {
			sub, err := client.Submission(gctx, id)
			if err != nil {
				return err
			}
			outcomes[i] = Outcome{
				SubmissionID: id,
				AthleteID:    uploads[i].AthleteID,
				SprintTime:   uploads[i].SprintTime,
				Status:       sub.ProcessingStatus,
				Snapshot:     sub.BenchmarkSnapshot,
			}
			if sub.BenchmarkSnapshot != nil {
				retrieved.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := outcomes[:0]
	for _, o := range outcomes {
		if o.SubmissionID != "" {
			out = append(out, o)
		}
	}
	stats.SnapshotsRetrieved = int(retrieved.Load())
	return out, nil
}

// saveReport writes outcomes as indented JSON.
func saveReport(filename string, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return errors.New("no outcomes to save")
	}
	if filename == "" {
		filename = "loadtest_report_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Named("loadtest").Info(context.Background(), "report saved", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, uploadsPerSecond float64
	if stats.UploadsSubmitted > 0 {
		successRate = float64(stats.UploadsSuccessful) / float64(stats.UploadsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		uploadsPerSecond = float64(stats.UploadsSubmitted) / stats.Duration.Seconds()
	}

	logger.Named("loadtest").Info(ctx, "final statistics",
		logger.Int("athletesRegistered", stats.AthletesRegistered),
		logger.Int("consentsApproved", stats.ConsentsApproved),
		logger.Int("uploadsSubmitted", stats.UploadsSubmitted),
		logger.Int("uploadsSuccessful", stats.UploadsSuccessful),
		logger.Int("uploadsFailed", stats.UploadsFailed),
		logger.Int("completedByBatches", stats.Completed),
		logger.Int("recalculated", stats.Recalculated),
		logger.Int("snapshotsRetrieved", stats.SnapshotsRetrieved),
		logger.Int("cohortsVerified", stats.CohortsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("uploadsPerSecond", uploadsPerSecond))
}
