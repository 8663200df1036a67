package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// UpsertMetricResult writes r keyed by submission, replacing every metric
// column so a retry never keeps values from an earlier attempt.
func (s *Store) UpsertMetricResult(ctx context.Context, r *model.MetricResult) error {
	defer s.observe(time.Now())
	columns := []string{"metric_version", "normalized_score", "updated_at"}
	for col := range r.Metrics.Columns() {
		columns = append(columns, col)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(r).Error
}

// ApplyMetricOverride sets only the given metric columns. A missing result
// is created with the manual-override version first.
func (s *Store) ApplyMetricOverride(ctx context.Context, submissionID string, values map[string]any) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.MetricResult
		err := tx.Where("submission_id = ?", submissionID).First(&existing).Error
		switch translate(err) {
		case nil:
		case ErrNotFound:
			existing = model.MetricResult{SubmissionID: submissionID, MetricVersion: model.ManualOverrideVersion}
			if err := tx.Create(&existing).Error; err != nil {
				return fmt.Errorf("create metric result: %w", err)
			}
		default:
			return err
		}
		if len(values) == 0 {
			return nil
		}
		return tx.Model(&model.MetricResult{}).Where("id = ?", existing.ID).Updates(values).Error
	})
}

// FindMetricResult loads the metric result of a submission.
func (s *Store) FindMetricResult(ctx context.Context, submissionID string) (*model.MetricResult, error) {
	defer s.observe(time.Now())
	var r model.MetricResult
	if err := s.db.WithContext(ctx).First(&r, "submission_id = ?", submissionID).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// UpsertBenchmarkSnapshot writes a snapshot keyed by submission.
func (s *Store) UpsertBenchmarkSnapshot(ctx context.Context, snap *model.BenchmarkSnapshot) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cohort_key", "percentile", "relative_rank", "normalized_score",
			"distribution", "is_anonymized", "updated_at",
		}),
	}).Create(snap).Error
}

// FindBenchmarkSnapshot loads the snapshot of a submission.
func (s *Store) FindBenchmarkSnapshot(ctx context.Context, submissionID string) (*model.BenchmarkSnapshot, error) {
	defer s.observe(time.Now())
	var snap model.BenchmarkSnapshot
	if err := s.db.WithContext(ctx).First(&snap, "submission_id = ?", submissionID).Error; err != nil {
		return nil, translate(err)
	}
	return &snap, nil
}

// CountBenchmarkSnapshots counts the snapshots of a submission.
func (s *Store) CountBenchmarkSnapshots(ctx context.Context, submissionID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.BenchmarkSnapshot{}).Where("submission_id = ?", submissionID).Count(&n).Error
	return n, err
}

// ListAthleteSnapshots returns an athlete's snapshots, newest first.
func (s *Store) ListAthleteSnapshots(ctx context.Context, athleteID string) ([]model.BenchmarkSnapshot, error) {
	defer s.observe(time.Now())
	var snaps []model.BenchmarkSnapshot
	err := s.db.WithContext(ctx).
		Where("athlete_id = ?", athleteID).
		Order("created_at DESC").
		Find(&snaps).Error
	return snaps, err
}

// UpsertBenchmarkAggregate writes an aggregate keyed by cohort, drill and metric.
func (s *Store) UpsertBenchmarkAggregate(ctx context.Context, a *model.BenchmarkAggregate) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cohort_key"}, {Name: "drill_definition_id"}, {Name: "metric_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sample_size", "mean", "std_dev", "p50", "p90", "last_recalculated", "updated_at",
		}),
	}).Create(a).Error
}

// FindBenchmarkAggregate loads one cohort aggregate.
func (s *Store) FindBenchmarkAggregate(ctx context.Context, cohortKey, drillID, metric string) (*model.BenchmarkAggregate, error) {
	defer s.observe(time.Now())
	var a model.BenchmarkAggregate
	err := s.db.WithContext(ctx).
		Where("cohort_key = ? AND drill_definition_id = ? AND metric_name = ?", cohortKey, drillID, metric).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}
