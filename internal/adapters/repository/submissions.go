package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GruntingRhino/Athlemetry/internal/domain/benchmark"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// CreateSubmission inserts a submission without touching its associations.
func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
}

// FindSubmission loads a bare submission.
func (s *Store) FindSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.findSubmission(ctx, id)
}

// FindSubmissionWithDrill loads a submission and its drill definition.
func (s *Store) FindSubmissionWithDrill(ctx context.Context, id string) (*model.Submission, error) {
	return s.findSubmission(ctx, id, "DrillDefinition")
}

// FindSubmissionForBenchmark loads a submission with athlete, drill and metrics.
func (s *Store) FindSubmissionForBenchmark(ctx context.Context, id string) (*model.Submission, error) {
	return s.findSubmission(ctx, id, "Athlete", "DrillDefinition", "MetricResult")
}

// FindSubmissionDetail loads everything needed to report a submission's state.
func (s *Store) FindSubmissionDetail(ctx context.Context, id string) (*model.Submission, error) {
	defer s.observe(time.Now())
	var sub model.Submission
	err := s.db.WithContext(ctx).
		Preload("DrillDefinition").
		Preload("MetricResult").
		Preload("BenchmarkSnapshot").
		Preload("ProcessingLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&sub, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *Store) findSubmission(ctx context.Context, id string, preloads ...string) (*model.Submission, error) {
	defer s.observe(time.Now())
	q := s.db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var sub model.Submission
	if err := q.First(&sub, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// MarkProcessing moves a submission to PROCESSING and returns the new attempt count.
func (s *Store) MarkProcessing(ctx context.Context, id string, at time.Time) (int, error) {
	defer s.observe(time.Now())
	var attempts int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Submission{}).Where("id = ?", id).Updates(map[string]any{
			"processing_status":   model.StatusProcessing,
			"started_at":          at,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
		})
		if err := affected(res); err != nil {
			return err
		}
		return tx.Model(&model.Submission{}).Where("id = ?", id).
			Select("processing_attempts").Scan(&attempts).Error
	})
	if err != nil {
		return 0, fmt.Errorf("mark processing %s: %w", id, err)
	}
	return attempts, nil
}

// MarkCompleted records a successful attempt.
func (s *Store) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return s.updateSubmission(ctx, id, map[string]any{
		"processing_status": model.StatusCompleted,
		"completed_at":      at,
		"upload_progress":   100,
		"last_error":        nil,
	})
}

// MarkFailed records a failed attempt with status RETRYING or FAILED.
func (s *Store) MarkFailed(ctx context.Context, id string, status model.ProcessingStatus, message string) error {
	return s.updateSubmission(ctx, id, map[string]any{
		"processing_status": status,
		"last_error":        message,
	})
}

// Requeue puts a submission back in line for processing with a fresh queue time.
func (s *Store) Requeue(ctx context.Context, id string, status model.ProcessingStatus, at time.Time) error {
	return s.updateSubmission(ctx, id, map[string]any{
		"processing_status": status,
		"queued_at":         at,
		"last_error":        nil,
	})
}

// SetProcessingStatus overwrites the lifecycle state.
func (s *Store) SetProcessingStatus(ctx context.Context, id string, status model.ProcessingStatus) error {
	return s.updateSubmission(ctx, id, map[string]any{"processing_status": status})
}

// MarkVideoPurged clears the file reference and stamps the deletion time.
func (s *Store) MarkVideoPurged(ctx context.Context, id string, at time.Time) error {
	return s.updateSubmission(ctx, id, map[string]any{
		"file_url":          nil,
		"video_deleted_at":  at,
		"video_purge_error": nil,
	})
}

// MarkVideoPurgeError records advisory purge failure text.
func (s *Store) MarkVideoPurgeError(ctx context.Context, id, message string) error {
	return s.updateSubmission(ctx, id, map[string]any{"video_purge_error": message})
}

func (s *Store) updateSubmission(ctx context.Context, id string, values map[string]any) error {
	defer s.observe(time.Now())
	res := s.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", id).Updates(values)
	if err := affected(res); err != nil {
		return fmt.Errorf("update submission %s: %w", id, err)
	}
	return nil
}

// ListPendingSubmissions returns QUEUED or RETRYING submissions below the
// attempt ceiling, oldest queue time first.
func (s *Store) ListPendingSubmissions(ctx context.Context, maxAttempts, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer s.observe(time.Now())
	var subs []model.Submission
	err := s.db.WithContext(ctx).
		Where("processing_status IN ?", []model.ProcessingStatus{model.StatusQueued, model.StatusRetrying}).
		Where("processing_attempts < ?", maxAttempts).
		Order("queued_at ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

// ListCohortSubmissions returns COMPLETED submissions of non-deleted athletes
// in the query's cohort. Null attributes match null attributes.
func (s *Store) ListCohortSubmissions(ctx context.Context, q benchmark.CohortQuery) ([]model.Submission, error) {
	defer s.observe(time.Now())
	athletes := s.db.Model(&model.Athlete{}).Select("id").Where("deleted_at IS NULL")
	if q.AgeBand != nil {
		athletes = athletes.Where("age BETWEEN ? AND ?", q.AgeBand.Min, q.AgeBand.Max)
	} else {
		athletes = athletes.Where("age IS NULL")
	}
	athletes = nullableEq(athletes, "position", q.Position)
	athletes = nullableEq(athletes, "competition_level", q.CompetitionLevel)
	athletes = nullableEq(athletes, "gender", q.Gender)

	var subs []model.Submission
	err := s.db.WithContext(ctx).
		Preload("MetricResult").
		Where("drill_type = ? AND processing_status = ?", q.DrillType, model.StatusCompleted).
		Where("athlete_id IN (?)", athletes).
		Find(&subs).Error
	return subs, err
}

func nullableEq(q *gorm.DB, column string, v *string) *gorm.DB {
	if v == nil || *v == "" {
		return q.Where("(" + column + " IS NULL OR " + column + " = '')")
	}
	return q.Where(column+" = ?", *v)
}

// ListExpiredVideos returns undeleted, unretained stored videos whose expiry
// is at or before now, oldest expiry first.
func (s *Store) ListExpiredVideos(ctx context.Context, now time.Time, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer s.observe(time.Now())
	var subs []model.Submission
	err := s.db.WithContext(ctx).
		Where("video_deleted_at IS NULL").
		Where("video_expires_at <= ?", now).
		Where("storage_key IS NOT NULL").
		Where("retain_video_for_audit = ?", false).
		Order("video_expires_at ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

// ListCompletedSubmissionIDs returns ids of COMPLETED submissions that have
// a metric result, oldest completion first.
func (s *Store) ListCompletedSubmissionIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer s.observe(time.Now())
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.Submission{}).
		Where("processing_status = ?", model.StatusCompleted).
		Where("id IN (?)", s.db.Model(&model.MetricResult{}).Select("submission_id")).
		Order("completed_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// StatusCount is one row of CountByStatus.
type StatusCount struct {
	Status model.ProcessingStatus `gorm:"column:processing_status"`
	Count  int64                  `gorm:"column:count"`
}

// CountByStatus returns the number of submissions in each lifecycle state.
func (s *Store) CountByStatus(ctx context.Context) (map[model.ProcessingStatus]int64, error) {
	defer s.observe(time.Now())
	var rows []StatusCount
	err := s.db.WithContext(ctx).Model(&model.Submission{}).
		Select("processing_status, COUNT(*) AS count").
		Group("processing_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.ProcessingStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
