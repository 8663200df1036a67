package repository

import (
	"context"
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// AppendProcessingLog inserts a processing log entry.
func (s *Store) AppendProcessingLog(ctx context.Context, l *model.ProcessingLog) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Create(l).Error
}

// ListProcessingLogs returns a submission's log history, oldest first.
func (s *Store) ListProcessingLogs(ctx context.Context, submissionID string) ([]model.ProcessingLog, error) {
	defer s.observe(time.Now())
	var logs []model.ProcessingLog
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// AppendSystemLog inserts a system log entry.
func (s *Store) AppendSystemLog(ctx context.Context, l *model.SystemLog) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Create(l).Error
}

// ListSystemLogs returns the newest entries of a category; empty means all.
func (s *Store) ListSystemLogs(ctx context.Context, category string, limit int) ([]model.SystemLog, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	defer s.observe(time.Now())
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var logs []model.SystemLog
	return logs, q.Find(&logs).Error
}
