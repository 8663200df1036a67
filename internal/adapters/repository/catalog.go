package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// UpsertDrill inserts or updates a drill by slug and returns the stored row.
func (s *Store) UpsertDrill(ctx context.Context, d *model.DrillDefinition) (*model.DrillDefinition, error) {
	defer s.observe(time.Now())
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "sport", "description", "guidelines",
			"metric_primary_key", "lower_is_better", "is_active", "updated_at",
		}),
	}).Create(d).Error
	if err != nil {
		return nil, fmt.Errorf("upsert drill %s: %w", d.Slug, err)
	}
	return s.FindDrillBySlug(ctx, d.Slug)
}

// FindDrill loads a drill by id.
func (s *Store) FindDrill(ctx context.Context, id string) (*model.DrillDefinition, error) {
	defer s.observe(time.Now())
	var d model.DrillDefinition
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// FindDrillBySlug loads a drill by slug.
func (s *Store) FindDrillBySlug(ctx context.Context, slug string) (*model.DrillDefinition, error) {
	defer s.observe(time.Now())
	var d model.DrillDefinition
	if err := s.db.WithContext(ctx).First(&d, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// ListDrills returns the catalog ordered by name.
func (s *Store) ListDrills(ctx context.Context, activeOnly bool) ([]model.DrillDefinition, error) {
	defer s.observe(time.Now())
	q := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var drills []model.DrillDefinition
	return drills, q.Find(&drills).Error
}

// CreateAthlete inserts an athlete.
func (s *Store) CreateAthlete(ctx context.Context, a *model.Athlete) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Create(a).Error
}

// FindAthlete loads a non-deleted athlete.
func (s *Store) FindAthlete(ctx context.Context, id string) (*model.Athlete, error) {
	defer s.observe(time.Now())
	var a model.Athlete
	if err := s.db.WithContext(ctx).First(&a, "id = ? AND deleted_at IS NULL", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// SoftDeleteAthlete hides an athlete from cohorts.
func (s *Store) SoftDeleteAthlete(ctx context.Context, id string) error {
	defer s.observe(time.Now())
	res := s.db.WithContext(ctx).Model(&model.Athlete{}).Where("id = ?", id).Update("deleted_at", s.now())
	return affected(res)
}

// ApproveParentConsent marks a minor's parental consent as verified.
func (s *Store) ApproveParentConsent(ctx context.Context, id string) error {
	defer s.observe(time.Now())
	res := s.db.WithContext(ctx).Model(&model.Athlete{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("parent_consent_verified", true)
	return affected(res)
}

// ActiveModelVersion returns the most recently activated active version, or
// "" when none is active.
func (s *Store) ActiveModelVersion(ctx context.Context) (string, error) {
	defer s.observe(time.Now())
	var versions []model.ModelVersion
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("COALESCE(activated_at, created_at) DESC").
		Limit(1).
		Find(&versions).Error
	if err != nil || len(versions) == 0 {
		return "", err
	}
	return versions[0].Version, nil
}

// ActivateModelVersion deactivates every version and activates version,
// creating it when new.
func (s *Store) ActivateModelVersion(ctx context.Context, version, notes string, at time.Time) (*model.ModelVersion, error) {
	defer s.observe(time.Now())
	mv := &model.ModelVersion{Version: version, IsActive: true, Notes: notes, ActivatedAt: &at}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ModelVersion{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "notes", "activated_at", "updated_at"}),
		}).Create(mv).Error; err != nil {
			return err
		}
		var stored model.ModelVersion
		if err := tx.First(&stored, "version = ?", version).Error; err != nil {
			return err
		}
		mv = &stored
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("activate model version %s: %w", version, err)
	}
	return mv, nil
}

// CreateManualOverride inserts an override audit record.
func (s *Store) CreateManualOverride(ctx context.Context, o *model.ManualOverride) error {
	defer s.observe(time.Now())
	return s.db.WithContext(ctx).Create(o).Error
}

// ListManualOverrides returns a submission's overrides, oldest first.
func (s *Store) ListManualOverrides(ctx context.Context, submissionID string) ([]model.ManualOverride, error) {
	defer s.observe(time.Now())
	var out []model.ManualOverride
	err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("created_at ASC").Find(&out).Error
	return out, err
}
