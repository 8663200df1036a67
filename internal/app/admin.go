package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/internal/domain/processing"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

const (
	defaultActivationNotes = "Manual version activation."
	defaultAdminID         = "admin"
)

// RetrySubmission puts a submission back in line and processes it at once.
// A submission another worker holds is left untouched and reported skipped.
func (s *Service) RetrySubmission(ctx context.Context, id string) (processing.Result, error) {
	if _, err := s.repo.FindSubmission(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return processing.Result{}, processing.ErrSubmissionNotFound
		}
		return processing.Result{}, fmt.Errorf("load submission: %w", err)
	}

	var requeueErr error
	res := s.claimed(ctx, id, func(ctx context.Context) processing.Result {
		if requeueErr = s.repo.Requeue(ctx, id, model.StatusRetrying, s.now()); requeueErr != nil {
			return processing.Result{SubmissionID: id, Err: requeueErr, Error: requeueErr.Error()}
		}
		s.logger.Info(ctx, "submission requeued for retry", logger.String("submissionId", id))
		return s.attempt(ctx, id, false)
	})
	if requeueErr != nil {
		return processing.Result{}, fmt.Errorf("requeue submission: %w", requeueErr)
	}
	return res, nil
}

// SubmissionStatus loads a submission with its drill, metric result,
// benchmark snapshot and processing history.
func (s *Service) SubmissionStatus(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.repo.FindSubmissionDetail(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, processing.ErrSubmissionNotFound
	}
	return sub, err
}

// ActivateModelVersion makes version the only active extraction model.
func (s *Service) ActivateModelVersion(ctx context.Context, version, notes string) (*model.ModelVersion, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidInput)
	}
	if strings.TrimSpace(notes) == "" {
		notes = defaultActivationNotes
	}

	mv, err := s.repo.ActivateModelVersion(ctx, version, notes, s.now())
	if err != nil {
		return nil, fmt.Errorf("activate model version: %w", err)
	}
	s.systemLog(ctx, &model.SystemLog{
		Level:    model.LevelInfo,
		Category: model.CategoryModelVersion,
		Message:  "Activated model version " + version,
		Metadata: datatypes.JSONMap{"version": version, "notes": notes},
	})
	return mv, nil
}

// ManualOverrideInput is an admin correction of a submission. Nil metric
// fields leave the stored value untouched.
type ManualOverrideInput struct {
	SubmissionID     string                  `json:"submissionId" validate:"required"`
	AdminID          string                  `json:"adminId,omitempty"`
	Action           string                  `json:"action" validate:"min=3,max=80"`
	Notes            string                  `json:"notes,omitempty" validate:"max=500"`
	ProcessingStatus *model.ProcessingStatus `json:"processingStatus,omitempty" validate:"omitempty,oneof=QUEUED PROCESSING COMPLETED FAILED RETRYING"`

	SprintTime                   *float64 `json:"sprintTime,omitempty" validate:"omitempty,gt=0"`
	AccelerationTiming           *float64 `json:"accelerationTiming,omitempty" validate:"omitempty,gt=0"`
	ChangeOfDirectionMeasurement *float64 `json:"changeOfDirectionMeasurement,omitempty" validate:"omitempty,gt=0"`
	ShotTiming                   *float64 `json:"shotTiming,omitempty" validate:"omitempty,gt=0"`
	RepetitionCount              *int     `json:"repetitionCount,omitempty" validate:"omitempty,min=0"`
	ConsistencyScore             *float64 `json:"consistencyScore,omitempty" validate:"omitempty,min=0,max=100"`
}

func (in ManualOverrideInput) metrics() model.Metrics {
	return model.Metrics{
		SprintTime:                   in.SprintTime,
		AccelerationTiming:           in.AccelerationTiming,
		ChangeOfDirectionMeasurement: in.ChangeOfDirectionMeasurement,
		ShotTiming:                   in.ShotTiming,
		RepetitionCount:              in.RepetitionCount,
		ConsistencyScore:             in.ConsistencyScore,
	}
}

// ApplyManualOverride records the override, forces the processing state when
// one is given and writes the provided metric values.
func (s *Service) ApplyManualOverride(ctx context.Context, in ManualOverrideInput) (*model.ManualOverride, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := s.repo.FindSubmission(ctx, in.SubmissionID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, processing.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}

	values := make(map[string]any)
	payload := datatypes.JSONMap{}
	for column, v := range in.metrics().Columns() {
		switch p := v.(type) {
		case *float64:
			if p != nil {
				values[column] = *p
				payload[column] = *p
			}
		case *int:
			if p != nil {
				values[column] = *p
				payload[column] = *p
			}
		}
	}
	if in.ProcessingStatus != nil {
		payload["processingStatus"] = string(*in.ProcessingStatus)
	}

	adminID := in.AdminID
	if adminID == "" {
		adminID = defaultAdminID
	}
	override := &model.ManualOverride{
		SubmissionID: in.SubmissionID,
		AdminID:      adminID,
		Action:       in.Action,
		Notes:        in.Notes,
		Payload:      payload,
	}
	if err := s.repo.CreateManualOverride(ctx, override); err != nil {
		return nil, fmt.Errorf("create manual override: %w", err)
	}

	if in.ProcessingStatus != nil {
		if err := s.repo.SetProcessingStatus(ctx, in.SubmissionID, *in.ProcessingStatus); err != nil {
			return nil, fmt.Errorf("set processing status: %w", err)
		}
	}
	if err := s.repo.ApplyMetricOverride(ctx, in.SubmissionID, values); err != nil {
		return nil, fmt.Errorf("apply metric override: %w", err)
	}

	s.systemLog(ctx, &model.SystemLog{
		Level:    model.LevelInfo,
		Category: model.CategoryManualOverride,
		Message:  fmt.Sprintf("Manual override %q applied to %s", in.Action, in.SubmissionID),
		Metadata: datatypes.JSONMap{"adminId": adminID, "submissionId": in.SubmissionID},
	})
	return override, nil
}
