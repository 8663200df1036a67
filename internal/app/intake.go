package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/GruntingRhino/Athlemetry/internal/adapters/storage"
	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

const adultAge = 18

// SubmitVideoInput is an uploaded drill recording and its metadata.
type SubmitVideoInput struct {
	AthleteID         string    `json:"athleteId" validate:"required"`
	DrillDefinitionID string    `json:"drillDefinitionId" validate:"required"`
	RecordingDate     time.Time `json:"recordingDate" validate:"required"`
	Location          string    `json:"location" validate:"min=2,max=80"`
	DrillType         string    `json:"drillType" validate:"omitempty,min=2,max=80"`
	FrameRate         *float64  `json:"frameRate,omitempty" validate:"omitempty,min=10,max=240"`
	StartFrame        *int      `json:"startFrame,omitempty" validate:"omitempty,min=0"`
	FinishFrame       *int      `json:"finishFrame,omitempty" validate:"omitempty,min=1"`
	RepetitionHint    *int      `json:"repetitionHint,omitempty" validate:"omitempty,min=0,max=500"`
	UploadSource      string    `json:"uploadSource,omitempty"`

	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
	Body        []byte `json:"-"`
}

// SubmitVideoResult reports the queued submission and the fast-path batch.
type SubmitVideoResult struct {
	SubmissionID string       `json:"submissionId"`
	Batch        *BatchResult `json:"batch,omitempty"`
}

// SubmitVideo validates and stores a recording, queues a submission for it
// and immediately runs a batch of one.
func (s *Service) SubmitVideo(ctx context.Context, in SubmitVideoInput) (SubmitVideoResult, error) {
	started := s.now()

	athlete, err := s.repo.FindAthlete(ctx, in.AthleteID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return SubmitVideoResult{}, ErrAthleteNotFound
	case err != nil:
		return SubmitVideoResult{}, fmt.Errorf("load athlete: %w", err)
	}
	if athlete.Age != nil && *athlete.Age < adultAge && !athlete.ParentConsentVerified {
		return SubmitVideoResult{}, ErrConsentRequired
	}

	if err := s.validateUpload(in); err != nil {
		metrics.RecordUpload(metrics.ResultFailure, 0)
		return SubmitVideoResult{}, err
	}

	drill, err := s.repo.FindDrill(ctx, in.DrillDefinitionID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return SubmitVideoResult{}, ErrDrillUnavailable
	case err != nil:
		return SubmitVideoResult{}, fmt.Errorf("load drill: %w", err)
	case !drill.IsActive:
		return SubmitVideoResult{}, ErrDrillUnavailable
	}

	sub, err := s.store(ctx, in, athlete, drill)
	if err != nil {
		metrics.RecordUpload(metrics.ResultFailure, 0)
		s.systemLog(ctx, &model.SystemLog{
			Level:     model.LevelError,
			Category:  model.CategoryUpload,
			Message:   err.Error(),
			LatencyMs: latencyMs(started, s.now()),
		})
		return SubmitVideoResult{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	metrics.RecordUpload(metrics.ResultSuccess, sub.FileSize)

	s.systemLog(ctx, &model.SystemLog{
		Level:     model.LevelInfo,
		Category:  model.CategoryUpload,
		Message:   "Submission queued: " + sub.ID,
		LatencyMs: latencyMs(started, s.now()),
		Metadata:  datatypes.JSONMap{"drillSlug": drill.Slug, "submissionId": sub.ID},
	})

	out := SubmitVideoResult{SubmissionID: sub.ID}
	batch, err := s.RunProcessingBatch(ctx, 1)
	if err != nil {
		s.logger.Warn(ctx, "fast-path batch failed", logger.String("submissionId", sub.ID), logger.Error(err))
		return out, nil
	}
	out.Batch = &batch
	return out, nil
}

func (s *Service) validateUpload(in SubmitVideoInput) error {
	if !slices.Contains(model.AllowedVideoMimeTypes, in.ContentType) {
		return fmt.Errorf("%w: unsupported file format", ErrInvalidUpload)
	}
	if len(in.Body) == 0 {
		return fmt.Errorf("%w: video file is required", ErrInvalidUpload)
	}
	if int64(len(in.Body)) > s.maxVideoBytes {
		return fmt.Errorf("%w: video exceeds %dMB limit", ErrInvalidUpload, s.maxVideoBytes/(1024*1024))
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if in.StartFrame != nil && in.FinishFrame != nil && *in.FinishFrame <= *in.StartFrame {
		return fmt.Errorf("%w: finishFrame must be greater than startFrame", ErrInvalidInput)
	}
	return nil
}

// store uploads the video and writes the QUEUED submission with its first log.
func (s *Service) store(ctx context.Context, in SubmitVideoInput, athlete *model.Athlete, drill *model.DrillDefinition) (*model.Submission, error) {
	asset, err := s.storage.Upload(ctx, storage.UploadInput{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Body:        in.Body,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := s.policy.ExpiryDate(now)
	drillType := in.DrillType
	if drillType == "" {
		drillType = drill.Slug
	}
	source := in.UploadSource
	if source == "" {
		source = "web"
	}
	provider := string(asset.Provider)

	sub := &model.Submission{
		AthleteID:         athlete.ID,
		DrillDefinitionID: drill.ID,
		DrillType:         drillType,
		RecordingDate:     in.RecordingDate,
		Location:          in.Location,
		FrameRate:         in.FrameRate,
		StartFrame:        in.StartFrame,
		FinishFrame:       in.FinishFrame,
		RepetitionHint:    in.RepetitionHint,
		FileName:          in.FileName,
		FileSize:          asset.Size,
		MimeType:          in.ContentType,
		StorageProvider:   &provider,
		StorageKey:        &asset.Key,
		VideoHash:         asset.Hash,
		CompressionStatus: asset.CompressionStatus,
		VideoExpiresAt:    &expires,
		UploadProgress:    100,
		ProcessingStatus:  model.StatusQueued,
		QueuedAt:          now,
		Metadata: datatypes.JSONMap{
			"uploadSource":        source,
			"originalName":        in.FileName,
			"storagePolicy":       "metrics-first",
			"videoRetentionHours": s.policy.RetentionHours,
		},
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	if err := s.repo.AppendProcessingLog(ctx, &model.ProcessingLog{
		SubmissionID: sub.ID,
		Status:       model.StatusQueued,
		Message:      "Queued for processing.",
		Attempt:      0,
	}); err != nil {
		s.logger.Error(ctx, "failed to append processing log", logger.String("submissionId", sub.ID), logger.Error(err))
	}
	return sub, nil
}

// RegisterAthleteInput is the cohort profile of a new athlete.
type RegisterAthleteInput struct {
	Name                  string  `json:"name" validate:"min=2,max=80"`
	Age                   *int    `json:"age,omitempty" validate:"omitempty,min=6,max=80"`
	Position              *string `json:"position,omitempty" validate:"omitempty,oneof=GK DEF MID FWD UTIL"`
	CompetitionLevel      *string `json:"competitionLevel,omitempty" validate:"omitempty,oneof=recreational academy elite school"`
	Gender                *string `json:"gender,omitempty" validate:"omitempty,max=30"`
	AnonymizeForBenchmark bool    `json:"anonymizeForBenchmark"`
}

// RegisterAthlete creates an athlete profile.
func (s *Service) RegisterAthlete(ctx context.Context, in RegisterAthleteInput) (*model.Athlete, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	a := &model.Athlete{
		Name:                  in.Name,
		Age:                   in.Age,
		Position:              blankToNil(in.Position),
		CompetitionLevel:      blankToNil(in.CompetitionLevel),
		Gender:                blankToNil(in.Gender),
		AnonymizeForBenchmark: in.AnonymizeForBenchmark,
	}
	if err := s.repo.CreateAthlete(ctx, a); err != nil {
		return nil, fmt.Errorf("create athlete: %w", err)
	}
	return a, nil
}

// ApproveParentConsent records verified parental consent for an athlete.
func (s *Service) ApproveParentConsent(ctx context.Context, athleteID string) error {
	err := s.repo.ApproveParentConsent(ctx, athleteID)
	if errors.Is(err, model.ErrNotFound) {
		return ErrAthleteNotFound
	}
	return err
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func latencyMs(start, end time.Time) *int64 {
	ms := end.Sub(start).Milliseconds()
	return &ms
}
