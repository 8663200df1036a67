package retention

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

// Trigger names why a purge was attempted.
type Trigger string

// Purge triggers.
const (
	TriggerCompletion      Trigger = "completion"
	TriggerTerminalFailure Trigger = "terminal-failure"
	TriggerExpired         Trigger = "expired"
)

// Store is the persistence surface the purger needs.
type Store interface {
	MarkVideoPurged(ctx context.Context, submissionID string, at time.Time) error
	MarkVideoPurgeError(ctx context.Context, submissionID, message string) error
	// ListExpiredVideos returns undeleted, unretained videos with a storage
	// key whose expiry is at or before now, oldest expiry first.
	ListExpiredVideos(ctx context.Context, now time.Time, limit int) ([]model.Submission, error)
	AppendSystemLog(ctx context.Context, l *model.SystemLog) error
}

// Deleter removes an object from the named storage provider.
type Deleter interface {
	Delete(ctx context.Context, provider, key string) error
}

// Outcome reports a purge attempt. Purge failures never affect processing.
type Outcome struct {
	Trigger   Trigger `json:"trigger"`
	Attempted bool    `json:"attempted"`
	Purged    bool    `json:"purged"`
	Error     string  `json:"error,omitempty"`
}

// Summary reports an expiry sweep.
type Summary struct {
	Scanned int `json:"scanned"`
	Purged  int `json:"purged"`
	Failed  int `json:"failed"`
}

// Purger deletes stored videos and records the result on the submission.
type Purger struct {
	store   Store
	deleter Deleter
	policy  Policy
	logger  logger.Logger
	now     func() time.Time
}

// NewPurger creates a purger.
func NewPurger(store Store, deleter Deleter, policy Policy, opts ...Option) *Purger {
	p := &Purger{
		store:   store,
		deleter: deleter,
		policy:  policy,
		logger:  logger.Named("retention"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the purger's retention policy.
func (p *Purger) Policy() Policy { return p.policy }

// AfterCompletion purges the video of a completed submission unless it is
// retained for audit.
func (p *Purger) AfterCompletion(ctx context.Context, sub *model.Submission) Outcome {
	if sub.RetainVideoForAudit {
		return Outcome{Trigger: TriggerCompletion}
	}
	return p.Purge(ctx, sub, TriggerCompletion)
}

// AfterTerminalFailure purges the video of a FAILED submission when the
// policy allows it.
func (p *Purger) AfterTerminalFailure(ctx context.Context, sub *model.Submission) Outcome {
	if !p.policy.ShouldPurgeOnTerminalFailure(sub.RetainVideoForAudit) {
		return Outcome{Trigger: TriggerTerminalFailure}
	}
	return p.Purge(ctx, sub, TriggerTerminalFailure)
}

// Purge deletes the submission's video and records success or the failure
// text on the submission.
func (p *Purger) Purge(ctx context.Context, sub *model.Submission, trigger Trigger) Outcome {
	out := Outcome{Trigger: trigger, Attempted: true}

	if sub.StorageProvider == nil || *sub.StorageProvider == "" || sub.StorageKey == nil || *sub.StorageKey == "" {
		out.Error = ErrMissingStorageRef.Error()
		if err := p.store.MarkVideoPurgeError(ctx, sub.ID, out.Error); err != nil {
			p.logger.Error(ctx, "failed to record purge error", logger.String("submissionId", sub.ID), logger.Error(err))
		}
		metrics.RecordVideoPurge(string(trigger), "skipped")
		return out
	}

	if err := p.deleter.Delete(ctx, *sub.StorageProvider, *sub.StorageKey); err != nil {
		out.Error = err.Error()
		p.recordFailure(ctx, sub.ID, out.Error)
		metrics.RecordVideoPurge(string(trigger), "failed")
		return out
	}

	if err := p.store.MarkVideoPurged(ctx, sub.ID, p.now()); err != nil {
		out.Error = fmt.Sprintf("mark video purged: %v", err)
		p.recordFailure(ctx, sub.ID, out.Error)
		metrics.RecordVideoPurge(string(trigger), "failed")
		return out
	}

	out.Purged = true
	metrics.RecordVideoPurge(string(trigger), "purged")
	return out
}

func (p *Purger) recordFailure(ctx context.Context, submissionID, message string) {
	p.logger.Warn(ctx, "video purge failed", logger.String("submissionId", submissionID), logger.String("reason", message))
	if err := p.store.MarkVideoPurgeError(ctx, submissionID, message); err != nil {
		p.logger.Error(ctx, "failed to record purge error", logger.String("submissionId", submissionID), logger.Error(err))
	}
	entry := &model.SystemLog{
		Level:    model.LevelWarn,
		Category: model.CategoryVideoPurge,
		Message:  message,
		Metadata: datatypes.JSONMap{"submissionId": submissionID},
	}
	if err := p.store.AppendSystemLog(ctx, entry); err != nil {
		p.logger.Error(ctx, "failed to append system log", logger.Error(err))
	}
}

// PurgeExpired sweeps up to limit expired videos, oldest expiry first.
func (p *Purger) PurgeExpired(ctx context.Context, limit int) (Summary, error) {
	if limit <= 0 {
		return Summary{}, nil
	}
	expired, err := p.store.ListExpiredVideos(ctx, p.now(), limit)
	if err != nil {
		return Summary{}, fmt.Errorf("list expired videos: %w", err)
	}

	var s Summary
	for i := range expired {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		s.Scanned++
		if out := p.Purge(ctx, &expired[i], TriggerExpired); out.Purged {
			s.Purged++
		} else {
			s.Failed++
		}
	}

	if s.Purged > 0 {
		entry := &model.SystemLog{
			Level:    model.LevelInfo,
			Category: model.CategoryVideoPurge,
			Message:  fmt.Sprintf("Purged %d expired video assets.", s.Purged),
			Metadata: datatypes.JSONMap{"purged": s.Purged, "failed": s.Failed},
		}
		if err := p.store.AppendSystemLog(ctx, entry); err != nil {
			p.logger.Error(ctx, "failed to append system log", logger.Error(err))
		}
	}
	return s, nil
}
