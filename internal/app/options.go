package service

import (
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/domain/claim"
	"github.com/GruntingRhino/Athlemetry/internal/domain/extraction"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClaimer sets the per-submission claim backend.
func WithClaimer(c claim.Claimer) Option {
	return func(s *Service) {
		if c != nil {
			s.claimer = c
		}
	}
}

// WithRetention sets the video retention policy.
func WithRetention(p retention.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithExtractor replaces the metric extractor.
func WithExtractor(e extraction.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithWorkerCount sets how many submissions one batch processes concurrently.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithBatchLimit sets the default batch size.
func WithBatchLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.batchLimit = limit
		}
	}
}

// WithPurgeLimit sets how many expired videos a sweep handles.
func WithPurgeLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.purgeLimit = limit
		}
	}
}

// WithItemTimeout bounds each processing attempt; zero disables the deadline.
func WithItemTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.itemTimeout = d
		}
	}
}

// WithMaxVideoBytes sets the upload size limit.
func WithMaxVideoBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxVideoBytes = n
		}
	}
}

// WithBatchInterval sets the scheduler period; zero disables the scheduler.
func WithBatchInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchInterval = d
		}
	}
}

// WithStatsInterval sets how often status gauges are refreshed.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
