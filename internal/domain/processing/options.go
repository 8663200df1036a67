package processing

import (
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/domain/extraction"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithExtractor replaces the placeholder extraction model.
func WithExtractor(e extraction.Extractor) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithBenchmarks sets the benchmark recalculator run after completion.
func WithBenchmarks(b Recalculator) Option {
	return func(p *Pipeline) {
		p.benchmarks = b
	}
}

// WithPurger sets the video purger run after completion or terminal failure.
func WithPurger(pr Purger) Option {
	return func(p *Pipeline) {
		p.purger = pr
	}
}

// WithMaxAttempts overrides the failure ceiling.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithClock sets the time source for lifecycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
