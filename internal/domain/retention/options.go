package retention

import (
	"time"

	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// Option applies a configuration option to the Purger.
type Option func(*Purger)

// WithLogger sets the purger logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Purger) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the time source for purge timestamps and expiry sweeps.
func WithClock(now func() time.Time) Option {
	return func(p *Purger) {
		if now != nil {
			p.now = now
		}
	}
}
