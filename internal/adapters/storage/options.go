package storage

import (
	"time"

	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithFactory registers or replaces the constructor for a provider.
func WithFactory(name ProviderName, f Factory) Option {
	return func(r *Resolver) {
		if f != nil {
			r.factories[name] = f
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the time source used for object keys.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}
