package claim

import "time"

// Option applies a configuration option to the in-memory claimer.
type Option func(*InMemoryClaimer)

// WithTokenSource overrides token generation.
func WithTokenSource(f func() string) Option {
	return func(c *InMemoryClaimer) {
		if f != nil {
			c.tokens = f
		}
	}
}

// RedisOption applies a configuration option to the RedisClaimer.
type RedisOption func(*RedisClaimer)

// WithTTL sets how long a claim survives if its holder never releases it.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisClaimer) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the redis key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisClaimer) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}
