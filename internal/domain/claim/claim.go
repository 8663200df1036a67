// Package claim guards a submission against concurrent processing.
package claim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Claimer grants exclusive processing rights on a submission id.
type Claimer interface {
	// TryClaim atomically claims id. ok is false when another holder has it.
	// The returned token must be passed to Release.
	TryClaim(ctx context.Context, id string) (token string, ok bool, err error)

	// Release gives up a claim. Releasing with a stale token is a no-op.
	Release(ctx context.Context, id, token string) error
}

// InMemoryClaimer implements Claimer for a single process.
type InMemoryClaimer struct {
	mu     sync.Mutex
	held   map[string]string // id -> token
	size   atomic.Int64
	tokens func() string
}

// NewInMemoryClaimer creates a process-local claimer.
func NewInMemoryClaimer(opts ...Option) *InMemoryClaimer {
	c := &InMemoryClaimer{
		held:   make(map[string]string),
		tokens: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TryClaim implements Claimer.
func (c *InMemoryClaimer) TryClaim(_ context.Context, id string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.held[id]; exists {
		return "", false, nil
	}
	token := c.tokens()
	c.held[id] = token
	c.size.Add(1)
	return token, true, nil
}

// Release implements Claimer.
func (c *InMemoryClaimer) Release(_ context.Context, id, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, exists := c.held[id]; exists && current == token {
		delete(c.held, id)
		c.size.Add(-1)
	}
	return nil
}

// Size returns the number of claims currently held.
func (c *InMemoryClaimer) Size() int64 {
	return c.size.Load()
}
