package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = 10 * time.Minute
	defaultPrefix = "athlemetry:claim:"
)

// releaseScript deletes the key only if it still holds the caller's token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// ErrClaimed is returned when a claim could not be acquired.
var ErrClaimed = errors.New("submission already claimed")

// RedisClient is the command subset the claimer uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisClaimer implements Claimer across processes with SET NX and a TTL.
type RedisClaimer struct {
	client RedisClient
	ttl    time.Duration
	prefix string
}

// NewRedisClaimer creates a claimer backed by client.
func NewRedisClaimer(client RedisClient, opts ...RedisOption) *RedisClaimer {
	c := &RedisClaimer{client: client, ttl: defaultTTL, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TryClaim implements Claimer.
func (c *RedisClaimer) TryClaim(ctx context.Context, id string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, c.prefix+id, token, c.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim %s: %w", id, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release implements Claimer.
func (c *RedisClaimer) Release(ctx context.Context, id, token string) error {
	if token == "" {
		return nil
	}
	if err := c.client.Eval(ctx, releaseScript, []string{c.prefix + id}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}
