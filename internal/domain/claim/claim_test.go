package claim_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/GruntingRhino/Athlemetry/internal/domain/claim"
)

func TestInMemoryClaimer(t *testing.T) {
	Convey("Given a new InMemoryClaimer", t, func() {
		c := claim.NewInMemoryClaimer()
		ctx := context.Background()

		Convey("When a submission is claimed", func() {
			token, ok, err := c.TryClaim(ctx, "sub-1")

			Convey("Then the claim is granted", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(token, ShouldNotBeEmpty)
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("And it is claimed again", func() {
				_, again, err := c.TryClaim(ctx, "sub-1")

				Convey("Then the second claim is refused", func() {
					So(err, ShouldBeNil)
					So(again, ShouldBeFalse)
				})
			})

			Convey("And it is released with a stale token", func() {
				So(c.Release(ctx, "sub-1", "stale"), ShouldBeNil)

				Convey("Then the claim is still held", func() {
					So(c.Size(), ShouldEqual, 1)
				})
			})

			Convey("And it is released", func() {
				So(c.Release(ctx, "sub-1", token), ShouldBeNil)

				Convey("Then it can be claimed again", func() {
					So(c.Size(), ShouldEqual, 0)
					_, ok, _ := c.TryClaim(ctx, "sub-1")
					So(ok, ShouldBeTrue)
				})
			})
		})

		Convey("When a custom token source is configured", func() {
			c := claim.NewInMemoryClaimer(claim.WithTokenSource(func() string { return "fixed" }))
			token, _, _ := c.TryClaim(ctx, "sub-2")
			So(token, ShouldEqual, "fixed")
		})
	})

	Convey("Given many goroutines racing for one submission", t, func() {
		c := claim.NewInMemoryClaimer()
		var granted atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := c.TryClaim(context.Background(), "contended"); ok {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(granted.Load(), ShouldEqual, 1)
		})
	})
}

// fakeRedis implements the SetNX and Eval subset over a map.
type fakeRedis struct {
	mu      sync.Mutex
	keys    map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return redis.NewBoolResult(false, f.failSet)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == fmt.Sprint(args[0]) {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisClaimer(t *testing.T) {
	Convey("Given a RedisClaimer", t, func() {
		rdb := newFakeRedis()
		c := claim.NewRedisClaimer(rdb, claim.WithTTL(time.Minute), claim.WithKeyPrefix("test:"))
		ctx := context.Background()

		Convey("When a submission is claimed", func() {
			token, ok, err := c.TryClaim(ctx, "sub-1")

			Convey("Then the key is set with the ttl", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(rdb.keys["test:sub-1"], ShouldEqual, token)
				So(rdb.ttls["test:sub-1"], ShouldEqual, time.Minute)
			})

			Convey("And claimed by another holder", func() {
				_, ok, err := c.TryClaim(ctx, "sub-1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And released with the wrong token", func() {
				So(c.Release(ctx, "sub-1", "other"), ShouldBeNil)
				So(rdb.keys, ShouldContainKey, "test:sub-1")
			})

			Convey("And released by its holder", func() {
				So(c.Release(ctx, "sub-1", token), ShouldBeNil)
				So(rdb.keys, ShouldNotContainKey, "test:sub-1")
			})
		})

		Convey("When redis is unavailable", func() {
			rdb.failSet = errors.New("connection refused")
			_, ok, err := c.TryClaim(ctx, "sub-1")

			Convey("Then the error is surfaced", func() {
				So(ok, ShouldBeFalse)
				So(err, ShouldNotBeNil)
			})
		})
	})
}
