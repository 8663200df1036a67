package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/GruntingRhino/Athlemetry/internal/adapters/mq/queue"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/mq/worker"
	logging "github.com/GruntingRhino/Athlemetry/pkg/logger"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen map[int]string
	fail map[string]error
	wait time.Duration
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: map[int]string{}, fail: map[string]error{}}
}

func (h *recordingHandler) Handle(ctx context.Context, j queue.Job) error {
	if h.wait > 0 {
		time.Sleep(h.wait)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[j.Index] = j.SubmissionID
	return h.fail[j.SubmissionID]
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func fill(q *queue.InMemoryQueue, ids ...string) {
	for i, id := range ids {
		q.Enqueue(context.Background(), queue.Job{SubmissionID: id, Index: i})
	}
}

func TestPoolRun(t *testing.T) {
	convey.Convey("Given a pool over a closed queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		fill(q, "a", "b", "c", "d", "e")
		convey.So(q.Close(), convey.ShouldBeNil)
		h := newRecordingHandler()
		h.fail["c"] = errors.New("boom")

		pool := worker.NewPool(3, q, h)

		convey.Convey("When it runs", func() {
			err := pool.Run(context.Background())

			convey.Convey("Then every job is handled exactly once and errors do not stop the pool", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(h.count(), convey.ShouldEqual, 5)
				convey.So(h.seen[2], convey.ShouldEqual, "c")
				convey.So(h.seen[4], convey.ShouldEqual, "e")
			})
		})
	})
}

func TestPoolBoundsConcurrency(t *testing.T) {
	convey.Convey("Given a pool of two workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(6))
		fill(q, "a", "b", "c", "d", "e", "f")
		_ = q.Close()

		var current, peak atomic.Int64
		h := worker.HandlerFunc(func(ctx context.Context, j queue.Job) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil
		})

		err := worker.NewPool(2, q, h).Run(context.Background())

		convey.Convey("Then no more than two jobs run at once", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(peak.Load(), convey.ShouldBeLessThanOrEqualTo, 2)
			convey.So(peak.Load(), convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestPoolRunCancelled(t *testing.T) {
	convey.Convey("Given a pool whose queue never closes", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		pool := worker.NewPool(2, q, newRecordingHandler())
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		convey.Convey("Then Run returns the context error", func() {
			convey.So(errors.Is(pool.Run(ctx), context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		w := worker.NewInMemoryWorker(q, newRecordingHandler(),
			worker.WithName("w-1"), worker.WithLogger(logging.Nop()))
		go w.Run(context.Background())

		convey.Convey("When shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPoolShutdown(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		h := newRecordingHandler()
		pool := worker.NewPool(2, q, h)
		done := make(chan error, 1)
		go func() { done <- pool.Run(context.Background()) }()
		fill(q, "a", "b")

		convey.Convey("When shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is closed and Run returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				select {
				case runErr := <-done:
					convey.So(runErr, convey.ShouldBeNil)
				case <-time.After(time.Second):
					convey.So("pool did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestPoolShutdownMidJob(t *testing.T) {
	convey.Convey("Given a single-worker pool busy with the first of three jobs", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		fill(q, "a", "b", "c")
		_ = q.Close()

		entered := make(chan struct{})
		release := make(chan struct{})
		var handled atomic.Int64
		h := worker.HandlerFunc(func(ctx context.Context, j queue.Job) error {
			if handled.Add(1) == 1 {
				close(entered)
				<-release
			}
			return nil
		})
		pool := worker.NewPool(1, q, h)
		done := make(chan error, 1)
		go func() { done <- pool.Run(context.Background()) }()
		<-entered

		convey.Convey("When shut down before the job finishes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			stopped := make(chan error, 1)
			go func() { stopped <- pool.Shutdown(ctx) }()
			time.Sleep(20 * time.Millisecond)
			close(release)

			convey.Convey("Then the running job completes and the rest are abandoned", func() {
				convey.So(<-stopped, convey.ShouldBeNil)
				convey.So(<-done, convey.ShouldBeNil)
				convey.So(handled.Load(), convey.ShouldEqual, 1)
			})
		})
	})
}
