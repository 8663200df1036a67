package benchmark

import (
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyedMutex(t *testing.T) {
	Convey("Given a keyed mutex", t, func() {
		k := newKeyedMutex()

		Convey("When many goroutines lock the same key", func() {
			var inside, peak atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					release := k.Lock("cohort")
					n := inside.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					inside.Add(-1)
					release()
				}()
			}
			wg.Wait()

			Convey("Then at most one holds it at a time and entries are released", func() {
				So(peak.Load(), ShouldEqual, 1)
				So(k.Len(), ShouldEqual, 0)
			})
		})

		Convey("When different keys are locked", func() {
			a := k.Lock("a")
			b := k.Lock("b")

			Convey("Then both are held independently", func() {
				So(k.Len(), ShouldEqual, 2)
				a()
				b()
				So(k.Len(), ShouldEqual, 0)
			})
		})
	})
}
