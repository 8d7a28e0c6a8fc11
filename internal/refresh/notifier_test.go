package refresh_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nurpe/energy-contracts/internal/refresh"
)

func waitFor(condition func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

func TestNotifier(t *testing.T) {
	Convey("Given a notifier", t, func() {
		n := refresh.NewNotifier()
		Reset(n.Close)

		Convey("When a subscriber is registered and notifications are sent", func() {
			var calls atomic.Int64
			unsubscribe := n.Subscribe(func() { calls.Add(1) })
			defer unsubscribe()

			for i := 0; i < 5; i++ {
				n.Notify()
			}

			Convey("Then the handler runs once per notification", func() {
				So(waitFor(func() bool { return calls.Load() == 5 }), ShouldBeTrue)
			})
		})

		Convey("When a handler is slow", func() {
			release := make(chan struct{})
			var calls atomic.Int64
			unsubscribe := n.Subscribe(func() {
				<-release
				calls.Add(1)
			})
			defer unsubscribe()

			done := make(chan struct{})
			go func() {
				for i := 0; i < 3; i++ {
					n.Notify()
				}
				close(done)
			}()

			Convey("Then the producer is never blocked and every notification is delivered", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("Notify blocked on a slow handler")
				}
				close(release)
				So(waitFor(func() bool { return calls.Load() == 3 }), ShouldBeTrue)
			})
		})

		Convey("When a subscriber unsubscribes", func() {
			var calls atomic.Int64
			unsubscribe := n.Subscribe(func() { calls.Add(1) })
			So(n.Subscribers(), ShouldEqual, 1)

			unsubscribe()
			unsubscribe()
			n.Notify()
			time.Sleep(20 * time.Millisecond)

			Convey("Then it no longer receives notifications", func() {
				So(n.Subscribers(), ShouldEqual, 0)
				So(calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When several subscribers are registered", func() {
			var mu sync.Mutex
			seen := map[string]int{}
			for _, name := range []string{"contracts-list", "contract-detail"} {
				name := name
				unsubscribe := n.Subscribe(func() {
					mu.Lock()
					seen[name]++
					mu.Unlock()
				})
				defer unsubscribe()
			}
			n.Notify()
			n.Notify()

			Convey("Then each of them observes every notification", func() {
				So(waitFor(func() bool {
					mu.Lock()
					defer mu.Unlock()
					return seen["contracts-list"] == 2 && seen["contract-detail"] == 2
				}), ShouldBeTrue)
			})
		})

		Convey("When the notifier is closed", func() {
			n.Close()
			unsubscribe := n.Subscribe(func() {})
			unsubscribe()

			Convey("Then new subscriptions are ignored", func() {
				So(n.Subscribers(), ShouldEqual, 0)
			})
		})
	})
}
