package trendwatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// countingFetch returns a fetch function yielding 1, 2, 3, ... and the
// counter it increments, so tests can observe how many fetches ran.
func countingFetch() (FetchFunc, *atomic.Int64) {
	var n atomic.Int64
	return func(ctx context.Context) (any, error) {
		return int(n.Add(1)), nil
	}, &n
}

// TestSubscribe_SharedPollingLoop verifies that concurrent subscribers
// of one endpoint share a single fetch per tick and all receive the
// same result sequence.
func TestSubscribe_SharedPollingLoop(t *testing.T) {
	fetch, fetches := countingFetch()
	svc := newTestService(t, stubRoutes(fetch))

	var a, b, c collector
	for id, col := range map[string]*collector{"a": &a, "b": &b, "c": &c} {
		if _, err := svc.Subscribe(id, EndpointJobStats, col.callback, WithInterval(20*time.Millisecond)); err != nil {
			t.Fatalf("Subscribe(%q) error = %v", id, err)
		}
	}

	waitFor(t, 2*time.Second, func() bool {
		return a.count() >= 4 && b.count() >= 4 && c.count() >= 4
	}, "four broadcasts per subscriber")
	svc.Close()

	seqA, seqB, seqC := a.snapshot(), b.snapshot(), c.snapshot()

	// every subscriber sees the full fetch sequence, in order
	for name, seq := range map[string][]any{"a": seqA, "b": seqB, "c": seqC} {
		for i, v := range seq {
			if v != i+1 {
				t.Fatalf("subscriber %s received %v at position %d, want %d", name, v, i, i+1)
			}
		}
	}

	// three subscribers, one fetch per tick: far fewer fetches than
	// deliveries
	deliveries := len(seqA) + len(seqB) + len(seqC)
	if got := int(fetches.Load()); got*2 > deliveries {
		t.Errorf("fetches = %d for %d deliveries, expected shared fetches", got, deliveries)
	}
}

// TestSubscribe_MinimumIntervalWins verifies that an endpoint polls at
// the smallest interval requested across its subscribers, and that the
// minimum is recomputed when that subscriber leaves.
func TestSubscribe_MinimumIntervalWins(t *testing.T) {
	fetch, _ := countingFetch()
	svc := newTestService(t, stubRoutes(fetch))

	var slow collector
	if _, err := svc.Subscribe("slow", EndpointJobStats, slow.callback, WithInterval(200*time.Millisecond)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	cancelFast, err := svc.Subscribe("fast", EndpointJobStats, func(any) {}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if got := svc.EffectiveInterval(EndpointJobStats); got != 10*time.Millisecond {
		t.Errorf("EffectiveInterval = %v, want 10ms", got)
	}

	// the slow subscriber rides the fast cadence
	waitFor(t, time.Second, func() bool { return slow.count() >= 3 }, "slow subscriber broadcasts at fast cadence")

	cancelFast()

	if got := svc.EffectiveInterval(EndpointJobStats); got != 200*time.Millisecond {
		t.Errorf("EffectiveInterval after fast unsubscribe = %v, want 200ms", got)
	}
}

// TestUnsubscribe_LastSubscriberStopsPolling verifies that fetches stop
// once an endpoint has no subscribers and restart on resubscribe.
func TestUnsubscribe_LastSubscriberStopsPolling(t *testing.T) {
	fetch, fetches := countingFetch()
	svc := newTestService(t, stubRoutes(fetch))

	cancelA, err := svc.Subscribe("a", EndpointJobStats, func(any) {}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	cancelB, err := svc.Subscribe("b", EndpointJobStats, func(any) {}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return fetches.Load() >= 2 }, "initial fetches")

	cancelA()
	cancelB()

	// allow an in-flight fetch to settle before taking the baseline
	time.Sleep(30 * time.Millisecond)
	settled := fetches.Load()

	time.Sleep(100 * time.Millisecond)
	if got := fetches.Load(); got != settled {
		t.Errorf("fetches after last unsubscribe = %d, want %d", got, settled)
	}

	// resubscribing restarts the loop
	if _, err := svc.Subscribe("c", EndpointJobStats, func(any) {}, WithInterval(10*time.Millisecond)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	waitFor(t, time.Second, func() bool { return fetches.Load() > settled }, "fetches after resubscribe")
}

// TestSubscribe_Errors verifies the registration failure modes.
func TestSubscribe_Errors(t *testing.T) {
	svc := newTestService(t, stubRoutes(staticFetch(1)))

	if _, err := svc.Subscribe("dup", EndpointJobStats, func(any) {}, WithInterval(time.Hour)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if _, err := svc.Subscribe("dup", EndpointJobStats, func(any) {}); err == nil {
		t.Error("duplicate id accepted")
	}
	if _, err := svc.Subscribe("x", Endpoint("unknown"), func(any) {}); err == nil {
		t.Error("unknown endpoint accepted")
	}
	if _, err := svc.Subscribe("y", EndpointJobStats, nil); err == nil {
		t.Error("nil callback accepted")
	}
	if _, err := svc.Subscribe("z", EndpointJobStats, func(any) {}, WithInterval(0)); err == nil {
		t.Error("zero interval accepted")
	}
}

// TestSubscribe_GeneratedID verifies that an empty id still yields a
// working registration with a usable cancel function.
func TestSubscribe_GeneratedID(t *testing.T) {
	fetch, fetches := countingFetch()
	svc := newTestService(t, stubRoutes(fetch))

	cancel, err := svc.Subscribe("", EndpointJobStats, func(any) {}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return fetches.Load() >= 1 }, "first fetch")
	cancel()

	time.Sleep(30 * time.Millisecond)
	settled := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fetches.Load(); got != settled {
		t.Errorf("fetches after cancel = %d, want %d", got, settled)
	}
}

// TestPauseResume verifies that a paused subscriber misses broadcasts
// while the endpoint keeps polling for the others.
func TestPauseResume(t *testing.T) {
	fetch, _ := countingFetch()
	svc := newTestService(t, stubRoutes(fetch))

	var active, paused collector
	if _, err := svc.Subscribe("active", EndpointJobStats, active.callback, WithInterval(10*time.Millisecond)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := svc.Subscribe("paused", EndpointJobStats, paused.callback, WithInterval(10*time.Millisecond)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return active.count() >= 2 && paused.count() >= 2 }, "both subscribers receiving")

	svc.Pause("paused")
	time.Sleep(30 * time.Millisecond) // let an in-flight dispatch settle
	frozen := paused.count()
	activeBefore := active.count()

	waitFor(t, time.Second, func() bool { return active.count() >= activeBefore+3 }, "active subscriber still receiving")
	if got := paused.count(); got != frozen {
		t.Errorf("paused subscriber received %d broadcasts, want %d", got, frozen)
	}

	svc.Resume("paused")
	waitFor(t, time.Second, func() bool { return paused.count() > frozen }, "resumed subscriber receiving")
}

// TestSubscribe_CriticalEndpointFetchesImmediately verifies that jobs
// and dashboard-stats fetch on first subscribe instead of waiting out
// the first interval.
func TestSubscribe_CriticalEndpointFetchesImmediately(t *testing.T) {
	for _, endpoint := range []Endpoint{EndpointJobs, EndpointDashboardStats} {
		t.Run(string(endpoint), func(t *testing.T) {
			svc := newTestService(t, stubRoutes(staticFetch("now")))

			var c collector
			if _, err := svc.Subscribe("a", endpoint, c.callback, WithInterval(time.Hour)); err != nil {
				t.Fatalf("Subscribe() error = %v", err)
			}

			waitFor(t, time.Second, func() bool { return c.count() >= 1 }, "immediate broadcast")
		})
	}
}

// TestSubscribe_NonCriticalEndpointWaitsFirstInterval verifies the
// inverse: other endpoints stay silent until the first tick (or a
// manual refresh).
func TestSubscribe_NonCriticalEndpointWaitsFirstInterval(t *testing.T) {
	svc := newTestService(t, stubRoutes(staticFetch("later")))

	var c collector
	if _, err := svc.Subscribe("a", EndpointRecentPosts, c.callback, WithInterval(time.Hour)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := c.count(); got != 0 {
		t.Fatalf("broadcasts before first tick = %d, want 0", got)
	}

	svc.Refresh("a")
	waitFor(t, time.Second, func() bool { return c.count() >= 1 }, "broadcast after refresh")
}

// TestRefresh_AllEndpoints verifies that a bare Refresh restarts every
// active endpoint immediately.
func TestRefresh_AllEndpoints(t *testing.T) {
	svc := newTestService(t, stubRoutes(staticFetch("x")))

	var posts, costs collector
	if _, err := svc.Subscribe("posts", EndpointRecentPosts, posts.callback, WithInterval(time.Hour)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := svc.Subscribe("costs", EndpointDetailedCosts, costs.callback, WithInterval(time.Hour)); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	svc.Refresh()

	waitFor(t, time.Second, func() bool { return posts.count() >= 1 && costs.count() >= 1 }, "both endpoints refreshed")
}

// TestSubscribeTyped verifies the typed wrapper delivers matching
// payloads and drops mismatches instead of panicking.
func TestSubscribeTyped(t *testing.T) {
	svc := newTestService(t, stubRoutes(staticFetch(42)))

	var ints, strs collector

	if _, err := SubscribeTyped(svc, "ints", EndpointJobStats, func(v int) {
		ints.callback(v)
	}, WithInterval(10*time.Millisecond)); err != nil {
		t.Fatalf("SubscribeTyped() error = %v", err)
	}
	if _, err := SubscribeTyped(svc, "strs", EndpointJobStats, func(v string) {
		strs.callback(v)
	}, WithInterval(10*time.Millisecond)); err != nil {
		t.Fatalf("SubscribeTyped() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return ints.count() >= 2 }, "typed broadcasts")

	if got := ints.snapshot()[0]; got != 42 {
		t.Errorf("int subscriber received %v, want 42", got)
	}
	if got := strs.count(); got != 0 {
		t.Errorf("string subscriber received %d broadcasts, want 0", got)
	}
}
