package trendwatch

import (
	"context"
	"time"

	"github.com/trendscribe/trendwatch/internal/snapshot"
)

// runEndpoint is the polling loop for one endpoint. It runs from the
// first subscribe until the last unsubscribe (or service close) and is
// the only goroutine that owns the endpoint's timer.
//
// The wait interval is recomputed after every tick, and a recompute
// nudge (visibility change, subscriber set change, error count change
// at settle) restarts the wait immediately with the fresh interval; a
// refresh nudge additionally fires a tick. Activity speed-up alone
// takes effect lazily on the next restart.
func (s *Service) runEndpoint(ctx context.Context, st *endpointState, immediate bool) {
	defer close(st.done)

	if immediate {
		s.tick(st)
	}

	timer := time.NewTimer(s.EffectiveInterval(st.endpoint))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			s.tick(st)
			timer.Reset(s.EffectiveInterval(st.endpoint))

		case <-st.refresh:
			stopTimer(timer)
			s.tick(st)
			timer.Reset(s.EffectiveInterval(st.endpoint))

		case <-st.recompute:
			stopTimer(timer)
			timer.Reset(s.EffectiveInterval(st.endpoint))
		}
	}
}

// stopTimer stops a timer and drains its channel if it already fired.
func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// tick performs one fetch for the endpoint and fans the result out.
//
// If the previous tick's fetch is still outstanding the tick is skipped
// entirely: no new fetch, no callbacks. The fetch itself runs on its
// own goroutine against the service's base context, so it is not
// aborted when the endpoint's loop stops; the subscriber set is
// re-read when the fetch settles, and whoever is still registered and
// unpaused at that point receives the broadcast.
func (s *Service) tick(st *endpointState) {
	s.mu.Lock()
	if st.inFlight {
		s.mu.Unlock()
		return
	}
	st.inFlight = true
	s.mu.Unlock()

	go func() {
		data, err := st.fetch(s.baseCtx)
		settledAt := s.now()

		s.mu.Lock()
		st.inFlight = false
		errCountChanged := false
		if err != nil {
			st.errCount++
			st.lastError = settledAt
			errCountChanged = true
		} else {
			errCountChanged = st.errCount != 0
			st.errCount = 0
		}
		// the endpoint may have gone dormant (or been recreated) while
		// the fetch was in flight; keep the backoff history coherent
		if current, ok := s.endpoints[st.endpoint]; !ok || current != st {
			s.errHistory[st.endpoint] = errorState{count: st.errCount, lastError: st.lastError}
		}
		targets := make([]*subscription, 0, len(st.subscribers))
		for _, sub := range st.subscribers {
			if !sub.paused {
				targets = append(targets, sub)
			}
		}
		errCount := st.errCount
		s.mu.Unlock()

		// the wait already in progress was computed before this outcome
		// was known; restart it so backoff (or recovery) applies to the
		// next fetch, not the one after
		if errCountChanged {
			nudge(st.recompute)
		}

		s.latest.Update(snapshot.Result{
			Endpoint: string(st.endpoint),
			Data:     data,
			Err:      err,
			At:       settledAt,
		})

		if err != nil {
			for _, sub := range targets {
				if sub.errorCallback != nil {
					s.invokeErrorCallback(sub, err)
				}
			}
			s.logger.Warn("poll failed",
				"endpoint", st.endpoint,
				"error", err.Error(),
				"consecutive_errors", errCount,
			)
			return
		}

		for _, sub := range targets {
			s.invokeCallback(sub, data)
		}
		s.logger.Debug("poll completed",
			"endpoint", st.endpoint,
			"subscribers", len(targets),
		)
	}()
}
