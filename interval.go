package trendwatch

import "time"

// cadence multipliers, composed multiplicatively onto the base interval
const (
	// recentActivityFactor speeds up job-related endpoints right after
	// a user action, when near-real-time feedback is expected.
	recentActivityFactor = 0.2

	// hiddenFactor slows all polling while the host is not visible.
	hiddenFactor = 6.0

	// maxBackoffFactor caps the exponential error backoff at 2^3.
	maxBackoffFactor = 8.0
)

// EffectiveInterval returns the interval at which an endpoint currently
// polls, or would poll if subscribed.
//
// The base is the minimum interval requested across the endpoint's
// subscribers ([DefaultInterval] when dormant). Multiplicative
// adjustments compose onto it:
//
//   - x0.2 for job-related endpoints within the activity window of the
//     last manual refresh
//   - x6 while the host is hidden
//   - x2^k for k consecutive fetch failures, capped at x8
//
// The result never drops below the configured floor (default 5s).
func (s *Service) EffectiveInterval(endpoint Endpoint) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveIntervalLocked(endpoint)
}

func (s *Service) effectiveIntervalLocked(endpoint Endpoint) time.Duration {
	base := DefaultInterval
	errCount := 0

	if st, ok := s.endpoints[endpoint]; ok {
		base = minRequestedInterval(st)
		errCount = st.errCount
	} else if history, ok := s.errHistory[endpoint]; ok {
		errCount = history.count
	}

	interval := float64(base)

	if endpoint.jobRelated() && !s.lastActivity.IsZero() && s.now().Sub(s.lastActivity) < s.activityWindow {
		interval *= recentActivityFactor
	}
	if !s.visibility.Visible() {
		interval *= hiddenFactor
	}
	if errCount > 0 {
		interval *= backoffFactor(errCount)
	}

	d := time.Duration(interval)
	if d < s.floor {
		d = s.floor
	}
	return d
}

// minRequestedInterval returns the smallest interval requested by the
// endpoint's subscribers. Paused subscribers still count: they resume
// without changing the cadence they asked for.
func minRequestedInterval(st *endpointState) time.Duration {
	min := time.Duration(0)
	for _, sub := range st.subscribers {
		if min == 0 || sub.interval < min {
			min = sub.interval
		}
	}
	if min == 0 {
		return DefaultInterval
	}
	return min
}

// backoffFactor returns 2^count capped at maxBackoffFactor.
func backoffFactor(count int) float64 {
	if count >= 3 {
		return maxBackoffFactor
	}
	return float64(int(1) << uint(count))
}

// updateIntervals wakes every active runner so it restarts its wait
// with a freshly computed interval. Called on visibility changes.
func (s *Service) updateIntervals() {
	s.mu.Lock()
	states := make([]*endpointState, 0, len(s.endpoints))
	for _, st := range s.endpoints {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		nudge(st.recompute)
	}
}
