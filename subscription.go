package trendwatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// subscribeConfig holds per-subscription settings during registration.
type subscribeConfig struct {
	interval      time.Duration
	errorCallback func(error)
}

// SubscribeOption configures a single subscription.
//
// Built-in options: [WithInterval], [WithErrorCallback].
type SubscribeOption func(*subscribeConfig) error

// WithInterval sets the subscription's requested polling interval.
//
// Defaults to [DefaultInterval] (30 seconds). When several subscribers
// of one endpoint request different intervals, the endpoint polls at
// the minimum of them; see [Service.Subscribe].
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) SubscribeOption {
	return func(cfg *subscribeConfig) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithErrorCallback registers a function invoked on every failed tick
// of the subscribed endpoint.
//
// The callback keeps firing each failed tick until the error stops
// occurring or the consumer unsubscribes. Without it, failures only
// slow the endpoint's polling (backoff) and are logged.
func WithErrorCallback(fn func(error)) SubscribeOption {
	return func(cfg *subscribeConfig) error {
		cfg.errorCallback = fn
		return nil
	}
}

// Subscribe registers a consumer for an endpoint's poll results and
// returns a cancel function that removes the registration.
//
// If the endpoint is not already being polled, a polling loop starts;
// the jobs and dashboard-stats endpoints additionally fetch immediately
// instead of waiting for the first tick. Subsequent subscribers share
// the existing loop: one timer and one fetch per endpoint per tick,
// with the single result broadcast to every active subscriber.
//
// The endpoint polls at the minimum interval requested across its
// current subscribers, adjusted per [Service.EffectiveInterval]. The
// callback receives the endpoint's decoded payload (see
// [SubscribeTyped] for a typed variant) and must not block; it runs on
// the endpoint's dispatch goroutine.
//
// An empty id is replaced with a generated UUID. Subscribing a
// duplicate id, an endpoint with no route, or on a closed service
// returns an error.
func (s *Service) Subscribe(id string, endpoint Endpoint, callback func(any), opts ...SubscribeOption) (func(), error) {
	if callback == nil {
		return nil, errors.New("callback cannot be nil")
	}

	cfg := &subscribeConfig{interval: DefaultInterval}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	fetch, ok := s.routes[endpoint]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("no route registered for endpoint %q", endpoint)
	}
	if _, exists := s.subs[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("duplicate subscription id %q", id)
	}

	sub := &subscription{
		id:            id,
		endpoint:      endpoint,
		interval:      cfg.interval,
		callback:      callback,
		errorCallback: cfg.errorCallback,
	}
	s.subs[id] = sub

	st, active := s.endpoints[endpoint]
	if !active {
		st = &endpointState{
			endpoint:    endpoint,
			fetch:       fetch,
			subscribers: map[string]*subscription{id: sub},
			recompute:   make(chan struct{}, 1),
			refresh:     make(chan struct{}, 1),
			done:        make(chan struct{}),
		}
		// backoff context survives dormant periods
		if history, ok := s.errHistory[endpoint]; ok {
			st.errCount = history.count
			st.lastError = history.lastError
		}
		s.endpoints[endpoint] = st

		ctx, cancel := context.WithCancel(s.baseCtx)
		st.cancel = cancel
		go s.runEndpoint(ctx, st, endpoint.critical())

		s.logger.Debug("endpoint polling started",
			"endpoint", endpoint,
			"subscription_id", id,
			"interval", cfg.interval.String(),
		)
	} else {
		st.subscribers[id] = sub
	}
	s.mu.Unlock()

	if active {
		// the new subscriber may lower the endpoint's minimum interval
		nudge(st.recompute)
	}

	return func() { s.Unsubscribe(id) }, nil
}

// SubscribeTyped registers a consumer whose callback receives the
// endpoint's payload as T instead of any.
//
// Broadcasts whose payload is not a T are dropped with a warning log;
// this indicates a route returning a different type than the consumer
// expects. All other behaviour matches [Service.Subscribe].
func SubscribeTyped[T any](s *Service, id string, endpoint Endpoint, callback func(T), opts ...SubscribeOption) (func(), error) {
	if callback == nil {
		return nil, errors.New("callback cannot be nil")
	}

	return s.Subscribe(id, endpoint, func(v any) {
		typed, ok := v.(T)
		if !ok {
			s.logger.Warn("dropping broadcast with unexpected payload type",
				"endpoint", endpoint,
				"subscription_id", id,
				"payload_type", fmt.Sprintf("%T", v),
			)
			return
		}
		callback(typed)
	}, opts...)
}

// Unsubscribe removes a subscription.
//
// The subscriber's callbacks are never invoked again. If it was the
// endpoint's last subscriber, the polling loop stops; a fetch already
// in flight still completes (populating the response cache) but its
// result is not broadcast to anyone. Unknown ids are a no-op.
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.subs, id)

	var cancel context.CancelFunc
	var survivor *endpointState
	if st, ok := s.endpoints[sub.endpoint]; ok {
		delete(st.subscribers, id)
		if len(st.subscribers) == 0 {
			delete(s.endpoints, sub.endpoint)
			s.errHistory[sub.endpoint] = errorState{count: st.errCount, lastError: st.lastError}
			cancel = st.cancel
			s.logger.Debug("endpoint polling stopped", "endpoint", sub.endpoint)
		} else {
			survivor = st
		}
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if survivor != nil {
		// the departing subscriber may have held the minimum interval
		nudge(survivor.recompute)
	}
}

// Pause suspends a subscription's callbacks without removing it.
//
// The endpoint's shared polling loop is unaffected; a paused subscriber
// simply does not receive broadcasts. Its requested interval still
// participates in the endpoint's minimum. Unknown ids are a no-op.
func (s *Service) Pause(id string) {
	s.setPaused(id, true)
}

// Resume re-enables a paused subscription's callbacks.
// Unknown ids are a no-op.
func (s *Service) Resume(id string) {
	s.setPaused(id, false)
}

func (s *Service) setPaused(id string, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[id]; ok {
		sub.paused = paused
	}
}

// Refresh records a user action and immediately restarts polling,
// bypassing the current wait.
//
// With no arguments every active endpoint refreshes; otherwise only the
// endpoints of the named subscriptions do. The recorded action
// timestamp speeds up job-related polling for the activity window (see
// [Service.EffectiveInterval]).
func (s *Service) Refresh(ids ...string) {
	s.mu.Lock()
	s.lastActivity = s.now()

	var targets []*endpointState
	if len(ids) == 0 {
		targets = make([]*endpointState, 0, len(s.endpoints))
		for _, st := range s.endpoints {
			targets = append(targets, st)
		}
	} else {
		seen := make(map[Endpoint]struct{}, len(ids))
		for _, id := range ids {
			sub, ok := s.subs[id]
			if !ok {
				continue
			}
			if _, dup := seen[sub.endpoint]; dup {
				continue
			}
			seen[sub.endpoint] = struct{}{}
			if st, ok := s.endpoints[sub.endpoint]; ok {
				targets = append(targets, st)
			}
		}
	}
	s.mu.Unlock()

	for _, st := range targets {
		nudge(st.refresh)
	}
}

// nudge performs a non-blocking send: if the runner already has a
// pending wake-up, another is redundant.
func nudge(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
