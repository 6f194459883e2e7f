package trendwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trendscribe/trendwatch/internal/snapshot"
)

const (
	// DefaultInterval is the polling interval used when a subscription
	// does not request one.
	DefaultInterval = 30 * time.Second

	defaultFloor          = 5 * time.Second
	defaultActivityWindow = 2 * time.Minute
)

// ErrClosed is returned by [Service.Subscribe] after [Service.Close].
var ErrClosed = errors.New("service is closed")

// Service is the polling multiplexer for the TrendScribe backend.
//
// Service maintains at most one polling loop per distinct endpoint
// regardless of how many consumers subscribe to it. Each loop fetches
// through the endpoint's registered [FetchFunc] and fans the single
// result out to every active subscriber. Cadence adapts to recent user
// activity, host visibility, and consecutive fetch failures; see
// [Service.EffectiveInterval].
//
// Create a Service with [New], register consumers with
// [Service.Subscribe], and tear everything down with [Service.Close]
// at application shutdown (not per-consumer; consumers use the cancel
// function returned by Subscribe).
//
// All methods are safe for concurrent use.
type Service struct {
	routes         Routes
	logger         *slog.Logger
	visibility     Visibility
	floor          time.Duration
	activityWindow time.Duration

	// baseCtx outlives individual endpoint runners so that a fetch
	// already in flight when its last subscriber leaves still completes
	// and populates the response cache.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu               sync.Mutex
	subs             map[string]*subscription
	endpoints        map[Endpoint]*endpointState
	errHistory       map[Endpoint]errorState
	lastActivity     time.Time
	cancelVisibility func()
	closed           bool
	now              func() time.Time

	latest *snapshot.Store
}

// subscription is one consumer's registration against an endpoint.
// Mutated only under the service mutex.
type subscription struct {
	id            string
	endpoint      Endpoint
	interval      time.Duration
	callback      func(any)
	errorCallback func(error)
	paused        bool
}

// errorState tracks consecutive fetch failures for one endpoint. It
// survives dormant periods so that a flapping endpoint resubscribed
// moments after its last unsubscribe does not restart at full speed.
type errorState struct {
	count     int
	lastError time.Time
}

// endpointState is the shared polling state for one endpoint while it
// has at least one subscriber.
type endpointState struct {
	endpoint Endpoint
	fetch    FetchFunc

	// subscribers is re-read at dispatch time: consumers that
	// unsubscribe or pause while a fetch is in flight receive nothing.
	subscribers map[string]*subscription

	errCount  int
	lastError time.Time

	// inFlight is the per-endpoint request guard: a tick that fires
	// while the previous tick's fetch is outstanding is skipped, not
	// queued.
	inFlight bool

	// recompute wakes the runner to restart its wait with a freshly
	// computed interval; refresh additionally fires an immediate tick.
	recompute chan struct{}
	refresh   chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a [Service] polling through the given routes.
//
// Routes must contain a non-nil fetch function for every endpoint that
// will be subscribed; [DefaultRoutes] builds the standard TrendScribe
// set. Options have sensible defaults: [slog.Default] logging, an
// always-visible host, a 5 second interval floor, and a 2 minute user
// activity window.
func New(routes Routes, opts ...Option) (*Service, error) {
	if err := routes.validate(); err != nil {
		return nil, err
	}

	cfg := &serviceConfig{
		floor:          defaultFloor,
		activityWindow: defaultActivityWindow,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	visibility := cfg.visibility
	if visibility == nil {
		visibility = AlwaysVisible()
	}

	// copy the routes so later caller mutations cannot bypass validation
	routesCopy := make(Routes, len(routes))
	for endpoint, fetch := range routes {
		routesCopy[endpoint] = fetch
	}

	s := &Service{
		routes:         routesCopy,
		logger:         logger,
		visibility:     visibility,
		floor:          cfg.floor,
		activityWindow: cfg.activityWindow,
		subs:           make(map[string]*subscription),
		endpoints:      make(map[Endpoint]*endpointState),
		errHistory:     make(map[Endpoint]errorState),
		now:            time.Now,
		latest:         snapshot.NewStore(),
	}
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	// a visibility flip recomputes and restarts every active wait;
	// activity speed-up instead takes effect lazily on the next tick
	// restart
	s.cancelVisibility = visibility.OnChange(func(visible bool) {
		s.logger.Debug("visibility changed", "visible", visible)
		s.updateIntervals()
	})

	return s, nil
}

// Close tears the service down: every runner is stopped, all
// subscriptions are dropped, and the visibility listener is detached.
//
// Close blocks until all polling goroutines have exited. It is intended
// to run once at application shutdown and is idempotent. In-flight
// fetches are cancelled.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	cancelVisibility := s.cancelVisibility
	s.cancelVisibility = nil

	states := make([]*endpointState, 0, len(s.endpoints))
	for endpoint, st := range s.endpoints {
		states = append(states, st)
		s.errHistory[endpoint] = errorState{count: st.errCount, lastError: st.lastError}
		// a fetch still in flight re-reads this set when it settles; it
		// must find nobody left to broadcast to
		clear(st.subscribers)
	}
	s.endpoints = make(map[Endpoint]*endpointState)
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()

	if cancelVisibility != nil {
		cancelVisibility()
	}

	s.baseCancel()
	for _, st := range states {
		<-st.done
	}

	s.logger.Info("polling service stopped")
}

// Latest returns the most recent broadcast outcome for an endpoint, or
// false if it has never completed a fetch since the service started.
//
// The snapshot reflects what subscribers last received, including
// degraded defaults; it is not read through the response cache.
func (s *Service) Latest(endpoint Endpoint) (Snapshot, bool) {
	result, ok := s.latest.Get(string(endpoint))
	if !ok {
		return Snapshot{}, false
	}
	return resultToSnapshot(result), true
}

// Snapshots returns the most recent broadcast outcome for every
// endpoint that has completed at least one fetch. Order is not
// guaranteed.
func (s *Service) Snapshots() []Snapshot {
	results := s.latest.GetAll()
	out := make([]Snapshot, len(results))
	for i, result := range results {
		out[i] = resultToSnapshot(result)
	}
	return out
}

// Snapshot is the most recent poll outcome for one endpoint.
type Snapshot struct {
	// Endpoint is the polled endpoint.
	Endpoint Endpoint

	// Data is the payload broadcast to subscribers. Nil when the poll
	// failed.
	Data any

	// Err is the error broadcast to subscribers. Nil when the poll
	// succeeded.
	Err error

	// At is when the fetch settled.
	At time.Time
}

// resultToSnapshot converts the internal store result to the public type.
func resultToSnapshot(r snapshot.Result) Snapshot {
	return Snapshot{
		Endpoint: Endpoint(r.Endpoint),
		Data:     r.Data,
		Err:      r.Err,
		At:       r.At,
	}
}

// invokeCallback calls a subscriber data callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func (s *Service) invokeCallback(sub *subscription, data any) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("subscriber callback panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
				"subscription_id", sub.id,
				"endpoint", sub.endpoint,
			)
		}
	}()
	sub.callback(data)
}

// invokeErrorCallback calls a subscriber error callback with panic recovery.
func (s *Service) invokeErrorCallback(sub *subscription, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("subscriber error callback panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
				"subscription_id", sub.id,
				"endpoint", sub.endpoint,
			)
		}
	}()
	sub.errorCallback(err)
}
