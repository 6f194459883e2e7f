package trendwatch

import (
	"context"
	"fmt"
)

// Endpoint identifies a logical backend resource that can be polled.
//
// The polling service never constructs URLs itself; each endpoint is
// bound to a [FetchFunc] in a [Routes] table, and the fetch function
// owns the concrete request. [DefaultRoutes] binds the standard
// TrendScribe set.
type Endpoint string

const (
	// EndpointJobs is the active content-generation job list.
	EndpointJobs Endpoint = "jobs"

	// EndpointArchivedJobs is the archived job list.
	EndpointArchivedJobs Endpoint = "archived-jobs"

	// EndpointDashboardStats is the dashboard summary statistics.
	EndpointDashboardStats Endpoint = "dashboard-stats"

	// EndpointDetailedCosts is the per-service cost analytics breakdown.
	EndpointDetailedCosts Endpoint = "detailed-costs"

	// EndpointJobStats is the job counts by state.
	EndpointJobStats Endpoint = "job-stats"

	// EndpointArchiveEligibility reports jobs old enough to archive.
	EndpointArchiveEligibility Endpoint = "archive-eligibility"

	// EndpointRecentPosts is the recently generated blog posts.
	EndpointRecentPosts Endpoint = "recent-posts"
)

// String returns the endpoint name.
// This implements the fmt.Stringer interface.
func (e Endpoint) String() string {
	return string(e)
}

// jobRelated reports whether recent user activity should speed up
// polling of this endpoint. Users expect near-real-time job feedback
// right after triggering an action.
func (e Endpoint) jobRelated() bool {
	return e == EndpointJobs || e == EndpointArchivedJobs
}

// critical reports whether the first subscription to this endpoint
// should fire an immediate fetch instead of waiting for the first tick.
func (e Endpoint) critical() bool {
	return e == EndpointJobs || e == EndpointDashboardStats
}

// KnownEndpoints returns all endpoints bound by [DefaultRoutes], in a
// stable order. Useful for config validation.
func KnownEndpoints() []Endpoint {
	return []Endpoint{
		EndpointJobs,
		EndpointArchivedJobs,
		EndpointDashboardStats,
		EndpointDetailedCosts,
		EndpointJobStats,
		EndpointArchiveEligibility,
		EndpointRecentPosts,
	}
}

// FetchFunc fetches the current payload for one endpoint.
//
// The returned value is broadcast as-is to every subscriber of the
// endpoint. A returned error is fanned out to subscriber error
// callbacks and slows future polling of the endpoint; fetch functions
// that prefer to keep polling smooth can downgrade selected failures to
// a default payload instead (see [DefaultRoutes]).
type FetchFunc func(ctx context.Context) (any, error)

// Routes maps endpoints to their fetch functions.
//
// The table is validated when the [Service] is constructed, so a
// misconfigured endpoint fails fast instead of surfacing as an unknown
// endpoint error at tick time.
type Routes map[Endpoint]FetchFunc

// validate checks that the table is usable: non-empty, no empty
// endpoint names, no nil fetch functions.
func (r Routes) validate() error {
	if len(r) == 0 {
		return fmt.Errorf("at least one route is required")
	}
	for endpoint, fetch := range r {
		if endpoint == "" {
			return fmt.Errorf("route with empty endpoint name")
		}
		if fetch == nil {
			return fmt.Errorf("route %q has a nil fetch function", endpoint)
		}
	}
	return nil
}
