package trendwatch

import (
	"context"

	"github.com/trendscribe/trendwatch/api"
)

// Backend endpoint paths for the default routes. The polling service
// itself never sees these; they live entirely inside the fetchers.
const (
	jobsPath               = "/api/v1/jobs"
	archivedJobsPath       = "/api/v1/jobs/archived"
	jobStatsPath           = "/api/v1/jobs/stats"
	archiveEligibilityPath = "/api/v1/jobs/archive-eligibility"
	dashboardStatsPath     = "/api/v1/dashboard/stats"
	detailedCostsPath      = "/api/v1/costs/detailed"
	recentPostsPath        = "/api/v1/posts/recent"
)

// DefaultRoutes binds every known endpoint to a typed fetch against the
// given client.
//
// Each fetcher applies its own graceful-degradation policy so that one
// consumer's insufficient permissions does not break polling for others
// sharing the endpoint:
//
//   - Permission errors (403) are downgraded to a benign default
//     payload on every endpoint: an empty list, zero-filled stats, or
//     [api.EmptyCostReport] for cost analytics.
//   - Transient network errors are additionally downgraded on the job
//     list, archived job list, and recent posts endpoints, preserving
//     polling continuity through backend blips.
//   - Everything else propagates, driving subscriber error callbacks
//     and backoff.
func DefaultRoutes(client *api.Client) Routes {
	return Routes{
		EndpointJobs: func(ctx context.Context) (any, error) {
			list, err := api.GetJSON[api.JobList](ctx, client, jobsPath, api.CacheOptions{})
			if err != nil {
				if api.IsPermission(err) || api.IsTransient(err) {
					return api.EmptyJobList(), nil
				}
				return nil, err
			}
			return list, nil
		},

		EndpointArchivedJobs: func(ctx context.Context) (any, error) {
			list, err := api.GetJSON[api.JobList](ctx, client, archivedJobsPath, api.CacheOptions{})
			if err != nil {
				if api.IsPermission(err) || api.IsTransient(err) {
					return api.EmptyJobList(), nil
				}
				return nil, err
			}
			return list, nil
		},

		EndpointDashboardStats: func(ctx context.Context) (any, error) {
			stats, err := api.GetJSON[api.DashboardStats](ctx, client, dashboardStatsPath, api.CacheOptions{})
			if err != nil {
				if api.IsPermission(err) {
					return api.DashboardStats{}, nil
				}
				return nil, err
			}
			return stats, nil
		},

		EndpointDetailedCosts: func(ctx context.Context) (any, error) {
			report, err := api.GetJSON[api.CostReport](ctx, client, detailedCostsPath, api.CacheOptions{})
			if err != nil {
				// non-admin users poll costs constantly; degrade rather
				// than error every tick
				if api.IsPermission(err) {
					return api.EmptyCostReport(), nil
				}
				return nil, err
			}
			return report, nil
		},

		EndpointJobStats: func(ctx context.Context) (any, error) {
			stats, err := api.GetJSON[api.JobStats](ctx, client, jobStatsPath, api.CacheOptions{})
			if err != nil {
				if api.IsPermission(err) {
					return api.JobStats{}, nil
				}
				return nil, err
			}
			return stats, nil
		},

		EndpointArchiveEligibility: func(ctx context.Context) (any, error) {
			eligibility, err := api.GetJSON[api.ArchiveEligibility](ctx, client, archiveEligibilityPath, api.CacheOptions{})
			if err != nil {
				if api.IsPermission(err) {
					return api.ArchiveEligibility{}, nil
				}
				return nil, err
			}
			return eligibility, nil
		},

		EndpointRecentPosts: func(ctx context.Context) (any, error) {
			posts, err := api.GetJSON[api.PostList](ctx, client, recentPostsPath, api.CacheOptions{})
			if err != nil {
				if api.IsPermission(err) || api.IsTransient(err) {
					return api.EmptyPostList(), nil
				}
				return nil, err
			}
			return posts, nil
		},
	}
}
