// Package trendwatch provides the client-side polling service for the
// TrendScribe backend: shared-subscription multiplexing, adaptive
// cadence, and visibility-aware scheduling on top of a caching,
// deduplicating API client.
//
// A host application (dashboard, TUI, bot) subscribes to logical
// endpoints and receives broadcast callbacks; the service owns all
// scheduling. No matter how many consumers subscribe to an endpoint,
// it is polled by exactly one loop, and each tick's single fetch
// result is fanned out to every active subscriber.
//
// # Quick Start
//
//	client, _ := api.NewClient("https://backend.trendscribe.io",
//	    api.WithTokenStore(api.NewStaticTokenStore(token)),
//	)
//	defer client.Close()
//
//	svc, _ := trendwatch.New(trendwatch.DefaultRoutes(client))
//	defer svc.Close()
//
//	cancel, _ := trendwatch.SubscribeTyped(svc, "job-table", trendwatch.EndpointJobs,
//	    func(list api.JobList) {
//	        render(list)
//	    },
//	    trendwatch.WithInterval(10*time.Second),
//	)
//	defer cancel()
//
// # Adaptive Cadence
//
// Each endpoint's effective interval starts from the minimum interval
// its subscribers requested and composes multiplicative adjustments:
// 5x faster for job-related endpoints shortly after a manual
// [Service.Refresh], 6x slower while the host reports itself hidden
// (see [Visibility]), and exponentially slower (capped at 8x) while an
// endpoint keeps failing. The result never drops below a floor,
// 5 seconds by default.
//
// # Architecture
//
// The module is layered bottom-up:
//
//   - api: HTTP client with bearer auth, a TTL response cache, and
//     in-flight deduplication of identical requests
//   - trendwatch (this package): endpoint routing with per-endpoint
//     graceful degradation, and the polling multiplexer
//   - config: YAML configuration for running the watcher standalone
//   - cmd/trendwatch: the standalone CLI
//
// All state is held by injected instances; the package has no global
// mutable state, so tests and multi-tenant hosts can run isolated
// services side by side.
package trendwatch
