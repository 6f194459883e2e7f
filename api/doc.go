// Package api provides the HTTP client for the TrendScribe backend,
// including the response cache and request deduplication layer used by
// the polling service.
//
// The central type is [Client]. Every outbound request passes through
// [Client.Do], which owns two pieces of shared state:
//
//   - A TTL-based response cache keyed by method, endpoint, and body.
//     Read-only requests (GET without SkipCache) are served from the
//     cache while their entry is fresh, so repeated reads within the
//     TTL window cost no network round trip.
//   - An in-flight request group that collapses concurrent identical
//     read-only requests into a single network call. All callers
//     receive the result of that one call.
//
// Mutating requests bypass both mechanisms entirely and should evict
// stale reads via [Client.Invalidate] after they succeed; the built-in
// mutation helpers ([Client.CreateJob], [Client.CancelJob],
// [Client.DeleteJob]) do this automatically.
//
// Errors returned by the client are [*Error] values carrying a
// structural [Kind] so that callers classify failures without
// inspecting message text. Permission and transient errors are
// typically downgraded to safe defaults by the polling routes; see the
// trendwatch package.
package api
