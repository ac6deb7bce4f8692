// Package integrations provides shared HTTP client functionality for the
// external lookup services the conversion pipeline talks to.
//
// Each service client (crossref, arxiv, opencitations) embeds
// [Client], which layers three concerns over net/http:
//
//   - Response caching: raw decoded results are stored in a [cache.Cache]
//     scoped to the service, so re-runs of the conversion replay from disk.
//   - Bounded retry: transient failures (timeouts, 5xx) are retried with the
//     flat-delay policy from [httputil.Retry]; each failed attempt is
//     reported through the client's failure hook for progress logging.
//   - Status mapping: 404 responses become [ErrNotFound] and are not
//     retried, since an unregistered DOI will not appear by asking again.
//     5xx and transport errors become retryable [ErrNetwork]; timeouts and
//     429 responses additionally carry the TIMEOUT and RATE_LIMITED codes.
//
// Clients are used strictly sequentially by the pipeline; no method mutates
// shared state after construction.
package integrations
