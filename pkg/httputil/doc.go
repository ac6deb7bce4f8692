// Package httputil provides shared HTTP helpers for the dbconvert pipeline.
//
// The package contains the bounded retry loop used by all enrichment API
// clients. Only errors wrapped in [RetryableError] are retried; anything else
// (a 404 for an unregistered DOI, a JSON decode failure) returns immediately.
//
// The retry policy is deliberately flat: a fixed delay between attempts, no
// backoff. The scholarly APIs the pipeline talks to rate-limit on burst
// traffic, and a flat delay spaced over a bounded attempt budget is enough
// for a sequential, run-to-completion conversion.
package httputil
