// Package rate enforces per-route request budgets for the HTTP layer.
//
// # Window semantics
//
// [Redis] keeps fixed-window counters: INCR plus EXPIRE on the first hit.
// Keys are <prefix>:rl:<policy>:<client>. [Local] is an in-process token
// bucket for single-node deployments and tests.
//
// Both fail open: a limiter that cannot reach its backend returns the
// error and the caller decides whether to serve the request.
package rate
