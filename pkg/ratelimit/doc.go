// Package ratelimit gates request volume per client key.
//
// FixedWindow counts calls in fixed windows that restart on the first call
// after the previous window ran out. Rejected calls do not consume budget,
// and up to twice the budget can pass across a window edge.
//
// TokenBucket is a smoother alternative built on golang.org/x/time/rate.
// Both expose Check and Cleanup; Cleanup is meant to run from StartJanitor.
package ratelimit
