// Package ratelimit provides per-client request budgets. The Redis backend
// shares counters between replicas; the in-process backend serves single
// instance deployments and tests.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the state of a key's budget after one request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter consumes one unit of the budget for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
