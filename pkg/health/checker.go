// Package health exposes liveness and readiness probes for services that
// ship access records. Readiness aggregates the registered checkers, which
// are typically the request-log pipeline and its networked sink.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterChecker("request_log", mw)
//	h.RegisterChecker("sink", redisSink)
//
//	mux.Handle("/health/live", h.LivenessHandler())
//	mux.Handle("/health/ready", h.ReadinessHandler())
package health

import (
	"context"
)

// Checker reports the health of one component. Implementations must honour
// the context deadline.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}
