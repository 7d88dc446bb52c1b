package ports

import "context"

// RateLimiter throttles requests per client identifier over a fixed window.
// Implementations MUST make the read-check-increment of one identifier's
// counter atomic; the default is process-local, a Redis-backed variant can
// be swapped in for multi-process deployments without touching callers.
type RateLimiter interface {
	// Allow consumes one request unit for the identifier and reports
	// whether it is admitted. A rejected call does not increment.
	Allow(ctx context.Context, identifier string) (bool, error)
	// ResetSeconds returns the remaining seconds of the identifier's
	// current window, rounded up, or 0 when no window is active.
	ResetSeconds(ctx context.Context, identifier string) (int, error)
}
