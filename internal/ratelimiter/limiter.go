package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Route names an outbound dependency that is rate limited on its own.
type Route string

const (
	RouteNotify  Route = "notify"
	RouteResolve Route = "resolve"
	RouteChat    Route = "chat"
	RouteSpeech  Route = "speech"
)

// RouteLimiters holds one token bucket per outbound route.
// Burst equals the rate so an idle route cannot save up more than one
// second's worth of calls.
type RouteLimiters struct {
	limiters map[Route]*rate.Limiter
}

// New creates a RouteLimiters from per-route requests-per-second values.
// A route with a non-positive rate is unlimited.
func New(perSec map[Route]int) *RouteLimiters {
	rl := &RouteLimiters{limiters: make(map[Route]*rate.Limiter, len(perSec))}
	for route, n := range perSec {
		if n <= 0 {
			rl.limiters[route] = rate.NewLimiter(rate.Inf, 0)
			continue
		}
		rl.limiters[route] = rate.NewLimiter(rate.Limit(n), n)
	}
	return rl
}

// Wait blocks until the route's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
// Unknown routes are not limited.
func (rl *RouteLimiters) Wait(ctx context.Context, route Route) error {
	l, ok := rl.limiters[route]
	if !ok {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", route, err)
	}
	return nil
}
