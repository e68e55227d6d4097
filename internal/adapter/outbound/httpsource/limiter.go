package httpsource

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter hands out one token bucket per host so that a directory of
// URLs pointing at the same server does not hammer it.
type hostLimiter struct {
	mu      sync.Mutex
	perHost map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// newHostLimiter creates a limiter allowing requestsPerSecond per host.
// requestsPerSecond <= 0 disables limiting.
func newHostLimiter(requestsPerSecond float64, burst int) *hostLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		perHost: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *hostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	lim, ok := l.perHost[host]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.perHost[host] = lim
	}
	l.mu.Unlock()
	return lim.Wait(ctx)
}
