package publisher

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// resubscribeLimiter bounds how often a single remote address may open a
// new subscriber connection, guarding against Subscribe/Unsubscribe churn
// from a misbehaving client — grounded on
// internal/shared/limits/connection_rate_limiter.go's per-identity token
// bucket, retargeted from per-IP HTTP connection admission (the teacher has
// no bare TCP listener to rate-limit at) to per-remote-address subscriber
// admission here.
type resubscribeLimiter struct {
	mu       sync.Mutex
	byAddr   map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newResubscribeLimiter(r rate.Limit, burst int) *resubscribeLimiter {
	return &resubscribeLimiter{byAddr: make(map[string]*rate.Limiter), r: r, burst: burst}
}

// Allow reports whether a new subscriber connection from addr may proceed.
func (l *resubscribeLimiter) Allow(addr net.Addr) bool {
	key := addr.String()
	if host, _, err := net.SplitHostPort(key); err == nil {
		key = host
	}

	l.mu.Lock()
	lim, ok := l.byAddr[key]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.byAddr[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
