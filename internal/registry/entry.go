package registry

import (
	"time"

	"github.com/mvishiu11/WIND/internal/wire"
)

// ServiceEntry is the registry's bookkeeping for one registered service,
// grounded on spec.md §3's ServiceEntry definition.
type ServiceEntry struct {
	Info          wire.ServiceInfo
	RegisteredAt  time.Time
	LastHeartbeat time.Time
	ExpiresAt     time.Time
}

// newEntry builds an entry with expires_at = last_heartbeat + ttl, per
// spec.md §3's invariant.
func newEntry(info wire.ServiceInfo, now time.Time) *ServiceEntry {
	ttl := time.Duration(info.TTLMillis) * time.Millisecond
	return &ServiceEntry{
		Info:          info,
		RegisteredAt:  now,
		LastHeartbeat: now,
		ExpiresAt:     now.Add(ttl),
	}
}

// Live reports whether the entry has not yet expired as of now.
func (e *ServiceEntry) Live(now time.Time) bool {
	return !now.After(e.ExpiresAt)
}

// renew extends the lease from now, keeping the original ttl unless a new
// one is supplied.
func (e *ServiceEntry) renew(now time.Time, ttlMillis uint64) {
	if ttlMillis > 0 {
		e.Info.TTLMillis = ttlMillis
	}
	ttl := time.Duration(e.Info.TTLMillis) * time.Millisecond
	e.LastHeartbeat = now
	e.ExpiresAt = now.Add(ttl)
}
