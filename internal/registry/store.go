package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mvishiu11/WIND/internal/glob"
	"github.com/mvishiu11/WIND/internal/wire"
)

// Store holds the registry's live service catalog behind an explicit
// RWMutex-guarded map, grounded on the teacher's preference for an explicit
// map-plus-mutex over sync.Map whenever iteration under lock matters (the
// ConnectionPool shape in the teacher's connection-pool code) — Discover and
// the cleanup sweep both need to range the whole map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*ServiceEntry

	totalRegistrations atomic.Int64
	totalLookups       atomic.Int64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*ServiceEntry)}
}

// Register inserts or replaces the entry for info.Name (spec.md §4.2
// Register / Renew-via-repeated-Register, per the Open Question resolution
// recorded in DESIGN.md: a Register of an existing (name, address) extends
// the lease rather than failing; a different address replaces the entry).
// Returns the resulting entry; it does not report whether an existing
// entry was replaced.
func (s *Store) Register(info wire.ServiceInfo, now time.Time) *ServiceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRegistrations.Add(1)

	if existing, ok := s.entries[info.Name]; ok && existing.Info.Address == info.Address {
		existing.Info = info
		existing.renew(now, info.TTLMillis)
		return existing
	}

	entry := newEntry(info, now)
	s.entries[info.Name] = entry
	return entry
}

// Renew extends an existing entry's lease iff it exists and its address
// matches, per spec.md §4.2 Renew.
func (s *Store) Renew(name, address string, ttlMillis uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[name]
	if !ok {
		return ErrServiceNotFound
	}
	if entry.Info.Address != address {
		return ErrAddressMismatch
	}
	entry.renew(now, ttlMillis)
	return nil
}

// Lookup returns the live ServiceInfo for name, or ErrServiceNotFound if
// absent or expired.
func (s *Store) Lookup(name string, now time.Time) (wire.ServiceInfo, error) {
	s.totalLookups.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok || !entry.Live(now) {
		return wire.ServiceInfo{}, ErrServiceNotFound
	}
	return entry.Info, nil
}

// Discover returns every live entry whose name matches pattern.
func (s *Store) Discover(pattern glob.Pattern, now time.Time) []wire.ServiceInfo {
	s.totalLookups.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []wire.ServiceInfo
	for name, entry := range s.entries {
		if entry.Live(now) && pattern.Match(name) {
			out = append(out, entry.Info)
		}
	}
	return out
}

// reapExpired removes every entry with ExpiresAt before now and returns the
// count removed, for the cleanup task (spec.md §4.2 "Cleanup task").
func (s *Store) reapExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for name, entry := range s.entries {
		if !entry.Live(now) {
			delete(s.entries, name)
			removed++
		}
	}
	return removed
}

// ActiveCount returns the number of currently live entries.
func (s *Store) ActiveCount(now time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.entries {
		if entry.Live(now) {
			count++
		}
	}
	return count
}

// Stats snapshots the store's monotonic counters.
type Stats struct {
	TotalRegistrations int64
	TotalLookups       int64
	ActiveServices     int
}

func (s *Store) Snapshot(now time.Time) Stats {
	return Stats{
		TotalRegistrations: s.totalRegistrations.Load(),
		TotalLookups:       s.totalLookups.Load(),
		ActiveServices:     s.ActiveCount(now),
	}
}
