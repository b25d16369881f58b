package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mvishiu11/WIND/internal/glob"
	"github.com/mvishiu11/WIND/internal/wire"
)

// watch is one open Watch(pattern) stream (spec.md §4.2). Sink is buffered
// so a burst of matching Registers doesn't block the registering goroutine;
// a full or closed sink causes the watch to be dropped rather than block
// the registry, per spec.md §4.2 "Write failures on a watch sink: remove
// that watch."
type watch struct {
	id      uuid.UUID
	pattern glob.Pattern
	sink    chan wire.ServiceInfo
}

// WatchList is the registry's set of live Watch streams, guarded by its own
// RWMutex per spec.md §5 "Shared-resource policy" (kept separate from
// Store's map lock since a Register notifying watchers must not serialize
// against unrelated lookups).
type WatchList struct {
	mu      sync.RWMutex
	watches map[uuid.UUID]*watch

	activeWatches     atomic.Int64
	notificationsSent atomic.Int64
	notificationsDrop atomic.Int64
}

func NewWatchList() *WatchList {
	return &WatchList{watches: make(map[uuid.UUID]*watch)}
}

// Open registers a new watch and returns its id, receive channel, and a
// cancel function. The caller is responsible for draining or cancelling
// the channel; the returned cancel function is idempotent.
func (wl *WatchList) Open(pattern glob.Pattern, sinkSize int) (uuid.UUID, <-chan wire.ServiceInfo, func()) {
	w := &watch{
		id:      uuid.New(),
		pattern: pattern,
		sink:    make(chan wire.ServiceInfo, sinkSize),
	}

	wl.mu.Lock()
	wl.watches[w.id] = w
	wl.mu.Unlock()
	wl.activeWatches.Add(1)

	var once sync.Once
	cancel := func() {
		once.Do(func() { wl.remove(w.id) })
	}
	return w.id, w.sink, cancel
}

func (wl *WatchList) remove(id uuid.UUID) {
	wl.mu.Lock()
	w, ok := wl.watches[id]
	if ok {
		delete(wl.watches, id)
	}
	wl.mu.Unlock()
	if ok {
		close(w.sink)
		wl.activeWatches.Add(-1)
	}
}

// Notify pushes info to every watch whose pattern matches name, non-
// blockingly; a watch whose sink is full or whose send would block is
// dropped entirely rather than stalling the registration path.
func (wl *WatchList) Notify(name string, info wire.ServiceInfo) {
	wl.mu.RLock()
	var stale []uuid.UUID
	for id, w := range wl.watches {
		if !w.pattern.Match(name) {
			continue
		}
		select {
		case w.sink <- info:
			wl.notificationsSent.Add(1)
		default:
			stale = append(stale, id)
			wl.notificationsDrop.Add(1)
		}
	}
	wl.mu.RUnlock()

	for _, id := range stale {
		wl.remove(id)
	}
}

// WatchStats snapshots the watch list's monotonic counters.
type WatchStats struct {
	ActiveWatches          int64
	NotificationsSent      int64
	NotificationsDropped   int64
}

func (wl *WatchList) Snapshot() WatchStats {
	return WatchStats{
		ActiveWatches:        wl.activeWatches.Load(),
		NotificationsSent:    wl.notificationsSent.Load(),
		NotificationsDropped: wl.notificationsDrop.Load(),
	}
}
