package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// runCleanup ticks at period, reaping expired entries from store. Watch
// removal on connection loss is handled by the per-connection handler's
// deferred cancel (see server.go) rather than here, since each watch sink
// in this implementation is owned by exactly one subscriber connection —
// there is no separate "subscriber count" to fall to zero independent of
// that connection closing. Removal of an expired entry never fires a watch
// notification, per spec.md §4.2 "Cleanup task".
func runCleanup(ctx context.Context, store *Store, period time.Duration, logger zerolog.Logger, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := store.reapExpired(time.Now())
				if removed > 0 {
					logger.Debug().Int("removed", removed).Msg("reaped expired service entries")
				}
			}
		}
	}()
}
