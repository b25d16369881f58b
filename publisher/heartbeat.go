package publisher

import (
	"context"
	"time"

	"github.com/mvishiu11/WIND/internal/regclient"
	"github.com/mvishiu11/WIND/internal/wire"
)

func (p *Publisher) serviceInfo() wire.ServiceInfo {
	return wire.ServiceInfo{
		Name:        p.cfg.ServiceName,
		Address:     p.listener.Addr().String(),
		ServiceType: wire.ServiceTypePublisher,
		SchemaID:    p.cfg.SchemaID,
		TTLMillis:   uint64(p.cfg.TTL.Milliseconds()),
		Tags:        p.cfg.Tags,
	}
}

func (p *Publisher) registerOnce(ctx context.Context) error {
	return regclient.Register(p.cfg.RegistryAddress, p.serviceInfo())
}

// runHeartbeat re-registers at ttl/2, per spec.md §4.3 "Lifecycle" step 3
// and spec.md §6 "renewal interval should be TTL/2 or less". A failed
// heartbeat is logged and retried on the next tick rather than torn down,
// mirroring the teacher's reconnect-on-failure texture in
// internal/shared/connection.go: a transient registry outage should not
// kill an otherwise-healthy publisher.
func (p *Publisher) runHeartbeat(ctx context.Context) {
	interval := p.cfg.TTL / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.registerOnce(ctx); err != nil {
				p.logger.Warn().Err(err).Msg("heartbeat re-registration failed")
				p.metrics.heartbeatFailures.Inc()
			}
		}
	}
}
