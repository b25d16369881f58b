package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mvishiu11/WIND/internal/wire"
)

// maxReliableRetries bounds how many times a Reliable subscriber's failed
// write is retried before the client is dropped, per spec.md §4.3
// "Backpressure and QoS".
const maxReliableRetries = 3

// runFanOut is the sole owner of broadcast's receive side, per spec.md
// §4.3 "Fan-out task". Grounded on the teacher's broadcast() in server.go:
// same per-client iterate-and-prune shape, generalized from a single
// best-effort write to the mode/QoS-aware shouldSend + reliability policy.
func (p *Publisher) runFanOut(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case value, ok := <-p.broadcast:
			if !ok {
				return
			}
			p.fanOutOnce(value)
		}
	}
}

// fanOutOnce writes value to every subscriber whose delivery mode says it
// should fire, one worker-pool task per subscriber so a single slow socket
// cannot hold up delivery to the rest.
func (p *Publisher) fanOutOnce(value wire.Value) {
	now := time.Now()
	seq := p.sequence.Load()

	p.clientsMu.RLock()
	snapshot := make([]*activeClient, 0, len(p.clients))
	for _, c := range p.clients {
		snapshot = append(snapshot, c)
	}
	p.clientsMu.RUnlock()

	var (
		mu       sync.Mutex
		toRemove []uuid.UUID
		wg       sync.WaitGroup
	)
	for _, c := range snapshot {
		if !c.sub.shouldSend(now, value) {
			continue
		}
		c := c
		msg := wire.NewMessage(wire.Publish{
			Service:  p.cfg.ServiceName,
			Sequence: seq,
			Value:    value,
			SchemaID: p.cfg.SchemaID,
		})

		write := func() {
			defer wg.Done()
			if p.writeToClient(c, msg) {
				c.sub.recordSent(now, value)
				c.writeFailures = 0
				p.metrics.fanoutWrites.Inc()
			} else {
				mu.Lock()
				toRemove = append(toRemove, c.id)
				mu.Unlock()
			}
		}

		wg.Add(1)
		if !p.pool.Submit(write) {
			wg.Done()
			mu.Lock()
			toRemove = append(toRemove, c.id)
			mu.Unlock()
			p.metrics.fanoutDropped.Inc()
		}
	}
	wg.Wait()

	if len(toRemove) > 0 {
		p.clientsMu.Lock()
		for _, id := range toRemove {
			if c, ok := p.clients[id]; ok {
				c.conn.Close()
				delete(p.clients, id)
			}
		}
		p.clientsMu.Unlock()
		p.metrics.activeSubscribers.Set(float64(len(p.clients)))
	}
}

// writeToClient applies the subscription's reliability policy: BestEffort
// drops the client after a single write failure; Reliable retries up to
// maxReliableRetries before giving up. Returns false if the client should
// be removed.
func (p *Publisher) writeToClient(c *activeClient, msg wire.Message) bool {
	attempts := 1
	if c.sub.qos.Reliability == wire.ReliabilityReliable {
		attempts = 1 + maxReliableRetries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		c.writeMu.Lock()
		err := wire.WriteMessage(c.conn, msg)
		c.writeMu.Unlock()
		if err == nil {
			return true
		}
		lastErr = err
	}
	if lastErr != nil {
		c.writeFailures++
		p.metrics.fanoutDropped.Inc()
	}
	return false
}
