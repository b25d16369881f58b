package publisher

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/mvishiu11/WIND/internal/wire"
)

// intake reads exactly one frame from a freshly accepted connection: it
// must be Subscribe. On success, the client is registered and an ack sent;
// on anything else, a failure ack is sent (if possible) and the connection
// dropped — spec.md §4.3 "Subscriber intake". After a successful handshake,
// intake blocks reading further frames (Unsubscribe, or EOF on disconnect)
// so the publisher notices the connection closing without a separate
// reader goroutine racing the fan-out writer.
func (p *Publisher) intake(ctx context.Context, conn net.Conn) {
	if !p.subLimiter.Allow(conn.RemoteAddr()) {
		_ = wire.WriteMessage(conn, wire.NewMessage(wire.SubscribeAck{Success: false, Error: "subscribe rate limit exceeded"}))
		conn.Close()
		return
	}

	msg, err := wire.ReadMessage(conn)
	if err != nil {
		conn.Close()
		return
	}

	sub, ok := msg.Payload.(wire.Subscribe)
	if !ok {
		_ = wire.WriteMessage(conn, wire.NewMessage(wire.SubscribeAck{Success: false, Error: "expected Subscribe"}))
		conn.Close()
		return
	}
	if sub.Service != p.cfg.ServiceName {
		_ = wire.WriteMessage(conn, wire.NewMessage(wire.SubscribeAck{Success: false, Error: "unknown service: " + sub.Service}))
		conn.Close()
		return
	}

	clientID := uuid.New()
	subID := uuid.New()
	client := &activeClient{
		id:   clientID,
		conn: conn,
		sub: &clientSubscription{
			mode:           sub.Mode,
			qos:            sub.Qos,
			subscriptionID: subID,
		},
	}

	ack := wire.SubscribeAck{SubscriptionID: subID, Success: true}
	if sub.Qos.Durability {
		if current, has := p.CurrentValue(); has {
			ack.HasValue = true
			ack.CurrentValue = current
		}
	}

	if ack.HasValue {
		client.sub.recordSent(time.Now(), ack.CurrentValue)
	}

	// Register the client before the ack goes out, holding writeMu so any
	// fan-out write queued in between lands after the ack on the wire.
	client.writeMu.Lock()
	p.clientsMu.Lock()
	p.clients[clientID] = client
	count := len(p.clients)
	p.clientsMu.Unlock()
	p.metrics.activeSubscribers.Set(float64(count))

	err = wire.WriteMessage(conn, wire.NewMessage(ack))
	client.writeMu.Unlock()
	if err != nil {
		p.removeClient(clientID)
		return
	}

	p.drainUntilClosed(ctx, client)
}

// drainUntilClosed reads (and mostly discards) frames from the subscriber
// until the connection errors out or ctx is cancelled, at which point the
// client is removed. This is how the publisher detects a dropped
// subscriber independent of the next fan-out write failure, per spec.md §5
// "Connection drop ⇒ task exit ⇒ client entry removal".
func (p *Publisher) drainUntilClosed(ctx context.Context, client *activeClient) {
	defer p.removeClient(client.id)
	for {
		msg, err := wire.ReadMessage(client.conn)
		if err != nil {
			return
		}
		if _, ok := msg.Payload.(wire.Unsubscribe); ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *Publisher) removeClient(id uuid.UUID) {
	p.clientsMu.Lock()
	c, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
	}
	count := len(p.clients)
	p.clientsMu.Unlock()
	if ok {
		c.conn.Close()
		p.metrics.activeSubscribers.Set(float64(count))
	}
}
