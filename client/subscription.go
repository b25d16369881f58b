package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mvishiu11/WIND/internal/wire"
)

// Subscription is the caller-facing handle returned by Subscribe, per
// spec.md §4.4 step 6: Next (blocking receive) and Cancel.
type Subscription struct {
	registryAddr string
	service      string
	mode         wire.SubscriptionMode
	qos          wire.QosParams

	connMu  sync.Mutex
	conn    net.Conn
	connMgr *ConnManager

	subscriptionID uuid.UUID
	delivery       chan wire.Value
	errs           chan error
	cancel         chan struct{}
	bestEffort     bool
}

// Subscribe discovers service, opens a connection to its address, performs
// the Subscribe/SubscribeAck handshake, and spawns a receive loop —
// spec.md §4.4 "Subscribe(service, mode, qos)". If the underlying
// connection is later lost, the receive loop re-discovers and re-subscribes
// through a ConnManager rather than surfacing the drop to the caller, per
// spec.md §9's guidance to re-discover-and-resubscribe across a publisher
// restart.
func Subscribe(registryAddr, service string, mode wire.SubscriptionMode, qos wire.QosParams) (*Subscription, error) {
	info, err := NewRegistryConn(registryAddr).Lookup(service)
	if err != nil {
		return nil, fmt.Errorf("client: discover %s: %w", service, err)
	}

	connMgr := NewConnManager(info.Address)
	conn, err := connMgr.Get()
	if err != nil {
		return nil, fmt.Errorf("client: dial %s at %s: %w", service, info.Address, err)
	}

	ack, err := subscribeHandshake(conn, service, mode, qos, info.SchemaID)
	if err != nil {
		conn.Close()
		return nil, err
	}

	sub := &Subscription{
		registryAddr:   registryAddr,
		service:        service,
		mode:           mode,
		qos:            qos,
		conn:           conn,
		connMgr:        connMgr,
		subscriptionID: ack.SubscriptionID,
		delivery:       make(chan wire.Value, maxInt(int(qos.MaxQueueSize), 1)),
		errs:           make(chan error, 1),
		cancel:         make(chan struct{}),
		bestEffort:     qos.Reliability == wire.ReliabilityBestEffort,
	}

	if ack.HasValue {
		sub.deliver(ack.CurrentValue)
	}

	go sub.receiveLoop()
	return sub, nil
}

// subscribeHandshake sends Subscribe on conn and reads back a successful
// SubscribeAck, used both for the initial dial and for every reconnect
// attempt.
func subscribeHandshake(conn net.Conn, service string, mode wire.SubscriptionMode, qos wire.QosParams, schemaID string) (wire.SubscribeAck, error) {
	req := wire.Subscribe{Service: service, Mode: mode, Qos: qos, SchemaID: schemaID}
	if err := wire.WriteMessage(conn, wire.NewMessage(req)); err != nil {
		return wire.SubscribeAck{}, fmt.Errorf("client: send Subscribe: %w", err)
	}

	msg, err := wire.ReadMessage(conn)
	if err != nil {
		return wire.SubscribeAck{}, fmt.Errorf("client: read SubscribeAck: %w", err)
	}
	ack, ok := msg.Payload.(wire.SubscribeAck)
	if !ok {
		return wire.SubscribeAck{}, fmt.Errorf("client: expected SubscribeAck, got %T", msg.Payload)
	}
	if !ack.Success {
		return wire.SubscribeAck{}, fmt.Errorf("client: subscribe refused: %s", ack.Error)
	}
	return ack, nil
}

func (s *Subscription) currentConn() net.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// receiveLoop reads frames and dispatches Publish values to the delivery
// channel, per spec.md §4.4 step 5. A connection-level read failure
// triggers reconnect instead of ending the subscription; an explicit Error
// payload from the server ends it immediately, since that reports a
// request-level problem reconnecting would not fix.
func (s *Subscription) receiveLoop() {
	defer close(s.delivery)
	for {
		select {
		case <-s.cancel:
			return
		default:
		}

		conn := s.currentConn()
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			if s.reconnect() {
				continue
			}
			select {
			case s.errs <- err:
			default:
			}
			return
		}

		switch p := msg.Payload.(type) {
		case wire.Publish:
			s.deliver(p.Value)
		case wire.Error:
			select {
			case s.errs <- fmt.Errorf("client: server error: %s", p.Message):
			default:
			}
			return
		}
	}
}

// reconnect re-discovers service's address and re-subscribes, retrying
// with s.connMgr's backoff until it succeeds, the connection manager gives
// up after its attempt cap, or Cancel is called. Reports whether a new
// connection is now in place.
func (s *Subscription) reconnect() bool {
	s.connMu.Lock()
	s.connMgr.MarkFailed()
	s.connMu.Unlock()

	for {
		select {
		case <-s.cancel:
			return false
		default:
		}

		info, err := NewRegistryConn(s.registryAddr).Lookup(s.service)
		if err != nil {
			time.Sleep(s.connMgr.Backoff())
			continue
		}

		s.connMu.Lock()
		if s.connMgr.addr != info.Address {
			s.connMgr = NewConnManager(info.Address)
		}
		mgr := s.connMgr
		s.connMu.Unlock()

		defaultMetrics.subReconnects.Inc()
		conn, err := mgr.Get()
		if err != nil {
			mgr.mu.Lock()
			exhausted := mgr.state == stateFailed
			mgr.mu.Unlock()
			if exhausted {
				// ConnManager has exhausted its reconnect attempts for this
				// address; give up rather than retry forever.
				return false
			}
			time.Sleep(mgr.Backoff())
			continue
		}

		ack, err := subscribeHandshake(conn, s.service, s.mode, s.qos, info.SchemaID)
		if err != nil {
			conn.Close()
			mgr.MarkFailed()
			time.Sleep(mgr.Backoff())
			continue
		}

		s.connMu.Lock()
		s.conn = conn
		s.connMu.Unlock()
		s.subscriptionID = ack.SubscriptionID
		if ack.HasValue {
			s.deliver(ack.CurrentValue)
		}
		return true
	}
}

// deliver pushes value onto the delivery channel, dropping the oldest
// pending value on overflow under BestEffort (spec.md §4.4 "delivery
// channel"). A Reliable subscription blocks instead, matching the
// publisher-side Reliable policy.
func (s *Subscription) deliver(value wire.Value) {
	if !s.bestEffort {
		s.delivery <- value
		return
	}
	select {
	case s.delivery <- value:
	default:
		select {
		case <-s.delivery:
		default:
		}
		select {
		case s.delivery <- value:
		default:
		}
	}
}

// Next blocks for the next delivered value, or returns an error if the
// subscription has ended (server error, receive failure, or ctx done).
// A closed delivery channel with no prior error means end-of-stream.
func (s *Subscription) Next(ctx context.Context) (*wire.Value, error) {
	select {
	case v, ok := <-s.delivery:
		if !ok {
			select {
			case err := <-s.errs:
				return nil, err
			default:
				return nil, nil
			}
		}
		return &v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel tears down the subscription's connection and receive loop.
func (s *Subscription) Cancel() {
	select {
	case <-s.cancel:
	default:
		close(s.cancel)
	}
	conn := s.currentConn()
	_ = wire.WriteMessage(conn, wire.NewMessage(wire.Unsubscribe{SubscriptionID: s.subscriptionID}))
	conn.Close()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
