package publisher

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mvishiu11/WIND/internal/wire"
)

// fakeRegistry accepts connections and acks every RegisterService with
// success=true, standing in for a real registry during publisher tests.
func fakeRegistry(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fake registry listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				msg, err := wire.ReadMessage(c)
				if err != nil {
					return
				}
				reg, ok := msg.Payload.(wire.RegisterService)
				if !ok {
					return
				}
				_ = wire.WriteMessage(c, wire.NewMessage(wire.ServiceRegistered{Service: reg.Service.Name, Success: true}))
			}(conn)
		}
	}()
	return ln.Addr().String(), func() { close(done); ln.Close() }
}

func dialAndSubscribe(t *testing.T, addr string, mode wire.SubscriptionMode, qos wire.QosParams) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial publisher: %v", err)
	}
	if err := wire.WriteMessage(conn, wire.NewMessage(wire.Subscribe{Service: "TEST/SERVICE", Mode: mode, Qos: qos})); err != nil {
		t.Fatalf("send Subscribe: %v", err)
	}
	msg, err := wire.ReadMessage(conn)
	if err != nil {
		t.Fatalf("read SubscribeAck: %v", err)
	}
	ack, ok := msg.Payload.(wire.SubscribeAck)
	if !ok || !ack.Success {
		t.Fatalf("expected successful SubscribeAck, got %#v", msg.Payload)
	}
	return conn
}

func startTestPublisher(t *testing.T, name string) (*Publisher, context.CancelFunc) {
	t.Helper()
	regAddr, _ := fakeRegistry(t)
	pub := New(Config{
		ServiceName:     name,
		BindAddress:     "127.0.0.1:0",
		RegistryAddress: regAddr,
		TTL:             60 * time.Second,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() {
			for pub.listener == nil {
				time.Sleep(time.Millisecond)
			}
			close(ready)
		}()
		_ = pub.Run(ctx)
	}()
	<-ready
	return pub, cancel
}

func TestOnceDeliveredExactlyOnce(t *testing.T) {
	pub, cancel := startTestPublisher(t, "TEST/SERVICE")
	defer cancel()

	conn := dialAndSubscribe(t, pub.Addr().String(), wire.Once(), wire.DefaultQos())
	defer conn.Close()

	pub.Publish(wire.NewI32(1))
	pub.Publish(wire.NewI32(2))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := wire.ReadMessage(conn)
	if err != nil {
		t.Fatalf("expected one Publish, got error: %v", err)
	}
	pub1, ok := msg.Payload.(wire.Publish)
	if !ok || !pub1.Value.Equal(wire.NewI32(1)) {
		t.Fatalf("expected first value delivered, got %#v", msg.Payload)
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, err := wire.ReadMessage(conn); err == nil {
		t.Fatal("expected no further delivery for a Once subscriber")
	}
}

func TestOnChangeSkipsRepeats(t *testing.T) {
	pub, cancel := startTestPublisher(t, "TEST/SERVICE")
	defer cancel()

	conn := dialAndSubscribe(t, pub.Addr().String(), wire.OnChange(), wire.DefaultQos())
	defer conn.Close()

	values := []wire.Value{wire.NewI32(1), wire.NewI32(1), wire.NewI32(2), wire.NewI32(2), wire.NewI32(3)}
	for _, v := range values {
		pub.Publish(v)
		time.Sleep(10 * time.Millisecond)
	}

	want := []int32{1, 2, 3}
	for _, w := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			t.Fatalf("expected value %d, got error: %v", w, err)
		}
		p, ok := msg.Payload.(wire.Publish)
		if !ok || !p.Value.Equal(wire.NewI32(w)) {
			t.Fatalf("expected %d, got %#v", w, msg.Payload)
		}
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, err := wire.ReadMessage(conn); err == nil {
		t.Fatal("expected no further delivery after the deduplicated sequence")
	}
}

func TestSequenceMonotonicity(t *testing.T) {
	pub, cancel := startTestPublisher(t, "TEST/SERVICE")
	defer cancel()

	conn := dialAndSubscribe(t, pub.Addr().String(), wire.OnChange(), wire.DefaultQos())
	defer conn.Close()

	for i := int32(0); i < 5; i++ {
		pub.Publish(wire.NewI32(i))
		time.Sleep(10 * time.Millisecond)
	}

	var lastSeq uint64
	for i := 0; i < 5; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		p := msg.Payload.(wire.Publish)
		if i > 0 && p.Sequence <= lastSeq {
			t.Fatalf("sequence not strictly increasing: %d after %d", p.Sequence, lastSeq)
		}
		lastSeq = p.Sequence
	}
}

func TestDurabilityReplaysCurrentValueAtAck(t *testing.T) {
	pub, cancel := startTestPublisher(t, "TEST/SERVICE")
	defer cancel()

	pub.Publish(wire.NewString("Hello WIND!"))
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("tcp", pub.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	qos := wire.DefaultQos()
	qos.Durability = true
	if err := wire.WriteMessage(conn, wire.NewMessage(wire.Subscribe{Service: "TEST/SERVICE", Mode: wire.OnChange(), Qos: qos})); err != nil {
		t.Fatalf("send Subscribe: %v", err)
	}
	msg, err := wire.ReadMessage(conn)
	if err != nil {
		t.Fatalf("read SubscribeAck: %v", err)
	}
	ack := msg.Payload.(wire.SubscribeAck)
	if !ack.Success || !ack.HasValue || !ack.CurrentValue.Equal(wire.NewString("Hello WIND!")) {
		t.Fatalf("expected durable replay of current value, got %#v", ack)
	}
}
