package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mvishiu11/WIND/internal/wire"
)

// fakeRegistryAndPublisher stands up a registry stub that answers
// DiscoverServices with one service, and a publisher stub at that address
// that acks a Subscribe and then streams one Publish.
func fakeRegistryAndPublisher(t *testing.T, serviceType wire.ServiceType) (registryAddr string) {
	t.Helper()

	pubLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("publisher listen: %v", err)
	}
	go func() {
		conn, err := pubLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		msg, err := wire.ReadMessage(conn)
		if err != nil {
			return
		}
		switch p := msg.Payload.(type) {
		case wire.Subscribe:
			_ = wire.WriteMessage(conn, wire.NewMessage(wire.SubscribeAck{SubscriptionID: [16]byte{1}, Success: true}))
			_ = wire.WriteMessage(conn, wire.NewMessage(wire.Publish{Service: "TEST/SERVICE", Sequence: 1, Value: wire.NewString("Hello WIND!")}))
			time.Sleep(time.Second)
		case wire.RpcCall:
			resp := wire.NewMessage(wire.RpcResponse{CallID: msg.ID, Ok: true, Result: wire.NewF64(15.0)})
			resp.ID = msg.ID
			_ = wire.WriteMessage(conn, resp)
		default:
			_ = p
		}
	}()

	regLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("registry listen: %v", err)
	}
	go func() {
		for {
			conn, err := regLn.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				msg, err := wire.ReadMessage(c)
				if err != nil {
					return
				}
				if _, ok := msg.Payload.(wire.DiscoverServices); ok {
					services := []wire.ServiceInfo{{
						Name: "TEST/SERVICE", Address: pubLn.Addr().String(),
						ServiceType: serviceType, TTLMillis: 60000,
					}}
					_ = wire.WriteMessage(c, wire.NewMessage(wire.ServicesDiscovered{Services: services}))
				}
			}(conn)
		}
	}()

	return regLn.Addr().String()
}

func TestSubscribeReceivesPublishedValue(t *testing.T) {
	registryAddr := fakeRegistryAndPublisher(t, wire.ServiceTypePublisher)

	sub, err := Subscribe(registryAddr, "TEST/SERVICE", wire.OnChange(), wire.DefaultQos())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	val, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if val == nil || !val.Equal(wire.NewString("Hello WIND!")) {
		t.Fatalf("expected Hello WIND!, got %#v", val)
	}
}

func TestCallReturnsResult(t *testing.T) {
	registryAddr := fakeRegistryAndPublisher(t, wire.ServiceTypeRpcServer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := Call(ctx, registryAddr, "TEST/SERVICE", "add", wire.NewMap(map[string]wire.Value{
		"a": wire.NewF64(10.0),
		"b": wire.NewF64(5.0),
	}), 2*time.Second)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !result.Equal(wire.NewF64(15.0)) {
		t.Fatalf("expected F64(15.0), got %#v", result)
	}
}

func TestDiscoverNotFound(t *testing.T) {
	registryAddr := fakeRegistryAndPublisher(t, wire.ServiceTypePublisher)
	reg := NewRegistryConn(registryAddr)
	if _, err := reg.Lookup("NO/SUCH/SERVICE"); err != ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}
