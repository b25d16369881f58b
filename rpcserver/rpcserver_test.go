package rpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mvishiu11/WIND/internal/wire"
)

func fakeRegistry(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fake registry listen: %v", err)
	}
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
	return ln.Addr().String()
}

func startTestServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()
	regAddr := fakeRegistry(t)
	srv := New(Config{
		ServiceName:     "CALCULATOR",
		BindAddress:     "127.0.0.1:0",
		RegistryAddress: regAddr,
		TTL:             60 * time.Second,
	}, zerolog.Nop())

	srv.Handle("add", func(params wire.Value) (wire.Value, error) {
		a := params.Map["a"].F64
		b := params.Map["b"].F64
		return wire.NewF64(a + b), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() {
			for srv.listener == nil {
				time.Sleep(time.Millisecond)
			}
			close(ready)
		}()
		_ = srv.Run(ctx)
	}()
	<-ready
	return srv, cancel
}

func call(t *testing.T, addr, method string, params wire.Value) wire.RpcResponse {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := wire.NewMessage(wire.RpcCall{Service: "CALCULATOR", Method: method, Params: params})
	if err := wire.WriteMessage(conn, req); err != nil {
		t.Fatalf("send RpcCall: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := wire.ReadMessage(conn)
	if err != nil {
		t.Fatalf("read RpcResponse: %v", err)
	}
	rpcResp, ok := resp.Payload.(wire.RpcResponse)
	if !ok {
		t.Fatalf("expected RpcResponse, got %#v", resp.Payload)
	}
	if rpcResp.CallID != req.ID {
		t.Fatalf("call_id mismatch: got %s, want %s", rpcResp.CallID, req.ID)
	}
	return rpcResp
}

func TestAddSucceeds(t *testing.T) {
	srv, cancel := startTestServer(t)
	defer cancel()

	resp := call(t, srv.Addr().String(), "add", wire.NewMap(map[string]wire.Value{
		"a": wire.NewF64(10.0),
		"b": wire.NewF64(5.0),
	}))
	if !resp.Ok || !resp.Result.Equal(wire.NewF64(15.0)) {
		t.Fatalf("expected Ok F64(15.0), got %#v", resp)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv, cancel := startTestServer(t)
	defer cancel()

	resp := call(t, srv.Addr().String(), "sub", wire.NewMap(nil))
	if resp.Ok || resp.ErrorMsg != "Method not found: sub" {
		t.Fatalf("expected Method not found error, got %#v", resp)
	}
}
