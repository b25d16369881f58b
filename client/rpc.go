package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mvishiu11/WIND/internal/wire"
)

// Call issues a one-shot RPC, per spec.md §4.4 "RPC call": discover,
// dial a fresh connection, send RpcCall with call_id = message.id, await
// RpcResponse matched by call_id, close the connection. On timeout,
// returns ErrTimeout.
func Call(ctx context.Context, registryAddr, service, method string, params wire.Value, timeout time.Duration) (wire.Value, error) {
	reg := NewRegistryConn(registryAddr)
	info, err := reg.Lookup(service)
	if err != nil {
		return wire.Value{}, fmt.Errorf("client: discover %s: %w", service, err)
	}
	if info.ServiceType != wire.ServiceTypeRpcServer && info.ServiceType != wire.ServiceTypeBoth {
		return wire.Value{}, fmt.Errorf("client: %s is not an RPC server", service)
	}

	deadline := time.Now().Add(timeout)
	conn, err := net.DialTimeout("tcp", info.Address, timeout)
	if err != nil {
		return wire.Value{}, fmt.Errorf("client: dial %s at %s: %w", service, info.Address, err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	defaultMetrics.rpcCallsTotal.Inc()

	req := wire.NewMessage(wire.RpcCall{Service: service, Method: method, Params: params, SchemaID: info.SchemaID})
	if err := wire.WriteMessage(conn, req); err != nil {
		return wire.Value{}, fmt.Errorf("client: send RpcCall: %w", err)
	}

	type result struct {
		resp wire.RpcResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			done <- result{err: err}
			return
		}
		resp, ok := msg.Payload.(wire.RpcResponse)
		if !ok {
			done <- result{err: fmt.Errorf("client: expected RpcResponse, got %T", msg.Payload)}
			return
		}
		done <- result{resp: resp}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if isTimeout(r.err) {
				defaultMetrics.rpcTimeouts.Inc()
				return wire.Value{}, ErrTimeout
			}
			return wire.Value{}, fmt.Errorf("client: read RpcResponse: %w", r.err)
		}
		if r.resp.CallID != req.ID {
			return wire.Value{}, fmt.Errorf("client: call_id mismatch")
		}
		if !r.resp.Ok {
			defaultMetrics.rpcErrors.Inc()
			return wire.Value{}, fmt.Errorf("client: rpc error: %s", r.resp.ErrorMsg)
		}
		return r.resp.Result, nil
	case <-ctx.Done():
		return wire.Value{}, ctx.Err()
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
