package rpcserver

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/mvishiu11/WIND/internal/wire"
)

// serveConn runs one connection's request/response loop, per spec.md §4.4
// "RPC server": decode, dispatch by payload, respond, repeat until the
// connection errors out. A malformed frame ends the loop (wire.ReadMessage
// itself returns the error); unknown payloads are logged and ignored.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			return
		}

		switch p := msg.Payload.(type) {
		case wire.Ping:
			if err := wire.WriteMessage(conn, wire.NewMessage(wire.Pong{})); err != nil {
				return
			}

		case wire.RpcCall:
			resp := s.dispatch(msg.ID, p)
			if err := wire.WriteMessage(conn, resp); err != nil {
				return
			}

		default:
			s.logger.Warn().Str("type", fmt.Sprintf("%T", p)).Msg("unknown payload on rpc connection")
		}
	}
}

// dispatch looks up the handler for call.Method and invokes it, per
// spec.md §4.4 "RPC server": an unregistered method yields
// Err("Method not found: <method>") rather than closing the connection.
func (s *Server) dispatch(id uuid.UUID, call wire.RpcCall) wire.Message {
	s.handlersMu.RLock()
	handler, ok := s.handlers[call.Method]
	s.handlersMu.RUnlock()

	if !ok {
		s.metrics.callsTotal.Inc()
		s.metrics.methodNotFound.Inc()
		resp := wire.NewMessage(wire.RpcResponse{
			CallID:   id,
			Ok:       false,
			ErrorMsg: fmt.Sprintf("Method not found: %s", call.Method),
			SchemaID: call.SchemaID,
		})
		resp.ID = id
		return resp
	}

	s.metrics.callsTotal.Inc()
	result, err := handler(call.Params)

	var payload wire.RpcResponse
	if err != nil {
		s.metrics.callErrors.Inc()
		payload = wire.RpcResponse{CallID: id, Ok: false, ErrorMsg: err.Error(), SchemaID: call.SchemaID}
	} else {
		payload = wire.RpcResponse{CallID: id, Ok: true, Result: result, SchemaID: call.SchemaID}
	}
	resp := wire.NewMessage(payload)
	resp.ID = id
	return resp
}
