// Package regclient is the minimal registry-facing client shared by
// publisher and rpcserver for self-registration and heartbeat renewal — the
// half of spec.md §4.4's "Connection manager" that a service (rather than a
// subscriber) needs. The subscriber-facing Discover/Subscribe/Call surface
// lives in the top-level client package instead, to keep that package's
// public API scoped to what an external caller uses.
package regclient

import (
	"fmt"
	"net"
	"time"

	"github.com/mvishiu11/WIND/internal/wire"
)

// Register dials registryAddr and sends a RegisterService for info,
// returning an error unless the registry replies with success=true.
func Register(registryAddr string, info wire.ServiceInfo) error {
	conn, err := net.DialTimeout("tcp", registryAddr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("regclient: dial registry: %w", err)
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, wire.NewMessage(wire.RegisterService{Service: info})); err != nil {
		return fmt.Errorf("regclient: send RegisterService: %w", err)
	}
	msg, err := wire.ReadMessage(conn)
	if err != nil {
		return fmt.Errorf("regclient: read ServiceRegistered: %w", err)
	}
	resp, ok := msg.Payload.(wire.ServiceRegistered)
	if !ok {
		return fmt.Errorf("regclient: unexpected reply type %T", msg.Payload)
	}
	if !resp.Success {
		return fmt.Errorf("regclient: registration refused: %s", resp.Error)
	}
	return nil
}

// Discover dials registryAddr and returns every service matching pattern.
func Discover(registryAddr, pattern string) ([]wire.ServiceInfo, error) {
	conn, err := net.DialTimeout("tcp", registryAddr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("regclient: dial registry: %w", err)
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, wire.NewMessage(wire.DiscoverServices{Pattern: pattern})); err != nil {
		return nil, fmt.Errorf("regclient: send DiscoverServices: %w", err)
	}
	msg, err := wire.ReadMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("regclient: read ServicesDiscovered: %w", err)
	}
	resp, ok := msg.Payload.(wire.ServicesDiscovered)
	if !ok {
		if errPayload, ok := msg.Payload.(wire.Error); ok {
			return nil, fmt.Errorf("regclient: registry error: %s", errPayload.Message)
		}
		return nil, fmt.Errorf("regclient: unexpected reply type %T", msg.Payload)
	}
	return resp.Services, nil
}
