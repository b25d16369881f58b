package client

import (
	"github.com/mvishiu11/WIND/internal/regclient"
	"github.com/mvishiu11/WIND/internal/wire"
)

// RegistryConn is a thin, short-lived client for the registry's discovery
// surface — spec.md §4.4 "Discover(pattern)". Each call opens a fresh
// connection, matching the reference behavior's one-shot discovery
// round-trip (no long-lived registry connection is held by a plain client).
type RegistryConn struct {
	addr string
}

// NewRegistryConn binds a RegistryConn to a registry address.
func NewRegistryConn(addr string) *RegistryConn {
	return &RegistryConn{addr: addr}
}

// Discover returns every service matching pattern.
func (r *RegistryConn) Discover(pattern string) ([]wire.ServiceInfo, error) {
	return regclient.Discover(r.addr, pattern)
}

// Lookup resolves a single exact service name, returning ErrServiceNotFound
// (via the zero-result case) if nothing matches.
func (r *RegistryConn) Lookup(name string) (wire.ServiceInfo, error) {
	services, err := regclient.Discover(r.addr, name)
	if err != nil {
		return wire.ServiceInfo{}, err
	}
	for _, s := range services {
		if s.Name == name {
			return s, nil
		}
	}
	return wire.ServiceInfo{}, ErrServiceNotFound
}
