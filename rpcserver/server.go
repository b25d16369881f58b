// Package rpcserver implements WIND's request/response side: symmetric to
// publisher.Publisher on registration/lifecycle, but serving synchronous
// calls instead of fanning out a topic. Grounded on the teacher's Server
// accept-loop shape (server.go), with one request/response loop per
// connection instead of one fan-out goroutine shared across connections.
package rpcserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mvishiu11/WIND/internal/regclient"
	"github.com/mvishiu11/WIND/internal/wire"
)

// HandlerFunc is a first-class RPC method handler, per spec.md §9 "Dynamic
// dispatch": the method table is a map to closures, not an interface.
type HandlerFunc func(params wire.Value) (wire.Value, error)

// Config configures a Server.
type Config struct {
	ServiceName     string
	BindAddress     string
	RegistryAddress string
	SchemaID        string
	TTL             time.Duration
	Tags            []string
}

func (c Config) withDefaults() Config {
	if c.TTL == 0 {
		c.TTL = 60 * time.Second
	}
	return c
}

// Server is WIND's RPC server: a named, registered service exposing a
// table of methods over fresh request/response connections.
type Server struct {
	cfg    Config
	logger zerolog.Logger

	listener net.Listener

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	metrics *Metrics
	wg      sync.WaitGroup
}

// New constructs a Server with no methods registered; call Handle to add
// them before (or after) calling Run.
func New(cfg Config, logger zerolog.Logger) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:      cfg,
		logger:   logger.With().Str("service", cfg.ServiceName).Logger(),
		handlers: make(map[string]HandlerFunc),
		metrics:  NewMetrics(cfg.ServiceName),
	}
}

// Handle registers a method handler, replacing any existing one of the
// same name.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[method] = fn
}

// Addr returns the bound listener address; valid only once Run has started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run binds the listener, registers with the registry, and serves until ctx
// is cancelled, mirroring publisher.Publisher's lifecycle.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("rpcserver: listen: %w", err)
	}
	s.listener = listener
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("rpc server listening")

	if err := s.registerOnce(); err != nil {
		listener.Close()
		return fmt.Errorf("rpcserver: initial registration failed: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runHeartbeat(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("rpcserver: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serviceInfo() wire.ServiceInfo {
	return wire.ServiceInfo{
		Name:        s.cfg.ServiceName,
		Address:     s.listener.Addr().String(),
		ServiceType: wire.ServiceTypeRpcServer,
		SchemaID:    s.cfg.SchemaID,
		TTLMillis:   uint64(s.cfg.TTL.Milliseconds()),
		Tags:        s.cfg.Tags,
	}
}

func (s *Server) registerOnce() error {
	return regclient.Register(s.cfg.RegistryAddress, s.serviceInfo())
}

func (s *Server) runHeartbeat(ctx context.Context) {
	interval := s.cfg.TTL / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.registerOnce(); err != nil {
				s.logger.Warn().Err(err).Msg("heartbeat re-registration failed")
				s.metrics.heartbeatFailures.Inc()
			}
		}
	}
}
