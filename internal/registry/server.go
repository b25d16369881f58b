// Package registry implements WIND's TTL-leased service catalog: the
// concurrent Store, the Watch stream list, the periodic cleanup task, and
// the TCP server that dispatches framed requests onto them. Grounded on the
// teacher's Server (server.go): an accept loop spawning one goroutine per
// connection, a parallel net/http mux for health and Prometheus scraping,
// and a context-cancellation-driven graceful Shutdown.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mvishiu11/WIND/internal/glob"
	"github.com/mvishiu11/WIND/internal/resource"
	"github.com/mvishiu11/WIND/internal/wire"
)

// Config configures a Server.
type Config struct {
	Addr          string
	MetricsAddr   string
	CleanupPeriod time.Duration
	WatchSinkSize int
}

// Server is the registry's TCP listener plus its HTTP side-channel.
type Server struct {
	cfg    Config
	logger zerolog.Logger

	store   *Store
	watches *WatchList
	metrics *Metrics
	monitor *resource.Monitor

	listener   net.Listener
	httpServer *http.Server

	wg sync.WaitGroup
}

// New constructs a Server bound to no socket yet; call Run to start serving.
func New(cfg Config, logger zerolog.Logger) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		cfg:     cfg,
		logger:  logger,
		store:   NewStore(),
		watches: NewWatchList(),
		metrics: NewMetrics(reg),
		monitor: resource.New(logger),
		httpServer: &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      newMux(reg),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func newMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// Addr returns the bound TCP address; valid only after Run has started
// listening, and nil before that.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run binds the TCP and HTTP listeners and serves until ctx is cancelled.
// It registers its own /healthz handler on the HTTP mux lazily, mirroring
// the teacher's Server.Start wiring /health next to /metrics.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("registry: listen: %w", err)
	}
	s.listener = listener
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("registry listening")

	if mux, ok := s.httpServer.Handler.(*http.ServeMux); ok {
		mux.HandleFunc("/healthz", s.handleHealthz)
	}

	s.monitor.Start(ctx, 5*time.Second, &s.wg)
	runCleanup(ctx, s.store, s.cfg.CleanupPeriod, s.logger, &s.wg)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("registry http server error")
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("registry: accept: %w", err)
			}
		}
		s.metrics.connectionsTotal.Inc()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Shutdown stops the HTTP server and closes the TCP listener; callers also
// cancel the context passed to Run so background tasks and accepted
// connections unwind.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener != nil {
		s.listener.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	sample := s.monitor.Snapshot()
	storeStats := s.store.Snapshot(time.Now())
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","active_services":%d,"memory_mb":%.1f,"cpu_percent":%.1f}`,
		storeStats.ActiveServices, sample.MemoryMB, sample.CPUPercent)
}

// connWriter serializes writes to a single connection. Once a Watch is
// active, handleConn's own replies (Pong, ServiceRegistered,
// ServicesDiscovered, Error) and pumpWatch's ServiceEvent notifications race
// to write frames on the same net.Conn; wire.WriteMessage issues two
// separate Write calls per frame (length header, then payload), so without
// serialization two goroutines can interleave one message's header with
// another's payload and corrupt the stream. Mirrors the writeMu guard
// publisher/intake.go and publisher/broadcast.go already hold around every
// wire.WriteMessage on a shared subscriber connection.
type connWriter struct {
	conn net.Conn
	mu   sync.Mutex
}

func (w *connWriter) write(msg wire.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wire.WriteMessage(w.conn, msg)
}

// handleConn reads framed messages from conn indefinitely, dispatching by
// payload variant (spec.md §4.2 "Connection handling"). A malformed frame
// disconnects; an unknown payload is logged and the loop continues.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	cw := &connWriter{conn: conn}

	var watchCancel func()
	defer func() {
		if watchCancel != nil {
			watchCancel()
		}
	}()

	for {
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			// A clean EOF between frames and socket errors are ordinary
			// disconnects; anything else is a partial frame, a frame over
			// the size cap, or a frame that did not decode.
			var netErr net.Error
			if err != io.EOF && !errors.As(err, &netErr) {
				s.metrics.malformedFrames.Inc()
			}
			return
		}

		switch p := msg.Payload.(type) {
		case wire.Ping:
			_ = cw.write(wire.NewMessage(wire.Pong{}))

		case wire.RegisterService:
			entry := s.store.Register(p.Service, time.Now())
			s.watches.Notify(p.Service.Name, entry.Info)
			resp := wire.NewMessage(wire.ServiceRegistered{Service: p.Service.Name, Success: true})
			if err := cw.write(resp); err != nil {
				return
			}

		case wire.DiscoverServices:
			pattern, err := glob.Compile(p.Pattern)
			if err != nil {
				_ = cw.write(wire.NewMessage(wire.Error{Message: err.Error(), Context: "DiscoverServices"}))
				continue
			}
			services := s.store.Discover(pattern, time.Now())
			resp := wire.NewMessage(wire.ServicesDiscovered{Services: services})
			if err := cw.write(resp); err != nil {
				return
			}

		case wire.WatchServices:
			if watchCancel != nil {
				// one watch per connection; a second Watch replaces the first
				watchCancel()
			}
			pattern, err := glob.Compile(p.Pattern)
			if err != nil {
				_ = cw.write(wire.NewMessage(wire.Error{Message: err.Error(), Context: "WatchServices"}))
				continue
			}
			_, sink, cancel := s.watches.Open(pattern, s.cfg.WatchSinkSize)
			watchCancel = cancel
			for _, svc := range s.store.Discover(pattern, time.Now()) {
				if err := cw.write(wire.NewMessage(wire.ServiceEvent{Service: svc})); err != nil {
					cancel()
					return
				}
			}
			go s.pumpWatch(cw, sink)

		case wire.Heartbeat:
			// renewal-as-re-registration is the accepted path; bare
			// Heartbeat is accepted and ignored, per spec.md §9.

		default:
			s.logger.Warn().Str("type", fmt.Sprintf("%T", p)).Msg("unknown payload on registry connection")
		}
	}
}

// pumpWatch writes watch events through cw until the sink closes or a write
// fails; a write failure is a signal the registry's own accept/read loop
// will discover on its next read and tear the connection down.
func (s *Server) pumpWatch(cw *connWriter, sink <-chan wire.ServiceInfo) {
	for info := range sink {
		if err := cw.write(wire.NewMessage(wire.ServiceEvent{Service: info})); err != nil {
			return
		}
	}
}
