// Package publisher implements WIND's fan-out engine: a single named topic
// owned by one process, distributed to N concurrent subscribers under
// per-subscriber delivery modes and QoS. Grounded on the teacher's Server
// (server.go) for accept-loop/lifecycle shape, generalized from WebSocket
// broadcast to per-subscriber-mode TCP fan-out.
package publisher

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mvishiu11/WIND/internal/wire"
)

// Config configures a Publisher.
type Config struct {
	ServiceName     string
	BindAddress     string // e.g. "127.0.0.1:0"
	RegistryAddress string
	SchemaID        string
	TTL             time.Duration
	Tags            []string

	BroadcastCapacity int // default 1000, per spec.md §4.3 "State"
	ResubscribeRate   rate.Limit
	ResubscribeBurst  int
}

func (c Config) withDefaults() Config {
	if c.BroadcastCapacity == 0 {
		c.BroadcastCapacity = 1000
	}
	if c.TTL == 0 {
		c.TTL = 60 * time.Second
	}
	if c.ResubscribeRate == 0 {
		c.ResubscribeRate = 5
	}
	if c.ResubscribeBurst == 0 {
		c.ResubscribeBurst = 10
	}
	return c
}

// activeClient is one accepted subscriber connection and its per-topic
// subscription state. WIND's publisher only ever serves one topic per
// process, so there is exactly one clientSubscription per activeClient —
// the map is keyed by client rather than by (client, topic) accordingly.
type activeClient struct {
	id            uuid.UUID
	conn          net.Conn
	writeMu       sync.Mutex
	sub           *clientSubscription
	writeFailures int
}

// Publisher owns one topic's current value and fans it out to subscribers.
type Publisher struct {
	cfg    Config
	logger zerolog.Logger

	listener net.Listener

	currentValue atomic.Pointer[wire.Value]
	sequence     atomic.Uint64

	clientsMu sync.RWMutex
	clients   map[uuid.UUID]*activeClient

	broadcast chan wire.Value

	metrics    *Metrics
	subLimiter *resubscribeLimiter
	pool       *workerPool

	wg sync.WaitGroup
}

// New constructs a Publisher; call Run to bind, register, and start serving.
func New(cfg Config, logger zerolog.Logger) *Publisher {
	cfg = cfg.withDefaults()
	workers := runtime.GOMAXPROCS(0) * 2
	l := logger.With().Str("service", cfg.ServiceName).Logger()
	return &Publisher{
		cfg:        cfg,
		logger:     l,
		clients:    make(map[uuid.UUID]*activeClient),
		broadcast:  make(chan wire.Value, cfg.BroadcastCapacity),
		metrics:    NewMetrics(cfg.ServiceName),
		subLimiter: newResubscribeLimiter(cfg.ResubscribeRate, cfg.ResubscribeBurst),
		pool:       newWorkerPool(workers, workers*100, l),
	}
}

// Addr returns the bound listener address; valid only once Run has started.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Run binds the listener, registers with the registry, and serves until ctx
// is cancelled, per spec.md §4.3 "Lifecycle".
func (p *Publisher) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", p.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("publisher: listen: %w", err)
	}
	p.listener = listener
	p.logger.Info().Str("addr", listener.Addr().String()).Msg("publisher listening")

	if err := p.registerOnce(ctx); err != nil {
		listener.Close()
		return fmt.Errorf("publisher: initial registration failed: %w", err)
	}

	p.pool.Start(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runHeartbeat(ctx)
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runFanOut(ctx)
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				p.wg.Wait()
				return nil
			default:
				return fmt.Errorf("publisher: accept: %w", err)
			}
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.intake(ctx, conn)
		}()
	}
}

// Publish atomically bumps the sequence counter, updates current_value, and
// pushes the value into the fan-out channel, per spec.md §4.3 "Publish
// operation". It returns once value has been accepted into the channel.
func (p *Publisher) Publish(value wire.Value) {
	p.sequence.Add(1)
	v := value
	p.currentValue.Store(&v)
	p.metrics.publishesTotal.Inc()

	select {
	case p.broadcast <- value:
	default:
		// channel full: drop oldest, then push (BestEffort-style backpressure
		// at the publisher-wide fan-out channel; per-subscriber reliability
		// is enforced downstream in broadcast.go).
		select {
		case <-p.broadcast:
			p.metrics.fanoutDropped.Inc()
		default:
		}
		select {
		case p.broadcast <- value:
		default:
		}
	}
}

// CurrentValue returns the most recently published value, if any.
func (p *Publisher) CurrentValue() (wire.Value, bool) {
	ptr := p.currentValue.Load()
	if ptr == nil {
		return wire.Value{}, false
	}
	return *ptr, true
}

// Sequence returns the current sequence counter's value.
func (p *Publisher) Sequence() uint64 { return p.sequence.Load() }
