// Command registryd runs the WIND service registry: a TTL-leased catalog
// with pattern-matched discovery and live watch streams, reachable over
// WIND's length-framed binary protocol.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/mvishiu11/WIND/internal/config"
	"github.com/mvishiu11/WIND/internal/logging"
	"github.com/mvishiu11/WIND/internal/registry"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides WIND_LOG_LEVEL)")
	flag.Parse()

	bootstrapLogger := log.New(os.Stdout, "[registryd] ", log.LstdFlags)
	bootstrapLogger.Printf("GOMAXPROCS: %d (via automaxprocs)", runtime.GOMAXPROCS(0))

	cfg, err := config.LoadRegistryConfig(nil)
	if err != nil {
		bootstrapLogger.Fatalf("failed to load configuration: %v", err)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(logging.Config{
		Level:     logging.Level(cfg.LogLevel),
		Format:    logging.Format(cfg.LogFormat),
		Component: "registry",
	})
	cfg.LogConfig(logger)

	srv := registry.New(registry.Config{
		Addr:          cfg.Addr,
		MetricsAddr:   cfg.MetricsAddr,
		CleanupPeriod: cfg.CleanupPeriod,
		WatchSinkSize: cfg.WatchSinkSize,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() {
		runErr <- srv.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-runErr:
		if err != nil {
			logger.Error().Err(err).Msg("registry run loop exited with error")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
	logger.Info().Msg("registry stopped")
}
