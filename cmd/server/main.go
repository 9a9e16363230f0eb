// Command server starts the order matching engine process: it opens the
// durable log, recovers prior state, wires the processor/task-manager
// worker pools, and then blocks until a shutdown signal arrives. There is
// no HTTP/WS listener between a caller and the engine; cmd/client and
// tests drive it directly through internal/engine.Server's queue push/pop
// methods.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rishav/order-matching-engine/internal/engine"
	"github.com/rishav/order-matching-engine/internal/telemetry"
	"github.com/rs/zerolog/log"
)

func main() {
	port := flag.Int("port", 8080, "reserved for the (out-of-scope) session/WS layer")
	dataDir := flag.String("data-dir", "./data", "directory holding the durable log")
	workers := flag.Int("workers", 0, "worker pool size per pool (0 = auto)")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	telemetry.InitLogger(*debug)

	cfg := engine.DefaultConfig()
	cfg.Port = *port
	cfg.DataDir = *dataDir
	cfg.Workers = *workers

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	srv, err := engine.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start engine")
	}
	log.Info().Strs("symbols", cfg.Symbols).Int("recovered_skipped", srv.RecoverySkipped).Msg("order matching engine started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		os.Exit(1)
	}
	log.Info().Msg("order matching engine stopped")
}
