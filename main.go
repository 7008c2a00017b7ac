package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"stockranker/internal/config"
	"stockranker/internal/coordinator"
	"stockranker/internal/instrument"
	"stockranker/internal/logging"
	"stockranker/internal/metrics"
	"stockranker/internal/ratelimit"
	"stockranker/internal/report"
	"stockranker/internal/worldtrading"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		// usage was already printed by the flag set
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Warn("received interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("ranking failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

// run ranks the configured universe and writes the report
func run(ctx context.Context, cfg *config.Config) error {
	universe, err := instrument.NewUniverse(cfg.Symbols)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	limiter := ratelimit.New()
	limiter.Set(ratelimit.APIWorldTrading, cfg.RequestsPerSecond, 1)

	client := worldtrading.NewStockClient(cfg.APIKey, cfg.BaseURL,
		worldtrading.WithLimiter(limiter),
		worldtrading.WithTimeout(cfg.RequestTimeout),
	)
	defer client.Close()

	sink := report.NewFileSink(cfg.ReportPath)

	coord := coordinator.New(universe, client, sink,
		coordinator.WithGroupSize(cfg.GroupSize),
		coordinator.WithMaxWorkers(cfg.Workers),
		coordinator.WithRemainder(cfg.FetchRemainder),
		coordinator.WithMetrics(m),
	)

	entries, err := coord.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("report written", "path", sink.Path(), "entries", len(entries))

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}
