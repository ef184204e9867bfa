// Package main runs the deals ingestion worker: one pass per interval
// over the marketplace deal listings, scored and persisted through a
// single transaction per run.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Elhashino/amazon-deals/internal/config"
	"github.com/Elhashino/amazon-deals/internal/ingestion"
	"github.com/Elhashino/amazon-deals/internal/marketplace"
	"github.com/Elhashino/amazon-deals/internal/observability"
	"github.com/Elhashino/amazon-deals/internal/storage"
	"github.com/Elhashino/amazon-deals/internal/storage/memory"
	"github.com/Elhashino/amazon-deals/internal/storage/migrations"
	pgstore "github.com/Elhashino/amazon-deals/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	interval := flag.Duration("interval", 0, "Interval between runs (0 runs once and exits)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}
	if *postgresDSN != "" {
		cfg.DatabaseURL = *postgresDSN
	}

	metrics := observability.NewMetrics("")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, finishing current run...", sig)
		cancel()
		sig = <-sigCh
		logger.Fatalf("Received second signal %v, forcing exit", sig)
	}()

	repo, cleanup, err := openRepository(ctx, logger, cfg.DatabaseURL, *useMemory)
	if err != nil {
		logger.Fatalf("Storage error: %v", err)
	}
	defer cleanup()

	client, err := marketplace.NewHTTPClient(cfg.KeepaAPIKey,
		marketplace.WithRetryNotify(metrics.FetchRetries.Inc))
	if err != nil {
		logger.Fatalf("Marketplace client error: %v", err)
	}

	runner := ingestion.New(ingestion.Options{
		Client:     client,
		Repository: repo,
		Ingestion:  cfg.Ingestion,
		Metrics:    metrics,
		Verbose:    *verbose,
	})

	if err := runLoop(ctx, logger, runner, *interval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Ingestion error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// openRepository connects the configured backend. The in-memory store is
// for dry runs only; PostgreSQL gets its migrations applied on startup.
func openRepository(ctx context.Context, logger *log.Logger, dsn string, useMemory bool) (storage.DealRepository, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage (data is not persisted)")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Println("Connected to PostgreSQL, migrations applied")
	return pgstore.NewRepository(pool), pool.Close, nil
}

// runLoop executes one run immediately and then one per interval tick.
// In interval mode a failed run is logged and the loop keeps going; in
// one-shot mode the run's error is returned.
func runLoop(ctx context.Context, logger *log.Logger, runner *ingestion.Runner, interval time.Duration) error {
	runOnce := func() error {
		result, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		logger.Printf("Run finished in %s: %d pages, %d products, %d admitted, %d purged",
			result.Duration.Round(time.Millisecond), result.PagesFetched,
			result.ProductsProcessed, result.DealsAdmitted, result.DealsPurged)
		return nil
	}

	if err := runOnce(); err != nil {
		if interval <= 0 || errors.Is(err, context.Canceled) {
			return err
		}
		logger.Printf("Run failed: %v", err)
	}
	if interval <= 0 {
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := runOnce(); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Printf("Run failed: %v", err)
			}
		}
	}
}
