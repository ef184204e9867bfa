// Package main serves the public deals API backed by PostgreSQL.
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

	"github.com/Elhashino/amazon-deals/internal/api"
	"github.com/Elhashino/amazon-deals/internal/config"
	"github.com/Elhashino/amazon-deals/internal/observability"
	"github.com/Elhashino/amazon-deals/internal/storage/migrations"
	pgstore "github.com/Elhashino/amazon-deals/internal/storage/postgres"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	_ = godotenv.Load()

	cfg, err := config.LoadServer()
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}
	if *postgresDSN != "" {
		cfg.DatabaseURL = *postgresDSN
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Storage error: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Migration error: %v", err)
	}
	logger.Println("Connected to PostgreSQL, migrations applied")

	apiServer := api.NewServer(api.Options{
		Queries:  pgstore.NewQueryStore(pool),
		AssocTag: cfg.AmazonAssocTag,
		Logger:   logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/", apiServer.Routes())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting deals API on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}
