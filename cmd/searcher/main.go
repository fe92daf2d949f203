package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	ensureIndexes := flag.Bool("ensure-indexes", true, "create store indexes before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"indexes", len(cfg.Indexes),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise search service", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *ensureIndexes {
		if err := app.Service.EnsureIndexes(ctx); err != nil {
			slog.Error("failed to ensure store indexes", "error", err)
			os.Exit(1)
		}
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, metrics.AdminMux(app.Registry, nil))
		defer shutdownMetrics(context.Background())
	}

	h := handler.New(app.Service, app.Health, cfg.Search.DefaultMaxResults, cfg.Search.MaxResults)
	mux := http.NewServeMux()
	h.Register(mux)

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Timeout(cfg.Server.WriteTimeout),
		middleware.Metrics(app.Metrics),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
