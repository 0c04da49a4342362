package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"productsearch/internal/api"
	"productsearch/internal/config"
	"productsearch/internal/monitoring"
	"productsearch/internal/scraper"
	"productsearch/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pgStore.Close()
	if err := pgStore.Init(ctx); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}
	redisStore := storage.NewRedisStore(cfg.RedisAddr)

	metrics := monitoring.NewMetrics()
	fetcher := scraper.NewFetcher(scraper.OptionsFromConfig(cfg), logger, metrics)
	pipeline := scraper.NewPipeline(fetcher, cfg.BaseURL, cfg.MaxPages, logger, metrics)

	server := api.NewServer(cfg, pipeline, pgStore, redisStore, metrics, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
