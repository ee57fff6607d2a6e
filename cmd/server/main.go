package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vanshika/internet-atlas/backend/internal/config"
	"github.com/vanshika/internet-atlas/backend/internal/export"
	"github.com/vanshika/internet-atlas/backend/internal/graph"
	"github.com/vanshika/internet-atlas/backend/internal/logging"
	"github.com/vanshika/internet-atlas/backend/internal/metrics"
	"github.com/vanshika/internet-atlas/backend/internal/repository"
	"github.com/vanshika/internet-atlas/backend/internal/server"
	"github.com/vanshika/internet-atlas/backend/internal/service"
	"github.com/vanshika/internet-atlas/backend/internal/store/file"
	"github.com/vanshika/internet-atlas/backend/internal/store/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Component(logging.New(cfg.Logging), "server")

	artifacts, closeArtifacts, err := buildArtifactStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to open artifact store", "error", err, "backend", cfg.Artifacts.Backend)
		os.Exit(1)
	}
	defer closeArtifacts()

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	var graphQueries server.GraphQueries
	if graphClient != nil {
		graphQueries = repository.New(graphClient, cfg.Graph.BatchSize)
		logger.Info("graph queries enabled", "uri", cfg.Graph.URI)
	}

	deps := server.RouterDependencies{
		Health: server.HealthChecks{
			server.StoreHealthService{Store: artifacts},
			server.GraphHealthService{Client: graphClient},
		},
		API:              server.NewAPIHandlers(logger, service.NewQueryService(artifacts), graphQueries),
		AllowedOrigins:   cfg.HTTP.AllowedOrigins(),
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		reg := prometheus.NewRegistry()
		if err := metrics.RegisterRuntimeCollectors(reg); err != nil {
			logger.Error("failed to register runtime metrics", "error", err)
			os.Exit(1)
		}
		m := metrics.New(reg)
		deps.Metrics = m.Handler()
		deps.Requests = m
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func buildArtifactStore(ctx context.Context, logger *slog.Logger, cfg config.Config) (service.ArtifactStore, func(), error) {
	switch cfg.Artifacts.Backend {
	case "redis":
		client, err := redis.NewClient(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("serving artifacts from redis", "addr", cfg.Redis.Addr, "suffix", cfg.Artifacts.Suffix)
		return redis.New(client, cfg.Artifacts.Suffix, cfg.Redis.TTL), func() { _ = client.Close() }, nil

	default:
		store := file.New(cfg.Artifacts.Dir, cfg.Artifacts.Suffix, export.Options{Indent: cfg.Artifacts.Indent})
		if cfg.Artifacts.Watch {
			go func() {
				if err := store.Watch(ctx, logger); err != nil {
					logger.Warn("artifact watcher stopped", "error", err)
				}
			}()
		}
		logger.Info("serving artifacts from files", "dir", cfg.Artifacts.Dir, "suffix", cfg.Artifacts.Suffix)
		return store, func() {}, nil
	}
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, nil
	}
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
}
