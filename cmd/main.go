package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sentilyzer/artifact"
	"sentilyzer/cache"
	"sentilyzer/config"
	"sentilyzer/db"
	shttp "sentilyzer/http"
	"sentilyzer/inference"
	"sentilyzer/logging"
	"sentilyzer/monitoring"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sentilyzer: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Config and logging
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Storage and cache
	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	logger.Info("database ready", zap.String("path", cfg.Database.Path))

	predictionCache, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	if predictionCache != nil {
		defer predictionCache.Close()
	}

	// 3. Artifacts. A missing bundle keeps the server up and reporting unavailable.
	bundle, err := artifact.Load(cfg.Artifacts.Dir)
	switch {
	case err == nil:
		logger.Info("model loaded",
			zap.String("dir", cfg.Artifacts.Dir),
			zap.Int("features", bundle.Manifest.NumFeatures),
			zap.String("fingerprint", bundle.Manifest.VocabularyFingerprint))
	case errors.Is(err, artifact.ErrMissingArtifact), errors.Is(err, artifact.ErrMismatchedArtifacts):
		logger.Warn("model unavailable, serving health only", zap.String("dir", cfg.Artifacts.Dir), zap.Error(err))
		bundle = nil
	default:
		logger.Error("model failed to load", zap.String("dir", cfg.Artifacts.Dir), zap.Error(err))
		bundle = nil
	}
	monitoring.SetModelLoaded(bundle != nil)

	opts := []inference.Option{inference.WithLogger(logger)}
	if predictionCache != nil {
		opts = append(opts, inference.WithCache(predictionCache))
	}
	engine := inference.NewEngine(bundle, opts...)

	hub := monitoring.NewStatisticsHub(logger)
	go hub.Run()
	defer hub.Stop()

	if cfg.Artifacts.Watch {
		if err := os.MkdirAll(cfg.Artifacts.Dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
		err := artifact.Watch(ctx, cfg.Artifacts.Dir, cfg.Artifacts.Debounce, logger, func(b *artifact.Bundle) {
			engine.Swap(b)
			monitoring.SetModelLoaded(true)
			monitoring.ModelReloadsTotal.WithLabelValues("ok").Inc()
			if err := hub.Publish(monitoring.ModelReloaded, b.Manifest); err != nil {
				logger.Warn("publish model reload", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("watch artifacts: %w", err)
		}
		logger.Info("watching artifacts", zap.String("dir", cfg.Artifacts.Dir))
	}

	// 4. HTTP server
	api := shttp.NewAPI(engine, hub, store, logger)
	server := shttp.NewServer(cfg.Server, api, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// 5. Graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
	return nil
}
