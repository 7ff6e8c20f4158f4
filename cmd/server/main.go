package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrmenu-backend/internal/config"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/logger"
	"qrmenu-backend/internal/realtime"
	"qrmenu-backend/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	if err := database.Init(cfg); err != nil {
		zl.Fatal("database init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(zl)
	g, gctx := errgroup.WithContext(ctx)

	// Cross-instance relay
	if cfg.RabbitMQURL != "" {
		relay, err := realtime.DialAMQP(cfg.RabbitMQURL, cfg.RabbitMQExchange, zl)
		if err != nil {
			zl.Fatal("could not connect to RabbitMQ", zap.Error(err))
		}
		defer relay.Close()
		hub.SetRelay(relay)

		g.Go(func() error {
			if err := relay.Consume(gctx, hub.Deliver); err != nil {
				// keep serving this instance's clients directly
				zl.Error("event relay stopped, falling back to local delivery", zap.Error(err))
				hub.SetRelay(nil)
			}
			return nil
		})
	}

	app := server.New(cfg, hub, nil)

	g.Go(func() error {
		zl.Info("server listening", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))
		return app.Listen(":" + cfg.HTTPPort)
	})

	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
	}
}
