package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oggyb/codev-api/internal/app"
	"github.com/oggyb/codev-api/internal/cache"
	"github.com/oggyb/codev-api/internal/config"
	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/logger"
	"github.com/oggyb/codev-api/internal/metrics"
	"github.com/oggyb/codev-api/internal/server"
	"github.com/oggyb/codev-api/internal/service/category"
	"github.com/oggyb/codev-api/internal/service/challenge"
	"github.com/oggyb/codev-api/internal/service/engagement"
	"github.com/oggyb/codev-api/internal/service/participation"
	"github.com/oggyb/codev-api/internal/service/solution"
	"github.com/oggyb/codev-api/internal/service/technology"
	"github.com/oggyb/codev-api/internal/service/user"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis; the like lock degrades to the table key without it
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, like toggles run without distributed lock", "err", err)
		_ = redisCache.Close()
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Init event publisher
	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		amqpPub := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log).
			WithTimeouts(cfg.AMQP.DialTimeout, cfg.AMQP.RetryAfter)
		defer amqpPub.Close()
		publisher = amqpPub
	}

	appCtx := app.New(cfg, database, redisCache, publisher, log)

	registrars := []server.Registrar{
		category.NewRegistrar(appCtx),
		participation.NewRegistrar(appCtx),
		engagement.NewRegistrar(appCtx),
		solution.NewRegistrar(appCtx),
		challenge.NewRegistrar(appCtx),
		technology.NewRegistrar(appCtx),
		user.NewRegistrar(appCtx),
	}

	if cfg.IsDevelopment() {
		if err := db.SeedTestData(database, cfg.Roles.User, cfg.Roles.Admin); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			log.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error("metrics listener failed", "err", err)
			}
		}()
	}

	addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
	log.Info("starting gRPC server", "addr", addr)

	errCh := make(chan error, 1)
	grpcServer := server.NewGRPCServer(cfg, log, registrars...)
	go func() { errCh <- server.Serve(grpcServer, addr) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		grpcServer.GracefulStop()
	case err := <-errCh:
		log.Error("failed to start gRPC server", "err", err)
	}
}
