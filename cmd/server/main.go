package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gigmarket/contract-hub/internal/api"
	"github.com/gigmarket/contract-hub/internal/core/chat"
	"github.com/gigmarket/contract-hub/internal/core/registry"
	"github.com/gigmarket/contract-hub/internal/core/service"
	"github.com/gigmarket/contract-hub/internal/infrastructure/db/mongo"
	"github.com/gigmarket/contract-hub/internal/infrastructure/db/redis"
	"github.com/gigmarket/contract-hub/internal/infrastructure/ws"
	"github.com/gigmarket/contract-hub/internal/pkg/config"
	"github.com/gigmarket/contract-hub/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "contract-hub",
	})

	ctx := context.Background()

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		PoolSize:  cfg.Redis.PoolSize,
		OpTimeout: cfg.Redis.OpTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	users := mongo.NewAuthRepository(db)
	jobs := mongo.NewJobRepository(db)
	contracts := mongo.NewContractRepository(db)
	if err := mongo.EnsureIndexes(ctx, users, jobs, contracts); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	reg := registry.New(contracts, cfg.Hub.RegistryShards, logger.For("registry"))
	hub := chat.NewHub(reg, redis.NewDeliveryLedger(rdb, cfg.Hub.PendingEventTTL), chat.Options{
		SendBuffer:     cfg.Hub.SendBuffer,
		PingPeriod:     cfg.Hub.PingPeriod(),
		RoomShards:     cfg.Hub.RoomShards,
		MessagesPerSec: cfg.Hub.MessagesPerSec,
		MessageBurst:   cfg.Hub.MessageBurst,
	}, logger.For("hub"))

	authService := service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL)
	contractService := service.NewContractService(jobs, contracts, reg, hub, logger.For("contracts"))

	e := api.NewRouter(api.Dependencies{
		Auth:      authService,
		Contracts: contractService,
		Hub:       hub,
		Socket: ws.Options{
			MaxFrameBytes: cfg.Hub.MaxFrameBytes,
			WriteWait:     cfg.Hub.WriteWait,
			PongWait:      cfg.Hub.PongWait,
		},
		Mongo:  db,
		Redis:  rdb,
		Logger: logger.For("http"),
	})
	e.Server.ReadHeaderTimeout = 10 * time.Second

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	// Websocket connections are hijacked and not tracked by Shutdown.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("error closing redis")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error closing mongo")
	}

	log.Info().Msg("server exited")
}
