package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/amoradev/amora-backend/internal/app"
	"github.com/amoradev/amora-backend/internal/cache"
	"github.com/amoradev/amora-backend/internal/config"
	"github.com/amoradev/amora-backend/internal/db"
	"github.com/amoradev/amora-backend/internal/logger"
	"github.com/amoradev/amora-backend/internal/relay"
	"github.com/amoradev/amora-backend/internal/server"
	"github.com/amoradev/amora-backend/internal/service/chat"
	"github.com/amoradev/amora-backend/internal/service/discovery"
	"github.com/amoradev/amora-backend/internal/service/swipe"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	// Live-connection registry and services
	hub := relay.NewHub(log)
	chatSvc := chat.NewService(appCtx, hub)
	discoverySvc := discovery.NewService(appCtx, cfg.Discovery.DefaultLimit, cfg.Discovery.PoolCap)
	swipeSvc := swipe.NewService(appCtx)

	wsHandler := relay.NewHandler(hub, func(ctx context.Context, senderID, matchID uint64, content string) error {
		_, err := chatSvc.Send(ctx, senderID, matchID, content)
		return err
	})

	handlers := server.NewHandlers(appCtx, discoverySvc, swipeSvc, chatSvc)
	router := server.NewRouter(handlers, wsHandler)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
