package main

import (
	"context"
	"log"
	"time"

	"bugalou/internal/api"
	"bugalou/internal/automation"
	"bugalou/internal/config"
	"bugalou/internal/database"
	"bugalou/internal/dedup"
	"bugalou/internal/logging"
	"bugalou/internal/webhook"
	"bugalou/internal/whatsapp"
	"bugalou/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.GinMode != gin.ReleaseMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)
	database.InitGorm(cfg)
	store := database.NewStore(database.GormDB)

	hub := ws.NewHub()
	go hub.Run()

	whatsappClient := whatsapp.NewClient(cfg)
	dispatcher := automation.NewDispatcher(whatsapp.NewCredentialStore(store, cfg), whatsappClient, store)
	dispatcher.Notifier = hub
	engine := automation.NewEngine(store, store, dispatcher)

	webhookHandler := webhook.NewHandler(cfg, store)
	webhookHandler.Notifier = hub
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		filter, err := dedup.Connect(ctx, cfg.RedisURL, cfg.DedupTTL)
		cancel()
		if err != nil {
			zap.L().Warn("server: webhook dedup disabled", zap.Error(err))
		} else {
			defer filter.Close()
			webhookHandler.Dedup = filter
		}
	}

	r := gin.Default()
	r.Use(api.CORS())

	srv := &api.Server{
		Config:     cfg,
		Store:      store,
		Engine:     engine,
		Dispatcher: dispatcher,
		Hub:        hub,
		Webhook:    webhookHandler,
	}
	srv.Register(r)

	zap.L().Info("server: starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		zap.L().Fatal("server: failed to run", zap.Error(err))
	}
}
