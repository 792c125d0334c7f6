package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/h7labs/imageforge/internal/auth"
	"github.com/h7labs/imageforge/internal/config"
	"github.com/h7labs/imageforge/internal/database"
	"github.com/h7labs/imageforge/internal/httpapi"
	"github.com/h7labs/imageforge/internal/notify"
	"github.com/h7labs/imageforge/internal/provider"
	"github.com/h7labs/imageforge/internal/repository"
	"github.com/h7labs/imageforge/internal/service"
	"github.com/h7labs/imageforge/internal/storage"
	"github.com/h7labs/imageforge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	providers := make([]provider.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		providers = append(providers, provider.NewHTTPProvider(pc, cfg.ProviderTimeout, logr))
	}
	gateway, err := provider.NewGateway(providers, logr)
	if err != nil {
		log.Fatalf("provider gateway: %v", err)
	}

	var store storage.Store
	if cfg.StorageBackend == "s3" {
		store, err = storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
	} else {
		store, err = storage.NewLocalStore(cfg.LocalImageDir, cfg.LocalBaseURL)
	}
	if err != nil {
		log.Fatalf("image store: %v", err)
	}

	var notifier service.OutageNotifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logr)
		if err != nil {
			logr.Warn("telegram notifier disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	imageRepo := repository.NewImageRepository(db)

	userService := service.NewUserService(userRepo, cfg.MaxDailyCredits)
	generationService := service.NewGenerationService(cfg, logr, ledgerRepo, store, gateway, notifier)
	galleryService := service.NewGalleryService(logr, imageRepo, store)

	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL)

	server := httpapi.NewServer(cfg.ListenAddr, cfg.ExchangeSecret, logr, tokens, generationService, galleryService, userService)
	if local, ok := store.(*storage.LocalStore); ok {
		server.MountImageDir(local.BaseURL(), local.Dir())
	}
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("api server stopped", "err", err)
	}
}
