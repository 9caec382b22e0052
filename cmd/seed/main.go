package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"civicvoice/internal/config"
	"civicvoice/internal/db"
	"civicvoice/internal/logging"
	"civicvoice/internal/seed"
	"civicvoice/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.StoreDriver == config.StoreMemory {
		logger.Fatal("seeding the in-memory store has no effect; set STORE_DRIVER=mysql")
	}
	store, err := db.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}

	ledger := service.NewLedgerService(store, nil, service.LedgerOptions{AllowSelfLike: cfg.AllowSelfLike}, logger)
	res, err := seed.New(store, ledger, cfg.BcryptCost, logger).Run(context.Background())
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}

	logger.Info("seed completed successfully", zap.Int("users", res.Users), zap.Int("posts", res.Posts))
	logger.Info("demo credentials",
		zap.String("admin", "admin@civicvoice.com / admin123"),
		zap.String("user", "john.doe@example.com / password123"),
		zap.String("moderator", "moderator@civicvoice.com / password123"),
	)
}
