package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "civicvoice/docs" // swagger docs

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"civicvoice/internal/auth"
	"civicvoice/internal/cache"
	"civicvoice/internal/config"
	"civicvoice/internal/db"
	"civicvoice/internal/handler"
	"civicvoice/internal/logging"
	"civicvoice/internal/router"
	"civicvoice/internal/seed"
	"civicvoice/internal/service"
)

// @title CivicVoice API
// @version 1.0
// @description Civic discussion backend: accounts, posts, likes, comments, moderation, ratings and admin analytics.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
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

	if cfg.IsProduction() && cfg.JWTSecret == "change-me" {
		logger.Fatal("JWT_SECRET must be set in production")
	}

	store, err := db.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}

	var cacheClient *cache.Client
	if cfg.RedisAddr != "" {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTAdminTTL)
	guard := auth.NewGuard(jwtService, store.Users(), cfg.StoreTimeout, logger)

	// Initialize services
	userService := service.NewUserService(store.Users(), cacheClient, service.UserOptions{
		BcryptCost: cfg.BcryptCost,
		CacheTTL:   cfg.ProfileCacheTTL,
		Timeout:    cfg.StoreTimeout,
	})
	authService := service.NewAuthService(userService, jwtService, logger)
	ledgerService := service.NewLedgerService(store, cacheClient, service.LedgerOptions{
		AllowSelfLike: cfg.AllowSelfLike,
		Timeout:       cfg.StoreTimeout,
	}, logger)
	analyticsService := service.NewAnalyticsService(store, cfg.StoreTimeout)
	ratingService := service.NewRatingService(store.Ratings(), cfg.StoreTimeout)
	followService := service.NewFollowService(store, cfg.StoreTimeout)

	// Initialize handlers
	handlers := router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(userService, followService),
		Post:   handler.NewPostHandler(ledgerService),
		Rating: handler.NewRatingHandler(ratingService),
		Admin:  handler.NewAdminHandler(analyticsService, userService, ledgerService),
	}
	if !cfg.IsProduction() {
		handlers.Seed = handler.NewSeedHandler(seed.New(store, ledgerService, cfg.BcryptCost, logger))
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, guard, handlers, logger)

	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server starting", zap.String("addr", addr), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
