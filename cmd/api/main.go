package main

import (
	"context"
	"fmt"
	"merchant-phone-search/internal/cache"
	"merchant-phone-search/internal/client"
	"merchant-phone-search/internal/config"
	"merchant-phone-search/internal/logger"
	"merchant-phone-search/internal/repository"
	"merchant-phone-search/internal/server"
	"merchant-phone-search/internal/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	db, err := client.InitDBClient(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	amapClient := client.NewAmapClient(&cfg.Amap)
	wechatClient := client.NewWechatPayClient(&cfg.WechatPay)
	store := cache.NewMemoryStore()

	userRepo := repository.NewUserRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)

	authService := service.NewAuthService(userRepo, store, &cfg.JWT)
	searchService := service.NewSearchService(amapClient, store, &cfg.Amap, &cfg.Membership)
	exportService := service.NewExportService(userRepo, &cfg.Export)
	paymentService := service.NewPaymentService(wechatClient, userRepo, intentRepo, &cfg.WechatPay, &cfg.Membership)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(authService, searchService, exportService, paymentService, cfg.JWT.Secret)

	log.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info().Msg("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}
