package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/vytor/quests/internal/api"
	"github.com/vytor/quests/internal/auth"
	"github.com/vytor/quests/internal/config"
	"github.com/vytor/quests/internal/db"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/repository/mongodb"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
	"github.com/vytor/quests/internal/worker"
)

func main() {
	printStartUpBanner()

	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
		logger.WithFormat(logger.ParseFormat(cfg.LogFormat)),
		logger.WithFile(logger.FileConfig{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: 5,
			MaxAgeDays: 30,
		}),
	)
	logger.SetDefault(log)
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("mongo_db_name=%s", cfg.MongoDBName)
	log.Debug("log_level=%s log_format=%s", cfg.LogLevel, cfg.LogFormat)
	log.Debug("media_dir=%s", cfg.MediaDir)
	log.Debug("upload_workers=%d", cfg.UploadWorkers)
	log.Debug("max_upload_mb=%d", cfg.MaxUploadMB)
	log.Debug("auth_rate_per_minute=%d burst=%d", cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	store, err := db.Open(context.Background(), cfg.MongoURI, cfg.MongoDBName, cfg.MongoConnectTimeout)
	if err != nil {
		log.Error("failed to open document store: %v", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Warn("failed to disconnect: %v", err)
		}
	}()

	media, err := storage.NewDisk(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.Error("failed to prepare media store: %v", err)
		os.Exit(1)
	}

	uploadPool := worker.NewPool(cfg.UploadWorkers, cfg.UploadWorkers*16)

	userRepo := mongodb.NewUserRepository(store.Users())
	questRepo := mongodb.NewQuestRepository(store.Quests())

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	uploadService := services.NewUploadService(media, uploadPool)
	authService := services.NewAuthService(userRepo, tokens, auth.NewPasswords(cfg.BcryptCost))
	questService := services.NewQuestService(questRepo, userRepo, uploadService)
	userService := services.NewUserService(userRepo, questRepo, uploadService)

	srv := &api.Server{
		AuthService:   authService,
		QuestService:  questService,
		UserService:   userService,
		UploadService: uploadService,
		Tokens:        tokens,
		Store:         store,
		Media:         media.Handler(),
		AuthLimiter:   api.NewIPLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst),
		MaxUploadMB:   cfg.MaxUploadMB,
	}

	ctx, cancel := context.WithCancel(context.Background())
	uploadPool.Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// The pool stops only after in-flight requests have drained.
	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping upload pool")
	cancel()
	uploadPool.Stop()

	log.Info("quests server stopped")
}

func printStartUpBanner() {
	banner := figure.NewFigure("QUESTS", "", true)
	banner.Print()

	fmt.Println("======================================================")
	fmt.Println("QUESTS API")
	fmt.Println()
}
