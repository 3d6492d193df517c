package main

import (
	"context"   // Redis ping and shutdown deadline
	"errors"    // Server closed check
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"driver_ledger/internal/api"        // Custom package for HTTP handlers
	"driver_ledger/internal/auth"       // Authentication gate
	"driver_ledger/internal/config"     // Custom package for configuration
	"driver_ledger/internal/db"         // Database connection and migrations
	"driver_ledger/internal/report"     // Dashboard and report figures
	"driver_ledger/internal/repository" // Data access
	"driver_ledger/internal/utils"      // Cache and logging helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Throwaway development secret
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if err := utils.SetupLogger(cfg.LogLevel, cfg.IsProd); err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString() // Sessions will not survive a restart
		logrus.Warn("JWT_SECRET not set, using a random secret")
	}

	// Connect to the database and make sure the tables exist
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Redis is optional: without it nothing is cached and logout only clears the cookie
	var cache utils.Cache = utils.NopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = utils.NewRedisCache(redisClient)
		logrus.WithField("addr", cfg.RedisAddr).Info("Redis cache enabled")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	users := repository.NewUserRepository(gdb)
	expenses := repository.NewExpenseRepository(gdb)
	incomes := repository.NewIncomeRepository(gdb)
	gate := auth.NewService(users, cache, auth.Options{
		Secret:            cfg.JWTSecret,
		SessionLifetime:   cfg.SessionLifetime,
		PasswordMinLength: cfg.PasswordMinLength,
	})

	r, err := api.NewRouter(api.Deps{
		DB:           gdb,
		Gate:         gate,
		Expenses:     expenses,
		Incomes:      incomes,
		Reports:      report.NewService(expenses, incomes, cache, cfg.CacheTTL),
		AppName:      cfg.AppName,
		SecureCookie: cfg.IsProd,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "driver": cfg.DBDriver}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("forced shutdown: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}
