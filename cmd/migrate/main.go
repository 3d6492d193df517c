package main

import (
	"driver_ledger/internal/config" // Custom import path (Config)
	"driver_ledger/internal/db"     // Custom import path (Database)
	"driver_ledger/internal/utils"  // Logging setup

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := utils.SetupLogger(cfg.LogLevel, cfg.IsProd); err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
}
