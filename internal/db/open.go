package db

import (
	"fmt"     // Error formatting
	"strings" // DSN normalisation
	"time"    // Pool lifetimes

	"driver_ledger/internal/config" // Custom package for configuration

	_ "github.com/lib/pq" // database/sql driver "postgres"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres dialect for GORM
	"gorm.io/driver/sqlite"   // SQLite dialect for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // database/sql driver "sqlite", pure Go
)

// Open connects to the configured database
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	level := logger.Warn
	if !cfg.IsProd && strings.EqualFold(cfg.LogLevel, "debug") {
		level = logger.Info // Echo SQL while developing
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	switch cfg.DBDriver {
	case config.DriverSQLite:
		// SQLite allows one writer; in-memory databases also live on a single connection
		sqlDB.SetMaxOpenConns(1)
	default:
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database at path, used by tests and the CLI
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(&config.Config{DBDriver: config.DriverSQLite, DatabaseURL: path, LogLevel: "warn"})
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		// Heroku-style URLs use the postgres:// scheme
		if strings.HasPrefix(dsn, "postgresql://") {
			dsn = "postgres://" + strings.TrimPrefix(dsn, "postgresql://")
		}
		return postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn}), nil
	case config.DriverSQLite:
		return sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: sqliteDSN(dsn)}), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// sqliteDSN turns on foreign keys for the modernc driver
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
