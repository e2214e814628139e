package database

import (
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
)

// GetPostgres returns the process-wide store. DATABASE_DRIVER=sqlite swaps
// in a file-backed SQLite database for local runs.
func GetPostgres() (*gorm.DB, error) {
	var err error
	dbOnce.Do(func() {
		cfg := config.Load()
		gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

		if cfg.DatabaseDriver == "sqlite" {
			db, err = Open(sqlite.Open(cfg.SQLitePath), gormCfg)
			if err != nil {
				logger.Log.WithError(err).Error("Failed to open SQLite database")
				return
			}
			logger.Log.WithField("path", cfg.SQLitePath).Info("Opened SQLite database")
			return
		}

		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)

		db, err = Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to connect to PostgreSQL")
			return
		}

		logger.Log.Info("Connected to PostgreSQL")
	})

	return db, err
}

// Open opens a gorm handle on any dialector.
func Open(dialector gorm.Dialector, cfg *gorm.Config) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	return gorm.Open(dialector, cfg)
}

func ClosePostgres() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
