package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/vitalpath-ai/platform/pkg/common/config"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbErr  error
	dbOnce sync.Once
)

// GetPostgres returns the shared connection backing the job record
// repository. Poll traffic re-reads the same rows, so the pool is kept
// small and statements are prepared once.
func GetPostgres() (*gorm.DB, error) {
	dbOnce.Do(func() {
		cfg := config.Load()
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)

		db, dbErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			PrepareStmt: true,
			Logger:      gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if dbErr != nil {
			logger.Log.WithError(dbErr).Error("Failed to connect to PostgreSQL")
			return
		}

		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.SetMaxOpenConns(cfg.PostgresMaxConns)
			sqlDB.SetMaxIdleConns(cfg.PostgresMaxConns / 2)
			sqlDB.SetConnMaxLifetime(time.Hour)
		}

		logger.Log.Info("Connected to PostgreSQL")
	})

	return db, dbErr
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
