package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yashrajoria/checkout-service/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const maxConnectAttempts = 10

// ConnectPostgres opens the database, retrying while Postgres comes up, and
// migrates the checkout tables.
func ConnectPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	open := func() error {
		var err error
		// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 20 * time.Second
	notify := func(err error, wait time.Duration) {
		logger.Warn("DB connection failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxConnectAttempts-1), ctx)
	if err := backoff.RetryNotify(open, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	logger.Info("Connected to PostgreSQL successfully")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the order, session and notification log tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.PaymentSession{}, &models.NotificationLog{}); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
