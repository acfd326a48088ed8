package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yashrajoria/checkout-service/models"
	"gorm.io/gorm"
)

// ErrDuplicateWinner means a second row claimed the transition of an order.
var ErrDuplicateWinner = errors.New("order already has a winning notification")

// NotificationLogRepository records every reconciliation attempt.
type NotificationLogRepository interface {
	Save(ctx context.Context, entry *models.NotificationLog) error
	ListByOrder(ctx context.Context, orderCode string) ([]models.NotificationLog, error)
}

type GormNotificationLogRepository struct {
	db *gorm.DB
}

func NewGormNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

func (r *GormNotificationLogRepository) Save(ctx context.Context, entry *models.NotificationLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateWinner
	}
	return err
}

func (r *GormNotificationLogRepository) ListByOrder(ctx context.Context, orderCode string) ([]models.NotificationLog, error) {
	var entries []models.NotificationLog
	if err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		Order("received_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", orderCode, err)
	}
	return entries, nil
}

// MemoryNotificationLogRepository mirrors the unique winner_key index.
type MemoryNotificationLogRepository struct {
	mu      sync.Mutex
	entries []models.NotificationLog
	winners map[string]bool
}

func NewMemoryNotificationLogRepository() *MemoryNotificationLogRepository {
	return &MemoryNotificationLogRepository{winners: make(map[string]bool)}
}

func (r *MemoryNotificationLogRepository) Save(_ context.Context, entry *models.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.WinnerKey != nil {
		if r.winners[*entry.WinnerKey] {
			return ErrDuplicateWinner
		}
		r.winners[*entry.WinnerKey] = true
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryNotificationLogRepository) ListByOrder(_ context.Context, orderCode string) ([]models.NotificationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationLog
	for _, e := range r.entries {
		if e.OrderCode == orderCode {
			out = append(out, e)
		}
	}
	return out, nil
}
