package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yashrajoria/checkout-service/models"
	"gorm.io/gorm"
)

// SessionRepository stores write-once payment sessions keyed by request id.
type SessionRepository interface {
	Create(ctx context.Context, session *models.PaymentSession) error
	FindByRequestID(ctx context.Context, requestID string) (*models.PaymentSession, error)
}

// GormSessionRepository implements SessionRepository using GORM. The
// connection must be opened with TranslateError so duplicate primary keys
// surface as gorm.ErrDuplicatedKey.
type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, session *models.PaymentSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateRequestID
	}
	return err
}

func (r *GormSessionRepository) FindByRequestID(ctx context.Context, requestID string) (*models.PaymentSession, error) {
	var s models.PaymentSession
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session %s: %w", requestID, err)
	}
	return &s, nil
}

// MemorySessionRepository is the in-process session store used in tests and
// single-instance deployments.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.PaymentSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.PaymentSession)}
}

func (r *MemorySessionRepository) Create(_ context.Context, session *models.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.RequestID]; exists {
		return ErrDuplicateRequestID
	}
	r.sessions[session.RequestID] = *session
	return nil
}

func (r *MemorySessionRepository) FindByRequestID(_ context.Context, requestID string) (*models.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[requestID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}
