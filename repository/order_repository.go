package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/checkout-service/models"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrSessionNotFound    = errors.New("payment session not found")
	ErrDuplicateRequestID = errors.New("payment session already exists for request id")
)

// PaymentTransition is the terminal state the reconciler wants to write.
// An empty Status leaves the order status unchanged.
type PaymentTransition struct {
	To      models.PaymentStatus
	Status  models.OrderStatus
	Details models.PaymentDetails
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	// MarkPendingPayment moves a created order to pending_payment. It is a
	// no-op for orders in any other status.
	MarkPendingPayment(ctx context.Context, code string) error
	// TransitionPayment writes t only if the order is still unpaid. It reports
	// whether this call performed the write.
	TransitionPayment(ctx context.Context, code string, t PaymentTransition) (bool, error)
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.FinalAmount == 0 {
		order.FinalAmount = order.ComputeFinalAmount()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("order_code = ?", code).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %s: %w", code, err)
	}
	return &order, nil
}

func (r *GormOrderRepository) MarkPendingPayment(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_code = ? AND status = ?", code, models.OrderStatusCreated).
		Update("status", models.OrderStatusPendingPayment).
		Error
}

// TransitionPayment is a single conditional UPDATE. Concurrent callers race on
// the payment_status predicate and exactly one sees RowsAffected == 1.
func (r *GormOrderRepository) TransitionPayment(ctx context.Context, code string, t PaymentTransition) (bool, error) {
	if !t.To.IsTerminal() {
		return false, fmt.Errorf("transition to non-terminal status %q", t.To)
	}
	updates := map[string]interface{}{
		"payment_status":           t.To,
		"payment_provider":         t.Details.Provider,
		"payment_transaction_id":   t.Details.TransactionID,
		"payment_channel":          t.Details.Channel,
		"payment_response_code":    t.Details.ResponseCode,
		"payment_response_message": t.Details.ResponseMessage,
		"payment_processed_at":     t.Details.ProcessedAt,
	}
	if t.Status != "" {
		updates["status"] = t.Status
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_code = ? AND payment_status = ?", code, models.PaymentStatusUnpaid).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("transition order %s: %w", code, result.Error)
	}
	return result.RowsAffected == 1, nil
}
