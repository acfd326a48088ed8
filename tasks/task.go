package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/checkout-service/models"
)

// Kind names a post-payment side effect.
type Kind string

const (
	KindClearCart        Kind = "clear_cart"
	KindSendConfirmation Kind = "send_confirmation"
	KindPublishEvent     Kind = "publish_event"
)

var ErrQueueClosed = errors.New("task queue closed")

// Task is one side effect owed to a settled order. It carries everything the
// handler needs so workers never re-read the order.
type Task struct {
	ID            string               `json:"id"`
	Kind          Kind                 `json:"kind"`
	OrderCode     string               `json:"order_code"`
	UserID        string               `json:"user_id"`
	Email         string               `json:"email,omitempty"`
	Amount        int64                `json:"amount"`
	Currency      string               `json:"currency"`
	Provider      models.Provider      `json:"provider"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Channel       models.Channel       `json:"channel"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
}

// New builds a task of kind for the settled order.
func New(kind Kind, order *models.Order) Task {
	return Task{
		ID:            uuid.NewString(),
		Kind:          kind,
		OrderCode:     order.OrderCode,
		UserID:        order.UserID.String(),
		Email:         order.Email,
		Amount:        order.FinalAmount,
		Currency:      order.Currency,
		Provider:      order.PaymentDetails.Provider,
		TransactionID: order.PaymentDetails.TransactionID,
		Channel:       order.PaymentDetails.Channel,
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     time.Now().UTC(),
	}
}

// Queue accepts tasks for asynchronous execution.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}

// Handler executes one task. A returned error is retried by the Dispatcher.
type Handler func(ctx context.Context, task Task) error
