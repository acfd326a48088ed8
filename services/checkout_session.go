package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/repository"
	"go.uber.org/zap"
)

const DefaultSessionTTL = 15 * time.Minute

// ClientContext is what the payer's request tells us about the payer.
type ClientContext struct {
	ClientIP string
	Locale   string
	BankCode string
}

// CheckoutSessionBuilder opens a payment session for an unpaid order.
type CheckoutSessionBuilder struct {
	registry *providers.Registry
	sessions repository.SessionRepository
	orders   repository.OrderRepository
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewCheckoutSessionBuilder(
	registry *providers.Registry,
	sessions repository.SessionRepository,
	orders repository.OrderRepository,
	ttl time.Duration,
	logger *zap.Logger,
) *CheckoutSessionBuilder {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &CheckoutSessionBuilder{
		registry: registry,
		sessions: sessions,
		orders:   orders,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSession persists a new session, signs the redirect URL and marks the
// order pending_payment. Every call gets a fresh request id.
func (b *CheckoutSessionBuilder) CreateSession(ctx context.Context, order *models.Order, provider models.Provider, client ClientContext) (*models.PaymentSession, string, error) {
	if order == nil || order.OrderCode == "" {
		return nil, "", fmt.Errorf("%w: missing order", ErrInvalidCheckoutData)
	}
	if client.ClientIP == "" {
		return nil, "", fmt.Errorf("%w: missing client ip", ErrInvalidCheckoutData)
	}
	if order.PaymentStatus != models.PaymentStatusUnpaid {
		return nil, "", fmt.Errorf("%w: payment status is %s", ErrOrderNotPayable, order.PaymentStatus)
	}
	if order.Status != models.OrderStatusCreated && order.Status != models.OrderStatusPendingPayment {
		return nil, "", fmt.Errorf("%w: order status is %s", ErrOrderNotPayable, order.Status)
	}
	if order.FinalAmount <= 0 {
		return nil, "", fmt.Errorf("%w: final amount %d", ErrInvalidAmount, order.FinalAmount)
	}
	adapter, err := b.registry.Get(provider)
	if err != nil {
		return nil, "", err
	}

	now := b.now().UTC()
	session := &models.PaymentSession{
		RequestID: models.NewRequestID(order.OrderCode, now),
		OrderCode: order.OrderCode,
		Provider:  provider,
		Amount:    order.FinalAmount,
		Currency:  order.Currency,
		OrderInfo: fmt.Sprintf("Payment for order %s", order.OrderCode),
		ClientIP:  client.ClientIP,
		Locale:    client.Locale,
		BankCode:  client.BankCode,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}
	if err := b.sessions.Create(ctx, session); err != nil {
		if !errors.Is(err, repository.ErrDuplicateRequestID) {
			return nil, "", fmt.Errorf("persist session: %w", err)
		}
		// the random suffix collided; one fresh id is enough
		session.RequestID = models.NewRequestID(order.OrderCode, now)
		if err := b.sessions.Create(ctx, session); err != nil {
			return nil, "", fmt.Errorf("persist session: %w", err)
		}
	}

	redirectURL, err := adapter.BuildRedirectURL(session)
	if err != nil {
		return nil, "", fmt.Errorf("build redirect url: %w", err)
	}

	if err := b.orders.MarkPendingPayment(ctx, order.OrderCode); err != nil {
		return nil, "", fmt.Errorf("mark order pending payment: %w", err)
	}

	b.logger.Info("payment session created",
		zap.String("order_code", order.OrderCode),
		zap.String("request_id", session.RequestID),
		zap.String("provider", string(provider)),
		zap.Int64("amount", session.Amount),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return session, redirectURL, nil
}
