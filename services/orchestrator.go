package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/repository"
	"go.uber.org/zap"
)

type StartCheckoutRequest struct {
	OrderCode string          `json:"order_code" binding:"required,order_code"`
	Provider  models.Provider `json:"provider" binding:"required"`
	Locale    string          `json:"locale"`
	BankCode  string          `json:"bank_code"`
}

type StartCheckoutResponse struct {
	RedirectURL string    `json:"redirect_url"`
	RequestID   string    `json:"request_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NotificationResponse tells the controller how to answer the gateway (Ack)
// and where to send the payer (RedirectURL).
type NotificationResponse struct {
	Result       models.ReconcileResult
	Verification models.VerificationResult
	Ack          providers.Ack
	RedirectURL  string
}

type PaymentStatusResponse struct {
	OrderCode      string                `json:"order_code"`
	Status         models.OrderStatus    `json:"status"`
	PaymentStatus  models.PaymentStatus  `json:"payment_status"`
	FinalAmount    int64                 `json:"final_amount"`
	Currency       string                `json:"currency"`
	PaymentDetails models.PaymentDetails `json:"payment_details"`
}

// CheckoutService defines the checkout and settlement use cases.
type CheckoutService interface {
	StartCheckout(ctx context.Context, userID, clientIP string, req *StartCheckoutRequest) (*StartCheckoutResponse, *ServiceError)
	HandleNotification(ctx context.Context, provider models.Provider, raw map[string]string, channel models.Channel) (*NotificationResponse, error)
	GetPaymentStatus(ctx context.Context, userID, orderCode string) (*PaymentStatusResponse, *ServiceError)
}

// checkoutOrchestrator implements CheckoutService.
type checkoutOrchestrator struct {
	orders      repository.OrderRepository
	sessions    repository.SessionRepository
	registry    *providers.Registry
	builder     *CheckoutSessionBuilder
	verifier    *NotificationVerifier
	reconciler  *OrderReconciler
	metrics     MetricsRecorder
	frontendURL string
	logger      *zap.Logger
	now         func() time.Time
}

func NewCheckoutOrchestrator(
	orders repository.OrderRepository,
	sessions repository.SessionRepository,
	registry *providers.Registry,
	builder *CheckoutSessionBuilder,
	verifier *NotificationVerifier,
	reconciler *OrderReconciler,
	metrics MetricsRecorder,
	frontendURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutOrchestrator{
		orders:      orders,
		sessions:    sessions,
		registry:    registry,
		builder:     builder,
		verifier:    verifier,
		reconciler:  reconciler,
		metrics:     metrics,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
		now:         time.Now,
	}
}

func (s *checkoutOrchestrator) StartCheckout(ctx context.Context, userID, clientIP string, req *StartCheckoutRequest) (*StartCheckoutResponse, *ServiceError) {
	if req == nil || req.OrderCode == "" || req.Provider == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "order_code and provider are required"}
	}

	order, err := s.orders.FindByCode(ctx, req.OrderCode)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
		}
		s.logger.Error("failed to load order for checkout", zap.String("order_code", req.OrderCode), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to start checkout"}
	}
	// a foreign order is indistinguishable from a missing one
	if order.UserID.String() != userID {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
	}

	session, redirectURL, err := s.builder.CreateSession(ctx, order, req.Provider, ClientContext{
		ClientIP: clientIP,
		Locale:   req.Locale,
		BankCode: req.BankCode,
	})
	if err != nil {
		s.record(ctx, aws_pkg.MetricCheckoutFailed, req.Provider)
		return nil, checkoutError(err, s.logger, req.OrderCode)
	}
	s.record(ctx, aws_pkg.MetricCheckoutStarted, req.Provider)

	return &StartCheckoutResponse{
		RedirectURL: redirectURL,
		RequestID:   session.RequestID,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

func checkoutError(err error, logger *zap.Logger, orderCode string) *ServiceError {
	switch {
	case errors.Is(err, ErrInvalidCheckoutData):
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid checkout data"}
	case errors.Is(err, ErrInvalidAmount):
		return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "Order amount must be greater than zero"}
	case errors.Is(err, ErrOrderNotPayable):
		return &ServiceError{StatusCode: http.StatusConflict, Message: "Order can no longer be paid"}
	case errors.Is(err, ErrUnknownProvider):
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "Unsupported payment provider"}
	default:
		logger.Error("failed to create payment session", zap.String("order_code", orderCode), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to start checkout"}
	}
}

// HandleNotification runs the same verify and reconcile path for both
// delivery channels. The channel is recorded but never changes the outcome.
func (s *checkoutOrchestrator) HandleNotification(ctx context.Context, provider models.Provider, raw map[string]string, channel models.Channel) (*NotificationResponse, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	s.record(ctx, aws_pkg.MetricNotificationReceived, provider)

	verification, err := s.verifier.Verify(provider, raw)
	if err != nil {
		return nil, err
	}
	if verification.Verified {
		verification.OrderCode = s.resolveOrderCode(ctx, verification)
	}

	event := &models.NotificationEvent{
		Provider:   provider,
		Channel:    channel,
		Raw:        raw,
		Result:     verification,
		ReceivedAt: s.now().UTC(),
	}
	result, err := s.reconciler.Reconcile(ctx, event)
	if err != nil {
		return nil, err
	}

	return &NotificationResponse{
		Result:       result,
		Verification: verification,
		Ack:          adapter.Acknowledge(result.Outcome),
		RedirectURL:  s.payerRedirect(result),
	}, nil
}

// resolveOrderCode prefers the order recorded on the session, falling back to
// the code decoded from the payload.
func (s *checkoutOrchestrator) resolveOrderCode(ctx context.Context, v models.VerificationResult) string {
	if s.sessions == nil || v.RequestID == "" {
		return v.OrderCode
	}
	session, err := s.sessions.FindByRequestID(ctx, v.RequestID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Warn("session lookup failed", zap.String("request_id", v.RequestID), zap.Error(err))
		}
		return v.OrderCode
	}
	return session.OrderCode
}

// payerRedirect never points at the success page unless the order is paid.
func (s *checkoutOrchestrator) payerRedirect(res models.ReconcileResult) string {
	q := url.Values{}
	q.Set("order", res.OrderCode)
	switch {
	case res.PaymentStatus == models.PaymentStatusPaid:
		return s.frontendURL + "/checkout/success?" + q.Encode()
	case res.Outcome == models.OutcomePending:
		return s.frontendURL + "/checkout/pending?" + q.Encode()
	default:
		reason := string(res.Outcome)
		switch {
		case res.Outcome == models.OutcomeInvalidSignature:
			reason = "verification_failed"
		case res.PaymentStatus == models.PaymentStatusFailed:
			reason = "declined"
		}
		q.Set("reason", reason)
		return s.frontendURL + "/checkout/failure?" + q.Encode()
	}
}

func (s *checkoutOrchestrator) GetPaymentStatus(ctx context.Context, userID, orderCode string) (*PaymentStatusResponse, *ServiceError) {
	order, err := s.orders.FindByCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
		}
		s.logger.Error("failed to load order", zap.String("order_code", orderCode), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to load order"}
	}
	if order.UserID.String() != userID {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
	}
	return &PaymentStatusResponse{
		OrderCode:      order.OrderCode,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		FinalAmount:    order.FinalAmount,
		Currency:       order.Currency,
		PaymentDetails: order.PaymentDetails,
	}, nil
}

func (s *checkoutOrchestrator) record(ctx context.Context, name string, provider models.Provider) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, name, map[string]string{"provider": string(provider)}); err != nil {
		s.logger.Warn("failed to record metric", zap.String("metric", name), zap.Error(err))
	}
}
