package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"github.com/yashrajoria/checkout-service/repository"
	"github.com/yashrajoria/checkout-service/tasks"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MetricsRecorder is satisfied by pkg/aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

var outcomeMetrics = map[models.ReconcileOutcome]string{
	models.OutcomePaid:              aws_pkg.MetricPaymentSucceeded,
	models.OutcomeFailed:            aws_pkg.MetricPaymentFailed,
	models.OutcomePending:           aws_pkg.MetricPaymentPending,
	models.OutcomeAlreadyReconciled: aws_pkg.MetricAlreadyReconciled,
	models.OutcomeInvalidSignature:  aws_pkg.MetricInvalidSignature,
	models.OutcomeOrderNotFound:     aws_pkg.MetricOrderNotFound,
	models.OutcomeAmountMismatch:    aws_pkg.MetricAmountMismatch,
}

const sideEffectTimeout = 5 * time.Second

// OrderReconciler applies verified notifications to orders. The only write it
// performs is the conditional unpaid -> terminal transition, and only the
// caller that wins that write enqueues post-payment tasks.
type OrderReconciler struct {
	orders    repository.OrderRepository
	logs      repository.NotificationLogRepository
	queue     tasks.Queue
	metrics   MetricsRecorder
	tolerance int64
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderReconciler(
	orders repository.OrderRepository,
	logs repository.NotificationLogRepository,
	queue tasks.Queue,
	metrics MetricsRecorder,
	amountTolerance int64,
	logger *zap.Logger,
) *OrderReconciler {
	if amountTolerance < 0 {
		amountTolerance = 0
	}
	return &OrderReconciler{
		orders:    orders,
		logs:      logs,
		queue:     queue,
		metrics:   metrics,
		tolerance: amountTolerance,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile returns an error only for storage failures; every business
// outcome, including rejections, is reported in the result.
func (r *OrderReconciler) Reconcile(ctx context.Context, event *models.NotificationEvent) (models.ReconcileResult, error) {
	result, won, err := r.apply(ctx, event)
	if err != nil {
		r.logger.Error("reconcile failed",
			zap.String("provider", string(event.Provider)),
			zap.String("order_code", event.Result.OrderCode),
			zap.Error(err),
		)
		return result, err
	}

	// The transition is committed; its follow-up must not die with the
	// caller's request.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	r.audit(sideCtx, event, result, won)
	r.count(sideCtx, event, result.Outcome)
	if won {
		r.enqueueSideEffects(sideCtx, result.Order)
	}
	return result, nil
}

func (r *OrderReconciler) apply(ctx context.Context, event *models.NotificationEvent) (models.ReconcileResult, bool, error) {
	v := event.Result
	res := models.ReconcileResult{OrderCode: v.OrderCode}
	log := r.logger.With(
		zap.String("provider", string(event.Provider)),
		zap.String("channel", string(event.Channel)),
		zap.String("order_code", v.OrderCode),
		zap.String("request_id", v.RequestID),
	)

	if !v.Verified {
		log.Warn("rejected unverified notification", zap.String("reason", v.ResponseMessage))
		res.Outcome = models.OutcomeInvalidSignature
		return res, false, nil
	}

	order, err := r.orders.FindByCode(ctx, v.OrderCode)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			log.Error("notification for unknown order")
			res.Outcome = models.OutcomeOrderNotFound
			return res, false, nil
		}
		return res, false, err
	}
	res.Order = order
	res.PaymentStatus = order.PaymentStatus

	if order.PaymentStatus.IsTerminal() {
		log.Info("order already reconciled", zap.String("payment_status", string(order.PaymentStatus)))
		res.Outcome = models.OutcomeAlreadyReconciled
		return res, false, nil
	}

	if diff := v.Amount - order.FinalAmount; diff > r.tolerance || -diff > r.tolerance {
		log.Error("notification amount does not match order",
			zap.Int64("declared_amount", v.Amount),
			zap.Int64("final_amount", order.FinalAmount),
		)
		res.Outcome = models.OutcomeAmountMismatch
		return res, false, nil
	}

	if v.Pending {
		log.Info("payment still pending at provider", zap.String("response_code", v.ResponseCode))
		res.Outcome = models.OutcomePending
		return res, false, nil
	}

	processedAt := event.ReceivedAt
	if processedAt.IsZero() {
		processedAt = r.now().UTC()
	}
	transition := repository.PaymentTransition{
		To: models.PaymentStatusFailed,
		Details: models.PaymentDetails{
			Provider:        event.Provider,
			TransactionID:   v.TransactionID,
			Channel:         event.Channel,
			ResponseCode:    v.ResponseCode,
			ResponseMessage: v.ResponseMessage,
			ProcessedAt:     &processedAt,
		},
	}
	res.Outcome = models.OutcomeFailed
	if v.Success {
		transition.To = models.PaymentStatusPaid
		transition.Status = models.OrderStatusProcessing
		res.Outcome = models.OutcomePaid
	}

	won, err := r.orders.TransitionPayment(ctx, order.OrderCode, transition)
	if err != nil {
		return res, false, err
	}
	if !won {
		current, err := r.orders.FindByCode(ctx, order.OrderCode)
		if err != nil {
			return res, false, fmt.Errorf("re-read after lost transition: %w", err)
		}
		log.Info("lost transition race", zap.String("payment_status", string(current.PaymentStatus)))
		res.Outcome = models.OutcomeAlreadyReconciled
		res.Order = current
		res.PaymentStatus = current.PaymentStatus
		return res, false, nil
	}

	order.PaymentStatus = transition.To
	if transition.Status != "" {
		order.Status = transition.Status
	}
	order.PaymentDetails = transition.Details
	res.PaymentStatus = order.PaymentStatus

	log.Info("order payment reconciled",
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.String("transaction_id", v.TransactionID),
	)
	return res, true, nil
}

func (r *OrderReconciler) enqueueSideEffects(ctx context.Context, order *models.Order) {
	kinds := []tasks.Kind{tasks.KindPublishEvent}
	if order.PaymentStatus == models.PaymentStatusPaid {
		kinds = []tasks.Kind{tasks.KindClearCart, tasks.KindSendConfirmation, tasks.KindPublishEvent}
	}
	for _, kind := range kinds {
		if err := r.queue.Enqueue(ctx, tasks.New(kind, order)); err != nil {
			r.logger.Error("failed to enqueue post-payment task",
				zap.String("order_code", order.OrderCode),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			r.record(ctx, aws_pkg.MetricTaskFailed, map[string]string{"kind": string(kind)})
		}
	}
}

// audit is best effort; a failed insert never changes the outcome.
func (r *OrderReconciler) audit(ctx context.Context, event *models.NotificationEvent, res models.ReconcileResult, won bool) {
	if r.logs == nil {
		return
	}
	entry := &models.NotificationLog{
		Provider:      event.Provider,
		Channel:       event.Channel,
		OrderCode:     event.Result.OrderCode,
		RequestID:     event.Result.RequestID,
		TransactionID: event.Result.TransactionID,
		ResponseCode:  event.Result.ResponseCode,
		Amount:        event.Result.Amount,
		Verified:      event.Result.Verified,
		Outcome:       res.Outcome,
		ReceivedAt:    event.ReceivedAt,
	}
	if won {
		key := res.OrderCode
		entry.WinnerKey = &key
	}
	if payload, err := json.Marshal(event.Raw); err == nil {
		entry.Payload = datatypes.JSON(payload)
	}
	if err := r.logs.Save(ctx, entry); err != nil {
		r.logger.Error("failed to write notification log",
			zap.String("order_code", entry.OrderCode),
			zap.String("outcome", string(entry.Outcome)),
			zap.Error(err),
		)
	}
}

func (r *OrderReconciler) count(ctx context.Context, event *models.NotificationEvent, outcome models.ReconcileOutcome) {
	name, ok := outcomeMetrics[outcome]
	if !ok {
		return
	}
	r.record(ctx, name, map[string]string{
		"provider": string(event.Provider),
		"channel":  string(event.Channel),
	})
}

func (r *OrderReconciler) record(ctx context.Context, name string, dims map[string]string) {
	if r.metrics == nil {
		return
	}
	if err := r.metrics.RecordCount(ctx, name, dims); err != nil {
		r.logger.Warn("failed to record metric", zap.String("metric", name), zap.Error(err))
	}
}
