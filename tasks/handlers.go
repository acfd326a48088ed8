package tasks

import (
	"context"
	"fmt"

	"github.com/yashrajoria/checkout-service/cart"
	"github.com/yashrajoria/checkout-service/events"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/sender"
	"go.uber.org/zap"
)

// ClearCartHandler removes the paid order's cart.
func ClearCartHandler(c cart.Clearer) Handler {
	return func(ctx context.Context, task Task) error {
		return c.ClearCart(ctx, task.UserID)
	}
}

// SendConfirmationHandler emails the payer at most once per order, however
// often the task is delivered. Tasks without an address are skipped rather
// than retried.
func SendConfirmationHandler(s sender.EmailSender, guard OnceGuard, logger *zap.Logger) Handler {
	return func(ctx context.Context, task Task) error {
		if task.Email == "" {
			logger.Warn("no email on order, skipping confirmation", zap.String("order_code", task.OrderCode))
			return nil
		}
		subject, body, err := sender.RenderConfirmation(sender.ConfirmationData{
			OrderCode:     task.OrderCode,
			Amount:        task.Amount,
			Currency:      task.Currency,
			Provider:      string(task.Provider),
			TransactionID: task.TransactionID,
		})
		if err != nil {
			return err
		}

		key := ConfirmationKey(task.OrderCode)
		claimed, err := guard.Claim(ctx, key)
		if err != nil {
			return err
		}
		if !claimed {
			logger.Info("confirmation already sent, skipping", zap.String("order_code", task.OrderCode), zap.String("task_id", task.ID))
			return nil
		}

		res, err := s.SendEmail(ctx, task.Email, subject, body)
		if err != nil {
			if rerr := guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
				logger.Error("failed to release confirmation claim", zap.String("order_code", task.OrderCode), zap.Error(rerr))
			}
			return fmt.Errorf("send confirmation for %s: %w", task.OrderCode, err)
		}
		logger.Info("confirmation sent", zap.String("order_code", task.OrderCode), zap.String("message_id", res.MessageID))
		return nil
	}
}

// PublishEventHandler emits payment_succeeded or payment_failed.
func PublishEventHandler(p events.Publisher) Handler {
	return func(ctx context.Context, task Task) error {
		eventType := models.EventPaymentFailed
		if task.PaymentStatus == models.PaymentStatusPaid {
			eventType = models.EventPaymentSucceeded
		}
		return p.Publish(ctx, models.PaymentEvent{
			Type:          eventType,
			OrderCode:     task.OrderCode,
			UserID:        task.UserID,
			Provider:      task.Provider,
			TransactionID: task.TransactionID,
			Channel:       task.Channel,
			Amount:        task.Amount,
			Currency:      task.Currency,
			Timestamp:     task.CreatedAt,
		})
	}
}

// RegisterDefaults wires the three post-payment handlers.
func RegisterDefaults(d *Dispatcher, c cart.Clearer, s sender.EmailSender, guard OnceGuard, p events.Publisher, logger *zap.Logger) {
	d.Register(KindClearCart, ClearCartHandler(c))
	d.Register(KindSendConfirmation, SendConfirmationHandler(s, guard, logger))
	d.Register(KindPublishEvent, PublishEventHandler(p))
}
