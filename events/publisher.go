package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"go.uber.org/zap"
)

// Publisher announces settled payments to downstream services.
type Publisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

// SNSPublisher fans payment events out through an SNS topic.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn, logger: logger}
}

func (p *SNSPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	// an order settles once, so type and order code identify the event
	messageID, err := p.client.Publish(ctx, p.topicArn, aws_pkg.SNSMessage{
		Body: body,
		Attributes: map[string]string{
			"event_type": event.Type,
			"provider":   string(event.Provider),
		},
		GroupID:         event.OrderCode,
		DeduplicationID: event.Type + ":" + event.OrderCode,
	})
	if err != nil {
		return err
	}
	p.logger.Info("payment event published",
		zap.String("sink", "sns"),
		zap.String("type", event.Type),
		zap.String("order_code", event.OrderCode),
		zap.String("message_id", messageID),
	)
	return nil
}

// LogPublisher only logs events. Used when no event sink is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.PaymentEvent) error {
	p.logger.Info("payment event (no sink)",
		zap.String("type", event.Type),
		zap.String("order_code", event.OrderCode),
		zap.Int64("amount", event.Amount),
	)
	return nil
}
