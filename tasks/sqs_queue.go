package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// MessageSender is satisfied by pkg/aws.SQSConsumer.
type MessageSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSQueue ships tasks to an SQS queue so they survive a restart. Workers
// consume them through pkg/aws.SQSConsumer.StartPolling with Handle.
type SQSQueue struct {
	sender     MessageSender
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewSQSQueue(sender MessageSender, d *Dispatcher, logger *zap.Logger) *SQSQueue {
	return &SQSQueue{sender: sender, dispatcher: d, logger: logger}
}

func (q *SQSQueue) Enqueue(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.sender.SendMessage(ctx, string(body)); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// Handle decodes one SQS message and dispatches it. Malformed bodies are
// dropped so they do not cycle through the queue forever; a dispatch error
// leaves the message for redelivery.
func (q *SQSQueue) Handle(ctx context.Context, body string) error {
	var task Task
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		q.logger.Error("dropping malformed task message", zap.Error(err))
		return nil
	}
	return q.dispatcher.Dispatch(ctx, task)
}
