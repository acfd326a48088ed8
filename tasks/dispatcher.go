package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a failing task is re-run.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialInterval: 500 * time.Millisecond, MaxInterval: 30 * time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Dispatcher routes tasks to registered handlers and retries failures with
// exponential backoff.
type Dispatcher struct {
	handlers map[Kind]Handler
	policy   RetryPolicy
	logger   *zap.Logger
}

func NewDispatcher(policy RetryPolicy, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind]Handler), policy: policy, logger: logger}
}

func (d *Dispatcher) Register(kind Kind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch runs the task until it succeeds or the retry budget is spent.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) error {
	attempt := 0
	op := func() error {
		attempt++
		h, ok := d.handlers[task.Kind]
		if !ok {
			return backoff.Permanent(fmt.Errorf("no handler for task kind %q", task.Kind))
		}
		return h(ctx, task)
	}
	notify := func(err error, wait time.Duration) {
		d.logger.Warn("task attempt failed",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("order_code", task.OrderCode),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, d.policy.backOff(ctx), notify); err != nil {
		d.logger.Error("task abandoned",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("order_code", task.OrderCode),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return err
	}
	d.logger.Debug("task done", zap.String("task_id", task.ID), zap.String("kind", string(task.Kind)))
	return nil
}
