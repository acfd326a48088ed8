package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"go.uber.org/zap"
)

type fakeSNS struct {
	topic string
	msg   aws_pkg.SNSMessage
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, msg aws_pkg.SNSMessage) (string, error) {
	f.topic, f.msg = topicArn, msg
	return "msg-1", f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testEvent() models.PaymentEvent {
	return models.PaymentEvent{
		Type:      models.EventPaymentSucceeded,
		OrderCode: "ORD-1001",
		UserID:    "user-1",
		Provider:  models.ProviderA,
		Channel:   models.ChannelServerPush,
		Amount:    150000,
		Currency:  "VND",
		Timestamp: time.Now().UTC(),
	}
}

func TestSNSPublisher(t *testing.T) {
	fake := &fakeSNS{}
	p := NewSNSPublisher(fake, "arn:aws:sns:us-east-1:000000000000:payment-events", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:payment-events", fake.topic)

	var got models.PaymentEvent
	require.NoError(t, json.Unmarshal(fake.msg.Body, &got))
	assert.Equal(t, "ORD-1001", got.OrderCode)
	assert.Equal(t, models.EventPaymentSucceeded, got.Type)
	assert.Equal(t, "payment_succeeded", fake.msg.Attributes["event_type"])
	assert.Equal(t, "ORD-1001", fake.msg.GroupID)
	assert.Equal(t, "payment_succeeded:ORD-1001", fake.msg.DeduplicationID)

	fake.err = errors.New("throttled")
	assert.Error(t, p.Publish(context.Background(), testEvent()))
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "payment-events", logger: zap.NewNop()}

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ORD-1001", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaWriter_FlushesPromptly(t *testing.T) {
	w := newKafkaWriter([]string{"localhost:9092"}, "payment-events")
	assert.Equal(t, "payment-events", w.Topic)
	assert.Equal(t, kafkaBatchTimeout, w.BatchTimeout)
	assert.Less(t, w.BatchTimeout, 100*time.Millisecond)
	assert.Equal(t, kafkaWriteTimeout, w.WriteTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
