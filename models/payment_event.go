package models

import "time"

const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

// PaymentEvent is published to downstream services once an order settles.
type PaymentEvent struct {
	Type          string    `json:"type"` // payment_succeeded | payment_failed
	OrderCode     string    `json:"order_code"`
	UserID        string    `json:"user_id"`
	Provider      Provider  `json:"provider"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Channel       Channel   `json:"channel"`
	Amount        int64     `json:"amount"`   // smallest currency unit
	Currency      string    `json:"currency"` // "VND"
	Timestamp     time.Time `json:"timestamp"`
}
