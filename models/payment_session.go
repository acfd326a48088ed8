package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider identifies a payment gateway.
type Provider string

const (
	ProviderA Provider = "provider_a"
	ProviderB Provider = "provider_b"
)

// PaymentSession is one checkout attempt against a gateway. It is written once.
type PaymentSession struct {
	RequestID string    `gorm:"type:varchar(128);primaryKey" json:"request_id" dynamodbav:"request_id"`
	OrderCode string    `gorm:"type:varchar(64);index;not null" json:"order_code" dynamodbav:"order_code"`
	Provider  Provider  `gorm:"type:varchar(32);not null" json:"provider" dynamodbav:"provider"`
	Amount    int64     `gorm:"not null" json:"amount" dynamodbav:"amount"`
	Currency  string    `gorm:"type:varchar(10);not null" json:"currency" dynamodbav:"currency"`
	OrderInfo string    `gorm:"type:varchar(255)" json:"order_info" dynamodbav:"order_info"`
	ClientIP  string    `gorm:"type:varchar(64)" json:"client_ip" dynamodbav:"client_ip"`
	Locale    string    `gorm:"type:varchar(8)" json:"locale" dynamodbav:"locale"`
	BankCode  string    `gorm:"type:varchar(32)" json:"bank_code,omitempty" dynamodbav:"bank_code,omitempty"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at" dynamodbav:"expires_at"`
}

// Expired reports whether the session window has closed at now.
func (s *PaymentSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewRequestID builds a gateway request id that is unique per attempt even when
// the same order is retried within one millisecond.
func NewRequestID(orderCode string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%d-%s", orderCode, now.UnixMilli(), suffix)
}

// OrderCodeFromRequestID strips the attempt suffix added by NewRequestID.
func OrderCodeFromRequestID(requestID string) string {
	parts := strings.Split(requestID, "-")
	if len(parts) < 3 {
		return requestID
	}
	return strings.Join(parts[:len(parts)-2], "-")
}
