package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the fulfilment-facing state of an order.
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "created"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus is the settlement state of an order. Paid and failed are terminal.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

// IsTerminal reports whether no further payment transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// PaymentDetails records the notification that settled the order.
type PaymentDetails struct {
	Provider        Provider   `gorm:"type:varchar(32)" json:"provider,omitempty"`
	TransactionID   string     `gorm:"type:varchar(128)" json:"transaction_id,omitempty"`
	Channel         Channel    `gorm:"type:varchar(16)" json:"channel,omitempty"`
	ResponseCode    string     `gorm:"type:varchar(16)" json:"response_code,omitempty"`
	ResponseMessage string     `gorm:"type:varchar(255)" json:"response_message,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

// Order is a storefront purchase. Amounts are in minor currency units.
type Order struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderCode      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_code"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	TotalAmount    int64          `gorm:"not null" json:"total_amount"`
	Discount       int64          `gorm:"not null;default:0" json:"discount"`
	ShippingFee    int64          `gorm:"not null;default:0" json:"shipping_fee"`
	FinalAmount    int64          `gorm:"not null" json:"final_amount"`
	Currency       string         `gorm:"type:varchar(10);not null;default:'VND'" json:"currency"`
	Status         OrderStatus    `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	PaymentStatus  PaymentStatus  `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"payment_status"`
	PaymentDetails PaymentDetails `gorm:"embedded;embeddedPrefix:payment_" json:"payment_details"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// ComputeFinalAmount returns total - discount + shipping fee.
func (o *Order) ComputeFinalAmount() int64 {
	return o.TotalAmount - o.Discount + o.ShippingFee
}
