package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Channel is the path a gateway used to report a payment outcome.
type Channel string

const (
	ChannelRedirect   Channel = "redirect"
	ChannelServerPush Channel = "server_push"
)

// VerificationResult is what an adapter extracts from an inbound payload.
// Verified=false means the payload must not be trusted at all; Verified=true
// with Success=false is a genuine decline.
type VerificationResult struct {
	Verified        bool   `json:"verified"`
	Success         bool   `json:"success"`
	Pending         bool   `json:"pending,omitempty"`
	OrderCode       string `json:"order_code"`
	RequestID       string `json:"request_id"`
	Amount          int64  `json:"amount"`
	TransactionID   string `json:"transaction_id"`
	ResponseCode    string `json:"response_code"`
	ResponseMessage string `json:"response_message"`
}

// NotificationEvent is a single inbound gateway call, consumed once.
type NotificationEvent struct {
	Provider   Provider
	Channel    Channel
	Raw        map[string]string
	Result     VerificationResult
	ReceivedAt time.Time
}

// ReconcileOutcome is the result of applying a notification to an order.
type ReconcileOutcome string

const (
	OutcomePaid              ReconcileOutcome = "paid"
	OutcomeFailed            ReconcileOutcome = "failed"
	OutcomePending           ReconcileOutcome = "pending"
	OutcomeAlreadyReconciled ReconcileOutcome = "already_reconciled"
	OutcomeInvalidSignature  ReconcileOutcome = "invalid_signature"
	OutcomeOrderNotFound     ReconcileOutcome = "order_not_found"
	OutcomeAmountMismatch    ReconcileOutcome = "amount_mismatch"
)

// Transitioned reports whether this outcome moved the order to a terminal state.
func (o ReconcileOutcome) Transitioned() bool {
	return o == OutcomePaid || o == OutcomeFailed
}

// ReconcileResult carries the outcome and the order's payment status afterwards.
type ReconcileResult struct {
	Outcome       ReconcileOutcome `json:"outcome"`
	OrderCode     string           `json:"order_code"`
	PaymentStatus PaymentStatus    `json:"payment_status,omitempty"`
	Order         *Order           `json:"-"`
}

// NotificationLog is the audit row written for every reconciliation attempt.
// WinnerKey is set only for the attempt that performed the transition, so the
// unique index admits at most one winner per order.
type NotificationLog struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider      Provider         `gorm:"type:varchar(32);not null;index" json:"provider"`
	Channel       Channel          `gorm:"type:varchar(16);not null" json:"channel"`
	OrderCode     string           `gorm:"type:varchar(64);index" json:"order_code"`
	RequestID     string           `gorm:"type:varchar(128)" json:"request_id"`
	TransactionID string           `gorm:"type:varchar(128)" json:"transaction_id"`
	ResponseCode  string           `gorm:"type:varchar(16)" json:"response_code"`
	Amount        int64            `json:"amount"`
	Verified      bool             `json:"verified"`
	Outcome       ReconcileOutcome `gorm:"type:varchar(32);not null" json:"outcome"`
	WinnerKey     *string          `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	Payload       datatypes.JSON   `gorm:"type:jsonb" json:"payload,omitempty"`
	ReceivedAt    time.Time        `json:"received_at"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
