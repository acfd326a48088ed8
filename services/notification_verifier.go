package services

import (
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/providers"
)

// NotificationVerifier checks inbound payloads against the provider's
// signature scheme. It never touches orders.
type NotificationVerifier struct {
	registry *providers.Registry
}

func NewNotificationVerifier(registry *providers.Registry) *NotificationVerifier {
	return &NotificationVerifier{registry: registry}
}

// Verify fails only for an unknown provider; a bad signature is reported in
// the result.
func (v *NotificationVerifier) Verify(provider models.Provider, raw map[string]string) (models.VerificationResult, error) {
	adapter, err := v.registry.Get(provider)
	if err != nil {
		return models.VerificationResult{}, err
	}
	return adapter.VerifyInbound(raw), nil
}
