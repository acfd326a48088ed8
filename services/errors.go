package services

import (
	"errors"

	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/repository"
)

var (
	ErrInvalidCheckoutData = errors.New("invalid checkout data")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrOrderNotPayable     = errors.New("order is not payable")
	ErrUnknownProvider     = providers.ErrUnknownProvider
	ErrOrderNotFound       = repository.ErrOrderNotFound
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}
