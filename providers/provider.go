package providers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/yashrajoria/checkout-service/models"
)

var ErrUnknownProvider = errors.New("unknown payment provider")

// Ack is the reply a gateway expects on its server-push channel.
type Ack struct {
	StatusCode int
	Body       interface{} // nil means no body
}

// GatewayAdapter defines what every payment gateway integration must implement.
type GatewayAdapter interface {
	// Tag returns the provider identifier used in routes and records.
	Tag() models.Provider

	// BuildRedirectURL signs the session and returns the URL the payer is sent to.
	BuildRedirectURL(session *models.PaymentSession) (string, error)

	// VerifyInbound checks the signature of a raw notification and maps the
	// provider's result vocabulary onto VerificationResult.
	VerifyInbound(raw map[string]string) models.VerificationResult

	// Acknowledge renders the server-push reply for a reconciliation outcome.
	Acknowledge(outcome models.ReconcileOutcome) Ack
}

// Registry resolves adapters by provider tag.
type Registry struct {
	adapters map[models.Provider]GatewayAdapter
}

// NewRegistry indexes the given adapters by their tag.
func NewRegistry(adapters ...GatewayAdapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]GatewayAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Tag()] = a
	}
	return r
}

// Get returns the adapter for tag or ErrUnknownProvider.
func (r *Registry) Get(tag models.Provider) (GatewayAdapter, error) {
	a, ok := r.adapters[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
	}
	return a, nil
}

// Tags lists the registered providers in a stable order.
func (r *Registry) Tags() []models.Provider {
	tags := make([]models.Provider, 0, len(r.adapters))
	for t := range r.adapters {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

func noContentAck() Ack {
	return Ack{StatusCode: http.StatusNoContent}
}
