package services_test

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/repository"
	"github.com/yashrajoria/checkout-service/sender"
	"github.com/yashrajoria/checkout-service/services"
	"github.com/yashrajoria/checkout-service/tasks"
	"go.uber.org/zap"
)

const (
	secretA = "provider-a-secret"
	secretB = "provider-b-secret"
)

var buyerID = uuid.MustParse("7d3c1a52-1111-4c1e-9a55-0f5b6f1e2a01")

func testRegistry() *providers.Registry {
	return providers.NewRegistry(
		providers.NewProviderA(providers.ProviderAConfig{
			TmnCode:    "TMN01",
			HashSecret: secretA,
			PaymentURL: "https://sandbox.provider-a.test/pay",
			ReturnURL:  "https://shop.test/payments/provider_a/return",
		}),
		providers.NewProviderB(providers.ProviderBConfig{
			PartnerCode: "PARTNER01",
			AccessKey:   "access-key",
			SecretKey:   secretB,
			Endpoint:    "https://sandbox.provider-b.test/v2/gateway/pay",
			RedirectURL: "https://shop.test/payments/provider_b/return",
			IPNURL:      "https://shop.test/payments/provider_b/notify",
		}),
	)
}

// signProviderA signs every pa_ field the way provider A does.
func signProviderA(raw map[string]string) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if strings.HasPrefix(k, "pa_") && k != "pa_SecureHash" && k != "pa_SecureHashType" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	canonical := providers.Canonicalize(raw, keys, providers.CanonicalOptions{SkipEmpty: true, EncodeValues: true})
	raw["pa_SecureHash"] = providers.Sign(canonical, []byte(secretA), providers.HashSHA512)
	return raw
}

func providerACallback(requestID string, amount int64, responseCode string) map[string]string {
	return signProviderA(map[string]string{
		"pa_TmnCode":           "TMN01",
		"pa_Amount":            strconv.FormatInt(amount*100, 10),
		"pa_TxnRef":            requestID,
		"pa_OrderInfo":         "Payment for order",
		"pa_ResponseCode":      responseCode,
		"pa_TransactionStatus": responseCode,
		"pa_TransactionNo":     "14000001",
		"pa_BankCode":          "NCB",
	})
}

// syncQueue dispatches inline so tests observe side effects immediately.
type syncQueue struct {
	d *tasks.Dispatcher

	mu       sync.Mutex
	enqueued []tasks.Task
}

func (q *syncQueue) Enqueue(ctx context.Context, task tasks.Task) error {
	q.mu.Lock()
	q.enqueued = append(q.enqueued, task)
	q.mu.Unlock()
	return q.d.Dispatch(ctx, task)
}

func (q *syncQueue) count(kind tasks.Kind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.enqueued {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) SendEmail(_ context.Context, to, _, _ string) (sender.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return sender.SendResult{MessageID: "m"}, nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeCart struct {
	mu      sync.Mutex
	cleared []string
}

func (c *fakeCart) ClearCart(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, userID)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.PaymentEvent
}

func (p *fakePublisher) Publish(_ context.Context, e models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *fakeMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name]++
	return nil
}

func (m *fakeMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// harness wires the real services over in-memory stores.
type harness struct {
	orders    *repository.MemoryOrderRepository
	sessions  *repository.MemorySessionRepository
	logs      *repository.MemoryNotificationLogRepository
	queue     *syncQueue
	mailer    *fakeMailer
	cart      *fakeCart
	publisher *fakePublisher
	metrics   *fakeMetrics

	registry   *providers.Registry
	builder    *services.CheckoutSessionBuilder
	reconciler *services.OrderReconciler
	checkout   services.CheckoutService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	h := &harness{
		orders:    repository.NewMemoryOrderRepository(),
		sessions:  repository.NewMemorySessionRepository(),
		logs:      repository.NewMemoryNotificationLogRepository(),
		mailer:    &fakeMailer{},
		cart:      &fakeCart{},
		publisher: &fakePublisher{},
		metrics:   &fakeMetrics{},
		registry:  testRegistry(),
	}
	d := tasks.NewDispatcher(tasks.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, logger)
	tasks.RegisterDefaults(d, h.cart, h.mailer, tasks.NewMemoryOnceGuard(), h.publisher, logger)
	h.queue = &syncQueue{d: d}

	h.builder = services.NewCheckoutSessionBuilder(h.registry, h.sessions, h.orders, 15*time.Minute, logger)
	h.reconciler = services.NewOrderReconciler(h.orders, h.logs, h.queue, h.metrics, 0, logger)
	h.checkout = services.NewCheckoutOrchestrator(
		h.orders, h.sessions, h.registry, h.builder,
		services.NewNotificationVerifier(h.registry), h.reconciler,
		h.metrics, "https://shop.test/", logger,
	)
	return h
}

func (h *harness) seedOrder(t *testing.T, code string, total, discount, shipping int64) {
	t.Helper()
	require.NoError(t, h.orders.Create(context.Background(), &models.Order{
		OrderCode:   code,
		UserID:      buyerID,
		Email:       "buyer@example.com",
		TotalAmount: total,
		Discount:    discount,
		ShippingFee: shipping,
		Currency:    "VND",
	}))
}

func (h *harness) order(t *testing.T, code string) *models.Order {
	t.Helper()
	o, err := h.orders.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return o
}

func newToleranceReconciler(h *harness, tolerance int64) *services.OrderReconciler {
	return services.NewOrderReconciler(h.orders, h.logs, h.queue, h.metrics, tolerance, zap.NewNop())
}
