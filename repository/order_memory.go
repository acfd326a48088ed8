package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yashrajoria/checkout-service/models"
)

// MemoryOrderRepository keeps orders in process. Each order has its own lock
// so the unpaid check and the write happen atomically.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	locks  map[string]*sync.Mutex
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]*models.Order),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.OrderCode]; exists {
		return fmt.Errorf("order %s already exists", order.OrderCode)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.FinalAmount == 0 {
		order.FinalAmount = order.ComputeFinalAmount()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusCreated
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusUnpaid
	}
	stored := *order
	r.orders[order.OrderCode] = &stored
	r.locks[order.OrderCode] = &sync.Mutex{}
	return nil
}

// FindByCode returns a copy so callers cannot mutate stored state.
func (r *MemoryOrderRepository) FindByCode(_ context.Context, code string) (*models.Order, error) {
	r.mu.RLock()
	o, ok := r.orders[code]
	lock := r.locks[code]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	lock.Lock()
	defer lock.Unlock()
	cp := *o
	return &cp, nil
}

func (r *MemoryOrderRepository) MarkPendingPayment(_ context.Context, code string) error {
	o, lock, ok := r.entry(code)
	if !ok {
		return nil
	}
	lock.Lock()
	defer lock.Unlock()
	if o.Status == models.OrderStatusCreated {
		o.Status = models.OrderStatusPendingPayment
	}
	return nil
}

func (r *MemoryOrderRepository) TransitionPayment(_ context.Context, code string, t PaymentTransition) (bool, error) {
	if !t.To.IsTerminal() {
		return false, fmt.Errorf("transition to non-terminal status %q", t.To)
	}
	o, lock, ok := r.entry(code)
	if !ok {
		return false, nil
	}
	lock.Lock()
	defer lock.Unlock()
	if o.PaymentStatus != models.PaymentStatusUnpaid {
		return false, nil
	}
	o.PaymentStatus = t.To
	if t.Status != "" {
		o.Status = t.Status
	}
	o.PaymentDetails = t.Details
	return true, nil
}

func (r *MemoryOrderRepository) entry(code string) (*models.Order, *sync.Mutex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[code]
	return o, r.locks[code], ok
}
