package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/shopflow/internal/model"
)

// OrderRepo stores orders and the provider payment references that point
// at them. Orders are never deleted.
type OrderRepo struct {
	mu       sync.RWMutex
	orders   map[string]model.Order
	payments map[string]string // provider payment id -> order id
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{orders: map[string]model.Order{}, payments: map[string]string{}}
}

// Create assigns an id and timestamps and stores o with status pending and
// payment pending. The total is computed from the items.
func (r *OrderRepo) Create(_ context.Context, o model.Order) (model.Order, error) {
	now := time.Now().UTC()
	o.ID = uuid.NewString()
	o.Total = model.OrderTotal(o.Items)
	o.Status = model.OrderPending
	o.PaymentStatus = model.PaymentPending
	o.CreatedAt, o.UpdatedAt = now, now
	r.mu.Lock()
	r.orders[o.ID] = o
	r.mu.Unlock()
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(_ context.Context, userID string) []model.Order {
	r.mu.RLock()
	out := []model.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *OrderRepo) Get(_ context.Context, id string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

// UpdateStatus applies a status transition. Moves the state machine does
// not allow yield ErrConflict.
func (r *OrderRepo) UpdateStatus(_ context.Context, id string, status model.OrderStatus) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	if !model.CanTransition(o.Status, status) {
		return model.Order{}, ErrConflict
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

// AttachPayment links a provider payment id to an order.
func (r *OrderRepo) AttachPayment(_ context.Context, orderID, paymentRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return ErrNotFound
	}
	r.payments[paymentRef] = orderID
	return nil
}

// SettlePayment records the provider outcome for the order linked to
// paymentRef. A payment is settled only once; later calls return the
// stored result unchanged.
func (r *OrderRepo) SettlePayment(_ context.Context, paymentRef string, status model.PaymentStatus, txID string) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.payments[paymentRef]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	o := r.orders[id]
	if o.PaymentStatus != model.PaymentPending {
		return o, nil
	}
	o.PaymentStatus = status
	o.TransactionID = txID
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

// ByPayment returns the order a provider payment id is attached to.
func (r *OrderRepo) ByPayment(_ context.Context, paymentRef string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.payments[paymentRef]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return r.orders[id], nil
}
