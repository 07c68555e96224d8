package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/model"
)

// Memory is the order history used when checkout is simulated. It lists
// only the orders of the user returned by owner; an admin (isAdmin reports
// true) can fetch and update any order, as with the real backend.
type Memory struct {
	owner   func() string
	isAdmin func() bool

	mu     sync.RWMutex
	orders map[string]model.Order
}

// NewMemory builds an empty store. isAdmin may be nil when nobody has
// admin rights.
func NewMemory(owner func() string, isAdmin func() bool) *Memory {
	return &Memory{owner: owner, isAdmin: isAdmin, orders: map[string]model.Order{}}
}

// visible reports whether the caller may see o.
func (m *Memory) visible(o model.Order) bool {
	if m.isAdmin != nil && m.isAdmin() {
		return true
	}
	return o.UserID == m.owner()
}

// Record stores a newly placed order.
func (m *Memory) Record(o model.Order) {
	m.mu.Lock()
	m.orders[o.ID] = o
	m.mu.Unlock()
}

func (m *Memory) ListOrders(_ context.Context) ([]model.Order, error) {
	uid := m.owner()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if o.UserID == uid {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok || !m.visible(o) {
		return model.Order{}, fmt.Errorf("order %s: %w", id, apiclient.ErrNotFound)
	}
	return o, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id string, status model.OrderStatus) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !m.visible(o) {
		return model.Order{}, fmt.Errorf("order %s: %w", id, apiclient.ErrNotFound)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return o, nil
}
