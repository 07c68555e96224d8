// Package orders reads the order history of the logged-in user and lets an
// admin advance an order through fulfillment.
package orders

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
)

// RecentLimit is how many orders the dashboard shows.
const RecentLimit = 3

// API is the order side of the storefront API.
type API interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error)
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context) ([]model.Order, error) {
	list, err := s.api.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(list)
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Order, error) {
	if id == "" {
		return model.Order{}, errs.Validation("id", "Order id is required.")
	}
	return s.api.GetOrder(ctx, id)
}

// UpdateStatus moves an order to status. The transition is checked
// against the order's current status before anything is sent.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error) {
	if !status.Valid() {
		return model.Order{}, errs.Validation("status", fmt.Sprintf("Unknown order status %q.", status))
	}
	cur, err := s.api.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !model.CanTransition(cur.Status, status) {
		return model.Order{}, errs.Validation("status",
			fmt.Sprintf("An order cannot move from %s to %s.", cur.Status, status))
	}
	return s.api.UpdateOrderStatus(ctx, id, status)
}

// Dashboard is the account overview.
type Dashboard struct {
	OrderCount     int             `json:"orderCount"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	ItemsPurchased int             `json:"itemsPurchased"`
	Recent         []model.Order   `json:"recentOrders"`
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Summarize(list), nil
}

// Summarize builds a Dashboard from orders sorted newest first. Cancelled
// orders still count, as they do on the order history page.
func Summarize(list []model.Order) Dashboard {
	d := Dashboard{OrderCount: len(list), TotalSpent: decimal.Zero, Recent: []model.Order{}}
	for _, o := range list {
		d.TotalSpent = d.TotalSpent.Add(o.Total)
		d.ItemsPurchased += o.ItemCount()
	}
	n := min(len(list), RecentLimit)
	d.Recent = append(d.Recent, list[:n]...)
	return d
}

func sortNewestFirst(list []model.Order) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
