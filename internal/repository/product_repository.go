package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/shopflow/internal/model"
)

// ProductRepo is the catalog of the mock backend. Reserve takes stock for
// a whole order atomically.
type ProductRepo struct {
	mu       sync.RWMutex
	products map[string]model.Product
	bySKU    map[string]string
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{products: map[string]model.Product{}, bySKU: map[string]string{}}
}

// List returns one page of products matching q.Search (name, description
// or SKU), newest first, and the number of matches before paging.
func (r *ProductRepo) List(_ context.Context, q model.ProductQuery) ([]model.Product, int) {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	r.mu.RLock()
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.SKU), term) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := len(out)
	if q.Limit > 0 {
		page := max(q.Page, 1)
		start := min((page-1)*q.Limit, total)
		end := min(start+q.Limit, total)
		out = out[start:end]
	}
	return out, total
}

func (r *ProductRepo) Get(_ context.Context, id string) (model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

// Create inserts a product. SKUs are unique.
func (r *ProductRepo) Create(_ context.Context, in model.ProductInput) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToUpper(in.SKU)
	if _, taken := r.bySKU[key]; taken {
		return model.Product{}, ErrConflict
	}
	now := time.Now().UTC()
	p := model.Product{
		ID:          uuid.NewString(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Status:      in.Status,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.products[p.ID] = p
	r.bySKU[key] = p.ID
	return p, nil
}

// Update replaces the editable fields. An empty Image keeps the current one.
func (r *ProductRepo) Update(_ context.Context, id string, in model.ProductInput) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	key := strings.ToUpper(in.SKU)
	if other, taken := r.bySKU[key]; taken && other != id {
		return model.Product{}, ErrConflict
	}
	delete(r.bySKU, strings.ToUpper(p.SKU))
	p.SKU, p.Name, p.Description = in.SKU, in.Name, in.Description
	p.Price, p.Stock, p.Status = in.Price, in.Stock, in.Status
	if in.Image != "" {
		p.Image = in.Image
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	r.bySKU[key] = id
	return p, nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	delete(r.bySKU, strings.ToUpper(p.SKU))
	return nil
}

// Reserve checks every line and, only if all of them can be served,
// decrements stock and returns the priced order items. Lines for the same
// product are merged.
func (r *ProductRepo) Reserve(_ context.Context, lines []model.OrderLineInput) ([]model.OrderItem, error) {
	want := map[string]int{}
	order := []string{}
	for _, l := range lines {
		if _, seen := want[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		want[l.ProductID] += l.Quantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.OrderItem, 0, len(order))
	for _, id := range order {
		p, ok := r.products[id]
		if !ok {
			return nil, ErrNotFound
		}
		if p.Status != model.ProductActive {
			return nil, ErrConflict
		}
		if want[id] > p.Stock {
			return nil, ErrInsufficientStock
		}
		items = append(items, model.OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductImage: p.Image,
			Quantity:     want[id],
			Price:        p.Price,
		})
	}
	now := time.Now().UTC()
	for _, id := range order {
		p := r.products[id]
		p.Stock -= want[id]
		p.UpdatedAt = now
		r.products[id] = p
	}
	return items, nil
}

// Release returns the stock of a cancelled order.
func (r *ProductRepo) Release(_ context.Context, items []model.OrderItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		if p, ok := r.products[it.ProductID]; ok {
			p.Stock += it.Quantity
			r.products[it.ProductID] = p
		}
	}
}
