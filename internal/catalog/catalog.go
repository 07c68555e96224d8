// Package catalog lists products for shoppers and edits them for admins.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
)

// API is the product side of the storefront API.
type API interface {
	ListProducts(ctx context.Context, q model.ProductQuery) (apiclient.ProductPage, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	CreateProduct(ctx context.Context, in model.ProductInput, img *apiclient.ImageUpload) (model.Product, error)
	UpdateProduct(ctx context.Context, id string, in model.ProductInput, img *apiclient.ImageUpload) (model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Sort orders a product listing.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortNameAsc   Sort = "name-asc"
	SortNameDesc  Sort = "name-desc"
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
)

func (s Sort) Valid() bool {
	switch s {
	case SortNewest, SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// BrowseQuery is a shopper's listing request. Page, Limit and Search go to
// the API; Search is applied again locally so a backend that ignores it
// still yields a filtered list.
type BrowseQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Sort   Sort   `query:"sort"`
}

// Listing is one page of products plus the backend's total count.
type Listing struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Shown    int             `json:"shown"`
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) Browse(ctx context.Context, q BrowseQuery) (Listing, error) {
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	if !q.Sort.Valid() {
		return Listing{}, errs.Validation("sort", "Unknown sort order.")
	}
	if q.Page < 0 || q.Limit < 0 {
		return Listing{}, errs.Validation("page", "Page and limit cannot be negative.")
	}
	q.Search = strings.TrimSpace(q.Search)
	page, err := s.api.ListProducts(ctx, model.ProductQuery{Page: q.Page, Limit: q.Limit, Search: q.Search})
	if err != nil {
		return Listing{}, err
	}
	products := Filter(page.Products, q.Search)
	SortProducts(products, q.Sort)
	return Listing{Products: products, Total: page.Total, Shown: len(products)}, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Product, error) {
	if id == "" {
		return model.Product{}, errs.Validation("id", "Product id is required.")
	}
	return s.api.GetProduct(ctx, id)
}

func (s *Service) Create(ctx context.Context, in model.ProductInput, img *apiclient.ImageUpload) (model.Product, error) {
	if err := in.Validate(); err != nil {
		return model.Product{}, err
	}
	return s.api.CreateProduct(ctx, in, img)
}

func (s *Service) Update(ctx context.Context, id string, in model.ProductInput, img *apiclient.ImageUpload) (model.Product, error) {
	if err := in.Validate(); err != nil {
		return model.Product{}, err
	}
	return s.api.UpdateProduct(ctx, id, in, img)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.DeleteProduct(ctx, id)
}

// ToggleStatus flips a product between active and inactive.
func (s *Service) ToggleStatus(ctx context.Context, id string) (model.Product, error) {
	p, err := s.api.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	in := model.InputFromProduct(p)
	if p.Status == model.ProductActive {
		in.Status = model.ProductInactive
	} else {
		in.Status = model.ProductActive
	}
	return s.api.UpdateProduct(ctx, id, in, nil)
}

// Filter keeps products whose name, description or SKU contains term,
// ignoring case. An empty term keeps everything.
func Filter(products []model.Product, term string) []model.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.SKU), term) {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts sorts in place. Ties keep their API order.
func SortProducts(products []model.Product, by Sort) {
	var less func(a, b model.Product) bool
	switch by {
	case SortNameAsc:
		less = func(a, b model.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameDesc:
		less = func(a, b model.Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	case SortPriceAsc:
		less = func(a, b model.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b model.Product) bool { return a.Price.GreaterThan(b.Price) }
	default:
		less = func(a, b model.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}
