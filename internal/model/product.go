package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/errs"
)

// ProductStatus gates whether a product can be purchased.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

func (s ProductStatus) Valid() bool { return s == ProductActive || s == ProductInactive }

// Product is a catalog entry. It is read-only outside the admin panel.
type Product struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      ProductStatus   `json:"status"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Purchasable reports whether the product can be added to a cart.
func (p Product) Purchasable() bool {
	return p.Status == ProductActive && p.Stock > 0
}

// ProductInput is the admin create/update form.
type ProductInput struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      ProductStatus   `json:"status"`
	Image       string          `json:"image,omitempty"`
}

// InputFromProduct copies the editable fields of p.
func InputFromProduct(p Product) ProductInput {
	return ProductInput{
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Status:      p.Status,
		Image:       p.Image,
	}
}

// Validate checks the invariants a product must hold before it is sent to
// the Product API. An empty status defaults to active.
func (in *ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if in.Name == "" {
		return errs.Validation("name", "Product name is required.")
	}
	if in.SKU == "" {
		return errs.Validation("sku", "SKU is required.")
	}
	if in.Price.IsNegative() {
		return errs.Validation("price", "Price cannot be negative.")
	}
	if in.Stock < 0 {
		return errs.Validation("stock", "Stock cannot be negative.")
	}
	if in.Status == "" {
		in.Status = ProductActive
	}
	if !in.Status.Valid() {
		return errs.Validation("status", "Status must be active or inactive.")
	}
	return nil
}

// ProductQuery carries the pagination and search parameters understood by
// the Product API list endpoint.
type ProductQuery struct {
	Page   int
	Limit  int
	Search string
}
