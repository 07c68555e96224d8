package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/shopflow/internal/model"
)

// ProductPage is one page of the product list. The endpoint answers either
// with a bare array or with {"count": n, "results": [...]}.
type ProductPage struct {
	Products []model.Product `json:"results"`
	Total    int             `json:"count"`
}

func (p *ProductPage) UnmarshalJSON(b []byte) error {
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '[' {
		var list []model.Product
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		p.Products, p.Total = list, len(list)
		return nil
	}
	type page ProductPage
	var out page
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*p = ProductPage(out)
	if p.Total == 0 {
		p.Total = len(p.Products)
	}
	return nil
}

func (c *Client) ListProducts(ctx context.Context, q model.ProductQuery) (ProductPage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	var out ProductPage
	err := c.do(ctx, request{method: http.MethodGet, path: "products/", query: params}, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (model.Product, error) {
	var out model.Product
	err := c.do(ctx, request{method: http.MethodGet, path: "products/" + url.PathEscape(id) + "/"}, &out)
	return out, err
}

// CreateProduct posts the form as multipart so an image file can ride
// along. img may be nil.
func (c *Client) CreateProduct(ctx context.Context, in model.ProductInput, img *ImageUpload) (model.Product, error) {
	var out model.Product
	err := c.do(ctx, request{method: http.MethodPost, path: "products/", form: productForm(in, img)}, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in model.ProductInput, img *ImageUpload) (model.Product, error) {
	var out model.Product
	err := c.do(ctx, request{method: http.MethodPatch, path: "products/" + url.PathEscape(id) + "/", form: productForm(in, img)}, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "products/" + url.PathEscape(id) + "/"}, nil)
}

func productForm(in model.ProductInput, img *ImageUpload) *formBody {
	fields := map[string]string{
		"name":        in.Name,
		"sku":         in.SKU,
		"description": in.Description,
		"price":       in.Price.StringFixed(2),
		"stock":       strconv.Itoa(in.Stock),
		"status":      string(in.Status),
	}
	if in.Image != "" && img == nil {
		fields["image_url"] = in.Image
	}
	return &formBody{fields: fields, image: img}
}
