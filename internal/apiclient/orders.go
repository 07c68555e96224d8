package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/shopflow/internal/model"
)

func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	err := c.do(ctx, request{method: http.MethodGet, path: "orders/"}, &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, request{method: http.MethodGet, path: "orders/" + url.PathEscape(id) + "/"}, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, in model.OrderInput) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, request{method: http.MethodPost, path: "orders/", body: in}, &out)
	return out, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, error) {
	var out model.Order
	body := map[string]model.OrderStatus{"status": status}
	err := c.do(ctx, request{method: http.MethodPatch, path: "orders/" + url.PathEscape(id) + "/status/", body: body}, &out)
	return out, err
}

// Payments. The provider-side steps (card entry, 3-D Secure, wallet PIN)
// happen on the provider's own pages; these calls only open and close the
// exchange.

func (c *Client) CreateStripeIntent(ctx context.Context, orderID string) (model.PaymentIntent, error) {
	var out model.PaymentIntent
	body := map[string]string{"orderId": orderID}
	err := c.do(ctx, request{method: http.MethodPost, path: "payments/stripe/create-intent/", body: body}, &out)
	return out, err
}

func (c *Client) ConfirmStripePayment(ctx context.Context, paymentIntentID string) (model.PaymentConfirmation, error) {
	var out model.PaymentConfirmation
	body := map[string]string{"paymentIntentId": paymentIntentID}
	err := c.do(ctx, request{method: http.MethodPost, path: "payments/stripe/confirm/", body: body}, &out)
	return out, err
}

func (c *Client) InitiateBkash(ctx context.Context, orderID string) (model.BkashPayment, error) {
	var out model.BkashPayment
	body := map[string]string{"orderId": orderID}
	err := c.do(ctx, request{method: http.MethodPost, path: "payments/bkash/initiate/", body: body}, &out)
	return out, err
}

func (c *Client) ConfirmBkash(ctx context.Context, paymentID string) (model.PaymentConfirmation, error) {
	var out model.PaymentConfirmation
	body := map[string]string{"paymentId": paymentID}
	err := c.do(ctx, request{method: http.MethodPost, path: "payments/bkash/confirm/", body: body}, &out)
	return out, err
}
