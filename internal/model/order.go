package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/errs"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderStatusRank = map[OrderStatus]int{
	OrderPending:    0,
	OrderProcessing: 1,
	OrderShipped:    2,
	OrderDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderCancelled
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool { return s == OrderDelivered || s == OrderCancelled }

// CanTransition reports whether an order may move from one status to
// another. Progress only moves forward; cancellation is allowed from any
// non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return orderStatusRank[to] > orderStatusRank[from]
}

// NextStatus returns the status that follows s in the fulfillment chain,
// or false when s is terminal.
func NextStatus(s OrderStatus) (OrderStatus, bool) {
	switch s {
	case OrderPending:
		return OrderProcessing, true
	case OrderProcessing:
		return OrderShipped, true
	case OrderShipped:
		return OrderDelivered, true
	}
	return "", false
}

// PaymentProvider is the external gateway chosen at checkout.
type PaymentProvider string

const (
	ProviderStripe PaymentProvider = "stripe"
	ProviderBkash  PaymentProvider = "bkash"
)

func (p PaymentProvider) Valid() bool { return p == ProviderStripe || p == ProviderBkash }

// PaymentStatus tracks the gateway outcome for an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// DefaultCountry is prefilled on the checkout address form.
const DefaultCountry = "USA"

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Normalized trims every field and applies DefaultCountry.
func (a Address) Normalized() Address {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Validate requires street, city, state and zip.
func (a Address) Validate() error {
	if a.Street == "" || a.City == "" || a.State == "" || a.Zip == "" {
		return errs.Validation("shippingAddress", "Please fill in all address fields.")
	}
	return nil
}

// OrderItem is a line snapshot frozen at purchase time.
type OrderItem struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// Order is immutable on the client except for the fields the external
// fulfillment process changes (Status, PaymentStatus, TransactionID).
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	PaymentProvider PaymentProvider `json:"paymentProvider"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	TransactionID   string          `json:"transactionId,omitempty"`
	ShippingAddress Address         `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ItemCount sums item quantities.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderTotal is sum(price x quantity) over items.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// OrderLineInput references a product by id in an order-creation request.
type OrderLineInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderInput is the body of the order-creation request.
type OrderInput struct {
	Items           []OrderLineInput `json:"items"`
	PaymentProvider PaymentProvider  `json:"paymentProvider"`
	ShippingAddress Address          `json:"shippingAddress"`
}

// PaymentIntent is returned by the Stripe create-intent endpoint.
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// BkashPayment is returned by the bKash initiate endpoint. The UI sends
// the user to RedirectURL.
type BkashPayment struct {
	PaymentID   string `json:"paymentId"`
	RedirectURL string `json:"redirectUrl"`
}

// PaymentConfirmation is returned by both confirm endpoints.
type PaymentConfirmation struct {
	OrderID       string        `json:"orderId"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	TransactionID string        `json:"transactionId,omitempty"`
}
