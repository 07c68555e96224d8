// Package checkout turns the cart into an order. A submission is a single
// step: the order is created, payment is started with the chosen provider,
// and the cart is emptied. Anything the provider does afterwards (card
// entry, 3-D Secure, wallet PIN) happens on its own pages.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/iliyamo/shopflow/internal/cart"
	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
)

// OrdersPath is where the visual layer goes after a successful checkout.
const OrdersPath = "/orders"

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrLoginRequired        = errors.New("login required")
	ErrSubmissionInProgress = errors.New("an order is already being submitted")
	ErrPaymentsDisabled     = errors.New("payment confirmation is not available")
)

// Cart is the part of *cart.Cart checkout needs.
type Cart interface {
	Lines() []cart.Line
	Deduct(ctx context.Context, ordered []cart.Line) error
}

// Identity reports who is checking out.
type Identity interface {
	UserID() string
}

// Request is the checkout form.
type Request struct {
	ShippingAddress model.Address         `json:"shippingAddress"`
	PaymentProvider model.PaymentProvider `json:"paymentProvider"`
}

// PaymentStart tells the visual layer how to hand the user to the
// provider: a Stripe client secret or a bKash redirect.
type PaymentStart struct {
	Provider        model.PaymentProvider `json:"provider"`
	ClientSecret    string                `json:"clientSecret,omitempty"`
	PaymentIntentID string                `json:"paymentIntentId,omitempty"`
	PaymentID       string                `json:"paymentId,omitempty"`
	RedirectURL     string                `json:"redirectUrl,omitempty"`
}

// Result of a successful submission. PaymentError is set when the order was
// created but the provider could not be reached; the order then stays
// pending and can be paid from the order page.
type Result struct {
	Order        model.Order   `json:"order"`
	Payment      *PaymentStart `json:"payment,omitempty"`
	PaymentError string        `json:"paymentError,omitempty"`
	Redirect     string        `json:"redirect"`
}

// Submitter places the order.
type Submitter interface {
	Submit(ctx context.Context, userID string, lines []cart.Line, req Request) (Result, error)
}

// Confirmer forwards provider callbacks to the Payment API.
type Confirmer interface {
	ConfirmStripePayment(ctx context.Context, paymentIntentID string) (model.PaymentConfirmation, error)
	ConfirmBkash(ctx context.Context, paymentID string) (model.PaymentConfirmation, error)
}

type Service struct {
	cart      Cart
	identity  Identity
	submitter Submitter
	confirmer Confirmer

	inFlight atomic.Bool
}

// NewService wires checkout. confirmer may be nil when orders are
// simulated.
func NewService(c Cart, id Identity, sub Submitter, confirmer Confirmer) *Service {
	return &Service{cart: c, identity: id, submitter: sub, confirmer: confirmer}
}

// Submit validates the request and places the order. On success the
// ordered lines leave the cart; on failure the cart is left untouched so
// the user can retry.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	userID := s.identity.UserID()
	if userID == "" {
		return Result{}, ErrLoginRequired
	}
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return Result{}, ErrEmptyCart
	}
	req.ShippingAddress = req.ShippingAddress.Normalized()
	if err := req.ShippingAddress.Validate(); err != nil {
		return Result{}, err
	}
	if !req.PaymentProvider.Valid() {
		return Result{}, errs.Validation("paymentProvider", "Please select a payment method.")
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSubmissionInProgress
	}
	defer s.inFlight.Store(false)

	res, err := s.submitter.Submit(ctx, userID, lines, req)
	if err != nil {
		log.Printf("checkout: submit failed: %v", err)
		return Result{}, err
	}
	if err := s.cart.Deduct(ctx, lines); err != nil {
		log.Printf("checkout: order %s placed but cart not cleared: %v", res.Order.ID, err)
	}
	res.Redirect = OrdersPath
	log.Printf("checkout: order %s placed via %s", res.Order.ID, req.PaymentProvider)
	return res, nil
}

func (s *Service) ConfirmStripe(ctx context.Context, paymentIntentID string) (model.PaymentConfirmation, error) {
	if s.confirmer == nil {
		return model.PaymentConfirmation{}, ErrPaymentsDisabled
	}
	if paymentIntentID == "" {
		return model.PaymentConfirmation{}, errs.Validation("paymentIntentId", "Payment intent id is required.")
	}
	conf, err := s.confirmer.ConfirmStripePayment(ctx, paymentIntentID)
	if err != nil {
		return model.PaymentConfirmation{}, fmt.Errorf("checkout: confirm stripe: %w", err)
	}
	return conf, nil
}

func (s *Service) ConfirmBkash(ctx context.Context, paymentID string) (model.PaymentConfirmation, error) {
	if s.confirmer == nil {
		return model.PaymentConfirmation{}, ErrPaymentsDisabled
	}
	if paymentID == "" {
		return model.PaymentConfirmation{}, errs.Validation("paymentId", "Payment id is required.")
	}
	conf, err := s.confirmer.ConfirmBkash(ctx, paymentID)
	if err != nil {
		return model.PaymentConfirmation{}, fmt.Errorf("checkout: confirm bkash: %w", err)
	}
	return conf, nil
}
