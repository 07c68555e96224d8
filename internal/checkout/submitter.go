package checkout

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/shopflow/internal/cart"
	"github.com/iliyamo/shopflow/internal/model"
)

// OrderAPI is the order and payment-start side of the storefront API.
type OrderAPI interface {
	CreateOrder(ctx context.Context, in model.OrderInput) (model.Order, error)
	CreateStripeIntent(ctx context.Context, orderID string) (model.PaymentIntent, error)
	InitiateBkash(ctx context.Context, orderID string) (model.BkashPayment, error)
}

// APISubmitter creates the order through the Order API and then starts the
// payment with the chosen provider.
type APISubmitter struct {
	api OrderAPI
}

func NewAPISubmitter(api OrderAPI) *APISubmitter {
	return &APISubmitter{api: api}
}

func (s *APISubmitter) Submit(ctx context.Context, _ string, lines []cart.Line, req Request) (Result, error) {
	in := model.OrderInput{
		Items:           make([]model.OrderLineInput, 0, len(lines)),
		PaymentProvider: req.PaymentProvider,
		ShippingAddress: req.ShippingAddress,
	}
	for _, l := range lines {
		in.Items = append(in.Items, model.OrderLineInput{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	order, err := s.api.CreateOrder(ctx, in)
	if err != nil {
		return Result{}, err
	}

	res := Result{Order: order}
	pay := &PaymentStart{Provider: req.PaymentProvider}
	switch req.PaymentProvider {
	case model.ProviderStripe:
		intent, err := s.api.CreateStripeIntent(ctx, order.ID)
		if err != nil {
			return paymentFailed(res, err), nil
		}
		pay.ClientSecret = intent.ClientSecret
		pay.PaymentIntentID = intent.PaymentIntentID
	case model.ProviderBkash:
		bk, err := s.api.InitiateBkash(ctx, order.ID)
		if err != nil {
			return paymentFailed(res, err), nil
		}
		pay.PaymentID = bk.PaymentID
		pay.RedirectURL = bk.RedirectURL
	}
	res.Payment = pay
	return res, nil
}

func paymentFailed(res Result, err error) Result {
	log.Printf("checkout: order %s created, payment not started: %v", res.Order.ID, err)
	res.PaymentError = "Your order was placed but the payment could not be started. You can retry from your orders."
	return res
}

// Recorder stores orders placed in simulated mode.
type Recorder interface {
	Record(o model.Order)
}

// SimulatedSubmitter places orders locally after a fixed delay. It is
// used when no order backend is available.
type SimulatedSubmitter struct {
	delay    time.Duration
	recorder Recorder
	now      func() time.Time
}

func NewSimulatedSubmitter(delay time.Duration, rec Recorder) *SimulatedSubmitter {
	return &SimulatedSubmitter{delay: delay, recorder: rec, now: time.Now}
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, userID string, lines []cart.Line, req Request) (Result, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-t.C:
		}
	}

	now := s.now().UTC()
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.OrderItem{
			ProductID:    l.Product.ID,
			ProductName:  l.Product.Name,
			ProductImage: l.Product.Image,
			Quantity:     l.Quantity,
			Price:        l.Product.Price,
		})
	}
	order := model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		Total:           model.OrderTotal(items),
		Status:          model.OrderPending,
		PaymentProvider: req.PaymentProvider,
		PaymentStatus:   model.PaymentSuccess,
		TransactionID:   "sim_" + uuid.NewString()[:8],
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if s.recorder != nil {
		s.recorder.Record(order)
	}
	return Result{Order: order}, nil
}
