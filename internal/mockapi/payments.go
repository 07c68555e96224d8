package mockapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/queue"
	"github.com/iliyamo/shopflow/internal/repository"
	"github.com/iliyamo/shopflow/internal/utils"
)

type orderRefReq struct {
	OrderID string `json:"orderId"`
}

type stripeConfirmReq struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type bkashConfirmReq struct {
	PaymentID string `json:"paymentId"`
}

// CreateStripeIntent opens a simulated Stripe payment for one of the
// caller's pending stripe orders.
func (s *Server) CreateStripeIntent(c echo.Context) error {
	var req orderRefReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := s.payableOrder(ctx, c, req.OrderID, model.ProviderStripe)
	if err != nil {
		return paymentError(c, err)
	}
	id, err := utils.RandomHex(12)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create intent failed"})
	}
	secret, err := utils.RandomHex(12)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create intent failed"})
	}
	intent := model.PaymentIntent{PaymentIntentID: "pi_" + id}
	intent.ClientSecret = intent.PaymentIntentID + "_secret_" + secret
	if err := s.orders.AttachPayment(ctx, o.ID, intent.PaymentIntentID); err != nil {
		return paymentError(c, err)
	}
	return c.JSON(http.StatusOK, intent)
}

func (s *Server) ConfirmStripe(c echo.Context) error {
	var req stripeConfirmReq
	if err := c.Bind(&req); err != nil || req.PaymentIntentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "paymentIntentId required"})
	}
	return s.settle(c, req.PaymentIntentID, "ch_")
}

// InitiateBkash opens a simulated bKash payment. The client is expected to
// send the user to RedirectURL and confirm once they come back.
func (s *Server) InitiateBkash(c echo.Context) error {
	var req orderRefReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := s.payableOrder(ctx, c, req.OrderID, model.ProviderBkash)
	if err != nil {
		return paymentError(c, err)
	}
	id, err := utils.RandomHex(10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "initiate failed"})
	}
	pay := model.BkashPayment{PaymentID: "TR" + id}
	pay.RedirectURL = s.cfg.BkashURL + "?" + url.Values{"paymentId": {pay.PaymentID}}.Encode()
	if err := s.orders.AttachPayment(ctx, o.ID, pay.PaymentID); err != nil {
		return paymentError(c, err)
	}
	return c.JSON(http.StatusOK, pay)
}

func (s *Server) ConfirmBkash(c echo.Context) error {
	var req bkashConfirmReq
	if err := c.Bind(&req); err != nil || req.PaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "paymentId required"})
	}
	return s.settle(c, req.PaymentID, "BK")
}

var errNotPayable = errors.New("order is not awaiting payment")

func (s *Server) payableOrder(ctx context.Context, c echo.Context, orderID string, p model.PaymentProvider) (model.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil || o.UserID != s.uid(c) {
		return model.Order{}, repository.ErrNotFound
	}
	if o.PaymentProvider != p || o.PaymentStatus != model.PaymentPending || o.Status == model.OrderCancelled {
		return model.Order{}, errNotPayable
	}
	return o, nil
}

// settle marks the payment as successful and publishes order.paid the first
// time it happens. Repeated confirmations return the stored outcome.
func (s *Server) settle(c echo.Context, ref, txPrefix string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	before, err := s.orders.ByPayment(ctx, ref)
	if err != nil || before.UserID != s.uid(c) {
		return paymentError(c, repository.ErrNotFound)
	}
	if before.PaymentStatus != model.PaymentPending {
		return c.JSON(http.StatusOK, confirmation(before))
	}
	tx, err := utils.RandomHex(8)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}
	o, err := s.orders.SettlePayment(ctx, ref, model.PaymentSuccess, txPrefix+tx)
	if err != nil {
		return paymentError(c, err)
	}

	ev := queue.OrderPaidEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Provider:      string(o.PaymentProvider),
		TransactionID: o.TransactionID,
		Total:         o.Total.StringFixed(2),
		ItemCount:     o.ItemCount(),
		PaidAt:        time.Now().UTC(),
	}
	// fulfillment lags behind payment; a lost event leaves the order pending
	if err := s.events.PublishOrderPaid(ctx, ev); err != nil {
		log.Printf("mockapi: publish order.paid for %s: %v", o.ID, err)
	}
	return c.JSON(http.StatusOK, confirmation(o))
}

func confirmation(o model.Order) model.PaymentConfirmation {
	return model.PaymentConfirmation{OrderID: o.ID, PaymentStatus: o.PaymentStatus, TransactionID: o.TransactionID}
}

func paymentError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	case errors.Is(err, errNotPayable):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errNotPayable.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
	}
}
