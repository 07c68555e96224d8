// Package mockapi is an in-memory stand-in for the storefront backend. It
// speaks the same REST contract as the real API (OTP-verified accounts,
// JWT access tokens, trailing-slash endpoints) so the storefront can run
// and be tested without one.
package mockapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/config"
	"github.com/iliyamo/shopflow/internal/middleware"
	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/queue"
	"github.com/iliyamo/shopflow/internal/repository"
)

// Events receives order.paid notifications. Both queue.Publisher and
// queue.Fulfillment (in-process) satisfy it.
type Events interface {
	PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error
}

// OTPSender delivers one-time codes. The default writes them to the log.
type OTPSender func(email string, purpose repository.OTPPurpose, code string)

type Server struct {
	cfg      config.MockConfig
	users    *repository.UserRepo
	otps     *repository.OTPRepo
	products *repository.ProductRepo
	orders   *repository.OrderRepo
	media    *mediaStore
	events   Events
	sendOTP  OTPSender
}

type Option func(*Server)

// WithEvents routes order.paid events to ev.
func WithEvents(ev Events) Option { return func(s *Server) { s.events = ev } }

// WithOTPSender replaces the log-based code delivery.
func WithOTPSender(fn OTPSender) Option { return func(s *Server) { s.sendOTP = fn } }

func New(cfg config.MockConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		users:    repository.NewUserRepo(),
		otps:     repository.NewOTPRepo(),
		products: repository.NewProductRepo(),
		orders:   repository.NewOrderRepo(),
		media:    newMediaStore(),
		sendOTP: func(email string, p repository.OTPPurpose, code string) {
			log.Printf("mockapi: %s code for %s: %s", p, email, code)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = queue.NewFulfillment("", s.orders)
	}
	return s
}

// Orders exposes the order store to the fulfillment worker.
func (s *Server) Orders() *repository.OrderRepo { return s.orders }

// Mount registers the API under /api.
func (s *Server) Mount(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/media/:name", s.ServeMedia)

	api := e.Group("/api", middleware.Delay(s.cfg.Delay))
	api.POST("/register/", s.Register)
	api.POST("/verify-otp/", s.VerifyOTP)
	api.POST("/login/", s.Login)
	api.POST("/forgot-password/", s.ForgotPassword)
	api.POST("/reset-password/", s.ResetPassword)
	api.POST("/resend-otp/", s.ResendOTP)
	api.GET("/products/", s.ListProducts)
	api.GET("/products/:id/", s.GetProduct)

	auth := api.Group("", middleware.JWTAuth(s.cfg.JWTSecret))
	auth.GET("/profile/", s.Profile)
	auth.GET("/orders/", s.ListOrders)
	auth.GET("/orders/:id/", s.GetOrder)
	auth.POST("/orders/", s.CreateOrder)
	auth.POST("/payments/stripe/create-intent/", s.CreateStripeIntent)
	auth.POST("/payments/stripe/confirm/", s.ConfirmStripe)
	auth.POST("/payments/bkash/initiate/", s.InitiateBkash)
	auth.POST("/payments/bkash/confirm/", s.ConfirmBkash)

	admin := auth.Group("", middleware.RequireRole(string(model.RoleAdmin)))
	admin.POST("/products/", s.CreateProduct)
	admin.PATCH("/products/:id/", s.UpdateProduct)
	admin.DELETE("/products/:id/", s.DeleteProduct)
	admin.PATCH("/orders/:id/status/", s.UpdateOrderStatus)
}

// Seed creates the demo accounts (user@example.com / password and
// admin@example.com / admin123) and a small catalog.
func (s *Server) Seed(ctx context.Context) error {
	if _, err := s.users.Create(ctx, "Demo User", "user@example.com", "password", model.RoleUser, true, s.cfg.BcryptCost); err != nil {
		return err
	}
	if _, err := s.users.Create(ctx, "Store Admin", "admin@example.com", "admin123", model.RoleAdmin, true, s.cfg.BcryptCost); err != nil {
		return err
	}
	for _, p := range seedCatalog {
		if _, err := s.products.Create(ctx, p); err != nil {
			return err
		}
		// distinct timestamps keep "newest" ordering deterministic
		time.Sleep(time.Millisecond)
	}
	return nil
}

var seedCatalog = []model.ProductInput{
	{Name: "Wireless Headphones", SKU: "AUD-001", Description: "Over-ear headphones with active noise cancelling.", Price: decimal.RequireFromString("129.99"), Stock: 15, Status: model.ProductActive},
	{Name: "Ceramic Coffee Mug", SKU: "KIT-014", Description: "Hand-glazed 350 ml mug.", Price: decimal.RequireFromString("14.50"), Stock: 40, Status: model.ProductActive},
	{Name: "Desk Lamp", SKU: "HOM-203", Description: "Dimmable LED lamp with warm and cool light.", Price: decimal.RequireFromString("34.00"), Stock: 8, Status: model.ProductActive},
	{Name: "Canvas Backpack", SKU: "BAG-077", Description: "Water-resistant 22 l backpack with laptop sleeve.", Price: decimal.RequireFromString("59.90"), Stock: 3, Status: model.ProductActive},
	{Name: "Mechanical Keyboard", SKU: "CMP-310", Description: "Hot-swappable switches, 75% layout.", Price: decimal.RequireFromString("89.00"), Stock: 0, Status: model.ProductActive},
	{Name: "Vintage Poster", SKU: "ART-502", Description: "Limited print, discontinued.", Price: decimal.RequireFromString("25.00"), Stock: 12, Status: model.ProductInactive},
}

func (s *Server) uid(c echo.Context) string {
	v, _ := c.Get("user_id").(string)
	return v
}

func (s *Server) isAdmin(c echo.Context) bool {
	v, _ := c.Get("role").(string)
	return v == string(model.RoleAdmin)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
