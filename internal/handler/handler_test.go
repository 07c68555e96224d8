package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/cart"
	"github.com/iliyamo/shopflow/internal/catalog"
	"github.com/iliyamo/shopflow/internal/checkout"
	"github.com/iliyamo/shopflow/internal/config"
	"github.com/iliyamo/shopflow/internal/handler"
	"github.com/iliyamo/shopflow/internal/mockapi"
	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/orders"
	"github.com/iliyamo/shopflow/internal/router"
	"github.com/iliyamo/shopflow/internal/session"
	"github.com/iliyamo/shopflow/internal/storage"
)

type storefront struct {
	e    *echo.Echo
	sess *session.Session
	cart *cart.Cart
}

// newStorefront wires the local API against a seeded mock backend, the
// same way cmd/storefront does. ttlMin controls the lifetime of the
// tokens the backend issues.
func newStorefront(t *testing.T, ttlMin int) *storefront {
	t.Helper()
	ctx := context.Background()

	mock := mockapi.New(config.MockConfig{
		JWTSecret:    "test-secret",
		AccessTTLMin: ttlMin,
		BcryptCost:   bcrypt.MinCost,
		OTPTTL:       time.Minute,
		BkashURL:     "http://bkash.test/checkout",
	})
	require.NoError(t, mock.Seed(ctx))
	me := echo.New()
	mock.Mount(me)
	backend := httptest.NewServer(me)
	t.Cleanup(backend.Close)

	client := apiclient.New(backend.URL + "/api")
	store := storage.NewMemory()
	sess := session.New(client, session.NewStorageRepository(store))
	client.SetTokenSource(sess)
	client.OnUnauthorized(func(token string) { sess.ForceLogout(token, "credential rejected") })

	crt := cart.New(cart.NewStorageRepository(store))
	require.NoError(t, crt.Load(ctx))
	sess.OnIdentityChange(func(u *model.User) {
		if u != nil {
			_ = crt.Bind(context.Background(), u.ID)
		}
	})

	products := catalog.NewService(client)
	co := checkout.NewService(crt, sess, checkout.NewAPISubmitter(client), client)
	ord := handler.NewOrderHandler(orders.NewService(client))
	ch := handler.NewCatalogHandler(products, nil)
	throttle := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sess), throttle)
	router.RegisterCatalog(e, ch, nil)
	router.RegisterCart(e, handler.NewCartHandler(crt, products))
	router.RegisterCustomer(e, sess, handler.NewCheckoutHandler(co, nil), ord, throttle)
	router.RegisterAdmin(e, sess, ch, ord)
	return &storefront{e: e, sess: sess, cart: crt}
}

func (s *storefront) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(bs)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *storefront) login(t *testing.T, email, password string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/login", echo.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *storefront) productID(t *testing.T, sku string) string {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/v1/products?search="+sku, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing catalog.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Products, 1)
	return listing.Products[0].ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type note struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Field    string `json:"field"`
	Redirect string `json:"redirect"`
}

var address = model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"}

func TestHealth(t *testing.T) {
	s := newStorefront(t, 5)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginNotifications(t *testing.T) {
	s := newStorefront(t, 5)

	tests := []struct {
		name    string
		body    echo.Map
		status  int
		message string
	}{
		{"empty fields", echo.Map{"email": "", "password": ""}, http.StatusBadRequest, "Please fill in all fields."},
		{"wrong password", echo.Map{"email": "user@example.com", "password": "nope"}, http.StatusUnauthorized, "invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/auth/login", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			n := decode[note](t, rec)
			assert.Equal(t, tt.message, n.Message)
			assert.Empty(t, n.Redirect)
		})
	}

	st := decode[session.State](t, s.do(t, http.MethodGet, "/v1/session", nil))
	assert.False(t, st.Authenticated)

	s.login(t, "user@example.com", "password")
	st = decode[session.State](t, s.do(t, http.MethodGet, "/v1/session", nil))
	require.True(t, st.Authenticated)
	assert.Equal(t, "user@example.com", st.User.Email)

	rec := s.do(t, http.MethodPost, "/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, s.sess.IsAuthenticated())
}

func TestRegisterNotifications(t *testing.T) {
	s := newStorefront(t, 5)
	rec := s.do(t, http.MethodPost, "/v1/auth/register", echo.Map{
		"name": "A", "email": "a@example.com", "password": "secret1", "confirmPassword": "secret2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	n := decode[note](t, rec)
	assert.Equal(t, "Passwords do not match.", n.Message)
	assert.Equal(t, "confirmPassword", n.Field)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", echo.Map{
		"name": "Dup", "email": "user@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user with this email already exists.", decode[note](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", echo.Map{
		"name": "New", "email": "new@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, s.sess.IsAuthenticated())

	rec = s.do(t, http.MethodPost, "/v1/auth/verify-otp", echo.Map{"email": "new@example.com", "code": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "otp", decode[note](t, rec).Field)
}

func TestGuestCart(t *testing.T) {
	s := newStorefront(t, 5)
	headphones := s.productID(t, "AUD-001")

	rec := s.do(t, http.MethodPost, "/v1/cart/items", echo.Map{"productId": headphones, "quantity": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[cart.Summary](t, rec)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, 15, sum.Lines[0].Quantity, "clamped to stock")
	assert.True(t, sum.Shipping.IsZero())

	rec = s.do(t, http.MethodPost, "/v1/cart/items", echo.Map{"productId": s.productID(t, "ART-502")})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "inactive product")

	rec = s.do(t, http.MethodPost, "/v1/cart/items", echo.Map{"productId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPatch, "/v1/cart/items/"+headphones, echo.Map{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	sum = decode[cart.Summary](t, rec)
	assert.Empty(t, sum.Lines)
	assert.Equal(t, "5.99", sum.Shipping.StringFixed(2))
}

func TestCheckoutRequiresLogin(t *testing.T) {
	s := newStorefront(t, 5)
	rec := s.do(t, http.MethodPost, "/v1/checkout", echo.Map{"shippingAddress": address, "paymentProvider": "stripe"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", decode[note](t, rec).Redirect)

	rec = s.do(t, http.MethodGet, "/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutAndOrderHistory(t *testing.T) {
	s := newStorefront(t, 5)
	s.login(t, "user@example.com", "password")

	rec := s.do(t, http.MethodPost, "/v1/checkout", echo.Map{"shippingAddress": address, "paymentProvider": "stripe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cart is empty", decode[note](t, rec).Error)

	mug := s.productID(t, "KIT-014")
	rec = s.do(t, http.MethodPost, "/v1/cart/items", echo.Map{"productId": mug, "quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[cart.Summary](t, rec)
	assert.Equal(t, "58.00", sum.Total.StringFixed(2), "free shipping over 50")

	rec = s.do(t, http.MethodPost, "/v1/checkout", echo.Map{"shippingAddress": model.Address{Street: "x"}, "paymentProvider": "stripe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, s.cart.ItemCount(), "failed checkout keeps the cart")

	rec = s.do(t, http.MethodPost, "/v1/checkout", echo.Map{"shippingAddress": address, "paymentProvider": "stripe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[checkout.Result](t, rec)
	assert.Equal(t, checkout.OrdersPath, res.Redirect)
	require.NotNil(t, res.Payment)
	assert.NotEmpty(t, res.Payment.ClientSecret)
	assert.True(t, s.cart.IsEmpty())

	rec = s.do(t, http.MethodPost, "/v1/payments/stripe/confirm", echo.Map{"paymentIntentId": res.Payment.PaymentIntentID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.PaymentSuccess, decode[model.PaymentConfirmation](t, rec).PaymentStatus)

	list := decode[[]model.Order](t, s.do(t, http.MethodGet, "/v1/orders", nil))
	require.Len(t, list, 1)
	assert.Equal(t, model.OrderProcessing, list[0].Status)

	rec = s.do(t, http.MethodGet, "/v1/orders/"+list[0].ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	d := decode[orders.Dashboard](t, s.do(t, http.MethodGet, "/v1/dashboard", nil))
	assert.Equal(t, 1, d.OrderCount)
	assert.Equal(t, 4, d.ItemsPurchased)
	assert.True(t, d.TotalSpent.Equal(decimal.NewFromInt(58)))
}

func TestAdminPanel(t *testing.T) {
	s := newStorefront(t, 5)
	form := echo.Map{"name": "Tea Kettle", "sku": "KIT-100", "price": "39.50", "stock": 6}

	rec := s.do(t, http.MethodPost, "/v1/admin/products", form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.login(t, "user@example.com", "password")
	rec = s.do(t, http.MethodPost, "/v1/admin/products", form)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.login(t, "admin@example.com", "admin123")
	rec = s.do(t, http.MethodPost, "/v1/admin/products", echo.Map{"name": "", "sku": "X", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name", decode[note](t, rec).Field)

	rec = s.do(t, http.MethodPost, "/v1/admin/products", form)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Product](t, rec)
	assert.Equal(t, model.ProductActive, p.Status)

	rec = s.do(t, http.MethodPost, "/v1/admin/products/"+p.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ProductInactive, decode[model.Product](t, rec).Status)

	rec = s.do(t, http.MethodDelete, "/v1/admin/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminProductMultipart(t *testing.T) {
	s := newStorefront(t, 5)
	s.login(t, "admin@example.com", "admin123")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"name": "Poster", "sku": "ART-900", "price": "12", "stock": "3", "status": "active"} {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("image", "poster.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nposter"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/products", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Product](t, rec)
	assert.Contains(t, p.Image, "/media/")
	assert.Equal(t, "12.00", p.Price.StringFixed(2))
}

func TestAdminOrderStatus(t *testing.T) {
	s := newStorefront(t, 5)
	s.login(t, "user@example.com", "password")
	lamp := s.productID(t, "HOM-203")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/cart/items", echo.Map{"productId": lamp}).Code)
	rec := s.do(t, http.MethodPost, "/v1/checkout", echo.Map{"shippingAddress": address, "paymentProvider": "bkash"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[checkout.Result](t, rec)
	require.NotNil(t, res.Payment)
	assert.Contains(t, res.Payment.RedirectURL, "paymentId=")

	s.login(t, "admin@example.com", "admin123")
	rec = s.do(t, http.MethodPatch, "/v1/admin/orders/"+res.Order.ID+"/status", echo.Map{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.OrderShipped, decode[model.Order](t, rec).Status)

	rec = s.do(t, http.MethodPatch, "/v1/admin/orders/"+res.Order.ID+"/status", echo.Map{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status", decode[note](t, rec).Field)
}

func TestRejectedCredentialForcesLogout(t *testing.T) {
	// tokens are issued already expired
	s := newStorefront(t, -1)
	s.login(t, "user@example.com", "password")
	require.True(t, s.sess.IsAuthenticated())

	rec := s.do(t, http.MethodGet, "/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", decode[note](t, rec).Redirect)

	st := decode[session.State](t, s.do(t, http.MethodGet, "/v1/session", nil))
	assert.False(t, st.Authenticated)
	assert.True(t, st.LoginRequired)
	assert.Equal(t, session.LoginPath, st.Redirect)
}
