package mockapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/config"
	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/repository"
	"github.com/iliyamo/shopflow/internal/session"
	"github.com/iliyamo/shopflow/internal/storage"
)

type staticToken string

func (t staticToken) AccessToken() string { return string(t) }

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) send(email string, p repository.OTPPurpose, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.codes == nil {
		b.codes = map[string]string{}
	}
	b.codes[string(p)+":"+email] = code
}

func (b *codeBox) get(email string, p repository.OTPPurpose) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[string(p)+":"+email]
}

type env struct {
	srv   *Server
	url   string
	codes *codeBox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	box := &codeBox{}
	cfg := config.MockConfig{
		JWTSecret:    "test-secret",
		AccessTTLMin: 5,
		BcryptCost:   bcrypt.MinCost,
		OTPTTL:       time.Minute,
		BkashURL:     "http://bkash.test/checkout",
	}
	s := New(cfg, WithOTPSender(box.send))
	require.NoError(t, s.Seed(context.Background()))
	e := echo.New()
	s.Mount(e)
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return &env{srv: s, url: ts.URL, codes: box}
}

func (v *env) client() *apiclient.Client { return apiclient.New(v.url + "/api") }

// as logs in and returns a client carrying the credential.
func (v *env) as(t *testing.T, email, password string) *apiclient.Client {
	t.Helper()
	resp, err := v.client().Login(context.Background(), email, password)
	require.NoError(t, err)
	c := v.client()
	c.SetTokenSource(staticToken(resp.Access))
	return c
}

func (v *env) productBySKU(t *testing.T, sku string) model.Product {
	t.Helper()
	page, err := v.client().ListProducts(context.Background(), model.ProductQuery{Search: sku})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	return page.Products[0]
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
	return apiErr.Status
}

var testAddress = model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"}

func TestLoginWithSeededAccounts(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()

	resp, err := v.client().Login(ctx, "USER@example.com ", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Access)
	assert.Equal(t, "user@example.com", resp.User.Email)
	assert.Equal(t, model.RoleUser, resp.User.Role)

	resp, err = v.client().Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, resp.User.IsAdmin())

	sess := session.New(v.client(), session.NewStorageRepository(storage.NewMemory()))
	_, err = sess.Login(ctx, "user@example.com", "wrong")
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid credentials", authErr.Message)
	assert.False(t, sess.IsAuthenticated())
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	sess := session.New(v.client(), session.NewStorageRepository(storage.NewMemory()))

	in := session.RegisterInput{Name: "New Shopper", Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret1"}
	require.NoError(t, sess.Register(ctx, in))
	code := v.codes.get("new@example.com", repository.PurposeVerify)
	require.Len(t, code, 6)

	_, err := sess.Login(ctx, in.Email, in.Password)
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusForbidden, authErr.Status)

	err = sess.Register(ctx, in)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "user with this email already exists.", authErr.Message)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.True(t, errs.IsAuth(sess.VerifyOTP(ctx, in.Email, wrong)))
	require.NoError(t, sess.VerifyOTP(ctx, in.Email, code))
	// codes are single use
	assert.True(t, errs.IsAuth(sess.VerifyOTP(ctx, in.Email, code)))

	user, err := sess.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	assert.Equal(t, "New Shopper", user.Name)

	profile, err := v.as(t, in.Email, in.Password).Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
}

func TestPasswordReset(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	c := v.client()

	_, err := c.ForgotPassword(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, v.codes.get("nobody@example.com", repository.PurposeReset))

	_, err = c.ForgotPassword(ctx, "user@example.com")
	require.NoError(t, err)
	code := v.codes.get("user@example.com", repository.PurposeReset)
	require.NotEmpty(t, code)

	_, err = c.ResetPassword(ctx, apiclient.ResetPasswordPayload{Email: "user@example.com", OTPCode: code, NewPassword: "abc"})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	_, err = c.ResetPassword(ctx, apiclient.ResetPasswordPayload{Email: "user@example.com", OTPCode: code, NewPassword: "n3w-pass"})
	require.NoError(t, err)

	_, err = c.Login(ctx, "user@example.com", "password")
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))
	_, err = c.Login(ctx, "user@example.com", "n3w-pass")
	require.NoError(t, err)
}

func TestResendOTP(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	c := v.client()

	_, err := c.ResendOTP(ctx, "user@example.com")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "already verified")

	_, err = c.Register(ctx, apiclient.RegisterPayload{Name: "P", Email: "p@example.com", Password: "secret1"})
	require.NoError(t, err)
	first := v.codes.get("p@example.com", repository.PurposeVerify)
	_, err = c.ResendOTP(ctx, "p@example.com")
	require.NoError(t, err)
	second := v.codes.get("p@example.com", repository.PurposeVerify)

	_, err = c.VerifyOTP(ctx, apiclient.VerifyOTPPayload{Email: "p@example.com", OTPCode: second})
	require.NoError(t, err)
	if first != second {
		_, err = c.VerifyOTP(ctx, apiclient.VerifyOTPPayload{Email: "p@example.com", OTPCode: first})
		assert.Error(t, err)
	}
}

func TestProductListing(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()

	page, err := v.client().ListProducts(ctx, model.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, len(seedCatalog), page.Total)
	// newest first
	assert.Equal(t, "ART-502", page.Products[0].SKU)

	page, err = v.client().ListProducts(ctx, model.ProductQuery{Page: 2, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, len(seedCatalog), page.Total)
	assert.Len(t, page.Products, 2)

	page, err = v.client().ListProducts(ctx, model.ProductQuery{Search: "lamp"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Desk Lamp", page.Products[0].Name)

	_, err = v.client().GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestAdminProductCRUD(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	admin := v.as(t, "admin@example.com", "admin123")

	in := model.ProductInput{Name: "Tea Kettle", SKU: "KIT-100", Description: "1.7 l", Price: decimal.RequireFromString("39.5"), Stock: 6}
	img := &apiclient.ImageUpload{Filename: "kettle.png", Data: bytes.NewReader([]byte("\x89PNG\r\n\x1a\nfake"))}
	p, err := admin.CreateProduct(ctx, in, img)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, model.ProductActive, p.Status)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("39.50")))
	require.True(t, strings.HasPrefix(p.Image, v.url+"/media/"), p.Image)

	res, err := http.Get(p.Image)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "fake")

	_, err = admin.CreateProduct(ctx, in, nil)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))

	in.Stock, in.Status = 0, model.ProductInactive
	updated, err := admin.UpdateProduct(ctx, p.ID, in, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, p.Image, updated.Image, "image kept when none is sent")

	user := v.as(t, "user@example.com", "password")
	_, err = user.CreateProduct(ctx, in, nil)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	require.NoError(t, admin.DeleteProduct(ctx, p.ID))
	_, err = v.client().GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
	assert.ErrorIs(t, admin.DeleteProduct(ctx, p.ID), apiclient.ErrNotFound)
}

func TestCreateOrderAndPayWithStripe(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	user := v.as(t, "user@example.com", "password")
	headphones := v.productBySKU(t, "AUD-001")

	o, err := user.CreateOrder(ctx, model.OrderInput{
		Items:           []model.OrderLineInput{{ProductID: headphones.ID, Quantity: 2}},
		PaymentProvider: model.ProviderStripe,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, model.PaymentPending, o.PaymentStatus)
	assert.Equal(t, "259.98", o.Total.StringFixed(2))
	assert.Equal(t, model.DefaultCountry, o.ShippingAddress.Country)
	assert.Equal(t, headphones.Stock-2, v.productBySKU(t, "AUD-001").Stock)

	intent, err := user.CreateStripeIntent(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(intent.PaymentIntentID, "pi_"))
	assert.Contains(t, intent.ClientSecret, "_secret_")

	conf, err := user.ConfirmStripePayment(ctx, intent.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, conf.OrderID)
	assert.Equal(t, model.PaymentSuccess, conf.PaymentStatus)
	assert.True(t, strings.HasPrefix(conf.TransactionID, "ch_"))

	again, err := user.ConfirmStripePayment(ctx, intent.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, conf.TransactionID, again.TransactionID)

	got, err := user.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderProcessing, got.Status, "fulfillment runs in process")

	_, err = user.CreateStripeIntent(ctx, o.ID)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "already paid")
}

func TestPayWithBkash(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	user := v.as(t, "user@example.com", "password")
	mug := v.productBySKU(t, "KIT-014")

	o, err := user.CreateOrder(ctx, model.OrderInput{
		Items:           []model.OrderLineInput{{ProductID: mug.ID, Quantity: 1}},
		PaymentProvider: model.ProviderBkash,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)

	_, err = user.CreateStripeIntent(ctx, o.ID)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err), "provider mismatch")

	pay, err := user.InitiateBkash(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://bkash.test/checkout?paymentId="+pay.PaymentID, pay.RedirectURL)

	conf, err := user.ConfirmBkash(ctx, pay.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, conf.PaymentStatus)

	admin := v.as(t, "admin@example.com", "admin123")
	_, err = admin.ConfirmBkash(ctx, pay.PaymentID)
	assert.ErrorIs(t, err, apiclient.ErrNotFound, "payments are scoped to the owner")
}

func TestCreateOrderRejections(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	user := v.as(t, "user@example.com", "password")
	backpack := v.productBySKU(t, "BAG-077")

	tests := []struct {
		name string
		in   model.OrderInput
	}{
		{"no items", model.OrderInput{PaymentProvider: model.ProviderStripe, ShippingAddress: testAddress}},
		{"bad provider", model.OrderInput{Items: []model.OrderLineInput{{ProductID: backpack.ID, Quantity: 1}}, PaymentProvider: "cash", ShippingAddress: testAddress}},
		{"missing address", model.OrderInput{Items: []model.OrderLineInput{{ProductID: backpack.ID, Quantity: 1}}, PaymentProvider: model.ProviderStripe}},
		{"out of stock", model.OrderInput{Items: []model.OrderLineInput{{ProductID: v.productBySKU(t, "CMP-310").ID, Quantity: 1}}, PaymentProvider: model.ProviderStripe, ShippingAddress: testAddress}},
		{"inactive", model.OrderInput{Items: []model.OrderLineInput{{ProductID: v.productBySKU(t, "ART-502").ID, Quantity: 1}}, PaymentProvider: model.ProviderStripe, ShippingAddress: testAddress}},
		{"merged lines exceed stock", model.OrderInput{Items: []model.OrderLineInput{{ProductID: backpack.ID, Quantity: 2}, {ProductID: backpack.ID, Quantity: 2}}, PaymentProvider: model.ProviderStripe, ShippingAddress: testAddress}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := user.CreateOrder(ctx, tt.in)
			assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
		})
	}
	assert.Equal(t, backpack.Stock, v.productBySKU(t, "BAG-077").Stock, "failed orders take no stock")
}

func TestOrdersScopedAndAdminStatus(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	user := v.as(t, "user@example.com", "password")
	admin := v.as(t, "admin@example.com", "admin123")
	lamp := v.productBySKU(t, "HOM-203")

	o, err := user.CreateOrder(ctx, model.OrderInput{
		Items:           []model.OrderLineInput{{ProductID: lamp.ID, Quantity: 3}},
		PaymentProvider: model.ProviderStripe,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)

	mine, err := user.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	theirs, err := admin.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = admin.GetOrder(ctx, o.ID)
	require.NoError(t, err)

	_, err = user.UpdateOrderStatus(ctx, o.ID, model.OrderShipped)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	shipped, err := admin.UpdateOrderStatus(ctx, o.ID, model.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, shipped.Status)

	_, err = admin.UpdateOrderStatus(ctx, o.ID, model.OrderPending)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))

	_, err = admin.UpdateOrderStatus(ctx, o.ID, model.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, lamp.Stock, v.productBySKU(t, "HOM-203").Stock, "cancel returns stock")
}

func TestRejectedTokenFiresHookOnlyForAuthenticatedCalls(t *testing.T) {
	v := newEnv(t)
	ctx := context.Background()
	var fired atomic.Int32
	c := v.client()
	c.SetTokenSource(staticToken("not-a-jwt"))
	var rejected string
	c.OnUnauthorized(func(token string) {
		rejected = token
		fired.Add(1)
	})

	_, err := c.ListProducts(ctx, model.ProductQuery{})
	require.NoError(t, err)
	_, err = c.Login(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Zero(t, fired.Load())

	_, err = c.ListOrders(ctx)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, "not-a-jwt", rejected)
}
