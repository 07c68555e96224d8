package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopflow/internal/config"
	"github.com/iliyamo/shopflow/internal/utils"
)

func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": c.Get("user_id"), "role": c.Get("role")})
}

func serve(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.GET("/me", ok, JWTAuth("k"))
	e.GET("/admin", ok, JWTAuth("k"), RequireRole("admin"))

	user, err := utils.NewAccessToken("k", "u1", "user", 5)
	require.NoError(t, err)
	admin, err := utils.NewAccessToken("k", "a1", "admin", 5)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken("k", "u1", "user", -1)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "u1", "admin", 5)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		bearer string
		status int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"valid", "/me", user.Token, http.StatusOK},
		{"expired", "/me", expired.Token, http.StatusUnauthorized},
		{"wrong secret", "/me", forged.Token, http.StatusUnauthorized},
		{"user on admin route", "/admin", user.Token, http.StatusForbidden},
		{"admin on admin route", "/admin", admin.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.path, tt.bearer)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

type identity struct {
	id    string
	admin bool
}

func (i identity) UserID() string { return i.id }
func (i identity) IsAdmin() bool  { return i.admin }

func TestRequireSessionAndAdmin(t *testing.T) {
	tests := []struct {
		name   string
		id     identity
		path   string
		status int
		body   string
	}{
		{"guest", identity{}, "/orders", http.StatusUnauthorized, `"redirect":"/login"`},
		{"user", identity{id: "u1"}, "/orders", http.StatusOK, `"user":"u1"`},
		{"user on admin", identity{id: "u1"}, "/admin", http.StatusForbidden, "Admin access required."},
		{"admin", identity{id: "a1", admin: true}, "/admin", http.StatusOK, `"user":"a1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			g := e.Group("", RequireSession(tt.id, "/login"))
			g.GET("/orders", ok)
			g.GET("/admin", ok, RequireAdmin(tt.id))
			rec := serve(e, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestThrottleKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/checkout")
	assert.Equal(t, "throttle:ip:10.0.0.7:POST /v1/checkout", throttleKey("throttle", c))

	c.Set("user_id", "u1")
	assert.Equal(t, "throttle:user:u1:POST /v1/checkout", throttleKey("throttle", c))
}

func TestDisabledLayersPassThrough(t *testing.T) {
	e := echo.New()
	cache := NewCatalogCache(config.CacheConfig{Enabled: true}, nil)
	assert.Nil(t, cache)
	cache.Invalidate(context.Background())
	e.GET("/p", ok, cache.Middleware(), NewThrottle(config.RateLimitConfig{Enabled: true, Limit: 1}, nil))

	for i := 0; i < 3; i++ {
		rec := serve(e, http.MethodGet, "/p", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestDelay(t *testing.T) {
	e := echo.New()
	e.GET("/slow", ok, Delay(30*time.Millisecond))
	start := time.Now()
	rec := serve(e, http.MethodGet, "/slow", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
