package apiclient

import (
	"context"
	"net/http"

	"github.com/iliyamo/shopflow/internal/model"
)

type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse carries the credential and the profile it belongs to.
type LoginResponse struct {
	Access  string     `json:"access"`
	Refresh string     `json:"refresh,omitempty"`
	User    model.User `json:"user"`
}

type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyOTPPayload struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

type ResetPasswordPayload struct {
	Email       string `json:"email"`
	OTPCode     string `json:"otp_code"`
	NewPassword string `json:"new_password"`
}

type emailPayload struct {
	Email string `json:"email"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, p RegisterPayload) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "register/", body: p, public: true}, &out)
	return out, err
}

func (c *Client) VerifyOTP(ctx context.Context, p VerifyOTPPayload) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "verify-otp/", body: p, public: true}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "login/", body: loginPayload{Email: email, Password: password}, public: true}, &out)
	return out, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "forgot-password/", body: emailPayload{Email: email}, public: true}, &out)
	return out, err
}

func (c *Client) ResetPassword(ctx context.Context, p ResetPasswordPayload) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "reset-password/", body: p, public: true}, &out)
	return out, err
}

func (c *Client) ResendOTP(ctx context.Context, email string) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "resend-otp/", body: emailPayload{Email: email}, public: true}, &out)
	return out, err
}

// Profile fetches the user behind the stored credential.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, request{method: http.MethodGet, path: "profile/"}, &out)
	return out, err
}
