package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/session"
)

// AuthHandler exposes the session state holder to the visual layer.
type AuthHandler struct {
	Session *session.Session
}

func NewAuthHandler(s *session.Session) *AuthHandler {
	return &AuthHandler{Session: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailReq struct {
	Email string `json:"email"`
}

type otpReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type messageResp struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// State returns who is logged in and whether a login redirect is pending.
func (h *AuthHandler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Session.State())
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if _, err := h.Session.Login(c.Request().Context(), req.Email, req.Password); err != nil {
		return respondError(c, err, "login")
	}
	return c.JSON(http.StatusOK, h.Session.State())
}

// Register creates a pending account; the caller goes on to the code
// entry page.
func (h *AuthHandler) Register(c echo.Context) error {
	var req session.RegisterInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Session.Register(c.Request().Context(), req); err != nil {
		return respondError(c, err, "register")
	}
	return c.JSON(http.StatusCreated, messageResp{
		Message:  "Registration successful. Please check your email for the verification code.",
		Redirect: "/verify-otp",
	})
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Session.VerifyOTP(c.Request().Context(), req.Email, req.Code); err != nil {
		return respondError(c, err, "verify otp")
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Email verified. You can now log in.", Redirect: session.LoginPath})
}

func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Session.ResendOTP(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err, "resend otp")
	}
	return c.JSON(http.StatusOK, messageResp{Message: "A new code has been sent."})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Session.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err, "forgot password")
	}
	return c.JSON(http.StatusOK, messageResp{Message: "If an account exists for this email, a reset code has been sent."})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Session.ResetPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return respondError(c, err, "reset password")
	}
	return c.JSON(http.StatusOK, messageResp{Message: "Password reset. Please log in.", Redirect: session.LoginPath})
}

// Logout never fails.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Session.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// Refresh re-reads the profile. A rejected credential logs the user out.
func (h *AuthHandler) Refresh(c echo.Context) error {
	if err := h.Session.RefreshUser(c.Request().Context()); err != nil {
		return respondError(c, err, "refresh user")
	}
	return c.JSON(http.StatusOK, h.Session.State())
}
