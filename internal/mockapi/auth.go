package mockapi

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/repository"
	"github.com/iliyamo/shopflow/internal/utils"
)

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailReq struct {
	Email string `json:"email"`
}

type otpReq struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

type resetReq struct {
	Email       string `json:"email"`
	OTPCode     string `json:"otp_code"`
	NewPassword string `json:"new_password"`
}

type loginResp struct {
	Access string     `json:"access"`
	User   model.User `json:"user"`
}

// Register creates an inactive account and sends a verification code.
// Field errors use the {"field": ["message"]} shape.
func (s *Server) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = model.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = []string{"This field may not be blank."}
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(req.Password) < utils.MinPasswordLength {
		fields["password"] = []string{"Ensure this field has at least 6 characters."}
	}
	if len(fields) > 0 {
		return c.JSON(http.StatusBadRequest, fields)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := s.users.Create(ctx, req.Name, req.Email, req.Password, model.RoleUser, false, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"email": []string{"user with this email already exists."}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	if err := s.issueOTP(c, u.Email, repository.PurposeVerify); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send verification code"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Registration successful. Check your email for the verification code."})
}

// VerifyOTP activates the account the code was sent for.
func (s *Server) VerifyOTP(c echo.Context) error {
	var req otpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := model.NormalizeEmail(req.Email)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := s.otps.Consume(ctx, email, repository.PurposeVerify, utils.HashCode(req.OTPCode)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
	}
	if err := s.users.Activate(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified. You can now log in."})
}

// Login verifies the password and returns an access token with the profile.
func (s *Server) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = model.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Please verify your email before logging in."})
	}
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, loginResp{Access: access.Token, User: u.Profile()})
}

// ForgotPassword always answers 200 so it cannot be used to probe which
// emails have accounts.
func (s *Server) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := model.NormalizeEmail(req.Email)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		if err := s.issueOTP(c, email, repository.PurposeReset); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send reset code"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "If an account exists, a reset code has been sent."})
}

func (s *Server) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.NewPassword) < utils.MinPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"new_password": []string{"Ensure this field has at least 6 characters."}})
	}
	email := model.NormalizeEmail(req.Email)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := s.otps.Consume(ctx, email, repository.PurposeReset, utils.HashCode(req.OTPCode)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
	}
	if err := s.users.SetPassword(ctx, u.ID, req.NewPassword, s.cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	s.otps.RevokeAll(ctx, email)
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successful."})
}

// ResendOTP re-sends the verification code of an account that is not yet
// active.
func (s *Server) ResendOTP(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := model.NormalizeEmail(req.Email)
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no account with this email"})
	}
	if u.IsActive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account is already verified"})
	}
	if err := s.issueOTP(c, email, repository.PurposeVerify); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send verification code"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "A new code has been sent."})
}

func (s *Server) Profile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := s.users.GetByID(ctx, s.uid(c))
	if err != nil {
		// token for a user that no longer exists
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, u.Profile())
}

func (s *Server) issueOTP(c echo.Context, email string, p repository.OTPPurpose) error {
	code, err := utils.NewOTP()
	if err != nil {
		log.Printf("mockapi: generate otp: %v", err)
		return err
	}
	exp := time.Now().UTC().Add(s.cfg.OTPTTL)
	if err := s.otps.Store(c.Request().Context(), email, p, utils.HashCode(code), exp); err != nil {
		return err
	}
	s.sendOTP(email, p, code)
	return nil
}
