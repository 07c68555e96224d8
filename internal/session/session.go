// Package session holds the single source of truth for who is logged in
// and is the boundary to the authentication API. One Session is built at
// startup and injected wherever the current user is needed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/utils"
)

// LoginPath is where the visual layer sends the user after a forced logout.
const LoginPath = "/login"

var ErrNotAuthenticated = errors.New("not authenticated")

// AuthAPI is the slice of the API client the session depends on.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResponse, error)
	Register(ctx context.Context, p apiclient.RegisterPayload) (apiclient.MessageResponse, error)
	VerifyOTP(ctx context.Context, p apiclient.VerifyOTPPayload) (apiclient.MessageResponse, error)
	ForgotPassword(ctx context.Context, email string) (apiclient.MessageResponse, error)
	ResetPassword(ctx context.Context, p apiclient.ResetPasswordPayload) (apiclient.MessageResponse, error)
	ResendOTP(ctx context.Context, email string) (apiclient.MessageResponse, error)
	Profile(ctx context.Context) (model.User, error)
}

// Session is safe for concurrent use. Neither mutex is held across a
// network call, so the 401 hook can clear the session while a request
// issued by the session itself is in flight.
type Session struct {
	api  AuthAPI
	repo Repository
	now  func() time.Time

	// transition serializes credential changes so storage and memory
	// always describe the same session.
	transition sync.Mutex

	mu            sync.RWMutex
	token         string
	user          *model.User
	loginRequired bool
	observers     []func(*model.User)
}

func New(api AuthAPI, repo Repository) *Session {
	return &Session{api: api, repo: repo, now: time.Now}
}

// OnIdentityChange registers fn to run whenever the logged-in user id
// changes. fn receives nil on logout. It runs inside the credential
// change, so it must not log in or out itself.
func (s *Session) OnIdentityChange(fn func(user *model.User)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// State is what the visual layer reads to render auth-dependent views.
type State struct {
	User          *model.User `json:"user"`
	Authenticated bool        `json:"isAuthenticated"`
	LoginRequired bool        `json:"loginRequired"`
	Redirect      string      `json:"redirect,omitempty"`
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{User: copyUser(s.user), Authenticated: s.user != nil, LoginRequired: s.loginRequired}
	if s.loginRequired {
		st.Redirect = LoginPath
	}
	return st
}

func (s *Session) Current() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin()
}

// UserID returns the current user id, or "" for a guest.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// AccessToken implements apiclient.TokenSource.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Init restores a stored session. The cached user becomes current at once;
// the credential is then checked against the profile endpoint in the
// background and the session is dropped if the check fails. The returned
// channel yields the check's error (if any) and is closed when it is done.
func (s *Session) Init(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	token, user, err := s.repo.Load(ctx)
	if err != nil {
		done <- fmt.Errorf("session: load: %w", err)
		close(done)
		return done
	}
	if token == "" || user == nil {
		close(done)
		return done
	}
	if utils.TokenExpired(token, s.now()) {
		log.Printf("session: stored credential expired, logging out")
		s.Logout(ctx)
		done <- ErrNotAuthenticated
		close(done)
		return done
	}
	u := user.Normalized()
	s.set(token, &u, false)

	go func() {
		defer close(done)
		if err := s.revalidate(ctx, token); err != nil {
			done <- err
		}
	}()
	return done
}

// Login authenticates and persists the credential. On any failure the
// previous session is left exactly as it was.
func (s *Session) Login(ctx context.Context, email, password string) (model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return model.User{}, errs.Validation("", "Please fill in all fields.")
	}
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return model.User{}, authFailure(err, "", "invalid credentials")
	}
	if resp.Access == "" {
		return model.User{}, &errs.AuthError{Message: "login failed", Status: http.StatusBadGateway}
	}
	user := resp.User.Normalized()
	s.transition.Lock()
	defer s.transition.Unlock()
	if err := s.repo.Save(ctx, resp.Access, user); err != nil {
		return model.User{}, err
	}
	s.set(resp.Access, &user, false)
	log.Printf("session: %s logged in", user.Email)
	return user, nil
}

// RegisterInput is the registration form. ConfirmPassword must repeat
// Password.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a pending account. The caller stays unauthenticated
// until the account is verified and they log in.
func (s *Session) Register(ctx context.Context, in RegisterInput) error {
	email := model.NormalizeEmail(in.Email)
	if in.Name == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return errs.Validation("", "Please fill in all fields.")
	}
	if in.Password != in.ConfirmPassword {
		return errs.Validation("confirmPassword", "Passwords do not match.")
	}
	if len(in.Password) < utils.MinPasswordLength {
		return errs.Validation("password", fmt.Sprintf("Password must be at least %d characters.", utils.MinPasswordLength))
	}
	_, err := s.api.Register(ctx, apiclient.RegisterPayload{Name: in.Name, Email: email, Password: in.Password})
	if err != nil {
		return authFailure(err, "email", "registration failed")
	}
	return nil
}

func (s *Session) VerifyOTP(ctx context.Context, email, code string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return errs.Validation("email", "Email is required.")
	}
	if !utils.ValidOTP(code) {
		return errs.Validation("otp", "Please enter the 6-digit code sent to your email.")
	}
	if _, err := s.api.VerifyOTP(ctx, apiclient.VerifyOTPPayload{Email: email, OTPCode: code}); err != nil {
		return authFailure(err, "", "invalid or expired code")
	}
	return nil
}

func (s *Session) ResendOTP(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return errs.Validation("email", "Email is required.")
	}
	if _, err := s.api.ResendOTP(ctx, email); err != nil {
		return authFailure(err, "", "failed to resend code")
	}
	return nil
}

func (s *Session) ForgotPassword(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return errs.Validation("email", "Please enter your email address.")
	}
	if _, err := s.api.ForgotPassword(ctx, email); err != nil {
		return authFailure(err, "", "request failed")
	}
	return nil
}

func (s *Session) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = model.NormalizeEmail(email)
	if email == "" || !utils.ValidOTP(code) || newPassword == "" {
		return errs.Validation("", "Please fill in all fields correctly.")
	}
	if len(newPassword) < utils.MinPasswordLength {
		return errs.Validation("newPassword", fmt.Sprintf("Password must be at least %d characters.", utils.MinPasswordLength))
	}
	p := apiclient.ResetPasswordPayload{Email: email, OTPCode: code, NewPassword: newPassword}
	if _, err := s.api.ResetPassword(ctx, p); err != nil {
		return authFailure(err, "", "invalid or expired code")
	}
	return nil
}

// RefreshUser re-fetches the profile. Any failure ends the session.
func (s *Session) RefreshUser(ctx context.Context) error {
	token := s.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	return s.revalidate(ctx, token)
}

// Logout clears the credential and the user from memory and storage. It
// never fails; storage errors are only logged.
func (s *Session) Logout(ctx context.Context) {
	s.transition.Lock()
	defer s.transition.Unlock()
	s.clear(ctx, false)
}

// ForceLogout is the HTTP layer's reaction to a rejected credential. When
// token is still the current credential it clears the session like Logout
// and flags that the visual layer must send the user to LoginPath. A
// rejection of a credential that was already replaced is ignored.
func (s *Session) ForceLogout(token, reason string) {
	s.transition.Lock()
	defer s.transition.Unlock()
	if token == "" || s.AccessToken() != token {
		log.Printf("session: ignoring rejection of a replaced credential: %s", reason)
		return
	}
	log.Printf("session: forced logout: %s", reason)
	s.clear(context.Background(), true)
}

// clear must be called with transition held.
func (s *Session) clear(ctx context.Context, loginRequired bool) {
	if err := s.repo.Clear(ctx); err != nil {
		log.Printf("session: clear storage: %v", err)
	}
	s.set("", nil, loginRequired)
}

// revalidate fetches the profile for token. Results for a token that is
// no longer current (the user logged out or in again meanwhile) are
// dropped.
func (s *Session) revalidate(ctx context.Context, token string) error {
	profile, err := s.api.Profile(ctx)
	s.transition.Lock()
	defer s.transition.Unlock()
	if err != nil {
		log.Printf("session: session expired or invalid token: %v", err)
		if s.AccessToken() == token {
			s.clear(ctx, false)
		}
		return err
	}
	u := profile.Normalized()
	if s.AccessToken() != token {
		return nil
	}
	if err := s.repo.SaveUser(ctx, u); err != nil {
		log.Printf("session: cache refreshed user: %v", err)
	}
	s.set(token, &u, false)
	return nil
}

func (s *Session) set(token string, user *model.User, loginRequired bool) {
	s.mu.Lock()
	prevID := idOf(s.user)
	s.token = token
	s.user = user
	s.loginRequired = loginRequired
	observers := append([]func(*model.User){}, s.observers...)
	s.mu.Unlock()

	if idOf(user) == prevID {
		return
	}
	for _, fn := range observers {
		fn(copyUser(user))
	}
}

// authFailure turns a rejection from the API into an *errs.AuthError with
// the server's message (preferring the first message reported for field)
// or fallback. Transport and server-side failures pass through.
func authFailure(err error, field, fallback string) error {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status >= 500 {
		return err
	}
	msg := ""
	if field != "" {
		msg = apiErr.FieldMessage(field)
	}
	if msg == "" {
		msg = apiErr.Detail
	}
	if msg == "" {
		msg = fallback
	}
	return &errs.AuthError{Message: msg, Status: apiErr.Status}
}

func idOf(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
