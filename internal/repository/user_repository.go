package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/utils"
)

// User is an account record. IsActive stays false until the email has been
// verified with a one-time code.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         model.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view returned by login and profile.
func (u User) Profile() model.User {
	return model.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[string]*User{}, byEmail: map[string]string{}}
}

var ErrEmailExists = errors.New("email already exists")

// Create stores a new user and returns it.
func (r *UserRepo) Create(_ context.Context, name, email, password string, role model.Role, active bool, cost int) (User, error) {
	email = model.NormalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return User{}, ErrEmailExists
	}
	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return *u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return *r.byID[id], nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// Activate marks the account as verified.
func (r *UserRepo) Activate(_ context.Context, id string) error {
	return r.update(id, func(u *User) { u.IsActive = true })
}

// SetPassword replaces the password hash.
func (r *UserRepo) SetPassword(_ context.Context, id, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return r.update(id, func(u *User) { u.PasswordHash = hash })
}

func (r *UserRepo) update(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}
