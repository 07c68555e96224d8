package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/storage"
)

// Repository persists the credential and the cached user. It is the only
// storage the session touches, so the policy in Session is testable with
// an in-memory store.
type Repository interface {
	// Load returns "" and nil when nothing usable is stored.
	Load(ctx context.Context) (token string, user *model.User, err error)
	Save(ctx context.Context, token string, user model.User) error
	SaveUser(ctx context.Context, user model.User) error
	Clear(ctx context.Context) error
}

// StorageRepository keeps the credential under storage.KeyAuthToken and
// the user JSON under storage.KeyUser.
type StorageRepository struct {
	store storage.Store
}

func NewStorageRepository(store storage.Store) *StorageRepository {
	return &StorageRepository{store: store}
}

func (r *StorageRepository) Load(ctx context.Context) (string, *model.User, error) {
	token, ok, err := r.store.Get(ctx, storage.KeyAuthToken)
	if err != nil || !ok || token == "" {
		return "", nil, err
	}
	raw, ok, err := r.store.Get(ctx, storage.KeyUser)
	if err != nil || !ok {
		return "", nil, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Printf("session: discarding unreadable cached user: %v", err)
		return "", nil, nil
	}
	return token, &u, nil
}

// Save stores both values or, on failure, puts the previous credential
// back so the stored session still matches the one in memory.
func (r *StorageRepository) Save(ctx context.Context, token string, user model.User) error {
	prev, hadPrev, err := r.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("session: read credential: %w", err)
	}
	if err := r.store.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return fmt.Errorf("session: store credential: %w", err)
	}
	if err := r.SaveUser(ctx, user); err != nil {
		if rerr := r.restore(ctx, prev, hadPrev); rerr != nil {
			log.Printf("session: restore previous credential: %v", rerr)
		}
		return err
	}
	return nil
}

func (r *StorageRepository) restore(ctx context.Context, prev string, hadPrev bool) error {
	if !hadPrev {
		return r.store.Remove(ctx, storage.KeyAuthToken)
	}
	return r.store.Set(ctx, storage.KeyAuthToken, prev)
}

func (r *StorageRepository) SaveUser(ctx context.Context, user model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, storage.KeyUser, string(raw)); err != nil {
		return fmt.Errorf("session: store user: %w", err)
	}
	return nil
}

func (r *StorageRepository) Clear(ctx context.Context) error {
	return errors.Join(
		r.store.Remove(ctx, storage.KeyAuthToken),
		r.store.Remove(ctx, storage.KeyUser),
	)
}
