package cart

import (
	"context"
	"encoding/json"
	"log"

	"github.com/iliyamo/shopflow/internal/storage"
)

// Snapshot is the persisted form of a cart. Owner is the user id the cart
// belongs to, or "" for a guest cart.
type Snapshot struct {
	Owner string `json:"owner,omitempty"`
	Lines []Line `json:"items"`
}

// Repository loads and saves cart snapshots.
type Repository interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// StorageRepository keeps the snapshot as JSON under storage.KeyCart.
type StorageRepository struct {
	store storage.Store
}

func NewStorageRepository(store storage.Store) *StorageRepository {
	return &StorageRepository{store: store}
}

// Load returns an empty snapshot when nothing, or nothing readable, is
// stored.
func (r *StorageRepository) Load(ctx context.Context) (Snapshot, error) {
	raw, ok, err := r.store.Get(ctx, storage.KeyCart)
	if err != nil || !ok {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// older clients stored a bare array of lines
		var lines []Line
		if err2 := json.Unmarshal([]byte(raw), &lines); err2 != nil {
			log.Printf("cart: discarding unreadable snapshot: %v", err)
			return Snapshot{}, nil
		}
		snap.Lines = lines
	}
	return snap, nil
}

func (r *StorageRepository) Save(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, storage.KeyCart, string(raw))
}
