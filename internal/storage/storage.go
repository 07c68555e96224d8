// Package storage is the local key-value store that survives restarts of
// the storefront client: the credential, the cached user and the cart
// snapshot. Only the session and cart repositories use it.
package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/shopflow/internal/config"
)

const (
	KeyAuthToken = "authToken"
	KeyUser      = "user"
	KeyCart      = "cart"
)

// Store is a string key-value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Open builds the backend named in cfg. A redis backend without a live
// client falls back to the file backend.
func Open(cfg config.StorageConfig, rdb *redis.Client) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "redis":
		if rdb != nil {
			return NewRedis(rdb, cfg.Prefix), nil
		}
		log.Printf("storage: redis unavailable, falling back to file %s", cfg.Path)
		return NewFile(cfg.Path)
	case "file", "":
		return NewFile(cfg.Path)
	}
	return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
}

// Memory keeps values in process memory only.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory { return &Memory{data: map[string]string{}} }

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
