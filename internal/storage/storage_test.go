package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopflow/internal/config"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyAuthToken, "tok"))
	v, ok, err := s.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	require.NoError(t, s.Remove(ctx, KeyAuthToken))
	_, ok, err = s.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)

	// removing a missing key is not an error
	require.NoError(t, s.Remove(ctx, "missing"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	f, err := NewFile(path)
	require.NoError(t, err)
	exerciseStore(t, f)
}

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")

	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set(ctx, KeyCart, `{"items":[]}`))
	require.NoError(t, f.Set(ctx, KeyUser, `{"id":"1"}`))
	require.NoError(t, f.Remove(ctx, KeyUser))

	reopened, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"items":[]}`, v)
	_, ok, _ = reopened.Get(ctx, KeyUser)
	assert.False(t, ok)
}

func TestFileRejectsCorruptContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		want    any
		wantErr bool
	}{
		{"memory", &Memory{}, false},
		{"file", &File{}, false},
		{"redis", &File{}, false}, // no client: falls back to file
		{"etcd", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := Open(config.StorageConfig{Backend: tt.backend, Path: filepath.Join(dir, tt.backend+".json")}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}
