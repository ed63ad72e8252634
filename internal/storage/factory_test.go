package storage_test

import (
	"context"
	"testing"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/storage"
)

type mockStorage struct{}

func (m *mockStorage) Put(_ context.Context, key string, data []byte, _ string) (*storage.ObjectInfo, error) {
	return &storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}
func (m *mockStorage) Get(_ context.Context, _ string) ([]byte, error) { return nil, storage.ErrNotFound }
func (m *mockStorage) Stat(_ context.Context, _ string) (*storage.ObjectInfo, error) {
	return nil, storage.ErrNotFound
}
func (m *mockStorage) Delete(_ context.Context, _ string) error { return nil }

func TestRegister_AddsFactory(t *testing.T) {
	storage.Register("test-backend", func(_ *config.Config) (storage.Storage, error) {
		return &mockStorage{}, nil
	})

	cfg := &config.Config{}
	cfg.Storage.DefaultBackend = "test-backend"

	s, err := storage.NewStorage(cfg)
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}
	if s == nil {
		t.Fatal("NewStorage() returned nil")
	}

	found := false
	for _, name := range storage.Registered() {
		if name == "test-backend" {
			found = true
		}
	}
	if !found {
		t.Errorf("Registered() = %v, want it to include test-backend", storage.Registered())
	}
}

func TestNewStorage_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.DefaultBackend = "completely-unknown-backend"

	if _, err := storage.NewStorage(cfg); err == nil {
		t.Error("NewStorage() = nil error, want error for unregistered backend")
	}
}

func TestNewStorage_EmptyBackend(t *testing.T) {
	cfg := &config.Config{}
	if _, err := storage.NewStorage(cfg); err == nil {
		t.Error("NewStorage() = nil error, want error for empty backend name")
	}
}

func TestChecksum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := storage.Checksum(nil); got != empty {
		t.Errorf("Checksum(nil) = %s, want %s", got, empty)
	}
	if storage.Checksum([]byte("a")) == storage.Checksum([]byte("b")) {
		t.Error("Checksum collided for different inputs")
	}
}
