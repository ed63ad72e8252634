// Package storage defines the object store used for SEO parity snapshots and
// other JSON documents the API publishes.
//
// Backends register themselves with the factory from an init() function in
// their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The server imports each backend with a blank import to trigger init().
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and Stat when no object exists at the key.
var ErrNotFound = errors.New("storage: object not found")

// Storage is implemented by every object store backend.
type Storage interface {
	// Put writes data at key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) (*ObjectInfo, error)

	// Get returns the object body or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Stat returns object metadata or ErrNotFound.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Delete removes key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	Checksum     string // hex SHA-256 of the body, when the backend keeps it
	LastModified time.Time
}

// Checksum returns the hex SHA-256 of data, as stored in ObjectInfo.Checksum.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
