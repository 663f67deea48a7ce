// Package storage keeps uploaded files and generated documents outside the
// database. Backends move opaque bytes; AttachmentStore adds encryption.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrObjectNotFound = errors.New("stored object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// validateKey rejects keys that could escape the storage root.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
