// Package storage keeps encoded snapshots under string keys, so a server can
// offer named save slots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrExists     = errors.New("key already exists")
	ErrInvalidKey = errors.New("invalid key")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateKey accepts short names usable as file names on every platform.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

type Storage interface {
	Create(ctx context.Context, key string, value []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)

	Statistics() Statistics
}

type Statistics struct {
	Keys   int   `json:"keys"`
	Bytes  int64 `json:"bytes"`
	Reads  int64 `json:"reads"`
	Writes int64 `json:"writes"`
}

// Put creates key or replaces its value.
func Put(ctx context.Context, s Storage, key string, value []byte) error {
	err := s.Update(ctx, key, value)
	if errors.Is(err, ErrNotFound) {
		return s.Create(ctx, key, value)
	}
	return err
}
