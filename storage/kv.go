// Package storage provides the key-value backends the stores persist their
// JSON blobs into. Every driver replaces a key's value in full on Set.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by drivers used after Close.
var ErrClosed = errors.New("storage: closed")

//go:generate mockgen -source=kv.go -destination=mock_kv.go -package=storage

// KeyValue is a string-to-string store keyed by name.
type KeyValue interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
