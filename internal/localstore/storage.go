// Package localstore persists the small amount of client state that must
// survive a restart: the bearer token and the serialized identity.
package localstore

import (
	"context"
	"errors"
)

// Keys written by the session store. Both are always written and cleared together.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNotFound is returned by Get for a key that was never set or was deleted.
var ErrNotFound = errors.New("localstore: key not found")

// ErrCorrupt is returned by Get when the persisted document cannot be
// decoded. The next Set or Delete replaces the document.
var ErrCorrupt = errors.New("localstore: corrupt document")

// Storage is a string key/value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
