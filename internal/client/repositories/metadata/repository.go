// Package metadata is the client-side key/value storage: the place where
// the backend client persists its credential tokens and where the forced
// sign-out path scrubs them.
package metadata

import "context"

// Repository is a flat key/value store. Get returns (nil, nil) for a key
// that does not exist.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
