package tokenstore

import (
	"context"
	"errors"
)

// DefaultKey names the stored credential in every backend.
const DefaultKey = "reuse_token"

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("token store unavailable")

// Store holds a single credential string.
type Store interface {
	// Save replaces the stored credential.
	Save(ctx context.Context, token string) error
	// Read returns the stored credential, or "" when none is stored.
	Read(ctx context.Context) (string, error)
	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
