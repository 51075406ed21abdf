// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by SlotStore operations when
// AUTHSESSION_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set AUTHSESSION_SECRET_KEY")

// SlotStore defines the driven port for durable key-value persistence of
// session state. Values are opaque strings at this boundary; adapters may
// encrypt them at rest.
type SlotStore interface {
	// Get returns the value stored under key.
	// Returns ("", nil) if the slot is empty.
	Get(ctx context.Context, key string) (string, error)

	// Set stores or replaces the value under key.
	Set(ctx context.Context, key, value string) error

	// Delete empties the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, key string) error
}
