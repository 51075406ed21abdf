package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SlotStore = (*SlotRepo)(nil)

// SlotRepo is the SQLite implementation of the SlotStore port interface.
// Values are sealed with AES-256-GCM and bound to their slot key.
type SlotRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewSlotRepo creates a new SlotRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable slot storage (Get and Set return driven.ErrEncryptionKeyNotSet).
func NewSlotRepo(db *DB, key []byte) *SlotRepo {
	return &SlotRepo{db: db, key: key}
}

// Set stores or replaces the value for the given slot key.
func (r *SlotRepo) Set(ctx context.Context, key, value string) error {
	if r.key == nil {
		return driven.ErrEncryptionKeyNotSet
	}

	encrypted, err := sealSlot(r.key, key, value)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO session_slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.conn.ExecContext(ctx, query, key, encrypted); err != nil {
		return fmt.Errorf("set slot %q: %w", key, err)
	}
	return nil
}

// Get retrieves the plaintext value for the given slot key.
// Returns ("", nil) if the slot is empty.
func (r *SlotRepo) Get(ctx context.Context, key string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM session_slots WHERE key = ?`
	var encrypted string
	err := r.db.conn.QueryRowContext(ctx, query, key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get slot %q: %w", key, err)
	}

	plaintext, err := openSlot(r.key, key, encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt slot %q: %w", key, err)
	}
	return plaintext, nil
}

// Delete removes the value for the given slot key. Works without an encryption
// key so a stale slot can always be cleared.
func (r *SlotRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM session_slots WHERE key = ?`
	if _, err := r.db.conn.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete slot %q: %w", key, err)
	}
	return nil
}
