// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/harmonia-net/content-node/internal/model"
)

// SyncRepository provides the transactional storage operations of the sync
// engine: identity lookup, atomic snapshot application, destructive recovery,
// and the reads needed to serve exports.
type SyncRepository interface {
	// GetByWallet loads an identity by its network user key.
	// Returns errs.ErrNotFound if the identity has never been synced.
	GetByWallet(ctx context.Context, wallet string) (*model.Identity, error)

	// ApplySnapshot applies one user's snapshot in a single transaction:
	// identity upsert (preserving an existing local identifier), append of
	// clock records, and replacement of all file/track/profile rows in
	// FK-safe order. Returns the local identity identifier.
	// Referential-integrity failures map to errs.ErrForeignKeyViolation,
	// duplicate clock inserts to errs.ErrNonContiguousClock.
	ApplySnapshot(ctx context.Context, snap *model.Snapshot) (uuid.UUID, error)

	// Purge deletes the identity rows and all child rows for the given
	// wallets in one transaction. Missing wallets are ignored.
	Purge(ctx context.Context, wallets []string) error

	// ClockRecords returns up to limit records with clock >= fromClock,
	// ordered by clock ascending.
	ClockRecords(ctx context.Context, identityID uuid.UUID, fromClock int64, limit int) ([]model.ClockRecord, error)

	// Files returns all file rows for an identity.
	Files(ctx context.Context, identityID uuid.UUID) ([]model.File, error)

	// Tracks returns all track rows for an identity.
	Tracks(ctx context.Context, identityID uuid.UUID) ([]model.Track, error)

	// Profiles returns all profile rows for an identity.
	Profiles(ctx context.Context, identityID uuid.UUID) ([]model.Profile, error)
}
