package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/model"
)

// SyncRepo implements repository.SyncRepository using PostgreSQL.
type SyncRepo struct{ db *DB }

// NewSyncRepo constructs a sync repository.
func NewSyncRepo(db *DB) *SyncRepo { return &SyncRepo{db: db} }

// GetByWallet loads an identity by wallet.
func (r *SyncRepo) GetByWallet(ctx context.Context, wallet string) (*model.Identity, error) {
	const q = `
SELECT id, wallet, last_login, latest_block_number, clock, created_at
FROM identities WHERE wallet=$1`
	var id model.Identity
	err := r.db.Pool.QueryRow(ctx, q, wallet).
		Scan(&id.ID, &id.Wallet, &id.LastLogin, &id.LatestBlockNumber, &id.Clock, &id.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &id, nil
}

// ApplySnapshot applies one user's snapshot in a single transaction.
//
// The identity row is upserted in place, preserving its local identifier.
// Clock records are appended; file, track and profile rows are replaced as
// one unit. Insertion order is clock records, non-track files, tracks,
// track files, profiles, so that every track-typed file finds its owning
// track row already present.
func (r *SyncRepo) ApplySnapshot(ctx context.Context, snap *model.Snapshot) (id uuid.UUID, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	id, err = upsertIdentity(ctx, tx, snap)
	if err != nil {
		return uuid.Nil, err
	}

	// Children are replaced wholesale; files go first because they reference tracks.
	for _, del := range []string{
		`DELETE FROM files WHERE identity_id=$1`,
		`DELETE FROM tracks WHERE identity_id=$1`,
		`DELETE FROM profiles WHERE identity_id=$1`,
	} {
		if _, err = tx.Exec(ctx, del, id); err != nil {
			return uuid.Nil, err
		}
	}

	const insClock = `
INSERT INTO clock_records (identity_id, clock, operation_type) VALUES ($1,$2,$3)`
	for _, cr := range snap.ClockRecords {
		if _, err = tx.Exec(ctx, insClock, id, cr.Clock, cr.OperationType); err != nil {
			if isUniqueViolation(err) {
				err = fmt.Errorf("clock record %d: %w", cr.Clock, errs.ErrNonContiguousClock)
			}
			return uuid.Nil, err
		}
	}

	const insFile = `
INSERT INTO files (id, identity_id, multihash, storage_path, file_type, file_name, track_blockchain_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	insertFiles := func(trackTyped bool) error {
		for _, f := range snap.Files {
			if f.Type.TrackTyped() != trackTyped {
				continue
			}
			fid, e := uuid.NewV4()
			if e != nil {
				return e
			}
			if _, e = tx.Exec(ctx, insFile, fid, id, f.Multihash, f.StoragePath,
				string(f.Type), f.FileName, f.TrackBlockchainID); e != nil {
				if isForeignKeyViolation(e) {
					return fmt.Errorf("file %s: %w", f.Multihash, errs.ErrForeignKeyViolation)
				}
				return e
			}
		}
		return nil
	}
	if err = insertFiles(false); err != nil {
		return uuid.Nil, err
	}

	const insTrack = `
INSERT INTO tracks (id, identity_id, blockchain_id, metadata_multihash) VALUES ($1,$2,$3,$4)`
	for _, t := range snap.Tracks {
		tid, e := uuid.NewV4()
		if e != nil {
			err = e
			return uuid.Nil, err
		}
		if _, err = tx.Exec(ctx, insTrack, tid, id, t.BlockchainID, t.MetadataMultihash); err != nil {
			return uuid.Nil, err
		}
	}

	if err = insertFiles(true); err != nil {
		return uuid.Nil, err
	}

	const insProfile = `
INSERT INTO profiles (id, identity_id, display_name, bio, metadata_multihash) VALUES ($1,$2,$3,$4,$5)`
	for _, p := range snap.ProfileRecords {
		pid, e := uuid.NewV4()
		if e != nil {
			err = e
			return uuid.Nil, err
		}
		if _, err = tx.Exec(ctx, insProfile, pid, id, p.DisplayName, p.Bio, p.MetadataMultihash); err != nil {
			return uuid.Nil, err
		}
	}

	return id, nil
}

// upsertIdentity updates an existing identity row in place or creates a new
// one with a freshly minted local identifier.
func upsertIdentity(ctx context.Context, tx pgx.Tx, snap *model.Snapshot) (uuid.UUID, error) {
	const sel = `SELECT id FROM identities WHERE wallet=$1 FOR UPDATE`
	var id uuid.UUID
	err := tx.QueryRow(ctx, sel, snap.Wallet).Scan(&id)
	switch {
	case err == nil:
		const upd = `
UPDATE identities SET last_login=$2, latest_block_number=$3, clock=$4 WHERE id=$1`
		if _, err = tx.Exec(ctx, upd, id, snap.LastLogin, snap.LatestBlockNumber, snap.Clock); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
		id, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		const ins = `
INSERT INTO identities (id, wallet, last_login, latest_block_number, clock, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
		if _, err = tx.Exec(ctx, ins, id, snap.Wallet, snap.LastLogin,
			snap.LatestBlockNumber, snap.Clock, time.Now().UTC()); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	default:
		return uuid.Nil, err
	}
}

// Purge removes the identity rows for the given wallets; child rows go with
// them via ON DELETE CASCADE.
func (r *SyncRepo) Purge(ctx context.Context, wallets []string) (err error) {
	if len(wallets) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const del = `DELETE FROM identities WHERE wallet=$1`
	for _, w := range wallets {
		if _, err = tx.Exec(ctx, del, w); err != nil {
			return err
		}
	}
	return nil
}

// ClockRecords returns up to limit records with clock >= fromClock, ordered ascending.
func (r *SyncRepo) ClockRecords(ctx context.Context, identityID uuid.UUID, fromClock int64, limit int) ([]model.ClockRecord, error) {
	const q = `
SELECT identity_id, clock, operation_type
FROM clock_records
WHERE identity_id=$1 AND clock>=$2
ORDER BY clock ASC
LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, identityID, fromClock, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClockRecord
	for rows.Next() {
		var cr model.ClockRecord
		if err = rows.Scan(&cr.IdentityID, &cr.Clock, &cr.OperationType); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// Files returns all file rows for an identity.
func (r *SyncRepo) Files(ctx context.Context, identityID uuid.UUID) ([]model.File, error) {
	const q = `
SELECT id, identity_id, multihash, storage_path, file_type, file_name, track_blockchain_id
FROM files WHERE identity_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var f model.File
		var ft string
		if err = rows.Scan(&f.ID, &f.IdentityID, &f.Multihash, &f.StoragePath,
			&ft, &f.FileName, &f.TrackBlockchainID); err != nil {
			return nil, err
		}
		f.Type = model.FileType(ft)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Tracks returns all track rows for an identity.
func (r *SyncRepo) Tracks(ctx context.Context, identityID uuid.UUID) ([]model.Track, error) {
	const q = `
SELECT id, identity_id, blockchain_id, metadata_multihash
FROM tracks WHERE identity_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Track
	for rows.Next() {
		var t model.Track
		if err = rows.Scan(&t.ID, &t.IdentityID, &t.BlockchainID, &t.MetadataMultihash); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Profiles returns all profile rows for an identity.
func (r *SyncRepo) Profiles(ctx context.Context, identityID uuid.UUID) ([]model.Profile, error) {
	const q = `
SELECT id, identity_id, display_name, bio, metadata_multihash
FROM profiles WHERE identity_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		if err = rows.Scan(&p.ID, &p.IdentityID, &p.DisplayName, &p.Bio, &p.MetadataMultihash); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
