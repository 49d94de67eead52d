// Package syncer implements the secondary-side replication engine: per-sync
// orchestration, clock-ordered validation, and atomic snapshot application.
package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/model"
	"github.com/harmonia-net/content-node/internal/repository"
)

// ContentEnsurer materializes snapshot file entries on local disk.
type ContentEnsurer interface {
	EnsureAll(ctx context.Context, entries []model.FileEntry, hosts []string) error
}

// IdentityReconciler validates and applies a single user's snapshot.
type IdentityReconciler interface {
	Reconcile(ctx context.Context, requested map[string]struct{}, snap *model.Snapshot, hosts []string) error
}

// Reconciler applies one identity's exported snapshot to local storage after
// validating it against the local clock log. All validation happens before
// any write; the repository transaction makes the write all-or-nothing.
type Reconciler struct {
	repo    repository.SyncRepository
	content ContentEnsurer
	log     *zap.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(repo repository.SyncRepository, content ContentEnsurer, log *zap.Logger) *Reconciler {
	return &Reconciler{repo: repo, content: content, log: log}
}

// Reconcile validates the snapshot against local state and applies it.
// A nil return means the identity is converged, either because the snapshot
// was applied or because local state already matched the remote clock.
func (r *Reconciler) Reconcile(ctx context.Context, requested map[string]struct{}, snap *model.Snapshot, hosts []string) error {
	if _, ok := requested[snap.Wallet]; !ok {
		return fmt.Errorf("%s: %w", snap.Wallet, errs.ErrUnexpectedUser)
	}

	localMax := model.ClockNone
	local, err := r.repo.GetByWallet(ctx, snap.Wallet)
	switch {
	case err == nil:
		localMax = local.Clock
	case errors.Is(err, errs.ErrNotFound):
	default:
		return err
	}

	switch {
	case snap.Clock < localMax:
		return fmt.Errorf("%s: remote clock %d behind local %d: %w",
			snap.Wallet, snap.Clock, localMax, errs.ErrStaleExport)
	case snap.Clock == localMax:
		r.log.Debug("already converged", zap.String("wallet", snap.Wallet), zap.Int64("clock", localMax))
		return nil
	}

	// A bounded export covering several identities starts at the lowest
	// local clock across the request, so identities above that floor see a
	// leading run of records they already hold. Drop that prefix; only the
	// remainder must extend the local log.
	records := snap.ClockRecords
	for len(records) > 0 && records[0].Clock <= localMax {
		records = records[1:]
	}

	if err := validateContiguity(localMax, snap.Clock, records); err != nil {
		return fmt.Errorf("%s: %w", snap.Wallet, err)
	}

	if err := r.content.EnsureAll(ctx, snap.Files, hosts); err != nil {
		return fmt.Errorf("%s: materialize content: %w", snap.Wallet, err)
	}

	applied := *snap
	applied.ClockRecords = records
	id, err := r.repo.ApplySnapshot(ctx, &applied)
	if err != nil {
		return fmt.Errorf("%s: apply snapshot: %w", snap.Wallet, err)
	}

	r.log.Info("snapshot applied",
		zap.String("wallet", snap.Wallet),
		zap.String("identity", id.String()),
		zap.Int64("clock", snap.Clock),
		zap.Int("clockRecords", len(records)),
		zap.Int("files", len(snap.Files)),
	)
	return nil
}

// validateContiguity checks that the new clock records extend the local log
// without gaps or duplicates: first record at localMax+1 (0 for an empty
// identity), strictly consecutive, last record equal to the snapshot clock.
func validateContiguity(localMax, remoteMax int64, records []model.ClockEntry) error {
	if len(records) == 0 {
		return fmt.Errorf("clock advanced to %d with no new clock records: %w",
			remoteMax, errs.ErrNonContiguousClock)
	}
	want := localMax + 1
	for _, cr := range records {
		if cr.Clock != want {
			return fmt.Errorf("clock record %d, want %d: %w", cr.Clock, want, errs.ErrNonContiguousClock)
		}
		want++
	}
	if last := records[len(records)-1].Clock; last != remoteMax {
		return fmt.Errorf("last clock record %d, snapshot clock %d: %w",
			last, remoteMax, errs.ErrNonContiguousClock)
	}
	return nil
}
